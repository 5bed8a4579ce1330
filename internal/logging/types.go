package logging

import "time"

// #region sync-entry
// SyncEntry is a single row in the sync_log table: one posterior
// synchronization attempt for a claim, successful or not.
type SyncEntry struct {
	ClaimID      int64
	SnapshotJSON string
	ScaledPPH    int64
	ScaledPPR    int64
	TxID         string
	Verified     bool
	Reason       string
	CreatedAt    time.Time
}

// #endregion sync-entry

// #region csv-rows
// LifecycleRow is one CSV row of the staged lifecycle demo. Evidence bits
// use -1 for "not observed yet at this stage".
type LifecycleRow struct {
	StageIndex   int
	StageLabel   string
	ClaimID      int64
	GPS          int
	PC           int
	PMD          int
	PR           int
	PosteriorPPH float64
	PosteriorPPR float64
	StoredPPH    float64
	StoredPPR    float64
	TxID         string
	Timestamp    int64
}

// GridRow is one CSV row of the full 16-pattern evidence grid.
type GridRow struct {
	PatternIndex int
	ClaimID      int64
	GPS          int
	PC           int
	PMD          int
	PR           int
	PosteriorPPH float64
	PosteriorPPR float64
	StoredPPH    float64
	StoredPPR    float64
	TxID         string
	Timestamp    int64
}

// #endregion csv-rows
