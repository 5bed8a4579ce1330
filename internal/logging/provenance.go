package logging

import (
	"database/sql"
	"fmt"
	"time"
)

// #region log-sync
// LogSync writes a sync entry to the sync_log table.
func LogSync(db *sql.DB, entry SyncEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	verified := 0
	if entry.Verified {
		verified = 1
	}

	_, err := db.Exec(
		`INSERT INTO sync_log (claim_id, snapshot_json, scaled_pph, scaled_ppr, tx_id, verified, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ClaimID,
		nullIfEmpty(entry.SnapshotJSON),
		entry.ScaledPPH,
		entry.ScaledPPR,
		nullIfEmpty(entry.TxID),
		verified,
		nullIfEmpty(entry.Reason),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log sync: %w", err)
	}
	return nil
}

// #endregion log-sync

// #region list-sync
// ListSyncEntries reads the most recent sync entries, newest first. A
// claimID of 0 means all claims.
func ListSyncEntries(db *sql.DB, claimID int64, limit int) ([]SyncEntry, error) {
	query := `SELECT claim_id, snapshot_json, scaled_pph, scaled_ppr, tx_id, verified, reason, created_at
	          FROM sync_log`
	args := []interface{}{}
	if claimID != 0 {
		query += ` WHERE claim_id = ?`
		args = append(args, claimID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sync entries: %w", err)
	}
	defer rows.Close()

	var out []SyncEntry
	for rows.Next() {
		var e SyncEntry
		var snapshot, txID, reason sql.NullString
		var verified int
		var createdStr string
		if err := rows.Scan(&e.ClaimID, &snapshot, &e.ScaledPPH, &e.ScaledPPR, &txID, &verified, &reason, &createdStr); err != nil {
			return nil, fmt.Errorf("scan sync entry: %w", err)
		}
		e.SnapshotJSON = snapshot.String
		e.TxID = txID.String
		e.Reason = reason.String
		e.Verified = verified != 0
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		out = append(out, e)
	}
	return out, rows.Err()
}

// #endregion list-sync

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
