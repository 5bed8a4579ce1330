package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/medclaims/bn-oracle/go-oracle/internal/bootstrap"
	"github.com/medclaims/bn-oracle/go-oracle/internal/fixedpoint"
	"github.com/medclaims/bn-oracle/go-oracle/internal/ledger"
	"github.com/medclaims/bn-oracle/go-oracle/internal/logging"
	"github.com/medclaims/bn-oracle/go-oracle/internal/model"
	"github.com/medclaims/bn-oracle/go-oracle/internal/syncer"
)

// patternCount is every assignment of the four binary evidence bits.
const patternCount = 1 << model.VariableCount

// #region main

func main() {
	dbPath := flag.String("db", envOr("ORACLE_DB", "bn_oracle.db"), "path to the oracle ledger database")
	csvPath := flag.String("csv", filepath.Join("experiments", "batch_inference_grid.csv"), "CSV file to append grid rows to")
	parallel := flag.Int("parallel", 4, "number of patterns synced concurrently")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	store, err := ledger.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open ledger: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	m, err := bootstrap.Load(ctx, store)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load parameters: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Priors: PPH=%.6f PPR=%.6f\n", m.PriorPPH(), m.PriorPPR())

	s := syncer.New(m, store, store)
	policy := syncer.DefaultRetryPolicy()
	runID := uuid.New().String()[:8]

	rows := make([]logging.GridRow, patternCount)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(*parallel)

	for pattern := 0; pattern < patternCount; pattern++ {
		g.Go(func() error {
			row, err := runPattern(gctx, store, s, policy, runID, pattern)
			if err != nil {
				return fmt.Errorf("pattern %d: %w", pattern, err)
			}
			rows[pattern] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "grid run: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(filepath.Dir(*csvPath), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "create output dir: %v\n", err)
		os.Exit(1)
	}
	if err := logging.AppendGridRows(*csvPath, rows); err != nil {
		fmt.Fprintf(os.Stderr, "append csv: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %d grid rows to %s\n", patternCount, *csvPath)
}

// #endregion main

// #region pattern

// bitsOf decodes a pattern index into evidence bits in variable order.
func bitsOf(pattern int) [model.VariableCount]int {
	var bits [model.VariableCount]int
	for i := 0; i < model.VariableCount; i++ {
		bits[i] = (pattern >> (model.VariableCount - 1 - i)) & 1
	}
	return bits
}

func runPattern(ctx context.Context, store *ledger.Store, s *syncer.Syncer, policy syncer.RetryPolicy, runID string, pattern int) (logging.GridRow, error) {
	bits := bitsOf(pattern)

	claimID, err := store.OpenClaim(ctx, fmt.Sprintf("GRID_%s_%02d", runID, pattern))
	if err != nil {
		return logging.GridRow{}, err
	}
	for i, b := range bits {
		if _, err := store.AddEvidence(ctx, claimID, i, b, "grid"); err != nil {
			return logging.GridRow{}, err
		}
	}

	var result syncer.Result
	err = policy.Run(ctx, func(ctx context.Context) error {
		var syncErr error
		result, syncErr = s.SyncFromLedger(ctx, claimID)
		return syncErr
	})

	snapshotJSON, _ := json.Marshal(result.Snapshot)
	entry := logging.SyncEntry{
		ClaimID:      claimID,
		SnapshotJSON: string(snapshotJSON),
		ScaledPPH:    result.ScaledPPH,
		ScaledPPR:    result.ScaledPPR,
		TxID:         result.Receipt.TxID,
		Verified:     err == nil,
		CreatedAt:    time.Now().UTC(),
	}
	if err != nil {
		entry.Reason = err.Error()
	}
	if logErr := logging.LogSync(store.DB(), entry); logErr != nil {
		fmt.Fprintf(os.Stderr, "log sync: %v\n", logErr)
	}
	if err != nil {
		return logging.GridRow{}, err
	}

	fmt.Printf("pattern=%02d claim=%d GPS=%d PC=%d PMD=%d PR=%d PPH=%.4f PPR=%.4f tx=%s\n",
		pattern, claimID, bits[0], bits[1], bits[2], bits[3],
		result.Posterior.PPH, result.Posterior.PPR, result.Receipt.TxID)

	return logging.GridRow{
		PatternIndex: pattern,
		ClaimID:      claimID,
		GPS:          bits[0],
		PC:           bits[1],
		PMD:          bits[2],
		PR:           bits[3],
		PosteriorPPH: result.Posterior.PPH,
		PosteriorPPR: result.Posterior.PPR,
		StoredPPH:    fixedpoint.ToProb(result.StoredPPH),
		StoredPPR:    fixedpoint.ToProb(result.StoredPPR),
		TxID:         result.Receipt.TxID,
		Timestamp:    time.Now().UTC().Unix(),
	}, nil
}

// #endregion pattern

// #region helpers

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
