package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/medclaims/bn-oracle/go-oracle/internal/bootstrap"
	"github.com/medclaims/bn-oracle/go-oracle/internal/fixedpoint"
	"github.com/medclaims/bn-oracle/go-oracle/internal/ledger"
	"github.com/medclaims/bn-oracle/go-oracle/internal/logging"
	"github.com/medclaims/bn-oracle/go-oracle/internal/model"
	"github.com/medclaims/bn-oracle/go-oracle/internal/scenario"
	"github.com/medclaims/bn-oracle/go-oracle/internal/syncer"
)

// #region main

func main() {
	dbPath := flag.String("db", envOr("ORACLE_DB", "bn_oracle.db"), "path to the oracle ledger database")
	stagesPath := flag.String("stages", "", "YAML file of evidence stages (default: built-in four-stage demo)")
	csvPath := flag.String("csv", filepath.Join("experiments", "claim_lifecycle_demo.csv"), "CSV file to append stage rows to")
	claimKey := flag.String("claim-key", "CLAIM_DYNAMIC_DEMO", "external key for the demo claim")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	stages := scenario.DefaultLifecycleStages()
	if *stagesPath != "" {
		loaded, err := scenario.LoadStages(*stagesPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load stages: %v\n", err)
			os.Exit(1)
		}
		stages = loaded
	}

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

	// Reuse the demo claim across runs so the CSV shows one continuous
	// history per key.
	var claimID int64
	if existing, err := store.FindClaimByKey(ctx, *claimKey); err == nil {
		claimID = existing.ID
	} else {
		claimID, err = store.OpenClaim(ctx, *claimKey)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open claim: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("Demo claim %d (key %q)\n", claimID, *claimKey)

	s := syncer.New(m, store, store)
	policy := syncer.DefaultRetryPolicy()

	rows := make([]logging.LifecycleRow, 0, len(stages))
	for idx, stage := range stages {
		fmt.Printf("\n=== %s (stage %d) ===\n", stage.Label, idx)

		// Record each observation with the ledger so the fold and the
		// audit trail both see it.
		for i, name := range model.VariableNames() {
			v, ok := stage.Evidence[name]
			if !ok {
				continue
			}
			if _, err := store.AddEvidence(ctx, claimID, i, v, stage.Label); err != nil {
				fmt.Fprintf(os.Stderr, "record evidence %s: %v\n", name, err)
				os.Exit(1)
			}
		}

		var result syncer.Result
		err := policy.Run(ctx, func(ctx context.Context) error {
			var syncErr error
			result, syncErr = s.SyncFromLedger(ctx, claimID)
			return syncErr
		})
		logStage(store, claimID, result, err)
		if err != nil {
			fmt.Fprintf(os.Stderr, "sync stage %d: %v\n", idx, err)
			os.Exit(1)
		}

		storedPPH := fixedpoint.ToProb(result.StoredPPH)
		storedPPR := fixedpoint.ToProb(result.StoredPPR)
		fmt.Printf("stage=%d claim=%d PPH_off=%.4f PPR_off=%.4f PPH_stored=%.4f PPR_stored=%.4f tx=%s\n",
			idx, claimID, result.Posterior.PPH, result.Posterior.PPR, storedPPH, storedPPR, result.Receipt.TxID)

		row := logging.LifecycleRow{
			StageIndex:   idx,
			StageLabel:   stage.Label,
			ClaimID:      claimID,
			GPS:          bitOrUnobserved(stage.Evidence, model.VarGPS),
			PC:           bitOrUnobserved(stage.Evidence, model.VarPC),
			PMD:          bitOrUnobserved(stage.Evidence, model.VarPMD),
			PR:           bitOrUnobserved(stage.Evidence, model.VarPR),
			PosteriorPPH: result.Posterior.PPH,
			PosteriorPPR: result.Posterior.PPR,
			StoredPPH:    storedPPH,
			StoredPPR:    storedPPR,
			TxID:         result.Receipt.TxID,
			Timestamp:    time.Now().UTC().Unix(),
		}
		rows = append(rows, row)
	}

	if err := os.MkdirAll(filepath.Dir(*csvPath), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "create output dir: %v\n", err)
		os.Exit(1)
	}
	if err := logging.AppendLifecycleRows(*csvPath, rows); err != nil {
		fmt.Fprintf(os.Stderr, "append csv: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nAppended %d stage rows to %s\n", len(rows), *csvPath)
}

// #endregion main

// #region helpers

// bitOrUnobserved maps absence of a variable in a stage to the CSV
// convention -1.
func bitOrUnobserved(evidence map[string]int, name string) int {
	if v, ok := evidence[name]; ok {
		return v
	}
	return -1
}

func logStage(store *ledger.Store, claimID int64, result syncer.Result, syncErr error) {
	snapshotJSON, _ := json.Marshal(result.Snapshot)
	entry := logging.SyncEntry{
		ClaimID:      claimID,
		SnapshotJSON: string(snapshotJSON),
		ScaledPPH:    result.ScaledPPH,
		ScaledPPR:    result.ScaledPPR,
		TxID:         result.Receipt.TxID,
		Verified:     syncErr == nil,
		CreatedAt:    time.Now().UTC(),
	}
	if syncErr != nil {
		entry.Reason = syncErr.Error()
	}
	if err := logging.LogSync(store.DB(), entry); err != nil {
		fmt.Fprintf(os.Stderr, "log sync: %v\n", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
