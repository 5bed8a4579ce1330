package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/medclaims/bn-oracle/go-oracle/internal/bootstrap"
	"github.com/medclaims/bn-oracle/go-oracle/internal/fixedpoint"
	"github.com/medclaims/bn-oracle/go-oracle/internal/gateway"
	"github.com/medclaims/bn-oracle/go-oracle/internal/ledger"
	"github.com/medclaims/bn-oracle/go-oracle/internal/logging"
	"github.com/medclaims/bn-oracle/go-oracle/internal/model"
	"github.com/medclaims/bn-oracle/go-oracle/internal/syncer"
)

// backend is the store surface the one-shot run needs, satisfied by both
// the local SQLite ledger and the HTTP gateway client.
type backend interface {
	bootstrap.ParameterStore
	syncer.ClaimStore
	syncer.EvidenceStore
	OpenClaim(ctx context.Context, externalKey string) (int64, error)
	AddEvidence(ctx context.Context, claimID int64, idx, value int, reporter string) (int64, error)
}

// #region main

func main() {
	dbPath := flag.String("db", envOr("ORACLE_DB", "bn_oracle.db"), "path to the oracle ledger database")
	gatewayURL := flag.String("gateway", envOr("ORACLE_GATEWAY", ""), "base URL of a remote claim gateway (overrides --db)")
	claimID := flag.Int64("claim", 0, "existing claim id (0 opens a new claim)")
	claimKey := flag.String("claim-key", "", "external key for a newly opened claim")
	gps := flag.Int("gps", 0, "GPS evidence bit (0 or 1)")
	pc := flag.Int("pc", 0, "PC evidence bit (0 or 1)")
	pmd := flag.Int("pmd", 0, "PMD evidence bit (0 or 1)")
	pr := flag.Int("pr", 0, "PR evidence bit (0 or 1)")
	reporter := flag.String("reporter", "oracle-cli", "reporter tag recorded with the evidence")
	flag.Parse()

	bits := []int{*gps, *pc, *pmd, *pr}
	for i, b := range bits {
		if b != 0 && b != 1 {
			fmt.Fprintf(os.Stderr, "evidence bit %d must be 0 or 1, got %d\n", i, b)
			os.Exit(2)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	var store backend
	var ledgerStore *ledger.Store
	if *gatewayURL != "" {
		store = gateway.NewClient(*gatewayURL)
	} else {
		s, err := ledger.NewStore(*dbPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open ledger: %v\n", err)
			os.Exit(1)
		}
		defer s.Close()
		store = s
		ledgerStore = s
	}

	m, err := bootstrap.Load(ctx, store)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load parameters: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Priors: PPH=%.6f PPR=%.6f\n", m.PriorPPH(), m.PriorPPR())

	id := *claimID
	if id == 0 {
		id, err = store.OpenClaim(ctx, *claimKey)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open claim: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Opened claim %d\n", id)
	}

	for i, b := range bits {
		if _, err := store.AddEvidence(ctx, id, i, b, *reporter); err != nil {
			name, _ := model.VariableName(i)
			fmt.Fprintf(os.Stderr, "record evidence %s: %v\n", name, err)
			os.Exit(1)
		}
	}

	s := syncer.New(m, store, store)
	policy := syncer.DefaultRetryPolicy()

	var result syncer.Result
	err = policy.Run(ctx, func(ctx context.Context) error {
		var syncErr error
		result, syncErr = s.SyncFromLedger(ctx, id)
		return syncErr
	})

	if ledgerStore != nil {
		logSync(ledgerStore, id, result, err)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "sync claim %d: %v\n", id, err)
		os.Exit(1)
	}

	fmt.Printf("Posterior: PPH=%.6f PPR=%.6f\n", result.Posterior.PPH, result.Posterior.PPR)
	fmt.Printf("Stored posteriors: PPH=%.6f PPR=%.6f\n",
		fixedpoint.ToProb(result.StoredPPH), fixedpoint.ToProb(result.StoredPPR))
	fmt.Printf("Tx: %s\n", result.Receipt.TxID)
}

// #endregion main

// #region helpers

func logSync(store *ledger.Store, claimID int64, result syncer.Result, syncErr error) {
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
