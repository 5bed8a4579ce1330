package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/medclaims/bn-oracle/go-oracle/internal/bootstrap"
	"github.com/medclaims/bn-oracle/go-oracle/internal/fixedpoint"
	"github.com/medclaims/bn-oracle/go-oracle/internal/ledger"
	"github.com/medclaims/bn-oracle/go-oracle/internal/model"
)

// #region main

func main() {
	dbPath := flag.String("db", envOr("ORACLE_DB", "bn_oracle.db"), "path to the oracle ledger database")
	priorPPH := flag.Float64("prior-pph", 0.5, "prior P(PPH=1)")
	priorPPR := flag.Float64("prior-ppr", 0.5, "prior P(PPR=1)")
	flag.Parse()

	store, err := ledger.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open ledger: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := store.SetPrior(ctx, model.HiddenPPH, fixedpoint.FromProb(*priorPPH)); err != nil {
		fmt.Fprintf(os.Stderr, "set prior PPH: %v\n", err)
		os.Exit(1)
	}
	if err := store.SetPrior(ctx, model.HiddenPPR, fixedpoint.FromProb(*priorPPR)); err != nil {
		fmt.Fprintf(os.Stderr, "set prior PPR: %v\n", err)
		os.Exit(1)
	}
	if err := store.SeedNeutralCPTs(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "seed CPTs: %v\n", err)
		os.Exit(1)
	}

	// Read everything back through the loader to prove the seeded
	// parameters form a valid model.
	if _, err := bootstrap.Load(ctx, store); err != nil {
		fmt.Fprintf(os.Stderr, "verify seeded parameters: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Parameters written with neutral 0.5 CPT probabilities (%d scalars).\n", bootstrap.ScalarReads)
	fmt.Println("To use real CPTs, write individual cells with SetCPTCell or the gateway.")
}

// #endregion main

// #region helpers

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
