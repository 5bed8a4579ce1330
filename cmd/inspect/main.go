package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/medclaims/bn-oracle/go-oracle/internal/audit"
	"github.com/medclaims/bn-oracle/go-oracle/internal/bootstrap"
	"github.com/medclaims/bn-oracle/go-oracle/internal/fixedpoint"
	"github.com/medclaims/bn-oracle/go-oracle/internal/ledger"
	"github.com/medclaims/bn-oracle/go-oracle/internal/logging"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to the oracle ledger database")
	syncClaim := flag.Int64("sync", -1, "show sync log (claim id, 0 for all claims)")
	last := flag.Int("last", 20, "show N most recent sync entries")
	runAudit := flag.Bool("audit", false, "recompute posteriors and compare with stored values")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/bn_oracle.db [--sync claimID] [--last N] [--audit] [--json]")
		os.Exit(2)
	}

	store, err := ledger.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	switch {
	case *runAudit:
		err = runAuditMode(ctx, store, *jsonOut)
	case *syncClaim >= 0:
		err = runSyncLogMode(store, *syncClaim, *last, *jsonOut)
	default:
		err = runClaimsMode(ctx, store, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region claims-mode

type claimRow struct {
	ClaimID      int64   `json:"claim_id"`
	ExternalKey  string  `json:"external_key"`
	PosteriorPPH float64 `json:"posterior_pph"`
	PosteriorPPR float64 `json:"posterior_ppr"`
	Closed       bool    `json:"closed"`
	UpdatedAt    string  `json:"updated_at"`
}

func runClaimsMode(ctx context.Context, store *ledger.Store, jsonOut bool) error {
	list, err := store.ListClaims(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(os.Stderr, "no claims found")
		return nil
	}

	rows := make([]claimRow, len(list))
	for i, c := range list {
		rows[i] = claimRow{
			ClaimID:      c.ID,
			ExternalKey:  c.ExternalKey,
			PosteriorPPH: fixedpoint.ToProb(c.PosteriorPPH),
			PosteriorPPR: fixedpoint.ToProb(c.PosteriorPPR),
			Closed:       c.Closed,
			UpdatedAt:    c.UpdatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}

	if jsonOut {
		return printJSON(rows)
	}
	fmt.Printf("%-8s  %-24s  %10s  %10s  %-6s  %s\n",
		"Claim", "Key", "PPH", "PPR", "Closed", "Updated")
	for _, r := range rows {
		fmt.Printf("%-8d  %-24s  %10.6f  %10.6f  %-6v  %s\n",
			r.ClaimID, shortKey(r.ExternalKey), r.PosteriorPPH, r.PosteriorPPR, r.Closed, r.UpdatedAt)
	}
	return nil
}

// #endregion claims-mode

// #region sync-log-mode

type syncRow struct {
	ClaimID   int64  `json:"claim_id"`
	Snapshot  string `json:"snapshot"`
	ScaledPPH int64  `json:"scaled_pph"`
	ScaledPPR int64  `json:"scaled_ppr"`
	TxID      string `json:"tx_id"`
	Verified  bool   `json:"verified"`
	Reason    string `json:"reason,omitempty"`
	CreatedAt string `json:"created_at"`
}

func runSyncLogMode(store *ledger.Store, claimID int64, last int, jsonOut bool) error {
	entries, err := logging.ListSyncEntries(store.DB(), claimID, last)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "no sync entries found")
		return nil
	}

	rows := make([]syncRow, len(entries))
	for i, e := range entries {
		rows[i] = syncRow{
			ClaimID:   e.ClaimID,
			Snapshot:  e.SnapshotJSON,
			ScaledPPH: e.ScaledPPH,
			ScaledPPR: e.ScaledPPR,
			TxID:      e.TxID,
			Verified:  e.Verified,
			Reason:    e.Reason,
			CreatedAt: e.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}

	if jsonOut {
		return printJSON(rows)
	}
	fmt.Printf("%-8s  %-28s  %8s  %8s  %-10s  %-8s  %s\n",
		"Claim", "Snapshot", "PPH", "PPR", "Tx", "Verified", "Time")
	for _, r := range rows {
		fmt.Printf("%-8d  %-28s  %8d  %8d  %-10s  %-8v  %s\n",
			r.ClaimID, r.Snapshot, r.ScaledPPH, r.ScaledPPR, shortKey(r.TxID), r.Verified, r.CreatedAt)
		if r.Reason != "" {
			fmt.Printf("          reason: %s\n", r.Reason)
		}
	}
	return nil
}

// #endregion sync-log-mode

// #region audit-mode

func runAuditMode(ctx context.Context, store *ledger.Store, jsonOut bool) error {
	m, err := bootstrap.Load(ctx, store)
	if err != nil {
		return fmt.Errorf("load parameters: %w", err)
	}
	results, summary, err := audit.Run(ctx, m, store)
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(struct {
			Summary audit.Summary  `json:"summary"`
			Results []audit.Result `json:"results"`
		}{summary, results})
	}

	fmt.Printf("%-8s  %-28s  %15s  %15s  %-10s\n",
		"Claim", "Snapshot", "Expected", "Stored", "Status")
	for _, r := range results {
		status := "ok"
		switch {
		case r.Skipped:
			status = "skipped"
		case !r.Consistent:
			status = "MISMATCH"
		}
		snapshotJSON, _ := json.Marshal(r.Snapshot)
		expected := fmt.Sprintf("%d/%d", r.ExpectedPPH, r.ExpectedPPR)
		stored := fmt.Sprintf("%d/%d", r.StoredPPH, r.StoredPPR)
		fmt.Printf("%-8d  %-28s  %15s  %15s  %-10s\n",
			r.ClaimID, string(snapshotJSON), expected, stored, status)
		if r.Reason != "" {
			fmt.Printf("          reason: %s\n", r.Reason)
		}
	}
	fmt.Printf("\n%d claims: %d consistent, %d mismatched, %d skipped\n",
		summary.Total, summary.Consistent, summary.Mismatched, summary.Skipped)
	if summary.Mismatched > 0 {
		os.Exit(1)
	}
	return nil
}

// #endregion audit-mode

// #region output

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortKey(k string) string {
	if len(k) > 24 {
		return k[:24]
	}
	return k
}

// #endregion output
