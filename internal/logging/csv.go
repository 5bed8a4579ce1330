package logging

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// #region append
// appendCSV appends rows to path, writing the header first only when the
// file does not exist yet. Experiment outputs accumulate across runs.
func appendCSV(path string, header []string, rows [][]string) error {
	_, statErr := os.Stat(path)
	isNew := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open csv %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if isNew {
		if err := w.Write(header); err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv rows: %w", err)
	}
	w.Flush()
	return w.Error()
}

// #endregion append

// #region lifecycle-csv
var lifecycleHeader = []string{
	"stage_index", "stage_label", "claim_id",
	"gps", "pc", "pmd", "pr",
	"posterior_pph", "posterior_ppr", "stored_pph", "stored_ppr",
	"tx_id", "timestamp",
}

// AppendLifecycleRows appends staged-demo rows to the CSV at path.
func AppendLifecycleRows(path string, rows []LifecycleRow) error {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{
			strconv.Itoa(r.StageIndex),
			r.StageLabel,
			strconv.FormatInt(r.ClaimID, 10),
			strconv.Itoa(r.GPS),
			strconv.Itoa(r.PC),
			strconv.Itoa(r.PMD),
			strconv.Itoa(r.PR),
			formatProb(r.PosteriorPPH),
			formatProb(r.PosteriorPPR),
			formatProb(r.StoredPPH),
			formatProb(r.StoredPPR),
			r.TxID,
			strconv.FormatInt(r.Timestamp, 10),
		})
	}
	return appendCSV(path, lifecycleHeader, records)
}

// #endregion lifecycle-csv

// #region grid-csv
var gridHeader = []string{
	"pattern_index", "claim_id",
	"gps", "pc", "pmd", "pr",
	"posterior_pph", "posterior_ppr", "stored_pph", "stored_ppr",
	"tx_id", "timestamp",
}

// AppendGridRows appends evidence-grid rows to the CSV at path.
func AppendGridRows(path string, rows []GridRow) error {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{
			strconv.Itoa(r.PatternIndex),
			strconv.FormatInt(r.ClaimID, 10),
			strconv.Itoa(r.GPS),
			strconv.Itoa(r.PC),
			strconv.Itoa(r.PMD),
			strconv.Itoa(r.PR),
			formatProb(r.PosteriorPPH),
			formatProb(r.PosteriorPPR),
			formatProb(r.StoredPPH),
			formatProb(r.StoredPPR),
			r.TxID,
			strconv.FormatInt(r.Timestamp, 10),
		})
	}
	return appendCSV(path, gridHeader, records)
}

// #endregion grid-csv

// #region helpers
func formatProb(p float64) string {
	return strconv.FormatFloat(p, 'f', 6, 64)
}

// #endregion helpers
