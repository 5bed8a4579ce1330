// Package ledger is an embedded single-node implementation of the
// parameter, claim, and evidence stores, backed by SQLite. It stands in for
// the real ledger during development and tests and doubles as the durable
// sink for sync provenance.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/medclaims/bn-oracle/go-oracle/internal/claims"
	"github.com/medclaims/bn-oracle/go-oracle/internal/fixedpoint"
	"github.com/medclaims/bn-oracle/go-oracle/internal/model"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS bn_priors (
	name   TEXT PRIMARY KEY,
	value  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS bn_cpt_cells (
	ev_index  INTEGER NOT NULL,
	pph       INTEGER NOT NULL,
	ppr       INTEGER NOT NULL,
	value     INTEGER NOT NULL,
	PRIMARY KEY (ev_index, pph, ppr)
);

CREATE TABLE IF NOT EXISTS claims (
	claim_id       INTEGER PRIMARY KEY AUTOINCREMENT,
	external_key   TEXT NOT NULL UNIQUE,
	opened_at      TEXT NOT NULL,
	updated_at     TEXT NOT NULL,
	posterior_pph  INTEGER NOT NULL DEFAULT 0,
	posterior_ppr  INTEGER NOT NULL DEFAULT 0,
	closed         INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS evidence_log (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	claim_id    INTEGER NOT NULL,
	ev_index    INTEGER NOT NULL,
	value       INTEGER NOT NULL,
	reporter    TEXT,
	created_at  TEXT NOT NULL,
	FOREIGN KEY (claim_id) REFERENCES claims(claim_id)
);

CREATE TABLE IF NOT EXISTS sync_log (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	claim_id       INTEGER NOT NULL,
	snapshot_json  TEXT,
	scaled_pph     INTEGER NOT NULL,
	scaled_ppr     INTEGER NOT NULL,
	tx_id          TEXT,
	verified       INTEGER NOT NULL,
	reason         TEXT,
	created_at     TEXT NOT NULL,
	FOREIGN KEY (claim_id) REFERENCES claims(claim_id)
);
`
// #endregion schema

// #region store-struct
// Store wraps the SQLite connection.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion db-accessor

// #region parameter-store
// SetPrior writes a scaled prior value under the given hidden-variable name.
func (s *Store) SetPrior(ctx context.Context, name string, scaled int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bn_priors (name, value) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET value = excluded.value`,
		name, scaled,
	)
	if err != nil {
		return fmt.Errorf("set prior %s: %w", name, err)
	}
	return nil
}

// GetPrior reads a scaled prior value.
func (s *Store) GetPrior(ctx context.Context, name string) (int64, error) {
	var v int64
	err := s.db.QueryRowContext(ctx, `SELECT value FROM bn_priors WHERE name = ?`, name).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("get prior %s: %w", name, err)
	}
	return v, nil
}

// SetCPTCell writes one scaled CPT cell.
func (s *Store) SetCPTCell(ctx context.Context, idx, pph, ppr int, scaled int64) error {
	if _, err := model.VariableName(idx); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bn_cpt_cells (ev_index, pph, ppr, value) VALUES (?, ?, ?, ?)
		 ON CONFLICT(ev_index, pph, ppr) DO UPDATE SET value = excluded.value`,
		idx, pph, ppr, scaled,
	)
	if err != nil {
		return fmt.Errorf("set cpt cell (%d,%d,%d): %w", idx, pph, ppr, err)
	}
	return nil
}

// GetCPTCell reads one scaled CPT cell.
func (s *Store) GetCPTCell(ctx context.Context, idx, pph, ppr int) (int64, error) {
	var v int64
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM bn_cpt_cells WHERE ev_index = ? AND pph = ? AND ppr = ?`,
		idx, pph, ppr,
	).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("get cpt cell (%d,%d,%d): %w", idx, pph, ppr, err)
	}
	return v, nil
}

// SeedNeutralCPTs fills every CPT cell with a flat 0.5, the uninformative
// default used until real domain tables are loaded.
func (s *Store) SeedNeutralCPTs(ctx context.Context) error {
	half := int64(fixedpoint.Scale / 2)
	for idx := 0; idx < model.VariableCount; idx++ {
		for pph := 0; pph < 2; pph++ {
			for ppr := 0; ppr < 2; ppr++ {
				if err := s.SetCPTCell(ctx, idx, pph, ppr, half); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// #endregion parameter-store

// #region claim-store
// OpenClaim creates a claim row under an external key and returns its ID.
func (s *Store) OpenClaim(ctx context.Context, externalKey string) (int64, error) {
	if externalKey == "" {
		externalKey = uuid.New().String()
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO claims (external_key, opened_at, updated_at) VALUES (?, ?, ?)`,
		externalKey, now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("open claim %s: %w", externalKey, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("open claim %s: %w", externalKey, err)
	}
	return id, nil
}

// FindClaimByKey looks up a claim by its external key.
func (s *Store) FindClaimByKey(ctx context.Context, externalKey string) (claims.Claim, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT claim_id FROM claims WHERE external_key = ?`, externalKey,
	).Scan(&id)
	if err != nil {
		return claims.Claim{}, fmt.Errorf("find claim %s: %w", externalKey, err)
	}
	return s.GetClaim(ctx, id)
}

// GetClaim reads a claim row.
func (s *Store) GetClaim(ctx context.Context, claimID int64) (claims.Claim, error) {
	var c claims.Claim
	var openedStr, updatedStr string
	var closed int
	err := s.db.QueryRowContext(ctx,
		`SELECT claim_id, external_key, opened_at, updated_at, posterior_pph, posterior_ppr, closed
		 FROM claims WHERE claim_id = ?`, claimID,
	).Scan(&c.ID, &c.ExternalKey, &openedStr, &updatedStr, &c.PosteriorPPH, &c.PosteriorPPR, &closed)
	if err != nil {
		return claims.Claim{}, fmt.Errorf("get claim %d: %w", claimID, err)
	}
	c.OpenedAt, _ = time.Parse(time.RFC3339Nano, openedStr)
	c.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedStr)
	c.Closed = closed != 0
	return c, nil
}

// SubmitPosterior overwrites the stored posterior pair. Resubmission is
// always allowed; the row is never locked against rewrites.
func (s *Store) SubmitPosterior(ctx context.Context, claimID, scaledPPH, scaledPPR int64) (claims.TxReceipt, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE claims SET posterior_pph = ?, posterior_ppr = ?, updated_at = ? WHERE claim_id = ?`,
		scaledPPH, scaledPPR, now.Format(time.RFC3339Nano), claimID,
	)
	if err != nil {
		return claims.TxReceipt{}, fmt.Errorf("submit posterior for claim %d: %w", claimID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return claims.TxReceipt{}, fmt.Errorf("submit posterior for claim %d: %w", claimID, err)
	}
	if n == 0 {
		return claims.TxReceipt{}, fmt.Errorf("submit posterior: claim %d not found", claimID)
	}
	return claims.TxReceipt{
		TxID:        uuid.New().String(),
		ClaimID:     claimID,
		SubmittedAt: now,
	}, nil
}

// CloseClaim marks a claim closed. Closed claims are skipped by the audit
// pass but remain writable, matching the store contract.
func (s *Store) CloseClaim(ctx context.Context, claimID int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE claims SET closed = 1, updated_at = ? WHERE claim_id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), claimID,
	)
	if err != nil {
		return fmt.Errorf("close claim %d: %w", claimID, err)
	}
	return nil
}

// ListClaims returns every claim row ordered by ID.
func (s *Store) ListClaims(ctx context.Context) ([]claims.Claim, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT claim_id, external_key, opened_at, updated_at, posterior_pph, posterior_ppr, closed
		 FROM claims ORDER BY claim_id`)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	defer rows.Close()

	var out []claims.Claim
	for rows.Next() {
		var c claims.Claim
		var openedStr, updatedStr string
		var closed int
		if err := rows.Scan(&c.ID, &c.ExternalKey, &openedStr, &updatedStr, &c.PosteriorPPH, &c.PosteriorPPR, &closed); err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		c.OpenedAt, _ = time.Parse(time.RFC3339Nano, openedStr)
		c.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedStr)
		c.Closed = closed != 0
		out = append(out, c)
	}
	return out, rows.Err()
}

// #endregion claim-store

// #region evidence-store
// AddEvidence appends one evidence piece to a claim's log.
func (s *Store) AddEvidence(ctx context.Context, claimID int64, idx, value int, reporter string) (int64, error) {
	if _, err := model.VariableName(idx); err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO evidence_log (claim_id, ev_index, value, reporter, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		claimID, idx, value, nullIfEmpty(reporter), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("add evidence (claim %d, index %d): %w", claimID, idx, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("add evidence (claim %d, index %d): %w", claimID, idx, err)
	}
	return id, nil
}

// ListEvidenceForClaim returns the claim's evidence pieces in arrival order.
func (s *Store) ListEvidenceForClaim(ctx context.Context, claimID int64) ([]claims.EvidencePiece, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, claim_id, ev_index, value, reporter, created_at
		 FROM evidence_log WHERE claim_id = ? ORDER BY id`, claimID)
	if err != nil {
		return nil, fmt.Errorf("list evidence for claim %d: %w", claimID, err)
	}
	defer rows.Close()

	var out []claims.EvidencePiece
	for rows.Next() {
		var p claims.EvidencePiece
		var reporter sql.NullString
		var createdStr string
		if err := rows.Scan(&p.ID, &p.ClaimID, &p.Index, &p.Value, &reporter, &createdStr); err != nil {
			return nil, fmt.Errorf("scan evidence: %w", err)
		}
		if reporter.Valid {
			p.Reporter = reporter.String
		}
		p.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		out = append(out, p)
	}
	return out, rows.Err()
}

// #endregion evidence-store

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
