// Package gateway is a JSON-over-HTTP client for a remote ledger gateway.
// It implements the same parameter, claim, and evidence store surface as the
// embedded ledger, so the oracle can run against either.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/medclaims/bn-oracle/go-oracle/internal/claims"
)

// #region payloads
type valuePayload struct {
	Value int64 `json:"value"`
}

type openClaimRequest struct {
	ExternalKey string `json:"external_key"`
}

type openClaimResponse struct {
	ClaimID int64 `json:"claim_id"`
}

type claimPayload struct {
	ClaimID      int64  `json:"claim_id"`
	ExternalKey  string `json:"external_key"`
	OpenedAt     string `json:"opened_at"`
	UpdatedAt    string `json:"updated_at"`
	PosteriorPPH int64  `json:"posterior_pph"`
	PosteriorPPR int64  `json:"posterior_ppr"`
	Closed       bool   `json:"closed"`
}

type submitRequest struct {
	ScaledPPH int64 `json:"scaled_pph"`
	ScaledPPR int64 `json:"scaled_ppr"`
}

type receiptPayload struct {
	TxID        string `json:"tx_id"`
	ClaimID     int64  `json:"claim_id"`
	SubmittedAt string `json:"submitted_at"`
}

type evidenceRequest struct {
	Index    int    `json:"index"`
	Value    int    `json:"value"`
	Reporter string `json:"reporter,omitempty"`
}

type evidenceResponse struct {
	ID int64 `json:"id"`
}

type evidencePiecePayload struct {
	ID        int64  `json:"id"`
	ClaimID   int64  `json:"claim_id"`
	Index     int    `json:"index"`
	Value     int    `json:"value"`
	Reporter  string `json:"reporter,omitempty"`
	CreatedAt string `json:"created_at"`
}

type evidenceListResponse struct {
	Pieces []evidencePiecePayload `json:"pieces"`
}

// #endregion payloads

// #region client-struct
// Client talks to the ledger gateway over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// #endregion client-struct

// #region constructor
// NewClient creates a gateway client with a default timeout.
func NewClient(baseURL string) *Client {
	return NewClientWithHTTP(baseURL, &http.Client{Timeout: 30 * time.Second})
}

// NewClientWithHTTP creates a Client with an injected http.Client.
// Used for testing against httptest servers.
func NewClientWithHTTP(baseURL string, hc *http.Client) *Client {
	return &Client{baseURL: baseURL, http: hc}
}

// #endregion constructor

// #region parameter-store
// GetPrior reads a scaled prior value from the gateway.
func (c *Client) GetPrior(ctx context.Context, name string) (int64, error) {
	var out valuePayload
	if err := c.getJSON(ctx, fmt.Sprintf("/params/priors/%s", name), &out); err != nil {
		return 0, err
	}
	return out.Value, nil
}

// GetCPTCell reads one scaled CPT cell from the gateway.
func (c *Client) GetCPTCell(ctx context.Context, idx, pph, ppr int) (int64, error) {
	var out valuePayload
	if err := c.getJSON(ctx, fmt.Sprintf("/params/cpt/%d/%d/%d", idx, pph, ppr), &out); err != nil {
		return 0, err
	}
	return out.Value, nil
}

// #endregion parameter-store

// #region claim-store
// OpenClaim opens a claim under the given external key.
func (c *Client) OpenClaim(ctx context.Context, externalKey string) (int64, error) {
	var out openClaimResponse
	if err := c.postJSON(ctx, "/claims", openClaimRequest{ExternalKey: externalKey}, &out); err != nil {
		return 0, err
	}
	return out.ClaimID, nil
}

// GetClaim reads a claim record.
func (c *Client) GetClaim(ctx context.Context, claimID int64) (claims.Claim, error) {
	var out claimPayload
	if err := c.getJSON(ctx, fmt.Sprintf("/claims/%d", claimID), &out); err != nil {
		return claims.Claim{}, err
	}
	cl := claims.Claim{
		ID:           out.ClaimID,
		ExternalKey:  out.ExternalKey,
		PosteriorPPH: out.PosteriorPPH,
		PosteriorPPR: out.PosteriorPPR,
		Closed:       out.Closed,
	}
	cl.OpenedAt, _ = time.Parse(time.RFC3339Nano, out.OpenedAt)
	cl.UpdatedAt, _ = time.Parse(time.RFC3339Nano, out.UpdatedAt)
	return cl, nil
}

// SubmitPosterior commits a scaled posterior pair for a claim.
func (c *Client) SubmitPosterior(ctx context.Context, claimID, scaledPPH, scaledPPR int64) (claims.TxReceipt, error) {
	var out receiptPayload
	err := c.postJSON(ctx, fmt.Sprintf("/claims/%d/posterior", claimID),
		submitRequest{ScaledPPH: scaledPPH, ScaledPPR: scaledPPR}, &out)
	if err != nil {
		return claims.TxReceipt{}, err
	}
	receipt := claims.TxReceipt{TxID: out.TxID, ClaimID: out.ClaimID}
	receipt.SubmittedAt, _ = time.Parse(time.RFC3339Nano, out.SubmittedAt)
	return receipt, nil
}

// #endregion claim-store

// #region evidence-store
// AddEvidence appends an evidence piece to a claim.
func (c *Client) AddEvidence(ctx context.Context, claimID int64, idx, value int, reporter string) (int64, error) {
	var out evidenceResponse
	err := c.postJSON(ctx, fmt.Sprintf("/claims/%d/evidence", claimID),
		evidenceRequest{Index: idx, Value: value, Reporter: reporter}, &out)
	if err != nil {
		return 0, err
	}
	return out.ID, nil
}

// ListEvidenceForClaim returns the claim's evidence pieces in arrival order.
func (c *Client) ListEvidenceForClaim(ctx context.Context, claimID int64) ([]claims.EvidencePiece, error) {
	var out evidenceListResponse
	if err := c.getJSON(ctx, fmt.Sprintf("/claims/%d/evidence", claimID), &out); err != nil {
		return nil, err
	}
	pieces := make([]claims.EvidencePiece, 0, len(out.Pieces))
	for _, p := range out.Pieces {
		piece := claims.EvidencePiece{
			ID:       p.ID,
			ClaimID:  p.ClaimID,
			Index:    p.Index,
			Value:    p.Value,
			Reporter: p.Reporter,
		}
		piece.CreatedAt, _ = time.Parse(time.RFC3339Nano, p.CreatedAt)
		pieces = append(pieces, piece)
	}
	return pieces, nil
}

// #endregion evidence-store

// #region http-helpers
func (c *Client) getJSON(ctx context.Context, path string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	return c.do(req, target)
}

func (c *Client) postJSON(ctx context.Context, path string, body, target interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request %s: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, target)
}

func (c *Client) do(req *http.Request, target interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gateway %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gateway %s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, bytes.TrimSpace(body))
	}
	if target == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode response %s: %w", req.URL.Path, err)
	}
	return nil
}

// #endregion http-helpers
