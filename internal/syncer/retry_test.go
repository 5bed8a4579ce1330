package syncer

import (
	"context"
	"errors"
	"testing"

	"github.com/medclaims/bn-oracle/go-oracle/internal/infer"
)

func TestShouldRetryOnlyInfrastructureErrors(t *testing.T) {
	p := DefaultRetryPolicy()

	if p.ShouldRetry(nil, 1) {
		t.Fatal("nil error should not retry")
	}
	if !p.ShouldRetry(&CommitVerificationError{ClaimID: 1}, 1) {
		t.Fatal("verification mismatch should retry")
	}
	if !p.ShouldRetry(&ExternalStoreError{Op: "submit", Err: errors.New("down")}, 1) {
		t.Fatal("store failure should retry")
	}
	if p.ShouldRetry(&infer.UnknownVariableError{Name: "XYZ"}, 1) {
		t.Fatal("data error retries can never succeed")
	}
	if p.ShouldRetry(&CommitVerificationError{}, p.MaxRetries+1) {
		t.Fatal("budget exhausted, should stop")
	}
}

func TestRunRetriesUntilSuccess(t *testing.T) {
	p := RetryPolicy{MaxRetries: 2}

	calls := 0
	err := p.Run(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return &CommitVerificationError{ClaimID: 1}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestRunReturnsLastErrorWhenExhausted(t *testing.T) {
	p := RetryPolicy{MaxRetries: 1}

	calls := 0
	err := p.Run(context.Background(), func(context.Context) error {
		calls++
		return &ExternalStoreError{Op: "submit", Err: errors.New("still down")}
	})
	var se *ExternalStoreError
	if !errors.As(err, &se) {
		t.Fatalf("expected last ExternalStoreError, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2 (1 attempt + 1 retry)", calls)
	}
}

func TestRunStopsImmediatelyOnDataError(t *testing.T) {
	p := DefaultRetryPolicy()

	calls := 0
	err := p.Run(context.Background(), func(context.Context) error {
		calls++
		return &infer.UnknownVariableError{Name: "XYZ"}
	})
	var ue *infer.UnknownVariableError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UnknownVariableError, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}
