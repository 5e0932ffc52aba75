package errors

import (
	stderrors "errors"
	"testing"
)

func TestNewFormatsMessage(t *testing.T) {
	err := New(ValidationError, "path %q escapes workspace root", "/etc/passwd")
	if err.Kind != ValidationError {
		t.Errorf("expected Kind ValidationError, got %v", err.Kind)
	}
	want := `validation_error: path "/etc/passwd" escapes workspace root`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestWrapUnwrapsUnderlying(t *testing.T) {
	underlying := stderrors.New("permission denied")
	err := Wrap(Internal, underlying, "reading config")

	if !stderrors.Is(err, underlying) {
		t.Errorf("expected wrapped error to unwrap to underlying")
	}
	want := "internal: reading config: permission denied"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestWithDetailAndWithDetails(t *testing.T) {
	err := New(Conflict, "multiple matches").
		WithDetail("lines", []int{2, 7})

	if err.Details["lines"].([]int)[0] != 2 {
		t.Errorf("expected detail to round-trip")
	}

	err.WithDetails(map[string]any{"count": 3})
	if err.Details["count"] != 3 {
		t.Errorf("WithDetails should replace the details map")
	}
	if _, ok := err.Details["lines"]; ok {
		t.Errorf("WithDetails should replace, not merge, prior details")
	}
}

func TestIsMatchesKindOnly(t *testing.T) {
	err := New(NoMatch, "old_str not found")
	if !Is(err, NoMatch) {
		t.Errorf("expected Is to match NoMatch")
	}
	if Is(err, Conflict) {
		t.Errorf("expected Is to reject a different kind")
	}
	if Is(stderrors.New("plain error"), NoMatch) {
		t.Errorf("expected Is to reject a non-*Error")
	}
}

func TestKindOfDefaultsToInternalForForeignErrors(t *testing.T) {
	if KindOf(stderrors.New("boom")) != Internal {
		t.Errorf("expected KindOf to default to Internal for a foreign error")
	}
	if KindOf(nil) != "" {
		t.Errorf("expected KindOf(nil) to return the empty Kind")
	}
	if KindOf(New(Timeout, "slow")) != Timeout {
		t.Errorf("expected KindOf to recover the original Kind")
	}
}
