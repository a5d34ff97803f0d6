package errors

import (
	"errors"
	"testing"
)

func TestMirrorErrorIs(t *testing.T) {
	a := NewSSRFBlocked("evil.example", nil)
	b := NewSSRFBlocked("other.example", nil)

	if !errors.Is(a, b) {
		t.Fatalf("expected errors of the same kind to match via errors.Is")
	}

	c := NewUpstreamFailure("https://origin.example/x", nil)
	if errors.Is(a, c) {
		t.Fatalf("expected errors of different kinds not to match")
	}
}

func TestMirrorErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	wrapped := NewUpstreamFailure("https://origin.example/x", cause)

	if !errors.Is(wrapped, cause) {
		t.Fatalf("expected Unwrap to expose the cause")
	}
}

func TestCategoryPredicates(t *testing.T) {
	cases := []struct {
		err         *MirrorError
		retryable   bool
		critical    bool
		recoverable bool
	}{
		{NewSSRFBlocked("evil.example", nil), false, true, false},
		{NewUpstreamFailure("url", nil), true, false, false},
		{NewDecodeFailure("url", nil), false, false, true},
		{NewConfig("bad", nil), false, true, false},
		{NewStreamTimeout("producer", nil), true, false, false},
		{NewRewriteError("url", nil), false, false, false},
	}

	for _, tc := range cases {
		if got := IsRetryable(tc.err); got != tc.retryable {
			t.Errorf("%s: IsRetryable = %v, want %v", tc.err.Kind, got, tc.retryable)
		}
		if got := IsCritical(tc.err); got != tc.critical {
			t.Errorf("%s: IsCritical = %v, want %v", tc.err.Kind, got, tc.critical)
		}
		if got := IsRecoverable(tc.err); got != tc.recoverable {
			t.Errorf("%s: IsRecoverable = %v, want %v", tc.err.Kind, got, tc.recoverable)
		}
	}
}

func TestWithDetail(t *testing.T) {
	err := NewRewriteError("https://origin.example/x", nil).WithDetail("prefix", "href=")
	if err.Details["prefix"] != "href=" {
		t.Fatalf("expected detail to be recorded")
	}
}
