package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindMatching(t *testing.T) {
	base := New(NotFound, "site %d not found", 7)
	wrapped := fmt.Errorf("suspend: %w", base)

	if !errors.Is(wrapped, NotFound) {
		t.Fatalf("expected wrapped error to match NotFound")
	}
	if errors.Is(wrapped, Forbidden) {
		t.Fatalf("NotFound must not match Forbidden")
	}
	if KindOf(wrapped) != NotFound {
		t.Fatalf("KindOf = %v", KindOf(wrapped))
	}
	if Message(wrapped) != "site 7 not found" {
		t.Fatalf("Message = %q", Message(wrapped))
	}
}

func TestUnclassifiedIsInternal(t *testing.T) {
	err := errors.New("boom")
	if KindOf(err) != Internal {
		t.Fatalf("expected Internal")
	}
	if Status(KindOf(err)) != http.StatusInternalServerError {
		t.Fatalf("expected 500")
	}
	if Message(err) == "boom" {
		t.Fatalf("internal causes must not leak")
	}
}

func TestStatusMapping(t *testing.T) {
	cases := map[Kind]int{
		NotFound:        http.StatusNotFound,
		InvalidArgument: http.StatusBadRequest,
		Forbidden:       http.StatusForbidden,
		Conflict:        http.StatusConflict,
		Unavailable:     http.StatusServiceUnavailable,
	}
	for k, want := range cases {
		if got := Status(k); got != want {
			t.Errorf("Status(%s) = %d, want %d", k, got, want)
		}
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("duplicate key")
	err := Wrap(Conflict, cause, "appeal already exists")
	if !errors.Is(err, cause) {
		t.Fatalf("cause lost")
	}
	if !errors.Is(err, Conflict) {
		t.Fatalf("kind lost")
	}
}
