package mailbox

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifyText(t *testing.T) {
	tests := []struct {
		name string
		err  string
		want Kind
	}{
		{"bad credentials", "LOGIN failed: Invalid credentials", KindAuthentication},
		{"app password", "application-specific password required", KindAuthentication},
		{"lookup failed", "lookup failed for user", KindAuthentication},
		{"folder missing", "SELECT failed: no such folder", KindFolderAccess},
		{"mailbox unavailable", "Mailbox doesn't exist", KindFolderAccess},
		{"dial refused", "dial tcp 1.2.3.4:993: connection refused", KindConnection},
		{"timeout", "read timeout", KindConnection},
		{"tls failure", "tls: handshake failure", KindConnection},
		{"search failed", "SEARCH command failed", KindSearch},
		{"unclassified", "something odd happened", KindMatching},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyText(errors.New(tt.err), KindMatching)
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	plain := errors.New("whatever")
	if got := KindOf(plain); got != KindMatching {
		t.Errorf("unclassified error: got %s, want %s", got, KindMatching)
	}

	wrapped := wrapKind("login", errors.New("bad password"), KindAuthentication)
	if got := KindOf(wrapped); got != KindAuthentication {
		t.Errorf("wrapped error: got %s, want %s", got, KindAuthentication)
	}

	// Classified errors survive another layer of fmt wrapping.
	outer := fmt.Errorf("while connecting: %w", wrapped)
	if got := KindOf(outer); got != KindAuthentication {
		t.Errorf("fmt-wrapped error: got %s, want %s", got, KindAuthentication)
	}
}

func TestWrapErrPassesThroughClassified(t *testing.T) {
	inner := wrapKind("select", errors.New("no such folder"), KindFolderAccess)
	outer := wrapErr("search", inner, KindSearch)

	if outer != inner {
		t.Error("already-classified error should pass through unchanged")
	}
}

func TestWrapErrNil(t *testing.T) {
	if wrapErr("op", nil, KindSearch) != nil {
		t.Error("nil error must stay nil")
	}
	if wrapKind("op", nil, KindSearch) != nil {
		t.Error("nil error must stay nil")
	}
}

func TestErrorString(t *testing.T) {
	err := &Error{Kind: KindSearch, Op: "search inbox", Err: errors.New("boom")}
	want := "search_failed: search inbox: boom"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}

	bare := &Error{Kind: KindSearch, Err: errors.New("boom")}
	if bare.Error() != "search_failed: boom" {
		t.Errorf("got %q", bare.Error())
	}
}
