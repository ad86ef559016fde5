package mailbox

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the closed set of failure categories surfaced to callers.
// Callers map these to user-facing advice (e.g. "check your app password")
// instead of re-parsing error text at every call site.
type Kind string

const (
	KindAuthentication Kind = "authentication_failed"
	KindFolderAccess   Kind = "folder_access_denied"
	KindConnection     Kind = "connection_error"
	KindSearch         Kind = "search_failed"
	KindMatching       Kind = "matching_failed"
)

// Error wraps a transport error with its classified kind.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the classified kind of err, or KindMatching for anything
// that was never classified at the transport boundary.
func KindOf(err error) Kind {
	var me *Error
	if errors.As(err, &me) {
		return me.Kind
	}
	return KindMatching
}

// Substring rules mirror the provider error strings seen in practice. The
// matching happens once here; everything downstream switches on Kind.
var kindPatterns = []struct {
	kind     Kind
	patterns []string
}{
	{KindAuthentication, []string{"authent", "credential", "login", "password", "lookup failed", "invalid user"}},
	{KindFolderAccess, []string{"select", "mailbox", "no such folder", "folder", "access denied", "noselect"}},
	{KindConnection, []string{"dial", "connection", "network", "timeout", "broken pipe", "unexpected eof", "tls"}},
	{KindSearch, []string{"search"}},
}

func classifyText(err error, fallback Kind) Kind {
	msg := strings.ToLower(err.Error())
	for _, entry := range kindPatterns {
		for _, p := range entry.patterns {
			if strings.Contains(msg, p) {
				return entry.kind
			}
		}
	}
	return fallback
}

// wrapErr classifies err by its text, preferring fallback when the text
// matches nothing. Already-classified errors pass through untouched.
func wrapErr(op string, err error, fallback Kind) error {
	if err == nil {
		return nil
	}
	var me *Error
	if errors.As(err, &me) {
		return err
	}
	return &Error{Kind: classifyText(err, fallback), Op: op, Err: err}
}

// wrapKind forces a specific kind regardless of error text.
func wrapKind(op string, err error, kind Kind) error {
	if err == nil {
		return nil
	}
	var me *Error
	if errors.As(err, &me) {
		return err
	}
	return &Error{Kind: kind, Op: op, Err: err}
}
