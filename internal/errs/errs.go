// Package errs defines the error taxonomy shared across the fetch and
// recommendation pipeline. Every user-facing failure maps to exactly one
// Kind, and every Kind maps to a fixed process exit code.
package errs

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	// KindAuth means a credential is missing or was rejected. Never retried.
	KindAuth Kind = "auth"
	// KindNetwork means retries were exhausted or the connection failed.
	KindNetwork Kind = "network"
	// KindMalformed means the provider returned a 2xx whose body did not
	// match the expected schema.
	KindMalformed Kind = "malformed"
	// KindNoModels means the post-filter catalog was empty.
	KindNoModels Kind = "no_models"
	// KindAllFailed means every configured source failed.
	KindAllFailed Kind = "all_failed"
)

// Exit codes per Kind. 1 is reserved for unclassified failures.
const (
	ExitSuccess   = 0
	ExitAuth      = 2
	ExitNetwork   = 3
	ExitNoModels  = 4
	ExitAllFailed = 5
)

// Error is a classified pipeline error with an optional remediation hint.
type Error struct {
	Kind   Kind
	Source string // source name, empty for cross-source errors
	Msg    string
	Hint   string // actionable recovery hint, printed after the message
	Err    error  // wrapped cause
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Source != "" {
		b.WriteString(e.Source)
		b.WriteString(": ")
	}
	b.WriteString(e.Msg)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match on a bare &Error{Kind: ...} sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Source == "" || t.Source == e.Source)
}

// ExitCode returns the process exit code for this error.
func (e *Error) ExitCode() int {
	switch e.Kind {
	case KindAuth:
		return ExitAuth
	case KindNetwork, KindMalformed:
		return ExitNetwork
	case KindNoModels:
		return ExitNoModels
	case KindAllFailed:
		return ExitAllFailed
	default:
		return 1
	}
}

// Auth builds a credential error for a source.
func Auth(source, msg, hint string) *Error {
	return &Error{Kind: KindAuth, Source: source, Msg: msg, Hint: hint}
}

// Network builds a network error wrapping the final attempt's failure.
func Network(source, msg string, err error) *Error {
	return &Error{Kind: KindNetwork, Source: source, Msg: msg, Err: err,
		Hint: "check your network connection and try again"}
}

// Malformed builds a schema-mismatch error for an otherwise-successful response.
func Malformed(source, msg string, err error) *Error {
	return &Error{Kind: KindMalformed, Source: source, Msg: msg, Err: err}
}

// NoModels builds the empty-catalog error.
func NoModels(msg, hint string) *Error {
	return &Error{Kind: KindNoModels, Msg: msg, Hint: hint}
}

// AllFailed synthesizes the error raised when every configured source failed.
// With a single source the underlying error is returned unchanged so its own
// kind and hint survive.
func AllFailed(failures map[string]error) error {
	if len(failures) == 1 {
		for _, err := range failures {
			return err
		}
	}
	sources := make([]string, 0, len(failures))
	for source := range failures {
		sources = append(sources, source)
	}
	sort.Strings(sources)
	parts := make([]string, 0, len(sources))
	for _, source := range sources {
		parts = append(parts, fmt.Sprintf("%s (%v)", source, failures[source]))
	}
	return &Error{
		Kind: KindAllFailed,
		Msg:  "all sources failed: " + strings.Join(parts, "; "),
		Hint: "verify credentials and network access for at least one source",
	}
}

// KindOf returns the Kind of err, or empty when err carries no taxonomy.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// ExitCodeFor maps any error to its exit code.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var e *Error
	if errors.As(err, &e) {
		return e.ExitCode()
	}
	return 1
}
