// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package jmend

import "fmt"

// SyntaxError is the concrete type of structural errors reported by the
// strict parsers: a grammar violation the parser refuses to tolerate.
type SyntaxError struct {
	Location   LineCol
	Message    string
	Suggestion string // a human-readable repair suggestion, if known
	Context    string // surrounding source text, if the caller requested it

	err error
}

// Error satisfies the error interface.
func (s *SyntaxError) Error() string {
	msg := fmt.Sprintf("at %s: %s", s.Location, s.Message)
	if s.Suggestion != "" {
		msg += " (" + s.Suggestion + ")"
	}
	return msg
}

// Unwrap supports error wrapping.
func (s *SyntaxError) Unwrap() error { return s.err }

// SecurityError is the concrete type of errors reported when a configured
// resource limit is exceeded. It is disjoint from SyntaxError and is never
// downgraded into a recovery attempt: it signals a resource-protection
// boundary, not a malformed-input accommodation.
type SecurityError struct {
	Check string // the name of the limit that was exceeded
	Value int    // the observed value
	Max   int    // the configured ceiling
}

// Error satisfies the error interface.
func (s *SecurityError) Error() string {
	return fmt.Sprintf("limit exceeded: %s %d > %d", s.Check, s.Value, s.Max)
}
