// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

// Package jmend implements a fault-tolerant JSON scanner and parser toolkit.
//
// The scanner accepts a deliberately lenient superset of JSON: single-quoted
// strings, unquoted names, bare "." number forms, and stray characters all
// scan without error, each classified into a token for the parsers to judge.
// The parsers divide the work: the strict tree parser (package ast) rejects
// the first structural violation, while the recovering parser (package
// repair) applies configurable local repairs and catalogues every deviation
// it finds. Package decode chooses between buffered and streaming parse
// paths and is the entry point intended for most callers.
//
// # Scanning
//
// The Scanner type implements a lexical scanner. Construct a scanner from an
// io.Reader and call its Next method to iterate over the stream:
//
//	s := jmend.NewScanner(input)
//	for s.Next() {
//	   log.Printf("Next token: %v", s.Token())
//	}
//	if s.Err() != io.EOF {
//	   log.Fatalf("Scanning failed: %v", s.Err())
//	}
//
// To tokenize a complete in-memory document, use Tokenize, which returns the
// full token sequence terminated by a single EOF token.
//
// # Streaming
//
// The Stream type implements an event-driven incremental parser. The parser
// works by calling methods on a Handler value to report the structure of the
// input as it is consumed; the whole input is never buffered. In case of
// error, parsing is terminated and an error of concrete type *SyntaxError
// (grammar violation) or *SecurityError (resource limit) is returned:
//
//	st := jmend.NewStream(input)
//	st.SetLimiter(jmend.NewLimiter(nil))
//	if err := st.Parse(handler); err != nil {
//	   log.Fatalf("Parse failed: %v", err)
//	}
//
// # Resource limits
//
// Every parse path is bounded by a Limits policy enforced through a Limiter.
// Limits are checked incrementally, per token and per structure boundary, so
// runaway input is rejected before it is materialized. A Limiter is scoped
// to one parse call and must not be shared across concurrent calls; distinct
// calls with distinct limiters need no locking.
package jmend
