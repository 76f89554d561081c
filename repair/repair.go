// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

// Package repair implements an error-recovering JSON parser. It consumes the
// same token grammar as the strict parser in package ast, but instead of
// failing on the first structural violation it applies local repairs
// according to a configured recovery level, records a diagnostic for every
// deviation it finds, and returns the most complete value tree it can build.
package repair

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/creachadair/jmend"
	"github.com/creachadair/jmend/ast"
)

// A Level selects how much repair the parser may attempt. Levels are ordered
// from least to most lenient; each level includes the behavior of the levels
// before it.
type Level int

const (
	// Strict performs no repairs: the first structural violation is recorded
	// as a diagnostic and parsing of the enclosing structure stops. Only the
	// leniencies of the strict grammar itself apply.
	Strict Level = iota

	// SkipFields additionally drops a broken object member or array element,
	// resuming at the next comma or closing bracket and keeping the siblings
	// already built.
	SkipFields

	// BestEffort additionally attempts targeted local repairs: an unquoted
	// word becomes a string value, a trailing comma is accepted with a
	// warning, a missing colon is inferred when a plausible value follows
	// the key, and an unterminated string is closed with what was read.
	BestEffort

	// ExtractAll additionally substitutes null for array elements that still
	// fail after all repairs, so arrays never shrink because of errors.
	ExtractAll
)

var levelStr = [...]string{
	Strict:     "strict",
	SkipFields: "skip_fields",
	BestEffort: "best_effort",
	ExtractAll: "extract_all",
}

func (l Level) String() string {
	if l < 0 || int(l) >= len(levelStr) {
		return "level(" + strconv.Itoa(int(l)) + ")"
	}
	return levelStr[l]
}

// ParseLevel maps a level name, as produced by Level.String, back to its
// Level.
func ParseLevel(s string) (Level, error) {
	for i, name := range levelStr {
		if s == name {
			return Level(i), nil
		}
	}
	return 0, fmt.Errorf("invalid recovery level %q", s)
}

// Severity classifies how serious a diagnostic is.
type Severity int

const (
	Info    Severity = iota // informational note, nothing was lost
	Warning                 // a repair was applied, data was preserved
	Error                   // data was lost or could not be interpreted
)

var severityStr = [...]string{Info: "info", Warning: "warning", Error: "error"}

func (s Severity) String() string {
	if s < 0 || int(s) >= len(severityStr) {
		return "severity(" + strconv.Itoa(int(s)) + ")"
	}
	return severityStr[s]
}

// Diagnostic category tags. Each diagnostic carries exactly one.
const (
	CatMissingQuotes  = "missing_quotes"  // an unquoted word where a string belongs
	CatTrailingComma  = "trailing_comma"  // a comma before a closing bracket
	CatMissingColon   = "missing_colon"   // no colon after an object key
	CatUnclosedString = "unclosed_string" // a string with no closing quote
	CatInvalidValue   = "invalid_value"   // a token that is not a valid value
	CatSyntaxError    = "syntax_error"    // any other grammar violation
	CatFatalError     = "fatal_error"     // an internal fault ended the parse
)

// A Diagnostic describes one deviation from the strict grammar and what, if
// anything, was done about it.
type Diagnostic struct {
	Path              []string      // logical location in the value tree (key or "[index]" segments)
	Pos               jmend.LineCol // source position of the deviation
	Category          string        // one of the Cat* tags
	Message           string        // what was wrong
	Suggestion        string        // how to fix the source text
	Severity          Severity
	RecoveryAttempted bool
	RecoveryAction    string    // what the parser did, when RecoveryAttempted
	Recovered         ast.Value // the value produced by the repair, if any
}

func (d *Diagnostic) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s at %s", d.Severity, d.Pos)
	if len(d.Path) != 0 {
		fmt.Fprintf(&sb, " (%s)", strings.Join(d.Path, "."))
	}
	fmt.Fprintf(&sb, ": %s: %s", d.Category, d.Message)
	if d.Suggestion != "" {
		fmt.Fprintf(&sb, " (%s)", d.Suggestion)
	}
	return sb.String()
}

// An Outcome is the result of one recovering parse call. It is mutated only
// during that call and is immutable once returned.
type Outcome struct {
	Data     ast.Value     // the reconstructed value, best effort
	Errors   []*Diagnostic // diagnostics with severity Error
	Warnings []*Diagnostic // diagnostics with severity Warning or Info

	TotalFields      int // values attempted (object members, array elements, scalar roots)
	SuccessfulFields int // values obtained, original or recovered

	// SuccessRate is SuccessfulFields as a percentage of TotalFields,
	// computed once when the parse completes; 0 when nothing was attempted.
	SuccessRate float64
}

// Diagnostics returns all diagnostics of o, errors first followed by
// warnings, each group in the order it was recorded.
func (o *Outcome) Diagnostics() []*Diagnostic {
	all := make([]*Diagnostic, 0, len(o.Errors)+len(o.Warnings))
	all = append(all, o.Errors...)
	all = append(all, o.Warnings...)
	return all
}

// At resolves a diagnostic path against the reconstructed value, reporting
// the value at that location or false if the path does not exist. Path
// segments use the same vocabulary as Diagnostic.Path: an object key, or an
// array index written "[3]".
func (o *Outcome) At(path []string) (ast.Value, bool) {
	cur := o.Data
	for _, seg := range path {
		switch v := cur.(type) {
		case *ast.Object:
			m := v.Find(seg)
			if m == nil {
				return nil, false
			}
			cur = m.Value
		case *ast.Array:
			if len(seg) < 3 || seg[0] != '[' || seg[len(seg)-1] != ']' {
				return nil, false
			}
			i, err := strconv.Atoi(seg[1 : len(seg)-1])
			if err != nil || i < 0 || i >= v.Len() {
				return nil, false
			}
			cur = v.Values[i]
		default:
			return nil, false
		}
	}
	return cur, cur != nil
}

func (o *Outcome) record(d *Diagnostic) {
	if d.Severity == Error {
		o.Errors = append(o.Errors, d)
	} else {
		o.Warnings = append(o.Warnings, d)
	}
}

// Options control a recovering parse. A nil *Options applies BestEffort
// recovery with default limits.
type Options struct {
	Level  Level
	Limits *jmend.Limits

	// When true, values of duplicated object keys are coalesced into an
	// array under that key in order of appearance.
	CollectDuplicates bool
}

func (o *Options) level() Level {
	if o == nil {
		return BestEffort
	}
	return o.Level
}

func (o *Options) limits() *jmend.Limits {
	if o == nil {
		return nil
	}
	return o.Limits
}

func (o *Options) collect() bool { return o != nil && o.CollectDuplicates }
