// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package jmend

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
)

// An Anchor represents a location in source text. The methods of an Anchor
// report the location, token kind, and contents of the anchor.
type Anchor interface {
	Token() Kind        // Returns the token kind of the anchor
	Text() []byte       // Returns a view of the raw (undecoded) text of the anchor
	Copy() []byte       // Returns a copy of the raw text of the anchor
	Location() Location // Returns the full location of the anchor
}

// A Handler handles events from parsing an input stream. If a method reports
// an error, parsing stops and that error is returned to the caller.
// The parser ensures objects and arrays are correctly balanced.
//
// The Anchor argument to a Handler method is only valid for the duration of
// that method call. If the method needs to retain information about the
// location after it returns, it must copy the relevant data.
type Handler interface {
	// Begin a new object, whose open brace is at loc.
	BeginObject(loc Anchor) error

	// End the most-recently-opened object, whose close brace is at loc.
	EndObject(loc Anchor) error

	// Begin a new array, whose open bracket is at loc.
	BeginArray(loc Anchor) error

	// End the most-recently-opened array, whose close bracket is at loc.
	EndArray(loc Anchor) error

	// Begin a new object member, whose key is at loc. The text of a quoted
	// key is still quoted; the handler is responsible for unescaping key
	// values if the plain string is required (see [Unquote]).
	BeginMember(loc Anchor) error

	// End the current object member giving the location and kind of the
	// token that terminated the member (either Comma or RBrace).
	EndMember(loc Anchor) error

	// Report a data value at the given location. The kind of the value can
	// be recovered from the token. String tokens are quoted. An Ident token
	// is a bare word the grammar could not classify; the handler decides its
	// meaning.
	Value(loc Anchor) error

	// EndOfInput reports the end of the input stream.
	EndOfInput(loc Anchor)
}

// Stream is an incremental parser that consumes input and delivers events to
// a Handler corresponding with the structure of the input. It implements the
// strict grammar: the input is validated as it is read, and the first
// structural violation terminates parsing with a *SyntaxError.
//
// Input is consumed through the scanner's bounded lookahead, so a Stream
// never holds more than the current token in memory; resource limits
// attached with SetLimiter are enforced as each token and each structure
// boundary is produced, not after the fact.
type Stream struct {
	s      *Scanner
	lim    *Limiter
	tcomma bool // allow trailing commas in objects and arrays
}

// NewStream constructs a new Stream that consumes input from r.
func NewStream(r io.Reader) *Stream { return &Stream{s: NewScanner(r)} }

// NewStreamWithScanner constructs a new Stream that consumes input from s.
func NewStreamWithScanner(s *Scanner) *Stream { return &Stream{s: s} }

// SetLimiter attaches lim to the stream and its scanner, enforcing resource
// limits incrementally during parsing. A limit violation terminates parsing
// with the *SecurityError that was reported; it is never converted into a
// syntax error.
func (st *Stream) SetLimiter(lim *Limiter) {
	st.lim = lim
	st.s.SetLimiter(lim)
}

// AllowTrailingCommas configures the parser to allow (true) or reject
// (false) trailing commas in objects and arrays.
func (st *Stream) AllowTrailingCommas(ok bool) { st.tcomma = ok }

func (st *Stream) recoverParseError(errp *error) {
	if serr := recover(); serr != nil {
		switch err := serr.(type) {
		case *SyntaxError:
			*errp = err
		case limitError:
			*errp = err.error
		case handlerError:
			*errp = err.error
		default:
			panic(serr)
		}
	}
}

// Parse parses the input stream and delivers events to h until either an
// error occurs or the input is exhausted. In case of a syntax error, the
// returned error has type [*SyntaxError]; in case of a resource-limit
// violation it has type [*SecurityError].
func (st *Stream) Parse(h Handler) (err error) {
	defer st.recoverParseError(&err)

	for {
		err := st.nextToken()
		if err == io.EOF {
			h.EndOfInput(st.s)
			return nil
		} else if err != nil {
			st.syntaxError(err, "%v", err)
		}

		st.parseElement(h)
	}
}

// ParseOne parses a single value from the input stream and delivers events
// to h until the value is complete or an error occurs. If no further value
// is available from the input, ParseOne returns io.EOF.
func (st *Stream) ParseOne(h Handler) (err error) {
	defer st.recoverParseError(&err)

	if err := st.nextToken(); err == io.EOF {
		h.EndOfInput(st.s)
		return err
	} else if err != nil {
		st.syntaxError(err, "%v", err)
	}
	st.parseElement(h)
	return nil
}

// parseElement consumes a single value of any type.
// Precondition: token != Invalid.
func (st *Stream) parseElement(h Handler) {
	st.countItem()
	switch tok := st.s.Token(); tok {
	case LBrace:
		st.enterStructure()
		st.checkError(h.BeginObject(st.s))
		st.parseMembers(h)
		st.require(RBrace)
		st.checkError(h.EndObject(st.s))
		st.exitStructure()
	case LSquare:
		st.enterStructure()
		st.checkError(h.BeginArray(st.s))
		st.parseElements(h)
		st.require(RSquare)
		st.checkError(h.EndArray(st.s))
		st.exitStructure()
	case Integer, Number, String, True, False, Null, Ident:
		st.checkError(h.Value(st.s))
	case RBrace, RSquare, Comma, Colon:
		st.syntaxError(nil, "unexpected %v", tok)
	default:
		st.syntaxError(nil, "unknown token %v", tok)
	}
}

// parseMembers consumes zero or more key:value object members.
// Precondition: token == LBrace.
// Postcondition: token == RBrace.
func (st *Stream) parseMembers(h Handler) {
	tok := st.advance(RBrace, String, Ident, True, False, Null)
	if tok == RBrace {
		return // end of object
	}
	var n int
	for {
		// Parse a single member: "key": value
		n++
		st.checkObjectKeys(n)
		st.checkError(h.BeginMember(st.s))
		st.advance(Colon)
		st.advance()
		st.parseElement(h)

		// Check whether we have more members (",") or are done ("}").
		tok := st.advance(RBrace, Comma)
		st.checkError(h.EndMember(st.s))
		if tok == RBrace {
			return // end of object
		} else if st.tcomma {
			// If trailing commas are allowed and the next token is a close
			// bracket, consider this a valid end of the object. Otherwise,
			// it must be a key for a subsequent member.
			next := st.advance(String, Ident, True, False, Null, RBrace)
			if next == RBrace {
				return // end of object with trailing comma
			}
		} else {
			st.advance(String, Ident, True, False, Null) // advance to next key
		}
	}
}

// parseElements consumes zero or more comma-separated array values.
// Precondition: token == LSquare.
// Postcondition: token == RSquare.
func (st *Stream) parseElements(h Handler) {
	if tok := st.advance(); tok == RSquare {
		return // end of array
	}
	n := 1
	st.checkArrayItems(n)
	st.parseElement(h)
	for {
		tok := st.advance(RSquare, Comma)
		if tok == RSquare {
			return // end of array
		}

		// If trailing commas are allowed and the next token is a close
		// bracket, consider this a valid end of the array; otherwise it will
		// fail on the next element.
		if next := st.advance(); st.tcomma && next == RSquare {
			return // end of array with trailing comma
		}
		n++
		st.checkArrayItems(n)
		st.parseElement(h)
	}
}

func (st *Stream) nextToken() error {
	for st.s.Next() {
		if st.s.Token() == Newline {
			continue // line breaks carry no structure
		}
		return nil
	}
	err := cmp.Or(st.s.Err(), io.EOF)
	var sec *SecurityError
	if errors.As(err, &sec) {
		panic(limitError{err})
	}
	return err
}

func (st *Stream) advance(tokens ...Kind) Kind {
	if err := st.nextToken(); err != nil {
		st.syntaxError(err, "%v", tokLabel(tokens, err))
	}
	tok := st.s.Token()
	if len(tokens) != 0 && !slices.Contains(tokens, tok) {
		st.syntaxError(nil, "%v", tokLabel(tokens, tok))
	}
	return tok
}

func (st *Stream) require(token Kind) {
	if tok := st.s.Token(); tok != token {
		st.syntaxError(nil, "expected %v, got %v", token, tok)
	}
}

func (st *Stream) enterStructure() {
	if st.lim == nil {
		return
	}
	if err := st.lim.EnterStructure(); err != nil {
		panic(limitError{err})
	}
}

func (st *Stream) exitStructure() {
	if st.lim != nil {
		st.lim.ExitStructure()
	}
}

func (st *Stream) countItem() {
	if st.lim == nil {
		return
	}
	if err := st.lim.CountItem(); err != nil {
		panic(limitError{err})
	}
}

func (st *Stream) checkObjectKeys(n int) {
	if st.lim == nil {
		return
	}
	if err := st.lim.CheckObjectKeys(n); err != nil {
		panic(limitError{err})
	}
}

func (st *Stream) checkArrayItems(n int) {
	if st.lim == nil {
		return
	}
	if err := st.lim.CheckArrayItems(n); err != nil {
		panic(limitError{err})
	}
}

func (st *Stream) syntaxError(err error, msg string, args ...any) {
	panic(&SyntaxError{
		Location: st.s.Location().First,
		Message:  fmt.Sprintf(msg, args...),
		err:      err,
	})
}

func (st *Stream) checkError(err error) {
	if err != nil {
		var sec *SecurityError
		if errors.As(err, &sec) {
			panic(limitError{err})
		}
		panic(handlerError{err})
	}
}

type handlerError struct{ error }

func (h handlerError) Unwrap() error { return h.error }

type limitError struct{ error }

func (l limitError) Unwrap() error { return l.error }

// tokLabel makes a human-readable summary string for the given token kinds.
func tokLabel(tokens []Kind, got any) string {
	if len(tokens) == 0 {
		return fmt.Sprint(got)
	}
	var exp string
	if len(tokens) == 1 {
		exp = tokens[0].String()
	} else {
		last := len(tokens) - 1
		ss := make([]string, len(tokens)-1)
		for i, tok := range tokens[:last] {
			ss[i] = tok.String()
		}
		exp = strings.Join(ss, ", ") + " or " + tokens[last].String()
	}
	return fmt.Sprintf("expected %s, got %v", exp, got)
}
