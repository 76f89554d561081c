// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package jmend

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"unicode"
)

// A Scanner reads lexical tokens from an input stream. Each call to Next
// advances the scanner to the next token, or reports an error.
//
// The grammar is deliberately lenient: strings may use single or double
// quotation marks, an unterminated string is reported as a string token
// ending at the input, numbers tolerate bare "." forms, unquoted names are
// reported as identifier tokens, and characters that cannot begin any token
// are silently skipped. Classifying and rejecting such input is the parsers'
// concern, not the scanner's.
//
// The scanner does not retain consumed input: lookahead is bounded by the
// underlying bufio.Reader, so arbitrarily large documents can be scanned in
// constant memory apart from the current token.
type Scanner struct {
	r   *bufio.Reader
	lim *Limiter     // optional, checked as each token grows
	buf bytes.Buffer // current token
	tok Kind
	err error

	pos, end int // start and end offsets of current token
	last     int // size in bytes of last-read input rune

	// Line and column positions (1-based).
	pline, pcol int // start of current token
	eline, ecol int // current input position
	lline, lcol int // position before the last-read rune, for unrune
}

// NewScanner constructs a new lexical scanner that consumes input from r.
func NewScanner(r io.Reader) *Scanner {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Scanner{r: br, eline: 1, ecol: 1}
}

// SetLimiter attaches a limiter whose string, number, and input-size limits
// are enforced incrementally as each token is scanned. This matters for
// streaming input: a pathological single token (for example an unbounded
// string) is rejected before it is fully buffered.
func (s *Scanner) SetLimiter(lim *Limiter) { s.lim = lim }

// Next advances s to the next token of the input and reports true, or
// reports false when no further tokens are available. When Next reports
// false, Err reports io.EOF at a clean end of input, or the error that
// terminated scanning.
func (s *Scanner) Next() bool {
	if s.err != nil {
		return false
	}
	s.buf.Reset()
	s.tok = Invalid

	for {
		s.pos, s.pline, s.pcol = s.end, s.eline, s.ecol
		ch, err := s.rune()
		if err == io.EOF {
			s.err = err
			return false
		} else if err != nil {
			return s.fail(err)
		}

		if ch == '\n' {
			s.buf.WriteByte('\n')
			s.tok = Newline
			return true
		}
		if isSpace(ch) {
			continue // discard whitespace
		}
		if t, ok := selfDelim(ch); ok {
			s.buf.WriteRune(ch)
			s.tok = t
			return true
		}
		if isNumStart(ch) {
			return s.scanNumber(ch)
		}
		if ch == '"' || ch == '\'' {
			return s.scanString(ch)
		}
		if isIdentRune(ch) || ch == '\\' {
			return s.scanIdent(ch)
		}

		// Anything else cannot begin a token. Skip it: stray characters are
		// diagnosed, if at all, by the recovering parser.
	}
}

// Token returns the kind of the current token.
func (s *Scanner) Token() Kind { return s.tok }

// Err returns the last error reported by Next.
func (s *Scanner) Err() error { return s.err }

// Text returns the undecoded text of the current token. The return value is
// only valid until the next call of Next. The caller must copy the contents
// of the returned slice if it is needed beyond that.
func (s *Scanner) Text() []byte { return s.buf.Bytes() }

// Copy returns a copy of the undecoded text of the current token.
func (s *Scanner) Copy() []byte { return append([]byte(nil), s.buf.Bytes()...) }

// Span returns the location span of the current token.
func (s *Scanner) Span() Span { return Span{Pos: s.pos, End: s.end} }

// Location returns the complete location of the current token.
func (s *Scanner) Location() Location {
	return Location{
		Span:  s.Span(),
		First: LineCol{Line: s.pline, Column: s.pcol},
		Last:  LineCol{Line: s.eline, Column: s.ecol},
	}
}

func (s *Scanner) scanString(open rune) bool {
	s.buf.WriteRune(open)
	s.tok = String
	var esc bool
	for {
		ch, err := s.rune()
		if err == io.EOF {
			// Unterminated string: report what was read. The strict parser
			// rejects the token, the recovering parser may close it.
			return true
		} else if err != nil {
			return s.fail(err)
		}
		s.buf.WriteRune(ch)
		if err := s.checkToken(s.lim.CheckStringLength); err != nil {
			return s.fail(err)
		}
		if esc {
			esc = false
		} else if ch == '\\' {
			esc = true
		} else if ch == open {
			return true
		}
	}
}

func (s *Scanner) scanNumber(first rune) bool {
	isFloat := first == '.'
	s.buf.WriteRune(first)

	if first == '-' {
		ch, err := s.rune()
		if err == io.EOF {
			s.tok = Ident // a bare "-" at the end of input
			return true
		} else if err != nil {
			return s.fail(err)
		}
		if isDigit(ch) {
			s.buf.WriteRune(ch)
		} else if ch == '.' {
			isFloat = true
			s.buf.WriteRune(ch)
		} else if isIdentRune(ch) {
			return s.scanIdent(ch) // -Infinity, -NaN, and other bare words
		} else {
			s.unrune()
			s.tok = Ident
			return true
		}
	}

	// Integer digits, or fraction digits if the token began with ".".
	_, ch, err := s.readWhile(isDigit)
	if err == io.EOF {
		return s.finishNumber(isFloat)
	} else if err != nil {
		return s.fail(err)
	}

	// Fraction.
	if ch == '.' && !isFloat {
		isFloat = true
		s.buf.WriteRune(ch)
		_, ch, err = s.readWhile(isDigit)
		if err == io.EOF {
			return s.finishNumber(isFloat)
		} else if err != nil {
			return s.fail(err)
		}
	}

	// Exponent. Missing exponent digits are tolerated here; the parsers
	// reject the token when they interpret its text.
	if ch == 'e' || ch == 'E' {
		isFloat = true
		s.buf.WriteRune(ch)
		ch, err = s.rune()
		if err == io.EOF {
			return s.finishNumber(isFloat)
		} else if err != nil {
			return s.fail(err)
		}
		if ch == '+' || ch == '-' || isDigit(ch) {
			s.buf.WriteRune(ch)
			_, _, err = s.readWhile(isDigit)
			if err == io.EOF {
				return s.finishNumber(isFloat)
			} else if err != nil {
				return s.fail(err)
			}
		}
	}
	s.unrune()
	return s.finishNumber(isFloat)
}

func (s *Scanner) finishNumber(isFloat bool) bool {
	if isFloat {
		s.tok = Number
	} else {
		s.tok = Integer
	}
	if err := s.checkToken(s.lim.CheckNumberLength); err != nil {
		return s.fail(err)
	}
	return true
}

func (s *Scanner) scanIdent(first rune) bool {
	s.buf.WriteRune(first)
	for {
		ch, err := s.rune()
		if err == io.EOF {
			return s.classifyIdent()
		} else if err != nil {
			return s.fail(err)
		}
		// A backslash inside a name introduces a \uXXXX escape; keep it in
		// the raw text, decoding is the parser's job.
		if !isIdentRune(ch) && ch != '\\' {
			s.unrune()
			return s.classifyIdent()
		}
		s.buf.WriteRune(ch)
		if err := s.checkToken(s.lim.CheckStringLength); err != nil {
			return s.fail(err)
		}
	}
}

func (s *Scanner) classifyIdent() bool {
	switch s.buf.String() {
	case "true":
		s.tok = True
	case "false":
		s.tok = False
	case "null":
		s.tok = Null
	default:
		s.tok = Ident
	}
	return true
}

// checkToken applies check to the current token length, and additionally
// verifies the total input consumed against the input-size limit.
func (s *Scanner) checkToken(check func(int) error) error {
	if s.lim == nil {
		return nil
	}
	if err := check(s.buf.Len()); err != nil {
		return err
	}
	return s.lim.CheckInputSize(s.end)
}

func (s *Scanner) rune() (rune, error) {
	ch, nb, err := s.r.ReadRune()
	s.last = nb
	s.end += nb
	s.lline, s.lcol = s.eline, s.ecol
	if err == nil {
		if ch == '\n' {
			s.eline++
			s.ecol = 1
		} else {
			s.ecol++
		}
	}
	return ch, err
}

func (s *Scanner) unrune() {
	s.end -= s.last
	s.eline, s.ecol = s.lline, s.lcol
	s.last = 0
	s.r.UnreadRune()
}

// readWhile consumes runes matching f from the input until EOF or until a
// rune not matching f is found. The first non-matching rune (if any) is
// returned; it is the caller's responsibility to unread it, if desired.
// The int reports the number of runes consumed.
func (s *Scanner) readWhile(f func(rune) bool) (int, rune, error) {
	var nr int
	for {
		ch, err := s.rune()
		if err != nil {
			return nr, 0, err
		} else if !f(ch) {
			return nr, ch, nil
		}
		s.buf.WriteRune(ch)
		nr++
	}
}

func (s *Scanner) fail(err error) bool {
	s.err = err
	return false
}

func isSpace(ch rune) bool {
	return ch == ' ' || ch == '\r' || ch == '\t' || unicode.IsSpace(ch)
}

func isNumStart(ch rune) bool { return ch == '-' || ch == '.' || isDigit(ch) }
func isDigit(ch rune) bool    { return '0' <= ch && ch <= '9' }

func isIdentRune(ch rune) bool {
	return ch == '_' || ch == '$' || unicode.IsLetter(ch) || unicode.IsDigit(ch)
}

var self = [...]Kind{LBrace, RBrace, LSquare, RSquare, Comma, Colon}

func selfDelim(ch rune) (Kind, bool) {
	i := strings.IndexRune("{}[],:", ch)
	if i >= 0 {
		return self[i], true
	}
	return Invalid, false
}

// Tokenize scans text and returns its complete token sequence. The result is
// deterministic, does no I/O, and is always terminated by exactly one EOF
// token. Tokenize reports an error only when a limit enforced by lim is
// exceeded; malformed input never fails, it is represented in the tokens.
//
// A nil lim applies DefaultLimits.
func Tokenize(text string, lim *Limiter) ([]Token, error) {
	if lim == nil {
		lim = NewLimiter(nil)
	}
	if err := lim.CheckInputSize(len(text)); err != nil {
		return nil, err
	}
	s := NewScanner(strings.NewReader(text))
	s.SetLimiter(lim)

	var toks []Token
	for s.Next() {
		toks = append(toks, Token{Kind: s.Token(), Text: string(s.Text()), Loc: s.Location()})
	}
	if err := s.Err(); err != io.EOF {
		return nil, err
	}
	return append(toks, Token{Kind: EOF, Loc: s.Location()}), nil
}
