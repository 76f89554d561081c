// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package ast

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/creachadair/jmend"
)

// Options control the behavior of the strict parsers. A nil *Options is
// ready for use and provides default settings.
type Options struct {
	// Limits to enforce during the parse. Nil applies jmend.DefaultLimits.
	Limits *jmend.Limits

	// When true, values of duplicated object keys are coalesced into an
	// array under that key in order of appearance. When false, the later
	// value overwrites the earlier one.
	CollectDuplicates bool
}

func (o *Options) limits() *jmend.Limits {
	if o == nil {
		return nil
	}
	return o.Limits
}

func (o *Options) collect() bool { return o != nil && o.CollectDuplicates }

// Parse parses and returns the JSON values from r, reading incrementally
// through a jmend.Stream. In case of error, any complete values already
// parsed are returned along with the error.
func Parse(r io.Reader, opts *Options) ([]Value, error) {
	st := jmend.NewStream(r)
	st.SetLimiter(jmend.NewLimiter(opts.limits()))

	h := &parseHandler{collect: opts.collect()}
	var vs []Value
	for {
		if err := st.ParseOne(h); err == io.EOF {
			return vs, nil
		} else if err != nil {
			return vs, err
		}
		if len(h.stk) != 1 {
			return vs, errors.New("incomplete value")
		}
		vs = append(vs, h.stk[0])
		h.stk = h.stk[:0]
	}
}

// ParseSingle parses exactly one JSON value from r, reporting an error if
// the input is empty or contains trailing values.
func ParseSingle(r io.Reader, opts *Options) (Value, error) {
	vs, err := Parse(r, opts)
	if err != nil {
		return nil, err
	} else if len(vs) == 0 {
		return nil, errors.New("no value found")
	} else if len(vs) > 1 {
		return vs[0], errors.New("extra data after value")
	}
	return vs[0], nil
}

// ParseTokens parses a single value from a complete token sequence, as
// produced by jmend.Tokenize. It fails on the first structural violation
// with a *jmend.SyntaxError carrying the position of the offending token and
// a repair suggestion. Resource limit violations are reported as
// *jmend.SecurityError.
//
// One deliberate leniency applies even here: when an element of an array or
// the value of an object member fails to parse, null is substituted for that
// one value and parsing continues, rather than abandoning the whole
// structure.
func ParseTokens(tokens []jmend.Token, opts *Options) (Value, error) {
	p := &tokenParser{
		toks:    discardNewlines(tokens),
		lim:     jmend.NewLimiter(opts.limits()),
		collect: opts.collect(),
	}
	v, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	if tok := p.cur(); tok.Kind != jmend.EOF {
		return v, &jmend.SyntaxError{
			Location:   tok.Pos(),
			Message:    fmt.Sprintf("unexpected %v after value", tok.Kind),
			Suggestion: "remove the trailing data",
		}
	}
	return v, nil
}

// discardNewlines filters newline tokens, which carry no structure.
func discardNewlines(tokens []jmend.Token) []jmend.Token {
	out := make([]jmend.Token, 0, len(tokens))
	for _, t := range tokens {
		if t.Kind != jmend.Newline {
			out = append(out, t)
		}
	}
	return out
}

// A tokenParser is a recursive-descent parser over a token sequence. It owns
// the sequence for the duration of one parse call.
type tokenParser struct {
	toks    []jmend.Token
	pos     int
	lim     *jmend.Limiter
	collect bool
}

// cur returns the current token without consuming it. Past the end of the
// sequence it keeps returning the final EOF token.
func (p *tokenParser) cur() jmend.Token {
	if p.pos >= len(p.toks) {
		if n := len(p.toks); n > 0 {
			return p.toks[n-1]
		}
		return jmend.Token{Kind: jmend.EOF}
	}
	return p.toks[p.pos]
}

func (p *tokenParser) advance() jmend.Token {
	t := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *tokenParser) parseValue() (Value, error) {
	tok := p.cur()
	switch tok.Kind {
	case jmend.LBrace:
		return p.parseObject()
	case jmend.LSquare:
		return p.parseArray()
	case jmend.String:
		p.advance()
		return decodeString(tok)
	case jmend.Integer, jmend.Number:
		p.advance()
		return decodeNumber(tok)
	case jmend.True, jmend.False:
		p.advance()
		sp := tok.Loc.Span
		return &Bool{datum: datum{pos: sp.Pos, end: sp.End, text: tok.Text}, value: tok.Kind == jmend.True}, nil
	case jmend.Null:
		p.advance()
		sp := tok.Loc.Span
		return &Null{datum: datum{pos: sp.Pos, end: sp.End, text: tok.Text}}, nil
	case jmend.Ident:
		if v, ok := identNumber(tok); ok {
			p.advance()
			return v, nil
		}
		return nil, &jmend.SyntaxError{
			Location:   tok.Pos(),
			Message:    fmt.Sprintf("unexpected identifier %q", tok.Text),
			Suggestion: fmt.Sprintf("quote the value: %q", tok.Text),
		}
	case jmend.EOF:
		return nil, &jmend.SyntaxError{
			Location:   tok.Pos(),
			Message:    "unexpected end of input",
			Suggestion: "add a value",
		}
	default:
		return nil, &jmend.SyntaxError{
			Location:   tok.Pos(),
			Message:    fmt.Sprintf("unexpected %v", tok.Kind),
			Suggestion: fmt.Sprintf("remove or replace %q", tok.Text),
		}
	}
}

func (p *tokenParser) parseObject() (Value, error) {
	open := p.advance() // the "{"
	if err := p.lim.EnterStructure(); err != nil {
		return nil, err
	}
	defer p.lim.ExitStructure()
	if err := p.lim.CountItem(); err != nil {
		return nil, err
	}

	obj := &Object{pos: open.Loc.Pos}
	for {
		tok := p.cur()
		if tok.Kind == jmend.RBrace {
			obj.end = tok.Loc.End
			p.advance()
			return obj, nil
		}
		if tok.Kind == jmend.EOF {
			return nil, &jmend.SyntaxError{
				Location:   tok.Pos(),
				Message:    "unexpected end of input in object",
				Suggestion: `add a closing "}"`,
			}
		}

		key, err := p.parseKey(tok)
		if err != nil {
			return nil, err
		}
		if tok := p.cur(); tok.Kind != jmend.Colon {
			return nil, &jmend.SyntaxError{
				Location:   tok.Pos(),
				Message:    fmt.Sprintf("expected %v after object key, got %v", jmend.Colon, tok.Kind),
				Suggestion: fmt.Sprintf("insert a colon after %q", key),
			}
		}
		p.advance()

		val, err := p.parseValue()
		if err != nil {
			if isSecurity(err) {
				return nil, err
			}
			// A broken member value becomes null; keep the members already
			// built and resume at the next field.
			val = NewNull()
			p.resync()
		}
		obj.Put(key, val, p.collect)
		if err := p.lim.CheckObjectKeys(obj.Len()); err != nil {
			return nil, err
		}
		if err := p.lim.CountItem(); err != nil {
			return nil, err
		}

		switch tok := p.cur(); tok.Kind {
		case jmend.Comma:
			p.advance()
			if next := p.cur(); next.Kind == jmend.RBrace {
				return nil, &jmend.SyntaxError{
					Location:   tok.Pos(),
					Message:    "trailing comma in object",
					Suggestion: "remove the comma",
				}
			}
		case jmend.RBrace:
			// closed on the next pass
		default:
			return nil, &jmend.SyntaxError{
				Location:   tok.Pos(),
				Message:    fmt.Sprintf("expected %v or %v in object, got %v", jmend.Comma, jmend.RBrace, tok.Kind),
				Suggestion: "separate members with a comma",
			}
		}
	}
}

func (p *tokenParser) parseKey(tok jmend.Token) (string, error) {
	switch tok.Kind {
	case jmend.String:
		p.advance()
		dec, err := jmend.Unquote(tok.Text)
		if err != nil {
			return "", &jmend.SyntaxError{
				Location:   tok.Pos(),
				Message:    "unclosed string key",
				Suggestion: "add the missing closing quote",
			}
		}
		return string(dec), nil
	case jmend.Ident, jmend.True, jmend.False, jmend.Null:
		// Unquoted keys are accepted; constants are ordinary words in key
		// position.
		p.advance()
		return jmend.DecodeName(tok.Text), nil
	}
	return "", &jmend.SyntaxError{
		Location:   tok.Pos(),
		Message:    fmt.Sprintf("object key must be a string or identifier, got %v", tok.Kind),
		Suggestion: fmt.Sprintf("quote the key: %q", tok.Text),
	}
}

func (p *tokenParser) parseArray() (Value, error) {
	open := p.advance() // the "["
	if err := p.lim.EnterStructure(); err != nil {
		return nil, err
	}
	defer p.lim.ExitStructure()
	if err := p.lim.CountItem(); err != nil {
		return nil, err
	}

	arr := &Array{pos: open.Loc.Pos}
	for {
		tok := p.cur()
		if tok.Kind == jmend.RSquare {
			arr.end = tok.Loc.End
			p.advance()
			return arr, nil
		}
		if tok.Kind == jmend.EOF {
			return nil, &jmend.SyntaxError{
				Location:   tok.Pos(),
				Message:    "unexpected end of input in array",
				Suggestion: `add a closing "]"`,
			}
		}

		val, err := p.parseValue()
		if err != nil {
			if isSecurity(err) {
				return nil, err
			}
			// A broken element becomes null; the array keeps its shape.
			val = NewNull()
			p.resync()
		}
		arr.Values = append(arr.Values, val)
		if err := p.lim.CheckArrayItems(arr.Len()); err != nil {
			return nil, err
		}
		if err := p.lim.CountItem(); err != nil {
			return nil, err
		}

		switch tok := p.cur(); tok.Kind {
		case jmend.Comma:
			p.advance()
			if next := p.cur(); next.Kind == jmend.RSquare {
				return nil, &jmend.SyntaxError{
					Location:   tok.Pos(),
					Message:    "trailing comma in array",
					Suggestion: "remove the comma",
				}
			}
		case jmend.RSquare:
			// closed on the next pass
		default:
			return nil, &jmend.SyntaxError{
				Location:   tok.Pos(),
				Message:    fmt.Sprintf("expected %v or %v in array, got %v", jmend.Comma, jmend.RSquare, tok.Kind),
				Suggestion: "separate elements with a comma",
			}
		}
	}
}

// resync skips forward to the next comma or closing bracket at the current
// nesting level, or to the end of input.
func (p *tokenParser) resync() {
	depth := 0
	for {
		switch p.cur().Kind {
		case jmend.EOF:
			return
		case jmend.LBrace, jmend.LSquare:
			depth++
		case jmend.RBrace, jmend.RSquare:
			if depth == 0 {
				return
			}
			depth--
		case jmend.Comma:
			if depth == 0 {
				return
			}
		}
		p.advance()
	}
}

func isSecurity(err error) bool {
	var sec *jmend.SecurityError
	return errors.As(err, &sec)
}

// decodeString builds a String value from a string token, reporting an error
// for a token with no closing delimiter.
func decodeString(tok jmend.Token) (Value, error) {
	dec, err := jmend.Unquote(tok.Text)
	if err != nil {
		return nil, &jmend.SyntaxError{
			Location:   tok.Pos(),
			Message:    "unclosed string",
			Suggestion: "add the missing closing quote",
		}
	}
	sp := tok.Loc.Span
	return &String{datum: datum{pos: sp.Pos, end: sp.End, text: tok.Text}, value: string(dec)}, nil
}

// decodeNumber interprets a number token: a token containing a fraction or
// exponent becomes a Number, otherwise an Integer. An integer too large for
// int64 falls back to a Number rather than failing.
func decodeNumber(tok jmend.Token) (Value, error) {
	sp := tok.Loc.Span
	d := datum{pos: sp.Pos, end: sp.End, text: tok.Text}
	if tok.Kind == jmend.Integer {
		if _, err := strconv.ParseInt(tok.Text, 10, 64); err == nil {
			return &Integer{datum: d}, nil
		}
		// fall through: out-of-range integers are kept as floating values
	}
	if _, err := strconv.ParseFloat(tok.Text, 64); err != nil {
		return nil, &jmend.SyntaxError{
			Location:   tok.Pos(),
			Message:    fmt.Sprintf("invalid number %q", tok.Text),
			Suggestion: "complete or remove the number",
		}
	}
	return &Number{datum: d}, nil
}

// identNumber maps the non-standard numeric constants Infinity, -Infinity,
// and NaN to their floating values. These match the source text exactly;
// other identifiers are not values in the strict grammar.
func identNumber(tok jmend.Token) (Value, bool) {
	switch tok.Text {
	case "Infinity", "-Infinity", "NaN":
		sp := tok.Loc.Span
		return &Number{datum: datum{pos: sp.Pos, end: sp.End, text: tok.Text}}, true
	}
	return nil, false
}

// FromToken converts a scalar token into the Value it denotes: a string,
// number, boolean, or null token, or one of the identifier constants
// Infinity, -Infinity, and NaN. Structural tokens and other identifiers
// report an error.
func FromToken(tok jmend.Token) (Value, error) {
	switch tok.Kind {
	case jmend.String:
		return decodeString(tok)
	case jmend.Integer, jmend.Number:
		return decodeNumber(tok)
	case jmend.True, jmend.False:
		sp := tok.Loc.Span
		return &Bool{datum: datum{pos: sp.Pos, end: sp.End, text: tok.Text}, value: tok.Kind == jmend.True}, nil
	case jmend.Null:
		sp := tok.Loc.Span
		return &Null{datum: datum{pos: sp.Pos, end: sp.End, text: tok.Text}}, nil
	case jmend.Ident:
		if v, ok := identNumber(tok); ok {
			return v, nil
		}
		return nil, &jmend.SyntaxError{
			Location:   tok.Pos(),
			Message:    fmt.Sprintf("unexpected identifier %q", tok.Text),
			Suggestion: fmt.Sprintf("quote the value: %q", tok.Text),
		}
	}
	return nil, fmt.Errorf("not a scalar token: %v", tok.Kind)
}

// A parseHandler implements the jmend.Handler interface to construct
// abstract syntax trees from stream events.
type parseHandler struct {
	stk     []Value
	collect bool
}

func (h *parseHandler) top() Value { return h.stk[len(h.stk)-1] }

func (h *parseHandler) pop() Value {
	last := h.top()
	h.stk = h.stk[:len(h.stk)-1]
	return last
}

func (h *parseHandler) push(v Value) { h.stk = append(h.stk, v) }

// reduce pops the completed top value and attaches it to its parent, or
// leaves it as the result when it has no parent.
func (h *parseHandler) reduce() {
	if len(h.stk) > 1 {
		v := h.pop()
		h.reduceValue(v)
	}
}

func (h *parseHandler) reduceValue(v Value) {
	if len(h.stk) == 0 {
		h.push(v)
		return
	}
	switch prev := h.top().(type) {
	case *Member:
		prev.Value = v
	case *Array:
		prev.Values = append(prev.Values, v)
	case *Object:
		// already attached via its member
	default:
		h.push(v)
	}
}

func (h *parseHandler) BeginObject(loc jmend.Anchor) error {
	h.push(&Object{pos: loc.Location().Pos})
	return nil
}

func (h *parseHandler) EndObject(loc jmend.Anchor) error {
	if obj, ok := h.top().(*Object); ok {
		obj.end = loc.Location().End
	}
	h.reduce()
	return nil
}

func (h *parseHandler) BeginArray(loc jmend.Anchor) error {
	h.push(&Array{pos: loc.Location().Pos})
	return nil
}

func (h *parseHandler) EndArray(loc jmend.Anchor) error {
	if arr, ok := h.top().(*Array); ok {
		arr.end = loc.Location().End
	}
	h.reduce()
	return nil
}

func (h *parseHandler) BeginMember(loc jmend.Anchor) error {
	var key string
	if loc.Token() == jmend.String {
		dec, err := jmend.Unquote(string(loc.Text()))
		if err != nil {
			return &jmend.SyntaxError{
				Location:   loc.Location().First,
				Message:    "unclosed string key",
				Suggestion: "add the missing closing quote",
			}
		}
		key = string(dec)
	} else {
		key = jmend.DecodeName(string(loc.Text()))
	}
	h.push(&Member{pos: loc.Location().Pos, Key: key})
	return nil
}

func (h *parseHandler) EndMember(loc jmend.Anchor) error {
	m := h.pop().(*Member)
	m.end = loc.Location().Pos
	if obj, ok := h.top().(*Object); ok {
		obj.Put(m.Key, m.Value, h.collect)
	}
	return nil
}

func (h *parseHandler) Value(loc jmend.Anchor) error {
	tok := jmend.Token{Kind: loc.Token(), Text: string(loc.Text()), Loc: loc.Location()}
	var v Value
	var err error
	switch tok.Kind {
	case jmend.String:
		v, err = decodeString(tok)
	case jmend.Integer, jmend.Number:
		v, err = decodeNumber(tok)
	case jmend.True, jmend.False:
		v = &Bool{datum: datum{pos: tok.Loc.Pos, end: tok.Loc.End, text: tok.Text}, value: tok.Kind == jmend.True}
	case jmend.Null:
		v = &Null{datum: datum{pos: tok.Loc.Pos, end: tok.Loc.End, text: tok.Text}}
	case jmend.Ident:
		var ok bool
		if v, ok = identNumber(tok); !ok {
			if len(h.stk) == 0 {
				return &jmend.SyntaxError{
					Location:   tok.Pos(),
					Message:    fmt.Sprintf("unexpected identifier %q", tok.Text),
					Suggestion: fmt.Sprintf("quote the value: %q", tok.Text),
				}
			}
			v = NewNull() // element-level substitution, as in ParseTokens
		}
	default:
		return fmt.Errorf("unknown value %v", tok.Kind)
	}
	if err != nil {
		if len(h.stk) == 0 || isSecurity(err) {
			return err
		}
		v = NewNull()
	}
	h.reduceValue(v)
	return nil
}

func (h *parseHandler) EndOfInput(loc jmend.Anchor) {}
