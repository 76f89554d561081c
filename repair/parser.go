// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package repair

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/creachadair/jmend"
	"github.com/creachadair/jmend/ast"
)

// Parse parses a complete token sequence, as produced by jmend.Tokenize,
// recovering from structural errors according to the configured level. It
// never reports an error for malformed input: every grammar deviation is
// recorded as a Diagnostic in the Outcome, and even an internal fault is
// caught and recorded as one final fatal_error diagnostic.
//
// The only error Parse returns is a *jmend.SecurityError, which always
// propagates: a resource-limit violation is a protection boundary, not a
// malformed-input accommodation.
func Parse(tokens []jmend.Token, opts *Options) (out *Outcome, err error) {
	p := &parser{
		toks:    discardNewlines(tokens),
		lim:     jmend.NewLimiter(opts.limits()),
		level:   opts.level(),
		collect: opts.collect(),
		out:     new(Outcome),
	}
	defer func() {
		if r := recover(); r != nil {
			if ls, ok := r.(limitStop); ok {
				out, err = nil, ls.err
				return
			}
			p.out.record(&Diagnostic{
				Path:     slices.Clone(p.path),
				Pos:      p.cur().Pos(),
				Category: CatFatalError,
				Severity: Error,
				Message:  fmt.Sprint(r),
			})
			p.finish()
			out, err = p.out, nil
		}
	}()

	if p.cur().Kind == jmend.EOF {
		p.report(Error, CatSyntaxError, p.cur(), "empty input", "provide a JSON value")
		p.finish()
		return p.out, nil
	}

	top := p.cur()
	scalarTop := top.Kind != jmend.LBrace && top.Kind != jmend.LSquare
	if scalarTop {
		p.countField()
	}
	v, ok := p.parseValue()
	if ok {
		if scalarTop {
			p.countSuccess()
		}
		p.out.Data = v
		if tok := p.cur(); tok.Kind != jmend.EOF {
			sev := Warning
			if p.level == Strict {
				sev = Error
			}
			p.report(sev, CatSyntaxError, tok,
				fmt.Sprintf("ignoring %v after the value", tok.Kind), "remove the trailing data")
		}
	} else if p.level >= SkipFields {
		p.out.Data = ast.NewNull()
	}
	p.finish()
	return p.out, nil
}

func discardNewlines(tokens []jmend.Token) []jmend.Token {
	out := make([]jmend.Token, 0, len(tokens))
	for _, t := range tokens {
		if t.Kind != jmend.Newline {
			out = append(out, t)
		}
	}
	return out
}

// limitStop carries a security error out of the parse; it is rethrown as an
// error return, never recorded as a diagnostic.
type limitStop struct{ err error }

type parser struct {
	toks    []jmend.Token
	pos     int
	lim     *jmend.Limiter
	level   Level
	collect bool
	out     *Outcome
	path    []string
}

func (p *parser) cur() jmend.Token {
	if p.pos >= len(p.toks) {
		if n := len(p.toks); n > 0 {
			return p.toks[n-1]
		}
		return jmend.Token{Kind: jmend.EOF}
	}
	return p.toks[p.pos]
}

func (p *parser) advance() jmend.Token {
	t := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *parser) atLeast(l Level) bool { return p.level >= l }

// pushPath pushes a path segment and returns the matching pop. Defer the
// result so the segment is removed on every exit, including a panic; error
// paths then always carry a structurally valid path.
func (p *parser) pushPath(seg string) func() {
	p.path = append(p.path, seg)
	return func() { p.path = p.path[:len(p.path)-1] }
}

func (p *parser) report(sev Severity, cat string, tok jmend.Token, msg, suggestion string) *Diagnostic {
	d := &Diagnostic{
		Path:       slices.Clone(p.path),
		Pos:        tok.Pos(),
		Category:   cat,
		Message:    msg,
		Suggestion: suggestion,
		Severity:   sev,
	}
	p.out.record(d)
	return d
}

// repaired marks d as a successful recovery producing v.
func repaired(d *Diagnostic, action string, v ast.Value) {
	d.RecoveryAttempted = true
	d.RecoveryAction = action
	d.Recovered = v
}

func (p *parser) limit(err error) {
	if err != nil {
		panic(limitStop{err})
	}
}

func (p *parser) countField()   { p.out.TotalFields++ }
func (p *parser) countSuccess() { p.out.SuccessfulFields++ }

func (p *parser) finish() {
	if p.out.TotalFields > 0 {
		p.out.SuccessRate = 100 * float64(p.out.SuccessfulFields) / float64(p.out.TotalFields)
	}
}

// resync skips forward to the next comma or closing bracket at the current
// nesting level, or to the end of input.
func (p *parser) resync() {
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

// dropField abandons the current field or element: skip to the next
// separator and consume it if it is a comma, so the enclosing loop resumes
// at the following sibling.
func (p *parser) dropField() {
	p.resync()
	if p.cur().Kind == jmend.Comma {
		p.advance()
	}
}

// parseValue parses one value. It reports false when no value could be
// obtained; in that case the offending tokens are left unconsumed for the
// caller to skip, and a diagnostic has already been recorded.
func (p *parser) parseValue() (ast.Value, bool) {
	tok := p.cur()
	switch tok.Kind {
	case jmend.LBrace:
		return p.parseObject()
	case jmend.LSquare:
		return p.parseArray()
	case jmend.String:
		p.advance()
		return p.parseString(tok)
	case jmend.Integer, jmend.Number, jmend.True, jmend.False, jmend.Null:
		v, err := ast.FromToken(tok)
		if err != nil {
			p.report(Error, CatInvalidValue, tok,
				fmt.Sprintf("invalid value %q", tok.Text), "complete or remove the value")
			return nil, false
		}
		p.advance()
		return v, true
	case jmend.Ident:
		return p.parseIdent(tok)
	case jmend.EOF:
		p.report(Error, CatSyntaxError, tok, "unexpected end of input", "add a value")
		return nil, false
	default:
		p.report(Error, CatSyntaxError, tok,
			fmt.Sprintf("unexpected %v", tok.Kind), fmt.Sprintf("remove or replace %q", tok.Text))
		return nil, false
	}
}

// parseString interprets a string token, already consumed.
func (p *parser) parseString(tok jmend.Token) (ast.Value, bool) {
	dec, err := jmend.Unquote(tok.Text)
	if err != nil {
		if p.atLeast(BestEffort) {
			v := ast.NewString(string(dec))
			d := p.report(Warning, CatUnclosedString, tok,
				"string has no closing quote", "add the missing closing quote")
			repaired(d, "closed_string", v)
			return v, true
		}
		p.report(Error, CatUnclosedString, tok,
			"string has no closing quote", "add the missing closing quote")
		return nil, false
	}
	p.warnSingleQuoted(tok)
	return ast.NewString(string(dec)), true
}

// warnSingleQuoted notes a single-quoted string, which survives with its
// quote style normalized.
func (p *parser) warnSingleQuoted(tok jmend.Token) {
	if p.atLeast(BestEffort) && strings.HasPrefix(tok.Text, "'") {
		d := p.report(Warning, CatMissingQuotes, tok,
			"string uses single quotes", "use double quotes")
		repaired(d, "normalized_quotes", nil)
	}
}

// parseIdent interprets a bare word in value position. The strict grammar
// admits only the numeric constants Infinity, -Infinity, and NaN; at
// BestEffort and above, one canonical case-insensitive inference table maps
// the rest: null-like words to null, boolean-like words to booleans,
// infinity/nan spellings to numbers, and anything else to a string.
func (p *parser) parseIdent(tok jmend.Token) (ast.Value, bool) {
	if v, err := ast.FromToken(tok); err == nil {
		p.advance()
		return v, true
	}
	if !p.atLeast(BestEffort) {
		p.report(Error, CatInvalidValue, tok,
			fmt.Sprintf("unquoted value %q", tok.Text), fmt.Sprintf("quote the value: %q", tok.Text))
		return nil, false
	}

	p.advance()
	name := jmend.DecodeName(tok.Text)
	switch strings.ToLower(name) {
	case "null", "none", "nil", "undefined":
		v := ast.NewNull()
		d := p.report(Warning, CatInvalidValue, tok,
			fmt.Sprintf("%q is not a value", name), "use null")
		repaired(d, "inferred_null", v)
		return v, true
	case "true", "yes", "on":
		v := ast.NewBool(true)
		d := p.report(Warning, CatInvalidValue, tok,
			fmt.Sprintf("%q is not a value", name), "use true")
		repaired(d, "inferred_boolean", v)
		return v, true
	case "false", "no", "off":
		v := ast.NewBool(false)
		d := p.report(Warning, CatInvalidValue, tok,
			fmt.Sprintf("%q is not a value", name), "use false")
		repaired(d, "inferred_boolean", v)
		return v, true
	case "infinity", "+infinity", "-infinity", "nan":
		v := inferNumber(name)
		d := p.report(Warning, CatInvalidValue, tok,
			fmt.Sprintf("%q is not a value", name), "use a number")
		repaired(d, "inferred_number", v)
		return v, true
	}
	v := ast.NewString(name)
	d := p.report(Warning, CatMissingQuotes, tok,
		fmt.Sprintf("unquoted string value %q", name), fmt.Sprintf("quote the value: %q", name))
	repaired(d, "treated_as_string", v)
	return v, true
}

func inferNumber(name string) ast.Value {
	text := "Infinity"
	switch strings.ToLower(name) {
	case "-infinity":
		text = "-Infinity"
	case "nan":
		text = "NaN"
	}
	v, _ := ast.FromToken(jmend.Token{Kind: jmend.Ident, Text: text})
	return v
}

func (p *parser) parseObject() (ast.Value, bool) {
	p.advance() // the "{"
	p.limit(p.lim.EnterStructure())
	defer p.lim.ExitStructure()
	p.limit(p.lim.CountItem())

	obj := new(ast.Object)
	for {
		tok := p.cur()
		switch tok.Kind {
		case jmend.RBrace:
			p.advance()
			return obj, true

		case jmend.EOF:
			if p.level == Strict {
				p.report(Error, CatSyntaxError, tok,
					"unexpected end of input in object", `add a closing "}"`)
				return nil, false
			}
			if p.atLeast(BestEffort) {
				d := p.report(Warning, CatSyntaxError, tok,
					"object has no closing brace", `add a closing "}"`)
				repaired(d, "closed_object", obj)
			} else {
				p.report(Error, CatSyntaxError, tok,
					"object has no closing brace", `add a closing "}"`)
			}
			return obj, true

		case jmend.Comma:
			// A comma with no member before it.
			if p.level == Strict {
				p.report(Error, CatSyntaxError, tok, "empty object member", "remove the extra comma")
				return nil, false
			}
			sev := Error
			if p.atLeast(BestEffort) {
				sev = Warning // nothing is lost by dropping an extra comma
			}
			p.report(sev, CatSyntaxError, tok, "empty object member", "remove the extra comma")
			p.advance()
			continue

		case jmend.RSquare:
			if p.level == Strict {
				p.report(Error, CatSyntaxError, tok, `unexpected "]" in object`, `close the object with "}"`)
				return nil, false
			}
			p.report(Error, CatSyntaxError, tok, `unexpected "]" in object`, `close the object with "}"`)
			p.advance()
			continue
		}

		key, ok := p.parseKey()
		if !ok {
			if p.level == Strict {
				return nil, false
			}
			p.dropField()
			continue
		}
		p.countField()

		if !p.parseMember(obj, key) {
			if p.level == Strict {
				return nil, false
			}
			p.dropField()
			continue
		}

		// Separator: a comma or the closing brace.
		switch tok := p.cur(); tok.Kind {
		case jmend.Comma:
			p.advance()
			if p.cur().Kind == jmend.RBrace {
				if !p.trailingComma(tok) {
					return nil, false
				}
			}
		case jmend.RBrace, jmend.RSquare, jmend.EOF:
			// handled at the top of the loop
		default:
			if !p.missingComma(tok, "members") {
				return nil, false
			}
		}
	}
}

// parseKey parses an object key: a quoted string or a bare name. A key that
// is neither is a structural violation at every level.
func (p *parser) parseKey() (string, bool) {
	tok := p.cur()
	switch tok.Kind {
	case jmend.String:
		p.advance()
		dec, err := jmend.Unquote(tok.Text)
		if err != nil {
			if p.atLeast(BestEffort) {
				d := p.report(Warning, CatUnclosedString, tok,
					"object key has no closing quote", "add the missing closing quote")
				repaired(d, "closed_string", nil)
				return string(dec), true
			}
			p.report(Error, CatUnclosedString, tok,
				"object key has no closing quote", "add the missing closing quote")
			return "", false
		}
		p.warnSingleQuoted(tok)
		return string(dec), true
	case jmend.Ident, jmend.True, jmend.False, jmend.Null:
		// Bare names are valid keys; constants are ordinary words here.
		p.advance()
		return jmend.DecodeName(tok.Text), true
	}
	p.report(Error, CatSyntaxError, tok,
		fmt.Sprintf("object key must be a string or identifier, got %v", tok.Kind),
		fmt.Sprintf("quote the key: %q", tok.Text))
	return "", false
}

// parseMember parses the colon and value of one object member and stores it
// in obj. It reports false when the member must be dropped.
func (p *parser) parseMember(obj *ast.Object, key string) bool {
	defer p.pushPath(key)()

	switch tok := p.cur(); {
	case tok.Kind == jmend.Colon:
		p.advance()
	case p.atLeast(BestEffort) && tok.Kind.IsValue():
		// The key is followed directly by a plausible value: infer the
		// missing colon.
		d := p.report(Warning, CatMissingColon, tok,
			fmt.Sprintf("missing colon after key %q", key), "insert a colon between key and value")
		repaired(d, "inserted_colon", nil)
	default:
		p.report(Error, CatMissingColon, tok,
			fmt.Sprintf("missing colon after key %q", key), "insert a colon between key and value")
		return false
	}

	v, ok := p.parseValue()
	if !ok {
		return false
	}
	obj.Put(key, v, p.collect)
	p.countSuccess()
	p.limit(p.lim.CheckObjectKeys(obj.Len()))
	p.limit(p.lim.CountItem())
	return true
}

func (p *parser) parseArray() (ast.Value, bool) {
	p.advance() // the "["
	p.limit(p.lim.EnterStructure())
	defer p.lim.ExitStructure()
	p.limit(p.lim.CountItem())

	arr := new(ast.Array)
	for {
		tok := p.cur()
		switch tok.Kind {
		case jmend.RSquare:
			p.advance()
			return arr, true

		case jmend.EOF:
			if p.level == Strict {
				p.report(Error, CatSyntaxError, tok,
					"unexpected end of input in array", `add a closing "]"`)
				return nil, false
			}
			if p.atLeast(BestEffort) {
				d := p.report(Warning, CatSyntaxError, tok,
					"array has no closing bracket", `add a closing "]"`)
				repaired(d, "closed_array", arr)
			} else {
				p.report(Error, CatSyntaxError, tok,
					"array has no closing bracket", `add a closing "]"`)
			}
			return arr, true

		case jmend.Comma:
			// An element with nothing in it, as in [1, , 3].
			if p.level == Strict {
				p.report(Error, CatSyntaxError, tok, "empty array element", "remove the extra comma")
				return nil, false
			}
			p.countField()
			d := p.report(Error, CatSyntaxError, tok, "empty array element", "remove the extra comma")
			if p.level == ExtractAll {
				v := ast.NewNull()
				repaired(d, "substituted_null", v)
				p.appendElement(arr, v)
				p.countSuccess() // the element was recovered, not lost
			}
			p.advance()
			continue

		case jmend.RBrace:
			if p.level == Strict {
				p.report(Error, CatSyntaxError, tok, `unexpected "}" in array`, `close the array with "]"`)
				return nil, false
			}
			p.report(Error, CatSyntaxError, tok, `unexpected "}" in array`, `close the array with "]"`)
			p.advance()
			continue
		}

		p.countField()
		if !p.parseElement(arr) {
			if p.level == Strict {
				return nil, false
			}
			p.resync()
			if p.level == ExtractAll {
				// Arrays never shrink: stand in a null for the lost element.
				v := ast.NewNull()
				if n := len(p.out.Errors); n > 0 {
					repaired(p.out.Errors[n-1], "substituted_null", v)
				}
				p.appendElement(arr, v)
				p.countSuccess()
			}
			if p.cur().Kind == jmend.Comma {
				p.advance()
			}
			continue
		}

		// Separator: a comma or the closing bracket.
		switch tok := p.cur(); tok.Kind {
		case jmend.Comma:
			p.advance()
			if p.cur().Kind == jmend.RSquare {
				if !p.trailingComma(tok) {
					return nil, false
				}
			}
		case jmend.RSquare, jmend.RBrace, jmend.EOF:
			// handled at the top of the loop
		default:
			if !p.missingComma(tok, "elements") {
				return nil, false
			}
		}
	}
}

// parseElement parses one array element and appends it to arr. It reports
// false when no value could be obtained.
func (p *parser) parseElement(arr *ast.Array) bool {
	defer p.pushPath("[" + strconv.Itoa(arr.Len()) + "]")()

	v, ok := p.parseValue()
	if !ok {
		return false
	}
	p.appendElement(arr, v)
	p.countSuccess()
	return true
}

func (p *parser) appendElement(arr *ast.Array, v ast.Value) {
	arr.Values = append(arr.Values, v)
	p.limit(p.lim.CheckArrayItems(arr.Len()))
	p.limit(p.lim.CountItem())
}

// trailingComma handles a comma directly before a closing bracket. The
// cursor is at the bracket; tok is the comma. It reports false when the
// enclosing structure must be abandoned.
func (p *parser) trailingComma(tok jmend.Token) bool {
	if p.atLeast(BestEffort) {
		d := p.report(Warning, CatTrailingComma, tok,
			"trailing comma before closing bracket", "remove the comma")
		repaired(d, "removed_comma", nil)
		return true
	}
	p.report(Error, CatTrailingComma, tok,
		"trailing comma before closing bracket", "remove the comma")
	return p.level != Strict
}

// missingComma handles two values with no separator between them. It
// reports false when the enclosing structure must be abandoned.
func (p *parser) missingComma(tok jmend.Token, what string) bool {
	if p.level == Strict {
		p.report(Error, CatSyntaxError, tok,
			fmt.Sprintf("missing comma between %s", what), "separate values with a comma")
		return false
	}
	if p.atLeast(BestEffort) {
		d := p.report(Warning, CatSyntaxError, tok,
			fmt.Sprintf("missing comma between %s", what), "separate values with a comma")
		repaired(d, "inserted_comma", nil)
		return true
	}
	// SkipFields: the next value is dropped along with the separator.
	p.report(Error, CatSyntaxError, tok,
		fmt.Sprintf("missing comma between %s", what), "separate values with a comma")
	p.dropField()
	return true
}
