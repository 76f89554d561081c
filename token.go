// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package jmend

// Kind is the type of a lexical token in the extended JSON grammar.
type Kind byte

// Constants defining the valid Kind values.
const (
	Invalid Kind = iota // invalid token
	LBrace              // left brace "{"
	RBrace              // right brace "}"
	LSquare             // left square bracket "["
	RSquare             // right square bracket "]"
	Comma               // comma ","
	Colon               // colon ":"
	Integer             // number: integer with no fraction or exponent
	Number              // number with fraction and/or exponent
	String              // quoted string, single or double quotes
	True                // constant: true
	False               // constant: false
	Null                // constant: null
	Ident               // unquoted name that is not a constant
	Newline             // line break
	EOF                 // end of input
)

var kindStr = [...]string{
	Invalid: "invalid token",
	LBrace:  `"{"`,
	RBrace:  `"}"`,
	LSquare: `"["`,
	RSquare: `"]"`,
	Comma:   `","`,
	Colon:   `":"`,
	Integer: "integer",
	Number:  "number",
	String:  "string",
	True:    "true",
	False:   "false",
	Null:    "null",
	Ident:   "identifier",
	Newline: "newline",
	EOF:     "end of input",
}

func (k Kind) String() string {
	v := int(k)
	if v >= len(kindStr) {
		return kindStr[Invalid]
	}
	return kindStr[v]
}

// IsValue reports whether k can begin a value.
func (k Kind) IsValue() bool {
	switch k {
	case LBrace, LSquare, Integer, Number, String, True, False, Null, Ident:
		return true
	}
	return false
}

// A Token is a classified span of source text. Once produced by the scanner a
// token does not alias any scanner state and remains valid indefinitely.
type Token struct {
	Kind Kind
	Text string // the raw (undecoded) text of the token
	Loc  Location
}

// Pos returns the line and column of the first character of t.
func (t Token) Pos() LineCol { return t.Loc.First }
