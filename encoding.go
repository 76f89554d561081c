// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package jmend

import (
	"errors"
	"strings"

	"github.com/creachadair/jmend/internal/escape"

	"go4.org/mem"
)

// ErrUnterminated is reported by Unquote when a string token is missing its
// closing quotation mark.
var ErrUnterminated = errors.New("unterminated string")

// Quote encodes src as a JSON string value. The contents are escaped and
// double quotation marks are added.
func Quote(src string) string {
	return `"` + string(escape.Quote(mem.S(src))) + `"`
}

// Unquote decodes a string token as produced by the scanner. The token may
// be delimited by single or double quotation marks; escape sequences are
// replaced with their unescaped equivalents, with \uXXXX surrogate pairs
// combined and invalid escapes replaced by the Unicode replacement rune.
//
// A token with no closing delimiter reports ErrUnterminated along with the
// decoded content read so far.
func Unquote(src string) ([]byte, error) {
	body, terr := splitQuotes(src)
	dec, err := escape.Unquote(mem.S(body))
	if err != nil {
		return dec, err
	}
	return dec, terr
}

// UnquoteLoose decodes a string token as Unquote does, but tolerates a
// missing closing delimiter and a truncated trailing escape, decoding
// whatever content is available.
func UnquoteLoose(src string) []byte {
	body, _ := splitQuotes(src)
	dec, _ := escape.Unquote(mem.S(body))
	return dec
}

// DecodeName decodes an unquoted identifier token, resolving any \uXXXX
// escapes it contains.
func DecodeName(src string) string {
	if !strings.ContainsRune(src, '\\') {
		return src
	}
	dec, _ := escape.Unquote(mem.S(src))
	return string(dec)
}

// splitQuotes strips the delimiters from a string token, reporting
// ErrUnterminated if the closing delimiter is absent.
func splitQuotes(src string) (string, error) {
	if src == "" || (src[0] != '"' && src[0] != '\'') {
		return src, ErrUnterminated
	}
	open := src[0]
	if len(src) >= 2 && src[len(src)-1] == open && !escaped(src[:len(src)-1]) {
		return src[1 : len(src)-1], nil
	}
	return src[1:], ErrUnterminated
}

// escaped reports whether src ends in an odd run of backslashes, meaning the
// next character is escaped.
func escaped(src string) bool {
	n := 0
	for i := len(src) - 1; i >= 0 && src[i] == '\\'; i-- {
		n++
	}
	return n%2 == 1
}
