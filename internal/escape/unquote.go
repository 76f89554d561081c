// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

// Package escape handles quoting and unquoting of JSON strings.
package escape

import (
	"errors"
	"fmt"
	"unicode/utf16"
	"unicode/utf8"

	"go4.org/mem"
)

// ErrIncomplete is reported by Unquote when the input ends in the middle of
// an escape sequence. The partially decoded prefix is returned alongside it.
var ErrIncomplete = errors.New("incomplete escape sequence")

// Unquote decodes a byte slice containing the encoded body of a string, with
// the enclosing quotation marks already removed.
//
// Escape sequences are replaced with their unescaped equivalents, including
// \uXXXX escapes. A high surrogate escape greedily pairs with an immediately
// following low surrogate escape to produce a single code point; an unpaired
// high or low surrogate half decodes to the Unicode replacement rune rather
// than failing. Other invalid escapes also decode to the replacement rune.
//
// Unquote reports ErrIncomplete for an escape truncated by the end of input,
// returning the text decoded so far.
func Unquote(src mem.RO) ([]byte, error) {
	dec := make([]byte, 0, src.Len())
	i := mem.IndexByte(src, '\\')
	if i < 0 {
		return mem.Append(dec, src), nil
	}

	putByte := func(bs ...byte) { dec = append(dec, bs...) }
	putRune := func(r rune) {
		var buf [6]byte
		n := utf8.EncodeRune(buf[:], r)
		dec = append(dec, buf[:n]...)
	}
	for src.Len() != 0 {
		dec = mem.Append(dec, src.SliceTo(i))

		// Decode the rune after the backslash to figure out what to
		// substitute.
		src = src.SliceFrom(i + 1)
		if src.Len() == 0 {
			return dec, ErrIncomplete
		}
		r, n := mem.DecodeRune(src)
		if n == 0 {
			n++
		}

		src = src.SliceFrom(n)
		switch r {
		case '"', '\'', '\\', '/':
			putByte(byte(r))
		case 'b':
			putByte('\b')
		case 'f':
			putByte('\f')
		case 'n':
			putByte('\n')
		case 'r':
			putByte('\r')
		case 't':
			putByte('\t')
		case 'u':
			if src.Len() < 4 {
				return dec, ErrIncomplete
			}
			v, err := parseHex(src.SliceTo(4))
			src = src.SliceFrom(4)
			if err != nil {
				putRune(utf8.RuneError)
				break
			}
			r := rune(v)
			if !utf16.IsSurrogate(r) {
				putRune(r)
				break
			}
			// A surrogate half. Pair it with a following \uXXXX escape if
			// the pair is valid, otherwise substitute the replacement rune
			// and leave the next escape for the loop to decode on its own.
			if v2, w, ok := pairHex(src); ok {
				if dr := utf16.DecodeRune(r, rune(v2)); dr != utf8.RuneError {
					putRune(dr)
					src = src.SliceFrom(w)
					break
				}
			}
			putRune(utf8.RuneError)
		default:
			putRune(utf8.RuneError)
		}

		// Look for the next escape sequence, and if one is not found we can
		// blit the rest of the input and go home.
		i = mem.IndexByte(src, '\\')
		if i < 0 {
			dec = mem.Append(dec, src)
			break
		}
	}
	return dec, nil
}

// pairHex reports whether src begins with a \uXXXX escape, giving its value
// and encoded width.
func pairHex(src mem.RO) (int64, int, bool) {
	if src.Len() < 6 || src.At(0) != '\\' || src.At(1) != 'u' {
		return 0, 0, false
	}
	v, err := parseHex(src.SliceFrom(2).SliceTo(4))
	if err != nil {
		return 0, 0, false
	}
	return v, 6, true
}

func parseHex(data mem.RO) (int64, error) {
	var v int64
	for i := 0; i < data.Len(); i++ {
		b := data.At(i)
		v <<= 4
		if '0' <= b && b <= '9' {
			v += int64(b - '0')
		} else if 'a' <= b && b <= 'f' {
			v += int64(b - 'a' + 10)
		} else if 'A' <= b && b <= 'F' {
			v += int64(b - 'A' + 10)
		} else {
			return 0, fmt.Errorf("invalid hex digit %q", b)
		}
	}
	return v, nil
}
