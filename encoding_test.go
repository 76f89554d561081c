// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package jmend_test

import (
	"errors"
	"testing"

	"github.com/creachadair/jmend"
)

func TestQuote(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"", `""`},
		{"a b c", `"a b c"`},
		{`a "b" c`, `"a \"b\" c"`},
		{"a\tb\nc", `"a\tb\nc"`},
		{"\x00\x01", `"\u0000\u0001"`},
		{"mööse", `"mööse"`},
		{"  ", `"  "`},
	}
	for _, test := range tests {
		if got := jmend.Quote(test.input); got != test.want {
			t.Errorf("Quote(%q): got %#q, want %#q", test.input, got, test.want)
		}
	}
}

func TestUnquote(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{`""`, ""},
		{`"abc"`, "abc"},
		{`'abc'`, "abc"},
		{`'a "b" c'`, `a "b" c`},
		{`"a\nb\tc"`, "a\nb\tc"},
		{`"\"\\\/"`, `"\/`},
		{`"Ab"`, "Ab"},

		// Surrogate pairs combine into a single rune.
		{`"😀"`, "\U0001F600"},
		{`"x𝄞y"`, "x\U0001D11Ey"},
		{`"\ud83d\ude00"`, "\U0001F600"},
		{`"a\ud834\udd1eb"`, "a\U0001D11Eb"},

		// A high surrogate followed by a non-surrogate escape decodes to
		// U+FFFD, and the second escape stands alone.
		{`"\ud83d\u0041"`, "\uFFFDA"},

		// Unpaired surrogate halves decode to U+FFFD.
		{`"\ud83d"`, "�"},
		{`"\ud83d "`, "� "},
		{`"\ude00"`, "�"},
		{`"\ud83dA"`, "�A"},

		// An invalid escape decodes to U+FFFD rather than failing.
		{`"\q"`, "�"},
	}
	for _, test := range tests {
		got, err := jmend.Unquote(test.input)
		if err != nil {
			t.Errorf("Unquote(%#q): unexpected error: %v", test.input, err)
			continue
		}
		if string(got) != test.want {
			t.Errorf("Unquote(%#q): got %q, want %q", test.input, got, test.want)
		}
	}
}

func TestUnquoteUnterminated(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{`"abc`, "abc"},
		{`'abc`, "abc"},
		{`"`, ""},
		{`"a\"`, `a"`}, // closing quote is escaped, so the token is open
	}
	for _, test := range tests {
		got, err := jmend.Unquote(test.input)
		if !errors.Is(err, jmend.ErrUnterminated) {
			t.Errorf("Unquote(%#q): got error %v, want %v", test.input, err, jmend.ErrUnterminated)
		}
		if string(got) != test.want {
			t.Errorf("Unquote(%#q): got %q, want %q", test.input, got, test.want)
		}
	}
}

func TestUnquoteLoose(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{`"abc`, "abc"},
		{`"ab\u123`, "ab"}, // truncated escape is dropped
		{`'partial\n`, "partial\n"},
	}
	for _, test := range tests {
		if got := jmend.UnquoteLoose(test.input); string(got) != test.want {
			t.Errorf("UnquoteLoose(%#q): got %q, want %q", test.input, got, test.want)
		}
	}
}

func TestDecodeName(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"plain", "plain"},
		{"_x$y9", "_x$y9"},
		{`name`, "name"},
	}
	for _, test := range tests {
		if got := jmend.DecodeName(test.input); got != test.want {
			t.Errorf("DecodeName(%q): got %q, want %q", test.input, got, test.want)
		}
	}
}

func TestQuoteUnquoteAgree(t *testing.T) {
	inputs := []string{
		"", "plain", "tab\tnewline\n", `quo"te`, "päron\U0001F600", "\x01\x02",
	}
	for _, input := range inputs {
		got, err := jmend.Unquote(jmend.Quote(input))
		if err != nil {
			t.Errorf("Unquote(Quote(%q)): unexpected error: %v", input, err)
		} else if string(got) != input {
			t.Errorf("Unquote(Quote(%q)): got %q", input, got)
		}
	}
}
