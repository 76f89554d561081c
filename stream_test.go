// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package jmend_test

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/creachadair/jmend"
	"github.com/google/go-cmp/cmp"
)

func TestStream(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "."},
		{"   ", "."},
		{"\n \n", "."},

		{"true false null", `
Value true <true>
Value false <false>
Value null <null>
.`},

		{`0 5 -6.32 0.1e-2`, `
Value integer <0>
Value integer <5>
Value number <-6.32>
Value number <0.1e-2>
.`},

		{`"" "a b c" 'single'`, `
Value string <"">
Value string <"a b c">
Value string <'single'>
.`},

		// Bare words are delivered as identifier values; it is the handler's
		// business to interpret or reject them.
		{`Infinity -Infinity NaN`, `
Value identifier <Infinity>
Value identifier <-Infinity>
Value identifier <NaN>
.`},

		{`{}`, "BeginObject\nEndObject\n."},

		{`{"a":15}`, `
BeginObject
BeginMember <"a">
Value integer <15>
EndMember "}"
EndObject
.`},

		// Unquoted keys are allowed.
		{`{a: 1}`, `
BeginObject
BeginMember <a>
Value integer <1>
EndMember "}"
EndObject
.`},

		// Constant words are ordinary names in key position.
		{`{true: 1, null: 2}`, `
BeginObject
BeginMember <true>
Value integer <1>
EndMember ","
BeginMember <null>
Value integer <2>
EndMember "}"
EndObject
.`},

		{`{"x":null, "y":[true]}`, `
BeginObject
BeginMember <"x">
Value null <null>
EndMember ","
BeginMember <"y">
BeginArray
Value true <true>
EndArray
EndMember "}"
EndObject
.`},

		{`[]`, "BeginArray\nEndArray\n."},
	}

	for _, test := range tests {
		st := jmend.NewStream(strings.NewReader(test.input))
		th := new(testHandler)
		if err := st.Parse(th); err != nil {
			t.Errorf("Parse failed: %v", err)
		}

		if diff := diffStrings(test.want, th.output()); diff != "" {
			t.Errorf("Input: %#q\nOutput: (-want, +got)\n%s", test.input, diff)
		}
	}
}

func TestStreamErrors(t *testing.T) {
	tests := []struct {
		input string
		want  string
		estr  string
	}{
		// Various kinds of unbalanced object bits.
		{`{`, `BeginObject`,
			`at 1:2: expected "}", string, identifier, true, false or null, got EOF`},
		{`}`, ``, `at 1:1: unexpected "}"`},
		{`{25:1}`, `BeginObject`,
			`at 1:2: expected "}", string, identifier, true, false or null, got integer`},
		{`{"true":}`, `
BeginObject
BeginMember <"true">`,
			`at 1:9: unexpected "}"`},
		{`{"true":1,`, `
BeginObject
BeginMember <"true">
Value integer <1>
EndMember ","`,
			`at 1:11: expected string, identifier, true, false or null, got EOF`},

		// Unbalanced array bits.
		{`[`, `BeginArray`,
			`at 1:2: EOF`},
		{`]`, ``, `at 1:1: unexpected "]"`},
		{`[15,`, `
BeginArray
Value integer <15>`,
			`at 1:5: EOF`},
		{`[15,]`, `
BeginArray
Value integer <15>`,
			`at 1:5: unexpected "]"`},

		// Misplaced punctuation.
		{`:`, ``, `at 1:1: unexpected ":"`},
		{`,`, ``, `at 1:1: unexpected ","`},
	}

	for _, test := range tests {
		st := jmend.NewStream(strings.NewReader(test.input))
		th := new(testHandler)
		err := st.Parse(th)
		if err == nil {
			t.Errorf("Input: %#q: Parse did not report an error", test.input)
			continue
		}

		if diff := diffStrings(test.want, th.output()); diff != "" {
			t.Errorf("Input: %#q\nOutput: (-want, +got)\n%s", test.input, diff)
		}
		if diff := diffStrings(test.estr, err.Error()); diff != "" {
			t.Errorf("Input: %#q\nError: (-want, +got)\n%s", test.input, diff)
		}
	}
}

func TestStreamTrailingCommas(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`[15,]`, `
BeginArray
Value integer <15>
EndArray
.`},
		{`{"a":1,}`, `
BeginObject
BeginMember <"a">
Value integer <1>
EndMember ","
EndObject
.`},
	}
	for _, test := range tests {
		st := jmend.NewStream(strings.NewReader(test.input))
		st.AllowTrailingCommas(true)
		th := new(testHandler)
		if err := st.Parse(th); err != nil {
			t.Errorf("Parse failed: %v", err)
		}
		if diff := diffStrings(test.want, th.output()); diff != "" {
			t.Errorf("Input: %#q\nOutput: (-want, +got)\n%s", test.input, diff)
		}
	}
}

func TestStreamLimits(t *testing.T) {
	tests := []struct {
		input  string
		limits *jmend.Limits
		check  string
	}{
		{strings.Repeat("[", 5) + strings.Repeat("]", 5),
			&jmend.Limits{MaxDepth: 3}, "nesting depth"},
		{`[1,2,3,4,5]`, &jmend.Limits{MaxTotalItems: 3}, "total items"},
		{`{"a":1,"b":2,"c":3}`, &jmend.Limits{MaxObjectKeys: 2}, "object keys"},
		{`[1,2,3,4]`, &jmend.Limits{MaxArrayItems: 3}, "array items"},
	}
	for _, test := range tests {
		st := jmend.NewStream(strings.NewReader(test.input))
		st.SetLimiter(jmend.NewLimiter(test.limits))
		err := st.Parse(new(testHandler))
		var sec *jmend.SecurityError
		if !asSecurity(err, &sec) {
			t.Errorf("Input: %#q: got error %v, want *SecurityError", test.input, err)
			continue
		}
		if sec.Check != test.check {
			t.Errorf("Input: %#q: failed check %q, want %q", test.input, sec.Check, test.check)
		}
	}
}

// A Stream must not require the whole input up front: it reads through the
// scanner's buffered lookahead one token at a time.
func TestStreamIncremental(t *testing.T) {
	const input = `{"outer": [1, {"inner": "value"}, null]}`
	st := jmend.NewStream(iotest.OneByteReader(strings.NewReader(input)))
	th := new(testHandler)
	if err := st.Parse(th); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	const want = `
BeginObject
BeginMember <"outer">
BeginArray
Value integer <1>
BeginObject
BeginMember <"inner">
Value string <"value">
EndMember "}"
EndObject
Value null <null>
EndArray
EndMember "}"
EndObject
.`
	if diff := diffStrings(want, th.output()); diff != "" {
		t.Errorf("Output: (-want, +got)\n%s", diff)
	}
}

func TestParseOne(t *testing.T) {
	const input = `{ "love": true } [] "ok"`
	const want = `
BeginObject
BeginMember <"love">
Value true <true>
EndMember "}"
EndObject
---
BeginArray
EndArray
---
Value string <"ok">
---
.`
	th := new(testHandler)

	st := jmend.NewStream(strings.NewReader(input))
	for {
		err := st.ParseOne(th)
		if err == io.EOF {
			break
		} else if err != nil {
			t.Fatalf("ParseOne failed: %v", err)
		}
		th.pr("---")
	}

	if diff := diffStrings(want, th.output()); diff != "" {
		t.Errorf("Input: %#q\nOutput: (-want, +got)\n%s", input, diff)
	}
}

func diffStrings(want, got string) string {
	return cmp.Diff(strings.Split(strings.TrimSpace(want), "\n"),
		strings.Split(strings.TrimSpace(got), "\n"))
}

type testHandler struct {
	buf bytes.Buffer
}

func (t *testHandler) pr(msg string, args ...any) {
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	fmt.Fprintf(&t.buf, msg, args...)
}

func (t *testHandler) output() string { return t.buf.String() }

func (t *testHandler) BeginObject(loc jmend.Anchor) error { t.pr("BeginObject"); return nil }
func (t *testHandler) EndObject(loc jmend.Anchor) error   { t.pr("EndObject"); return nil }
func (t *testHandler) BeginArray(loc jmend.Anchor) error  { t.pr("BeginArray"); return nil }
func (t *testHandler) EndArray(loc jmend.Anchor) error    { t.pr("EndArray"); return nil }
func (t *testHandler) EndOfInput(loc jmend.Anchor)        { t.pr(".") }

func (t *testHandler) BeginMember(loc jmend.Anchor) error {
	t.pr("BeginMember <%s>", string(loc.Text()))
	return nil
}

func (t *testHandler) EndMember(loc jmend.Anchor) error {
	t.pr("EndMember %s", loc.Token())
	return nil
}

func (t *testHandler) Value(loc jmend.Anchor) error {
	t.pr(`Value %s <%s>`, loc.Token(), string(loc.Text()))
	return nil
}
