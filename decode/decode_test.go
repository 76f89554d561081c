// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package decode_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/creachadair/jmend"
	"github.com/creachadair/jmend/decode"
	"github.com/creachadair/jmend/repair"
)

func TestText(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`{"a": 1, "b": [true, null]}`, `{"a":1,"b":[true,null]}`},
		{`"hello"`, `"hello"`},
		{"```json\n[1, 2]\n```", `[1,2]`},
		{"\uFEFF{\"a\": 1}", `{"a":1}`},
		{`{"a": 1, /* note */ "b": 2,}`, `{"a":1,"b":2}`},
	}
	for _, test := range tests {
		v, err := decode.Text(test.input, nil)
		if err != nil {
			t.Errorf("Input: %#q\nText failed: %v", test.input, err)
			continue
		}
		if got := v.JSON(); got != test.want {
			t.Errorf("Input: %#q\nJSON: got %#q, want %#q", test.input, got, test.want)
		}
	}
}

func TestTextErrors(t *testing.T) {
	for _, input := range []string{`{`, `[1, 2`, `"no close`, ``} {
		_, err := decode.Text(input, nil)
		var syn *jmend.SyntaxError
		if !errors.As(err, &syn) {
			t.Errorf("Input: %#q: got error %v, want *SyntaxError", input, err)
		}
	}
}

func TestTextFallback(t *testing.T) {
	// Typographic quotes around a top-level string defeat the strict parse,
	// but aggressive preprocessing repairs them.
	const input = `“hello”`

	if _, err := decode.Text(input, nil); err == nil {
		t.Error("Text without fallback did not report an error")
	}

	v, err := decode.Text(input, &decode.Options{Fallback: true})
	if err != nil {
		t.Fatalf("Text with fallback failed: %v", err)
	}
	if got, want := v.JSON(), `"hello"`; got != want {
		t.Errorf("JSON: got %#q, want %#q", got, want)
	}
}

func TestTextErrorContext(t *testing.T) {
	const input = `{"a": 1 "b": 2}`

	_, err := decode.Text(input, &decode.Options{IncludePosition: true})
	var syn *jmend.SyntaxError
	if !errors.As(err, &syn) {
		t.Fatalf("Text: got error %v, want *SyntaxError", err)
	}
	if syn.Context == "" {
		t.Error("SyntaxError has no context")
	} else if !strings.Contains(input, strings.Trim(syn.Context, ".")) {
		t.Errorf("Context %#q is not an excerpt of the input", syn.Context)
	}
	if !strings.Contains(decode.Describe(err), "near") {
		t.Errorf("Describe: got %#q, want source context", decode.Describe(err))
	}
}

func TestTextLimits(t *testing.T) {
	_, err := decode.Text(`[1, 2, 3]`, &decode.Options{Limits: &jmend.Limits{MaxInputSize: 4}})
	var sec *jmend.SecurityError
	if !errors.As(err, &sec) {
		t.Fatalf("Text: got error %v, want *SecurityError", err)
	}
	if sec.Check != "input size" {
		t.Errorf("SecurityError check: got %q, want input size", sec.Check)
	}
}

func TestPartial(t *testing.T) {
	out, err := decode.Partial(`{a: 'x', b: 1,}`, &decode.Options{Recovery: repair.BestEffort})
	if err != nil {
		t.Fatalf("Partial failed: %v", err)
	}
	if got, want := out.Data.JSON(), `{"a":"x","b":1}`; got != want {
		t.Errorf("Data: got %#q, want %#q", got, want)
	}
	if out.SuccessRate != 100 {
		t.Errorf("Success rate: got %v, want 100", out.SuccessRate)
	}

	out, err = decode.Partial(`[1, , 3]`, &decode.Options{Recovery: repair.ExtractAll})
	if err != nil {
		t.Fatalf("Partial failed: %v", err)
	}
	if got, want := out.Data.JSON(), `[1,null,3]`; got != want {
		t.Errorf("Data: got %#q, want %#q", got, want)
	}
}

func TestDuplicateKeys(t *testing.T) {
	const input = `{"a": 1, "a": 2, "b": 3}`

	// By default the last value for a key wins.
	v, err := decode.Text(input, nil)
	if err != nil {
		t.Fatalf("Text failed: %v", err)
	}
	if got, want := v.JSON(), `{"a":2,"b":3}`; got != want {
		t.Errorf("Overwrite: got %#q, want %#q", got, want)
	}

	// With DuplicateKeys set, repeated values coalesce into an array.
	v, err = decode.Text(input, &decode.Options{DuplicateKeys: true})
	if err != nil {
		t.Fatalf("Text failed: %v", err)
	}
	if got, want := v.JSON(), `{"a":[1,2],"b":3}`; got != want {
		t.Errorf("Collect: got %#q, want %#q", got, want)
	}
}

func TestReaderSmall(t *testing.T) {
	// Input below the streaming threshold is buffered and takes the Text
	// path, preprocessing included.
	v, err := decode.Reader(strings.NewReader("```json\n{\"a\": 1}\n```"), nil)
	if err != nil {
		t.Fatalf("Reader failed: %v", err)
	}
	if got, want := v.JSON(), `{"a":1}`; got != want {
		t.Errorf("JSON: got %#q, want %#q", got, want)
	}
}

func TestReaderStreaming(t *testing.T) {
	// Clean input larger than the threshold takes the incremental path: the
	// leading sample is unchanged by preprocessing, so the rest of the input
	// is parsed directly from the reader.
	var sb strings.Builder
	sb.WriteString("[")
	for i := range 1000 {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(`{"seq": 1}`)
	}
	sb.WriteString("]")
	input := sb.String()

	v, err := decode.Reader(strings.NewReader(input), &decode.Options{StreamingThreshold: 64})
	if err != nil {
		t.Fatalf("Reader failed: %v", err)
	}
	arr, ok := v.(interface{ Len() int })
	if !ok {
		t.Fatalf("Result is %T, want an array", v)
	}
	if got := arr.Len(); got != 1000 {
		t.Errorf("Len: got %d, want 1000", got)
	}
}

func TestReaderBuffered(t *testing.T) {
	// A byte-order mark in the sample means preprocessing changes the text,
	// so the input must be buffered and cleaned before parsing.
	var sb strings.Builder
	sb.WriteString("\uFEFF[")
	for i := range 100 {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("0")
	}
	sb.WriteString("]")

	v, err := decode.Reader(strings.NewReader(sb.String()), &decode.Options{StreamingThreshold: 64})
	if err != nil {
		t.Fatalf("Reader failed: %v", err)
	}
	if got := v.(interface{ Len() int }).Len(); got != 100 {
		t.Errorf("Len: got %d, want 100", got)
	}
}

func TestCustomPreprocessor(t *testing.T) {
	// A custom preprocessor replaces the default pipeline entirely.
	opts := &decode.Options{
		Preprocess: func(text string, aggressive bool) string {
			return strings.ReplaceAll(text, ";", ",")
		},
	}
	v, err := decode.Text(`[1; 2; 3]`, opts)
	if err != nil {
		t.Fatalf("Text failed: %v", err)
	}
	if got, want := v.JSON(), `[1,2,3]`; got != want {
		t.Errorf("JSON: got %#q, want %#q", got, want)
	}
}
