// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

// Package decode is the top-level entry point for parsing JSON-like text.
// It wires together preprocessing (package prep), tokenization and limits
// (package jmend), the strict tree parser (package ast), and the recovering
// parser (package repair), and chooses between buffered and streaming parse
// paths based on input size and a preprocessing probe.
package decode

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/creachadair/jmend"
	"github.com/creachadair/jmend/ast"
	"github.com/creachadair/jmend/prep"
	"github.com/creachadair/jmend/repair"
)

// A Preprocessor rewrites raw text before tokenization. It must be a pure
// function of its input.
type Preprocessor func(text string, aggressive bool) string

// Options control parsing. A nil *Options is ready for use and provides
// default settings.
type Options struct {
	// Limits to enforce. Nil applies jmend.DefaultLimits.
	Limits *jmend.Limits

	// When true, values of duplicated object keys are coalesced into an
	// array under that key; when false the later value overwrites.
	DuplicateKeys bool

	// Recovery level for Partial. The zero value is repair.Strict; most
	// callers of Partial want repair.BestEffort or repair.ExtractAll.
	Recovery repair.Level

	// When true, preprocessing may alter string contents (see prep.Config).
	Aggressive bool

	// When true, a failed strict parse is retried once after aggressive
	// preprocessing before the error is reported.
	Fallback bool

	// Input size above which Reader attempts the streaming path.
	// Zero applies the default of 1 MiB.
	StreamingThreshold int

	// Whether to attach surrounding source text to syntax errors, and how
	// many bytes of it. MaxErrorContext zero applies the default of 40.
	IncludePosition bool
	MaxErrorContext int

	// Preprocess replaces the default preprocessing step (prep.Normalize).
	Preprocess Preprocessor
}

func (o *Options) limits() *jmend.Limits {
	if o == nil {
		return nil
	}
	return o.Limits
}

func (o *Options) collect() bool    { return o != nil && o.DuplicateKeys }
func (o *Options) aggressive() bool { return o != nil && o.Aggressive }
func (o *Options) fallback() bool   { return o != nil && o.Fallback }

func (o *Options) recovery() repair.Level {
	if o == nil {
		return repair.BestEffort
	}
	return o.Recovery
}

func (o *Options) threshold() int {
	if o == nil || o.StreamingThreshold <= 0 {
		return 1 << 20
	}
	return o.StreamingThreshold
}

func (o *Options) errorContext() int {
	if o == nil || !o.IncludePosition {
		return 0
	}
	if o.MaxErrorContext <= 0 {
		return 40
	}
	return o.MaxErrorContext
}

func (o *Options) preprocess(text string, aggressive bool) string {
	if o != nil && o.Preprocess != nil {
		return o.Preprocess(text, aggressive)
	}
	var mp int
	if lim := o.limits(); lim != nil {
		mp = lim.MaxPreprocessing
	}
	return prep.Normalize(text, &prep.Config{Aggressive: aggressive, MaxPasses: mp})
}

func (o *Options) astOptions() *ast.Options {
	return &ast.Options{Limits: o.limits(), CollectDuplicates: o.collect()}
}

// Text parses a complete in-memory document through the strict path:
// preprocess, tokenize, and build a value tree, failing on the first
// structural violation. When Fallback is enabled and the first attempt fails
// with a syntax error, the original input is preprocessed once more in
// aggressive mode and parsed again before the error is reported.
func Text(input string, opts *Options) (ast.Value, error) {
	lim := jmend.NewLimiter(opts.limits())
	if err := lim.CheckInputSize(len(input)); err != nil {
		return nil, err
	}

	clean := opts.preprocess(input, opts.aggressive())
	v, err := parseStrict(clean, opts)
	if err == nil {
		return v, nil
	}

	var syn *jmend.SyntaxError
	if opts.fallback() && !opts.aggressive() && errors.As(err, &syn) {
		retry := opts.preprocess(input, true)
		if retry != clean {
			if v, rerr := parseStrict(retry, opts); rerr == nil {
				return v, nil
			}
		}
	}
	return nil, decorate(err, clean, opts)
}

func parseStrict(clean string, opts *Options) (ast.Value, error) {
	lim := jmend.NewLimiter(opts.limits())
	toks, err := jmend.Tokenize(clean, lim)
	if err != nil {
		return nil, err
	}
	return ast.ParseTokens(toks, opts.astOptions())
}

// Partial parses a complete in-memory document through the recovering path,
// returning the most complete value tree reconstructible plus a catalogue of
// every compromise made. It reports an error only for a resource-limit
// violation.
func Partial(input string, opts *Options) (*repair.Outcome, error) {
	lim := jmend.NewLimiter(opts.limits())
	if err := lim.CheckInputSize(len(input)); err != nil {
		return nil, err
	}

	clean := opts.preprocess(input, opts.aggressive())
	toks, err := jmend.Tokenize(clean, jmend.NewLimiter(opts.limits()))
	if err != nil {
		return nil, err
	}
	return repair.Parse(toks, &repair.Options{
		Level:             opts.recovery(),
		Limits:            opts.limits(),
		CollectDuplicates: opts.collect(),
	})
}

// Reader parses a single document from r. Inputs no larger than the
// streaming threshold are buffered and handled as Text. For larger inputs
// Reader probes whether streaming is viable: it preprocesses a leading
// sample and compares the result byte for byte with the original. If
// preprocessing changes nothing, the document is parsed incrementally and
// the full input is never held in memory; otherwise the input is buffered,
// preprocessed whole, and parsed as Text.
func Reader(r io.Reader, opts *Options) (ast.Value, error) {
	// The sample is the full threshold: the bytes are read in either case to
	// decide between paths, so a shorter probe would not save any I/O.
	threshold := opts.threshold()
	sample := make([]byte, threshold)
	n, err := io.ReadFull(r, sample)
	sample = sample[:n]
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		// The whole input fit in the sample.
		return Text(string(sample), opts)
	} else if err != nil {
		return nil, err
	}

	if !streamViable(string(sample), opts) {
		return bufferAll(sample, r, opts)
	}

	// Streaming path: rewind the sample and parse incrementally.
	src := io.MultiReader(bytes.NewReader(sample), r)
	return ast.ParseSingle(src, opts.astOptions())
}

// streamViable reports whether preprocessing would leave the leading sample
// unchanged, meaning the tokenizer can consume the raw stream directly.
func streamViable(sample string, opts *Options) bool {
	return opts.preprocess(sample, opts.aggressive()) == sample
}

// bufferAll reads the remainder of r, preprocesses the entire input, and
// parses it as Text. The input-size limit is enforced while reading so an
// unbounded source cannot exhaust memory.
func bufferAll(sample []byte, r io.Reader, opts *Options) (ast.Value, error) {
	maxSize := jmend.NewLimiter(opts.limits()).Limits().MaxInputSize

	var sb strings.Builder
	sb.Write(sample)
	if _, err := io.Copy(&sb, io.LimitReader(r, int64(maxSize-len(sample))+1)); err != nil {
		return nil, err
	}
	if sb.Len() > maxSize {
		return nil, &jmend.SecurityError{Check: "input size", Value: sb.Len(), Max: maxSize}
	}
	return Text(sb.String(), opts)
}

// decorate attaches source context to a syntax error when requested.
func decorate(err error, src string, opts *Options) error {
	width := opts.errorContext()
	if width == 0 {
		return err
	}
	var syn *jmend.SyntaxError
	if !errors.As(err, &syn) {
		return err
	}
	syn.Context = excerpt(src, syn.Location, width)
	return err
}

// excerpt returns up to width bytes of src surrounding the given position.
func excerpt(src string, pos jmend.LineCol, width int) string {
	off := offsetOf(src, pos)
	lo := max(off-width/2, 0)
	hi := min(lo+width, len(src))
	var sb strings.Builder
	if lo > 0 {
		sb.WriteString("...")
	}
	sb.WriteString(src[lo:hi])
	if hi < len(src) {
		sb.WriteString("...")
	}
	return sb.String()
}

// offsetOf converts a line/column position back to a byte offset in src.
func offsetOf(src string, pos jmend.LineCol) int {
	line := 1
	for off := 0; off < len(src); off++ {
		if line == pos.Line {
			return min(off+pos.Column-1, len(src))
		}
		if src[off] == '\n' {
			line++
		}
	}
	return len(src)
}

// Describe renders err for presentation: syntax errors include their
// position, suggestion, and context when available.
func Describe(err error) string {
	var syn *jmend.SyntaxError
	if errors.As(err, &syn) && syn.Context != "" {
		return fmt.Sprintf("%s near %q", syn.Error(), syn.Context)
	}
	return err.Error()
}
