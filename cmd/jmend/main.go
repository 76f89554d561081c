// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

// Program jmend parses malformed JSON-like input and reports either a clean
// rendering of the parsed value or a catalogue of the problems found.
//
// By default input is parsed strictly with one aggressive-preprocessing
// retry; with --partial the recovering parser is used instead and every
// diagnostic is written to stderr.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
	"github.com/creachadair/jmend"
	"github.com/creachadair/jmend/decode"
	"github.com/creachadair/jmend/repair"
)

var cli struct {
	Input string `arg:"" optional:"" help:"Path to the input file. Reads stdin if omitted." type:"path"`

	Partial bool   `help:"Recover as much structure as possible instead of failing on the first error." short:"p"`
	Level   string `help:"Recovery level for --partial (strict, skip_fields, best_effort, extract_all)." default:"best_effort"`

	Aggressive bool `help:"Allow preprocessing fixes that may alter string contents." short:"a"`
	NoFallback bool `help:"Disable the aggressive-preprocessing retry after a strict parse failure."`
	Collect    bool `help:"Merge values of duplicated object keys into arrays instead of overwriting." short:"c"`
	Quiet      bool `help:"Suppress diagnostics on stderr; report only the summary line." short:"q"`

	MaxInput int `help:"Maximum input size in bytes (0 = default)." placeholder:"N"`
	MaxDepth int `help:"Maximum nesting depth (0 = default)." placeholder:"N"`
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Name("jmend"),
		kong.Description("Parse and repair malformed JSON."),
		kong.UsageOnError(),
	)
	kctx.FatalIfErrorf(run())
}

func run() error {
	input, err := readInput()
	if err != nil {
		return err
	}
	opts := &decode.Options{
		Limits: &jmend.Limits{
			MaxInputSize: cli.MaxInput,
			MaxDepth:     cli.MaxDepth,
		},
		DuplicateKeys:   cli.Collect,
		Aggressive:      cli.Aggressive,
		Fallback:        !cli.NoFallback,
		IncludePosition: true,
	}

	if cli.Partial {
		return runPartial(input, opts)
	}
	v, err := decode.Text(input, opts)
	if err != nil {
		return fmt.Errorf("parse: %s", decode.Describe(err))
	}
	fmt.Println(v.JSON())
	return nil
}

func runPartial(input string, opts *decode.Options) error {
	level, err := repair.ParseLevel(cli.Level)
	if err != nil {
		return err
	}
	opts.Recovery = level

	out, err := decode.Partial(input, opts)
	if err != nil {
		return fmt.Errorf("parse: %s", decode.Describe(err))
	}
	if !cli.Quiet {
		for _, d := range out.Diagnostics() {
			fmt.Fprintln(os.Stderr, d)
		}
	}
	fmt.Fprintf(os.Stderr, "recovered %d of %d fields (%.1f%%), %d errors, %d warnings\n",
		out.SuccessfulFields, out.TotalFields, out.SuccessRate,
		len(out.Errors), len(out.Warnings))

	if out.Data != nil {
		fmt.Println(out.Data.JSON())
	}
	if len(out.Errors) != 0 && level == repair.Strict {
		os.Exit(1)
	}
	return nil
}

func readInput() (string, error) {
	if cli.Input != "" {
		data, err := os.ReadFile(cli.Input)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}
