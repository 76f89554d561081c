// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

// Package prep normalizes JSON-like text before tokenization. It handles the
// decorations that commonly wrap machine-generated JSON: markdown code
// fences, comments and trailing commas, byte-order marks, and (in aggressive
// mode) typographic quotation marks. The output is text, not a parse; the
// parsers decide what the normalized text means.
package prep

import (
	"strings"

	"github.com/tailscale/hujson"
)

// Config controls normalization. A nil *Config applies defaults.
type Config struct {
	// Aggressive enables repairs that may alter string contents, such as
	// replacing typographic quotation marks with standard ones.
	Aggressive bool

	// MaxPasses bounds the number of normalization passes. Passes repeat
	// until the text stops changing or the bound is reached. Zero or
	// negative applies the default of 8.
	MaxPasses int
}

func (c *Config) aggressive() bool { return c != nil && c.Aggressive }

func (c *Config) maxPasses() int {
	if c == nil || c.MaxPasses <= 0 {
		return 8
	}
	return c.MaxPasses
}

// Normalize rewrites text into a form the tokenizer handles directly. It is
// a pure text-to-text function: it never fails, and input it cannot improve
// is returned unchanged.
func Normalize(text string, cfg *Config) string {
	cur := text
	for range cfg.maxPasses() {
		next := pass(cur, cfg.aggressive())
		if next == cur {
			break
		}
		cur = next
	}
	return cur
}

func pass(text string, aggressive bool) string {
	out := strings.TrimPrefix(text, "\uFEFF") // byte-order mark
	out = stripFence(out)
	out = standardize(out)
	if aggressive {
		out = replaceSmartQuotes(out)
	}
	return out
}

// stripFence removes one markdown code fence wrapped around the text, as in
// "```json\n{...}\n```".
func stripFence(text string) string {
	body := strings.TrimSpace(text)
	if !strings.HasPrefix(body, "```") {
		return text
	}
	open, rest, ok := strings.Cut(body, "\n")
	if !ok || !strings.HasPrefix(open, "```") {
		return text
	}
	rest = strings.TrimSpace(rest)
	tail := strings.LastIndex(rest, "```")
	if tail < 0 {
		return rest // unterminated fence: keep the body
	}
	return strings.TrimSpace(rest[:tail])
}

// standardize strips comments and trailing commas, leaving standard JSON.
// Input that hujson cannot parse is returned unchanged; its errors are the
// parsers' to report, with positions intact.
func standardize(text string) string {
	if !strings.ContainsAny(text, "/,") {
		return text
	}
	out, err := hujson.Standardize([]byte(text))
	if err != nil {
		return text
	}
	return string(out)
}

var smartQuotes = strings.NewReplacer(
	"“", `"`, // left double quotation mark
	"”", `"`, // right double quotation mark
	"‘", "'", // left single quotation mark
	"’", "'", // right single quotation mark
)

func replaceSmartQuotes(text string) string { return smartQuotes.Replace(text) }
