// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package jmend

import "fmt"

// A Span describes a contiguous span of a source input.
type Span struct {
	Pos int // the start offset, 0-based
	End int // the end offset, 0-based (noninclusive)
}

// A LineCol describes the line number and column of a location in source
// text. Both values are 1-based; a newline advances Line and resets Column.
type LineCol struct {
	Line   int // line number, 1-based
	Column int // column number in the line, 1-based
}

func (lc LineCol) String() string { return fmt.Sprintf("%d:%d", lc.Line, lc.Column) }

// A Location describes the complete location of a range of source text,
// including line and column offsets.
type Location struct {
	Span
	First, Last LineCol
}

func (loc Location) String() string { return loc.First.String() }
