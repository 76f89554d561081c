// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package jmend

// Limits is a set of resource ceilings enforced during scanning and parsing.
// The zero value of any field means "use the default for that field"; use
// DefaultLimits for a fully-populated set. Limits values are read-only once
// handed to a Limiter and may be shared freely.
type Limits struct {
	MaxInputSize     int // maximum input size in bytes
	MaxStringLength  int // maximum encoded length of a single string token
	MaxNumberLength  int // maximum length of a single number token
	MaxDepth         int // maximum nesting depth of objects and arrays
	MaxObjectKeys    int // maximum number of members in one object
	MaxArrayItems    int // maximum number of elements in one array
	MaxTotalItems    int // maximum number of values in one document
	MaxPreprocessing int // maximum preprocessing passes over the input
}

// DefaultLimits returns a Limits with generous but finite defaults, suitable
// for ordinary documents while still bounding adversarial input.
func DefaultLimits() *Limits {
	return &Limits{
		MaxInputSize:     64 << 20,
		MaxStringLength:  1 << 20,
		MaxNumberLength:  128,
		MaxDepth:         128,
		MaxObjectKeys:    1 << 16,
		MaxArrayItems:    1 << 20,
		MaxTotalItems:    1 << 22,
		MaxPreprocessing: 8,
	}
}

func (lim *Limits) fill() Limits {
	def := DefaultLimits()
	out := *def
	if lim == nil {
		return out
	}
	pick := func(dst *int, v int) {
		if v > 0 {
			*dst = v
		}
	}
	pick(&out.MaxInputSize, lim.MaxInputSize)
	pick(&out.MaxStringLength, lim.MaxStringLength)
	pick(&out.MaxNumberLength, lim.MaxNumberLength)
	pick(&out.MaxDepth, lim.MaxDepth)
	pick(&out.MaxObjectKeys, lim.MaxObjectKeys)
	pick(&out.MaxArrayItems, lim.MaxArrayItems)
	pick(&out.MaxTotalItems, lim.MaxTotalItems)
	pick(&out.MaxPreprocessing, lim.MaxPreprocessing)
	return out
}

// A Limiter enforces a Limits policy for a single parse call.  Its counters
// are stateful: construct a fresh Limiter per call and do not share one
// across concurrent calls. All check methods report a *SecurityError when
// the corresponding ceiling is exceeded.
type Limiter struct {
	limits Limits
	depth  int // current structure nesting depth
	items  int // total values seen so far
}

// NewLimiter constructs a Limiter enforcing lim. A nil lim is replaced by
// DefaultLimits; absence of configuration never disables validation.
func NewLimiter(lim *Limits) *Limiter {
	return &Limiter{limits: lim.fill()}
}

// Limits returns the effective limits enforced by v.
func (v *Limiter) Limits() Limits { return v.limits }

// CheckInputSize reports whether an input of n bytes is permitted.
func (v *Limiter) CheckInputSize(n int) error {
	return v.check("input size", n, v.limits.MaxInputSize)
}

// CheckStringLength reports whether a string token of n bytes is permitted.
func (v *Limiter) CheckStringLength(n int) error {
	return v.check("string length", n, v.limits.MaxStringLength)
}

// CheckNumberLength reports whether a number token of n bytes is permitted.
func (v *Limiter) CheckNumberLength(n int) error {
	return v.check("number length", n, v.limits.MaxNumberLength)
}

// EnterStructure records entry into an object or array, reporting an error if
// the nesting depth limit is exceeded. Each successful call must be paired
// with a call to ExitStructure.
func (v *Limiter) EnterStructure() error {
	v.depth++
	return v.check("nesting depth", v.depth, v.limits.MaxDepth)
}

// ExitStructure records leaving the structure most recently entered.
func (v *Limiter) ExitStructure() {
	if v.depth > 0 {
		v.depth--
	}
}

// Depth reports the current structure nesting depth.
func (v *Limiter) Depth() int { return v.depth }

// CheckObjectKeys reports whether an object of n members is permitted.
// Call it as each member is added, so that an oversized object is rejected
// when the offending key arrives rather than at the end of the parse.
func (v *Limiter) CheckObjectKeys(n int) error {
	return v.check("object keys", n, v.limits.MaxObjectKeys)
}

// CheckArrayItems reports whether an array of n elements is permitted.
func (v *Limiter) CheckArrayItems(n int) error {
	return v.check("array items", n, v.limits.MaxArrayItems)
}

// CountItem records one more value in the document.
func (v *Limiter) CountItem() error {
	v.items++
	return v.check("total items", v.items, v.limits.MaxTotalItems)
}

func (v *Limiter) check(name string, value, max int) error {
	if value > max {
		return &SecurityError{Check: name, Value: value, Max: max}
	}
	return nil
}
