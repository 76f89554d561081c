// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

// Package ast defines an abstract syntax tree for JSON values, and a strict
// parser that constructs syntax trees from token sequences or streams.
package ast

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/creachadair/jmend"
)

// A Value is an arbitrary JSON value.
type Value interface {
	Span() jmend.Span

	// JSON renders the value as compact JSON text.
	JSON() string
}

// A Datum is a Value with a source text representation.
type Datum interface {
	Value
	Text() string
}

func newSpan(pos, end int) jmend.Span { return jmend.Span{Pos: pos, End: end} }

// An Object is a collection of key-value members. Member order is the order
// of first appearance in the source.
type Object struct {
	pos, end int

	Members []*Member
}

// Span satisfies the Value interface.
func (o *Object) Span() jmend.Span { return newSpan(o.pos, o.end) }

// JSON satisfies the Value interface.
func (o *Object) JSON() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, m := range o.Members {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(jmend.Quote(m.Key))
		sb.WriteByte(':')
		sb.WriteString(m.Value.JSON())
	}
	sb.WriteByte('}')
	return sb.String()
}

// Find returns the first member of o with the given key, or nil.
func (o *Object) Find(key string) *Member {
	for _, m := range o.Members {
		if m.Key == key {
			return m
		}
	}
	return nil
}

// Len reports the number of members of o.
func (o *Object) Len() int { return len(o.Members) }

// Put stores v under key. An existing member with the same key is
// overwritten unless collect is true, in which case the values for the key
// are coalesced into an Array in order of appearance.
func (o *Object) Put(key string, v Value, collect bool) {
	m := o.Find(key)
	if m == nil {
		o.Members = append(o.Members, &Member{Key: key, Value: v})
		return
	}
	if !collect {
		m.Value = v
		return
	}
	if arr, ok := m.Value.(*Array); ok && m.coalesced {
		arr.Values = append(arr.Values, v)
		return
	}
	m.Value = &Array{Values: []Value{m.Value, v}}
	m.coalesced = true
}

// A Member is a single key-value pair belonging to an Object.
type Member struct {
	pos, end int

	Key   string
	Value Value

	coalesced bool // Value is an Array built from duplicate keys
}

// Span satisfies the Value interface.
func (m *Member) Span() jmend.Span { return newSpan(m.pos, m.end) }

// JSON satisfies the Value interface.
func (m *Member) JSON() string { return jmend.Quote(m.Key) + ":" + m.Value.JSON() }

// An Array is a sequence of values.
type Array struct {
	pos, end int

	Values []Value
}

// Span satisfies the Value interface.
func (a *Array) Span() jmend.Span { return newSpan(a.pos, a.end) }

// JSON satisfies the Value interface.
func (a *Array) JSON() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range a.Values {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(v.JSON())
	}
	sb.WriteByte(']')
	return sb.String()
}

// Len reports the number of elements of a.
func (a *Array) Len() int { return len(a.Values) }

type datum struct {
	pos, end int
	text     string
}

// Span satisfies the Value interface.
func (d datum) Span() jmend.Span { return newSpan(d.pos, d.end) }

// Text satisfies the Datum interface.
func (d datum) Text() string { return d.text }

// An Integer is an integer value.
type Integer struct{ datum }

// NewInteger constructs an Integer with the value z.
func NewInteger(z int64) *Integer {
	return &Integer{datum: datum{text: strconv.FormatInt(z, 10)}}
}

// Int64 returns the value of z as an int64. It panics if the text of z does
// not encode a representable integer.
func (z *Integer) Int64() int64 {
	v, err := strconv.ParseInt(z.text, 10, 64)
	if err != nil {
		panic(err)
	}
	return v
}

// JSON satisfies the Value interface.
func (z *Integer) JSON() string { return z.text }

// A Number is a floating-point value.
type Number struct{ datum }

// NewNumber constructs a Number with the value f.
func NewNumber(f float64) *Number {
	return &Number{datum: datum{text: strconv.FormatFloat(f, 'g', -1, 64)}}
}

// Float64 returns the value of n as a float64. It panics if the text of n
// does not encode a representable number. The texts "Infinity", "-Infinity",
// and "NaN" encode the corresponding IEEE values.
func (n *Number) Float64() float64 {
	v, err := strconv.ParseFloat(n.text, 64)
	if err != nil {
		panic(err)
	}
	return v
}

// JSON satisfies the Value interface.
func (n *Number) JSON() string { return n.text }

// A Bool is a Boolean constant, true or false.
type Bool struct {
	datum
	value bool
}

// NewBool constructs a Bool with the given value.
func NewBool(ok bool) *Bool {
	return &Bool{datum: datum{text: strconv.FormatBool(ok)}, value: ok}
}

// Value reports the truth value of b.
func (b *Bool) Value() bool { return b.value }

// JSON satisfies the Value interface.
func (b *Bool) JSON() string { return strconv.FormatBool(b.value) }

// A String is a string value. Its content is fully decoded: escape
// sequences from the source are already resolved.
type String struct {
	datum
	value string
}

// NewString constructs a String with the given content.
func NewString(s string) *String { return &String{value: s} }

// Value returns the decoded content of s.
func (s *String) Value() string { return s.value }

// JSON satisfies the Value interface.
func (s *String) JSON() string { return jmend.Quote(s.value) }

// Null represents the null constant.
type Null struct{ datum }

// NewNull constructs a Null.
func NewNull() *Null { return &Null{datum: datum{text: "null"}} }

// JSON satisfies the Value interface.
func (*Null) JSON() string { return "null" }

// ToValue converts a string, int, int64, float64, bool, nil, or Value into a
// Value. It panics if v does not have one of those types.
func ToValue(v any) Value {
	switch t := v.(type) {
	case Value:
		return t
	case string:
		return NewString(t)
	case int:
		return NewInteger(int64(t))
	case int64:
		return NewInteger(t)
	case float64:
		return NewNumber(t)
	case bool:
		return NewBool(t)
	case nil:
		return NewNull()
	}
	panic(fmt.Sprintf("no conversion for %T", v))
}
