// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package dynamic

import (
	"errors"
	"sync"

	"github.com/zclconf/go-cty/cty"
)

// AccessMode describes whether a value may be mutated in place.
type AccessMode uint8

const (
	// ReadWrite values may be replaced or mutated in place.
	ReadWrite AccessMode = iota
	// ReadOnly values may only be shadowed or dropped.
	ReadOnly
)

// String implements fmt.Stringer.
func (m AccessMode) String() string {
	if m == ReadOnly {
		return "read-only"
	}
	return "read-write"
}

// ErrAlreadyBorrowed is returned when a shared value is borrowed exclusively
// while another exclusive borrow of the same cell is still active.
var ErrAlreadyBorrowed = errors.New("shared value is already exclusively borrowed")

// cell is the backing store of a shared value. All Values created from the
// same Share call point at the same cell.
type cell struct {
	mu       sync.Mutex
	val      cty.Value
	borrowed bool
}

// Value is the dynamic value type. The zero Value is equivalent to Unit().
type Value struct {
	val  cty.Value
	cell *cell
	mode AccessMode
}

var unit = cty.NullVal(cty.DynamicPseudoType)

// Unit returns the empty placeholder value.
func Unit() Value {
	return Value{val: unit}
}

// Wrap returns a ReadWrite value holding v. cty.NilVal becomes Unit.
func Wrap(v cty.Value) Value {
	if v.Type() == cty.NilType {
		return Unit()
	}
	return Value{val: v}
}

// Cty returns the wrapped cty.Value. For a shared value this reads the
// current contents of the cell.
func (v Value) Cty() cty.Value {
	if v.cell != nil {
		v.cell.mu.Lock()
		defer v.cell.mu.Unlock()
		return v.cell.val
	}
	if v.val.Type() == cty.NilType {
		return unit
	}
	return v.val
}

// TypeID returns the run-time type identity of the value.
func (v Value) TypeID() cty.Type {
	return v.Cty().Type()
}

// TypeName returns a human readable name for the value's type.
func (v Value) TypeName() string {
	if v.IsUnit() {
		return "unit"
	}
	return v.TypeID().FriendlyName()
}

// IsUnit reports whether the value is the empty placeholder or any null.
func (v Value) IsUnit() bool {
	return v.Cty().IsNull()
}

// Clone returns a copy of the value. cty values are immutable, so the copy is
// shallow; a clone of a shared value refers to the same cell.
func (v Value) Clone() Value {
	return v
}

// AccessMode returns the access mode of the value.
func (v Value) AccessMode() AccessMode {
	return v.mode
}

// IsReadOnly reports whether the value is ReadOnly.
func (v Value) IsReadOnly() bool {
	return v.mode == ReadOnly
}

// WithAccessMode returns a copy of the value carrying mode.
func (v Value) WithAccessMode(mode AccessMode) Value {
	v.mode = mode
	return v
}

// IsShared reports whether the value is backed by a shared cell.
func (v Value) IsShared() bool {
	return v.cell != nil
}

// Share converts the value into a shared handle. Clones of the returned value
// observe writes made through any of them. Sharing a shared value is a no-op.
func (v Value) Share() Value {
	if v.cell != nil {
		return v
	}
	return Value{cell: &cell{val: v.Cty()}, mode: v.mode}
}

// Flatten returns an owned snapshot of the value. It is a no-op for values
// that are not shared.
func (v Value) Flatten() Value {
	if v.cell == nil {
		return v
	}
	return Value{val: v.Cty(), mode: v.mode}
}

// Set replaces the contents of the value, writing through a shared cell when
// present. The access mode is left untouched.
func (v *Value) Set(n cty.Value) error {
	if n.Type() == cty.NilType {
		n = unit
	}
	if v.cell != nil {
		v.cell.mu.Lock()
		defer v.cell.mu.Unlock()
		if v.cell.borrowed {
			return ErrAlreadyBorrowed
		}
		v.cell.val = n
		return nil
	}
	v.val = n
	return nil
}

// Take moves the value out of v, leaving Unit behind.
func (v *Value) Take() Value {
	out := *v
	*v = Unit()
	return out
}

// BorrowMut starts an exclusive borrow of v. For an unshared value the view
// is v itself. For a shared value the view is a detached copy that release
// writes back into the cell; while the borrow is active other writers get
// ErrAlreadyBorrowed and readers observe the value as of the start of the
// borrow.
func (v *Value) BorrowMut() (view *Value, release func(), err error) {
	c := v.cell
	if c == nil {
		return v, func() {}, nil
	}

	c.mu.Lock()
	if c.borrowed {
		c.mu.Unlock()
		return nil, nil, ErrAlreadyBorrowed
	}
	c.borrowed = true
	view = &Value{val: c.val, mode: v.mode}
	c.mu.Unlock()

	return view, func() {
		next := view.Cty()
		c.mu.Lock()
		c.val = next
		c.borrowed = false
		c.mu.Unlock()
	}, nil
}

// Equal reports whether two values hold identical data, ignoring access mode
// and sharing.
func (v Value) Equal(other Value) bool {
	return v.Cty().RawEquals(other.Cty())
}
