// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package loops

import (
	"errors"
	"iter"

	"github.com/vk/gridscript/internal/dynamic"
)

// Range is a half-open run of integers for use in for loops.
type Range struct {
	From, To, Step int64
}

// RangeType is the script type of a Range.
var RangeType = dynamic.RegisterType[Range]("range")

// NewRange returns the integers from `from` up to `to`, excluding `to`.
func NewRange(from, to int64) *Range {
	return &Range{From: from, To: to, Step: 1}
}

// NewRangeStep is NewRange with a step. A negative step counts down.
func NewRangeStep(from, to, step int64) (*Range, error) {
	if step == 0 {
		return nil, errors.New("range step cannot be zero")
	}
	return &Range{From: from, To: to, Step: step}, nil
}

// All yields the values of r. It stops early instead of wrapping around
// when the next value would not fit in an int64.
func (r *Range) All() iter.Seq[int64] {
	return func(yield func(int64) bool) {
		if r.Step == 0 {
			return
		}
		for x := r.From; r.Step > 0 && x < r.To || r.Step < 0 && x > r.To; {
			if !yield(x) {
				return
			}
			next := x + r.Step
			if (r.Step > 0) != (next > x) {
				return
			}
			x = next
		}
	}
}
