// Package fact implements the three-flavor fact lattice of spec.md §3.3/§4.3:
// partial information about a tensor at a graph outlet, with a meet
// (Unify) operation and lattice ordering inference ⊇ typed ⊇ pulsed.
package fact

import (
	"fmt"

	"github.com/corten-ml/corten/tdim"
	"github.com/corten-ml/corten/tensor"
)

// OptDatumType is an optional element type.
type OptDatumType struct {
	Known bool
	DT    tensor.DatumType
}

// SomeDT wraps a known DatumType.
func SomeDT(dt tensor.DatumType) OptDatumType { return OptDatumType{Known: true, DT: dt} }

// NoneDT is the unknown element type.
func NoneDT() OptDatumType { return OptDatumType{} }

// OptDim is an optional symbolic dimension.
type OptDim struct {
	Known bool
	Dim   tdim.TDim
}

// SomeDim wraps a known dimension.
func SomeDim(d tdim.TDim) OptDim { return OptDim{Known: true, Dim: d} }

// NoneDim is the unknown dimension.
func NoneDim() OptDim { return OptDim{} }

// OptValue is an optional concrete tensor value.
type OptValue struct {
	Known bool
	Value *tensor.Tensor
}

// SomeValue wraps a known tensor.
func SomeValue(t *tensor.Tensor) OptValue { return OptValue{Known: true, Value: t} }

// NoneValue is the unknown value.
func NoneValue() OptValue { return OptValue{} }

// ShapeFact is a possibly-open sequence of optional symbolic dims: Open
// means the rank itself is unknown (more dims may exist past what's
// listed); when Open is false, Dims is the complete, exact-rank shape
// (though individual entries may still be OptDim{} unknown).
type ShapeFact struct {
	Open bool
	Dims []OptDim
}

// Rank returns (rank, true) iff the shape is closed.
func (s ShapeFact) Rank() (int, bool) {
	if s.Open {
		return 0, false
	}
	return len(s.Dims), true
}

// InferenceFact is the least-specific flavor: optional element type, an
// open-or-closed shape of optional dims, and an optional constant value.
type InferenceFact struct {
	DT    OptDatumType
	Shape ShapeFact
	Value OptValue
}

// DebugString renders a short human-readable summary.
func (f *InferenceFact) DebugString() string {
	dt := "?"
	if f.DT.Known {
		dt = f.DT.DT.String()
	}
	shape := "["
	if f.Shape.Open {
		shape += "..."
	} else {
		for i, d := range f.Shape.Dims {
			if i > 0 {
				shape += ","
			}
			if d.Known {
				shape += d.Dim.String()
			} else {
				shape += "?"
			}
		}
	}
	shape += "]"
	return fmt.Sprintf("%s%s", dt, shape)
}

// Clone returns a deep copy.
func (f *InferenceFact) Clone() *InferenceFact {
	c := &InferenceFact{DT: f.DT, Value: f.Value, Shape: ShapeFact{Open: f.Shape.Open}}
	c.Shape.Dims = append([]OptDim(nil), f.Shape.Dims...)
	return c
}

// ToInferenceFact returns f itself (identity conversion for the least
// specific flavor, required by the capability interface of spec.md §9).
func (f *InferenceFact) ToInferenceFact() *InferenceFact { return f }

// TypedFact is the fully-shaped flavor: element type and every dimension
// are known; the value is optionally known (a compile-time constant).
type TypedFact struct {
	DT    tensor.DatumType
	Shape []tdim.TDim
	Value OptValue
}

// Rank returns len(Shape).
func (f TypedFact) Rank() int { return len(f.Shape) }

// DebugString renders a short human-readable summary.
func (f TypedFact) DebugString() string {
	shape := "["
	for i, d := range f.Shape {
		if i > 0 {
			shape += ","
		}
		shape += d.String()
	}
	shape += "]"
	return fmt.Sprintf("%s%s", f.DT.String(), shape)
}

// Clone returns a deep copy.
func (f TypedFact) Clone() TypedFact {
	c := f
	c.Shape = append([]tdim.TDim(nil), f.Shape...)
	return c
}

// ToInferenceFact lifts a TypedFact to the least-specific flavor, filling
// every field as Known.
func (f TypedFact) ToInferenceFact() *InferenceFact {
	dims := make([]OptDim, len(f.Shape))
	for i, d := range f.Shape {
		dims[i] = SomeDim(d)
	}
	return &InferenceFact{
		DT:    SomeDT(f.DT),
		Shape: ShapeFact{Dims: dims},
		Value: f.Value,
	}
}

// PulsedFact is a TypedFact plus the pulse-time-model contract of
// spec.md §3.3/§4.10: pulse axis index, pulse length, delay, and the
// symbolic full-stream length along that axis.
type PulsedFact struct {
	TypedFact
	Axis    int
	Delay   int
	FullLen tdim.TDim
}

// PulseLen returns the fixed chunk length along Axis (Shape[Axis]).
func (f PulsedFact) PulseLen() int {
	d, ok := f.Shape[f.Axis].AsConst()
	if !ok {
		// Pulsed shapes are concrete by construction except at the pulse
		// axis itself, whose length is the pulse size baked in as a const
		// TDim; if this invariant is ever violated the caller gets 0, which
		// fails loudly downstream rather than silently misbehaving.
		return 0
	}
	return int(d)
}

// Clone returns a deep copy.
func (f PulsedFact) Clone() PulsedFact {
	c := f
	c.TypedFact = f.TypedFact.Clone()
	return c
}

// ToInferenceFact lifts a PulsedFact through TypedFact to the
// least-specific flavor.
func (f PulsedFact) ToInferenceFact() *InferenceFact {
	return f.TypedFact.ToInferenceFact()
}

// DebugString renders a short human-readable summary including the pulse
// contract fields.
func (f PulsedFact) DebugString() string {
	return fmt.Sprintf("%s [pulse axis:%d delay:%d full:%s]", f.TypedFact.DebugString(), f.Axis, f.Delay, f.FullLen.String())
}
