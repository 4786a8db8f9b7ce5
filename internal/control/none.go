package control

import (
	"github.com/san-kum/pneustab/internal/dynamo"
	"github.com/san-kum/pneustab/internal/pneumo"
)

// Closed keeps every valve shut, leaving the cross-connected lines to act
// passively.
type Closed struct{}

func NewClosed() *Closed { return &Closed{} }

func (*Closed) Name() string { return NameClosed }

func (*Closed) Compute(x dynamo.State, t float64) dynamo.Control {
	return make(dynamo.Control, pneumo.ControlDim)
}

func (*Closed) Reset() {}
