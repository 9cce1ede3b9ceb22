package votes

import (
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/omnikdao/governance/pkg/governor"
)

var ErrCheckpointOrder = errors.New("checkpoint position is before the latest checkpoint")

// Trace is an append-only history of values ordered by position
type Trace struct {
	checkpoints []governor.Checkpoint
}

func (t *Trace) Len() int {
	return len(t.checkpoints)
}

func (t *Trace) At(i int) governor.Checkpoint {
	c := t.checkpoints[i]
	return governor.Checkpoint{Position: c.Position, Votes: new(big.Int).Set(c.Votes)}
}

// Latest returns the most recent value, 0 for an empty trace
func (t *Trace) Latest() *big.Int {
	if len(t.checkpoints) == 0 {
		return new(big.Int)
	}
	return new(big.Int).Set(t.checkpoints[len(t.checkpoints)-1].Votes)
}

// Push records value at position. A push at the latest position overwrites it in place.
func (t *Trace) Push(position uint64, value *big.Int) (*big.Int, *big.Int, error) {
	old := t.Latest()

	n := len(t.checkpoints)
	if n > 0 {
		last := &t.checkpoints[n-1]
		if position < last.Position {
			return nil, nil, fmt.Errorf("%w: %d < %d", ErrCheckpointOrder, position, last.Position)
		}

		if position == last.Position {
			last.Votes = new(big.Int).Set(value)
			return old, new(big.Int).Set(value), nil
		}
	}

	t.checkpoints = append(t.checkpoints, governor.Checkpoint{Position: position, Votes: new(big.Int).Set(value)})
	return old, new(big.Int).Set(value), nil
}

// UpperLookup returns the value of the last checkpoint with a position at or before position
func (t *Trace) UpperLookup(position uint64) *big.Int {
	i := sort.Search(len(t.checkpoints), func(i int) bool {
		return t.checkpoints[i].Position > position
	})
	if i == 0 {
		return new(big.Int)
	}
	return new(big.Int).Set(t.checkpoints[i-1].Votes)
}

func (t *Trace) Copy() *Trace {
	cp := &Trace{checkpoints: make([]governor.Checkpoint, len(t.checkpoints))}
	for i := range t.checkpoints {
		cp.checkpoints[i] = t.At(i)
	}
	return cp
}
