// Package model defines the per-validator state tracked by a simulation run.
package model

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidValidatorID   = errors.New("invalid validator id")
	ErrInvalidReliability   = errors.New("invalid operator reliability")
	ErrValidatorNotOnline   = errors.New("validator is not online")
	ErrValidatorNotFailing  = errors.New("validator is not failing")
)

// State is a validator's liveness state.
type State int

const (
	Online State = iota
	Failing
)

func (s State) String() string {
	if s == Online {
		return "online"
	}
	return "failing"
}

// Interval is a closed offline period, [Start, End), in simulation seconds.
type Interval struct {
	Start int64
	End   int64
}

// Validator tracks the liveness and bookkeeping state of one consortium
// member across a simulation run.
type Validator struct {
	ID                  int
	State               State
	Included            bool
	OperatorReliability float64
	OperatorPresent     bool

	OfflineIntervals []Interval
	offlineStart     *int64

	LastProposalTime  *int64
	BlocksProposed    int
	windowProposed    bool
}

// New constructs a validator starting Online and Included, with the given
// operator-reliability probability in [0,1].
func New(id int, operatorReliability float64) (*Validator, error) {
	if id < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidValidatorID, id)
	}
	if operatorReliability < 0 || operatorReliability > 1 {
		return nil, fmt.Errorf("%w: %f", ErrInvalidReliability, operatorReliability)
	}
	return &Validator{
		ID:                  id,
		State:               Online,
		Included:            true,
		OperatorReliability: operatorReliability,
	}, nil
}

// Fail transitions the validator Online -> Failing at time now, recording the
// open offline interval's start. It is an invariant violation to fail a
// validator that is not currently Online.
func (v *Validator) Fail(now int64) error {
	if v.State != Online {
		return fmt.Errorf("%w: validator %d", ErrValidatorNotOnline, v.ID)
	}
	v.State = Failing
	start := now
	v.offlineStart = &start
	return nil
}

// Recover transitions the validator Failing -> Online at time now, closing
// the open offline interval. It is an invariant violation to recover a
// validator that is not currently Failing.
func (v *Validator) Recover(now int64) error {
	if v.State != Failing {
		return fmt.Errorf("%w: validator %d", ErrValidatorNotFailing, v.ID)
	}
	v.State = Online
	if v.offlineStart != nil {
		v.OfflineIntervals = append(v.OfflineIntervals, Interval{Start: *v.offlineStart, End: now})
		v.offlineStart = nil
	}
	return nil
}

// RecordProposal marks that the validator proposed a block at time t.
func (v *Validator) RecordProposal(t int64) {
	ts := t
	v.LastProposalTime = &ts
	v.BlocksProposed++
	v.windowProposed = true
}

// IsOnline reports whether the validator is currently Online.
func (v *Validator) IsOnline() bool { return v.State == Online }

// HasProposedInWindow reports whether the validator has proposed a block
// since the last block-triggered adjust window was cleared.
func (v *Validator) HasProposedInWindow() bool { return v.windowProposed }

// ResetWindow clears the proposed-in-window flag, called once per validator
// at the end of a block-triggered adjust meeting.
func (v *Validator) ResetWindow() { v.windowProposed = false }
