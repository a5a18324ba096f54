package store

import (
	"context"
	"sync/atomic"
)

// Clock hands out journal sequence numbers.
//
// Runs and outcomes are ordered by seq, never by wall time, so two journals
// built from the same inputs list rows in the same order. A clock resumed
// with NewClockAt(LastSeq) keeps seq strictly increasing across runs that
// share a database file.
//
// Clock is safe for concurrent use.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock whose next value is start+1.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// ResumeClock creates a clock positioned after the highest seq in s.
func ResumeClock(ctx context.Context, s *Store) (*Clock, error) {
	last, err := s.LastSeq(ctx)
	if err != nil {
		return nil, err
	}
	return NewClockAt(last), nil
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last value handed out, or the starting value.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
