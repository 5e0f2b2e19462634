package testutil

import "sync/atomic"

// Sequence hands out 1, 2, 3, ... It numbers harness trace events and
// generated file names so that repeated runs produce identical output.
// The zero value is ready to use and safe for concurrent use.
type Sequence struct {
	n atomic.Int64
}

// Next returns the next number, starting at 1.
func (s *Sequence) Next() int64 { return s.n.Add(1) }

// Last returns the most recent number handed out, 0 before the first Next.
func (s *Sequence) Last() int64 { return s.n.Load() }
