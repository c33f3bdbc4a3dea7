package vcp

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// ReadResult is one scripted answer for a Mock read.
type ReadResult struct {
	Value      Value
	Unreadable bool
}

// Reads returns a ReadResult holding v.
func Reads(v Value) ReadResult { return ReadResult{Value: v} }

// ReadsNothing returns an unreadable ReadResult.
func ReadsNothing() ReadResult { return ReadResult{Unreadable: true} }

// Write records one Set call on a Mock.
type Write struct {
	Display  Display
	Register Register
	Value    Value
}

// Mock is an in-memory display. Reads consume scripted results first and
// then fall back to the stored register value.
type Mock struct {
	mu sync.Mutex

	values     map[Register]Value
	scripts    map[Register][]ReadResult
	unreadable map[Register]bool
	ignored    map[Register]bool
	rejected   map[Register]bool

	reads  map[Register]int
	writes []Write
}

var _ Registers = &Mock{}

// NewMock returns a Mock with prefilled register values.
func NewMock(prefill map[Register]Value) *Mock {
	m := &Mock{
		values:     map[Register]Value{},
		scripts:    map[Register][]ReadResult{},
		unreadable: map[Register]bool{},
		ignored:    map[Register]bool{},
		rejected:   map[Register]bool{},
		reads:      map[Register]int{},
	}
	for r, v := range prefill {
		m.values[r] = v
	}
	return m
}

// Script queues read results for r.
func (m *Mock) Script(r Register, results ...ReadResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts[r] = append(m.scripts[r], results...)
}

// SetUnreadable makes unscripted reads of r fail, as for a register the
// tool cannot report.
func (m *Mock) SetUnreadable(r Register, b bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unreadable[r] = b
}

// IgnoreWrites makes writes to r succeed without changing the value.
func (m *Mock) IgnoreWrites(r Register, b bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ignored[r] = b
}

// RejectWrites makes writes to r fail like a non-zero tool exit.
func (m *Mock) RejectWrites(r Register, b bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected[r] = b
}

func (m *Mock) Get(d Display, r Register) (Value, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reads[r]++

	if q := m.scripts[r]; len(q) > 0 {
		res := q[0]
		m.scripts[r] = q[1:]
		if res.Unreadable {
			return 0, fmt.Errorf("%w: %s", ErrUnreadable, r)
		}
		return res.Value, nil
	}

	v, ok := m.values[r]
	if !ok || m.unreadable[r] {
		return 0, fmt.Errorf("%w: %s", ErrUnreadable, r)
	}

	logrus.WithFields(logrus.Fields{
		"display":  d,
		"register": r,
		"value":    v,
	}).Trace("mock read")

	return v, nil
}

func (m *Mock) Set(d Display, r Register, v Value) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.writes = append(m.writes, Write{Display: d, Register: r, Value: v})

	if m.rejected[r] {
		return fmt.Errorf("%w: setvcp %s=%d exited with 1", ErrToolFailed, r, v)
	}
	if !m.ignored[r] {
		m.values[r] = v
	}

	logrus.WithFields(logrus.Fields{
		"display":  d,
		"register": r,
		"value":    v,
	}).Trace("mock write")

	return nil
}

// Value returns the stored value of r.
func (m *Mock) Value(r Register) (Value, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[r]
	return v, ok
}

// Writes returns every Set call in order.
func (m *Mock) Writes() []Write {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Write(nil), m.writes...)
}

// WriteCount returns the number of Set calls for r.
func (m *Mock) WriteCount(r Register) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, w := range m.writes {
		if w.Register == r {
			n++
		}
	}
	return n
}

// ReadCount returns the number of Get calls for r.
func (m *Mock) ReadCount(r Register) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads[r]
}
