package statemachine

import (
	"fmt"
	"slices"
	"sync"
)

// Table holds the allowed transitions between states of type T. It does not
// track a current state: callers load the persisted state and ask the table
// whether a move is legal, which keeps it safe to share between requests.
type Table[T comparable] struct {
	mu          sync.RWMutex
	transitions map[T][]T
	terminal    map[T]bool
}

func New[T comparable]() *Table[T] {
	return &Table[T]{
		transitions: make(map[T][]T),
		terminal:    make(map[T]bool),
	}
}

// Allow registers from -> each of to.
func (t *Table[T]) Allow(from T, to ...T) *Table[T] {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range to {
		if !slices.Contains(t.transitions[from], s) {
			t.transitions[from] = append(t.transitions[from], s)
		}
	}
	return t
}

// Terminal marks states that accept no further transitions.
func (t *Table[T]) Terminal(states ...T) *Table[T] {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range states {
		t.terminal[s] = true
	}
	return t
}

func (t *Table[T]) CanTransition(from, to T) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.terminal[from] {
		return false
	}
	return slices.Contains(t.transitions[from], to)
}

// Check returns a TransitionError when from -> to is not registered.
func (t *Table[T]) Check(from, to T) error {
	if !t.CanTransition(from, to) {
		return &TransitionError[T]{From: from, To: to}
	}
	return nil
}

func (t *Table[T]) IsTerminal(s T) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.terminal[s]
}

// Targets lists the states reachable from s in registration order.
func (t *Table[T]) Targets(s T) []T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.transitions[s])
}

type TransitionError[T comparable] struct {
	From T
	To   T
}

func (e *TransitionError[T]) Error() string {
	return fmt.Sprintf("invalid transition from %v to %v", e.From, e.To)
}
