// Package recovery decides how the parser reacts to recoverable structural
// problems, chiefly unrecognized chunk types inside a container directory.
package recovery

import "fmt"

type Strategy interface {
	OnError(err error, location Location) Action
}

type Location struct {
	ByteOffset int64
	FileIndex  int
	FileID     string
	Component  string
}

type Action int

const (
	ActionFail Action = iota
	ActionSkip
	ActionWarn
)

// StrictStrategy fails on anything unexpected.
type StrictStrategy struct{}

func NewStrictStrategy() *StrictStrategy { return &StrictStrategy{} }

func (s *StrictStrategy) OnError(err error, location Location) Action {
	return ActionFail
}

// LenientStrategy records the error and keeps going. Unknown chunk types are
// expected in the wild; the container tree is forward-compatible.
type LenientStrategy struct {
	Errors []error
}

func NewLenientStrategy() *LenientStrategy { return &LenientStrategy{} }

func (s *LenientStrategy) OnError(err error, location Location) Action {
	s.Errors = append(s.Errors, fmt.Errorf("[%s] offset %d: %w", location.Component, location.ByteOffset, err))
	return ActionWarn
}
