package vm

import (
	"errors"
	"fmt"
)

// SourceSection locates a declaration in the program text.
type SourceSection struct {
	File   string
	Line   int
	Column int
}

// IsKnown reports whether the section carries a position.
func (s SourceSection) IsKnown() bool {
	return s.File != "" || s.Line > 0
}

func (s SourceSection) String() string {
	if !s.IsKnown() {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Column)
}

// ErrNotUnderstood matches every *NotUnderstoodError via errors.Is.
var ErrNotUnderstood = errors.New("message not understood")

// DefinitionError is a build-time error raised while assembling a class,
// e.g. a duplicate slot, method or nested class name.
type DefinitionError struct {
	Class   string
	Message string
	Source  SourceSection
}

func (e *DefinitionError) Error() string {
	return fmt.Sprintf("%s: definition error in %s: %s", e.Source, e.Class, e.Message)
}

func definitionError(class string, src SourceSection, format string, args ...any) *DefinitionError {
	return &DefinitionError{Class: class, Message: fmt.Sprintf(format, args...), Source: src}
}

// NotUnderstoodError is the recoverable condition signalled when a receiver's
// dispatch table has no capability for a selector.
type NotUnderstoodError struct {
	Selector  *Selector
	Receiver  Value
	Arguments []Value
}

func (e *NotUnderstoodError) Error() string {
	return fmt.Sprintf("%s does not understand #%s", Describe(e.Receiver), e.Selector.Name())
}

// Is makes errors.Is(err, ErrNotUnderstood) succeed.
func (e *NotUnderstoodError) Is(target error) bool {
	return target == ErrNotUnderstood
}

// TypeError is returned when a value fails a declared slot type.
type TypeError struct {
	Expected string
	Actual   Value
	Source   SourceSection
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("%s: %s is not a %s", e.Source, Describe(e.Actual), e.Expected)
}

// ArityError is returned when a capability is invoked with the wrong
// number of arguments.
type ArityError struct {
	Selector *Selector
	Want     int
	Got      int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("#%s expects %d argument(s), got %d", e.Selector.Name(), e.Want, e.Got)
}

// ValueCheckError is returned when an instance of a value class ends its
// initializer holding a mutable object in a slot.
type ValueCheckError struct {
	Class string
	Slot  string
	Value Value
}

func (e *ValueCheckError) Error() string {
	return fmt.Sprintf("value class %s: slot %s holds non-value %s", e.Class, e.Slot, Describe(e.Value))
}

// PrimitiveError reports a failed primitive such as division by zero or an
// out-of-bounds index.
type PrimitiveError struct {
	Selector *Selector
	Message  string
}

func (e *PrimitiveError) Error() string {
	return fmt.Sprintf("primitive #%s failed: %s", e.Selector.Name(), e.Message)
}
