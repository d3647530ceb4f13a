package gridlogic

import "fmt"

// PanicError reports a panic recovered inside a grid logic entry point.
type PanicError struct {
	Op    string
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("grid logic %s panicked: %v", e.Op, e.Value)
}
