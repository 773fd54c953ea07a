package listener

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is returned for an invalid Config or missing dependency.
	ErrConfiguration = errors.New("configuration error")
	// ErrTopology is returned when the queues cannot be resolved or created.
	ErrTopology = errors.New("topology error")
	// ErrNotInitialized is returned by Listen before Init succeeded.
	ErrNotInitialized = errors.New("listener not initialized")
)

// PanicError carries the value recovered from a panicking handler.
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("handler panic: %v", e.Value)
}
