package tools

import "fmt"

// InvalidArgumentError is a locally detected bad argument. The remote service
// is never contacted for a call that fails this way.
type InvalidArgumentError struct {
	Field  string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("tools: invalid argument %q: %s", e.Field, e.Reason)
}

// UnknownToolError is a dispatch miss: the model asked for a tool the
// catalog does not expose.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("tools: unknown tool %q", e.Name)
}
