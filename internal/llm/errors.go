package llm

import "fmt"

// GenerationError reports a failed or schema-nonconforming structured
// generation. Raw carries the provider payload when one was received.
type GenerationError struct {
	Op     string // "generate", "unmarshal", "validate"
	Schema string // schema name the call targeted
	Raw    string // raw response body, if any
	Err    error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("llm %s (%s): %v", e.Op, e.Schema, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
