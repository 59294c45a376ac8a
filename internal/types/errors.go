package types

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInputNotFound     = errors.New("input not found")
	ErrCredentialMissing = errors.New("credential missing")
)

// ExternalServiceError is a non-2xx answer from a remote API.
type ExternalServiceError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *ExternalServiceError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s status %d", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s status %d: %s", e.Service, e.StatusCode, e.Body)
}

// ExternalProcessError is a failed media tool invocation with its captured output.
type ExternalProcessError struct {
	Tool   string
	Stage  string
	Args   []string
	Output string
	Err    error
}

func (e *ExternalProcessError) Error() string {
	out := strings.TrimSpace(e.Output)
	if out == "" {
		return fmt.Sprintf("%s %s: %v", e.Tool, e.Stage, e.Err)
	}
	return fmt.Sprintf("%s %s: %v\n%s", e.Tool, e.Stage, e.Err, out)
}

func (e *ExternalProcessError) Unwrap() error { return e.Err }
