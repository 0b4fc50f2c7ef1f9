package llm

import (
	"errors"
	"fmt"

	"github.com/pawsense/vetagent/internal/observability"
)

// ErrCircuitOpen is returned when the circuit breaker rejects a call to
// prevent cascading failures against an unhealthy model endpoint.
var ErrCircuitOpen = errors.New("model circuit breaker is open")

// ModelError is the single failure type of the model invocation boundary.
// Transport errors, non-2xx responses, schema violations and unparseable
// output all surface as a *ModelError; callers recover by degrading to a
// safe result, never by retrying inside this package.
type ModelError struct {
	// Op names the failed operation ("complete", "embed", "rerank",
	// "parse").
	Op  string
	Err error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("model %s: %v", e.Op, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }

// modelErr wraps err as a *ModelError for operation op and counts it.
func modelErr(op string, err error) error {
	observability.ModelErrors.WithLabelValues(op).Inc()
	return &ModelError{Op: op, Err: err}
}

// IsModelError reports whether err is (or wraps) a ModelError.
func IsModelError(err error) bool {
	var me *ModelError
	return errors.As(err, &me)
}
