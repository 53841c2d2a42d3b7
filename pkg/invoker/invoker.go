// Package invoker turns registered handler functions plus argument bags into
// normalized outcomes. It binds arguments against parameter specs, recovers
// handler faults at the package boundary, and maps raw payloads into
// protocol content.
package invoker

import (
	"context"
	"encoding/json"
	"fmt"

	mcperrors "github.com/agentforge/mcp-runtime-go/pkg/errors"
	"github.com/agentforge/mcp-runtime-go/pkg/logging"
)

// HandlerFunc is a tool or prompt handler. It receives the validated argument
// bag and returns a raw payload or an error. Errors implementing
// errors.MCPError pass through unchanged; anything else is wrapped as an
// internal error.
type HandlerFunc func(ctx context.Context, args map[string]interface{}) (interface{}, error)

// ResourceHandlerFunc is a resource read handler. For template-matched reads,
// bindings carries the values extracted from the URI template; for exact
// reads it is empty.
type ResourceHandlerFunc func(ctx context.Context, uri string, bindings map[string]string) (interface{}, error)

// ParamSpec describes one declared parameter of a tool or prompt.
type ParamSpec struct {
	Name        string
	Description string
	Type        string
	Required    bool
}

// Validator checks a single bound value against its parameter spec. It is a
// pluggable collaborator; the default accepts everything.
type Validator func(spec ParamSpec, value interface{}) error

// Invoker executes handlers and normalizes their outcomes.
type Invoker struct {
	validator Validator
	logger    logging.Logger
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithValidator sets the per-parameter validator
func WithValidator(v Validator) Option {
	return func(i *Invoker) {
		i.validator = v
	}
}

// WithLogger sets the logger
func WithLogger(logger logging.Logger) Option {
	return func(i *Invoker) {
		i.logger = logger
	}
}

// New creates a new Invoker
func New(options ...Option) *Invoker {
	inv := &Invoker{
		logger: logging.NewNop(),
	}
	for _, option := range options {
		option(inv)
	}
	return inv
}

// Bind resolves the argument bag against the declared parameter specs in
// declaration order. Every required parameter absent from the bag is
// collected and reported in a single InvalidParams error; optional
// parameters absent from the bag are simply not present in the result.
func (i *Invoker) Bind(specs []ParamSpec, args map[string]interface{}) (map[string]interface{}, error) {
	bound := make(map[string]interface{}, len(specs))
	var missing []string

	for _, spec := range specs {
		value, ok := args[spec.Name]
		if !ok {
			if spec.Required {
				missing = append(missing, spec.Name)
			}
			continue
		}
		if i.validator != nil {
			if err := i.validator(spec, value); err != nil {
				if mcpErr, isTyped := mcperrors.AsMCPError(err); isTyped {
					return nil, mcpErr
				}
				return nil, mcperrors.InvalidParameter(spec.Name, value, spec.Type).WithDetail(err.Error())
			}
		}
		bound[spec.Name] = value
	}

	if len(missing) > 0 {
		return nil, mcperrors.MissingParameters(missing)
	}
	return bound, nil
}

// Invoke calls a handler with the bound argument bag and normalizes the
// outcome. Panics are recovered and reported as internal errors; a typed
// failure returned by the handler is never double-wrapped. If ctx expires
// before the handler returns, Invoke resolves with an internal error and the
// handler goroutine is left to finish on its own.
func (i *Invoker) Invoke(ctx context.Context, handler HandlerFunc, args map[string]interface{}) (interface{}, error) {
	if handler == nil {
		return nil, mcperrors.CreateInternalError("invoke", fmt.Errorf("nil handler"))
	}
	return i.await(ctx, func() (interface{}, error) {
		return handler(ctx, args)
	})
}

// InvokeResource calls a resource read handler, applying the same outcome
// normalization as Invoke.
func (i *Invoker) InvokeResource(ctx context.Context, handler ResourceHandlerFunc, uri string, bindings map[string]string) (interface{}, error) {
	if handler == nil {
		return nil, mcperrors.CreateInternalError("invoke", fmt.Errorf("nil handler"))
	}
	return i.await(ctx, func() (interface{}, error) {
		return handler(ctx, uri, bindings)
	})
}

type outcome struct {
	payload interface{}
	err     error
}

// await runs fn on its own goroutine so a slow handler blocks only the
// logical request, and resolves early when ctx is done.
func (i *Invoker) await(ctx context.Context, fn func() (interface{}, error)) (interface{}, error) {
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				i.logger.Error("handler panicked", logging.Any("panic", r))
				done <- outcome{err: mcperrors.HandlerPanic(r)}
			}
		}()
		payload, err := fn()
		done <- outcome{payload: payload, err: normalizeError(err)}
	}()

	select {
	case out := <-done:
		return out.payload, out.err
	case <-ctx.Done():
		return nil, mcperrors.CreateInternalError("invoke", ctx.Err())
	}
}

// normalizeError passes typed failures through unchanged and wraps anything
// else as an internal error.
func normalizeError(err error) error {
	if err == nil {
		return nil
	}
	if mcpErr, ok := mcperrors.AsMCPError(err); ok {
		return mcpErr
	}
	return mcperrors.HandlerError(err.Error())
}

// EncodePayload renders an arbitrary success payload as the text of a single
// content block: strings pass through verbatim, everything else is
// JSON-encoded.
func EncodePayload(payload interface{}) (string, error) {
	if payload == nil {
		return "", nil
	}
	if s, ok := payload.(string); ok {
		return s, nil
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", mcperrors.CreateInternalError("encode payload", err)
	}
	return string(encoded), nil
}
