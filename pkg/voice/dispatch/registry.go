// Package dispatch maps remote-invoked function names to local handlers.
// The registry validates model-generated arguments against each function's
// declared schema before invocation; arguments are untrusted input.
package dispatch

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/tmoody1973/mkedev-voice/pkg/voice/cards"
	"github.com/tmoody1973/mkedev-voice/pkg/voice/wire"
)

// Result is what a handler returns to the model. Keep it a small
// structured summary: it is injected back into the model's context.
type Result map[string]any

// Failure builds the canonical error result.
func Failure(format string, args ...any) Result {
	return Result{"success": false, "error": fmt.Sprintf(format, args...)}
}

// Args wraps validated arguments with typed accessors.
type Args map[string]any

// String returns the named argument as a string.
func (a Args) String(name string) (string, bool) {
	v, ok := a[name].(string)
	return v, ok
}

// Float returns the named argument as a float64.
func (a Args) Float(name string) (float64, bool) {
	switch v := a[name].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

// Int returns the named argument as an int. JSON numbers arrive as
// float64; fractional values are rejected.
func (a Args) Int(name string) (int, bool) {
	f, ok := a.Float(name)
	if !ok || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

// Bool returns the named argument as a bool.
func (a Args) Bool(name string) (bool, bool) {
	v, ok := a[name].(bool)
	return v, ok
}

// CardSink receives GenerativeCards emitted by handlers as a side channel,
// independent of the result payload returned to the model.
type CardSink interface {
	EmitCard(card cards.Card)
}

// Handler executes one function call against validated arguments.
type Handler func(ctx context.Context, args Args, sink CardSink) Result

// Descriptor ties a function declaration to its handler. The declaration's
// parameter schema doubles as the validation contract.
type Descriptor struct {
	Declaration wire.FunctionDeclaration
	Handler     Handler
}

// Registry is the dispatch table.
type Registry struct {
	logger *zap.Logger
	byName map[string]Descriptor
}

// NewRegistry builds a table from descriptors. Later descriptors with a
// duplicate name replace earlier ones with a logged warning.
func NewRegistry(logger *zap.Logger, descriptors ...Descriptor) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{logger: logger, byName: make(map[string]Descriptor, len(descriptors))}
	for _, d := range descriptors {
		name := strings.TrimSpace(d.Declaration.Name)
		if name == "" || d.Handler == nil {
			continue
		}
		if _, exists := r.byName[name]; exists {
			logger.Warn("duplicate function descriptor replaces earlier one", zap.String("name", name))
		}
		r.byName[name] = d
	}
	return r
}

// Declarations returns the function declaration table for the setup
// envelope, in name order.
func (r *Registry) Declarations() []wire.FunctionDeclaration {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]wire.FunctionDeclaration, 0, len(names))
	for _, name := range names {
		out = append(out, r.byName[name].Declaration)
	}
	return out
}

// Has reports whether a function name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.byName[strings.TrimSpace(name)]
	return ok
}

// Dispatch validates and executes one function call. It never returns an
// error: every failure mode becomes a {success:false, error} result so the
// session survives and the model gets a response. sink may be nil.
func (r *Registry) Dispatch(ctx context.Context, call wire.FunctionCall, sink CardSink) Result {
	d, ok := r.byName[strings.TrimSpace(call.Name)]
	if !ok {
		return Failure("Unknown function: %s", call.Name)
	}
	args := Args(call.Args)
	if args == nil {
		args = Args{}
	}
	if err := validateArgs(d.Declaration.Parameters, args); err != nil {
		r.logger.Warn("rejecting function call with invalid arguments",
			zap.String("name", call.Name), zap.Error(err))
		return Failure("%s", err.Error())
	}
	if sink == nil {
		sink = nopSink{}
	}
	return d.Handler(ctx, args, sink)
}

type nopSink struct{}

func (nopSink) EmitCard(cards.Card) {}

// validateArgs checks presence and JSON type of declared parameters.
// Undeclared keys are dropped rather than rejected; the model sometimes
// volunteers extras.
func validateArgs(schema *wire.Schema, args Args) error {
	if schema == nil {
		return nil
	}
	for _, name := range schema.Required {
		if _, ok := args[name]; !ok {
			return fmt.Errorf("missing required argument: %s", name)
		}
	}
	for name, prop := range schema.Properties {
		value, ok := args[name]
		if !ok {
			continue
		}
		if err := checkType(name, prop, value); err != nil {
			return err
		}
	}
	for name := range args {
		if schema.Properties != nil {
			if _, declared := schema.Properties[name]; !declared {
				delete(args, name)
			}
		}
	}
	return nil
}

func checkType(name string, prop *wire.Schema, value any) error {
	if prop == nil || value == nil {
		return nil
	}
	switch prop.Type {
	case "STRING":
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("argument %s must be a string", name)
		}
		if len(prop.Enum) > 0 {
			for _, allowed := range prop.Enum {
				if s == allowed {
					return nil
				}
			}
			return fmt.Errorf("argument %s must be one of %s", name, strings.Join(prop.Enum, ", "))
		}
	case "NUMBER", "INTEGER":
		if _, ok := value.(float64); !ok {
			return fmt.Errorf("argument %s must be a number", name)
		}
	case "BOOLEAN":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("argument %s must be a boolean", name)
		}
	case "ARRAY":
		if _, ok := value.([]any); !ok {
			return fmt.Errorf("argument %s must be an array", name)
		}
	case "OBJECT":
		if _, ok := value.(map[string]any); !ok {
			return fmt.Errorf("argument %s must be an object", name)
		}
	}
	return nil
}
