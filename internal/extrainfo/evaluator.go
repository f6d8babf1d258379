// Package extrainfo evaluates configured expressions against a fault event
// to produce the ordered additional-info pairs attached to a report.
package extrainfo

import (
	"fmt"
	"log/slog"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/mhabrnal/abrt-java-connector/internal/fault"
)

// Attribute is one configured label/expression pair.
type Attribute struct {
	Name       string `yaml:"name"`
	Expression string `yaml:"expression"`
}

// Evaluator compiles the configured expressions once and evaluates them per
// fault event. A failing expression is skipped, never fatal.
type Evaluator struct {
	attrs    []Attribute
	programs []*vm.Program
	log      *slog.Logger
}

// exprEnv is the environment visible to expressions, both for type checking
// at compile time and for evaluation.
func exprEnv(ev *fault.ThrowEvent) map[string]any {
	env := map[string]any{
		"tid":     int64(0),
		"type":    "",
		"message": "",
		"thread":  "",
		"method":  "",
		"class":   "",
	}
	if ev != nil {
		env["tid"] = ev.ThreadID
		env["type"] = ev.TypeName
		env["message"] = ev.Message
		env["thread"] = ev.ThreadName
		env["method"] = ev.Method.Name
		env["class"] = ev.Method.Class
	}
	return env
}

// NewEvaluator pre-compiles all configured expressions.
func NewEvaluator(attrs []Attribute, log *slog.Logger) (*Evaluator, error) {
	if log == nil {
		log = slog.Default()
	}

	programs := make([]*vm.Program, len(attrs))
	for i, attr := range attrs {
		program, err := expr.Compile(attr.Expression, expr.Env(exprEnv(nil)))
		if err != nil {
			return nil, fmt.Errorf("compile expression for %q: %w", attr.Name, err)
		}
		programs[i] = program
	}

	return &Evaluator{attrs: attrs, programs: programs, log: log}, nil
}

// Evaluate runs every configured expression against the event and returns
// the resulting pairs in configuration order. Expressions that fail at run
// time are logged and skipped.
func (e *Evaluator) Evaluate(ev *fault.ThrowEvent) []fault.InfoPair {
	if e == nil || len(e.attrs) == 0 || ev == nil {
		return nil
	}

	env := exprEnv(ev)

	pairs := make([]fault.InfoPair, 0, len(e.attrs))
	for i, attr := range e.attrs {
		output, err := expr.Run(e.programs[i], env)
		if err != nil {
			e.log.Warn("extra info expression failed",
				slog.String("attribute", attr.Name),
				slog.String("error", err.Error()),
			)
			continue
		}
		pairs = append(pairs, fault.InfoPair{
			Label: attr.Name,
			Value: fmt.Sprint(output),
		})
	}
	return pairs
}
