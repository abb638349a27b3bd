package authorization

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/flockhq/flock/internal/entities"
)

// CELEngine evaluates allow-rule conditions. Compiled programs are cached per expression.
type CELEngine struct {
	env *cel.Env

	mu       sync.RWMutex
	programs map[string]cel.Program
}

// EvaluationContext contains the data visible to a condition
type EvaluationContext struct {
	Principal map[string]interface{} // principal.id, principal.name, principal.scopes
	Model     string
	Operation string
}

// NewCELEngine creates a new CEL engine with predefined declarations
func NewCELEngine() (*CELEngine, error) {
	env, err := cel.NewEnv(
		cel.Variable("principal", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("model", cel.StringType),
		cel.Variable("operation", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &CELEngine{
		env:      env,
		programs: make(map[string]cel.Program),
	}, nil
}

// NewEvaluationContext builds the condition inputs for a principal acting on a model
func NewEvaluationContext(principal *entities.Principal, model string, op entities.Operation) *EvaluationContext {
	p := map[string]interface{}{
		"id":     "",
		"name":   "",
		"scopes": []string{},
	}
	if principal != nil {
		p["id"] = principal.KeyID
		p["name"] = principal.Name
		if principal.Scopes != nil {
			p["scopes"] = principal.Scopes
		}
	}
	return &EvaluationContext{Principal: p, Model: model, Operation: string(op)}
}

// Evaluate evaluates a CEL expression with the given context
func (e *CELEngine) Evaluate(expression string, context *EvaluationContext) (bool, error) {
	program, err := e.program(expression)
	if err != nil {
		return false, err
	}

	principal := context.Principal
	if principal == nil {
		principal = map[string]interface{}{}
	}

	result, _, err := program.Eval(map[string]interface{}{
		"principal": principal,
		"model":     context.Model,
		"operation": context.Operation,
	})
	if err != nil {
		return false, fmt.Errorf("failed to evaluate CEL expression: %w", err)
	}

	boolResult, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("CEL expression did not evaluate to boolean, got: %T", result.Value())
	}

	return boolResult, nil
}

// ValidateExpression validates a CEL expression without evaluating it
func (e *CELEngine) ValidateExpression(expression string) error {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("invalid CEL expression: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return fmt.Errorf("CEL expression must return boolean, got: %s", ast.OutputType())
	}

	return nil
}

func (e *CELEngine) program(expression string) (cel.Program, error) {
	e.mu.RLock()
	program, ok := e.programs[expression]
	e.mu.RUnlock()
	if ok {
		return program, nil
	}

	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile CEL expression: %w", issues.Err())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	e.mu.Lock()
	e.programs[expression] = program
	e.mu.Unlock()

	return program, nil
}
