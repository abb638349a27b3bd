package authorization

import (
	"context"
	"fmt"

	"github.com/flockhq/flock/internal/entities"
)

// CheckerInterface defines the per-operation policy check
type CheckerInterface interface {
	Check(ctx context.Context, principal *entities.Principal, model *entities.Model, op entities.Operation) error
}

// Checker decides whether a principal may perform an operation on a model
// by matching the model's allow rules.
type Checker struct {
	cel *CELEngine
}

// NewChecker creates a new Checker
func NewChecker(engine *CELEngine) *Checker {
	return &Checker{cel: engine}
}

// Check returns nil when some rule allows the operation. It returns an error
// wrapping entities.ErrUnauthenticated when there is no principal and
// entities.ErrPermissionDenied when no rule matches.
func (c *Checker) Check(ctx context.Context, principal *entities.Principal, model *entities.Model, op entities.Operation) error {
	if principal == nil {
		return fmt.Errorf("%w: no api key presented", entities.ErrUnauthenticated)
	}
	if model == nil {
		return fmt.Errorf("%w: model is required", entities.ErrUnknownModel)
	}

	var evalCtx *EvaluationContext
	for _, rule := range model.Rules {
		if !c.strategyApplies(rule.Strategy, principal) || !rule.Allows(op) {
			continue
		}
		if rule.Condition == "" {
			return nil
		}

		if evalCtx == nil {
			evalCtx = NewEvaluationContext(principal, model.Name, op)
		}
		allowed, err := c.cel.Evaluate(rule.Condition, evalCtx)
		if err != nil {
			return fmt.Errorf("failed to evaluate rule on %s: %w", model.Name, err)
		}
		if allowed {
			return nil
		}
	}

	return fmt.Errorf("%w: %s on %s", entities.ErrPermissionDenied, op, model.Name)
}

// strategyApplies reports whether a rule strategy covers the principal.
// Every authenticated principal holds an API key.
func (c *Checker) strategyApplies(strategy entities.AuthStrategy, principal *entities.Principal) bool {
	return strategy == entities.StrategyPublicAPIKey && principal.KeyID != ""
}
