package entities

// Operation is a data operation subject to authorization
type Operation string

const (
	OperationCreate Operation = "create"
	OperationRead   Operation = "read"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
	OperationList   Operation = "list"
)

// AllOperations lists every operation in canonical order
var AllOperations = []Operation{
	OperationCreate,
	OperationRead,
	OperationUpdate,
	OperationDelete,
	OperationList,
}

// ParseOperation converts a DSL keyword into an Operation
func ParseOperation(s string) (Operation, bool) {
	for _, op := range AllOperations {
		if string(op) == s {
			return op, true
		}
	}
	return "", false
}

// AuthStrategy names who an allow rule applies to
type AuthStrategy string

const (
	// StrategyPublicAPIKey grants access to any caller holding a valid API key
	StrategyPublicAPIKey AuthStrategy = "publicApiKey"
)

// AuthRule represents an allow rule on a model
// Example: "allow publicApiKey to read, list when \"'reports' in principal.scopes\""
type AuthRule struct {
	Strategy   AuthStrategy
	Operations []Operation // Empty means every operation
	Condition  string      // Optional CEL expression
}

// Allows reports whether the rule covers op
func (r *AuthRule) Allows(op Operation) bool {
	if len(r.Operations) == 0 {
		return true
	}
	for _, o := range r.Operations {
		if o == op {
			return true
		}
	}
	return false
}
