package entities

import "testing"

func TestAuthRule_Allows(t *testing.T) {
	tests := []struct {
		name string
		rule *AuthRule
		op   Operation
		want bool
	}{
		{
			name: "no operations allows everything",
			rule: &AuthRule{Strategy: StrategyPublicAPIKey},
			op:   OperationDelete,
			want: true,
		},
		{
			name: "listed operation",
			rule: &AuthRule{Strategy: StrategyPublicAPIKey, Operations: []Operation{OperationRead, OperationList}},
			op:   OperationList,
			want: true,
		},
		{
			name: "unlisted operation",
			rule: &AuthRule{Strategy: StrategyPublicAPIKey, Operations: []Operation{OperationRead, OperationList}},
			op:   OperationCreate,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rule.Allows(tt.op); got != tt.want {
				t.Errorf("Allows(%s) = %v, want %v", tt.op, got, tt.want)
			}
		})
	}
}

func TestParseOperation(t *testing.T) {
	for _, op := range AllOperations {
		got, ok := ParseOperation(string(op))
		if !ok || got != op {
			t.Errorf("ParseOperation(%q) = %q, %v", op, got, ok)
		}
	}

	if _, ok := ParseOperation("upsert"); ok {
		t.Error("expected upsert to be rejected")
	}
}
