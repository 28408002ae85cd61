package expr

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// RootName is the only variable a condition may reference.
const RootName = "state"

// Condition is a parsed boolean expression such as
//
//	state.score > 0.8 && state.output_classify == "billing"
//
// Conditions may read variables under "state" and use operators; function
// calls are rejected at parse time, so evaluation cannot execute code.
type Condition struct {
	src  string
	expr hclsyntax.Expression
}

// ParseCondition parses and checks a condition.
func ParseCondition(src string) (*Condition, error) {
	if strings.TrimSpace(src) == "" {
		return nil, fmt.Errorf("condition is empty")
	}

	parsed, diags := hclsyntax.ParseExpression([]byte(src), "condition", hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid condition %q: %s", src, diags.Error())
	}

	for _, traversal := range parsed.Variables() {
		if root := traversal.RootName(); root != RootName {
			return nil, fmt.Errorf("invalid condition %q: unknown variable %q (only %q is available)", src, root, RootName)
		}
	}

	if fn := firstFunctionCall(parsed); fn != "" {
		return nil, fmt.Errorf("invalid condition %q: function calls are not allowed (%s)", src, fn)
	}

	return &Condition{src: src, expr: parsed}, nil
}

// String returns the source text.
func (c *Condition) String() string {
	return c.src
}

// Eval evaluates the condition against the flattened state view.
// The result must be a known, non-null bool.
func (c *Condition) Eval(view map[string]any) (bool, error) {
	state, err := ToCtyValue(view)
	if err != nil {
		return false, fmt.Errorf("cannot expose state to condition: %w", err)
	}
	if state.IsNull() {
		state = cty.EmptyObjectVal
	}

	val, diags := c.expr.Value(&hcl.EvalContext{
		Variables: map[string]cty.Value{RootName: state},
	})
	if diags.HasErrors() {
		return false, fmt.Errorf("condition %q: %s", c.src, diags.Error())
	}
	if !val.IsKnown() || val.IsNull() {
		return false, fmt.Errorf("condition %q evaluated to null", c.src)
	}
	if val.Type() != cty.Bool {
		return false, fmt.Errorf("condition %q evaluated to %s, want bool", c.src, val.Type().FriendlyName())
	}
	return val.True(), nil
}

// firstFunctionCall walks the syntax tree and returns the name of the first
// function call found, or "".
func firstFunctionCall(expr hclsyntax.Expression) string {
	var found string
	_ = hclsyntax.VisitAll(expr, func(node hclsyntax.Node) hcl.Diagnostics {
		if call, ok := node.(*hclsyntax.FunctionCallExpr); ok && found == "" {
			found = call.Name
		}
		return nil
	})
	return found
}
