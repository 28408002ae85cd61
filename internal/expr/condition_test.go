package expr

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCondition_Eval(t *testing.T) {
	view := map[string]any{
		"score":           0.92,
		"count":           json.Number("3"),
		"tier":            "gold",
		"flags":           []any{"a", "b"},
		"output_classify": "billing",
		"output_check":    map[string]any{"condition_result": true},
	}

	tests := []struct {
		name string
		src  string
		want bool
	}{
		{"numeric comparison", "state.score > 0.8", true},
		{"json number", "state.count == 3", true},
		{"string equality", `state.tier == "silver"`, false},
		{"boolean operators", `state.tier == "gold" && state.score < 1`, true},
		{"node output", `state.output_classify == "billing"`, true},
		{"nested output", "state.output_check.condition_result", true},
		{"index", `state.flags[1] == "b"`, true},
		{"negation", "!(state.score > 0.8)", false},
		{"literal", "true", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond, err := ParseCondition(tt.src)
			require.NoError(t, err)
			got, err := cond.Eval(view)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCondition_Restrictions(t *testing.T) {
	_, err := ParseCondition(`upper(state.tier) == "GOLD"`)
	assert.ErrorContains(t, err, "function calls are not allowed")

	_, err = ParseCondition(`env.HOME == "/root"`)
	assert.ErrorContains(t, err, `unknown variable "env"`)

	_, err = ParseCondition(`state.score >`)
	assert.ErrorContains(t, err, "invalid condition")

	_, err = ParseCondition("   ")
	assert.Error(t, err)
}

func TestCondition_EvalErrors(t *testing.T) {
	cond, err := ParseCondition("state.missing > 1")
	require.NoError(t, err)

	_, err = cond.Eval(map[string]any{"score": 1})
	assert.Error(t, err, "unknown attributes are an evaluation error")

	cond, err = ParseCondition("state.score")
	require.NoError(t, err)
	_, err = cond.Eval(map[string]any{"score": 1})
	assert.ErrorContains(t, err, "want bool")
}

func TestToCtyValue(t *testing.T) {
	v, err := ToCtyValue(map[string]any{
		"name": "ada",
		"n":    2,
		"ok":   true,
		"list": []any{"x", 1},
		"none": nil,
	})
	require.NoError(t, err)

	assert.True(t, v.Type().IsObjectType())
	assert.Equal(t, "ada", v.GetAttr("name").AsString())
	assert.True(t, v.GetAttr("ok").True())
	assert.Equal(t, 2, v.GetAttr("list").LengthInt())
	assert.True(t, v.GetAttr("none").IsNull())
}
