package expr

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/zclconf/go-cty/cty"
)

// ToCtyValue converts a native value from the flattened state view into a
// cty.Value. Maps become objects and slices become tuples so heterogeneous
// content is allowed.
func ToCtyValue(v any) (cty.Value, error) {
	switch val := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case cty.Value:
		return val, nil
	case string:
		return cty.StringVal(val), nil
	case bool:
		return cty.BoolVal(val), nil
	case int:
		return cty.NumberIntVal(int64(val)), nil
	case int32:
		return cty.NumberIntVal(int64(val)), nil
	case int64:
		return cty.NumberIntVal(val), nil
	case uint:
		return cty.NumberUIntVal(uint64(val)), nil
	case uint64:
		return cty.NumberUIntVal(val), nil
	case float32:
		return cty.NumberFloatVal(float64(val)), nil
	case float64:
		return cty.NumberFloatVal(val), nil
	case json.Number:
		f, ok := new(big.Float).SetString(val.String())
		if !ok {
			return cty.NilVal, fmt.Errorf("invalid number %q", val.String())
		}
		return cty.NumberVal(f), nil
	case []any:
		if len(val) == 0 {
			return cty.EmptyTupleVal, nil
		}
		elems := make([]cty.Value, 0, len(val))
		for i, item := range val {
			ev, err := ToCtyValue(item)
			if err != nil {
				return cty.NilVal, fmt.Errorf("index %d: %w", i, err)
			}
			elems = append(elems, ev)
		}
		return cty.TupleVal(elems), nil
	case []string:
		items := make([]any, 0, len(val))
		for _, s := range val {
			items = append(items, s)
		}
		return ToCtyValue(items)
	case map[string]any:
		if len(val) == 0 {
			return cty.EmptyObjectVal, nil
		}
		attrs := make(map[string]cty.Value, len(val))
		for k, item := range val {
			av, err := ToCtyValue(item)
			if err != nil {
				return cty.NilVal, fmt.Errorf("key %q: %w", k, err)
			}
			attrs[k] = av
		}
		return cty.ObjectVal(attrs), nil
	case map[string]string:
		items := make(map[string]any, len(val))
		for k, s := range val {
			items[k] = s
		}
		return ToCtyValue(items)
	default:
		// Structs and other shapes go through their JSON form.
		data, err := json.Marshal(val)
		if err != nil {
			return cty.NilVal, fmt.Errorf("unsupported value of type %T", v)
		}
		var generic any
		if err := json.Unmarshal(data, &generic); err != nil {
			return cty.NilVal, fmt.Errorf("unsupported value of type %T", v)
		}
		return ToCtyValue(generic)
	}
}
