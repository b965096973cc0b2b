package filter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/hugr-lab/cql/catalog"
)

// Reserved predicate-map keys.
const (
	keyAnd    = "_and"
	keyOr     = "_or"
	keyNot    = "_not"
	keyExists = "_exists"
)

// Decode parses a JSON filter document into an expression tree, preserving
// the order of predicate-map keys. An empty document decodes to nil, the
// identity filter.
//
//	{"_or": [
//	    {"name": {"equals": "Alice"}},
//	    {"age": {"greater_than": 18, "less_than": 65}}
//	]}
//
// Decode validates structure (JSON shape, combinator arity), not operator
// legality; unknown operators survive decoding and become no-ops at
// compile time.
func Decode(data []byte) (Expression, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeJSONValue(dec)
	if err != nil {
		return nil, malformed("filter", "invalid JSON: %v", err)
	}
	om, ok := v.(*orderedMap)
	if !ok {
		return nil, malformed("filter", "filter must be a JSON object, got %T", v)
	}
	return buildExpression(om, "filter")
}

// DecodeMsgpack parses a msgpack-encoded filter document. Msgpack maps do
// not preserve key order; keys are processed in sorted order instead.
func DecodeMsgpack(data []byte) (Expression, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var m map[string]any
	if err := msgpack.Unmarshal(data, &m); err != nil {
		return nil, malformed("filter", "invalid msgpack: %v", err)
	}
	return FromMap(m)
}

// FromMap builds an expression tree from an already-unmarshalled filter
// document. Keys are processed in sorted order since Go maps carry none.
func FromMap(m map[string]any) (Expression, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return buildExpression(sortedMap(m), "filter")
}

// orderedMap is a JSON object with key order retained.
type orderedMap struct {
	keys   []string
	values map[string]any
}

func sortedMap(m map[string]any) *orderedMap {
	om := &orderedMap{values: make(map[string]any, len(m))}
	for k, v := range m {
		om.keys = append(om.keys, k)
		if mv, ok := v.(map[string]any); ok {
			om.values[k] = sortedMap(mv)
		} else {
			om.values[k] = v
		}
	}
	sort.Strings(om.keys)
	return om
}

// decodeJSONValue reads one JSON value from the token stream, representing
// objects as *orderedMap so predicate-map order survives.
func decodeJSONValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return decodeJSONToken(dec, tok)
}

func decodeJSONToken(dec *json.Decoder, tok json.Token) (any, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			om := &orderedMap{values: map[string]any{}}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key is not a string")
				}
				val, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				om.keys = append(om.keys, key)
				om.values[key] = val
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return nil, err
			}
			return om, nil
		case '[':
			var arr []any
			for dec.More() {
				val, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, val)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return nil, err
			}
			return arr, nil
		default:
			return nil, fmt.Errorf("unexpected delimiter %v", t)
		}
	default:
		return tok, nil
	}
}

// buildExpression turns a decoded object into an expression node. Reserved
// keys become combinators, everything else becomes a field predicate; all
// components of one object compose conjunctively.
func buildExpression(om *orderedMap, path string) (Expression, error) {
	var components []Expression
	var where *Where

	ensureWhere := func() *Where {
		if where == nil {
			where = &Where{}
		}
		return where
	}

	for _, key := range om.keys {
		val := om.values[key]
		switch key {
		case keyAnd, keyOr:
			list, ok := val.([]any)
			if !ok {
				return nil, malformed(path, "%s expects an array of filters", key)
			}
			children, err := buildChildren(list, path+"."+key)
			if err != nil {
				return nil, err
			}
			if key == keyAnd {
				components = append(components, &And{Children: children})
			} else {
				components = append(components, &Or{Children: children})
			}
		case keyNot:
			child, ok := val.(*orderedMap)
			if !ok {
				return nil, malformed(path, "%s expects a filter object", keyNot)
			}
			sub, err := buildExpression(child, path+"."+keyNot)
			if err != nil {
				return nil, err
			}
			components = append(components, &Not{Child: sub})
		case keyExists:
			b, ok := val.(bool)
			if !ok {
				return nil, malformed(path, "%s expects a boolean", keyExists)
			}
			ensureWhere().Exists = &b
		default:
			fp, err := buildFieldPredicate(key, val, path)
			if err != nil {
				return nil, err
			}
			w := ensureWhere()
			w.Predicates = append(w.Predicates, fp)
		}
	}

	if where != nil {
		components = append(components, where)
	}
	switch len(components) {
	case 0:
		return nil, nil
	case 1:
		return components[0], nil
	default:
		return &And{Children: components}, nil
	}
}

func buildChildren(list []any, path string) ([]Expression, error) {
	children := make([]Expression, 0, len(list))
	for i, item := range list {
		om, ok := item.(*orderedMap)
		if !ok {
			return nil, malformed(path, "element %d is not a filter object", i)
		}
		child, err := buildExpression(om, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return children, nil
}

// buildFieldPredicate decides whether a field's object is a set of
// {operator: value} conditions or an association sub-filter: it is a
// condition set exactly when every key is a known operator name.
func buildFieldPredicate(field string, val any, path string) (FieldPredicate, error) {
	om, ok := val.(*orderedMap)
	if !ok {
		return FieldPredicate{}, malformed(path+"."+field,
			"field predicate must be an object of {operator: value} pairs")
	}

	allOperators := len(om.keys) > 0
	for _, k := range om.keys {
		if _, isOp := catalog.ParseOperator(k); !isOp {
			allOperators = false
			break
		}
	}

	if allOperators {
		fp := FieldPredicate{Field: field}
		for _, k := range om.keys {
			op, _ := catalog.ParseOperator(k)
			fp.Conditions = append(fp.Conditions, Condition{Operator: op, Value: plainValue(om.values[k])})
		}
		return fp, nil
	}

	sub, err := buildExpression(om, path+"."+field)
	if err != nil {
		return FieldPredicate{}, err
	}
	return FieldPredicate{Field: field, Sub: sub}, nil
}

// plainValue strips orderedMap wrappers from operator values (geo points
// and the like arrive as objects).
func plainValue(v any) any {
	switch t := v.(type) {
	case *orderedMap:
		m := make(map[string]any, len(t.keys))
		for k, val := range t.values {
			m[k] = plainValue(val)
		}
		return m
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = plainValue(item)
		}
		return out
	default:
		return v
	}
}
