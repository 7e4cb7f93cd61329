package decider

import (
	"encoding/json"
	"fmt"
)

// Targeting operators supported in rule artifacts. ALL, ANY and NOT combine
// child nodes; EQ, NE and IN are leaves comparing one context field against
// one or more literal values.
const (
	opAll = "ALL"
	opAny = "ANY"
	opNot = "NOT"
	opEQ  = "EQ"
	opNE  = "NE"
	opIn  = "IN"
)

// TargetingNode is one node of a targeting predicate tree. A tree matches a
// context when its root node matches. A leaf referencing a field the context
// does not carry never matches; "unknown" is distinct from "false".
type TargetingNode struct {
	op string

	// Combinator children (ALL, ANY) or single child (NOT).
	children []*TargetingNode
	child    *TargetingNode

	// Leaf comparison (EQ, NE, IN).
	field  string
	values []any
}

// targetingLeaf is the JSON shape of a leaf comparison.
type targetingLeaf struct {
	Field  string `json:"field"`
	Value  any    `json:"value"`
	Values []any  `json:"values"`
}

// UnmarshalJSON decodes a targeting node from its artifact form: an object
// with exactly one operator key, e.g.
//
//	{"ALL": [{"EQ": {"field": "country_code", "values": ["US", "CA"]}}]}
func (n *TargetingNode) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("targeting node is not an object: %w", err)
	}
	if len(raw) != 1 {
		return fmt.Errorf("targeting node must have exactly one operator, got %d", len(raw))
	}

	for op, body := range raw {
		switch op {
		case opAll, opAny:
			var children []*TargetingNode
			if err := json.Unmarshal(body, &children); err != nil {
				return fmt.Errorf("targeting %s: %w", op, err)
			}
			n.op = op
			n.children = children

		case opNot:
			var child TargetingNode
			if err := json.Unmarshal(body, &child); err != nil {
				return fmt.Errorf("targeting NOT: %w", err)
			}
			n.op = op
			n.child = &child

		case opEQ, opNE, opIn:
			var leaf targetingLeaf
			if err := json.Unmarshal(body, &leaf); err != nil {
				return fmt.Errorf("targeting %s: %w", op, err)
			}
			if leaf.Field == "" {
				return fmt.Errorf("targeting %s: field is empty", op)
			}
			values := leaf.Values
			if values == nil && leaf.Value != nil {
				values = []any{leaf.Value}
			}
			if len(values) == 0 {
				return fmt.Errorf("targeting %s on %q: no values", op, leaf.Field)
			}
			n.op = op
			n.field = leaf.Field
			n.values = values

		default:
			return fmt.Errorf("unknown targeting operator %q", op)
		}
	}

	return nil
}

// Match evaluates the node against a flat context mapping.
func (n *TargetingNode) Match(ctx map[string]any) bool {
	if n == nil {
		return false
	}
	switch n.op {
	case opAll:
		for _, c := range n.children {
			if !c.Match(ctx) {
				return false
			}
		}
		return true

	case opAny:
		for _, c := range n.children {
			if c.Match(ctx) {
				return true
			}
		}
		return false

	case opNot:
		return !n.child.Match(ctx)

	case opEQ, opIn:
		got, ok := ctx[n.field]
		if !ok || got == nil {
			return false
		}
		for _, want := range n.values {
			if literalEqual(got, want) {
				return true
			}
		}
		return false

	case opNE:
		got, ok := ctx[n.field]
		if !ok || got == nil {
			return false
		}
		for _, want := range n.values {
			if literalEqual(got, want) {
				return false
			}
		}
		return true
	}

	return false
}

// literalEqual compares a context value against an artifact literal.
// Artifact numbers decode as float64; context numbers may be any Go
// numeric type, so both sides are normalized before comparison.
func literalEqual(got, want any) bool {
	if gf, ok := asFloat(got); ok {
		wf, ok := asFloat(want)
		return ok && gf == wf
	}

	switch g := got.(type) {
	case string:
		w, ok := want.(string)
		return ok && g == w
	case bool:
		w, ok := want.(bool)
		return ok && g == w
	}

	return false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
