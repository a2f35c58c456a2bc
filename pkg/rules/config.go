package rules

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Actions of a conditional rendering rule.
const (
	ActionShow = "Show"
	ActionHide = "Hide"
)

// Function kinds declared in a configuration's functions section.
const (
	KindRule      = "rule"
	KindCondition = "condition"
)

// OutParam is the output parameter a calculation rule writes.
const OutParam = "outParam0"

// RuleConnection wires a calculation function to input and output bindings.
type RuleConnection struct {
	SelectedFunction string `json:"selectedFunction"`
	InputParams      Params `json:"inputParams"`
	OutParams        Params `json:"outParams"`
}

// GroupScope runs a conditional rule once per row of a repeating group and,
// with ChildGroupID set, once per row of that nested group inside each row.
type GroupScope struct {
	GroupID      string `json:"groupId"`
	ChildGroupID string `json:"childGroupId,omitempty"`
}

// ConditionalRule shows or hides components based on a predicate.
type ConditionalRule struct {
	ID               string      `json:"-"`
	SelectedFunction string      `json:"selectedFunction"`
	InputParams      Params      `json:"inputParams"`
	SelectedAction   string      `json:"selectedAction"`
	SelectedFields   Params      `json:"selectedFields"`
	RepeatingGroup   *GroupScope `json:"repeatingGroup,omitempty"`
}

// ConditionalRules keeps rules in declaration order, which fixes the order
// of the hide list.
type ConditionalRules []ConditionalRule

// UnmarshalJSON decodes the id → rule object in document order.
func (c *ConditionalRules) UnmarshalJSON(data []byte) error {
	members, err := decodeMembers(data)
	if err != nil {
		return err
	}
	out := make(ConditionalRules, 0, len(members))
	for _, m := range members {
		var rule ConditionalRule
		if err := json.Unmarshal(m.value, &rule); err != nil {
			return fmt.Errorf("rules: conditional rule %q: %w", m.key, err)
		}
		rule.ID = m.key
		out = append(out, rule)
	}
	*c = out
	return nil
}

// MarshalJSON encodes the rules as an id → rule object.
func (c ConditionalRules) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, rule := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(rule.ID))
		buf.WriteByte(':')
		encoded, err := json.Marshal(rule)
		if err != nil {
			return nil, err
		}
		buf.Write(encoded)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// FunctionSpec declares an expression-backed function.
type FunctionSpec struct {
	Kind        string   `json:"kind"`
	Params      []string `json:"params,omitempty"`
	Expression  string   `json:"expression"`
	Description string   `json:"description,omitempty"`
}

// Config is an app's rule configuration.
type Config struct {
	RuleConnections      map[string]RuleConnection `json:"ruleConnection,omitempty"`
	ConditionalRendering ConditionalRules          `json:"conditionalRendering,omitempty"`
	Functions            map[string]FunctionSpec   `json:"functions,omitempty"`
}

// LoadConfig decodes a rule configuration in JSON or YAML. Both the
// {"data": {...}} envelope and the bare object are accepted.
func LoadConfig(data []byte) (Config, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Config{}, nil
	}
	if !json.Valid(trimmed) {
		converted, err := yamlToJSON(trimmed)
		if err != nil {
			return Config{}, err
		}
		trimmed = converted
	}

	var envelope struct {
		Data *Config `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return Config{}, fmt.Errorf("rules: decode config: %w", err)
	}
	if envelope.Data != nil {
		return *envelope.Data, nil
	}
	var cfg Config
	if err := json.Unmarshal(trimmed, &cfg); err != nil {
		return Config{}, fmt.Errorf("rules: decode config: %w", err)
	}
	return cfg, nil
}

// Register compiles the declared functions into the registry of their kind.
// Every declaration is attempted; the joined error reports the failures.
func (c Config) Register(ruleFuncs, conditionFuncs *Registry) error {
	var errs []error
	for _, name := range sortedKeys(c.Functions) {
		spec := c.Functions[name]
		expr, err := CompileExpression(spec.Expression)
		if err != nil {
			errs = append(errs, fmt.Errorf("rules: function %q: %w", name, err))
			continue
		}
		fn := Function{Descriptor: Descriptor{Name: name, Params: spec.Params, Description: spec.Description}}
		var target *Registry
		switch spec.Kind {
		case KindRule, "":
			fn.Impl = func(input map[string]any) (any, error) { return expr.Eval(input), nil }
			target = ruleFuncs
		case KindCondition:
			fn.Impl = func(input map[string]any) (any, error) { return Truthy(expr.Eval(input)), nil }
			target = conditionFuncs
		default:
			errs = append(errs, fmt.Errorf("rules: function %q: unknown kind %q", name, spec.Kind))
			continue
		}
		if err := target.RegisterFunction(fn); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// yamlToJSON re-encodes a YAML document as JSON, keeping mapping order.
func yamlToJSON(data []byte) ([]byte, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("rules: decode yaml: %w", err)
	}
	var buf bytes.Buffer
	if err := writeYAMLNode(&buf, &doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeYAMLNode(buf *bytes.Buffer, node *yaml.Node) error {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			buf.WriteString("null")
			return nil
		}
		return writeYAMLNode(buf, node.Content[0])
	case yaml.AliasNode:
		return writeYAMLNode(buf, node.Alias)
	case yaml.MappingNode:
		buf.WriteByte('{')
		for i := 0; i+1 < len(node.Content); i += 2 {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(strconv.Quote(node.Content[i].Value))
			buf.WriteByte(':')
			if err := writeYAMLNode(buf, node.Content[i+1]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case yaml.SequenceNode:
		buf.WriteByte('[')
		for i, item := range node.Content {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeYAMLNode(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	default:
		var value any
		if err := node.Decode(&value); err != nil {
			return fmt.Errorf("rules: decode yaml scalar at line %d: %w", node.Line, err)
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("rules: encode yaml scalar at line %d: %w", node.Line, err)
		}
		buf.Write(encoded)
		return nil
	}
}
