// Package paramtype implements the declarative task parameter schema
// (spec component G): string, int, choice and collection-of parameter
// types, each able to validate a decoded JSON value and parse a raw
// string form.
package paramtype

import (
	"fmt"
	"strconv"
)

// Value is the generic decoded-JSON representation a Parameter validates:
// string, float64 (JSON numbers decode to float64; Int additionally
// requires the value have no fractional part and not be a bool), or
// []Value for a Collection.
type Value = any

// Parameter is implemented by each of the four concrete parameter types.
type Parameter interface {
	Name() string
	// Validate returns an error if value is not syntactically appropriate
	// for this parameter.
	Validate(value Value) error
	// ParseString parses a raw string form (e.g. from a CLI flag or form
	// field) into a Value. Collection does not support this and always
	// returns an error; its elements are parsed individually instead.
	ParseString(s string) (Value, error)
}

// String is any valid Unicode string.
type String struct {
	name string
}

func NewString(name string) *String { return &String{name: name} }

func (p *String) Name() string { return p.name }

func (p *String) Validate(value Value) error {
	if _, ok := value.(string); !ok {
		return fmt.Errorf("invalid value for string parameter %s", p.name)
	}
	return nil
}

func (p *String) ParseString(s string) (Value, error) { return s, nil }

// Int is an integer parameter. JSON-decoded values arrive as float64;
// Validate requires an integral value (no bool, matching Python's
// "not isinstance(value, int)" check, where bool is a subtype of int
// there but is explicitly NOT a bool here since Go has a distinct bool
// type that never satisfies a float64 type switch).
type Int struct {
	name string
}

func NewInt(name string) *Int { return &Int{name: name} }

func (p *Int) Name() string { return p.name }

func (p *Int) Validate(value Value) error {
	switch v := value.(type) {
	case int:
		return nil
	case float64:
		if v != float64(int64(v)) {
			return fmt.Errorf("invalid value for int parameter %s", p.name)
		}
		return nil
	default:
		return fmt.Errorf("invalid value for int parameter %s", p.name)
	}
}

func (p *Int) ParseString(s string) (Value, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("invalid int value %q for parameter %s", s, p.name)
	}
	return v, nil
}

// Choice requires the value be one of a fixed set of keys, each mapped to
// a human-readable label (the label is display-only and unused by
// Validate/ParseString).
type Choice struct {
	name   string
	values map[string]string
}

func NewChoice(name string, values map[string]string) *Choice {
	return &Choice{name: name, values: values}
}

func (p *Choice) Name() string { return p.name }

func (p *Choice) Validate(value Value) error {
	key := fmt.Sprintf("%v", value)
	if _, ok := p.values[key]; !ok {
		return fmt.Errorf("invalid choice %v for parameter %s", value, p.name)
	}
	return nil
}

func (p *Choice) ParseString(s string) (Value, error) {
	if _, ok := p.values[s]; !ok {
		return nil, fmt.Errorf("value %q doesn't match any allowed choice for parameter %s", s, p.name)
	}
	return s, nil
}

// Collection validates a list of the same length as its subparameters,
// each element validated by the corresponding sub-parameter. It has no
// ParseString: parsing a list from a flat form happens element-wise by
// the caller.
type Collection struct {
	name          string
	subparameters []Parameter
}

func NewCollection(name string, subparameters []Parameter) *Collection {
	return &Collection{name: name, subparameters: subparameters}
}

func (p *Collection) Name() string { return p.name }

func (p *Collection) Validate(value Value) error {
	list, ok := value.([]Value)
	if !ok {
		return fmt.Errorf("parameter %s should be a list", p.name)
	}
	if len(list) != len(p.subparameters) {
		return fmt.Errorf("invalid value for parameter %s", p.name)
	}
	for i, sub := range p.subparameters {
		if err := sub.Validate(list[i]); err != nil {
			return err
		}
	}
	return nil
}

func (p *Collection) ParseString(s string) (Value, error) {
	return nil, fmt.Errorf("parse_string is not implemented for composite parameter %s", p.name)
}

// ValidateSchema enforces the task-type-level contract: values must be a
// list of the same length as accepted, with every element valid against
// its parameter.
func ValidateSchema(accepted []Parameter, values []Value) error {
	if len(values) != len(accepted) {
		return fmt.Errorf("expected %d parameters, got %d", len(accepted), len(values))
	}
	for i, p := range accepted {
		if err := p.Validate(values[i]); err != nil {
			return err
		}
	}
	return nil
}
