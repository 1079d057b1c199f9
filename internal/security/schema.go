package security

import (
	"fmt"
	"math"
)

// FieldRule is one declarative validation rule for a JSON body field.
// Rules are tagged variants evaluated by checkField, keeping the schema
// declarative without runtime type ambiguity.
type FieldRule interface {
	describe() string
}

// StringRule constrains a string field's length.
type StringRule struct {
	Min int
	Max int
}

func (r StringRule) describe() string { return fmt.Sprintf("string[%d..%d]", r.Min, r.Max) }

// NumberRule constrains a numeric field's range.
type NumberRule struct {
	Min float64
	Max float64
}

func (r NumberRule) describe() string { return fmt.Sprintf("number[%g..%g]", r.Min, r.Max) }

// EnumRule constrains a string field to a fixed value set.
type EnumRule struct {
	Values []string
}

func (r EnumRule) describe() string { return fmt.Sprintf("enum%v", r.Values) }

// ArrayRule constrains an array field's element rule and length.
type ArrayRule struct {
	Item     FieldRule
	MaxItems int
}

func (r ArrayRule) describe() string {
	return fmt.Sprintf("array[%s]{..%d}", r.Item.describe(), r.MaxItems)
}

// BoolRule accepts a boolean field.
type BoolRule struct{}

func (BoolRule) describe() string { return "bool" }

// Schema declares the expected shape of a JSON request body.
type Schema struct {
	Required map[string]FieldRule
	Optional map[string]FieldRule
}

// rule returns the rule for a field name, searching required then optional.
func (s *Schema) rule(name string) (FieldRule, bool) {
	if r, ok := s.Required[name]; ok {
		return r, true
	}
	r, ok := s.Optional[name]
	return r, ok
}

// checkField dispatches a single value against its rule and returns
// field-level error strings.
func checkField(name string, rule FieldRule, value any) []string {
	switch r := rule.(type) {
	case StringRule:
		s, ok := value.(string)
		if !ok {
			return []string{fmt.Sprintf("%s: expected string, got %T", name, value)}
		}
		if len(s) < r.Min {
			return []string{fmt.Sprintf("%s: shorter than %d characters", name, r.Min)}
		}
		if r.Max > 0 && len(s) > r.Max {
			return []string{fmt.Sprintf("%s: longer than %d characters", name, r.Max)}
		}
	case NumberRule:
		n, ok := value.(float64)
		if !ok {
			return []string{fmt.Sprintf("%s: expected number, got %T", name, value)}
		}
		min, max := r.Min, r.Max
		if max == 0 {
			max = math.MaxFloat64
		}
		if n < min || n > max {
			return []string{fmt.Sprintf("%s: out of range [%g, %g]", name, min, max)}
		}
	case EnumRule:
		s, ok := value.(string)
		if !ok {
			return []string{fmt.Sprintf("%s: expected string, got %T", name, value)}
		}
		for _, v := range r.Values {
			if s == v {
				return nil
			}
		}
		return []string{fmt.Sprintf("%s: must be one of %v", name, r.Values)}
	case ArrayRule:
		items, ok := value.([]any)
		if !ok {
			return []string{fmt.Sprintf("%s: expected array, got %T", name, value)}
		}
		if r.MaxItems > 0 && len(items) > r.MaxItems {
			return []string{fmt.Sprintf("%s: more than %d items", name, r.MaxItems)}
		}
		var errs []string
		for i, item := range items {
			errs = append(errs, checkField(fmt.Sprintf("%s[%d]", name, i), r.Item, item)...)
		}
		return errs
	case BoolRule:
		if _, ok := value.(bool); !ok {
			return []string{fmt.Sprintf("%s: expected bool, got %T", name, value)}
		}
	default:
		return []string{fmt.Sprintf("%s: unknown rule", name)}
	}
	return nil
}
