// Package validate turns raw key/value rows into typed, validated records.
//
// Every validator reports all violations it finds, not just the first.
// Validators are pure: they never read files or log.
package validate

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
)

// Mode selects how keys outside a schema are treated.
type Mode int

const (
	// Strict rejects unknown keys.
	Strict Mode = iota
	// Permissive ignores unknown keys.
	Permissive
)

func (m Mode) String() string {
	if m == Permissive {
		return "permissive"
	}
	return "strict"
}

// Violation rules.
const (
	RuleMissing        = "missing"
	RuleExtraForbidden = "extra_forbidden"
	RuleType           = "type"
	RuleLiteral        = "literal"
	RuleRange          = "range"
	RuleRequired       = "required"
	RuleLessOrEqual    = "less_or_equal_field"
	RuleCoordinates    = "coordinates"
)

// Violation is one failed constraint.
type Violation struct {
	// Fields names the offending fields; cross-field rules name both.
	Fields  []string
	Rule    string
	Message string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s [%s]", strings.Join(v.Fields, ", "), v.Message, v.Rule)
}

// ValidationError lists every violation found for one input.
type ValidationError struct {
	Entity     string
	Violations []Violation
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	noun := "errors"
	if len(e.Violations) == 1 {
		noun = "error"
	}
	fmt.Fprintf(&b, "%d validation %s for %s", len(e.Violations), noun, e.Entity)
	for _, v := range e.Violations {
		b.WriteString("\n  ")
		b.WriteString(v.String())
	}
	return b.String()
}

// HasField reports whether any violation names field.
func (e *ValidationError) HasField(field string) bool {
	for _, v := range e.Violations {
		for _, f := range v.Fields {
			if f == field {
				return true
			}
		}
	}
	return false
}

// HasRule reports whether any violation has the given rule.
func (e *ValidationError) HasRule(rule string) bool {
	for _, v := range e.Violations {
		if v.Rule == rule {
			return true
		}
	}
	return false
}

// AsValidationError unwraps err into a *ValidationError.
func AsValidationError(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

const tagName = "field"

var (
	structValidatorOnce sync.Once
	structValidator     *validator.Validate
)

func getValidator() *validator.Validate {
	structValidatorOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := fld.Tag.Get(tagName)
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
		structValidator = v
	})
	return structValidator
}

// schemaFields returns the field tag names of a struct type, in declaration order.
func schemaFields(t reflect.Type) []string {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	fields := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if name := t.Field(i).Tag.Get(tagName); name != "" && name != "-" {
			fields = append(fields, name)
		}
	}
	return fields
}

// isOptional reports whether the struct field for name is a pointer.
func isOptional(t reflect.Type, name string) bool {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Tag.Get(tagName) == name {
			return f.Type.Kind() == reflect.Ptr
		}
	}
	return false
}

// isEmpty reports whether a raw value counts as absent.
func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case float64:
		return math.IsNaN(x)
	}
	return false
}

// decodeInto decodes raw into out (a pointer to a tagged struct) one field at a
// time, so that each type failure is attributed to its field. Unknown keys are
// reported in Strict mode and skipped in Permissive mode.
func decodeInto(raw map[string]any, out any, mode Mode, prefix string) []Violation {
	t := reflect.TypeOf(out)
	fields := schemaFields(t)
	known := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		known[f] = struct{}{}
	}

	var violations []Violation

	if mode == Strict {
		var extra []string
		for k := range raw {
			if _, ok := known[k]; !ok {
				extra = append(extra, k)
			}
		}
		sort.Strings(extra)
		for _, k := range extra {
			violations = append(violations, Violation{
				Fields:  []string{prefix + k},
				Rule:    RuleExtraForbidden,
				Message: "extra inputs are not permitted",
			})
		}
	}

	for _, name := range fields {
		v, present := raw[name]
		if !present || isEmpty(v) {
			if isOptional(t, name) {
				continue
			}
			violations = append(violations, Violation{
				Fields:  []string{prefix + name},
				Rule:    RuleMissing,
				Message: "field required",
			})
			continue
		}

		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			TagName:    tagName,
			Result:     out,
			DecodeHook: scalarHook,
		})
		if err != nil {
			violations = append(violations, Violation{
				Fields: []string{prefix + name}, Rule: RuleType, Message: err.Error(),
			})
			continue
		}
		if err := dec.Decode(map[string]any{name: v}); err != nil {
			violations = append(violations, Violation{
				Fields:  []string{prefix + name},
				Rule:    RuleType,
				Message: typeMessage(t, name, v),
			})
		}
	}

	return violations
}

// checkTags runs the validate struct tags over a decoded record.
func checkTags(rec any, prefix string, skip map[string]bool) []Violation {
	err := getValidator().Struct(rec)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []Violation{{Fields: []string{prefix}, Rule: RuleType, Message: err.Error()}}
	}
	var violations []Violation
	for _, fe := range verrs {
		field := fe.Field()
		if skip[field] {
			continue
		}
		violations = append(violations, tagViolation(prefix+field, fe))
	}
	return violations
}

func tagViolation(field string, fe validator.FieldError) Violation {
	switch fe.Tag() {
	case "required":
		return Violation{Fields: []string{field}, Rule: RuleRequired, Message: "field required"}
	case "gte":
		return Violation{
			Fields:  []string{field},
			Rule:    RuleRange,
			Message: fmt.Sprintf("input should be greater than or equal to %s, got %v", fe.Param(), fe.Value()),
		}
	case "lte":
		return Violation{
			Fields:  []string{field},
			Rule:    RuleRange,
			Message: fmt.Sprintf("input should be less than or equal to %s, got %v", fe.Param(), fe.Value()),
		}
	default:
		return Violation{
			Fields:  []string{field},
			Rule:    fe.Tag(),
			Message: fmt.Sprintf("failed %q constraint", fe.Tag()),
		}
	}
}

// scalarHook converts raw scalars into the numeric kinds of the target field.
// Strings are parsed in base 10; floats bound for integer fields must be integral.
func scalarHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		switch x := data.(type) {
		case string:
			s := strings.TrimSpace(x)
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				return n, nil
			}
			f, err := strconv.ParseFloat(s, 64)
			if err != nil || !integral(f) {
				return nil, fmt.Errorf("cannot parse %q as integer", x)
			}
			return int64(f), nil
		case float64:
			if !integral(x) {
				return nil, fmt.Errorf("%v is not an integer", x)
			}
			return int64(x), nil
		case bool:
			return nil, fmt.Errorf("boolean is not an integer")
		}
	case reflect.Float32, reflect.Float64:
		switch x := data.(type) {
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
			if err != nil || !finite(f) {
				return nil, fmt.Errorf("cannot parse %q as number", x)
			}
			return f, nil
		case float64:
			if !finite(x) {
				return nil, fmt.Errorf("%v is not a finite number", x)
			}
		case bool:
			return nil, fmt.Errorf("boolean is not a number")
		}
	case reflect.String:
		switch data.(type) {
		case string:
			return data, nil
		default:
			return nil, fmt.Errorf("expected string, got %T", data)
		}
	}
	return data, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// integral reports whether f is a whole number that fits in an int64.
// float64(math.MaxInt64) rounds up to 2^63, so the upper bound is exclusive.
func integral(f float64) bool {
	return finite(f) && f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64
}

func typeMessage(t reflect.Type, name string, v any) string {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Tag.Get(tagName) != name {
			continue
		}
		ft := f.Type
		for ft.Kind() == reflect.Ptr {
			ft = ft.Elem()
		}
		switch ft.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return fmt.Sprintf("input should be a valid integer, got %v", v)
		case reflect.Float32, reflect.Float64:
			return fmt.Sprintf("input should be a valid number, got %v", v)
		case reflect.String:
			return fmt.Sprintf("input should be a valid string, got %T", v)
		}
	}
	return fmt.Sprintf("invalid value %v", v)
}
