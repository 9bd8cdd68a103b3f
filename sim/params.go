package sim

import (
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/sirupsen/logrus"
)

// Values is an explicit candidate collection for one parameter.
type Values []any

// ValuesOf returns its arguments as a candidate collection.
func ValuesOf(vs ...any) Values {
	return Values(vs)
}

// Candidates normalizes a raw parameter value into its ordered candidate
// collection. Slices, arrays and Values are used element by element; every
// other value, including strings, byte slices and maps, is a single candidate.
// Maps are deliberately not expanded by key: their iteration order is random,
// which would make scenario numbering unreproducible.
func Candidates(v any) []any {
	switch x := v.(type) {
	case nil:
		return []any{nil}
	case Values:
		return append([]any(nil), x...)
	case string, []byte:
		return []any{x}
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out
	default:
		return []any{v}
	}
}

// ParamGrid maps parameter names to candidate collections, keeping the order
// in which names were first added.
type ParamGrid struct {
	names      []string
	candidates map[string][]any
}

// NewParamGrid creates an empty grid.
func NewParamGrid() *ParamGrid {
	return &ParamGrid{candidates: make(map[string][]any)}
}

// Add normalizes value and stores it under name. Adding an existing name
// replaces its candidates but keeps its original position.
func (g *ParamGrid) Add(name string, value any) *ParamGrid {
	if _, exists := g.candidates[name]; !exists {
		g.names = append(g.names, name)
	}
	g.candidates[name] = Candidates(value)
	return g
}

// Names returns parameter names in insertion order.
func (g *ParamGrid) Names() []string {
	if g == nil {
		return nil
	}
	return append([]string(nil), g.names...)
}

// CandidatesFor returns the normalized candidates stored under name.
func (g *ParamGrid) CandidatesFor(name string) []any {
	if g == nil {
		return nil
	}
	return append([]any(nil), g.candidates[name]...)
}

// Size returns the number of combinations the grid expands to. A grid whose
// product does not fit in an int logs a warning and reports 0.
func (g *ParamGrid) Size() int {
	n, ok := g.size()
	if !ok {
		logrus.Warnf("parameter grid of %d names overflows int; treating it as empty", len(g.names))
		return 0
	}
	return n
}

func (g *ParamGrid) size() (int, bool) {
	n := 1
	if g == nil {
		return n, true
	}
	for _, name := range g.names {
		c := len(g.candidates[name])
		if c != 0 && n > math.MaxInt/c {
			return 0, false
		}
		n *= c
	}
	return n, true
}

// Param is one name/value assignment.
type Param struct {
	Name  string
	Value any
}

// ParamSet is an ordered, read-only mapping of parameter names to single
// values. The zero value is an empty set.
type ParamSet struct {
	params []Param
}

// NewParamSet builds a set from params in the given order.
func NewParamSet(params ...Param) ParamSet {
	return ParamSet{params: append([]Param(nil), params...)}
}

// Len returns the number of parameters.
func (p ParamSet) Len() int { return len(p.params) }

// Params returns a copy of the assignments in order.
func (p ParamSet) Params() []Param {
	return append([]Param(nil), p.params...)
}

// Names returns the parameter names in order.
func (p ParamSet) Names() []string {
	names := make([]string, len(p.params))
	for i, param := range p.params {
		names[i] = param.Name
	}
	return names
}

// Get returns the value for name.
func (p ParamSet) Get(name string) (any, bool) {
	for _, param := range p.params {
		if param.Name == name {
			return param.Value, true
		}
	}
	return nil, false
}

// GetString returns the string value for name, or def when absent.
func (p ParamSet) GetString(name, def string) (string, error) {
	v, ok := p.Get(name)
	if !ok {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("parameter %q: want string, got %T", name, v)
	}
	return s, nil
}

// GetInt returns the integer value for name, or def when absent. Whole floats
// are accepted since decoded numbers may arrive as float64.
func (p ParamSet) GetInt(name string, def int64) (int64, error) {
	v, ok := p.Get(name)
	if !ok {
		return def, nil
	}
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint:
		return int64(x), nil
	case float64:
		if x == math.Trunc(x) {
			return int64(x), nil
		}
	}
	return 0, fmt.Errorf("parameter %q: want integer, got %T(%v)", name, v, v)
}

// String renders the set as "{a:1, b:2}".
func (p ParamSet) String() string {
	var sb strings.Builder
	sb.WriteString("{")
	for i, param := range p.params {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s:%v", param.Name, param.Value)
	}
	sb.WriteString("}")
	return sb.String()
}
