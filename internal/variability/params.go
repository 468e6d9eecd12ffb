package variability

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// NullModel is the model name assigned to objects without variability.
const NullModel = "None"

// Kind is the JSON type of a parameter value.
type Kind uint8

const (
	KindNull Kind = iota
	KindNumber
	KindString
	KindBool
)

// Value is one decoded parameter. The zero Value is null.
type Value struct {
	kind Kind
	num  float64
	str  string // string payload, or the raw JSON text of a number
}

// Kind returns the value's JSON type.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is the null sentinel.
func (v Value) IsNull() bool { return v.kind == KindNull }

func valueOf(r gjson.Result) Value {
	switch r.Type {
	case gjson.Number:
		return Value{kind: KindNumber, num: r.Num, str: r.Raw}
	case gjson.String:
		return Value{kind: KindString, str: r.Str}
	case gjson.True:
		return Value{kind: KindBool, num: 1}
	case gjson.False:
		return Value{kind: KindBool, num: 0}
	case gjson.JSON:
		return Value{kind: KindString, str: r.Raw}
	default:
		return Value{}
	}
}

// NumberValue builds a numeric Value.
func NumberValue(f float64) Value {
	return Value{kind: KindNumber, num: f, str: strconv.FormatFloat(f, 'g', -1, 64)}
}

// StringValue builds a string Value.
func StringValue(s string) Value {
	return Value{kind: KindString, str: s}
}

// Column holds one parameter for every object in a batch; objects that do
// not carry the parameter hold null.
type Column []Value

// ParamSet maps parameter name to Column for one model.
type ParamSet map[string]Column

// Has reports whether any object in the batch carried key.
func (p ParamSet) Has(key string) bool {
	_, ok := p[key]
	return ok
}

func (p ParamSet) value(key string, i int) (Value, error) {
	col, ok := p[key]
	if !ok {
		return Value{}, fmt.Errorf("%w: %q is not present", ErrParameter, key)
	}
	if i < 0 || i >= len(col) {
		return Value{}, fmt.Errorf("%w: %q has no object %d", ErrParameter, key, i)
	}
	return col[i], nil
}

// Float returns parameter key of object i as a float. Numeric strings are
// accepted.
func (p ParamSet) Float(key string, i int) (float64, error) {
	v, err := p.value(key, i)
	if err != nil {
		return 0, err
	}
	switch v.kind {
	case KindNumber, KindBool:
		return v.num, nil
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q of object %d is not numeric: %q", ErrParameter, key, i, v.str)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%w: %q of object %d is null", ErrParameter, key, i)
	}
}

// Int returns parameter key of object i as an integer. Integral floats
// are accepted.
func (p ParamSet) Int(key string, i int) (int64, error) {
	v, err := p.value(key, i)
	if err != nil {
		return 0, err
	}
	var text string
	switch v.kind {
	case KindNumber, KindString:
		text = strings.TrimSpace(v.str)
	case KindBool:
		return int64(v.num), nil
	default:
		return 0, fmt.Errorf("%w: %q of object %d is null", ErrParameter, key, i)
	}
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, fmt.Errorf("%w: %q of object %d is not an integer: %q", ErrParameter, key, i, text)
	}
	return int64(f), nil
}

// String returns parameter key of object i as text. Null renders as
// "None", numbers as their JSON text.
func (p ParamSet) String(key string, i int) (string, error) {
	v, err := p.value(key, i)
	if err != nil {
		return "", err
	}
	switch v.kind {
	case KindNull:
		return NullModel, nil
	case KindBool:
		if v.num != 0 {
			return "True", nil
		}
		return "False", nil
	default:
		return v.str, nil
	}
}

// Truthy reports whether parameter key of object i equals 1 (or true).
// Missing and null values are false.
func (p ParamSet) Truthy(key string, i int) bool {
	v, err := p.value(key, i)
	if err != nil {
		return false
	}
	switch v.kind {
	case KindNumber, KindBool:
		return v.num == 1
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
		return err == nil && f == 1
	default:
		return false
	}
}

// Floats gathers parameter key for the objects in idx.
func (p ParamSet) Floats(key string, idx []int) ([]float64, error) {
	out := make([]float64, len(idx))
	for j, i := range idx {
		f, err := p.Float(key, i)
		if err != nil {
			return nil, err
		}
		out[j] = f
	}
	return out, nil
}

// Table is the demultiplexed form of a batch of parameter blobs.
type Table struct {
	N       int
	methods []string
	params  map[string]ParamSet
}

// Method returns the model name assigned to object i.
func (t *Table) Method(i int) string {
	return t.methods[i]
}

// Models returns the sorted distinct model names in the batch, excluding
// NullModel.
func (t *Table) Models() []string {
	seen := make(map[string]struct{})
	for _, m := range t.methods {
		if m != NullModel {
			seen[m] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for m := range seen {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Indices returns the positions of the objects assigned to model.
func (t *Table) Indices(model string) []int {
	var out []int
	for i, m := range t.methods {
		if m == model {
			out = append(out, i)
		}
	}
	return out
}

// Params returns the parameter columns of model. Unknown models yield an
// empty set.
func (t *Table) Params(model string) ParamSet {
	if p, ok := t.params[model]; ok {
		return p
	}
	return ParamSet{}
}

// IsNullBlob reports whether a raw blob is one of the "no variability"
// sentinels.
func IsNullBlob(blob string) bool {
	switch strings.TrimSpace(blob) {
	case "", "None", "null":
		return true
	}
	return false
}

// ParseBlobs decodes one JSON parameter blob per object. Each blob names
// its model under "varMethodName" (or the short form "m") and carries its
// parameters under "pars" (or "p").
func ParseBlobs(blobs []string) (*Table, error) {
	n := len(blobs)
	t := &Table{
		N:       n,
		methods: make([]string, n),
		params:  make(map[string]ParamSet),
	}

	for ix, blob := range blobs {
		if IsNullBlob(blob) {
			t.methods[ix] = NullModel
			continue
		}
		if !gjson.Valid(blob) {
			return nil, fmt.Errorf("%w: object %d is not valid JSON", ErrMalformedBlob, ix)
		}
		root := gjson.Parse(blob)
		if !root.IsObject() {
			return nil, fmt.Errorf("%w: object %d is not a JSON object", ErrMalformedBlob, ix)
		}

		method := root.Get("varMethodName")
		if !method.Exists() {
			method = root.Get("m")
		}
		if !method.Exists() || method.Type != gjson.String {
			return nil, fmt.Errorf("%w: object %d has no model name", ErrMalformedBlob, ix)
		}
		name := method.Str

		pars := root.Get("pars")
		if !pars.Exists() {
			pars = root.Get("p")
		}
		if pars.Exists() && pars.Type != gjson.Null && !pars.IsObject() {
			return nil, fmt.Errorf("%w: object %d parameters are not a JSON object", ErrMalformedBlob, ix)
		}

		t.methods[ix] = name
		set, ok := t.params[name]
		if !ok {
			set = make(ParamSet)
			t.params[name] = set
		}
		if !pars.IsObject() {
			continue
		}
		pars.ForEach(func(key, value gjson.Result) bool {
			col, ok := set[key.Str]
			if !ok {
				col = make(Column, n)
				set[key.Str] = col
			}
			col[ix] = valueOf(value)
			return true
		})
	}

	return t, nil
}
