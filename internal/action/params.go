package action

import (
	"encoding/json"
	"math/big"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/tansive/sessionactions/internal/common/apperrors"
	"github.com/tansive/sessionactions/pkg/types"
)

// Params is the immutable request object passed to an action.
// Accessors distinguish an absent key from a present key of the wrong type.
type Params struct {
	raw []byte
}

// ParseParams wraps a JSON object. Empty input and null are treated as {}.
// When a top-level key repeats, the last occurrence wins.
func ParseParams(data []byte) (*Params, apperrors.Error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return &Params{raw: []byte("{}")}, nil
	}
	if !gjson.Valid(trimmed) {
		return nil, ErrInvalidParams.Msg("request parameters are not valid JSON")
	}
	obj := gjson.Parse(trimmed)
	if !obj.IsObject() {
		return nil, ErrInvalidParams
	}
	return &Params{raw: dedupeKeys(obj, trimmed)}, nil
}

// dedupeKeys drops all but the last occurrence of each top-level key.
func dedupeKeys(obj gjson.Result, raw string) []byte {
	type member struct {
		key, rawKey, rawValue string
	}
	var members []member
	last := map[string]int{}
	obj.ForEach(func(k, v gjson.Result) bool {
		last[k.String()] = len(members)
		members = append(members, member{key: k.String(), rawKey: k.Raw, rawValue: v.Raw})
		return true
	})
	if len(last) == len(members) {
		return []byte(raw)
	}

	var b strings.Builder
	b.WriteByte('{')
	first := true
	for i, m := range members {
		if last[m.key] != i {
			continue
		}
		if !first {
			b.WriteByte(',')
		}
		first = false
		b.WriteString(m.rawKey)
		b.WriteByte(':')
		b.WriteString(m.rawValue)
	}
	b.WriteByte('}')
	return []byte(b.String())
}

// ParamsFromMap encodes a decoded parameter map.
func ParamsFromMap(m map[string]any) (*Params, apperrors.Error) {
	if m == nil {
		return ParseParams(nil)
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, ErrInvalidParams.MsgErr("unable to encode request parameters", err)
	}
	return ParseParams(b)
}

// MustParams is ParseParams for literals in tests and examples. It panics on bad input.
func MustParams(data string) *Params {
	p, err := ParseParams([]byte(data))
	if err != nil {
		panic(err)
	}
	return p
}

// Raw returns the JSON encoding of the parameters.
func (p *Params) Raw() []byte {
	return p.raw
}

// Has reports whether key is present, including when its value is null.
func (p *Params) Has(key string) bool {
	return p.get(key).Exists()
}

// String returns the string value of key.
// A present value that is not a JSON string yields ErrInvalidParam.
func (p *Params) String(key string) (types.NullableString, apperrors.Error) {
	r := p.get(key)
	if !r.Exists() {
		return types.NullString(), nil
	}
	if r.Type != gjson.String {
		return types.NullString(), invalidType(key, "string", r)
	}
	return types.NullableStringFrom(r.Str), nil
}

// Int64 returns the integer value of key.
// Integral numbers written as 42.0 or 4.2e1 are accepted. Fractions, values
// outside the int64 range and non-numbers yield ErrInvalidParam.
func (p *Params) Int64(key string) (types.NullableInt64, apperrors.Error) {
	r := p.get(key)
	if !r.Exists() {
		return types.NullInt64(), nil
	}
	if r.Type != gjson.Number {
		return types.NullInt64(), invalidType(key, "integer", r)
	}
	v, ok := parseInt64(r.Raw)
	if !ok {
		return types.NullInt64(), ErrInvalidParam.Msg(key + ": " + r.Raw + " is not a 64-bit integer")
	}
	return types.NullableInt64From(v), nil
}

// With returns a copy of p with key set to value.
func (p *Params) With(key string, value any) (*Params, apperrors.Error) {
	raw, err := sjson.SetBytes(append([]byte(nil), p.raw...), escapeKey(key), value)
	if err != nil {
		return nil, ErrInvalidParams.MsgErr("unable to set parameter "+key, err)
	}
	return &Params{raw: raw}, nil
}

// WithRaw is With for a value that is already JSON encoded.
func (p *Params) WithRaw(key string, rawValue []byte) (*Params, apperrors.Error) {
	raw, err := sjson.SetRawBytes(append([]byte(nil), p.raw...), escapeKey(key), rawValue)
	if err != nil {
		return nil, ErrInvalidParams.MsgErr("unable to set parameter "+key, err)
	}
	return &Params{raw: raw}, nil
}

func (p *Params) get(key string) gjson.Result {
	return gjson.GetBytes(p.raw, escapeKey(key))
}

func invalidType(key, want string, r gjson.Result) apperrors.Error {
	return ErrInvalidParam.Msg(key + ": expected " + want + ", got " + jsonTypeName(r))
}

func jsonTypeName(r gjson.Result) string {
	switch r.Type {
	case gjson.Null:
		return "null"
	case gjson.False, gjson.True:
		return "boolean"
	case gjson.Number:
		return "number"
	case gjson.String:
		return "string"
	}
	if r.IsArray() {
		return "array"
	}
	return "object"
}

// maxExponent bounds the exponent of numbers parsed exactly.
const maxExponent = 1000

func parseInt64(raw string) (int64, bool) {
	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return v, true
	}
	if i := strings.IndexAny(raw, "eE"); i >= 0 {
		exp, err := strconv.Atoi(raw[i+1:])
		if err != nil || exp > maxExponent || exp < -maxExponent {
			return 0, false
		}
	}
	// Parsed as a rational so integral values beyond 2^53 are not rounded.
	r, ok := new(big.Rat).SetString(raw)
	if !ok || !r.IsInt() || !r.Num().IsInt64() {
		return 0, false
	}
	return r.Num().Int64(), true
}

// escapeKey makes key a literal gjson/sjson path component.
func escapeKey(key string) string {
	var b strings.Builder
	for _, c := range key {
		switch c {
		case '\\', '.', '*', '?', '|', '#', '@', '!', '=', '<', '>', '%', '[', ']', '{', '}', '(', ')', ',', ':', '"', '~':
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	return b.String()
}
