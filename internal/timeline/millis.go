/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package timeline

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Millis is an optional instant in milliseconds since the Unix epoch.
// The zero value is absent.
type Millis struct {
	Value int64
	Valid bool
}

// At returns a present Millis.
func At(ms int64) Millis {
	return Millis{Value: ms, Valid: true}
}

// Absent returns the absent marker.
func Absent() Millis {
	return Millis{}
}

// UpperBound returns the value, or math.MaxInt64 when absent so that a missing
// end never expires.
func (m Millis) UpperBound() int64 {
	if !m.Valid {
		return math.MaxInt64
	}
	return m.Value
}

// Ptr returns a pointer to the value, or nil when absent.
func (m Millis) Ptr() *int64 {
	if !m.Valid {
		return nil
	}
	v := m.Value
	return &v
}

func (m Millis) String() string {
	if !m.Valid {
		return "null"
	}
	return strconv.FormatInt(m.Value, 10)
}

// MarshalJSON encodes absent as null.
func (m Millis) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(m.Value, 10)), nil
}

// UnmarshalJSON accepts numbers, numeric strings and the loose empty forms
// the Stacks API emits. It never fails on a well-formed JSON value; anything
// that does not parse becomes absent.
func (m *Millis) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*m = Absent()
		return nil
	}

	var raw any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*m = ParseMillis(raw)
	return nil
}

// ParseMillis normalizes a loosely typed timestamp. Integers pass through,
// floats truncate toward zero, and strings are parsed by their leading
// integer prefix ("123abc" is 123). nil, "", "null", non-numeric strings,
// non-finite floats and out-of-range values are absent.
func ParseMillis(v any) Millis {
	switch t := v.(type) {
	case nil:
		return Absent()
	case Millis:
		return t
	case *Millis:
		if t == nil {
			return Absent()
		}
		return *t
	case int:
		return At(int64(t))
	case int8:
		return At(int64(t))
	case int16:
		return At(int64(t))
	case int32:
		return At(int64(t))
	case int64:
		return At(t)
	case uint:
		return fromUint(uint64(t))
	case uint8:
		return At(int64(t))
	case uint16:
		return At(int64(t))
	case uint32:
		return At(int64(t))
	case uint64:
		return fromUint(t)
	case float32:
		return fromFloat(float64(t))
	case float64:
		return fromFloat(t)
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return At(n)
		}
		if f, err := t.Float64(); err == nil {
			return fromFloat(f)
		}
		return parseLeadingInt(string(t))
	case string:
		return parseLeadingInt(t)
	case *string:
		if t == nil {
			return Absent()
		}
		return parseLeadingInt(*t)
	case *int64:
		if t == nil {
			return Absent()
		}
		return At(*t)
	default:
		return Absent()
	}
}

func fromUint(u uint64) Millis {
	if u > math.MaxInt64 {
		return Absent()
	}
	return At(int64(u))
}

func fromFloat(f float64) Millis {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Absent()
	}
	f = math.Trunc(f)
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return Absent()
	}
	return At(int64(f))
}

func parseLeadingInt(s string) Millis {
	s = strings.TrimLeft(s, " \t\n\r\v\f")
	if s == "" || s == "null" {
		return Absent()
	}

	end := 0
	if s[0] == '+' || s[0] == '-' {
		end = 1
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return Absent()
	}

	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return Absent()
	}
	return At(n)
}
