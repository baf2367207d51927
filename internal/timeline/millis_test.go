package timeline

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMillis(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want Millis
	}{
		{name: "nil", in: nil, want: Absent()},
		{name: "int", in: 1700000000000, want: At(1700000000000)},
		{name: "int64", in: int64(42), want: At(42)},
		{name: "uint64 overflow", in: uint64(math.MaxUint64), want: Absent()},
		{name: "float truncates", in: 12.9, want: At(12)},
		{name: "negative float truncates toward zero", in: -12.9, want: At(-12)},
		{name: "NaN", in: math.NaN(), want: Absent()},
		{name: "infinity", in: math.Inf(1), want: Absent()},
		{name: "numeric string", in: "1700000000000", want: At(1700000000000)},
		{name: "leading whitespace", in: "  15", want: At(15)},
		{name: "signed string", in: "-15", want: At(-15)},
		{name: "partial prefix", in: "123abc", want: At(123)},
		{name: "decimal string", in: "99.5", want: At(99)},
		{name: "empty string", in: "", want: Absent()},
		{name: "literal null", in: "null", want: Absent()},
		{name: "non numeric", in: "abc", want: Absent()},
		{name: "sign only", in: "-", want: Absent()},
		{name: "overflowing digits", in: "99999999999999999999999", want: Absent()},
		{name: "json number", in: json.Number("77"), want: At(77)},
		{name: "json number exponent", in: json.Number("1.7e12"), want: At(1700000000000)},
		{name: "bool", in: true, want: Absent()},
		{name: "nil string pointer", in: (*string)(nil), want: Absent()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseMillis(tt.in))
		})
	}
}

func TestMillisUpperBound(t *testing.T) {
	assert.Equal(t, int64(math.MaxInt64), Absent().UpperBound())
	assert.Equal(t, int64(5), At(5).UpperBound())
}

func TestMillisUnmarshalLooseForms(t *testing.T) {
	var payload struct {
		A Millis `json:"a"`
		B Millis `json:"b"`
		C Millis `json:"c"`
		D Millis `json:"d"`
		E Millis `json:"e"`
		F Millis `json:"f"`
		G Millis `json:"g"`
	}
	raw := `{"a": 1700000000000, "b": "1700000000001", "c": null, "d": "null", "e": "", "f": "soon", "g": {"x": 1}}`

	require.NoError(t, json.Unmarshal([]byte(raw), &payload))
	assert.Equal(t, At(1700000000000), payload.A)
	assert.Equal(t, At(1700000000001), payload.B)
	assert.False(t, payload.C.Valid)
	assert.False(t, payload.D.Valid)
	assert.False(t, payload.E.Valid)
	assert.False(t, payload.F.Valid)
	assert.False(t, payload.G.Valid)
}

func TestMillisMarshal(t *testing.T) {
	out, err := json.Marshal(struct {
		A Millis `json:"a"`
		B Millis `json:"b"`
	}{A: At(10), B: Absent()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 10, "b": null}`, string(out))
}
