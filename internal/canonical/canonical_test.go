package canonical

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal_Basic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"null", nil, "null"},
		{"string", "hello", `"hello"`},
		{"empty string", "", `""`},
		{"int", 42, "42"},
		{"int64 max", int64(math.MaxInt64), "9223372036854775807"},
		{"negative int32", int32(-7), "-7"},
		{"bool", true, "true"},
		{"integral float", 103.0, "103"},
		{"fraction", 1.5, "1.5"},
		{"shortest form", 0.1, "0.1"},
		{"negative zero", math.Copysign(0, -1), "0"},
		{"small", 1e-7, "1e-7"},
		{"large", 1e21, "1e+21"},
		{"float32", float32(0.5), "0.5"},
		{"bytes", []byte{0xde, 0xad}, `"3q0="`},
		{"empty array", []any{}, "[]"},
		{"array", []any{int64(1), "a", nil}, `[1,"a",null]`},
		{"empty object", map[string]any{}, "{}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Marshal(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(got))
		})
	}
}

func TestMarshal_SortsKeys(t *testing.T) {
	got, err := Marshal(map[string]any{
		"zebra": 1,
		"alpha": map[string]any{"b": 1, "a": 2},
		"beta":  3,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":{"a":2,"b":1},"beta":3,"zebra":1}`, string(got))
}

func TestMarshal_UTF16KeyOrder(t *testing.T) {
	// U+1F600 encodes to a surrogate pair starting 0xD83D, which sorts
	// before U+FB01 (0xFB01) in UTF-16 but after it in UTF-8.
	got, err := Marshal(map[string]any{"\ufb01": 1, "\U0001f600": 2})
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001f600\":2,\"\ufb01\":1}", string(got))
}

func TestMarshal_Strings(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"no html escaping", "<a&b>", `"<a&b>"`},
		{"control chars", "a\nb\tc", `"a\nb\tc"`},
		{"quote and backslash", `"\`, `"\"\\"`},
		{"nfc", "e\u0301", "\"\u00e9\""},
		{"line separator literal", "a\u2028b", "\"a\u2028b\""},
		{"escaped backslash before u2028 text", `\u2028`, `"\\u2028"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Marshal(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(got))
		})
	}
}

func TestMarshal_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		input any
	}{
		{"nan", math.NaN()},
		{"inf", math.Inf(1)},
		{"nested nan", map[string]any{"x": []any{math.Inf(-1)}}},
		{"unsupported", struct{}{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Marshal(tt.input)
			assert.Error(t, err)
		})
	}
}

func TestDigest(t *testing.T) {
	a, err := Digest(DomainSnapshot, map[string]any{"x": 1, "y": 2})
	require.NoError(t, err)
	b, err := Digest(DomainSnapshot, map[string]any{"y": 2, "x": 1})
	require.NoError(t, err)
	assert.Equal(t, a, b, "key order does not matter")
	assert.Len(t, a, 64)

	c, err := Digest("other/v1", map[string]any{"x": 1, "y": 2})
	require.NoError(t, err)
	assert.NotEqual(t, a, c, "domain separates digests")

	_, err = Digest(DomainSnapshot, math.NaN())
	assert.Error(t, err)
}
