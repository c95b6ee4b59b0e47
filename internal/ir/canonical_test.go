package ir

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", "hello", `"hello"`},
		{"empty string", "", `""`},
		{"int64", int64(42), "42"},
		{"int", 7, "7"},
		{"negative int", int64(-100), "-100"},
		{"zero", int64(0), "0"},
		{"max int64", int64(9223372036854775807), "9223372036854775807"},
		{"bool true", true, "true"},
		{"bool false", false, "false"},
		{"empty array", []any{}, "[]"},
		{"empty object", map[string]any{}, "{}"},
		{"array of ints", []any{int64(1), int64(2), int64(3)}, "[1,2,3]"},
		{"string slice", []string{"b", "a"}, `["b","a"]`},
		{"simple object", map[string]any{"a": int64(1)}, `{"a":1}`},
		{"string map", map[string]string{"b": "x", "a": "y"}, `{"a":"y","b":"x"}`},
		{"totals", Totals{"phase": 6, "ground": 2}, `{"ground":2,"phase":6}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalNestedSortedKeys(t *testing.T) {
	obj := map[string]any{
		"z": map[string]any{
			"b": int64(1),
			"a": int64(2),
		},
		"a": int64(3),
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"a":3,"z":{"a":2,"b":1}}`, string(result))
}

func TestMarshalCanonicalUTF16Ordering(t *testing.T) {
	// U+E000 vs U+10000: UTF-16 order differs from UTF-8
	obj := map[string]any{
		"\uE000":     int64(1),
		"\U00010000": int64(2),
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)

	expected := `{"` + "\U00010000" + `":2,"` + "\uE000" + `":1}`
	assert.Equal(t, expected, string(result))
}

func TestMarshalCanonicalNoHTMLEscape(t *testing.T) {
	result, err := MarshalCanonical("CODE(<a & b>)")
	require.NoError(t, err)
	assert.Equal(t, `"CODE(<a & b>)"`, string(result))
}

func TestMarshalCanonicalRejectsFloats(t *testing.T) {
	_, err := MarshalCanonical(3.5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "floats are forbidden")

	_, err = MarshalCanonical(map[string]any{"q": float32(1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `value for key "q"`)
}

func TestMarshalCanonicalRejectsNull(t *testing.T) {
	_, err := MarshalCanonical(nil)
	require.Error(t, err)

	_, err = MarshalCanonical([]any{"a", nil})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "array[1]")
}

func TestMarshalCanonicalRejectsUnsupported(t *testing.T) {
	_, err := MarshalCanonical(struct{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported type")
}

func TestMarshalCanonicalNFCNormalization(t *testing.T) {
	// "TENSIÓN" with a combining accent (NFD) must canonicalize to the composed form.
	decomposed := "TENSIO\u0301N"
	composed := "TENSI\u00d3N"

	a, err := MarshalCanonical(decomposed)
	require.NoError(t, err)
	b, err := MarshalCanonical(composed)
	require.NoError(t, err)
	assert.Equal(t, string(b), string(a))
	assert.NotEqual(t, decomposed, composed)
}

func TestMarshalCanonicalNFCInObjectKeys(t *testing.T) {
	a, err := MarshalCanonical(map[string]any{"e\u0301": int64(1)})
	require.NoError(t, err)
	b, err := MarshalCanonical(map[string]any{"\u00e9": int64(1)})
	require.NoError(t, err)
	assert.Equal(t, string(b), string(a))
}

func TestMarshalCanonicalCompactOutput(t *testing.T) {
	result, err := MarshalCanonical(map[string]any{
		"rows": []any{"a", "b"},
		"n":    int64(1),
	})
	require.NoError(t, err)
	assert.NotContains(t, string(result), " ")
	assert.NotContains(t, string(result), "\n")
}

func TestMarshalCanonicalStringEscaping(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"quote", `say "hi"`, `"say \"hi\""`},
		{"backslash", `a\b`, `"a\\b"`},
		{"newline", "a\nb", `"a\nb"`},
		{"tab", "a\tb", `"a\tb"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalU2028U2029NotEscaped(t *testing.T) {
	result, err := MarshalCanonical("a\u2028b\u2029c")
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\u2029c\"", string(result))
	assert.NotContains(t, string(result), `\u2028`)
}

func TestMarshalCanonicalLiteralBackslashU2028(t *testing.T) {
	// The six characters \u2028 typed literally must survive as escaped text.
	input := `\u2028`
	result, err := MarshalCanonical(input)
	require.NoError(t, err)
	assert.Equal(t, `"\\u2028"`, string(result))
}

func TestMarshalCanonicalIdempotency(t *testing.T) {
	obj := map[string]any{
		"bom":    []any{map[string]any{"code": "X1", "quantity": int64(2)}},
		"totals": Totals{"phase": 3},
	}

	first, err := MarshalCanonical(obj)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := MarshalCanonical(obj)
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}
}

func FuzzMarshalCanonicalIdempotent(f *testing.F) {
	f.Add("hello")
	f.Add("CODE(\"X\") + MODEL(*)")
	f.Add("\u2028")
	f.Add(`\u2029`)

	f.Fuzz(func(t *testing.T, s string) {
		if !strings.ContainsRune(s, '\uFFFD') {
			a, err := MarshalCanonical(s)
			if err != nil {
				t.Skip()
			}
			b, err := MarshalCanonical(s)
			if err != nil {
				t.Fatal(err)
			}
			if string(a) != string(b) {
				t.Fatalf("not deterministic: %q vs %q", a, b)
			}
		}
	})
}
