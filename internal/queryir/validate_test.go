package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		sel   Select
		paths []string
	}{
		{
			name: "no filter",
			sel:  Select{Table: "ACME"},
		},
		{
			name: "all tables",
			sel:  Select{Filter: Equals{Column: "CODE", Value: "A-1"}},
		},
		{
			name: "empty value is a valid equals",
			sel:  Select{Filter: Equals{Column: "NORMA", Value: ""}},
		},
		{
			name:  "negative limit",
			sel:   Select{Limit: -1},
			paths: []string{"limit"},
		},
		{
			name:  "blank column",
			sel:   Select{Filter: Equals{Column: "  ", Value: "x"}},
			paths: []string{"filter.column"},
		},
		{
			name:  "blank contains value",
			sel:   Select{Filter: &Contains{Column: "NORMA"}},
			paths: []string{"filter.value"},
		},
		{
			name: "nested and",
			sel: Select{Filter: And{Predicates: []Predicate{
				Equals{Column: "MODEL", Value: "M"},
				&And{Predicates: []Predicate{&Equals{Column: ""}, nil}},
			}}},
			paths: []string{"filter.and[1].and[0].column", "filter.and[1].and[1]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Validate(tt.sel)
			var paths []string
			for _, e := range errs {
				paths = append(paths, e.Path)
			}
			assert.Equal(t, tt.paths, paths)
		})
	}
}

func TestValidationErrorFormat(t *testing.T) {
	errs := Validate(Select{Filter: Equals{}})
	require.Len(t, errs, 1)
	assert.Equal(t, "filter.column: column is required", errs[0].Error())
}
