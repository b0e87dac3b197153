package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileFilters(t *testing.T) {
	filters, err := compileFilters([]string{`.type == "Buy"`, `.sol_amount != ""`})
	require.NoError(t, err)
	assert.Len(t, filters, 2)

	_, err = compileFilters([]string{`.type ==`})
	assert.Error(t, err)
}

func TestMatchesFilters(t *testing.T) {
	txn := `{"type":"Buy","token_ticker":"WIF","sol_amount":"0.500000"}`

	tests := []struct {
		name    string
		filters []string
		data    string
		want    bool
	}{
		{
			name:    "no filters matches everything",
			filters: nil,
			data:    txn,
			want:    true,
		},
		{
			name:    "single matching filter",
			filters: []string{`.type == "Buy"`},
			data:    txn,
			want:    true,
		},
		{
			name:    "all filters must match",
			filters: []string{`.type == "Buy"`, `.token_ticker == "BONK"`},
			data:    txn,
			want:    false,
		},
		{
			name:    "non-boolean result does not match",
			filters: []string{`.type`},
			data:    txn,
			want:    false,
		},
		{
			name:    "invalid json does not match",
			filters: []string{`.type == "Buy"`},
			data:    `not json`,
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filters, err := compileFilters(tt.filters)
			require.NoError(t, err)
			assert.Equal(t, tt.want, matchesFilters(tt.data, filters))
		})
	}
}
