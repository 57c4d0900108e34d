package validation

import (
	"testing"

	"github.com/lyzr/chainquery/common/federation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePage(t *testing.T) {
	v := NewQueryValidator(10, 100)

	tests := []struct {
		name        string
		page, limit string
		want        federation.Page
	}{
		{"defaults", "", "", federation.Page{Number: 1, Size: 10}},
		{"explicit", "3", "25", federation.Page{Number: 3, Size: 25}},
		{"zero falls back", "0", "0", federation.Page{Number: 1, Size: 10}},
		{"negative falls back", "-2", "-5", federation.Page{Number: 1, Size: 10}},
		{"garbage falls back", "abc", "1e3", federation.Page{Number: 1, Size: 10}},
		{"capped", "1", "5000", federation.Page{Number: 1, Size: 100}},
		{"whitespace", " 2 ", " 5 ", federation.Page{Number: 2, Size: 5}},
		{"page offset overflow", "9223372036854775807", "100", federation.Page{Number: 92233720368547759, Size: 100}},
		{"huge page default size", "922337203685477580", "", federation.Page{Number: 922337203685477580, Size: 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, v.ParsePage(tt.page, tt.limit))
		})
	}
}

func TestNewQueryValidator_Bounds(t *testing.T) {
	v := NewQueryValidator(0, 0)
	assert.Equal(t, federation.Page{Number: 1, Size: 10}, v.ParsePage("", "50"))
}

func TestSearchTerm(t *testing.T) {
	v := NewQueryValidator(10, 100)

	for _, raw := range []string{"alice", "  alice ", "   "} {
		term, err := v.SearchTerm(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, term)
	}

	_, err := v.SearchTerm("")
	assert.ErrorIs(t, err, federation.ErrMissingSearchField)
	assert.Equal(t, "SearchField required", federation.PublicMessage(err))
}
