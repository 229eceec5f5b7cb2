package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanPageText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "exclamation marks become record stops",
			in:   "Osprey over the marsh!|Mostyn Bank",
			want: "Osprey over the marsh.|Mostyn Bank",
		},
		{
			name: "line breaks and thousands separators removed",
			in:   "c12,000 Dunlin\r\non the shore",
			want: "c12000 Dunlin on the shore",
		},
		{
			name: "whitespace collapsed",
			in:   "2   Shelduck \t at  Mostyn Bank",
			want: "2 Shelduck at Mostyn Bank",
		},
		{
			name: "doubled stop-section runs shrink",
			in:   "first.|.|second",
			want: "first.|second",
		},
		{
			name: "empty input",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanPageText(tt.in))
		})
	}
}

func TestCompileRules(t *testing.T) {
	t.Run("empty lists keep defaults", func(t *testing.T) {
		rules, err := CompileRules(nil, nil, nil)
		require.NoError(t, err)
		def := DefaultExtractRules()
		assert.Len(t, rules.DateHeaders, len(def.DateHeaders))
		assert.Len(t, rules.Drop, len(def.Drop))
		assert.Len(t, rules.Require, len(def.Require))
	})

	t.Run("custom patterns override one list", func(t *testing.T) {
		rules, err := CompileRules(nil, []string{`advertisement`}, nil)
		require.NoError(t, err)
		assert.Len(t, rules.Drop, 1)
		assert.True(t, rules.Drop[0].MatchString("an advertisement here"))
	})

	t.Run("invalid pattern rejected", func(t *testing.T) {
		_, err := CompileRules(nil, []string{`(`}, nil)
		require.Error(t, err)
	})
}

func TestExtractCandidates(t *testing.T) {
	rules := DefaultExtractRules()

	t.Run("date header governs following records", func(t *testing.T) {
		text := "August 31 2008|4 Curlew Mostyn Bank.2 Wheatear Point of Ayr."
		got := ExtractCandidates("l2008aug", text, 2008, rules)
		require.Len(t, got, 2)

		assert.Equal(t, "4 Curlew Mostyn Bank", got[0].Text)
		assert.Equal(t, "August 31 2008", got[0].DateText)
		assert.Equal(t, "2 Wheatear Point of Ayr", got[1].Text)
		assert.Equal(t, "August 31 2008", got[1].DateText)
	})

	t.Run("later header replaces earlier one", func(t *testing.T) {
		text := "August 31 2008|4 Curlew Mostyn Bank.August 30 2008|2 Wheatear Point of Ayr."
		got := ExtractCandidates("p", text, 2008, rules)
		require.Len(t, got, 2)
		assert.Equal(t, "August 31 2008", got[0].DateText)
		assert.Equal(t, "August 30 2008", got[1].DateText)
	})

	t.Run("inline date stays on the line as DateText", func(t *testing.T) {
		text := "12/04/2022 2 drake Shelduck Mostyn Bank."
		got := ExtractCandidates("p", text, 2022, rules)
		require.Len(t, got, 1)
		assert.Equal(t, "12/04/2022", got[0].DateText)
		assert.Equal(t, "2 drake Shelduck Mostyn Bank", got[0].Text)
	})

	t.Run("several sighting runs explode into candidates", func(t *testing.T) {
		text := "May 3 2019|4 Short-eared Owl 1 Eider (drake) Point of Ayr."
		got := ExtractCandidates("p", text, 2019, rules)
		require.Len(t, got, 2)
		assert.Equal(t, "4 Short-eared Owl", got[0].Text)
		assert.Equal(t, "1 Eider (drake) Point of Ayr", got[1].Text)
	})

	t.Run("spaced range stays one sighting run", func(t *testing.T) {
		text := "May 3 2019|10 - 12000 Knot|West Kirby."
		got := ExtractCandidates("p", text, 2019, rules)
		require.Len(t, got, 1)
		assert.Equal(t, "10 - 12000 Knot|West Kirby", got[0].Text)
	})

	t.Run("location and commentary sections ride along", func(t *testing.T) {
		text := "May 3 2019|2 Shelduck 1 Curlew|Mostyn Bank|on the rising tide."
		got := ExtractCandidates("p", text, 2019, rules)
		require.Len(t, got, 2)
		assert.Equal(t, "2 Shelduck|Mostyn Bank|on the rising tide", got[0].Text)
		assert.Equal(t, "1 Curlew|Mostyn Bank|on the rising tide", got[1].Text)
	})

	t.Run("boilerplate records dropped", func(t *testing.T) {
		text := "Archived Sightings.Click here for previous records.2 Shelduck Mostyn Bank.See www.example.com for 3 more."
		got := ExtractCandidates("p", text, 2008, rules)
		require.Len(t, got, 1)
		assert.Equal(t, "2 Shelduck Mostyn Bank", got[0].Text)
	})

	t.Run("records without abundance dropped", func(t *testing.T) {
		text := "A lovely morning on the marsh.2 Shelduck Mostyn Bank."
		got := ExtractCandidates("p", text, 2008, rules)
		require.Len(t, got, 1)
		assert.Equal(t, "2 Shelduck Mostyn Bank", got[0].Text)
	})

	t.Run("candidates are ordered and indexed", func(t *testing.T) {
		text := "May 3 2019|2 Shelduck 1 Curlew Mostyn Bank.3 Wheatear Point of Ayr."
		got := ExtractCandidates("p", text, 2019, rules)
		require.Len(t, got, 3)
		for i, c := range got {
			assert.Equal(t, i, c.Index)
			assert.Equal(t, "p", c.PageID)
			assert.Equal(t, 2019, c.Year)
			if i > 0 {
				assert.Greater(t, c.Offset, got[i-1].Offset)
			}
		}
	})

	t.Run("empty page yields no candidates and no error", func(t *testing.T) {
		assert.Empty(t, ExtractCandidates("p", "", 2008, rules))
		assert.Empty(t, ExtractCandidates("p", "   \r\n ", 2008, rules))
	})
}
