package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testTagger() *Tagger {
	return NewTagger([]TaggedSecurity{
		{ID: 1, Symbol: "AAPL", Keywords: []string{"apple", "iphone", "tim cook"}},
		{ID: 2, Symbol: "MSFT", Keywords: []string{"microsoft", "azure"}},
		{ID: 3, Symbol: "V", Keywords: []string{"visa"}},
		{ID: 4, Symbol: "NVDA"},
	})
}

func TestTaggerMatchesCaseInsensitively(t *testing.T) {
	got := testTagger().Symbols("TIM COOK unveils new iPhone while Microsoft expands Azure")
	assert.Equal(t, []string{"AAPL", "MSFT"}, got)
}

func TestTaggerDeduplicates(t *testing.T) {
	got := testTagger().Tag("Apple apple APPLE iphone")
	assert.Len(t, got, 1)
	assert.Equal(t, uint(1), got[0].ID)
}

func TestTaggerRespectsWordBoundaries(t *testing.T) {
	assert.Empty(t, testTagger().Symbols("pineapple revisability"))
	assert.Equal(t, []string{"V"}, testTagger().Symbols("Visa beats estimates"))
}

func TestTaggerFallsBackToSymbol(t *testing.T) {
	assert.Equal(t, []string{"NVDA"}, testTagger().Symbols("nvda rallies"))
}
