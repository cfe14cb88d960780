package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"warsaw", "is", "the", "capital"}, Tokenize("Warsaw is the capital."))
	assert.Equal(t, []string{"1", "8m", "people"}, Tokenize("1.8M people"))
	assert.Empty(t, Tokenize("  ...  "))
}

func TestJaccardSimilarity(t *testing.T) {
	t.Run("identical texts", func(t *testing.T) {
		assert.InDelta(t, 1.0, JaccardSimilarity("capital of Poland", "capital of Poland"), 1e-9)
	})

	t.Run("disjoint texts", func(t *testing.T) {
		assert.Equal(t, 0.0, JaccardSimilarity("alpha beta", "gamma delta"))
	})

	t.Run("partial overlap", func(t *testing.T) {
		// tokens {a,b} vs {b,c}: intersection 1, union 3
		assert.InDelta(t, 1.0/3.0, JaccardSimilarity("alpha beta", "beta gamma"), 1e-9)
	})

	t.Run("empty text", func(t *testing.T) {
		assert.Equal(t, 0.0, JaccardSimilarity("", "something"))
	})
}

func TestTokenOverlap(t *testing.T) {
	t.Run("all query tokens present", func(t *testing.T) {
		got := TokenOverlap("Warsaw capital", "Warsaw is the capital of Poland and a large city")
		assert.InDelta(t, 1.0, got, 1e-9)
	})

	t.Run("asymmetric", func(t *testing.T) {
		// Long documents are not penalized for extra tokens.
		long := "Warsaw is the capital and largest city of Poland with many districts"
		assert.Greater(t, TokenOverlap("Warsaw Poland", long), JaccardSimilarity("Warsaw Poland", long))
	})

	t.Run("no overlap", func(t *testing.T) {
		assert.Equal(t, 0.0, TokenOverlap("quantum physics", "medieval history"))
	})

	t.Run("empty query", func(t *testing.T) {
		assert.Equal(t, 0.0, TokenOverlap("", "anything"))
	})
}

func TestSplitSentences(t *testing.T) {
	sentences := SplitSentences("First one. Second one! Third one? Trailing tail")
	assert.Equal(t, []string{"First one.", "Second one!", "Third one?", "Trailing tail"}, sentences)

	assert.Empty(t, SplitSentences("   "))
}

func TestContainsNumber(t *testing.T) {
	assert.True(t, ContainsNumber("founded in 1364"))
	assert.False(t, ContainsNumber("no digits here"))
}
