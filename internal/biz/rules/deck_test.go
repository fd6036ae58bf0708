package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFullSet(t *testing.T) {
	for _, size := range []int{36, 52} {
		set := FullSet(size)
		require.Len(t, set, size)
		seen := map[string]bool{}
		for _, c := range set {
			require.False(t, seen[c.ID], "duplicate %s", c.ID)
			seen[c.ID] = true
			if size == 36 {
				require.GreaterOrEqual(t, int(c.Rank), int(Six))
			}
		}
	}
	assert.True(t, ValidDeckSize(36))
	assert.False(t, ValidDeckSize(40))
}

func TestParseCard(t *testing.T) {
	c, err := ParseCard("10H")
	require.NoError(t, err)
	assert.Equal(t, NewCard(Ten, Hearts), c)

	c, err = ParseCard("QS")
	require.NoError(t, err)
	assert.Equal(t, Queen, c.Rank)
	assert.Equal(t, Spades, c.Suit)

	for _, bad := range []string{"", "Q", "1H", "QX", "11D"} {
		_, err := ParseCard(bad)
		assert.Error(t, err, bad)
	}
}

func TestDeck_DrawReshuffle(t *testing.T) {
	d := NewDeck(36, newTestRand())
	d.DrawPile = cards(t, "6H")
	d.DiscardPile = cards(t, "7H", "8H", "9H")

	c, shuffled, err := d.Draw()
	require.NoError(t, err)
	assert.False(t, shuffled)
	assert.Equal(t, "6H", c.ID)

	c, shuffled, err = d.Draw()
	require.NoError(t, err)
	assert.True(t, shuffled)
	assert.Contains(t, []string{"7H", "8H"}, c.ID)
	assert.Equal(t, "9H", d.Top().ID, "top card stays on the discard pile")
	assert.Equal(t, 1, d.DrawCount())
	assert.Equal(t, 1, d.DiscardCount())

	_, _, err = d.Draw()
	require.NoError(t, err)
	assert.False(t, d.CanDraw())
	_, _, err = d.Draw()
	assert.ErrorIs(t, err, ErrDeckExhausted)
	assert.Equal(t, "9H", d.Top().ID)
}

func TestDeck_Shuffle(t *testing.T) {
	d := NewDeck(52, newTestRand())
	d.Shuffle()
	assert.Equal(t, 52, d.DrawCount())
	assert.Zero(t, d.DiscardCount())
	assert.NotEqual(t, FullSet(52), d.DrawPile)
}
