package rules

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func cards(t *testing.T, ids ...string) []Card {
	t.Helper()
	out := make([]Card, 0, len(ids))
	for _, id := range ids {
		c, err := ParseCard(id)
		require.NoError(t, err)
		out = append(out, c)
	}
	return out
}

func newTestRand() *rand.Rand {
	return rand.New(rand.NewSource(42))
}

// fixture 构造确定的牌局; draw 按摸牌顺序给出
type fixture struct {
	opts  Options
	hands [][]string
	top   string
	under []string
	draw  []string
	suit  Suit
	eight bool
}

func (f fixture) build(t *testing.T) *Game {
	t.Helper()
	ids := make([]string, len(f.hands))
	for i := range ids {
		ids[i] = string(rune('A' + i))
	}
	g := NewGame(f.opts, ids, newTestRand())
	for i, h := range f.hands {
		g.Seats[i].Hand = cards(t, h...)
	}
	g.Deck.DiscardPile = append(cards(t, f.under...), cards(t, f.top)...)
	drawn := cards(t, f.draw...)
	for i := len(drawn) - 1; i >= 0; i-- {
		g.Deck.DrawPile = append(g.Deck.DrawPile, drawn[i])
	}
	g.Current = 0
	g.Turn = 1
	g.ChosenSuit = f.suit
	g.WaitingForEight = f.eight
	return g
}
