package robot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yola1107/czech/internal/biz/rules"
	"github.com/yola1107/czech/library/ext"
)

func hand(t *testing.T, ids ...string) []rules.Card {
	t.Helper()
	out := make([]rules.Card, 0, len(ids))
	for _, id := range ids {
		c, err := rules.ParseCard(id)
		require.NoError(t, err)
		out = append(out, c)
	}
	return out
}

func TestDecide(t *testing.T) {
	points := rules.DefaultPointTable()
	tests := []struct {
		name string
		view View
		kind rules.ActionKind
		card []string
	}{
		{
			name: "special card first",
			view: View{Hand: hand(t, "KH", "7H", "3H"), Playable: hand(t, "KH", "7H", "3H"), DeckSize: 52},
			kind: rules.ActPlay,
			card: []string{"7H"},
		},
		{
			name: "eight counts only in full deck",
			view: View{Hand: hand(t, "8H", "10H"), Playable: hand(t, "8H", "10H"), DeckSize: 36},
			kind: rules.ActPlay,
			card: []string{"10H"},
		},
		{
			name: "eight in full deck",
			view: View{Hand: hand(t, "8H", "10H"), Playable: hand(t, "8H", "10H"), DeckSize: 52},
			kind: rules.ActPlay,
			card: []string{"8H"},
		},
		{
			name: "highest points otherwise",
			view: View{Hand: hand(t, "3H", "10H", "JH"), Playable: hand(t, "3H", "10H", "JH"), DeckSize: 52},
			kind: rules.ActPlay,
			card: []string{"10H"},
		},
		{
			name: "queen outscores ten",
			view: View{Hand: hand(t, "QC", "10H", "2C"), Playable: hand(t, "QC", "10H"), DeckSize: 52},
			kind: rules.ActPlay,
			card: []string{"QC"},
		},
		{
			name: "nothing playable draws",
			view: View{Hand: hand(t, "3C"), CanDraw: true},
			kind: rules.ActDraw,
		},
		{
			name: "after drawing skips",
			view: View{Hand: hand(t, "3C", "4C"), CanSkip: true},
			kind: rules.ActSkip,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, ok := Decide(tt.view, points)
			require.True(t, ok)
			assert.Equal(t, tt.kind, a.Kind)
			if tt.card != nil {
				assert.Contains(t, tt.card, a.CardID)
			}
		})
	}

	_, ok := Decide(View{}, points)
	assert.False(t, ok)
}

func TestDecide_QueenSuit(t *testing.T) {
	points := rules.DefaultPointTable()
	v := View{Hand: hand(t, "QS", "6D", "3C"), Playable: hand(t, "QS"), DeckSize: 52}
	for i := 0; i < 20; i++ {
		a, ok := Decide(v, points)
		require.True(t, ok)
		assert.Equal(t, rules.Diamonds, a.ChosenSuit)
	}

	v = View{Hand: hand(t, "QS", "3C"), Playable: hand(t, "QS"), DeckSize: 52}
	a, _ := Decide(v, points)
	assert.Equal(t, rules.Clubs, a.ChosenSuit)

	v = View{Hand: hand(t, "QS"), Playable: hand(t, "QS"), DeckSize: 52}
	a, _ = Decide(v, points)
	assert.Empty(t, a.ChosenSuit, "last queen wins without a suit")
}

// 机器人在完整牌局中每一步都必须合法
func TestDecide_AlwaysLegal(t *testing.T) {
	points := rules.DefaultPointTable()
	for seed := int64(0); seed < 30; seed++ {
		opts := rules.DefaultOptions()
		if seed%2 == 1 {
			opts = opts.WithDeckSize(36)
		}
		g := rules.NewGame(opts, []string{"a", "b", "c"}, ext.NewRand(seed))
		g.Start(int(seed % 3))
		for step := 0; step < 500 && !g.Finished; step++ {
			seat := g.Current
			a, ok := Decide(FromGame(g, seat), points)
			require.True(t, ok, "seed %d step %d", seed, step)
			_, err := g.Apply(seat, a)
			require.NoError(t, err, "seed %d step %d action %+v", seed, step, a)
		}
	}
}

func TestNames(t *testing.T) {
	names := Names(3, ext.NewRand(1))
	assert.Len(t, names, 3)
	assert.Len(t, uniq(names), 3)
	assert.Len(t, Names(100, ext.NewRand(1)), len(botNames))
}

func uniq(s []string) map[string]struct{} {
	m := make(map[string]struct{}, len(s))
	for _, v := range s {
		m[v] = struct{}{}
	}
	return m
}
