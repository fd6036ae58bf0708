package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointTable(t *testing.T) {
	pt := DefaultPointTable()
	tests := map[string]int{
		"2H": 2, "10D": 10, "JC": 2, "QH": 20, "QS": 40, "KD": 4, "AS": 11, "6C": 6,
	}
	for id, want := range tests {
		c, err := ParseCard(id)
		require.NoError(t, err)
		assert.Equal(t, want, pt.Points(c), id)
	}
	assert.Equal(t, 0, pt.HandPoints(nil))
}

func TestQueenBonus(t *testing.T) {
	rule, err := NewBonusRule("queen_bonus", -40, -20)
	require.NoError(t, err)
	assert.Equal(t, -40, rule.Bonus(NewCard(Queen, Spades)))
	assert.Equal(t, -20, rule.Bonus(NewCard(Queen, Hearts)))
	assert.Equal(t, 0, rule.Bonus(NewCard(King, Spades)))

	none, err := NewBonusRule("none", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, none.Bonus(NewCard(Queen, Spades)))

	_, err = NewBonusRule("double", 0, 0)
	assert.Error(t, err)
}

func TestScoreKeeper_Settle(t *testing.T) {
	k := NewScoreKeeper(nil, QueenBonus{Spades: -40, Other: -20}, 101)

	t.Run("exactly 101 resets", func(t *testing.T) {
		st := k.Settle("A", NewCard(Rank(5), Hearts), []SeatHand{
			{PlayerID: "A"},
			{PlayerID: "B", Hand: cards(t, "AS")},
			{PlayerID: "C", Hand: cards(t, "3C")},
		}, map[string]int{"A": 10, "B": 90, "C": 97})

		b, _ := st.Result("B")
		assert.Equal(t, 0, b.Score)
		assert.True(t, b.Reset)
		assert.False(t, b.Kicked)
		c, _ := st.Result("C")
		assert.Equal(t, 100, c.Score)
		assert.Equal(t, "B", st.LoserID)
		assert.Empty(t, st.FinalWinnerID)
		assert.Empty(t, st.Kicked())
	})

	t.Run("over 101 kicks and others continue", func(t *testing.T) {
		st := k.Settle("A", NewCard(Rank(5), Hearts), []SeatHand{
			{PlayerID: "A"},
			{PlayerID: "B", Hand: cards(t, "KS")},
			{PlayerID: "C", Hand: cards(t, "3C")},
		}, map[string]int{"A": 10, "B": 98, "C": 20})

		assert.Equal(t, []string{"B"}, st.Kicked())
		assert.Empty(t, st.FinalWinnerID)
		assert.Empty(t, st.LoserID, "kicked round loser does not deal")
	})

	t.Run("queen bonus and final winner", func(t *testing.T) {
		st := k.Settle("A", NewCard(Queen, Spades), []SeatHand{
			{PlayerID: "A"},
			{PlayerID: "B", Hand: cards(t, "QH", "AS")},
		}, map[string]int{"A": 50, "B": 80})

		a, _ := st.Result("A")
		assert.Equal(t, -40, a.RoundPoints)
		assert.Equal(t, 10, a.Score)
		assert.Equal(t, -40, st.Bonus)
		b, _ := st.Result("B")
		assert.Equal(t, 31, b.RoundPoints)
		assert.True(t, b.Kicked)
		assert.Equal(t, "A", st.FinalWinnerID)
		assert.Empty(t, st.LoserID)
	})
}
