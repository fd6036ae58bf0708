package rules

import (
	"fmt"
)

// DefaultScoreLimit 恰好达到清零, 超过出局
const DefaultScoreLimit = 101

// PointTable 牌面分值, 键为点数("2".."10","J","Q","K","A")或牌ID("QS")
// 牌ID优先于点数
type PointTable map[string]int

func DefaultPointTable() PointTable {
	t := PointTable{"J": 2, "Q": 20, "K": 4, "A": 11, "QS": 40}
	for r := Two; r <= Ten; r++ {
		t[r.String()] = int(r)
	}
	return t
}

func (t PointTable) Points(c Card) int {
	if v, ok := t[c.ID]; ok {
		return v
	}
	return t[c.Rank.String()]
}

func (t PointTable) HandPoints(hand []Card) int {
	total := 0
	for _, c := range hand {
		total += t.Points(c)
	}
	return total
}

// BonusRule 赢家奖励, 由赢牌决定
type BonusRule interface {
	Name() string
	Bonus(winning Card) int
}

// QueenBonus 以Q收尾: 黑桃Q与其他Q分别加减分
type QueenBonus struct {
	Spades int
	Other  int
}

func (QueenBonus) Name() string { return "queen_bonus" }

func (q QueenBonus) Bonus(winning Card) int {
	if winning.Rank != Queen {
		return 0
	}
	if winning.Suit == Spades {
		return q.Spades
	}
	return q.Other
}

type NoBonus struct{}

func (NoBonus) Name() string { return "none" }

func (NoBonus) Bonus(Card) int { return 0 }

// NewBonusRule 按名称创建
func NewBonusRule(name string, spades, other int) (BonusRule, error) {
	switch name {
	case "", "queen_bonus":
		return QueenBonus{Spades: spades, Other: other}, nil
	case "none":
		return NoBonus{}, nil
	default:
		return nil, fmt.Errorf("unknown bonus rule %q", name)
	}
}

// ScoreKeeper 一局结束时的计分
type ScoreKeeper struct {
	Points PointTable
	Bonus  BonusRule
	Limit  int
}

func NewScoreKeeper(points PointTable, bonus BonusRule, limit int) *ScoreKeeper {
	if points == nil {
		points = DefaultPointTable()
	}
	if bonus == nil {
		bonus = NoBonus{}
	}
	if limit <= 0 {
		limit = DefaultScoreLimit
	}
	return &ScoreKeeper{Points: points, Bonus: bonus, Limit: limit}
}

type SeatHand struct {
	PlayerID string
	Hand     []Card
}

type SeatResult struct {
	PlayerID    string `json:"player_id"`
	RoundPoints int    `json:"points"`
	Score       int    `json:"total_score"`
	Hand        []Card `json:"hand"`
	Reset       bool   `json:"reset,omitempty"`
	Kicked      bool   `json:"kicked,omitempty"`
}

type Settlement struct {
	WinnerID    string       `json:"winner_id"`
	WinningCard Card         `json:"winning_card"`
	Bonus       int          `json:"queen_bonus"`
	Results     []SeatResult `json:"results"`
	// LoserID 本局失分最多且未出局的玩家, 下局做庄
	LoserID string `json:"-"`
	// FinalWinnerID 存活不足两人时的最终赢家
	FinalWinnerID string `json:"-"`
}

func (s *Settlement) Kicked() []string {
	var out []string
	for _, r := range s.Results {
		if r.Kicked {
			out = append(out, r.PlayerID)
		}
	}
	return out
}

func (s *Settlement) Result(playerID string) (SeatResult, bool) {
	for _, r := range s.Results {
		if r.PlayerID == playerID {
			return r, true
		}
	}
	return SeatResult{}, false
}

// Settle seats 按座位顺序; scores 为本局前的总分
func (k *ScoreKeeper) Settle(winnerID string, winning Card, seats []SeatHand, scores map[string]int) *Settlement {
	st := &Settlement{
		WinnerID:    winnerID,
		WinningCard: winning,
		Bonus:       k.Bonus.Bonus(winning),
		Results:     make([]SeatResult, 0, len(seats)),
	}

	maxRound := -1
	for _, seat := range seats {
		r := SeatResult{PlayerID: seat.PlayerID, Hand: append([]Card(nil), seat.Hand...)}
		if seat.PlayerID == winnerID {
			r.RoundPoints = st.Bonus
			r.Hand = []Card{}
		} else {
			r.RoundPoints = k.Points.HandPoints(seat.Hand)
		}
		r.Score = scores[seat.PlayerID] + r.RoundPoints

		switch {
		case r.Score == k.Limit:
			r.Score = 0
			r.Reset = true
		case r.Score > k.Limit:
			r.Kicked = true
		}

		if seat.PlayerID != winnerID && r.RoundPoints > maxRound {
			maxRound = r.RoundPoints
			st.LoserID = seat.PlayerID
		}
		st.Results = append(st.Results, r)
	}

	if loser, ok := st.Result(st.LoserID); ok && loser.Kicked {
		st.LoserID = ""
	}

	survivors := 0
	for _, r := range st.Results {
		if !r.Kicked {
			survivors++
		}
	}
	if survivors < 2 {
		best := 0
		for _, r := range st.Results {
			if r.Kicked {
				continue
			}
			if st.FinalWinnerID == "" || r.Score < best {
				st.FinalWinnerID, best = r.PlayerID, r.Score
			}
		}
	}
	return st
}
