package robot

import (
	"github.com/samber/lo"
	"github.com/yola1107/czech/internal/biz/rules"
	"github.com/yola1107/czech/library/ext"
)

// View 机器人可见的牌局信息
type View struct {
	Hand            []rules.Card
	Playable        []rules.Card
	WaitingForEight bool
	CanDraw         bool
	CanSkip         bool
	DeckSize        int
}

// FromGame 取 seat 视角
func FromGame(g *rules.Game, seat int) View {
	return View{
		Hand:            g.Hand(seat),
		Playable:        g.Playable(seat),
		WaitingForEight: g.WaitingForEight,
		CanDraw:         g.CanDraw(seat),
		CanSkip:         g.CanSkip(seat),
		DeckSize:        g.Options.DeckSize,
	}
}

// Decide 返回一个合法动作; 无动作可做时 ok=false
func Decide(v View, points rules.PointTable) (a rules.Action, ok bool) {
	if len(v.Playable) > 0 {
		card := pickCard(v, points)
		var suit rules.Suit
		if card.Rank == rules.Queen && len(v.Hand) > 1 {
			suit = pickSuit(v, card)
		}
		return rules.Play(card.ID, suit), true
	}
	if v.CanDraw {
		return rules.Draw(), true
	}
	if v.CanSkip {
		return rules.Skip(), true
	}
	return rules.Action{}, false
}

func specialRanks(deckSize int) []rules.Rank {
	ranks := []rules.Rank{rules.Seven, rules.Six, rules.Ace}
	if deckSize == 52 {
		ranks = append(ranks, rules.Eight)
	}
	return ranks
}

// pickCard 优先 7/6/A(52张时含8), 否则出分值最高的牌
func pickCard(v View, points rules.PointTable) rules.Card {
	special := specialRanks(v.DeckSize)
	if cs := lo.Filter(v.Playable, func(c rules.Card, _ int) bool {
		return lo.Contains(special, c.Rank)
	}); len(cs) > 0 {
		return ext.RandPick(cs)
	}
	if v.WaitingForEight {
		return ext.RandPick(v.Playable)
	}
	best := lo.MaxBy(v.Playable, func(a, b rules.Card) bool {
		return points.Points(a) > points.Points(b)
	})
	return ext.RandPick(lo.Filter(v.Playable, func(c rules.Card, _ int) bool {
		return points.Points(c) == points.Points(best)
	}))
}

// pickSuit 倾向手里特殊牌的花色, 其次手里任意花色
func pickSuit(v View, queen rules.Card) rules.Suit {
	rest := lo.Filter(v.Hand, func(c rules.Card, _ int) bool { return c.ID != queen.ID })
	special := specialRanks(v.DeckSize)
	suits := lo.Uniq(lo.FilterMap(rest, func(c rules.Card, _ int) (rules.Suit, bool) {
		return c.Suit, lo.Contains(special, c.Rank)
	}))
	if len(suits) == 0 {
		suits = lo.Uniq(lo.Map(rest, func(c rules.Card, _ int) rules.Suit { return c.Suit }))
	}
	if len(suits) == 0 {
		return ext.RandPick(rules.Suits)
	}
	return ext.RandPick(suits)
}
