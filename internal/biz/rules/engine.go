package rules

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/samber/lo"
)

var (
	ErrNotYourTurn   = errors.New("not your turn")
	ErrCardNotFound  = errors.New("card not found")
	ErrIllegalAction = errors.New("illegal action")
	ErrRoundOver     = errors.New("round is over")
)

type ActionKind int

const (
	ActPlay ActionKind = iota + 1
	ActDraw
	ActSkip
)

func (k ActionKind) String() string {
	switch k {
	case ActPlay:
		return "play"
	case ActDraw:
		return "draw"
	case ActSkip:
		return "skip"
	default:
		return fmt.Sprintf("ActionKind(%d)", int(k))
	}
}

type Action struct {
	Kind       ActionKind
	CardID     string
	ChosenSuit Suit
}

func Play(cardID string, suit Suit) Action { return Action{Kind: ActPlay, CardID: cardID, ChosenSuit: suit} }
func Draw() Action                         { return Action{Kind: ActDraw} }
func Skip() Action                         { return Action{Kind: ActSkip} }

type Seat struct {
	PlayerID string `json:"player_id"`
	Hand     []Card `json:"hand"`
}

// Game 一局的全部状态; 调用方保证串行访问
type Game struct {
	Options Options `json:"options"`
	Deck    *Deck   `json:"deck"`
	Seats   []*Seat `json:"seats"`

	Current    int   `json:"current"`
	Dealer     int   `json:"dealer"`
	Turn       int64 `json:"turn"`
	ChosenSuit Suit  `json:"chosen_suit,omitempty"`
	CardDrawn  bool  `json:"card_drawn"`

	// 8 连摸: 当前玩家须出2, 或摸到可出的牌(2/Q/8/同花色)后出掉
	WaitingForEight bool     `json:"waiting_for_eight"`
	EightDrawn      []string `json:"eight_drawn,omitempty"`
	EightSatisfied  bool     `json:"eight_satisfied"`

	Finished bool `json:"finished"`
	Winner   int  `json:"winner"`

	rng  *rand.Rand
	away func(seat int) bool
}

// NewGame playerIDs 为座位顺序
func NewGame(opts Options, playerIDs []string, rng *rand.Rand) *Game {
	g := &Game{
		Options: opts,
		Deck:    NewDeck(opts.DeckSize, rng),
		Seats:   make([]*Seat, 0, len(playerIDs)),
		Winner:  -1,
		rng:     rng,
	}
	for _, id := range playerIDs {
		g.Seats = append(g.Seats, &Seat{PlayerID: id})
	}
	return g
}

// Bind 反序列化后绑定随机源和离线判定
func (g *Game) Bind(rng *rand.Rand, away func(seat int) bool) {
	g.rng = rng
	g.away = away
	g.Deck.Bind(rng)
}

// SetAway 离线且无托管的座位在轮转时被跳过
func (g *Game) SetAway(away func(seat int) bool) {
	g.away = away
}

// Start 洗牌发牌, 翻开首张牌并结算其效果
func (g *Game) Start(dealer int) []Event {
	n := len(g.Seats)
	g.Deck.Shuffle()
	for i := 0; i < g.Options.HandSize; i++ {
		for k := 1; k <= n; k++ {
			seat := g.Seats[(dealer+k)%n]
			c, _, _ := g.Deck.Draw()
			seat.Hand = append(seat.Hand, c)
		}
	}
	starter, _, _ := g.Deck.Draw()
	g.Deck.Discard(starter)

	g.Dealer = dealer
	g.Current = (dealer + 1) % n
	g.Turn = 1
	g.Finished, g.Winner = false, -1

	var events []Event
	first := g.Current
	switch starter.Rank {
	case Six, Seven:
		events = append(events, g.forceDraw(first, g.Options.forcedDraw(starter.Rank))...)
		if g.Options.ForcedDrawSkipsTurn {
			events = append(events, TurnSkipped{Seat: first, Reason: SkipForcedDraw})
			events = append(events, g.advanceTo(g.nextSeat(first)))
		} else if g.Options.ForcedDrawCountsAsTurnDraw {
			g.CardDrawn = true
		}
	case Eight:
		g.WaitingForEight = g.Options.chainEnabled()
	case Ace:
		if g.Options.AceSkipsNext {
			events = append(events, TurnSkipped{Seat: first, Reason: SkipAce})
			events = append(events, g.advanceTo(g.nextSeat(first)))
		}
	case Queen:
		g.ChosenSuit = Suits[g.rng.Intn(len(Suits))]
	}
	return events
}

// Apply 执行动作; 出错时状态不变
func (g *Game) Apply(seat int, a Action) ([]Event, error) {
	if g.Finished {
		return nil, ErrRoundOver
	}
	if seat != g.Current {
		return nil, ErrNotYourTurn
	}
	switch a.Kind {
	case ActPlay:
		return g.play(seat, a.CardID, a.ChosenSuit)
	case ActDraw:
		return g.draw(seat)
	case ActSkip:
		return g.skip(seat)
	default:
		return nil, fmt.Errorf("%w: unknown action %v", ErrIllegalAction, a.Kind)
	}
}

func (g *Game) play(seat int, cardID string, suit Suit) ([]Event, error) {
	s := g.Seats[seat]
	i := indexOf(s.Hand, cardID)
	if i < 0 {
		return nil, ErrCardNotFound
	}
	card := s.Hand[i]
	if !g.canPlay(card) {
		return nil, fmt.Errorf("%w: %s cannot be played on %s", ErrIllegalAction, card, g.Deck.Top())
	}
	last := len(s.Hand) == 1
	if card.Rank == Queen && !last && !suit.Valid() {
		return nil, fmt.Errorf("%w: queen requires a chosen suit", ErrIllegalAction)
	}

	s.Hand = removeAt(s.Hand, i)
	g.Deck.Discard(card)
	g.WaitingForEight, g.EightDrawn, g.EightSatisfied = false, nil, false
	g.ChosenSuit = ""
	if card.Rank == Queen && suit.Valid() {
		g.ChosenSuit = suit
	}

	events := []Event{CardPlayed{Seat: seat, Card: card, ChosenSuit: g.ChosenSuit}}
	next := g.nextSeat(seat)

	if last {
		if n := g.Options.forcedDraw(card.Rank); n > 0 {
			events = append(events, g.forceDraw(next, n)...)
		}
		g.Finished, g.Winner = true, seat
		return append(events, RoundWon{Seat: seat, Card: card}), nil
	}

	switch card.Rank {
	case Six, Seven:
		events = append(events, g.forceDraw(next, g.Options.forcedDraw(card.Rank))...)
		if g.Options.ForcedDrawSkipsTurn {
			events = append(events, TurnSkipped{Seat: next, Reason: SkipForcedDraw})
			return append(events, g.advanceTo(g.nextSeat(next))), nil
		}
		events = append(events, g.advanceTo(next))
		g.CardDrawn = g.Options.ForcedDrawCountsAsTurnDraw
		return events, nil
	case Eight:
		events = append(events, g.advanceTo(next))
		g.WaitingForEight = g.Options.chainEnabled()
		return events, nil
	case Ace:
		if g.Options.AceSkipsNext {
			events = append(events, TurnSkipped{Seat: next, Reason: SkipAce})
			return append(events, g.advanceTo(g.nextSeat(next))), nil
		}
	}
	return append(events, g.advanceTo(next)), nil
}

func (g *Game) draw(seat int) ([]Event, error) {
	if g.WaitingForEight {
		if g.EightSatisfied {
			return nil, fmt.Errorf("%w: play the drawn card", ErrIllegalAction)
		}
		card, shuffled, err := g.Deck.Draw()
		if err != nil {
			// 牌堆耗尽, 解除连摸并轮到下家
			g.WaitingForEight, g.EightDrawn = false, nil
			return []Event{
				TurnSkipped{Seat: seat, Reason: SkipDeckExhausted},
				g.advanceTo(g.nextSeat(seat)),
			}, nil
		}
		var events []Event
		if shuffled {
			events = append(events, DeckShuffled{DrawCount: g.Deck.DrawCount()})
		}
		g.Seats[seat].Hand = append(g.Seats[seat].Hand, card)
		g.EightDrawn = append(g.EightDrawn, card.ID)
		g.EightSatisfied = g.resolvesEight(card)
		return append(events, CardsDrawn{Seat: seat, Cards: []Card{card}}), nil
	}

	if g.CardDrawn {
		return nil, fmt.Errorf("%w: already drawn this turn", ErrIllegalAction)
	}
	card, shuffled, err := g.Deck.Draw()
	if err != nil {
		return nil, err
	}
	var events []Event
	if shuffled {
		events = append(events, DeckShuffled{DrawCount: g.Deck.DrawCount()})
	}
	g.Seats[seat].Hand = append(g.Seats[seat].Hand, card)
	g.CardDrawn = true
	return append(events, CardsDrawn{Seat: seat, Cards: []Card{card}}), nil
}

func (g *Game) skip(seat int) ([]Event, error) {
	if !g.canSkip() {
		if g.WaitingForEight {
			return nil, fmt.Errorf("%w: cannot skip while an eight is pending", ErrIllegalAction)
		}
		return nil, fmt.Errorf("%w: draw a card first", ErrIllegalAction)
	}
	return []Event{
		TurnSkipped{Seat: seat, Reason: SkipPass},
		g.advanceTo(g.nextSeat(seat)),
	}, nil
}

func (g *Game) canSkip() bool {
	return !g.WaitingForEight && (g.CardDrawn || !g.Deck.CanDraw())
}

func (g *Game) canPlay(card Card) bool {
	if g.WaitingForEight {
		if card.Rank == Two {
			return true
		}
		return lo.Contains(g.EightDrawn, card.ID) && g.resolvesEight(card)
	}
	if card.Rank == Queen {
		return true
	}
	return card.Suit == g.EffectiveSuit() || card.Rank == g.Deck.Top().Rank
}

// resolvesEight 连摸中摸到的牌能否出: 2/Q/8/同花色
func (g *Game) resolvesEight(card Card) bool {
	switch card.Rank {
	case Two, Queen, Eight:
		return true
	}
	return card.Suit == g.EffectiveSuit()
}

// forceDraw 牌不够时能摸多少摸多少
func (g *Game) forceDraw(seat, n int) []Event {
	var (
		events []Event
		drawn  []Card
	)
	for i := 0; i < n; i++ {
		card, shuffled, err := g.Deck.Draw()
		if err != nil {
			break
		}
		if shuffled {
			events = append(events, DeckShuffled{DrawCount: g.Deck.DrawCount()})
		}
		drawn = append(drawn, card)
	}
	if len(drawn) == 0 {
		return events
	}
	g.Seats[seat].Hand = append(g.Seats[seat].Hand, drawn...)
	return append(events, CardsDrawn{Seat: seat, Cards: drawn, Forced: true})
}

func (g *Game) advanceTo(seat int) Event {
	g.Current = seat
	g.CardDrawn = false
	g.EightDrawn, g.EightSatisfied = nil, false
	g.Turn++
	return TurnChanged{Seat: seat, Turn: g.Turn}
}

// nextSeat 下一个在线/机器人/托管的座位, 不会是 from 自己; 其他人全部离线时退化为顺位下家
func (g *Game) nextSeat(from int) int {
	n := len(g.Seats)
	for i := 1; i < n; i++ {
		s := (from + i) % n
		if g.away == nil || !g.away(s) {
			return s
		}
	}
	return (from + 1) % n
}

// EffectiveSuit Q 指定的花色优先于顶牌花色
func (g *Game) EffectiveSuit() Suit {
	if g.ChosenSuit != "" {
		return g.ChosenSuit
	}
	return g.Deck.Top().Suit
}

func (g *Game) Top() Card { return g.Deck.Top() }

func (g *Game) Hand(seat int) []Card {
	if seat < 0 || seat >= len(g.Seats) {
		return nil
	}
	return g.Seats[seat].Hand
}

func (g *Game) SeatOf(playerID string) int {
	for i, s := range g.Seats {
		if s.PlayerID == playerID {
			return i
		}
	}
	return -1
}

func (g *Game) CurrentPlayerID() string {
	if g.Current < 0 || g.Current >= len(g.Seats) {
		return ""
	}
	return g.Seats[g.Current].PlayerID
}

// Playable 当前可出的牌, 非当前玩家返回空
func (g *Game) Playable(seat int) []Card {
	if g.Finished || seat != g.Current {
		return nil
	}
	return lo.Filter(g.Seats[seat].Hand, func(c Card, _ int) bool {
		return g.canPlay(c)
	})
}

func (g *Game) CanDraw(seat int) bool {
	if g.Finished || seat != g.Current {
		return false
	}
	if g.WaitingForEight {
		return !g.EightSatisfied
	}
	return !g.CardDrawn && g.Deck.CanDraw()
}

func (g *Game) CanSkip(seat int) bool {
	return !g.Finished && seat == g.Current && g.canSkip()
}

// CardCount 手牌+牌堆总数, 恒等于牌数
func (g *Game) CardCount() int {
	n := g.Deck.DrawCount() + g.Deck.DiscardCount()
	for _, s := range g.Seats {
		n += len(s.Hand)
	}
	return n
}
