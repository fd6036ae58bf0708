package rules

// Event 引擎产生的状态变化, 由房间翻译成推送
type Event interface {
	event()
}

type SkipReason string

const (
	SkipAce           SkipReason = "ace"
	SkipPass          SkipReason = "pass"
	SkipForcedDraw    SkipReason = "forced_draw"
	SkipDeckExhausted SkipReason = "deck_exhausted"
)

type CardPlayed struct {
	Seat       int
	Card       Card
	ChosenSuit Suit
}

// CardsDrawn Forced 为 6/7 罚摸
type CardsDrawn struct {
	Seat   int
	Cards  []Card
	Forced bool
}

type TurnSkipped struct {
	Seat   int
	Reason SkipReason
}

type DeckShuffled struct {
	DrawCount int
}

type TurnChanged struct {
	Seat int
	Turn int64
}

type RoundWon struct {
	Seat int
	Card Card
}

func (CardPlayed) event()   {}
func (CardsDrawn) event()   {}
func (TurnSkipped) event()  {}
func (DeckShuffled) event() {}
func (TurnChanged) event()  {}
func (RoundWon) event()     {}
