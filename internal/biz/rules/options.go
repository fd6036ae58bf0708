package rules

// Options 规则开关, 来自 room.rules 配置
type Options struct {
	DeckSize int `json:"deck_size"`
	HandSize int `json:"hand_size"`

	// 6/7 让下家立即摸牌的张数
	ForcedDrawSix   int `json:"forced_draw_six"`
	ForcedDrawSeven int `json:"forced_draw_seven"`
	// 被罚摸的玩家本回合视为已摸过牌(不能再摸, 可直接过)
	ForcedDrawCountsAsTurnDraw bool `json:"forced_draw_counts_as_turn_draw"`
	// 被罚摸的玩家同时跳过本回合
	ForcedDrawSkipsTurn bool `json:"forced_draw_skips_turn"`
	// 36张牌时8也触发连摸
	EightChainShortDeck bool `json:"eight_chain_short_deck"`
	// A 跳过下家
	AceSkipsNext bool `json:"ace_skips_next"`
}

func DefaultOptions() Options {
	return Options{
		DeckSize:        52,
		HandSize:        5,
		ForcedDrawSix:   1,
		ForcedDrawSeven: 2,
		AceSkipsNext:    true,
	}
}

// WithDeckSize 返回换了牌数的副本
func (o Options) WithDeckSize(size int) Options {
	o.DeckSize = size
	return o
}

func (o Options) chainEnabled() bool {
	return o.DeckSize == 52 || o.EightChainShortDeck
}

func (o Options) forcedDraw(r Rank) int {
	switch r {
	case Six:
		return o.ForcedDrawSix
	case Seven:
		return o.ForcedDrawSeven
	default:
		return 0
	}
}
