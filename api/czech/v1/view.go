package v1

type CardView struct {
	ID   string `json:"id"`
	Rank string `json:"rank"`
	Suit string `json:"suit"`
}

type PlayerView struct {
	ID        string `json:"id"`
	Nickname  string `json:"nickname"`
	HandCount int    `json:"hand_count"`
	Ready     bool   `json:"ready"`
	Score     int    `json:"score"`
	IsBot     bool   `json:"is_bot"`
	Connected bool   `json:"connected"`
	Autopilot bool   `json:"autopilot,omitempty"`
}

type RoomView struct {
	ID          string       `json:"id"`
	Players     []PlayerView `json:"players"`
	PlayerCount int          `json:"player_count"`
	GameStarted bool         `json:"game_started"`
	Phase       string       `json:"phase"`
	DeckSize    int          `json:"deck_size"`
	CreatorID   string       `json:"creator_id"`
	IsPrivate   bool         `json:"is_private"`
}

// RoomSummary 大厅列表项
type RoomSummary struct {
	ID          string   `json:"id"`
	PlayerCount int      `json:"player_count"`
	DeckSize    int      `json:"deck_size"`
	Players     []string `json:"players"`
}

// GameView 某个玩家视角的牌局状态, 只含自己的手牌
type GameView struct {
	Hand              []CardView   `json:"hand"`
	TopCard           *CardView    `json:"top_card"`
	CurrentPlayer     string       `json:"current_player"`
	Dealer            string       `json:"dealer"`
	Players           []PlayerView `json:"players"`
	DeckCount         int          `json:"deck_count"`
	DeckSize          int          `json:"deck_size"`
	ChosenSuit        string       `json:"chosen_suit,omitempty"`
	WaitingForEight   bool         `json:"waiting_for_eight"`
	CardDrawnThisTurn bool         `json:"card_drawn_this_turn"`
	EightDrawnCards   []string     `json:"eight_drawn_cards"`
	Turn              int64        `json:"turn"`
	Playable          []string     `json:"playable"`
	CanDraw           bool         `json:"can_draw"`
	CanSkip           bool         `json:"can_skip"`
}

type ForcedDraw struct {
	PlayerID       string `json:"player_id"`
	PlayerNickname string `json:"player_nickname"`
	Count          int    `json:"count"`
}

type RoomsList struct {
	Rooms []RoomSummary `json:"rooms"`
}

// RoomEntered room_created / room_joined
type RoomEntered struct {
	RoomID   string   `json:"room_id"`
	PlayerID string   `json:"player_id"`
	Room     RoomView `json:"room"`
}

type PlayerJoined struct {
	Player PlayerView `json:"player"`
}

type PlayerLeft struct {
	PlayerID string `json:"player_id"`
}

type PlayerReadyChanged struct {
	PlayerID string `json:"player_id"`
	Ready    bool   `json:"ready"`
}

type RoomUpdated struct {
	Room RoomView `json:"room"`
}

type RoomPrivacyChanged struct {
	IsPrivate bool `json:"is_private"`
}

type GameStarted struct {
	RoomID   string `json:"room_id"`
	PlayerID string `json:"player_id"`
	GameView
	ForcedDraw *ForcedDraw `json:"forced_draw,omitempty"`
}

type CardPlayed struct {
	PlayerID       string   `json:"player_id"`
	PlayerNickname string   `json:"player_nickname"`
	Card           CardView `json:"card"`
	GameView
	ForcedDraw *ForcedDraw `json:"forced_draw,omitempty"`
}

// CardDrawn 牌面只发给摸牌者本人(在其 hand 中)
type CardDrawn struct {
	PlayerID       string `json:"player_id"`
	PlayerNickname string `json:"player_nickname"`
	CardsCount     int    `json:"cards_count"`
	Forced         bool   `json:"forced,omitempty"`
	GameView
}

type TurnSkipped struct {
	PlayerID       string `json:"player_id"`
	PlayerNickname string `json:"player_nickname"`
	Reason         string `json:"reason"`
	GameView
}

type DeckShuffled struct {
	DrawCount int `json:"draw_count"`
}

type RoundResult struct {
	PlayerID   string     `json:"player_id"`
	Nickname   string     `json:"nickname"`
	Points     int        `json:"points"`
	TotalScore int        `json:"total_score"`
	Hand       []CardView `json:"hand"`
	Reset      bool       `json:"reset,omitempty"`
	Kicked     bool       `json:"kicked,omitempty"`
}

type GameEnded struct {
	WinnerID    string        `json:"winner_id"`
	WinningCard *CardView     `json:"winning_card"`
	QueenBonus  int           `json:"queen_bonus"`
	Results     []RoundResult `json:"results"`
}

type PlayerKicked struct {
	PlayerID       string `json:"player_id"`
	PlayerNickname string `json:"player_nickname"`
	Reason         string `json:"reason"`
}

type FinalWinner struct {
	WinnerID       string   `json:"winner_id"`
	WinnerNickname string   `json:"winner_nickname"`
	KickedPlayers  []string `json:"kicked_players"`
}

type CountdownTick struct {
	Seconds int `json:"seconds"`
}

type CountdownCancelled struct{}

// PlayerPresence player_disconnected / player_reconnected
type PlayerPresence struct {
	PlayerID string `json:"player_id"`
	Nickname string `json:"nickname"`
}

type DeckSizeChanged struct {
	DeckSize int `json:"deck_size"`
}

type RoomClosed struct {
	Message string `json:"message"`
}

type ChatMessage struct {
	PlayerID       string `json:"player_id"`
	PlayerNickname string `json:"player_nickname"`
	Message        string `json:"message"`
}

type Reaction struct {
	PlayerID       string `json:"player_id"`
	PlayerNickname string `json:"player_nickname"`
	Reaction       string `json:"reaction"`
}

type ErrorMsg struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
