package v1

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// Command 上行消息经校验后的类型化命令
type Command interface {
	Type() string
	Validate() error
}

// RoomCommand 需要已绑定房间才能执行的命令
type RoomCommand interface {
	Command
	roomScoped()
}

// GameAction 出牌/摸牌/过牌共有的幂等字段
type GameAction struct {
	ActionID string `json:"action_id,omitempty"`
	Turn     *int64 `json:"turn,omitempty"`
}

func (a *GameAction) validate() error {
	if len(a.ActionID) > 64 {
		return Invalid("action_id too long")
	}
	if a.Turn != nil && *a.Turn < 0 {
		return Invalid("turn must not be negative")
	}
	return nil
}

func (*GameAction) roomScoped() {}

// Action 返回幂等字段
func (a *GameAction) Action() *GameAction { return a }

type inRoom struct{}

func (inRoom) roomScoped() {}

type CreateRoomReq struct {
	Nickname  string `json:"nickname"`
	IsPrivate bool   `json:"is_private,omitempty"`
	DeckSize  int    `json:"deck_size,omitempty"`
}

func (*CreateRoomReq) Type() string { return TypeCreateRoom }

func (r *CreateRoomReq) Validate() error {
	var err error
	if r.Nickname, err = nickname(r.Nickname); err != nil {
		return err
	}
	if r.DeckSize == 0 {
		r.DeckSize = 52
	}
	return deckSize(r.DeckSize)
}

type CreateBotGameReq struct {
	Nickname string `json:"nickname"`
	BotCount int    `json:"bot_count"`
	DeckSize int    `json:"deck_size"`
}

func (*CreateBotGameReq) Type() string { return TypeCreateBotGame }

func (r *CreateBotGameReq) Validate() error {
	var err error
	if r.Nickname, err = nickname(r.Nickname); err != nil {
		return err
	}
	if r.BotCount < 1 || r.BotCount > MaxBots {
		return Invalid("bot_count must be 1-%d", MaxBots)
	}
	if r.DeckSize == 0 {
		r.DeckSize = 52
	}
	return deckSize(r.DeckSize)
}

type JoinRoomReq struct {
	RoomID   string `json:"room_id"`
	Nickname string `json:"nickname"`
}

func (*JoinRoomReq) Type() string { return TypeJoinRoom }

func (r *JoinRoomReq) Validate() error {
	if r.RoomID = strings.TrimSpace(r.RoomID); r.RoomID == "" {
		return Invalid("room_id required")
	}
	var err error
	r.Nickname, err = nickname(r.Nickname)
	return err
}

type ToggleReadyReq struct{ inRoom }

func (*ToggleReadyReq) Type() string   { return TypeToggleReady }
func (*ToggleReadyReq) Validate() error { return nil }

type TogglePrivateReq struct {
	inRoom
	IsPrivate bool `json:"is_private"`
}

func (*TogglePrivateReq) Type() string   { return TypeTogglePrivate }
func (*TogglePrivateReq) Validate() error { return nil }

type ChangeDeckSizeReq struct {
	inRoom
	DeckSize int `json:"deck_size"`
}

func (*ChangeDeckSizeReq) Type() string { return TypeChangeDeckSize }

func (r *ChangeDeckSizeReq) Validate() error { return deckSize(r.DeckSize) }

type LeaveRoomReq struct{ inRoom }

func (*LeaveRoomReq) Type() string   { return TypeLeaveRoom }
func (*LeaveRoomReq) Validate() error { return nil }

type PlayCardReq struct {
	GameAction
	CardID     string `json:"card_id"`
	ChosenSuit string `json:"chosen_suit,omitempty"`
}

func (*PlayCardReq) Type() string { return TypePlayCard }

func (r *PlayCardReq) Validate() error {
	if r.CardID = strings.ToUpper(strings.TrimSpace(r.CardID)); r.CardID == "" {
		return Invalid("card_id required")
	}
	switch r.ChosenSuit {
	case "", "hearts", "diamonds", "clubs", "spades":
	default:
		return Invalid("unknown suit %q", r.ChosenSuit)
	}
	return r.validate()
}

type DrawCardReq struct{ GameAction }

func (*DrawCardReq) Type() string     { return TypeDrawCard }
func (r *DrawCardReq) Validate() error { return r.validate() }

type SkipTurnReq struct{ GameAction }

func (*SkipTurnReq) Type() string     { return TypeSkipTurn }
func (r *SkipTurnReq) Validate() error { return r.validate() }

type ChatMessageReq struct {
	inRoom
	Message string `json:"message"`
}

func (*ChatMessageReq) Type() string { return TypeChatMessage }

// Validate 去掉首尾空白并截断到上限
func (r *ChatMessageReq) Validate() error {
	r.Message = truncate(strings.TrimSpace(r.Message), MaxChatMessage)
	if r.Message == "" {
		return Invalid("message required")
	}
	return nil
}

type ReactionReq struct {
	inRoom
	Reaction string `json:"reaction"`
}

func (*ReactionReq) Type() string { return TypeReaction }

func (r *ReactionReq) Validate() error {
	r.Reaction = strings.TrimSpace(r.Reaction)
	if r.Reaction == "" || utf8.RuneCountInString(r.Reaction) > MaxReaction {
		return Invalid("reaction must be 1-%d characters", MaxReaction)
	}
	return nil
}

type ReconnectReq struct {
	PlayerID string `json:"player_id"`
	RoomID   string `json:"room_id"`
}

func (*ReconnectReq) Type() string { return TypeReconnect }

func (r *ReconnectReq) Validate() error {
	if r.PlayerID == "" || r.RoomID == "" {
		return Invalid("player_id and room_id required")
	}
	return nil
}

type GetRoomsReq struct{}

func (*GetRoomsReq) Type() string   { return TypeGetRooms }
func (*GetRoomsReq) Validate() error { return nil }

var commands = map[string]func() Command{
	TypeCreateRoom:     func() Command { return &CreateRoomReq{} },
	TypeCreateBotGame:  func() Command { return &CreateBotGameReq{} },
	TypeJoinRoom:       func() Command { return &JoinRoomReq{} },
	TypeToggleReady:    func() Command { return &ToggleReadyReq{} },
	TypeTogglePrivate:  func() Command { return &TogglePrivateReq{} },
	TypeChangeDeckSize: func() Command { return &ChangeDeckSizeReq{} },
	TypeLeaveRoom:      func() Command { return &LeaveRoomReq{} },
	TypePlayCard:       func() Command { return &PlayCardReq{} },
	TypeDrawCard:       func() Command { return &DrawCardReq{} },
	TypeSkipTurn:       func() Command { return &SkipTurnReq{} },
	TypeChatMessage:    func() Command { return &ChatMessageReq{} },
	TypeReaction:       func() Command { return &ReactionReq{} },
	TypeReconnect:      func() Command { return &ReconnectReq{} },
	TypeGetRooms:       func() Command { return &GetRoomsReq{} },
}

// Decode 解析一帧上行 JSON, 返回校验过的命令
func Decode(data []byte) (Command, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, Invalid("invalid json")
	}
	newCmd, ok := commands[head.Type]
	if !ok {
		return nil, Invalid("unknown message type %q", head.Type)
	}
	cmd := newCmd()
	if err := json.Unmarshal(data, cmd); err != nil {
		return nil, Invalid("invalid %s payload", head.Type)
	}
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	return cmd, nil
}

func nickname(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", Invalid("nickname required")
	}
	return truncate(s, MaxNickname), nil
}

func deckSize(n int) error {
	if n != 36 && n != 52 {
		return Invalid("deck size must be 36 or 52")
	}
	return nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
