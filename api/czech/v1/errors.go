package v1

import (
	"github.com/go-kratos/kratos/v2/errors"
)

// 错误原因即下行 error.code
const (
	ReasonValidation        = "validation_error"
	ReasonNotYourTurn       = "not_your_turn"
	ReasonCardNotFound      = "card_not_found"
	ReasonIllegalAction     = "illegal_action"
	ReasonRoomNotFound      = "room_not_found"
	ReasonRoomFull          = "room_full"
	ReasonGameStarted       = "game_already_started"
	ReasonPlayerNotFound    = "player_not_found"
	ReasonNotRoomCreator    = "not_room_creator"
	ReasonDeckExhausted     = "deck_exhausted"
	ReasonStaleAction       = "stale_action"
	ReasonNotInRoom         = "not_in_room"
	ReasonSessionSuperseded = "session_superseded"
	ReasonRateLimited       = "rate_limited"
	ReasonInternal          = "internal_error"
)

var (
	ErrValidation        = errors.New(400, ReasonValidation, "invalid request")
	ErrNotYourTurn       = errors.New(409, ReasonNotYourTurn, "not your turn")
	ErrCardNotFound      = errors.New(404, ReasonCardNotFound, "card not found")
	ErrIllegalAction     = errors.New(409, ReasonIllegalAction, "illegal action")
	ErrRoomNotFound      = errors.New(404, ReasonRoomNotFound, "room not found")
	ErrRoomFull          = errors.New(409, ReasonRoomFull, "room is full")
	ErrGameStarted       = errors.New(409, ReasonGameStarted, "game already started")
	ErrPlayerNotFound    = errors.New(404, ReasonPlayerNotFound, "player not found")
	ErrNotRoomCreator    = errors.New(403, ReasonNotRoomCreator, "only the room creator can do this")
	ErrDeckExhausted     = errors.New(409, ReasonDeckExhausted, "deck is empty")
	ErrStaleAction       = errors.New(409, ReasonStaleAction, "stale action")
	ErrNotInRoom         = errors.New(400, ReasonNotInRoom, "you are not in a room")
	ErrSessionSuperseded = errors.New(409, ReasonSessionSuperseded, "session opened elsewhere")
	ErrRateLimited       = errors.New(429, ReasonRateLimited, "too many messages")
)

// Invalid 带具体描述的参数错误
func Invalid(format string, args ...any) *errors.Error {
	return errors.Newf(400, ReasonValidation, format, args...)
}

// ErrorPayload 把任意错误转为下行 error 消息
func ErrorPayload(err error) *Packet {
	e := errors.FromError(err)
	code := e.Reason
	if code == "" {
		code = ReasonInternal
	}
	return NewPacket(TypeError, &ErrorMsg{Code: code, Message: e.Message})
}
