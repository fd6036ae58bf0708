package v1

// 上行消息类型
const (
	TypeCreateRoom     = "create_room"
	TypeCreateBotGame  = "create_bot_game"
	TypeJoinRoom       = "join_room"
	TypeToggleReady    = "toggle_ready"
	TypeTogglePrivate  = "toggle_private"
	TypeChangeDeckSize = "change_deck_size"
	TypeLeaveRoom      = "leave_room"
	TypePlayCard       = "play_card"
	TypeDrawCard       = "draw_card"
	TypeSkipTurn       = "skip_turn"
	TypeChatMessage    = "chat_message"
	TypeReaction       = "reaction"
	TypeReconnect      = "reconnect"
	TypeGetRooms       = "get_rooms"
)

// 下行消息类型
const (
	TypeRoomsList          = "rooms_list"
	TypeRoomCreated        = "room_created"
	TypeRoomJoined         = "room_joined"
	TypePlayerJoined       = "player_joined"
	TypePlayerLeft         = "player_left"
	TypePlayerReadyChanged = "player_ready_changed"
	TypeRoomUpdated        = "room_updated"
	TypeRoomPrivacyChanged = "room_privacy_changed"
	TypeGameStarted        = "game_started"
	TypeCardPlayed         = "card_played"
	TypeCardDrawn          = "card_drawn"
	TypeTurnSkipped        = "turn_skipped"
	TypeDeckShuffled       = "deck_shuffled"
	TypeGameEnded          = "game_ended"
	TypePlayerKicked       = "player_kicked"
	TypeFinalWinner        = "final_winner"
	TypeCountdownTick      = "countdown_tick"
	TypeCountdownCancelled = "countdown_cancelled"
	TypePlayerDisconnected = "player_disconnected"
	TypePlayerReconnected  = "player_reconnected"
	TypeDeckSizeChanged    = "deck_size_changed"
	TypeRoomClosed         = "room_closed"
	TypeError              = "error"
)

const (
	MaxPlayers     = 4
	MinPlayers     = 2
	MaxBots        = 3
	MaxNickname    = 24
	MaxChatMessage = 200
	MaxReaction    = 32
)
