package conf

import (
	"fmt"
	"strings"
)

const (
	Name    = "czech"
	Version = "v0.1.0"
)

type Bootstrap struct {
	Server Server `json:"server" envPrefix:"SERVER_"`
	Data   Data   `json:"data" envPrefix:"DATA_"`
	Room   Room   `json:"room" envPrefix:"ROOM_"`
}

type Server struct {
	Addr         string   `json:"addr" env:"ADDR"`
	WsPath       string   `json:"ws_path"`
	Timeout      Duration `json:"timeout"`
	MaxConn      int32    `json:"max_conn"`
	WriteTimeout Duration `json:"write_timeout"`
	PingInterval Duration `json:"ping_interval"`
	ReadDeadline Duration `json:"read_deadline"`
	SendChanSize int      `json:"send_chan_size"`
	PoolSize     int      `json:"pool_size"`
	Tick         Duration `json:"tick"`
}

// 存储驱动
const (
	DriverSqlite = "sqlite"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

type Data struct {
	Driver string `json:"driver" env:"DRIVER"`
	// Reload 启动时从存储恢复房间; ClearRooms 优先, 启动时清空存储
	Reload          bool     `json:"reload"`
	ClearRooms      bool     `json:"clear_rooms" env:"CLEAR_ROOMS"`
	Retention       Duration `json:"retention"`
	CleanupInterval Duration `json:"cleanup_interval"`
	Sqlite          Sqlite   `json:"sqlite" envPrefix:"SQLITE_"`
	Redis           Redis    `json:"redis" envPrefix:"REDIS_"`
	Writer          Writer   `json:"writer"`
}

type Sqlite struct {
	Path string `json:"path" env:"PATH"`
}

type Redis struct {
	Addr         string   `json:"addr" env:"ADDR"`
	Password     string   `json:"password" env:"PASSWORD"`
	DB           int      `json:"db" env:"DB"`
	Prefix       string   `json:"prefix"`
	DialTimeout  Duration `json:"dial_timeout"`
	ReadTimeout  Duration `json:"read_timeout"`
	WriteTimeout Duration `json:"write_timeout"`
}

// Writer 异步持久化队列
type Writer struct {
	Shards    int      `json:"shards"`
	QueueSize int      `json:"queue_size"`
	Timeout   Duration `json:"timeout"`
}

// ShouldReload 启动时是否恢复房间
func (d *Data) ShouldReload() bool {
	return d.Reload && !d.ClearRooms
}

type Room struct {
	Rules    Rules    `json:"rules"`
	Timing   Timing   `json:"timing"`
	Chat     Chat     `json:"chat"`
	LogCache LogCache `json:"log_cache" envPrefix:"LOG_CACHE_"`
}

type Rules struct {
	DeckSize                   int            `json:"deck_size"`
	HandSize                   int            `json:"hand_size"`
	ForcedDraw                 ForcedDraw     `json:"forced_draw"`
	ForcedDrawCountsAsTurnDraw bool           `json:"forced_draw_counts_as_turn_draw"`
	ForcedDrawSkipsTurn        bool           `json:"forced_draw_skips_turn"`
	EightChainShortDeck        bool           `json:"eight_chain_short_deck"`
	AceSkipsNext               bool           `json:"ace_skips_next"`
	ScoreLimit                 int            `json:"score_limit"`
	Points                     map[string]int `json:"points"`
	Bonus                      Bonus          `json:"bonus"`
}

type ForcedDraw struct {
	Six   int `json:"six"`
	Seven int `json:"seven"`
}

// Bonus 赢家奖励规则: queen_bonus | none
type Bonus struct {
	Rule   string `json:"rule"`
	Spades int    `json:"spades"`
	Other  int    `json:"other"`
}

type Timing struct {
	Countdown         Duration `json:"countdown"`
	AllReadyCountdown Duration `json:"all_ready_countdown"`
	BotDelay          Duration `json:"bot_delay"`
	GraceWindow       Duration `json:"grace_window"`
	SettleDelay       Duration `json:"settle_delay"`
}

// Chat 每个连接的聊天/表情限流
type Chat struct {
	Rate  float64 `json:"rate"`
	Burst int     `json:"burst"`
}

type LogCache struct {
	Open bool   `json:"open" env:"OPEN"`
	Dir  string `json:"dir"`
}

func (b *Bootstrap) Validate() error {
	if err := b.Server.Validate(); err != nil {
		return err
	}
	if err := b.Data.Validate(); err != nil {
		return err
	}
	return b.Room.Validate()
}

func (s *Server) Validate() error {
	if s.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if !strings.HasPrefix(s.WsPath, "/") {
		return fmt.Errorf("server.ws_path %q must start with /", s.WsPath)
	}
	if s.SendChanSize <= 0 || s.PoolSize <= 0 || s.MaxConn <= 0 {
		return fmt.Errorf("server: send_chan_size, pool_size and max_conn must be positive")
	}
	if s.Tick <= 0 || s.ReadDeadline <= 0 || s.PingInterval <= 0 || s.WriteTimeout <= 0 {
		return fmt.Errorf("server: tick and heartbeat durations must be positive")
	}
	return nil
}

func (d *Data) Validate() error {
	switch d.Driver {
	case DriverSqlite:
		if d.Sqlite.Path == "" {
			return fmt.Errorf("data.sqlite.path is required")
		}
	case DriverRedis:
		if d.Redis.Addr == "" {
			return fmt.Errorf("data.redis.addr is required")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("data.driver %q: want sqlite, redis or memory", d.Driver)
	}
	if d.Retention <= 0 || d.CleanupInterval <= 0 {
		return fmt.Errorf("data.retention and data.cleanup_interval must be positive")
	}
	if d.Writer.Shards <= 0 || d.Writer.QueueSize <= 0 {
		return fmt.Errorf("data.writer.shards and queue_size must be positive")
	}
	return nil
}

func (r *Room) Validate() error {
	if err := r.Rules.Validate(); err != nil {
		return err
	}
	t := r.Timing
	if t.Countdown < 0 || t.AllReadyCountdown < 0 || t.BotDelay < 0 || t.SettleDelay < 0 {
		return fmt.Errorf("room.timing durations must not be negative")
	}
	if t.GraceWindow <= 0 {
		return fmt.Errorf("room.timing.grace_window must be positive")
	}
	if r.Chat.Rate <= 0 || r.Chat.Burst <= 0 {
		return fmt.Errorf("room.chat.rate and burst must be positive")
	}
	return nil
}

func (r *Rules) Validate() error {
	if r.DeckSize != 36 && r.DeckSize != 52 {
		return fmt.Errorf("room.rules.deck_size %d: want 36 or 52", r.DeckSize)
	}
	// 4人各5张 + 翻牌, 36张也够
	if r.HandSize < 1 || r.HandSize > 7 {
		return fmt.Errorf("room.rules.hand_size %d out of range", r.HandSize)
	}
	if r.ForcedDraw.Six < 0 || r.ForcedDraw.Seven < 0 {
		return fmt.Errorf("room.rules.forced_draw must not be negative")
	}
	if r.ScoreLimit <= 0 {
		return fmt.Errorf("room.rules.score_limit must be positive")
	}
	switch r.Bonus.Rule {
	case "queen_bonus", "none":
	default:
		return fmt.Errorf("room.rules.bonus.rule %q: want queen_bonus or none", r.Bonus.Rule)
	}
	return nil
}
