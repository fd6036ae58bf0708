package conf

import (
	"time"
)

// Default 默认配置; 配置文件只需写要覆盖的项
func Default() *Bootstrap {
	return &Bootstrap{
		Server: Server{
			Addr:         ":8765",
			WsPath:       "/ws",
			Timeout:      Duration(5 * time.Second),
			MaxConn:      10000,
			WriteTimeout: Duration(10 * time.Second),
			PingInterval: Duration(15 * time.Second),
			ReadDeadline: Duration(60 * time.Second),
			SendChanSize: 128,
			PoolSize:     256,
			Tick:         Duration(100 * time.Millisecond),
		},
		Data: Data{
			Driver:          DriverSqlite,
			Reload:          true,
			Retention:       Duration(24 * time.Hour),
			CleanupInterval: Duration(6 * time.Hour),
			Sqlite:          Sqlite{Path: "./data/czech.db"},
			Redis: Redis{
				Addr:         "127.0.0.1:6379",
				Prefix:       "czech:",
				DialTimeout:  Duration(3 * time.Second),
				ReadTimeout:  Duration(time.Second),
				WriteTimeout: Duration(time.Second),
			},
			Writer: Writer{Shards: 8, QueueSize: 256, Timeout: Duration(3 * time.Second)},
		},
		Room: *DefaultRoom(),
	}
}

func DefaultRoom() *Room {
	return &Room{
		Rules: Rules{
			DeckSize:     52,
			HandSize:     5,
			ForcedDraw:   ForcedDraw{Six: 1, Seven: 2},
			AceSkipsNext: true,
			ScoreLimit:   101,
			Points: map[string]int{
				"2": 2, "3": 3, "4": 4, "5": 5, "6": 6, "7": 7, "8": 8, "9": 9, "10": 10,
				"J": 2, "Q": 20, "K": 4, "A": 11, "QS": 40,
			},
			Bonus: Bonus{Rule: "queen_bonus", Spades: -40, Other: -20},
		},
		Timing: Timing{
			Countdown:         Duration(24 * time.Second),
			AllReadyCountdown: 0,
			BotDelay:          Duration(1500 * time.Millisecond),
			GraceWindow:       Duration(60 * time.Second),
			SettleDelay:       Duration(2 * time.Second),
		},
		Chat:     Chat{Rate: 2, Burst: 5},
		LogCache: LogCache{Open: false, Dir: "./logs/log_cache"},
	}
}
