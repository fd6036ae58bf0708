package room

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/yola1107/czech/internal/biz/player"
	"github.com/yola1107/czech/internal/biz/rules"
	"github.com/yola1107/czech/internal/conf"
	"github.com/yola1107/czech/library/ext"
	"github.com/yola1107/czech/library/log/file"
)

// Log 房间日志, room.log_cache.open 关闭时不写
type Log struct {
	c      conf.LogCache
	roomID string
	logger *file.Log
}

func NewRoomLog(roomID string, c conf.LogCache) *Log {
	return &Log{
		c:      c,
		roomID: roomID,
		logger: file.NewFileLog(filepath.Join(c.Dir, conf.Name, fmt.Sprintf("room_%s.log", roomID)), nil),
	}
}

func (l *Log) Close() error {
	return l.logger.Close()
}

func (l *Log) write(msg string, args ...interface{}) {
	if !l.c.Open {
		return
	}
	l.logger.Printf(msg, args...)
}

func (l *Log) userEnter(p *player.Player, cnt int) {
	l.write("[进入房间] 玩家:%+v 房间人数(%+v) ", p.Desc(), cnt)
}

func (l *Log) reEnter(p *player.Player) {
	l.write("[重连] 玩家:%+v ", p.Desc())
}

func (l *Log) userExit(p *player.Player, cnt int, reason string) {
	l.write("[离开房间] 玩家:%+v 房间人数(%+v) 原因(%s) ", p.Desc(), cnt, reason)
}

func (l *Log) offline(p *player.Player) {
	l.write("【玩家断线】玩家:%+v ", p.Desc())
}

func (l *Log) graceExpired(p *player.Player) {
	l.write("【断线超时】玩家:%+v ", p.Desc())
}

func (l *Log) ready(p *player.Player) {
	l.write("[准备] 玩家:%+v ", p.Desc())
}

func (l *Log) countdown(secs int) {
	l.write("[倒计时] %ds", secs)
}

func (l *Log) stage(s string) {
	l.write("[状态转移] %s", s)
}

func (l *Log) chat(p *player.Player, msg string) {
	l.write("[聊天] 玩家:%+v %q", p.Desc(), msg)
}

func (l *Log) begin(desc string, g *rules.Game, seats []*player.Player) {
	logs := []string{fmt.Sprintf("[游戏开始] %s top=%v suit=%q", desc, g.Top(), g.ChosenSuit)}
	for _, p := range seats {
		logs = append(logs, fmt.Sprintf("玩家:%+v Hands:%v", p.Desc(), g.Hand(g.SeatOf(p.GetPlayerID()))))
	}
	l.write(strings.Join(logs, "\r\n"))
}

func (l *Log) action(p *player.Player, a rules.Action, events []rules.Event, byAI bool) {
	l.write("[玩家操作] 玩家:%+v. %v %s%s ai=%v events=%s", p.Desc(), a.Kind, a.CardID, a.ChosenSuit, byAI, ext.ToJSON(events))
}

func (l *Log) reject(p *player.Player, a rules.Action, err error) {
	l.write("[非法操作] 玩家:%+v. %v %s err=%v", p.Desc(), a.Kind, a.CardID, err)
}

func (l *Log) settle(st *rules.Settlement) {
	logs := []string{fmt.Sprintf("[结算] <赢家>:%s card=%v bonus=%d loser=%q final=%q",
		st.WinnerID, st.WinningCard, st.Bonus, st.LoserID, st.FinalWinnerID)}
	for _, r := range st.Results {
		logs = append(logs, fmt.Sprintf("玩家:%s points:%d total:%d reset:%v kicked:%v Hands:%v",
			r.PlayerID, r.RoundPoints, r.Score, r.Reset, r.Kicked, r.Hand))
	}
	l.write(strings.Join(logs, "\r\n"))
}

func (l *Log) end(msg ...any) {
	l.write("[GameEnd] %s", msg)
	l.write("\r\n\r\n\r\n")
}

func (l *Log) closed(msg string) {
	l.write("[房间关闭] %q", msg)
}
