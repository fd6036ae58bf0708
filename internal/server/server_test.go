package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	v1 "github.com/yola1107/czech/api/czech/v1"
	"github.com/yola1107/czech/internal/biz/room"
	"github.com/yola1107/czech/internal/conf"
	"github.com/yola1107/czech/internal/data"
	"github.com/yola1107/czech/internal/service"
	"github.com/yola1107/czech/library/work"
)

func newTestServer(t *testing.T) (*httptest.Server, *room.Registry) {
	t.Helper()
	bc := conf.Default()
	bc.Data.Driver = conf.DriverMemory

	ctx, cancel := context.WithCancel(context.Background())
	w := work.New(ctx, 8, 10*time.Millisecond)
	require.NoError(t, w.Start())

	metrics, cleanupMetrics, err := data.NewMetrics()
	require.NoError(t, err)
	store := data.NewMemoryStore()
	writer, cleanupWriter := data.NewWriter(&bc.Data, store, metrics)

	reg := room.NewRegistry(w, conf.NewRoomHolder(&bc.Room), &bc.Data, store, writer)
	gw := service.NewGateway(reg)
	srv := NewWebsocketServer(&bc.Server, gw, NewHTTPHandler(gw, reg, metrics))
	ts := httptest.NewServer(srv.Router())

	t.Cleanup(func() {
		ts.Close()
		cancel()
		w.Stop()
		cleanupWriter()
		cleanupMetrics()
	})
	return ts, reg
}

func getJSON(t *testing.T, url string, v any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestHTTP_Healthz(t *testing.T) {
	ts, _ := newTestServer(t)

	var h health
	getJSON(t, ts.URL+"/healthz", &h)
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, conf.Version, h.Version)
	assert.Zero(t, h.Rooms)
	assert.Zero(t, h.Sessions)
}

func TestHTTP_Rooms(t *testing.T) {
	ts, reg := newTestServer(t)

	_, _, err := reg.Create("ann", false, 36, nil)
	require.NoError(t, err)
	_, _, err = reg.Create("bob", true, 52, nil)
	require.NoError(t, err)

	var list v1.RoomsList
	getJSON(t, ts.URL+"/api/rooms", &list)
	require.Len(t, list.Rooms, 1)
	assert.Equal(t, 36, list.Rooms[0].DeckSize)
	assert.Equal(t, []string{"ann"}, list.Rooms[0].Players)

	var h health
	getJSON(t, ts.URL+"/healthz", &h)
	assert.Equal(t, 2, h.Rooms)
}

func TestHTTP_Metrics(t *testing.T) {
	ts, reg := newTestServer(t)

	_, _, err := reg.Create("ann", false, 52, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		var counters map[string]int64
		getJSON(t, ts.URL+"/debug/metrics", &counters)
		return counters["czech.persist.saved"] > 0
	}, 2*time.Second, 20*time.Millisecond)
}

func TestHTTP_Options(t *testing.T) {
	ts, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/rooms", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://example.com")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://example.com", resp.Header.Get("Access-Control-Allow-Origin"))
}
