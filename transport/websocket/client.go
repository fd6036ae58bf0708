package websocket

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/gorilla/websocket"

	"github.com/yola1107/czech/library/xgo"
)

var (
	errNotConnected = errors.New("client: not connected")
	errInvalidURL   = errors.New("client: invalid URL")
)

// PushHandler 处理一种 type 的下行消息, data 为整帧 JSON
type PushHandler func(data []byte)

type ClientOption func(*clientOptions)

func WithTlsConf(tlsConfig *tls.Config) ClientOption {
	return func(o *clientOptions) { o.tlsConf = tlsConfig }
}

func WithHeartbeat(d, i, w time.Duration) ClientOption {
	return func(o *clientOptions) {
		o.session.ReadDeadline, o.session.PingInterval, o.session.WriteTimeout = d, i, w
	}
}

func WithSentChanSize(size int) ClientOption {
	return func(o *clientOptions) { o.session.SendChanSize = size }
}

func WithEndpoint(endpoint string) ClientOption {
	return func(o *clientOptions) { o.endpoint = endpoint }
}

func WithConnectFunc(fn func(*Session)) ClientOption {
	return func(o *clientOptions) { o.onConnect = fn }
}

func WithDisconnectFunc(fn func(*Session)) ClientOption {
	return func(o *clientOptions) { o.onDisconnect = fn }
}

func WithPushHandler(handlers map[string]PushHandler) ClientOption {
	return func(o *clientOptions) { o.handlers = handlers }
}

// WithDefaultHandler 没有对应 type 的处理函数时调用
func WithDefaultHandler(h PushHandler) ClientOption {
	return func(o *clientOptions) { o.fallback = h }
}

// WithRetryPolicy 指数退避重连. retries<0 不限次数, 0 不重连
func WithRetryPolicy(base, maxDelay time.Duration, retries int32) ClientOption {
	return func(o *clientOptions) {
		o.baseDelay, o.maxDelay, o.retries = base, maxDelay, retries
	}
}

type clientOptions struct {
	tlsConf      *tls.Config
	endpoint     string
	onConnect    func(*Session)
	onDisconnect func(*Session)
	handlers     map[string]PushHandler
	fallback     PushHandler
	session      *SessionConfig

	baseDelay time.Duration
	maxDelay  time.Duration
	retries   int32
}

// Client 单连接客户端, 断线后按退避策略自动重连
type Client struct {
	ctx     context.Context
	opts    *clientOptions
	url     *url.URL
	session atomic.Pointer[Session]
	closing atomic.Bool
}

// NewClient 连接成功才返回
func NewClient(ctx context.Context, opts ...ClientOption) (*Client, error) {
	o := &clientOptions{
		endpoint: "ws://127.0.0.1:8765/ws",
		handlers: map[string]PushHandler{},
		session: &SessionConfig{
			WriteTimeout: 10 * time.Second,
			PingInterval: 10 * time.Second,
			ReadDeadline: 60 * time.Second,
			SendChanSize: 128,
		},
		baseDelay: 3 * time.Second,
		maxDelay:  15 * time.Second,
	}
	for _, opt := range opts {
		opt(o)
	}

	u, err := endpointURL(o.endpoint, o.tlsConf == nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidURL, err)
	}
	c := &Client{ctx: ctx, opts: o, url: u}
	if err := c.dial(); err != nil {
		return nil, err
	}
	return c, nil
}

// endpointURL 没写协议时按是否 TLS 补 ws:// 或 wss://
func endpointURL(endpoint string, insecure bool) (*url.URL, error) {
	if !strings.Contains(endpoint, "://") {
		scheme := "wss://"
		if insecure {
			scheme = "ws://"
		}
		endpoint = scheme + endpoint
	}
	return url.Parse(endpoint)
}

func (c *Client) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.opts.baseDelay
	b.MaxInterval = c.opts.maxDelay
	b.Multiplier = 1.5
	b.RandomizationFactor = 0.1
	b.Reset()
	return b
}

func (c *Client) dial() error {
	dialer := websocket.Dialer{
		HandshakeTimeout: c.opts.session.WriteTimeout,
		TLSClientConfig:  c.opts.tlsConf,
	}
	retry := []backoff.RetryOption{
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, d time.Duration) {
			log.Warnf("[ws-client] dial %s failed, retry in %v: %v", c.url, d, err)
		}),
	}
	if c.opts.retries >= 0 {
		retry = append(retry, backoff.WithMaxTries(uint(c.opts.retries)+1))
	}

	conn, err := backoff.Retry(c.ctx, func() (*websocket.Conn, error) {
		if c.closing.Load() {
			return nil, backoff.Permanent(errNotConnected)
		}
		conn, _, err := dialer.DialContext(c.ctx, c.url.String(), nil)
		return conn, err
	}, retry...)
	if err != nil {
		return fmt.Errorf("client: dial %s: %w", c.url, err)
	}
	c.session.Store(NewSession(c, conn, c.opts.session))
	return nil
}

func (c *Client) IsAlive() bool {
	if c == nil {
		return false
	}
	s := c.session.Load()
	return s != nil && !s.Closed()
}

func (c *Client) GetSession() *Session { return c.session.Load() }

// Send v 编码为 JSON 发出
func (c *Client) Send(v any) error {
	s := c.session.Load()
	if s == nil || s.Closed() {
		return errNotConnected
	}
	return s.Push(v)
}

// Close 主动关闭, 不再重连
func (c *Client) Close() {
	c.closing.Store(true)
	if s := c.session.Swap(nil); s != nil {
		s.Close(false)
	}
}

func (c *Client) OnSessionOpen(sess *Session) {
	if c.opts.onConnect != nil {
		c.opts.onConnect(sess)
	}
}

func (c *Client) OnSessionClose(sess *Session) {
	if c.opts.onDisconnect != nil {
		c.opts.onDisconnect(sess)
	}
	if c.closing.Load() || c.opts.retries == 0 {
		return
	}
	go func() {
		if err := c.dial(); err != nil {
			log.Errorf("[ws-client] give up reconnecting: %v", err)
		}
	}()
}

// DispatchMessage 按 type 字段找处理函数
func (c *Client) DispatchMessage(_ *Session, data []byte) error {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return fmt.Errorf("client: bad frame: %w", err)
	}
	h, ok := c.opts.handlers[head.Type]
	if !ok {
		h = c.opts.fallback
	}
	if h == nil {
		log.Debugf("[ws-client] no handler for %q", head.Type)
		return nil
	}
	defer xgo.Recover("ws.client."+head.Type, nil)
	h(data)
	return nil
}
