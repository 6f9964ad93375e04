package solana

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WSClientConfig configures WebSocket client behavior.
type WSClientConfig struct {
	ReconnectDelay    time.Duration // initial delay before a reconnect attempt
	MaxReconnectDelay time.Duration
	PingInterval      time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	RequestTimeout    time.Duration // wait for a subscribe/unsubscribe reply
	BufferSize        int           // per-subscription channel buffer
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSClientConfig {
	return WSClientConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		RequestTimeout:    30 * time.Second,
		BufferSize:        256,
	}
}

// ErrClientClosed is returned by calls on a closed LogsClient.
var ErrClientClosed = errors.New("websocket client closed")

// LogsClient implements LogsSubscriber using gorilla/websocket.
// It reconnects with exponential backoff and resubscribes every live subscription.
type LogsClient struct {
	endpoint string
	config   WSClientConfig
	logger   *zap.Logger

	conn      *websocket.Conn
	connMu    sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64
	handleSeq atomic.Uint64

	subsMu     sync.RWMutex
	subs       map[uint64]*logsSub // by local handle
	byServerID map[int64]*logsSub

	pendingMu sync.Mutex
	pending   map[uint64]chan wsReply // by request id

	done         chan struct{}
	wg           sync.WaitGroup
	reconnecting atomic.Bool
}

type logsSub struct {
	handle   uint64
	serverID int64
	filter   LogsFilter
	ch       chan LogNotification
}

type wsReply struct {
	result json.RawMessage
	err    *RPCError
}

// NewLogsClient connects to endpoint and starts the read and ping loops.
func NewLogsClient(ctx context.Context, endpoint string, config *WSClientConfig, logger *zap.Logger) (*LogsClient, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &LogsClient{
		endpoint:   endpoint,
		config:     cfg,
		logger:     logger.Named("solana-ws"),
		subs:       make(map[uint64]*logsSub),
		byServerID: make(map[int64]*logsSub),
		pending:    make(map[uint64]chan wsReply),
		done:       make(chan struct{}),
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	c.wg.Add(2)
	go c.readLoop()
	go c.pingLoop()

	return c, nil
}

var _ LogsSubscriber = (*LogsClient)(nil)

func (c *LogsClient) connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	c.conn = conn
	return nil
}

// SubscribeLogs subscribes to logs matching the filter.
func (c *LogsClient) SubscribeLogs(ctx context.Context, filter LogsFilter) (*LogsSubscription, error) {
	serverID, err := c.subscribe(ctx, filter)
	if err != nil {
		return nil, err
	}

	sub := &logsSub{
		handle:   c.handleSeq.Add(1),
		serverID: serverID,
		filter:   filter,
		ch:       make(chan LogNotification, c.config.BufferSize),
	}

	c.subsMu.Lock()
	c.subs[sub.handle] = sub
	c.byServerID[serverID] = sub
	c.subsMu.Unlock()

	return &LogsSubscription{handle: sub.handle, Filter: filter, C: sub.ch}, nil
}

// Unsubscribe cancels the subscription and closes its channel. The node-side
// unsubscribe is best effort: a failure only leaves an orphan server subscription
// whose notifications are dropped.
func (c *LogsClient) Unsubscribe(ctx context.Context, s *LogsSubscription) error {
	if s == nil {
		return nil
	}

	c.subsMu.Lock()
	sub, ok := c.subs[s.handle]
	if ok {
		delete(c.subs, sub.handle)
		delete(c.byServerID, sub.serverID)
		close(sub.ch)
	}
	c.subsMu.Unlock()

	if !ok {
		return nil
	}

	if _, err := c.request(ctx, "logsUnsubscribe", []interface{}{sub.serverID}); err != nil {
		return fmt.Errorf("logsUnsubscribe %d: %w", sub.serverID, err)
	}
	return nil
}

// Close closes the WebSocket connection.
func (c *LogsClient) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		_ = c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = c.conn.Close()
	}
	c.connMu.Unlock()

	c.subsMu.Lock()
	for handle, sub := range c.subs {
		close(sub.ch)
		delete(c.subs, handle)
	}
	c.byServerID = make(map[int64]*logsSub)
	c.subsMu.Unlock()

	c.wg.Wait()
	return nil
}

// subscribe sends logsSubscribe and returns the node's subscription id.
func (c *LogsClient) subscribe(ctx context.Context, filter LogsFilter) (int64, error) {
	mentions := map[string]interface{}{"mentions": filter.Mentions}
	if len(filter.Mentions) == 0 {
		mentions = map[string]interface{}{"all": nil}
	}

	result, err := c.request(ctx, "logsSubscribe", []interface{}{
		mentions,
		map[string]string{"commitment": "confirmed"},
	})
	if err != nil {
		return 0, err
	}

	var serverID int64
	if err := json.Unmarshal(result, &serverID); err != nil {
		return 0, fmt.Errorf("decode subscription id: %w", err)
	}
	return serverID, nil
}

// request writes a JSON-RPC request and waits for the matching reply.
func (c *LogsClient) request(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}

	reqID := c.requestID.Add(1)
	replyCh := make(chan wsReply, 1)
	c.pendingMu.Lock()
	c.pending[reqID] = replyCh
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, reqID)
		c.pendingMu.Unlock()
	}()

	c.connMu.Lock()
	if c.conn == nil {
		c.connMu.Unlock()
		return nil, fmt.Errorf("not connected")
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	err := c.conn.WriteJSON(rpcEnvelope{JSONRPC: "2.0", ID: reqID, Method: method, Params: params})
	c.connMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("write %s: %w", method, err)
	}

	timer := time.NewTimer(c.config.RequestTimeout)
	defer timer.Stop()

	select {
	case reply := <-replyCh:
		if reply.err != nil {
			return nil, reply.err
		}
		return reply.result, nil
	case <-timer.C:
		return nil, fmt.Errorf("%s timeout after %s", method, c.config.RequestTimeout)
	case <-c.done:
		return nil, ErrClientClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *LogsClient) readLoop() {
	defer c.wg.Done()

	reconnectDelay := c.config.ReconnectDelay

	for !c.closed.Load() {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		_ = conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}

			if !c.reconnecting.Swap(true) {
				c.logger.Warn("websocket read failed, reconnecting",
					zap.Error(err), zap.Duration("delay", reconnectDelay))
				go c.reconnect(conn, reconnectDelay)

				reconnectDelay *= 2
				if reconnectDelay > c.config.MaxReconnectDelay {
					reconnectDelay = c.config.MaxReconnectDelay
				}
			}

			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		reconnectDelay = c.config.ReconnectDelay
		c.handleMessage(message)
	}
}

// reconnect replaces the broken connection and resubscribes every live subscription.
func (c *LogsClient) reconnect(broken *websocket.Conn, delay time.Duration) {
	defer c.reconnecting.Store(false)

	select {
	case <-c.done:
		return
	case <-time.After(delay):
	}

	c.connMu.Lock()
	if c.conn == broken && c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.connect(ctx); err != nil {
		c.logger.Warn("websocket reconnect failed", zap.Error(err))
		return
	}

	c.resubscribeAll(ctx)
}

func (c *LogsClient) resubscribeAll(ctx context.Context) {
	c.subsMu.RLock()
	subs := make([]*logsSub, 0, len(c.subs))
	for _, sub := range c.subs {
		subs = append(subs, sub)
	}
	c.subsMu.RUnlock()

	for _, sub := range subs {
		serverID, err := c.subscribe(ctx, sub.filter)
		if err != nil {
			c.logger.Warn("resubscribe failed", zap.Strings("mentions", sub.filter.Mentions), zap.Error(err))
			continue
		}

		c.subsMu.Lock()
		if _, live := c.subs[sub.handle]; live {
			delete(c.byServerID, sub.serverID)
			sub.serverID = serverID
			c.byServerID[serverID] = sub
		}
		c.subsMu.Unlock()
	}
}

// wsMessage covers replies and notifications; which fields are set tells them apart.
type wsMessage struct {
	ID     uint64                `json:"id"`
	Method string                `json:"method"`
	Result json.RawMessage       `json:"result"`
	Error  *RPCError             `json:"error"`
	Params *wsNotificationParams `json:"params"`
}

type wsNotificationParams struct {
	Subscription int64                `json:"subscription"`
	Result       wsNotificationResult `json:"result"`
}

type wsNotificationResult struct {
	Context *wsContext  `json:"context"`
	Value   wsLogsValue `json:"value"`
}

type wsContext struct {
	Slot int64 `json:"slot"`
}

type wsLogsValue struct {
	Signature string      `json:"signature"`
	Logs      []string    `json:"logs"`
	Err       interface{} `json:"err"`
}

func (c *LogsClient) handleMessage(message []byte) {
	var msg wsMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.logger.Debug("ignoring malformed websocket message", zap.Error(err))
		return
	}

	if msg.Method == "logsNotification" {
		if msg.Params != nil {
			c.dispatch(msg.Params)
		}
		return
	}

	if msg.ID == 0 {
		return
	}

	c.pendingMu.Lock()
	ch, ok := c.pending[msg.ID]
	c.pendingMu.Unlock()
	if ok {
		select {
		case ch <- wsReply{result: msg.Result, err: msg.Error}:
		default:
		}
	}
}

// dispatch delivers a notification without blocking the read loop. Notifications are
// wake-ups for a poll, so dropping one when the consumer is behind loses nothing.
func (c *LogsClient) dispatch(p *wsNotificationParams) {
	n := LogNotification{
		Signature: p.Result.Value.Signature,
		Logs:      p.Result.Value.Logs,
		Err:       p.Result.Value.Err,
	}
	if p.Result.Context != nil {
		n.Slot = p.Result.Context.Slot
	}

	c.subsMu.RLock()
	defer c.subsMu.RUnlock()

	sub, ok := c.byServerID[p.Subscription]
	if !ok {
		return
	}
	select {
	case sub.ch <- n:
	default:
		c.logger.Debug("subscriber behind, dropping notification", zap.String("signature", n.Signature))
	}
}

func (c *LogsClient) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				_ = c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				// A dead connection surfaces in the read loop, which reconnects.
				_ = c.conn.WriteMessage(websocket.PingMessage, nil)
			}
			c.connMu.Unlock()
		}
	}
}
