package kis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/seojun-lab/kistrader/internal/domain"
)

const (
	// wsWriteWait is the time allowed to write a message to the peer.
	wsWriteWait = 10 * time.Second

	// wsReadWait bounds the gap between inbound frames. The exchange pings
	// periodically even off-hours, so a silent connection is a dead one.
	wsReadWait = 90 * time.Second
)

// TickHandler is called for every realtime execution tick.
type TickHandler func(domain.Quote)

// wsSubscribeRequest is the registration envelope for the realtime feed.
type wsSubscribeRequest struct {
	Header wsRequestHeader `json:"header"`
	Body   wsRequestBody   `json:"body"`
}

type wsRequestHeader struct {
	ApprovalKey string `json:"approval_key"`
	CustType    string `json:"custtype"`
	TrType      string `json:"tr_type"`
	ContentType string `json:"content-type"`
}

type wsRequestBody struct {
	Input wsRequestInput `json:"input"`
}

type wsRequestInput struct {
	TrID  string `json:"tr_id"`
	TrKey string `json:"tr_key"`
}

// wsControlMessage is the JSON envelope of non-data frames (subscription
// acks and PINGPONG keepalives).
type wsControlMessage struct {
	Header struct {
		TrID string `json:"tr_id"`
	} `json:"header"`
	Body struct {
		RtCd string `json:"rt_cd"`
		Msg  string `json:"msg1"`
	} `json:"body"`
}

// WSClient is a websocket client for the KIS realtime execution-price feed.
// It registers symbols with the approval key, parses the pipe-delimited tick
// frames, and dispatches quotes to the registered handler. Reconnection is
// the caller's concern: any read or protocol fault tears the connection down
// and surfaces from Run.
type WSClient struct {
	endpoint    string
	approvalKey string
	onTick      TickHandler

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

// NewWSClient creates a realtime feed client for the given endpoint and
// approval key.
func NewWSClient(endpoint, approvalKey string, onTick TickHandler) *WSClient {
	return &WSClient{
		endpoint:    endpoint,
		approvalKey: approvalKey,
		onTick:      onTick,
	}
}

// Connect establishes the websocket connection.
func (w *WSClient) Connect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("kis/ws: %w", domain.ErrWSDisconnect)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	conn, _, err := dialer.DialContext(ctx, w.endpoint, nil)
	if err != nil {
		return fmt.Errorf("kis/ws: connect: %w", err)
	}
	w.conn = conn
	return nil
}

// Subscribe registers the execution-price stream for symbol.
func (w *WSClient) Subscribe(symbol string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn == nil {
		return fmt.Errorf("kis/ws: not connected")
	}

	req := wsSubscribeRequest{
		Header: wsRequestHeader{
			ApprovalKey: w.approvalKey,
			CustType:    "P",
			TrType:      "1",
			ContentType: "utf-8",
		},
		Body: wsRequestBody{
			Input: wsRequestInput{TrID: trRealtimePrice, TrKey: symbol},
		},
	}

	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("kis/ws: marshal subscribe: %w", err)
	}

	w.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := w.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("kis/ws: subscribe %s: %w", symbol, err)
	}
	return nil
}

// Run reads frames until the connection fails or ctx is cancelled. It always
// returns a non-nil error describing why the stream ended.
func (w *WSClient) Run(ctx context.Context) error {
	w.mu.Lock()
	conn := w.conn
	w.mu.Unlock()

	if conn == nil {
		return fmt.Errorf("kis/ws: not connected")
	}

	// The watcher is tied to this connection, not the caller's context: the
	// feed creates a fresh client per reconnect, so a watcher bound to the
	// app context would pile up one goroutine per attempt.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		w.Close()
	}()

	for {
		conn.SetReadDeadline(time.Now().Add(wsReadWait))
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("kis/ws: read: %w", err)
		}
		if err := w.handleFrame(message); err != nil {
			return err
		}
	}
}

// Close shuts down the connection.
func (w *WSClient) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if w.conn != nil {
		_ = w.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		return w.conn.Close()
	}
	return nil
}

// handleFrame routes one inbound frame. Data frames are prefixed '0' (plain)
// or '1' (encrypted); everything else is a JSON control message.
func (w *WSClient) handleFrame(raw []byte) error {
	if len(raw) == 0 {
		return nil
	}

	switch raw[0] {
	case '0':
		return w.handleTickFrame(raw)
	case '1':
		// Encrypted streams carry order/execution notices we never
		// registered for; drop them.
		return nil
	}

	var ctrl wsControlMessage
	if err := json.Unmarshal(raw, &ctrl); err != nil {
		return nil
	}
	if ctrl.Header.TrID == "PINGPONG" {
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.conn == nil {
			return nil
		}
		w.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return w.conn.WriteMessage(websocket.TextMessage, raw)
	}
	if ctrl.Body.RtCd != "" && ctrl.Body.RtCd != rtSuccess {
		return fmt.Errorf("kis/ws: subscription rejected: %s", ctrl.Body.Msg)
	}
	return nil
}

// handleTickFrame parses a pipe-delimited data frame:
//
//	0|H0STCNT0|001|<payload>
//
// where the payload is caret-separated with the symbol, execution time, and
// price in the first three fields.
func (w *WSClient) handleTickFrame(raw []byte) error {
	parts := strings.Split(string(raw), "|")
	if len(parts) < 4 || parts[1] != trRealtimePrice {
		return nil
	}

	fields := strings.Split(parts[3], "^")
	if len(fields) < 3 {
		return nil
	}

	price, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return nil
	}

	if w.onTick != nil {
		w.onTick(domain.Quote{
			Symbol: fields[0],
			Price:  price,
			Time:   time.Now(),
		})
	}
	return nil
}
