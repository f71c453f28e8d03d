package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the client.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the client.
	pongWait = 60 * time.Second

	// Send pings to client with this period. Must be less than pongWait.
	pingPeriod = 15 * time.Second

	// Maximum message size allowed from client.
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// IsWebSocket checks if the request asks for a websocket upgrade.
func IsWebSocket(r *http.Request) bool {
	contains := func(key, val string) bool {
		vv := strings.Split(r.Header.Get(key), ",")
		for _, v := range vv {
			if val == strings.ToLower(strings.TrimSpace(v)) {
				return true
			}
		}
		return false
	}

	return contains("Connection", "upgrade") && contains("Upgrade", "websocket")
}

// ServeSubscriber upgrades the connection and streams room events to the
// viewer until the session ends, the viewer disconnects, or a keepalive fails.
// onClose runs exactly once when the connection winds down.
func ServeSubscriber(w http.ResponseWriter, r *http.Request, sub *Subscriber, onClose func()) {
	var rspHdr http.Header
	// Sec-WebSocket-Protocol carries auth for browser clients; echo it back.
	if prots := r.Header.Values("Sec-WebSocket-Protocol"); len(prots) > 0 {
		rspHdr = http.Header{}
		for _, p := range prots {
			rspHdr.Add("Sec-WebSocket-Protocol", p)
		}
	}

	conn, err := upgrader.Upgrade(w, r, rspHdr)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	v := &viewer{
		ctx:     r.Context(),
		conn:    conn,
		sub:     sub,
		onClose: onClose,
	}
	v.run()
}

type viewer struct {
	ctx     context.Context
	conn    *websocket.Conn
	sub     *Subscriber
	onClose func()
}

func (v *viewer) run() {
	defer func() {
		v.conn.Close()
		if v.onClose != nil {
			v.onClose()
		}
	}()

	stopCtx, cancel := context.WithCancel(context.Background())

	wg := sync.WaitGroup{}
	wg.Add(2)

	go v.eventsToClientLoop(cancel, &wg, stopCtx)
	go v.readLoop(cancel, &wg, stopCtx)
	wg.Wait()
}

// readLoop drains client frames so pongs are processed; viewers are read-only.
func (v *viewer) readLoop(cancel context.CancelFunc, wg *sync.WaitGroup, stopCtx context.Context) {
	defer func() {
		cancel()
		wg.Done()
	}()

	v.conn.SetReadLimit(maxMessageSize)
	v.conn.SetReadDeadline(time.Now().Add(pongWait))
	v.conn.SetPongHandler(func(string) error {
		v.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-stopCtx.Done():
			return
		default:
		}

		if _, _, err := v.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				zap.L().Debug("realtime: viewer read error", zap.Error(err))
			}
			return
		}
	}
}

func (v *viewer) eventsToClientLoop(cancel context.CancelFunc, wg *sync.WaitGroup, stopCtx context.Context) {
	defer func() {
		v.conn.Close()
		cancel()
		wg.Done()
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-stopCtx.Done():
			return
		case <-v.ctx.Done():
			return
		case <-v.sub.Kill:
			v.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case <-ticker.C:
			v.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := v.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case event := <-v.sub.Events:
			if event.RequestID != v.sub.RequestID {
				continue
			}

			v.conn.SetWriteDeadline(time.Now().Add(writeWait))
			w, err := v.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			b, _ := json.Marshal(event)
			if _, err := w.Write(b); err != nil {
				return
			}
			if err := w.Close(); err != nil {
				return
			}
		}
	}
}
