package relay

import (
	"context"
	"errors"
	"time"

	"food-delivery/internal/util"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	replyBuffer    = 16
)

// Conn is one WebSocket session: topic messages and handler replies are
// written by a single writer, inbound frames are dispatched to the handler.
type Conn struct {
	ws      *websocket.Conn
	sub     *Subscription
	handler InboundHandler
	replies chan []byte
	done    chan struct{}
	logger  *zap.Logger
}

// NewConn binds a socket to a subscription and handler. sub may be nil for
// sockets that only exchange direct replies.
func NewConn(ws *websocket.Conn, sub *Subscription, handler InboundHandler) *Conn {
	return &Conn{
		ws:      ws,
		sub:     sub,
		handler: handler,
		replies: make(chan []byte, replyBuffer),
		done:    make(chan struct{}),
		logger:  util.GetLogger(),
	}
}

// Serve runs the session until the peer disconnects or ctx is done.
// greeting, if not nil, is the first frame sent. The subscription is closed
// on return.
func (c *Conn) Serve(ctx context.Context, greeting Outbound) {
	defer func() {
		if c.sub != nil {
			c.sub.Close()
		}
	}()

	if greeting != nil {
		c.reply(greeting)
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writePump(ctx)
	}()

	c.readPump(ctx)
	close(c.done)
	<-writerDone
}

func (c *Conn) reply(m Outbound) {
	data, err := Encode(m)
	if err != nil {
		c.logger.Error("Failed to encode reply", zap.String("type", m.MessageType()), zap.Error(err))
		return
	}
	select {
	case c.replies <- data:
	case <-c.done:
	default:
		util.RelayMessagesDropped.WithLabelValues("reply_buffer_full").Inc()
	}
}

func (c *Conn) readPump(ctx context.Context) {
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("WebSocket read failed", zap.Error(err))
			}
			return
		}
		if ctx.Err() != nil {
			return
		}

		msg, err := DecodeInbound(data)
		if err != nil {
			c.reply(ErrorMessage{Message: err.Error()})
			continue
		}

		out, err := Dispatch(ctx, c.handler, msg)
		if err != nil {
			if !errors.Is(err, ErrUnsupported) {
				c.logger.Warn("Inbound message failed", zap.Error(err))
			}
			c.reply(ErrorMessage{Message: err.Error()})
			continue
		}
		if out != nil {
			c.reply(out)
		}
	}
}

func (c *Conn) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	var topicMessages <-chan []byte
	if c.sub != nil {
		topicMessages = c.sub.Messages()
	}

	for {
		select {
		case data, ok := <-topicMessages:
			if !ok {
				c.closeWith(websocket.CloseNormalClosure)
				return
			}
			if !c.write(data) {
				return
			}
		case data := <-c.replies:
			if !c.write(data) {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			c.closeWith(websocket.CloseGoingAway)
			return
		case <-c.done:
			return
		}
	}
}

func (c *Conn) write(data []byte) bool {
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		c.logger.Debug("WebSocket write failed", zap.Error(err))
		return false
	}
	return true
}

func (c *Conn) closeWith(code int) {
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, ""), time.Now().Add(writeWait))
}
