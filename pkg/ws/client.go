package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"TaskNest/pkg/zlog"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 10 * time.Second

var ErrClientClosed = errors.New("ws client closed")

// Client gorilla websocket 连接的 Channel 实现，写操作统一由 WritePump 串行完成
type Client struct {
	conn       *websocket.Conn
	send       chan []byte
	done       chan struct{}
	pingPeriod time.Duration

	closeOnce sync.Once
}

func NewClient(conn *websocket.Conn, sendBuffer int, pingPeriod time.Duration) *Client {
	if sendBuffer <= 0 {
		sendBuffer = 64
	}
	return &Client{
		conn:       conn,
		send:       make(chan []byte, sendBuffer),
		done:       make(chan struct{}),
		pingPeriod: pingPeriod,
	}
}

// Send 入队待写消息；缓冲区满时等待至 ctx 超时
func (c *Client) Send(ctx context.Context, payload []byte) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}
	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return ErrClientClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

// Done 连接关闭后可读
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) WritePump() {
	if c.conn == nil {
		return
	}
	var tick <-chan time.Time
	if c.pingPeriod > 0 {
		ticker := time.NewTicker(c.pingPeriod)
		defer ticker.Stop()
		tick = ticker.C
	}
	defer c.Close()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				zlog.Warn("ws write failed", zap.Error(err))
				return
			}
		case <-tick:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
