package server

import (
	"context"
	"net/http"
	"time"

	"fourad-server/pkg/api"
	"fourad-server/pkg/utils"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Настройки WebSocket
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client - посредник между Websocket и сессией. Одно подключение = одна встреча.
type Client struct {
	Session *Session
	Conn    *websocket.Conn
	Send    chan api.ServerResponse

	stop context.CancelFunc
	done chan struct{} // закрывается, когда writePump вышел
	log  *logrus.Entry
}

func (s *Server) newClient(conn *websocket.Conn) *Client {
	id := utils.GenerateID()
	sess, updates, stop := s.openSession(id)

	c := &Client{
		Session: sess,
		Conn:    conn,
		Send:    make(chan api.ServerResponse, 256),
		stop:    stop,
		done:    make(chan struct{}),
		log:     s.log.WithField("session_id", id),
	}

	// Пересылка ответов из Hub в writePump
	go func() {
		defer close(c.Send)
		for msg := range updates {
			select {
			case c.Send <- msg:
			case <-c.done:
				return
			}
		}
	}()

	c.log.WithField("remote", conn.RemoteAddr().String()).Info("Client connected.")
	return c
}

// readPump читает команды от клиента
func (c *Client) readPump() {
	defer func() {
		// Сессия завершится, сохранит реплей и закроет канал обновлений
		c.stop()
		if err := c.Conn.Close(); err != nil {
			c.log.WithError(err).Debug("failed to close websocket connection")
		}
		c.log.Info("Client disconnected.")
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.WithError(err).Warn("failed to set read deadline")
	}
	c.Conn.SetPongHandler(func(string) error {
		if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.log.WithError(err).Warn("failed to set pong read deadline")
		}
		return nil
	})

	// Первая отрисовка: снимок пустой встречи и ID сессии
	c.Session.ProcessCommand(api.ClientCommand{Action: "STATE"})

	for {
		var cmd api.ClientCommand
		if err := c.Conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.WithError(err).Error("WS error.")
			}
			return
		}
		// Ошибку уже отправили клиенту ответом
		_ = c.Session.ProcessCommand(cmd)
	}
}

// writePump отправляет данные клиенту + Ping
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		close(c.done)
		if err := c.Conn.Close(); err != nil {
			c.log.WithError(err).Debug("failed to close websocket connection in writePump")
		}
	}()

	for {
		select {
		case message, ok := <-c.Send:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.log.WithError(err).Warn("failed to set write deadline")
			}
			if !ok {
				if err := c.Conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					c.log.WithError(err).Debug("write close message failed")
				}
				return
			}
			if err := c.Conn.WriteJSON(message); err != nil {
				c.log.WithError(err).Debug("write json message failed")
				return
			}

		case <-ticker.C:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.log.WithError(err).Warn("failed to set ping write deadline")
			}
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.WithError(err).Debug("ping failed")
				return
			}
		}
	}
}
