package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Время, разрешенное для записи сообщения клиенту.
	writeWait = 10 * time.Second
	// Время, разрешенное для чтения следующего pong сообщения от клиента.
	pongWait = 60 * time.Second
	// Отправлять пинги клиенту с этим периодом. Должно быть меньше pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Максимальный размер сообщения, разрешенный от клиента.
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Виджеты сайта подключаются с разных страниц, Origin проверяет CORS слой.
		return true
	},
}

// ServeWS обновляет HTTP запрос до WebSocket и подключает клиента к хабу.
// Аутентификация не требуется: канал доставляет только те же данные,
// что и публичные GET эндпоинты.
func (h *Handler) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrader уже записал ошибку в ResponseWriter
		h.logger.Error("Не удалось обновить соединение до WebSocket", zap.Error(err))
		return
	}

	client := &wsClient{
		ID:   uuid.NewString(),
		Conn: conn,
		send: make(chan []byte, 256),
	}
	h.hub.register <- client

	logger := h.logger.With(zap.String("client_id", client.ID))
	logger.Info("WebSocket соединение установлено")

	go client.writePump(h.hub, logger)
	go client.readPump(h.hub, logger)
}

// readPump вычитывает входящие сообщения. Клиенты ничего не присылают,
// но чтение нужно для обработки pong и закрытия соединения.
func (c *wsClient) readPump(hub *Hub, logger *zap.Logger) {
	defer func() {
		hub.unregister <- c.ID
		_ = c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("Ошибка чтения WebSocket", zap.Error(err))
			}
			break
		}
		logger.Debug("Неожиданное сообщение от клиента (игнорируем)", zap.ByteString("message", message))
	}
}

// writePump переливает сообщения из канала send в соединение и шлет пинги.
func (c *wsClient) writePump(hub *Hub, logger *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Error("Не удалось отправить сообщение", zap.Error(err))
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.Debug("Пинг не прошел, закрываем соединение", zap.Error(err))
				return
			}
		}
	}
}
