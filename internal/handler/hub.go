package handler

import (
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// wsClient представляет одно WebSocket соединение зрителя.
// Зрители анонимны, поэтому ключом служит случайный идентификатор.
type wsClient struct {
	ID   string
	Conn *websocket.Conn
	send chan []byte // Канал для отправки сообщений этому клиенту
}

// Hub управляет активными WebSocket соединениями и рассылает им события
// хранилища. Каждое событие уходит всем подключенным клиентам целиком —
// клиент сам решает, какие коллекции его интересуют.
type Hub struct {
	clients    map[string]*wsClient
	register   chan *wsClient
	unregister chan string
	broadcast  chan []byte
	stop       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
	logger     *zap.Logger
}

// NewHub создает и запускает новый менеджер соединений.
func NewHub(logger *zap.Logger) *Hub {
	h := &Hub{
		clients:    make(map[string]*wsClient),
		register:   make(chan *wsClient),
		unregister: make(chan string),
		broadcast:  make(chan []byte, 64),
		stop:       make(chan struct{}),
		logger:     logger.Named("ws_hub"),
	}
	go h.run()
	return h
}

// run крутит основной цикл: регистрация, дерегистрация, рассылка.
func (h *Hub) run() {
	h.logger.Info("WebSocket hub запущен")
	for {
		select {
		case <-h.stop:
			h.mu.Lock()
			for id, client := range h.clients {
				close(client.send)
				delete(h.clients, id)
			}
			h.mu.Unlock()
			h.logger.Info("WebSocket hub остановлен")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			h.logger.Debug("Клиент подключен", zap.String("client_id", client.ID))

		case id := <-h.unregister:
			h.mu.Lock()
			if client, ok := h.clients[id]; ok {
				delete(h.clients, id)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Debug("Клиент отключен", zap.String("client_id", id))

		case message := <-h.broadcast:
			h.mu.RLock()
			for _, client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Очередь клиента переполнена: пропускаем сообщение,
					// следующий снапшот все равно принесет полный список.
					h.logger.Warn("Очередь отправки переполнена, сообщение пропущено",
						zap.String("client_id", client.ID))
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Broadcast ставит сообщение в очередь рассылки всем клиентам.
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("Очередь рассылки переполнена, событие пропущено")
	}
}

// Stop останавливает цикл рассылки и закрывает каналы всех клиентов.
// Повторные вызовы безопасны.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stop)
	})
}

// ClientCount возвращает число активных соединений.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
