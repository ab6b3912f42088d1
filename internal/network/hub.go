package network

import (
	"sort"
	"sync"

	"fourad-server/pkg/api"
	"fourad-server/pkg/logger"
)

// Broadcaster занимается только доставкой ответов сессиям
type Broadcaster struct {
	mu sync.RWMutex
	// Мапа: SessionID -> Личный канал
	subscribers map[string]chan api.ServerResponse
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[string]chan api.ServerResponse),
	}
}

// Register создает личный канал для сессии
func (b *Broadcaster) Register(sessionID string) chan api.ServerResponse {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Если канал был, закрываем
	if old, ok := b.subscribers[sessionID]; ok {
		close(old)
	}

	ch := make(chan api.ServerResponse, 100)
	b.subscribers[sessionID] = ch
	return ch
}

// Unregister удаляет подписчика
func (b *Broadcaster) Unregister(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subscribers[sessionID]; ok {
		close(ch)
		delete(b.subscribers, sessionID)
	}
}

// SendTo отправляет ответ конкретной сессии. Полный канал - ответ теряется.
func (b *Broadcaster) SendTo(sessionID string, msg api.ServerResponse) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ch, ok := b.subscribers[sessionID]
	if !ok {
		return false
	}
	select {
	case ch <- msg:
		return true
	default:
		logger.Component("hub").WithField("session_id", sessionID).Warn("Channel full, response dropped.")
		return false
	}
}

// Broadcast отправляет всем (серверные объявления, например shutdown)
func (b *Broadcaster) Broadcast(msg api.ServerResponse) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- msg:
		default:
		}
	}
}

// HasSubscriber проверяет, подключена ли сессия
func (b *Broadcaster) HasSubscriber(sessionID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.subscribers[sessionID]
	return ok
}

// SubscriberCount возвращает количество активных подписчиков.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// IDs - отсортированный список подключенных сессий.
func (b *Broadcaster) IDs() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.subscribers))
	for id := range b.subscribers {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
