package handlers

import (
	"encoding/json"

	"fourad-server/internal/catalog"
	"fourad-server/internal/engine"
)

// Context передает хендлеру встречу и каталог.
// Встреча мутируется только через свои методы (резолверы + события).
type Context struct {
	Encounter *engine.Encounter
	Catalog   *catalog.Catalog
}

// Result - возвращает результат выполнения команды.
// Хендлер НЕ пишет в журнал встречи напрямую, это делает движок.
type Result struct {
	Msg     string // Дополнительный текст лога
	MsgType string // Тип лога (INFO, COMBAT, SPELL)
	Data    any    // Результат резолвера для клиента
}

// HandlerFunc - это контракт для любой команды (ATTACK, CAST, etc).
type HandlerFunc func(ctx Context, payload json.RawMessage) (Result, error)

// EmptyResult - вспомогательная функция для пустого успешного ответа
func EmptyResult() Result {
	return Result{}
}
