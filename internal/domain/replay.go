package domain

import (
	"encoding/json"

	"fourad-server/pkg/dice"
)

// ReplayAction - это запись одного действия извне (от клиента)
type ReplayAction struct {
	Seq     int             `json:"seq"`
	Action  ActionType      `json:"action"`  // Что сделал
	Payload json.RawMessage `json:"payload"` // С какими параметрами
}

// ReplaySession - полная запись встречи: зерно, команды и журнал бросков для сверки.
type ReplaySession struct {
	SessionID string            `json:"sessionId"`
	Seed      uint32            `json:"seed"`
	Timestamp int64             `json:"timestamp"`
	Actions   []ReplayAction    `json:"actions"`
	Rolls     []dice.RollRecord `json:"rolls"`
}
