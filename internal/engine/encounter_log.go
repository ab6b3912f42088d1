package engine

import (
	"fmt"
	"time"

	"fourad-server/pkg/api"

	"github.com/sirupsen/logrus"
)

// Типы записей журнала игрока.
const (
	LogInfo   = "INFO"
	LogCombat = "COMBAT"
	LogSpell  = "SPELL"
	LogError  = "ERROR"
)

// AddLog добавляет лог в историю встречи
func (e *Encounter) AddLog(text, logType string) {
	if text == "" {
		return
	}
	e.Logs = append(e.Logs, api.LogEntry{
		ID:        fmt.Sprintf("%s_%d", e.ID, len(e.Logs)),
		Text:      text,
		Type:      logType,
		Timestamp: time.Now().UnixMilli(),
	})
	e.log.WithFields(logrus.Fields{
		"log_type": logType,
		"round":    e.Round,
	}).Debug(text)
}

// TakeLogs возвращает записи, добавленные с прошлого вызова.
func (e *Encounter) TakeLogs() []api.LogEntry {
	if e.logCursor >= len(e.Logs) {
		return nil
	}
	out := e.Logs[e.logCursor:]
	e.logCursor = len(e.Logs)
	return out
}
