package domain

import "strings"

// ActionType - Внутренний числовой идентификатор действия
type ActionType uint8

const (
	ActionUnknown ActionType = iota
	ActionStart
	ActionAttack
	ActionMonsterTurn
	ActionCast
	ActionFlee
	ActionWithdraw
	ActionNewRound
	ActionTile
	ActionState

	// Отладочные команды, доступны только с включенным debug
	ActionAdminHeal
	ActionAdminKill
	ActionAdminSpawn
)

// Маппинг для конвертации JSON -> Domain
var actionStringToCmd = map[string]ActionType{
	"START":        ActionStart,
	"ATTACK":       ActionAttack,
	"MONSTER_TURN": ActionMonsterTurn,
	"CAST":         ActionCast,
	"FLEE":         ActionFlee,
	"WITHDRAW":     ActionWithdraw,
	"NEW_ROUND":    ActionNewRound,
	"TILE":         ActionTile,
	"STATE":        ActionState,
	"ADMIN_HEAL":   ActionAdminHeal,
	"ADMIN_KILL":   ActionAdminKill,
	"ADMIN_SPAWN":  ActionAdminSpawn,
}

// Маппинг для логов Domain -> String
var actionCmdToString = func() map[ActionType]string {
	m := make(map[ActionType]string, len(actionStringToCmd))
	for k, v := range actionStringToCmd {
		m[v] = k
	}
	return m
}()

// ParseAction конвертирует строку из JSON в ActionType
func ParseAction(s string) ActionType {
	// Делаем нечувствительным к регистру для надежности
	upper := strings.ToUpper(s)
	if val, ok := actionStringToCmd[upper]; ok {
		return val
	}
	return ActionUnknown
}

// String реализует интерфейс Stringer (для fmt.Printf)
func (a ActionType) String() string {
	if val, ok := actionCmdToString[a]; ok {
		return val
	}
	return "UNKNOWN"
}

// Mutates - действие меняет состояние встречи и попадает в реплей.
func (a ActionType) Mutates() bool {
	return a != ActionState && a != ActionUnknown
}

// IsAdmin - отладочная команда.
func (a ActionType) IsAdmin() bool {
	return a >= ActionAdminHeal && a <= ActionAdminSpawn
}
