package api

import (
	"encoding/json"
)

// --- СЕРВЕР -> КЛИЕНТ ---

// Типы ответов сервера.
const (
	ResponseUpdate = "UPDATE"
	ResponseError  = "ERROR"
)

// ServerResponse это корневой объект, который сервер отправляет клиенту.
// Отправляется в ответ на каждую команду.
type ServerResponse struct {
	// Type тип сообщения: "UPDATE" или "ERROR".
	Type string `json:"type"`

	// Seq порядковый номер примененной команды в этой встрече.
	Seq int `json:"seq"`

	// SessionID сессия, в которой выполнена команда (она же имя файла реплея).
	SessionID string `json:"sessionId,omitempty"`

	// Action команда, на которую это ответ.
	Action string `json:"action,omitempty"`

	// Result структура результата резолвера (атака, заклинание, бегство...).
	Result any `json:"result,omitempty"`

	// Events события, которые движок применил к состоянию.
	Events []EventView `json:"events,omitempty"`

	// State снимок встречи после применения событий.
	State *EncounterView `json:"state,omitempty"`

	// Logs новые сообщения для журнала игрока.
	Logs []LogEntry `json:"logs,omitempty"`

	// Error текст ошибки для Type == "ERROR".
	Error string `json:"error,omitempty"`
}

// EventView - событие на проводе.
type EventView struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// EncounterView это DTO состояния встречи.
type EncounterView struct {
	Round    int           `json:"round"`
	Location LocationView  `json:"location"`
	Ambush   bool          `json:"ambush,omitempty"`
	HasDoor  bool          `json:"hasDoor,omitempty"`
	Heroes   []HeroView    `json:"heroes"`
	Monsters []MonsterView `json:"monsters"`

	// Outcome пустой, пока встреча идет: "victory", "wipe", "escaped".
	Outcome string `json:"outcome,omitempty"`
}

// LocationView - место боя.
type LocationView struct {
	Type        string `json:"type"`
	Width       string `json:"width"`
	Environment string `json:"environment,omitempty"`
}

// HeroView это DTO героя.
type HeroView struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Class     string     `json:"class"`
	Level     int        `json:"level"`
	HP        int        `json:"hp"`
	MaxHP     int        `json:"maxHp"`
	Status    []string   `json:"status,omitempty"`
	Buffs     []BuffView `json:"buffs,omitempty"`
	Luck      int        `json:"luck,omitempty"`
	Blessings int        `json:"blessings,omitempty"`
}

// BuffView - активный бафф.
type BuffView struct {
	Spell     string `json:"spell"`
	Stat      string `json:"stat"`
	Bonus     int    `json:"bonus"`
	TurnsLeft int    `json:"turnsLeft"`
}

// MonsterView это DTO врага.
type MonsterView struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Kind         string   `json:"kind"`
	Level        int      `json:"level"`
	HP           int      `json:"hp,omitempty"`
	MaxHP        int      `json:"maxHp,omitempty"`
	Count        int      `json:"count,omitempty"`
	InitialCount int      `json:"initialCount,omitempty"`
	Status       []string `json:"status,omitempty"`
	Boss         bool     `json:"boss,omitempty"`
	Ally         bool     `json:"ally,omitempty"`
	Defeated     bool     `json:"defeated,omitempty"`
}

// LogEntry представляет одну запись в игровом логе (чате).
type LogEntry struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Type      string `json:"type"`      // INFO, COMBAT, SPELL, ERROR
	Timestamp int64  `json:"timestamp"` // Unix milliseconds
}

// --- КЛИЕНТ -> СЕРВЕР ---

// ClientCommand это корневой объект для всех сообщений от клиента к серверу.
type ClientCommand struct {
	// Action название действия, которое нужно выполнить.
	Action string `json:"action"`

	// Payload JSON-объект с данными для действия. Его структура зависит от Action.
	Payload json.RawMessage `json:"payload,omitempty"`
}

// --- Payloads ---

// MonsterSpec - враг из каталога. Count задает размер группы мелких врагов (0 = бросок по шаблону).
type MonsterSpec struct {
	Template string `json:"template"`
	Count    int    `json:"count,omitempty"`
}

// StartPayload начинает встречу (START).
type StartPayload struct {
	// Party ключи шаблонов героев. Пусто - партия по умолчанию.
	Party    []string      `json:"party,omitempty"`
	Monsters []MonsterSpec `json:"monsters,omitempty"`

	Location    string `json:"location,omitempty"` // room | corridor
	Width       string `json:"width,omitempty"`    // normal | narrow
	Environment string `json:"environment,omitempty"`
	Ambush      bool   `json:"ambush,omitempty"`
	HasDoor     bool   `json:"hasDoor,omitempty"`
}

// AttackPayload используется для атаки героя (ATTACK).
type AttackPayload struct {
	HeroID    string `json:"heroId"`
	TargetID  string `json:"targetId"`
	Ranged    bool   `json:"ranged,omitempty"`
	Subdual   bool   `json:"subdual,omitempty"`
	DualWield bool   `json:"dualWield,omitempty"`
	Rage      bool   `json:"rage,omitempty"`
}

// MonsterTurnPayload - ход врагов (MONSTER_TURN).
type MonsterTurnPayload struct {
	// FrontEngaged бой ведется с передней парой в коридоре.
	FrontEngaged bool `json:"frontEngaged,omitempty"`
}

// CastPayload используется для заклинаний (CAST).
type CastPayload struct {
	CasterID     string   `json:"casterId"`
	Spell        string   `json:"spell"`
	TargetIDs    []string `json:"targetIds,omitempty"`
	AllyIDs      []string `json:"allyIds,omitempty"`
	CastingBonus int      `json:"castingBonus,omitempty"`
}
