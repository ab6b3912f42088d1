package domain

import (
	"encoding/json"
	"strings"
)

// EventType - Внутренний числовой идентификатор события
type EventType uint8

// Event types constants
const (
	EventUnknown EventType = iota
	EventHeroHPChanged
	EventHeroStatusSet
	EventHeroStatusCleared
	EventChargeSpent
	EventSpellCast
	EventBuffApplied
	EventBuffTicked
	EventBuffExpired
	EventMonsterHPChanged
	EventMonsterCountChanged
	EventMonsterDefeated
	EventMonsterStatusSet
	EventMonsterStatusTicked
	EventMonsterStatusCleared
	EventMoraleChecked
	EventMoraleBroke
	EventLevelReduced
	EventMonsterSummoned
	EventPartyEscaped
	EventPartyWithdrew
	EventWanderingAmbush
)

// Маппинг для логов Domain -> String
var eventTypeToString = map[EventType]string{
	EventHeroHPChanged:        "HP_CHANGED",
	EventHeroStatusSet:        "STATUS_SET",
	EventHeroStatusCleared:    "STATUS_CLEARED",
	EventChargeSpent:          "CHARGE_SPENT",
	EventSpellCast:            "SPELL_CAST",
	EventBuffApplied:          "BUFF_APPLIED",
	EventBuffTicked:           "BUFF_TICKED",
	EventBuffExpired:          "BUFF_EXPIRED",
	EventMonsterHPChanged:     "MONSTER_HP_CHANGED",
	EventMonsterCountChanged:  "MONSTER_COUNT_CHANGED",
	EventMonsterDefeated:      "MONSTER_DEFEATED",
	EventMonsterStatusSet:     "MONSTER_STATUS_SET",
	EventMonsterStatusTicked:  "MONSTER_STATUS_TICKED",
	EventMonsterStatusCleared: "MONSTER_STATUS_CLEARED",
	EventMoraleChecked:        "MORALE_CHECKED",
	EventMoraleBroke:          "MORALE_BROKE",
	EventLevelReduced:         "LEVEL_REDUCED",
	EventMonsterSummoned:      "MONSTER_SUMMONED",
	EventPartyEscaped:         "PARTY_ESCAPED",
	EventPartyWithdrew:        "PARTY_WITHDREW",
	EventWanderingAmbush:      "WANDERING_AMBUSH",
}

// Маппинг для конвертации JSON -> Domain
var eventStringToType = func() map[string]EventType {
	m := make(map[string]EventType, len(eventTypeToString))
	for k, v := range eventTypeToString {
		m[v] = k
	}
	return m
}()

// ParseEvent конвертирует строку из JSON в EventType
func ParseEvent(s string) EventType {
	if val, ok := eventStringToType[strings.ToUpper(s)]; ok {
		return val
	}
	return EventUnknown
}

// String реализует интерфейс Stringer (для fmt.Printf)
func (e EventType) String() string {
	if val, ok := eventTypeToString[e]; ok {
		return val
	}
	return "UNKNOWN"
}

// Event - закрытое объединение результатов резолверов.
// Резолверы только возвращают события; состояние меняет вызывающий (ApplyToHero/ApplyToMonster).
type Event interface {
	Type() EventType
	isEvent()
}

// HeroFlag - флаг состояния героя.
type HeroFlag string

const (
	FlagBlessed   HeroFlag = "blessed"
	FlagRaging    HeroFlag = "raging"
	FlagHidden    HeroFlag = "hidden"
	FlagWounded   HeroFlag = "wounded"
	FlagDead      HeroFlag = "dead"
	FlagProtected HeroFlag = "protected"
)

// MonsterFlag - флаг состояния врага.
type MonsterFlag string

const (
	FlagAsleep    MonsterFlag = "asleep"
	FlagBound     MonsterFlag = "bound"
	FlagEntangled MonsterFlag = "entangled"
	FlagSubdued   MonsterFlag = "subdued"
	FlagFled      MonsterFlag = "fled"
	FlagInvisible MonsterFlag = "invisible"
	FlagIllusion  MonsterFlag = "illusion"
)

// Ability - расходуемая способность.
type Ability string

const (
	AbilityBlessing Ability = "blessing"
	AbilityLuck     Ability = "luck"
	AbilityRage     Ability = "rage"
)

// --- События героев ---

type HeroHPChanged struct {
	HeroID string `json:"heroId"`
	From   int    `json:"from"`
	To     int    `json:"to"`
}

type HeroStatusSet struct {
	HeroID string   `json:"heroId"`
	Flag   HeroFlag `json:"flag"`
}

type HeroStatusCleared struct {
	HeroID string   `json:"heroId"`
	Flag   HeroFlag `json:"flag"`
}

type ChargeSpent struct {
	HeroID  string  `json:"heroId"`
	Ability Ability `json:"ability"`
}

type SpellCast struct {
	HeroID string `json:"heroId"`
	Spell  string `json:"spell"`
}

type BuffApplied struct {
	HeroID string `json:"heroId"`
	Buff   Buff   `json:"buff"`
}

type BuffTicked struct {
	HeroID    string `json:"heroId"`
	Spell     string `json:"spell"`
	TurnsLeft int    `json:"turnsLeft"`
}

type BuffExpired struct {
	HeroID string `json:"heroId"`
	Spell  string `json:"spell"`
}

// --- События врагов ---

type MonsterHPChanged struct {
	MonsterID string `json:"monsterId"`
	From      int    `json:"from"`
	To        int    `json:"to"`
}

type MonsterCountChanged struct {
	MonsterID string `json:"monsterId"`
	From      int    `json:"from"`
	To        int    `json:"to"`
}

type MonsterDefeated struct {
	MonsterID string `json:"monsterId"`
}

type MonsterStatusSet struct {
	MonsterID string      `json:"monsterId"`
	Flag      MonsterFlag `json:"flag"`
	Turns     int         `json:"turns,omitempty"`
}

type MonsterStatusTicked struct {
	MonsterID string      `json:"monsterId"`
	Flag      MonsterFlag `json:"flag"`
	TurnsLeft int         `json:"turnsLeft"`
}

type MonsterStatusCleared struct {
	MonsterID string      `json:"monsterId"`
	Flag      MonsterFlag `json:"flag"`
}

type MoraleChecked struct {
	MonsterID string `json:"monsterId"`
	Roll      int    `json:"roll"`
	Total     int    `json:"total"`
}

type MoraleBroke struct {
	MonsterID string `json:"monsterId"`
	Fled      int    `json:"fled"`
}

type LevelReduced struct {
	MonsterID string `json:"monsterId"`
	From      int    `json:"from"`
	To        int    `json:"to"`
}

type MonsterSummoned struct {
	Monster Monster `json:"monster"`
}

// --- События партии ---

type PartyEscaped struct{}

type PartyWithdrew struct{}

type WanderingAmbush struct {
	Roll int `json:"roll"`
}

func (HeroHPChanged) Type() EventType        { return EventHeroHPChanged }
func (HeroStatusSet) Type() EventType        { return EventHeroStatusSet }
func (HeroStatusCleared) Type() EventType    { return EventHeroStatusCleared }
func (ChargeSpent) Type() EventType          { return EventChargeSpent }
func (SpellCast) Type() EventType            { return EventSpellCast }
func (BuffApplied) Type() EventType          { return EventBuffApplied }
func (BuffTicked) Type() EventType           { return EventBuffTicked }
func (BuffExpired) Type() EventType          { return EventBuffExpired }
func (MonsterHPChanged) Type() EventType     { return EventMonsterHPChanged }
func (MonsterCountChanged) Type() EventType  { return EventMonsterCountChanged }
func (MonsterDefeated) Type() EventType      { return EventMonsterDefeated }
func (MonsterStatusSet) Type() EventType     { return EventMonsterStatusSet }
func (MonsterStatusTicked) Type() EventType  { return EventMonsterStatusTicked }
func (MonsterStatusCleared) Type() EventType { return EventMonsterStatusCleared }
func (MoraleChecked) Type() EventType        { return EventMoraleChecked }
func (MoraleBroke) Type() EventType          { return EventMoraleBroke }
func (LevelReduced) Type() EventType         { return EventLevelReduced }
func (MonsterSummoned) Type() EventType      { return EventMonsterSummoned }
func (PartyEscaped) Type() EventType         { return EventPartyEscaped }
func (PartyWithdrew) Type() EventType        { return EventPartyWithdrew }
func (WanderingAmbush) Type() EventType      { return EventWanderingAmbush }

func (HeroHPChanged) isEvent()        {}
func (HeroStatusSet) isEvent()        {}
func (HeroStatusCleared) isEvent()    {}
func (ChargeSpent) isEvent()          {}
func (SpellCast) isEvent()            {}
func (BuffApplied) isEvent()          {}
func (BuffTicked) isEvent()           {}
func (BuffExpired) isEvent()          {}
func (MonsterHPChanged) isEvent()     {}
func (MonsterCountChanged) isEvent()  {}
func (MonsterDefeated) isEvent()      {}
func (MonsterStatusSet) isEvent()     {}
func (MonsterStatusTicked) isEvent()  {}
func (MonsterStatusCleared) isEvent() {}
func (MoraleChecked) isEvent()        {}
func (MoraleBroke) isEvent()          {}
func (LevelReduced) isEvent()         {}
func (MonsterSummoned) isEvent()      {}
func (PartyEscaped) isEvent()         {}
func (PartyWithdrew) isEvent()        {}
func (WanderingAmbush) isEvent()      {}

// EventEnvelope - форма события на проводе: {"type": "...", "data": {...}}.
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// WrapEvents упаковывает события для клиента и реплея.
func WrapEvents(events []Event) ([]EventEnvelope, error) {
	out := make([]EventEnvelope, 0, len(events))
	for _, ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			return nil, err
		}
		out = append(out, EventEnvelope{Type: ev.Type().String(), Data: data})
	}
	return out, nil
}
