package engine

import (
	"errors"
	"fmt"

	"fourad-server/internal/domain"
	"fourad-server/internal/systems"
	"fourad-server/pkg/api"
	"fourad-server/pkg/dice"
	"fourad-server/pkg/logger"

	"github.com/sirupsen/logrus"
)

var (
	ErrUnknownHero     = errors.New("unknown hero")
	ErrUnknownMonster  = errors.New("unknown monster")
	ErrNotStarted      = errors.New("encounter not started")
	ErrEncounterOver   = errors.New("encounter is over")
	ErrNoHeroes        = errors.New("encounter needs at least one hero")
	ErrHeroDown        = errors.New("hero cannot act")
	ErrNotHostile      = errors.New("monster is not a valid target")
	ErrRageUnavailable = errors.New("rage unavailable")
	ErrNoDoor          = errors.New("no door to withdraw through")
	ErrFoesRemain      = errors.New("foes remain on this tile")
)

// Outcome - итог встречи.
type Outcome string

const (
	OutcomeNone    Outcome = ""
	OutcomeVictory Outcome = "victory"
	OutcomeWipe    Outcome = "wipe"
	OutcomeEscaped Outcome = "escaped"
)

// Setup - начальные условия встречи.
type Setup struct {
	Heroes      []*domain.Hero
	Monsters    []*domain.Monster
	Location    domain.CombatLocation
	Marching    *domain.MarchingOrder // nil = герои по порядку
	Environment string
	Ambush      bool
	HasDoor     bool
}

// Encounter - состояние одной встречи и ее генератор.
// Не потокобезопасна: одной встречей владеет одна горутина (сессия или испытание симулятора).
type Encounter struct {
	ID   string
	Seed uint32

	Heroes      []*domain.Hero
	Monsters    []*domain.Monster
	Location    domain.CombatLocation
	Marching    domain.MarchingOrder
	Environment string
	Ambush      bool
	HasDoor     bool

	Round   int
	Outcome Outcome
	Started bool

	// Таблицы данных. Только чтение.
	Traits systems.TraitTable
	Spells systems.Spellbook

	ClassPriority []domain.ClassKey
	AutoRerolls   bool

	Rolls *dice.MemoryLog
	Logs  []api.LogEntry

	rng       *dice.RNG
	roller    *dice.Roller
	attacked  map[string]bool // "герой:враг" - удар уже был
	pending   []domain.Event
	logCursor int
	log       *logrus.Entry
}

// NewEncounter создает пустую встречу с собственным генератором.
func NewEncounter(id string, cfg Config) *Encounter {
	rng := dice.NewRNG(cfg.Seed)
	rolls := &dice.MemoryLog{}
	return &Encounter{
		ID:            id,
		Seed:          cfg.Seed,
		ClassPriority: cfg.Priority(),
		AutoRerolls:   cfg.AutoRerolls,
		Rolls:         rolls,
		rng:           rng,
		roller:        dice.NewRoller(rng, rolls),
		attacked:      make(map[string]bool),
		log: logger.Component("encounter").WithFields(logrus.Fields{
			"encounter_id": id,
			"seed":         cfg.Seed,
		}),
	}
}

// Roller возвращает бросатель встречи. Все броски проходят через него.
func (e *Encounter) Roller() *dice.Roller {
	return e.roller
}

// RNGState - текущее состояние генератора (для дебага и снапшотов).
func (e *Encounter) RNGState() uint32 {
	return e.rng.State()
}

// Start задает участников и место боя. Генератор не сбрасывается.
func (e *Encounter) Start(s Setup) error {
	if len(s.Heroes) == 0 {
		return ErrNoHeroes
	}
	for _, m := range s.Monsters {
		m.MustBeValid()
	}

	e.Heroes = s.Heroes
	e.Monsters = s.Monsters
	e.Location = s.Location
	e.Environment = s.Environment
	e.Ambush = s.Ambush && s.Location.IsCorridor()
	e.HasDoor = s.HasDoor
	if s.Marching != nil {
		e.Marching = *s.Marching
	} else {
		e.Marching = domain.DefaultMarchingOrder(len(s.Heroes))
	}
	e.resetRound()
	e.Started = true

	e.log.WithFields(logrus.Fields{
		"heroes":   len(e.Heroes),
		"monsters": len(e.Monsters),
		"location": e.Location.Type,
		"ambush":   e.Ambush,
	}).Info("Encounter started.")
	e.AddLog(fmt.Sprintf("Встреча началась: героев %d, врагов %d.", len(e.Heroes), len(e.Monsters)), LogInfo)
	return nil
}

func (e *Encounter) resetRound() {
	e.Round = 1
	e.Outcome = OutcomeNone
	e.attacked = make(map[string]bool)
}

// ready - встреча идет и принимает боевые команды.
func (e *Encounter) ready() error {
	if !e.Started {
		return ErrNotStarted
	}
	if e.Outcome != OutcomeNone {
		return fmt.Errorf("%w: %s", ErrEncounterOver, e.Outcome)
	}
	return nil
}

// Hero ищет героя по ID.
func (e *Encounter) Hero(id string) (*domain.Hero, error) {
	for _, h := range e.Heroes {
		if h.ID == id {
			return h, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownHero, id)
}

// Monster ищет врага по ID.
func (e *Encounter) Monster(id string) (*domain.Monster, error) {
	for _, m := range e.Monsters {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMonster, id)
}

// LivingHeroes - герои, способные действовать.
func (e *Encounter) LivingHeroes() []*domain.Hero {
	out := make([]*domain.Hero, 0, len(e.Heroes))
	for _, h := range e.Heroes {
		if h.IsAlive() {
			out = append(out, h)
		}
	}
	return out
}

// Foes - враги, которые еще в бою (без союзников).
func (e *Encounter) Foes() []*domain.Monster {
	out := make([]*domain.Monster, 0, len(e.Monsters))
	for _, m := range e.Monsters {
		if !m.Ally && !m.IsDefeated() {
			out = append(out, m)
		}
	}
	return out
}

func (e *Encounter) hasHostiles() bool {
	for _, m := range e.Monsters {
		if !m.Ally {
			return true
		}
	}
	return false
}

// combatContext - общие для всех бросков условия: свет, место, окружение.
func (e *Encounter) combatContext() systems.CombatContext {
	return systems.CombatContext{
		HasLightSource: domain.PartyHasLight(e.LivingHeroes()),
		Location:       e.Location,
		Environment:    e.Environment,
	}
}

// checkOutcome фиксирует конец встречи. Итог не меняется, пока не начнется новая плитка.
func (e *Encounter) checkOutcome() Outcome {
	if e.Outcome != OutcomeNone {
		return e.Outcome
	}
	switch {
	case len(e.LivingHeroes()) == 0:
		e.Outcome = OutcomeWipe
		e.AddLog("Партия погибла.", LogInfo)
	case e.hasHostiles() && len(e.Foes()) == 0:
		e.Outcome = OutcomeVictory
		e.AddLog("Победа!", LogInfo)
	default:
		return OutcomeNone
	}
	e.log.WithFields(logrus.Fields{
		"outcome": e.Outcome,
		"round":   e.Round,
	}).Info("Encounter finished.")
	return e.Outcome
}

// TakeEvents возвращает события, примененные с прошлого вызова.
func (e *Encounter) TakeEvents() []domain.Event {
	ev := e.pending
	e.pending = nil
	return ev
}
