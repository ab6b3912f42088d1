package systems

import (
	"fmt"

	"fourad-server/internal/domain"
	"fourad-server/pkg/dice"
	"fourad-server/pkg/logger"

	"github.com/sirupsen/logrus"
)

// moraleBreakMax - итог 1-3 означает бегство.
const moraleBreakMax = 3

// MoraleResult - итог проверки морали группы.
type MoraleResult struct {
	MonsterID string         `json:"monsterId"`
	Roll      int            `json:"roll"`
	Total     int            `json:"total"`
	Fled      bool           `json:"fled"`
	Events    []domain.Event `json:"-"`
	Message   string         `json:"message"`
}

// NeedsMoraleCheck - группа впервые опустилась ниже половины (вверх) исходной численности.
// Боссы и группы "до смерти" не проверяют мораль.
func NeedsMoraleCheck(m *domain.Monster) bool {
	if !m.IsMinor() || m.MoraleChecked || m.FightToDeath || m.Boss || m.Ally {
		return false
	}
	if m.Status.Fled || m.Count <= 0 {
		return false
	}
	half := (m.InitialCount + 1) / 2
	return m.Count < half
}

// CheckMorale бросает d6 + MoraleMod.
func CheckMorale(r *dice.Roller, m *domain.Monster) MoraleResult {
	m.MustBeValid()

	roll := r.D6("morale:" + m.ID)
	res := MoraleResult{
		MonsterID: m.ID,
		Roll:      roll,
		Total:     roll + m.MoraleMod,
	}
	res.Events = append(res.Events, domain.MoraleChecked{MonsterID: m.ID, Roll: roll, Total: res.Total})

	if res.Total <= moraleBreakMax {
		res.Fled = true
		res.Events = append(res.Events, domain.MoraleBroke{MonsterID: m.ID, Fled: m.Count})
		res.Message = fmt.Sprintf("%s (%d) теряют мужество и бегут.", m.Name, m.Count)
	} else {
		res.Message = fmt.Sprintf("%s продолжают бой.", m.Name)
	}

	logger.Component("morale_system").WithFields(logrus.Fields{
		"monster_id": m.ID,
		"roll":       roll,
		"total":      res.Total,
		"fled":       res.Fled,
	}).Info("Morale checked.")

	return res
}

// LevelReduction - итог проверки ослабления крупного врага.
type LevelReduction struct {
	Reduced bool           `json:"reduced"`
	From    int            `json:"from"`
	To      int            `json:"to"`
	Events  []domain.Event `json:"-"`
}

// CheckLevelReduction - крупный враг теряет уровень один раз, впервые при 0 < hp <= maxHp/2.
func CheckLevelReduction(m *domain.Monster) LevelReduction {
	if m.IsMinor() || m.LevelReduced || m.Ally {
		return LevelReduction{}
	}
	if m.HP <= 0 || m.HP > m.MaxHP/2 {
		return LevelReduction{}
	}

	from := m.Level
	to := domain.ClampLevel(from - 1)

	logger.Component("morale_system").WithFields(logrus.Fields{
		"monster_id": m.ID,
		"hp":         m.HP,
		"from":       from,
		"to":         to,
	}).Info("Major foe level reduced.")

	return LevelReduction{
		Reduced: true,
		From:    from,
		To:      to,
		Events:  []domain.Event{domain.LevelReduced{MonsterID: m.ID, From: from, To: to}},
	}
}

// DecayRound уменьшает счетчики состояний и баффов. Вызывается один раз на новый раунд.
func DecayRound(heroes []*domain.Hero, monsters []*domain.Monster) []domain.Event {
	var events []domain.Event

	for _, m := range monsters {
		if m == nil || m.IsDefeated() {
			continue
		}
		events = append(events, decayStatus(m.ID, domain.FlagAsleep, m.Status.Asleep, m.Status.AsleepTurns)...)
		events = append(events, decayStatus(m.ID, domain.FlagBound, m.Status.Bound, m.Status.BoundTurns)...)
		events = append(events, decayStatus(m.ID, domain.FlagEntangled, m.Status.Entangled, m.Status.EntangledTurns)...)
	}

	for _, h := range heroes {
		if h == nil {
			continue
		}
		for _, b := range h.Buffs {
			// EncounterDuration не убывает
			if b.TurnsLeft <= 0 {
				continue
			}
			left := b.TurnsLeft - 1
			if left == 0 {
				events = append(events, domain.BuffExpired{HeroID: h.ID, Spell: b.Spell})
			} else {
				events = append(events, domain.BuffTicked{HeroID: h.ID, Spell: b.Spell, TurnsLeft: left})
			}
		}
	}
	return events
}

// decayStatus: счетчик 0 у активного флага означает "без срока".
func decayStatus(id string, flag domain.MonsterFlag, active bool, turns int) []domain.Event {
	if !active || turns <= 0 {
		return nil
	}
	left := turns - 1
	if left == 0 {
		return []domain.Event{domain.MonsterStatusCleared{MonsterID: id, Flag: flag}}
	}
	return []domain.Event{domain.MonsterStatusTicked{MonsterID: id, Flag: flag, TurnsLeft: left}}
}
