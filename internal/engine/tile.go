package engine

import (
	"fmt"

	"fourad-server/internal/domain"
	"fourad-server/internal/systems"
	"fourad-server/pkg/dungeon"

	"github.com/sirupsen/logrus"
)

// TrapResult - ловушка сработала на первом живом герое в походном порядке.
type TrapResult struct {
	HeroID string              `json:"heroId"`
	Trap   dungeon.Trap        `json:"trap"`
	Damage int                 `json:"damage"`
	Save   *systems.SaveResult `json:"save,omitempty"`
}

// TileResult - новая плитка и то, что на ней случилось.
type TileResult struct {
	Tile    dungeon.Tile `json:"tile"`
	Trap    *TrapResult  `json:"trap,omitempty"`
	Outcome Outcome      `json:"outcome,omitempty"`
}

// EnterTile переводит партию на новую плитку подземелья: бросает форму и содержимое,
// заменяет врагов и место боя. Партия и ее заряды сохраняются.
func (e *Encounter) EnterTile(src dungeon.TemplateSource) (TileResult, error) {
	// 1. Можно ли уйти с текущей плитки
	if !e.Started {
		return TileResult{}, ErrNotStarted
	}
	if e.Outcome == OutcomeWipe {
		return TileResult{}, fmt.Errorf("%w: %s", ErrEncounterOver, e.Outcome)
	}
	if e.Outcome == OutcomeNone && len(e.Foes()) > 0 {
		return TileResult{}, ErrFoesRemain
	}

	// 2. Генерация
	tile, err := dungeon.GenerateTile(e.roller, src)
	if err != nil {
		return TileResult{}, fmt.Errorf("generate tile: %w", err)
	}

	// 3. Эффекты прошлой встречи заканчиваются
	e.apply(e.encounterExpiry())

	e.Location = tile.Shape.Location
	e.HasDoor = tile.HasDoor()
	e.Ambush = false
	e.Monsters = make([]*domain.Monster, 0, len(tile.Monsters))
	for i := range tile.Monsters {
		e.Monsters = append(e.Monsters, &tile.Monsters[i])
	}
	e.resetRound()

	e.log.WithFields(logrus.Fields{
		"shape":    tile.Shape.Roll,
		"contents": tile.Contents,
		"monsters": len(e.Monsters),
	}).Info("Tile entered.")
	e.AddLog(describeTile(tile), LogInfo)

	res := TileResult{Tile: tile}

	// 4. Ловушка
	if tile.Trap != nil {
		res.Trap = e.springTrap(*tile.Trap)
	}

	res.Outcome = e.checkOutcome()
	return res, nil
}

// encounterExpiry снимает ярость и баффы "до конца встречи".
func (e *Encounter) encounterExpiry() []domain.Event {
	var events []domain.Event
	for _, h := range e.Heroes {
		if h.Status.Raging {
			events = append(events, domain.HeroStatusCleared{HeroID: h.ID, Flag: domain.FlagRaging})
		}
		for _, b := range h.Buffs {
			if b.TurnsLeft == domain.EncounterDuration {
				events = append(events, domain.BuffExpired{HeroID: h.ID, Spell: b.Spell})
			}
		}
	}
	return events
}

func (e *Encounter) springTrap(trap dungeon.Trap) *TrapResult {
	var victim *domain.Hero
	for _, idx := range e.Marching {
		if idx >= 0 && idx < len(e.Heroes) && e.Heroes[idx].IsAlive() {
			victim = e.Heroes[idx]
			break
		}
	}
	if victim == nil {
		return nil
	}

	damage := 1
	if rec, err := e.roller.Expr("trap:"+trap.Key, trap.Damage); err != nil {
		e.log.WithError(err).WithField("trap", trap.Key).Warn("Bad trap damage, using 1.")
	} else {
		damage = max(1, rec.Total)
	}
	res := &TrapResult{HeroID: victim.ID, Trap: trap, Damage: damage}
	// Контекст до урона: фонарь жертвы еще светит всей партии
	ctx := e.combatContext()
	to := victim.HP - damage
	e.apply([]domain.Event{domain.HeroHPChanged{HeroID: victim.ID, From: victim.HP, To: max(0, to)}})
	e.AddLog(fmt.Sprintf("%s: %s получает %d урона.", trap.Name, victim.Name, damage), LogCombat)

	if to <= 0 {
		save := systems.ResolveSave(e.roller, systems.SaveRequest{
			Hero:         victim,
			Party:        e.Heroes,
			Source:       systems.DamageSource{Kind: systems.SourceTrap, DC: trap.DC},
			Ctx:          ctx,
			Traits:       e.Traits,
			AllowRerolls: e.AutoRerolls,
		})
		e.apply(save.Events)
		e.AddLog(save.Message, LogCombat)
		res.Save = &save
	}
	return res
}

func describeTile(t dungeon.Tile) string {
	place := "Комната"
	if t.Shape.Location.IsCorridor() {
		place = "Коридор"
	}
	switch t.Contents {
	case dungeon.ContentsTreasure:
		return fmt.Sprintf("%s. Сокровище: %d золотых.", place, t.Gold)
	case dungeon.ContentsSpecial:
		return fmt.Sprintf("%s. %s.", place, t.Feature)
	case dungeon.ContentsTrap:
		return fmt.Sprintf("%s. Ловушка!", place)
	case dungeon.ContentsEmpty:
		return fmt.Sprintf("%s. Пусто.", place)
	}
	return fmt.Sprintf("%s. Враги: %d групп.", place, len(t.Monsters))
}
