package systems

import (
	"fmt"

	"fourad-server/internal/domain"
	"fourad-server/pkg/dice"
	"fourad-server/pkg/logger"

	"github.com/sirupsen/logrus"
)

// AttackResult - итог атаки героя. Состояние не меняется, изменения лежат в Events.
type AttackResult struct {
	HeroID    string         `json:"heroId"`
	MonsterID string         `json:"monsterId"`
	Roll      dice.Exploding `json:"roll"`
	Breakdown Breakdown      `json:"breakdown"`
	Final     int            `json:"final"`
	FoeLevel  int            `json:"foeLevel"`
	Fumble    bool           `json:"fumble"`
	Uncapped  int            `json:"uncapped"` // Попадания до ограничения остатком врагов
	Hits      int            `json:"hits"`
	Defeated  bool           `json:"defeated"`
	Events    []domain.Event `json:"-"`
	Message   string         `json:"message"`
}

// DefenseResult - итог защиты героя от одной атаки.
type DefenseResult struct {
	HeroID    string         `json:"heroId"`
	MonsterID string         `json:"monsterId"`
	Roll      int            `json:"roll"`
	Breakdown Breakdown      `json:"breakdown"`
	Total     int            `json:"total"`
	FoeLevel  int            `json:"foeLevel"`
	Blocked   bool           `json:"blocked"`
	Damage    int            `json:"damage"`
	WouldDrop bool           `json:"wouldDrop"` // Урон довел бы HP до 0: нужен спасбросок
	Events    []domain.Event `json:"-"`
	Message   string         `json:"message"`
}

// explodeThreshold - мастерская работа взрывается на 5.
func explodeThreshold(hero *domain.Hero, ranged bool) int {
	w := hero.Weapon()
	if ranged {
		w = hero.RangedWeapon()
	}
	if w != nil && w.Masterwork {
		return dice.MasterworkExplodeThreshold
	}
	return dice.DefaultExplodeThreshold
}

// blessingConsumed - благословение тратится на первый бросок, где оно сработало.
func blessingConsumed(hero *domain.Hero, b Breakdown) []domain.Event {
	if hero.Status.Blessed && b.Has(TagBlessed) {
		return []domain.Event{domain.HeroStatusCleared{HeroID: hero.ID, Flag: domain.FlagBlessed}}
	}
	return nil
}

// ResolveAttack бросает атаку героя по врагу.
func ResolveAttack(r *dice.Roller, hero *domain.Hero, target *domain.Monster, ctx CombatContext, traits TraitTable) AttackResult {
	target.MustBeValid()
	ctx.Target = target

	combatLogger := logger.Component("combat_system").WithFields(logrus.Fields{
		"hero_id":    hero.ID,
		"monster_id": target.ID,
	})

	// 1. Модификаторы
	bd := ResolveModifiers(RollAttack, hero, ctx, traits)

	// 2. Бросок (взрывающийся d6)
	roll := r.ExplodingD6("attack:"+hero.ID, bd.Total, explodeThreshold(hero, ctx.Ranged))

	res := AttackResult{
		HeroID:    hero.ID,
		MonsterID: target.ID,
		Roll:      roll,
		Breakdown: bd,
		FoeLevel:  target.EffectiveLevel(),
	}

	// 3. Провал: первая единица обнуляет атаку
	if roll.First() == 1 {
		res.Fumble = true
		res.Final = roll.Raw() + bd.Total
		res.Events = blessingConsumed(hero, bd)
		res.Message = fmt.Sprintf("%s промахивается по %s (выпала 1).", hero.Name, target.Name)
		combatLogger.Info("Attack fumbled.")
		return res
	}

	// 4. Попадания = итог / уровень
	res.Final = roll.Raw() + bd.Total
	res.Uncapped = max(0, res.Final/res.FoeLevel)
	res.Hits = min(res.Uncapped, target.Remaining())

	// 5. События
	if res.Hits > 0 {
		before := target.Remaining()
		after := before - res.Hits
		if target.IsMinor() {
			res.Events = append(res.Events, domain.MonsterCountChanged{MonsterID: target.ID, From: before, To: after})
		} else {
			res.Events = append(res.Events, domain.MonsterHPChanged{MonsterID: target.ID, From: before, To: after})
		}
		if after == 0 {
			res.Defeated = true
			if ctx.Subdual {
				res.Events = append(res.Events, domain.MonsterStatusSet{MonsterID: target.ID, Flag: domain.FlagSubdued})
			}
			res.Events = append(res.Events, domain.MonsterDefeated{MonsterID: target.ID})
		}
	}
	res.Events = append(res.Events, blessingConsumed(hero, bd)...)

	res.Message = fmt.Sprintf("%s: бросок %d%+d = %d, попаданий по %s: %d.",
		hero.Name, roll.Raw(), bd.Total, res.Final, target.Name, res.Hits)
	if res.Defeated {
		res.Message += fmt.Sprintf(" %s повержен.", target.Name)
	}

	combatLogger.WithFields(logrus.Fields{
		"rolls":     roll.Rolls,
		"modifier":  bd.Total,
		"final":     res.Final,
		"foe_level": res.FoeLevel,
		"uncapped":  res.Uncapped,
		"hits":      res.Hits,
		"defeated":  res.Defeated,
	}).Info("Attack resolved.")

	return res
}

// ResolveDefense бросает защиту героя от одной атаки врага.
func ResolveDefense(r *dice.Roller, hero *domain.Hero, attacker *domain.Monster, ctx CombatContext, traits TraitTable) DefenseResult {
	ctx.Target = attacker

	combatLogger := logger.Component("combat_system").WithFields(logrus.Fields{
		"hero_id":    hero.ID,
		"monster_id": attacker.ID,
	})

	bd := ResolveModifiers(RollDefense, hero, ctx, traits)
	roll := r.D6("defense:" + hero.ID)

	res := DefenseResult{
		HeroID:    hero.ID,
		MonsterID: attacker.ID,
		Roll:      roll,
		Breakdown: bd,
		Total:     roll + bd.Total,
		FoeLevel:  attacker.EffectiveLevel(),
	}
	// Ничья в пользу атакующего
	res.Blocked = res.Total > res.FoeLevel

	if !res.Blocked {
		res.Damage = 1
		if attacker.DamageExpr != "" {
			rec, err := r.Expr("damage:"+attacker.ID, attacker.DamageExpr)
			if err != nil {
				combatLogger.WithError(err).Warn("Bad damage expression, using 1.")
			} else {
				res.Damage = max(1, rec.Total)
			}
		}
		to := hero.HP - res.Damage
		res.WouldDrop = to <= 0
		res.Events = append(res.Events, domain.HeroHPChanged{HeroID: hero.ID, From: hero.HP, To: max(0, to)})
	}
	res.Events = append(res.Events, blessingConsumed(hero, bd)...)

	if res.Blocked {
		res.Message = fmt.Sprintf("%s отражает атаку %s (%d против %d).", hero.Name, attacker.Name, res.Total, res.FoeLevel)
	} else {
		res.Message = fmt.Sprintf("%s получает %d урона от %s (%d против %d).", hero.Name, res.Damage, attacker.Name, res.Total, res.FoeLevel)
	}

	combatLogger.WithFields(logrus.Fields{
		"roll":      roll,
		"modifier":  bd.Total,
		"foe_level": res.FoeLevel,
		"blocked":   res.Blocked,
		"damage":    res.Damage,
	}).Info("Defense resolved.")

	return res
}
