package systems

import (
	"fourad-server/internal/domain"
	"fourad-server/pkg/dice"
	"fourad-server/pkg/logger"

	"github.com/sirupsen/logrus"
)

// WithdrawExceptions - окружения, где отступление не дает +1 к защите.
var WithdrawExceptions = map[string]bool{
	"swamp":      true,
	"ice":        true,
	"web":        true,
	"collapsing": true,
}

// EscapeKind - бегство или отступление через дверь.
type EscapeKind string

const (
	EscapeFlee     EscapeKind = "flee"
	EscapeWithdraw EscapeKind = "withdraw"
)

// EscapeRequest - партия, враги и обстановка на момент попытки.
type EscapeRequest struct {
	Heroes        []*domain.Hero
	Monsters      []*domain.Monster
	Location      domain.CombatLocation
	Marching      domain.MarchingOrder
	Ambush        bool
	ClassPriority []domain.ClassKey
	HasDoor       bool
	Ctx           CombatContext
	Traits        TraitTable
}

// EscapeRoll - бросок одного героя при бегстве.
type EscapeRoll struct {
	HeroID  string `json:"heroId"`
	Roll    int    `json:"roll"`
	Bonus   int    `json:"bonus"`
	Total   int    `json:"total"`
	Success bool   `json:"success"`
}

// FreeStrike - свободный удар врага по отступающему герою.
type FreeStrike struct {
	Instance AttackInstance `json:"instance"`
	HeroID   string         `json:"heroId"`
	Defense  DefenseResult  `json:"defense"`
	Save     *SaveResult    `json:"save,omitempty"`
}

// EscapeResult - итог бегства или отступления.
type EscapeResult struct {
	Kind        EscapeKind       `json:"kind"`
	Allowed     bool             `json:"allowed"`
	FoeLevel    int              `json:"foeLevel,omitempty"`
	Rolls       []EscapeRoll     `json:"rolls,omitempty"`
	Strikes     []FreeStrike     `json:"strikes,omitempty"`
	Unreachable []AttackInstance `json:"unreachable,omitempty"`
	Escaped     bool             `json:"escaped"`
	Wandering   int              `json:"wandering,omitempty"` // d6 бродячих монстров после отступления
	Ambushed    bool             `json:"ambushed,omitempty"`
	Events      []domain.Event   `json:"-"`
	Message     string           `json:"message"`
}

// escapeBonus - плут +L, полурослик +L/2.
func escapeBonus(h *domain.Hero) int {
	switch h.Class {
	case domain.ClassRogue:
		return h.Level
	case domain.ClassHalfling:
		return h.Level / 2
	}
	return 0
}

// highestFoeLevel среди активных врагов.
func highestFoeLevel(monsters []*domain.Monster) int {
	level := 0
	for _, m := range monsters {
		if m == nil || m.IsDefeated() || m.Ally {
			continue
		}
		level = max(level, m.EffectiveLevel())
	}
	return domain.ClampLevel(level)
}

// ResolveFlee: каждый живой герой бросает d6 + бонус против высшего уровня врагов (строго больше).
// Свободные удары достаются в любом случае.
func ResolveFlee(r *dice.Roller, req EscapeRequest) EscapeResult {
	res := EscapeResult{
		Kind:     EscapeFlee,
		Allowed:  true,
		FoeLevel: highestFoeLevel(req.Monsters),
	}

	// 1. Броски бегства
	allOK := true
	for _, h := range req.Heroes {
		if h == nil || !h.IsAlive() {
			continue
		}
		roll := r.D6("flee:" + h.ID)
		er := EscapeRoll{HeroID: h.ID, Roll: roll, Bonus: escapeBonus(h)}
		er.Total = roll + er.Bonus
		er.Success = er.Total > res.FoeLevel
		allOK = allOK && er.Success
		res.Rolls = append(res.Rolls, er)
	}

	// 2. Свободные удары
	ctx := req.Ctx
	ctx.Withdrawing = false
	survivors := freeStrikes(r, req, ctx, &res)

	// 3. Исход
	res.Escaped = allOK && survivors > 0
	if res.Escaped {
		res.Events = append(res.Events, domain.PartyEscaped{})
		res.Message = "Партия бежит."
	} else {
		res.Message = "Бегство не удалось."
	}

	logger.Component("escape_system").WithFields(logrus.Fields{
		"foe_level": res.FoeLevel,
		"strikes":   len(res.Strikes),
		"escaped":   res.Escaped,
	}).Info("Flee resolved.")

	return res
}

// ResolveWithdraw: нужна дверь. Защитники получают +1 (кроме исключенных окружений),
// затем d6 бродячих монстров: 1 - новая засада.
func ResolveWithdraw(r *dice.Roller, req EscapeRequest) EscapeResult {
	res := EscapeResult{Kind: EscapeWithdraw}
	if !req.HasDoor {
		res.Message = "Отступать некуда: здесь нет двери."
		return res
	}
	res.Allowed = true

	ctx := req.Ctx
	ctx.Withdrawing = !WithdrawExceptions[ctx.Environment]

	survivors := freeStrikes(r, req, ctx, &res)
	if survivors == 0 {
		res.Message = "Партия пала при отступлении."
		return res
	}

	res.Escaped = true
	res.Events = append(res.Events, domain.PartyWithdrew{})
	res.Wandering = r.D6("wandering")
	if res.Wandering == 1 {
		res.Ambushed = true
		res.Events = append(res.Events, domain.WanderingAmbush{Roll: res.Wandering})
		res.Message = "Партия отступила, но на нее напали бродячие монстры!"
	} else {
		res.Message = "Партия отступила."
	}

	logger.Component("escape_system").WithFields(logrus.Fields{
		"withdrawing": ctx.Withdrawing,
		"strikes":     len(res.Strikes),
		"wandering":   res.Wandering,
	}).Info("Withdraw resolved.")

	return res
}

// freeStrikes проводит залп по частным копиям героев и возвращает число выживших.
func freeStrikes(r *dice.Roller, req EscapeRequest, ctx CombatContext, res *EscapeResult) int {
	copies := make([]*domain.Hero, len(req.Heroes))
	for i, h := range req.Heroes {
		if h != nil {
			copies[i] = h.Clone()
		}
	}

	// Без засады действует каскад комнаты
	location := req.Location
	if !req.Ambush {
		location = domain.CombatLocation{Type: domain.LocationRoom, Width: domain.WidthNormal}
	}
	alloc := AllocateTargets(TargetingRequest{
		Heroes:        copies,
		Monsters:      req.Monsters,
		Location:      location,
		Marching:      req.Marching,
		Ambush:        req.Ambush,
		ClassPriority: req.ClassPriority,
	})
	res.Unreachable = alloc.Unreachable

	apply := func(events []domain.Event) {
		for _, ev := range events {
			for _, c := range copies {
				if c != nil {
					domain.ApplyToHero(c, ev)
				}
			}
		}
		res.Events = append(res.Events, events...)
	}

	for _, as := range alloc.Assignments {
		hero := copies[as.HeroIndex]
		if !hero.IsAlive() {
			continue
		}
		attacker := req.Monsters[as.Instance.MonsterIndex]
		def := ResolveDefense(r, hero, attacker, ctx, req.Traits)
		strike := FreeStrike{Instance: as.Instance, HeroID: hero.ID, Defense: def}
		apply(def.Events)

		if def.WouldDrop {
			save := ResolveSave(r, SaveRequest{
				Hero:         hero,
				Party:        copies,
				Source:       DamageSource{Kind: SourceMonster, FoeLevel: attacker.Level},
				Ctx:          ctx,
				Traits:       req.Traits,
				AllowRerolls: true,
			})
			apply(save.Events)
			strike.Save = &save
		}
		res.Strikes = append(res.Strikes, strike)
	}

	survivors := 0
	for _, c := range copies {
		if c != nil && c.IsAlive() {
			survivors++
		}
	}
	return survivors
}
