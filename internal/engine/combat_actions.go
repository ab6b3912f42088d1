package engine

import (
	"fmt"

	"fourad-server/internal/domain"
	"fourad-server/internal/systems"
)

// Ярость варвара - один раз за приключение.
const ragesPerAdventure = 1

// AttackOptions - флаги атаки от игрока.
type AttackOptions struct {
	Ranged    bool
	Subdual   bool
	DualWield bool
	Rage      bool
}

// AttackOutcome - атака и все, что она вызвала.
type AttackOutcome struct {
	Attack    systems.AttackResult    `json:"attack"`
	Rage      bool                    `json:"rage,omitempty"`
	Morale    *systems.MoraleResult   `json:"morale,omitempty"`
	Reduction *systems.LevelReduction `json:"levelReduction,omitempty"`
	Outcome   Outcome                 `json:"outcome,omitempty"`
}

// Attack - атака героя по врагу, затем проверки морали и ослабления цели.
func (e *Encounter) Attack(heroID, targetID string, opts AttackOptions) (AttackOutcome, error) {
	// 1. Проверки до любых бросков
	if err := e.ready(); err != nil {
		return AttackOutcome{}, err
	}
	hero, err := e.Hero(heroID)
	if err != nil {
		return AttackOutcome{}, err
	}
	if !hero.IsAlive() {
		return AttackOutcome{}, fmt.Errorf("%w: %s", ErrHeroDown, heroID)
	}
	target, err := e.Monster(targetID)
	if err != nil {
		return AttackOutcome{}, err
	}
	if target.Ally || target.IsDefeated() {
		return AttackOutcome{}, fmt.Errorf("%w: %s", ErrNotHostile, targetID)
	}

	var out AttackOutcome

	// 2. Ярость
	if opts.Rage && !hero.Status.Raging {
		if hero.Class != domain.ClassBarbarian || hero.Usage.RagesUsed >= ragesPerAdventure {
			return AttackOutcome{}, fmt.Errorf("%w: %s", ErrRageUnavailable, heroID)
		}
		e.apply([]domain.Event{
			domain.ChargeSpent{HeroID: hero.ID, Ability: domain.AbilityRage},
			domain.HeroStatusSet{HeroID: hero.ID, Flag: domain.FlagRaging},
		})
		e.AddLog(fmt.Sprintf("%s впадает в ярость!", hero.Name), LogCombat)
		out.Rage = true
	}

	// 3. Контекст атаки
	ctx := e.combatContext()
	ctx.Ranged = opts.Ranged
	ctx.Subdual = opts.Subdual
	ctx.DualWielding = opts.DualWield
	ctx.OutnumberMinorFoe = target.IsMinor() && len(e.LivingHeroes()) > target.Count
	key := hero.ID + ":" + target.ID
	ctx.FirstAttackTarget = !e.attacked[key]
	e.attacked[key] = true

	// 4. Бросок и применение
	out.Attack = systems.ResolveAttack(e.roller, hero, target, ctx, e.Traits)
	e.apply(out.Attack.Events)
	e.AddLog(out.Attack.Message, LogCombat)

	// 5. Последствия для цели
	out.Morale, out.Reduction = e.escalate(target)
	out.Outcome = e.checkOutcome()
	return out, nil
}

// escalate - мораль группы и ослабление крупного врага после урона.
func (e *Encounter) escalate(m *domain.Monster) (*systems.MoraleResult, *systems.LevelReduction) {
	var morale *systems.MoraleResult
	var reduction *systems.LevelReduction

	if systems.NeedsMoraleCheck(m) {
		res := systems.CheckMorale(e.roller, m)
		e.apply(res.Events)
		e.AddLog(res.Message, LogCombat)
		morale = &res
	}
	if lr := systems.CheckLevelReduction(m); lr.Reduced {
		e.apply(lr.Events)
		e.AddLog(fmt.Sprintf("%s слабеет: уровень %d -> %d.", m.Name, lr.From, lr.To), LogCombat)
		reduction = &lr
	}
	return morale, reduction
}

// Strike - одна атака врага в ходе врагов.
type Strike struct {
	MonsterID string                 `json:"monsterId"`
	HeroID    string                 `json:"heroId"`
	Skipped   bool                   `json:"skipped,omitempty"` // Цель пала раньше в этом залпе
	Defense   *systems.DefenseResult `json:"defense,omitempty"`
	Save      *systems.SaveResult    `json:"save,omitempty"`
}

// MonsterTurnResult - итог хода врагов.
type MonsterTurnResult struct {
	Rule        string                   `json:"rule"`
	Strikes     []Strike                 `json:"strikes"`
	Unreachable []systems.AttackInstance `json:"unreachable,omitempty"`
	Outcome     Outcome                  `json:"outcome,omitempty"`
}

// MonsterTurn - враги атакуют, герои защищаются, сбитые с ног бросают спасбросок.
// Цели распределяются один раз в начале хода.
func (e *Encounter) MonsterTurn(frontEngaged bool) (MonsterTurnResult, error) {
	if err := e.ready(); err != nil {
		return MonsterTurnResult{}, err
	}

	// 1. Распределение целей
	alloc := systems.AllocateTargets(systems.TargetingRequest{
		Heroes:        e.Heroes,
		Monsters:      e.Monsters,
		Location:      e.Location,
		Marching:      e.Marching,
		Ambush:        e.Ambush,
		FrontEngaged:  frontEngaged,
		ClassPriority: e.ClassPriority,
	})
	res := MonsterTurnResult{Rule: alloc.Rule, Unreachable: alloc.Unreachable}

	// 2. Защита и спасброски по порядку назначений
	for _, as := range alloc.Assignments {
		hero := e.Heroes[as.HeroIndex]
		monster := e.Monsters[as.Instance.MonsterIndex]
		st := Strike{MonsterID: monster.ID, HeroID: hero.ID}
		if !hero.IsAlive() {
			st.Skipped = true
			res.Strikes = append(res.Strikes, st)
			continue
		}

		ctx := e.combatContext()
		ctx.Target = monster
		def := systems.ResolveDefense(e.roller, hero, monster, ctx, e.Traits)
		e.apply(def.Events)
		e.AddLog(def.Message, LogCombat)
		st.Defense = &def

		if def.WouldDrop {
			save := systems.ResolveSave(e.roller, systems.SaveRequest{
				Hero:         hero,
				Party:        e.Heroes,
				Source:       systems.DamageSource{Kind: systems.SourceMonster, FoeLevel: monster.Level},
				Ctx:          ctx,
				Traits:       e.Traits,
				AllowRerolls: e.AutoRerolls,
			})
			e.apply(save.Events)
			e.AddLog(save.Message, LogCombat)
			st.Save = &save
		}
		res.Strikes = append(res.Strikes, st)
	}
	if len(alloc.Assignments) == 0 {
		e.AddLog("Враги бездействуют.", LogCombat)
	}

	// Внезапность действует только в первый ход врагов
	e.Ambush = false
	res.Outcome = e.checkOutcome()
	return res, nil
}

// CastRequest - заклинание с выбранными целями.
type CastRequest struct {
	CasterID     string
	Spell        string
	TargetIDs    []string
	AllyIDs      []string
	CastingBonus int
}

// CastOutcome - заклинание и его последствия для целей.
type CastOutcome struct {
	Spell      systems.SpellResult      `json:"spell"`
	Morale     []systems.MoraleResult   `json:"morale,omitempty"`
	Reductions []systems.LevelReduction `json:"levelReductions,omitempty"`
	Outcome    Outcome                  `json:"outcome,omitempty"`
}

// Cast - заклинание героя. Без явных целей: все враги для target=all,
// единственный враг для одиночной цели, сам заклинатель для союзной цели.
func (e *Encounter) Cast(req CastRequest) (CastOutcome, error) {
	// 1. Проверки и цели
	if err := e.ready(); err != nil {
		return CastOutcome{}, err
	}
	caster, err := e.Hero(req.CasterID)
	if err != nil {
		return CastOutcome{}, err
	}
	if !caster.IsAlive() {
		return CastOutcome{}, fmt.Errorf("%w: %s", ErrHeroDown, req.CasterID)
	}

	targets := make([]*domain.Monster, 0, len(req.TargetIDs))
	for _, id := range req.TargetIDs {
		m, err := e.Monster(id)
		if err != nil {
			return CastOutcome{}, err
		}
		targets = append(targets, m)
	}
	allies := make([]*domain.Hero, 0, len(req.AllyIDs))
	for _, id := range req.AllyIDs {
		h, err := e.Hero(id)
		if err != nil {
			return CastOutcome{}, err
		}
		allies = append(allies, h)
	}

	if def, ok := e.Spells[req.Spell]; ok {
		foes := e.Foes()
		switch {
		case len(targets) == 0 && def.Target == systems.TargetAll:
			targets = foes
		case len(targets) == 0 && def.Target == systems.TargetSingle && len(foes) == 1:
			targets = foes
		}
		if len(allies) == 0 && def.Target == systems.TargetAlly {
			allies = []*domain.Hero{caster}
		}
	}

	// 2. Заклинание
	ctx := e.combatContext()
	ctx.CastingBonus = req.CastingBonus
	res := systems.CastByKey(e.roller, e.Spells, req.Spell, systems.CastContext{
		Caster:  caster,
		Targets: targets,
		Allies:  allies,
		Party:   e.LivingHeroes(),
		Combat:  ctx,
		Traits:  e.Traits,
	})
	e.apply(res.Events)
	e.AddLog(res.Message, LogSpell)

	// 3. Последствия
	out := CastOutcome{Spell: res}
	for _, t := range targets {
		morale, reduction := e.escalate(t)
		if morale != nil {
			out.Morale = append(out.Morale, *morale)
		}
		if reduction != nil {
			out.Reductions = append(out.Reductions, *reduction)
		}
	}
	out.Outcome = e.checkOutcome()
	return out, nil
}

func (e *Encounter) escapeRequest() systems.EscapeRequest {
	return systems.EscapeRequest{
		Heroes:        e.Heroes,
		Monsters:      e.Monsters,
		Location:      e.Location,
		Marching:      e.Marching,
		Ambush:        e.Ambush,
		ClassPriority: e.ClassPriority,
		HasDoor:       e.HasDoor,
		Ctx:           e.combatContext(),
		Traits:        e.Traits,
	}
}

// Flee - бегство партии.
func (e *Encounter) Flee() (systems.EscapeResult, error) {
	if err := e.ready(); err != nil {
		return systems.EscapeResult{}, err
	}
	res := systems.ResolveFlee(e.roller, e.escapeRequest())
	e.finishEscape(res)
	return res, nil
}

// Withdraw - отступление через дверь.
func (e *Encounter) Withdraw() (systems.EscapeResult, error) {
	if err := e.ready(); err != nil {
		return systems.EscapeResult{}, err
	}
	if !e.HasDoor {
		return systems.EscapeResult{}, ErrNoDoor
	}
	res := systems.ResolveWithdraw(e.roller, e.escapeRequest())
	e.finishEscape(res)
	return res, nil
}

func (e *Encounter) finishEscape(res systems.EscapeResult) {
	e.apply(res.Events)
	e.AddLog(res.Message, LogCombat)
	if res.Escaped {
		e.Outcome = OutcomeEscaped
		e.log.WithField("kind", res.Kind).Info("Party escaped.")
		return
	}
	e.checkOutcome()
}

// RoundResult - итог перехода к новому раунду.
type RoundResult struct {
	Round   int `json:"round"`
	Changes int `json:"changes"`
}

// NewRound уменьшает счетчики эффектов и открывает следующий раунд.
func (e *Encounter) NewRound() (RoundResult, error) {
	if err := e.ready(); err != nil {
		return RoundResult{}, err
	}
	events := systems.DecayRound(e.Heroes, e.Monsters)
	e.apply(events)
	e.Round++
	e.AddLog(fmt.Sprintf("Раунд %d.", e.Round), LogInfo)
	return RoundResult{Round: e.Round, Changes: len(events)}, nil
}
