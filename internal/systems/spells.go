package systems

import (
	"fmt"

	"fourad-server/internal/domain"
	"fourad-server/pkg/dice"
	"fourad-server/pkg/logger"

	"github.com/sirupsen/logrus"
)

// SpellEffect - тег эффекта заклинания.
type SpellEffect string

const (
	EffectDamage   SpellEffect = "damage"
	EffectSleep    SpellEffect = "sleep"
	EffectBuff     SpellEffect = "buff"
	EffectEntangle SpellEffect = "entangle"
	EffectBind     SpellEffect = "bind"
	EffectSummon   SpellEffect = "summon"
	EffectDispel   SpellEffect = "dispel"
	EffectHeal     SpellEffect = "heal"
)

// SpellTarget - арность цели.
type SpellTarget string

const (
	TargetSingle SpellTarget = "single"
	TargetAll    SpellTarget = "all"
	TargetSelf   SpellTarget = "self"
	TargetAlly   SpellTarget = "ally"
)

// DurationKind - как считается длительность эффекта.
type DurationKind string

const (
	DurationEncounter DurationKind = "encounter"
	DurationTier      DurationKind = "tier"
	DurationTurns     DurationKind = "turns"
)

// SummonDef - легкая запись призванного союзника.
type SummonDef struct {
	Name  string         `json:"name"`
	Kind  domain.FoeKind `json:"kind"`
	Level int            `json:"level"`
	HP    int            `json:"hp,omitempty"`
	Count int            `json:"count,omitempty"`
	Tags  []string       `json:"tags,omitempty"`
}

// SpellDef - определение заклинания из таблицы данных.
type SpellDef struct {
	Key             string          `json:"key"`
	Name            string          `json:"name"`
	Effect          SpellEffect     `json:"effect"`
	Amount          string          `json:"amount,omitempty"` // Кубы или число: "d6", "2", "1d6+1"
	Target          SpellTarget     `json:"target"`
	MagicResistGate bool            `json:"magicResistGate,omitempty"`
	ToHit           bool            `json:"toHit,omitempty"`
	Duration        DurationKind    `json:"duration,omitempty"`
	Turns           int             `json:"turns,omitempty"`
	Stat            domain.BuffStat `json:"stat,omitempty"`
	Excludes        []string        `json:"excludes,omitempty"` // Теги врагов: иммунитет к эффекту или бафф не действует
	Summon          *SummonDef      `json:"summon,omitempty"`
}

// Spellbook - заклинания по ключу.
type Spellbook map[string]SpellDef

// CastContext - заклинатель и заранее выбранные цели.
type CastContext struct {
	Caster  *domain.Hero
	Targets []*domain.Monster // Цели-враги
	Allies  []*domain.Hero    // Цели-союзники (ally)
	Party   []*domain.Hero    // Для target=all у баффов и лечения
	Combat  CombatContext     // CastingBonus и прочее для броска заклинания
	Traits  TraitTable
}

// SpellEffectRecord - что случилось с одной целью.
type SpellEffectRecord struct {
	TargetID string      `json:"targetId"`
	Effect   SpellEffect `json:"effect"`
	Amount   int         `json:"amount,omitempty"`
	Resisted bool        `json:"resisted,omitempty"`
	Missed   bool        `json:"missed,omitempty"`
	Immune   bool        `json:"immune,omitempty"`
}

// SpellResult - итог заклинания.
type SpellResult struct {
	Spell    string              `json:"spell"`
	CasterID string              `json:"casterId"`
	Unknown  bool                `json:"unknown,omitempty"`
	Wasted   bool                `json:"wasted,omitempty"`
	Power    Breakdown           `json:"power"`
	Records  []SpellEffectRecord `json:"records,omitempty"`
	Events   []domain.Event      `json:"-"`
	Message  string              `json:"message"`
}

// CastByKey ищет заклинание в книге. Неизвестный ключ портит только это действие.
func CastByKey(r *dice.Roller, book Spellbook, key string, cc CastContext) SpellResult {
	def, ok := book[key]
	if !ok {
		logger.Component("spell_system").WithFields(logrus.Fields{
			"caster_id": cc.Caster.ID,
			"spell":     key,
		}).Warn("Unknown spell key.")
		return SpellResult{
			Spell:    key,
			CasterID: cc.Caster.ID,
			Unknown:  true,
			Message:  fmt.Sprintf("Неизвестное заклинание: %s.", key),
		}
	}
	return CastSpell(r, def, cc)
}

// CastSpell: сопротивление магии, затем попадание, затем эффект.
// Ячейка заклинания тратится всегда (SpellCast первым событием).
func CastSpell(r *dice.Roller, def SpellDef, cc CastContext) SpellResult {
	caster := cc.Caster
	res := SpellResult{
		Spell:    def.Key,
		CasterID: caster.ID,
		Power:    ResolveModifiers(RollSpell, caster, cc.Combat, cc.Traits),
		Events:   []domain.Event{domain.SpellCast{HeroID: caster.ID, Spell: def.Key}},
	}

	spellLogger := logger.Component("spell_system").WithFields(logrus.Fields{
		"caster_id": caster.ID,
		"spell":     def.Key,
		"effect":    string(def.Effect),
	})

	switch def.Effect {
	case EffectDamage, EffectSleep, EffectEntangle, EffectBind, EffectDispel:
		targets := foeTargets(def, cc.Targets)
		for _, m := range targets {
			m.MustBeValid()
			if def.MagicResistGate && resisted(r, res.Power.Total, m) {
				res.Records = append(res.Records, SpellEffectRecord{TargetID: m.ID, Effect: def.Effect, Resisted: true})
				continue
			}
			if excludedBy(def.Excludes, m) {
				res.Records = append(res.Records, SpellEffectRecord{TargetID: m.ID, Effect: def.Effect, Immune: true})
				continue
			}
			if def.ToHit && !spellHits(r, res.Power.Total, m) {
				res.Records = append(res.Records, SpellEffectRecord{TargetID: m.ID, Effect: def.Effect, Missed: true})
				continue
			}
			rec, events := applyFoeEffect(r, def, caster, res.Power.Total, m)
			res.Records = append(res.Records, rec)
			res.Events = append(res.Events, events...)
		}
		// Одиночная цель устояла: заклинание потрачено впустую
		if len(targets) == 1 && len(res.Records) == 1 && res.Records[0].Resisted {
			res.Wasted = true
		}
	case EffectBuff, EffectHeal:
		for _, h := range allyTargets(def, cc) {
			rec, events := applyAllyEffect(r, def, caster, h)
			res.Records = append(res.Records, rec)
			res.Events = append(res.Events, events...)
		}
	case EffectSummon:
		if def.Summon == nil {
			res.Unknown = true
			break
		}
		ally := summonedMonster(def, caster)
		res.Records = append(res.Records, SpellEffectRecord{TargetID: ally.ID, Effect: EffectSummon, Amount: ally.Remaining()})
		res.Events = append(res.Events, domain.MonsterSummoned{Monster: ally})
	default:
		res.Unknown = true
	}

	if res.Unknown {
		spellLogger.Warn("Unknown spell effect, nothing applied.")
		res.Message = fmt.Sprintf("%s читает %s, но ничего не происходит.", caster.Name, def.Name)
		return res
	}

	res.Message = spellMessage(caster, def, res)
	spellLogger.WithFields(logrus.Fields{
		"power":   res.Power.Total,
		"targets": len(res.Records),
		"wasted":  res.Wasted,
	}).Info("Spell resolved.")

	return res
}

// foeTargets - живые цели с учетом арности.
func foeTargets(def SpellDef, targets []*domain.Monster) []*domain.Monster {
	var out []*domain.Monster
	for _, m := range targets {
		if m == nil || m.IsDefeated() {
			continue
		}
		out = append(out, m)
		if def.Target != TargetAll {
			break
		}
	}
	return out
}

func allyTargets(def SpellDef, cc CastContext) []*domain.Hero {
	var pool []*domain.Hero
	switch def.Target {
	case TargetSelf:
		pool = []*domain.Hero{cc.Caster}
	case TargetAll:
		pool = cc.Party
	default:
		pool = cc.Allies
		if len(pool) == 0 {
			pool = []*domain.Hero{cc.Caster}
		}
	}

	var out []*domain.Hero
	for _, h := range pool {
		if h == nil || !h.IsAlive() {
			continue
		}
		out = append(out, h)
		if def.Target != TargetAll {
			break
		}
	}
	return out
}

// resisted: d6 + сила заклинания ниже MR. Проверяется для каждой цели отдельно.
func resisted(r *dice.Roller, power int, m *domain.Monster) bool {
	if !m.HasSpecial(domain.SpecialMagicResist) || m.MagicResist <= 0 {
		return false
	}
	roll := r.D6("magic_resist:" + m.ID)
	return roll+power < m.MagicResist
}

// spellHits: взрывающийся d6 + сила против уровня цели, единица - промах.
func spellHits(r *dice.Roller, power int, m *domain.Monster) bool {
	roll := r.ExplodingD6("spell_hit:"+m.ID, power, dice.DefaultExplodeThreshold)
	if roll.First() == 1 {
		return false
	}
	return roll.Total >= m.EffectiveLevel()
}

func excludedBy(tags []string, m *domain.Monster) bool {
	for _, tag := range tags {
		if m.HasTag(tag) {
			return true
		}
	}
	return false
}

// amount бросает выражение силы эффекта; плохое выражение дает 0.
func amount(r *dice.Roller, def SpellDef, label string) int {
	if def.Amount == "" {
		return 0
	}
	rec, err := r.Expr(label, def.Amount)
	if err != nil {
		logger.Component("spell_system").WithFields(logrus.Fields{
			"spell":  def.Key,
			"amount": def.Amount,
		}).WithError(err).Warn("Bad spell amount, using 0.")
		return 0
	}
	return rec.Total
}

// duration в раундах; EncounterDuration для "до конца встречи".
func duration(def SpellDef, caster *domain.Hero) int {
	switch def.Duration {
	case DurationTier:
		return dice.Tier(caster.Level)
	case DurationTurns:
		if def.Turns > 0 {
			return def.Turns
		}
		return 1
	default:
		return domain.EncounterDuration
	}
}

// removeFoes уменьшает численность группы или HP крупного врага.
func removeFoes(m *domain.Monster, n int) []domain.Event {
	n = min(n, m.Remaining())
	if n <= 0 {
		return nil
	}
	before := m.Remaining()
	after := before - n
	var events []domain.Event
	if m.IsMinor() {
		events = append(events, domain.MonsterCountChanged{MonsterID: m.ID, From: before, To: after})
	} else {
		events = append(events, domain.MonsterHPChanged{MonsterID: m.ID, From: before, To: after})
	}
	if after == 0 {
		events = append(events, domain.MonsterDefeated{MonsterID: m.ID})
	}
	return events
}

func applyFoeEffect(r *dice.Roller, def SpellDef, caster *domain.Hero, power int, m *domain.Monster) (SpellEffectRecord, []domain.Event) {
	rec := SpellEffectRecord{TargetID: m.ID, Effect: def.Effect}
	var events []domain.Event

	switch def.Effect {
	case EffectDamage:
		rec.Amount = amount(r, def, "spell_damage:"+m.ID)
		events = removeFoes(m, rec.Amount)
	case EffectSleep:
		// d6 + сила: столько мелких врагов засыпает (выбывают), крупный спит N раундов
		rec.Amount = r.D6("sleep:"+m.ID) + power
		if m.IsMinor() {
			events = removeFoes(m, rec.Amount)
		} else {
			turns := duration(def, caster)
			if turns < 0 {
				turns = 0
			}
			events = append(events, domain.MonsterStatusSet{MonsterID: m.ID, Flag: domain.FlagAsleep, Turns: turns})
		}
	case EffectEntangle:
		rec.Amount = max(0, duration(def, caster))
		events = append(events, domain.MonsterStatusSet{MonsterID: m.ID, Flag: domain.FlagEntangled, Turns: rec.Amount})
	case EffectBind:
		rec.Amount = max(0, duration(def, caster))
		events = append(events, domain.MonsterStatusSet{MonsterID: m.ID, Flag: domain.FlagBound, Turns: rec.Amount})
	case EffectDispel:
		if m.Status.Invisible {
			events = append(events, domain.MonsterStatusCleared{MonsterID: m.ID, Flag: domain.FlagInvisible})
		}
		if m.Status.Illusion {
			// Иллюзия рассеивается целиком
			events = append(events,
				domain.MonsterStatusCleared{MonsterID: m.ID, Flag: domain.FlagIllusion},
				domain.MonsterDefeated{MonsterID: m.ID},
			)
		}
		rec.Amount = len(events)
	}
	return rec, events
}

func applyAllyEffect(r *dice.Roller, def SpellDef, caster, h *domain.Hero) (SpellEffectRecord, []domain.Event) {
	rec := SpellEffectRecord{TargetID: h.ID, Effect: def.Effect}
	switch def.Effect {
	case EffectBuff:
		rec.Amount = amount(r, def, "spell_buff:"+h.ID)
		buff := domain.Buff{
			Spell:     def.Key,
			Stat:      def.Stat,
			Bonus:     rec.Amount,
			TurnsLeft: duration(def, caster),
			Excludes:  append([]string(nil), def.Excludes...),
		}
		return rec, []domain.Event{domain.BuffApplied{HeroID: h.ID, Buff: buff}}
	case EffectHeal:
		rec.Amount = amount(r, def, "spell_heal:"+h.ID)
		to := min(h.MaxHP, h.HP+rec.Amount)
		if to == h.HP {
			return rec, nil
		}
		return rec, []domain.Event{domain.HeroHPChanged{HeroID: h.ID, From: h.HP, To: to}}
	}
	return rec, nil
}

// summonedMonster - ID выводится из заклинателя и счетчика заклинаний, без броска.
func summonedMonster(def SpellDef, caster *domain.Hero) domain.Monster {
	s := def.Summon
	m := domain.Monster{
		ID:    fmt.Sprintf("summon-%s-%d", caster.ID, caster.Usage.SpellsCast+1),
		Name:  s.Name,
		Kind:  s.Kind,
		Level: domain.ClampLevel(s.Level),
		Tags:  append([]string(nil), s.Tags...),
		Ally:  true,
	}
	if m.Kind == domain.FoeMinor {
		m.Count, m.InitialCount = max(1, s.Count), max(1, s.Count)
	} else {
		m.Kind = domain.FoeMajor
		m.HP, m.MaxHP = max(1, s.HP), max(1, s.HP)
	}
	return m
}

func spellMessage(caster *domain.Hero, def SpellDef, res SpellResult) string {
	if res.Wasted {
		return fmt.Sprintf("%s читает %s, но цель сопротивляется магии.", caster.Name, def.Name)
	}
	affected := 0
	for _, rec := range res.Records {
		if !rec.Resisted && !rec.Missed && !rec.Immune {
			affected++
		}
	}
	return fmt.Sprintf("%s читает %s: затронуто целей %d.", caster.Name, def.Name, affected)
}
