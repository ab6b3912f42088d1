package systems

import (
	"strings"

	"fourad-server/internal/domain"
	"fourad-server/pkg/dice"
	"fourad-server/pkg/logger"

	"github.com/sirupsen/logrus"
)

// RollKind - какой бросок собирает модификаторы.
type RollKind uint8

const (
	RollAttack RollKind = iota + 1
	RollDefense
	RollSave
	RollSpell
)

var rollKindToString = map[RollKind]string{
	RollAttack:  "attack",
	RollDefense: "defense",
	RollSave:    "save",
	RollSpell:   "spell",
}

func (k RollKind) String() string {
	if s, ok := rollKindToString[k]; ok {
		return s
	}
	return "unknown"
}

// SourceKind - источник урона для спасброска.
type SourceKind string

const (
	SourceMonster SourceKind = "monster"
	SourceTrap    SourceKind = "trap"
	SourceSpell   SourceKind = "spell"
	SourceOther   SourceKind = "other"
)

// CombatContext - неизменяемый набор опций боя. Каждое поле читает ровно один шаг конвейера.
// Нулевое значение = все выключено.
type CombatContext struct {
	HasLightSource    bool                  // EnvironmentStep
	Location          domain.CombatLocation // EnvironmentStep
	Environment       string                // EnvironmentStep
	RageActive        bool                  // CombatStateStep
	Blessed           bool                  // CombatStateStep
	Subdual           bool                  // CombatStateStep
	Mounted           bool                  // CombatStateStep
	Withdrawing       bool                  // CombatStateStep
	CastingBonus      int                   // CombatStateStep
	OutnumberMinorFoe bool                  // ClassStep
	FirstAttackTarget bool                  // ClassStep
	RangedDefense     bool                  // ClassStep
	SaveSource        SourceKind            // ClassStep
	DualWielding      bool                  // EquipmentStep
	IgnoreShield      bool                  // EquipmentStep
	Ranged            bool                  // EquipmentStep (и штрафы оружия)
	Target            *domain.Monster       // цель атаки или атакующий враг при защите
}

// Step - шаг конвейера модификаторов. Порядок фиксирован.
type Step uint8

const (
	StepClass Step = iota + 1
	StepEquipment
	StepEnvironment
	StepCombatState
	StepTrait
	StepSpellBuff
	StepLegacy
)

var stepToString = map[Step]string{
	StepClass:       "class",
	StepEquipment:   "equipment",
	StepEnvironment: "environment",
	StepCombatState: "combat_state",
	StepTrait:       "trait",
	StepSpellBuff:   "spell_buff",
	StepLegacy:      "legacy",
}

func (s Step) String() string {
	if v, ok := stepToString[s]; ok {
		return v
	}
	return "unknown"
}

// Теги модификаторов, на которые ссылаются резолверы.
const (
	TagDarkness       = "darkness"
	TagNarrowCorridor = "narrow_corridor"
	TagFog            = "fog"
	TagRage           = "rage"
	TagBlessed        = "blessed"
	TagUnarmed        = "unarmed"
	TagSubdual        = "subdual"
	TagVsBound        = "vs_bound"
	TagMounted        = "mounted"
	TagWithdrawing    = "withdrawing"
	TagCastingBonus   = "casting_bonus"
	TagShield         = "shield"
	TagDualWield      = "dual_wield"
	TagLegacy         = "legacy_equipment"
)

// Modifier - одно знаковое слагаемое с тегом.
type Modifier struct {
	Step  Step   `json:"step"`
	Tag   string `json:"tag"`
	Value int    `json:"value"`
}

// Breakdown - итог и упорядоченный список слагаемых.
type Breakdown struct {
	Total int        `json:"total"`
	Mods  []Modifier `json:"mods"`
}

// Tags возвращает теги в порядке конвейера.
func (b Breakdown) Tags() []string {
	tags := make([]string, len(b.Mods))
	for i, m := range b.Mods {
		tags[i] = m.Tag
	}
	return tags
}

// Has проверяет наличие тега.
func (b Breakdown) Has(tag string) bool {
	for _, m := range b.Mods {
		if m.Tag == tag {
			return true
		}
	}
	return false
}

// StepTotal - сумма слагаемых одного шага.
func (b Breakdown) StepTotal(s Step) int {
	total := 0
	for _, m := range b.Mods {
		if m.Step == s {
			total += m.Value
		}
	}
	return total
}

// TraitDef - черта героя. Таблица черт - внешние данные.
type TraitDef struct {
	Key     string `json:"key"`
	Name    string `json:"name"`
	Attack  int    `json:"attack,omitempty"`
	Defense int    `json:"defense,omitempty"`
	Save    int    `json:"save,omitempty"`
	Spell   int    `json:"spell,omitempty"`
	PerTier bool   `json:"perTier,omitempty"` // Бонус умножается на Tier уровня
	VsTag   string `json:"vsTag,omitempty"`   // Только против врагов с этим тегом
}

// TraitTable - черты по ключу.
type TraitTable map[string]TraitDef

// ModifierRequest - вход каждого шага.
type ModifierRequest struct {
	Kind   RollKind
	Hero   *domain.Hero
	Ctx    CombatContext
	Traits TraitTable
}

// Contributor - один шаг конвейера.
type Contributor func(req ModifierRequest) []Modifier

// Pipeline - упорядоченные шаги. Сумма коммутативна, но порядок тегов входит в аудит.
var Pipeline = []Contributor{
	ClassStep,
	EquipmentStep,
	EnvironmentStep,
	CombatStateStep,
	TraitStep,
	SpellBuffStep,
	LegacyStep,
}

// ResolveModifiers собирает слагаемые всех шагов по порядку.
func ResolveModifiers(kind RollKind, hero *domain.Hero, ctx CombatContext, traits TraitTable) Breakdown {
	req := ModifierRequest{Kind: kind, Hero: hero, Ctx: ctx, Traits: traits}
	var b Breakdown
	for _, step := range Pipeline {
		for _, m := range step(req) {
			b.Mods = append(b.Mods, m)
			b.Total += m.Value
		}
	}

	logger.Component("modifier_resolver").WithFields(logrus.Fields{
		"hero_id": hero.ID,
		"roll":    kind.String(),
		"total":   b.Total,
		"tags":    strings.Join(b.Tags(), ","),
	}).Debug("Modifiers resolved.")

	return b
}

// mod создает слагаемое; нулевые значения отбрасываются.
func mod(out []Modifier, step Step, tag string, value int) []Modifier {
	if value == 0 {
		return out
	}
	return append(out, Modifier{Step: step, Tag: tag, Value: value})
}

func classTag(c domain.ClassKey, cond string) string {
	if cond == "" {
		return "class:" + string(c)
	}
	return "class:" + string(c) + ":" + cond
}

func targetHas(t *domain.Monster, tag string) bool {
	return t != nil && t.HasTag(tag)
}

// ClassStep - врожденный бонус класса (шаг 1).
func ClassStep(req ModifierRequest) []Modifier {
	h, ctx := req.Hero, req.Ctx
	L, c := h.Level, h.Class
	var out []Modifier

	switch req.Kind {
	case RollAttack:
		switch {
		case c.IsMartial():
			out = mod(out, StepClass, classTag(c, ""), L)
		case c == domain.ClassCleric && targetHas(ctx.Target, domain.TagUndead):
			out = mod(out, StepClass, classTag(c, "undead"), L)
		case c == domain.ClassRanger && ctx.Ranged:
			out = mod(out, StepClass, classTag(c, "ranged"), L)
		case c.IsHybrid():
			out = mod(out, StepClass, classTag(c, ""), L/2)
		case c == domain.ClassRogue && ctx.OutnumberMinorFoe:
			out = mod(out, StepClass, classTag(c, "outnumber"), L)
		case c == domain.ClassHalfling && targetHas(ctx.Target, domain.TagLarge):
			out = mod(out, StepClass, classTag(c, "large"), L)
		case c == domain.ClassAssassin && ctx.FirstAttackTarget:
			out = mod(out, StepClass, classTag(c, "first_strike"), L)
		}
	case RollDefense:
		switch c {
		case domain.ClassRogue:
			out = mod(out, StepClass, classTag(c, ""), L)
		case domain.ClassHalfling:
			if targetHas(ctx.Target, domain.TagLarge) {
				out = mod(out, StepClass, classTag(c, "large"), L)
			}
			if ctx.RangedDefense {
				out = mod(out, StepClass, classTag(c, "ranged"), 1)
			}
		case domain.ClassDwarf:
			if targetHas(ctx.Target, domain.TagLarge) {
				out = mod(out, StepClass, classTag(c, "large"), 1)
			}
		}
	case RollSave:
		switch {
		case c == domain.ClassRogue && ctx.SaveSource == SourceTrap:
			out = mod(out, StepClass, classTag(c, "trap"), L)
		case c == domain.ClassBarbarian && ctx.SaveSource == SourceMonster:
			out = mod(out, StepClass, classTag(c, "monster"), L/2)
		}
	case RollSpell:
		// Уровень заклинателя
		out = mod(out, StepClass, classTag(c, ""), L)
	}
	return out
}

func equipTag(it *domain.Item) string {
	return "equip:" + it.Key
}

// EquipmentStep - бонусы экипировки (шаг 2).
func EquipmentStep(req ModifierRequest) []Modifier {
	h, ctx := req.Hero, req.Ctx
	var out []Modifier

	switch req.Kind {
	case RollAttack:
		if ctx.Ranged {
			if w := h.RangedWeapon(); w != nil {
				out = mod(out, StepEquipment, equipTag(w), w.Attack)
			}
			return out
		}
		if w := h.Weapon(); w != nil {
			out = mod(out, StepEquipment, equipTag(w), w.Attack)
		}
		if ctx.DualWielding {
			if off := h.OffHandWeapon(); off != nil && off.LightWeapon {
				out = mod(out, StepEquipment, TagDualWield, 1)
			}
		}
	case RollDefense:
		for i := range h.Equipment {
			it := &h.Equipment[i]
			if it.Kind == domain.ItemWeapon || it.Kind == domain.ItemRanged {
				continue
			}
			if it.Kind == domain.ItemShield && ctx.IgnoreShield {
				continue
			}
			out = mod(out, StepEquipment, equipTag(it), it.Defense)
		}
	case RollSave:
		for i := range h.Equipment {
			it := &h.Equipment[i]
			out = mod(out, StepEquipment, equipTag(it), it.Save)
		}
		if h.Shield() != nil && !ctx.IgnoreShield {
			out = mod(out, StepEquipment, TagShield, 1)
		}
	}
	return out
}

// EnvironmentStep - темнота, узкие коридоры, туман (шаг 3).
func EnvironmentStep(req ModifierRequest) []Modifier {
	h, ctx := req.Hero, req.Ctx
	var out []Modifier

	if req.Kind == RollSpell {
		return nil
	}

	// Свет общий на партию; темновидение у класса
	if !ctx.HasLightSource && !h.Class.HasDarkvision() {
		out = mod(out, StepEnvironment, TagDarkness, -2)
	}

	if req.Kind != RollAttack {
		return out
	}
	if ctx.Ranged {
		if ctx.Environment == "fog" {
			out = mod(out, StepEnvironment, TagFog, -1)
		}
		return out
	}
	if ctx.Location.IsNarrow() {
		if w := h.Weapon(); w != nil && w.TwoHanded && !w.LightWeapon {
			out = mod(out, StepEnvironment, TagNarrowCorridor, -1)
		}
	}
	return out
}

// CombatStateStep - ярость, благословение, безоружность и прочие боевые флаги (шаг 4).
func CombatStateStep(req ModifierRequest) []Modifier {
	h, ctx := req.Hero, req.Ctx
	var out []Modifier
	blessed := ctx.Blessed || h.Status.Blessed

	switch req.Kind {
	case RollAttack:
		if ctx.RageActive || h.Status.Raging {
			out = mod(out, StepCombatState, TagRage, 1)
		}
		if blessed {
			out = mod(out, StepCombatState, TagBlessed, 1)
		}
		unarmed := h.Weapon() == nil
		if ctx.Ranged {
			unarmed = h.RangedWeapon() == nil
		}
		if unarmed {
			out = mod(out, StepCombatState, TagUnarmed, -2)
		}
		if ctx.Subdual {
			out = mod(out, StepCombatState, TagSubdual, -1)
		}
		if ctx.Target != nil && ctx.Target.Status.Bound {
			out = mod(out, StepCombatState, TagVsBound, 2)
		}
		if ctx.Mounted && !targetHas(ctx.Target, domain.TagMounted) {
			out = mod(out, StepCombatState, TagMounted, 1)
		}
	case RollDefense:
		if blessed {
			out = mod(out, StepCombatState, TagBlessed, 1)
		}
		if ctx.Withdrawing {
			out = mod(out, StepCombatState, TagWithdrawing, 1)
		}
	case RollSave:
		if blessed {
			out = mod(out, StepCombatState, TagBlessed, 1)
		}
	case RollSpell:
		out = mod(out, StepCombatState, TagCastingBonus, ctx.CastingBonus)
	}
	return out
}

// TraitStep - бонус единственной черты героя (шаг 5).
func TraitStep(req ModifierRequest) []Modifier {
	key := req.Hero.Trait
	if key == "" {
		return nil
	}
	def, ok := req.Traits[key]
	if !ok {
		logger.Component("modifier_resolver").WithFields(logrus.Fields{
			"hero_id": req.Hero.ID,
			"trait":   key,
		}).Warn("Unknown trait key, contributing 0.")
		return []Modifier{{Step: StepTrait, Tag: "trait:unknown:" + key}}
	}
	if def.VsTag != "" && !targetHas(req.Ctx.Target, def.VsTag) {
		return nil
	}

	value := 0
	switch req.Kind {
	case RollAttack:
		value = def.Attack
	case RollDefense:
		value = def.Defense
	case RollSave:
		value = def.Save
	case RollSpell:
		value = def.Spell
	}
	if def.PerTier {
		value *= dice.Tier(req.Hero.Level)
	}
	return mod(nil, StepTrait, "trait:"+key, value)
}

// SpellBuffStep - активные баффы заклинаний (шаг 6).
func SpellBuffStep(req ModifierRequest) []Modifier {
	var stat domain.BuffStat
	switch req.Kind {
	case RollAttack:
		stat = domain.BuffAttack
	case RollDefense:
		stat = domain.BuffDefense
	case RollSave:
		stat = domain.BuffSave
	default:
		return nil
	}

	var out []Modifier
	for _, b := range req.Hero.Buffs {
		if b.Stat != stat || b.TurnsLeft == 0 {
			continue
		}
		excluded := false
		for _, tag := range b.Excludes {
			if targetHas(req.Ctx.Target, tag) {
				excluded = true
				break
			}
		}
		if excluded {
			continue
		}
		out = mod(out, StepSpellBuff, "spell:"+b.Spell, b.Bonus)
	}
	return out
}

// LegacyStep - старый сводный бонус снаряжения, отдельным последним слагаемым (шаг 7).
func LegacyStep(req ModifierRequest) []Modifier {
	var v int
	switch req.Kind {
	case RollAttack:
		v = req.Hero.Legacy.Attack
	case RollDefense:
		v = req.Hero.Legacy.Defense
	case RollSave:
		v = req.Hero.Legacy.Save
	}
	return mod(nil, StepLegacy, TagLegacy, v)
}
