package domain

// Монстр с этим спец-тегом требует проверки сопротивления магии.
const SpecialMagicResist = "magic_resist"

// Теги врагов, на которые смотрят модификаторы.
const (
	TagUndead   = "undead"
	TagLarge    = "large"
	TagMindless = "mindless"
	TagMounted  = "mounted"
	TagFire     = "fire"
)

// MonsterStatus - флаги состояния врага со счетчиками раундов.
type MonsterStatus struct {
	Asleep         bool `json:"asleep,omitempty"`
	AsleepTurns    int  `json:"asleepTurns,omitempty"`
	Bound          bool `json:"bound,omitempty"`
	BoundTurns     int  `json:"boundTurns,omitempty"`
	Entangled      bool `json:"entangled,omitempty"`
	EntangledTurns int  `json:"entangledTurns,omitempty"`
	Subdued        bool `json:"subdued,omitempty"`
	Fled           bool `json:"fled,omitempty"`
	Invisible      bool `json:"invisible,omitempty"`
	Illusion       bool `json:"illusion,omitempty"`
}

// Monster - крупный враг (HP/MaxHP) или группа мелких (Count/InitialCount).
type Monster struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Kind  FoeKind `json:"kind"`
	Level int     `json:"level"`

	// Крупный враг
	HP    int `json:"hp,omitempty"`
	MaxHP int `json:"maxHp,omitempty"`

	// Группа мелких врагов
	Count        int `json:"count,omitempty"`
	InitialCount int `json:"initialCount,omitempty"`

	Attacks     int        `json:"attacks,omitempty"`    // Атак за раунд у крупного врага (0 = 1)
	DamageExpr  string     `json:"damageExpr,omitempty"` // Повышенный урон: "2", "d3"
	MoraleMod   int        `json:"moraleMod,omitempty"`
	MagicResist int        `json:"magicResist,omitempty"`
	Special     []string   `json:"special,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	Hates       []ClassKey `json:"hates,omitempty"`

	Boss         bool `json:"boss,omitempty"`
	FightToDeath bool `json:"fightToDeath,omitempty"` // Враждебная реакция: без проверки морали
	Ally         bool `json:"ally,omitempty"`         // Призванный союзник партии

	Status MonsterStatus `json:"status"`

	// Одноразовые флаги на встречу
	MoraleChecked bool `json:"moraleChecked,omitempty"`
	LevelReduced  bool `json:"levelReduced,omitempty"`
}

// IsMinor - группа мелких врагов.
func (m *Monster) IsMinor() bool {
	return m.Kind == FoeMinor
}

// IsDefeated - враг повержен или сбежал.
func (m *Monster) IsDefeated() bool {
	if m.Status.Fled {
		return true
	}
	if m.IsMinor() {
		return m.Count <= 0
	}
	return m.HP <= 0
}

// CanAct - враг способен атаковать в этом раунде.
func (m *Monster) CanAct() bool {
	if m.IsDefeated() || m.Ally {
		return false
	}
	s := m.Status
	return !s.Asleep && !s.Bound && !s.Entangled && !s.Subdued
}

// AttacksPerRound для крупного врага, минимум 1.
func (m *Monster) AttacksPerRound() int {
	if m.Attacks < 1 {
		return 1
	}
	return m.Attacks
}

// EffectiveLevel - уровень для деления и порогов, не ниже 1.
func (m *Monster) EffectiveLevel() int {
	return ClampLevel(m.Level)
}

// HasTag проверяет тег врага.
func (m *Monster) HasTag(tag string) bool {
	return contains(m.Tags, tag)
}

// HasSpecial проверяет спец-способность.
func (m *Monster) HasSpecial(key string) bool {
	return contains(m.Special, key)
}

// HatesClass - враг предпочитает атаковать этот класс.
func (m *Monster) HatesClass(c ClassKey) bool {
	for _, h := range m.Hates {
		if h == c {
			return true
		}
	}
	return false
}

// Remaining - оставшаяся "живость": Count для группы, HP для крупного.
func (m *Monster) Remaining() int {
	if m.IsMinor() {
		return m.Count
	}
	return m.HP
}

// Clone возвращает копию врага.
func (m *Monster) Clone() *Monster {
	c := *m
	c.Special = append([]string(nil), m.Special...)
	c.Tags = append([]string(nil), m.Tags...)
	c.Hates = append([]ClassKey(nil), m.Hates...)
	return &c
}

// MustBeValid паникует при нарушении инварианта: отрицательный счетчик означает
// испорченное состояние выше по течению.
func (m *Monster) MustBeValid() {
	if m.Count < 0 || m.HP < 0 {
		panic("invariant violated: monster " + m.ID + " has negative count or hp")
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
