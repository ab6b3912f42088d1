package domain

// Item - экипированный предмет героя. Таблицы снаряжения внешние, движок только читает поля.
type Item struct {
	Key         string   `json:"key"`
	Name        string   `json:"name"`
	Kind        ItemKind `json:"kind"`
	Attack      int      `json:"attack,omitempty"`
	Defense     int      `json:"defense,omitempty"`
	Save        int      `json:"save,omitempty"`
	Masterwork  bool     `json:"masterwork,omitempty"`
	TwoHanded   bool     `json:"twoHanded,omitempty"`
	LightWeapon bool     `json:"lightWeapon,omitempty"` // Легкое оружие: без штрафа в узком коридоре
	LightSource bool     `json:"lightSource,omitempty"` // Факел, фонарь
	OffHand     bool     `json:"offHand,omitempty"`
}

// BuffStat - бросок, который усиливает заклинание.
type BuffStat string

const (
	BuffAttack  BuffStat = "attack"
	BuffDefense BuffStat = "defense"
	BuffSave    BuffStat = "save"
)

// EncounterDuration - бафф действует до конца встречи.
const EncounterDuration = -1

// Buff - активный эффект заклинания на герое.
type Buff struct {
	Spell     string   `json:"spell"`
	Stat      BuffStat `json:"stat"`
	Bonus     int      `json:"bonus"`
	TurnsLeft int      `json:"turnsLeft"`          // EncounterDuration или оставшиеся раунды
	Excludes  []string `json:"excludes,omitempty"` // Теги врагов, против которых не работает
}

// AbilityUsage - счетчики способностей за приключение.
type AbilityUsage struct {
	BlessingsUsed int `json:"blessingsUsed"`
	LuckUsed      int `json:"luckUsed"`
	SpellsCast    int `json:"spellsCast"`
	RagesUsed     int `json:"ragesUsed"`
}

// HeroStatus - флаги состояния героя.
type HeroStatus struct {
	Blessed   bool `json:"blessed,omitempty"`
	Raging    bool `json:"raging,omitempty"`
	Hidden    bool `json:"hidden,omitempty"`
	Wounded   bool `json:"wounded,omitempty"`
	Dead      bool `json:"dead,omitempty"`
	Protected bool `json:"protected,omitempty"`
}

// Hero - член партии. Меняется только через события (см. ApplyToHero).
type Hero struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Class     ClassKey     `json:"class"`
	Level     int          `json:"level"`
	HP        int          `json:"hp"`
	MaxHP     int          `json:"maxHp"`
	Equipment []Item       `json:"equipment,omitempty"`
	Trait     string       `json:"trait,omitempty"`
	Usage     AbilityUsage `json:"usage"`
	Status    HeroStatus   `json:"status"`
	Buffs     []Buff       `json:"buffs,omitempty"`

	// Legacy - старый сводный бонус снаряжения. Считается отдельным последним слагаемым.
	Legacy Bonus `json:"legacy,omitempty"`
}

// IsAlive - герой может действовать.
func (h *Hero) IsAlive() bool {
	return !h.Status.Dead && h.HP > 0
}

// firstOf ищет первый предмет нужной категории.
func (h *Hero) firstOf(kind ItemKind, offHand bool) *Item {
	for i := range h.Equipment {
		it := &h.Equipment[i]
		if it.Kind == kind && it.OffHand == offHand {
			return it
		}
	}
	return nil
}

// Weapon - основное оружие ближнего боя.
func (h *Hero) Weapon() *Item { return h.firstOf(ItemWeapon, false) }

// OffHandWeapon - оружие во второй руке.
func (h *Hero) OffHandWeapon() *Item { return h.firstOf(ItemWeapon, true) }

// RangedWeapon - лук, праща, арбалет.
func (h *Hero) RangedWeapon() *Item { return h.firstOf(ItemRanged, false) }

// Armor - доспех.
func (h *Hero) Armor() *Item { return h.firstOf(ItemArmor, false) }

// Shield - щит.
func (h *Hero) Shield() *Item { return h.firstOf(ItemShield, false) }

// CarriesLight - у героя есть активный источник света.
func (h *Hero) CarriesLight() bool {
	for _, it := range h.Equipment {
		if it.LightSource {
			return true
		}
	}
	return false
}

// LuckCharges - сколько раз за приключение полурослик может использовать удачу.
func (h *Hero) LuckCharges() int {
	if h.Class != ClassHalfling {
		return 0
	}
	return max(0, h.Level+1-h.Usage.LuckUsed)
}

// BlessingCharges - оставшиеся благословения жреца.
func (h *Hero) BlessingCharges() int {
	if h.Class != ClassCleric {
		return 0
	}
	return max(0, ClericBlessings-h.Usage.BlessingsUsed)
}

// Clone возвращает глубокую копию (для расчетов без изменения состояния партии).
func (h *Hero) Clone() *Hero {
	c := *h
	c.Equipment = append([]Item(nil), h.Equipment...)
	c.Buffs = make([]Buff, len(h.Buffs))
	for i, b := range h.Buffs {
		b.Excludes = append([]string(nil), b.Excludes...)
		c.Buffs[i] = b
	}
	return &c
}

// PartyHasLight - свет общий на партию: достаточно одного живого героя с фонарем.
func PartyHasLight(heroes []*Hero) bool {
	for _, h := range heroes {
		if h != nil && h.IsAlive() && h.CarriesLight() {
			return true
		}
	}
	return false
}
