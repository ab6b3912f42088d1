package domain

// ClassKey - ключ класса героя.
type ClassKey string

// Классы героев
const (
	ClassWarrior     ClassKey = "warrior"
	ClassBarbarian   ClassKey = "barbarian"
	ClassDwarf       ClassKey = "dwarf"
	ClassElf         ClassKey = "elf"
	ClassPaladin     ClassKey = "paladin"
	ClassCleric      ClassKey = "cleric"
	ClassRanger      ClassKey = "ranger"
	ClassDruid       ClassKey = "druid"
	ClassRogue       ClassKey = "rogue"
	ClassHalfling    ClassKey = "halfling"
	ClassAssassin    ClassKey = "assassin"
	ClassWizard      ClassKey = "wizard"
	ClassIllusionist ClassKey = "illusionist"
)

// LocationType - топология места боя.
type LocationType string

const (
	LocationRoom     LocationType = "room"
	LocationCorridor LocationType = "corridor"
)

// LocationWidth - ширина коридора.
type LocationWidth string

const (
	WidthNormal LocationWidth = "normal"
	WidthNarrow LocationWidth = "narrow"
)

// CombatLocation определяет правила выбора целей и штрафы оружия.
type CombatLocation struct {
	Type  LocationType  `json:"type"`
	Width LocationWidth `json:"width"`
}

// IsCorridor - бой в коридоре.
func (l CombatLocation) IsCorridor() bool {
	return l.Type == LocationCorridor
}

// IsNarrow - узкий коридор (штраф двуручному оружию).
func (l CombatLocation) IsNarrow() bool {
	return l.Type == LocationCorridor && l.Width == WidthNarrow
}

// MarchingPositions - количество мест в походном порядке.
const MarchingPositions = 4

// MarchingOrder - позиция -> индекс героя в партии. -1 означает пустое место.
// Используется только в коридорах.
type MarchingOrder [MarchingPositions]int

// DefaultMarchingOrder ставит первых четырех героев по порядку.
func DefaultMarchingOrder(partySize int) MarchingOrder {
	var m MarchingOrder
	for i := range m {
		if i < partySize {
			m[i] = i
		} else {
			m[i] = -1
		}
	}
	return m
}

// ItemKind - категория предмета.
type ItemKind string

// Категории предметов
const (
	ItemWeapon ItemKind = "weapon"
	ItemRanged ItemKind = "ranged"
	ItemArmor  ItemKind = "armor"
	ItemShield ItemKind = "shield"
	ItemLight  ItemKind = "light"
	ItemMisc   ItemKind = "misc"
)

// FoeKind - мелкие враги (группа) или крупный враг (одна сущность).
type FoeKind string

const (
	FoeMinor FoeKind = "minor"
	FoeMajor FoeKind = "major"
)

// Bonus - плоские бонусы к трем броскам.
type Bonus struct {
	Attack  int `json:"attack,omitempty"`
	Defense int `json:"defense,omitempty"`
	Save    int `json:"save,omitempty"`
}

// ClampLevel приводит уровень врага к минимуму 1 перед делением и сравнением.
func ClampLevel(level int) int {
	if level < 1 {
		return 1
	}
	return level
}
