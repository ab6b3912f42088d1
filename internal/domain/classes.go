package domain

// ClericBlessings - благословений у жреца на приключение.
const ClericBlessings = 3

// martialClasses добавляют полный уровень к атаке.
var martialClasses = map[ClassKey]bool{
	ClassWarrior:   true,
	ClassBarbarian: true,
	ClassDwarf:     true,
	ClassElf:       true,
	ClassPaladin:   true,
}

// hybridClasses добавляют половину уровня (вниз) к атаке.
var hybridClasses = map[ClassKey]bool{
	ClassCleric: true,
	ClassRanger: true,
	ClassDruid:  true,
}

// darkvisionClasses не получают штраф темноты.
var darkvisionClasses = map[ClassKey]bool{
	ClassDwarf: true,
	ClassElf:   true,
}

// DefaultClassPriority - порядок, в котором враги выбирают цель при равном HP.
// Сначала хрупкие заклинатели, последними - бойцы в доспехах.
var DefaultClassPriority = []ClassKey{
	ClassWizard,
	ClassIllusionist,
	ClassDruid,
	ClassCleric,
	ClassHalfling,
	ClassRogue,
	ClassAssassin,
	ClassRanger,
	ClassElf,
	ClassPaladin,
	ClassDwarf,
	ClassBarbarian,
	ClassWarrior,
}

// IsMartial - класс бойца.
func (c ClassKey) IsMartial() bool { return martialClasses[c] }

// IsHybrid - гибридный класс.
func (c ClassKey) IsHybrid() bool { return hybridClasses[c] }

// HasDarkvision - класс видит в темноте.
func (c ClassKey) HasDarkvision() bool { return darkvisionClasses[c] }

// Valid - класс известен движку.
func (c ClassKey) Valid() bool {
	for _, k := range DefaultClassPriority {
		if k == c {
			return true
		}
	}
	return false
}

// PriorityIndex - место класса в списке приоритета; неизвестные классы идут в конец.
func PriorityIndex(priority []ClassKey, c ClassKey) int {
	for i, k := range priority {
		if k == c {
			return i
		}
	}
	return len(priority)
}
