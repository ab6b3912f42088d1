// Package catalog загружает таблицы данных: снаряжение, черты, заклинания,
// шаблоны врагов и готовых героев. Движок только читает каталог.
package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"fourad-server/internal/domain"
	"fourad-server/internal/systems"
	"fourad-server/pkg/dice"
	"fourad-server/pkg/dungeon"
	"fourad-server/pkg/logger"

	"github.com/sirupsen/logrus"
)

//go:embed data/default.json
var defaultData []byte

var (
	ErrInvalid         = errors.New("invalid catalog")
	ErrUnknownItem     = errors.New("unknown item")
	ErrUnknownTemplate = errors.New("unknown monster template")
	ErrUnknownHero     = errors.New("unknown hero template")
)

// HeroTemplate - готовый герой. Снаряжение задается ключами предметов.
type HeroTemplate struct {
	Key       string          `json:"key"`
	Name      string          `json:"name"`
	Class     domain.ClassKey `json:"class"`
	Level     int             `json:"level"`
	HP        int             `json:"hp"`
	Equipment []string        `json:"equipment,omitempty"`
	Trait     string          `json:"trait,omitempty"`
}

type file struct {
	Items    []domain.Item             `json:"items"`
	Traits   []systems.TraitDef        `json:"traits"`
	Spells   []systems.SpellDef        `json:"spells"`
	Monsters []dungeon.MonsterTemplate `json:"monsters"`
	Heroes   []HeroTemplate            `json:"heroes"`
	Party    []string                  `json:"party"`
}

// Catalog - разобранные таблицы. После загрузки не меняется,
// поэтому один экземпляр можно читать из нескольких горутин.
type Catalog struct {
	Items    map[string]domain.Item
	Traits   systems.TraitTable
	Spells   systems.Spellbook
	Monsters map[string]dungeon.MonsterTemplate
	Heroes   map[string]HeroTemplate
	Party    []string

	byRole map[dungeon.Role][]dungeon.MonsterTemplate
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Default возвращает встроенный каталог.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = Parse(defaultData)
	})
	return defaultCatalog, defaultErr
}

// Load читает каталог из файла.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse разбирает и проверяет JSON каталога.
func Parse(data []byte) (*Catalog, error) {
	// 1. Разбор. Лишние поля - ошибка в данных.
	var f file
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	c := &Catalog{
		Items:    make(map[string]domain.Item, len(f.Items)),
		Traits:   make(systems.TraitTable, len(f.Traits)),
		Spells:   make(systems.Spellbook, len(f.Spells)),
		Monsters: make(map[string]dungeon.MonsterTemplate, len(f.Monsters)),
		Heroes:   make(map[string]HeroTemplate, len(f.Heroes)),
		Party:    f.Party,
		byRole:   make(map[dungeon.Role][]dungeon.MonsterTemplate),
	}

	// 2. Предметы, черты, заклинания
	for _, it := range f.Items {
		if it.Key == "" {
			return nil, fmt.Errorf("%w: item without key", ErrInvalid)
		}
		if _, dup := c.Items[it.Key]; dup {
			return nil, fmt.Errorf("%w: duplicate item %q", ErrInvalid, it.Key)
		}
		c.Items[it.Key] = it
	}
	for _, tr := range f.Traits {
		if _, dup := c.Traits[tr.Key]; dup || tr.Key == "" {
			return nil, fmt.Errorf("%w: bad trait key %q", ErrInvalid, tr.Key)
		}
		c.Traits[tr.Key] = tr
	}
	for _, sp := range f.Spells {
		if _, dup := c.Spells[sp.Key]; dup || sp.Key == "" {
			return nil, fmt.Errorf("%w: bad spell key %q", ErrInvalid, sp.Key)
		}
		if sp.Amount != "" {
			if err := dice.ValidateExpr(sp.Amount); err != nil {
				return nil, fmt.Errorf("%w: spell %s amount %q: %v", ErrInvalid, sp.Key, sp.Amount, err)
			}
		}
		c.Spells[sp.Key] = sp
	}

	// 3. Шаблоны врагов. Порядок в файле сохраняется: от него зависит выбор шаблона броском.
	for _, m := range f.Monsters {
		if err := validateTemplate(m); err != nil {
			return nil, err
		}
		if _, dup := c.Monsters[m.Key]; dup {
			return nil, fmt.Errorf("%w: duplicate monster %q", ErrInvalid, m.Key)
		}
		c.Monsters[m.Key] = m
		c.byRole[m.Role] = append(c.byRole[m.Role], m)
	}

	// 4. Герои и партия по умолчанию
	for _, h := range f.Heroes {
		if !h.Class.Valid() {
			return nil, fmt.Errorf("%w: hero %s has unknown class %q", ErrInvalid, h.Key, h.Class)
		}
		for _, key := range h.Equipment {
			if _, ok := c.Items[key]; !ok {
				return nil, fmt.Errorf("%w: hero %s: %w %q", ErrInvalid, h.Key, ErrUnknownItem, key)
			}
		}
		if h.Trait != "" {
			if _, ok := c.Traits[h.Trait]; !ok {
				return nil, fmt.Errorf("%w: hero %s has unknown trait %q", ErrInvalid, h.Key, h.Trait)
			}
		}
		c.Heroes[h.Key] = h
	}
	for _, key := range c.Party {
		if _, ok := c.Heroes[key]; !ok {
			return nil, fmt.Errorf("%w: party member %q: %w", ErrInvalid, key, ErrUnknownHero)
		}
	}

	logger.Component("catalog").WithFields(logrus.Fields{
		"items":    len(c.Items),
		"traits":   len(c.Traits),
		"spells":   len(c.Spells),
		"monsters": len(c.Monsters),
		"heroes":   len(c.Heroes),
	}).Debug("Catalog loaded.")

	return c, nil
}

func validateTemplate(m dungeon.MonsterTemplate) error {
	switch m.Role {
	case dungeon.RoleVermin, dungeon.RoleMinion, dungeon.RoleWeird, dungeon.RoleBoss:
	default:
		return fmt.Errorf("%w: monster %s has unknown role %q", ErrInvalid, m.Key, m.Role)
	}
	switch m.Kind {
	case domain.FoeMinor:
		if err := dice.ValidateExpr(m.CountExpr); err != nil {
			return fmt.Errorf("%w: monster %s count %q: %v", ErrInvalid, m.Key, m.CountExpr, err)
		}
	case domain.FoeMajor:
		if m.HP < 1 {
			return fmt.Errorf("%w: monster %s needs hp", ErrInvalid, m.Key)
		}
	default:
		return fmt.Errorf("%w: monster %s has unknown kind %q", ErrInvalid, m.Key, m.Kind)
	}
	if m.DamageExpr != "" {
		if err := dice.ValidateExpr(m.DamageExpr); err != nil {
			return fmt.Errorf("%w: monster %s damage %q: %v", ErrInvalid, m.Key, m.DamageExpr, err)
		}
	}
	return nil
}

// Templates реализует dungeon.TemplateSource.
func (c *Catalog) Templates(role dungeon.Role) []dungeon.MonsterTemplate {
	return c.byRole[role]
}

// Item возвращает предмет по ключу.
func (c *Catalog) Item(key string) (domain.Item, error) {
	it, ok := c.Items[key]
	if !ok {
		return domain.Item{}, fmt.Errorf("%w: %q", ErrUnknownItem, key)
	}
	return it, nil
}

// Monster возвращает шаблон врага по ключу.
func (c *Catalog) Monster(key string) (dungeon.MonsterTemplate, error) {
	m, ok := c.Monsters[key]
	if !ok {
		return dungeon.MonsterTemplate{}, fmt.Errorf("%w: %q", ErrUnknownTemplate, key)
	}
	return m, nil
}

// NewHero собирает героя из шаблона. Пустой id заменяется ключом шаблона.
func (c *Catalog) NewHero(key, id string) (*domain.Hero, error) {
	t, ok := c.Heroes[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownHero, key)
	}
	if id == "" {
		id = t.Key
	}

	h := &domain.Hero{
		ID:    id,
		Name:  t.Name,
		Class: t.Class,
		Level: max(1, t.Level),
		HP:    t.HP,
		MaxHP: t.HP,
		Trait: t.Trait,
	}
	for _, k := range t.Equipment {
		it, err := c.Item(k)
		if err != nil {
			return nil, err
		}
		h.Equipment = append(h.Equipment, it)
	}
	return h, nil
}

// DefaultParty собирает партию по умолчанию.
func (c *Catalog) DefaultParty() ([]*domain.Hero, error) {
	return c.NewParty(c.Party)
}

// NewParty собирает партию по ключам шаблонов. ID героя - ключ шаблона,
// повторный ключ получает номер: warrior, warrior_2, warrior_3.
func (c *Catalog) NewParty(keys []string) ([]*domain.Hero, error) {
	party := make([]*domain.Hero, 0, len(keys))
	seen := make(map[string]int, len(keys))
	for _, k := range keys {
		seen[k]++
		id := ""
		if n := seen[k]; n > 1 {
			id = fmt.Sprintf("%s_%d", k, n)
		}
		h, err := c.NewHero(k, id)
		if err != nil {
			return nil, err
		}
		party = append(party, h)
	}
	return party, nil
}
