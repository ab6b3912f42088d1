package dungeon

import (
	"errors"
	"fmt"

	"fourad-server/internal/domain"
	"fourad-server/pkg/dice"
	"fourad-server/pkg/utils"
)

// ErrNoTemplates - в каталоге нет шаблонов для нужной роли.
var ErrNoTemplates = errors.New("no monster templates for role")

// Role - строка таблицы содержимого, из которой берется шаблон.
type Role string

const (
	RoleVermin Role = "vermin"
	RoleMinion Role = "minion"
	RoleWeird  Role = "weird"
	RoleBoss   Role = "boss"
)

// MonsterTemplate - неизменяемый шаблон врага. Из него создаются записи Monster.
type MonsterTemplate struct {
	Key          string            `json:"key"`
	Name         string            `json:"name"`
	Role         Role              `json:"role"`
	Kind         domain.FoeKind    `json:"kind"`
	Level        int               `json:"level"`
	HP           int               `json:"hp,omitempty"`
	CountExpr    string            `json:"countExpr,omitempty"` // Размер группы мелких врагов: "d6+2"
	Attacks      int               `json:"attacks,omitempty"`
	DamageExpr   string            `json:"damageExpr,omitempty"`
	MoraleMod    int               `json:"moraleMod,omitempty"`
	MagicResist  int               `json:"magicResist,omitempty"`
	Special      []string          `json:"special,omitempty"`
	Tags         []string          `json:"tags,omitempty"`
	Hates        []domain.ClassKey `json:"hates,omitempty"`
	FightToDeath bool              `json:"fightToDeath,omitempty"`
}

// TemplateSource отдает шаблоны по роли в стабильном порядке.
type TemplateSource interface {
	Templates(role Role) []MonsterTemplate
}

// Pool - простая реализация TemplateSource.
type Pool map[Role][]MonsterTemplate

// Templates реализует TemplateSource.
func (p Pool) Templates(role Role) []MonsterTemplate {
	return p[role]
}

// Spawn создает запись врага из шаблона.
// ID выводится из генератора, поэтому одно зерно дает одни и те же ID.
func (t MonsterTemplate) Spawn(r *dice.Roller) (domain.Monster, error) {
	m := domain.Monster{
		ID:           utils.GenerateDeterministicID(r.Source(), t.Key+"_"),
		Name:         t.Name,
		Kind:         t.Kind,
		Level:        domain.ClampLevel(t.Level),
		Attacks:      t.Attacks,
		DamageExpr:   t.DamageExpr,
		MoraleMod:    t.MoraleMod,
		MagicResist:  t.MagicResist,
		Special:      append([]string(nil), t.Special...),
		Tags:         append([]string(nil), t.Tags...),
		Hates:        append([]domain.ClassKey(nil), t.Hates...),
		Boss:         t.Role == RoleBoss,
		FightToDeath: t.FightToDeath || t.Role == RoleBoss,
	}

	if t.Kind == domain.FoeMinor {
		rec, err := r.Expr("count:"+t.Key, t.CountExpr)
		if err != nil {
			return domain.Monster{}, fmt.Errorf("template %s count %q: %w", t.Key, t.CountExpr, err)
		}
		m.Count = max(1, rec.Total)
		m.InitialCount = m.Count
		return m, nil
	}

	m.HP = max(1, t.HP)
	m.MaxHP = m.HP
	return m, nil
}

// pickTemplate выбирает шаблон броском d6 по кругу списка.
func pickTemplate(r *dice.Roller, src TemplateSource, role Role) (MonsterTemplate, error) {
	list := src.Templates(role)
	if len(list) == 0 {
		return MonsterTemplate{}, fmt.Errorf("%s: %w", role, ErrNoTemplates)
	}
	if len(list) == 1 {
		return list[0], nil
	}
	roll := r.D6("template:" + string(role))
	return list[(roll-1)%len(list)], nil
}

// Trap - ловушка на плитке. Урон проверяется спасброском против DC.
type Trap struct {
	Key    string `json:"key"`
	Name   string `json:"name"`
	DC     int    `json:"dc"`
	Damage string `json:"damage"`
}

// Таблица ловушек (d6).
var trapTable = [6]Trap{
	{Key: "dart", Name: "Отравленный дротик", DC: 3, Damage: "1"},
	{Key: "pit", Name: "Яма", DC: 4, Damage: "1"},
	{Key: "blade", Name: "Маятник-лезвие", DC: 4, Damage: "d3"},
	{Key: "gas", Name: "Ядовитый газ", DC: 5, Damage: "1"},
	{Key: "rocks", Name: "Обвал камней", DC: 5, Damage: "d3"},
	{Key: "fire", Name: "Огненная руна", DC: 6, Damage: "2"},
}

// Таблица особых мест (d6).
var featureTable = [6]string{
	"Фонтан",
	"Алтарь богини",
	"Алтарь Хаоса",
	"Статуя",
	"Библиотека",
	"Зеркало",
}
