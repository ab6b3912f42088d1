// Package admin - отладочные команды. Регистрируются только при включенном debug.
package admin

import (
	"errors"
	"fmt"

	"fourad-server/internal/domain"
	"fourad-server/internal/engine/handlers"
)

// KillPayload: { "monsterId": "goblin_1a2b3c4d" }
type KillPayload struct {
	MonsterID string `json:"monsterId"`
}

func (p KillPayload) Validate() error {
	if p.MonsterID == "" {
		return errors.New("monsterId is required")
	}
	return nil
}

// SpawnPayload: { "template": "orc", "count": 3 }
type SpawnPayload struct {
	Template string `json:"template"`
	Count    int    `json:"count,omitempty"`
}

func (p SpawnPayload) Validate() error {
	if p.Template == "" {
		return errors.New("template is required")
	}
	if p.Count < 0 {
		return errors.New("count cannot be negative")
	}
	return nil
}

// HandleHeal восстанавливает HP всей партии и снимает ранения.
func HandleHeal(ctx handlers.Context) (handlers.Result, error) {
	var events []domain.Event
	for _, h := range ctx.Encounter.Heroes {
		events = append(events,
			domain.HeroHPChanged{HeroID: h.ID, From: h.HP, To: h.MaxHP},
			domain.HeroStatusCleared{HeroID: h.ID, Flag: domain.FlagDead},
			domain.HeroStatusCleared{HeroID: h.ID, Flag: domain.FlagWounded},
		)
	}
	ctx.Encounter.Inject("admin heal", events...)
	return handlers.Result{Msg: "Партия полностью исцелена.", MsgType: "INFO"}, nil
}

// HandleKill повергает врага без броска.
func HandleKill(ctx handlers.Context, p KillPayload) (handlers.Result, error) {
	m, err := ctx.Encounter.Monster(p.MonsterID)
	if err != nil {
		return handlers.Result{}, err
	}
	outcome := ctx.Encounter.Inject("admin kill", domain.MonsterDefeated{MonsterID: m.ID})
	return handlers.Result{
		Msg:     fmt.Sprintf("%s сражен отладочной магией.", m.Name),
		MsgType: "COMBAT",
		Data:    map[string]string{"outcome": string(outcome)},
	}, nil
}

// HandleSpawn добавляет врага из каталога в текущую встречу.
func HandleSpawn(ctx handlers.Context, p SpawnPayload) (handlers.Result, error) {
	tmpl, err := ctx.Catalog.Monster(p.Template)
	if err != nil {
		return handlers.Result{}, err
	}
	m, err := tmpl.Spawn(ctx.Encounter.Roller())
	if err != nil {
		return handlers.Result{}, fmt.Errorf("spawn %s: %w", p.Template, err)
	}
	if p.Count > 0 && m.IsMinor() {
		m.Count, m.InitialCount = p.Count, p.Count
	}
	ctx.Encounter.Inject("admin spawn", domain.MonsterSummoned{Monster: m})
	return handlers.Result{
		Msg:     fmt.Sprintf("Появляется: %s.", m.Name),
		MsgType: "INFO",
		Data:    map[string]string{"monsterId": m.ID},
	}, nil
}
