package actions

import (
	"fmt"

	"fourad-server/internal/domain"
	"fourad-server/internal/engine"
	"fourad-server/internal/engine/handlers"
	"fourad-server/pkg/api"
)

// StartResult - кто участвует во встрече.
type StartResult struct {
	Heroes   []string `json:"heroes"`
	Monsters []string `json:"monsters"`
}

// HandleStart собирает партию и врагов из каталога и начинает встречу.
func HandleStart(ctx handlers.Context, p api.StartPayload) (handlers.Result, error) {
	enc, cat := ctx.Encounter, ctx.Catalog

	// 1. Партия
	var party []*domain.Hero
	var err error
	if len(p.Party) == 0 {
		party, err = cat.DefaultParty()
	} else {
		party, err = cat.NewParty(p.Party)
	}
	if err != nil {
		return handlers.Result{}, err
	}

	// 2. Враги. Шаблоны бросают ID и численность на генераторе встречи.
	monsters := make([]*domain.Monster, 0, len(p.Monsters))
	for _, spec := range p.Monsters {
		tmpl, err := cat.Monster(spec.Template)
		if err != nil {
			return handlers.Result{}, err
		}
		m, err := tmpl.Spawn(enc.Roller())
		if err != nil {
			return handlers.Result{}, fmt.Errorf("spawn %s: %w", spec.Template, err)
		}
		if spec.Count > 0 && m.IsMinor() {
			m.Count, m.InitialCount = spec.Count, spec.Count
		}
		monsters = append(monsters, &m)
	}

	// 3. Место боя
	loc := domain.CombatLocation{Type: domain.LocationRoom, Width: domain.WidthNormal}
	if p.Location != "" {
		loc.Type = domain.LocationType(p.Location)
	}
	if p.Width != "" {
		loc.Width = domain.LocationWidth(p.Width)
	}

	enc.Traits = cat.Traits
	enc.Spells = cat.Spells
	if err := enc.Start(engine.Setup{
		Heroes:      party,
		Monsters:    monsters,
		Location:    loc,
		Environment: p.Environment,
		Ambush:      p.Ambush,
		HasDoor:     p.HasDoor,
	}); err != nil {
		return handlers.Result{}, err
	}

	res := StartResult{}
	for _, h := range party {
		res.Heroes = append(res.Heroes, h.ID)
	}
	for _, m := range monsters {
		res.Monsters = append(res.Monsters, m.ID)
	}
	return handlers.Result{Data: res}, nil
}
