package engine

import (
	"fourad-server/internal/domain"
	"fourad-server/pkg/api"
)

// View создает снимок встречи для клиента.
func (e *Encounter) View() *api.EncounterView {
	view := &api.EncounterView{
		Round: e.Round,
		Location: api.LocationView{
			Type:        string(e.Location.Type),
			Width:       string(e.Location.Width),
			Environment: e.Environment,
		},
		Ambush:   e.Ambush,
		HasDoor:  e.HasDoor,
		Heroes:   make([]api.HeroView, 0, len(e.Heroes)),
		Monsters: make([]api.MonsterView, 0, len(e.Monsters)),
		Outcome:  string(e.Outcome),
	}

	for _, h := range e.Heroes {
		view.Heroes = append(view.Heroes, toHeroView(h))
	}
	for _, m := range e.Monsters {
		view.Monsters = append(view.Monsters, toMonsterView(m))
	}
	return view
}

// toHeroView конвертирует героя в DTO.
func toHeroView(h *domain.Hero) api.HeroView {
	v := api.HeroView{
		ID:        h.ID,
		Name:      h.Name,
		Class:     string(h.Class),
		Level:     h.Level,
		HP:        h.HP,
		MaxHP:     h.MaxHP,
		Luck:      h.LuckCharges(),
		Blessings: h.BlessingCharges(),
	}

	// Флаги в фиксированном порядке
	s := h.Status
	for _, f := range []struct {
		on   bool
		flag domain.HeroFlag
	}{
		{s.Blessed, domain.FlagBlessed},
		{s.Raging, domain.FlagRaging},
		{s.Hidden, domain.FlagHidden},
		{s.Wounded, domain.FlagWounded},
		{s.Dead, domain.FlagDead},
		{s.Protected, domain.FlagProtected},
	} {
		if f.on {
			v.Status = append(v.Status, string(f.flag))
		}
	}

	for _, b := range h.Buffs {
		v.Buffs = append(v.Buffs, api.BuffView{
			Spell:     b.Spell,
			Stat:      string(b.Stat),
			Bonus:     b.Bonus,
			TurnsLeft: b.TurnsLeft,
		})
	}
	return v
}

// toMonsterView конвертирует врага в DTO.
func toMonsterView(m *domain.Monster) api.MonsterView {
	v := api.MonsterView{
		ID:       m.ID,
		Name:     m.Name,
		Kind:     string(m.Kind),
		Level:    m.Level,
		Boss:     m.Boss,
		Ally:     m.Ally,
		Defeated: m.IsDefeated(),
	}
	if m.IsMinor() {
		v.Count = m.Count
		v.InitialCount = m.InitialCount
	} else {
		v.HP = m.HP
		v.MaxHP = m.MaxHP
	}

	s := m.Status
	for _, f := range []struct {
		on   bool
		flag domain.MonsterFlag
	}{
		{s.Asleep, domain.FlagAsleep},
		{s.Bound, domain.FlagBound},
		{s.Entangled, domain.FlagEntangled},
		{s.Subdued, domain.FlagSubdued},
		{s.Fled, domain.FlagFled},
		{s.Invisible, domain.FlagInvisible},
		{s.Illusion, domain.FlagIllusion},
	} {
		if f.on {
			v.Status = append(v.Status, string(f.flag))
		}
	}
	return v
}
