package domain

// ApplyToHero применяет событие к герою. Возвращает false, если событие не про этого героя.
func ApplyToHero(h *Hero, ev Event) bool {
	switch e := ev.(type) {
	case HeroHPChanged:
		if e.HeroID != h.ID {
			return false
		}
		h.HP = clampHP(e.To, h.MaxHP)
	case HeroStatusSet:
		if e.HeroID != h.ID {
			return false
		}
		h.setFlag(e.Flag, true)
	case HeroStatusCleared:
		if e.HeroID != h.ID {
			return false
		}
		h.setFlag(e.Flag, false)
	case ChargeSpent:
		if e.HeroID != h.ID {
			return false
		}
		switch e.Ability {
		case AbilityBlessing:
			h.Usage.BlessingsUsed++
		case AbilityLuck:
			h.Usage.LuckUsed++
		case AbilityRage:
			h.Usage.RagesUsed++
		}
	case SpellCast:
		if e.HeroID != h.ID {
			return false
		}
		h.Usage.SpellsCast++
	case BuffApplied:
		if e.HeroID != h.ID {
			return false
		}
		h.removeBuff(e.Buff.Spell)
		h.Buffs = append(h.Buffs, e.Buff)
	case BuffTicked:
		if e.HeroID != h.ID {
			return false
		}
		for i := range h.Buffs {
			if h.Buffs[i].Spell == e.Spell {
				h.Buffs[i].TurnsLeft = e.TurnsLeft
			}
		}
	case BuffExpired:
		if e.HeroID != h.ID {
			return false
		}
		h.removeBuff(e.Spell)
	default:
		return false
	}
	return true
}

func (h *Hero) setFlag(f HeroFlag, v bool) {
	switch f {
	case FlagBlessed:
		h.Status.Blessed = v
	case FlagRaging:
		h.Status.Raging = v
	case FlagHidden:
		h.Status.Hidden = v
	case FlagWounded:
		h.Status.Wounded = v
	case FlagDead:
		h.Status.Dead = v
	case FlagProtected:
		h.Status.Protected = v
	}
}

func (h *Hero) removeBuff(spell string) {
	kept := h.Buffs[:0]
	for _, b := range h.Buffs {
		if b.Spell != spell {
			kept = append(kept, b)
		}
	}
	h.Buffs = kept
}

// ApplyToMonster применяет событие к врагу. Возвращает false, если событие не про него.
func ApplyToMonster(m *Monster, ev Event) bool {
	switch e := ev.(type) {
	case MonsterHPChanged:
		if e.MonsterID != m.ID {
			return false
		}
		m.HP = clampHP(e.To, m.MaxHP)
	case MonsterCountChanged:
		if e.MonsterID != m.ID {
			return false
		}
		m.Count = clampHP(e.To, m.InitialCount)
	case MonsterDefeated:
		if e.MonsterID != m.ID {
			return false
		}
		if m.IsMinor() {
			m.Count = 0
		} else {
			m.HP = 0
		}
	case MonsterStatusSet:
		if e.MonsterID != m.ID {
			return false
		}
		m.setFlag(e.Flag, true, e.Turns)
	case MonsterStatusTicked:
		if e.MonsterID != m.ID {
			return false
		}
		m.setTurns(e.Flag, e.TurnsLeft)
	case MonsterStatusCleared:
		if e.MonsterID != m.ID {
			return false
		}
		m.setFlag(e.Flag, false, 0)
	case MoraleChecked:
		if e.MonsterID != m.ID {
			return false
		}
		m.MoraleChecked = true
	case MoraleBroke:
		if e.MonsterID != m.ID {
			return false
		}
		m.Count = 0
		m.Status.Fled = true
	case LevelReduced:
		if e.MonsterID != m.ID {
			return false
		}
		m.Level = ClampLevel(e.To)
		m.LevelReduced = true
	default:
		return false
	}
	return true
}

func (m *Monster) setFlag(f MonsterFlag, v bool, turns int) {
	if !v {
		turns = 0
	}
	switch f {
	case FlagAsleep:
		m.Status.Asleep, m.Status.AsleepTurns = v, turns
	case FlagBound:
		m.Status.Bound, m.Status.BoundTurns = v, turns
	case FlagEntangled:
		m.Status.Entangled, m.Status.EntangledTurns = v, turns
	case FlagSubdued:
		m.Status.Subdued = v
	case FlagFled:
		m.Status.Fled = v
	case FlagInvisible:
		m.Status.Invisible = v
	case FlagIllusion:
		m.Status.Illusion = v
	}
}

func (m *Monster) setTurns(f MonsterFlag, turns int) {
	switch f {
	case FlagAsleep:
		m.Status.AsleepTurns = turns
	case FlagBound:
		m.Status.BoundTurns = turns
	case FlagEntangled:
		m.Status.EntangledTurns = turns
	}
}

// clampHP держит значение в [0, max]. max <= 0 означает "без верхней границы".
func clampHP(v, max int) int {
	if v < 0 {
		return 0
	}
	if max > 0 && v > max {
		return max
	}
	return v
}
