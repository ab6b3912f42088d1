package systems

import (
	"testing"

	"fourad-server/internal/domain"
)

func TestNeedsMoraleCheck(t *testing.T) {
	tests := []struct {
		name  string
		group *domain.Monster
		want  bool
	}{
		{"full strength", minorGroup("g", 1, 6), false},
		{"below half", &domain.Monster{ID: "g", Kind: domain.FoeMinor, Level: 1, Count: 2, InitialCount: 6}, true},
		{"odd initial rounds up", &domain.Monster{ID: "g", Kind: domain.FoeMinor, Level: 1, Count: 3, InitialCount: 5}, false},
		{"already checked", &domain.Monster{ID: "g", Kind: domain.FoeMinor, Level: 1, Count: 1, InitialCount: 6, MoraleChecked: true}, false},
		{"fight to the death", &domain.Monster{ID: "g", Kind: domain.FoeMinor, Level: 1, Count: 1, InitialCount: 6, FightToDeath: true}, false},
		{"boss", &domain.Monster{ID: "g", Kind: domain.FoeMinor, Level: 1, Count: 1, InitialCount: 6, Boss: true}, false},
		{"wiped out", &domain.Monster{ID: "g", Kind: domain.FoeMinor, Level: 1, InitialCount: 6}, false},
		{"major foe", majorFoe("o", 3, 2), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NeedsMoraleCheck(tt.group); got != tt.want {
				t.Errorf("NeedsMoraleCheck = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCheckMorale(t *testing.T) {
	t.Run("breaks on 3 or less", func(t *testing.T) {
		r, _ := scripted(2)
		g := &domain.Monster{ID: "g", Kind: domain.FoeMinor, Level: 1, Count: 2, InitialCount: 5, MoraleMod: 1}

		res := CheckMorale(r, g)
		if !res.Fled || res.Total != 3 {
			t.Fatalf("total=%d fled=%v", res.Total, res.Fled)
		}
		applyMonster(g, res.Events)
		if g.Count != 0 || !g.Status.Fled || NeedsMoraleCheck(g) {
			t.Errorf("group should be gone: %+v", g)
		}
	})

	t.Run("holds on 4 or more, once", func(t *testing.T) {
		r, _ := scripted(4)
		g := &domain.Monster{ID: "g", Kind: domain.FoeMinor, Level: 1, Count: 2, InitialCount: 5}

		res := CheckMorale(r, g)
		if res.Fled {
			t.Fatal("4 should hold")
		}
		applyMonster(g, res.Events)
		g.Count = 1
		if NeedsMoraleCheck(g) {
			t.Error("morale fires at most once per group")
		}
	})
}

func TestCheckLevelReduction_ScenarioC(t *testing.T) {
	ogre := majorFoe("ogre", 4, 6)
	ogre.HP = 4
	hero := newHero("w1", domain.ClassWarrior, 1, 6, sword)

	// 3 + 1 = 4, одно попадание по уровню 4
	r, _ := scripted(3, 3)
	hit := ResolveAttack(r, hero, ogre, lit(), nil)
	if hit.Hits != 1 {
		t.Fatalf("hits = %d, want 1", hit.Hits)
	}
	applyMonster(ogre, hit.Events)

	lr := CheckLevelReduction(ogre)
	if !lr.Reduced || lr.From != 4 || lr.To != 3 {
		t.Fatalf("hp 3 <= 6/2 should reduce the level: %+v", lr)
	}
	applyMonster(ogre, lr.Events)

	// Следующее попадание (уровень 3): 3 + 1 = 4 -> 1 попадание, hp 2
	second := ResolveAttack(r, hero, ogre, lit(), nil)
	applyMonster(ogre, second.Events)
	if ogre.HP != 2 {
		t.Fatalf("HP = %d, want 2", ogre.HP)
	}
	if CheckLevelReduction(ogre).Reduced {
		t.Error("level reduction fires exactly once")
	}
	if ogre.Level != 3 {
		t.Errorf("Level = %d, want 3", ogre.Level)
	}
}

func TestCheckLevelReduction_Bounds(t *testing.T) {
	tests := []struct {
		name string
		hp   int
		want bool
	}{
		{"above half", 4, false},
		{"exactly half", 3, true},
		{"one hp", 1, true},
		{"dead", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := majorFoe("o", 1, 6)
			m.HP = tt.hp
			lr := CheckLevelReduction(m)
			if lr.Reduced != tt.want {
				t.Errorf("Reduced = %v, want %v", lr.Reduced, tt.want)
			}
			if lr.Reduced && lr.To != 1 {
				t.Errorf("level 1 foe stays at 1, got %d", lr.To)
			}
		})
	}
}

func TestDecayRound(t *testing.T) {
	m := majorFoe("o", 3, 6)
	m.Status = domain.MonsterStatus{Asleep: true, AsleepTurns: 1, Entangled: true, EntangledTurns: 2}
	hero := newHero("w", domain.ClassWarrior, 1, 5)
	hero.Buffs = []domain.Buff{
		{Spell: "protection", Stat: domain.BuffDefense, Bonus: 1, TurnsLeft: 1},
		{Spell: "barkskin", Stat: domain.BuffDefense, Bonus: 1, TurnsLeft: domain.EncounterDuration},
	}

	events := DecayRound([]*domain.Hero{hero}, []*domain.Monster{m})
	applyMonster(m, events)
	applyHero(hero, events)

	if m.Status.Asleep || m.Status.AsleepTurns != 0 {
		t.Errorf("sleep should wear off: %+v", m.Status)
	}
	if !m.Status.Entangled || m.Status.EntangledTurns != 1 {
		t.Errorf("entangle should tick to 1: %+v", m.Status)
	}
	if len(hero.Buffs) != 1 || hero.Buffs[0].Spell != "barkskin" {
		t.Errorf("only the encounter buff should remain: %+v", hero.Buffs)
	}

	cleared := 0
	for _, ev := range events {
		if ev.Type() == domain.EventMonsterStatusCleared {
			cleared++
		}
	}
	if cleared != 1 {
		t.Errorf("cleared events = %d, want 1", cleared)
	}
}
