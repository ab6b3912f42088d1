package systems

import (
	"testing"

	"fourad-server/internal/domain"
)

func TestResolveFlee_Escapes(t *testing.T) {
	// Плут: 1 + 2 > 2; воин: 3 > 2; затем один свободный удар по плуту (4 HP < 5 HP), защита 6
	r, _ := scripted(1, 3, 6)
	rogue := newHero("r1", domain.ClassRogue, 2, 4)
	warrior := newHero("w1", domain.ClassWarrior, 1, 5, sword)

	res := ResolveFlee(r, EscapeRequest{
		Heroes:   []*domain.Hero{rogue, warrior},
		Monsters: []*domain.Monster{minorGroup("gob", 2, 1)},
		Location: room,
		Ctx:      lit(),
	})

	if res.FoeLevel != 2 || len(res.Rolls) != 2 {
		t.Fatalf("foeLevel=%d rolls=%+v", res.FoeLevel, res.Rolls)
	}
	if !res.Rolls[0].Success || !res.Rolls[1].Success || res.Rolls[0].Bonus != 2 {
		t.Errorf("rolls = %+v", res.Rolls)
	}
	if len(res.Strikes) != 1 || res.Strikes[0].HeroID != "r1" || !res.Strikes[0].Defense.Blocked {
		t.Errorf("strikes = %+v", res.Strikes)
	}
	if !res.Escaped {
		t.Fatal("party should escape")
	}
	last := res.Events[len(res.Events)-1]
	if last.Type() != domain.EventPartyEscaped {
		t.Errorf("last event = %v", last.Type())
	}
	if warrior.HP != 5 || rogue.HP != 4 {
		t.Error("resolution must not touch the caller's heroes")
	}
}

func TestResolveFlee_OneFails(t *testing.T) {
	r, _ := scripted(2, 6, 1)
	warrior := newHero("w1", domain.ClassWarrior, 1, 5, sword)
	wizard := newHero("m1", domain.ClassWizard, 1, 3)

	res := ResolveFlee(r, EscapeRequest{
		Heroes:   []*domain.Hero{warrior, wizard},
		Monsters: []*domain.Monster{majorFoe("ogre", 3, 6)},
		Location: room,
		Ctx:      lit(),
	})
	if res.Escaped {
		t.Error("2 vs level 3 fails, the party stays")
	}
	if len(res.Strikes) != 1 || res.Strikes[0].HeroID != "m1" || res.Strikes[0].Defense.Blocked {
		t.Errorf("the free strike should hit the weakest hero: %+v", res.Strikes)
	}
}

func TestResolveWithdraw_NeedsDoor(t *testing.T) {
	r, _ := scripted()
	res := ResolveWithdraw(r, EscapeRequest{Heroes: []*domain.Hero{newHero("w1", domain.ClassWarrior, 1, 5)}})
	if res.Allowed || res.Escaped || len(res.Events) != 0 {
		t.Errorf("withdraw without a door: %+v", res)
	}
}

func TestResolveWithdraw_Environment(t *testing.T) {
	tests := []struct {
		env         string
		withdrawing bool
	}{
		{"", true},
		{"fog", true},
		{"swamp", false},
		{"ice", false},
		{"web", false},
		{"collapsing", false},
	}

	for _, tt := range tests {
		t.Run("env="+tt.env, func(t *testing.T) {
			r, _ := scripted(3, 4)
			ctx := lit()
			ctx.Environment = tt.env

			res := ResolveWithdraw(r, EscapeRequest{
				Heroes:   []*domain.Hero{newHero("w1", domain.ClassWarrior, 1, 5, sword)},
				Monsters: []*domain.Monster{minorGroup("gob", 3, 1)},
				Location: room,
				HasDoor:  true,
				Ctx:      ctx,
			})
			if len(res.Strikes) != 1 {
				t.Fatalf("strikes = %+v", res.Strikes)
			}
			def := res.Strikes[0].Defense
			if def.Breakdown.Has(TagWithdrawing) != tt.withdrawing {
				t.Errorf("withdrawing bonus = %v, want %v", def.Breakdown.Has(TagWithdrawing), tt.withdrawing)
			}
			// 3 + 1 > 3 блокирует только с бонусом
			if def.Blocked != tt.withdrawing {
				t.Errorf("blocked = %v, want %v", def.Blocked, tt.withdrawing)
			}
			if !res.Escaped || res.Wandering != 4 || res.Ambushed {
				t.Errorf("clean withdraw expected: %+v", res)
			}
		})
	}
}

func TestResolveWithdraw_WanderingAmbush(t *testing.T) {
	r, _ := scripted(1)
	res := ResolveWithdraw(r, EscapeRequest{
		Heroes:  []*domain.Hero{newHero("w1", domain.ClassWarrior, 1, 5, sword)},
		HasDoor: true,
		Ctx:     lit(),
	})
	if !res.Ambushed {
		t.Fatalf("wandering roll 1 should ambush: %+v", res)
	}
	last := res.Events[len(res.Events)-1]
	if ev, ok := last.(domain.WanderingAmbush); !ok || ev.Roll != 1 {
		t.Errorf("last event = %+v", last)
	}
}

func TestResolveFlee_StrikeCanKill(t *testing.T) {
	// Бегство 6, защита 1, спасбросок 1: герой погибает
	r, _ := scripted(6, 1, 1)
	wizard := newHero("m1", domain.ClassWizard, 1, 1)

	res := ResolveFlee(r, EscapeRequest{
		Heroes:   []*domain.Hero{wizard},
		Monsters: []*domain.Monster{minorGroup("gob", 1, 1)},
		Location: room,
		Ctx:      lit(),
	})
	if res.Escaped {
		t.Error("a dead party does not escape")
	}
	if res.Strikes[0].Save == nil || res.Strikes[0].Save.Success {
		t.Errorf("save should fail: %+v", res.Strikes[0].Save)
	}
}
