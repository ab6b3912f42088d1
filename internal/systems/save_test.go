package systems

import (
	"reflect"
	"testing"

	"fourad-server/internal/domain"
)

func TestSaveThreshold(t *testing.T) {
	tests := []struct {
		name string
		src  DamageSource
		want int
	}{
		{"monster level 3", DamageSource{Kind: SourceMonster, FoeLevel: 3}, 4},
		{"monster level 6", DamageSource{Kind: SourceMonster, FoeLevel: 6}, 1},
		{"monster level 9 floors at 1", DamageSource{Kind: SourceMonster, FoeLevel: 9}, 1},
		{"monster level 0 clamps", DamageSource{Kind: SourceMonster}, 6},
		{"trap dc", DamageSource{Kind: SourceTrap, DC: 5}, 5},
		{"other default", DamageSource{Kind: SourceOther}, DefaultSaveDC},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SaveThreshold(tt.src); got != tt.want {
				t.Errorf("SaveThreshold = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestResolveSave_ScenarioD(t *testing.T) {
	// Защита 2 против уровня 3 пропускает удар; спасбросок 5 + амулет 1 против 4
	r, _ := scripted(2, 5)
	hero := newHero("w1", domain.ClassWarrior, 1, 1, sword, amulet)
	orc := majorFoe("orc", 3, 5)

	def := ResolveDefense(r, hero, orc, lit(), nil)
	if !def.WouldDrop {
		t.Fatalf("hit should be lethal: %+v", def)
	}
	applyHero(hero, def.Events)

	res := ResolveSave(r, SaveRequest{
		Hero:   hero,
		Source: DamageSource{Kind: SourceMonster, FoeLevel: orc.Level},
		Ctx:    lit(),
	})
	if res.Threshold != 4 || !res.Success {
		t.Fatalf("threshold=%d success=%v", res.Threshold, res.Success)
	}
	if !reflect.DeepEqual(res.Attempts[0].Breakdown.Tags(), []string{"equip:amulet"}) {
		t.Errorf("save tags = %v", res.Attempts[0].Breakdown.Tags())
	}

	applyHero(hero, res.Events)
	if hero.HP != 1 || !hero.Status.Wounded || hero.Status.Dead {
		t.Errorf("hero should survive wounded at 1 hp: hp=%d %+v", hero.HP, hero.Status)
	}
}

func TestResolveSave_Failure(t *testing.T) {
	r, _ := scripted(1)
	hero := newHero("w1", domain.ClassWarrior, 1, 3)
	hero.HP = 0

	res := ResolveSave(r, SaveRequest{Hero: hero, Source: DamageSource{Kind: SourceTrap, DC: 4}, Ctx: lit()})
	applyHero(hero, res.Events)

	if res.Success || !hero.Status.Dead || hero.HP != 0 || hero.IsAlive() {
		t.Errorf("failed save should kill: %+v", hero)
	}
}

func TestResolveSave_HalflingLuck(t *testing.T) {
	r, _ := scripted(1, 1, 6)
	hero := newHero("h1", domain.ClassHalfling, 1, 3)
	hero.HP = 0

	res := ResolveSave(r, SaveRequest{
		Hero:         hero,
		Source:       DamageSource{Kind: SourceMonster, FoeLevel: 3},
		Ctx:          lit(),
		AllowRerolls: true,
	})
	if !res.Success || len(res.Attempts) != 3 {
		t.Fatalf("success=%v attempts=%d, want success on third attempt", res.Success, len(res.Attempts))
	}
	if res.Attempts[2].Via != domain.AbilityLuck {
		t.Errorf("third attempt via %q, want luck", res.Attempts[2].Via)
	}

	applyHero(hero, res.Events)
	if hero.Usage.LuckUsed != 2 || hero.LuckCharges() != 0 {
		t.Errorf("both luck charges should be spent: %+v", hero.Usage)
	}
}

func TestResolveSave_ClericBlessing(t *testing.T) {
	r, _ := scripted(1, 5)
	dying := newHero("w1", domain.ClassWarrior, 1, 4)
	dying.HP = 0
	cleric := newHero("c1", domain.ClassCleric, 2, 4)
	party := []*domain.Hero{dying, cleric}

	res := ResolveSave(r, SaveRequest{
		Hero:         dying,
		Party:        party,
		Source:       DamageSource{Kind: SourceMonster, FoeLevel: 3},
		Ctx:          lit(),
		AllowRerolls: true,
	})
	if !res.Success || res.Attempts[1].GrantedBy != "c1" {
		t.Fatalf("cleric should grant the second attempt: %+v", res.Attempts)
	}

	for _, h := range party {
		applyHero(h, res.Events)
	}
	if cleric.Usage.BlessingsUsed != 1 || cleric.BlessingCharges() != domain.ClericBlessings-1 {
		t.Errorf("cleric usage = %+v", cleric.Usage)
	}
	if !dying.Status.Wounded || dying.HP != 1 {
		t.Errorf("hero should be wounded at 1 hp: %+v", dying)
	}
}

func TestResolveSave_NoChargesLeft(t *testing.T) {
	r, _ := scripted(2)
	dying := newHero("w1", domain.ClassWarrior, 1, 4)
	dying.HP = 0
	cleric := newHero("c1", domain.ClassCleric, 2, 4)
	cleric.Usage.BlessingsUsed = domain.ClericBlessings

	res := ResolveSave(r, SaveRequest{
		Hero:         dying,
		Party:        []*domain.Hero{dying, cleric},
		Source:       DamageSource{Kind: SourceMonster, FoeLevel: 3},
		Ctx:          lit(),
		AllowRerolls: true,
	})
	if res.Success || len(res.Attempts) != 1 {
		t.Errorf("no rerolls without charges: %+v", res.Attempts)
	}
}
