package domain

import (
	"encoding/json"
	"testing"
)

func TestApplyToHero(t *testing.T) {
	h := &Hero{ID: "h1", Class: ClassHalfling, Level: 2, HP: 3, MaxHP: 5}

	if !ApplyToHero(h, HeroHPChanged{HeroID: "h1", From: 3, To: -2}) {
		t.Fatal("event for h1 should apply")
	}
	if h.HP != 0 {
		t.Errorf("HP = %d, want 0 (never negative)", h.HP)
	}

	ApplyToHero(h, HeroHPChanged{HeroID: "h1", To: 99})
	if h.HP != 5 {
		t.Errorf("HP = %d, want capped at MaxHP 5", h.HP)
	}

	if ApplyToHero(h, HeroHPChanged{HeroID: "other", To: 1}) {
		t.Error("event for another hero should not apply")
	}

	ApplyToHero(h, HeroStatusSet{HeroID: "h1", Flag: FlagWounded})
	if !h.Status.Wounded {
		t.Error("wounded should be set")
	}
	ApplyToHero(h, HeroStatusCleared{HeroID: "h1", Flag: FlagWounded})
	if h.Status.Wounded {
		t.Error("wounded should be cleared")
	}

	ApplyToHero(h, ChargeSpent{HeroID: "h1", Ability: AbilityLuck})
	if h.LuckCharges() != 2 {
		t.Errorf("LuckCharges = %d, want 2 (level+1 minus one used)", h.LuckCharges())
	}

	ApplyToHero(h, BuffApplied{HeroID: "h1", Buff: Buff{Spell: "protection", Stat: BuffDefense, Bonus: 1, TurnsLeft: 2}})
	ApplyToHero(h, BuffApplied{HeroID: "h1", Buff: Buff{Spell: "protection", Stat: BuffDefense, Bonus: 1, TurnsLeft: 3}})
	if len(h.Buffs) != 1 || h.Buffs[0].TurnsLeft != 3 {
		t.Fatalf("recasting should replace the buff, got %+v", h.Buffs)
	}
	ApplyToHero(h, BuffTicked{HeroID: "h1", Spell: "protection", TurnsLeft: 1})
	if h.Buffs[0].TurnsLeft != 1 {
		t.Errorf("TurnsLeft = %d, want 1", h.Buffs[0].TurnsLeft)
	}
	ApplyToHero(h, BuffExpired{HeroID: "h1", Spell: "protection"})
	if len(h.Buffs) != 0 {
		t.Errorf("buff should be removed, got %+v", h.Buffs)
	}
}

func TestApplyToMonster(t *testing.T) {
	group := &Monster{ID: "m1", Kind: FoeMinor, Level: 2, Count: 5, InitialCount: 5}

	ApplyToMonster(group, MonsterCountChanged{MonsterID: "m1", From: 5, To: 2})
	if group.Count != 2 {
		t.Errorf("Count = %d, want 2", group.Count)
	}
	ApplyToMonster(group, MoraleChecked{MonsterID: "m1", Roll: 2, Total: 2})
	ApplyToMonster(group, MoraleBroke{MonsterID: "m1", Fled: 2})
	if !group.MoraleChecked || group.Count != 0 || !group.Status.Fled || !group.IsDefeated() {
		t.Errorf("morale break not applied: %+v", group)
	}

	boss := &Monster{ID: "m2", Kind: FoeMajor, Level: 1, HP: 6, MaxHP: 6}
	ApplyToMonster(boss, LevelReduced{MonsterID: "m2", From: 1, To: 0})
	if boss.Level != 1 || !boss.LevelReduced {
		t.Errorf("level should clamp to 1 and guard set: %+v", boss)
	}

	ApplyToMonster(boss, MonsterStatusSet{MonsterID: "m2", Flag: FlagAsleep, Turns: 2})
	if !boss.Status.Asleep || boss.Status.AsleepTurns != 2 || boss.CanAct() {
		t.Errorf("asleep not applied: %+v", boss.Status)
	}
	ApplyToMonster(boss, MonsterStatusCleared{MonsterID: "m2", Flag: FlagAsleep})
	if boss.Status.Asleep || boss.Status.AsleepTurns != 0 || !boss.CanAct() {
		t.Errorf("asleep not cleared: %+v", boss.Status)
	}
}

func TestMonster_MustBeValid(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("negative count must panic")
		}
	}()
	(&Monster{ID: "bad", Kind: FoeMinor, Count: -1}).MustBeValid()
}

func TestPartyHasLight(t *testing.T) {
	torch := Item{Key: "lantern", Kind: ItemLight, LightSource: true}
	heroes := []*Hero{
		{ID: "a", HP: 3, MaxHP: 3},
		{ID: "b", HP: 3, MaxHP: 3, Equipment: []Item{torch}},
	}
	if !PartyHasLight(heroes) {
		t.Error("one lantern lights the party")
	}
	heroes[1].Status.Dead = true
	heroes[1].HP = 0
	if PartyHasLight(heroes) {
		t.Error("a dead hero's lantern does not count")
	}
}

func TestEventTypeStrings(t *testing.T) {
	if got := ParseEvent("morale_broke"); got != EventMoraleBroke {
		t.Errorf("ParseEvent = %v, want MORALE_BROKE", got)
	}
	if ParseEvent("nope") != EventUnknown {
		t.Error("unknown string should map to EventUnknown")
	}

	wrapped, err := WrapEvents([]Event{LevelReduced{MonsterID: "m", From: 3, To: 2}})
	if err != nil {
		t.Fatal(err)
	}
	if wrapped[0].Type != "LEVEL_REDUCED" {
		t.Errorf("Type = %s", wrapped[0].Type)
	}
	var back LevelReduced
	if err := json.Unmarshal(wrapped[0].Data, &back); err != nil || back.To != 2 {
		t.Errorf("data round trip failed: %v %+v", err, back)
	}
}
