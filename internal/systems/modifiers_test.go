package systems

import (
	"reflect"
	"testing"

	"fourad-server/internal/domain"
)

func TestResolveModifiers_Order(t *testing.T) {
	hero := newHero("w1", domain.ClassWarrior, 2, 6, domain.Item{Key: "sword", Kind: domain.ItemWeapon, Attack: 1})
	hero.Trait = "brute"
	hero.Status.Blessed = true
	hero.Buffs = []domain.Buff{{Spell: "bless_weapon", Stat: domain.BuffAttack, Bonus: 1, TurnsLeft: domain.EncounterDuration}}
	hero.Legacy = domain.Bonus{Attack: 1}
	traits := TraitTable{"brute": {Key: "brute", Attack: 1}}

	b := ResolveModifiers(RollAttack, hero, CombatContext{RageActive: true}, traits)

	want := []string{
		"class:warrior",
		"equip:sword",
		TagDarkness,
		TagRage,
		TagBlessed,
		"trait:brute",
		"spell:bless_weapon",
		TagLegacy,
	}
	if !reflect.DeepEqual(b.Tags(), want) {
		t.Errorf("tags = %v\nwant %v", b.Tags(), want)
	}
	if b.Total != 6 {
		t.Errorf("Total = %d, want 6", b.Total)
	}
	if b.StepTotal(StepEnvironment) != -2 {
		t.Errorf("environment step = %d, want -2", b.StepTotal(StepEnvironment))
	}
}

func TestResolveModifiers_Darkness(t *testing.T) {
	lantern := domain.Item{Key: "lantern", Kind: domain.ItemLight, LightSource: true}

	tests := []struct {
		name  string
		hero  *domain.Hero
		light bool
		want  bool
	}{
		{"warrior in the dark", newHero("a", domain.ClassWarrior, 1, 5, sword), false, true},
		{"dwarf sees in the dark", newHero("b", domain.ClassDwarf, 1, 5, sword), false, false},
		{"elf sees in the dark", newHero("c", domain.ClassElf, 1, 5, sword), false, false},
		{"party light", newHero("d", domain.ClassWarrior, 1, 5, sword), true, false},
		{"own lantern with party light", newHero("e", domain.ClassWizard, 1, 5, lantern), true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, kind := range []RollKind{RollAttack, RollDefense, RollSave} {
				b := ResolveModifiers(kind, tt.hero, CombatContext{HasLightSource: tt.light}, nil)
				count := 0
				for _, tag := range b.Tags() {
					if tag == TagDarkness {
						count++
					}
				}
				if (count == 1) != tt.want || count > 1 {
					t.Errorf("%s: darkness applied %d times, want applied=%v", kind, count, tt.want)
				}
			}
		})
	}
}

func TestResolveModifiers_PartyLightHelper(t *testing.T) {
	lantern := domain.Item{Key: "lantern", Kind: domain.ItemLight, LightSource: true}
	party := []*domain.Hero{
		newHero("a", domain.ClassWarrior, 1, 5, sword),
		newHero("b", domain.ClassCleric, 1, 4, lantern),
	}
	ctx := CombatContext{HasLightSource: domain.PartyHasLight(party)}

	b := ResolveModifiers(RollAttack, party[0], ctx, nil)
	if b.Has(TagDarkness) {
		t.Error("a lantern carried by another hero lights the whole party")
	}
}

func TestClassStep(t *testing.T) {
	undead := &domain.Monster{ID: "z", Kind: domain.FoeMinor, Level: 2, Count: 3, Tags: []string{domain.TagUndead}}
	troll := &domain.Monster{ID: "t", Kind: domain.FoeMajor, Level: 5, HP: 5, Tags: []string{domain.TagLarge}}

	tests := []struct {
		name string
		kind RollKind
		hero *domain.Hero
		ctx  CombatContext
		want []Modifier
	}{
		{"martial full level", RollAttack, newHero("w", domain.ClassWarrior, 3, 5), CombatContext{},
			[]Modifier{{StepClass, "class:warrior", 3}}},
		{"hybrid half level", RollAttack, newHero("r", domain.ClassRanger, 3, 5), CombatContext{},
			[]Modifier{{StepClass, "class:ranger", 1}}},
		{"cleric vs undead", RollAttack, newHero("c", domain.ClassCleric, 3, 5), CombatContext{Target: undead},
			[]Modifier{{StepClass, "class:cleric:undead", 3}}},
		{"rogue outnumbering", RollAttack, newHero("g", domain.ClassRogue, 2, 5), CombatContext{OutnumberMinorFoe: true},
			[]Modifier{{StepClass, "class:rogue:outnumber", 2}}},
		{"rogue alone", RollAttack, newHero("g", domain.ClassRogue, 2, 5), CombatContext{}, nil},
		{"assassin first strike", RollAttack, newHero("s", domain.ClassAssassin, 2, 5), CombatContext{FirstAttackTarget: true},
			[]Modifier{{StepClass, "class:assassin:first_strike", 2}}},
		{"halfling defense vs large archer", RollDefense, newHero("h", domain.ClassHalfling, 2, 5), CombatContext{Target: troll, RangedDefense: true},
			[]Modifier{{StepClass, "class:halfling:large", 2}, {StepClass, "class:halfling:ranged", 1}}},
		{"dwarf defense vs large", RollDefense, newHero("d", domain.ClassDwarf, 4, 5), CombatContext{Target: troll},
			[]Modifier{{StepClass, "class:dwarf:large", 1}}},
		{"rogue save vs trap", RollSave, newHero("g", domain.ClassRogue, 3, 5), CombatContext{SaveSource: SourceTrap},
			[]Modifier{{StepClass, "class:rogue:trap", 3}}},
		{"barbarian save vs monster", RollSave, newHero("b", domain.ClassBarbarian, 5, 5), CombatContext{SaveSource: SourceMonster},
			[]Modifier{{StepClass, "class:barbarian:monster", 2}}},
		{"wizard spell power", RollSpell, newHero("m", domain.ClassWizard, 4, 5), CombatContext{},
			[]Modifier{{StepClass, "class:wizard", 4}}},
		{"zero is not tagged", RollAttack, newHero("m", domain.ClassWizard, 4, 5), CombatContext{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassStep(ModifierRequest{Kind: tt.kind, Hero: tt.hero, Ctx: tt.ctx})
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ClassStep = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestEquipmentStep_Shield(t *testing.T) {
	hero := newHero("w", domain.ClassWarrior, 1, 5, sword, shield)

	def := ResolveModifiers(RollDefense, hero, lit(), nil)
	if !def.Has("equip:shield") {
		t.Errorf("defense should include the shield, got %v", def.Tags())
	}

	ignored := lit()
	ignored.IgnoreShield = true
	if ResolveModifiers(RollDefense, hero, ignored, nil).Has("equip:shield") {
		t.Error("IgnoreShield should drop the shield from defense")
	}

	save := ResolveModifiers(RollSave, hero, lit(), nil)
	if !save.Has(TagShield) || save.Total != 1 {
		t.Errorf("save should get +1 shield, got %v total %d", save.Tags(), save.Total)
	}
}

func TestEquipmentStep_DualWield(t *testing.T) {
	offhand := dagger
	offhand.OffHand = true
	hero := newHero("r", domain.ClassRogue, 1, 4, sword, offhand)

	ctx := lit()
	ctx.DualWielding = true
	b := ResolveModifiers(RollAttack, hero, ctx, nil)
	if !b.Has(TagDualWield) {
		t.Errorf("light off-hand weapon should add dual_wield, got %v", b.Tags())
	}
}

func TestEnvironmentStep_NarrowCorridor(t *testing.T) {
	narrow := lit()
	narrow.Location = domain.CombatLocation{Type: domain.LocationCorridor, Width: domain.WidthNarrow}

	heavy := newHero("a", domain.ClassWarrior, 1, 5, greatsword)
	if !ResolveModifiers(RollAttack, heavy, narrow, nil).Has(TagNarrowCorridor) {
		t.Error("two-handed weapon should be penalised in a narrow corridor")
	}

	light := newHero("b", domain.ClassWarrior, 1, 5, dagger)
	if ResolveModifiers(RollAttack, light, narrow, nil).Has(TagNarrowCorridor) {
		t.Error("light weapons are exempt")
	}

	wide := lit()
	wide.Location = domain.CombatLocation{Type: domain.LocationCorridor, Width: domain.WidthNormal}
	if ResolveModifiers(RollAttack, heavy, wide, nil).Has(TagNarrowCorridor) {
		t.Error("normal corridors carry no penalty")
	}
}

func TestCombatStateStep(t *testing.T) {
	bound := &domain.Monster{ID: "o", Kind: domain.FoeMajor, Level: 3, HP: 4, Status: domain.MonsterStatus{Bound: true}}
	unarmed := newHero("a", domain.ClassWarrior, 1, 5)

	ctx := lit()
	ctx.Subdual = true
	ctx.Mounted = true
	ctx.Target = bound
	got := CombatStateStep(ModifierRequest{Kind: RollAttack, Hero: unarmed, Ctx: ctx})
	want := []Modifier{
		{StepCombatState, TagUnarmed, -2},
		{StepCombatState, TagSubdual, -1},
		{StepCombatState, TagVsBound, 2},
		{StepCombatState, TagMounted, 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CombatStateStep = %+v\nwant %+v", got, want)
	}

	withdraw := CombatStateStep(ModifierRequest{Kind: RollDefense, Hero: unarmed, Ctx: CombatContext{Withdrawing: true}})
	if len(withdraw) != 1 || withdraw[0].Tag != TagWithdrawing {
		t.Errorf("withdrawing defense = %+v", withdraw)
	}

	spell := CombatStateStep(ModifierRequest{Kind: RollSpell, Hero: unarmed, Ctx: CombatContext{CastingBonus: 2}})
	if len(spell) != 1 || spell[0].Value != 2 {
		t.Errorf("casting bonus = %+v", spell)
	}
}

func TestTraitStep(t *testing.T) {
	traits := TraitTable{
		"giant_slayer": {Key: "giant_slayer", Attack: 1, PerTier: true, VsTag: domain.TagLarge},
	}
	hero := newHero("a", domain.ClassWarrior, 5, 5, sword)
	hero.Trait = "giant_slayer"
	troll := &domain.Monster{ID: "t", Kind: domain.FoeMajor, Level: 5, HP: 5, Tags: []string{domain.TagLarge}}

	got := TraitStep(ModifierRequest{Kind: RollAttack, Hero: hero, Ctx: CombatContext{Target: troll}, Traits: traits})
	if len(got) != 1 || got[0].Value != 2 {
		t.Errorf("tier 2 trait should give +2, got %+v", got)
	}
	if len(TraitStep(ModifierRequest{Kind: RollAttack, Hero: hero, Traits: traits})) != 0 {
		t.Error("trait should not apply without a large target")
	}

	hero.Trait = "mystery"
	b := ResolveModifiers(RollAttack, hero, lit(), traits)
	if !b.Has("trait:unknown:mystery") {
		t.Errorf("unknown trait should be tagged, got %v", b.Tags())
	}
	if b.StepTotal(StepTrait) != 0 {
		t.Errorf("unknown trait should contribute 0, got %d", b.StepTotal(StepTrait))
	}
}

func TestSpellBuffStep_Exclusions(t *testing.T) {
	hero := newHero("a", domain.ClassWarrior, 1, 5, sword)
	hero.Buffs = []domain.Buff{
		{Spell: "protection", Stat: domain.BuffDefense, Bonus: 1, TurnsLeft: 2, Excludes: []string{domain.TagUndead}},
		{Spell: "barkskin", Stat: domain.BuffDefense, Bonus: 1, TurnsLeft: domain.EncounterDuration},
		{Spell: "spent", Stat: domain.BuffDefense, Bonus: 5, TurnsLeft: 0},
	}
	ghoul := &domain.Monster{ID: "g", Kind: domain.FoeMinor, Level: 3, Count: 2, Tags: []string{domain.TagUndead}}

	got := SpellBuffStep(ModifierRequest{Kind: RollDefense, Hero: hero, Ctx: CombatContext{Target: ghoul}})
	want := []Modifier{{StepSpellBuff, "spell:barkskin", 1}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SpellBuffStep = %+v, want %+v", got, want)
	}
}
