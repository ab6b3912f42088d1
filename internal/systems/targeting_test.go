package systems

import (
	"reflect"
	"testing"

	"fourad-server/internal/domain"
)

// party: a(воин, 5 HP), b(волшебник, 2 HP), c(жрец, 2 HP), d(плут, 4 HP)
func party() []*domain.Hero {
	return []*domain.Hero{
		newHero("a", domain.ClassWarrior, 1, 5),
		newHero("b", domain.ClassWizard, 1, 2),
		newHero("c", domain.ClassCleric, 1, 2),
		newHero("d", domain.ClassRogue, 1, 4),
	}
}

func targetsOf(a Allocation) []string {
	out := make([]string, len(a.Assignments))
	for i, as := range a.Assignments {
		out[i] = as.HeroID
	}
	return out
}

var room = domain.CombatLocation{Type: domain.LocationRoom, Width: domain.WidthNormal}

func TestBuildInstances(t *testing.T) {
	sleeping := minorGroup("zz", 1, 4)
	sleeping.Status.Asleep = true
	ogre := majorFoe("ogre", 4, 8)
	ogre.Attacks = 2
	ally := majorFoe("wolf", 1, 3)
	ally.Ally = true

	got := BuildInstances([]*domain.Monster{minorGroup("gob", 1, 3), sleeping, ogre, ally})
	if len(got) != 5 {
		t.Fatalf("instances = %d, want 3 goblins + 2 ogre attacks", len(got))
	}
	if got[3].MonsterID != "ogre" || got[3].MonsterIndex != 2 || got[4].Ordinal != 1 {
		t.Errorf("ogre instances = %+v", got[3:])
	}
}

func TestAllocateTargets_Room(t *testing.T) {
	tests := []struct {
		name   string
		count  int
		hates  []domain.ClassKey
		rule   string
		want   []string
		byHero map[int]int
	}{
		{
			name: "fewer: ascending HP then class priority",
			count: 2, rule: RuleRoomFewer,
			want: []string{"b", "c"},
		},
		{
			name: "fewer: hated breaks the HP tie",
			count: 2, hates: []domain.ClassKey{domain.ClassCleric}, rule: RuleRoomFewer,
			want: []string{"c", "b"},
		},
		{
			name: "equal: one each",
			count: 4, rule: RuleRoomEqual,
			want: []string{"b", "c", "d", "a"},
		},
		{
			name: "more: remainder to lowest HP",
			count: 6, rule: RuleRoomMore,
			want:   []string{"b", "c", "d", "a", "b", "c"},
			byHero: map[int]int{0: 1, 1: 2, 2: 2, 3: 1},
		},
		{
			name: "more: remainder to hated first",
			count: 6, hates: []domain.ClassKey{domain.ClassWarrior}, rule: RuleRoomMore,
			want:   []string{"b", "c", "d", "a", "a", "b"},
			byHero: map[int]int{0: 2, 1: 2, 2: 1, 3: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			goblins := minorGroup("gob", 1, tt.count)
			goblins.Hates = tt.hates
			alloc := AllocateTargets(TargetingRequest{
				Heroes:   party(),
				Monsters: []*domain.Monster{goblins},
				Location: room,
			})
			if alloc.Rule != tt.rule {
				t.Errorf("rule = %s, want %s", alloc.Rule, tt.rule)
			}
			if got := targetsOf(alloc); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("targets = %v, want %v", got, tt.want)
			}
			if tt.byHero != nil && !reflect.DeepEqual(alloc.ByHero(), tt.byHero) {
				t.Errorf("per hero = %v, want %v", alloc.ByHero(), tt.byHero)
			}
		})
	}
}

func TestAllocateTargets_HatredPerTemplate(t *testing.T) {
	// Ненависть орков к жрецу не влияет на выбор крыс
	tests := []struct {
		name  string
		rats  int
		first string
		want  []string
	}{
		{"fewer, rats first", 1, "rats", []string{"b", "c"}},
		{"fewer, orcs first", 1, "orcs", []string{"c", "b"}},
		{"more: remainder per template", 5, "rats", []string{"b", "c", "d", "a", "b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rats := minorGroup("rats", 1, tt.rats)
			orcs := minorGroup("orcs", 1, 1)
			orcs.Hates = []domain.ClassKey{domain.ClassCleric}
			monsters := []*domain.Monster{rats, orcs}
			if tt.first == "orcs" {
				monsters = []*domain.Monster{orcs, rats}
			}

			alloc := AllocateTargets(TargetingRequest{
				Heroes:   party(),
				Monsters: monsters,
				Location: room,
			})
			if got := targetsOf(alloc); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("targets = %v, want %v", got, tt.want)
			}
			for _, as := range alloc.Assignments {
				if as.Instance.MonsterID == "orcs" && as.HeroID != "c" {
					t.Errorf("orcs attacked %s, want the hated cleric", as.HeroID)
				}
			}
		})
	}
}

func TestAllocateTargets_SkipsDead(t *testing.T) {
	heroes := party()
	heroes[1].HP = 0
	heroes[1].Status.Dead = true

	alloc := AllocateTargets(TargetingRequest{
		Heroes:   heroes,
		Monsters: []*domain.Monster{minorGroup("gob", 1, 3)},
		Location: room,
	})
	for _, as := range alloc.Assignments {
		if as.HeroID == "b" {
			t.Fatal("dead heroes are never targeted")
		}
	}
	if alloc.Rule != RuleRoomEqual {
		t.Errorf("rule = %s, want %s with three living heroes", alloc.Rule, RuleRoomEqual)
	}
}

func TestAllocateTargets_CorridorAmbush(t *testing.T) {
	corridor := domain.CombatLocation{Type: domain.LocationCorridor, Width: domain.WidthNormal}
	heroes := party()

	alloc := AllocateTargets(TargetingRequest{
		Heroes:   heroes,
		Monsters: []*domain.Monster{minorGroup("gob", 1, 3)},
		Location: corridor,
		Marching: domain.DefaultMarchingOrder(len(heroes)),
		Ambush:   true,
	})
	if alloc.Rule != RuleCorridorAmbush {
		t.Errorf("rule = %s", alloc.Rule)
	}
	if got := targetsOf(alloc); !reflect.DeepEqual(got, []string{"c", "d", "c"}) {
		t.Errorf("ambush should cycle the rear, got %v", got)
	}

	// Сзади все пали: бьют передних
	heroes[2].Status.Dead, heroes[3].Status.Dead = true, true
	alloc = AllocateTargets(TargetingRequest{
		Heroes:   heroes,
		Monsters: []*domain.Monster{minorGroup("gob", 1, 2)},
		Location: corridor,
		Marching: domain.DefaultMarchingOrder(len(heroes)),
		Ambush:   true,
	})
	if got := targetsOf(alloc); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("empty rear should fall back to the front, got %v", got)
	}
}

func TestAllocateTargets_CorridorFront(t *testing.T) {
	corridor := domain.CombatLocation{Type: domain.LocationCorridor, Width: domain.WidthNarrow}
	heroes := party()

	// Впереди один герой: не больше двух атак
	lone := domain.MarchingOrder{0, -1, 2, 3}
	alloc := AllocateTargets(TargetingRequest{
		Heroes:       heroes,
		Monsters:     []*domain.Monster{minorGroup("gob", 1, 3)},
		Location:     corridor,
		Marching:     lone,
		FrontEngaged: true,
	})
	if got := targetsOf(alloc); !reflect.DeepEqual(got, []string{"a", "a"}) {
		t.Errorf("lone front hero targets = %v", got)
	}
	if len(alloc.Unreachable) != 1 {
		t.Errorf("unreachable = %d, want 1", len(alloc.Unreachable))
	}

	// Двое впереди: без ограничения
	alloc = AllocateTargets(TargetingRequest{
		Heroes:       heroes,
		Monsters:     []*domain.Monster{minorGroup("gob", 1, 5)},
		Location:     corridor,
		Marching:     domain.DefaultMarchingOrder(len(heroes)),
		FrontEngaged: true,
	})
	if got := targetsOf(alloc); !reflect.DeepEqual(got, []string{"a", "b", "a", "b", "a"}) {
		t.Errorf("front pair targets = %v", got)
	}
	if len(alloc.Unreachable) != 0 {
		t.Errorf("unreachable = %v", alloc.Unreachable)
	}
}

func TestAllocateTargets_CorridorOpen(t *testing.T) {
	// Коридор с плитки без засады: цели как в комнате
	corridor := domain.CombatLocation{Type: domain.LocationCorridor, Width: domain.WidthNormal}
	alloc := AllocateTargets(TargetingRequest{
		Heroes:   party(),
		Monsters: []*domain.Monster{minorGroup("gob", 1, 2)},
		Location: corridor,
		Marching: domain.DefaultMarchingOrder(4),
	})
	if alloc.Rule != RuleCorridorOpen {
		t.Errorf("rule = %s", alloc.Rule)
	}
	if got := targetsOf(alloc); !reflect.DeepEqual(got, []string{"b", "c"}) {
		t.Errorf("targets = %v, want the room cascade", got)
	}
}

func TestAllocateTargets_Deterministic(t *testing.T) {
	req := TargetingRequest{
		Heroes:   party(),
		Monsters: []*domain.Monster{minorGroup("gob", 1, 7), majorFoe("ogre", 3, 6)},
		Location: room,
	}
	first := AllocateTargets(req)
	for i := 0; i < 20; i++ {
		if !reflect.DeepEqual(AllocateTargets(req), first) {
			t.Fatal("allocation must be stable for identical input")
		}
	}
}
