package systems

import (
	"sort"

	"fourad-server/internal/domain"
	"fourad-server/pkg/logger"

	"github.com/sirupsen/logrus"
)

// Правила выбора целей
const (
	RuleNone           = "none"
	RuleCorridorAmbush = "corridor_ambush"
	RuleCorridorFront  = "corridor_front"
	RuleCorridorOpen   = "corridor_open"
	RuleRoomFewer      = "room_fewer"
	RuleRoomEqual      = "room_equal"
	RuleRoomMore       = "room_more"
)

// Передние и задние места походного порядка (с нуля).
var (
	frontPositions = []int{0, 1}
	rearPositions  = []int{2, 3}
)

// loneFrontCap - сколько атак принимает единственный герой впереди.
const loneFrontCap = 2

// AttackInstance - одна атака врага за раунд: особь группы или одна атака крупного врага.
type AttackInstance struct {
	MonsterID    string `json:"monsterId"`
	MonsterIndex int    `json:"monsterIndex"`
	Ordinal      int    `json:"ordinal"`
}

// BuildInstances разворачивает врагов в атаки. Спящие, связанные, опутанные,
// усмиренные, сбежавшие, поверженные и союзники не атакуют.
func BuildInstances(monsters []*domain.Monster) []AttackInstance {
	var out []AttackInstance
	for i, m := range monsters {
		if m == nil || !m.CanAct() {
			continue
		}
		n := m.AttacksPerRound()
		if m.IsMinor() {
			n = m.Count
		}
		for k := 0; k < n; k++ {
			out = append(out, AttackInstance{MonsterID: m.ID, MonsterIndex: i, Ordinal: k})
		}
	}
	return out
}

// TargetingRequest - вход распределителя.
type TargetingRequest struct {
	Heroes        []*domain.Hero
	Monsters      []*domain.Monster
	Instances     []AttackInstance // nil = BuildInstances(Monsters)
	Location      domain.CombatLocation
	Marching      domain.MarchingOrder
	Ambush        bool
	FrontEngaged  bool              // Коридор, бой только с передними местами
	ClassPriority []domain.ClassKey // nil = DefaultClassPriority
}

// Assignment - атака и ее цель.
type Assignment struct {
	Instance  AttackInstance `json:"instance"`
	HeroIndex int            `json:"heroIndex"`
	HeroID    string         `json:"heroId"`
}

// Allocation - результат распределения.
type Allocation struct {
	Rule        string           `json:"rule"`
	Assignments []Assignment     `json:"assignments"`
	Unreachable []AttackInstance `json:"unreachable,omitempty"`
}

// ByHero - сколько атак получил каждый герой (по индексу партии).
func (a Allocation) ByHero() map[int]int {
	out := make(map[int]int)
	for _, as := range a.Assignments {
		out[as.HeroIndex]++
	}
	return out
}

// AllocateTargets назначает каждой атаке живого героя.
func AllocateTargets(req TargetingRequest) Allocation {
	instances := req.Instances
	if instances == nil {
		instances = BuildInstances(req.Monsters)
	}
	priority := req.ClassPriority
	if priority == nil {
		priority = domain.DefaultClassPriority
	}

	var alloc Allocation
	living := livingIndexes(req.Heroes)

	switch {
	case len(instances) == 0:
		alloc.Rule = RuleNone
	case len(living) == 0:
		alloc.Rule = RuleNone
		alloc.Unreachable = append(alloc.Unreachable, instances...)
	case req.Location.IsCorridor() && req.Ambush:
		alloc = allocateAmbush(req, instances)
	case req.Location.IsCorridor() && req.FrontEngaged:
		alloc = allocateFront(req, instances)
	default:
		alloc = allocateRoom(req, instances, living, priority)
		if req.Location.IsCorridor() {
			// Коридор с плитки: цели как в комнате, позиции ограничивают только ближний бой
			alloc.Rule = RuleCorridorOpen
		}
	}

	logger.Component("target_allocator").WithFields(logrus.Fields{
		"rule":        alloc.Rule,
		"instances":   len(instances),
		"heroes":      len(living),
		"unreachable": len(alloc.Unreachable),
	}).Debug("Targets allocated.")

	return alloc
}

func livingIndexes(heroes []*domain.Hero) []int {
	var out []int
	for i, h := range heroes {
		if h != nil && h.IsAlive() {
			out = append(out, i)
		}
	}
	return out
}

// atPositions - живые герои на местах походного порядка.
func atPositions(req TargetingRequest, positions []int) []int {
	var out []int
	for _, p := range positions {
		idx := req.Marching[p]
		if idx < 0 || idx >= len(req.Heroes) {
			continue
		}
		if h := req.Heroes[idx]; h != nil && h.IsAlive() {
			out = append(out, idx)
		}
	}
	return out
}

func assign(alloc *Allocation, req TargetingRequest, inst AttackInstance, heroIdx int) {
	alloc.Assignments = append(alloc.Assignments, Assignment{
		Instance:  inst,
		HeroIndex: heroIdx,
		HeroID:    req.Heroes[heroIdx].ID,
	})
}

// allocateAmbush - засада в коридоре: задние места по кругу.
func allocateAmbush(req TargetingRequest, instances []AttackInstance) Allocation {
	alloc := Allocation{Rule: RuleCorridorAmbush}
	targets := atPositions(req, rearPositions)
	if len(targets) == 0 {
		// Сзади никого: бьют тех, кто впереди
		targets = atPositions(req, frontPositions)
	}
	if len(targets) == 0 {
		alloc.Unreachable = append(alloc.Unreachable, instances...)
		return alloc
	}
	for i, inst := range instances {
		assign(&alloc, req, inst, targets[i%len(targets)])
	}
	return alloc
}

// allocateFront - бой в коридоре лицом к лицу: достают только первые два места.
func allocateFront(req TargetingRequest, instances []AttackInstance) Allocation {
	alloc := Allocation{Rule: RuleCorridorFront}
	targets := atPositions(req, frontPositions)

	limit := len(instances)
	if len(targets) == 1 {
		limit = min(limit, loneFrontCap)
	}
	if len(targets) == 0 {
		limit = 0
	}

	for i, inst := range instances {
		if i >= limit {
			alloc.Unreachable = append(alloc.Unreachable, inst)
			continue
		}
		assign(&alloc, req, inst, targets[i%len(targets)])
	}

	if len(alloc.Unreachable) > 0 {
		logger.Component("target_allocator").WithFields(logrus.Fields{
			"count": len(alloc.Unreachable),
		}).Info("Attack instances cannot reach the party.")
	}
	return alloc
}

// hatedBy - классы, которые ненавидит шаблон, совершающий атаку.
func hatedBy(req TargetingRequest, inst AttackInstance) map[domain.ClassKey]bool {
	hated := make(map[domain.ClassKey]bool)
	if inst.MonsterIndex < 0 || inst.MonsterIndex >= len(req.Monsters) || req.Monsters[inst.MonsterIndex] == nil {
		return hated
	}
	for _, c := range req.Monsters[inst.MonsterIndex].Hates {
		hated[c] = true
	}
	return hated
}

// roomOrder - очередь целей одного шаблона.
// full: HP по возрастанию, ненависть, приоритет класса, индекс. rest: сначала ненавидимые из full.
type roomOrder struct {
	full []int
	rest []int
}

func newRoomOrder(req TargetingRequest, living []int, priority []domain.ClassKey, hated map[domain.ClassKey]bool) roomOrder {
	isHated := func(idx int) bool { return hated[req.Heroes[idx].Class] }

	byHP := append([]int(nil), living...)
	sort.SliceStable(byHP, func(a, b int) bool {
		ha, hb := req.Heroes[byHP[a]], req.Heroes[byHP[b]]
		if ha.HP != hb.HP {
			return ha.HP < hb.HP
		}
		if isHated(byHP[a]) != isHated(byHP[b]) {
			return isHated(byHP[a])
		}
		pa, pb := domain.PriorityIndex(priority, ha.Class), domain.PriorityIndex(priority, hb.Class)
		if pa != pb {
			return pa < pb
		}
		return byHP[a] < byHP[b]
	})

	rest := make([]int, 0, len(byHP))
	for _, idx := range byHP {
		if isHated(idx) {
			rest = append(rest, idx)
		}
	}
	for _, idx := range byHP {
		if !isHated(idx) {
			rest = append(rest, idx)
		}
	}
	return roomOrder{full: byHP, rest: rest}
}

// allocateRoom - каскад комнаты. Атаки идут проходами по числу героев: за проход герой
// получает не больше одной атаки, и каждая атака берет первого свободного героя
// из очереди своего шаблона. Неполный последний проход - остаток.
func allocateRoom(req TargetingRequest, instances []AttackInstance, living []int, priority []domain.ClassKey) Allocation {
	orders := make(map[int]roomOrder)
	orderOf := func(inst AttackInstance) roomOrder {
		o, ok := orders[inst.MonsterIndex]
		if !ok {
			o = newRoomOrder(req, living, priority, hatedBy(req, inst))
			orders[inst.MonsterIndex] = o
		}
		return o
	}

	n, m := len(instances), len(living)
	var alloc Allocation
	switch {
	case n < m:
		alloc.Rule = RuleRoomFewer
	case n == m:
		alloc.Rule = RuleRoomEqual
	default:
		alloc.Rule = RuleRoomMore
	}
	full := n - n%m

	taken := make(map[int]bool, m)
	for i, inst := range instances {
		if i%m == 0 {
			clear(taken)
		}
		queue := orderOf(inst).full
		if n > m && i >= full {
			queue = orderOf(inst).rest
		}
		for _, idx := range queue {
			if !taken[idx] {
				taken[idx] = true
				assign(&alloc, req, inst, idx)
				break
			}
		}
	}
	return alloc
}
