package dice

import (
	"fmt"
)

// Kind - тип броска в журнале.
type Kind uint8

const (
	KindD6 Kind = iota + 1
	Kind2D6
	KindD66
	KindExplodingD6
	KindExpr
)

var kindToString = map[Kind]string{
	KindD6:          "d6",
	Kind2D6:         "2d6",
	KindD66:         "d66",
	KindExplodingD6: "d6!",
	KindExpr:        "expr",
}

// String реализует интерфейс Stringer.
func (k Kind) String() string {
	if s, ok := kindToString[k]; ok {
		return s
	}
	return "unknown"
}

const (
	// DefaultExplodeThreshold - обычный порог взрыва d6.
	DefaultExplodeThreshold = 6
	// MasterworkExplodeThreshold - порог для мастерского оружия.
	MasterworkExplodeThreshold = 5
)

// RollRecord - запись одного броска для журнала.
//
// Total == sum(Values) + Modifier.
type RollRecord struct {
	Kind     Kind     `json:"kind"`
	Label    string   `json:"label"`
	Values   []int    `json:"values"`
	Modifier int      `json:"modifier"`
	Total    int      `json:"total"`
	Tags     []string `json:"tags,omitempty"`
}

// String возвращает строку для аудита: "attack d6! [6 3] +2 = 11".
func (r RollRecord) String() string {
	return fmt.Sprintf("%s %s %v %+d = %d", r.Label, r.Kind, r.Values, r.Modifier, r.Total)
}

// RollLog - приемник записей бросков.
type RollLog interface {
	Record(rec RollRecord)
}

// MemoryLog хранит записи в памяти (снапшоты, реплеи, тесты).
type MemoryLog struct {
	Records []RollRecord
}

// Record добавляет запись.
func (l *MemoryLog) Record(rec RollRecord) {
	l.Records = append(l.Records, rec)
}

// Len возвращает количество записей.
func (l *MemoryLog) Len() int {
	return len(l.Records)
}

// Roller объединяет источник случайности и журнал бросков.
type Roller struct {
	src Source
	log RollLog
}

// NewRoller создает Roller. log может быть nil.
func NewRoller(src Source, log RollLog) *Roller {
	return &Roller{src: src, log: log}
}

// Source возвращает источник (для производных генераторов, например ID).
func (r *Roller) Source() Source {
	return r.src
}

func (r *Roller) record(rec RollRecord) {
	if r.log != nil {
		r.log.Record(rec)
	}
}

func (r *Roller) face(sides int) int {
	return r.src.NextInt(sides) + 1
}

// D6 - один бросок d6.
func (r *Roller) D6(label string) int {
	v := r.face(6)
	r.record(RollRecord{Kind: KindD6, Label: label, Values: []int{v}, Total: v})
	return v
}

// TwoD6 - сумма двух d6 (2..12).
func (r *Roller) TwoD6(label string) int {
	a, b := r.face(6), r.face(6)
	r.record(RollRecord{Kind: Kind2D6, Label: label, Values: []int{a, b}, Total: a + b})
	return a + b
}

// D66 - десятки*10 + единицы, для таблиц (11..66).
func (r *Roller) D66(label string) int {
	tens, ones := r.face(6), r.face(6)
	v := tens*10 + ones
	r.record(RollRecord{Kind: KindD66, Label: label, Values: []int{tens, ones}, Total: v})
	return v
}

// Exploding - результат взрывающегося d6.
type Exploding struct {
	Total    int   `json:"total"`
	Rolls    []int `json:"rolls"`
	Modifier int   `json:"modifier"`
	Exploded bool  `json:"exploded"`
}

// First возвращает первую выпавшую грань.
func (e Exploding) First() int {
	if len(e.Rolls) == 0 {
		return 0
	}
	return e.Rolls[0]
}

// Raw возвращает сумму граней без модификатора.
func (e Exploding) Raw() int {
	return e.Total - e.Modifier
}

// ExplodingD6 бросает d6, пока результат >= threshold, и суммирует.
//
// Все элементы Rolls, кроме последнего, >= threshold; Total = sum(Rolls) + mod.
// threshold < 2 поднимается до 2, иначе взрыв бесконечен.
func (r *Roller) ExplodingD6(label string, mod, threshold int) Exploding {
	if threshold < 2 {
		threshold = 2
	}
	res := Exploding{Modifier: mod}
	sum := 0
	for {
		v := r.face(6)
		res.Rolls = append(res.Rolls, v)
		sum += v
		if v < threshold {
			break
		}
		res.Exploded = true
	}
	res.Total = sum + mod
	r.record(RollRecord{Kind: KindExplodingD6, Label: label, Values: res.Rolls, Modifier: mod, Total: res.Total})
	return res
}

// Tier - масштаб от уровня: ceil(level/4), минимум 1.
func Tier(level int) int {
	if level <= 0 {
		return 1
	}
	return (level + 3) / 4
}
