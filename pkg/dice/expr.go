package dice

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidExpr возвращается, если выражение не похоже на "N", "dM", "NdM", "NdM+K" или "NdM-K".
var ErrInvalidExpr = errors.New("invalid dice expression")

var exprRe = regexp.MustCompile(`(?i)^\s*(\d+)?\s*d\s*(\d+)\s*(?:([+\-])\s*(\d+))?\s*$`)

// Expr бросает выражение. Плоское число возвращается без бросков (Values пустой).
// Итог не бывает отрицательным.
func (r *Roller) Expr(label, expr string) (RollRecord, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return RollRecord{}, ErrInvalidExpr
	}

	// 1. Плоское значение
	if n, err := strconv.Atoi(expr); err == nil {
		rec := RollRecord{Kind: KindExpr, Label: label, Modifier: n, Total: max(0, n), Tags: []string{expr}}
		r.record(rec)
		return rec, nil
	}

	// 2. NdM(+K)
	m := exprRe.FindStringSubmatch(expr)
	if m == nil {
		return RollRecord{}, ErrInvalidExpr
	}
	count := 1
	if m[1] != "" {
		count, _ = strconv.Atoi(m[1])
	}
	sides, _ := strconv.Atoi(m[2])
	if count <= 0 || sides <= 0 {
		return RollRecord{}, ErrInvalidExpr
	}
	mod := 0
	if m[3] != "" {
		mod, _ = strconv.Atoi(m[4])
		if m[3] == "-" {
			mod = -mod
		}
	}

	values := make([]int, count)
	sum := 0
	for i := range values {
		values[i] = r.face(sides)
		sum += values[i]
	}
	rec := RollRecord{
		Kind:     KindExpr,
		Label:    label,
		Values:   values,
		Modifier: mod,
		Total:    max(0, sum+mod),
		Tags:     []string{expr},
	}
	r.record(rec)
	return rec, nil
}

// Scripted - источник с заранее заданными гранями. Только для тестов и реплеев сценариев.
//
// Каждое значение - грань кубика (1..n). NextInt(n) возвращает (v-1) mod n.
type Scripted struct {
	faces []int
	pos   int
}

// NewScripted создает источник из последовательности граней.
func NewScripted(faces ...int) *Scripted {
	return &Scripted{faces: faces}
}

// NextInt реализует Source. Паникует, если грани закончились.
func (s *Scripted) NextInt(n int) int {
	if s.pos >= len(s.faces) {
		panic("dice: scripted source exhausted")
	}
	v := s.faces[s.pos]
	s.pos++
	if n <= 0 {
		return 0
	}
	return ((v-1)%n + n) % n
}

// Remaining возвращает количество неиспользованных граней.
func (s *Scripted) Remaining() int {
	return len(s.faces) - s.pos
}

// ValidateExpr проверяет выражение без броска (для загрузки таблиц данных).
func ValidateExpr(expr string) error {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return ErrInvalidExpr
	}
	if _, err := strconv.Atoi(expr); err == nil {
		return nil
	}
	m := exprRe.FindStringSubmatch(expr)
	if m == nil {
		return ErrInvalidExpr
	}
	if m[1] != "" {
		if n, _ := strconv.Atoi(m[1]); n <= 0 {
			return ErrInvalidExpr
		}
	}
	if sides, _ := strconv.Atoi(m[2]); sides <= 0 {
		return ErrInvalidExpr
	}
	return nil
}
