// Package dice содержит генератор случайных чисел с явным состоянием
// и примитивы бросков (d6, 2d6, d66, взрывающийся d6).
//
// Генератор никогда не бывает глобальным: каждый бросок получает Roller,
// поэтому две независимые симуляции не делят энтропию.
package dice

// Source - минимальный источник случайности, нужный броскам.
type Source interface {
	// NextInt возвращает число в [0, n). n > 0.
	NextInt(n int) int
}

// RNG - генератор mulberry32 с 32-битным состоянием.
//
// Состояние можно снять и восстановить (State/SetState) для снапшотов и реплеев.
type RNG struct {
	state uint32
}

// NewRNG создает генератор с заданным зерном.
func NewRNG(seed uint32) *RNG {
	return &RNG{state: seed}
}

// NextUint32 продвигает состояние и возвращает следующее 32-битное значение.
func (r *RNG) NextUint32() uint32 {
	r.state += 0x6D2B79F5
	t := r.state
	t = (t ^ (t >> 15)) * (t | 1)
	t ^= t + (t^(t>>7))*(t|61)
	return t ^ (t >> 14)
}

// NextFloat возвращает число в [0, 1).
func (r *RNG) NextFloat() float64 {
	return float64(r.NextUint32()) / 4294967296.0
}

// NextInt возвращает число в [0, n). При n <= 0 возвращает 0 без продвижения состояния.
func (r *RNG) NextInt(n int) int {
	if n <= 0 {
		return 0
	}
	return int(r.NextFloat() * float64(n))
}

// NextRange возвращает число в [min, max] включительно.
func (r *RNG) NextRange(min, max int) int {
	if max < min {
		min, max = max, min
	}
	return min + r.NextInt(max-min+1)
}

// State возвращает текущее состояние генератора.
func (r *RNG) State() uint32 {
	return r.state
}

// SetState восстанавливает состояние. Используется только для снапшотов и тестов.
func (r *RNG) SetState(state uint32) {
	r.state = state
}
