package engine

import (
	"fourad-server/internal/domain"

	"github.com/sirupsen/logrus"
)

// apply - единственная точка изменения состояния встречи.
// Резолверы только возвращают события; здесь они применяются к участникам и копятся для ответа.
func (e *Encounter) apply(events []domain.Event) {
	for _, ev := range events {
		applied := false

		switch ev := ev.(type) {
		case domain.MonsterSummoned:
			e.Monsters = append(e.Monsters, ev.Monster.Clone())
			applied = true
		case domain.PartyEscaped, domain.PartyWithdrew, domain.WanderingAmbush:
			// Итог встречи выставляет вызывающий
			applied = true
		default:
			for _, h := range e.Heroes {
				if domain.ApplyToHero(h, ev) {
					applied = true
				}
			}
			for _, m := range e.Monsters {
				if domain.ApplyToMonster(m, ev) {
					applied = true
				}
			}
		}

		if !applied {
			e.log.WithField("event", ev.Type().String()).Warn("Event matched no participant.")
		}
		e.pending = append(e.pending, ev)
	}
}

// Inject применяет события в обход резолверов (отладочные команды).
// Итог встречи пересчитывается.
func (e *Encounter) Inject(reason string, events ...domain.Event) Outcome {
	e.log.WithFields(logrus.Fields{
		"reason": reason,
		"events": len(events),
	}).Warn("Events injected.")
	e.apply(events)
	return e.checkOutcome()
}
