package server

import (
	"bytes"
	"fmt"

	"fourad-server/internal/catalog"
	"fourad-server/internal/domain"
	"fourad-server/internal/engine"
	"fourad-server/internal/infrastructure/storage"
	"fourad-server/internal/network"
	"fourad-server/pkg/api"
	"fourad-server/pkg/dice"
	"fourad-server/pkg/logger"

	"github.com/sirupsen/logrus"
)

// Divergence - первый бросок, на котором журналы разошлись. nil у Want/Got - журнал кончился раньше.
type Divergence struct {
	Index int
	Want  *dice.RollRecord
	Got   *dice.RollRecord
}

func (d Divergence) String() string {
	show := func(r *dice.RollRecord) string {
		if r == nil {
			return "<none>"
		}
		return r.String()
	}
	return fmt.Sprintf("roll #%d: recorded %s, replayed %s", d.Index, show(d.Want), show(d.Got))
}

// PlaybackResult - итог повторного прогона.
type PlaybackResult struct {
	Actions    int
	Errors     int // команд, отклоненных при повторе
	Recorded   int
	Replayed   int
	Outcome    engine.Outcome
	Divergence *Divergence
}

// Match - журналы бросков совпали байт в байт.
func (r PlaybackResult) Match() bool {
	return r.Divergence == nil
}

// PlaybackFile читает реплей с диска и проигрывает его.
func PlaybackFile(path string, cat *catalog.Catalog, cfg engine.Config) (PlaybackResult, error) {
	rec, err := storage.LoadFile(path)
	if err != nil {
		return PlaybackResult{}, fmt.Errorf("load replay %s: %w", path, err)
	}
	return Playback(rec, cat, cfg)
}

// Playback заново выполняет записанные команды с тем же зерном и сверяет журнал бросков.
// Настройки правил (cfg без Seed) должны совпадать с записью.
func Playback(rec *domain.ReplaySession, cat *catalog.Catalog, cfg engine.Config) (PlaybackResult, error) {
	log := logger.Component("playback").WithFields(logrus.Fields{
		"session_id": rec.SessionID,
		"seed":       rec.Seed,
	})

	// 1. Та же встреча: зерно из записи, отладочные команды разрешены
	cfg.Seed = rec.Seed
	sess := NewSession(rec.SessionID, cfg, cat, network.NewBroadcaster(), true)

	// 2. Команды по порядку
	res := PlaybackResult{Actions: len(rec.Actions)}
	for _, act := range rec.Actions {
		resp := sess.Execute(domain.InternalCommand{Action: act.Action, Payload: act.Payload})
		if resp.Type == api.ResponseError {
			res.Errors++
			log.WithFields(logrus.Fields{
				"seq":    act.Seq,
				"action": act.Action.String(),
			}).Debug(resp.Error)
		}
	}
	res.Outcome = sess.Encounter.Outcome

	// 3. Сверка журналов
	got := sess.Encounter.Rolls.Records
	res.Recorded, res.Replayed = len(rec.Rolls), len(got)
	div, err := compareRolls(rec.Rolls, got)
	if err != nil {
		return res, err
	}
	res.Divergence = div

	entry := log.WithFields(logrus.Fields{
		"actions": res.Actions,
		"rolls":   res.Replayed,
		"outcome": res.Outcome,
	})
	if div != nil {
		entry.WithField("divergence", div.String()).Warn("Replay diverged.")
	} else {
		entry.Info("Replay verified.")
	}
	return res, nil
}

func compareRolls(want, got []dice.RollRecord) (*Divergence, error) {
	n := max(len(want), len(got))
	for i := 0; i < n; i++ {
		if i >= len(want) {
			return &Divergence{Index: i, Got: &got[i]}, nil
		}
		if i >= len(got) {
			return &Divergence{Index: i, Want: &want[i]}, nil
		}
		a, err := storage.MarshalRoll(want[i])
		if err != nil {
			return nil, fmt.Errorf("encode recorded roll %d: %w", i, err)
		}
		b, err := storage.MarshalRoll(got[i])
		if err != nil {
			return nil, fmt.Errorf("encode replayed roll %d: %w", i, err)
		}
		if !bytes.Equal(a, b) {
			return &Divergence{Index: i, Want: &want[i], Got: &got[i]}, nil
		}
	}
	return nil, nil
}
