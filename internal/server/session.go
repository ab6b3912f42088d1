package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"fourad-server/internal/catalog"
	"fourad-server/internal/domain"
	"fourad-server/internal/engine"
	"fourad-server/internal/engine/handlers"
	"fourad-server/internal/engine/handlers/actions"
	"fourad-server/internal/engine/handlers/admin"
	"fourad-server/internal/network"
	"fourad-server/pkg/api"
	"fourad-server/pkg/dice"
	"fourad-server/pkg/logger"

	"github.com/sirupsen/logrus"
)

var (
	ErrUnknownAction = errors.New("unknown action")
	ErrQueueFull     = errors.New("command queue is full")
)

// Session - одна встреча одного подключения.
// Встречей владеет горутина Run, снаружи команды приходят только через CommandChan.
type Session struct {
	ID        string
	Encounter *engine.Encounter
	Catalog   *catalog.Catalog

	CommandChan chan domain.InternalCommand
	Hub         *network.Broadcaster

	handlers map[domain.ActionType]handlers.HandlerFunc
	log      *logrus.Entry

	// mu защищает реплей и счетчики: их читают debug-эндпоинты и сохранение.
	mu      sync.Mutex
	replay  domain.ReplaySession
	seq     int
	lastCmd time.Time
	started time.Time
	round   int
	outcome engine.Outcome
	rng     uint32
}

// SessionStatus - краткая сводка для /debug/sessions
type SessionStatus struct {
	ID      string `json:"id"`
	Seed    uint32 `json:"seed"`
	Actions int    `json:"actions"`
	Round   int    `json:"round"`
	Outcome string `json:"outcome,omitempty"`
	RNG     uint32 `json:"rngState"`
	Started int64  `json:"startedAt"`
	LastCmd int64  `json:"lastCommandAt,omitempty"`
}

// NewSession создает сессию с собственной встречей. debug включает ADMIN_* команды.
func NewSession(id string, cfg engine.Config, cat *catalog.Catalog, hub *network.Broadcaster, debug bool) *Session {
	now := time.Now()
	s := &Session{
		ID:          id,
		Encounter:   engine.NewEncounter(id, cfg),
		Catalog:     cat,
		CommandChan: make(chan domain.InternalCommand, 100),
		Hub:         hub,
		handlers:    make(map[domain.ActionType]handlers.HandlerFunc),
		log:         logger.Component("session").WithField("session_id", id),
		replay: domain.ReplaySession{
			SessionID: id,
			Seed:      cfg.Seed,
			Timestamp: now.Unix(),
		},
		started: now,
	}
	s.registerHandlers(debug)
	return s
}

func (s *Session) registerHandlers(debug bool) {
	s.handlers[domain.ActionStart] = handlers.WithPayload(actions.HandleStart)
	s.handlers[domain.ActionAttack] = handlers.WithPayload(actions.HandleAttack)
	s.handlers[domain.ActionMonsterTurn] = handlers.WithPayload(actions.HandleMonsterTurn)
	s.handlers[domain.ActionCast] = handlers.WithPayload(actions.HandleCast)
	s.handlers[domain.ActionFlee] = handlers.WithEmptyPayload(actions.HandleFlee)
	s.handlers[domain.ActionWithdraw] = handlers.WithEmptyPayload(actions.HandleWithdraw)
	s.handlers[domain.ActionNewRound] = handlers.WithEmptyPayload(actions.HandleNewRound)
	s.handlers[domain.ActionTile] = handlers.WithEmptyPayload(actions.HandleTile)
	s.handlers[domain.ActionState] = handlers.WithEmptyPayload(actions.HandleState)

	if !debug {
		return
	}
	s.handlers[domain.ActionAdminHeal] = handlers.WithEmptyPayload(admin.HandleHeal)
	s.handlers[domain.ActionAdminKill] = handlers.WithPayload(admin.HandleKill)
	s.handlers[domain.ActionAdminSpawn] = handlers.WithPayload(admin.HandleSpawn)
}

// ProcessCommand принимает команду от внешнего мира (WebSocket).
// Неизвестная команда или полная очередь - ответ об ошибке сразу, без очереди.
func (s *Session) ProcessCommand(externalCmd api.ClientCommand) error {
	actionType := domain.ParseAction(externalCmd.Action)
	if actionType == domain.ActionUnknown {
		s.log.WithField("action", externalCmd.Action).Warn("Unknown action.")
		s.Hub.SendTo(s.ID, errorResponse(externalCmd.Action, 0, fmt.Errorf("%w: %s", ErrUnknownAction, externalCmd.Action)))
		return ErrUnknownAction
	}

	select {
	case s.CommandChan <- domain.InternalCommand{Action: actionType, Payload: externalCmd.Payload}:
		return nil
	default:
		s.Hub.SendTo(s.ID, errorResponse(externalCmd.Action, 0, ErrQueueFull))
		return ErrQueueFull
	}
}

// Run - цикл сессии: выполняет команды по одной и отправляет ответы в хаб.
func (s *Session) Run(ctx context.Context) {
	s.log.Info("Session loop started.")
	defer s.log.Info("Session loop stopped.")

	for {
		select {
		case <-ctx.Done():
			return
		case cmd, ok := <-s.CommandChan:
			if !ok {
				return
			}
			s.Hub.SendTo(s.ID, s.Execute(cmd))
		}
	}
}

// Execute выполняет одну команду синхронно и собирает ответ.
// Все меняющие команды (и отклоненные тоже) пишутся в реплей до вызова хендлера.
func (s *Session) Execute(cmd domain.InternalCommand) api.ServerResponse {
	handler, ok := s.handlers[cmd.Action]
	if !ok {
		return errorResponse(cmd.Action.String(), s.Seq(), fmt.Errorf("%w: %s", ErrUnknownAction, cmd.Action))
	}

	// 1. Запись в реплей
	s.mu.Lock()
	if cmd.Action.Mutates() {
		s.seq++
		s.replay.Actions = append(s.replay.Actions, domain.ReplayAction{
			Seq:     s.seq,
			Action:  cmd.Action,
			Payload: append(json.RawMessage(nil), cmd.Payload...),
		})
	}
	seq := s.seq
	s.lastCmd = time.Now()
	s.mu.Unlock()

	// 2. Вызов хендлера
	ctx := handlers.Context{Encounter: s.Encounter, Catalog: s.Catalog}
	result, err := handler(ctx, cmd.Payload)

	entry := s.log.WithFields(logrus.Fields{
		"action": cmd.Action.String(),
		"seq":    seq,
	})
	if err != nil {
		entry.WithError(err).Debug("Command rejected.")
		// События и логи не должны утечь в следующий ответ
		s.Encounter.TakeEvents()
		s.Encounter.TakeLogs()
		return errorResponse(cmd.Action.String(), seq, err)
	}
	s.Encounter.AddLog(result.Msg, result.MsgType)
	if cmd.Action.IsAdmin() {
		entry.Warn("Admin command applied.")
	}

	// 3. Сборка ответа
	resp := api.ServerResponse{
		Type:      api.ResponseUpdate,
		Seq:       seq,
		SessionID: s.ID,
		Action:    cmd.Action.String(),
		Result:    result.Data,
		State:     s.Encounter.View(),
		Logs:      s.Encounter.TakeLogs(),
	}
	envelopes, err := domain.WrapEvents(s.Encounter.TakeEvents())
	if err != nil {
		entry.WithError(err).Error("Failed to encode events.")
	}
	for _, ev := range envelopes {
		resp.Events = append(resp.Events, api.EventView{Type: ev.Type, Data: ev.Data})
	}

	s.mu.Lock()
	s.round, s.outcome = s.Encounter.Round, s.Encounter.Outcome
	s.rng = s.Encounter.RNGState()
	s.mu.Unlock()

	entry.WithField("events", len(resp.Events)).Debug("Command applied.")
	return resp
}

// Seq - номер последней записанной команды.
func (s *Session) Seq() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Snapshot возвращает копию записи сессии вместе с журналом бросков.
// Вызывать после остановки Run или из его горутины: журнал бросков пишет встреча.
func (s *Session) Snapshot() domain.ReplaySession {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.replay
	out.Actions = append([]domain.ReplayAction(nil), s.replay.Actions...)
	out.Rolls = append([]dice.RollRecord(nil), s.Encounter.Rolls.Records...)
	return out
}

// Actions - копия записанных команд. Безопасно вызывать из любой горутины.
func (s *Session) Actions() []domain.ReplayAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ReplayAction(nil), s.replay.Actions...)
}

// Status - сводка без журнала бросков.
func (s *Session) Status() SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := SessionStatus{
		ID:      s.ID,
		Seed:    s.replay.Seed,
		Actions: len(s.replay.Actions),
		Round:   s.round,
		Outcome: string(s.outcome),
		RNG:     s.rng,
		Started: s.started.Unix(),
	}
	if !s.lastCmd.IsZero() {
		st.LastCmd = s.lastCmd.Unix()
	}
	return st
}

func errorResponse(action string, seq int, err error) api.ServerResponse {
	return api.ServerResponse{
		Type:   api.ResponseError,
		Seq:    seq,
		Action: action,
		Error:  err.Error(),
	}
}
