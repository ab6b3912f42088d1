package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"fourad-server/internal/domain"
	"fourad-server/pkg/api"
	"fourad-server/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Bot представляет собой "Игрока-компьютера" (Headless Agent).
// Это ВНЕШНИЙ клиент: он подключается к серверу по WebSocket так же, как обычный игрок,
// получает снимки встречи и по ним выбирает следующую команду.
//
// Жизненный цикл:
//  1. Dial -> подключение, сервер открывает сессию и присылает пустой снимок.
//  2. Run -> START, затем по одной команде на каждый ответ, пока встреча не закончится.
//  3. nextCommand -> живые герои бьют первого врага, потом ход врагов и новый раунд.
type Bot struct {
	Conn  *websocket.Conn
	Start api.StartPayload

	// MaxCommands - предохранитель от бесконечной встречи.
	MaxCommands int

	readTimeout time.Duration
	acted       map[string]bool
	monstersHit bool
	log         *logrus.Entry
}

// Result - итог партии бота.
type Result struct {
	SessionID string
	Outcome   string
	Rounds    int
	Commands  int
	Rejected  int
}

var ErrTooManyCommands = errors.New("bot command limit reached")

// Dial подключает бота к /ws.
func Dial(ctx context.Context, url string, start api.StartPayload) (*Bot, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return &Bot{
		Conn:        conn,
		Start:       start,
		MaxCommands: 500,
		readTimeout: 10 * time.Second,
		acted:       make(map[string]bool),
		log:         logger.Component("bot"),
	}, nil
}

// Close закрывает соединение. Сервер сохранит реплей сессии.
func (b *Bot) Close() error {
	return b.Conn.Close()
}

// Run играет встречу до итога.
func (b *Bot) Run(ctx context.Context) (Result, error) {
	// Закрытие соединения прерывает блокирующее чтение
	stop := context.AfterFunc(ctx, func() { _ = b.Conn.Close() })
	defer stop()

	var res Result

	// 1. HANDSHAKE: первый ответ - снимок пустой встречи
	first, err := b.read()
	if err != nil {
		return res, err
	}
	res.SessionID = first.SessionID
	b.log = b.log.WithField("session_id", res.SessionID)

	// 2. START
	if err := b.send(domain.ActionStart, b.Start); err != nil {
		return res, err
	}
	res.Commands++

	// 3. ЦИКЛ: по одной команде на каждый ответ
	var state *api.EncounterView
	for {
		resp, err := b.read()
		if err != nil {
			return res, err
		}
		// Объявления сервера не отвечают на команды
		if resp.Action == "" {
			continue
		}
		if resp.Type == api.ResponseError {
			res.Rejected++
			b.log.WithFields(logrus.Fields{
				"action": resp.Action,
				"error":  resp.Error,
			}).Warn("Command rejected.")
			if state == nil {
				return res, fmt.Errorf("%s rejected: %s", resp.Action, resp.Error)
			}
		} else if resp.State != nil {
			state = resp.State
		}

		res.Rounds = state.Round
		if state.Outcome != "" {
			res.Outcome = state.Outcome
			b.log.WithFields(logrus.Fields{
				"outcome":  res.Outcome,
				"commands": res.Commands,
			}).Info("Encounter finished.")
			return res, nil
		}

		if res.Commands >= b.MaxCommands {
			return res, ErrTooManyCommands
		}
		action, payload := b.nextCommand(state)
		if err := b.send(action, payload); err != nil {
			return res, err
		}
		res.Commands++
	}
}

// nextCommand - мозг бота. Каждый живой герой бьет один раз за раунд.
func (b *Bot) nextCommand(state *api.EncounterView) (domain.ActionType, any) {
	foe := firstFoe(state)
	if foe != "" {
		for _, h := range state.Heroes {
			if !standing(h) || b.acted[h.ID] {
				continue
			}
			b.acted[h.ID] = true
			return domain.ActionAttack, api.AttackPayload{HeroID: h.ID, TargetID: foe}
		}
	}

	if !b.monstersHit {
		b.monstersHit = true
		return domain.ActionMonsterTurn, api.MonsterTurnPayload{}
	}

	clear(b.acted)
	b.monstersHit = false
	return domain.ActionNewRound, nil
}

func standing(h api.HeroView) bool {
	return h.HP > 0 && !slices.Contains(h.Status, string(domain.FlagDead))
}

func firstFoe(state *api.EncounterView) string {
	for _, m := range state.Monsters {
		if !m.Ally && !m.Defeated {
			return m.ID
		}
	}
	return ""
}

func (b *Bot) send(action domain.ActionType, payload any) error {
	cmd := api.ClientCommand{Action: action.String()}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s payload: %w", action, err)
		}
		cmd.Payload = raw
	}
	if err := b.Conn.WriteJSON(cmd); err != nil {
		return fmt.Errorf("send %s: %w", action, err)
	}
	return nil
}

func (b *Bot) read() (api.ServerResponse, error) {
	var resp api.ServerResponse
	if err := b.Conn.SetReadDeadline(time.Now().Add(b.readTimeout)); err != nil {
		return resp, err
	}
	if err := b.Conn.ReadJSON(&resp); err != nil {
		return resp, fmt.Errorf("read response: %w", err)
	}
	return resp, nil
}
