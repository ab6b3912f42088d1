package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fourad-server/internal/catalog"
	"fourad-server/internal/domain"
	"fourad-server/internal/engine"
	"fourad-server/internal/engine/handlers/actions"
	"fourad-server/internal/infrastructure/storage"
	"fourad-server/internal/network"
	"fourad-server/pkg/api"
	"fourad-server/pkg/logger"

	"github.com/gorilla/websocket"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return cat
}

func cmd(action domain.ActionType, payload string) domain.InternalCommand {
	return domain.InternalCommand{Action: action, Payload: json.RawMessage(payload)}
}

func newTestSession(t *testing.T, debug bool) *Session {
	t.Helper()
	cfg := engine.Config{Seed: 7, AutoRerolls: true}
	return NewSession("sess_test", cfg, testCatalog(t), network.NewBroadcaster(), debug)
}

func TestSession_Execute(t *testing.T) {
	s := newTestSession(t, false)

	resp := s.Execute(cmd(domain.ActionStart, `{"monsters":[{"template":"goblins","count":3}]}`))
	if resp.Type != api.ResponseUpdate {
		t.Fatalf("START = %s (%s)", resp.Type, resp.Error)
	}
	if resp.Seq != 1 || resp.SessionID != "sess_test" {
		t.Errorf("seq/session = %d/%q", resp.Seq, resp.SessionID)
	}
	if resp.State == nil || len(resp.State.Heroes) != 4 || len(resp.State.Monsters) != 1 {
		t.Fatalf("state = %+v", resp.State)
	}
	if resp.State.Monsters[0].Count != 3 {
		t.Errorf("goblins = %d, want 3", resp.State.Monsters[0].Count)
	}
	start, ok := resp.Result.(actions.StartResult)
	if !ok || len(start.Monsters) != 1 {
		t.Fatalf("result = %#v", resp.Result)
	}

	// STATE не пишется в реплей
	resp = s.Execute(cmd(domain.ActionState, ``))
	if resp.Type != api.ResponseUpdate || resp.Seq != 1 {
		t.Errorf("STATE = %s seq %d", resp.Type, resp.Seq)
	}

	// Отладочные команды без debug не зарегистрированы
	resp = s.Execute(cmd(domain.ActionAdminHeal, ``))
	if resp.Type != api.ResponseError || resp.Seq != 1 {
		t.Errorf("ADMIN_HEAL = %s seq %d", resp.Type, resp.Seq)
	}

	// Отклоненная команда все равно пишется
	resp = s.Execute(cmd(domain.ActionAttack, `{"heroId":"nobody","targetId":"`+start.Monsters[0]+`"}`))
	if resp.Type != api.ResponseError || resp.Seq != 2 {
		t.Errorf("bad ATTACK = %s seq %d", resp.Type, resp.Seq)
	}
	if !strings.Contains(resp.Error, "unknown hero") {
		t.Errorf("error = %q", resp.Error)
	}

	// Ошибка валидации payload
	resp = s.Execute(cmd(domain.ActionAttack, `{"heroId":"warrior"}`))
	if resp.Type != api.ResponseError || !strings.Contains(resp.Error, "validation failed") {
		t.Errorf("invalid ATTACK = %s %q", resp.Type, resp.Error)
	}

	if got := len(s.Snapshot().Actions); got != 3 {
		t.Errorf("recorded = %d, want 3", got)
	}

	st := s.Status()
	if st.Round != 1 || st.Actions != 3 || st.RNG != s.Encounter.RNGState() {
		t.Errorf("status = %+v", st)
	}
}

func TestSession_ProcessCommand_Unknown(t *testing.T) {
	s := newTestSession(t, false)
	updates := s.Hub.Register(s.ID)

	if err := s.ProcessCommand(api.ClientCommand{Action: "DANCE"}); err != ErrUnknownAction {
		t.Fatalf("err = %v, want ErrUnknownAction", err)
	}
	select {
	case resp := <-updates:
		if resp.Type != api.ResponseError || resp.Action != "DANCE" {
			t.Errorf("resp = %+v", resp)
		}
	default:
		t.Fatal("no error response sent")
	}
	if len(s.CommandChan) != 0 {
		t.Error("unknown action was queued")
	}
}

// playSession гоняет короткую встречу и возвращает ее запись.
func playSession(t *testing.T) domain.ReplaySession {
	t.Helper()
	s := newTestSession(t, true)

	resp := s.Execute(cmd(domain.ActionStart, `{"monsters":[{"template":"goblins"}],"hasDoor":true}`))
	if resp.Type != api.ResponseUpdate {
		t.Fatalf("START: %s", resp.Error)
	}
	target := resp.Result.(actions.StartResult).Monsters[0]

	for round := 0; round < 3; round++ {
		for _, hero := range []string{"warrior", "cleric", "rogue", "wizard"} {
			s.Execute(cmd(domain.ActionAttack, `{"heroId":"`+hero+`","targetId":"`+target+`"}`))
		}
		s.Execute(cmd(domain.ActionMonsterTurn, `{}`))
		s.Execute(cmd(domain.ActionNewRound, ``))
	}
	s.Execute(cmd(domain.ActionAdminSpawn, `{"template":"orcs","count":2}`))
	s.Execute(cmd(domain.ActionMonsterTurn, `{}`))
	return s.Snapshot()
}

func TestPlayback_Verifies(t *testing.T) {
	rec := playSession(t)
	if len(rec.Rolls) == 0 {
		t.Fatal("no rolls recorded")
	}

	res, err := Playback(&rec, testCatalog(t), engine.Config{AutoRerolls: true})
	if err != nil {
		t.Fatalf("Playback: %v", err)
	}
	if !res.Match() {
		t.Fatalf("diverged: %s", res.Divergence)
	}
	if res.Recorded != res.Replayed || res.Actions != len(rec.Actions) {
		t.Errorf("result = %+v", res)
	}
}

func TestPlayback_Divergence(t *testing.T) {
	rec := playSession(t)

	t.Run("tampered face", func(t *testing.T) {
		bad := rec
		bad.Rolls = append(bad.Rolls[:0:0], rec.Rolls...)
		bad.Rolls[0].Total += 100
		res, err := Playback(&bad, testCatalog(t), engine.Config{AutoRerolls: true})
		if err != nil {
			t.Fatal(err)
		}
		if res.Match() || res.Divergence.Index != 0 {
			t.Fatalf("divergence = %v", res.Divergence)
		}
	})

	t.Run("missing tail", func(t *testing.T) {
		short := rec
		short.Rolls = rec.Rolls[:len(rec.Rolls)-1]
		res, err := Playback(&short, testCatalog(t), engine.Config{AutoRerolls: true})
		if err != nil {
			t.Fatal(err)
		}
		if res.Match() || res.Divergence.Index != len(short.Rolls) || res.Divergence.Want != nil {
			t.Fatalf("divergence = %v", res.Divergence)
		}
	})

	t.Run("other seed", func(t *testing.T) {
		other := rec
		other.Seed++
		res, err := Playback(&other, testCatalog(t), engine.Config{AutoRerolls: true})
		if err != nil {
			t.Fatal(err)
		}
		if res.Match() {
			t.Fatal("different seed replayed identically")
		}
	})
}

func readResponse(t *testing.T, conn *websocket.Conn) api.ServerResponse {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var resp api.ServerResponse
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read: %v", err)
	}
	return resp
}

func TestServer_HTTPAndWebsocket(t *testing.T) {
	dir := t.TempDir()
	replays, err := storage.NewReplayService(dir)
	if err != nil {
		t.Fatal(err)
	}
	srv := New(Config{Port: "0", Debug: true}, engine.Config{Seed: 99, AutoRerolls: true}, testCatalog(t), replays)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	// health + version
	res, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(res.Body)
	res.Body.Close()
	if res.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Errorf("health = %d %q", res.StatusCode, body)
	}
	if res.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("CORS header missing")
	}

	res, err = http.Get(ts.URL + "/version")
	if err != nil {
		t.Fatal(err)
	}
	var info map[string]any
	if err := json.NewDecoder(res.Body).Decode(&info); err != nil {
		t.Errorf("version json: %v", err)
	}
	res.Body.Close()

	// websocket: первый ответ - снимок пустой встречи
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	first := readResponse(t, conn)
	if first.Type != api.ResponseUpdate || first.SessionID == "" || first.Action != "STATE" {
		t.Fatalf("first = %+v", first)
	}

	if err := conn.WriteJSON(api.ClientCommand{
		Action:  "start",
		Payload: json.RawMessage(`{"monsters":[{"template":"rats","count":2}]}`),
	}); err != nil {
		t.Fatal(err)
	}
	started := readResponse(t, conn)
	if started.Type != api.ResponseUpdate || started.Seq != 1 || len(started.State.Monsters) != 1 {
		t.Fatalf("start = %+v", started)
	}

	// debug: одна активная сессия
	res, err = http.Get(ts.URL + "/debug/sessions")
	if err != nil {
		t.Fatal(err)
	}
	var sessions []SessionStatus
	if err := json.NewDecoder(res.Body).Decode(&sessions); err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if len(sessions) != 1 || sessions[0].ID != first.SessionID || sessions[0].Actions != 1 {
		t.Errorf("sessions = %+v", sessions)
	}

	res, err = http.Get(ts.URL + "/debug/sessions/nope/replay")
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Errorf("unknown session = %d", res.StatusCode)
	}

	// Отключение и остановка: реплей сохранен
	conn.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	files, _ := filepath.Glob(filepath.Join(dir, "*"+storage.FileExt))
	if len(files) != 1 {
		t.Fatalf("replays = %v", files)
	}
	res2, err := PlaybackFile(files[0], testCatalog(t), engine.Config{AutoRerolls: true})
	if err != nil {
		t.Fatal(err)
	}
	if !res2.Match() {
		t.Errorf("saved replay diverged: %s", res2.Divergence)
	}
}
