package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"fourad-server/internal/catalog"
	"fourad-server/internal/engine"
	"fourad-server/internal/infrastructure/storage"
	"fourad-server/internal/network"
	"fourad-server/internal/version"
	"fourad-server/pkg/api"
	"fourad-server/pkg/logger"

	"github.com/caarlos0/env/v11"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Config - параметры транспорта. Флаги cmd/server перекрывают окружение.
type Config struct {
	Port      string `env:"CD_PORT" envDefault:"8080"`
	ReplayDir string `env:"CD_REPLAY_DIR" envDefault:"replays"`
	Debug     bool   `env:"CD_DEBUG" envDefault:"false"`
}

// LoadConfig читает конфиг из окружения.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse server config: %w", err)
	}
	return cfg, nil
}

type Server struct {
	Config  Config
	Engine  engine.Config
	Catalog *catalog.Catalog
	Hub     *network.Broadcaster
	Replays *storage.ReplayService

	mu       sync.RWMutex
	sessions map[string]*Session
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	http     *http.Server
	log      *logrus.Entry
}

// New собирает сервер. replays может быть nil: тогда реплеи не сохраняются.
func New(cfg Config, engineCfg engine.Config, cat *catalog.Catalog, replays *storage.ReplayService) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		Config:   cfg,
		Engine:   engineCfg,
		Catalog:  cat,
		Hub:      network.NewBroadcaster(),
		Replays:  replays,
		sessions: make(map[string]*Session),
		ctx:      ctx,
		cancel:   cancel,
		log:      logger.Component("server"),
	}
	s.http = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Router собирает маршруты. Вынесен отдельно для httptest.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/ws", s.handleWS)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/version", s.handleVersion).Methods(http.MethodGet)

	if s.Config.Debug {
		debug := NewDebugHandler(s)
		debug.RegisterRoutes(r.PathPrefix("/debug").Subrouter())
	}

	r.Use(enableCORS)
	return r
}

// Run запускает HTTP сервер и блокируется до Shutdown.
func (s *Server) Run() error {
	s.log.WithFields(logrus.Fields{
		"port":  s.Config.Port,
		"debug": s.Config.Debug,
	}).Info("Four Against Darkness server running.")

	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown останавливает прием соединений, гасит сессии и сохраняет их реплеи.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)

	// Последнее сообщение игрокам до закрытия сессий
	if n := s.Hub.SubscriberCount(); n > 0 {
		s.Hub.Broadcast(api.ServerResponse{
			Type: api.ResponseUpdate,
			Logs: []api.LogEntry{{
				Text:      "Сервер останавливается, партия сохранена.",
				Type:      "INFO",
				Timestamp: time.Now().UnixMilli(),
			}},
		})
		s.log.WithField("sessions", n).Info("Shutdown notice sent.")
	}
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return err
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Разрешаем запросы с фронтенда
		w.Header().Set("Access-Control-Allow-Origin", "*")
		// Разрешаем заголовки, если фронт шлет что-то нестандартное
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		next.ServeHTTP(w, r)
	})
}

// handleWS обрабатывает подключение по WebSocket
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Error("Upgrade error.")
		return
	}

	client := s.newClient(conn)

	// Запускаем пампы
	go client.writePump()
	go client.readPump()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(version.Info())
}

// openSession создает сессию, регистрирует ее в хабе и запускает цикл.
// stop завершает цикл; после него реплей сохраняется, а канал обновлений закрывается.
func (s *Server) openSession(id string) (sess *Session, updates <-chan api.ServerResponse, stop context.CancelFunc) {
	cfg := s.Engine
	if cfg.Seed == 0 {
		cfg.Seed = engine.NewConfig().Seed
	}
	sess = NewSession(id, cfg, s.Catalog, s.Hub, s.Config.Debug)
	updates = s.Hub.Register(id)

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(s.ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		sess.Run(ctx)
		s.closeSession(sess)
	}()
	return sess, updates, cancel
}

// closeSession сохраняет реплей и убирает сессию. Вызывается из горутины сессии после Run.
func (s *Server) closeSession(sess *Session) {
	s.mu.Lock()
	delete(s.sessions, sess.ID)
	s.mu.Unlock()
	s.Hub.Unregister(sess.ID)

	if s.Replays == nil || sess.Seq() == 0 {
		return
	}
	rec := sess.Snapshot()
	path, err := s.Replays.Save(&rec)
	if err != nil {
		s.log.WithError(err).WithField("session_id", sess.ID).Error("Failed to save replay.")
		return
	}
	s.log.WithFields(logrus.Fields{
		"session_id": sess.ID,
		"path":       path,
		"actions":    len(rec.Actions),
		"rolls":      len(rec.Rolls),
	}).Info("Replay saved.")
}

// Sessions - снимок статусов активных сессий.
func (s *Server) Sessions() []SessionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]SessionStatus, 0, len(s.sessions))
	for _, id := range s.Hub.IDs() {
		if sess, ok := s.sessions[id]; ok {
			out = append(out, sess.Status())
		}
	}
	return out
}

// Session возвращает активную сессию по ID.
func (s *Server) Session(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}
