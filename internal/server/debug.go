package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

// DebugHandler предоставляет доступ к внутреннему состоянию сессий
type DebugHandler struct {
	Server *Server
}

func NewDebugHandler(s *Server) *DebugHandler {
	return &DebugHandler{Server: s}
}

// RegisterRoutes регистрирует debug-эндпоинты на подроутере /debug
func (h *DebugHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/sessions", h.handleListSessions).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}/replay", h.handleReplay).Methods(http.MethodGet)
}

// /debug/sessions - список активных сессий
func (h *DebugHandler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.Server.Sessions())
}

// /debug/sessions/{id}/replay - записанные команды сессии без журнала бросков.
// Журнал бросков пишет горутина сессии, поэтому здесь он не читается.
func (h *DebugHandler) handleReplay(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	sess, ok := h.Server.Session(id)
	if !ok {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	writeJSON(w, sess.Actions())
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Content-Type", "application/json")

	// Если data == nil (например, нет сессий), возвращаем пустой массив [], а не null
	if data == nil {
		w.Write([]byte("[]"))
		return
	}

	json.NewEncoder(w).Encode(data)
}
