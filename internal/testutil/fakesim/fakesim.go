// Package fakesim provides an in-process stand-in for the device simulator's
// HTTP API, used by tests of the client packages.
package fakesim

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Targets known to the stock simulator.
var Targets = []string{"T3", "T4", "BATTERY", "SUBSTATION", "WATERLINE"}

// Profile is a stored connection profile. IDs are integers as in the
// simulator's SQLite table.
type Profile struct {
	ID       int    `json:"id"`
	Note     string `json:"note"`
	Broker   string `json:"broker"`
	Port     int    `json:"port"`
	Topic    string `json:"topic"`
	Username string `json:"username"`
}

// Server is a fake simulator.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	running    bool
	interval   int
	active     map[string]map[string]bool
	profiles   []Profile
	nextID     int
	statusCode int
	statusBody string
	publishes  int
	requests   map[string]int
	lastStart  map[string]any
}

// New starts a fake simulator with an empty event table.
func New() *Server {
	s := &Server{nextID: 1, requests: make(map[string]int)}
	s.resetEvents()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/mqtt_configs", s.handleListConfigs)
	mux.HandleFunc("POST /api/mqtt_configs", s.handleSaveConfig)
	mux.HandleFunc("DELETE /api/mqtt_configs/{id}", s.handleDeleteConfig)
	mux.HandleFunc("POST /start", s.handleStart)
	mux.HandleFunc("POST /stop", s.handleStop)
	mux.HandleFunc("POST /trigger_event", s.handleTrigger)
	mux.HandleFunc("POST /trigger_immediate_refresh", s.handlePublish)
	s.Server = httptest.NewServer(s.count(mux))
	return s
}

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests[r.Method+" "+r.URL.Path]++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) resetEvents() {
	s.active = make(map[string]map[string]bool, len(Targets))
	for _, t := range Targets {
		s.active[t] = map[string]bool{}
	}
}

// Requests returns how many requests hit "METHOD /path".
func (s *Server) Requests(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[key]
}

// TotalRequests returns the number of requests received so far.
func (s *Server) TotalRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.requests {
		n += c
	}
	return n
}

// AddProfile stores a profile directly and returns its id.
func (s *Server) AddProfile(note, broker string, port int, topic, username string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := Profile{ID: s.nextID, Note: note, Broker: broker, Port: port, Topic: topic, Username: username}
	s.nextID++
	s.profiles = append(s.profiles, p)
	return p.ID
}

// Activate marks target/event active without going through the API.
func (s *Server) Activate(target, event string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active[target] == nil {
		s.active[target] = map[string]bool{}
	}
	s.active[target][event] = true
}

// SetRunning forces the running flag.
func (s *Server) SetRunning(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = v
}

// Running reports the running flag.
func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Interval returns the interval of the last accepted start request.
func (s *Server) Interval() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// LastStart returns the decoded body of the last start request.
func (s *Server) LastStart() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastStart
}

// Publishes returns how many immediate publish requests were received.
func (s *Server) Publishes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.publishes
}

// FailStatus makes the status endpoint answer with code and a raw body.
// A zero code restores normal behaviour.
func (s *Server) FailStatus(code int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusCode = code
	s.statusBody = body
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	code, body := s.statusCode, s.statusBody
	payload := map[string]any{
		"simulation_running": s.running,
		"active_events":      s.copyActive(),
	}
	s.mu.Unlock()
	if code != 0 {
		w.WriteHeader(code)
		_, _ = w.Write([]byte(body))
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) copyActive() map[string]map[string]bool {
	out := make(map[string]map[string]bool, len(s.active))
	for t, events := range s.active {
		cp := make(map[string]bool, len(events))
		for e, v := range events {
			cp[e] = v
		}
		out[t] = cp
	}
	return out
}

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	list := append([]Profile(nil), s.profiles...)
	s.mu.Unlock()
	sort.Slice(list, func(i, j int) bool { return list[i].Note < list[j].Note })
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleSaveConfig(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Note     string `json:"note"`
		Broker   string `json:"broker"`
		Port     string `json:"port"`
		Topic    string `json:"topic"`
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	port, err := strconv.Atoi(in.Port)
	if err != nil || in.Note == "" || in.Broker == "" || in.Topic == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing or invalid fields"})
		return
	}
	s.mu.Lock()
	for _, p := range s.profiles {
		if p.Note == in.Note {
			s.mu.Unlock()
			writeJSON(w, http.StatusConflict, map[string]string{"error": "A configuration with note '" + in.Note + "' already exists."})
			return
		}
	}
	s.mu.Unlock()
	id := s.AddProfile(in.Note, in.Broker, port, in.Topic, in.Username)
	writeJSON(w, http.StatusCreated, map[string]any{"id": id, "message": "Configuration saved."})
}

func (s *Server) handleDeleteConfig(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.profiles {
		if p.ID == id {
			s.profiles = append(s.profiles[:i], s.profiles[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]string{"message": "Configuration deleted."})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "No configuration with that ID."})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid body"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastStart = body
	id, _ := strconv.Atoi(toString(body["config_id"]))
	found := false
	for _, p := range s.profiles {
		if p.ID == id {
			found = true
		}
	}
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Configuration not found."})
		return
	}
	if s.running {
		writeJSON(w, http.StatusOK, map[string]string{"status": "Running", "message": "Simulation already running."})
		return
	}
	interval, _ := strconv.Atoi(toString(body["interval"]))
	s.interval = interval
	s.running = true
	writeJSON(w, http.StatusOK, map[string]string{"status": "Running", "message": "Simulation started."})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		writeJSON(w, http.StatusOK, map[string]string{"status": "Stopped", "message": "Simulation was not running."})
		return
	}
	s.running = false
	writeJSON(w, http.StatusOK, map[string]string{"status": "Stopped", "message": "Simulation stopped."})
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Event string `json:"event"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	s.mu.Lock()
	defer s.mu.Unlock()
	if body.Event == "" || body.Event == "none" {
		s.resetEvents()
		writeJSON(w, http.StatusOK, map[string]string{"status": "Running", "message": "Normal operation - all events cleared."})
		return
	}
	target, event, ok := strings.Cut(body.Event, "_")
	target = strings.ToUpper(target)
	events, known := s.active[target]
	if !ok || !known {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "Error", "message": "Invalid event format or unknown key: " + body.Event})
		return
	}
	if events[event] {
		delete(events, event)
		writeJSON(w, http.StatusOK, map[string]string{"status": "Running", "message": "Event '" + event + "' cleared for target '" + target + "'."})
		return
	}
	events[event] = true
	writeJSON(w, http.StatusOK, map[string]string{"status": "Running", "message": "Event '" + event + "' activated for target '" + target + "'."})
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.publishes++
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "Immediate refresh triggered"})
}

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.Itoa(int(x))
	default:
		return ""
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
