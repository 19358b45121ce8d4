// Package appiumtest provides an in-memory Appium server for tests.
package appiumtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
)

// Command names recorded by the server.
const (
	Status        = "status"
	NewSession    = "newSession"
	DeleteSession = "deleteSession"
	FindElement   = "findElement"
	ElementClick  = "elementClick"
	SendKeys      = "elementSendKeys"
	ElementText   = "getElementText"
	TerminateApp  = "mobile: terminateApp"
	ActivateApp   = "mobile: activateApp"
)

const elementKey = "element-6066-11e4-a52e-4f735466cecf"

// Command is one request received by the server.
type Command struct {
	Name      string
	Method    string
	Path      string
	SessionID string
	Body      map[string]any
}

// Failure makes a command fail with a WebDriver error.
type Failure struct {
	// Status is the HTTP status. Defaults to 500.
	Status int
	// Error is the W3C error code. Defaults to "unknown error".
	Error   string
	Message string
	// Times is how many calls fail. Zero fails every call.
	Times int
}

type element struct {
	id    string
	using string
	value string
	text  string
}

type session struct {
	id           string
	capabilities map[string]any
	running      map[string]bool
}

// Server is a fake Appium server recording every command.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	commands []Command
	sessions map[string]*session
	elements map[string]*element
	failures map[string]*Failure
	notReady bool
}

// NewServer starts a server that is closed when the test ends.
func NewServer(tb testing.TB) *Server {
	tb.Helper()
	s := New()
	tb.Cleanup(s.Close)
	return s
}

// New starts a server. The caller must Close it.
func New() *Server {
	s := &Server{
		sessions: make(map[string]*session),
		elements: make(map[string]*element),
		failures: make(map[string]*Failure),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("POST /session", s.handleNewSession)
	mux.HandleFunc("DELETE /session/{id}", s.handleDeleteSession)
	mux.HandleFunc("POST /session/{id}/execute/sync", s.handleExecute)
	mux.HandleFunc("POST /session/{id}/element", s.handleFindElement)
	mux.HandleFunc("POST /session/{id}/element/{eid}/click", s.handleElement(ElementClick))
	mux.HandleFunc("POST /session/{id}/element/{eid}/value", s.handleElement(SendKeys))
	mux.HandleFunc("GET /session/{id}/element/{eid}/text", s.handleElement(ElementText))
	s.Server = httptest.NewServer(mux)
	return s
}

// Fail makes the named command fail.
func (s *Server) Fail(command string, f Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.Status == 0 {
		f.Status = http.StatusInternalServerError
	}
	if f.Error == "" {
		f.Error = "unknown error"
	}
	s.failures[command] = &f
}

// SetReady controls the ready flag reported by /status.
func (s *Server) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notReady = !ready
}

// AddElement adds an element found by the given locator.
func (s *Server) AddElement(using, value, text string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.elements[id] = &element{id: id, using: using, value: value, text: text}
	return id
}

// Commands returns the recorded commands in order.
func (s *Server) Commands() []Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Command(nil), s.commands...)
}

// CommandNames returns the names of recorded commands, skipping status polls.
func (s *Server) CommandNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.commands))
	for _, c := range s.commands {
		if c.Name != Status {
			names = append(names, c.Name)
		}
	}
	return names
}

// Count returns how often the named command was received.
func (s *Server) Count(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.commands {
		if c.Name == name {
			n++
		}
	}
	return n
}

// ActiveSessions returns the number of sessions not yet deleted.
func (s *Server) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Capabilities returns the alwaysMatch capabilities of the last session.
func (s *Server) Capabilities() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.commands) - 1; i >= 0; i-- {
		c := s.commands[i]
		if c.Name != NewSession {
			continue
		}
		caps, _ := c.Body["capabilities"].(map[string]any)
		always, _ := caps["alwaysMatch"].(map[string]any)
		return always
	}
	return nil
}

// Reset clears recorded commands, failures and sessions.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands = nil
	s.sessions = make(map[string]*session)
	s.failures = make(map[string]*Failure)
	s.notReady = false
}

// record stores the command and returns the failure to apply, if any.
func (s *Server) record(name string, r *http.Request, body map[string]any) *Failure {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands = append(s.commands, Command{
		Name:      name,
		Method:    r.Method,
		Path:      r.URL.Path,
		SessionID: r.PathValue("id"),
		Body:      body,
	})
	f, ok := s.failures[name]
	if !ok {
		return nil
	}
	if f.Times > 0 {
		f.Times--
		if f.Times == 0 {
			delete(s.failures, name)
		}
	}
	return f
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if f := s.record(Status, r, nil); f != nil {
		writeError(w, f.Status, f.Error, f.Message)
		return
	}
	s.mu.Lock()
	ready := !s.notReady
	s.mu.Unlock()
	writeValue(w, map[string]any{"ready": ready, "message": "fake appium"})
}

func (s *Server) handleNewSession(w http.ResponseWriter, r *http.Request) {
	body := decode(r)
	if f := s.record(NewSession, r, body); f != nil {
		writeError(w, f.Status, f.Error, f.Message)
		return
	}
	caps, _ := body["capabilities"].(map[string]any)
	always, _ := caps["alwaysMatch"].(map[string]any)

	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = &session{id: id, capabilities: always, running: map[string]bool{}}
	s.mu.Unlock()
	writeValue(w, map[string]any{"sessionId": id, "capabilities": always})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if f := s.record(DeleteSession, r, nil); f != nil {
		writeError(w, f.Status, f.Error, f.Message)
		return
	}
	if !s.deleteSession(r.PathValue("id")) {
		writeError(w, http.StatusNotFound, "invalid session id", "session is either terminated or not started")
		return
	}
	writeValue(w, nil)
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	body := decode(r)
	script, _ := body["script"].(string)
	if f := s.record(script, r, body); f != nil {
		writeError(w, f.Status, f.Error, f.Message)
		return
	}
	sess := s.session(r.PathValue("id"))
	if sess == nil {
		writeError(w, http.StatusNotFound, "invalid session id", "session is either terminated or not started")
		return
	}

	appID := scriptAppID(body)
	switch script {
	case TerminateApp:
		s.mu.Lock()
		wasRunning := sess.running[appID]
		sess.running[appID] = false
		s.mu.Unlock()
		writeValue(w, wasRunning)
	case ActivateApp:
		s.mu.Lock()
		sess.running[appID] = true
		s.mu.Unlock()
		writeValue(w, nil)
	default:
		writeError(w, http.StatusNotFound, "unknown command", "unsupported script "+script)
	}
}

func (s *Server) handleFindElement(w http.ResponseWriter, r *http.Request) {
	body := decode(r)
	if f := s.record(FindElement, r, body); f != nil {
		writeError(w, f.Status, f.Error, f.Message)
		return
	}
	if s.session(r.PathValue("id")) == nil {
		writeError(w, http.StatusNotFound, "invalid session id", "session is either terminated or not started")
		return
	}
	using, _ := body["using"].(string)
	value, _ := body["value"].(string)

	s.mu.Lock()
	var found *element
	for _, e := range s.elements {
		if e.using == using && e.value == value {
			found = e
			break
		}
	}
	s.mu.Unlock()

	if found == nil {
		writeError(w, http.StatusNotFound, "no such element", "An element could not be located on the page using the given search parameters.")
		return
	}
	writeValue(w, map[string]string{elementKey: found.id})
}

func (s *Server) handleElement(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if r.Method == http.MethodPost {
			body = decode(r)
		}
		if f := s.record(name, r, body); f != nil {
			writeError(w, f.Status, f.Error, f.Message)
			return
		}
		if s.session(r.PathValue("id")) == nil {
			writeError(w, http.StatusNotFound, "invalid session id", "session is either terminated or not started")
			return
		}

		s.mu.Lock()
		e, ok := s.elements[r.PathValue("eid")]
		var text string
		if ok {
			if name == SendKeys {
				e.text, _ = body["text"].(string)
			}
			text = e.text
		}
		s.mu.Unlock()

		if !ok {
			writeError(w, http.StatusNotFound, "stale element reference", "element is not attached to the page document")
			return
		}
		if name == ElementText {
			writeValue(w, text)
			return
		}
		writeValue(w, nil)
	}
}

func (s *Server) session(id string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id]
}

func (s *Server) deleteSession(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

func scriptAppID(body map[string]any) string {
	args, _ := body["args"].([]any)
	if len(args) == 0 {
		return ""
	}
	arg, _ := args[0].(map[string]any)
	for _, key := range []string{"appId", "bundleId"} {
		if v, ok := arg[key].(string); ok {
			return v
		}
	}
	return ""
}

func decode(r *http.Request) map[string]any {
	body := map[string]any{}
	if r.Body == nil {
		return body
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	return body
}

func writeValue(w http.ResponseWriter, value any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(map[string]any{"value": value})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"value": map[string]any{
		"error":      code,
		"message":    message,
		"stacktrace": "",
	}})
}

// URLWithCredentials returns the server URL with user info, as device
// farms expect.
func (s *Server) URLWithCredentials(user, key string) string {
	return strings.Replace(s.URL, "http://", "http://"+user+":"+key+"@", 1)
}
