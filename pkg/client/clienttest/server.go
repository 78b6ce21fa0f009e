// Package clienttest provides an in-process fake of the task API
// for tests of the client and of code built on it.
package clienttest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
)

// CreateFunc answers a createTask call given the decoded request
// body. It returns the HTTP status and a JSON-encodable body.
type CreateFunc func(body map[string]any) (int, any)

// PollFunc answers the attempt-th (1-based) getTaskResult call for
// taskID.
type PollFunc func(taskID string, attempt int) (int, any)

// Server is a fake task API listening on a local port.
type Server struct {
	*httptest.Server

	create CreateFunc
	poll   PollFunc

	mu      sync.Mutex
	creates []map[string]any
	polls   map[string]int
	pollReq []map[string]any
}

// NewServer starts a fake API. Close it when done.
func NewServer(create CreateFunc, poll PollFunc) *Server {
	s := &Server{
		create: create,
		poll:   poll,
		polls:  make(map[string]int),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/createTask", s.handleCreate)
	mux.HandleFunc("/getTaskResult", s.handlePoll)
	s.Server = httptest.NewServer(mux)
	return s
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	body := decode(r)
	s.mu.Lock()
	s.creates = append(s.creates, body)
	s.mu.Unlock()

	if s.create == nil {
		write(w, http.StatusOK, Accept("t1"))
		return
	}
	status, out := s.create(body)
	write(w, status, out)
}

func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	body := decode(r)
	id, _ := body["taskId"].(string)
	s.mu.Lock()
	s.polls[id]++
	attempt := s.polls[id]
	s.pollReq = append(s.pollReq, body)
	s.mu.Unlock()

	if s.poll == nil {
		write(w, http.StatusOK, Pending())
		return
	}
	status, out := s.poll(id, attempt)
	write(w, status, out)
}

// CreateCalls returns the bodies of every createTask call.
func (s *Server) CreateCalls() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]any(nil), s.creates...)
}

// PollCalls returns the bodies of every getTaskResult call.
func (s *Server) PollCalls() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]any(nil), s.pollReq...)
}

// PollsFor returns how often taskID was polled.
func (s *Server) PollsFor(taskID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polls[taskID]
}

// Accept is a successful createTask response.
func Accept(taskID string) map[string]any {
	return map[string]any{"error_code": 0, "error_description": "", "taskId": taskID}
}

// Reject is a createTask response with a non-zero error code.
func Reject(code int, description string) map[string]any {
	return map[string]any{"error_code": code, "error_description": description}
}

// Pending is a getTaskResult response for an unfinished job.
func Pending() map[string]any {
	return map[string]any{"status": "PENDING", "errorId": 0}
}

// Ready is a getTaskResult response carrying solution.
func Ready(solution any) map[string]any {
	return map[string]any{"status": "ready", "errorId": 0, "solution": solution}
}

// Failed is a getTaskResult response with a non-zero error id.
func Failed(errorID int, message string) map[string]any {
	return map[string]any{"status": "ready", "errorId": errorID, "message": message}
}

// ReadyAfter answers Pending for the first pending polls and then
// Ready(solution).
func ReadyAfter(pending int, solution any) PollFunc {
	return func(_ string, attempt int) (int, any) {
		if attempt <= pending {
			return http.StatusOK, Pending()
		}
		return http.StatusOK, Ready(solution)
	}
}

func decode(r *http.Request) map[string]any {
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	return body
}

func write(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if raw, ok := body.(string); ok {
		w.Write([]byte(raw))
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}
