package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/nampox/reveal/internal/models"
)

// Layouts matching what browser clients produce for the same instants.
const (
	isoUTCLayout   = "2006-01-02T15:04:05.000Z"
	isoLocalLayout = "2006-01-02T15:04:05.000-07:00"
	viLayout       = "15:04:05 2/1/2006"
)

// greetHandler says hello to ?name=, or to the placeholder name when absent.
func (s *Server) greetHandler(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		name = models.DefaultGreetName
	}
	slog.Debug("Server.greetHandler: greeting", "name", name, "method", r.Method)
	writeJSONResponse(w, http.StatusOK, models.GreetResponse{
		Message:   fmt.Sprintf("Xin chào, %s! 👋", name),
		Timestamp: s.now().UTC().Format(isoUTCLayout),
		Method:    r.Method,
	})
}

// timeHandler reports the server time in UTC and in Vietnam local time.
// unixSeconds is derived from the same instant as utc, so it always equals
// the floor of the millisecond timestamp in utc.
func (s *Server) timeHandler(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	local := now.In(vietnamZone)
	writeJSONResponse(w, http.StatusOK, models.TimeResponse{
		UTC:         now.UTC().Format(isoUTCLayout),
		Local:       local.Format(isoLocalLayout),
		UnixSeconds: now.Unix(),
		Formatted:   local.Format(viLayout),
		ServerLabel: s.label,
	})
}

// usersHandler serves the fake user directory.
func (s *Server) usersHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listUsers(w)
	case http.MethodPost:
		s.createUser(w, r)
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
	default:
		slog.Warn("Server.usersHandler: method not allowed", "method", r.Method)
		methodNotAllowed(w, "GET, POST, OPTIONS")
	}
}

func (s *Server) listUsers(w http.ResponseWriter) {
	users, err := s.st.ListUsers()
	if err != nil {
		slog.Error("Server.listUsers: failed to list users", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, errorResponse(msgInternalError))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessList(users, len(users)))
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	var req models.NewUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.createUser: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, errorResponse(msgInvalidJSON))
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("Server.createUser: validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, errorResponse(msgMissingNameOrEmail))
		return
	}
	user, err := s.st.AddUser(req)
	if err != nil {
		slog.Error("Server.createUser: failed to add user", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, errorResponse(msgInternalError))
		return
	}
	slog.Info("Server.createUser: user created", "id", user.ID)
	writeJSONResponse(w, http.StatusCreated, models.SuccessWithMessage(msgUserCreated, user))
}

// healthHandler provides a health check endpoint for monitoring and load balancing
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	healthData := map[string]interface{}{
		"status":    "healthy",
		"timestamp": s.now().UTC().Format(isoUTCLayout),
	}

	// The user directory doubles as a store liveness probe
	if _, err := s.st.ListUsers(); err != nil {
		slog.Warn("Health check: store unavailable", "error", err)
		healthData["status"] = "degraded"
		healthData["error"] = "Failed to reach the store"
	}

	statusCode := http.StatusOK
	if healthData["status"] == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSONResponse(w, statusCode, healthData)
}

// choreographyHandler returns the active timing configuration.
// Durations are encoded as nanoseconds, the encoding/json default for time.Duration.
func (s *Server) choreographyHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.Success(s.choreo))
}
