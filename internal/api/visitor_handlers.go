package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nampox/reveal/internal/flow"
	"github.com/nampox/reveal/internal/models"
)

// createVisitorHandler issues a fresh visitor ID with the visited flag unset.
func (s *Server) createVisitorHandler(w http.ResponseWriter, r *http.Request) {
	v, err := s.st.CreateVisitor(uuid.NewString())
	if err != nil {
		slog.Error("Server.createVisitorHandler: failed to create visitor", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, errorResponse(msgInternalError))
		return
	}
	slog.Debug("Server.createVisitorHandler: visitor created", "visitor_id", v.ID)
	writeJSONResponse(w, http.StatusCreated, models.Success(v))
}

func (s *Server) getVisitorHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	v, err := s.st.GetVisitor(id)
	if err != nil {
		slog.Error("Server.getVisitorHandler: failed to load visitor", "visitor_id", id, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, errorResponse(msgInternalError))
		return
	}
	if v == nil {
		writeJSONResponse(w, http.StatusNotFound, errorResponse(msgVisitorNotFound))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(v))
}

// markVisitedHandler records that the visitor reached the letter. Repeating it
// keeps the first completion time.
func (s *Server) markVisitedHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if v, err := s.st.GetVisitor(id); err != nil {
		slog.Error("Server.markVisitedHandler: failed to load visitor", "visitor_id", id, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, errorResponse(msgInternalError))
		return
	} else if v == nil {
		writeJSONResponse(w, http.StatusNotFound, errorResponse(msgVisitorNotFound))
		return
	}

	// Same marker the reveal engine writes through when it reaches the letter
	if err := flow.NewStoreBasedMarker(s.st, id).MarkVisited(s.now()); err != nil {
		slog.Error("Server.markVisitedHandler: failed to mark visitor", "visitor_id", id, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, errorResponse(msgInternalError))
		return
	}
	v, err := s.st.GetVisitor(id)
	if err != nil || v == nil {
		slog.Error("Server.markVisitedHandler: visitor vanished after marking", "visitor_id", id, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, errorResponse(msgInternalError))
		return
	}
	slog.Info("Server.markVisitedHandler: visitor marked", "visitor_id", id)
	writeJSONResponse(w, http.StatusOK, models.Success(v))
}
