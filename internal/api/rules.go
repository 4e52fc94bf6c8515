package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-ports/homie/internal/engine"
	"github.com/go-ports/homie/internal/models"
)

func (s *Server) handleListRules(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, models.RuleList{
		Rules:  s.eng.Rules(),
		Active: s.eng.ActiveRules(),
	})
}

func (s *Server) handleAddRule(w http.ResponseWriter, r *http.Request) {
	var rule models.Rule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeError(w, http.StatusBadRequest, "invalid rule: "+err.Error())
		return
	}
	added, err := s.eng.Add(rule)
	switch {
	case errors.Is(err, engine.ErrDuplicateRule):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, engine.ErrInvalidRule):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal server error")
	default:
		writeJSON(w, http.StatusCreated, added)
	}
}

func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	var rule models.Rule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeError(w, http.StatusBadRequest, "invalid rule: "+err.Error())
		return
	}
	rule.ID = r.PathValue("id")
	if rule.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if !s.eng.Update(rule) {
		writeError(w, http.StatusNotFound, "rule not found")
		return
	}
	updated, _ := s.eng.Rule(rule.ID)
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	if !s.eng.Delete(r.PathValue("id")) {
		writeError(w, http.StatusNotFound, "rule not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	var ev models.ContextEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if ev.AppIdentifier == "" {
		writeError(w, http.StatusBadRequest, "appIdentifier is required")
		return
	}
	s.eng.Evaluate(ev)
	writeJSON(w, http.StatusOK, models.ContextResult{ActiveRules: s.eng.ActiveRuleNames()})
}
