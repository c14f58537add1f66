package devserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"noor-chat/internal/knowledge"
)

func (s *Server) registerKnowledgeRoutes(r chi.Router) {
	r.Route("/api/concepts", func(r chi.Router) {
		r.Get("/", s.listConcepts)
		r.Post("/", s.createConcept)
		r.Put("/{id}", s.updateConcept)
		r.Delete("/{id}", s.deleteConcept)
	})
	r.Route("/api/relations", func(r chi.Router) {
		r.Get("/", s.listRelations)
		r.Post("/", s.createRelation)
		r.Delete("/{source}/{target}", s.deleteRelation)
	})
	r.Get("/api/categories", s.listCategories)
	r.Get("/api/export", s.exportKnowledge)
	r.Post("/api/import", s.importKnowledge)
	r.Post("/api/reason", s.reason)
}

// listConcepts honours optional q and category filters
func (s *Server) listConcepts(w http.ResponseWriter, r *http.Request) {
	var out []knowledge.Concept
	s.store.View(func(g *knowledge.Graph) {
		out = knowledge.Filter(g.Concepts(), r.URL.Query().Get("q"), r.URL.Query().Get("category"))
	})
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createConcept(w http.ResponseWriter, r *http.Request) {
	var c knowledge.Concept
	if !decode(w, r, &c) {
		return
	}
	c.ID = ""
	var created knowledge.Concept
	err := s.store.Update(func(g *knowledge.Graph) error {
		var err error
		created, err = g.AddConcept(c)
		return err
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) updateConcept(w http.ResponseWriter, r *http.Request) {
	var c knowledge.Concept
	if !decode(w, r, &c) {
		return
	}
	var updated knowledge.Concept
	err := s.store.Update(func(g *knowledge.Graph) error {
		var err error
		updated, err = g.UpdateConcept(chi.URLParam(r, "id"), c)
		return err
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteConcept(w http.ResponseWriter, r *http.Request) {
	err := s.store.Update(func(g *knowledge.Graph) error {
		return g.RemoveConcept(chi.URLParam(r, "id"))
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) listRelations(w http.ResponseWriter, r *http.Request) {
	var out []knowledge.Relation
	s.store.View(func(g *knowledge.Graph) { out = g.Relations() })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createRelation(w http.ResponseWriter, r *http.Request) {
	var rel knowledge.Relation
	if !decode(w, r, &rel) {
		return
	}
	var created knowledge.Relation
	err := s.store.Update(func(g *knowledge.Graph) error {
		var err error
		created, err = g.AddRelation(rel)
		return err
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) deleteRelation(w http.ResponseWriter, r *http.Request) {
	err := s.store.Update(func(g *knowledge.Graph) error {
		return g.RemoveRelation(chi.URLParam(r, "source"), chi.URLParam(r, "target"))
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	var out []string
	s.store.View(func(g *knowledge.Graph) { out = g.Categories() })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) exportKnowledge(w http.ResponseWriter, r *http.Request) {
	var out knowledge.Snapshot
	s.store.View(func(g *knowledge.Graph) { out = g.Snapshot() })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) importKnowledge(w http.ResponseWriter, r *http.Request) {
	var snap knowledge.Snapshot
	if !decode(w, r, &snap) {
		return
	}
	out, err := s.store.Replace(snap)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type reasonRequest struct {
	Question string `json:"question"`
}

// reason answers with the analysis, plan and graph reasoning for a question
func (s *Server) reason(w http.ResponseWriter, r *http.Request) {
	var req reasonRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}
	var out knowledge.Thought
	s.store.View(func(g *knowledge.Graph) { out = g.Think(req.Question) })
	s.logger.Debug("reasoned over knowledge base",
		zap.Int("concepts", len(out.Reasoning.Concepts)),
		zap.Int("inferences", len(out.Reasoning.Inferences)),
		zap.Float64("confidence", out.Reasoning.Confidence))
	writeJSON(w, http.StatusOK, out)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, knowledge.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, knowledge.ErrExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, knowledge.ErrInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
