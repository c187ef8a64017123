package web

import (
	"net/http"

	"github.com/JonMunkholm/junkai/internal/core"
)

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var row core.RawRow
	if err := decodeJSON(w, r, &row); err != nil {
		respondError(w, r, err)
		return
	}
	item, err := s.service.AddItem(r.Context(), pathParam(r, "event"), row)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var row core.RawRow
	if err := decodeJSON(w, r, &row); err != nil {
		respondError(w, r, err)
		return
	}
	item, err := s.service.UpdateItem(r.Context(), pathParam(r, "event"), pathParam(r, "id"), row)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteItem(r.Context(), pathParam(r, "event"), pathParam(r, "id")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	st, err := core.ValidateStatus(req.Status)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.service.SetPurchaseStatus(r.Context(), pathParam(r, "event"), pathParam(r, "id"), st); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": pathParam(r, "id"), "status": string(st)})
}
