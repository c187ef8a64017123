package web

import (
	"net/http"

	"github.com/JonMunkholm/junkai/internal/core"
)

// handleDayView renders both columns of a day. Query parameters:
// blocks=A,B narrows the candidates, status=Purchased,Late narrows the
// Execute column.
func (s *Server) handleDayView(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	statuses, err := parseStatuses(q.Get("status"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	view, err := s.service.DayView(pathParam(r, "event"), pathParam(r, "date"), splitList(q.Get("blocks")), statuses)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type moveRequest struct {
	Selection []string `json:"selection"`
	DragID    string   `json:"dragId"`
	HoverID   string   `json:"hoverId"`
	Column    string   `json:"column"`
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	column, err := parseColumn(req.Column)
	if err != nil {
		respondError(w, r, err)
		return
	}
	view, err := s.service.Move(r.Context(), pathParam(r, "event"), pathParam(r, "date"), core.MoveRequest{
		Selection: req.Selection,
		DragID:    req.DragID,
		HoverID:   req.HoverID,
		Column:    column,
	})
	s.respondDay(w, r, view, err)
}

type idsRequest struct {
	IDs []string `json:"ids"`
}

func (s *Server) handleMoveToExecute(w http.ResponseWriter, r *http.Request) {
	var req idsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	view, err := s.service.MoveToExecute(r.Context(), pathParam(r, "event"), pathParam(r, "date"), req.IDs)
	s.respondDay(w, r, view, err)
}

func (s *Server) handleRemoveFromExecute(w http.ResponseWriter, r *http.Request) {
	var req idsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	view, err := s.service.RemoveFromExecute(r.Context(), pathParam(r, "event"), pathParam(r, "date"), req.IDs)
	s.respondDay(w, r, view, err)
}

type sortRequest struct {
	Column string   `json:"column"`
	Dir    string   `json:"dir"`
	Blocks []string `json:"blocks"`
	IDs    []string `json:"ids"`
}

func (s *Server) handleBlockSort(w http.ResponseWriter, r *http.Request) {
	var req sortRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	column, err := parseColumn(req.Column)
	if err != nil {
		respondError(w, r, err)
		return
	}
	view, err := s.service.BlockSort(r.Context(), pathParam(r, "event"), pathParam(r, "date"), column, core.ParseDirection(req.Dir))
	s.respondDay(w, r, view, err)
}

func (s *Server) handleNumberSort(w http.ResponseWriter, r *http.Request) {
	var req sortRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	column, err := parseColumn(req.Column)
	if err != nil {
		respondError(w, r, err)
		return
	}
	view, err := s.service.NumberSort(r.Context(), pathParam(r, "event"), pathParam(r, "date"), column, core.ParseDirection(req.Dir), req.Blocks)
	s.respondDay(w, r, view, err)
}

func (s *Server) handleBulkSort(w http.ResponseWriter, r *http.Request) {
	var req sortRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	view, err := s.service.BulkSort(r.Context(), pathParam(r, "event"), pathParam(r, "date"), req.IDs, core.ParseDirection(req.Dir))
	s.respondDay(w, r, view, err)
}

func (s *Server) handleToggleMode(w http.ResponseWriter, r *http.Request) {
	date := pathParam(r, "date")
	mode, err := s.service.ToggleMode(r.Context(), pathParam(r, "event"), date)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"date": date, "mode": string(mode)})
}

func (s *Server) respondDay(w http.ResponseWriter, r *http.Request, view core.DayView, err error) {
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
