package web

import (
	"net/http"

	"github.com/JonMunkholm/junkai/internal/core"
)

// handlePrepareSync fetches the event's spreadsheet and returns the diff
// preview. The body may override the stored URL and sheet name.
func (s *Server) handlePrepareSync(w http.ResponseWriter, r *http.Request) {
	var opts core.SyncOptions
	if err := decodeJSON(w, r, &opts); err != nil {
		respondError(w, r, err)
		return
	}
	preview, err := s.service.PrepareSync(r.Context(), pathParam(r, "event"), opts)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (s *Server) handlePendingSync(w http.ResponseWriter, r *http.Request) {
	preview, err := s.service.PendingSync(pathParam(r, "event"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (s *Server) handleConfirmSync(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.ConfirmSync(r.Context(), pathParam(r, "event"), pathParam(r, "previewID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCancelSync(w http.ResponseWriter, r *http.Request) {
	if err := s.service.CancelSync(r.Context(), pathParam(r, "event")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
