package web

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/JonMunkholm/junkai/internal/core"
)

// multipartOverhead is added to the file limit for form fields and
// boundaries.
const multipartOverhead = 1 << 20

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.ListEvents())
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := s.service.GetEvent(pathParam(r, "event"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"event": ev,
		"dates": core.EventDates(ev.Items),
	})
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteEvent(r.Context(), pathParam(r, "event")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type renameRequest struct {
	NewName string `json:"newName"`
}

func (s *Server) handleRenameEvent(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	name := pathParam(r, "event")
	if err := s.service.RenameEvent(r.Context(), name, req.NewName); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"from": name, "to": strings.TrimSpace(req.NewName)})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "event")

	// Render first so a failure can still be reported as JSON.
	var buf bytes.Buffer
	if err := s.service.Export(name, &buf); err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", attachmentName(name+".csv"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.service.Summary(pathParam(r, "event"), r.URL.Query().Get("date"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// importRequest is the JSON form of an import. Source is "url" or
// "manual"; CSV files are uploaded as multipart forms instead.
type importRequest struct {
	Event   string              `json:"event"`
	Source  string              `json:"source"`
	URL     string              `json:"url"`
	Sheet   string              `json:"sheet"`
	Columns *core.ManualColumns `json:"columns"`
	TSV     string              `json:"tsv"`
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var (
		event string
		src   core.ImportSource
	)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxFileSize+multipartOverhead)
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				respondError(w, r, fmt.Errorf("upload: %w", core.ErrFileTooLarge))
				return
			}
			respondError(w, r, core.NewValidationError("file", "", "invalid multipart form"))
			return
		}
		defer r.MultipartForm.RemoveAll()

		file, header, err := r.FormFile("file")
		if err != nil {
			respondError(w, r, core.NewValidationError("file", "", "file is required"))
			return
		}
		defer file.Close()

		event = r.FormValue("event")
		src = core.CSVFileSource{Name: header.Filename, Data: file}
	} else {
		var req importRequest
		if err := decodeJSON(w, r, &req); err != nil {
			respondError(w, r, err)
			return
		}
		event = req.Event
		switch req.Source {
		case "url":
			src = core.SpreadsheetSource{URL: req.URL, Sheet: req.Sheet}
		case "manual":
			switch {
			case req.Columns != nil:
				src = core.ManualPasteSource{Columns: *req.Columns}
			case req.TSV != "":
				src = core.ManualPasteSource{Columns: core.ColumnsFromTSV(req.TSV)}
			default:
				respondError(w, r, core.NewValidationError("circles", "", "no rows pasted"))
				return
			}
		default:
			respondError(w, r, core.NewValidationError("source", req.Source, "source must be url or manual"))
			return
		}
	}

	report, err := s.service.Import(r.Context(), event, src)
	if err != nil {
		respondError(w, r, err)
		return
	}
	status := http.StatusOK
	if report.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, report)
}
