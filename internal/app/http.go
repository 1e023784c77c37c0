package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"inspection/api/internal/export"
	"inspection/api/internal/grid"
	"inspection/api/internal/search"
	"inspection/api/internal/sheet"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"dependencies": map[string]any{"status": "ok"},
		}

		if err := s.service.Ping(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["dependencies"] = map[string]any{
				"status": "error",
				"error":  err.Error(),
			}
		}

		writeJSON(w, statusCode, map[string]any{
			"ok":     status == "ready",
			"status": status,
			"checks": checks,
		})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/templates" {
		writeJSON(w, http.StatusOK, map[string]any{"templates": s.service.Templates()})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/search" {
		s.handleSearch(w, r)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/sheets" {
		limit, ok := queryInt(w, r, "limit", 50)
		if !ok {
			return
		}
		items, err := s.service.ListSheets(r.Context(), r.URL.Query().Get("template"), limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not list sheets", nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sheets": items})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/sheets" {
		var body struct {
			Template string `json:"template"`
			Title    string `json:"title"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		view, err := s.service.CreateSheet(r.Context(), body.Template, body.Title)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"sheet": view})
		return
	}

	parts := splitPath(r.URL.Path)
	if len(parts) >= 3 && parts[0] == "api" && parts[1] == "sheets" {
		s.handleSheet(w, r, parts[2], parts[3:])
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleSheet(w http.ResponseWriter, r *http.Request, sheetID string, rest []string) {
	if len(rest) == 0 {
		switch r.Method {
		case http.MethodGet:
			view, err := s.service.GetSheet(r.Context(), sheetID)
			if err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"sheet": view})
		case http.MethodDelete:
			if err := s.service.DeleteSheet(r.Context(), sheetID); err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	switch {
	case len(rest) == 1 && rest[0] == "rows":
		s.handleRows(w, r, sheetID)
	case len(rest) == 1 && rest[0] == "lots":
		s.handleLots(w, r, sheetID)
	case len(rest) == 3 && rest[0] == "lots" && rest[2] == "save" && r.Method == http.MethodPost:
		s.handleSaveLot(w, r, sheetID, rest[1])
	case len(rest) == 1 && rest[0] == "cells" && r.Method == http.MethodPut:
		s.handleCell(w, r, sheetID)
	case len(rest) == 1 && rest[0] == "locks" && r.Method == http.MethodPut:
		s.handleLock(w, r, sheetID)
	case len(rest) == 1 && rest[0] == "navigate" && r.Method == http.MethodPost:
		s.handleNavigate(w, r, sheetID)
	case len(rest) == 1 && rest[0] == "export" && r.Method == http.MethodGet:
		s.handleExport(w, r, sheetID)
	case len(rest) == 1 && rest[0] == "history" && r.Method == http.MethodGet:
		limit, ok := queryInt(w, r, "limit", 50)
		if !ok {
			return
		}
		items, err := s.service.History(r.Context(), sheetID, limit)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sheetId": sheetID, "history": items})
	case len(rest) == 2 && rest[0] == "history" && r.Method == http.MethodGet:
		view, revision, err := s.service.Revision(r.Context(), sheetID, rest[1])
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sheet": view, "revision": revision})
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleRows(w http.ResponseWriter, r *http.Request, sheetID string) {
	var mutation sheet.Mutation
	switch r.Method {
	case http.MethodPost:
		var body struct {
			Count any  `json:"count"`
			Lot   *int `json:"lot"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		lot := -1
		if body.Lot != nil {
			lot = *body.Lot
		}
		mutation = sheet.AddRows(parseCount(body.Count), lot)
	case http.MethodDelete:
		lot, ok := queryInt(w, r, "lot", -1)
		if !ok {
			return
		}
		mutation = sheet.DeleteLastRow(lot)
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}
	s.apply(w, r, sheetID, mutation)
}

func (s *HTTPServer) handleLots(w http.ResponseWriter, r *http.Request, sheetID string) {
	var mutation sheet.Mutation
	switch r.Method {
	case http.MethodPost:
		var body struct {
			Rows any `json:"rows"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		rows := 0
		if body.Rows != nil {
			rows = parseCount(body.Rows)
		}
		mutation = sheet.CreateLot(rows)
	case http.MethodDelete:
		mutation = sheet.DeleteLot()
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}
	s.apply(w, r, sheetID, mutation)
}

func (s *HTTPServer) handleSaveLot(w http.ResponseWriter, r *http.Request, sheetID, rawLot string) {
	number, err := strconv.Atoi(rawLot)
	if err != nil || number < 1 {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "lot must be a positive integer", nil)
		return
	}
	var body struct {
		Author string `json:"author"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	result, err := s.service.SaveLot(r.Context(), sheetID, number-1, body.Author)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) handleCell(w http.ResponseWriter, r *http.Request, sheetID string) {
	var body struct {
		Grid   string `json:"grid"`
		Lot    int    `json:"lot"`
		Row    int    `json:"row"`
		Col    int    `json:"col"`
		Text   string `json:"text"`
		Commit bool   `json:"commit"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	pos := grid.Pos{Lot: body.Lot, Row: body.Row, Col: body.Col}
	s.apply(w, r, sheetID, sheet.SetCell(body.Grid, pos, body.Text, body.Commit))
}

func (s *HTTPServer) handleLock(w http.ResponseWriter, r *http.Request, sheetID string) {
	var body struct {
		Grid   string `json:"grid"`
		Column string `json:"column"`
		Locked bool   `json:"locked"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if strings.TrimSpace(body.Column) == "" {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "column is required", nil)
		return
	}
	s.apply(w, r, sheetID, sheet.SetLock(body.Grid, body.Column, body.Locked))
}

func (s *HTTPServer) handleNavigate(w http.ResponseWriter, r *http.Request, sheetID string) {
	var body struct {
		Grid string `json:"grid"`
		Lot  int    `json:"lot"`
		Row  int    `json:"row"`
		Col  int    `json:"col"`
		Key  string `json:"key"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	result, err := s.service.Navigate(r.Context(), sheetID, body.Grid, grid.Pos{Lot: body.Lot, Row: body.Row, Col: body.Col}, body.Key)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request, sheetID string) {
	format, err := export.ParseFormat(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format"))))
	if err != nil {
		writeMappedError(w, err)
		return
	}
	upload := r.URL.Query().Get("upload") == "true"
	result, err := s.service.Export(r.Context(), sheetID, format, upload)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	if upload {
		writeJSON(w, http.StatusOK, map[string]any{
			"url":      result.URL,
			"filename": result.Filename,
			"mimeType": result.MimeType,
			"size":     len(result.Data),
		})
		return
	}
	w.Header().Set("Content-Type", result.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, result.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit", 20)
	if !ok {
		return
	}
	offset, ok := queryInt(w, r, "offset", 0)
	if !ok {
		return
	}
	query := search.Query{
		Text:           strings.TrimSpace(r.URL.Query().Get("q")),
		FilterType:     search.ResultType(strings.TrimSpace(r.URL.Query().Get("type"))),
		FilterTemplate: strings.TrimSpace(r.URL.Query().Get("template")),
		Limit:          limit,
		Offset:         offset,
	}
	writeJSON(w, http.StatusOK, s.service.Search(r.Context(), query))
}

func (s *HTTPServer) apply(w http.ResponseWriter, r *http.Request, sheetID string, mutation sheet.Mutation) {
	view, err := s.service.Apply(r.Context(), sheetID, mutation)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sheet": view})
}

// maxAddCount caps the rows one request may add.
const maxAddCount = 500

// parseCount reads a row count that may arrive as a number or a string.
// Anything that is not a positive integer counts as one, and counts above
// maxAddCount are cut to it.
func parseCount(raw any) int {
	count := 0
	switch v := raw.(type) {
	case float64:
		if !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 1 {
			count = int(math.Min(v, maxAddCount))
		}
	case string:
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			count = parsed
		} else if errors.Is(err, strconv.ErrRange) && !strings.HasPrefix(strings.TrimSpace(v), "-") {
			count = maxAddCount
		}
	}
	if count <= 0 {
		return 1
	}
	return min(count, maxAddCount)
}

func queryInt(w http.ResponseWriter, r *http.Request, key string, fallback int) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, true
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", key+" must be an integer", nil)
		return 0, false
	}
	return parsed, true
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Access-Control-Expose-Headers", "Content-Disposition, X-Request-ID")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func writeMappedError(w http.ResponseWriter, err error) {
	status, code, message, details := mapError(err)
	if status == http.StatusInternalServerError {
		log.Printf("api: %v", err)
	}
	writeError(w, status, code, message, details)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) || errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
