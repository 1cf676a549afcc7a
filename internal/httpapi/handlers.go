package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/MimeLyc/sentence-sub-translator/internal/auth"
	"github.com/MimeLyc/sentence-sub-translator/internal/history"
	"github.com/MimeLyc/sentence-sub-translator/internal/quota"
	"github.com/MimeLyc/sentence-sub-translator/internal/service"
	"github.com/MimeLyc/sentence-sub-translator/internal/subtitle"
	"github.com/MimeLyc/sentence-sub-translator/pkg/log"
)

const defaultHistoryLimit = 100

// Usage status values.
const (
	usageActive         = "active"
	usageInactive       = "inactive"
	usageNoSubscription = "no_subscription"
)

type translateResponse struct {
	FileName string `json:"filename"`
	Content  string `json:"content"`
}

type usageResponse struct {
	Status           string `json:"status"`
	CharactersUsed   int64  `json:"characters_used"`
	CharactersLimit  int64  `json:"characters_limit"`
	SubscriptionType string `json:"subscription_type,omitempty"`
}

type historyResponse struct {
	Translations []history.Record `json:"translations"`
	Total        int              `json:"total"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	req, status, err := s.readUpload(r)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}

	result, err := s.translations.Translate(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, translateResponse{
		FileName: result.FileName,
		Content:  string(result.Content),
	})
}

// readUpload parses the multipart "file" field and the target_language query
// parameter. The returned status is meaningful only when err is set.
func (s *Server) readUpload(r *http.Request) (service.TranslationRequest, int, error) {
	req := service.TranslationRequest{
		UserID:         auth.UserID(r),
		TargetLanguage: strings.TrimSpace(r.URL.Query().Get("target_language")),
	}
	if req.TargetLanguage == "" {
		req.TargetLanguage = s.defaultLanguage
	}

	if r.ContentLength > s.maxUploadBytes {
		return req, http.StatusRequestEntityTooLarge, fmt.Errorf("file exceeds %d bytes", s.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return req, http.StatusRequestEntityTooLarge, fmt.Errorf("file exceeds %d bytes", tooLarge.Limit)
		}
		return req, http.StatusBadRequest, fmt.Errorf("invalid multipart body")
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return req, http.StatusBadRequest, fmt.Errorf("file is required")
	}
	defer file.Close()

	if !subtitle.IsSRTName(header.Filename) {
		return req, http.StatusBadRequest, fmt.Errorf("only %s files are supported", subtitle.SRTExt)
	}
	content, err := io.ReadAll(file)
	if err != nil {
		return req, http.StatusBadRequest, fmt.Errorf("read uploaded file: %v", err)
	}
	req.FileName = header.Filename
	req.Content = content
	return req, 0, nil
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	usage, err := s.translations.Usage(r.Context(), auth.UserID(r))
	if errors.Is(err, quota.ErrNoActiveSubscription) {
		writeJSON(w, http.StatusOK, usageResponse{Status: usageNoSubscription})
		return
	}
	if err != nil {
		log.Error("Failed to read usage: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to read usage")
		return
	}

	status := usageInactive
	if usage.Active {
		status = usageActive
	}
	writeJSON(w, http.StatusOK, usageResponse{
		Status:           status,
		CharactersUsed:   usage.Used,
		CharactersLimit:  usage.Limit,
		SubscriptionType: usage.PlanType,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	skip, err := parseNonNegative(r.URL.Query().Get("skip"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "skip must be a non-negative integer")
		return
	}
	limit, err := parseNonNegative(r.URL.Query().Get("limit"), defaultHistoryLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}

	recs, total, err := s.translations.History(r.Context(), auth.UserID(r), skip, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{Translations: recs, Total: total})
}

func parseNonNegative(raw string, def int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid value %q", raw)
	}
	return n, nil
}

// statusForError maps pipeline failures to HTTP status codes.
func statusForError(err error) int {
	switch {
	case service.IsErrorType(err, service.ErrQuotaExceeded):
		return http.StatusPaymentRequired
	case service.IsErrorType(err, service.ErrMalformedInput),
		service.IsErrorType(err, service.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		log.Error("Request failed: %v", err)
	}
	msg := err.Error()
	var transErr *service.CTXTransError
	if errors.As(err, &transErr) {
		msg = transErr.Message
		if transErr.Cause != nil {
			msg += ": " + transErr.Cause.Error()
		}
	}
	writeError(w, status, msg)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}
