package httpapi

import (
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MimeLyc/sentence-sub-translator/internal/auth"
	"github.com/MimeLyc/sentence-sub-translator/internal/jobs"
	"github.com/MimeLyc/sentence-sub-translator/internal/service"
)

// jobResponse adds the translated content of a finished job.
type jobResponse struct {
	*jobs.TranslationJob
	Content string `json:"content,omitempty"`
}

func newJobResponse(job *jobs.TranslationJob, withContent bool) jobResponse {
	resp := jobResponse{TranslationJob: job}
	if withContent && job.Status == jobs.StatusSuccess && job.Result != nil {
		resp.Content = string(job.Result.Content)
	}
	return resp
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	req, status, err := s.readUpload(r)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}

	job, created := s.queue.Enqueue(service.NewJobRequest(req))
	code := http.StatusAccepted
	if !created {
		code = http.StatusOK
	}
	writeJSON(w, code, map[string]any{
		"created": created,
		"job":     newJobResponse(job, false),
	})
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	list := s.queue.ListForUser(auth.UserID(r))
	ret := make([]jobResponse, 0, len(list))
	for _, job := range list {
		ret = append(ret, newJobResponse(job, false))
	}
	writeJSON(w, http.StatusOK, ret)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.ownedJob(r)
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, newJobResponse(job, true))
}

func (s *Server) handleDownloadJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.ownedJob(r)
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if job.Status != jobs.StatusSuccess || job.Result == nil {
		writeError(w, http.StatusConflict, "job has not finished successfully")
		return
	}
	w.Header().Set("Content-Type", "application/x-subrip; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": job.Result.FileName}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(job.Result.Content)
}

// ownedJob looks up the {id} job; jobs of other users are reported missing.
func (s *Server) ownedJob(r *http.Request) (*jobs.TranslationJob, bool) {
	job, ok := s.queue.Get(chi.URLParam(r, "id"))
	if !ok || job.Payload.UserID != auth.UserID(r) {
		return nil, false
	}
	return job, true
}
