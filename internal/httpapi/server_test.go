package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/sentence-sub-translator/internal/auth"
	"github.com/MimeLyc/sentence-sub-translator/internal/history"
	"github.com/MimeLyc/sentence-sub-translator/internal/jobs"
	"github.com/MimeLyc/sentence-sub-translator/internal/quota"
	"github.com/MimeLyc/sentence-sub-translator/internal/service"
	"github.com/MimeLyc/sentence-sub-translator/internal/translator"
)

const sampleSRT = `1
00:00:01,000 --> 00:00:02,000
Hello there.

2
00:00:03,000 --> 00:00:04,000
How are you?
`

type testEnv struct {
	server  *Server
	jwt     *auth.JWTService
	quota   *quota.MemoryStore
	history *history.MemoryStore
}

func prefixTranslator(ctx context.Context, text string, targetLang string) (string, error) {
	return "[" + targetLang + "] " + text, nil
}

func newTestEnv(t *testing.T, tr translator.Translator, opts ...Option) *testEnv {
	t.Helper()
	if tr == nil {
		tr = translator.Func(prefixTranslator)
	}
	q := quota.NewMemoryStore()
	require.NoError(t, q.SetPlan(context.Background(), "alice", quota.Plan{Type: "basic", Limit: 10000, Active: true}))
	require.NoError(t, q.SetPlan(context.Background(), "bob", quota.Plan{Type: "free", Limit: 5, Active: true}))
	h := history.NewMemoryStore()

	pipeline, err := service.NewPipeline(tr, q, h)
	require.NoError(t, err)
	jwtService, err := auth.NewJWTService("test-secret", time.Hour)
	require.NoError(t, err)

	opts = append([]Option{WithDefaultTargetLanguage("de")}, opts...)
	return &testEnv{
		server:  NewServer(pipeline, jwtService, opts...),
		jwt:     jwtService,
		quota:   q,
		history: h,
	}
}

func (e *testEnv) do(t *testing.T, req *http.Request, userID string) *httptest.ResponseRecorder {
	t.Helper()
	if userID != "" {
		token, err := e.jwt.GenerateToken(userID)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, target, fileName, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestServer_Health(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/health", nil), "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_RequiresToken(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, path := range []string{"/api/translation/usage", "/api/translation/history"} {
		rec := env.do(t, httptest.NewRequest(http.MethodGet, path, nil), "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
	rec := env.do(t, uploadRequest(t, "/api/translation/translate", "Movie.srt", sampleSRT), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_Translate(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, uploadRequest(t, "/api/translation/translate?target_language=FR", "Movie.srt", sampleSRT), "alice")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[translateResponse](t, rec)
	assert.Equal(t, "Movie.fr.srt", resp.FileName)
	assert.Contains(t, resp.Content, "00:00:01,000 --> 00:00:02,000\n[FR] Hello there.")
	assert.Contains(t, resp.Content, "[FR] How are you?")
}

func TestServer_TranslateUsesDefaultLanguage(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, uploadRequest(t, "/api/translation/translate", "Movie.srt", sampleSRT), "alice")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Movie.de.srt", decode[translateResponse](t, rec).FileName)
}

func TestServer_TranslateErrors(t *testing.T) {
	failing := translator.Func(func(ctx context.Context, text string, targetLang string) (string, error) {
		return "", fmt.Errorf("bad request: %w", translator.ErrPermanent)
	})

	tests := []struct {
		name     string
		tr       translator.Translator
		user     string
		fileName string
		content  string
		status   int
	}{
		{name: "not an srt", user: "alice", fileName: "Movie.ass", content: sampleSRT, status: http.StatusBadRequest},
		{name: "malformed srt", user: "alice", fileName: "Movie.srt", content: "  \n", status: http.StatusBadRequest},
		{name: "quota exceeded", user: "bob", fileName: "Movie.srt", content: sampleSRT, status: http.StatusPaymentRequired},
		{name: "no subscription", user: "carol", fileName: "Movie.srt", content: sampleSRT, status: http.StatusPaymentRequired},
		{name: "translation failure", tr: failing, user: "alice", fileName: "Movie.srt", content: sampleSRT, status: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.tr)
			rec := env.do(t, uploadRequest(t, "/api/translation/translate?target_language=de", tt.fileName, tt.content), tt.user)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[map[string]string](t, rec)["error"])
		})
	}
}

func TestServer_TranslateMissingFile(t *testing.T) {
	env := newTestEnv(t, nil)
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("note", "no file"))
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/translation/translate", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := env.do(t, req, "alice")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_TranslateTooLarge(t *testing.T) {
	env := newTestEnv(t, nil, WithMaxUploadBytes(64))
	rec := env.do(t, uploadRequest(t, "/api/translation/translate", "Movie.srt", strings.Repeat(sampleSRT, 10)), "alice")
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())
}

func TestServer_Usage(t *testing.T) {
	env := newTestEnv(t, nil)
	require.NoError(t, env.quota.SetPlan(context.Background(), "dave", quota.Plan{Type: "pro", Limit: 100, Active: false}))

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/translation/usage", nil), "carol")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, usageResponse{Status: usageNoSubscription}, decode[usageResponse](t, rec))

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/translation/usage", nil), "dave")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, usageInactive, decode[usageResponse](t, rec).Status)

	rec = env.do(t, uploadRequest(t, "/api/translation/translate", "Movie.srt", sampleSRT), "alice")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/translation/usage", nil), "alice")
	require.Equal(t, http.StatusOK, rec.Code)
	usage := decode[usageResponse](t, rec)
	assert.Equal(t, usageActive, usage.Status)
	assert.Equal(t, int64(10000), usage.CharactersLimit)
	assert.Equal(t, int64(len("Hello there.")+len("How are you?")), usage.CharactersUsed)
	assert.Equal(t, "basic", usage.SubscriptionType)
}

func TestServer_History(t *testing.T) {
	env := newTestEnv(t, nil)
	for i := 0; i < 3; i++ {
		name := fmt.Sprintf("Episode%d.srt", i)
		rec := env.do(t, uploadRequest(t, "/api/translation/translate", name, sampleSRT), "alice")
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/translation/history?skip=1&limit=1", nil), "alice")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[historyResponse](t, rec)
	assert.Equal(t, 3, resp.Total)
	require.Len(t, resp.Translations, 1)
	assert.Equal(t, history.StatusCompleted, resp.Translations[0].Status)
	assert.Equal(t, "de", resp.Translations[0].TargetLanguage)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/translation/history", nil), "bob")
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[historyResponse](t, rec)
	assert.Zero(t, resp.Total)
	assert.Empty(t, resp.Translations)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/translation/history?skip=-1", nil), "alice")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Jobs(t *testing.T) {
	queue := jobs.NewQueue(1, nil)
	env := newTestEnv(t, nil, WithJobQueue(queue))
	pipeline := env.server.translations.(*service.Pipeline)
	queue.Start(pipeline.ExecuteJob)
	defer queue.Stop()

	rec := env.do(t, uploadRequest(t, "/api/translation/jobs?target_language=es", "Movie.srt", sampleSRT), "alice")
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	created := decode[struct {
		Created bool        `json:"created"`
		Job     jobResponse `json:"job"`
	}](t, rec)
	require.True(t, created.Created)
	jobID := created.Job.ID
	require.NotEmpty(t, jobID)

	require.Eventually(t, func() bool {
		job, ok := queue.Get(jobID)
		return ok && job.Status.Terminal()
	}, 2*time.Second, 10*time.Millisecond)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/translation/jobs/"+jobID, nil), "alice")
	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, string(jobs.StatusSuccess), got["status"])
	assert.Contains(t, got["content"], "[es] Hello there.")

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/translation/jobs/"+jobID+"/download", nil), "alice")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "Movie.es.srt")
	assert.Contains(t, rec.Body.String(), "[es] How are you?")

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/translation/jobs/"+jobID, nil), "bob")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/translation/jobs", nil), "alice")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 1)
}

func TestServer_DownloadQuotesFileName(t *testing.T) {
	queue := jobs.NewQueue(1, nil)
	env := newTestEnv(t, nil, WithJobQueue(queue))
	pipeline := env.server.translations.(*service.Pipeline)
	queue.Start(pipeline.ExecuteJob)
	defer queue.Stop()

	rec := env.do(t, uploadRequest(t, "/api/translation/jobs?target_language=es", `Say "hi"; now.srt`, sampleSRT), "alice")
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var created struct {
		Job jobResponse `json:"job"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	require.Eventually(t, func() bool {
		job, ok := queue.Get(created.Job.ID)
		return ok && job.Status == jobs.StatusSuccess
	}, 2*time.Second, 10*time.Millisecond)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/translation/jobs/"+created.Job.ID+"/download", nil), "alice")
	require.Equal(t, http.StatusOK, rec.Code)
	disposition, params, err := mime.ParseMediaType(rec.Header().Get("Content-Disposition"))
	require.NoError(t, err)
	assert.Equal(t, "attachment", disposition)
	assert.Equal(t, `Say "hi"; now.es.srt`, params["filename"])
}

func TestServer_JobsDedupeAndPending(t *testing.T) {
	queue := jobs.NewQueue(1, nil)
	env := newTestEnv(t, nil, WithJobQueue(queue))

	first := env.do(t, uploadRequest(t, "/api/translation/jobs", "Movie.srt", sampleSRT), "alice")
	require.Equal(t, http.StatusAccepted, first.Code)
	second := env.do(t, uploadRequest(t, "/api/translation/jobs", "Movie.srt", sampleSRT), "alice")
	require.Equal(t, http.StatusOK, second.Code)

	var a, b struct {
		Job jobResponse `json:"job"`
	}
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &a))
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &b))
	assert.Equal(t, a.Job.ID, b.Job.ID)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/translation/jobs/"+a.Job.ID+"/download", nil), "alice")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestServer_JobRoutesDisabledWithoutQueue(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/translation/jobs", nil), "alice")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_JobStream(t *testing.T) {
	queue := jobs.NewQueue(1, nil)
	env := newTestEnv(t, nil, WithJobQueue(queue))
	env.do(t, uploadRequest(t, "/api/translation/jobs", "Movie.srt", sampleSRT), "alice")

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/translation/jobs/stream", nil).WithContext(ctx)
	cancel()

	rec := env.do(t, req, "alice")
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "data: ["))
	assert.Contains(t, rec.Body.String(), `"file_name":"Movie.srt"`)
}

func TestServer_ServesSPAFromStaticDir(t *testing.T) {
	staticDir := filepath.Join(t.TempDir(), "web")
	require.NoError(t, os.MkdirAll(staticDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(staticDir, "index.html"), []byte("<html>spa</html>"), 0o644))

	env := newTestEnv(t, nil, WithUI(staticDir, true))
	for _, url := range []string{"/", "/history/abc"} {
		rec := env.do(t, httptest.NewRequest(http.MethodGet, url, nil), "")
		assert.Equal(t, http.StatusOK, rec.Code, url)
		assert.Contains(t, rec.Body.String(), "spa")
	}

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/unknown", nil), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
