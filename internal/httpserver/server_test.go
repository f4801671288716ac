package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/mindhaven/internal/ai"
	"github.com/MrSnakeDoc/mindhaven/internal/chat"
	"github.com/MrSnakeDoc/mindhaven/internal/chatlog"
	"github.com/MrSnakeDoc/mindhaven/internal/config"
	"github.com/MrSnakeDoc/mindhaven/internal/domain"
	"github.com/MrSnakeDoc/mindhaven/internal/httpserver/deps"
	"github.com/MrSnakeDoc/mindhaven/internal/journal"
	"github.com/MrSnakeDoc/mindhaven/internal/logger"
	"github.com/MrSnakeDoc/mindhaven/internal/metrics"
	"github.com/MrSnakeDoc/mindhaven/internal/music"
	"github.com/MrSnakeDoc/mindhaven/internal/session"
	"github.com/MrSnakeDoc/mindhaven/internal/store/memory"
)

type stubModel struct {
	mu    sync.Mutex
	reply string
	err   error
}

func (m *stubModel) Generate(context.Context, []ai.Message, string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reply, m.err
}

type stubFinder struct{}

func (stubFinder) FindTrack(_ context.Context, genre string) (*music.Track, error) {
	return &music.Track{Name: "Sunny " + genre, Artist: "The Testers", URL: "https://open.spotify.com/track/x"}, nil
}

type failingStore struct{ domain.EntryStore }

func (failingStore) List(context.Context) ([]domain.Entry, error) {
	return nil, domain.NewStorageError("list", errors.New("connection refused"))
}

func (failingStore) Ping(context.Context) error {
	return domain.NewStorageError("ping", errors.New("connection refused"))
}

type env struct {
	srv     *httptest.Server
	client  *http.Client
	store   domain.EntryStore
	model   *stubModel
	log     *chatlog.FileLog
	trigger chan struct{}
}

func newEnv(t *testing.T, store domain.EntryStore) *env {
	t.Helper()
	return newEnvWith(t, store, nil)
}

func newEnvWith(t *testing.T, store domain.EntryStore, tweak func(*deps.Deps)) *env {
	t.Helper()
	if store == nil {
		store = memory.NewEntryStore(nil)
	}
	model := &stubModel{reply: "That sounds meaningful. Keep going."}
	m := metrics.New("mindhaven_test")
	log := logger.Nop()

	commenter := ai.NewCommenter(model, memory.NewCommentCache(time.Hour), time.Second, log, m)
	rec := music.NewRecommender(music.DefaultCatalog(), stubFinder{}, time.Second, log, m)
	chatLog, err := chatlog.New(t.TempDir())
	require.NoError(t, err)

	cfg := &config.Config{StoreTimeout: time.Second, AITimeout: time.Second, CatalogTimeout: time.Second}
	e := &env{store: store, model: model, log: chatLog, trigger: make(chan struct{}, 1)}
	d := deps.Deps{
		Logger:          log,
		StartTime:       time.Now(),
		Version:         "test",
		RateLimitBurst:  100,
		RateLimitPerMin: 100,
		Backend:         "memory",
		Journal:         journal.NewPipeline(store, commenter, time.Second, time.UTC, log, m),
		Assistant:       chat.NewAssistant(model, rec, time.Second, log, m),
		Sessions:        session.NewMemoryStore(time.Hour),
		ChatLog:         chatLog,
		Comments:        memory.NewCommentCache(time.Hour),
		MusicEnabled:    true,
		Metrics:         m,
		SweepTrigger:    e.trigger,
	}
	if tweak != nil {
		tweak(&d)
	}

	e.srv = httptest.NewServer(NewRouter(cfg, d))
	t.Cleanup(e.srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	e.client = &http.Client{Jar: jar}
	return e
}

func (e *env) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (e *env) event(t *testing.T, fields url.Values) string {
	t.Helper()
	resp, err := e.client.PostForm(e.srv.URL+"/ui/events", fields)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestCreateAndListEntries(t *testing.T) {
	e := newEnv(t, nil)

	resp := e.do(t, http.MethodPost, "/api/entries", `{"text":"Had a rough day at work."}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[domain.Annotated](t, resp)
	assert.Equal(t, "Had a rough day at work.", created.Text)
	assert.Equal(t, "That sounds meaningful.", created.Comment)

	resp = e.do(t, http.MethodGet, "/api/entries", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[struct {
		Days []domain.DayGroup `json:"days"`
	}](t, resp)
	require.Len(t, list.Days, 1)
	require.Len(t, list.Days[0].Entries, 1)
	assert.Equal(t, "That sounds meaningful.", list.Days[0].Entries[0].Comment)

	resp = e.do(t, http.MethodGet, "/api/entries?comments=false", "")
	list = decode[struct {
		Days []domain.DayGroup `json:"days"`
	}](t, resp)
	assert.Empty(t, list.Days[0].Entries[0].Comment)
}

func TestCreateEntryValidation(t *testing.T) {
	e := newEnv(t, nil)

	for _, body := range []string{`{"text":"   "}`, `{}`, `not json`, `{"text":"x","extra":1}`} {
		resp := e.do(t, http.MethodPost, "/api/entries", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}

	entries, err := e.store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUpdateAndDeleteEntry(t *testing.T) {
	e := newEnv(t, nil)
	created, err := e.store.Create(context.Background(), "first draft")
	require.NoError(t, err)

	resp := e.do(t, http.MethodPut, "/api/entries/"+created.ID, `{"text":"second draft"}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = e.do(t, http.MethodPut, "/api/entries/missing", `{"text":"x"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = e.do(t, http.MethodDelete, "/api/entries/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = e.do(t, http.MethodDelete, "/api/entries/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	assert.Equal(t, "That entry is already gone.", body["error"])
}

func TestStorageFailureIsServiceUnavailable(t *testing.T) {
	e := newEnv(t, failingStore{memory.NewEntryStore(nil)})

	resp := e.do(t, http.MethodGet, "/api/entries", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp = e.do(t, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp = e.do(t, http.MethodGet, "/infra", "")
	infra := decode[map[string]any](t, resp)
	assert.Equal(t, "critical", infra["service_mode"])
}

func TestExportDownload(t *testing.T) {
	e := newEnv(t, nil)
	_, err := e.store.Create(context.Background(), "export me")
	require.NoError(t, err)

	resp := e.do(t, http.MethodGet, "/api/export?format=txt", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "journal_entries.txt")
	b, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(b), "Entry: export me")

	resp = e.do(t, http.MethodGet, "/export?format=pdf", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))

	resp = e.do(t, http.MethodGet, "/api/export?format=docx", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChatKeepsTranscriptPerSession(t *testing.T) {
	e := newEnv(t, nil)

	resp := e.do(t, http.MethodPost, "/api/chat", `{"message":"I feel happy today"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first := decode[struct {
		Reply      chat.Reply     `json:"reply"`
		Transcript []chat.Message `json:"transcript"`
	}](t, resp)
	require.NotNil(t, first.Reply.Track)
	assert.Contains(t, first.Reply.Text, "Here's a song recommendation to uplift your mood: [Sunny happy by The Testers]")
	assert.Len(t, first.Transcript, 2)

	resp = e.do(t, http.MethodPost, "/api/chat", `{"message":"tell me more"}`)
	second := decode[struct {
		Transcript []chat.Message `json:"transcript"`
	}](t, resp)
	assert.Len(t, second.Transcript, 4)

	// A fresh client starts a fresh conversation.
	other := &http.Client{}
	r, err := other.Get(e.srv.URL + "/api/chat")
	require.NoError(t, err)
	defer func() { _ = r.Body.Close() }()
	fresh := decode[struct {
		Transcript []chat.Message `json:"transcript"`
	}](t, r)
	assert.Empty(t, fresh.Transcript)

	resp = e.do(t, http.MethodDelete, "/api/chat", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = e.do(t, http.MethodGet, "/api/chat", "")
	cleared := decode[struct {
		Transcript []chat.Message `json:"transcript"`
	}](t, resp)
	assert.Empty(t, cleared.Transcript)
}

func TestChatFallbackAndValidation(t *testing.T) {
	e := newEnv(t, nil)
	e.model.err = errors.New("quota exceeded")

	resp := e.do(t, http.MethodPost, "/api/chat", `{"message":"hello"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[struct {
		Reply chat.Reply `json:"reply"`
	}](t, resp)
	assert.True(t, got.Reply.Fallback)
	assert.Equal(t, chat.FallbackReply, got.Reply.Text)

	resp = e.do(t, http.MethodPost, "/api/chat", `{"message":"  "}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChatPrompts(t *testing.T) {
	e := newEnv(t, nil)
	resp := e.do(t, http.MethodGet, "/api/chat/prompts", "")
	got := decode[struct {
		Prompts []string `json:"prompts"`
	}](t, resp)
	assert.Contains(t, got.Prompts, "How can I handle stress?")
}

func TestUIFlow(t *testing.T) {
	e := newEnv(t, nil)

	page := e.event(t, url.Values{"event": {"navigate"}, "page": {"add"}})
	assert.Contains(t, page, "Add Journal")

	page = e.event(t, url.Values{"event": {"submit_entry"}, "text": {"A calm evening walk."}})
	assert.Contains(t, page, "Journal entry saved. That sounds meaningful.")

	entries, err := e.store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	id := entries[0].ID

	page = e.event(t, url.Values{"event": {"navigate"}, "page": {"journals"}})
	assert.Contains(t, page, "A calm evening walk.")

	// Confirm without a request does nothing.
	e.event(t, url.Values{"event": {"confirm_delete"}, "id": {id}})
	entries, _ = e.store.List(context.Background())
	require.Len(t, entries, 1)

	page = e.event(t, url.Values{"event": {"request_delete"}, "id": {id}})
	assert.Contains(t, page, "Delete this entry?")

	page = e.event(t, url.Values{"event": {"confirm_delete"}, "id": {id}})
	assert.Contains(t, page, "Entry deleted.")
	entries, _ = e.store.List(context.Background())
	assert.Empty(t, entries)
}

func TestUIModifyBlankKeepsEditorOpen(t *testing.T) {
	e := newEnv(t, nil)
	created, err := e.store.Create(context.Background(), "keep me")
	require.NoError(t, err)

	e.event(t, url.Values{"event": {"request_modify"}, "id": {created.ID}})
	page := e.event(t, url.Values{"event": {"confirm_modify"}, "id": {created.ID}, "text": {"   "}})
	assert.Contains(t, page, "entry cannot be empty")
	assert.Contains(t, page, `value="confirm_modify"`)

	entries, _ := e.store.List(context.Background())
	assert.Equal(t, "keep me", entries[0].Text)
}

func TestUIRejectsUnknownEvent(t *testing.T) {
	e := newEnv(t, nil)
	resp, err := e.client.PostForm(e.srv.URL+"/ui/events", url.Values{"event": {"explode"}})
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUIChat(t *testing.T) {
	e := newEnv(t, nil)

	page := e.event(t, url.Values{"event": {"send_chat"}, "text": {"I am so sad"}})
	assert.Contains(t, page, "I am so sad")
	assert.Contains(t, page, "Sunny sad by The Testers")

	page = e.event(t, url.Values{"event": {"reset_chat"}})
	assert.Contains(t, page, "Conversation cleared.")
	assert.NotContains(t, page, "I am so sad")
}

func TestSweepTrigger(t *testing.T) {
	e := newEnv(t, nil)

	resp := e.do(t, http.MethodPost, "/ops/sweep", "")
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp = e.do(t, http.MethodPost, "/ops/sweep", "")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	<-e.trigger
}

func TestHealthAndMetrics(t *testing.T) {
	e := newEnv(t, nil)

	resp := e.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	health := decode[map[string]any](t, resp)
	assert.Equal(t, "ok", health["status"])

	resp = e.do(t, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = e.do(t, http.MethodGet, "/metrics", "")
	b, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(b), "mindhaven_test_http_requests_total")
}

func TestUINavigationIsNotRateLimited(t *testing.T) {
	e := newEnvWith(t, nil, func(d *deps.Deps) {
		d.RateLimitBurst = 10
		d.RateLimitPerMin = 20
	})

	pages := []string{"add", "journals", "chat", "settings", "welcome"}
	for i := 0; i < 30; i++ {
		e.event(t, url.Values{"event": {"navigate"}, "page": {pages[i%len(pages)]}})
	}
	e.event(t, url.Values{"event": {"cancel"}})

	for i := 0; i < 10; i++ {
		e.event(t, url.Values{"event": {"submit_entry"}, "text": {"entry"}})
	}

	resp, err := e.client.PostForm(e.srv.URL+"/ui/events", url.Values{"event": {"send_chat"}, "text": {"hello"}})
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))

	// Browsing still works once the model budget is spent.
	e.event(t, url.Values{"event": {"navigate"}, "page": {"journals"}})

	entries, err := e.store.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 10)
}

func TestExpiredSessionResumesFromChatLog(t *testing.T) {
	e := newEnvWith(t, nil, func(d *deps.Deps) {
		d.Sessions = session.NewMemoryStore(20 * time.Millisecond)
	})

	resp := e.do(t, http.MethodPost, "/api/chat", `{"message":"I feel happy today"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	time.Sleep(50 * time.Millisecond)

	resp = e.do(t, http.MethodGet, "/api/chat", "")
	got := decode[struct {
		Transcript []chat.Message `json:"transcript"`
	}](t, resp)
	require.Len(t, got.Transcript, 2)
	assert.Equal(t, "I feel happy today", got.Transcript[0].Text)

	// A reset conversation is not brought back.
	resp = e.do(t, http.MethodDelete, "/api/chat", "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	time.Sleep(50 * time.Millisecond)

	resp = e.do(t, http.MethodGet, "/api/chat", "")
	got = decode[struct {
		Transcript []chat.Message `json:"transcript"`
	}](t, resp)
	assert.Empty(t, got.Transcript)
}
