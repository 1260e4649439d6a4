package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/feed-sieve/app/database"
	"github.com/lysyi3m/feed-sieve/app/feed"
	"github.com/lysyi3m/feed-sieve/app/notify"
	"github.com/lysyi3m/feed-sieve/app/rules"
	"github.com/lysyi3m/feed-sieve/app/tasks"
)

// MockItemRepository keeps effects in memory.
type MockItemRepository struct {
	mu      sync.Mutex
	effects map[string]database.ItemEffect
}

var _ database.ItemRepository = (*MockItemRepository)(nil)

func NewMockItemRepository() *MockItemRepository {
	return &MockItemRepository{effects: make(map[string]database.ItemEffect)}
}

func (m *MockItemRepository) Apply(ctx context.Context, item feed.Item, effect feed.Effect) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.effects[item.ID] = database.ItemEffect{
		ItemID:     item.ID,
		Suppressed: effect.Suppressed,
		Hidden:     effect.Hide,
		Dimmed:     effect.Dim,
		Annotation: effect.Annotation,
		Reason:     string(effect.Reason),
		UpdatedAt:  time.Now().UTC(),
	}
	return nil
}

func (m *MockItemRepository) GetItemEffect(ctx context.Context, itemID string) (*database.ItemEffect, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	effect, ok := m.effects[itemID]
	if !ok {
		return nil, nil
	}
	return &effect, nil
}

func (m *MockItemRepository) GetItemStats(ctx context.Context) (database.ItemStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var stats database.ItemStats
	for _, effect := range m.effects {
		stats.Total++
		if effect.Suppressed {
			stats.Suppressed++
		}
		if effect.Hidden {
			stats.Hidden++
		}
		if effect.Dimmed {
			stats.Dimmed++
		}
	}
	return stats, nil
}

// MockFeedRepository knows about no feeds.
type MockFeedRepository struct{}

var _ database.FeedRepository = (*MockFeedRepository)(nil)

func (m *MockFeedRepository) GetFeed(ctx context.Context, name string) (*database.Feed, error) {
	return nil, nil
}
func (m *MockFeedRepository) GetFeedCount(ctx context.Context) (int, error) { return 0, nil }
func (m *MockFeedRepository) UpsertFeed(ctx context.Context, name, feedURL string) error {
	return nil
}
func (m *MockFeedRepository) UpdateFeedMetadata(ctx context.Context, name string, metadata feed.Metadata, nextFetch time.Time) error {
	return nil
}
func (m *MockFeedRepository) UpdateNextFetch(ctx context.Context, name string, nextFetch time.Time) error {
	return nil
}
func (m *MockFeedRepository) FilterUnseen(ctx context.Context, name string, items []feed.Item) ([]feed.Item, error) {
	return items, nil
}
func (m *MockFeedRepository) MarkSeen(ctx context.Context, name string, items []feed.Item) error {
	return nil
}
func (m *MockFeedRepository) HasSeen(ctx context.Context, name string) (bool, error) {
	return false, nil
}

// MockScheduler runs every task as soon as it is enqueued.
type MockScheduler struct {
	err error
}

func (m *MockScheduler) Start() {}
func (m *MockScheduler) Stop()  {}
func (m *MockScheduler) QueueLength() int {
	return 0
}
func (m *MockScheduler) EnqueueTask(task tasks.TaskInterface) error {
	if m.err != nil {
		return m.err
	}
	task.Start()
	return task.Execute(context.Background())
}

type testServer struct {
	router   *gin.Engine
	itemRepo *MockItemRepository
	hub      *notify.Hub
}

func newTestServer(t *testing.T, scheduler tasks.TaskSchedulerInterface, apiKey string) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	itemRepo := NewMockItemRepository()
	hub := notify.NewHub()
	t.Cleanup(hub.Close)

	classifier := feed.NewClassifier(rules.Default())
	pipeline := feed.NewPipeline(classifier, feed.NewCounters(), itemRepo, hub, rules.DefaultSettings())
	extractor := feed.NewExtractor(rules.DefaultExtractor())

	sources := []rules.FeedSource{{Name: "jobs", URL: "https://example.com/jobs.xml", Enabled: true}}
	handler := NewHandler(pipeline, classifier, extractor, hub, itemRepo, &MockFeedRepository{}, scheduler, sources)

	return &testServer{
		router:   NewServer(handler, apiKey),
		itemRepo: itemRepo,
		hub:      hub,
	}
}

func (s *testServer) do(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
	}
	return v
}

const scenarioBatch = `{
  "origin": "initial",
  "items": [
    {"id": "1", "categories": ["feed-update", "member-profile-snapshot"], "text": "We are hiring"},
    {"id": "2", "categories": ["feed-update"], "text": "We are hiring a senior engineer"},
    {"id": "3", "categories": ["feed-update"], "text": "Lunch photos from the offsite"},
    {"id": "4", "categories": ["company-recommend-job-digest"], "text": "Nothing relevant"}
  ]
}`

func TestSubmitBatch(t *testing.T) {
	s := newTestServer(t, &MockScheduler{}, "")

	w := s.do(t, http.MethodPost, "/api/batches", scenarioBatch, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	result := decode[feed.BatchResult](t, w)
	if result.Origin != feed.OriginInitial {
		t.Errorf("Expected initial origin, got %s", result.Origin)
	}
	if result.Processed != 4 || result.Suppressed != 2 || result.Kept != 2 {
		t.Errorf("Unexpected result: %+v", result)
	}

	count := decode[notify.CountResponse](t, s.do(t, http.MethodGet, "/api/count", "", nil))
	if count.Count != 2 {
		t.Errorf("Expected count 2, got %d", count.Count)
	}

	stats := decode[StatsResponse](t, s.do(t, http.MethodGet, "/stats", "", nil))
	expected := StatsResponse{Processed: 4, Suppressed: 2, Visible: 2, Summary: "Blocked 2 out of 4 posts."}
	if stats != expected {
		t.Errorf("Expected %+v, got %+v", expected, stats)
	}

	effect := decode[database.ItemEffect](t, s.do(t, http.MethodGet, "/api/items/1", "", nil))
	if !effect.Suppressed || !effect.Hidden {
		t.Errorf("Expected item 1 hidden, got %+v", effect)
	}
	if effect.Reason != string(feed.ReasonStructuralExclude) {
		t.Errorf("Expected structural_exclude, got '%s'", effect.Reason)
	}
}

func TestSubmitBatch_DefaultsToInserted(t *testing.T) {
	s := newTestServer(t, &MockScheduler{}, "")

	w := s.do(t, http.MethodPost, "/api/batches", `{"items": [{"id": "x", "text": "hiring"}]}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if result := decode[feed.BatchResult](t, w); result.Origin != feed.OriginInserted {
		t.Errorf("Expected inserted origin, got %s", result.Origin)
	}
}

func TestSubmitBatch_Invalid(t *testing.T) {
	s := newTestServer(t, &MockScheduler{}, "")

	cases := map[string]string{
		"malformed json": `{"items": [`,
		"missing id":     `{"items": [{"text": "hiring"}]}`,
		"bad origin":     `{"origin": "later", "items": []}`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/batches", body, nil)
			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", w.Code)
			}
		})
	}
}

func TestSubmitBatch_QueueFull(t *testing.T) {
	s := newTestServer(t, &MockScheduler{err: tasks.ErrQueueFull}, "")

	w := s.do(t, http.MethodPost, "/api/batches", scenarioBatch, nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}

	count := decode[notify.CountResponse](t, s.do(t, http.MethodGet, "/api/count", "", nil))
	if count.Count != 0 {
		t.Errorf("Expected rejected batch to leave count at 0, got %d", count.Count)
	}
}

func TestSubmitHTML(t *testing.T) {
	s := newTestServer(t, &MockScheduler{}, "")

	html := `<div class="feed-update" data-id="a"><div class="text-entity">Contract role open</div></div>
<div class="feed-update" data-id="b"><div class="text-entity">Holiday photos</div>
  <div class="comment-entity"><div class="text-entity">Are you hiring?</div></div></div>`

	req := httptest.NewRequest(http.MethodPost, "/api/batches/html?origin=inserted", strings.NewReader(html))
	req.Header.Set("Content-Type", "text/html")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	result := decode[feed.BatchResult](t, w)
	if result.Processed != 2 || result.Suppressed != 1 {
		t.Errorf("Expected comment text to be ignored, got %+v", result)
	}

	effect, _ := s.itemRepo.GetItemEffect(context.Background(), "b")
	if effect == nil || !effect.Hidden {
		t.Errorf("Expected item b hidden, got %+v", effect)
	}
}

func TestSubmitHTML_InvalidOrigin(t *testing.T) {
	s := newTestServer(t, &MockScheduler{}, "")

	w := s.do(t, http.MethodPost, "/api/batches/html?origin=soon", "<div></div>", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestPostMessage(t *testing.T) {
	s := newTestServer(t, &MockScheduler{}, "")
	s.do(t, http.MethodPost, "/api/batches", scenarioBatch, nil)

	w := s.do(t, http.MethodPost, "/api/messages", `{"kind": "getCount"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if w.Body.String() != `{"count":2}` {
		t.Errorf("Expected {\"count\":2}, got %s", w.Body.String())
	}

	for _, body := range []string{`{"kind": "reset"}`, `{}`, `not json`} {
		if w := s.do(t, http.MethodPost, "/api/messages", body, nil); w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400 for %s, got %d", body, w.Code)
		}
	}
}

func TestGetBadge(t *testing.T) {
	s := newTestServer(t, &MockScheduler{}, "")

	badge := decode[map[string]any](t, s.do(t, http.MethodGet, "/api/badge", "", nil))
	if badge["text"] != "" {
		t.Errorf("Expected empty badge, got %v", badge["text"])
	}

	s.do(t, http.MethodPost, "/api/batches", scenarioBatch, nil)

	badge = decode[map[string]any](t, s.do(t, http.MethodGet, "/api/badge", "", nil))
	if badge["text"] != "2" {
		t.Errorf("Expected badge '2', got %v", badge["text"])
	}
}

func TestGetItem_NotFound(t *testing.T) {
	s := newTestServer(t, &MockScheduler{}, "")

	w := s.do(t, http.MethodGet, "/api/items/unknown", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestGetRules(t *testing.T) {
	s := newTestServer(t, &MockScheduler{}, "")

	response := decode[struct {
		Rules []RuleResponse `json:"rules"`
		Total int            `json:"total"`
	}](t, s.do(t, http.MethodGet, "/api/rules", "", nil))

	if response.Total != 3 {
		t.Fatalf("Expected 3 rules, got %d", response.Total)
	}

	order := []rules.Kind{rules.KindStructuralExclude, rules.KindStructuralInclude, rules.KindContentInclude}
	for i, kind := range order {
		if response.Rules[i].Kind != kind {
			t.Errorf("Expected rule %d to be %s, got %s", i, kind, response.Rules[i].Kind)
		}
		if len(response.Rules[i].Patterns) == 0 {
			t.Errorf("Expected patterns for %s", kind)
		}
	}
}

func TestListFeeds(t *testing.T) {
	s := newTestServer(t, &MockScheduler{}, "")

	response := decode[map[string]any](t, s.do(t, http.MethodGet, "/api/feeds", "", nil))
	if response["total"] != float64(1) {
		t.Errorf("Expected 1 feed, got %v", response["total"])
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, &MockScheduler{}, "")

	w := s.do(t, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	health := decode[map[string]any](t, w)
	if health["status"] != "ok" {
		t.Errorf("Expected status ok, got %v", health["status"])
	}
}

func TestAuthMiddleware(t *testing.T) {
	s := newTestServer(t, &MockScheduler{}, "secret")

	cases := []struct {
		name    string
		path    string
		headers map[string]string
		status  int
	}{
		{"missing key", "/api/count", nil, http.StatusUnauthorized},
		{"wrong key", "/api/count", map[string]string{"X-API-Key": "nope"}, http.StatusUnauthorized},
		{"header", "/api/count", map[string]string{"X-API-Key": "secret"}, http.StatusOK},
		{"bearer", "/api/count", map[string]string{"Authorization": "Bearer secret"}, http.StatusOK},
		{"query", "/api/count?api_key=secret", nil, http.StatusOK},
		{"public stats", "/stats", nil, http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := s.do(t, http.MethodGet, tc.path, "", tc.headers)
			if w.Code != tc.status {
				t.Errorf("Expected status %d, got %d", tc.status, w.Code)
			}
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, &MockScheduler{}, "secret")

	w := s.do(t, http.MethodOptions, "/api/batches", "", nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("Expected CORS header")
	}
}
