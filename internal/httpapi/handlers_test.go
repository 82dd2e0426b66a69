package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"taskstreak/internal/logging"
	"taskstreak/internal/model"
	"taskstreak/internal/service"
	"taskstreak/internal/tracker"
)

var errDiskFull = errors.New("disk full")

// MockTaskService implements TaskService for testing.
type MockTaskService struct {
	CreateFunc     func(ctx context.Context, input service.TaskInput) (*model.Task, error)
	UpdateFunc     func(ctx context.Context, id uint, input service.TaskInput) (*model.Task, error)
	GetFunc        func(ctx context.Context, id uint) (*model.Task, error)
	ListFunc       func(ctx context.Context, filter model.TaskFilter) ([]model.Task, error)
	CompleteFunc   func(ctx context.Context, id uint, details *model.Details) (tracker.Result, error)
	UncompleteFunc func(ctx context.Context, id uint) (*model.Task, error)
	DeleteFunc     func(ctx context.Context, id uint) error
	StatsFunc      func(ctx context.Context) (tracker.Stats, error)
	CategoriesFunc func(ctx context.Context) ([]model.CategorySummary, error)
	HistoryFunc    func(ctx context.Context, id uint, limit int) ([]model.Completion, error)
}

func (m *MockTaskService) Create(ctx context.Context, input service.TaskInput) (*model.Task, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, input)
	}
	return &model.Task{ID: 1, Title: input.Title}, nil
}

func (m *MockTaskService) Update(ctx context.Context, id uint, input service.TaskInput) (*model.Task, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, input)
	}
	return &model.Task{ID: id, Title: input.Title}, nil
}

func (m *MockTaskService) Get(ctx context.Context, id uint) (*model.Task, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return nil, model.NotFound("find task", id)
}

func (m *MockTaskService) List(ctx context.Context, filter model.TaskFilter) ([]model.Task, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	return []model.Task{}, nil
}

func (m *MockTaskService) Complete(ctx context.Context, id uint, details *model.Details) (tracker.Result, error) {
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, id, details)
	}
	return tracker.Result{Task: model.Task{ID: id, Completed: true}, State: tracker.StateDone}, nil
}

func (m *MockTaskService) Uncomplete(ctx context.Context, id uint) (*model.Task, error) {
	if m.UncompleteFunc != nil {
		return m.UncompleteFunc(ctx, id)
	}
	return &model.Task{ID: id}, nil
}

func (m *MockTaskService) Delete(ctx context.Context, id uint) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *MockTaskService) Stats(ctx context.Context) (tracker.Stats, error) {
	if m.StatsFunc != nil {
		return m.StatsFunc(ctx)
	}
	return tracker.Stats{}, nil
}

func (m *MockTaskService) Categories(ctx context.Context) ([]model.CategorySummary, error) {
	if m.CategoriesFunc != nil {
		return m.CategoriesFunc(ctx)
	}
	return []model.CategorySummary{}, nil
}

func (m *MockTaskService) History(ctx context.Context, id uint, limit int) ([]model.Completion, error) {
	if m.HistoryFunc != nil {
		return m.HistoryFunc(ctx, id, limit)
	}
	return []model.Completion{}, nil
}

type mockDigests struct {
	digest service.Digest
	err    error
}

func (m *mockDigests) Digest(context.Context) (service.Digest, error) { return m.digest, m.err }

type mockSweeper struct {
	report service.SweepReport
	err    error
}

func (m *mockSweeper) Run(context.Context) (service.SweepReport, error) { return m.report, m.err }

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type testServer struct {
	tasks   *MockTaskService
	digests *mockDigests
	sweeper *mockSweeper
	server  *Server
}

func newTestServer() *testServer {
	gin.SetMode(gin.TestMode)
	ts := &testServer{tasks: &MockTaskService{}, digests: &mockDigests{}, sweeper: &mockSweeper{}}
	ts.server = NewServer(ts.tasks, ts.digests, ts.sweeper, logging.Discard())
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func TestPing(t *testing.T) {
	ts := newTestServer()
	w, _ := ts.do(t, http.MethodGet, "/ping", nil)
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte("pong")) {
		t.Fatalf("unexpected response %d %s", w.Code, w.Body)
	}
	if w.Header().Get(requestIDHeader) == "" {
		t.Fatal("missing request id header")
	}
}

func TestRequestIDIsPropagated(t *testing.T) {
	ts := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(w, req)
	if got := w.Header().Get(requestIDHeader); got != "abc-123" {
		t.Fatalf("request id %q", got)
	}
}

func TestListTasksPassesFilter(t *testing.T) {
	ts := newTestServer()
	var got model.TaskFilter
	ts.tasks.ListFunc = func(_ context.Context, f model.TaskFilter) ([]model.Task, error) {
		got = f
		return []model.Task{{ID: 1, Title: "a"}}, nil
	}

	w, env := ts.do(t, http.MethodGet, "/api/v1/tasks?status=active&category=home&q=wash&sort=due", nil)
	if w.Code != http.StatusOK || !env.Success {
		t.Fatalf("unexpected response %d %s", w.Code, w.Body)
	}
	want := model.TaskFilter{Status: model.StatusActive, Category: "home", Search: "wash", Sort: model.SortDueDate}
	if got != want {
		t.Fatalf("filter %+v, want %+v", got, want)
	}
	var tasks []model.Task
	if err := json.Unmarshal(env.Data, &tasks); err != nil || len(tasks) != 1 {
		t.Fatalf("data %s: %v", env.Data, err)
	}
}

func TestCreateTask(t *testing.T) {
	ts := newTestServer()
	var got service.TaskInput
	ts.tasks.CreateFunc = func(_ context.Context, in service.TaskInput) (*model.Task, error) {
		got = in
		return &model.Task{ID: 5, Title: in.Title, Recurrence: *in.Recurrence}, nil
	}

	w, env := ts.do(t, http.MethodPost, "/api/v1/tasks", `{"title":"Run","priority":"high","recurrence":"every 2 days","dueDate":"2026-03-02T09:00:00Z"}`)
	if w.Code != http.StatusCreated || !env.Success {
		t.Fatalf("unexpected response %d %s", w.Code, w.Body)
	}
	if got.Title != "Run" || got.Priority == nil || *got.Priority != model.PriorityHigh {
		t.Fatalf("unexpected input %+v", got)
	}
	if got.Recurrence == nil || *got.Recurrence != model.Every(2, model.UnitDay) {
		t.Fatalf("unexpected recurrence %+v", got.Recurrence)
	}
	if got.DueDate == nil || !got.DueDate.Equal(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected due date %v", got.DueDate)
	}
}

func TestCreateTaskErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{name: "malformed json", body: `{"title":`, status: http.StatusBadRequest},
		{name: "bad recurrence", body: `{"title":"x","recurrence":"sometimes"}`, status: http.StatusBadRequest},
		{name: "bad priority", body: `{"title":"x","priority":"critical"}`, status: http.StatusBadRequest},
		{name: "validation", body: `{"title":""}`, err: model.Validationf("title is required"), status: http.StatusBadRequest},
		{name: "persistence", body: `{"title":"x"}`, err: model.Persistence("create task", errDiskFull), status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer()
			ts.tasks.CreateFunc = func(context.Context, service.TaskInput) (*model.Task, error) {
				return nil, tt.err
			}
			w, env := ts.do(t, http.MethodPost, "/api/v1/tasks", tt.body)
			if w.Code != tt.status || env.Success {
				t.Fatalf("got %d %s, want %d", w.Code, w.Body, tt.status)
			}
			if tt.status == http.StatusInternalServerError && env.Error != "internal error" {
				t.Fatalf("internal error leaked: %q", env.Error)
			}
		})
	}
}

func TestGetTask(t *testing.T) {
	ts := newTestServer()

	w, env := ts.do(t, http.MethodGet, "/api/v1/tasks/42", nil)
	if w.Code != http.StatusNotFound || env.Error != "find task: task 42 not found" {
		t.Fatalf("unexpected response %d %s", w.Code, w.Body)
	}

	for _, path := range []string{"/api/v1/tasks/abc", "/api/v1/tasks/0", "/api/v1/tasks/-1"} {
		w, _ = ts.do(t, http.MethodGet, path, nil)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", path, w.Code)
		}
	}

	ts.tasks.GetFunc = func(_ context.Context, id uint) (*model.Task, error) {
		return &model.Task{ID: id, Title: "found"}, nil
	}
	w, env = ts.do(t, http.MethodGet, "/api/v1/tasks/7", nil)
	var task model.Task
	if w.Code != http.StatusOK || json.Unmarshal(env.Data, &task) != nil || task.ID != 7 {
		t.Fatalf("unexpected response %d %s", w.Code, w.Body)
	}
}

func TestUpdateAndDeleteTask(t *testing.T) {
	ts := newTestServer()
	var updated uint
	ts.tasks.UpdateFunc = func(_ context.Context, id uint, in service.TaskInput) (*model.Task, error) {
		updated = id
		return &model.Task{ID: id, Title: in.Title}, nil
	}
	w, _ := ts.do(t, http.MethodPut, "/api/v1/tasks/3", `{"title":"renamed"}`)
	if w.Code != http.StatusOK || updated != 3 {
		t.Fatalf("update: %d %s", w.Code, w.Body)
	}

	ts.tasks.DeleteFunc = func(_ context.Context, id uint) error {
		return model.NotFound("delete task", id)
	}
	w, _ = ts.do(t, http.MethodDelete, "/api/v1/tasks/3", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("delete missing: %d", w.Code)
	}
}

func TestCompleteTask(t *testing.T) {
	tests := []struct {
		name string
		body any
		want *model.Details
	}{
		{name: "empty body is quick", body: nil, want: nil},
		{name: "empty object is quick", body: `{}`, want: nil},
		{name: "minutes only", body: `{"timeSpentMinutes":25}`, want: &model.Details{TimeSpent: 25 * time.Minute, Difficulty: model.DefaultDifficulty}},
		{name: "full details", body: `{"timeSpentMinutes":5,"difficulty":1,"notes":"easy"}`, want: &model.Details{TimeSpent: 5 * time.Minute, Difficulty: 1, Notes: "easy"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer()
			var got *model.Details
			ts.tasks.CompleteFunc = func(_ context.Context, id uint, d *model.Details) (tracker.Result, error) {
				got = d
				return tracker.Result{Task: model.Task{ID: id}, State: tracker.StateWaiting}, nil
			}
			w, env := ts.do(t, http.MethodPost, "/api/v1/tasks/9/complete", tt.body)
			if w.Code != http.StatusOK {
				t.Fatalf("unexpected response %d %s", w.Code, w.Body)
			}
			if (got == nil) != (tt.want == nil) || (got != nil && *got != *tt.want) {
				t.Fatalf("details %+v, want %+v", got, tt.want)
			}
			if !bytes.Contains(env.Data, []byte(`"state":"waiting"`)) {
				t.Fatalf("state missing from %s", env.Data)
			}
		})
	}
}

func TestCompleteTaskErrors(t *testing.T) {
	ts := newTestServer()
	ts.tasks.CompleteFunc = func(context.Context, uint, *model.Details) (tracker.Result, error) {
		return tracker.Result{}, model.Persistence("append completion for task 9", errDiskFull)
	}
	w, env := ts.do(t, http.MethodPost, "/api/v1/tasks/9/complete", nil)
	if w.Code != http.StatusInternalServerError || env.Error != "internal error" {
		t.Fatalf("unexpected response %d %s", w.Code, w.Body)
	}

	ts.tasks.CompleteFunc = func(context.Context, uint, *model.Details) (tracker.Result, error) {
		return tracker.Result{}, model.Validationf("task 9 is already completed")
	}
	w, env = ts.do(t, http.MethodPost, "/api/v1/tasks/9/complete", nil)
	if w.Code != http.StatusBadRequest || env.Error != "task 9 is already completed" {
		t.Fatalf("unexpected response %d %s", w.Code, w.Body)
	}
}

func TestUncompleteAndHistory(t *testing.T) {
	ts := newTestServer()
	w, _ := ts.do(t, http.MethodPost, "/api/v1/tasks/4/uncomplete", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("uncomplete: %d", w.Code)
	}

	var limit int
	ts.tasks.HistoryFunc = func(_ context.Context, _ uint, l int) ([]model.Completion, error) {
		limit = l
		return []model.Completion{{ID: 1, TaskID: 4}}, nil
	}
	w, _ = ts.do(t, http.MethodGet, "/api/v1/tasks/4/history", nil)
	if w.Code != http.StatusOK || limit != defaultHistoryLimit {
		t.Fatalf("history: %d limit=%d", w.Code, limit)
	}
	w, _ = ts.do(t, http.MethodGet, "/api/v1/tasks/4/history?limit=-2", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("negative limit: %d", w.Code)
	}
}

func TestStatsDigestSweep(t *testing.T) {
	ts := newTestServer()
	ts.tasks.StatsFunc = func(context.Context) (tracker.Stats, error) {
		return tracker.Stats{Total: 4, Completed: 1, CompletedPercentage: 25}, nil
	}
	ts.digests.digest = service.Digest{Overdue: []service.OverdueItem{{Task: model.Task{ID: 1}, OverdueMinutes: 90}}}
	ts.sweeper.report = service.SweepReport{Checked: 3, Reset: 1}

	w, env := ts.do(t, http.MethodGet, "/api/v1/stats", nil)
	var stats tracker.Stats
	if w.Code != http.StatusOK || json.Unmarshal(env.Data, &stats) != nil || stats.CompletedPercentage != 25 {
		t.Fatalf("stats: %d %s", w.Code, w.Body)
	}

	w, env = ts.do(t, http.MethodGet, "/api/v1/digest", nil)
	if w.Code != http.StatusOK || !bytes.Contains(env.Data, []byte(`"overdueMinutes":90`)) {
		t.Fatalf("digest: %d %s", w.Code, w.Body)
	}

	w, env = ts.do(t, http.MethodPost, "/api/v1/sweep", nil)
	if w.Code != http.StatusOK || !bytes.Contains(env.Data, []byte(`"reset":1`)) {
		t.Fatalf("sweep: %d %s", w.Code, w.Body)
	}

	ts.sweeper.err = errDiskFull
	w, _ = ts.do(t, http.MethodPost, "/api/v1/sweep", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("sweep failure: %d", w.Code)
	}
}

func TestRunShutsDownOnCancel(t *testing.T) {
	ts := newTestServer()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ts.server.Run(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
