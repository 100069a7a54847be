package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/BerniceZTT/crm_analytics/models"
	"github.com/BerniceZTT/crm_analytics/service"
	"github.com/BerniceZTT/crm_analytics/utils"

	"github.com/gin-gonic/gin"
)

type fakeService struct {
	customerResult models.CustomerRunResult
	customerErr    error
	settings       models.AnalyticsSettings
	saved          *models.AnalyticsSettings
	savedBy        string
	alertLimit     int
	alertUnread    bool
	markedID       string
	markedRead     bool
	itemFilter     service.ItemFilter
}

func (f *fakeService) RecomputeCustomerScores(context.Context) (models.CustomerRunResult, error) {
	return f.customerResult, f.customerErr
}

func (f *fakeService) RecomputeProductAnalytics(context.Context) (models.ProductRunResult, error) {
	return models.ProductRunResult{RunID: "p1", Processed: 3}, nil
}

func (f *fakeService) GetSegmentDistribution(context.Context) ([]models.SegmentCount, error) {
	return nil, nil
}

func (f *fakeService) GetAlerts(_ context.Context, limit int, unreadOnly bool) ([]models.SegmentAlert, error) {
	f.alertLimit, f.alertUnread = limit, unreadOnly
	return []models.SegmentAlert{{CustomerID: "c1", AlertType: models.AlertTypeUpgrade}}, nil
}

func (f *fakeService) MarkAlertRead(_ context.Context, id string, read bool) error {
	f.markedID, f.markedRead = id, read
	return nil
}

func (f *fakeService) CreateHistorySnapshot(context.Context) (int, error) { return 4, nil }

func (f *fakeService) GetTrendData(context.Context, string, int) ([]models.RFMHistory, error) {
	return nil, nil
}

func (f *fakeService) ListCustomerScores(context.Context, service.ScoreFilter, int64, int64) ([]models.CustomerScore, int64, error) {
	return nil, 0, nil
}

func (f *fakeService) GetMatrixCounts(context.Context) ([]models.MatrixCell, error) {
	return nil, nil
}

func (f *fakeService) GetTopAssociations(context.Context, int) ([]models.BasketAssociation, error) {
	return nil, nil
}

func (f *fakeService) ListItemAnalytics(_ context.Context, filter service.ItemFilter, _, _ int64) ([]models.ItemAnalytics, int64, error) {
	f.itemFilter = filter
	return nil, 0, nil
}

func (f *fakeService) GetSettings(context.Context) (models.AnalyticsSettings, error) {
	return f.settings, nil
}

func (f *fakeService) SaveSettings(_ context.Context, s models.AnalyticsSettings, _, updaterName string) error {
	if err := service.ValidateSettings(s); err != nil {
		return err
	}
	f.saved, f.savedBy = &s, updaterName
	return nil
}

type fakeJobs struct {
	busy bool
	jobs map[string]service.Job
}

func (f *fakeJobs) Submit(kind string, _ service.JobFunc) (service.Job, error) {
	if f.busy {
		return service.Job{}, utils.NewAnalyticsError(utils.KindConcurrentRunConflict, kind+" 正在运行", nil)
	}
	job := service.Job{ID: "job-1", Kind: kind, Status: service.JobStatusRunning}
	f.jobs[job.ID] = job
	return job, nil
}

func (f *fakeJobs) Get(id string) (service.Job, bool) {
	job, ok := f.jobs[id]
	return job, ok
}

func newTestRouter(svc *fakeService, jobs *fakeJobs) *gin.Engine {
	gin.SetMode(gin.TestMode)
	ac := NewAnalyticsController(svc, jobs)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user", map[string]interface{}{"id": "u1", "role": "SUPER_ADMIN", "username": "admin"})
		c.Next()
	})
	r.POST("/customers/recompute", ac.RecomputeCustomers)
	r.GET("/jobs/:id", ac.GetJob)
	r.GET("/customers/segments", ac.GetSegmentDistribution)
	r.GET("/alerts", ac.GetAlerts)
	r.PUT("/alerts/:id/read", ac.MarkAlertRead)
	r.POST("/customers/history/snapshot", ac.CreateHistorySnapshot)
	r.GET("/products/items", ac.ListItemAnalytics)
	r.GET("/settings", ac.GetSettings)
	r.PUT("/settings", ac.UpdateSettings)
	return r
}

func do(r *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func newFakes() (*fakeService, *fakeJobs) {
	return &fakeService{settings: models.DefaultAnalyticsSettings()}, &fakeJobs{jobs: map[string]service.Job{}}
}

func TestRecomputeCustomers_Async(t *testing.T) {
	svc, jobs := newFakes()
	w, body := do(newTestRouter(svc, jobs), http.MethodPost, "/customers/recompute", "")
	if w.Code != http.StatusAccepted {
		t.Fatalf("status %d", w.Code)
	}
	data := body["data"].(map[string]interface{})
	if data["jobId"] != "job-1" || data["status"] != "running" {
		t.Fatalf("unexpected body: %v", body)
	}

	w, body = do(newTestRouter(svc, jobs), http.MethodGet, "/jobs/job-1", "")
	if w.Code != http.StatusOK || body["data"].(map[string]interface{})["kind"] != service.JobCustomerScores {
		t.Fatalf("job lookup: %d %v", w.Code, body)
	}
}

func TestRecomputeCustomers_Wait(t *testing.T) {
	svc, jobs := newFakes()
	svc.customerResult = models.CustomerRunResult{RunID: "r1", Processed: 5, AlertsCreated: 2}

	w, body := do(newTestRouter(svc, jobs), http.MethodPost, "/customers/recompute?wait=true", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	data := body["data"].(map[string]interface{})
	if data["processed"] != float64(5) || data["alerts_created"] != float64(2) {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestRecomputeCustomers_Conflict(t *testing.T) {
	svc, jobs := newFakes()
	jobs.busy = true
	w, body := do(newTestRouter(svc, jobs), http.MethodPost, "/customers/recompute", "")
	if w.Code != http.StatusConflict || body["code"] != "ConcurrentRunConflict" {
		t.Fatalf("got %d %v", w.Code, body)
	}
}

func TestRecomputeCustomers_WaitInvalidSettings(t *testing.T) {
	svc, jobs := newFakes()
	svc.customerErr = utils.NewAnalyticsError(utils.KindInvalidSettings, "lookbackDays 必须大于0", nil)
	w, _ := do(newTestRouter(svc, jobs), http.MethodPost, "/customers/recompute?wait=true", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d", w.Code)
	}
}

func TestGetJob_NotFound(t *testing.T) {
	svc, jobs := newFakes()
	w, _ := do(newTestRouter(svc, jobs), http.MethodGet, "/jobs/nope", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status %d", w.Code)
	}
}

func TestGetSegmentDistribution_EmptyArray(t *testing.T) {
	svc, jobs := newFakes()
	w, _ := do(newTestRouter(svc, jobs), http.MethodGet, "/customers/segments", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"data":[]`) {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}
}

func TestAlerts(t *testing.T) {
	svc, jobs := newFakes()
	r := newTestRouter(svc, jobs)

	w, _ := do(r, http.MethodGet, "/alerts?limit=5&unread=true", "")
	if w.Code != http.StatusOK || svc.alertLimit != 5 || !svc.alertUnread {
		t.Fatalf("got %d limit=%d unread=%v", w.Code, svc.alertLimit, svc.alertUnread)
	}

	w, _ = do(r, http.MethodPut, "/alerts/abc/read", "")
	if w.Code != http.StatusOK || svc.markedID != "abc" || !svc.markedRead {
		t.Fatalf("mark read: %d %s %v", w.Code, svc.markedID, svc.markedRead)
	}

	w, _ = do(r, http.MethodPut, "/alerts/abc/read", `{"isRead": false}`)
	if w.Code != http.StatusOK || svc.markedRead {
		t.Fatalf("mark unread: %d %v", w.Code, svc.markedRead)
	}
}

func TestCreateHistorySnapshot(t *testing.T) {
	svc, jobs := newFakes()
	w, body := do(newTestRouter(svc, jobs), http.MethodPost, "/customers/history/snapshot", "")
	if w.Code != http.StatusOK || body["data"].(map[string]interface{})["created"] != float64(4) {
		t.Fatalf("got %d %v", w.Code, body)
	}
}

func TestListItemAnalytics_UppercasesFilter(t *testing.T) {
	svc, jobs := newFakes()
	w, body := do(newTestRouter(svc, jobs), http.MethodGet, "/products/items?abc=a&xyz=z", "")
	if w.Code != http.StatusOK || svc.itemFilter.ABCCategory != "A" || svc.itemFilter.XYZCategory != "Z" {
		t.Fatalf("got %d %+v", w.Code, svc.itemFilter)
	}
	if _, ok := body["pagination"]; !ok {
		t.Fatalf("missing pagination: %v", body)
	}
}

func TestUpdateSettings(t *testing.T) {
	svc, jobs := newFakes()
	r := newTestRouter(svc, jobs)

	w, _ := do(r, http.MethodPut, "/settings", `{"abcCutoffA": 70}`)
	if w.Code != http.StatusOK || svc.saved == nil {
		t.Fatalf("status %d", w.Code)
	}
	if svc.saved.ABCCutoffA != 70 || svc.saved.ABCCutoffB != 95 || svc.savedBy != "admin" {
		t.Fatalf("partial update must keep other fields: %+v by %s", *svc.saved, svc.savedBy)
	}

	svc.saved = nil
	w, body := do(r, http.MethodPut, "/settings", `{"abcCutoffA": 99}`)
	if w.Code != http.StatusBadRequest || body["code"] != "InvalidSettings" || svc.saved != nil {
		t.Fatalf("got %d %v", w.Code, body)
	}

	w, _ = do(r, http.MethodPut, "/settings", `{"abcCutoffA": `)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("malformed body: %d", w.Code)
	}
}
