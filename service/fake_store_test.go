package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/BerniceZTT/crm_analytics/models"
	"github.com/BerniceZTT/crm_analytics/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memStore 内存版 Store，提交语义与 MongoDB 实现一致：整体替换
type memStore struct {
	mu sync.Mutex

	customers []models.Customer
	products  []models.Product
	invoices  []models.SalesInvoice
	settings  models.AnalyticsSettings

	scores       []models.CustomerScore
	alerts       []models.SegmentAlert
	items        []models.ItemAnalytics
	associations []models.BasketAssociation
	history      map[string]models.RFMHistory

	locks       map[string]string
	commitErr   error
	commitCalls int
	renewals    int

	// onInvoices 在读取发票时调用，用于模拟运行中途发生的事情
	onInvoices func(ctx context.Context) error
}

func newMemStore() *memStore {
	return &memStore{
		settings: models.DefaultAnalyticsSettings(),
		history:  make(map[string]models.RFMHistory),
		locks:    make(map[string]string),
	}
}

func (m *memStore) ListCustomers(context.Context) ([]models.Customer, error) {
	return m.customers, nil
}

func (m *memStore) ListProducts(context.Context) ([]models.Product, error) {
	return m.products, nil
}

func (m *memStore) ListInvoices(ctx context.Context, from, to time.Time) ([]models.SalesInvoice, error) {
	if m.onInvoices != nil {
		if err := m.onInvoices(ctx); err != nil {
			return nil, err
		}
	}
	var out []models.SalesInvoice
	for _, inv := range m.invoices {
		if !inv.PostingDate.Before(from) && !inv.PostingDate.After(to) {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (m *memStore) LoadSettings(context.Context) (models.AnalyticsSettings, error) {
	return m.settings, nil
}

func (m *memStore) SaveSettings(_ context.Context, s models.AnalyticsSettings, _, _ string) error {
	m.settings = s
	return nil
}

func (m *memStore) AcquireRunLock(_ context.Context, name, runID string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if holder, ok := m.locks[name]; ok {
		return utils.NewAnalyticsError(utils.KindConcurrentRunConflict, name+" held by "+holder, nil)
	}
	m.locks[name] = runID
	return nil
}

func (m *memStore) RenewRunLock(_ context.Context, name, runID string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.renewals++
	if m.locks[name] != runID {
		return utils.NewAnalyticsError(utils.KindConcurrentRunConflict, name+" taken over by "+m.locks[name], nil)
	}
	return nil
}

// setLock 模拟另一进程接管锁
func (m *memStore) setLock(name, runID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks[name] = runID
}

func (m *memStore) lockHolder(name string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.locks[name]
}

func (m *memStore) ReleaseRunLock(_ context.Context, name, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[name] == runID {
		delete(m.locks, name)
	}
	return nil
}

func (m *memStore) LoadSegmentStates(context.Context) (map[string]models.SegmentState, error) {
	states := make(map[string]models.SegmentState, len(m.scores))
	for _, s := range m.scores {
		states[s.CustomerID] = models.SegmentState{Segment: s.Segment, PreviousSegment: s.PreviousSegment, SegmentChangedOn: s.SegmentChangedOn}
	}
	return states, nil
}

func (m *memStore) CommitCustomerScores(_ context.Context, _ string, scores []models.CustomerScore, alerts []models.SegmentAlert) error {
	m.commitCalls++
	if m.commitErr != nil {
		return m.commitErr
	}
	m.scores = append([]models.CustomerScore(nil), scores...)
	for _, a := range alerts {
		a.ID = primitive.NewObjectID()
		m.alerts = append(m.alerts, a)
	}
	return nil
}

func (m *memStore) CommitProductAnalytics(_ context.Context, _ string, items []models.ItemAnalytics, associations []models.BasketAssociation) error {
	m.commitCalls++
	if m.commitErr != nil {
		return m.commitErr
	}
	m.items = append([]models.ItemAnalytics(nil), items...)
	m.associations = append([]models.BasketAssociation(nil), associations...)
	return nil
}

func (m *memStore) SegmentDistribution(context.Context) ([]models.SegmentCount, error) {
	counts := map[string]int{}
	for _, s := range m.scores {
		counts[s.Segment]++
	}
	var out []models.SegmentCount
	for seg, n := range counts {
		out = append(out, models.SegmentCount{Segment: seg, Count: n})
	}
	return out, nil
}

func (m *memStore) ListAlerts(_ context.Context, limit int, unreadOnly bool) ([]models.SegmentAlert, error) {
	var out []models.SegmentAlert
	for i := len(m.alerts) - 1; i >= 0 && len(out) < limit; i-- {
		if unreadOnly && m.alerts[i].IsRead {
			continue
		}
		out = append(out, m.alerts[i])
	}
	return out, nil
}

func (m *memStore) MarkAlertRead(_ context.Context, id string, read bool) error {
	for i := range m.alerts {
		if m.alerts[i].ID.Hex() == id {
			m.alerts[i].IsRead = read
			return nil
		}
	}
	return utils.CreateNotFoundError("预警")
}

func (m *memStore) ListCustomerScores(_ context.Context, filter ScoreFilter, _, _ int64) ([]models.CustomerScore, int64, error) {
	var out []models.CustomerScore
	for _, s := range m.scores {
		if filter.Segment == "" || s.Segment == filter.Segment {
			out = append(out, s)
		}
	}
	return out, int64(len(out)), nil
}

func (m *memStore) ListItemAnalytics(_ context.Context, filter ItemFilter, _, _ int64) ([]models.ItemAnalytics, int64, error) {
	var out []models.ItemAnalytics
	for _, it := range m.items {
		if (filter.ABCCategory == "" || it.ABCCategory == filter.ABCCategory) &&
			(filter.XYZCategory == "" || it.XYZCategory == filter.XYZCategory) {
			out = append(out, it)
		}
	}
	return out, int64(len(out)), nil
}

func (m *memStore) MatrixCounts(context.Context) ([]models.MatrixCell, error) {
	counts := map[[2]string]int{}
	for _, it := range m.items {
		counts[[2]string{it.ABCCategory, it.XYZCategory}]++
	}
	var out []models.MatrixCell
	for k, n := range counts {
		out = append(out, models.MatrixCell{ABCCategory: k[0], XYZCategory: k[1], Count: n})
	}
	return out, nil
}

func (m *memStore) TopAssociations(_ context.Context, limit int) ([]models.BasketAssociation, error) {
	out := append([]models.BasketAssociation(nil), m.associations...)
	sortAssociations(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) UpsertHistory(_ context.Context, snapshots []models.RFMHistory) (int, error) {
	created := 0
	for _, s := range snapshots {
		key := s.CustomerID + "|" + s.SnapshotDate
		if _, ok := m.history[key]; ok {
			continue
		}
		m.history[key] = s
		created++
	}
	return created, nil
}

func (m *memStore) TrendData(_ context.Context, customerID, fromDate string) ([]models.RFMHistory, error) {
	var out []models.RFMHistory
	for _, h := range m.history {
		if h.CustomerID == customerID && h.SnapshotDate >= fromDate {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SnapshotDate < out[j].SnapshotDate })
	return out, nil
}

var errBoom = errors.New("boom")

// panicStore 读取发票时 panic，用于验证中途失败不提交
type panicStore struct {
	*memStore
}

func (p panicStore) ListInvoices(context.Context, time.Time, time.Time) ([]models.SalesInvoice, error) {
	panic("source exploded")
}
