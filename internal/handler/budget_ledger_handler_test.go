package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"portalwarga/internal/identity"
	"portalwarga/internal/model"
	"portalwarga/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type stubBudgets struct {
	err     error
	warning *service.BudgetWarning
	year    int
	amount  int64
	upsert  service.UpsertBudgetInput
}

func (s *stubBudgets) GetUsage(_ context.Context, year int, region string, categoryID uuid.UUID) (*service.BudgetUsage, error) {
	s.year = year
	return &service.BudgetUsage{Year: year, Region: region, CategoryID: categoryID, Utilisation: "0.00"}, nil
}

func (s *stubBudgets) CheckRequest(_ context.Context, year int, _ string, _ uuid.UUID, amount int64) (*service.BudgetWarning, error) {
	s.year = year
	s.amount = amount
	return s.warning, nil
}

func (s *stubBudgets) ListUsage(_ context.Context, year int, _ string) ([]service.BudgetUsage, error) {
	s.year = year
	return []service.BudgetUsage{}, nil
}

func (s *stubBudgets) UpsertCeiling(_ context.Context, input service.UpsertBudgetInput) (*model.BudgetCeiling, error) {
	s.upsert = input
	if s.err != nil {
		return nil, s.err
	}
	return &model.BudgetCeiling{ID: uuid.New(), Year: input.Year, Region: input.Region, CategoryID: input.CategoryID, Amount: input.Amount}, nil
}

func (s *stubBudgets) DeleteCeiling(context.Context, uuid.UUID) error {
	return nil
}

type stubLedger struct {
	service.LedgerService
	created service.CreateLedgerEntryInput
	filter  service.LedgerFilter
	delErr  error
}

func (s *stubLedger) List(_ context.Context, filter service.LedgerFilter) ([]model.LedgerEntry, int64, error) {
	s.filter = filter
	return []model.LedgerEntry{{ID: uuid.New(), Amount: 1000}}, 41, nil
}

func (s *stubLedger) CreateManual(_ context.Context, input service.CreateLedgerEntryInput) (*model.LedgerEntry, error) {
	s.created = input
	return &model.LedgerEntry{ID: uuid.New(), Region: input.Region, Nature: input.Nature, Amount: input.Amount}, nil
}

func (s *stubLedger) Delete(context.Context, uuid.UUID) error {
	return s.delErr
}

func TestCheckBudget(t *testing.T) {
	svc := &stubBudgets{}
	r := gin.New()
	NewBudgetHandler(svc).RegisterRoutes(r.Group(""))

	url := "/api/budgets/check?year=2025&region=utara&category_id=" + uuid.NewString() + "&amount=900000"
	req := httptest.NewRequest(http.MethodGet, url, nil)
	req.Header.Set("Authorization", bearer(t, "sekretaris"))

	w, env := do(t, r, req)
	require.Equal(t, http.StatusOK, w.Code, env.Error)
	require.Equal(t, 2025, svc.year)
	require.Equal(t, int64(900000), svc.amount)

	var data struct {
		WithinBudget bool `json:"within_budget"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.True(t, data.WithinBudget)

	svc.warning = &service.BudgetWarning{Requested: 900000, Message: "over"}
	w, env = do(t, r, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.False(t, data.WithinBudget)
}

func TestBudgetYearDefaultsToCurrent(t *testing.T) {
	svc := &stubBudgets{}
	r := gin.New()
	NewBudgetHandler(svc).RegisterRoutes(r.Group(""))

	req := httptest.NewRequest(http.MethodGet, "/api/budgets", nil)
	req.Header.Set("Authorization", bearer(t, "warga"))

	w, _ := do(t, r, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, time.Now().Year(), svc.year)
}

func TestBudgetCheckRejectsBadQuery(t *testing.T) {
	r := gin.New()
	NewBudgetHandler(&stubBudgets{}).RegisterRoutes(r.Group(""))

	for _, url := range []string{
		"/api/budgets/check?region=utara&category_id=nope&amount=1",
		"/api/budgets/check?region=utara&category_id=" + uuid.NewString() + "&amount=banyak",
		"/api/budgets/usage?year=abc&region=utara&category_id=" + uuid.NewString(),
	} {
		req := httptest.NewRequest(http.MethodGet, url, nil)
		req.Header.Set("Authorization", bearer(t, "warga"))
		w, _ := do(t, r, req)
		require.Equal(t, http.StatusBadRequest, w.Code, url)
	}
}

func TestUpsertBudgetLeavesRoleCheckToService(t *testing.T) {
	categoryID := uuid.New()
	body := fmt.Sprintf(`{"year":2025,"region":"utara","category_id":%q,"amount":12000000}`, categoryID)
	newRequest := func(role string) *http.Request {
		req := httptest.NewRequest(http.MethodPut, "/api/budgets", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", bearer(t, role))
		return req
	}

	// The profile, not the token, carries the treasurer role here.
	svc := &stubBudgets{}
	r := gin.New()
	NewBudgetHandler(svc).RegisterRoutes(r.Group(""))
	w, env := do(t, r, newRequest(""))
	require.Equal(t, http.StatusOK, w.Code, env.Error)
	require.Equal(t, categoryID, svc.upsert.CategoryID)
	require.Equal(t, int64(12000000), svc.upsert.Amount)

	svc = &stubBudgets{err: fmt.Errorf("%w: role %q cannot manage budgets", service.ErrForbidden, "warga")}
	r = gin.New()
	NewBudgetHandler(svc).RegisterRoutes(r.Group(""))
	w, env = do(t, r, newRequest("bendahara"))
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Contains(t, env.Error, "cannot manage budgets")
	require.Equal(t, categoryID, svc.upsert.CategoryID)
}

func TestLedgerListIsPaginated(t *testing.T) {
	svc := &stubLedger{}
	r := gin.New()
	NewLedgerHandler(svc).RegisterRoutes(r.Group(""))

	req := httptest.NewRequest(http.MethodGet, "/api/ledger?region=utara&from=2025-01-01&page=2&limit=20", nil)
	req.Header.Set("Authorization", bearer(t, "warga"))

	w, env := do(t, r, req)
	require.Equal(t, http.StatusOK, w.Code, env.Error)
	require.Equal(t, "utara", svc.filter.Region)
	require.NotNil(t, svc.filter.From)
	require.Nil(t, svc.filter.To)
	require.Equal(t, 2, svc.filter.Page)

	var page struct {
		Total      int64 `json:"total"`
		TotalPages int   `json:"total_pages"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Equal(t, int64(41), page.Total)
	require.Equal(t, 3, page.TotalPages)
}

func TestCreateLedgerEntry(t *testing.T) {
	svc := &stubLedger{}
	r := gin.New()
	NewLedgerHandler(svc).RegisterRoutes(r.Group(""))
	body := `{"region":"selatan","nature":"income","date":"2025-02-01","amount":2500000,"note":"Iuran Februari"}`

	req := httptest.NewRequest(http.MethodPost, "/api/ledger", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearer(t, ""))
	w, env := do(t, r, req)
	require.Equal(t, http.StatusCreated, w.Code, env.Error)
	require.Equal(t, "income", svc.created.Nature)
	require.Equal(t, 1, svc.created.Date.Day())
	require.Nil(t, svc.created.CategoryID)
}

func TestDeletePostedLedgerEntryIsForbidden(t *testing.T) {
	svc := &stubLedger{delErr: fmt.Errorf("%w: origin purchase_request", service.ErrForbidden)}
	r := gin.New()
	NewLedgerHandler(svc).RegisterRoutes(r.Group(""))

	req := httptest.NewRequest(http.MethodDelete, "/api/ledger/"+uuid.NewString(), nil)
	req.Header.Set("Authorization", bearer(t, "bendahara"))
	w, _ := do(t, r, req)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestGetMe(t *testing.T) {
	actor := &identity.Actor{ID: uuid.New(), Name: "Bu Rina", Role: "bendahara", Title: "Bendahara RW"}
	policy := service.NewRolePolicy([]string{"admin"}, []string{"ketua"}, []string{"bendahara"})
	r := gin.New()
	NewMeHandler(identity.Static{Actor: actor}, policy).RegisterRoutes(r.Group(""))

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", bearer(t, "bendahara"))
	w, env := do(t, r, req)
	require.Equal(t, http.StatusOK, w.Code, env.Error)

	var me MeResponse
	require.NoError(t, json.Unmarshal(env.Data, &me))
	require.Equal(t, "Bu Rina", me.Name)
	require.True(t, me.IsProcessor)
	require.False(t, me.IsApprover)
	require.False(t, me.IsAdmin)
}

type stubStatistics struct {
	region   string
	from, to time.Time
}

func (s *stubStatistics) GetLedgerSummary(_ context.Context, region string, from, to time.Time) (model.LedgerSummary, error) {
	s.region, s.from, s.to = region, from, to
	return model.LedgerSummary{Region: region, From: from, To: to}, nil
}

func TestLedgerSummaryEndDateIsInclusive(t *testing.T) {
	svc := &stubStatistics{}
	r := gin.New()
	NewStatisticsHandler(svc).RegisterRoutes(r.Group(""))

	req := httptest.NewRequest(http.MethodGet, "/api/ledger/summary?region=selatan&from=2025-01-01&to=2025-01-31", nil)
	req.Header.Set("Authorization", bearer(t, "warga"))
	w, env := do(t, r, req)
	require.Equal(t, http.StatusOK, w.Code, env.Error)
	require.Equal(t, "selatan", svc.region)
	require.Equal(t, 1, svc.from.Day())
	require.Equal(t, time.February, svc.to.Month())
	require.Equal(t, 1, svc.to.Day())
}

type stubAudit struct {
	filter service.AuditFilter
}

func (s *stubAudit) GetAuditLogs(_ context.Context, filter service.AuditFilter) ([]service.AuditLogResponse, int64, error) {
	s.filter = filter
	return []service.AuditLogResponse{}, 0, nil
}

func TestAuditLogsReachServiceWithoutTokenRole(t *testing.T) {
	svc := &stubAudit{}
	r := gin.New()
	NewAuditHandler(svc).RegisterRoutes(r.Group(""))

	req := httptest.NewRequest(http.MethodGet, "/api/audit-logs?action=APPROVE_PURCHASE_REQUEST&page=2", nil)
	req.Header.Set("Authorization", bearer(t, ""))
	w, env := do(t, r, req)
	require.Equal(t, http.StatusOK, w.Code, env.Error)
	require.Equal(t, "APPROVE_PURCHASE_REQUEST", svc.filter.Action)
	require.Equal(t, 2, svc.filter.Page)
}
