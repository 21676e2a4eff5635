package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"portalwarga/internal/identity"
	"portalwarga/internal/model"
	"portalwarga/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// memStore backs every fake repository. The fake transaction manager snapshots it before a
// transaction and restores it when the transaction returns an error.
type memStore struct {
	mu         sync.Mutex
	requests   map[uuid.UUID]*model.PurchaseRequest
	order      []uuid.UUID
	sequences  map[string]int
	ledger     map[uuid.UUID]*model.LedgerEntry
	categories map[uuid.UUID]*model.Category
	ceilings   map[uuid.UUID]*model.BudgetCeiling
	profiles   map[uuid.UUID]*model.Profile
	audits     []model.AuditLog
}

func newMemStore() *memStore {
	return &memStore{
		requests:   map[uuid.UUID]*model.PurchaseRequest{},
		sequences:  map[string]int{},
		ledger:     map[uuid.UUID]*model.LedgerEntry{},
		categories: map[uuid.UUID]*model.Category{},
		ceilings:   map[uuid.UUID]*model.BudgetCeiling{},
		profiles:   map[uuid.UUID]*model.Profile{},
	}
}

func copyRequest(r *model.PurchaseRequest) *model.PurchaseRequest {
	c := *r
	c.History = append([]model.StatusHistoryEntry(nil), r.History...)
	c.Category = nil
	c.RequesterProfile = nil
	return &c
}

func copyEntry(e *model.LedgerEntry) *model.LedgerEntry {
	c := *e
	c.Category = nil
	return &c
}

type memSnapshot struct {
	requests  map[uuid.UUID]*model.PurchaseRequest
	order     []uuid.UUID
	sequences map[string]int
	ledger    map[uuid.UUID]*model.LedgerEntry
	ceilings  map[uuid.UUID]*model.BudgetCeiling
	cats      map[uuid.UUID]*model.Category
	audits    int
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := memSnapshot{
		requests:  map[uuid.UUID]*model.PurchaseRequest{},
		order:     append([]uuid.UUID(nil), s.order...),
		sequences: map[string]int{},
		ledger:    map[uuid.UUID]*model.LedgerEntry{},
		ceilings:  map[uuid.UUID]*model.BudgetCeiling{},
		cats:      map[uuid.UUID]*model.Category{},
		audits:    len(s.audits),
	}
	for k, v := range s.requests {
		snap.requests[k] = copyRequest(v)
	}
	for k, v := range s.sequences {
		snap.sequences[k] = v
	}
	for k, v := range s.ledger {
		snap.ledger[k] = copyEntry(v)
	}
	for k, v := range s.ceilings {
		c := *v
		snap.ceilings[k] = &c
	}
	for k, v := range s.categories {
		c := *v
		snap.cats[k] = &c
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = snap.requests
	s.order = snap.order
	s.sequences = snap.sequences
	s.ledger = snap.ledger
	s.ceilings = snap.ceilings
	s.categories = snap.cats
	s.audits = s.audits[:snap.audits]
}

func (s *memStore) auditActions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	actions := make([]string, 0, len(s.audits))
	for _, a := range s.audits {
		actions = append(actions, a.Action)
	}
	return actions
}

func (s *memStore) ledgerEntries() []model.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := make([]model.LedgerEntry, 0, len(s.ledger))
	for _, e := range s.ledger {
		entries = append(entries, *e)
	}
	return entries
}

func (s *memStore) storedRequest(id uuid.UUID) *model.PurchaseRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return nil
	}
	return copyRequest(r)
}

// --- transaction manager ---

type fakeTxManager struct {
	st *memStore
}

type fakeTxKey struct{}

func (f *fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if ctx.Value(fakeTxKey{}) != nil {
		return fn(ctx)
	}
	snap := f.st.snapshot()
	if err := fn(context.WithValue(ctx, fakeTxKey{}, true)); err != nil {
		f.st.restore(snap)
		return err
	}
	return nil
}

// --- purchase requests ---

type fakeRequestRepo struct {
	st *memStore
	// beforeUpdate runs before the version check, for simulating a concurrent writer.
	beforeUpdate func(st *memStore, id uuid.UUID)
}

func (r *fakeRequestRepo) NextRequestNo(_ context.Context, at time.Time) (string, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	period := at.Format("200601")
	r.st.sequences[period]++
	return fmt.Sprintf("PP-%s-%04d", period, r.st.sequences[period]), nil
}

func (r *fakeRequestRepo) Create(_ context.Context, req *model.PurchaseRequest) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, existing := range r.st.requests {
		if existing.RequestNo == req.RequestNo {
			return gorm.ErrDuplicatedKey
		}
	}
	req.ID = uuid.New()
	req.CreatedAt = time.Now()
	req.UpdatedAt = req.CreatedAt
	r.st.requests[req.ID] = copyRequest(req)
	r.st.order = append(r.st.order, req.ID)
	return nil
}

func (r *fakeRequestRepo) FindByID(_ context.Context, id uuid.UUID) (*model.PurchaseRequest, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	req, ok := r.st.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return copyRequest(req), nil
}

func (r *fakeRequestRepo) FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.PurchaseRequest, error) {
	req, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if req.CategoryID != nil {
		if c, ok := r.st.categories[*req.CategoryID]; ok {
			cc := *c
			req.Category = &cc
		}
	}
	if p, ok := r.st.profiles[req.RequesterID]; ok {
		pp := *p
		req.RequesterProfile = &pp
	}
	return req, nil
}

func (r *fakeRequestRepo) List(_ context.Context, filter repository.PurchaseRequestFilter) ([]model.PurchaseRequest, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var res []model.PurchaseRequest
	for i := len(r.st.order) - 1; i >= 0; i-- {
		req, ok := r.st.requests[r.st.order[i]]
		if !ok {
			continue
		}
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		if filter.Region != "" && req.Region != filter.Region {
			continue
		}
		res = append(res, *copyRequest(req))
	}
	return res, nil
}

func (r *fakeRequestRepo) UpdateVersioned(_ context.Context, req *model.PurchaseRequest) error {
	if r.beforeUpdate != nil {
		r.beforeUpdate(r.st, req.ID)
	}
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	stored, ok := r.st.requests[req.ID]
	if !ok || stored.Version != req.Version {
		return repository.ErrNoRowsAffected
	}
	req.Version++
	req.UpdatedAt = time.Now()
	updated := copyRequest(req)
	updated.RequestNo = stored.RequestNo
	updated.RequesterID = stored.RequesterID
	updated.Requester = stored.Requester
	updated.CreatedAt = stored.CreatedAt
	r.st.requests[req.ID] = updated
	return nil
}

func (r *fakeRequestRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if _, ok := r.st.requests[id]; !ok {
		return repository.ErrNoRowsAffected
	}
	delete(r.st.requests, id)
	return nil
}

// --- ledger ---

type fakeLedgerRepo struct {
	st         *memStore
	failCreate error
}

func (r *fakeLedgerRepo) Create(_ context.Context, entry *model.LedgerEntry) error {
	if r.failCreate != nil {
		return r.failCreate
	}
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if entry.PurchaseRequestID != nil {
		for _, e := range r.st.ledger {
			if e.PurchaseRequestID != nil && *e.PurchaseRequestID == *entry.PurchaseRequestID {
				return gorm.ErrDuplicatedKey
			}
		}
	}
	entry.ID = uuid.New()
	entry.CreatedAt = time.Now()
	r.st.ledger[entry.ID] = copyEntry(entry)
	return nil
}

func (r *fakeLedgerRepo) FindByID(_ context.Context, id uuid.UUID) (*model.LedgerEntry, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	e, ok := r.st.ledger[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return copyEntry(e), nil
}

func (r *fakeLedgerRepo) List(_ context.Context, filter repository.LedgerFilter) ([]model.LedgerEntry, int64, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var all []model.LedgerEntry
	for _, e := range r.st.ledger {
		if filter.Region != "" && e.Region != filter.Region {
			continue
		}
		if filter.Nature != "" && e.Nature != filter.Nature {
			continue
		}
		if filter.Origin != "" && e.Origin != filter.Origin {
			continue
		}
		if filter.From != nil && e.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && e.Date.After(*filter.To) {
			continue
		}
		all = append(all, *e)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Date.After(all[j].Date) })

	total := int64(len(all))
	start := (filter.Page - 1) * filter.Limit
	if start >= len(all) {
		return []model.LedgerEntry{}, total, nil
	}
	end := start + filter.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (r *fakeLedgerRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if _, ok := r.st.ledger[id]; !ok {
		return repository.ErrNoRowsAffected
	}
	delete(r.st.ledger, id)
	return nil
}

func (r *fakeLedgerRepo) DeleteByPurchaseRequest(_ context.Context, requestID uuid.UUID) (int64, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var n int64
	for id, e := range r.st.ledger {
		if e.PurchaseRequestID != nil && *e.PurchaseRequestID == requestID {
			delete(r.st.ledger, id)
			n++
		}
	}
	return n, nil
}

func (r *fakeLedgerRepo) SumExpenses(_ context.Context, region string, categoryID uuid.UUID, from, to time.Time) (int64, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var sum int64
	for _, e := range r.st.ledger {
		if e.Nature != model.NatureExpense || e.Region != region || e.CategoryID == nil || *e.CategoryID != categoryID {
			continue
		}
		if e.Date.Before(from) || !e.Date.Before(to) {
			continue
		}
		sum += e.Amount
	}
	return sum, nil
}

// --- categories, budgets, audit ---

type fakeCategoryRepo struct {
	st *memStore
}

func (r *fakeCategoryRepo) Create(_ context.Context, category *model.Category) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, c := range r.st.categories {
		if c.Code == category.Code {
			return gorm.ErrDuplicatedKey
		}
	}
	category.ID = uuid.New()
	c := *category
	r.st.categories[c.ID] = &c
	return nil
}

func (r *fakeCategoryRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Category, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	c, ok := r.st.categories[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cc := *c
	return &cc, nil
}

func (r *fakeCategoryRepo) FindByCode(_ context.Context, code string) (*model.Category, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, c := range r.st.categories {
		if c.Code == code {
			cc := *c
			return &cc, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeCategoryRepo) List(_ context.Context) ([]model.Category, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	res := make([]model.Category, 0, len(r.st.categories))
	for _, c := range r.st.categories {
		res = append(res, *c)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Code < res[j].Code })
	return res, nil
}

type fakeBudgetRepo struct {
	st *memStore
}

func (r *fakeBudgetRepo) FindCeiling(_ context.Context, year int, region string, categoryID uuid.UUID) (*model.BudgetCeiling, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, c := range r.st.ceilings {
		if c.Year == year && c.Region == region && c.CategoryID == categoryID {
			cc := *c
			return &cc, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeBudgetRepo) FindByID(_ context.Context, id uuid.UUID) (*model.BudgetCeiling, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	c, ok := r.st.ceilings[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cc := *c
	return &cc, nil
}

func (r *fakeBudgetRepo) ListCeilings(_ context.Context, year int, region string) ([]model.BudgetCeiling, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var res []model.BudgetCeiling
	for _, c := range r.st.ceilings {
		if c.Year != year || (region != "" && c.Region != region) {
			continue
		}
		res = append(res, *c)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Region < res[j].Region })
	return res, nil
}

func (r *fakeBudgetRepo) Upsert(_ context.Context, ceiling *model.BudgetCeiling) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, c := range r.st.ceilings {
		if c.Year == ceiling.Year && c.Region == ceiling.Region && c.CategoryID == ceiling.CategoryID {
			c.Amount = ceiling.Amount
			*ceiling = *c
			return nil
		}
	}
	ceiling.ID = uuid.New()
	c := *ceiling
	r.st.ceilings[c.ID] = &c
	return nil
}

func (r *fakeBudgetRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if _, ok := r.st.ceilings[id]; !ok {
		return repository.ErrNoRowsAffected
	}
	delete(r.st.ceilings, id)
	return nil
}

type fakeAuditRepo struct {
	st *memStore
}

func (r *fakeAuditRepo) Log(_ context.Context, entry *model.AuditLog) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	entry.ID = uuid.New()
	entry.CreatedAt = time.Now()
	r.st.audits = append(r.st.audits, *entry)
	return nil
}

func (r *fakeAuditRepo) List(_ context.Context, filter repository.AuditFilter) ([]model.AuditLog, int64, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var res []model.AuditLog
	for i := len(r.st.audits) - 1; i >= 0; i-- {
		a := r.st.audits[i]
		if filter.Action != "" && a.Action != filter.Action {
			continue
		}
		if filter.EntityID != "" && a.EntityID != filter.EntityID {
			continue
		}
		if a.UserID != nil {
			if p, ok := r.st.profiles[*a.UserID]; ok {
				pp := *p
				a.User = &pp
			}
		}
		res = append(res, a)
	}
	return res, int64(len(res)), nil
}

// --- storage, identity, notifier ---

type fakeStorage struct {
	mu        sync.Mutex
	objects   map[string][]byte
	removed   []string
	failSign  bool
	uploadErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string][]byte{}}
}

func (f *fakeStorage) Upload(_ context.Context, key string, reader io.Reader, _ int64, _ string) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return nil
}

func (f *fakeStorage) SignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	if f.failSign {
		return "", fmt.Errorf("signing unavailable")
	}
	return fmt.Sprintf("https://signed.test/%s?ttl=%d", key, int(ttl.Seconds())), nil
}

func (f *fakeStorage) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, key)
	delete(f.objects, key)
	return nil
}

func (f *fakeStorage) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

// switchIdentity answers with whichever actor the test selected last.
type switchIdentity struct {
	current *identity.Actor
}

func (s *switchIdentity) CurrentUser(context.Context) (identity.Actor, error) {
	if s.current == nil {
		return identity.Actor{}, identity.ErrUnauthenticated
	}
	return *s.current, nil
}

type recordedEvent struct {
	Type    string
	Payload WorkflowEvent
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (n *recordingNotifier) Publish(eventType string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	ev, _ := payload.(WorkflowEvent)
	n.events = append(n.events, recordedEvent{Type: eventType, Payload: ev})
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	res := make([]string, 0, len(n.events))
	for _, e := range n.events {
		res = append(res, e.Type)
	}
	return res
}

// --- environment ---

var (
	requesterActor = identity.Actor{ID: uuid.New(), Name: "Siti Aminah", Role: model.RoleSecretary, Title: "Sekretaris RW"}
	residentActor  = identity.Actor{ID: uuid.New(), Name: "Joko", Role: model.RoleResident}
	chairmanActor  = identity.Actor{ID: uuid.New(), Name: "Pak Budi", Role: model.RoleChairman}
	treasurerActor = identity.Actor{ID: uuid.New(), Name: "Bu Rina", Role: model.RoleTreasurer}
	adminActor     = identity.Actor{ID: uuid.New(), Name: "Admin", Role: model.RoleAdmin}
)

var testNow = time.Date(2025, time.February, 20, 9, 30, 0, 0, time.UTC)

type testEnv struct {
	st          *memStore
	storage     *fakeStorage
	notifier    *recordingNotifier
	ident       *switchIdentity
	requestRepo *fakeRequestRepo
	ledgerRepo  *fakeLedgerRepo
	policy      RolePolicy
	requests    *purchaseRequestService
	ledger      LedgerService
	budget      BudgetService
	audit       AuditService
	category    *model.Category
}

func newTestEnv() *testEnv {
	st := newMemStore()
	env := &testEnv{
		st:          st,
		storage:     newFakeStorage(),
		notifier:    &recordingNotifier{},
		ident:       &switchIdentity{},
		requestRepo: &fakeRequestRepo{st: st},
		ledgerRepo:  &fakeLedgerRepo{st: st},
		policy:      NewRolePolicy([]string{model.RoleAdmin}, []string{model.RoleChairman}, []string{model.RoleTreasurer}),
	}

	tx := &fakeTxManager{st: st}
	categoryRepo := &fakeCategoryRepo{st: st}
	auditRepo := &fakeAuditRepo{st: st}

	env.ledger = NewLedgerService(env.ledgerRepo, categoryRepo, auditRepo, tx, env.ident, env.policy)
	env.budget = NewBudgetService(&fakeBudgetRepo{st: st}, env.ledgerRepo, auditRepo, tx, env.ident, env.policy)
	env.audit = NewAuditService(auditRepo, env.ident, env.policy)
	env.requests = NewPurchaseRequestService(
		env.requestRepo, categoryRepo, auditRepo, tx, env.ledger, env.budget,
		env.storage, env.ident, env.policy, env.notifier, time.Hour,
	).(*purchaseRequestService)
	env.requests.now = func() time.Time { return testNow }

	env.category = &model.Category{Code: "PERAWATAN", Name: "Perawatan Fasilitas"}
	_ = categoryRepo.Create(context.Background(), env.category)

	for _, a := range []identity.Actor{requesterActor, residentActor, chairmanActor, treasurerActor, adminActor} {
		st.profiles[a.ID] = &model.Profile{ID: a.ID, FullName: a.Name, Role: a.Role}
	}
	return env
}

func (e *testEnv) as(actor identity.Actor) context.Context {
	a := actor
	e.ident.current = &a
	return context.Background()
}

func (e *testEnv) content(amount int64) PurchaseRequestContent {
	categoryID := e.category.ID
	return PurchaseRequestContent{
		Description: "Perbaikan pompa air",
		Region:      model.RegionUtara,
		CategoryID:  &categoryID,
		Amount:      amount,
	}
}

func evidenceFile(name, body string) *FileUpload {
	return &FileUpload{
		Filename:    name,
		ContentType: "application/pdf",
		Size:        int64(len(body)),
		Reader:      strings.NewReader(body),
	}
}
