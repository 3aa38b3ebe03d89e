//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"net/http"
	"slices"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"hotspot-billing/internal/domain"
	"hotspot-billing/internal/domain/model"
	"hotspot-billing/internal/domain/ports/adapter"
	"hotspot-billing/internal/domain/ports/repository"
	"hotspot-billing/internal/usecase"
)

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

// =============================
// Repositories
// =============================

// ---- Orders ----

type memOrderRepo struct {
	mu     sync.Mutex
	seq    int64
	byID   map[int64]*model.Order
	byCode map[string]int64

	CreateFunc func(ctx context.Context, tx repository.Tx, o *model.Order) error
	PaidWins   int // successful PENDING -> PAID transitions
}

var _ repository.OrderRepository = (*memOrderRepo)(nil)

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{byID: map[int64]*model.Order{}, byCode: map[string]int64{}}
}

func (m *memOrderRepo) Create(ctx context.Context, tx repository.Tx, o *model.Order) error {
	if m.CreateFunc != nil {
		if err := m.CreateFunc(ctx, tx, o); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.byCode[o.VoucherCode]; taken {
		return domain.ErrCodeCollision
	}
	m.seq++
	o.ID = m.seq
	o.CreatedAt = time.Now()
	cp := *o
	m.byID[o.ID] = &cp
	m.byCode[o.VoucherCode] = o.ID
	return nil
}

// put stores o as-is; used by tests to seed orders in any state.
func (m *memOrderRepo) put(o *model.Order) *model.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o.ID == 0 {
		m.seq++
		o.ID = m.seq
	}
	cp := *o
	m.byID[o.ID] = &cp
	m.byCode[o.VoucherCode] = o.ID
	return o
}

func (m *memOrderRepo) get(id int64) *model.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byID[id]
	if !ok {
		return nil
	}
	cp := *o
	return &cp
}

func (m *memOrderRepo) FindByReference(ctx context.Context, tx repository.Tx, reference string) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.byID {
		if o.Reference == reference {
			cp := *o
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memOrderRepo) FindByID(ctx context.Context, tx repository.Tx, id int64) (*model.Order, error) {
	if o := m.get(id); o != nil {
		return o, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memOrderRepo) FindPaidByVoucherCode(ctx context.Context, tx repository.Tx, code string) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byCode[code]
	if !ok || m.byID[id].Status != model.OrderStatusPaid {
		return nil, domain.ErrNotFound
	}
	cp := *m.byID[id]
	return &cp, nil
}

func (m *memOrderRepo) SetProviderTxID(ctx context.Context, tx repository.Tx, id int64, providerTxID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	o.ProviderTxID = providerTxID
	return nil
}

func (m *memOrderRepo) MarkPaidIfPending(ctx context.Context, tx repository.Tx, id int64, providerTxID string, paidAt, accessExpiresAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byID[id]
	if !ok || o.Status != model.OrderStatusPending {
		return false, nil
	}
	o.Status = model.OrderStatusPaid
	o.ProviderTxID = providerTxID
	o.PaidAt = &paidAt
	o.AccessExpiresAt = &accessExpiresAt
	m.PaidWins++
	return true, nil
}

func (m *memOrderRepo) MarkFailedIfPending(ctx context.Context, tx repository.Tx, id int64, providerTxID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byID[id]
	if !ok || o.Status != model.OrderStatusPending {
		return false, nil
	}
	o.Status = model.OrderStatusFailed
	if providerTxID != "" {
		o.ProviderTxID = providerTxID
	}
	return true, nil
}

func (m *memOrderRepo) UpdateAuthorization(ctx context.Context, tx repository.Tx, id int64, status model.AuthorizationStatus, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.byID[id]; ok {
		o.AuthStatus = status
		o.AuthMessage = message
	}
	return nil
}

func (m *memOrderRepo) MarkRedeemed(ctx context.Context, tx repository.Tx, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.byID[id]; ok && o.RedeemedAt == nil {
		o.RedeemedAt = &at
	}
	return nil
}

func (m *memOrderRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Order
	for _, o := range m.byID {
		if o.Status == model.OrderStatusPending && o.CreatedAt.Before(olderThan) {
			cp := *o
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.Before(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memOrderRepo) TouchPending(ctx context.Context, tx repository.Tx, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.byID[id]; ok && o.Status == model.OrderStatusPending {
		o.UpdatedAt = at
	}
	return nil
}

// ---- Payment logs ----

type memPaymentLogRepo struct {
	mu   sync.Mutex
	logs []model.PaymentLog
}

var _ repository.PaymentLogRepository = (*memPaymentLogRepo)(nil)

func (m *memPaymentLogRepo) Append(ctx context.Context, tx repository.Tx, l *model.PaymentLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.ID = int64(len(m.logs) + 1)
	m.logs = append(m.logs, *l)
	return nil
}

func (m *memPaymentLogRepo) ListByOrder(ctx context.Context, tx repository.Tx, orderID int64) ([]*model.PaymentLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.PaymentLog
	for i := range m.logs {
		if m.logs[i].OrderID == orderID {
			cp := m.logs[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memPaymentLogRepo) statuses(orderID int64) []model.PaymentLogStatus {
	ls, _ := m.ListByOrder(context.Background(), nil, orderID)
	out := make([]model.PaymentLogStatus, 0, len(ls))
	for _, l := range ls {
		out = append(out, l.Status)
	}
	return out
}

// ---- Plans ----

type memPlanRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Plan
}

var _ repository.PlanRepository = (*memPlanRepo)(nil)

func newMemPlanRepo(plans ...*model.Plan) *memPlanRepo {
	m := &memPlanRepo{store: map[string]*model.Plan{}}
	for _, p := range plans {
		m.store[p.ID] = p
	}
	return m
}

func (m *memPlanRepo) Save(ctx context.Context, tx repository.Tx, p *model.Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *memPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPlanRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Plan
	for _, p := range m.store {
		if p.Active {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ---- Vouchers and usage ledger ----

type memVoucherRepo struct {
	mu     sync.Mutex
	byCode map[string]*model.Voucher
}

var _ repository.VoucherRepository = (*memVoucherRepo)(nil)

func newMemVoucherRepo(vs ...*model.Voucher) *memVoucherRepo {
	m := &memVoucherRepo{byCode: map[string]*model.Voucher{}}
	for _, v := range vs {
		m.byCode[v.Code] = v
	}
	return m
}

func (m *memVoucherRepo) Save(ctx context.Context, tx repository.Tx, v *model.Voucher) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *v
	m.byCode[v.Code] = &cp
	return nil
}

func (m *memVoucherRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.Voucher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.byCode[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (m *memVoucherRepo) byID(id string) *model.Voucher {
	for _, v := range m.byCode {
		if v.ID == id {
			return v
		}
	}
	return nil
}

func (m *memVoucherRepo) MarkUsed(ctx context.Context, tx repository.Tx, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := m.byID(id)
	if v == nil {
		return domain.ErrNotFound
	}
	v.Status = model.VoucherStatusUsed
	v.UsedAt = &at
	return nil
}

func (m *memVoucherRepo) SetProvisioned(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := m.byID(id)
	if v == nil {
		return domain.ErrNotFound
	}
	v.Provisioned = true
	return nil
}

type memLedgerRepo struct {
	mu   sync.Mutex
	rows map[string]model.VoucherUsage
}

var _ repository.UsageLedgerRepository = (*memLedgerRepo)(nil)

func newMemLedgerRepo() *memLedgerRepo { return &memLedgerRepo{rows: map[string]model.VoucherUsage{}} }

func (m *memLedgerRepo) Insert(ctx context.Context, tx repository.Tx, u *model.VoucherUsage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.rows[u.VoucherCode]; dup {
		return domain.ErrAlreadyUsed
	}
	u.ID = int64(len(m.rows) + 1)
	m.rows[u.VoucherCode] = *u
	return nil
}

func (m *memLedgerRepo) Exists(ctx context.Context, tx repository.Tx, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rows[code]
	return ok, nil
}

// ---- RADIUS store ----

type memRadiusRepo struct {
	mu       sync.Mutex
	attrs    map[model.RadiusTable]map[string]map[string]model.RadiusAttribute
	sessions []model.AccountingSession
	deleted  []string
}

var _ repository.RadiusRepository = (*memRadiusRepo)(nil)

func newMemRadiusRepo() *memRadiusRepo {
	return &memRadiusRepo{attrs: map[model.RadiusTable]map[string]map[string]model.RadiusAttribute{
		model.RadCheck: {},
		model.RadReply: {},
	}}
}

func (m *memRadiusRepo) UpsertAttribute(ctx context.Context, tx repository.Tx, table model.RadiusTable, a model.RadiusAttribute) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.attrs[table][a.Username]
	if !ok {
		user = map[string]model.RadiusAttribute{}
		m.attrs[table][a.Username] = user
	}
	user[a.Attribute] = a
	return nil
}

func (m *memRadiusRepo) DeleteAttribute(ctx context.Context, tx repository.Tx, table model.RadiusTable, username, attribute string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.attrs[table][username], attribute)
	return nil
}

func (m *memRadiusRepo) DeleteUser(ctx context.Context, tx repository.Tx, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.attrs[model.RadCheck], username)
	delete(m.attrs[model.RadReply], username)
	m.deleted = append(m.deleted, username)
	return nil
}

func (m *memRadiusRepo) ListAttributes(ctx context.Context, tx repository.Tx, table model.RadiusTable, username string) ([]model.RadiusAttribute, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.RadiusAttribute
	for _, a := range m.attrs[table][username] {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Attribute < out[j].Attribute })
	return out, nil
}

// value returns the stored value of an attribute, or "" when absent.
func (m *memRadiusRepo) value(table model.RadiusTable, username, attribute string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attrs[table][username][attribute].Value
}

func (m *memRadiusRepo) has(table model.RadiusTable, username, attribute string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.attrs[table][username][attribute]
	return ok
}

func (m *memRadiusRepo) addSession(s model.AccountingSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = append(m.sessions, s)
}

func (m *memRadiusRepo) LatestSession(ctx context.Context, tx repository.Tx, username string) (*model.AccountingSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sessions) - 1; i >= 0; i-- {
		if m.sessions[i].Username == username {
			cp := m.sessions[i]
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memRadiusRepo) UsageStats(ctx context.Context, tx repository.Tx, username string) (*model.UsageStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := &model.UsageStats{Username: username}
	for _, s := range m.sessions {
		if s.Username != username {
			continue
		}
		st.SessionCount++
		st.DownloadBytes += s.OutputOctets
		st.UploadBytes += s.InputOctets
		st.SessionSeconds += s.SessionTime
	}
	return st, nil
}

func (m *memRadiusRepo) HasOpenSession(ctx context.Context, tx repository.Tx, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.Username == username && s.StopTime == nil {
			return true, nil
		}
	}
	return false, nil
}

func (m *memRadiusRepo) HasClosedSession(ctx context.Context, tx repository.Tx, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.Username == username && s.StopTime != nil {
			return true, nil
		}
	}
	return false, nil
}

// ---- Security ----

type memSecurityRepo struct {
	mu     sync.Mutex
	blocks []model.BlockEntry
	events []model.SecurityEvent
}

var _ repository.SecurityRepository = (*memSecurityRepo)(nil)

func (m *memSecurityRepo) FindActiveBlock(ctx context.Context, tx repository.Tx, ip string, now time.Time) (*model.BlockEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.blocks {
		if m.blocks[i].ClientIP == ip && m.blocks[i].ActiveAt(now) {
			cp := m.blocks[i]
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memSecurityRepo) SaveBlock(ctx context.Context, tx repository.Tx, b *model.BlockEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b.ID = int64(len(m.blocks) + 1)
	m.blocks = append(m.blocks, *b)
	return nil
}

func (m *memSecurityRepo) SaveEvent(ctx context.Context, tx repository.Tx, e *model.SecurityEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *e)
	return nil
}

func (m *memSecurityRepo) eventsOf(t model.SecurityEventType) []model.SecurityEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.SecurityEvent
	for _, e := range m.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// ---- Bindings ----

type memBindingRepo struct {
	mu   sync.Mutex
	rows []*model.MACBinding
}

var _ repository.BindingRepository = (*memBindingRepo)(nil)

func (m *memBindingRepo) Save(ctx context.Context, tx repository.Tx, b *model.MACBinding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b.ID = int64(len(m.rows) + 1)
	cp := *b
	m.rows = append(m.rows, &cp)
	return nil
}

func (m *memBindingRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id int64, status model.BindingStatus, remoteID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.rows {
		if b.ID == id {
			b.Status = status
			if remoteID != "" {
				b.RemoteID = remoteID
			}
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memBindingRepo) SupersedeByMAC(ctx context.Context, tx repository.Tx, mac string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, b := range m.rows {
		if b.MACAddress == mac && (b.Status == model.BindingActive || b.Status == model.BindingPending) {
			b.Status = model.BindingRemoved
			n++
		}
	}
	return n, nil
}

func (m *memBindingRepo) list(status model.BindingStatus, keep func(*model.MACBinding) bool) []*model.MACBinding {
	return m.listAny([]model.BindingStatus{status}, keep)
}

func (m *memBindingRepo) listAny(statuses []model.BindingStatus, keep func(*model.MACBinding) bool) []*model.MACBinding {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.MACBinding
	for _, b := range m.rows {
		if slices.Contains(statuses, b.Status) && keep(b) {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out
}

func (m *memBindingRepo) ListExpired(ctx context.Context, tx repository.Tx, now time.Time, limit int) ([]*model.MACBinding, error) {
	return m.listAny([]model.BindingStatus{model.BindingActive, model.BindingPending},
		func(b *model.MACBinding) bool { return !b.ExpiresAt.After(now) }), nil
}

func (m *memBindingRepo) ListPending(ctx context.Context, tx repository.Tx, now time.Time, limit int) ([]*model.MACBinding, error) {
	return m.list(model.BindingPending, func(b *model.MACBinding) bool { return b.ExpiresAt.After(now) }), nil
}

// ---- Transactions ----

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

// WithTx runs fn immediately with NoTX unless WithTxFunc is set.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// =============================
// Adapters
// =============================

// ---- Payment gateway ----

type MockGateway struct {
	code string

	CreateChargeFunc      func(ctx context.Context, req adapter.ChargeRequest) (*adapter.ChargeHandle, error)
	VerifyFunc            func(ctx context.Context, providerTxID string) (*adapter.VerifiedTransaction, error)
	AuthenticateFunc      func(h http.Header) bool
	ParseWebhookFunc      func(body []byte, h http.Header) *adapter.WebhookEvent
	VerifyByReferenceFunc func(ctx context.Context, reference string) (*adapter.VerifiedTransaction, error)

	mu          sync.Mutex
	VerifyCalls []string
}

var _ adapter.PaymentGateway = (*MockGateway)(nil)

func (g *MockGateway) Code() string { return g.code }

func (g *MockGateway) CreateCharge(ctx context.Context, req adapter.ChargeRequest) (*adapter.ChargeHandle, error) {
	if g.CreateChargeFunc != nil {
		return g.CreateChargeFunc(ctx, req)
	}
	return &adapter.ChargeHandle{ProviderTxID: "tx-" + req.Reference}, nil
}

func (g *MockGateway) Verify(ctx context.Context, providerTxID string) (*adapter.VerifiedTransaction, error) {
	g.mu.Lock()
	g.VerifyCalls = append(g.VerifyCalls, providerTxID)
	g.mu.Unlock()
	if g.VerifyFunc != nil {
		return g.VerifyFunc(ctx, providerTxID)
	}
	return nil, domain.ErrProviderUnavailable
}

func (g *MockGateway) AuthenticateWebhook(h http.Header) bool {
	if g.AuthenticateFunc != nil {
		return g.AuthenticateFunc(h)
	}
	return true
}

func (g *MockGateway) ParseWebhook(body []byte, h http.Header) *adapter.WebhookEvent {
	if g.ParseWebhookFunc != nil {
		return g.ParseWebhookFunc(body, h)
	}
	return nil
}

func (g *MockGateway) verifyCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.VerifyCalls)
}

// MockReferenceGateway also answers lookups by merchant reference.
type MockReferenceGateway struct {
	*MockGateway
}

func (g MockReferenceGateway) VerifyByReference(ctx context.Context, reference string) (*adapter.VerifiedTransaction, error) {
	return g.VerifyByReferenceFunc(ctx, reference)
}

type mockRegistry map[string]adapter.PaymentGateway

func (r mockRegistry) Gateway(code string) (adapter.PaymentGateway, error) {
	if g, ok := r[code]; ok {
		return g, nil
	}
	return nil, domain.ErrUnknownProvider
}

// ---- NAS ----

type MockNAS struct {
	mu       sync.Mutex
	seq      int
	bindings map[string]adapter.RemoteBinding // id -> binding

	CreateErr error
	FindErr   error
	Removed   []string
}

var _ adapter.NASClient = (*MockNAS)(nil)

func newMockNAS() *MockNAS { return &MockNAS{bindings: map[string]adapter.RemoteBinding{}} }

func (n *MockNAS) FindBindings(ctx context.Context, mac string) ([]adapter.RemoteBinding, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.FindErr != nil {
		return nil, n.FindErr
	}
	var out []adapter.RemoteBinding
	for _, b := range n.bindings {
		if b.MACAddress == mac {
			out = append(out, b)
		}
	}
	return out, nil
}

func (n *MockNAS) CreateBinding(ctx context.Context, req adapter.BindingRequest) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.CreateErr != nil {
		return "", n.CreateErr
	}
	n.seq++
	id := "*" + strconv.Itoa(n.seq)
	n.bindings[id] = adapter.RemoteBinding{ID: id, MACAddress: req.MACAddress, Address: req.Address, Type: "bypassed", Comment: req.Comment}
	return id, nil
}

func (n *MockNAS) RemoveBinding(ctx context.Context, id string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.bindings, id)
	n.Removed = append(n.Removed, id)
	return nil
}

func (n *MockNAS) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.bindings)
}

// ---- Alerts and events ----

type MockAlerts struct {
	mu   sync.Mutex
	Sent []model.SecurityEvent
}

func (a *MockAlerts) NotifySecurityEvent(ctx context.Context, e *model.SecurityEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Sent = append(a.Sent, *e)
	return nil
}

type MockPublisher struct {
	mu     sync.Mutex
	Events []adapter.OrderEvent
}

func (p *MockPublisher) PublishOrderEvent(ctx context.Context, e adapter.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, e)
	return nil
}

// =============================
// Use-case doubles
// =============================

// countingRadius wraps a real RADIUS writer and counts activations.
type countingRadius struct {
	usecase.RadiusUseCase
	mu          sync.Mutex
	activations int
	ActivateErr error
}

func (c *countingRadius) Activate(ctx context.Context, tx repository.Tx, p model.ActivationParams) (*model.Activation, error) {
	c.mu.Lock()
	c.activations++
	err := c.ActivateErr
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return c.RadiusUseCase.Activate(ctx, tx, p)
}

func (c *countingRadius) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activations
}
