package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	amenitieserrors "cowork/internal/amenities/errors"
	billingerrors "cowork/internal/billing/errors"
	"cowork/internal/billing/validator"
	reservationserrors "cowork/internal/reservations/errors"
	"cowork/pkg/config"
	apperrors "cowork/pkg/errors"
	"cowork/pkg/logger"
	"cowork/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

type fakeInvoiceRepository struct {
	mu       sync.Mutex
	invoices map[string]*model.Invoice
	err      error
}

func newFakeInvoiceRepository() *fakeInvoiceRepository {
	return &fakeInvoiceRepository{invoices: make(map[string]*model.Invoice)}
}

// ExecuteTransaction drops invoices created by fn when it fails.
func (f *fakeInvoiceRepository) ExecuteTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	f.mu.Lock()
	before := make(map[string]struct{}, len(f.invoices))
	for id := range f.invoices {
		before[id] = struct{}{}
	}
	f.mu.Unlock()

	if err := fn(ctx); err != nil {
		f.mu.Lock()
		for id := range f.invoices {
			if _, ok := before[id]; !ok {
				delete(f.invoices, id)
			}
		}
		f.mu.Unlock()
		return err
	}
	return nil
}

func (f *fakeInvoiceRepository) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.invoices)
}

func (f *fakeInvoiceRepository) Create(_ context.Context, invoice *model.Invoice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	cp := *invoice
	f.invoices[invoice.ID] = &cp
	return nil
}

func (f *fakeInvoiceRepository) FindByID(_ context.Context, id string) (*model.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invoices[id]
	if !ok {
		return nil, billingerrors.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (f *fakeInvoiceRepository) MarkPaid(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invoices[id]
	if !ok {
		return billingerrors.ErrNotFound
	}
	if inv.Status != model.InvoicePending {
		return billingerrors.ErrNotPending
	}
	inv.Status = model.InvoicePaid
	inv.PaidAt = &at
	return nil
}

func (f *fakeInvoiceRepository) FindByMember(_ context.Context, memberID string) ([]*model.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*model.Invoice{}
	for _, inv := range f.invoices {
		if inv.MemberID == memberID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (f *fakeInvoiceRepository) FindOverdue(_ context.Context, now time.Time) ([]*model.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := []*model.Invoice{}
	for _, inv := range f.invoices {
		if inv.IsOverdue(now) {
			out = append(out, inv)
		}
	}
	return out, nil
}

type fakeReservations struct {
	mu        sync.Mutex
	items     map[string]*model.Reservation
	attachErr error
	// onFind runs after FindByIDs has taken its snapshot.
	onFind func()
}

func (f *fakeReservations) FindByIDs(_ context.Context, ids []string) ([]*model.Reservation, error) {
	f.mu.Lock()
	out := []*model.Reservation{}
	for _, id := range ids {
		if r, ok := f.items[id]; ok {
			cp := *r
			out = append(out, &cp)
		}
	}
	hook := f.onFind
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	return out, nil
}

func (f *fakeReservations) AttachInvoice(_ context.Context, ids []string, invoiceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attachErr != nil {
		return f.attachErr
	}
	for _, id := range ids {
		if r, ok := f.items[id]; !ok || r.InvoiceID != "" {
			return fmt.Errorf("%w: %s", reservationserrors.ErrAlreadyInvoiced, id)
		}
	}
	for _, id := range ids {
		f.items[id].InvoiceID = invoiceID
	}
	return nil
}

type fakeUsages struct {
	mu     sync.Mutex
	items  map[string]*model.ServiceUsage
	onFind func()
}

func (f *fakeUsages) FindUsages(_ context.Context, ids []string) ([]*model.ServiceUsage, error) {
	f.mu.Lock()
	out := []*model.ServiceUsage{}
	for _, id := range ids {
		if u, ok := f.items[id]; ok {
			cp := *u
			out = append(out, &cp)
		}
	}
	hook := f.onFind
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	return out, nil
}

func (f *fakeUsages) AttachInvoice(_ context.Context, ids []string, invoiceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		if u, ok := f.items[id]; !ok || u.InvoiceID != "" {
			return fmt.Errorf("%w: %s", amenitieserrors.ErrUsageAlreadyInvoiced, id)
		}
	}
	for _, id := range ids {
		f.items[id].InvoiceID = invoiceID
	}
	return nil
}

type billingHarness struct {
	svc          *invoiceService
	repo         *fakeInvoiceRepository
	reservations *fakeReservations
	usages       *fakeUsages
}

func newBillingHarness() *billingHarness {
	cfg := &config.Config{Log: logger.Discard(), InvoiceDueDays: 14}
	h := &billingHarness{
		repo: newFakeInvoiceRepository(),
		reservations: &fakeReservations{items: map[string]*model.Reservation{
			"r-1": {ID: "r-1", MemberID: "m-1", Status: model.ReservationConfirmed, TotalPrice: 1800},
			"r-2": {ID: "r-2", MemberID: "m-1", Status: model.ReservationConfirmed, TotalPrice: 1200},
			"r-3": {ID: "r-3", MemberID: "m-2", Status: model.ReservationConfirmed, TotalPrice: 900},
			"r-4": {ID: "r-4", MemberID: "m-1", Status: model.ReservationCancelled, TotalPrice: 600},
			"r-5": {ID: "r-5", MemberID: "m-1", Status: model.ReservationConfirmed, TotalPrice: 600, InvoiceID: "inv-old"},
		}},
		usages: &fakeUsages{items: map[string]*model.ServiceUsage{
			"u-1": {ID: "u-1", MemberID: "m-1", TotalPrice: 350},
			"u-2": {ID: "u-2", MemberID: "m-2", TotalPrice: 700},
		}},
	}
	h.svc = NewInvoiceService(h.repo, h.reservations, h.usages, validator.NewInvoiceValidator(cfg.Log), cfg).(*invoiceService)
	h.svc.now = func() time.Time { return testNow }
	return h
}

func TestInvoiceService_Generate(t *testing.T) {
	h := newBillingHarness()

	invoice, err := h.svc.Generate(context.Background(), &model.InvoiceRequest{
		MemberID:       "m-1",
		ReservationIDs: []string{"r-2", "r-1", "r-2"},
		UsageIDs:       []string{"u-1"},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, invoice.ID)
	assert.Equal(t, int64(1800+1200+350), invoice.TotalAmount)
	assert.Equal(t, model.InvoicePending, invoice.Status)
	assert.Equal(t, testNow, invoice.InvoiceDate)
	assert.Equal(t, testNow.AddDate(0, 0, 14), invoice.DueDate)
	assert.Equal(t, []string{"r-1", "r-2"}, invoice.ReservationIDs)
	assert.Equal(t, invoice.ID, h.reservations.items["r-1"].InvoiceID)
	assert.Equal(t, invoice.ID, h.reservations.items["r-2"].InvoiceID)
	assert.Equal(t, invoice.ID, h.usages.items["u-1"].InvoiceID)
	assert.Len(t, h.repo.invoices, 1)
}

func TestInvoiceService_Generate_Errors(t *testing.T) {
	tests := []struct {
		name     string
		req      model.InvoiceRequest
		wantCode string
	}{
		{"no member", model.InvoiceRequest{ReservationIDs: []string{"r-1"}}, apperrors.CodeValidation},
		{"nothing to bill", model.InvoiceRequest{MemberID: "m-1"}, apperrors.CodeInvalidInput},
		{"unknown reservation", model.InvoiceRequest{MemberID: "m-1", ReservationIDs: []string{"r-1", "r-9"}}, apperrors.CodeNotFound},
		{"unknown usage", model.InvoiceRequest{MemberID: "m-1", UsageIDs: []string{"u-9"}}, apperrors.CodeNotFound},
		{"foreign reservation", model.InvoiceRequest{MemberID: "m-1", ReservationIDs: []string{"r-3"}}, apperrors.CodeValidation},
		{"foreign usage", model.InvoiceRequest{MemberID: "m-1", UsageIDs: []string{"u-2"}}, apperrors.CodeValidation},
		{"cancelled reservation", model.InvoiceRequest{MemberID: "m-1", ReservationIDs: []string{"r-4"}}, apperrors.CodeValidation},
		{"already invoiced", model.InvoiceRequest{MemberID: "m-1", ReservationIDs: []string{"r-5"}}, apperrors.CodeConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newBillingHarness()
			req := tt.req

			_, err := h.svc.Generate(context.Background(), &req)
			assert.True(t, apperrors.HasCode(err, tt.wantCode), "got %v", err)
			assert.Empty(t, h.repo.invoices)
		})
	}
}

func TestInvoiceService_Generate_StorageFailure(t *testing.T) {
	h := newBillingHarness()
	h.reservations.attachErr = errors.New("write conflict")

	_, err := h.svc.Generate(context.Background(), &model.InvoiceRequest{MemberID: "m-1", ReservationIDs: []string{"r-1"}})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeStorageFailure))
}

func TestInvoiceService_Generate_ConcurrentSameReservation(t *testing.T) {
	h := newBillingHarness()
	ctx := context.Background()

	// The first Generate reads r-1 as uninvoiced, then waits while a second
	// Generate bills the same reservation to completion.
	interleaved := false
	h.reservations.onFind = func() {
		if interleaved {
			return
		}
		interleaved = true
		_, err := h.svc.Generate(ctx, &model.InvoiceRequest{MemberID: "m-1", ReservationIDs: []string{"r-1"}})
		require.NoError(t, err)
	}

	_, err := h.svc.Generate(ctx, &model.InvoiceRequest{
		MemberID:       "m-1",
		ReservationIDs: []string{"r-1", "r-2"},
	})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict), "got %v", err)

	assert.Equal(t, 1, h.repo.count())
	assert.NotEmpty(t, h.reservations.items["r-1"].InvoiceID)
	assert.Empty(t, h.reservations.items["r-2"].InvoiceID)
}

func TestInvoiceService_Generate_ConcurrentSameUsage(t *testing.T) {
	h := newBillingHarness()
	ctx := context.Background()

	interleaved := false
	h.usages.onFind = func() {
		if interleaved {
			return
		}
		interleaved = true
		_, err := h.svc.Generate(ctx, &model.InvoiceRequest{MemberID: "m-1", UsageIDs: []string{"u-1"}})
		require.NoError(t, err)
	}

	_, err := h.svc.Generate(ctx, &model.InvoiceRequest{MemberID: "m-1", UsageIDs: []string{"u-1"}})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict), "got %v", err)
	assert.Equal(t, 1, h.repo.count())
}

func TestInvoiceService_Pay(t *testing.T) {
	h := newBillingHarness()
	ctx := context.Background()

	invoice, err := h.svc.Generate(ctx, &model.InvoiceRequest{MemberID: "m-1", UsageIDs: []string{"u-1"}})
	require.NoError(t, err)

	paid, err := h.svc.Pay(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InvoicePaid, paid.Status)
	require.NotNil(t, paid.PaidAt)
	assert.Equal(t, testNow, *paid.PaidAt)

	_, err = h.svc.Pay(ctx, invoice.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))

	_, err = h.svc.Pay(ctx, "missing")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	_, err = h.svc.Pay(ctx, "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))
}

func TestInvoiceService_OverdueAndByMember(t *testing.T) {
	h := newBillingHarness()
	ctx := context.Background()

	invoice, err := h.svc.Generate(ctx, &model.InvoiceRequest{MemberID: "m-1", ReservationIDs: []string{"r-1"}})
	require.NoError(t, err)

	overdue, err := h.svc.Overdue(ctx)
	require.NoError(t, err)
	assert.Empty(t, overdue)

	h.svc.now = func() time.Time { return testNow.AddDate(0, 0, 15) }
	overdue, err = h.svc.Overdue(ctx)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, invoice.ID, overdue[0].ID)
	assert.NoError(t, h.svc.ScanOverdue(ctx))

	mine, err := h.svc.ByMember(ctx, "m-1")
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	_, err = h.svc.ByMember(ctx, "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))
}

func TestInvoiceService_ScanOverdue_Error(t *testing.T) {
	h := newBillingHarness()
	h.repo.err = errors.New("connection reset")

	assert.Error(t, h.svc.ScanOverdue(context.Background()))
}

func TestInvoiceService_InvoiceReservation(t *testing.T) {
	h := newBillingHarness()
	ctx := context.Background()

	require.NoError(t, h.svc.InvoiceReservation(ctx, "r-1"))
	require.Len(t, h.repo.invoices, 1)
	first := h.reservations.items["r-1"].InvoiceID
	assert.NotEmpty(t, first)

	require.NoError(t, h.svc.InvoiceReservation(ctx, "r-1"))
	assert.Len(t, h.repo.invoices, 1)
	assert.Equal(t, first, h.reservations.items["r-1"].InvoiceID)

	require.NoError(t, h.svc.InvoiceReservation(ctx, "r-4"))
	require.NoError(t, h.svc.InvoiceReservation(ctx, "r-5"))
	assert.Len(t, h.repo.invoices, 1)

	err := h.svc.InvoiceReservation(ctx, "r-9")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}
