package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "cowork/pkg/errors"
	"cowork/pkg/logger"
	"cowork/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type mockAmenityService struct {
	createItemFunc func(ctx context.Context, item *model.StockedItem) error
	purchaseFunc   func(ctx context.Context, req *model.PurchaseRequest) (*model.ServiceUsage, error)
	lowStockFunc   func(ctx context.Context, threshold int) ([]*model.StockedItem, error)
}

func (m *mockAmenityService) CreateItem(ctx context.Context, item *model.StockedItem) error {
	return m.createItemFunc(ctx, item)
}

func (m *mockAmenityService) Purchase(ctx context.Context, req *model.PurchaseRequest) (*model.ServiceUsage, error) {
	return m.purchaseFunc(ctx, req)
}

func (m *mockAmenityService) LowStock(ctx context.Context, threshold int) ([]*model.StockedItem, error) {
	return m.lowStockFunc(ctx, threshold)
}

func serveAmenity(svc *mockAmenityService, method, path, body string) *httptest.ResponseRecorder {
	router := httprouter.New()
	NewAmenityHandler(svc, logger.Discard()).RegisterRoutes(router)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAmenityHandler_Purchase(t *testing.T) {
	svc := &mockAmenityService{
		purchaseFunc: func(_ context.Context, req *model.PurchaseRequest) (*model.ServiceUsage, error) {
			if req.Quantity > 5 {
				return nil, apperrors.Conflict("Insufficient stock")
			}
			return &model.ServiceUsage{ID: "u-1", ItemID: req.ItemID, MemberID: req.MemberID, Quantity: req.Quantity, TotalPrice: 350 * req.Quantity}, nil
		},
	}

	rec := serveAmenity(svc, http.MethodPost, "/api/v1/amenities/purchase", `{"item_id":"coffee","member_id":"m-1","quantity":2}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (%s)", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"total_price":700`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}

	rec = serveAmenity(svc, http.MethodPost, "/api/v1/amenities/purchase", `{"item_id":"coffee","member_id":"m-1","quantity":9}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestAmenityHandler_LowStock(t *testing.T) {
	var got int
	svc := &mockAmenityService{
		lowStockFunc: func(_ context.Context, threshold int) ([]*model.StockedItem, error) {
			got = threshold
			return []*model.StockedItem{{ID: "coffee", AvailableQuantity: 1}}, nil
		},
	}

	rec := serveAmenity(svc, http.MethodGet, "/api/v1/amenities/low-stock?threshold=3", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got != 3 {
		t.Errorf("threshold = %d, want 3", got)
	}

	rec = serveAmenity(svc, http.MethodGet, "/api/v1/amenities/low-stock?threshold=abc", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
