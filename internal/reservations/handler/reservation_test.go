package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apperrors "cowork/pkg/errors"
	"cowork/pkg/logger"
	"cowork/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type mockReservationService struct {
	reserveFunc     func(ctx context.Context, req *model.ReservationRequest) (*model.Reservation, error)
	cancelFunc      func(ctx context.Context, id string) (*model.Reservation, error)
	getByIDFunc     func(ctx context.Context, id string) (*model.Reservation, error)
	getByMemberFunc func(ctx context.Context, memberID string, limit int, offset int64) ([]*model.Reservation, int64, error)
	upcomingFunc    func(ctx context.Context, limit int) ([]*model.Reservation, error)
	searchFunc      func(ctx context.Context, search model.ReservationSearch, limit int, offset int64) ([]*model.Reservation, int64, error)
}

func (m *mockReservationService) Reserve(ctx context.Context, req *model.ReservationRequest) (*model.Reservation, error) {
	return m.reserveFunc(ctx, req)
}

func (m *mockReservationService) Cancel(ctx context.Context, id string) (*model.Reservation, error) {
	return m.cancelFunc(ctx, id)
}

func (m *mockReservationService) GetByID(ctx context.Context, id string) (*model.Reservation, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockReservationService) GetByMember(ctx context.Context, memberID string, limit int, offset int64) ([]*model.Reservation, int64, error) {
	return m.getByMemberFunc(ctx, memberID, limit, offset)
}

func (m *mockReservationService) Upcoming(ctx context.Context, limit int) ([]*model.Reservation, error) {
	return m.upcomingFunc(ctx, limit)
}

func (m *mockReservationService) Search(ctx context.Context, search model.ReservationSearch, limit int, offset int64) ([]*model.Reservation, int64, error) {
	return m.searchFunc(ctx, search, limit, offset)
}

func newRouter(svc *mockReservationService) *httprouter.Router {
	router := httprouter.New()
	NewReservationHandler(svc, logger.Discard()).RegisterRoutes(router)
	return router
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	return body
}

func TestReservationHandler_Reserve(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		body       string
		serviceErr error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "created",
			body:       `{"resource_type":"workspace","resource_id":"desk-1","member_id":"m-1","start_time":"2026-03-02T09:00:00Z","end_time":"2026-03-02T10:00:00Z"}`,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "malformed body",
			body:       `{"resource_type":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   apperrors.CodeInvalidInput,
		},
		{
			name:       "unknown field",
			body:       `{"resource":"desk-1"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   apperrors.CodeInvalidInput,
		},
		{
			name:       "overlap",
			body:       `{"resource_type":"workspace","resource_id":"desk-1","member_id":"m-1","start_time":"2026-03-02T09:00:00Z","end_time":"2026-03-02T10:00:00Z"}`,
			serviceErr: apperrors.Conflict("desk-1 is already reserved"),
			wantStatus: http.StatusConflict,
			wantCode:   apperrors.CodeConflict,
		},
		{
			name:       "busy",
			body:       `{"resource_type":"workspace","resource_id":"desk-1","member_id":"m-1","start_time":"2026-03-02T09:00:00Z","end_time":"2026-03-02T10:00:00Z"}`,
			serviceErr: apperrors.Busy("busy"),
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   apperrors.CodeBusy,
		},
		{
			name:       "invalid interval",
			body:       `{"resource_type":"workspace","resource_id":"desk-1","member_id":"m-1","start_time":"2026-03-02T10:00:00Z","end_time":"2026-03-02T09:00:00Z"}`,
			serviceErr: apperrors.InvalidInterval("start_time must be before end_time"),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   apperrors.CodeInvalidInterval,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockReservationService{
				reserveFunc: func(_ context.Context, req *model.ReservationRequest) (*model.Reservation, error) {
					if tt.serviceErr != nil {
						return nil, tt.serviceErr
					}
					if !req.StartTime.Equal(start) {
						t.Errorf("start_time = %v, want %v", req.StartTime, start)
					}
					return &model.Reservation{ID: "r-1", ResourceID: req.ResourceID, StartTime: req.StartTime, EndTime: req.EndTime}, nil
				},
			}

			req := httptest.NewRequest(http.MethodPost, "/api/v1/reservations", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			newRouter(svc).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			body := decodeBody(t, rec)
			if tt.wantCode != "" && body["code"] != tt.wantCode {
				t.Errorf("code = %v, want %s", body["code"], tt.wantCode)
			}
			if tt.wantCode == "" {
				data := body["data"].(map[string]any)
				if data["id"] != "r-1" {
					t.Errorf("id = %v, want r-1", data["id"])
				}
			}
		})
	}
}

func TestReservationHandler_ConflictDetails(t *testing.T) {
	svc := &mockReservationService{
		reserveFunc: func(context.Context, *model.ReservationRequest) (*model.Reservation, error) {
			return nil, apperrors.Conflict("overlap").WithDetails(map[string]any{
				"conflicts": []model.ReservationConflict{{ReservationID: "r-0"}},
			})
		},
	}

	body := `{"resource_type":"workspace","resource_id":"desk-1","member_id":"m-1","start_time":"2026-03-02T09:00:00Z","end_time":"2026-03-02T10:00:00Z"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reservations", strings.NewReader(body))
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, req)

	details := decodeBody(t, rec)["details"].(map[string]any)
	conflicts := details["conflicts"].([]any)
	if len(conflicts) != 1 || conflicts[0].(map[string]any)["reservation_id"] != "r-0" {
		t.Errorf("unexpected conflicts: %v", conflicts)
	}
}

func TestReservationHandler_GetByIDAndCancel(t *testing.T) {
	svc := &mockReservationService{
		getByIDFunc: func(_ context.Context, id string) (*model.Reservation, error) {
			if id != "r-1" {
				return nil, apperrors.NotFoundWithID("Reservation", id)
			}
			return &model.Reservation{ID: id, Status: model.ReservationConfirmed}, nil
		},
		cancelFunc: func(_ context.Context, id string) (*model.Reservation, error) {
			return &model.Reservation{ID: id, Status: model.ReservationCancelled}, nil
		},
	}
	router := newRouter(svc)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantState  string
	}{
		{"get existing", http.MethodGet, "/api/v1/reservations/id/r-1", http.StatusOK, model.ReservationConfirmed},
		{"get missing", http.MethodGet, "/api/v1/reservations/id/r-9", http.StatusNotFound, ""},
		{"cancel", http.MethodPost, "/api/v1/reservations/id/r-1/cancel", http.StatusOK, model.ReservationCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantState != "" {
				data := decodeBody(t, rec)["data"].(map[string]any)
				if data["status"] != tt.wantState {
					t.Errorf("status = %v, want %s", data["status"], tt.wantState)
				}
			}
		})
	}
}

func TestReservationHandler_GetByMember(t *testing.T) {
	var gotLimit int
	var gotOffset int64
	svc := &mockReservationService{
		getByMemberFunc: func(_ context.Context, memberID string, limit int, offset int64) ([]*model.Reservation, int64, error) {
			gotLimit, gotOffset = limit, offset
			return []*model.Reservation{{ID: "r-1", MemberID: memberID}}, 7, nil
		},
	}

	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/reservations/member/m-1?limit=5&offset=2", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotLimit != 5 || gotOffset != 2 {
		t.Errorf("limit/offset = %d/%d, want 5/2", gotLimit, gotOffset)
	}
	if total := decodeBody(t, rec)["total_count"]; total != float64(7) {
		t.Errorf("total_count = %v, want 7", total)
	}

	rec = httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/reservations/member/m-1?limit=abc", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestReservationHandler_Upcoming(t *testing.T) {
	svc := &mockReservationService{
		upcomingFunc: func(_ context.Context, limit int) ([]*model.Reservation, error) {
			if limit != 3 {
				t.Errorf("limit = %d, want 3", limit)
			}
			return []*model.Reservation{{ID: "r-1"}}, nil
		},
	}

	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/reservations/upcoming?limit=3", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestReservationHandler_Search(t *testing.T) {
	var got model.ReservationSearch
	svc := &mockReservationService{
		searchFunc: func(_ context.Context, search model.ReservationSearch, _ int, _ int64) ([]*model.Reservation, int64, error) {
			got = search
			return []*model.Reservation{}, 0, nil
		},
	}
	router := newRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/api/v1/reservations/search?resource_type=workspace&resource_id=desk-1&start_time=2026-03-02T08:00:00Z&end_time=2026-03-02T12:00:00Z", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got.ResourceID != "desk-1" || got.From.Hour() != 8 || got.To.Hour() != 12 {
		t.Errorf("unexpected search: %+v", got)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/api/v1/reservations/search?resource_type=workspace&resource_id=desk-1&start_time=yesterday", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
