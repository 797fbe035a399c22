package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cowork/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func run(t *testing.T, srv *httptest.Server, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := newApp(&out, &errOut)
	app.ExitErrHandler = func(*cli.Context, error) {}
	full := append([]string{"coworkctl", "--reservations-url", srv.URL, "--as", "m-1"}, args...)
	err := app.Run(full)
	return out.String(), err
}

func TestReserveSendsRequestAndPrintsReservation(t *testing.T) {
	var got model.ReservationRequest
	var key, member string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/reservations", r.URL.Path)
		key = r.Header.Get("Idempotency-Key")
		member = r.Header.Get("X-Member-ID")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"data": model.Reservation{
			ID:           "r-1",
			ResourceType: got.ResourceType,
			ResourceID:   got.ResourceID,
			MemberID:     got.MemberID,
			StartTime:    got.StartTime,
			EndTime:      got.EndTime,
			TotalPrice:   2000,
			Status:       model.ReservationConfirmed,
		}})
	}))
	defer srv.Close()

	out, err := run(t, srv, "reservation", "create",
		"--type", "meeting_room", "--resource", "mr-1", "--member", "m-1",
		"--start", "2026-03-02T10:00:00Z", "--end", "2026-03-02T12:00:00Z",
		"--idempotency-key", "k-1")
	require.NoError(t, err)

	assert.Equal(t, "k-1", key)
	assert.Equal(t, "m-1", member)
	assert.Equal(t, "meeting_room", got.ResourceType)
	assert.True(t, got.StartTime.Equal(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)))

	var printed model.Reservation
	require.NoError(t, json.Unmarshal([]byte(out), &printed))
	assert.Equal(t, "r-1", printed.ID)
	assert.Equal(t, int64(2000), printed.TotalPrice)
}

func TestReserveRejectsNonRFC3339Time(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	_, err := run(t, srv, "reservation", "create",
		"--type", "workspace", "--resource", "ws-1", "--member", "m-1",
		"--start", "2026-03-02 10:00", "--end", "2026-03-02T12:00:00Z")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RFC3339")
	assert.False(t, called)
}

func TestConflictIsReturnedAsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"code":  "CONFLICT",
			"error": "resource already reserved",
		})
	}))
	defer srv.Close()

	_, err := run(t, srv, "reservation", "cancel", "r-9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "409")
	assert.Contains(t, err.Error(), "CONFLICT")
}

func TestReportPassesDays(t *testing.T) {
	var path, days string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		days = r.URL.Query().Get("days")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"hour":9,"reservations":4}]}`))
	}))
	defer srv.Close()

	out, err := run(t, srv, "report", "--days", "7", "peak-hours")
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/reports/peak-hours", path)
	assert.Equal(t, "7", days)
	assert.Contains(t, out, `"hour": 9`)
}

func TestMissingArgument(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := run(t, srv, "invoice", "pay")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing <id>")
}
