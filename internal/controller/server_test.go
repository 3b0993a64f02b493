package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tunewell/studio-server/internal/service"
	"github.com/tunewell/studio-server/internal/storage/inmem"
)

type fakeQueue struct {
	enqueued []int64
}

func (f *fakeQueue) EnqueueProcessBooking(_ context.Context, bookingID int64) error {
	f.enqueued = append(f.enqueued, bookingID)
	return nil
}

type testAPI struct {
	server *Server
	db     *inmem.DB
	queue  *fakeQueue
}

func newTestAPI() *testAPI {
	db := inmem.Open()
	queue := &fakeQueue{}
	logger := zap.NewNop()

	bookingSvc := service.NewBookingService(inmem.NewSlotStore(db), inmem.NewBookingStore(db), queue, logger)
	rosterSvc := service.NewRosterService(inmem.NewTeacherStore(db), inmem.NewStudentStore(db), logger)

	return &testAPI{
		server: NewServer(":0", bookingSvc, rosterSvc, logger),
		db:     db,
		queue:  queue,
	}
}

func (a *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.server.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthz(t *testing.T) {
	api := newTestAPI()
	rec := api.do(t, http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]bool](t, rec)
	assert.True(t, body["ok"])
}

func TestSlotLifecycle(t *testing.T) {
	api := newTestAPI()

	rec := api.do(t, http.MethodPost, "/api/admin/slots", map[string]any{
		"slot_date": "2024-06-03",
		"slot_time": "09:00",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	created := decode[map[string]any](t, rec)
	slotID := int64(created["id"].(float64))

	rec = api.do(t, http.MethodGet, "/api/admin/slots?date=2024-06-03", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	slots := decode[[]map[string]any](t, rec)
	require.Len(t, slots, 1)
	assert.Equal(t, "09:00", slots[0]["slot_time"])
	assert.Equal(t, float64(30), slots[0]["duration_minutes"])
	assert.Equal(t, true, slots[0]["is_available"])

	rec = api.do(t, http.MethodDelete, fmt.Sprintf("/api/admin/slots/%d", slotID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/admin/slots?date=2024-06-03", nil)
	assert.Len(t, decode[[]map[string]any](t, rec), 0)
}

func TestCreateSlotValidation(t *testing.T) {
	api := newTestAPI()

	rec := api.do(t, http.MethodPost, "/api/admin/slots", map[string]any{"slot_date": "2024-06-03"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/admin/slots", map[string]any{
		"slot_date": "03.06.2024",
		"slot_time": "09:00",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/admin/slots", map[string]any{
		"slot_date": "2024-06-03",
		"slot_time": "9am",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBookingEndToEnd(t *testing.T) {
	api := newTestAPI()

	rec := api.do(t, http.MethodPost, "/api/admin/slots", map[string]any{
		"slot_date": "2024-06-03",
		"slot_time": "09:00",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	slotID := int64(decode[map[string]any](t, rec)["id"].(float64))

	rec = api.do(t, http.MethodPost, "/api/admin/bookings", map[string]any{
		"slot_id":     slotID,
		"guest_name":  "Alice",
		"guest_email": "alice@example.com",
		"lesson_type": "Guitar",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	created := decode[map[string]any](t, rec)
	assert.Equal(t, true, created["ok"])
	bookingID := int64(created["bookingId"].(float64))

	// The processing job was dispatched for exactly this booking.
	assert.Equal(t, []int64{bookingID}, api.queue.enqueued)

	rec = api.do(t, http.MethodGet, "/api/admin/bookings?date=2024-06-03", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rows := decode[[]map[string]any](t, rec)
	require.Len(t, rows, 1)
	assert.Equal(t, "09:00", rows[0]["time"])
	assert.Equal(t, "Guitar", rows[0]["lesson_type"])
	assert.Equal(t, false, rows[0]["is_available"])
	assert.Equal(t, "Alice", rows[0]["guest_name"])
}

func TestDoubleBookingConflicts(t *testing.T) {
	api := newTestAPI()

	rec := api.do(t, http.MethodPost, "/api/admin/slots", map[string]any{
		"slot_date": "2024-06-03",
		"slot_time": "09:00",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	slotID := int64(decode[map[string]any](t, rec)["id"].(float64))

	rec = api.do(t, http.MethodPost, "/api/admin/bookings", map[string]any{
		"slot_id":     slotID,
		"guest_email": "first@example.com",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/admin/bookings", map[string]any{
		"slot_id":     slotID,
		"guest_email": "second@example.com",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestBookingMissingSlot(t *testing.T) {
	api := newTestAPI()

	rec := api.do(t, http.MethodPost, "/api/admin/bookings", map[string]any{
		"slot_id":     999,
		"guest_email": "alice@example.com",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelBooking(t *testing.T) {
	api := newTestAPI()

	rec := api.do(t, http.MethodPost, "/api/admin/slots", map[string]any{
		"slot_date": "2024-06-03",
		"slot_time": "09:00",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	slotID := int64(decode[map[string]any](t, rec)["id"].(float64))

	rec = api.do(t, http.MethodPost, "/api/admin/bookings", map[string]any{
		"slot_id":     slotID,
		"guest_email": "alice@example.com",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	bookingID := int64(decode[map[string]any](t, rec)["bookingId"].(float64))

	rec = api.do(t, http.MethodDelete, fmt.Sprintf("/api/admin/bookings/%d", bookingID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.True(t, api.db.Slot(slotID).IsAvailable)

	rec = api.do(t, http.MethodDelete, fmt.Sprintf("/api/admin/bookings/%d", bookingID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRoster(t *testing.T) {
	api := newTestAPI()

	rec := api.do(t, http.MethodPost, "/api/admin/teachers", map[string]any{
		"name":       "Ben",
		"instrument": "Piano",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/admin/students", map[string]any{
		"name":  "Alice",
		"email": "alice@example.com",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// Students need a valid email.
	rec = api.do(t, http.MethodPost, "/api/admin/students", map[string]any{
		"name":  "Bob",
		"email": "not-an-email",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/admin/teachers", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	teachers := decode[[]map[string]any](t, rec)
	require.Len(t, teachers, 1)
	assert.Equal(t, "Ben", teachers[0]["name"])

	rec = api.do(t, http.MethodGet, "/api/admin/students", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	students := decode[[]map[string]any](t, rec)
	require.Len(t, students, 1)
	assert.Equal(t, "alice@example.com", students[0]["email"])
}
