package rest_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentride/internal/app/policies"
	"rentride/internal/domain/booking"
	"rentride/internal/domain/shared/daterange"
	"rentride/internal/infra/gateway/rest"
)

func newClient(t *testing.T, handler http.HandlerFunc) *rest.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return rest.NewClient(srv.URL+"/api/", "secret", time.Second, nil)
}

func TestFetchBookings(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/bookings", r.URL.Path)
		assert.Equal(t, "owner", r.URL.Query().Get("scope"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"items":[
			{"id":"b-1","assetId":"car-7","bookingStatus":"Active","paymentStatus":"Full",
			 "startDate":"2024-02-01","endDate":"2024-02-05","dailyPrice":"1000",
			 "addOns":[],"amountPaid":"4000","amountDue":"0"}
		]}`)
	})

	records, err := client.FetchBookings(context.Background(), policies.ScopeOwner)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, booking.ID("b-1"), records[0].ID)
	assert.Equal(t, daterange.Date(2024, time.February, 5), records[0].EndDate)
}

func TestSaveBookingEditSendsOnlyChangedFields(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/bookings/b-1", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"startDate":"2024-02-04","endDate":"2024-02-06"}`, string(raw))
		_, _ = io.WriteString(w, `{"id":"b-1","assetId":"car-7","bookingStatus":"Confirmed","paymentStatus":"Partial",
			"startDate":"2024-02-04","endDate":"2024-02-06","dailyPrice":"1000","amountPaid":"1000","amountDue":"1000","version":4}`)
	})

	start, end := daterange.Date(2024, time.February, 4), daterange.Date(2024, time.February, 6)
	saved, err := client.SaveBookingEdit(context.Background(), "b-1", policies.Edit{StartDate: &start, EndDate: &end})
	require.NoError(t, err)
	assert.Equal(t, int64(4), saved.Version)
	assert.Equal(t, booking.PaymentPartial, saved.PaymentStatus)
}

func TestServerRejectionIsTransportError(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "dates overlap booking b-9", http.StatusConflict)
	})

	start := daterange.Date(2024, time.February, 4)
	_, err := client.SaveBookingEdit(context.Background(), "b-1", policies.Edit{StartDate: &start})
	require.Error(t, err)
	assert.ErrorIs(t, err, policies.ErrTransport)

	var te *policies.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusConflict, te.StatusCode)
	assert.Contains(t, err.Error(), "dates overlap booking b-9")
}

func TestCancelBooking(t *testing.T) {
	called := false
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/bookings/b-1/cancel", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})
	require.NoError(t, client.CancelBooking(context.Background(), "b-1"))
	assert.True(t, called)
}

func TestPayments(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/payments":
			var body map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "b-1", body["bookingId"])
			assert.EqualValues(t, 125050, body["amountMinor"])
			assert.Equal(t, "https://app.example/return", body["returnUrl"])
			_, _ = io.WriteString(w, `{"paymentUrl":"https://pay.example/c/1","reference":"ref-1"}`)
		case "/api/payments/ref-1/verify":
			_, _ = io.WriteString(w, `{"reference":"ref-1","bookingId":"b-1","status":"Full"}`)
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	init, err := client.InitiatePayment(ctx, "b-1", 125050, "https://app.example/return")
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/c/1", init.PaymentURL)

	v, err := client.VerifyPayment(ctx, "ref-1")
	require.NoError(t, err)
	assert.Equal(t, booking.PaymentFull, v.Status)
	assert.Equal(t, booking.ID("b-1"), v.BookingID)

	_, err = client.VerifyPayment(ctx, "missing")
	assert.ErrorIs(t, err, policies.ErrTransport)
}

func TestMalformedBodies(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/bookings" {
			_, _ = io.WriteString(w, `{"items":[{"id":"b-1","startDate":"soon","endDate":"2024-02-01"}]}`)
			return
		}
		_, _ = io.WriteString(w, `{not json`)
	})
	ctx := context.Background()

	_, err := client.FetchBookings(ctx, policies.ScopeRenter)
	assert.ErrorIs(t, err, policies.ErrTransport)
	assert.ErrorIs(t, err, daterange.ErrInvalidDate)

	_, err = client.VerifyPayment(ctx, "ref")
	assert.ErrorIs(t, err, policies.ErrTransport)
}

func TestUnconfiguredClient(t *testing.T) {
	_, err := (&rest.Client{}).FetchBookings(context.Background(), policies.ScopeAll)
	assert.ErrorIs(t, err, rest.ErrBaseURLRequired)
	assert.ErrorIs(t, err, policies.ErrTransport)
}
