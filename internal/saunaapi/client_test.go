package saunaapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AWS-JaeminJung/sauna-app/internal/models"
)

func newTestServer(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/api/v1", 5*time.Second), srv
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestGetAvailability(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/bookings/availability", r.URL.Path)
		assert.Equal(t, "sauna-1", r.URL.Query().Get("sauna_id"))
		assert.Equal(t, "2025-03-20", r.URL.Query().Get("date"))
		writeJSON(w, http.StatusOK, []models.TimeSlot{{Time: "10:00", Available: true}, {Time: "11:00"}})
	})

	got, err := c.GetAvailability(context.Background(), "sauna-1", "2025-03-20")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].Available)
	assert.False(t, got[1].Available)
}

func TestCreateBooking_HeadersAndBody(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		assert.Equal(t, "idem-1", r.Header.Get("Idempotency-Key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req models.BookingCreate
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "10:00", req.StartTime)

		writeJSON(w, http.StatusOK, models.Booking{ID: "b-1", TotalPrice: 40000, Status: "confirmed"})
	})

	b, err := c.WithTokens(StaticToken("tok-1")).CreateBooking(context.Background(), models.BookingCreate{
		SaunaID:   "sauna-1",
		StartTime: "10:00",
		EndTime:   "12:00",
	}, "idem-1")
	require.NoError(t, err)
	assert.Equal(t, "b-1", b.ID)
	assert.InDelta(t, 40000, b.TotalPrice, 1e-9)
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		detail   string
		sentinel error
	}{
		{"detail string", http.StatusConflict, `{"detail":"Time slot conflicts with existing booking"}`, "Time slot conflicts with existing booking", ErrConflict},
		{"validation list", http.StatusUnprocessableEntity, `{"detail":[{"msg":"field required"},{"msg":"bad email"}]}`, "field required; bad email", ErrBadRequest},
		{"no detail", http.StatusNotFound, `{}`, "HTTP 404", ErrNotFound},
		{"not json", http.StatusBadGateway, `<html>oops</html>`, "HTTP 502", nil},
		{"empty detail", http.StatusUnauthorized, `{"detail":""}`, "HTTP 401", ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := c.GetBooking(context.Background(), "b-1")
			require.Error(t, err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.detail, Message(err))
			if tt.sentinel != nil {
				assert.ErrorIs(t, err, tt.sentinel)
			}
		})
	}
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "", Message(nil))
	assert.Equal(t, "boom", Message(errors.New("boom")))
	assert.Equal(t, "The booking service did not respond in time", Message(context.DeadlineExceeded))
}

func TestAmenitiesDecodedAtBoundary(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"id":"s1","name":"Cedar","capacity":4,"hourly_rate":20000,"amenities":"[\"Shower\", \"Towels\"]"}]`)
	})

	got, err := c.ListSaunas(context.Background(), SaunaFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.Amenities{"Shower", "Towels"}, got[0].Amenities)
}

func TestListSaunas_FilterAndCache(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "dry", r.URL.Query().Get("sauna_type"))
		assert.Equal(t, "10000", r.URL.Query().Get("min_price"))
		assert.Empty(t, r.URL.Query().Get("max_price"))
		writeJSON(w, http.StatusOK, []models.Sauna{{ID: "s1", Name: "Cedar", Amenities: models.Amenities{"Shower"}}})
	})

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	c.UseRedisCache(rdb, time.Minute)

	filter := SaunaFilter{SaunaType: "dry", MinPrice: 10000}
	for i := 0; i < 3; i++ {
		got, err := c.ListSaunas(context.Background(), filter)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, models.Amenities{"Shower"}, got[0].Amenities)
	}
	assert.Equal(t, int32(1), calls.Load())

	mr.FastForward(2 * time.Minute)
	_, err := c.ListSaunas(context.Background(), filter)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestAvailabilityNotCached(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusOK, []models.TimeSlot{})
	})

	mr := miniredis.RunT(t)
	c.UseRedisCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)

	for i := 0; i < 2; i++ {
		got, err := c.GetAvailability(context.Background(), "s1", "2025-03-20")
		require.NoError(t, err)
		assert.Empty(t, got)
	}
	assert.Equal(t, int32(2), calls.Load())
}

func TestCreateReview_InvalidatesSummary(t *testing.T) {
	var summaryCalls atomic.Int32
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/reviews/summary":
			summaryCalls.Add(1)
			writeJSON(w, http.StatusOK, models.ReviewSummary{AverageRating: 4.5, ReviewCount: 2})
		case "/api/v1/reviews":
			writeJSON(w, http.StatusOK, models.Review{ID: "r1", Rating: 5})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	mr := miniredis.RunT(t)
	c.UseRedisCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Hour)
	ctx := context.Background()

	_, err := c.ReviewSummary(ctx, "s1")
	require.NoError(t, err)
	_, err = c.ReviewSummary(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, int32(1), summaryCalls.Load())

	_, err = c.CreateReview(ctx, models.ReviewCreate{SaunaID: "s1", BookingID: "b1", Rating: 5})
	require.NoError(t, err)

	_, err = c.ReviewSummary(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), summaryCalls.Load())

	_, err = c.CreateReview(ctx, models.ReviewCreate{SaunaID: "s1", Rating: 6})
	require.ErrorIs(t, err, ErrInvalidRating)
}

func TestAuthAndAdminEndpoints(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/login":
			var body models.LoginRequest
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body.Password != "secret" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Incorrect email or password"})
				return
			}
			writeJSON(w, http.StatusOK, models.TokenResponse{AccessToken: "tok", TokenType: "bearer"})
		case "/api/v1/auth/me":
			if r.Header.Get("Authorization") != "Bearer tok" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			writeJSON(w, http.StatusOK, models.User{ID: "u1", IsAdmin: true})
		case "/api/v1/admin/revenue":
			assert.Equal(t, "90", r.URL.Query().Get("period"))
			writeJSON(w, http.StatusOK, []models.RevenueByDate{{Date: "2025-03-01", Revenue: 1}})
		case "/api/v1/admin/recent-bookings":
			assert.Equal(t, "50", r.URL.Query().Get("limit"))
			writeJSON(w, http.StatusOK, []models.RecentBooking{})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	_, err := c.Login(ctx, "a@b.c", "wrong")
	assert.Equal(t, "Incorrect email or password", Message(err))

	tok, err := c.Login(ctx, "a@b.c", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok", tok.AccessToken)

	u, err := c.Me(ctx, tok.AccessToken)
	require.NoError(t, err)
	assert.True(t, u.IsAdmin)

	_, err = c.Me(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthorized)

	rev, err := c.RevenueByDate(ctx, 365)
	require.NoError(t, err)
	assert.Len(t, rev, 1)

	_, err = c.RecentBookings(ctx, 100)
	require.NoError(t, err)
}

func TestHealthCheck(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})
	require.NoError(t, c.HealthCheck(context.Background()))
}

func TestRateLimitHonoursContext(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []models.TimeSlot{})
	})
	c.UseRateLimit(0.001, 1)

	_, err := c.GetAvailability(context.Background(), "s1", "2025-03-20")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.GetAvailability(ctx, "s1", "2025-03-20")
	require.Error(t, err)
}
