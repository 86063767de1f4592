package catalog

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	apperrors "github.com/saddiabu4/telegram-market/internal/errors"
	"github.com/saddiabu4/telegram-market/pkg/config"
	"github.com/saddiabu4/telegram-market/pkg/telemetry"
)

func relaxedBreaker() config.CircuitBreakerConfig {
	// Thresholds high enough that tests exercising error mapping never trip it.
	return config.CircuitBreakerConfig{
		ConsecutiveFailures: 1000,
		ErrorRatePercent:    100,
		OpenTimeout:         time.Minute,
	}
}

func newTestGateway(t *testing.T, backend *httptest.Server, cbCfg config.CircuitBreakerConfig) *HTTPGateway {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return NewHTTPGateway(backend.URL, 2*time.Second, cbCfg, logger)
}

func Test_Gateway_List_Success(t *testing.T) {
	// given
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/products", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"_id": "p1", "name": "Shim", "price": 2000, "image": "shim.jpg", "createdAt": "2026-08-01T12:00:00Z"},
			{"_id": "p2", "name": "Futbolka", "price": 1000, "createdAt": "2026-08-02T12:00:00Z"}
		]`))
	}))
	defer backend.Close()
	gw := newTestGateway(t, backend, relaxedBreaker())
	// when
	products, err := gw.List(context.Background())
	// then
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "p1", products[0].ID)
	assert.Equal(t, "Shim", products[0].Name)
	assert.Equal(t, int64(2000), products[0].Price)
	assert.Equal(t, "shim.jpg", products[0].Image)
	assert.Equal(t, time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC), products[0].CreatedAt)
}

func Test_Gateway_List_BackendDown(t *testing.T) {
	// given: a server that is already closed
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	gw := newTestGateway(t, backend, relaxedBreaker())
	backend.Close()
	// when
	_, err := gw.List(context.Background())
	// then
	assert.ErrorIs(t, err, apperrors.ErrBackendUnavailable)
}

func Test_Gateway_List_ServerError(t *testing.T) {
	// given
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer backend.Close()
	gw := newTestGateway(t, backend, relaxedBreaker())
	// when
	_, err := gw.List(context.Background())
	// then
	assert.ErrorIs(t, err, apperrors.ErrBackendUnavailable)
}

func Test_Gateway_List_MalformedBody(t *testing.T) {
	// given
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not": "a list"`))
	}))
	defer backend.Close()
	gw := newTestGateway(t, backend, relaxedBreaker())
	// when
	_, err := gw.List(context.Background())
	// then
	assert.ErrorIs(t, err, apperrors.ErrBackendUnavailable)
}

func Test_Gateway_Create_SendsMultipartWithToken(t *testing.T) {
	// given
	var gotAuth string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/products", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "Kurtka", r.FormValue("name"))
		assert.Equal(t, "qishki", r.FormValue("description"))
		assert.Equal(t, "45000", r.FormValue("price"))
		file, header, err := r.FormFile("image")
		require.NoError(t, err)
		defer func() { _ = file.Close() }()
		assert.Equal(t, "kurtka.jpg", header.Filename)
		data, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, "fake image bytes", string(data))

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"_id": "p9", "name": "Kurtka", "price": 45000, "createdAt": "2026-08-20T09:00:00Z"}`))
	}))
	defer backend.Close()
	gw := newTestGateway(t, backend, relaxedBreaker())
	// when
	product, err := gw.Create(context.Background(), "secret-token", ProductForm{
		Name:        "Kurtka",
		Description: "qishki",
		Price:       45000,
		ImageName:   "kurtka.jpg",
		Image:       strings.NewReader("fake image bytes"),
	})
	// then
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret-token", gotAuth)
	assert.Equal(t, "p9", product.ID)
	assert.Equal(t, int64(45000), product.Price)
}

func Test_Gateway_Create_WithoutImageOmitsFilePart(t *testing.T) {
	// given
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, _, err := r.FormFile("image")
		assert.Error(t, err)
		_, _ = w.Write([]byte(`{"_id": "p9", "name": "Kurtka", "price": 45000}`))
	}))
	defer backend.Close()
	gw := newTestGateway(t, backend, relaxedBreaker())
	// when
	_, err := gw.Create(context.Background(), "t", ProductForm{Name: "Kurtka", Price: 45000})
	// then
	require.NoError(t, err)
}

func Test_Gateway_ErrorMapping(t *testing.T) {
	testCases := []struct {
		name        string
		status      int
		body        string
		expectedErr error
		expectedMsg string
	}{
		{
			name:        "401 maps to unauthorized",
			status:      http.StatusUnauthorized,
			body:        `{"message": "token expired"}`,
			expectedErr: apperrors.ErrUnauthorized,
			expectedMsg: "token expired",
		},
		{
			name:        "403 maps to unauthorized",
			status:      http.StatusForbidden,
			body:        `{"message": "forbidden"}`,
			expectedErr: apperrors.ErrUnauthorized,
			expectedMsg: "forbidden",
		},
		{
			name:        "404 maps to not found",
			status:      http.StatusNotFound,
			body:        `{"message": "product not found"}`,
			expectedErr: apperrors.ErrProductNotFound,
			expectedMsg: "product not found",
		},
		{
			name:        "400 maps to validation with server message",
			status:      http.StatusBadRequest,
			body:        `{"message": "name is required"}`,
			expectedErr: apperrors.ErrValidation,
			expectedMsg: "name is required",
		},
		{
			name:        "422 maps to validation",
			status:      http.StatusUnprocessableEntity,
			body:        `{"message": "price must be positive"}`,
			expectedErr: apperrors.ErrValidation,
			expectedMsg: "price must be positive",
		},
		{
			name:        "missing message falls back to generic text",
			status:      http.StatusBadRequest,
			body:        `{}`,
			expectedErr: apperrors.ErrValidation,
			expectedMsg: "request rejected by backend",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer backend.Close()
			gw := newTestGateway(t, backend, relaxedBreaker())
			// when
			_, err := gw.Update(context.Background(), "t", "p1", ProductForm{Name: "X", Price: 1})
			// then
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.expectedErr)
			assert.Contains(t, err.Error(), tc.expectedMsg)
		})
	}
}

func Test_Gateway_Delete_Success(t *testing.T) {
	// given
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/products/p1", r.URL.Path)
		assert.Equal(t, "Bearer t", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer backend.Close()
	gw := newTestGateway(t, backend, relaxedBreaker())
	// when
	err := gw.Delete(context.Background(), "t", "p1")
	// then
	assert.NoError(t, err)
}

func Test_Gateway_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	// given: every backend call fails, breaker trips after two in a row
	var hits atomic.Int32
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer backend.Close()
	gw := newTestGateway(t, backend, config.CircuitBreakerConfig{
		ConsecutiveFailures: 1,
		ErrorRatePercent:    100,
		OpenTimeout:         time.Minute,
	})
	// when
	_, err1 := gw.List(context.Background())
	_, err2 := gw.List(context.Background())
	_, err3 := gw.List(context.Background())
	// then: the third call is rejected without touching the backend
	assert.ErrorIs(t, err1, apperrors.ErrBackendUnavailable)
	assert.ErrorIs(t, err2, apperrors.ErrBackendUnavailable)
	assert.ErrorIs(t, err3, apperrors.ErrBackendUnavailable)
	assert.Equal(t, int32(2), hits.Load())
}

func Test_Gateway_RejectionsDoNotTripBreaker(t *testing.T) {
	// given: the backend rejects every request as unauthorized
	var hits atomic.Int32
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message": "no token"}`))
	}))
	defer backend.Close()
	gw := newTestGateway(t, backend, config.CircuitBreakerConfig{
		ConsecutiveFailures: 1,
		ErrorRatePercent:    100,
		OpenTimeout:         time.Minute,
	})
	// when: more rejections than the failure threshold
	for range 5 {
		err := gw.Delete(context.Background(), "", "p1")
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	}
	// then: every request still reached the backend
	assert.Equal(t, int32(5), hits.Load())
}

func Test_Gateway_List_PropagatesTraceContext(t *testing.T) {
	// given: a registered tracer provider and a backend capturing headers
	collector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer collector.Close()
	prevProvider := otel.GetTracerProvider()
	prevPropagator := otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevProvider)
		otel.SetTextMapPropagator(prevPropagator)
	})
	tp, err := telemetry.NewTracerProvider(context.Background(), "storefront", config.TelemetryConfig{
		Traces: config.TracesConfig{
			OtlpHttp: config.OtlpHttpConfig{
				Endpoint: strings.TrimPrefix(collector.URL, "http://"),
				Insecure: true,
				Timeout:  time.Second,
			},
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	var traceparent string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceparent = r.Header.Get("traceparent")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer backend.Close()
	gw := newTestGateway(t, backend, relaxedBreaker())
	// when
	_, err = gw.List(context.Background())
	// then: the outgoing request carries W3C trace context
	require.NoError(t, err)
	assert.NotEmpty(t, traceparent)
}
