package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	apperrors "github.com/saddiabu4/telegram-market/internal/errors"
	"github.com/saddiabu4/telegram-market/pkg/config"
)

// Gateway is the interface to the external product backend.
// All mutating calls require the current bearer token. Callers must re-fetch
// the full list after any successful mutation; no incremental merge is done.
type Gateway interface {
	// List retrieves the full product set.
	// Fails with ErrBackendUnavailable when the backend cannot be reached.
	List(ctx context.Context) ([]Product, error)

	// Create adds a new product via a multipart request.
	// Fails with ErrValidation, ErrUnauthorized or ErrBackendUnavailable.
	Create(ctx context.Context, token string, form ProductForm) (*Product, error)

	// Update replaces an existing product's fields.
	// Fails with the same kinds as Create, plus ErrProductNotFound.
	Update(ctx context.Context, token, id string, form ProductForm) (*Product, error)

	// Delete removes a product.
	// Fails with ErrUnauthorized, ErrProductNotFound or ErrBackendUnavailable.
	Delete(ctx context.Context, token, id string) error
}

// HTTPGateway implements Gateway over the backend's REST surface.
// Requests run through an instrumented client wrapped in a circuit breaker:
// unavailability trips the breaker, rejected requests (4xx) do not.
type HTTPGateway struct {
	apiURL  string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
	logger  *slog.Logger
}

// NewHTTPGateway creates a gateway for the backend at apiURL.
func NewHTTPGateway(apiURL string, timeout time.Duration, cbCfg config.CircuitBreakerConfig, logger *slog.Logger) *HTTPGateway {
	st := gobreaker.Settings{
		Name:        "product-backend-cb",
		MaxRequests: 3,
		Timeout:     cbCfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > cbCfg.ConsecutiveFailures ||
				(counts.TotalSuccesses+counts.TotalFailures > cbCfg.ConsecutiveFailures &&
					float64(counts.TotalFailures)/float64(counts.TotalSuccesses+counts.TotalFailures)*100 > float64(cbCfg.ErrorRatePercent))
		},
		IsSuccessful: func(err error) bool {
			// Only unavailability counts as a system failure. Auth and
			// validation rejections are the backend working as intended.
			return err == nil || !errors.Is(err, apperrors.ErrBackendUnavailable)
		},
	}
	return &HTTPGateway{
		apiURL: strings.TrimSuffix(apiURL, "/"),
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: gobreaker.NewCircuitBreaker[*http.Response](st),
		logger:  logger.With("component", "catalog_gateway"),
	}
}

// List retrieves the full product set from GET /products.
func (g *HTTPGateway) List(ctx context.Context) ([]Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.apiURL+"/products", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build list request: %w", err)
	}
	resp, err := g.do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := responseError(resp); err != nil {
		return nil, err
	}
	var products []Product
	if err := json.NewDecoder(resp.Body).Decode(&products); err != nil {
		return nil, fmt.Errorf("failed to decode product list: %w", apperrors.ErrBackendUnavailable)
	}
	return products, nil
}

// Create adds a new product via POST /products.
func (g *HTTPGateway) Create(ctx context.Context, token string, form ProductForm) (*Product, error) {
	return g.submitForm(ctx, http.MethodPost, g.apiURL+"/products", token, form)
}

// Update replaces a product's fields via PUT /products/:id.
func (g *HTTPGateway) Update(ctx context.Context, token, id string, form ProductForm) (*Product, error) {
	return g.submitForm(ctx, http.MethodPut, g.apiURL+"/products/"+id, token, form)
}

// Delete removes a product via DELETE /products/:id.
func (g *HTTPGateway) Delete(ctx context.Context, token, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, g.apiURL+"/products/"+id, nil)
	if err != nil {
		return fmt.Errorf("failed to build delete request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := g.do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	return responseError(resp)
}

// submitForm encodes the product form as multipart and sends it with the bearer token.
func (g *HTTPGateway) submitForm(ctx context.Context, method, url, token string, form ProductForm) (*Product, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("name", form.Name)
	_ = mw.WriteField("description", form.Description)
	_ = mw.WriteField("price", strconv.FormatInt(form.Price, 10))
	if form.Image != nil {
		part, err := mw.CreateFormFile("image", form.ImageName)
		if err != nil {
			return nil, fmt.Errorf("failed to add image part: %w", err)
		}
		if _, err := io.Copy(part, form.Image); err != nil {
			return nil, fmt.Errorf("failed to copy image data: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := responseError(resp); err != nil {
		return nil, err
	}
	var product Product
	if err := json.NewDecoder(resp.Body).Decode(&product); err != nil {
		return nil, fmt.Errorf("failed to decode product: %w", apperrors.ErrBackendUnavailable)
	}
	return &product, nil
}

// do executes the request inside the circuit breaker. Transport failures and
// 5xx responses surface as ErrBackendUnavailable; everything else passes through.
func (g *HTTPGateway) do(req *http.Request) (*http.Response, error) {
	resp, err := g.breaker.Execute(func() (*http.Response, error) {
		resp, err := g.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request to %s failed: %v: %w", req.URL.Path, err, apperrors.ErrBackendUnavailable)
		}
		if resp.StatusCode >= 500 {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("backend returned %d for %s: %w", resp.StatusCode, req.URL.Path, apperrors.ErrBackendUnavailable)
		}
		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			g.logger.Warn("Circuit breaker rejected backend request", "path", req.URL.Path)
			return nil, fmt.Errorf("backend circuit open: %w", apperrors.ErrBackendUnavailable)
		}
		return nil, err
	}
	return resp, nil
}

// responseError maps a non-2xx backend response to the error taxonomy,
// carrying the server-provided message when one is present.
func responseError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	message := serverMessage(resp.Body)
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%s: %w", message, apperrors.ErrUnauthorized)
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", message, apperrors.ErrProductNotFound)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return fmt.Errorf("%s: %w", message, apperrors.ErrValidation)
	default:
		return fmt.Errorf("backend returned %d: %w", resp.StatusCode, apperrors.ErrBackendUnavailable)
	}
}

// serverMessage extracts the backend's "message" field, falling back to a generic text.
func serverMessage(body io.Reader) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return "request rejected by backend"
}
