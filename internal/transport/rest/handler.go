// Package rest provides the storefront HTTP API.
package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/saddiabu4/telegram-market/internal/cart"
	"github.com/saddiabu4/telegram-market/internal/catalog"
	apperrors "github.com/saddiabu4/telegram-market/internal/errors"
	"github.com/saddiabu4/telegram-market/internal/favorites"
	"github.com/saddiabu4/telegram-market/internal/order"
	"github.com/saddiabu4/telegram-market/internal/session"
	"github.com/saddiabu4/telegram-market/pkg/web"
)

const maxProductFormBytes = 32 << 20

type Handler struct {
	catalog    catalog.Catalog
	cart       *cart.Store
	favorites  *favorites.Set
	gate       *session.Gate
	submitter  order.Submitter
	uploadsURL string
	validate   *validator.Validate
	logger     *slog.Logger
}

// NewHandler creates a new instance of the storefront API with the provided services.
func NewHandler(
	catalogSvc catalog.Catalog,
	cartStore *cart.Store,
	favoriteSet *favorites.Set,
	gate *session.Gate,
	submitter order.Submitter,
	uploadsURL string,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		catalog:    catalogSvc,
		cart:       cartStore,
		favorites:  favoriteSet,
		gate:       gate,
		submitter:  submitter,
		uploadsURL: uploadsURL,
		validate:   validator.New(),
		logger:     logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the HTTP routes for the storefront.
func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", h.ListProducts)
		r.Get("/products/{id}", h.GetProduct)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Post("/items", h.AddCartItem)
			r.Patch("/items/{id}", h.ChangeCartQuantity)
			r.Delete("/items/{id}", h.RemoveCartItem)
			r.Post("/checkout", h.Checkout)
		})

		r.Get("/favorites", h.ListFavorites)
		r.Post("/favorites/{id}", h.ToggleFavorite)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", h.Login)
			r.Post("/logout", h.Logout)
			r.Get("/session", h.SessionInfo)
		})

		r.Route("/admin/products", func(r chi.Router) {
			r.Use(session.RequireAuth(h.gate))
			r.Post("/", h.CreateProduct)
			r.Put("/{id}", h.UpdateProduct)
			r.Delete("/{id}", h.DeleteProduct)
		})
	})

	r.Get("/healthz", h.HealthCheck)
}

// ProductView is a product prepared for rendering: resolved image URL and
// favorite membership included.
type ProductView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Price       int64  `json:"price"`
	ImageURL    string `json:"image_url,omitempty"`
	CreatedAt   string `json:"created_at"`
	Favorite    bool   `json:"favorite"`
}

// CartLineView is a cart line with its resolved image and line total.
type CartLineView struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	ImageURL  string `json:"image_url,omitempty"`
	Quantity  int64  `json:"quantity"`
	LineTotal int64  `json:"line_total"`
}

// CartView is the full cart as rendered in the cart panel.
type CartView struct {
	Lines     []CartLineView `json:"lines"`
	Total     int64          `json:"total"`
	ItemCount int64          `json:"item_count"`
}

// AddItemDto identifies the product to add to the cart.
type AddItemDto struct {
	ProductID string `json:"product_id" validate:"required"`
}

// QuantityDto carries the signed quantity change for a cart line.
type QuantityDto struct {
	Delta int64 `json:"delta" validate:"required"`
}

// LoginDto carries the admin credentials.
type LoginDto struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ListProducts returns the filtered, sorted catalog view.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	search := r.URL.Query().Get("search")
	sortKey := catalog.ParseSortKey(r.URL.Query().Get("sort"))

	mLogger.DebugContext(r.Context(), "Received request to list products", "search", search, "sort", sortKey)
	products, err := h.catalog.Browse(r.Context(), search, sortKey)
	if err != nil {
		mLogger.ErrorContext(r.Context(), "Error fetching catalog", "error", err)
		h.respondMappedError(w, mLogger, err, "Failed to fetch products")
		return
	}
	views := make([]ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, h.toView(p))
	}
	mLogger.DebugContext(r.Context(), "Successfully listed products", "count", len(views))
	web.RespondJSON(w, mLogger, http.StatusOK, views)
}

// GetProduct returns a single product from the last-fetched snapshot.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	product, err := h.catalog.Snapshot(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperrors.ErrProductNotFound) {
			web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("Product with ID %s not found", id))
			return
		}
		mLogger.ErrorContext(r.Context(), "Error retrieving product", "ID", id, "error", err)
		h.respondMappedError(w, mLogger, err, "Failed to retrieve product")
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, h.toView(*product))
}

// GetCart returns the cart lines, grand total and badge count.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	web.RespondJSON(w, mLogger, http.StatusOK, h.cartView())
}

// AddCartItem snapshots the product into the cart, or bumps its quantity.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var dto AddItemDto
	if !h.decodeAndValidate(w, r, mLogger, &dto) {
		return
	}
	product, err := h.catalog.Snapshot(r.Context(), dto.ProductID)
	if err != nil {
		if errors.Is(err, apperrors.ErrProductNotFound) {
			mLogger.WarnContext(r.Context(), "Unknown product for cart add", "ID", dto.ProductID)
			web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("Product with ID %s not found", dto.ProductID))
			return
		}
		mLogger.ErrorContext(r.Context(), "Error resolving product for cart add", "ID", dto.ProductID, "error", err)
		h.respondMappedError(w, mLogger, err, "Failed to add product to cart")
		return
	}
	h.cart.Add(r.Context(), *product)
	mLogger.InfoContext(r.Context(), "Product added to cart", "ID", product.ID, "Name", product.Name)
	web.RespondJSON(w, mLogger, http.StatusOK, h.cartView())
}

// ChangeCartQuantity applies a signed delta to a cart line. A drop to zero or
// below removes the line; an unknown product leaves the cart unchanged.
func (h *Handler) ChangeCartQuantity(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	var dto QuantityDto
	if !h.decodeAndValidate(w, r, mLogger, &dto) {
		return
	}
	h.cart.ChangeQuantity(r.Context(), id, dto.Delta)
	web.RespondJSON(w, mLogger, http.StatusOK, h.cartView())
}

// RemoveCartItem drops a cart line unconditionally.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	h.cart.Remove(r.Context(), id)
	web.RespondJSON(w, mLogger, http.StatusOK, h.cartView())
}

// Checkout hands the cart to the order channel and clears it.
// The emptiness check lives here: the submitter never validates it.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	lines := h.cart.Lines()
	if len(lines) == 0 {
		web.RespondError(w, mLogger, http.StatusBadRequest, "Cart is empty")
		return
	}
	payload := order.Build(lines, h.cart.Total())
	if err := h.submitter.Submit(r.Context(), payload); err != nil {
		mLogger.ErrorContext(r.Context(), "Order hand-off failed", "order_id", payload.OrderID, "error", err)
		web.RespondError(w, mLogger, http.StatusBadGateway, "Failed to submit order")
		return
	}
	// Once handed off, the cart is cleared unconditionally.
	h.cart.Clear(r.Context())
	mLogger.InfoContext(r.Context(), "Order submitted", "order_id", payload.OrderID, "total", payload.Total)
	web.RespondJSON(w, mLogger, http.StatusOK, map[string]any{
		"order_id": payload.OrderID,
		"total":    payload.Total,
		"status":   "submitted",
	})
}

// ListFavorites returns the favorite product identifiers.
func (h *Handler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	web.RespondJSON(w, mLogger, http.StatusOK, map[string]any{"ids": h.favorites.All()})
}

// ToggleFavorite flips favorite membership for a product.
func (h *Handler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	favorite := h.favorites.Toggle(r.Context(), id)
	web.RespondJSON(w, mLogger, http.StatusOK, map[string]any{"product_id": id, "favorite": favorite})
}

// Login authenticates the admin against the backend and stores the token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var dto LoginDto
	if !h.decodeAndValidate(w, r, mLogger, &dto) {
		return
	}
	if err := h.gate.Login(r.Context(), dto.Email, dto.Password); err != nil {
		if errors.Is(err, apperrors.ErrUnauthorized) {
			mLogger.WarnContext(r.Context(), "Login rejected", "email", dto.Email)
			web.RespondError(w, mLogger, http.StatusUnauthorized, err.Error())
			return
		}
		mLogger.ErrorContext(r.Context(), "Login failed", "error", err)
		h.respondMappedError(w, mLogger, err, "Login failed")
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, map[string]bool{"authenticated": true})
}

// Logout clears the session unconditionally and always succeeds.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	h.gate.Logout(r.Context())
	web.RespondJSON(w, mLogger, http.StatusOK, map[string]bool{"authenticated": false})
}

// SessionInfo reports whether an admin session is present.
func (h *Handler) SessionInfo(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	web.RespondJSON(w, mLogger, http.StatusOK, map[string]bool{"authenticated": h.gate.IsAuthenticated()})
}

// CreateProduct forwards a multipart product form to the backend.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	form, ok := h.parseProductForm(w, r, mLogger)
	if !ok {
		return
	}
	created, err := h.catalog.Create(r.Context(), h.gate.Token(), form)
	if err != nil {
		h.respondAdminError(w, r, mLogger, err, "Failed to create product")
		return
	}
	mLogger.InfoContext(r.Context(), "Product created successfully", "ID", created.ID, "Name", created.Name)
	web.RespondJSON(w, mLogger, http.StatusCreated, h.toView(*created))
}

// UpdateProduct forwards a multipart product form for an existing product.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	form, ok := h.parseProductForm(w, r, mLogger)
	if !ok {
		return
	}
	updated, err := h.catalog.Update(r.Context(), h.gate.Token(), id, form)
	if err != nil {
		h.respondAdminError(w, r, mLogger, err, fmt.Sprintf("Failed to update product with ID %s", id))
		return
	}
	mLogger.InfoContext(r.Context(), "Product updated successfully", "ID", updated.ID, "Name", updated.Name)
	web.RespondJSON(w, mLogger, http.StatusOK, h.toView(*updated))
}

// DeleteProduct removes a product via the backend.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	if err := h.catalog.Delete(r.Context(), h.gate.Token(), id); err != nil {
		h.respondAdminError(w, r, mLogger, err, fmt.Sprintf("Failed to delete product with ID %s", id))
		return
	}
	mLogger.InfoContext(r.Context(), "Product deleted successfully", "ID", id)
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck is a simple health check endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// parseProductForm reads the multipart product form and validates it.
func (h *Handler) parseProductForm(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger) (catalog.ProductForm, bool) {
	if err := r.ParseMultipartForm(maxProductFormBytes); err != nil {
		mLogger.ErrorContext(r.Context(), "Error parsing multipart form", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid multipart form")
		return catalog.ProductForm{}, false
	}
	price, err := strconv.ParseInt(r.FormValue("price"), 10, 64)
	if err != nil {
		web.RespondJSON(w, mLogger, http.StatusBadRequest,
			map[string]any{"validation_errors": map[string]string{"price": "failed on rule: numeric"}})
		return catalog.ProductForm{}, false
	}

	formDto := struct {
		Name  string `validate:"required,max=100"`
		Price int64  `validate:"gte=0"`
	}{Name: r.FormValue("name"), Price: price}
	if !h.validateStruct(w, r, mLogger, formDto) {
		return catalog.ProductForm{}, false
	}

	form := catalog.ProductForm{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		Price:       price,
	}
	if file, header, err := r.FormFile("image"); err == nil {
		form.Image = file
		form.ImageName = header.Filename
	}
	return form, true
}

// respondAdminError maps a failed admin mutation to an HTTP response. A token
// the backend no longer accepts invalidates the session so the next request
// goes back through login.
func (h *Handler) respondAdminError(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger, err error, fallback string) {
	if errors.Is(err, apperrors.ErrUnauthorized) {
		h.gate.Invalidate(r.Context())
		mLogger.WarnContext(r.Context(), "Admin mutation rejected, session invalidated", "error", err)
		web.RespondError(w, mLogger, http.StatusUnauthorized, "Session expired, please log in again")
		return
	}
	mLogger.ErrorContext(r.Context(), fallback, "error", err)
	h.respondMappedError(w, mLogger, err, fallback)
}

// respondMappedError translates the error taxonomy into HTTP status codes.
func (h *Handler) respondMappedError(w http.ResponseWriter, mLogger *slog.Logger, err error, fallback string) {
	switch {
	case errors.Is(err, apperrors.ErrBackendUnavailable):
		web.RespondError(w, mLogger, http.StatusBadGateway, "Product backend is unavailable")
	case errors.Is(err, apperrors.ErrValidation):
		web.RespondError(w, mLogger, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperrors.ErrUnauthorized):
		web.RespondError(w, mLogger, http.StatusUnauthorized, err.Error())
	case errors.Is(err, apperrors.ErrProductNotFound):
		web.RespondError(w, mLogger, http.StatusNotFound, err.Error())
	default:
		web.RespondError(w, mLogger, http.StatusInternalServerError, fallback)
	}
}

// decodeAndValidate decodes a JSON body into dto and runs struct validation.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger, dto any) bool {
	if err := json.NewDecoder(r.Body).Decode(dto); err != nil {
		mLogger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return h.validateStruct(w, r, mLogger, dto)
}

// validateStruct runs the validator and renders field errors the way every
// storefront endpoint reports them.
func (h *Handler) validateStruct(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger, dto any) bool {
	if err := h.validate.Struct(dto); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			errorResponse := make(map[string]string)
			for _, fieldErr := range validationErrors {
				errorResponse[fieldErr.Field()] = "failed on rule: " + fieldErr.Tag()
			}
			mLogger.WarnContext(r.Context(), "Validation errors occurred", "errors", errorResponse)
			web.RespondJSON(w, mLogger, http.StatusBadRequest, map[string]any{"validation_errors": errorResponse})
			return false
		}
		mLogger.ErrorContext(r.Context(), "Error validating request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// toView resolves the image URL and favorite flag for rendering.
func (h *Handler) toView(p catalog.Product) ProductView {
	return ProductView{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		ImageURL:    catalog.ImageURL(h.uploadsURL, p.Image),
		CreatedAt:   p.CreatedAt.UTC().Format(time.RFC3339),
		Favorite:    h.favorites.IsFavorite(p.ID),
	}
}

// cartView renders the cart with resolved images and line totals.
func (h *Handler) cartView() CartView {
	lines := h.cart.Lines()
	views := make([]CartLineView, 0, len(lines))
	for _, l := range lines {
		views = append(views, CartLineView{
			ProductID: l.ProductID,
			Name:      l.Name,
			Price:     l.Price,
			ImageURL:  catalog.ImageURL(h.uploadsURL, l.Image),
			Quantity:  l.Quantity,
			LineTotal: l.Price * l.Quantity,
		})
	}
	return CartView{
		Lines:     views,
		Total:     h.cart.Total(),
		ItemCount: h.cart.ItemCount(),
	}
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *Handler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID := middleware.GetReqID(r.Context())
	return h.logger.With("request_id", reqID)
}
