package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ogulcanaydogan/restock-guardian/pkg/alerts"
	"github.com/ogulcanaydogan/restock-guardian/pkg/inventory"
	"github.com/ogulcanaydogan/restock-guardian/pkg/model"
	"github.com/ogulcanaydogan/restock-guardian/pkg/storage"
)

// ActorHeader names the user performing a request.
const ActorHeader = "X-Actor"

const requestTimeout = 10 * time.Second

// Server exposes the inventory API.
type Server struct {
	inventory    *inventory.Service
	gatherer     prometheus.Gatherer
	defaultActor string
	mux          *http.ServeMux
	logger       *slog.Logger
}

// NewServer creates an API server. gatherer may be nil to disable /metrics.
func NewServer(svc *inventory.Service, gatherer prometheus.Gatherer, defaultActor string, logger *slog.Logger) *Server {
	s := &Server{
		inventory:    svc,
		gatherer:     gatherer,
		defaultActor: defaultActor,
		mux:          http.NewServeMux(),
		logger:       logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	s.mux.HandleFunc("GET /api/v1/products", s.handleListProducts)
	s.mux.HandleFunc("POST /api/v1/products", s.handleCreateProduct)
	s.mux.HandleFunc("GET /api/v1/products/{id}", s.handleGetProduct)
	s.mux.HandleFunc("PUT /api/v1/products/{id}", s.handleUpdateProduct)
	s.mux.HandleFunc("DELETE /api/v1/products/{id}", s.handleDeleteProduct)
	s.mux.HandleFunc("PATCH /api/v1/products/{id}/quantity", s.handleSetQuantity)

	s.mux.HandleFunc("GET /api/v1/suppliers", s.handleListSuppliers)
	s.mux.HandleFunc("POST /api/v1/suppliers", s.handleCreateSupplier)
	s.mux.HandleFunc("DELETE /api/v1/suppliers/{id}", s.handleDeleteSupplier)

	s.mux.HandleFunc("GET /api/v1/cart", s.handleCart)
	s.mux.HandleFunc("POST /api/v1/cart", s.handleAddToCart)
	s.mux.HandleFunc("DELETE /api/v1/cart", s.handleClearCart)
	s.mux.HandleFunc("PATCH /api/v1/cart/{id}", s.handleUpdateCartItem)
	s.mux.HandleFunc("DELETE /api/v1/cart/{id}", s.handleRemoveCartItem)
	s.mux.HandleFunc("POST /api/v1/cart/{id}/receive", s.handleReceive)

	s.mux.HandleFunc("GET /api/v1/stats", s.handleStats)
	s.mux.HandleFunc("GET /api/v1/alerts/low-stock", s.handleLowStock)
	s.mux.HandleFunc("POST /api/v1/alerts/send", s.handleSendAlert)
	s.mux.HandleFunc("GET /api/v1/activity", s.handleActivity)

	if s.gatherer != nil {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
}

// Handler returns the HTTP handler for this server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// productView adds derived fields to a product.
type productView struct {
	model.Product
	Status model.StockStatus `json:"status"`
}

func viewOf(p model.Product) productView {
	return productView{Product: p, Status: p.Status()}
}

func (s *Server) actor(r *http.Request) string {
	if a := r.Header.Get(ActorHeader); a != "" {
		return a
	}
	return s.defaultActor
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	filter := model.ProductFilter{
		Search:   r.URL.Query().Get("search"),
		Supplier: r.URL.Query().Get("supplier"),
		Status:   model.StockStatus(r.URL.Query().Get("status")),
	}
	products, err := s.inventory.ListProducts(ctx, filter)
	if err != nil {
		s.writeError(w, "list products", err)
		return
	}

	views := make([]productView, 0, len(products))
	for _, p := range products {
		views = append(views, viewOf(p))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var p model.Product
	if !decode(w, r, &p) {
		return
	}
	p.ID = ""
	if err := s.inventory.CreateProduct(r.Context(), s.actor(r), &p); err != nil {
		s.writeError(w, "create product", err)
		return
	}
	writeJSON(w, http.StatusCreated, viewOf(p))
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := s.inventory.GetProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, "get product", err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(*p))
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var p model.Product
	if !decode(w, r, &p) {
		return
	}
	p.ID = r.PathValue("id")
	if err := s.inventory.UpdateProduct(r.Context(), s.actor(r), &p); err != nil {
		s.writeError(w, "update product", err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(p))
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := s.inventory.DeleteProduct(r.Context(), s.actor(r), r.PathValue("id")); err != nil {
		s.writeError(w, "delete product", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type quantityRequest struct {
	Quantity *int `json:"quantity"`
}

func (s *Server) handleSetQuantity(w http.ResponseWriter, r *http.Request) {
	var req quantityRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Quantity == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity is required"})
		return
	}
	p, err := s.inventory.SetQuantity(r.Context(), s.actor(r), r.PathValue("id"), *req.Quantity)
	if err != nil {
		s.writeError(w, "set quantity", err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(*p))
}

func (s *Server) handleListSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := s.inventory.ListSuppliers(r.Context())
	if err != nil {
		s.writeError(w, "list suppliers", err)
		return
	}
	writeJSON(w, http.StatusOK, suppliers)
}

func (s *Server) handleCreateSupplier(w http.ResponseWriter, r *http.Request) {
	var sp model.Supplier
	if !decode(w, r, &sp) {
		return
	}
	sp.ID = ""
	if err := s.inventory.CreateSupplier(r.Context(), s.actor(r), &sp); err != nil {
		s.writeError(w, "create supplier", err)
		return
	}
	writeJSON(w, http.StatusCreated, sp)
}

func (s *Server) handleDeleteSupplier(w http.ResponseWriter, r *http.Request) {
	if err := s.inventory.DeleteSupplier(r.Context(), s.actor(r), r.PathValue("id")); err != nil {
		s.writeError(w, "delete supplier", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCart(w http.ResponseWriter, r *http.Request) {
	items, err := s.inventory.Cart(r.Context(), s.actor(r))
	if err != nil {
		s.writeError(w, "list cart", err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

type addToCartRequest struct {
	ProductID string `json:"product_id"`
}

func (s *Server) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	var req addToCartRequest
	if !decode(w, r, &req) {
		return
	}
	item, err := s.inventory.AddToCart(r.Context(), s.actor(r), req.ProductID)
	if err != nil {
		s.writeError(w, "add to cart", err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleClearCart(w http.ResponseWriter, r *http.Request) {
	n, err := s.inventory.ClearCart(r.Context(), s.actor(r))
	if err != nil {
		s.writeError(w, "clear cart", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"removed": n})
}

func (s *Server) handleUpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req quantityRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Quantity == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity is required"})
		return
	}
	if err := s.inventory.UpdateCartQuantity(r.Context(), r.PathValue("id"), *req.Quantity); err != nil {
		s.writeError(w, "update cart item", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveCartItem(w http.ResponseWriter, r *http.Request) {
	if err := s.inventory.RemoveFromCart(r.Context(), s.actor(r), r.PathValue("id")); err != nil {
		s.writeError(w, "remove cart item", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReceive(w http.ResponseWriter, r *http.Request) {
	p, err := s.inventory.Receive(r.Context(), s.actor(r), r.PathValue("id"))
	if err != nil {
		s.writeError(w, "receive cart item", err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(*p))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	stats, err := s.inventory.Stats(ctx)
	if err != nil {
		s.writeError(w, "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleLowStock(w http.ResponseWriter, r *http.Request) {
	items, err := s.inventory.LowStock(r.Context())
	if err != nil {
		s.writeError(w, "low stock", err)
		return
	}
	views := make([]productView, 0, len(items))
	for _, p := range items {
		views = append(views, viewOf(p))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleSendAlert(w http.ResponseWriter, r *http.Request) {
	out, err := s.inventory.SendAlert(r.Context(), s.actor(r))
	if err != nil {
		s.writeError(w, "send alert", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": out.Success,
		"sent":    out.Sent(),
		"skipped": out.Skipped(),
		"results": out.Results,
	})
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = n
	}
	entries, err := s.inventory.Activity(r.Context(), limit)
	if err != nil {
		s.writeError(w, "list activity", err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) writeError(w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, inventory.ErrInvalidProduct),
		errors.Is(err, inventory.ErrInvalidSupplier),
		errors.Is(err, inventory.ErrInvalidQuantity):
		status = http.StatusBadRequest
	case errors.Is(err, inventory.ErrAlreadyInCart):
		status = http.StatusConflict
	case errors.Is(err, alerts.ErrNothingLow):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, alerts.ErrNoRecipients),
		errors.Is(err, alerts.ErrTransportNotConfigured):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		s.logger.Error(op, "error", err)
		writeJSON(w, status, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
