package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kermes/pos-ledger/ledger"
)

// =============================================================================
// PRODUCT CATALOG HANDLERS
// =============================================================================

// ListProducts returns the menu. Hidden products are left out unless
// ?include_hidden=true.
// GET /api/products
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.Catalog.Products(r.Context())
	if err != nil {
		h.writeLedgerError(w, r, "Failed to list products", err)
		return
	}

	includeHidden := r.URL.Query().Get("include_hidden") == "true"
	dtos := make([]ProductDTO, 0, len(products))
	for _, p := range products {
		if p.Hidden && !includeHidden {
			continue
		}
		dtos = append(dtos, toProductDTO(p))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetProduct returns a single catalog entry.
// GET /api/products/{id}
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.Catalog.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeLedgerError(w, r, "Failed to get product", err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(p))
}

// CreateProduct adds a catalog entry. An existing id is rejected.
// POST /api/products
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ProductRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Price.IsNegative() {
		writeError(w, http.StatusBadRequest, "Validation failed", fmt.Errorf("price: must not be negative"))
		return
	}

	if _, err := h.Catalog.GetProduct(ctx, req.ID); err == nil {
		writeError(w, http.StatusConflict, "Product already exists", fmt.Errorf("product %q", req.ID))
		return
	} else if !ledger.IsNotFound(err) {
		h.writeLedgerError(w, r, "Failed to check product", err)
		return
	}

	p := req.toProduct()
	if err := h.Catalog.PutProduct(ctx, p); err != nil {
		h.writeLedgerError(w, r, "Failed to create product", err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductDTO(p))
}

// UpdateProduct replaces a catalog entry. Past sales keep their snapshot.
// PUT /api/products/{id}
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	var req ProductRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxImportBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	req.ID = id
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", validationDetails(err))
		return
	}
	if req.Price.IsNegative() {
		writeError(w, http.StatusBadRequest, "Validation failed", fmt.Errorf("price: must not be negative"))
		return
	}

	if _, err := h.Catalog.GetProduct(ctx, id); err != nil {
		h.writeLedgerError(w, r, "Failed to update product", err)
		return
	}

	p := req.toProduct()
	if err := h.Catalog.PutProduct(ctx, p); err != nil {
		h.writeLedgerError(w, r, "Failed to update product", err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(p))
}

// DeleteProduct removes a catalog entry. Stored sales are untouched.
// DELETE /api/products/{id}
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.Catalog.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeLedgerError(w, r, "Failed to delete product", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportProducts downloads the whole catalog, hidden entries included.
// GET /api/products/export
func (h *Handler) ExportProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.Catalog.Products(r.Context())
	if err != nil {
		h.writeLedgerError(w, r, "Failed to list products", err)
		return
	}

	dtos := make([]ProductDTO, len(products))
	for i, p := range products {
		dtos[i] = toProductDTO(p)
	}
	w.Header().Set("Content-Disposition", attachment("products", h.now(), "json"))
	writeJSON(w, http.StatusOK, dtos)
}

// ImportProducts replaces the catalog with a JSON array of products.
// POST /api/products/import
func (h *Handler) ImportProducts(w http.ResponseWriter, r *http.Request) {
	var reqs []ProductRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxImportBytes)).Decode(&reqs); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	seen := make(map[string]bool, len(reqs))
	products := make([]ledger.Product, 0, len(reqs))
	for i, req := range reqs {
		if err := h.validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Validation failed for product %d", i), validationDetails(err))
			return
		}
		if req.Price.IsNegative() {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Validation failed for product %d", i), fmt.Errorf("price: must not be negative"))
			return
		}
		if seen[req.ID] {
			writeError(w, http.StatusBadRequest, "Duplicate product id", fmt.Errorf("product %q", req.ID))
			return
		}
		seen[req.ID] = true
		products = append(products, req.toProduct())
	}

	if err := h.Catalog.ReplaceProducts(r.Context(), products); err != nil {
		h.writeLedgerError(w, r, "Failed to import products", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"imported": len(products)})
}
