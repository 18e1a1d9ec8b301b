package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/safar/framely/internal/httpx"
	"github.com/safar/framely/internal/service"
	"github.com/shopspring/decimal"
)

type categoryRequest struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type productRequest struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name" validate:"max=200"`
	Brand       string          `json:"brand" validate:"max=100"`
	Description string          `json:"description" validate:"max=2000"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"imageUrl" validate:"omitempty,url,max=500"`
	CategoryID  int64           `json:"categoryId"`
}

func (req categoryRequest) input() service.CategoryInput {
	return service.CategoryInput{ID: req.ID, Name: req.Name, Description: req.Description}
}

func (req productRequest) input() service.ProductInput {
	return service.ProductInput{
		ID:          req.ID,
		Name:        req.Name,
		Brand:       req.Brand,
		Description: req.Description,
		Price:       req.Price,
		ImageURL:    req.ImageURL,
		CategoryID:  req.CategoryID,
	}
}

func listQuery(r *http.Request) (service.ListQuery, error) {
	page, err := queryInt(r, "page")
	if err != nil {
		return service.ListQuery{}, err
	}
	size, err := queryInt(r, "pageSize")
	if err != nil {
		return service.ListQuery{}, err
	}
	q := r.URL.Query()
	return service.ListQuery{
		Page:      page,
		PageSize:  size,
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
	}, nil
}

func (h *handlers) listCategories(w http.ResponseWriter, r *http.Request) {
	query, err := listQuery(r)
	if err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}
	page, err := h.catalog.ListCategories(r.Context(), query)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, page)
}

func (h *handlers) getCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeBadRequest(w, r, "invalid category id")
		return
	}
	category, err := h.catalog.GetCategory(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, category)
}

func (h *handlers) createCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !h.decode(w, r, &req) {
		return
	}
	category, err := h.catalog.CreateCategory(r.Context(), caller(r), req.input())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("%s/categories/%d", apiPrefix, category.ID))
	httpx.WriteJSON(w, http.StatusCreated, category)
}

func (h *handlers) updateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeBadRequest(w, r, "invalid category id")
		return
	}
	var req categoryRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.catalog.UpdateCategory(r.Context(), caller(r), id, req.input()); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeBadRequest(w, r, "invalid category id")
		return
	}
	if err := h.catalog.DeleteCategory(r.Context(), caller(r), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) listProducts(w http.ResponseWriter, r *http.Request) {
	query, err := listQuery(r)
	if err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}
	page, err := h.catalog.ListProducts(r.Context(), query)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, page)
}

func (h *handlers) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeBadRequest(w, r, "invalid product id")
		return
	}
	product, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, product)
}

func (h *handlers) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !h.decode(w, r, &req) {
		return
	}
	product, err := h.catalog.CreateProduct(r.Context(), caller(r), req.input())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("%s/products/%d", apiPrefix, product.ID))
	httpx.WriteJSON(w, http.StatusCreated, product)
}

func (h *handlers) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeBadRequest(w, r, "invalid product id")
		return
	}
	var req productRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.catalog.UpdateProduct(r.Context(), caller(r), id, req.input()); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeBadRequest(w, r, "invalid product id")
		return
	}
	if err := h.catalog.DeleteProduct(r.Context(), caller(r), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) productsByCategory(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.ProductsByCategory(r.Context(), strings.TrimSpace(r.URL.Query().Get("name")))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, products)
}

func (h *handlers) productsByBrand(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.ProductsByBrand(r.Context(), strings.TrimSpace(r.URL.Query().Get("name")))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, products)
}

func (h *handlers) searchProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.SearchProducts(r.Context(), strings.TrimSpace(r.URL.Query().Get("term")))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, products)
}
