package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/diet-horizon/apiserver/internal/services"
	"github.com/diet-horizon/apiserver/internal/store"
	"github.com/diet-horizon/apiserver/types"
)

const (
	maxProductFormMemory = 16 << 20
	maxImageBytes        = 8 << 20
	formFieldName        = "name"
	formFieldDesc        = "description"
	formFieldPrice       = "price"
	formFieldCategory    = "category"
	formFieldStock       = "stock"
	formFieldImage       = "image"
)

// ProductHandler provides HTTP handlers for the catalog.
type ProductHandler struct {
	productService *services.ProductService
}

func NewProductHandler(productService *services.ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

// ProductRouter registers catalog routes. Browsing is public; mutations
// require an authenticated admin.
func ProductRouter(
	r chi.Router,
	productService *services.ProductService,
	userService *services.UserService,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewProductHandler(productService)
	adminOnly := RequireRole(userService, types.RoleAdmin)

	r.Get("/", handler.ListProducts)
	r.With(authMiddleware, adminOnly).Post("/", handler.CreateProduct)
	r.Route("/{productID}", func(r chi.Router) {
		r.Get("/", handler.GetProduct)
		r.Get("/image", handler.GetProductImage)
		r.With(authMiddleware, adminOnly).Put("/", handler.UpdateProduct)
		r.With(authMiddleware, adminOnly).Delete("/", handler.DeleteProduct)
	})
}

func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, total, err := h.productService.List(r.Context(), offset, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list products")
		return
	}

	writeJSON(w, http.StatusOK, ProductListResponse{
		Success: true,
		Items:   items,
		Page:    page,
		Limit:   limit,
		Total:   total,
	})
}

func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseProductID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	product, err := h.productService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch product")
		return
	}

	writeJSON(w, http.StatusOK, ProductResponse{Success: true, Data: product})
}

// GetProductImage streams the product image from object storage.
func (h *ProductHandler) GetProductImage(w http.ResponseWriter, r *http.Request) {
	id, err := parseProductID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	product, err := h.productService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch product")
		return
	}

	reader, err := h.productService.OpenImage(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product has no image")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to open image")
		return
	}
	defer reader.Close()

	if contentType := mime.TypeByExtension(path.Ext(product.ImageKey)); contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	_, _ = io.Copy(w, reader)
}

func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	req, err := parseProductForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	product, err := h.productService.Create(r.Context(), types.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		Stock:       req.Stock,
	})
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create product")
		return
	}

	if req.Image.Data != nil {
		product, err = h.productService.AttachImage(r.Context(), product.ID, req.Image.Filename, req.Image.Data, req.Image.ContentType)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to store product image")
			return
		}
	}

	writeJSON(w, http.StatusCreated, ProductResponse{Success: true, Data: product})
}

func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseProductID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req, err := parseProductForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	existing, err := h.productService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch product")
		return
	}

	existing.Name = req.Name
	existing.Description = req.Description
	existing.Price = req.Price
	existing.Category = req.Category
	existing.Stock = req.Stock

	product, err := h.productService.Update(r.Context(), existing)
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update product")
		return
	}

	if req.Image.Data != nil {
		product, err = h.productService.AttachImage(r.Context(), product.ID, req.Image.Filename, req.Image.Data, req.Image.ContentType)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to store product image")
			return
		}
	}

	writeJSON(w, http.StatusOK, ProductResponse{Success: true, Data: product})
}

func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseProductID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.productService.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete product")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ImageFile represents an uploaded product image.
type ImageFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ProductUpsertRequest represents the parsed multipart form payload.
type ProductUpsertRequest struct {
	Name        string
	Description string
	Price       float64
	Category    string
	Stock       int
	Image       ImageFile
}

type ProductResponse struct {
	Success bool          `json:"success"`
	Data    types.Product `json:"data"`
}

type ProductListResponse struct {
	Success bool            `json:"success"`
	Items   []types.Product `json:"items"`
	Page    int             `json:"page"`
	Limit   int             `json:"limit"`
	Total   int             `json:"total"`
}

func parseProductID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "productID")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid product id")
	}
	return id, nil
}

func parseProductForm(r *http.Request) (ProductUpsertRequest, error) {
	if err := r.ParseMultipartForm(maxProductFormMemory); err != nil {
		return ProductUpsertRequest{}, errors.New("invalid multipart form")
	}

	name := strings.TrimSpace(r.FormValue(formFieldName))
	if name == "" {
		return ProductUpsertRequest{}, errors.New("name is required")
	}

	price, err := parseOptionalFloat(r.FormValue(formFieldPrice))
	if err != nil || price < 0 {
		return ProductUpsertRequest{}, errors.New("invalid price")
	}

	stock, err := parseOptionalInt(r.FormValue(formFieldStock))
	if err != nil || stock < 0 {
		return ProductUpsertRequest{}, errors.New("invalid stock")
	}

	req := ProductUpsertRequest{
		Name:        name,
		Description: strings.TrimSpace(r.FormValue(formFieldDesc)),
		Price:       price,
		Category:    strings.TrimSpace(r.FormValue(formFieldCategory)),
		Stock:       stock,
	}

	if r.MultipartForm != nil {
		files := r.MultipartForm.File[formFieldImage]
		if len(files) > 1 {
			return ProductUpsertRequest{}, errors.New("only one image file is allowed")
		}
		if len(files) == 1 {
			fileHeader := files[0]
			file, err := fileHeader.Open()
			if err != nil {
				return ProductUpsertRequest{}, errors.New("failed to read image file")
			}
			data, err := readFileLimited(file, maxImageBytes)
			_ = file.Close()
			if err != nil {
				return ProductUpsertRequest{}, err
			}
			req.Image = ImageFile{
				Filename:    fileHeader.Filename,
				ContentType: fileHeader.Header.Get("Content-Type"),
				Data:        data,
			}
		}
	}

	return req, nil
}

func parseOptionalInt(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}

func parseOptionalFloat(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	return strconv.ParseFloat(value, 64)
}

func readFileLimited(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, errors.New("failed to read upload")
	}
	if int64(len(data)) > limit {
		return nil, errors.New("uploaded file too large")
	}
	return data, nil
}
