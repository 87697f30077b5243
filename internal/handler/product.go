package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/banca-gt/banking-api/internal/auth"
	"github.com/banca-gt/banking-api/internal/domain"
	"github.com/banca-gt/banking-api/internal/logging"
)

type productStore interface {
	Create(ctx context.Context, p *domain.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	List(ctx context.Context, includeInactive bool) ([]domain.Product, error)
	Update(ctx context.Context, p *domain.Product) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

type purchaseService interface {
	BuyProduct(ctx context.Context, buyerUserID, productID uuid.UUID, quantity int) (*domain.Purchase, error)
	ListPurchases(ctx context.Context, buyerUserID uuid.UUID) ([]domain.Purchase, error)
}

type ProductHandler struct {
	products  productStore
	purchases purchaseService
}

func NewProductHandler(products productStore, purchases purchaseService) *ProductHandler {
	return &ProductHandler{products: products, purchases: purchases}
}

type productRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       *string         `json:"image"`
}

func (r productRequest) Validate() []FieldError {
	var errs []FieldError
	if r.Name == "" {
		errs = append(errs, FieldError{Field: "name", Message: "required"})
	}
	if r.Description == "" {
		errs = append(errs, FieldError{Field: "description", Message: "required"})
	}
	if !r.Price.IsPositive() {
		errs = append(errs, FieldError{Field: "price", Message: "must be greater than 0"})
	}
	return errs
}

type productDTO struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       *string         `json:"image,omitempty"`
	Active      bool            `json:"active"`
	CreatedAt   time.Time       `json:"created_at"`
}

func toProductDTO(p *domain.Product) productDTO {
	return productDTO{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Image:       p.Image,
		Active:      p.Active,
		CreatedAt:   p.CreatedAt,
	}
}

type purchaseDTO struct {
	ID         uuid.UUID       `json:"id"`
	ProductID  uuid.UUID       `json:"product_id"`
	Quantity   int             `json:"quantity"`
	Total      decimal.Decimal `json:"total"`
	MovementID uuid.UUID       `json:"movement_id"`
	CreatedAt  time.Time       `json:"created_at"`
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	p := &domain.Product{
		ID:          uuid.New(),
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Image:       req.Image,
		Active:      true,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.products.Create(r.Context(), p); err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toProductDTO(p))
}

// List shows active products to clients; admins see the full catalog.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context(), auth.IsAdmin(r.Context()))
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to list products", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]productDTO, 0, len(products))
	for i := range products {
		dtos = append(dtos, toProductDTO(&products[i]))
	}

	RespondSuccess(w, http.StatusOK, map[string]any{
		"total":    len(dtos),
		"products": dtos,
	})
}

func (h *ProductHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	p, err := h.products.GetByID(r.Context(), productID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	if !p.Active && !auth.IsAdmin(r.Context()) {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	RespondSuccess(w, http.StatusOK, toProductDTO(p))
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	p := &domain.Product{
		ID:          productID,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Image:       req.Image,
	}
	if err := h.products.Update(r.Context(), p); err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toProductDTO(p))
}

func (h *ProductHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *ProductHandler) Reactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *ProductHandler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	productID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	if err := h.products.SetActive(r.Context(), productID, active); err != nil {
		RespondDomainError(w, err)
		return
	}

	status := "disabled"
	if active {
		status = "active"
	}
	RespondSuccess(w, http.StatusOK, map[string]string{"status": status})
}

type buyProductRequest struct {
	Quantity int `json:"quantity"`
}

// Buy purchases a product: funds move from the caller's account to the house
// account through the ledger engine under the usual transfer caps.
func (h *ProductHandler) Buy(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	productID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	var req buyProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if req.Quantity <= 0 {
		RespondValidationError(w, []FieldError{{Field: "quantity", Message: "must be greater than 0"}})
		return
	}

	purchase, err := h.purchases.BuyProduct(r.Context(), userID, productID, req.Quantity)
	if err != nil {
		log.Warn("purchase failed", "product_id", productID, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, purchaseDTO{
		ID:         purchase.ID,
		ProductID:  purchase.ProductID,
		Quantity:   purchase.Quantity,
		Total:      purchase.Total,
		MovementID: purchase.MovementID,
		CreatedAt:  purchase.CreatedAt,
	})
}

func (h *ProductHandler) ListOwnPurchases(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	purchases, err := h.purchases.ListPurchases(r.Context(), userID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	dtos := make([]purchaseDTO, 0, len(purchases))
	for _, p := range purchases {
		dtos = append(dtos, purchaseDTO{
			ID:         p.ID,
			ProductID:  p.ProductID,
			Quantity:   p.Quantity,
			Total:      p.Total,
			MovementID: p.MovementID,
			CreatedAt:  p.CreatedAt,
		})
	}

	RespondSuccess(w, http.StatusOK, map[string]any{
		"total":     len(dtos),
		"purchases": dtos,
	})
}
