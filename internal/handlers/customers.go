package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/avicolanorte/api/internal/domain"
	"github.com/avicolanorte/api/internal/platform/auth"
	"github.com/avicolanorte/api/internal/platform/httpx"
	"github.com/avicolanorte/api/internal/repositories"
	"github.com/avicolanorte/api/internal/services"
)

const (
	defaultCustomerPageSize = 20
	maxCustomerPageSize     = 100
)

// CustomerHandlers exposes read access to customer profiles for operators.
type CustomerHandlers struct {
	authn     *auth.Authenticator
	customers services.CustomerService
}

// NewCustomerHandlers constructs a new CustomerHandlers instance.
func NewCustomerHandlers(authn *auth.Authenticator, customers services.CustomerService) *CustomerHandlers {
	return &CustomerHandlers{
		authn:     authn,
		customers: customers,
	}
}

// Routes registers the /customers endpoints.
func (h *CustomerHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireOperator(operatorRoles...))
	}
	r.Get("/", h.listCustomers)
	r.Get("/{phone}", h.getCustomer)
}

func (h *CustomerHandlers) listCustomers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := requireIdentity(ctx, w); !ok {
		return
	}

	query := r.URL.Query()

	var segment *domain.Segment
	if raw := strings.TrimSpace(query.Get("segment")); raw != "" {
		value := domain.Segment(raw)
		segment = &value
	}

	pageSize, err := parsePageSize(query.Get("page_size"), defaultCustomerPageSize, maxCustomerPageSize)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "page_size must be an integer", http.StatusBadRequest))
		return
	}

	filter := repositories.CustomerListFilter{
		Segment: segment,
		City:    strings.TrimSpace(query.Get("city")),
		Pagination: domain.Pagination{
			PageSize:  pageSize,
			PageToken: strings.TrimSpace(query.Get("page_token")),
		},
	}

	page, err := h.customers.ListCustomers(ctx, filter)
	if err != nil {
		writeCustomerError(ctx, w, err)
		return
	}

	items := make([]customerPayload, 0, len(page.Items))
	for _, profile := range page.Items {
		items = append(items, buildCustomerPayload(profile))
	}
	writeJSONResponse(w, http.StatusOK, customerListResponse{
		Items:         items,
		NextPageToken: strings.TrimSpace(page.NextPageToken),
	})
}

func (h *CustomerHandlers) getCustomer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := requireIdentity(ctx, w); !ok {
		return
	}

	phone := strings.TrimSpace(chi.URLParam(r, "phone"))
	if phone == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "customer phone is required", http.StatusBadRequest))
		return
	}

	profile, err := h.customers.GetByPhone(ctx, phone)
	if err != nil {
		writeCustomerError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildCustomerPayload(profile))
}

type customerListResponse struct {
	Items         []customerPayload `json:"items"`
	NextPageToken string            `json:"nextPageToken,omitempty"`
}

type customerPayload struct {
	Phone            string `json:"phone"`
	Segment          string `json:"segment"`
	BusinessName     string `json:"businessName,omitempty"`
	City             string `json:"city,omitempty"`
	Address          string `json:"address,omitempty"`
	ContactPerson    string `json:"contactPerson,omitempty"`
	ResponsibleType  string `json:"responsibleType,omitempty"`
	InteractionCount int64  `json:"interactionCount"`
	RegisteredAt     string `json:"registeredAt"`
	LastActiveAt     string `json:"lastActiveAt"`
}

func buildCustomerPayload(profile services.CustomerProfile) customerPayload {
	return customerPayload{
		Phone:            profile.Phone,
		Segment:          string(profile.Segment),
		BusinessName:     profile.BusinessName,
		City:             profile.City,
		Address:          profile.Address,
		ContactPerson:    profile.ContactPerson,
		ResponsibleType:  string(profile.ResponsibleType),
		InteractionCount: profile.InteractionCount,
		RegisteredAt:     formatTime(profile.RegisteredAt),
		LastActiveAt:     formatTime(profile.LastActiveAt),
	}
}

func writeCustomerError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrCustomerNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("customer_not_found", "customer not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCustomerInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCustomerUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("customer_unavailable", "customer store is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("customer_error", "failed to process customer request", http.StatusInternalServerError))
	}
}
