package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/j8n/vending-machine-backend-challenge/internal/domain"
	"github.com/j8n/vending-machine-backend-challenge/internal/handler/mw"
	"github.com/j8n/vending-machine-backend-challenge/internal/usecase"
)

type Handler struct {
	service *usecase.Service
}

func NewHandler(service *usecase.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Register(r chi.Router) {
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/", h.rootHandler)

	r.Post("/api/auth", h.auth)
	r.Post("/api/users", h.createUser)
	r.Get("/api/products", h.listProducts)
	r.Get("/api/products/{id}", h.getProduct)

	r.Group(func(r chi.Router) {
		r.Use(mw.JWTAuthMiddleware)

		r.Get("/api/users", h.listUsers)
		r.Get("/api/users/{id}", h.getUser)
		r.Put("/api/users/{id}", h.updateUser)
		r.Delete("/api/users/{id}", h.deleteUser)
		r.Post("/api/users/{id}/deposit", h.deposit)
		r.Post("/api/users/{id}/buy", h.buy)
		r.Post("/api/users/{id}/reset", h.reset)

		r.Post("/api/products", h.createProduct)
		r.Put("/api/products/{id}", h.updateProduct)
		r.Patch("/api/products/{id}", h.updateProduct)
		r.Delete("/api/products/{id}", h.deleteProduct)
	})
}

func (h *Handler) rootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Vending machine API"))
}

type roleResource struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type userResource struct {
	ID       int          `json:"id"`
	Username string       `json:"username"`
	Role     roleResource `json:"role"`
	Deposit  int          `json:"deposit"`
}

func newUserResource(u *domain.User) userResource {
	return userResource{
		ID:       u.ID,
		Username: u.Username,
		Role:     roleResource{ID: u.RoleID, Name: domain.RoleNames[u.RoleID]},
		Deposit:  u.Deposit,
	}
}

type sellerResource struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}

type productResource struct {
	ID              int            `json:"id"`
	ProductName     string         `json:"productName"`
	AmountAvailable int            `json:"amountAvailable"`
	Cost            int            `json:"cost"`
	Seller          sellerResource `json:"seller"`
}

func (h *Handler) newProductResource(r *http.Request, p *domain.Product) productResource {
	sellerName, err := h.service.SellerName(r.Context(), p.SellerID)
	if err != nil {
		sellerName = ""
	}
	return productResource{
		ID:              p.ID,
		ProductName:     p.Name,
		AmountAvailable: p.AmountAvailable,
		Cost:            p.Cost,
		Seller:          sellerResource{ID: p.SellerID, Username: sellerName},
	}
}

type authRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) auth(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}
	user, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.fail(w, err)
		return
	}
	token, err := mw.GenerateJWT(user.ID, user.RoleID)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeSuccess(w, map[string]interface{}{"token": token})
}

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	RoleID   *int   `json:"role_id"`
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}
	if req.Username == "" {
		writeError(w, http.StatusBadRequest, "the username field is required")
		return
	}
	if req.Password == "" {
		writeError(w, http.StatusBadRequest, "the password field is required")
		return
	}
	if req.RoleID == nil {
		writeError(w, http.StatusBadRequest, "the role_id field is required")
		return
	}
	user, err := h.service.Register(r.Context(), req.Username, req.Password, *req.RoleID)
	if err != nil {
		h.fail(w, err)
		return
	}
	token, err := mw.GenerateJWT(user.ID, user.RoleID)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeSuccess(w, map[string]interface{}{
		"user":         newUserResource(user),
		"access_token": token,
	})
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context(), mw.MustGetUserID(r.Context()))
	if err != nil {
		h.fail(w, err)
		return
	}
	resources := make([]userResource, 0, len(users))
	for i := range users {
		resources = append(resources, newUserResource(&users[i]))
	}
	writeSuccess(w, map[string]interface{}{"resources": resources})
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	user, err := h.service.GetUser(r.Context(), mw.MustGetUserID(r.Context()), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeSuccess(w, map[string]interface{}{"resource": newUserResource(user)})
}

type updateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	RoleID   *int   `json:"role_id"`
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}
	if req.Username == "" {
		writeError(w, http.StatusBadRequest, "the username field is required")
		return
	}
	if req.RoleID == nil {
		writeError(w, http.StatusBadRequest, "the role_id field is required")
		return
	}
	err := h.service.UpdateUser(r.Context(), mw.MustGetUserID(r.Context()), id, req.Username, req.Password, *req.RoleID)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeSuccess(w, nil)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteUser(r.Context(), mw.MustGetUserID(r.Context()), id); err != nil {
		h.fail(w, err)
		return
	}
	writeSuccess(w, nil)
}

type depositRequest struct {
	Amount *int `json:"amount"`
}

func (h *Handler) deposit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}
	if req.Amount == nil {
		writeError(w, http.StatusBadRequest, "the amount field is required")
		return
	}
	newAmount, err := h.service.Deposit(r.Context(), mw.MustGetUserID(r.Context()), id, *req.Amount)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeSuccess(w, map[string]interface{}{"newAmount": newAmount})
}

type buyRequest struct {
	ProductID        *int `json:"productId"`
	AmountOfProducts *int `json:"amountOfProducts"`
}

func (h *Handler) buy(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req buyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}
	if req.ProductID == nil {
		writeError(w, http.StatusBadRequest, "the productId field is required")
		return
	}
	if req.AmountOfProducts == nil {
		writeError(w, http.StatusBadRequest, "the amountOfProducts field is required")
		return
	}
	receipt, err := h.service.Buy(r.Context(), mw.MustGetUserID(r.Context()), id, *req.ProductID, *req.AmountOfProducts)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeSuccess(w, map[string]interface{}{
		"totalSpent":         receipt.TotalSpent,
		"newAmountAvailable": receipt.RemainingDeposit,
		"productBought": map[string]interface{}{
			"id":   receipt.ProductID,
			"name": receipt.ProductName,
		},
		"change": receipt.Change,
	})
}

func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.Reset(r.Context(), mw.MustGetUserID(r.Context()), id); err != nil {
		h.fail(w, err)
		return
	}
	writeSuccess(w, nil)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListProducts(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	resources := make([]productResource, 0, len(products))
	for i := range products {
		resources = append(resources, h.newProductResource(r, &products[i]))
	}
	writeSuccess(w, map[string]interface{}{"resources": resources})
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	product, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeSuccess(w, map[string]interface{}{"resource": h.newProductResource(r, product)})
}

type productRequest struct {
	ProductName     string `json:"productName"`
	AmountAvailable *int   `json:"amountAvailable"`
	Cost            *int   `json:"cost"`
}

func decodeProductRequest(w http.ResponseWriter, r *http.Request) (*productRequest, bool) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return nil, false
	}
	if req.ProductName == "" {
		writeError(w, http.StatusBadRequest, "the productName field is required")
		return nil, false
	}
	if req.AmountAvailable == nil {
		writeError(w, http.StatusBadRequest, "the amountAvailable field is required")
		return nil, false
	}
	if req.Cost == nil {
		writeError(w, http.StatusBadRequest, "the cost field is required")
		return nil, false
	}
	return &req, true
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeProductRequest(w, r)
	if !ok {
		return
	}
	_, err := h.service.CreateProduct(r.Context(), mw.MustGetUserID(r.Context()), req.ProductName, *req.AmountAvailable, *req.Cost)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeSuccess(w, nil)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	req, ok := decodeProductRequest(w, r)
	if !ok {
		return
	}
	err := h.service.UpdateProduct(r.Context(), mw.MustGetUserID(r.Context()), id, req.ProductName, *req.AmountAvailable, *req.Cost)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeSuccess(w, nil)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteProduct(r.Context(), mw.MustGetUserID(r.Context()), id); err != nil {
		h.fail(w, err)
		return
	}
	writeSuccess(w, nil)
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

// fail maps domain and usecase errors to statuses; the body always carries
// the {success:false, error} envelope.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	var fundsErr *domain.InsufficientFundsError
	var stockErr *domain.InsufficientStockError

	switch {
	case errors.Is(err, usecase.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, usecase.ErrUserNotFound), errors.Is(err, usecase.ErrProductNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, usecase.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, usecase.ErrUsernameTaken),
		errors.Is(err, usecase.ErrWeakPassword),
		errors.Is(err, usecase.ErrInvalidRole),
		errors.Is(err, usecase.ErrNegativeStock),
		errors.Is(err, domain.ErrInvalidDenomination),
		errors.Is(err, domain.ErrInvalidCost),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.As(err, &fundsErr),
		errors.As(err, &stockErr):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeSuccess(w http.ResponseWriter, extra map[string]interface{}) {
	body := map[string]interface{}{"success": true}
	for k, v := range extra {
		body[k] = v
	}
	writeJSON(w, http.StatusOK, body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{"success": false, "error": msg})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
