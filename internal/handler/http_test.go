package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j8n/vending-machine-backend-challenge/internal/domain"
	"github.com/j8n/vending-machine-backend-challenge/internal/handler/mw"
	"github.com/j8n/vending-machine-backend-challenge/internal/usecase"
)

type memRepo struct {
	users    map[int]*domain.User
	products map[int]*domain.Product
	nextU    int
	nextP    int
}

func newMemRepo() *memRepo {
	return &memRepo{users: map[int]*domain.User{}, products: map[int]*domain.Product{}}
}

func (m *memRepo) CreateUser(_ context.Context, username, hash string, roleID int) (int, error) {
	m.nextU++
	m.users[m.nextU] = &domain.User{ID: m.nextU, Username: username, PasswordHash: hash, RoleID: roleID}
	return m.nextU, nil
}

func (m *memRepo) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memRepo) GetUserByID(_ context.Context, id int) (*domain.User, error) {
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (m *memRepo) ListUsers(_ context.Context) ([]domain.User, error) {
	var res []domain.User
	for i := 1; i <= m.nextU; i++ {
		if u, ok := m.users[i]; ok {
			res = append(res, *u)
		}
	}
	return res, nil
}

func (m *memRepo) UpdateUser(_ context.Context, u *domain.User) error {
	stored, ok := m.users[u.ID]
	if !ok {
		return errors.New("user not found")
	}
	cp := *u
	cp.Deposit = stored.Deposit
	m.users[u.ID] = &cp
	return nil
}

func (m *memRepo) UpdateUserDeposit(_ context.Context, id, deposit int) error {
	u, ok := m.users[id]
	if !ok {
		return errors.New("user not found")
	}
	u.Deposit = deposit
	return nil
}

func (m *memRepo) DeleteUser(_ context.Context, id int) error {
	delete(m.users, id)
	return nil
}

func (m *memRepo) CreateProduct(_ context.Context, p *domain.Product) (int, error) {
	m.nextP++
	cp := *p
	cp.ID = m.nextP
	m.products[cp.ID] = &cp
	return cp.ID, nil
}

func (m *memRepo) GetProductByID(_ context.Context, id int) (*domain.Product, error) {
	if p, ok := m.products[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (m *memRepo) ListProducts(_ context.Context) ([]domain.Product, error) {
	var res []domain.Product
	for i := 1; i <= m.nextP; i++ {
		if p, ok := m.products[i]; ok {
			res = append(res, *p)
		}
	}
	return res, nil
}

func (m *memRepo) UpdateProduct(_ context.Context, p *domain.Product) error {
	if _, ok := m.products[p.ID]; !ok {
		return errors.New("product not found")
	}
	cp := *p
	m.products[p.ID] = &cp
	return nil
}

func (m *memRepo) DeleteProduct(_ context.Context, id int) error {
	delete(m.products, id)
	return nil
}

func (m *memRepo) PurchaseTx(_ context.Context, buyerID, productID, quantity int) (*domain.Receipt, error) {
	buyer, ok := m.users[buyerID]
	if !ok {
		return nil, errors.New("buyer not found")
	}
	product, ok := m.products[productID]
	if !ok {
		return nil, errors.New("product not found")
	}
	buyerCp, productCp := *buyer, *product
	receipt, err := domain.ExecutePurchase(&buyerCp, &productCp, quantity)
	if err != nil {
		return nil, err
	}
	*buyer, *product = buyerCp, productCp
	return receipt, nil
}

type env struct {
	srv  *httptest.Server
	repo *memRepo
}

func newEnv(t *testing.T) *env {
	t.Helper()
	mw.SetSecretKey([]byte("test-secret"))
	repo := newMemRepo()
	h := NewHandler(usecase.NewService(repo))
	r := chi.NewRouter()
	h.Register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &env{srv: srv, repo: repo}
}

func (e *env) do(t *testing.T, method, path, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var decoded map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func (e *env) register(t *testing.T, username string, roleID int) string {
	t.Helper()
	resp, body := e.do(t, http.MethodPost, "/api/users", "", map[string]interface{}{
		"username": username, "password": "longenough", "role_id": roleID,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token, _ := body["access_token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestCreateUser(t *testing.T) {
	e := newEnv(t)

	resp, body := e.do(t, http.MethodPost, "/api/users", "", map[string]interface{}{
		"username": "alice", "password": "longenough", "role_id": domain.RoleBuyer,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["access_token"])
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "alice", user["username"])
	assert.Equal(t, "BUYER", user["role"].(map[string]interface{})["name"])
	assert.Equal(t, float64(0), user["deposit"])

	// ADMIN is not an assignable role.
	resp, body = e.do(t, http.MethodPost, "/api/users", "", map[string]interface{}{
		"username": "root", "password": "longenough", "role_id": domain.RoleAdmin,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "role provided is not correct", body["error"])

	resp, body = e.do(t, http.MethodPost, "/api/users", "", map[string]interface{}{
		"username": "bob", "password": "longenough",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "the role_id field is required", body["error"])
}

func TestAuthRequired(t *testing.T) {
	e := newEnv(t)

	resp, _ := e.do(t, http.MethodGet, "/api/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = e.do(t, http.MethodPost, "/api/products", "garbage-token", map[string]interface{}{})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProductEndpoints(t *testing.T) {
	e := newEnv(t)
	sellerToken := e.register(t, "seller", domain.RoleSeller)
	buyerToken := e.register(t, "buyer", domain.RoleBuyer)

	// Buyers cannot create products.
	resp, body := e.do(t, http.MethodPost, "/api/products", buyerToken, map[string]interface{}{
		"productName": "cola", "amountAvailable": 10, "cost": 100,
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Forbidden", body["error"])

	resp, body = e.do(t, http.MethodPost, "/api/products", sellerToken, map[string]interface{}{
		"productName": "cola", "amountAvailable": 10, "cost": 17,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "multiples of 5")

	resp, _ = e.do(t, http.MethodPost, "/api/products", sellerToken, map[string]interface{}{
		"productName": "cola", "amountAvailable": 10, "cost": 100,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Product reads are public.
	resp, body = e.do(t, http.MethodGet, "/api/products", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resources := body["resources"].([]interface{})
	require.Len(t, resources, 1)
	product := resources[0].(map[string]interface{})
	assert.Equal(t, "cola", product["productName"])
	assert.Equal(t, "seller", product["seller"].(map[string]interface{})["username"])

	resp, _ = e.do(t, http.MethodGet, "/api/products/999", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDepositAndBuy(t *testing.T) {
	e := newEnv(t)
	sellerToken := e.register(t, "seller", domain.RoleSeller)
	buyerToken := e.register(t, "buyer", domain.RoleBuyer)

	resp, _ := e.do(t, http.MethodPost, "/api/products", sellerToken, map[string]interface{}{
		"productName": "cola", "amountAvailable": 10, "cost": 100,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// seller is user 1, buyer is user 2
	resp, body := e.do(t, http.MethodPost, "/api/users/2/deposit", buyerToken, map[string]interface{}{"amount": 15})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "Valid amounts are: 5, 10, 20, 50, 100")

	// Depositing into someone else's account is denied.
	resp, body = e.do(t, http.MethodPost, "/api/users/2/deposit", sellerToken, map[string]interface{}{"amount": 5})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Forbidden", body["error"])

	for _, c := range []int{100, 100, 20, 10} {
		resp, body = e.do(t, http.MethodPost, "/api/users/2/deposit", buyerToken, map[string]interface{}{"amount": c})
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	assert.Equal(t, float64(230), body["newAmount"])

	resp, body = e.do(t, http.MethodPost, "/api/users/2/buy", buyerToken, map[string]interface{}{
		"productId": 1, "amountOfProducts": 2,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(200), body["totalSpent"])
	assert.Equal(t, float64(0), body["newAmountAvailable"])
	assert.Equal(t, "cola", body["productBought"].(map[string]interface{})["name"])
	change := body["change"].(map[string]interface{})
	assert.Equal(t, float64(1), change["20"])
	assert.Equal(t, float64(1), change["10"])
	assert.Equal(t, float64(0), change["100"])

	// Buyer is broke now; a second purchase fails with the amount needed.
	resp, body = e.do(t, http.MethodPost, "/api/users/2/buy", buyerToken, map[string]interface{}{
		"productId": 1, "amountOfProducts": 1,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "Amount needed: 100")

	resp, _ = e.do(t, http.MethodPost, "/api/users/2/reset", buyerToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUserVisibility(t *testing.T) {
	e := newEnv(t)
	aliceToken := e.register(t, "alice", domain.RoleBuyer)
	e.register(t, "bob", domain.RoleBuyer)

	resp, _ := e.do(t, http.MethodGet, "/api/users", aliceToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := e.do(t, http.MethodGet, "/api/users/1", aliceToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alice", body["resource"].(map[string]interface{})["username"])

	resp, _ = e.do(t, http.MethodGet, "/api/users/2", aliceToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
