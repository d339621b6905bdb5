package usecase

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/j8n/vending-machine-backend-challenge/internal/domain"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("the username has already been taken")
	ErrWeakPassword       = errors.New("the password must be at least 8 characters")
	ErrInvalidRole        = errors.New("role provided is not correct")
	ErrUserNotFound       = errors.New("user not found")
	ErrProductNotFound    = errors.New("product not found")
	ErrNegativeStock      = errors.New("amount available must not be negative")
)

type Repository interface {
	CreateUser(ctx context.Context, username, passwordHash string, roleID int) (int, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	GetUserByID(ctx context.Context, id int) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	UpdateUser(ctx context.Context, u *domain.User) error
	UpdateUserDeposit(ctx context.Context, userID int, newDeposit int) error
	DeleteUser(ctx context.Context, id int) error

	CreateProduct(ctx context.Context, p *domain.Product) (int, error)
	GetProductByID(ctx context.Context, id int) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	UpdateProduct(ctx context.Context, p *domain.Product) error
	DeleteProduct(ctx context.Context, id int) error

	PurchaseTx(ctx context.Context, buyerID, productID, quantity int) (*domain.Receipt, error)
}

type Service struct {
	repo Repository
}

func NewService(r Repository) *Service {
	return &Service{repo: r}
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return ErrWeakPassword
	}
	return nil
}

// actor loads the authenticated caller. A valid token for a user that no
// longer exists is treated as a plain authorization failure.
func (s *Service) actor(ctx context.Context, actorID int) (*domain.User, error) {
	u, err := s.repo.GetUserByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrForbidden
	}
	return u, nil
}

func (s *Service) Register(ctx context.Context, username, password string, roleID int) (*domain.User, error) {
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	if !domain.IsAssignableRole(roleID) {
		return nil, ErrInvalidRole
	}
	existing, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUsernameTaken
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	newID, err := s.repo.CreateUser(ctx, username, string(hashed), roleID)
	if err != nil {
		return nil, err
	}
	return s.repo.GetUserByID(ctx, newID)
}

func (s *Service) Login(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *Service) ListUsers(ctx context.Context, actorID int) ([]domain.User, error) {
	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if err := Authorize(actor, ActionListUsers, 0); err != nil {
		return nil, err
	}
	return s.repo.ListUsers(ctx)
}

func (s *Service) GetUser(ctx context.Context, actorID, id int) (*domain.User, error) {
	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	target, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, ErrUserNotFound
	}
	if err := Authorize(actor, ActionViewUser, target.ID); err != nil {
		return nil, err
	}
	return target, nil
}

// UpdateUser replaces username, password and role. An empty password keeps
// the current hash.
func (s *Service) UpdateUser(ctx context.Context, actorID, id int, username, password string, roleID int) error {
	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return err
	}
	target, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	if target == nil {
		return ErrUserNotFound
	}
	if err := Authorize(actor, ActionUpdateUser, target.ID); err != nil {
		return err
	}
	if !domain.IsAssignableRole(roleID) {
		return ErrInvalidRole
	}
	if username != target.Username {
		existing, err := s.repo.GetUserByUsername(ctx, username)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrUsernameTaken
		}
	}
	if password != "" {
		if err := validatePassword(password); err != nil {
			return err
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		target.PasswordHash = string(hashed)
	}
	target.Username = username
	target.RoleID = roleID
	return s.repo.UpdateUser(ctx, target)
}

func (s *Service) DeleteUser(ctx context.Context, actorID, id int) error {
	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return err
	}
	target, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	if target == nil {
		return ErrUserNotFound
	}
	if err := Authorize(actor, ActionDeleteUser, target.ID); err != nil {
		return err
	}
	return s.repo.DeleteUser(ctx, id)
}

// Deposit adds one coin to the target account and returns the new balance.
func (s *Service) Deposit(ctx context.Context, actorID, id, amount int) (int, error) {
	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return 0, err
	}
	target, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return 0, err
	}
	if target == nil {
		return 0, ErrUserNotFound
	}
	if err := Authorize(actor, ActionDeposit, target.ID); err != nil {
		return 0, err
	}
	if err := target.DepositCoin(amount); err != nil {
		return 0, err
	}
	if err := s.repo.UpdateUserDeposit(ctx, target.ID, target.Deposit); err != nil {
		return 0, err
	}
	return target.Deposit, nil
}

// Buy runs the purchase protocol. Stock and funds are validated and both
// rows mutated inside one repository transaction; nothing is persisted if
// any step fails.
func (s *Service) Buy(ctx context.Context, actorID, id, productID, quantity int) (*domain.Receipt, error) {
	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	target, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, ErrUserNotFound
	}
	if err := Authorize(actor, ActionBuy, target.ID); err != nil {
		return nil, err
	}
	product, err := s.repo.GetProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	if quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	return s.repo.PurchaseTx(ctx, target.ID, product.ID, quantity)
}

func (s *Service) Reset(ctx context.Context, actorID, id int) error {
	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return err
	}
	target, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	if target == nil {
		return ErrUserNotFound
	}
	if err := Authorize(actor, ActionReset, target.ID); err != nil {
		return err
	}
	target.ResetDeposit()
	return s.repo.UpdateUserDeposit(ctx, target.ID, target.Deposit)
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) GetProduct(ctx context.Context, id int) (*domain.Product, error) {
	p, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProductNotFound
	}
	return p, nil
}

// SellerName resolves the owning seller's username for product responses.
// A dangling seller id (seller deleted, no cascade) yields an empty name.
func (s *Service) SellerName(ctx context.Context, sellerID int) (string, error) {
	u, err := s.repo.GetUserByID(ctx, sellerID)
	if err != nil {
		return "", err
	}
	if u == nil {
		return "", nil
	}
	return u.Username, nil
}

func (s *Service) CreateProduct(ctx context.Context, actorID int, name string, amountAvailable, cost int) (int, error) {
	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return 0, err
	}
	if err := Authorize(actor, ActionCreateProduct, 0); err != nil {
		return 0, err
	}
	if amountAvailable < 0 {
		return 0, ErrNegativeStock
	}
	if err := domain.ValidateCost(cost); err != nil {
		return 0, err
	}
	return s.repo.CreateProduct(ctx, &domain.Product{
		Name:            name,
		AmountAvailable: amountAvailable,
		Cost:            cost,
		SellerID:        actor.ID,
	})
}

func (s *Service) UpdateProduct(ctx context.Context, actorID, id int, name string, amountAvailable, cost int) error {
	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return err
	}
	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return err
	}
	if product == nil {
		return ErrProductNotFound
	}
	if err := Authorize(actor, ActionUpdateProduct, product.SellerID); err != nil {
		return err
	}
	if amountAvailable < 0 {
		return ErrNegativeStock
	}
	if err := domain.ValidateCost(cost); err != nil {
		return err
	}
	product.Name = name
	product.AmountAvailable = amountAvailable
	product.Cost = cost
	return s.repo.UpdateProduct(ctx, product)
}

func (s *Service) DeleteProduct(ctx context.Context, actorID, id int) error {
	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return err
	}
	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return err
	}
	if product == nil {
		return ErrProductNotFound
	}
	if err := Authorize(actor, ActionDeleteProduct, product.SellerID); err != nil {
		return err
	}
	return s.repo.DeleteProduct(ctx, id)
}
