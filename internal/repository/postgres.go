package repository

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"

	"github.com/j8n/vending-machine-backend-challenge/internal/domain"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(dsn string) (*PostgresRepo, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("cannot ping db: %w", err)
	}
	return &PostgresRepo{db: db}, nil
}

// InitSchema creates the tables and seeds the fixed roles. Safe to run on
// every startup.
func (r *PostgresRepo) InitSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS roles (
			id   SERIAL PRIMARY KEY,
			name TEXT UNIQUE NOT NULL
		);`,
		`INSERT INTO roles (id, name) VALUES (1, 'ADMIN'), (2, 'BUYER'), (3, 'SELLER')
		 ON CONFLICT (id) DO NOTHING;`,
		`CREATE TABLE IF NOT EXISTS users (
			id            SERIAL PRIMARY KEY,
			username      TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			role_id       INT NOT NULL REFERENCES roles (id),
			deposit       INT NOT NULL DEFAULT 0 CHECK (deposit >= 0)
		);`,
		`CREATE TABLE IF NOT EXISTS products (
			id               SERIAL PRIMARY KEY,
			product_name     TEXT NOT NULL,
			amount_available INT NOT NULL CHECK (amount_available >= 0),
			cost             INT NOT NULL CHECK (cost > 0),
			seller_id        INT NOT NULL REFERENCES users (id)
		);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "repo: InitSchema")
		}
	}
	return nil
}

func (r *PostgresRepo) CreateUser(ctx context.Context, username, passwordHash string, roleID int) (int, error) {
	query := `INSERT INTO users (username, password_hash, role_id, deposit) VALUES ($1, $2, $3, 0) RETURNING id;`
	var newID int
	if err := r.db.QueryRowContext(ctx, query, username, passwordHash, roleID).Scan(&newID); err != nil {
		return 0, errors.Wrap(err, "repo: CreateUser")
	}
	return newID, nil
}

func (r *PostgresRepo) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT id, username, password_hash, role_id, deposit FROM users WHERE username = $1;`
	row := r.db.QueryRowContext(ctx, query, username)
	u := &domain.User{}
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.RoleID, &u.Deposit); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Wrap(err, "repo: GetUserByUsername")
	}
	return u, nil
}

func (r *PostgresRepo) GetUserByID(ctx context.Context, id int) (*domain.User, error) {
	query := `SELECT id, username, password_hash, role_id, deposit FROM users WHERE id = $1;`
	row := r.db.QueryRowContext(ctx, query, id)
	u := &domain.User{}
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.RoleID, &u.Deposit); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Wrap(err, "repo: GetUserByID")
	}
	return u, nil
}

func (r *PostgresRepo) ListUsers(ctx context.Context) ([]domain.User, error) {
	query := `SELECT id, username, password_hash, role_id, deposit FROM users ORDER BY id;`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "repo: ListUsers")
	}
	defer rows.Close()

	var res []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.RoleID, &u.Deposit); err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

func (r *PostgresRepo) UpdateUser(ctx context.Context, u *domain.User) error {
	query := `UPDATE users SET username = $1, password_hash = $2, role_id = $3 WHERE id = $4;`
	res, err := r.db.ExecContext(ctx, query, u.Username, u.PasswordHash, u.RoleID, u.ID)
	if err != nil {
		return errors.Wrap(err, "repo: UpdateUser")
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return fmt.Errorf("no user updated, user_id=%d not found", u.ID)
	}
	return nil
}

func (r *PostgresRepo) UpdateUserDeposit(ctx context.Context, userID int, newDeposit int) error {
	query := `UPDATE users SET deposit = $1 WHERE id = $2;`
	res, err := r.db.ExecContext(ctx, query, newDeposit, userID)
	if err != nil {
		return errors.Wrap(err, "repo: UpdateUserDeposit")
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return fmt.Errorf("no user updated, user_id=%d not found", userID)
	}
	return nil
}

func (r *PostgresRepo) DeleteUser(ctx context.Context, id int) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1;`, id)
	if err != nil {
		return errors.Wrap(err, "repo: DeleteUser")
	}
	return nil
}

func (r *PostgresRepo) CreateProduct(ctx context.Context, p *domain.Product) (int, error) {
	query := `INSERT INTO products (product_name, amount_available, cost, seller_id)
	          VALUES ($1, $2, $3, $4) RETURNING id;`
	var newID int
	if err := r.db.QueryRowContext(ctx, query, p.Name, p.AmountAvailable, p.Cost, p.SellerID).Scan(&newID); err != nil {
		return 0, errors.Wrap(err, "repo: CreateProduct")
	}
	return newID, nil
}

func (r *PostgresRepo) GetProductByID(ctx context.Context, id int) (*domain.Product, error) {
	query := `SELECT id, product_name, amount_available, cost, seller_id FROM products WHERE id = $1;`
	row := r.db.QueryRowContext(ctx, query, id)
	p := &domain.Product{}
	if err := row.Scan(&p.ID, &p.Name, &p.AmountAvailable, &p.Cost, &p.SellerID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Wrap(err, "repo: GetProductByID")
	}
	return p, nil
}

func (r *PostgresRepo) ListProducts(ctx context.Context) ([]domain.Product, error) {
	query := `SELECT id, product_name, amount_available, cost, seller_id FROM products ORDER BY id;`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "repo: ListProducts")
	}
	defer rows.Close()

	var res []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.AmountAvailable, &p.Cost, &p.SellerID); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (r *PostgresRepo) UpdateProduct(ctx context.Context, p *domain.Product) error {
	query := `UPDATE products SET product_name = $1, amount_available = $2, cost = $3 WHERE id = $4;`
	res, err := r.db.ExecContext(ctx, query, p.Name, p.AmountAvailable, p.Cost, p.ID)
	if err != nil {
		return errors.Wrap(err, "repo: UpdateProduct")
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return fmt.Errorf("no product updated, product_id=%d not found", p.ID)
	}
	return nil
}

func (r *PostgresRepo) DeleteProduct(ctx context.Context, id int) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1;`, id)
	if err != nil {
		return errors.Wrap(err, "repo: DeleteProduct")
	}
	return nil
}

// PurchaseTx runs the whole purchase protocol in one transaction. Both rows
// are locked for the duration, so concurrent purchases against the same
// product serialize and cannot oversell, and a failed funds check rolls the
// stock decrement back. Domain errors come back unwrapped so the caller can
// map them.
func (r *PostgresRepo) PurchaseTx(ctx context.Context, buyerID, productID, quantity int) (*domain.Receipt, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "repo: PurchaseTx begin")
	}
	defer func() { _ = tx.Rollback() }()

	// Lock ordering is fixed (product, then user) so two purchases cannot
	// deadlock each other.
	p := &domain.Product{}
	row := tx.QueryRowContext(ctx,
		`SELECT id, product_name, amount_available, cost, seller_id FROM products WHERE id = $1 FOR UPDATE;`,
		productID)
	if err := row.Scan(&p.ID, &p.Name, &p.AmountAvailable, &p.Cost, &p.SellerID); err != nil {
		return nil, errors.Wrap(err, "repo: PurchaseTx lock product")
	}

	u := &domain.User{}
	row = tx.QueryRowContext(ctx,
		`SELECT id, username, password_hash, role_id, deposit FROM users WHERE id = $1 FOR UPDATE;`,
		buyerID)
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.RoleID, &u.Deposit); err != nil {
		return nil, errors.Wrap(err, "repo: PurchaseTx lock user")
	}

	receipt, err := domain.ExecutePurchase(u, p, quantity)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE products SET amount_available = $1 WHERE id = $2;`, p.AmountAvailable, p.ID); err != nil {
		return nil, errors.Wrap(err, "repo: PurchaseTx update product")
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET deposit = $1 WHERE id = $2;`, u.Deposit, u.ID); err != nil {
		return nil, errors.Wrap(err, "repo: PurchaseTx update user")
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "repo: PurchaseTx commit")
	}
	return receipt, nil
}
