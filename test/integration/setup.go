package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB creates a PostgreSQL test container and connection pool.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	// Create PostgreSQL container
	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	// Get connection string
	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		t.Fatalf("failed to parse connection string: %v", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}

	// Create schema
	createSchema(t, pool)

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// createSchema creates the database schema for testing.
func createSchema(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	schema := `
		CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(50) PRIMARY KEY,
			role VARCHAR(20) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS books (
			id VARCHAR(50) PRIMARY KEY,
			title VARCHAR(255) NOT NULL,
			price DECIMAL(10, 2) NOT NULL CHECK (price >= 0),
			stock INTEGER NOT NULL CHECK (stock >= 0),
			created_by VARCHAR(50) NOT NULL REFERENCES users(id),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS seller_payment_profiles (
			user_id VARCHAR(50) PRIMARY KEY REFERENCES users(id),
			account_id VARCHAR(100) NOT NULL,
			merchant_name VARCHAR(255) NOT NULL,
			merchant_city VARCHAR(100) NOT NULL,
			acquiring_bank VARCHAR(100) NOT NULL,
			verified BOOLEAN NOT NULL DEFAULT FALSE
		);

		CREATE TABLE IF NOT EXISTS carts (
			id VARCHAR(50) PRIMARY KEY,
			user_id VARCHAR(50) NOT NULL REFERENCES users(id),
			status VARCHAR(20) NOT NULL DEFAULT 'open'
		);

		CREATE TABLE IF NOT EXISTS cart_items (
			cart_id VARCHAR(50) NOT NULL REFERENCES carts(id) ON DELETE CASCADE,
			book_id VARCHAR(50) NOT NULL REFERENCES books(id),
			quantity INTEGER NOT NULL CHECK (quantity > 0),
			added_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (cart_id, book_id)
		);

		CREATE TABLE IF NOT EXISTS discount_codes (
			id VARCHAR(50) PRIMARY KEY,
			code VARCHAR(50) NOT NULL UNIQUE,
			percent DOUBLE PRECISION NOT NULL CHECK (percent > 0 AND percent <= 100),
			min_order_amount DECIMAL(10, 2) NOT NULL DEFAULT 0,
			max_uses INTEGER NOT NULL DEFAULT 0,
			per_user_limit INTEGER NOT NULL DEFAULT 0,
			used_count INTEGER NOT NULL DEFAULT 0,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			starts_at TIMESTAMPTZ NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL
		);

		CREATE TABLE IF NOT EXISTS orders (
			id UUID PRIMARY KEY,
			reservation_id VARCHAR(100) NOT NULL,
			user_id VARCHAR(50) NOT NULL,
			subtotal DECIMAL(10, 2) NOT NULL,
			shipping_cost DECIMAL(10, 2) NOT NULL DEFAULT 0,
			tax_amount DECIMAL(10, 2) NOT NULL DEFAULT 0,
			discount_amount DECIMAL(10, 2) NOT NULL DEFAULT 0,
			total_amount DECIMAL(10, 2) NOT NULL,
			status VARCHAR(20) NOT NULL,
			payment_method VARCHAR(20) NOT NULL,
			payment_status VARCHAR(20) NOT NULL,
			payment_transaction_id VARCHAR(100) NOT NULL,
			discount_code_id VARCHAR(50),
			shipping_address JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_reservation_id ON orders(reservation_id);

		CREATE TABLE IF NOT EXISTS order_items (
			id UUID PRIMARY KEY,
			order_id UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
			book_id VARCHAR(50) NOT NULL REFERENCES books(id),
			quantity INTEGER NOT NULL CHECK (quantity > 0),
			unit_price DECIMAL(10, 2) NOT NULL,
			line_total DECIMAL(10, 2) NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id);

		CREATE TABLE IF NOT EXISTS discount_code_usages (
			id UUID PRIMARY KEY,
			discount_code_id VARCHAR(50) NOT NULL REFERENCES discount_codes(id),
			order_id UUID NOT NULL REFERENCES orders(id),
			user_id VARCHAR(50) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_discount_code_usages_code_user
			ON discount_code_usages(discount_code_id, user_id);
	`

	_, err := pool.Exec(ctx, schema)
	if err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
}

// SeedCheckoutData inserts the baseline users, books, cart and discount code
// the pipeline tests work against.
func SeedCheckoutData(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	statements := []struct {
		query string
		args  []interface{}
	}{
		{"INSERT INTO users (id, role) VALUES ($1, $2)", []interface{}{"ADM", "admin"}},
		{"INSERT INTO users (id, role) VALUES ($1, $2)", []interface{}{"AUTH1", "author"}},
		{"INSERT INTO users (id, role) VALUES ($1, $2)", []interface{}{"U1", "customer"}},
		{"INSERT INTO users (id, role) VALUES ($1, $2)", []interface{}{"U2", "customer"}},
		{
			"INSERT INTO books (id, title, price, stock, created_by) VALUES ($1, $2, $3, $4, $5)",
			[]interface{}{"B1", "The First Volume", 10.00, 5, "AUTH1"},
		},
		{
			"INSERT INTO books (id, title, price, stock, created_by) VALUES ($1, $2, $3, $4, $5)",
			[]interface{}{"B2", "The Second Volume", 5.00, 3, "AUTH1"},
		},
		{
			"INSERT INTO books (id, title, price, stock, created_by) VALUES ($1, $2, $3, $4, $5)",
			[]interface{}{"B3", "Collected Essays", 19.99, 1, "ADM"},
		},
		{
			"INSERT INTO seller_payment_profiles (user_id, account_id, merchant_name, merchant_city, acquiring_bank, verified) VALUES ($1, $2, $3, $4, $5, $6)",
			[]interface{}{"AUTH1", "author@bank", "Author Shop", "Siem Reap", "Author Bank", true},
		},
		{"INSERT INTO carts (id, user_id, status) VALUES ($1, $2, $3)", []interface{}{"C1", "U1", "open"}},
		{"INSERT INTO cart_items (cart_id, book_id, quantity) VALUES ($1, $2, $3)", []interface{}{"C1", "B1", 2}},
		{"INSERT INTO cart_items (cart_id, book_id, quantity) VALUES ($1, $2, $3)", []interface{}{"C1", "B2", 1}},
		{
			"INSERT INTO discount_codes (id, code, percent, min_order_amount, max_uses, per_user_limit, starts_at, expires_at) VALUES ($1, $2, $3, $4, $5, $6, NOW() - INTERVAL '1 hour', NOW() + INTERVAL '1 day')",
			[]interface{}{"D1", "SAVE10", 10.0, 0.0, 0, 0},
		},
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt.query, stmt.args...); err != nil {
			t.Fatalf("failed to seed checkout data: %v", err)
		}
	}
}

// CleanupDB cleans all data from test tables.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	tables := []string{
		"discount_code_usages", "order_items", "orders", "cart_items", "carts",
		"discount_codes", "seller_payment_profiles", "books", "users",
	}
	for _, table := range tables {
		_, err := pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}
}
