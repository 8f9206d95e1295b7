package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"book-checkout/internal/config"
	"book-checkout/internal/database"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

// seedCheckoutData creates the checkout schema and inserts a small sample
// catalogue for local development: an admin, one verified author with two
// books in stock, a customer with an open cart, and a 10% discount code.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := config.NewLogger(cfg.Logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if err := createSchema(ctx, pool); err != nil {
		log.Fatalf("Failed to create schema: %v", err)
	}
	fmt.Println("Schema created")

	if err := seedData(ctx, pool); err != nil {
		log.Fatalf("Failed to seed data: %v", err)
	}

	fmt.Println("\nSample checkout data created successfully!")
	fmt.Println("\nUsers:")
	fmt.Println("  - ADM   (admin)")
	fmt.Println("  - AUTH1 (author, verified payment profile author@bank)")
	fmt.Println("  - U1    (customer, open cart C1 with 2x B1 + 1x B2)")
	fmt.Println("\nDiscount codes:")
	fmt.Println("  - SAVE10 (10% off, valid for 30 days)")
}

func createSchema(ctx context.Context, pool *pgxpool.Pool) error {
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
	return err
}

func seedData(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []struct {
		label string
		query string
		args  []interface{}
	}{
		{"user ADM", "INSERT INTO users (id, role) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING", []interface{}{"ADM", "admin"}},
		{"user AUTH1", "INSERT INTO users (id, role) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING", []interface{}{"AUTH1", "author"}},
		{"user U1", "INSERT INTO users (id, role) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING", []interface{}{"U1", "customer"}},
		{
			"book B1",
			"INSERT INTO books (id, title, price, stock, created_by) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (id) DO NOTHING",
			[]interface{}{"B1", "The First Volume", 10.00, 5, "AUTH1"},
		},
		{
			"book B2",
			"INSERT INTO books (id, title, price, stock, created_by) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (id) DO NOTHING",
			[]interface{}{"B2", "The Second Volume", 5.00, 3, "AUTH1"},
		},
		{
			"book B3",
			"INSERT INTO books (id, title, price, stock, created_by) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (id) DO NOTHING",
			[]interface{}{"B3", "Collected Essays", 19.99, 1, "ADM"},
		},
		{
			"seller profile AUTH1",
			"INSERT INTO seller_payment_profiles (user_id, account_id, merchant_name, merchant_city, acquiring_bank, verified) VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (user_id) DO NOTHING",
			[]interface{}{"AUTH1", "author@bank", "Author Shop", "Siem Reap", "Author Bank", true},
		},
		{"cart C1", "INSERT INTO carts (id, user_id, status) VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING", []interface{}{"C1", "U1", "open"}},
		{
			"cart item B1",
			"INSERT INTO cart_items (cart_id, book_id, quantity) VALUES ($1, $2, $3) ON CONFLICT (cart_id, book_id) DO NOTHING",
			[]interface{}{"C1", "B1", 2},
		},
		{
			"cart item B2",
			"INSERT INTO cart_items (cart_id, book_id, quantity) VALUES ($1, $2, $3) ON CONFLICT (cart_id, book_id) DO NOTHING",
			[]interface{}{"C1", "B2", 1},
		},
		{
			"discount SAVE10",
			"INSERT INTO discount_codes (id, code, percent, min_order_amount, max_uses, per_user_limit, starts_at, expires_at) VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW() + INTERVAL '30 days') ON CONFLICT (id) DO NOTHING",
			[]interface{}{"D1", "SAVE10", 10.0, 0.0, 0, 0},
		},
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt.query, stmt.args...); err != nil {
			return fmt.Errorf("failed to seed %s: %w", stmt.label, err)
		}
		fmt.Printf("Seeded %s\n", stmt.label)
	}

	return nil
}
