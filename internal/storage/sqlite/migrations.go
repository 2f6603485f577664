package sqlite

import "database/sql"

// schema contains the SQL statements to set up the database.
// These run on startup to ensure tables exist. All monetary columns are
// INTEGER usd6 (micro-dollars); REAL is never used for money.
const schema = `
CREATE TABLE IF NOT EXISTS orders (
    id TEXT PRIMARY KEY,
    restaurant_id TEXT NOT NULL,
    customer_id TEXT NOT NULL,
    amount_usd6 INTEGER NOT NULL,
    payment_method TEXT NOT NULL,
    status TEXT NOT NULL,
    fail_reason TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS settlement_records (
    order_id TEXT PRIMARY KEY,
    restaurant_id TEXT NOT NULL,
    fee_usd6 INTEGER NOT NULL,
    net_usd6 INTEGER NOT NULL,
    fee_recipient TEXT NOT NULL,
    settled_at INTEGER NOT NULL,
    FOREIGN KEY (order_id) REFERENCES orders(id)
);

CREATE TABLE IF NOT EXISTS accounts (
    id TEXT PRIMARY KEY,
    balance_usd6 INTEGER NOT NULL DEFAULT 0,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS investor_positions (
    investor_id TEXT NOT NULL,
    restaurant_id TEXT NOT NULL,
    invested_usd6 INTEGER NOT NULL DEFAULT 0,
    ownership_bps INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    PRIMARY KEY (investor_id, restaurant_id)
);

CREATE TABLE IF NOT EXISTS restaurant_valuations (
    restaurant_id TEXT PRIMARY KEY,
    total_invested_usd6 INTEGER NOT NULL DEFAULT 0,
    net_profit_usd6 INTEGER NOT NULL DEFAULT 0,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS dividend_claims (
    id TEXT PRIMARY KEY,
    investor_id TEXT NOT NULL,
    restaurant_id TEXT NOT NULL,
    amount_usd6 INTEGER NOT NULL,
    claimed_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS credit_lines (
    restaurant_id TEXT NOT NULL,
    supplier_id TEXT NOT NULL,
    limit_usd6 INTEGER NOT NULL,
    terms_hash TEXT NOT NULL,
    updated_at INTEGER NOT NULL,
    PRIMARY KEY (restaurant_id, supplier_id)
);

CREATE TABLE IF NOT EXISTS invoices (
    id TEXT PRIMARY KEY,
    restaurant_id TEXT NOT NULL,
    supplier_id TEXT NOT NULL,
    amount_usd6 INTEGER NOT NULL,
    due_date INTEGER NOT NULL,
    status TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    paid_at INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_orders_restaurant_id ON orders(restaurant_id);
CREATE INDEX IF NOT EXISTS idx_settlements_restaurant_id ON settlement_records(restaurant_id);
CREATE INDEX IF NOT EXISTS idx_claims_investor_restaurant ON dividend_claims(investor_id, restaurant_id);
CREATE INDEX IF NOT EXISTS idx_positions_restaurant_id ON investor_positions(restaurant_id);
CREATE INDEX IF NOT EXISTS idx_invoices_line ON invoices(restaurant_id, supplier_id);
CREATE INDEX IF NOT EXISTS idx_invoices_status ON invoices(status);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
