package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    email         TEXT NOT NULL DEFAULT '',
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'requestor' CHECK (role IN ('admin', 'clerk', 'requestor')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS items (
    id                INTEGER PRIMARY KEY,
    name              TEXT NOT NULL,
    serial_number     TEXT,
    category          TEXT NOT NULL DEFAULT '',
    condition         TEXT NOT NULL DEFAULT 'Serviceable'
                      CHECK (condition IN ('Serviceable', 'Not Serviceable', 'Not working', 'Good', 'Fair', 'Poor')),
    status            TEXT NOT NULL DEFAULT 'In Stock'
                      CHECK (status IN ('Pending', 'In Stock', 'Issued', 'Returned', 'Low Stock', 'Out of Stock')),
    expiration_date   DATETIME,
    quantity_total    INTEGER NOT NULL DEFAULT 0 CHECK (quantity_total >= 0),
    quantity_issued   INTEGER NOT NULL DEFAULT 0 CHECK (quantity_issued >= 0 AND quantity_issued <= quantity_total),
    quantity_returned INTEGER NOT NULL DEFAULT 0 CHECK (quantity_returned >= 0),
    image             BLOB,
    image_mime        TEXT,
    created_by        INTEGER REFERENCES users(id),
    created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at        DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_items_serial_number
    ON items(serial_number) WHERE serial_number IS NOT NULL AND serial_number != '';

CREATE TABLE IF NOT EXISTS requests (
    id                INTEGER PRIMARY KEY,
    item_id           INTEGER NOT NULL REFERENCES items(id) ON DELETE CASCADE,
    requestor_id      INTEGER NOT NULL REFERENCES users(id),
    quantity          INTEGER NOT NULL CHECK (quantity > 0),
    reason            TEXT NOT NULL DEFAULT '',
    status            TEXT NOT NULL DEFAULT 'Pending'
                      CHECK (status IN ('Pending', 'Approved', 'Rejected', 'Cancelled', 'Issued', 'Partially Returned', 'Fully Returned')),
    returned_quantity INTEGER NOT NULL DEFAULT 0 CHECK (returned_quantity >= 0 AND returned_quantity <= quantity),
    application_date  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    date_requested    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    date_issued       DATETIME
);

CREATE INDEX IF NOT EXISTS idx_requests_requestor ON requests(requestor_id);
CREATE INDEX IF NOT EXISTS idx_requests_status ON requests(status);

CREATE TABLE IF NOT EXISTS stock_transactions (
    id               INTEGER PRIMARY KEY,
    item_id          INTEGER NOT NULL REFERENCES items(id) ON DELETE CASCADE,
    request_id       INTEGER REFERENCES requests(id) ON DELETE SET NULL,
    transaction_type TEXT NOT NULL CHECK (transaction_type IN ('Issue', 'Adjustment', 'Return', 'Receive')),
    quantity         INTEGER NOT NULL,
    issued_to        TEXT NOT NULL DEFAULT '',
    reason           TEXT NOT NULL DEFAULT '',
    recorded_by      INTEGER REFERENCES users(id),
    transaction_date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_stock_transactions_item ON stock_transactions(item_id);
CREATE INDEX IF NOT EXISTS idx_stock_transactions_request ON stock_transactions(request_id);

CREATE TABLE IF NOT EXISTS notifications (
    id         INTEGER PRIMARY KEY,
    user_id    INTEGER NOT NULL REFERENCES users(id),
    event      TEXT NOT NULL,
    item_name  TEXT NOT NULL DEFAULT '',
    context    TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    sent_at    DATETIME
);

CREATE INDEX IF NOT EXISTS idx_notifications_pending ON notifications(id) WHERE sent_at IS NULL;

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
