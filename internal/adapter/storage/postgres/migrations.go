package postgres

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Migration is one idempotent schema step.
type Migration struct {
	Name string
	Up   string
}

// Migrations create the ledger schema. Amounts are NUMERIC(39,0) so any
// signed 128-bit integer fits.
var Migrations = []Migration{
	{
		Name: "create_ledger_counters",
		Up: `
CREATE TABLE IF NOT EXISTS ledger_counters (
    name  TEXT PRIMARY KEY,
    value BIGINT NOT NULL DEFAULT 0
);`,
	},
	{
		Name: "create_role_assignments",
		Up: `
CREATE TABLE IF NOT EXISTS role_assignments (
    principal  TEXT NOT NULL,
    role       TEXT NOT NULL,
    granted_by TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (principal, role)
);`,
	},
	{
		Name: "create_merchants",
		Up: `
CREATE TABLE IF NOT EXISTS merchants (
    id         BIGINT PRIMARY KEY,
    address    TEXT NOT NULL UNIQUE,
    manager    TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`,
	},
	{
		Name: "create_invoices",
		Up: `
CREATE TABLE IF NOT EXISTS invoices (
    id           BIGINT PRIMARY KEY,
    merchant_id  BIGINT NOT NULL REFERENCES merchants (id),
    description  TEXT NOT NULL DEFAULT '',
    amount       NUMERIC(39,0) NOT NULL CHECK (amount > 0),
    token        TEXT NOT NULL,
    status       TEXT NOT NULL DEFAULT 'PENDING',
    payer        TEXT,
    date_created TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    date_paid    TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_invoices_merchant ON invoices (merchant_id);
CREATE INDEX IF NOT EXISTS idx_invoices_status ON invoices (status);`,
	},
	{
		Name: "create_fee_schedule",
		Up: `
CREATE TABLE IF NOT EXISTS fee_schedule (
    token      TEXT PRIMARY KEY,
    fee        NUMERIC(39,0) NOT NULL CHECK (fee >= 0),
    updated_by TEXT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`,
	},
	{
		Name: "create_accounts",
		Up: `
CREATE TABLE IF NOT EXISTS accounts (
    merchant_id        BIGINT PRIMARY KEY REFERENCES merchants (id),
    withdrawal_address TEXT,
    restricted         BOOLEAN NOT NULL DEFAULT FALSE,
    updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`,
	},
	{
		Name: "create_balances",
		Up: `
CREATE TABLE IF NOT EXISTS balances (
    merchant_id BIGINT NOT NULL REFERENCES merchants (id),
    token       TEXT NOT NULL,
    amount      NUMERIC(39,0) NOT NULL DEFAULT 0 CHECK (amount >= 0),
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (merchant_id, token)
);`,
	},
	{
		Name: "create_ledger_events",
		Up: `
CREATE TABLE IF NOT EXISTS ledger_events (
    seq        BIGSERIAL PRIMARY KEY,
    id         TEXT NOT NULL UNIQUE,
    topic      TEXT NOT NULL,
    payload    JSONB NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_ledger_events_topic ON ledger_events (topic, seq DESC);`,
	},
}

// Migrate applies every migration in order inside one transaction, so a
// failed step leaves the schema untouched. Each step is idempotent.
func Migrate(ctx context.Context, pool Pool, log zerolog.Logger) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin migrations: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, m := range Migrations {
		if _, err := tx.Exec(ctx, m.Up); err != nil {
			return fmt.Errorf("migration %s: %w", m.Name, err)
		}
		log.Debug().Str("migration", m.Name).Msg("migration applied")
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit migrations: %w", err)
	}
	log.Info().Int("count", len(Migrations)).Msg("database schema up to date")
	return nil
}
