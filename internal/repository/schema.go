package repository

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"
)

type columnTypes struct {
	id, date, timestamp, money string
}

var dialectTypes = map[string]columnTypes{
	dialect.Postgres: {id: "UUID", date: "DATE", timestamp: "TIMESTAMPTZ", money: "NUMERIC(12,2)"},
	dialect.SQLite:   {id: "TEXT", date: "TEXT", timestamp: "TEXT", money: "TEXT"},
}

func schemaStatements(dia string) ([]string, error) {
	t, ok := dialectTypes[dia]
	if !ok {
		return nil, fmt.Errorf("no schema for dialect %q", dia)
	}
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS vehicles (
	id %[1]s PRIMARY KEY,
	vin VARCHAR(17) NOT NULL UNIQUE,
	license_plate VARCHAR(20) NOT NULL,
	make VARCHAR(50) NOT NULL,
	model VARCHAR(50) NOT NULL,
	year INTEGER NOT NULL,
	current_mileage BIGINT NOT NULL DEFAULT 0 CHECK (current_mileage >= 0),
	status VARCHAR(20) NOT NULL DEFAULT 'Active',
	assigned_driver VARCHAR(100),
	created_at %[2]s NOT NULL,
	updated_at %[2]s NOT NULL
)`, t.id, t.timestamp),
		`CREATE UNIQUE INDEX IF NOT EXISTS vehicles_active_plate_key ON vehicles (license_plate) WHERE status <> 'Retired'`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS maintenance_records (
	id %[1]s PRIMARY KEY,
	vehicle_id %[1]s NOT NULL REFERENCES vehicles(id) ON DELETE CASCADE,
	maintenance_type VARCHAR(32) NOT NULL,
	service_date %[2]s,
	mileage BIGINT CHECK (mileage >= 0),
	cost %[4]s,
	provider VARCHAR(100),
	description TEXT,
	next_service_mileage BIGINT CHECK (next_service_mileage >= 0),
	next_service_date %[2]s,
	source VARCHAR(32) NOT NULL,
	document_name VARCHAR(255),
	created_at %[3]s NOT NULL
)`, t.id, t.date, t.timestamp, t.money),
		`CREATE INDEX IF NOT EXISTS maintenance_records_vehicle_date_idx ON maintenance_records (vehicle_id, service_date)`,
	}, nil
}

// Migrate creates the tables and indexes if they do not exist.
func (d *DB) Migrate(ctx context.Context) error {
	stmts, err := schemaStatements(d.Dialect())
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if err := d.drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	d.logger.Info("db.migrate.ok", "dialect", d.Dialect(), "statements", len(stmts))
	return nil
}
