package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/fleet-tracker/constants"
	"github.com/joseph-ayodele/fleet-tracker/internal/common"
	"github.com/joseph-ayodele/fleet-tracker/internal/entity"
)

const vehiclesTable = "vehicles"

var vehicleColumns = []string{
	"id", "vin", "license_plate", "make", "model", "year",
	"current_mileage", "status", "assigned_driver", "created_at", "updated_at",
}

// VehicleRepository is the roster read/write interface.
type VehicleRepository interface {
	ListActive(ctx context.Context) ([]*entity.Vehicle, error)
	ListAll(ctx context.Context) ([]*entity.Vehicle, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Vehicle, error)
	// UpsertByVIN inserts or updates a vehicle keyed on VIN. Mileage on an
	// existing row only moves upward. The bool reports whether a row was created.
	UpsertByVIN(ctx context.Context, v *entity.Vehicle) (*entity.Vehicle, bool, error)
}

type vehicleRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewVehicleRepository(db *DB, logger *slog.Logger) VehicleRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &vehicleRepository{db: db, logger: logger}
}

func (r *vehicleRepository) ListActive(ctx context.Context) ([]*entity.Vehicle, error) {
	sel := r.db.builder().Select(vehicleColumns...).
		From(entsql.Table(vehiclesTable)).
		Where(entsql.NEQ("status", constants.VehicleRetired)).
		OrderBy("vin")
	return r.query(ctx, r.db.drv, sel)
}

func (r *vehicleRepository) ListAll(ctx context.Context) ([]*entity.Vehicle, error) {
	sel := r.db.builder().Select(vehicleColumns...).
		From(entsql.Table(vehiclesTable)).
		OrderBy("vin")
	return r.query(ctx, r.db.drv, sel)
}

func (r *vehicleRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Vehicle, error) {
	sel := r.db.builder().Select(vehicleColumns...).
		From(entsql.Table(vehiclesTable)).
		Where(entsql.EQ("id", id))
	vs, err := r.query(ctx, r.db.drv, sel)
	if err != nil {
		return nil, err
	}
	if len(vs) == 0 {
		return nil, fmt.Errorf("vehicle %s: %w", id, common.ErrNotFound)
	}
	return vs[0], nil
}

func (r *vehicleRepository) UpsertByVIN(ctx context.Context, v *entity.Vehicle) (*entity.Vehicle, bool, error) {
	if v == nil {
		return nil, false, fmt.Errorf("nil vehicle: %w", common.ErrInvalidInput)
	}
	var (
		out     *entity.Vehicle
		created bool
	)
	err := r.db.withTx(ctx, func(tx dialect.Tx) error {
		sel := r.db.builder().Select(vehicleColumns...).
			From(entsql.Table(vehiclesTable)).
			Where(entsql.EQ("vin", v.VIN))
		existing, err := r.query(ctx, tx, sel)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		status := v.Status
		if status == "" {
			status = constants.VehicleActive
		}

		if len(existing) == 0 {
			id := v.ID
			if id == uuid.Nil {
				id = uuid.New()
			}
			q, args := r.db.builder().Insert(vehiclesTable).
				Columns(vehicleColumns...).
				Values(id, v.VIN, v.LicensePlate, v.Make, v.Model, v.Year,
					v.CurrentMileage, status, nullString(v.AssignedDriver),
					formatTimestamp(now), formatTimestamp(now)).
				Query()
			if err := tx.Exec(ctx, q, args, nil); err != nil {
				return fmt.Errorf("insert vehicle: %w", err)
			}
			cp := *v
			cp.ID, cp.Status, cp.CreatedAt, cp.UpdatedAt = id, status, now, now
			out, created = &cp, true
			return nil
		}

		cur := existing[0]
		q, args := r.db.builder().Update(vehiclesTable).
			Set("license_plate", v.LicensePlate).
			Set("make", v.Make).
			Set("model", v.Model).
			Set("year", v.Year).
			Set("status", status).
			Set("assigned_driver", nullString(v.AssignedDriver)).
			Set("updated_at", formatTimestamp(now)).
			Where(entsql.EQ("id", cur.ID)).
			Query()
		if err := tx.Exec(ctx, q, args, nil); err != nil {
			return fmt.Errorf("update vehicle: %w", err)
		}
		if _, err := r.db.raiseMileage(ctx, tx, cur.ID, v.CurrentMileage); err != nil {
			return err
		}
		cp := *v
		cp.ID, cp.Status, cp.CreatedAt, cp.UpdatedAt = cur.ID, status, cur.CreatedAt, now
		if cur.CurrentMileage > cp.CurrentMileage {
			cp.CurrentMileage = cur.CurrentMileage
		}
		out = &cp
		return nil
	})
	if err != nil {
		r.logger.Error("db.vehicle.upsert_failed", "vin", v.VIN, "err", err)
		return nil, false, err
	}
	return out, created, nil
}

func (r *vehicleRepository) query(ctx context.Context, q dialect.ExecQuerier, sel *entsql.Selector) ([]*entity.Vehicle, error) {
	query, args := sel.Query()
	var rows entsql.Rows
	if err := q.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("query vehicles: %w", err)
	}
	defer rows.Close()

	var out []*entity.Vehicle
	for rows.Next() {
		var (
			v                    entity.Vehicle
			driver               sql.NullString
			createdAt, updatedAt sql.NullString
		)
		if err := rows.Scan(&v.ID, &v.VIN, &v.LicensePlate, &v.Make, &v.Model, &v.Year,
			&v.CurrentMileage, &v.Status, &driver, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan vehicle: %w", err)
		}
		v.AssignedDriver = ptrString(driver)
		if t, err := scanTime(createdAt); err == nil && t != nil {
			v.CreatedAt = *t
		}
		if t, err := scanTime(updatedAt); err == nil && t != nil {
			v.UpdatedAt = *t
		}
		out = append(out, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vehicles: %w", err)
	}
	return out, nil
}

// raiseMileage sets current_mileage to mileage only when it is strictly
// greater than the stored value. The comparison happens in the UPDATE itself
// so concurrent writers cannot lower it.
func (d *DB) raiseMileage(ctx context.Context, q dialect.ExecQuerier, vehicleID uuid.UUID, mileage int64) (bool, error) {
	query, args := d.builder().Update(vehiclesTable).
		Set("current_mileage", mileage).
		Set("updated_at", formatTimestamp(time.Now())).
		Where(entsql.And(
			entsql.EQ("id", vehicleID),
			entsql.LT("current_mileage", mileage),
		)).
		Query()
	var res sql.Result
	if err := q.Exec(ctx, query, args, &res); err != nil {
		return false, fmt.Errorf("raise mileage: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("raise mileage rows: %w", err)
	}
	return n > 0, nil
}

func (d *DB) vehicleExists(ctx context.Context, q dialect.ExecQuerier, id uuid.UUID) (bool, error) {
	query, args := d.builder().Select("id").
		From(entsql.Table(vehiclesTable)).
		Where(entsql.EQ("id", id)).
		Query()
	var rows entsql.Rows
	if err := q.Query(ctx, query, args, &rows); err != nil {
		return false, err
	}
	defer rows.Close()
	found := rows.Next()
	return found, rows.Err()
}
