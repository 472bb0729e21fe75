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
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/fleet-tracker/constants"
	"github.com/joseph-ayodele/fleet-tracker/internal/common"
	"github.com/joseph-ayodele/fleet-tracker/internal/entity"
)

const recordsTable = "maintenance_records"

var recordColumns = []string{
	"id", "vehicle_id", "maintenance_type", "service_date", "mileage", "cost",
	"provider", "description", "next_service_mileage", "next_service_date",
	"source", "document_name", "created_at",
}

// RecordFilter narrows ListRecords. Nil fields are ignored.
type RecordFilter struct {
	VehicleID *uuid.UUID
	From      *time.Time
	To        *time.Time
}

type MaintenanceRepository interface {
	// CommitRecord inserts rec and, when raiseMileage is set and rec carries a
	// mileage, raises the vehicle's current mileage if the new value is
	// greater. Both happen in one transaction.
	CommitRecord(ctx context.Context, rec *entity.MaintenanceRecord, raiseMileage bool) (mileageUpdated bool, err error)
	ListRecords(ctx context.Context, filter RecordFilter) ([]*entity.MaintenanceRecord, error)
}

type maintenanceRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewMaintenanceRepository(db *DB, logger *slog.Logger) MaintenanceRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &maintenanceRepository{db: db, logger: logger}
}

func (r *maintenanceRepository) CommitRecord(ctx context.Context, rec *entity.MaintenanceRecord, raiseMileage bool) (bool, error) {
	if rec == nil {
		return false, fmt.Errorf("nil record: %w", common.ErrInvalidInput)
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	var updated bool
	err := r.db.withTx(ctx, func(tx dialect.Tx) error {
		ok, err := r.db.vehicleExists(ctx, tx, rec.VehicleID)
		if err != nil {
			return fmt.Errorf("lookup vehicle: %w", err)
		}
		if !ok {
			return fmt.Errorf("vehicle %s: %w", rec.VehicleID, common.ErrNotFound)
		}

		q, args := r.db.builder().Insert(recordsTable).
			Columns(recordColumns...).
			Values(
				rec.ID, rec.VehicleID, string(rec.MaintenanceType),
				nullDate(rec.ServiceDate), nullInt64(rec.Mileage), nullDecimal(rec.Cost),
				nullString(rec.Provider), nullString(rec.Description),
				nullInt64(rec.NextServiceMileage), nullDate(rec.NextServiceDate),
				string(rec.Source), nullString(rec.DocumentName),
				formatTimestamp(rec.CreatedAt),
			).
			Query()
		if err := tx.Exec(ctx, q, args, nil); err != nil {
			return fmt.Errorf("insert maintenance record: %w", err)
		}

		if raiseMileage && rec.Mileage != nil {
			updated, err = r.db.raiseMileage(ctx, tx, rec.VehicleID, *rec.Mileage)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		r.logger.Error("db.record.commit_failed", "vehicle_id", rec.VehicleID, "err", err)
		return false, err
	}
	r.logger.Debug("db.record.commit_ok", "record_id", rec.ID, "vehicle_id", rec.VehicleID, "mileage_updated", updated)
	return updated, nil
}

func (r *maintenanceRepository) ListRecords(ctx context.Context, filter RecordFilter) ([]*entity.MaintenanceRecord, error) {
	var preds []*entsql.Predicate
	if filter.VehicleID != nil {
		preds = append(preds, entsql.EQ("vehicle_id", *filter.VehicleID))
	}
	if filter.From != nil {
		preds = append(preds, entsql.GTE("service_date", filter.From.UTC().Format(dateLayout)))
	}
	if filter.To != nil {
		preds = append(preds, entsql.LTE("service_date", filter.To.UTC().Format(dateLayout)))
	}

	sel := r.db.builder().Select(recordColumns...).From(entsql.Table(recordsTable))
	if len(preds) > 0 {
		sel = sel.Where(entsql.And(preds...))
	}
	sel = sel.OrderBy("service_date", "created_at")

	query, args := sel.Query()
	var rows entsql.Rows
	if err := r.db.drv.Query(ctx, query, args, &rows); err != nil {
		r.logger.Error("db.record.list_failed", "err", err)
		return nil, fmt.Errorf("query maintenance records: %w", err)
	}
	defer rows.Close()

	var out []*entity.MaintenanceRecord
	for rows.Next() {
		var (
			rec                          entity.MaintenanceRecord
			mtype, source                string
			serviceDate, nextDate, ctime sql.NullString
			mileage, nextMileage         sql.NullInt64
			cost                         decimal.NullDecimal
			provider, desc, docName      sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.VehicleID, &mtype, &serviceDate, &mileage, &cost,
			&provider, &desc, &nextMileage, &nextDate, &source, &docName, &ctime); err != nil {
			return nil, fmt.Errorf("scan maintenance record: %w", err)
		}
		var err error
		if rec.ServiceDate, err = scanDate(serviceDate); err != nil {
			return nil, err
		}
		if rec.NextServiceDate, err = scanDate(nextDate); err != nil {
			return nil, err
		}
		if t, err := scanTime(ctime); err == nil && t != nil {
			rec.CreatedAt = *t
		}
		rec.MaintenanceType = constants.MaintenanceType(mtype)
		rec.Source = constants.Provenance(source)
		rec.Mileage = ptrInt64(mileage)
		rec.NextServiceMileage = ptrInt64(nextMileage)
		rec.Cost = ptrDecimal(cost)
		rec.Provider = ptrString(provider)
		rec.Description = ptrString(desc)
		rec.DocumentName = ptrString(docName)
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate maintenance records: %w", err)
	}
	return out, nil
}
