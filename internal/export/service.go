package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/fleet-tracker/internal/entity"
	"github.com/joseph-ayodele/fleet-tracker/internal/repository"
)

const sheet = "Maintenance"

// Service produces XLSX workbooks of maintenance history.
type Service struct {
	records  repository.MaintenanceRepository
	vehicles repository.VehicleRepository
	logger   *slog.Logger
}

func NewService(records repository.MaintenanceRepository, vehicles repository.VehicleRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{records: records, vehicles: vehicles, logger: logger}
}

// ExportMaintenanceXLSX returns a workbook for the given vehicle (nil = all)
// and service-date window.
// If only from is provided -> from..today (inclusive).
// If only to is provided   -> beginning..to (inclusive).
// If neither is provided   -> all records.
func (s *Service) ExportMaintenanceXLSX(ctx context.Context, vehicleID *uuid.UUID, from, to *time.Time) ([]byte, error) {
	start := time.Now()

	var fromDate, toDate *time.Time
	if from != nil {
		f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
		fromDate = &f
	}
	if to != nil {
		t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
		toDate = &t
	}
	if fromDate != nil && toDate == nil {
		today := time.Now().UTC()
		t := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
		toDate = &t
	}

	recs, err := s.records.ListRecords(ctx, repository.RecordFilter{VehicleID: vehicleID, From: fromDate, To: toDate})
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	vs, err := s.vehicles.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("query vehicles: %w", err)
	}
	byID := make(map[uuid.UUID]*entity.Vehicle, len(vs))
	for _, v := range vs {
		byID[v.ID] = v
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	headers := []string{
		"Service Date",
		"Vehicle",
		"VIN",
		"License Plate",
		"Maintenance Type",
		"Mileage",
		"Cost",
		"Provider",
		"Description",
		"Next Service Mileage",
		"Next Service Date",
		"Source",
		"Document",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(headers), 1)
		_ = f.SetCellStyle(sheet, "A1", last, style)
	}

	row := 2
	for _, r := range recs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		if r.ServiceDate != nil {
			write(1, r.ServiceDate.Format("2006-01-02"))
		}
		if v := byID[r.VehicleID]; v != nil {
			write(2, v.DisplayName())
			write(3, v.VIN)
			write(4, v.LicensePlate)
		}
		write(5, r.MaintenanceType.Label())
		if r.Mileage != nil {
			write(6, *r.Mileage)
		}
		if r.Cost != nil {
			c, _ := r.Cost.Float64()
			write(7, c)
		}
		if r.Provider != nil {
			write(8, *r.Provider)
		}
		if r.Description != nil {
			write(9, truncate(*r.Description, 140))
		}
		if r.NextServiceMileage != nil {
			write(10, *r.NextServiceMileage)
		}
		if r.NextServiceDate != nil {
			write(11, r.NextServiceDate.Format("2006-01-02"))
		}
		write(12, string(r.Source))
		if r.DocumentName != nil {
			write(13, *r.DocumentName)
		}
		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 14) // date
	_ = f.SetColWidth(sheet, "B", "B", 30) // vehicle
	_ = f.SetColWidth(sheet, "C", "C", 20) // vin
	_ = f.SetColWidth(sheet, "D", "E", 16)
	_ = f.SetColWidth(sheet, "F", "G", 12) // mileage, cost
	_ = f.SetColWidth(sheet, "H", "H", 28) // provider
	_ = f.SetColWidth(sheet, "I", "I", 48) // notes
	_ = f.SetColWidth(sheet, "J", "K", 18)
	_ = f.SetColWidth(sheet, "L", "M", 24)
	if style, err := f.NewStyle(&excelize.Style{NumFmt: 2}); err == nil && row > 2 {
		_ = f.SetCellStyle(sheet, "G2", fmt.Sprintf("G%d", row-1), style)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(recs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
