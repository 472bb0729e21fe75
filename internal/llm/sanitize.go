package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/fleet-tracker/constants"
)

var (
	reISODate     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	reMoneyNoise  = regexp.MustCompile(`[$,\s]|USD|usd`)
	reMileageTail = regexp.MustCompile(`(?i)\s*(miles?|mi\.?)$`)
)

var fieldSynonyms = map[string]string{
	"vin":                "vehicle_identifier",
	"license_plate":      "vehicle_identifier",
	"plate":              "vehicle_identifier",
	"vehicle":            "vehicle_identifier",
	"type":               "maintenance_type",
	"service_type":       "maintenance_type",
	"date":               "service_date",
	"odometer":           "mileage",
	"mileage_at_service": "mileage",
	"total":              "cost",
	"amount":             "cost",
	"total_cost":         "cost",
	"shop":               "provider",
	"vendor":             "provider",
	"service_provider":   "provider",
	"notes":              "description",
	"next_service_due":   "next_service_date",
}

var allowedKeys = map[string]struct{}{
	"vehicle_identifier": {}, "maintenance_type": {}, "service_date": {}, "mileage": {},
	"cost": {}, "provider": {}, "description": {}, "next_service_mileage": {}, "next_service_date": {},
}

// NormalizeAndSanitizeJSON
// - renames known synonyms (odometer -> mileage, total -> cost)
// - drops null/empty values
// - coerces numbers to the string forms the schema expects
// - canonicalizes maintenance_type onto the enum
// - removes unknown keys
// Values that cannot be repaired are dropped rather than guessed.
func NormalizeAndSanitizeJSON(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	dropped := make([]string, 0, 8)
	drop := func(k, why string) {
		delete(m, k)
		dropped = append(dropped, k+"("+why+")")
	}

	for _, from := range slices.Sorted(maps.Keys(fieldSynonyms)) {
		to := fieldSynonyms[from]
		if v, ok := m[from]; ok {
			if _, exists := m[to]; !exists && v != nil {
				m[to] = v
			}
			delete(m, from)
		}
	}

	for k := range maps.Clone(m) {
		if _, ok := allowedKeys[k]; !ok {
			drop(k, "unknown")
		}
	}

	// stringify and trim everything; nulls and empties go
	for k, v := range maps.Clone(m) {
		switch t := v.(type) {
		case nil:
			drop(k, "null")
		case string:
			s := strings.TrimSpace(t)
			if s == "" || strings.EqualFold(s, "null") || strings.EqualFold(s, "n/a") {
				drop(k, "empty")
				continue
			}
			m[k] = s
		case float64:
			if k == "cost" {
				m[k] = strconv.FormatFloat(t, 'f', -1, 64)
			} else if t == math.Trunc(t) {
				m[k] = strconv.FormatInt(int64(t), 10)
			} else {
				drop(k, "type")
			}
		default:
			drop(k, "type")
		}
	}

	for _, k := range []string{"mileage", "next_service_mileage"} {
		if s, ok := m[k].(string); ok {
			s = reMileageTail.ReplaceAllString(s, "")
			s = strings.ReplaceAll(s, ",", "")
			if n, err := strconv.ParseInt(s, 10, 64); err != nil || n < 0 {
				drop(k, "invalid")
			} else {
				m[k] = strconv.FormatInt(n, 10)
			}
		}
	}

	if s, ok := m["cost"].(string); ok {
		d, err := decimal.NewFromString(reMoneyNoise.ReplaceAllString(s, ""))
		if err != nil || d.IsNegative() {
			drop("cost", "invalid")
		} else {
			m["cost"] = d.StringFixed(2)
		}
	}

	for _, k := range []string{"service_date", "next_service_date"} {
		if s, ok := m[k].(string); ok {
			if iso, ok := toISODate(s); ok {
				m[k] = iso
			} else {
				drop(k, "invalid")
			}
		}
	}

	if s, ok := m["maintenance_type"].(string); ok {
		t, _ := constants.Canonicalize(s)
		m["maintenance_type"] = string(t)
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(dropped) > 0 {
		logger.Warn("llm.extract.normalize_sanitize", "dropped", dropped)
	}
	return out, dropped, nil
}

var dateLayouts = []string{"2006-01-02", "01/02/2006", "1/2/2006", "01-02-2006", "January 2, 2006", "Jan 2, 2006"}

func toISODate(s string) (string, bool) {
	if reISODate.MatchString(s) {
		if _, err := time.Parse("2006-01-02", s); err == nil {
			return s, true
		}
		return "", false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}
