// Package matcher resolves an extracted vehicle identifier against the fleet
// roster.
package matcher

import (
	"cmp"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/joseph-ayodele/fleet-tracker/internal/entity"
)

type Status string

const (
	Resolved    Status = "Resolved"
	NoCandidate Status = "NoCandidate"
	Ambiguous   Status = "Ambiguous"
)

// Strength orders match kinds; higher is stronger.
type Strength int

const (
	StrengthFuzzy Strength = iota + 1
	StrengthSubstring
	StrengthExactPlate
	StrengthExactVIN
	StrengthHint
)

func (s Strength) String() string {
	switch s {
	case StrengthFuzzy:
		return "fuzzy"
	case StrengthSubstring:
		return "substring"
	case StrengthExactPlate:
		return "exact_plate"
	case StrengthExactVIN:
		return "exact_vin"
	case StrengthHint:
		return "hint"
	}
	return "none"
}

type Candidate struct {
	Vehicle  *entity.Vehicle
	Strength Strength
	Score    int
}

type MatchResult struct {
	Status     Status
	Vehicle    *entity.Vehicle // set when Status is Resolved
	Candidates []Candidate     // ranked strongest first
	// HintMismatch is set when a caller-chosen vehicle disagrees with the
	// identifier read from the document. It never blocks the match.
	HintMismatch bool
	Warning      string
}

const (
	minSubstringLen  = 3
	minModelWordLen  = 4
	fuzzyThreshold   = 6
	yearScore        = 4
	ocrYearScore     = 3
	makeScore        = 3
	modelScore       = 3
	mileageScore     = 2
	mileageProximity = 5000
)

type Matcher struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{logger: logger}
}

// Match resolves fields.VehicleIdentifier against roster. A non-nil hint
// always wins and is only cross-checked.
func (m *Matcher) Match(fields entity.FieldSet, hint *entity.Vehicle, roster []*entity.Vehicle) MatchResult {
	ident := ""
	if fields.VehicleIdentifier != nil {
		ident = strings.TrimSpace(*fields.VehicleIdentifier)
	}

	if hint != nil {
		res := MatchResult{
			Status:     Resolved,
			Vehicle:    hint,
			Candidates: []Candidate{{Vehicle: hint, Strength: StrengthHint}},
		}
		if ident != "" && !agreesWithHint(ident, hint) {
			res.HintMismatch = true
			res.Warning = "document identifies vehicle as " + strconv.Quote(ident) + ", which does not match the selected vehicle " + hint.DisplayName()
			m.logger.Warn("matcher.hint.mismatch", "identifier", ident, "vehicle_id", hint.ID)
		}
		return res
	}

	if ident == "" {
		return MatchResult{Status: NoCandidate}
	}

	var mileage int64
	if fields.Mileage != nil {
		mileage = *fields.Mileage
	}

	var cands []Candidate
	for _, v := range roster {
		if v == nil {
			continue
		}
		if c, ok := score(ident, mileage, v); ok {
			cands = append(cands, c)
		}
	}
	if len(cands) == 0 {
		m.logger.Info("matcher.none", "identifier", ident, "roster", len(roster))
		return MatchResult{Status: NoCandidate}
	}

	slices.SortStableFunc(cands, func(a, b Candidate) int {
		if c := cmp.Compare(b.Strength, a.Strength); c != 0 {
			return c
		}
		return cmp.Compare(b.Score, a.Score)
	})

	top := cands[0]
	if len(cands) > 1 && cands[1].Strength == top.Strength && cands[1].Score == top.Score {
		m.logger.Info("matcher.ambiguous", "identifier", ident, "candidates", len(cands), "strength", top.Strength.String())
		return MatchResult{Status: Ambiguous, Candidates: cands}
	}
	m.logger.Debug("matcher.resolved", "identifier", ident, "vehicle_id", top.Vehicle.ID, "strength", top.Strength.String())
	return MatchResult{Status: Resolved, Vehicle: top.Vehicle, Candidates: cands}
}

// score returns the strongest way ident matches v.
func score(ident string, mileage int64, v *entity.Vehicle) (Candidate, bool) {
	n := Normalize(ident)
	vin := Normalize(v.VIN)
	plate := Normalize(v.LicensePlate)

	if vin != "" && (n == vin || strings.Contains(n, vin)) {
		return Candidate{Vehicle: v, Strength: StrengthExactVIN, Score: len(vin)}, true
	}
	if plate != "" && n == plate {
		return Candidate{Vehicle: v, Strength: StrengthExactPlate, Score: len(plate)}, true
	}
	if best := substringScore(n, plate, vin); best > 0 {
		return Candidate{Vehicle: v, Strength: StrengthSubstring, Score: best}, true
	}
	if s := fuzzyScore(strings.ToUpper(ident), mileage, v); s >= fuzzyThreshold {
		return Candidate{Vehicle: v, Strength: StrengthFuzzy, Score: s}, true
	}
	return Candidate{}, false
}

// substringScore is the length of the overlap when ident is part of the
// plate or VIN, or the plate is part of ident.
func substringScore(ident, plate, vin string) int {
	if len(ident) < minSubstringLen {
		return 0
	}
	best := 0
	if plate != "" && strings.Contains(plate, ident) {
		best = len(ident)
	}
	if vin != "" && strings.Contains(vin, ident) {
		best = max(best, len(ident))
	}
	if len(plate) >= minSubstringLen && strings.Contains(ident, plate) {
		best = max(best, len(plate))
	}
	return best
}

// fuzzyScore weighs year, make and model words found in the identifier,
// plus a bonus when the document mileage is close to the vehicle's.
func fuzzyScore(upper string, mileage int64, v *entity.Vehicle) int {
	s := 0
	if v.Year > 0 {
		year := strconv.Itoa(v.Year)
		switch {
		case strings.Contains(upper, year):
			s += yearScore
		case containsOCRYear(upper, year):
			s += ocrYearScore
		}
	}
	if mk := strings.ToUpper(strings.TrimSpace(v.Make)); mk != "" && strings.Contains(upper, mk) {
		s += makeScore
	}
	for _, part := range strings.Fields(strings.ToUpper(v.Model)) {
		if len(part) >= minModelWordLen && strings.Contains(upper, part) {
			s += modelScore
			break
		}
	}
	if mileage > 0 && v.CurrentMileage > 0 {
		diff := mileage - v.CurrentMileage
		if diff < 0 {
			diff = -diff
		}
		if diff < mileageProximity {
			s += mileageScore
		}
	}
	return s
}

// containsOCRYear catches common misreads of the leading "2" (2018 as 5018,
// 7018 or 4018).
func containsOCRYear(upper, year string) bool {
	if len(year) != 4 {
		return false
	}
	for _, lead := range []string{"5", "7", "4"} {
		if strings.Contains(upper, lead+year[1:]) {
			return true
		}
	}
	return false
}

func agreesWithHint(ident string, v *entity.Vehicle) bool {
	n := Normalize(ident)
	vin := Normalize(v.VIN)
	plate := Normalize(v.LicensePlate)
	switch {
	case vin != "" && strings.Contains(n, vin):
		return true
	case plate != "" && (n == plate || strings.Contains(n, plate)):
		return true
	case substringScore(n, plate, vin) > 0:
		return true
	}
	return fuzzyScore(strings.ToUpper(ident), 0, v) >= fuzzyThreshold
}

// Normalize upper-cases s and strips whitespace and hyphens.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) || r == '-' {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}
