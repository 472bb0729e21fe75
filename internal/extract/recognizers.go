package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/fleet-tracker/constants"
	"github.com/joseph-ayodele/fleet-tracker/internal/entity"
)

// Recognizer inspects text and fills only the fields it owns.
type Recognizer func(text string, fs *entity.FieldSet)

// DefaultRecognizers is the pattern strategy's recognizer set.
func DefaultRecognizers() []Recognizer {
	return []Recognizer{
		RecognizeVehicle,
		RecognizeServiceDate,
		RecognizeMileage,
		RecognizeCost,
		RecognizeMaintenanceType,
		RecognizeNextService,
		RecognizeProvider,
	}
}

var (
	reVIN          = regexp.MustCompile(`(?i)\b[A-HJ-NPR-Z0-9]{17}\b`)
	rePlateLabeled = regexp.MustCompile(`(?i)\b(?:license\s+plate|lic(?:ense)?\s*(?:no\.?|#)|plate(?:\s+no\.?|\s*#)?|tag\s*#)\s*[:#]?\s*([A-Z0-9]{1,4}[ -]?[A-Z0-9]{2,5})\b`)
	rePlateA       = regexp.MustCompile(`(?i)\b[A-Z]{2,3}[0-9]{3,4}\b`)
	rePlateB       = regexp.MustCompile(`(?i)\b[0-9]{1,3}[A-Z]{2,3}[0-9]{1,3}\b`)
	reVehicleLabel = regexp.MustCompile(`(?im)^[ \t]*(?:vehicle|unit|car)[ \t]*[:#][ \t]*([^\n]+)$`)
	reYearMakeMdl  = regexp.MustCompile(`\b((?:19[89]|20[0-4])\d)\s+([A-Za-z]+(?:-[A-Za-z]+)?)\s+([A-Za-z0-9][A-Za-z0-9\-]*)`)

	reMileageLabeled = regexp.MustCompile(`(?i)\b(?:mileage|odometer|odo)\b(?:\s+(?:in|out|reading))?[^\d\n]{0,6}(\d{1,3}(?:,\d{3})+|\d+)\b`)
	reMileageSuffix  = regexp.MustCompile(`(?i)\b(\d{1,3}(?:,\d{3})+|\d{3,7})\s*(?:miles|mi)\b`)

	reCostLabeled = regexp.MustCompile(`(?i)\b(?:grand\s+total|total\s+due|amount\s+due|balance\s+due|total\s+amount|amount\s+paid|total|amount|balance|cost|price)\b\s*[:\-]?\s*(?:USD\s*)?\$?\s*(\d{1,3}(?:,\d{3})+(?:\.\d{1,2})?|\d+(?:\.\d{1,2})?)`)
	reCostDollar  = regexp.MustCompile(`\$\s*(\d{1,3}(?:,\d{3})+(?:\.\d{1,2})?|\d+(?:\.\d{1,2})?)`)

	minDollarAmount = decimal.NewFromInt(1)
	maxDollarAmount = decimal.NewFromInt(50000)

	reNextService     = regexp.MustCompile(`(?i)\bnext\s+(?:service|oil\s+change|maintenance|inspection|visit)(?:\s+due)?\b`)
	reNextServiceStop = regexp.MustCompile(`(?i)\s+[—–]\s+|[—–|\n]|\s+-\s+|\b(?:mileage|odometer|odo|total|sub\s*total|amount|balance|tax|cost|price|vin|invoice)\b`)
	reNextMileage     = regexp.MustCompile(`(?i)(\d{1,3}(?:,\d{3})+|\d{3,7})\s*(?:miles|mi)?\b`)
)

// maxNextServiceSpan bounds a next-service clause that runs on without a
// separator or field label.
const maxNextServiceSpan = 48

var knownMakes = map[string]string{
	"acura": "Acura", "audi": "Audi", "bmw": "BMW", "buick": "Buick", "cadillac": "Cadillac",
	"chevrolet": "Chevrolet", "chevy": "Chevrolet", "chrysler": "Chrysler", "dodge": "Dodge",
	"ford": "Ford", "gmc": "GMC", "honda": "Honda", "hyundai": "Hyundai", "infiniti": "Infiniti",
	"isuzu": "Isuzu", "jeep": "Jeep", "kia": "Kia", "lexus": "Lexus", "lincoln": "Lincoln",
	"mazda": "Mazda", "mercedes": "Mercedes", "mercedes-benz": "Mercedes-Benz", "mitsubishi": "Mitsubishi",
	"nissan": "Nissan", "ram": "Ram", "subaru": "Subaru", "tesla": "Tesla", "toyota": "Toyota",
	"volkswagen": "Volkswagen", "vw": "Volkswagen", "volvo": "Volvo", "freightliner": "Freightliner",
}

// RecognizeVehicle finds a VIN, else a license plate, else a labelled or
// year/make/model description.
func RecognizeVehicle(text string, fs *entity.FieldSet) {
	for _, m := range reVIN.FindAllString(text, -1) {
		if hasLetterAndDigit(m) {
			fs.VehicleIdentifier = strPtr(m)
			return
		}
	}
	if m := rePlateLabeled.FindStringSubmatch(text); m != nil && hasLetterAndDigit(m[1]) {
		fs.VehicleIdentifier = strPtr(m[1])
		return
	}
	for _, re := range []*regexp.Regexp{rePlateA, rePlateB} {
		if m := re.FindString(text); m != "" {
			fs.VehicleIdentifier = strPtr(strings.ToUpper(m))
			return
		}
	}
	if m := reVehicleLabel.FindStringSubmatch(text); m != nil {
		if v := truncateRunes(strings.TrimSpace(m[1]), 100); v != "" {
			fs.VehicleIdentifier = &v
			return
		}
	}
	for _, m := range reYearMakeMdl.FindAllStringSubmatch(text, -1) {
		if mk, ok := knownMakes[strings.ToLower(m[2])]; ok {
			v := m[1] + " " + mk + " " + m[3]
			fs.VehicleIdentifier = &v
			return
		}
	}
}

type datePattern struct {
	re    *regexp.Regexp
	parse func(m []string) *time.Time
}

var monthNames = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

var datePatterns = []datePattern{
	{regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`), func(m []string) *time.Time {
		return civilDate(atoi(m[1]), atoi(m[2]), atoi(m[3]))
	}},
	{regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{4})\b`), func(m []string) *time.Time {
		return civilDate(atoi(m[3]), atoi(m[1]), atoi(m[2]))
	}},
	{regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{2})\b`), func(m []string) *time.Time {
		return civilDate(2000+atoi(m[3]), atoi(m[1]), atoi(m[2]))
	}},
	{regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})\b`), func(m []string) *time.Time {
		return civilDate(atoi(m[3]), monthNames[strings.ToLower(m[1])], atoi(m[2]))
	}},
}

// findDate returns the earliest valid date in text across all formats.
func findDate(text string) (*time.Time, []int) {
	var (
		best    *time.Time
		bestLoc []int
	)
	for _, p := range datePatterns {
		for _, loc := range p.re.FindAllStringSubmatchIndex(text, -1) {
			if bestLoc != nil && loc[0] >= bestLoc[0] {
				break
			}
			m := submatches(text, loc)
			if t := p.parse(m); t != nil {
				best, bestLoc = t, loc[:2]
				break
			}
		}
	}
	return best, bestLoc
}

// RecognizeServiceDate takes the earliest date outside next-service phrases.
func RecognizeServiceDate(text string, fs *entity.FieldSet) {
	if t, _ := findDate(withoutNextService(text)); t != nil {
		fs.ServiceDate = t
	}
}

// RecognizeMileage prefers a labelled odometer reading over "N miles".
func RecognizeMileage(text string, fs *entity.FieldSet) {
	text = withoutNextService(text)
	for _, re := range []*regexp.Regexp{reMileageLabeled, reMileageSuffix} {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if n := parseMileage(m[1]); n != nil {
				fs.Mileage = n
				return
			}
		}
	}
}

// RecognizeCost takes the largest labelled total, else the largest dollar
// amount between 1 and 50,000.
func RecognizeCost(text string, fs *entity.FieldSet) {
	for _, m := range reCostLabeled.FindAllStringSubmatch(text, -1) {
		if d := parseCost(m[1]); d != nil && (fs.Cost == nil || d.GreaterThan(*fs.Cost)) {
			fs.Cost = d
		}
	}
	if fs.Cost != nil {
		return
	}
	for _, m := range reCostDollar.FindAllStringSubmatch(text, -1) {
		d := parseCost(m[1])
		if d == nil || d.LessThan(minDollarAmount) || d.GreaterThan(maxDollarAmount) {
			continue
		}
		if fs.Cost == nil || d.GreaterThan(*fs.Cost) {
			fs.Cost = d
		}
	}
}

type typeKeyword struct {
	t  constants.MaintenanceType
	re *regexp.Regexp
}

// checked in order; the first hit wins
var typeKeywords = []typeKeyword{
	{constants.OilChange, regexp.MustCompile(`(?i)\boil\b|\blube\b`)},
	{constants.TireRotation, regexp.MustCompile(`(?i)\brotat\w*`)},
	{constants.BrakeService, regexp.MustCompile(`(?i)\bbrakes?\b|\bbrake\s*pads?\b`)},
	{constants.Inspection, regexp.MustCompile(`(?i)\binspect\w*|\bsmog\b|\bemissions?\b|\bsafety\s+check\b`)},
	{constants.Repair, regexp.MustCompile(`(?i)\brepair\w*|\breplac\w*|\btune[\s-]?up\b|\btuneup\b|\balignment\b|\bbattery\b|\btransmission\b|\btrans\s+service\b|\bradiator\b|\bsuspension\b`)},
}

// RecognizeMaintenanceType classifies by keyword; with no keyword the type
// is Other.
func RecognizeMaintenanceType(text string, fs *entity.FieldSet) {
	t := constants.Other
	body := withoutNextService(text)
	for _, kw := range typeKeywords {
		if kw.re.MatchString(body) {
			t = kw.t
			break
		}
	}
	fs.MaintenanceType = &t
}

// RecognizeNextService reads "next service at 50,230 miles" or "next
// service due 09/15/2024".
func RecognizeNextService(text string, fs *entity.FieldSet) {
	for _, loc := range nextServiceSpans(text) {
		span := text[loc[0]:loc[1]]
		if fs.NextServiceDate == nil {
			if t, loc := findDate(span); t != nil {
				fs.NextServiceDate = t
				span = span[:loc[0]] + span[loc[1]:]
			}
		}
		if fs.NextServiceMileage == nil {
			if m := reNextMileage.FindStringSubmatch(span); m != nil {
				fs.NextServiceMileage = parseMileage(m[1])
			}
		}
	}
}

var (
	reSegmentSep   = regexp.MustCompile(`\s+[—–]\s+|\s+-\s+|\s*\|\s*|[—–]`)
	reFieldLabel   = regexp.MustCompile(`(?i)^(?:mileage|odometer|odo|total|sub\s*total|amount|balance|tax|cost|price|vin|date|invoice|inv|ro|po|order|phone|tel|fax|email|customer|bill\s+to|ship\s+to|plate|license|tag|technician|tech|advisor|next\s+service|page|vehicle|unit|year|make|model)\b`)
	reGenericTitle = regexp.MustCompile(`(?i)^(?:invoice|receipt|service\s+(?:report|invoice|receipt|record)|work\s+order|repair\s+order|estimate|statement|customer\s+copy|thank\s+you.*)$`)
	reHasLetter    = regexp.MustCompile(`\pL`)
)

// RecognizeProvider takes the first line segment that names something other
// than a field this package already recognizes.
func RecognizeProvider(text string, fs *entity.FieldSet) {
	for _, line := range strings.Split(text, "\n") {
		for _, seg := range reSegmentSep.Split(line, -1) {
			seg = strings.TrimFunc(seg, func(r rune) bool {
				return unicode.IsSpace(r) || r == ',' || r == ';' || r == ':' || r == '*'
			})
			if isProviderCandidate(seg) {
				v := truncateRunes(seg, 100)
				fs.Provider = &v
				return
			}
		}
	}
}

func isProviderCandidate(seg string) bool {
	if seg == "" || len(seg) > 80 || !reHasLetter.MatchString(seg) {
		return false
	}
	if reFieldLabel.MatchString(seg) || reGenericTitle.MatchString(seg) {
		return false
	}
	if _, ok := constants.Canonicalize(seg); ok {
		return false
	}
	if t, _ := findDate(seg); t != nil {
		return false
	}
	if reVIN.MatchString(seg) || reCostDollar.MatchString(seg) || reMileageSuffix.MatchString(seg) {
		return false
	}
	if rePlateA.MatchString(seg) && len(strings.Fields(seg)) == 1 {
		return false
	}
	return true
}

// nextServiceSpans locates each next-service clause: the phrase plus what
// follows it up to the first stop, at most maxNextServiceSpan bytes.
func nextServiceSpans(text string) [][2]int {
	var spans [][2]int
	for _, loc := range reNextService.FindAllStringIndex(text, -1) {
		if n := len(spans); n > 0 && loc[0] < spans[n-1][1] {
			continue
		}
		end := loc[1] + min(len(text)-loc[1], maxNextServiceSpan)
		if stop := reNextServiceStop.FindStringIndex(text[loc[1]:end]); stop != nil {
			end = loc[1] + stop[0]
		}
		for end < len(text) && end > loc[1] && !utf8.RuneStart(text[end]) {
			end--
		}
		spans = append(spans, [2]int{loc[0], end})
	}
	return spans
}

func withoutNextService(text string) string {
	spans := nextServiceSpans(text)
	if len(spans) == 0 {
		return text
	}
	var b strings.Builder
	prev := 0
	for _, sp := range spans {
		b.WriteString(text[prev:sp[0]])
		b.WriteByte(' ')
		prev = sp[1]
	}
	b.WriteString(text[prev:])
	return b.String()
}

func submatches(text string, loc []int) []string {
	out := make([]string, len(loc)/2)
	for i := range out {
		if loc[2*i] >= 0 {
			out[i] = text[loc[2*i]:loc[2*i+1]]
		}
	}
	return out
}

func hasLetterAndDigit(s string) bool {
	var l, d bool
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			l = true
		case unicode.IsDigit(r):
			d = true
		}
	}
	return l && d
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
