package ocr

import (
	"regexp"
	"strings"
)

var (
	reDate    = regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b|\b\d{4}-\d{2}-\d{2}\b`)
	reAmount  = regexp.MustCompile(`\$\s?\d+(?:,\d{3})*(?:\.\d{2})?|\b\d+\.\d{2}\b`)
	reOdo     = regexp.MustCompile(`\b(?:mileage|odometer|odo|miles)\b`)
	reVINLike = regexp.MustCompile(`\b[a-hj-npr-z0-9]{17}\b`)
)

// heuristicConfidence scores how much the text looks like a service document.
func heuristicConfidence(txt string) float32 {
	txtL := strings.ToLower(txt)
	score := float32(0.2)
	if reDate.MatchString(txtL) {
		score += 0.2
	}
	if reAmount.MatchString(txtL) {
		score += 0.2
	}
	if reOdo.MatchString(txtL) {
		score += 0.2
	}
	if reVINLike.MatchString(txtL) {
		score += 0.1
	}
	if len(txt) > 120 {
		score += 0.1
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}
