package pipeline

import (
	"time"

	"github.com/joseph-ayodele/fleet-tracker/constants"
	"github.com/joseph-ayodele/fleet-tracker/internal/common"
	"github.com/joseph-ayodele/fleet-tracker/internal/entity"
	"github.com/joseph-ayodele/fleet-tracker/internal/matcher"
)

// previewRunes bounds the raw text returned for manual resolution.
const previewRunes = 500

// Outcome is the result of one Process call. On failure Stage is Failed or
// NeedsManualResolution and FailedStage names the last stage reached.
type Outcome struct {
	Document    string
	Stage       constants.Stage
	FailedStage constants.Stage
	Kind        common.ErrorKind
	Message     string

	TextMethod string
	Pages      int
	Fields     entity.FieldSet
	Provenance constants.Provenance

	Vehicle        *entity.Vehicle
	Candidates     []matcher.Candidate
	HintMismatch   bool
	Record         *entity.MaintenanceRecord
	MileageUpdated bool

	// TextPreview is set only when the caller must pick a vehicle by hand.
	TextPreview string
	Warnings    []string
	Duration    time.Duration
}

// Committed reports terminal success.
func (o *Outcome) Committed() bool {
	return o != nil && o.Stage == constants.StageRecordCommitted
}

// NeedsManualResolution reports a soft failure that kept the extracted fields.
func (o *Outcome) NeedsManualResolution() bool {
	return o != nil && o.Stage == constants.StageNeedsManualResolution
}

func (o *Outcome) warn(msg string) {
	if msg != "" {
		o.Warnings = append(o.Warnings, msg)
	}
}

func preview(text string) string {
	r := []rune(text)
	if len(r) <= previewRunes {
		return text
	}
	return string(r[:previewRunes])
}
