package extract

import (
	"context"

	"github.com/joseph-ayodele/fleet-tracker/constants"
	"github.com/joseph-ayodele/fleet-tracker/internal/entity"
)

// PatternStrategy extracts fields with fixed recognizers. It never fails.
type PatternStrategy struct {
	recognizers []Recognizer
}

// NewPatternStrategy uses DefaultRecognizers when none are given.
func NewPatternStrategy(recognizers ...Recognizer) *PatternStrategy {
	if len(recognizers) == 0 {
		recognizers = DefaultRecognizers()
	}
	return &PatternStrategy{recognizers: recognizers}
}

func (p *PatternStrategy) Provenance() constants.Provenance {
	return constants.ProvenancePattern
}

func (p *PatternStrategy) Extract(_ context.Context, req Request) (entity.FieldSet, error) {
	var fs entity.FieldSet
	if req.Text == "" {
		return fs, nil
	}
	for _, r := range p.recognizers {
		r(req.Text, &fs)
	}
	return fs, nil
}
