package llm

import (
	"fmt"
	"strings"
)

const maxPromptText = 4000

// BuildSystemPrompt states the task, the enum and the formatting rules.
func BuildSystemPrompt(req ExtractRequest) string {
	typeLine := "Set 'maintenance_type' to a short label for the service."
	if len(req.AllowedTypes) > 0 {
		typeLine = "Set 'maintenance_type' to exactly one of: " + strings.Join(req.AllowedTypes, ", ") +
			". Use 'Other' when no value fits."
	}

	parts := []string{
		"You extract vehicle maintenance details from receipts, invoices and service reports.",
		"Return ONLY a JSON object that matches the provided JSON Schema.",
		"'vehicle_identifier' is the VIN if one is printed, otherwise the license plate, otherwise a short year/make/model description.",
		typeLine,
		"Dates use ISO-8601 (YYYY-MM-DD).",
		"'mileage' is the odometer reading at service as digits only, without separators or units.",
		"'cost' is the total amount charged as a decimal with two places, without currency symbols.",
		"'provider' is the name of the shop or business that did the work.",
		"'description' briefly lists the work performed.",
		"Fill 'next_service_mileage' or 'next_service_date' only when the document states when the next service is due.",
		"Never output null. If a field is not present, omit it. Never invent values.",
	}
	return strings.Join(parts, " ")
}

// BuildUserPrompt packages the filename hint, the known roster and the
// document text.
func BuildUserPrompt(req ExtractRequest) string {
	var b strings.Builder
	if filename := strings.TrimSpace(req.FilenameHint); filename != "" {
		b.WriteString("Filename: ")
		b.WriteString(filename)
		b.WriteString("\n")
	}

	if len(req.KnownVehicles) > 0 {
		b.WriteString("\nKnown fleet vehicles (prefer these identifiers when the document refers to one of them):\n")
		for _, v := range req.KnownVehicles {
			fmt.Fprintf(&b, "- %d %s %s, VIN %s, plate %s\n", v.Year, v.Make, v.Model, v.VIN, v.LicensePlate)
		}
	}

	text := strings.TrimSpace(req.Text)
	b.WriteString("\nDocument text:\n")
	if r := []rune(text); len(r) > maxPromptText {
		b.WriteString(string(r[:maxPromptText]))
		b.WriteString("\n…(truncated)")
	} else {
		b.WriteString(text)
	}
	return b.String()
}
