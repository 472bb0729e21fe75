package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/fleet-tracker/internal/llm"
)

// ExtractFields implements llm.FieldExtractor using text-only chat/completions.
func (c *Client) ExtractFields(ctx context.Context, req llm.ExtractRequest) (llm.MaintenanceFields, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("llm.extract.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"text_len", len(req.Text),
		"known_vehicles", len(req.KnownVehicles),
	)

	if len(req.AllowedTypes) == 0 {
		req.AllowedTypes = c.allowedTypes()
	}
	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": llm.BuildSystemPrompt(req)},
			{"role": "user", "content": llm.BuildUserPrompt(req) + "\n\nReturn ONLY JSON that matches the provided schema."},
			{"role": "system", "content": "JSON Schema:\n" + mustJSON(c.schema)},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	raw, _, err := llm.SendJSON(ctx, c.http, endpoint, body, headers, c.logger)
	if err != nil {
		c.logger.Error("llm.extract.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.MaintenanceFields{}, nil, fmt.Errorf("openai request: %w", err)
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.logger.Error("llm.extract.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.MaintenanceFields{}, raw, fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		c.logger.Error("llm.extract.no_choices", "req_id", rid, "elapsed_ms", time.Since(start).Milliseconds())
		return llm.MaintenanceFields{}, raw, fmt.Errorf("no choices in openai response")
	}
	content := []byte(stripCodeFence(cc.Choices[0].Message.Content))

	cleaned, dropped, err := llm.NormalizeAndSanitizeJSON(content, c.logger)
	if err != nil {
		c.logger.Error("llm.extract.sanitize_failed", "req_id", rid, "error", err)
		return llm.MaintenanceFields{}, content, fmt.Errorf("sanitize failed: %w", err)
	}
	if err := llm.ValidateJSON(c.compiled, cleaned); err != nil {
		c.logger.Error("llm.extract.schema_validation_failed",
			"req_id", rid, "error", err, "dropped", dropped,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.MaintenanceFields{}, cleaned, fmt.Errorf("schema validation failed: %w", err)
	}

	var out llm.MaintenanceFields
	if err := json.Unmarshal(cleaned, &out); err != nil {
		return llm.MaintenanceFields{}, cleaned, fmt.Errorf("unmarshal fields: %w", err)
	}

	c.logger.Info("llm.extract.ok",
		"req_id", rid,
		"type", out.MaintenanceType,
		"date", out.ServiceDate,
		"mileage", out.Mileage,
		"cost", out.Cost,
		"has_identifier", out.VehicleIdentifier != "",
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, cleaned, nil
}

func (c *Client) allowedTypes() []string {
	if p, ok := c.schema["properties"].(map[string]any); ok {
		if mt, ok := p["maintenance_type"].(map[string]any); ok {
			if enum, ok := mt["enum"].([]string); ok {
				return enum
			}
		}
	}
	return nil
}

// stripCodeFence removes a ```json fence some models add despite json mode.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
