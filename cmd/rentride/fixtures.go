package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	jsoniter "github.com/json-iterator/go"

	"rentride/internal/app/dto"
	"rentride/internal/app/policies"
	"rentride/internal/infra/storage/memory"
)

// bookingFixture is one entry of the fixtures file: a wire booking plus the
// scopes it is listed under.
type bookingFixture struct {
	dto.BookingRecord
	Scopes []string `json:"scopes"`
}

func loadFixtures(path string, logger *slog.Logger) ([]memory.Fixture, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("booking fixtures file not found, skipping", "path", path)
			return nil, nil
		}
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	var raw []bookingFixture
	if err := jsoniter.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}

	out := make([]memory.Fixture, 0, len(raw))
	for _, fx := range raw {
		record, err := fx.ToDomain()
		if err != nil {
			logger.Error("fixture invalid", "booking_id", fx.ID, "error", err)
			continue
		}
		scopes := make([]policies.Scope, 0, len(fx.Scopes))
		for _, s := range fx.Scopes {
			scope, err := policies.ParseScope(s)
			if err != nil {
				logger.Error("fixture scope invalid", "booking_id", fx.ID, "scope", s)
				continue
			}
			scopes = append(scopes, scope)
		}
		out = append(out, memory.Fixture{Record: record, Scopes: scopes})
	}
	logger.Info("booking fixtures loaded", "count", len(out), "path", path)
	return out, nil
}
