package provider

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// MockProvider stands in for the real API when no credentials are configured.
// It echoes the request back with status "mock".
type MockProvider struct {
	logger         *slog.Logger
	FailSend       bool
	SimulatedDelay time.Duration
}

func NewMockProvider(logger *slog.Logger, failSend bool, delay time.Duration) *MockProvider {
	return &MockProvider{
		logger:         logger.With("provider", "mock"),
		FailSend:       failSend,
		SimulatedDelay: delay,
	}
}

type mockResponse struct {
	SID      string `json:"sid"`
	Status   string `json:"status"`
	To       string `json:"to"`
	Body     string `json:"body"`
	MediaURL string `json:"mediaUrl,omitempty"`
}

func (p *MockProvider) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	timer := prometheus.NewTimer(providerRequestDuration.WithLabelValues(p.GetName()))
	defer timer.ObserveDuration()

	if p.SimulatedDelay > 0 {
		select {
		case <-time.After(p.SimulatedDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if p.FailSend {
		p.logger.WarnContext(ctx, "mock provider simulated send failure", "to", req.To)
		return nil, errors.New("mock provider simulated send failure")
	}

	resp := mockResponse{
		SID:      "mock-" + uuid.NewString(),
		Status:   "mock",
		To:       req.To,
		Body:     req.Body,
		MediaURL: req.MediaURL,
	}
	raw, _ := json.Marshal(resp)

	p.logger.InfoContext(ctx, "mock send", "to", req.To, "sid", resp.SID, "has_media", req.MediaURL != "")
	return &SendResult{ProviderMessageID: resp.SID, Status: resp.Status, Raw: raw}, nil
}

func (p *MockProvider) GetName() string {
	return "mock"
}
