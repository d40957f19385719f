package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultTwilioAPIBase = "https://api.twilio.com"
	whatsappPrefix       = "whatsapp:"
)

type TwilioConfig struct {
	AccountSID        string
	AuthToken         string
	FromNumber        string // bare E.164 number or already prefixed with "whatsapp:"
	APIBase           string
	StatusCallbackURL string
}

// TwilioProvider sends WhatsApp messages through the Twilio Messages API.
type TwilioProvider struct {
	cfg        TwilioConfig
	httpClient *http.Client
	logger     *slog.Logger
}

func NewTwilioProvider(cfg TwilioConfig, httpClient *http.Client, logger *slog.Logger) *TwilioProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultTwilioAPIBase
	}
	cfg.APIBase = strings.TrimRight(cfg.APIBase, "/")
	return &TwilioProvider{
		cfg:        cfg,
		httpClient: httpClient,
		logger:     logger.With("provider", "twilio"),
	}
}

type twilioMessageResponse struct {
	SID          string `json:"sid"`
	Status       string `json:"status"`
	ErrorCode    *int   `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

type twilioErrorResponse struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

// NewFromConfig returns a TwilioProvider, or a MockProvider when the account
// credentials are missing.
func NewFromConfig(cfg TwilioConfig, httpClient *http.Client, logger *slog.Logger) MessageProvider {
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		logger.Warn("twilio credentials not configured; outbound messages use the mock provider")
		return NewMockProvider(logger, false, 0)
	}
	return NewTwilioProvider(cfg, httpClient, logger)
}

func (p *TwilioProvider) endpoint() string {
	return fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", p.cfg.APIBase, url.PathEscape(p.cfg.AccountSID))
}

func (p *TwilioProvider) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	timer := prometheus.NewTimer(providerRequestDuration.WithLabelValues(p.GetName()))
	defer timer.ObserveDuration()

	form := url.Values{}
	form.Set("From", withChannelPrefix(p.cfg.FromNumber))
	form.Set("To", withChannelPrefix(req.To))
	form.Set("Body", req.Body)
	if req.MediaURL != "" {
		form.Set("MediaUrl", req.MediaURL)
	}
	if p.cfg.StatusCallbackURL != "" {
		form.Set("StatusCallback", p.cfg.StatusCallbackURL)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create twilio request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.SetBasicAuth(p.cfg.AccountSID, p.cfg.AuthToken)

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to twilio: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("twilio response (status %d) unreadable: %w", httpResp.StatusCode, err)
	}
	p.logger.DebugContext(ctx, "twilio response", "status_code", httpResp.StatusCode, "body", string(body))

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		errMsg := fmt.Sprintf("twilio API error: status %d", httpResp.StatusCode)
		var apiErr twilioErrorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			errMsg = fmt.Sprintf("twilio API error: status %d, code %d: %s", httpResp.StatusCode, apiErr.Code, apiErr.Message)
		}
		p.logger.WarnContext(ctx, "twilio send failed", "to", req.To, "status_code", httpResp.StatusCode, "error", errMsg)
		return nil, errors.New(errMsg)
	}

	var msg twilioMessageResponse
	if err := json.Unmarshal(body, &msg); err != nil {
		p.logger.WarnContext(ctx, "twilio accepted message but response was not JSON", "error", err)
		return &SendResult{Status: "accepted"}, nil
	}

	p.logger.InfoContext(ctx, "message sent via twilio", "to", req.To, "sid", msg.SID, "status", msg.Status)
	return &SendResult{ProviderMessageID: msg.SID, Status: msg.Status, Raw: json.RawMessage(body)}, nil
}

func (p *TwilioProvider) GetName() string {
	return "twilio"
}

func withChannelPrefix(addr string) string {
	if addr == "" || strings.HasPrefix(addr, whatsappPrefix) {
		return addr
	}
	return whatsappPrefix + addr
}
