// Package whatsapp talks to a GoWA (go-whatsapp-web-multidevice) gateway:
// outbound text messages and the inbound webhook payload.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"converzia_backend/internal/qualification/ports"
	"converzia_backend/platform/config"
	"converzia_backend/platform/logger"
	"converzia_backend/platform/phone"
)

// ErrGateway is returned when the gateway rejects a send.
var ErrGateway = errors.New("whatsapp gateway error")

type Client struct {
	baseURL  string
	apiKey   string
	deviceID string
	http     *http.Client
	log      *logger.Logger
}

var _ ports.MessageSender = (*Client)(nil)

type gowaRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

type gowaResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Results struct {
		MessageID string `json:"message_id"`
		Status    string `json:"status"`
	} `json:"results"`
}

// NewClient returns nil when no gateway URL is configured.
func NewClient(cfg config.WhatsAppConfig, log *logger.Logger) *Client {
	if cfg.GetWhatsAppURL() == "" {
		return nil
	}

	return &Client{
		baseURL:  strings.TrimRight(cfg.GetWhatsAppURL(), "/"),
		apiKey:   cfg.GetWhatsAppKey(),
		deviceID: cfg.GetWhatsAppDeviceID(),
		http:     &http.Client{Timeout: 15 * time.Second},
		log:      log,
	}
}

// SendMessage sends a text message to an E.164 number.
func (c *Client) SendMessage(ctx context.Context, phoneNumber string, message string) error {
	digits := phone.Digits(phoneNumber)
	if digits == "" {
		return fmt.Errorf("%w: empty phone number", ErrGateway)
	}

	body, err := json.Marshal(gowaRequest{Phone: digits + "@s.whatsapp.net", Message: message})
	if err != nil {
		return fmt.Errorf("marshal whatsapp payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/send/message", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", formatAuthHeader(c.apiKey))
	}
	if c.deviceID != "" {
		req.Header.Set("X-Device-Id", c.deviceID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%w: status %d: %s", ErrGateway, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var parsed gowaResponse
	if err := json.Unmarshal(data, &parsed); err == nil && parsed.Code != "" && !strings.EqualFold(parsed.Code, "SUCCESS") {
		return fmt.Errorf("%w: %s: %s", ErrGateway, parsed.Code, parsed.Message)
	}

	c.log.Debug("whatsapp message sent", "phone", digits, "messageId", parsed.Results.MessageID)
	return nil
}

func formatAuthHeader(apiKey string) string {
	if strings.HasPrefix(strings.ToLower(apiKey), "basic ") {
		return apiKey
	}
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(apiKey))
}
