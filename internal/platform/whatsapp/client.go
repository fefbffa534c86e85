package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/avicolanorte/api/internal/platform/config"
)

// Sender delivers outbound text messages to customers.
type Sender interface {
	SendText(ctx context.Context, phone, text string) error
}

// ErrSendFailed wraps delivery failures reported by the Cloud API.
var ErrSendFailed = errors.New("whatsapp: send failed")

// Client talks to the WhatsApp Cloud API (Meta Graph API).
type Client struct {
	baseURL       string
	phoneNumberID string
	accessToken   string

	httpClient *http.Client
	logger     *zap.Logger
}

// ClientOption customises Client construction.
type ClientOption func(*Client)

// WithHTTPClient overrides the HTTP client used for Graph API calls.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithClientLogger sets the logger used for delivery diagnostics.
func WithClientLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient builds a Client from WhatsApp configuration.
func NewClient(cfg config.WhatsAppConfig, opts ...ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.PhoneNumberID) == "" {
		return nil, errors.New("whatsapp: phone number id is required")
	}
	if strings.TrimSpace(cfg.AccessToken) == "" {
		return nil, errors.New("whatsapp: access token is required")
	}

	timeout := cfg.SendTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &Client{
		baseURL:       strings.TrimRight(cfg.APIBaseURL, "/"),
		phoneNumberID: cfg.PhoneNumberID,
		accessToken:   cfg.AccessToken,
		httpClient:    &http.Client{Timeout: timeout},
		logger:        zap.NewNop(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

type sendTextRequest struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

type textBody struct {
	Body string `json:"body"`
}

type sendTextResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *apiError `json:"error"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

// SendText posts a plain text message to the customer's phone number.
func (c *Client) SendText(ctx context.Context, phone, text string) error {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return errors.New("whatsapp: recipient phone is required")
	}
	if strings.TrimSpace(text) == "" {
		return errors.New("whatsapp: message text is required")
	}

	payload, err := json.Marshal(sendTextRequest{
		MessagingProduct: "whatsapp",
		To:               phone,
		Type:             "text",
		Text:             textBody{Body: text},
	})
	if err != nil {
		return fmt.Errorf("whatsapp: encode payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("whatsapp: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrSendFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var decoded sendTextResponse
		if json.Unmarshal(body, &decoded) == nil && decoded.Error != nil {
			c.logger.Warn("whatsapp: cloud api rejected message",
				zap.Int("status", resp.StatusCode),
				zap.Int("code", decoded.Error.Code),
				zap.String("type", decoded.Error.Type),
			)
			return fmt.Errorf("%w: %s (code %d)", ErrSendFailed, decoded.Error.Message, decoded.Error.Code)
		}
		return fmt.Errorf("%w: unexpected status %d", ErrSendFailed, resp.StatusCode)
	}

	return nil
}
