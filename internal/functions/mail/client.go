package mail

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrNotConfigured indicates the mail client is not configured
	ErrNotConfigured = errors.New("mail client not configured")
	// ErrInvalidRecipient indicates the recipient address was rejected; not retried
	ErrInvalidRecipient = errors.New("invalid recipient address")
	// ErrSendFailed indicates delivery failed after all retry attempts
	ErrSendFailed = errors.New("email send failed")
)

const (
	maxAttempts = 3
	defaultFrom = "onboarding@resend.dev"
)

// Message is one outbound transactional email
type Message struct {
	To      string
	From    string
	Subject string
	Body    string // plain text; formatted to HTML before sending
}

// SendResult reports a successful delivery
type SendResult struct {
	MessageID string
	SentAt    time.Time
}

// Client delivers email through a Resend-style transactional API
type Client struct {
	apiKey     string
	from       string
	baseURL    string
	httpClient *http.Client

	// sleep is replaced in tests to avoid real backoff waits
	sleep func(time.Duration)
}

// NewClient creates a new mail Client instance
func NewClient(apiKey, from, baseURL string) *Client {
	if from == "" {
		from = defaultFrom
	}
	return &Client{
		apiKey:  apiKey,
		from:    from,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		sleep: time.Sleep,
	}
}

// IsConfigured returns whether the client has an API key
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type sendResponse struct {
	ID    string `json:"id"`
	Error *struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Send delivers a message with up to 3 attempts and exponential backoff
// (1s, 2s, 4s). Address-validation failures are not retried.
func (c *Client) Send(msg Message) (*SendResult, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	from := msg.From
	if from == "" {
		from = c.from
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := c.attempt(sendRequest{
			From:    from,
			To:      []string{msg.To},
			Subject: msg.Subject,
			HTML:    FormatBody(msg.Body),
		})
		if err == nil {
			return result, nil
		}
		if errors.Is(err, ErrInvalidRecipient) {
			return nil, err
		}
		lastErr = err

		// Exponential backoff before the next attempt
		if attempt < maxAttempts {
			c.sleep(time.Duration(1<<(attempt-1)) * time.Second)
		}
	}

	return nil, fmt.Errorf("%w: %v", ErrSendFailed, lastErr)
}

// attempt performs a single delivery request
func (c *Client) attempt(req sendRequest) (*SendResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequest("POST", c.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var sendResp sendResponse
	// Some error payloads are not JSON; fall through to the status check
	_ = json.Unmarshal(respBody, &sendResp)

	if resp.StatusCode != http.StatusOK {
		message := string(respBody)
		if sendResp.Error != nil {
			message = sendResp.Error.Message
		}
		if isInvalidRecipient(resp.StatusCode, message) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidRecipient, message)
		}
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, message)
	}

	if sendResp.Error != nil {
		if isInvalidRecipient(resp.StatusCode, sendResp.Error.Message) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidRecipient, sendResp.Error.Message)
		}
		return nil, errors.New(sendResp.Error.Message)
	}

	return &SendResult{
		MessageID: sendResp.ID,
		SentAt:    time.Now(),
	}, nil
}

// isInvalidRecipient classifies address-validation failures, which are terminal
func isInvalidRecipient(status int, message string) bool {
	if status == http.StatusUnprocessableEntity {
		return true
	}
	lower := strings.ToLower(message)
	return strings.Contains(lower, "invalid email") || strings.Contains(lower, "invalid `to`")
}

// FormatBody wraps a plain-text email body into minimal HTML
func FormatBody(body string) string {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	htmlBody := strings.Join(lines, "<br>")

	return `<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8">
    <style>
      body {
        font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif;
        line-height: 1.6;
        color: #333;
        max-width: 600px;
        margin: 0 auto;
        padding: 20px;
      }
    </style>
  </head>
  <body>
    ` + htmlBody + `
  </body>
</html>`
}
