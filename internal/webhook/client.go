// Package webhook delivers signed logo and batch notifications.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dunamismax/logocrunch/internal/domain"
)

const (
	HeaderSignature = "X-Logocrunch-Signature"
	HeaderTimestamp = "X-Logocrunch-Timestamp"
	HeaderEvent     = "X-Logocrunch-Event"
)

const (
	EventLogoFinished   = "logo.finished"
	EventLogoFailed     = "logo.failed"
	EventBatchCompleted = "batch.completed"
)

// ErrRejected marks a 4xx response other than 429; it is not retried.
var ErrRejected = errors.New("webhook rejected")

// BatchSummary is the body of a batch.completed event.
type BatchSummary struct {
	BatchID        string  `json:"batch_id"`
	Total          int     `json:"total"`
	Succeeded      int     `json:"succeeded"`
	Failed         int     `json:"failed"`
	Vector         int     `json:"vector"`
	Raster         int     `json:"raster"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	FirstError     string  `json:"first_error,omitempty"`
}

type Config struct {
	SigningSecret  string
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

type Client struct {
	httpClient     *http.Client
	signingSecret  string
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	now            func() time.Time
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	initialBackoff := cfg.InitialBackoff
	if initialBackoff <= 0 {
		initialBackoff = 1 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		signingSecret:  cfg.SigningSecret,
		maxAttempts:    max(1, cfg.MaxAttempts),
		initialBackoff: initialBackoff,
		maxBackoff:     max(cfg.MaxBackoff, initialBackoff),
		now:            time.Now,
	}
}

// SendLogoResult posts logo.finished or logo.failed depending on the
// result's status.
func (c *Client) SendLogoResult(ctx context.Context, endpoint string, result domain.LogoResult) error {
	event := EventLogoFinished
	if result.Status == domain.JobStatusFailed {
		event = EventLogoFailed
	}
	return c.Send(ctx, endpoint, event, result)
}

func (c *Client) SendBatchCompleted(ctx context.Context, endpoint string, summary BatchSummary) error {
	return c.Send(ctx, endpoint, EventBatchCompleted, summary)
}

// Send posts payload as JSON. An empty endpoint is a no-op.
func (c *Client) Send(ctx context.Context, endpoint, event string, payload any) error {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	timestamp := strconv.FormatInt(c.now().UTC().Unix(), 10)
	signature := Sign(c.signingSecret, timestamp, body)

	backoff := c.initialBackoff
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = c.post(ctx, endpoint, event, timestamp, signature, body)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, ErrRejected) || attempt == c.maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff = min(backoff*2, c.maxBackoff)
	}

	return fmt.Errorf("%s delivery failed: %w", event, lastErr)
}

func (c *Client) post(ctx context.Context, endpoint, event, timestamp, signature string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: build request: %w", ErrRejected, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderTimestamp, timestamp)
	req.Header.Set(HeaderSignature, signature)
	req.Header.Set(HeaderEvent, event)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests:
		return fmt.Errorf("%w: status=%d", ErrRejected, resp.StatusCode)
	default:
		return fmt.Errorf("webhook returned status=%d", resp.StatusCode)
	}
}

// Sign computes the signature header value for a delivery.
func Sign(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a received signature in constant time.
func Verify(secret, timestamp string, body []byte, signature string) bool {
	return hmac.Equal([]byte(Sign(secret, timestamp, body)), []byte(signature))
}
