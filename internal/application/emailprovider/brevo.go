// Package emailprovider sends rendered reminder emails through Brevo's
// transactional email API, translating every outcome into the
// outbox's sent/pending/dead vocabulary.
package emailprovider

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lifeplan/service/internal/domain/notify"
)

// Config configures the Brevo provider.
type Config struct {
	FromName                string
	FromEmail               string
	APIKey                  string
	BaseURL                 string
	DryRun                  bool
	AllowedRecipientDomains []string // lower-cased; empty means no restriction
}

// maxErrorBodyLen bounds how much of a failed response body is kept in
// error_message.
const maxErrorBodyLen = 500

// SendResult is the outcome of one send attempt, in the vocabulary the
// outbox dispatcher maps directly onto its own status/failure_class
// columns.
type SendResult struct {
	Status            string // sent | pending | dead
	FailureClass      string // "" | retryable | permanent
	ErrorCode         string
	ErrorMessage      string
	ProviderMessageID string
}

// Provider sends email through Brevo's /smtp/email endpoint.
type Provider struct {
	cfg    Config
	client *http.Client
}

// New creates a Provider. A 10s client timeout bounds every send so a
// stalled Brevo connection never blocks the dispatcher loop.
func New(cfg Config) *Provider {
	return &Provider{cfg: cfg, client: &http.Client{Timeout: 10 * time.Second}}
}

// Send delivers rendered to toEmail and reports how the outbox should
// record the attempt.
func (p *Provider) Send(toEmail string, rendered notify.RenderedEmail) SendResult {
	if p.cfg.DryRun {
		return SendResult{Status: "sent", ProviderMessageID: "dry-run"}
	}

	if len(p.cfg.AllowedRecipientDomains) > 0 {
		domain := recipientDomain(toEmail)
		if !containsFold(p.cfg.AllowedRecipientDomains, domain) {
			return SendResult{
				Status: "dead", FailureClass: "permanent",
				ErrorCode: "RECIPIENT_DOMAIN_NOT_ALLOWED", ErrorMessage: "recipient domain is not in whitelist",
			}
		}
	}

	if p.cfg.APIKey == "" {
		return SendResult{
			Status: "dead", FailureClass: "permanent",
			ErrorCode: "BREVO_API_KEY_MISSING", ErrorMessage: "BREVO_API_KEY missing",
		}
	}

	body, err := json.Marshal(map[string]interface{}{
		"sender":      map[string]string{"name": p.cfg.FromName, "email": p.cfg.FromEmail},
		"to":          []map[string]string{{"email": toEmail}},
		"subject":     rendered.Subject,
		"textContent": rendered.TextBody,
		"htmlContent": rendered.HTMLBody,
		"tracking":    map[string]bool{"opens": false, "clicks": false},
	})
	if err != nil {
		return SendResult{Status: "dead", FailureClass: "permanent", ErrorCode: "REQUEST_ENCODE_ERROR", ErrorMessage: err.Error()}
	}

	req, err := http.NewRequest(http.MethodPost, strings.TrimRight(p.cfg.BaseURL, "/")+"/smtp/email", bytes.NewReader(body))
	if err != nil {
		return SendResult{Status: "dead", FailureClass: "permanent", ErrorCode: "REQUEST_BUILD_ERROR", ErrorMessage: err.Error()}
	}
	req.Header.Set("api-key", p.cfg.APIKey)
	req.Header.Set("accept", "application/json")
	req.Header.Set("content-type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			return SendResult{Status: "pending", FailureClass: "retryable", ErrorCode: "TIMEOUT", ErrorMessage: err.Error()}
		}
		return SendResult{Status: "pending", FailureClass: "retryable", ErrorCode: "HTTP_ERROR", ErrorMessage: err.Error()}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var parsed struct {
			MessageID string `json:"messageId"`
		}
		_ = json.Unmarshal(respBody, &parsed)
		return SendResult{Status: "sent", ProviderMessageID: parsed.MessageID}
	}

	truncated := string(respBody)
	if len(truncated) > maxErrorBodyLen {
		truncated = truncated[:maxErrorBodyLen]
	}
	code := fmt.Sprintf("HTTP_%d", resp.StatusCode)

	if resp.StatusCode == 408 || resp.StatusCode == 409 || resp.StatusCode == 429 || resp.StatusCode >= 500 {
		return SendResult{Status: "pending", FailureClass: "retryable", ErrorCode: code, ErrorMessage: truncated}
	}
	return SendResult{Status: "dead", FailureClass: "permanent", ErrorCode: code, ErrorMessage: truncated}
}

func recipientDomain(email string) string {
	_, domain, found := strings.Cut(email, "@")
	if !found {
		return ""
	}
	return strings.ToLower(domain)
}

func containsFold(domains []string, domain string) bool {
	for _, d := range domains {
		if strings.EqualFold(d, domain) {
			return true
		}
	}
	return false
}
