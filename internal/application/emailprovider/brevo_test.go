package emailprovider

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lifeplan/service/internal/domain/notify"
)

func sampleRendered() notify.RenderedEmail {
	return notify.RenderedEmail{Subject: "1 Aufgabe bald fällig", TextBody: "text", HTMLBody: "<p>html</p>"}
}

func TestSend_DryRun(t *testing.T) {
	p := New(Config{DryRun: true})
	result := p.Send("parent@example.de", sampleRendered())
	assert.Equal(t, "sent", result.Status)
	assert.Equal(t, "dry-run", result.ProviderMessageID)
}

func TestSend_RecipientDomainNotAllowed(t *testing.T) {
	p := New(Config{AllowedRecipientDomains: []string{"example.de"}})
	result := p.Send("parent@other.com", sampleRendered())
	assert.Equal(t, "dead", result.Status)
	assert.Equal(t, "permanent", result.FailureClass)
	assert.Equal(t, "RECIPIENT_DOMAIN_NOT_ALLOWED", result.ErrorCode)
}

func TestSend_MissingAPIKey(t *testing.T) {
	p := New(Config{AllowedRecipientDomains: nil})
	result := p.Send("parent@example.de", sampleRendered())
	assert.Equal(t, "dead", result.Status)
	assert.Equal(t, "BREVO_API_KEY_MISSING", result.ErrorCode)
}

func TestSend_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"messageId":"abc-123"}`))
	}))
	defer server.Close()

	p := New(Config{APIKey: "key", BaseURL: server.URL})
	result := p.Send("parent@example.de", sampleRendered())
	assert.Equal(t, "sent", result.Status)
	assert.Equal(t, "abc-123", result.ProviderMessageID)
}

func TestSend_RetryableOn429(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("rate limited"))
	}))
	defer server.Close()

	p := New(Config{APIKey: "key", BaseURL: server.URL})
	result := p.Send("parent@example.de", sampleRendered())
	assert.Equal(t, "pending", result.Status)
	assert.Equal(t, "retryable", result.FailureClass)
	assert.Equal(t, "HTTP_429", result.ErrorCode)
}

func TestSend_RetryableOn5xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	p := New(Config{APIKey: "key", BaseURL: server.URL})
	result := p.Send("parent@example.de", sampleRendered())
	assert.Equal(t, "pending", result.Status)
	assert.Equal(t, "retryable", result.FailureClass)
}

func TestSend_PermanentOnOtherStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("bad request"))
	}))
	defer server.Close()

	p := New(Config{APIKey: "key", BaseURL: server.URL})
	result := p.Send("parent@example.de", sampleRendered())
	assert.Equal(t, "dead", result.Status)
	assert.Equal(t, "permanent", result.FailureClass)
	assert.Equal(t, "HTTP_400", result.ErrorCode)
}
