// Package notify dispatches outbound webhook calls: the verification
// code email and the result-report email. Both endpoints take
// form-encoded fields and answer with a plain HTTP status.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Doer lets tests substitute the HTTP client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Dispatcher struct {
	client        Doer
	sendCodeURL   string
	sendReportURL string
}

func NewDispatcher(sendCodeURL, sendReportURL string) *Dispatcher {
	return &Dispatcher{
		client:        &http.Client{Timeout: 15 * time.Second},
		sendCodeURL:   sendCodeURL,
		sendReportURL: sendReportURL,
	}
}

// NewDispatcherWithClient is the test constructor.
func NewDispatcherWithClient(client Doer, sendCodeURL, sendReportURL string) *Dispatcher {
	return &Dispatcher{client: client, sendCodeURL: sendCodeURL, sendReportURL: sendReportURL}
}

func (d *Dispatcher) post(ctx context.Context, endpoint string, form url.Values) error {
	if endpoint == "" {
		return fmt.Errorf("notify: endpoint not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("notify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: dispatch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("notify: webhook returned %d", resp.StatusCode)
	}
	return nil
}

// SendCode delivers a one-time verification code to an email address.
func (d *Dispatcher) SendCode(ctx context.Context, email, code string) error {
	form := url.Values{}
	form.Set("email", email)
	form.Set("codigo", code)
	return d.post(ctx, d.sendCodeURL, form)
}

// SendReport delivers the rendered result report.
func (d *Dispatcher) SendReport(ctx context.Context, email, language, reportHTML string) error {
	form := url.Values{}
	form.Set("email", email)
	form.Set("idioma", language)
	form.Set("relatorio_html", reportHTML)
	return d.post(ctx, d.sendReportURL, form)
}
