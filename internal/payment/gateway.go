// Package payment holds the PIX gateway client and the per-tab payment
// session machine. The gateway credential lives only here; nothing
// above this package ever sees it.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode"
)

// Charge is one created PIX charge.
type Charge struct {
	ID           string `json:"id"`
	BRCode       string `json:"brCode"`
	BRCodeBase64 string `json:"brCodeBase64"`
	ExpiresAt    string `json:"expiresAt"`
}

// Gateway charge statuses.
const (
	StatusPending = "PENDING"
	StatusPaid    = "PAID"
	StatusExpired = "EXPIRED"
)

// Doer lets tests substitute the HTTP client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Gateway struct {
	client  Doer
	baseURL string
	apiKey  string
}

func NewGateway(baseURL, apiKey string) *Gateway {
	return &Gateway{
		client:  &http.Client{Timeout: 20 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

// NewGatewayWithClient is the test constructor.
func NewGatewayWithClient(client Doer, baseURL, apiKey string) *Gateway {
	return &Gateway{client: client, baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey}
}

// envelope is the gateway's {data,error} response wrapper.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (g *Gateway) call(ctx context.Context, method, path string, body any, out any) error {
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("payment: encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("payment: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("payment: gateway call: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("payment: gateway returned non-JSON (status %d)", resp.StatusCode)
	}
	if env.Error != nil {
		return fmt.Errorf("payment: gateway error %s: %s", env.Error.Code, env.Error.Message)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("payment: gateway returned status %d", resp.StatusCode)
	}
	if env.Data == nil {
		return errors.New("payment: gateway response missing data")
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("payment: decode gateway data: %w", err)
	}
	return nil
}

// CreateCharge opens a PIX charge for the given amount, tagged with the
// buyer's email so settlement can be traced back to the profile.
func (g *Gateway) CreateCharge(ctx context.Context, email string, amountCents int64) (*Charge, error) {
	body := map[string]any{
		"amount":   amountCents,
		"metadata": map[string]string{"externalId": email},
	}
	var charge Charge
	if err := g.call(ctx, http.MethodPost, "/pixQrCode/create", body, &charge); err != nil {
		return nil, err
	}
	if charge.ID == "" || charge.BRCode == "" {
		return nil, errors.New("payment: charge response missing id or brCode")
	}
	return &charge, nil
}

// ChargeStatus reports the current gateway-side status of a charge.
func (g *Gateway) ChargeStatus(ctx context.Context, id string) (string, error) {
	var out struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := g.call(ctx, http.MethodGet, "/pixQrCode/"+id, nil, &out); err != nil {
		return "", err
	}
	if out.Status == "" {
		return "", errors.New("payment: status response missing status")
	}
	return out.Status, nil
}

// ParseAmountCents converts a display price such as "49,90" or
// "R$ 1.234,56" into integer cents. A price with no decimal part is
// read as whole currency units.
func ParseAmountCents(display string) (int64, error) {
	s := strings.TrimSpace(display)
	s = strings.TrimPrefix(s, "R$")
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ".", "")

	whole, frac, hasFrac := strings.Cut(s, ",")
	if !hasFrac {
		frac = "00"
	}
	switch len(frac) {
	case 2:
	case 1:
		frac += "0"
	case 0:
		frac = "00"
	default:
		return 0, fmt.Errorf("payment: malformed price %q", display)
	}
	digits := whole + frac
	if digits == "" {
		return 0, fmt.Errorf("payment: malformed price %q", display)
	}
	var cents int64
	for _, r := range digits {
		if !unicode.IsDigit(r) {
			return 0, fmt.Errorf("payment: malformed price %q", display)
		}
		cents = cents*10 + int64(r-'0')
	}
	if cents == 0 {
		return 0, fmt.Errorf("payment: price %q is zero", display)
	}
	return cents, nil
}
