package provider

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

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	appErrors "github.com/wech4801-eng/mirror-frame-forge/internal/errors"
	"github.com/wech4801-eng/mirror-frame-forge/internal/model"
)

// statusError is a non-2xx answer from the API.
type statusError struct {
	Code    int
	Message string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("email provider returned %d: %s", e.Code, e.Message)
}

// HTTPProvider is a JSON client for the email API. Calls go through a
// circuit breaker that opens after consecutive server-side failures.
type HTTPProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

func NewHTTPProvider(baseURL, apiKey string, logger *zap.Logger) *HTTPProvider {
	p := &HTTPProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
	p.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "email-provider",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			var se *statusError
			// 4xx means the request was bad, not that the provider is down.
			return err == nil || (errors.As(err, &se) && se.Code < 500)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("component", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return p
}

type sendRequest struct {
	From    string            `json:"from"`
	To      []string          `json:"to"`
	Subject string            `json:"subject"`
	HTML    string            `json:"html"`
	Tags    map[string]string `json:"tags,omitempty"`
}

type sendResponse struct {
	ID string `json:"id"`
}

type domainRecord struct {
	Record   string `json:"record"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Value    string `json:"value"`
	Priority int    `json:"priority,omitempty"`
	Status   string `json:"status"`
}

type domainResponse struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Status  string         `json:"status"`
	Records []domainRecord `json:"records"`
}

func (r domainResponse) toDomain() *Domain {
	d := &Domain{ID: r.ID, Name: r.Name, Status: r.Status, Records: make([]model.DNSRecord, 0, len(r.Records))}
	for _, rec := range r.Records {
		d.Records = append(d.Records, model.DNSRecord{
			Type:     rec.Type,
			Name:     rec.Name,
			Value:    rec.Value,
			Priority: rec.Priority,
			Status:   rec.Status,
		})
	}
	return d
}

func (p *HTTPProvider) Send(ctx context.Context, msg Message) (string, error) {
	var resp sendResponse
	body := sendRequest{From: msg.From, To: []string{msg.To}, Subject: msg.Subject, HTML: msg.HTML, Tags: msg.Tags}
	if err := p.do(ctx, http.MethodPost, "/emails", body, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (p *HTTPProvider) CreateDomain(ctx context.Context, name string) (*Domain, error) {
	var resp domainResponse
	if err := p.do(ctx, http.MethodPost, "/domains", map[string]string{"name": name}, &resp); err != nil {
		return nil, err
	}
	return resp.toDomain(), nil
}

func (p *HTTPProvider) GetDomain(ctx context.Context, id string) (*Domain, error) {
	var resp domainResponse
	if err := p.do(ctx, http.MethodGet, "/domains/"+id, nil, &resp); err != nil {
		return nil, err
	}
	return resp.toDomain(), nil
}

func (p *HTTPProvider) do(ctx context.Context, method, path string, in, out any) error {
	_, err := p.breaker.Execute(func() (interface{}, error) {
		return nil, p.roundTrip(ctx, method, path, in, out)
	})
	if err == nil {
		return nil
	}

	var se *statusError
	switch {
	case errors.As(err, &se):
		return appErrors.External(se.Message, err).WithField("status", se.Code)
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return appErrors.External("email provider is unavailable", err)
	default:
		return appErrors.External("email provider request failed", err)
	}
}

func (p *HTTPProvider) roundTrip(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &statusError{Code: resp.StatusCode, Message: errorMessage(data, resp.Status)}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode provider response: %w", err)
	}
	return nil
}

// errorMessage pulls "message" or "error" out of an error body.
func errorMessage(body []byte, fallback string) string {
	var e struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil {
		if e.Message != "" {
			return e.Message
		}
		if e.Error != "" {
			return e.Error
		}
	}
	return fallback
}

var _ EmailProvider = (*HTTPProvider)(nil)
