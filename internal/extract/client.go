package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/MigzCtrl/TireOps-sub000/internal/inventory"
	"github.com/MigzCtrl/TireOps-sub000/internal/match"
)

// ImportType selects which record shape the extraction service returns.
type ImportType string

const (
	TypeCustomers ImportType = "customers"
	TypeInventory ImportType = "inventory"
)

// Config drives the extraction service client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Result is one extraction pass. Exactly one of Customers or Inventory is
// populated depending on the requested type. The payload is adversarial
// input: placeholder labels, junk contact fields and malformed rows all pass
// through for the reconciliation pipeline to deal with.
type Result struct {
	Customers []match.Candidate
	Inventory []inventory.Candidate
	Method    string
}

// ErrMissingEndpoint is returned when no service URL is configured.
var ErrMissingEndpoint = errors.New("extract client missing base url")

// Client posts uploaded files to the remote extraction service.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewClient constructs an extraction client if configuration is valid.
func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, ErrMissingEndpoint
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(cfg.APIKey),
	}, nil
}

type analyzeResponse struct {
	Data   json.RawMessage `json:"data"`
	Method string          `json:"method"`
	Error  string          `json:"error"`
}

// Analyze uploads the file with a type discriminator and decodes the
// extracted rows. Any service-side failure comes back as a single error.
func (c *Client) Analyze(ctx context.Context, file io.Reader, filename string, importType ImportType) (Result, error) {
	if c == nil {
		return Result{}, ErrMissingEndpoint
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return Result{}, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return Result{}, fmt.Errorf("copy upload: %w", err)
	}
	if err := writer.WriteField("type", string(importType)); err != nil {
		return Result{}, fmt.Errorf("write type field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return Result{}, fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", &body)
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("call extraction service: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return Result{}, fmt.Errorf("read extraction response: %w", err)
	}

	var decoded analyzeResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return Result{}, fmt.Errorf("decode extraction response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		message := strings.TrimSpace(decoded.Error)
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		return Result{}, fmt.Errorf("extraction service: %s", message)
	}
	if strings.TrimSpace(decoded.Error) != "" {
		return Result{}, fmt.Errorf("extraction service: %s", strings.TrimSpace(decoded.Error))
	}

	result := Result{Method: strings.TrimSpace(decoded.Method)}
	if len(decoded.Data) == 0 {
		return result, nil
	}

	switch importType {
	case TypeCustomers:
		if err := json.Unmarshal(decoded.Data, &result.Customers); err != nil {
			return Result{}, fmt.Errorf("decode customer rows: %w", err)
		}
	case TypeInventory:
		if err := json.Unmarshal(decoded.Data, &result.Inventory); err != nil {
			return Result{}, fmt.Errorf("decode inventory rows: %w", err)
		}
	default:
		return Result{}, fmt.Errorf("unknown import type %q", importType)
	}
	return result, nil
}
