package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-cleanhttp"
	"go.uber.org/zap"

	"github.com/nludb/nludb-go/internal/domain"
	"github.com/nludb/nludb-go/internal/metrics"
)

// DefaultBaseURL is the public NLUDB API endpoint.
const DefaultBaseURL = "https://api.nludb.com/api/v1/"

// maxErrorBody caps how much of a failed response is kept in error messages.
const maxErrorBody = 4 << 10

// Config holds the API client settings.
type Config struct {
	BaseURL    string
	APIKey     string
	UserAgent  string
	Timeout    time.Duration
	HTTPClient *http.Client // optional; a pooled cleanhttp client is built otherwise
	Logger     *zap.Logger
}

// Client issues JSON and multipart calls against the NLUDB API.
type Client struct {
	baseURL   *url.URL
	apiKey    string
	userAgent string
	http      *http.Client
	logger    *zap.Logger
}

// New creates an API client.
func New(cfg *Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, domain.ErrMissingAPIKey
	}

	raw := cfg.BaseURL
	if raw == "" {
		raw = DefaultBaseURL
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", raw)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = cleanhttp.DefaultPooledClient()
	} else {
		cp := *hc
		hc = &cp
	}
	hc.Transport = metrics.RoundTripper(hc.Transport, base.Path)
	if cfg.Timeout > 0 {
		hc.Timeout = cfg.Timeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:   base,
		apiKey:    cfg.APIKey,
		userAgent: cfg.UserAgent,
		http:      hc,
		logger:    logger,
	}, nil
}

// BaseURL returns the resolved API root.
func (c *Client) BaseURL() string { return c.baseURL.String() }

// Post sends payload as JSON and decodes the response envelope.
func (c *Client) Post(ctx context.Context, endpoint string, payload any) (*domain.Envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: encode request: %w", endpoint, err)
	}
	data, err := c.do(ctx, endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	return decodeEnvelope(endpoint, data)
}

// PostFile sends payload fields and a file as multipart/form-data.
func (c *Client) PostFile(
	ctx context.Context, endpoint string, payload any, file domain.FilePart,
) (*domain.Envelope, error) {
	body, contentType, err := encodeMultipart(payload, file)
	if err != nil {
		return nil, fmt.Errorf("%s: encode multipart: %w", endpoint, err)
	}
	data, err := c.do(ctx, endpoint, contentType, body)
	if err != nil {
		return nil, err
	}
	return decodeEnvelope(endpoint, data)
}

// PostRaw sends payload as JSON and returns the raw response body.
func (c *Client) PostRaw(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: encode request: %w", endpoint, err)
	}
	return c.do(ctx, endpoint, "application/json", bytes.NewReader(body))
}

func (c *Client) do(ctx context.Context, endpoint, contentType string, body io.Reader) ([]byte, error) {
	target := c.baseURL.JoinPath(endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", endpoint, err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-Request-ID", requestID)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("api request failed",
			zap.String("endpoint", endpoint),
			zap.String("request_id", requestID),
			zap.Duration("latency", time.Since(start)),
			zap.Error(err),
		)
		return nil, &domain.TransportError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.TransportError{Endpoint: endpoint, Err: fmt.Errorf("read body: %w", err)}
	}

	c.logger.Debug("api request",
		zap.String("endpoint", endpoint),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
		zap.Int("response_bytes", len(data)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apiError(endpoint, resp.StatusCode, data)
	}
	return data, nil
}

// apiError builds an APIError from the envelope error if present, the raw body otherwise.
func apiError(endpoint string, status int, body []byte) error {
	e := &domain.APIError{Endpoint: endpoint, StatusCode: status}

	var env domain.Envelope
	if json.Unmarshal(body, &env) == nil && env.Error != nil {
		e.Code = env.Error.Code
		e.Message = env.Error.Message
		return e
	}

	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody]
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	e.Message = msg
	return e
}

func decodeEnvelope(endpoint string, data []byte) (*domain.Envelope, error) {
	var env domain.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", endpoint, domain.ErrMalformedResponse, err)
	}
	if env.Error != nil {
		// 2xx with an error body: the server reports application errors inline.
		return nil, &domain.APIError{
			Endpoint:   endpoint,
			StatusCode: http.StatusOK,
			Code:       env.Error.Code,
			Message:    env.Error.Message,
		}
	}
	return &env, nil
}

// Decode unmarshals the envelope data into T.
func Decode[T any](env *domain.Envelope) (T, error) {
	var out T
	if env == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return out, fmt.Errorf("%w: missing data", domain.ErrMalformedResponse)
	}
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return out, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	return out, nil
}

// encodeMultipart writes the JSON fields of payload as form values and the
// file under the "file" field.
func encodeMultipart(payload any, file domain.FilePart) (io.Reader, string, error) {
	fields, err := formFields(payload)
	if err != nil {
		return nil, "", err
	}

	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", k, err)
		}
	}

	part, err := w.CreateFormFile("file", file.Name)
	if err != nil {
		return nil, "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(file.Content); err != nil {
		return nil, "", fmt.Errorf("write file part: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return buf, w.FormDataContentType(), nil
}

// formFields flattens a JSON-tagged struct into string form values.
func formFields(payload any) (map[string]string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.New("multipart payload must encode to a JSON object")
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		var s string
		if json.Unmarshal(v, &s) == nil {
			out[k] = s
			continue
		}
		out[k] = string(v)
	}
	return out, nil
}
