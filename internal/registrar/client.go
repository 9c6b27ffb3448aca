package registrar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	authHeader       = "x-auth-token"
	maxErrorBodySize = 4 << 10
)

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is the HTTP client for the hosted offchain registrar.
type Client struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	hc      httpDoer
	tracer  trace.Tracer
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient swaps the transport, mainly for tests.
func WithHTTPClient(hc httpDoer) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.hc = hc
		}
	}
}

// WithTimeout bounds every call made by the client.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewClient builds a registrar client rooted at baseURL.
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		timeout: 10 * time.Second,
		hc:      &http.Client{},
		tracer:  otel.Tracer("tapday/registrar"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type availabilityResponse struct {
	IsAvailable bool `json:"isAvailable"`
}

type searchResponse struct {
	Items      []wireSubname `json:"items"`
	TotalItems int           `json:"totalItems"`
}

type wireSubname struct {
	Label      string            `json:"label"`
	ParentName string            `json:"parentName"`
	FullName   string            `json:"fullName"`
	Owner      string            `json:"owner"`
	Texts      map[string]string `json:"texts"`
	Addresses  map[string]string `json:"addresses"`
	Metadata   map[string]string `json:"metadata"`
	CreatedAt  json.RawMessage   `json:"createdAt"`
}

func (w wireSubname) toModel() Subname {
	full := w.FullName
	if full == "" && w.Label != "" && w.ParentName != "" {
		full = w.Label + "." + w.ParentName
	}
	return Subname{
		Label:      w.Label,
		ParentName: w.ParentName,
		FullName:   full,
		Owner:      w.Owner,
		Texts:      w.Texts,
		Addresses:  w.Addresses,
		Metadata:   w.Metadata,
		CreatedAt:  parseCreatedAt(w.CreatedAt),
	}
}

// parseCreatedAt accepts an RFC 3339 string, epoch seconds or epoch
// milliseconds, bare or quoted. Anything else yields the zero time.
func parseCreatedAt(raw json.RawMessage) time.Time {
	v := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if v == "" || v == "null" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t.UTC()
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return time.Time{}
	}
	if n >= 1e12 {
		return time.UnixMilli(int64(n)).UTC()
	}
	return time.Unix(int64(n), 0).UTC()
}

type createBody struct {
	Label      string           `json:"label"`
	ParentName string           `json:"parentName"`
	Owner      string           `json:"owner"`
	Addresses  []AddressBinding `json:"addresses"`
	Texts      []Record         `json:"texts"`
	Metadata   []Record         `json:"metadata"`
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// IsAvailable reports whether fullName is unregistered.
func (c *Client) IsAvailable(ctx context.Context, fullName string) (bool, error) {
	ctx, span := c.tracer.Start(ctx, "registrar.IsAvailable", trace.WithAttributes(
		attribute.String("subname.full_name", fullName),
	))
	defer span.End()

	var out availabilityResponse
	endpoint := c.baseURL + "/api/v1/subnames/availability/" + url.PathEscape(fullName)
	if err := c.do(ctx, "availability", http.MethodGet, endpoint, nil, &out); err != nil {
		recordSpanError(span, err)
		return false, err
	}
	return out.IsAvailable, nil
}

// FindByOwner returns records whose metadata sender equals address.
func (c *Client) FindByOwner(ctx context.Context, parentName, address string, limit int) ([]Subname, error) {
	ctx, span := c.tracer.Start(ctx, "registrar.FindByOwner", trace.WithAttributes(
		attribute.String("subname.parent", parentName),
		attribute.String("subname.owner", address),
	))
	defer span.End()

	q := url.Values{}
	q.Set("parentName", parentName)
	q.Set("size", strconv.Itoa(limit))
	q.Set("metadata[sender]", address)
	items, err := c.search(ctx, "search", q)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	return items, nil
}

// List returns up to size records under parentName with no filter.
func (c *Client) List(ctx context.Context, parentName string, size int) ([]Subname, error) {
	ctx, span := c.tracer.Start(ctx, "registrar.List", trace.WithAttributes(
		attribute.String("subname.parent", parentName),
		attribute.Int("page.size", size),
	))
	defer span.End()

	q := url.Values{}
	q.Set("parentName", parentName)
	q.Set("size", strconv.Itoa(size))
	items, err := c.search(ctx, "list", q)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("subname.count", len(items)))
	return items, nil
}

func (c *Client) search(ctx context.Context, op string, q url.Values) ([]Subname, error) {
	var out searchResponse
	endpoint := c.baseURL + "/api/v1/subnames/search?" + q.Encode()
	if err := c.do(ctx, op, http.MethodGet, endpoint, nil, &out); err != nil {
		return nil, err
	}
	items := make([]Subname, 0, len(out.Items))
	for _, it := range out.Items {
		items = append(items, it.toModel())
	}
	return items, nil
}

// Create registers a subname. A rejected write returns *RegistryError.
func (c *Client) Create(ctx context.Context, req CreateRequest) (*Subname, error) {
	ctx, span := c.tracer.Start(ctx, "registrar.Create", trace.WithAttributes(
		attribute.String("subname.full_name", req.FullName()),
	))
	defer span.End()

	body := createBody{
		Label:      req.Label,
		ParentName: req.ParentName,
		Owner:      req.Owner,
		Addresses:  req.Addresses,
		Texts:      req.Texts,
		Metadata:   req.Metadata,
	}
	if body.Texts == nil {
		body.Texts = []Record{}
	}

	var out wireSubname
	if err := c.do(ctx, "create", http.MethodPost, c.baseURL+"/api/v1/subnames", body, &out); err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	// The registrar may answer with an empty body; fall back to the request.
	created := out.toModel()
	if created.FullName == "" {
		created = Subname{
			Label:      req.Label,
			ParentName: req.ParentName,
			FullName:   req.FullName(),
			Owner:      req.Owner,
			Texts:      recordsToMap(req.Texts),
			Addresses:  bindingsToMap(req.Addresses),
			Metadata:   recordsToMap(req.Metadata),
		}
	}
	return &created, nil
}

func (c *Client) do(ctx context.Context, op, method, endpoint string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("registrar %s: encode request: %w", op, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("registrar %s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set(authHeader, c.apiKey)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return &RegistryError{Op: op, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RegistryError{Op: op, StatusCode: resp.StatusCode, Message: readErrorMessage(resp)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return &RegistryError{Op: op, StatusCode: resp.StatusCode, Message: "malformed response: " + err.Error(), Err: err}
	}
	return nil
}

func readErrorMessage(resp *http.Response) string {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	var eb errorBody
	if json.Unmarshal(raw, &eb) == nil {
		if eb.Message != "" {
			return eb.Message
		}
		if eb.Error != "" {
			return eb.Error
		}
	}
	if msg := strings.TrimSpace(string(raw)); msg != "" {
		return msg
	}
	return http.StatusText(resp.StatusCode)
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
