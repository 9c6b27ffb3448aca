package transfers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"tapday/pkg/domain"
	"tapday/pkg/platform/sentinel"
)

const (
	statusOK       = "1"
	startBlock     = "0"
	endBlock       = "99999999"
	maxLedgerBytes = 32 << 20
)

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// LedgerClient reads token transfers from an etherscan-compatible API.
type LedgerClient struct {
	apiURL   string
	apiKey   string
	chainID  int64
	contract string
	timeout  time.Duration
	hc       httpDoer
	tracer   trace.Tracer
}

// LedgerOption configures a LedgerClient.
type LedgerOption func(*LedgerClient)

func WithHTTPClient(hc httpDoer) LedgerOption {
	return func(c *LedgerClient) {
		if hc != nil {
			c.hc = hc
		}
	}
}

func WithTimeout(d time.Duration) LedgerOption {
	return func(c *LedgerClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithChainID sets the chainid query parameter. Zero omits it.
func WithChainID(id int64) LedgerOption {
	return func(c *LedgerClient) {
		c.chainID = id
	}
}

// NewLedgerClient creates a client scoped to one token contract.
func NewLedgerClient(apiURL, apiKey, contract string, opts ...LedgerOption) *LedgerClient {
	c := &LedgerClient{
		apiURL:   apiURL,
		apiKey:   apiKey,
		contract: contract,
		timeout:  30 * time.Second,
		hc:       &http.Client{},
		tracer:   otel.Tracer("tapday/transfers"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type tokenTxResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

type tokenTx struct {
	From         string `json:"from"`
	To           string `json:"to"`
	Value        string `json:"value"`
	TokenDecimal string `json:"tokenDecimal"`
	Hash         string `json:"hash"`
}

// TokenTransfers returns every transfer of the configured token touching
// address, newest first. A non-"1" status or a non-array result is an error
// wrapping sentinel.ErrUnavailable.
func (c *LedgerClient) TokenTransfers(ctx context.Context, address domain.Address) ([]Edge, error) {
	ctx, span := c.tracer.Start(ctx, "ledger.TokenTransfers", trace.WithAttributes(
		attribute.String("ledger.address", address.String()),
	))
	defer span.End()

	edges, err := c.tokenTransfers(ctx, address)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ledger call failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("ledger.transfers", len(edges)))
	return edges, nil
}

func (c *LedgerClient) tokenTransfers(ctx context.Context, address domain.Address) ([]Edge, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	q := url.Values{
		"module":          {"account"},
		"action":          {"tokentx"},
		"contractaddress": {c.contract},
		"address":         {address.String()},
		"startblock":      {startBlock},
		"endblock":        {endBlock},
		"sort":            {"desc"},
	}
	if c.chainID != 0 {
		q.Set("chainid", strconv.FormatInt(c.chainID, 10))
	}
	if c.apiKey != "" {
		q.Set("apikey", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build ledger request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call ledger: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("ledger returned status %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	}

	var out tokenTxResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxLedgerBytes)).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode ledger response: %w", err)
	}
	if out.Status != statusOK {
		return nil, fmt.Errorf("ledger status %q (%s): %w", out.Status, out.Message, sentinel.ErrUnavailable)
	}

	var txs []tokenTx
	if err := json.Unmarshal(out.Result, &txs); err != nil {
		return nil, fmt.Errorf("ledger result is not a transfer list: %w", sentinel.ErrUnavailable)
	}

	edges := make([]Edge, 0, len(txs))
	for _, tx := range txs {
		edge, ok := toEdge(tx)
		if !ok {
			continue
		}
		edges = append(edges, edge)
	}
	return edges, nil
}

// toEdge drops rows whose addresses do not parse. An unparseable amount is
// kept as zero so the edge still counts as a destination.
func toEdge(tx tokenTx) (Edge, bool) {
	from, err := domain.ParseAddress(tx.From)
	if err != nil {
		return Edge{}, false
	}
	to, err := domain.ParseAddress(tx.To)
	if err != nil {
		return Edge{}, false
	}
	return Edge{From: from, To: to, Amount: tokenAmount(tx.Value, tx.TokenDecimal), Hash: tx.Hash}, true
}

func tokenAmount(value, decimals string) decimal.Decimal {
	raw, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Zero
	}
	places, err := strconv.ParseInt(strings.TrimSpace(decimals), 10, 32)
	if err != nil || places < 0 {
		return raw
	}
	return raw.Shift(-int32(places))
}
