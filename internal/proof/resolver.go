// Package proof resolves a Farcaster FID to its registered fname through a
// hub's username-proof endpoint. Resolution is best effort: every failure is
// reported as "not found" and logged.
package proof

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"tapday/pkg/platform/circuit"
	"tapday/pkg/requestcontext"
)

const usernameTypeFname = "USERNAME_TYPE_FNAME"

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Resolver looks up fnames by FID.
type Resolver struct {
	hubURL  string
	apiKey  string
	timeout time.Duration
	hc      httpDoer
	breaker *circuit.Breaker
	logger  *slog.Logger
	tracer  trace.Tracer
}

// Option configures a Resolver.
type Option func(*Resolver)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithHTTPClient(hc httpDoer) Option {
	return func(r *Resolver) {
		if hc != nil {
			r.hc = hc
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(r *Resolver) {
		if b != nil {
			r.breaker = b
		}
	}
}

// New creates a resolver. An empty apiKey disables lookups.
func New(hubURL, apiKey string, opts ...Option) *Resolver {
	r := &Resolver{
		hubURL:  strings.TrimRight(hubURL, "/"),
		apiKey:  apiKey,
		timeout: 5 * time.Second,
		hc:      &http.Client{},
		breaker: circuit.New("proof-hub"),
		logger:  slog.Default(),
		tracer:  otel.Tracer("tapday/proof"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type proofsResponse struct {
	Proofs []struct {
		Type string `json:"type"`
		Name string `json:"name"`
		Fid  int64  `json:"fid"`
	} `json:"proofs"`
}

// ResolveUsername returns the first fname proof for fid. It never errors and
// makes at most one outbound call, none while the breaker is open. A hub
// answer that carries a proof is always returned.
func (r *Resolver) ResolveUsername(ctx context.Context, fid int64) (string, bool) {
	requestID := requestcontext.RequestID(ctx)
	if r.apiKey == "" {
		r.logger.WarnContext(ctx, "proof hub api key not configured, skipping username lookup",
			"request_id", requestID,
			"fid", fid,
		)
		return "", false
	}

	ctx, span := r.tracer.Start(ctx, "proof.ResolveUsername", trace.WithAttributes(
		attribute.Int64("farcaster.fid", fid),
	))
	defer span.End()

	if !r.breaker.Allow() {
		span.SetAttributes(attribute.Bool("proof.circuit_open", true))
		r.logger.WarnContext(ctx, "proof hub circuit open, skipping username lookup",
			"request_id", requestID,
			"fid", fid,
		)
		return "", false
	}

	name, err := r.fetch(ctx, fid)
	if err != nil {
		span.RecordError(err)
		if change := r.breaker.RecordFailure(); change.Opened {
			r.logger.WarnContext(ctx, "proof hub circuit opened", "request_id", requestID)
		}
		r.logger.WarnContext(ctx, "username proof lookup failed",
			"request_id", requestID,
			"fid", fid,
			"error", err,
		)
		return "", false
	}
	if change := r.breaker.RecordSuccess(); change.Closed {
		r.logger.InfoContext(ctx, "proof hub circuit closed", "request_id", requestID)
	}
	if name == "" {
		r.logger.InfoContext(ctx, "no fname proof for fid",
			"request_id", requestID,
			"fid", fid,
		)
		return "", false
	}
	return name, true
}

func (r *Resolver) fetch(ctx context.Context, fid int64) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	endpoint := r.hubURL + "/v1/userNameProofsByFid?" + url.Values{"fid": {strconv.FormatInt(fid, 10)}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("x-api-key", r.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := r.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("call proof hub: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("proof hub returned status %d", resp.StatusCode)
	}

	var out proofsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode proofs: %w", err)
	}
	for _, p := range out.Proofs {
		if p.Type == usernameTypeFname && p.Name != "" {
			return p.Name, nil
		}
	}
	return "", nil
}
