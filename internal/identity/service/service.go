package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"tapday/internal/identity/metrics"
	"tapday/internal/identity/models"
	"tapday/internal/registrar"
	"tapday/pkg/domain"
	dErrors "tapday/pkg/domain-errors"
	"tapday/pkg/requestcontext"
)

type Registrar interface {
	IsAvailable(ctx context.Context, fullName string) (bool, error)
	FindByOwner(ctx context.Context, parentName, address string, limit int) ([]registrar.Subname, error)
	Create(ctx context.Context, req registrar.CreateRequest) (*registrar.Subname, error)
}

type ProofResolver interface {
	ResolveUsername(ctx context.Context, fid int64) (string, bool)
}

type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Service runs the subname claim workflow against the registrar.
//
// Uniqueness is checked before the write (availability, then owner search)
// and nothing serializes concurrent claims. Two claims racing for the same
// label can both pass the availability check; the registrar's create is the
// final arbiter and the loser surfaces as an upstream error.
type Service struct {
	registrar           Registrar
	proofs              ProofResolver
	invalidator         Invalidator
	parentDomain        string
	ownerSearchLimit    int
	invalidationTimeout time.Duration
	logger              *slog.Logger
	metrics             *metrics.Metrics
	tracer              trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithInvalidator(inv Invalidator) Option {
	return func(s *Service) {
		s.invalidator = inv
	}
}

func WithOwnerSearchLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.ownerSearchLimit = n
		}
	}
}

func WithInvalidationTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.invalidationTimeout = d
		}
	}
}

// New constructs a Service.
func New(reg Registrar, proofs ProofResolver, parentDomain string, opts ...Option) *Service {
	s := &Service{
		registrar:           reg,
		proofs:              proofs,
		parentDomain:        parentDomain,
		ownerSearchLimit:    1,
		invalidationTimeout: 5 * time.Second,
		logger:              slog.Default(),
		tracer:              otel.Tracer("tapday/identity"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ParentDomain is the domain every claimed label lives under.
func (s *Service) ParentDomain() string {
	return s.parentDomain
}

// Claim binds a label to an address. Steps run in a fixed order and the
// first failing step decides the error.
func (s *Service) Claim(ctx context.Context, cmd models.ClaimCommand) (*models.ClaimResult, error) {
	start := time.Now()
	requestID := requestcontext.RequestID(ctx)
	ctx, span := s.tracer.Start(ctx, "identity.Claim")
	defer span.End()

	result, reached, err := s.claim(ctx, cmd)
	s.metrics.ObserveClaimLatency(time.Since(start))
	if err != nil {
		span.SetAttributes(
			attribute.String("claim.state", string(models.ClaimRejected)),
			attribute.String("claim.rejected_after", string(reached)),
		)
		s.metrics.IncrementClaimOutcome(outcomeFor(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		s.logger.InfoContext(ctx, "subname claim rejected",
			"request_id", requestID,
			"state", models.ClaimRejected,
			"rejected_after", reached,
			"code", dErrors.CodeOf(err),
			"error", err,
		)
		return nil, err
	}
	span.SetAttributes(attribute.String("claim.state", string(reached)))
	s.metrics.IncrementClaimOutcome("created")

	s.logger.InfoContext(ctx, "subname claimed",
		"request_id", requestID,
		"full_name", result.Subname.FullName,
		"owner", result.Subname.Owner,
		"override", result.UsedOverrideUsername != "",
		"duration_ms", time.Since(start).Milliseconds(),
	)
	s.dispatchInvalidation(ctx)
	return result, nil
}

// claim returns the last state reached alongside the outcome. On error that
// is the step after which the claim was rejected.
func (s *Service) claim(ctx context.Context, cmd models.ClaimCommand) (*models.ClaimResult, models.ClaimState, error) {
	state := models.ClaimReceived
	rawLabel := strings.TrimSpace(cmd.Label)
	rawAddress := strings.TrimSpace(cmd.Address)
	if rawLabel == "" || rawAddress == "" {
		return nil, state, dErrors.New(dErrors.CodeBadRequest, "missing required fields: label and address are required")
	}

	state = models.ClaimNormalizing
	var override string
	if cmd.Identity != nil && cmd.Identity.FID > 0 {
		if username, ok := s.proofs.ResolveUsername(ctx, cmd.Identity.FID); ok {
			override = strings.TrimSpace(username)
			rawLabel = override
			s.metrics.IncrementUsernameOverride()
		}
		state = models.ClaimProofResolved
	}

	owner, err := domain.ParseOwner(rawAddress)
	if err != nil {
		return nil, state, err
	}
	label, err := domain.ParseLabel(rawLabel)
	if err != nil {
		return nil, state, err
	}
	fullName := label.FullName(s.parentDomain)

	available, err := s.registrar.IsAvailable(ctx, fullName)
	if err != nil {
		return nil, state, upstreamError("failed to check subname availability", err)
	}
	if !available {
		return nil, state, dErrors.NewConflict("subname with this label already exists", fullName)
	}
	state = models.ClaimAvailabilityChecked

	existing, err := s.registrar.FindByOwner(ctx, s.parentDomain, owner.String(), s.ownerSearchLimit)
	if err != nil {
		return nil, state, upstreamError("failed to check existing subnames for address", err)
	}
	for _, rec := range existing {
		if rec.FullName != "" {
			return nil, state, dErrors.NewConflict("address already has a subname", rec.FullName)
		}
	}
	state = models.ClaimOwnerChecked

	req := models.BuildCreateRequest(label, s.parentDomain, owner, cmd.Identity, requestcontext.Now(ctx))
	created, err := s.registrar.Create(ctx, req)
	if err != nil {
		return nil, state, upstreamError("failed to create subname", err)
	}

	return &models.ClaimResult{Subname: created, UsedOverrideUsername: override}, models.ClaimCreated, nil
}

// FetchUsername resolves fid to its proven username, falling back to the
// caller's fallback when there is none.
func (s *Service) FetchUsername(ctx context.Context, fid int64, fallback string) (string, bool) {
	if username, ok := s.proofs.ResolveUsername(ctx, fid); ok {
		return username, true
	}
	fallback = strings.TrimSpace(fallback)
	return fallback, fallback != ""
}

// RefreshCache signals readers to rebuild their identity cache.
func (s *Service) RefreshCache(ctx context.Context) error {
	if s.invalidator == nil {
		return nil
	}
	if err := s.invalidator.Invalidate(ctx); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUpstream, "failed to signal cache refresh")
	}
	return nil
}

// dispatchInvalidation signals cache readers without blocking the caller.
// The outcome is only logged.
func (s *Service) dispatchInvalidation(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	detached := context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(detached, s.invalidationTimeout)
		defer cancel()
		if err := s.invalidator.Invalidate(ctx); err != nil {
			s.metrics.IncrementInvalidationFailure()
			s.logger.WarnContext(ctx, "cache invalidation after claim failed",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
		}
	}()
}

func upstreamError(msg string, err error) error {
	var regErr *registrar.RegistryError
	if errors.As(err, &regErr) && regErr.Message != "" {
		return dErrors.Wrap(err, dErrors.CodeUpstream, msg+": "+regErr.Message)
	}
	return dErrors.Wrap(err, dErrors.CodeUpstream, msg+": "+err.Error())
}

func outcomeFor(err error) string {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeConflict:
		return "conflict"
	case dErrors.CodeUpstream:
		return "upstream_error"
	case dErrors.CodeBadRequest, dErrors.CodeValidation, dErrors.CodeInvalidFormat:
		return "invalid"
	default:
		return "error"
	}
}
