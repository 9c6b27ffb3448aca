// Package handler exposes the subname claim and lookup endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tapday/internal/identity/models"
	"tapday/internal/identitycache"
	"tapday/pkg/platform/httputil"
	"tapday/pkg/requestcontext"
)

// Service is the claim workflow.
type Service interface {
	Claim(ctx context.Context, cmd models.ClaimCommand) (*models.ClaimResult, error)
	FetchUsername(ctx context.Context, fid int64, fallback string) (string, bool)
	RefreshCache(ctx context.Context) error
}

// Directory answers address-to-identity lookups.
type Directory interface {
	Lookup(ctx context.Context, addresses []string) []identitycache.Entry
}

// Handler handles the /subname endpoints.
type Handler struct {
	service   Service
	directory Directory
	logger    *slog.Logger
}

// New creates a new subname Handler.
func New(service Service, directory Directory, logger *slog.Logger) *Handler {
	return &Handler{
		service:   service,
		directory: directory,
		logger:    logger,
	}
}

// Register registers the subname routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/subname/create", h.HandleCreate)
	r.Post("/subname/lookup", h.HandleLookup)
	r.Post("/subname/refresh-cache", h.HandleRefreshCache)
	r.Post("/subname/fetch-username", h.HandleFetchUsername)
}

// HandleCreate claims a subname for an address.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res, err := h.service.Claim(ctx, req.command())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "subname created",
		"request_id", requestID,
		"full_name", res.Subname.FullName,
	)
	httputil.WriteJSON(w, http.StatusCreated, toCreateResponse(res))
}

// HandleLookup resolves addresses to their claimed identities. It never fails
// once the request is well formed.
func (h *Handler) HandleLookup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[LookupRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	entries := h.directory.Lookup(ctx, req.Addresses)
	httputil.WriteJSON(w, http.StatusOK, toLookupResponse(entries))
}

// HandleRefreshCache sends the cache invalidation signal. The body is ignored.
func (h *Handler) HandleRefreshCache(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if err := h.service.RefreshCache(ctx); err != nil {
		h.logger.WarnContext(ctx, "cache refresh failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, RefreshResponse{
		Success:   true,
		Timestamp: requestcontext.Now(ctx).UnixMilli(),
	})
}

// HandleFetchUsername resolves a Farcaster ID to its proven username.
func (h *Handler) HandleFetchUsername(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[FetchUsernameRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	resp := FetchUsernameResponse{}
	if name, found := h.service.FetchUsername(ctx, req.FID, req.fallback()); found {
		resp.FetchedUsername = &name
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
