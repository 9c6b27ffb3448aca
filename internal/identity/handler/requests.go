package handler

import (
	"strings"

	"tapday/internal/identity/models"
	dErrors "tapday/pkg/domain-errors"
)

// IdentityDataRequest is the optional Farcaster profile sent with a claim.
type IdentityDataRequest struct {
	FID           int64  `json:"fid"`
	Username      string `json:"username"`
	DisplayName   string `json:"display_name"`
	PfpURL        string `json:"pfp_url"`
	WalletAddress string `json:"wallet_address"`
}

// CreateRequest is the body of POST /subname/create.
type CreateRequest struct {
	Label        string               `json:"label"`
	Address      string               `json:"address"`
	IdentityData *IdentityDataRequest `json:"identity_data,omitempty"`
}

func (r *CreateRequest) Validate() error {
	r.Label = strings.TrimSpace(r.Label)
	r.Address = strings.TrimSpace(r.Address)
	if r.Label == "" || r.Address == "" {
		return dErrors.New(dErrors.CodeBadRequest, "label and address are required")
	}
	if r.IdentityData != nil {
		r.IdentityData.Username = strings.TrimSpace(r.IdentityData.Username)
		r.IdentityData.DisplayName = strings.TrimSpace(r.IdentityData.DisplayName)
		r.IdentityData.PfpURL = strings.TrimSpace(r.IdentityData.PfpURL)
		r.IdentityData.WalletAddress = strings.TrimSpace(r.IdentityData.WalletAddress)
	}
	return nil
}

func (r *CreateRequest) command() models.ClaimCommand {
	cmd := models.ClaimCommand{Label: r.Label, Address: r.Address}
	if d := r.IdentityData; d != nil {
		cmd.Identity = &models.IdentityData{
			FID:           d.FID,
			Username:      d.Username,
			DisplayName:   d.DisplayName,
			PfpURL:        d.PfpURL,
			WalletAddress: d.WalletAddress,
		}
	}
	return cmd
}

// LookupRequest is the body of POST /subname/lookup.
type LookupRequest struct {
	Addresses []string `json:"addresses"`
}

func (r *LookupRequest) Validate() error {
	if r.Addresses == nil {
		return dErrors.New(dErrors.CodeBadRequest, "addresses must be an array")
	}
	return nil
}

// FetchUsernameRequest is the body of POST /subname/fetch-username.
type FetchUsernameRequest struct {
	FID              int64   `json:"fid"`
	FallbackUsername *string `json:"fallback_username,omitempty"`
}

func (r *FetchUsernameRequest) Validate() error {
	if r.FID <= 0 {
		return dErrors.New(dErrors.CodeBadRequest, "fid is required")
	}
	return nil
}

func (r *FetchUsernameRequest) fallback() string {
	if r.FallbackUsername == nil {
		return ""
	}
	return strings.TrimSpace(*r.FallbackUsername)
}
