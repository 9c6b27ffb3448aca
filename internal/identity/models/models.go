package models

import (
	"strconv"
	"time"

	"tapday/internal/registrar"
	"tapday/pkg/domain"
)

const (
	PlatformFarcaster = "farcaster"
	ProfileURLPrefix  = "https://farcaster.xyz/"
)

// ClaimState tracks a claim through the workflow. A claim only moves
// forward; any failing step ends in ClaimRejected.
type ClaimState string

const (
	ClaimReceived            ClaimState = "received"
	ClaimNormalizing         ClaimState = "normalizing"
	ClaimProofResolved       ClaimState = "proof_resolved"
	ClaimAvailabilityChecked ClaimState = "availability_checked"
	ClaimOwnerChecked        ClaimState = "owner_checked"
	ClaimCreated             ClaimState = "created"
	ClaimRejected            ClaimState = "rejected"
)

// IdentityData is the optional social profile supplied with a claim.
type IdentityData struct {
	FID           int64
	Username      string
	DisplayName   string
	PfpURL        string
	WalletAddress string
}

// NameOrUsername prefers the display name.
func (d IdentityData) NameOrUsername() string {
	if d.DisplayName != "" {
		return d.DisplayName
	}
	return d.Username
}

// ClaimCommand is a request to bind a label to an address.
type ClaimCommand struct {
	Label    string
	Address  string
	Identity *IdentityData
}

// ClaimResult is a successful claim.
type ClaimResult struct {
	Subname *registrar.Subname
	// UsedOverrideUsername is set when a proven username replaced the requested label.
	UsedOverrideUsername string
}

// BuildCreateRequest assembles the registrar write for a validated claim.
// Output is deterministic for a given input and timestamp; empty optional
// values are left out.
func BuildCreateRequest(label domain.Label, parent string, owner domain.Address, identity *IdentityData, now time.Time) registrar.CreateRequest {
	sender := owner.String()
	req := registrar.CreateRequest{
		Label:      label.String(),
		ParentName: parent,
		Owner:      sender,
		Addresses: []registrar.AddressBinding{
			{Chain: registrar.ChainBase, Value: sender},
			{Chain: registrar.ChainEthereum, Value: sender},
		},
		Texts:    []registrar.Record{},
		Metadata: []registrar.Record{{Key: "sender", Value: sender}},
	}
	if identity == nil {
		return req
	}

	var fid string
	if identity.FID > 0 {
		fid = strconv.FormatInt(identity.FID, 10)
	}
	var profileURL string
	if identity.Username != "" {
		profileURL = ProfileURLPrefix + identity.Username
	}

	req.Texts = appendNonEmpty(req.Texts,
		registrar.Record{Key: "avatar", Value: identity.PfpURL},
		registrar.Record{Key: "name", Value: identity.NameOrUsername()},
		registrar.Record{Key: "fid", Value: fid},
		registrar.Record{Key: "url", Value: profileURL},
		registrar.Record{Key: "xyz.farcaster", Value: identity.Username},
	)
	req.Metadata = appendNonEmpty(req.Metadata,
		registrar.Record{Key: "fid", Value: fid},
		registrar.Record{Key: "username", Value: identity.Username},
		registrar.Record{Key: "displayName", Value: identity.NameOrUsername()},
		registrar.Record{Key: "pfpUrl", Value: identity.PfpURL},
		registrar.Record{Key: "walletAddress", Value: identity.WalletAddress},
		registrar.Record{Key: "platform", Value: PlatformFarcaster},
		registrar.Record{Key: "createdAt", Value: now.UTC().Format(time.RFC3339)},
	)
	return req
}

func appendNonEmpty(dst []registrar.Record, records ...registrar.Record) []registrar.Record {
	for _, r := range records {
		if r.Value != "" {
			dst = append(dst, r)
		}
	}
	return dst
}
