package handler

import (
	"fmt"
	"time"

	"tapday/internal/identity/models"
	"tapday/internal/identitycache"
	"tapday/internal/registrar"
)

type SubnameResponse struct {
	Label      string            `json:"label"`
	ParentName string            `json:"parent_name"`
	FullName   string            `json:"full_name"`
	Owner      string            `json:"owner"`
	Texts      map[string]string `json:"texts"`
	Addresses  map[string]string `json:"addresses"`
	Metadata   map[string]string `json:"metadata"`
	CreatedAt  time.Time         `json:"created_at"`
}

type CreateResponse struct {
	Subname              SubnameResponse `json:"subname"`
	UsedOverrideUsername string          `json:"used_override_username,omitempty"`
	RefreshSignal        bool            `json:"refresh_signal"`
}

type LookupResult struct {
	Address string  `json:"address"`
	Name    *string `json:"name"`
	Avatar  *string `json:"avatar"`
	URL     *string `json:"url"`
	FID     *string `json:"fid,omitempty"`
}

type LookupResponse struct {
	Results []LookupResult `json:"results"`
	Message string         `json:"message"`
}

type RefreshResponse struct {
	Success   bool  `json:"success"`
	Timestamp int64 `json:"timestamp"`
}

type FetchUsernameResponse struct {
	FetchedUsername *string `json:"fetched_username"`
}

func toCreateResponse(res *models.ClaimResult) CreateResponse {
	return CreateResponse{
		Subname:              toSubnameResponse(res.Subname),
		UsedOverrideUsername: res.UsedOverrideUsername,
		RefreshSignal:        true,
	}
}

func toSubnameResponse(s *registrar.Subname) SubnameResponse {
	return SubnameResponse{
		Label:      s.Label,
		ParentName: s.ParentName,
		FullName:   s.FullName,
		Owner:      s.Owner,
		Texts:      nonNil(s.Texts),
		Addresses:  nonNil(s.Addresses),
		Metadata:   nonNil(s.Metadata),
		CreatedAt:  s.CreatedAt,
	}
}

func toLookupResponse(entries []identitycache.Entry) LookupResponse {
	results := make([]LookupResult, 0, len(entries))
	for _, e := range entries {
		results = append(results, LookupResult{
			Address: e.Address,
			Name:    e.Name,
			Avatar:  e.Avatar,
			URL:     e.URL,
			FID:     e.FID,
		})
	}
	return LookupResponse{
		Results: results,
		Message: fmt.Sprintf("Looked up %d addresses", len(entries)),
	}
}

func nonNil(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
