// DamifeZion | 2026
// dto.go

package profile

import (
	"time"
)

type CreateProfileRequest struct {
	Name   string `json:"name"    validate:"required,min=1,max=50"`
	IsKids bool   `json:"is_kids"`
	Avatar string `json:"avatar"  validate:"omitempty,max=500"`
}

type UpdateProfileRequest struct {
	Name   *string `json:"name"    validate:"omitempty,min=1,max=50"`
	IsKids *bool   `json:"is_kids"`
	Avatar *string `json:"avatar"  validate:"omitempty,max=500"`
}

type ProfileResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	IsKids    bool      `json:"is_kids"`
	Avatar    string    `json:"avatar"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ProfilesResponse struct {
	Profiles []ProfileResponse `json:"profiles"`
}

func toResponse(p *Profile) ProfileResponse {
	return ProfileResponse{
		ID:        p.ID,
		Name:      p.Name,
		IsKids:    p.IsKids,
		Avatar:    p.Avatar,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}
