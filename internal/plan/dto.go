// DamifeZion | 2026
// dto.go

package plan

import (
	"time"
)

type ChangePlanRequest struct {
	Name     string  `json:"name"     validate:"required,oneof=free basic standard premium family"`
	Duration *string `json:"duration" validate:"omitempty,oneof=monthly yearly"`
}

type PlanResponse struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Duration  *string    `json:"duration"`
	ExpiresAt *time.Time `json:"expires_at"`
	Expired   bool       `json:"expired"`
	Features  Features   `json:"features"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type CatalogResponse struct {
	Plans []Entry `json:"plans"`
}

func toResponse(p *Plan, now time.Time) PlanResponse {
	return PlanResponse{
		ID:        p.ID,
		Name:      p.Name,
		Duration:  p.Duration,
		ExpiresAt: p.ExpiresAt,
		Expired:   p.Expired(now),
		Features:  p.Capacity(),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}
