package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lakshman-nanchari/ai-fitness-tracker/domain"
	"github.com/lakshman-nanchari/ai-fitness-tracker/internal/http/middleware"
	"github.com/sirupsen/logrus"
)

// ProfileHandlers serves the fitness profile of the authenticated user
type ProfileHandlers struct {
	profileSvc domain.ProfileService
	log        *logrus.Logger
}

// NewProfileHandlers creates new profile handlers
func NewProfileHandlers(profileSvc domain.ProfileService, log *logrus.Logger) *ProfileHandlers {
	return &ProfileHandlers{profileSvc: profileSvc, log: log}
}

// ProfileRequest is a partial update; absent fields are unchanged
type ProfileRequest struct {
	Age      *int     `json:"age" binding:"omitempty,gte=1,lte=130"`
	Gender   *string  `json:"gender" binding:"omitempty,oneof=M F O"`
	HeightCM *float64 `json:"height_cm" binding:"omitempty,gt=0"`
	WeightKG *float64 `json:"weight_kg" binding:"omitempty,gt=0"`
	Goal     *string  `json:"goal" binding:"omitempty,oneof=lose_weight gain_muscle stay_fit"`
}

type profileResponse struct {
	Age       *int      `json:"age"`
	Gender    *string   `json:"gender"`
	HeightCM  *float64  `json:"height_cm"`
	WeightKG  *float64  `json:"weight_kg"`
	Goal      *string   `json:"goal"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toProfileResponse(p *domain.Profile) profileResponse {
	return profileResponse{
		Age:       p.Age,
		Gender:    p.Gender,
		HeightCM:  p.HeightCM,
		WeightKG:  p.WeightKG,
		Goal:      p.Goal,
		UpdatedAt: p.UpdatedAt,
	}
}

// Get returns the profile, creating an empty one on first access
func (h *ProfileHandlers) Get(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		WriteError(c, h.log, domain.ErrUnauthorized)
		return
	}

	profile, err := h.profileSvc.Get(c.Request.Context(), claims.UserID)
	if err != nil {
		WriteError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": toProfileResponse(profile)})
}

// Update applies a partial profile update
func (h *ProfileHandlers) Update(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		WriteError(c, h.log, domain.ErrUnauthorized)
		return
	}

	var req ProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	profile, err := h.profileSvc.Update(c.Request.Context(), claims.UserID, domain.ProfileUpdate{
		Age:      req.Age,
		Gender:   req.Gender,
		HeightCM: req.HeightCM,
		WeightKG: req.WeightKG,
		Goal:     req.Goal,
	})
	if err != nil {
		WriteError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": toProfileResponse(profile)})
}
