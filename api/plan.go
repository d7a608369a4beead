package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/semanticallynull/bikeshare-backend/customer"
	"github.com/semanticallynull/bikeshare-backend/pricing"
)

func (a *API) publishedPlansHandler(c *gin.Context) {
	summaries, err := a.catalog.Published(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}

	out := make([]planResponse, 0, len(summaries))
	for _, s := range summaries {
		pr := toPlanResponse(s.Plan)
		pr.Examples = s.Examples
		out = append(out, pr)
	}
	c.JSON(http.StatusOK, out)
}

func (a *API) plansHandler(c *gin.Context) {
	plans, err := a.catalog.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}

	out := make([]planResponse, 0, len(plans))
	for _, p := range plans {
		out = append(out, toPlanResponse(p))
	}
	c.JSON(http.StatusOK, out)
}

type planRequest struct {
	Name           string          `json:"name" binding:"required"`
	BaseFee        decimal.Decimal `json:"baseFee"`
	PerMinuteRate  decimal.Decimal `json:"perMinuteRate"`
	EBikeSurcharge decimal.Decimal `json:"eBikeSurcharge"`
	MembershipTier *string         `json:"membershipTier"`
	CityID         *string         `json:"cityId"`
	EffectiveFrom  time.Time       `json:"effectiveFrom"`
	EffectiveTo    *time.Time      `json:"effectiveTo"`
	Description    string          `json:"description"`
}

func (r planRequest) plan() (pricing.Plan, error) {
	p := pricing.Plan{
		Name:           r.Name,
		BaseFee:        r.BaseFee,
		PerMinuteRate:  r.PerMinuteRate,
		EBikeSurcharge: r.EBikeSurcharge,
		CityID:         r.CityID,
		EffectiveFrom:  r.EffectiveFrom,
		EffectiveTo:    r.EffectiveTo,
		Description:    r.Description,
	}
	if r.MembershipTier != nil {
		tier, err := customer.ParseTier(*r.MembershipTier)
		if err != nil {
			return pricing.Plan{}, err
		}
		p.MembershipTier = &tier
	}
	return p, nil
}

func (a *API) createPlanHandler(c *gin.Context) {
	var req planRequest
	if !bind(c, &req) {
		return
	}
	p, err := req.plan()
	if err != nil {
		fail(c, err)
		return
	}

	p, err = a.catalog.CreateDraft(c.Request.Context(), p)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toPlanResponse(p))
}

func (a *API) updatePlanHandler(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req planRequest
	if !bind(c, &req) {
		return
	}
	p, err := req.plan()
	if err != nil {
		fail(c, err)
		return
	}
	p.ID = id

	p, err = a.catalog.UpdateDraft(c.Request.Context(), p)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toPlanResponse(p))
}

func (a *API) publishPlanHandler(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	p, err := a.catalog.Publish(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toPlanResponse(p))
}

type planResponse struct {
	ID             uuid.UUID         `json:"id"`
	Name           string            `json:"name"`
	BaseFee        decimal.Decimal   `json:"baseFee"`
	PerMinuteRate  decimal.Decimal   `json:"perMinuteRate"`
	EBikeSurcharge decimal.Decimal   `json:"eBikeSurcharge"`
	MembershipTier *customer.Tier    `json:"membershipTier,omitempty"`
	CityID         *string           `json:"cityId,omitempty"`
	EffectiveFrom  time.Time         `json:"effectiveFrom"`
	EffectiveTo    *time.Time        `json:"effectiveTo,omitempty"`
	Published      bool              `json:"published"`
	Description    string            `json:"description,omitempty"`
	Examples       []pricing.Example `json:"examples,omitempty"`
}

func toPlanResponse(p pricing.Plan) planResponse {
	return planResponse{
		ID:             p.ID,
		Name:           p.Name,
		BaseFee:        p.BaseFee,
		PerMinuteRate:  p.PerMinuteRate,
		EBikeSurcharge: p.EBikeSurcharge,
		MembershipTier: p.MembershipTier,
		CityID:         p.CityID,
		EffectiveFrom:  p.EffectiveFrom,
		EffectiveTo:    p.EffectiveTo,
		Published:      p.Published,
		Description:    p.Description,
	}
}
