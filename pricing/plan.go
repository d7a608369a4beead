// Package pricing turns trip facts into an itemized bill. A Selector picks the
// plan version that applies to the trip and an ordered list of Rules derives
// the charge lines from it.
package pricing

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/semanticallynull/bikeshare-backend/customer"
	"github.com/semanticallynull/bikeshare-backend/internal/domainerr"
)

var (
	ErrPlanNotFound    = domainerr.NotFound("PLAN_NOT_FOUND", "pricing plan not found")
	ErrPlanPublished   = domainerr.Conflict("PLAN_PUBLISHED", "published pricing plans cannot be changed")
	ErrNoPlanAvailable = domainerr.Unavailable("NO_PLAN_AVAILABLE", "no pricing plan available for trip")
	errNegativeRate    = domainerr.Validation("INVALID_PLAN", "rates must not be negative")
	errEffectiveWindow = domainerr.Validation("INVALID_PLAN", "effectiveTo must be after effectiveFrom")
	errMissingPlanName = domainerr.Validation("INVALID_PLAN", "plan name is required")
)

// Plan is a pricing plan version. Once published it is never modified; a new
// version with a later EffectiveFrom supersedes it.
type Plan struct {
	ID             uuid.UUID       `db:"id"`
	Name           string          `db:"plan_name"`
	BaseFee        decimal.Decimal `db:"base_fee"`
	PerMinuteRate  decimal.Decimal `db:"per_minute_rate"`
	EBikeSurcharge decimal.Decimal `db:"ebike_surcharge"`
	MembershipTier *customer.Tier  `db:"membership_tier"`
	CityID         *string         `db:"city_id"`
	EffectiveFrom  time.Time       `db:"effective_from"`
	EffectiveTo    *time.Time      `db:"effective_to"`
	Published      bool            `db:"published"`
	Description    string          `db:"description"`
	CreatedAt      time.Time       `db:"created_at"`
}

// EffectiveAt reports whether t falls in [EffectiveFrom, EffectiveTo).
func (p Plan) EffectiveAt(t time.Time) bool {
	if t.Before(p.EffectiveFrom) {
		return false
	}
	return p.EffectiveTo == nil || p.EffectiveTo.After(t)
}

func (p Plan) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errMissingPlanName
	}
	if p.BaseFee.IsNegative() || p.PerMinuteRate.IsNegative() || p.EBikeSurcharge.IsNegative() {
		return errNegativeRate
	}
	if p.EffectiveTo != nil && !p.EffectiveTo.After(p.EffectiveFrom) {
		return errEffectiveWindow
	}
	return nil
}

// Scope narrows an active-plan lookup. Zero fields match any plan.
type Scope struct {
	Membership customer.Tier
	CityID     string
	// General leaves out plans reserved for a membership tier.
	General bool
}

func (s Scope) matches(p Plan) bool {
	if s.General && p.MembershipTier != nil {
		return false
	}
	if s.Membership != "" && (p.MembershipTier == nil || *p.MembershipTier != s.Membership) {
		return false
	}
	if s.CityID != "" && (p.CityID == nil || *p.CityID != s.CityID) {
		return false
	}
	return true
}
