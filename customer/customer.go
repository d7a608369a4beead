package customer

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/semanticallynull/bikeshare-backend/internal/domainerr"
)

// Tier is a rider's membership level. Pricing plans can be scoped to a tier.
type Tier string

const (
	TierNone     Tier = "NONE"
	TierStandard Tier = "STANDARD"
	TierPremium  Tier = "PREMIUM"
)

type Role string

const (
	RoleRider    Role = "rider"
	RoleOperator Role = "operator"
)

var (
	ErrNotFound    = domainerr.NotFound("CUSTOMER_NOT_FOUND", "customer not found")
	ErrInvalidTier = domainerr.Validation("INVALID_MEMBERSHIP", "unknown membership tier")
	ErrInvalidRole = domainerr.Validation("INVALID_ROLE", "unknown role")
)

type Customer struct {
	ID         uuid.UUID
	Auth0ID    string         `db:"auth0_id"`
	StripeID   sql.NullString `db:"stripe_id"`
	Email      sql.NullString `db:"email"`
	Name       sql.NullString `db:"name"`
	Membership Tier           `db:"membership"`
	Role       Role           `db:"role"`
	CreatedAt  time.Time      `db:"created_at"`
}

func (c Customer) IsOperator() bool {
	return c.Role == RoleOperator
}

func ParseTier(v string) (Tier, error) {
	switch Tier(v) {
	case TierNone, TierStandard, TierPremium:
		return Tier(v), nil
	}
	return "", ErrInvalidTier
}

func ParseRole(v string) (Role, error) {
	switch Role(v) {
	case RoleRider, RoleOperator:
		return Role(v), nil
	}
	return "", ErrInvalidRole
}
