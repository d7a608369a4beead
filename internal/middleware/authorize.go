package middleware

import (
	_ "embed"
	"net/http"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/gin-gonic/gin"

	"github.com/semanticallynull/bikeshare-backend/customer"
)

//go:embed model.conf
var modelText string

const (
	ObjectFleet   = "fleet"
	ObjectPricing = "pricing"
	ObjectLedger  = "ledger"
)

const (
	ActionManage = "manage"
	ActionAdjust = "adjust"
)

// NewEnforcer builds the role policy. Operators inherit everything riders
// may do.
func NewEnforcer() (*casbin.Enforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, err
	}
	if _, err := enforcer.AddPolicies([][]string{
		{string(customer.RoleOperator), ObjectFleet, ActionManage},
		{string(customer.RoleOperator), ObjectPricing, ActionManage},
		{string(customer.RoleOperator), ObjectLedger, ActionAdjust},
	}); err != nil {
		return nil, err
	}
	if _, err := enforcer.AddGroupingPolicy(string(customer.RoleOperator), string(customer.RoleRider)); err != nil {
		return nil, err
	}
	return enforcer, nil
}

// Authorize lets the request through only if the customer's role may perform
// action on object. It must run after Rider.
func Authorize(enforcer *casbin.Enforcer, object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		cust, ok := GetCustomer(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHORIZED", "message": "Authentication required"})
			return
		}
		allowed, err := enforcer.Enforce(string(cust.Role), object, action)
		if err != nil {
			GetLogger(c).ErrorContext(c.Request.Context(), "authorization failed", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL", "message": "internal error"})
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"code": "FORBIDDEN", "message": "operator role required"})
			return
		}
		c.Next()
	}
}
