package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/semanticallynull/bikeshare-backend/customer"
	"github.com/semanticallynull/bikeshare-backend/internal/auth0"
)

const customerKey = "customer"

// Rider resolves the authenticated subject to a customer, creating one on
// first sight. When users is set, a new customer's profile is filled in from
// the identity provider.
func Rider(customers customer.Store, users auth0.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := GetLogger(c)
		ctx := c.Request.Context()

		sub, ok := GetAuth0ID(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHORIZED", "message": "Authentication required"})
			return
		}

		cust, err := customers.GetCustomerByAuth0ID(ctx, sub)
		if errors.Is(err, customer.ErrNotFound) {
			cust, err = customers.CreateCustomer(ctx, sub)
			if err == nil && users != nil {
				fillProfile(c, customers, users, &cust)
			}
		}
		if err != nil {
			logger.ErrorContext(ctx, "failed to resolve customer", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL", "message": "internal error"})
			return
		}

		c.Set(customerKey, cust)
		c.Next()
	}
}

func fillProfile(c *gin.Context, customers customer.Store, users auth0.Client, cust *customer.Customer) {
	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	if token == "" {
		return
	}
	info, err := users.GetUserInfo(c.Request.Context(), token)
	if err != nil {
		GetLogger(c).WarnContext(c.Request.Context(), "failed to fetch user info", "error", err)
		return
	}
	if err := customers.UpdateProfile(c.Request.Context(), cust.ID, info.Email, info.Name); err != nil {
		GetLogger(c).WarnContext(c.Request.Context(), "failed to save profile", "error", err)
		return
	}
	cust.Email.String, cust.Email.Valid = info.Email, info.Email != ""
	cust.Name.String, cust.Name.Valid = info.Name, info.Name != ""
}

// GetCustomer returns the customer resolved by Rider.
func GetCustomer(c *gin.Context) (customer.Customer, bool) {
	v, ok := c.Get(customerKey)
	if !ok {
		return customer.Customer{}, false
	}
	cust, ok := v.(customer.Customer)
	return cust, ok
}
