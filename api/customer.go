package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	stripecustomer "github.com/stripe/stripe-go/v84/customer"
	"github.com/stripe/stripe-go/v84/customersession"
	"github.com/stripe/stripe-go/v84/setupintent"

	"github.com/semanticallynull/bikeshare-backend/customer"
	"github.com/semanticallynull/bikeshare-backend/internal/middleware"
)

type customerResponse struct {
	ID         uuid.UUID     `json:"id"`
	Email      string        `json:"email,omitempty"`
	Name       string        `json:"name,omitempty"`
	Membership customer.Tier `json:"membership"`
	Role       customer.Role `json:"role"`
	HasPayment bool          `json:"hasPaymentCustomer"`
}

func toCustomerResponse(c customer.Customer) customerResponse {
	return customerResponse{
		ID:         c.ID,
		Email:      c.Email.String,
		Name:       c.Name.String,
		Membership: c.Membership,
		Role:       c.Role,
		HasPayment: c.StripeID.Valid,
	}
}

func (a *API) meHandler(c *gin.Context) {
	c.JSON(http.StatusOK, toCustomerResponse(rider(c)))
}

type membershipRequest struct {
	Membership string `json:"membership" binding:"required"`
}

func (a *API) membershipHandler(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req membershipRequest
	if !bind(c, &req) {
		return
	}
	tier, err := customer.ParseTier(req.Membership)
	if err != nil {
		fail(c, err)
		return
	}

	ctx := c.Request.Context()
	if err := a.cr.SetMembership(ctx, id, tier); err != nil {
		fail(c, err)
		return
	}
	a.respondCustomer(c, id)
}

type roleRequest struct {
	Role string `json:"role" binding:"required"`
}

func (a *API) roleHandler(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req roleRequest
	if !bind(c, &req) {
		return
	}
	role, err := customer.ParseRole(req.Role)
	if err != nil {
		fail(c, err)
		return
	}

	if err := a.cr.SetRole(c.Request.Context(), id, role); err != nil {
		fail(c, err)
		return
	}
	a.respondCustomer(c, id)
}

func (a *API) respondCustomer(c *gin.Context, id uuid.UUID) {
	cust, err := a.cr.GetCustomer(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toCustomerResponse(cust))
}

// paymentSetupHandler makes sure the rider has a Stripe customer and returns
// the secrets the app needs to save a card for later settlement.
func (a *API) paymentSetupHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)
	ctx := c.Request.Context()
	cust := rider(c)

	if !cust.StripeID.Valid {
		stripeCustomer, err := stripecustomer.New(&stripe.CustomerParams{
			Email: stripe.String(cust.Email.String),
			Name:  stripe.String(cust.Name.String),
			Metadata: map[string]string{
				"auth0_id": cust.Auth0ID,
				"id":       cust.ID.String(),
			},
		})
		if err != nil {
			logger.ErrorContext(ctx, "failed to create stripe customer", "error", err)
			fail(c, err)
			return
		}

		if err := a.cr.AddStripeIDToCustomer(ctx, cust.ID, stripeCustomer.ID); err != nil {
			logger.ErrorContext(ctx, "failed to save stripe customer ID to customer", "error", err)
			fail(c, err)
			return
		}
		cust.StripeID.String, cust.StripeID.Valid = stripeCustomer.ID, true
	}

	csParams := &stripe.CustomerSessionParams{
		Customer: stripe.String(cust.StripeID.String),
	}
	csParams.AddExtra("components[customer_sheet][enabled]", "true")
	csParams.AddExtra("components[customer_sheet][features][payment_method_remove]", "enabled")
	cs, err := customersession.New(csParams)
	if err != nil {
		logger.ErrorContext(ctx, "failed to create customer session", "error", err)
		fail(c, err)
		return
	}

	si, err := setupintent.New(&stripe.SetupIntentParams{
		Customer: stripe.String(cust.StripeID.String),
		AutomaticPaymentMethods: &stripe.SetupIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Usage: stripe.String(string(stripe.SetupIntentUsageOffSession)),
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to create setup intent", "error", err)
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, struct {
		CustomerID   string `json:"customerId"`
		ClientSecret string `json:"clientSecret"`
		SetupIntent  string `json:"setupIntent"`
	}{
		CustomerID:   cust.StripeID.String,
		ClientSecret: cs.ClientSecret,
		SetupIntent:  si.ClientSecret,
	})
}
