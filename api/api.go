package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/casbin/casbin/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/semanticallynull/bikeshare-backend/customer"
	"github.com/semanticallynull/bikeshare-backend/fleet"
	"github.com/semanticallynull/bikeshare-backend/internal/auth0"
	"github.com/semanticallynull/bikeshare-backend/internal/clock"
	"github.com/semanticallynull/bikeshare-backend/internal/domainerr"
	"github.com/semanticallynull/bikeshare-backend/internal/middleware"
	"github.com/semanticallynull/bikeshare-backend/ledger"
	"github.com/semanticallynull/bikeshare-backend/pricing"
	"github.com/semanticallynull/bikeshare-backend/ride"
)

// Services are the domain entry points the handlers call.
type Services struct {
	Fleet     *fleet.Service
	Rides     ride.Store
	Ledger    *ledger.Ledger
	Catalog   *pricing.Catalog
	Customers customer.Store
}

type Config struct {
	// Auth authenticates every non-public route. It must leave the subject
	// where middleware.GetAuth0ID can find it.
	Auth   gin.HandlerFunc
	Users  auth0.Client
	Logger *slog.Logger

	Registry        *prometheus.Registry
	MetricsUsername string
	MetricsPassword string

	Clock clock.Clock

	// Stripe enables the payment method setup route. stripe.Key must be set.
	Stripe bool
}

type API struct {
	r        *gin.Engine
	fleet    *fleet.Service
	rides    ride.Store
	ledger   *ledger.Ledger
	catalog  *pricing.Catalog
	cr       customer.Store
	enforcer *casbin.Enforcer
	clock    clock.Clock
}

func New(s Services, cfg Config) (*API, error) {
	if cfg.Auth == nil {
		return nil, errors.New("api: auth middleware is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real{}
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}
	enforcer, err := middleware.NewEnforcer()
	if err != nil {
		return nil, err
	}

	a := &API{
		r:        gin.New(),
		fleet:    s.Fleet,
		rides:    s.Rides,
		ledger:   s.Ledger,
		catalog:  s.Catalog,
		cr:       s.Customers,
		enforcer: enforcer,
		clock:    cfg.Clock,
	}

	a.r.Use(gin.Recovery(), middleware.Tracing(), middleware.Logging(cfg.Logger), middleware.Metrics(cfg.Registry))

	a.r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	metrics := promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{})
	if cfg.MetricsUsername != "" {
		a.r.GET("/metrics", gin.BasicAuth(gin.Accounts{cfg.MetricsUsername: cfg.MetricsPassword}), gin.WrapH(metrics))
	} else {
		a.r.GET("/metrics", gin.WrapH(metrics))
	}

	authed := a.r.Group("/", cfg.Auth, middleware.Rider(s.Customers, cfg.Users))
	a.riderRoutes(authed)
	if cfg.Stripe {
		authed.POST("/me/payment-setup", a.paymentSetupHandler)
	}
	a.operatorRoutes(authed)

	return a, nil
}

func (a *API) riderRoutes(g *gin.RouterGroup) {
	g.GET("/me", a.meHandler)

	g.GET("/stations", a.stationsHandler)
	g.GET("/stations/:id", a.stationHandler)
	g.GET("/stations/:id/bikes", a.stationBikesHandler)
	g.GET("/bikes/:id", a.bikeHandler)

	g.POST("/reservations", a.reserveHandler)
	g.POST("/bikes/:id/checkout", a.checkoutHandler)
	g.POST("/bikes/:id/return", a.returnHandler)

	g.GET("/rides/current", a.currentRideHandler)
	g.GET("/rides", a.ridesHandler)
	g.GET("/rides/stats", a.rideStatsHandler)

	g.GET("/ledger/entries", a.entriesHandler)
	g.GET("/ledger/entries/:id", a.entryHandler)
	g.GET("/ledger/balance", a.balanceHandler)
	g.POST("/ledger/entries/:id/settle", a.settleHandler)

	g.GET("/plans", a.publishedPlansHandler)
}

func (a *API) operatorRoutes(g *gin.RouterGroup) {
	manageFleet := middleware.Authorize(a.enforcer, middleware.ObjectFleet, middleware.ActionManage)
	g.GET("/bikes", manageFleet, a.bikesHandler)
	g.GET("/rides/all", manageFleet, a.allRidesHandler)
	g.POST("/stations", manageFleet, a.createStationHandler)
	g.PUT("/stations/:id/status", manageFleet, a.stationStatusHandler)
	g.POST("/bikes", manageFleet, a.createBikeHandler)
	g.POST("/bikes/:id/move", manageFleet, a.moveHandler)
	g.POST("/bikes/:id/maintenance", manageFleet, a.maintenanceHandler)
	g.POST("/bikes/:id/maintenance/complete", manageFleet, a.completeMaintenanceHandler)
	g.PUT("/bikes/:id/telemetry", manageFleet, a.telemetryHandler)
	g.POST("/reservations/expire", manageFleet, a.expireHandler)
	g.PUT("/customers/:id/membership", manageFleet, a.membershipHandler)
	g.PUT("/customers/:id/role", manageFleet, a.roleHandler)

	managePricing := middleware.Authorize(a.enforcer, middleware.ObjectPricing, middleware.ActionManage)
	g.GET("/plans/all", managePricing, a.plansHandler)
	g.POST("/plans", managePricing, a.createPlanHandler)
	g.PUT("/plans/:id", managePricing, a.updatePlanHandler)
	g.POST("/plans/:id/publish", managePricing, a.publishPlanHandler)

	g.POST("/ledger/entries/:id/adjustments",
		middleware.Authorize(a.enforcer, middleware.ObjectLedger, middleware.ActionAdjust), a.adjustHandler)
}

func (a *API) Router() *gin.Engine {
	return a.r
}

var (
	errInvalidID   = domainerr.Validation("INVALID_ID", "invalid id")
	errInvalidBody = domainerr.Validation("INVALID_REQUEST", "invalid request body")
)

// fail renders err as {"code","message"}. Domain errors map by kind; anything
// else is logged and hidden behind a 500.
func fail(c *gin.Context, err error) {
	var de *domainerr.Error
	if !errors.As(err, &de) {
		middleware.GetLogger(c).ErrorContext(c.Request.Context(), "request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL", "message": "internal error"})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domainerr.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, domainerr.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domainerr.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, domainerr.ErrUnavailable):
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, gin.H{"code": de.Code, "message": de.Message})
}

func paramID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, errInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		middleware.GetLogger(c).InfoContext(c.Request.Context(), "invalid request body", "error", err)
		fail(c, errInvalidBody)
		return false
	}
	return true
}

// rider is the customer Rider resolved. The authenticated group always sets it.
func rider(c *gin.Context) customer.Customer {
	cust, _ := middleware.GetCustomer(c)
	return cust
}
