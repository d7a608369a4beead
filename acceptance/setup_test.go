package acceptance

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/semanticallynull/bikeshare-backend/api"
	"github.com/semanticallynull/bikeshare-backend/billing"
	"github.com/semanticallynull/bikeshare-backend/customer"
	"github.com/semanticallynull/bikeshare-backend/event"
	"github.com/semanticallynull/bikeshare-backend/fleet"
	"github.com/semanticallynull/bikeshare-backend/internal/clock"
	"github.com/semanticallynull/bikeshare-backend/internal/middleware"
	"github.com/semanticallynull/bikeshare-backend/internal/migration"
	"github.com/semanticallynull/bikeshare-backend/internal/o11y"
	"github.com/semanticallynull/bikeshare-backend/ledger"
	"github.com/semanticallynull/bikeshare-backend/lock"
	"github.com/semanticallynull/bikeshare-backend/notify"
	"github.com/semanticallynull/bikeshare-backend/payment"
	"github.com/semanticallynull/bikeshare-backend/pricing"
	"github.com/semanticallynull/bikeshare-backend/ride"
)

const (
	operatorID  = "operator-1"
	metricsUser = "metrics"
	metricsPass = "secret"
)

// TestServer runs the real router on in-memory stores, or on Postgres when
// DATABASE_URL is set.
type TestServer struct {
	DB        *sqlx.DB
	Router    *gin.Engine
	Customers customer.Store
	Clock     *clock.FakeClock
	Locks     *lock.FakeClient
	Events    []event.Event
}

type stores struct {
	fleet     fleet.Store
	plans     pricing.Store
	ledger    ledger.Store
	rides     ride.Store
	customers customer.Store
}

func NewTestServer(t *testing.T) *TestServer {
	t.Helper()

	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ts := &TestServer{
		Clock: clock.NewFakeClock(time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)),
		Locks: lock.NewFakeClient(),
	}

	s := stores{
		fleet:     fleet.NewMemoryStore(),
		plans:     pricing.NewMemoryStore(),
		ledger:    ledger.NewMemoryStore(),
		rides:     ride.NewMemoryStore(),
		customers: customer.NewMemoryRepository(),
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		db, err := sqlx.Connect("pgx", dbURL)
		if err != nil {
			t.Fatalf("failed to connect to database: %v", err)
		}
		if err := migration.Run(db.DB); err != nil {
			t.Fatalf("failed to migrate: %v", err)
		}
		cleanupTestData(t, db)
		ts.DB = db
		s = stores{
			fleet:     fleet.NewPostgresStore(db),
			plans:     pricing.NewRepository(db),
			ledger:    ledger.NewRepository(db),
			rides:     ride.NewRepository(db),
			customers: customer.NewRepository(db),
		}
	}
	ts.Customers = s.customers

	bus := event.NewBus()
	fleetSvc := fleet.NewService(s.fleet, bus, ts.Locks, ts.Clock, logger, 0)
	l := ledger.New(s.ledger, payment.NewFake(logger, ts.Clock), ts.Clock, logger)
	registry := prometheus.NewRegistry()

	bus.Subscribe(billing.NewSubscriber(
		ride.NewFactsBuilder(fleetSvc, s.customers, s.rides),
		pricing.NewEngine(pricing.DefaultSelector(s.plans)),
		l, bus, logger,
	))
	bus.Subscribe(ride.NewRecorder(s.rides, fleetSvc, logger))
	bus.Subscribe(o11y.NewEventMetrics(registry))
	bus.Subscribe(notify.New(notify.NewLogSink(logger), logger))
	bus.Subscribe(event.SubscriberFunc(func(_ context.Context, e event.Event) error {
		ts.Events = append(ts.Events, e)
		return nil
	}))

	a, err := api.New(api.Services{
		Fleet:     fleetSvc,
		Rides:     s.rides,
		Ledger:    l,
		Catalog:   pricing.NewCatalog(s.plans, ts.Clock),
		Customers: s.customers,
	}, api.Config{
		Auth:            fakeAuthMiddleware(),
		Logger:          logger,
		Registry:        registry,
		MetricsUsername: metricsUser,
		MetricsPassword: metricsPass,
		Clock:           ts.Clock,
	})
	if err != nil {
		t.Fatalf("failed to build api: %v", err)
	}
	ts.Router = a.Router()

	ts.MakeOperator(t, operatorID)
	return ts
}

func (ts *TestServer) Close() {
	if ts.DB != nil {
		ts.DB.Close()
	}
}

func cleanupTestData(t *testing.T, db *sqlx.DB) {
	t.Helper()

	// Delete in order of dependencies
	for _, table := range []string{"ledger_entries", "ledger_balances", "rides", "bikes", "stations", "pricing_plan_versions", "customers"} {
		if _, err := db.Exec("DELETE FROM " + table); err != nil {
			t.Logf("warning: failed to clean %s: %v", table, err)
		}
	}
}

// fakeAuthMiddleware takes the subject from the X-User-ID header for testing
func fakeAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHORIZED", "message": "Authentication required"})
			c.Abort()
			return
		}
		middleware.SetAuth0ID(c, userID)
		c.Next()
	}
}

func as(userID string) map[string]string {
	return map[string]string{"X-User-ID": userID}
}

// MakeOperator creates the customer behind userID with the operator role.
func (ts *TestServer) MakeOperator(t *testing.T, userID string) {
	t.Helper()
	ctx := context.Background()
	cust, err := ts.Customers.CreateCustomer(ctx, userID)
	if err != nil {
		t.Fatalf("failed to create operator: %v", err)
	}
	if err := ts.Customers.SetRole(ctx, cust.ID, customer.RoleOperator); err != nil {
		t.Fatalf("failed to promote operator: %v", err)
	}
}

// CustomerID resolves userID to a customer, creating it on first use.
func (ts *TestServer) CustomerID(t *testing.T, userID string) uuid.UUID {
	t.Helper()
	w := ts.GET("/me", as(userID))
	if w.Code != http.StatusOK {
		t.Fatalf("failed to resolve customer: %d %s", w.Code, w.Body.String())
	}
	var me struct {
		ID uuid.UUID `json:"id"`
	}
	decode(t, w, &me)
	return me.ID
}

// Helper methods for making requests
func (ts *TestServer) GET(path string, headers map[string]string) *httptest.ResponseRecorder {
	return ts.do(http.MethodGet, path, nil, headers)
}

func (ts *TestServer) POST(path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	return ts.do(http.MethodPost, path, body, headers)
}

func (ts *TestServer) PUT(path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	return ts.do(http.MethodPut, path, body, headers)
}

func (ts *TestServer) do(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	ts.Router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("failed to decode %s: %v", w.Body.String(), err)
	}
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("expected status %d, got %d: %s", status, w.Code, w.Body.String())
	}
}

func expectCode(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	expectStatus(t, w, status)
	var resp map[string]string
	decode(t, w, &resp)
	if resp["code"] != code {
		t.Errorf("expected code %s, got %s", code, resp["code"])
	}
}

// CreateTestStation creates an active station through the operator API.
func (ts *TestServer) CreateTestStation(t *testing.T, name string, capacity int) string {
	t.Helper()
	w := ts.POST("/stations", map[string]any{
		"name":      name,
		"address":   "Test Address",
		"cityId":    "MTL",
		"latitude":  45.5,
		"longitude": -73.6,
		"capacity":  capacity,
	}, as(operatorID))
	expectStatus(t, w, http.StatusCreated)
	var resp struct {
		ID string `json:"id"`
	}
	decode(t, w, &resp)
	return resp.ID
}

func (ts *TestServer) CreateTestBike(t *testing.T, bikeType, label, stationID string) string {
	t.Helper()
	w := ts.POST("/bikes", map[string]string{
		"type":      bikeType,
		"label":     label,
		"stationId": stationID,
	}, as(operatorID))
	expectStatus(t, w, http.StatusCreated)
	var resp struct {
		ID string `json:"id"`
	}
	decode(t, w, &resp)
	return resp.ID
}

// PublishTestPlan publishes 1.50 + 0.25/min with a 0.80 e-bike surcharge,
// effective from the fake clock's current time.
func (ts *TestServer) PublishTestPlan(t *testing.T) string {
	t.Helper()
	w := ts.POST("/plans", map[string]any{
		"name":           "standard",
		"baseFee":        "1.50",
		"perMinuteRate":  "0.25",
		"eBikeSurcharge": "0.80",
	}, as(operatorID))
	expectStatus(t, w, http.StatusCreated)
	var plan struct {
		ID string `json:"id"`
	}
	decode(t, w, &plan)

	w = ts.POST("/plans/"+plan.ID+"/publish", nil, as(operatorID))
	expectStatus(t, w, http.StatusOK)
	return plan.ID
}

type stationBody struct {
	ID               string `json:"id"`
	Capacity         int    `json:"capacity"`
	CurrentBikeCount int    `json:"currentBikeCount"`
	Status           string `json:"status"`
}

func (ts *TestServer) StationCount(t *testing.T, stationID string) int {
	t.Helper()
	w := ts.GET("/stations/"+stationID, as(operatorID))
	expectStatus(t, w, http.StatusOK)
	var s stationBody
	decode(t, w, &s)
	return s.CurrentBikeCount
}
