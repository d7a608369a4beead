package lock

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// HTTPClient implements Client against the lock vendor's REST API.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *HTTPClient) Lock(ctx context.Context, bikeID uuid.UUID) error {
	return c.do(ctx, http.MethodPost, c.bikeURL(bikeID, "lock"), nil, nil)
}

func (c *HTTPClient) Unlock(ctx context.Context, bikeID uuid.UUID) error {
	return c.do(ctx, http.MethodPost, c.bikeURL(bikeID, "unlock"), nil, nil)
}

type locationRequest struct {
	Lat float64 `json:"latitude"`
	Lng float64 `json:"longitude"`
}

func (c *HTTPClient) UpdateLocation(ctx context.Context, bikeID uuid.UUID, lat, lng float64) error {
	return c.do(ctx, http.MethodPut, c.bikeURL(bikeID, "location"), locationRequest{Lat: lat, Lng: lng}, nil)
}

type lockState struct {
	Locked bool `json:"locked"`
}

func (c *HTTPClient) IsLocked(ctx context.Context, bikeID uuid.UUID) (bool, error) {
	var state lockState
	err := c.do(ctx, http.MethodGet, c.bikeURL(bikeID, "lock"), nil, &state)
	return state.Locked, err
}

func (c *HTTPClient) bikeURL(bikeID uuid.UUID, action string) string {
	return fmt.Sprintf("%s/bikes/%s/%s", c.baseURL, bikeID, action)
}

func (c *HTTPClient) do(ctx context.Context, method, url string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrLockFailed, err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLockFailed, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLockFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", ErrLockFailed, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: %v", ErrLockFailed, err)
		}
	}
	return nil
}
