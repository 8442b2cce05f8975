// Package amber is the client for the Amber price API.
//
// The watcher cares about exactly one thing per poll: whether the current
// interval's price is still an estimate or has been confirmed, and how much
// of the request quota is left. The client extracts both from the
// /prices/current response and its IETF RateLimit headers.
//
// All calls go through a circuit breaker that trips after five consecutive
// failures, so a broken upstream cannot burn the poll budget on requests
// that cannot succeed.
package amber

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/tidwall/gjson"
)

// RateLimitedError is returned on a 429 response.
type RateLimitedError struct {
	// ResetAt is the quota reset time from the response headers,
	// zero when the API did not supply one.
	ResetAt time.Time
}

func (e *RateLimitedError) Error() string {
	if e.ResetAt.IsZero() {
		return "rate limited by API"
	}
	return fmt.Sprintf("rate limited by API until %s", e.ResetAt.Format(time.TimeOnly))
}

// Price is the current-interval price state extracted from the API response.
type Price struct {
	PerKwh     float64
	SpotPerKwh float64
	Renewables float64
	NemTime    string
	Estimate   bool
}

// Client calls the Amber price API for one account token.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
}

// NewClient creates a Client. httpClient may be nil, in which case a default
// client with a 10s timeout is used.
func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	breaker := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        "amber",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})

	return &Client{
		baseURL: baseURL,
		token:   token,
		client:  httpClient,
		breaker: breaker,
	}
}

// CurrentPrice fetches the current interval's price for a site.
//
// The returned Info is parsed from the response's rate-limit headers and is
// valid whenever ok is true, including on 429 responses. A 429 yields a
// *RateLimitedError.
func (c *Client) CurrentPrice(ctx context.Context, site string) (Price, Info, bool, error) {
	url := fmt.Sprintf("%s/v1/sites/%s/prices/current", c.baseURL, site)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Price{}, Info{}, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		r, doErr := c.client.Do(req)
		if doErr != nil {
			return nil, doErr
		}
		if r.StatusCode >= http.StatusInternalServerError {
			r.Body.Close()
			return nil, fmt.Errorf("http status %d", r.StatusCode)
		}
		return r, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return Price{}, Info{}, false, fmt.Errorf("circuit breaker open: %w", err)
		}
		return Price{}, Info{}, false, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	info, infoOK := ParseInfo(resp.Header)

	if resp.StatusCode == http.StatusTooManyRequests {
		rlErr := &RateLimitedError{}
		if infoOK {
			rlErr.ResetAt = time.Now().Add(time.Duration(info.ResetSeconds) * time.Second)
		}
		return Price{}, info, infoOK, rlErr
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Price{}, info, infoOK, fmt.Errorf("http status %d: %s", resp.StatusCode, string(body))
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Price{}, info, infoOK, fmt.Errorf("read response: %w", err)
	}

	price, err := parsePrice(respBody)
	if err != nil {
		return Price{}, info, infoOK, err
	}

	return price, info, infoOK, nil
}

// parsePrice extracts the current-interval price from the response body.
// The API returns an array of intervals; the first element is the current
// one.
func parsePrice(body []byte) (Price, error) {
	current := gjson.GetBytes(body, "0")
	if !current.Exists() {
		return Price{}, errors.New("response contains no intervals")
	}

	perKwh := current.Get("perKwh")
	if !perKwh.Exists() {
		return Price{}, errors.New("response interval missing perKwh")
	}

	return Price{
		PerKwh:     perKwh.Float(),
		SpotPerKwh: current.Get("spotPerKwh").Float(),
		Renewables: current.Get("renewables").Float(),
		NemTime:    current.Get("nemTime").String(),
		// Confirmed intervals omit the estimate field entirely.
		Estimate: current.Get("estimate").Bool(),
	}, nil
}
