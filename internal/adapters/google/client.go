// internal/adapters/google/client.go
package google

import (
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"gmb_sync/internal/adapters/observability"
	"gmb_sync/internal/domain"
)

// Endpoints are the API hosts; tests point them at a local server.
type Endpoints struct {
	Info         string // Business Information API
	Verification string // Verifications API
	Reviews      string // My Business v4 (reviews)
}

func DefaultEndpoints() Endpoints {
	return Endpoints{
		Info:         "https://mybusinessbusinessinformation.googleapis.com",
		Verification: "https://mybusinessverifications.googleapis.com",
		Reviews:      "https://mybusiness.googleapis.com",
	}
}

// LocationReadMask is the field mask sent with every location read.
var LocationReadMask = []string{
	"name", "languageCode", "storeCode", "title", "storefrontAddress", "serviceArea",
	"phoneNumbers", "regularHours", "websiteUri", "categories", "metadata", "profile",
}

type Client struct {
	ep Endpoints
	hc *http.Client
	rl *rate.Limiter
}

func New(ep Endpoints, rps int) *Client {
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		ep: ep,
		hc: &http.Client{Timeout: 20 * time.Second},
		rl: rate.NewLimiter(rate.Limit(rps), rps),
	}
}

// ---- Public API ----

func (c *Client) GetLocation(ctx context.Context, token, locationID string) (map[string]any, error) {
	u := fmt.Sprintf("%s/v1/locations/%s?readMask=%s",
		c.ep.Info, url.PathEscape(locationID), strings.Join(LocationReadMask, ","))
	var out map[string]any
	return out, c.get(ctx, "location", token, u, &out)
}

type voiceOfMerchantState struct {
	HasVoiceOfMerchant   *bool `json:"hasVoiceOfMerchant"`
	HasBusinessAuthority *bool `json:"hasBusinessAuthority"`
	Verify               *struct {
		HasPendingVerification bool `json:"hasPendingVerification"`
	} `json:"verify"`
}

func (c *Client) GetVerificationStatus(ctx context.Context, token, locationID string) (domain.VerificationStatus, error) {
	u := fmt.Sprintf("%s/v1/locations/%s/VoiceOfMerchantState", c.ep.Verification, url.PathEscape(locationID))
	var st voiceOfMerchantState
	if err := c.get(ctx, "verification", token, u, &st); err != nil {
		return "", err
	}
	return statusOf(st), nil
}

// statusOf checks a pending verification first, then the two flags; any
// other combination (including absent flags) is UNKNOWN.
func statusOf(st voiceOfMerchantState) domain.VerificationStatus {
	if st.Verify != nil && st.Verify.HasPendingVerification {
		return domain.StatusPending
	}
	if st.HasVoiceOfMerchant == nil || st.HasBusinessAuthority == nil {
		return domain.StatusUnknown
	}
	vom, auth := *st.HasVoiceOfMerchant, *st.HasBusinessAuthority
	switch {
	case !vom && !auth:
		return domain.StatusHardSuspended
	case !vom && auth:
		return domain.StatusSoftSuspended
	case vom && auth:
		return domain.StatusVerified
	}
	return domain.StatusUnknown
}

type reviewsPage struct {
	Reviews       []map[string]any `json:"reviews"`
	NextPageToken string           `json:"nextPageToken"`
}

// Reviews lazily walks the review listing page by page. An error ends the
// sequence after being yielded.
func (c *Client) Reviews(ctx context.Context, token, accountID, locationID string) iter.Seq2[map[string]any, error] {
	return func(yield func(map[string]any, error) bool) {
		base := fmt.Sprintf("%s/v4/accounts/%s/locations/%s/reviews",
			c.ep.Reviews, url.PathEscape(accountID), url.PathEscape(locationID))
		pageToken := ""
		for {
			u := base
			if pageToken != "" {
				u += "?pageToken=" + url.QueryEscape(pageToken)
			}
			var page reviewsPage
			if err := c.get(ctx, "reviews", token, u, &page); err != nil {
				yield(nil, fmt.Errorf("reviews page: %w", err))
				return
			}
			for _, r := range page.Reviews {
				if !yield(r, nil) {
					return
				}
			}
			if page.NextPageToken == "" {
				return
			}
			pageToken = page.NextPageToken
		}
	}
}

// ---- Internals ----

var (
	ErrNotFound     = errors.New("google: not found")
	ErrUnauthorized = errors.New("google: unauthorized")
	ErrForbidden    = errors.New("google: forbidden")
)

// get performs a GET with client-side rate limiting, retries, and JSON decode into out.
// Retries on 429 and transient 5xx, honoring Retry-After when provided.
func (c *Client) get(ctx context.Context, endpoint, token, url string, out any) error {
	// client-side rate limiting
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	var lastErr error
	for i := 0; i < 4; i++ {
		// build a fresh request each attempt
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "gmb-sync/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal("google", endpoint, 0, time.Since(start))
			// network error or context canceled
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			// context-aware sleep before retry
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			// no more retries or context canceled
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal("google", endpoint, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK:
			// decode then close
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if err == io.EOF {
				return nil // empty body
			}
			return err

		case http.StatusNotFound:
			resp.Body.Close()
			return ErrNotFound

		case http.StatusUnauthorized:
			resp.Body.Close()
			return ErrUnauthorized

		case http.StatusForbidden:
			resp.Body.Close()
			return ErrForbidden

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			// Prefer server-provided Retry-After; otherwise exponential backoff.
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("remote %d", resp.StatusCode)
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			// read a small error body for diagnostics
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}

	return lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	// seconds form
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	// HTTP-date form
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff returns an exponential backoff delay with jitter.
// i = retry attempt (0,1,2,...). Base doubles each attempt (200ms, 400ms, 800ms...),
// with up to +50% random jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0                  // 0..1
	j := time.Duration(0.5 * f * float64(base)) // up to +50%
	return base + j
}
