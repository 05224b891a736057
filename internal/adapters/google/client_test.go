package google_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"gmb_sync/internal/adapters/google"
	"gmb_sync/internal/domain"
)

func endpoints(url string) google.Endpoints {
	return google.Endpoints{Info: url, Verification: url, Reviews: url}
}

func TestClient_GetLocation_RetriesThenSuccess(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Path != "/v1/locations/123" || !strings.Contains(r.URL.Query().Get("readMask"), "storefrontAddress") {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		switch atomic.AddInt32(&hits, 1) {
		case 1, 2:
			// two transient failures
			w.WriteHeader(500)
		default:
			w.WriteHeader(200)
			_ = json.NewEncoder(w).Encode(map[string]any{"title": "Cafe"})
		}
	}))
	defer ts.Close()

	cl := google.New(endpoints(ts.URL), 100) // high RPS for tests
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	got, err := cl.GetLocation(ctx, "tok", "123")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got["title"] != "Cafe" {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if atomic.LoadInt32(&hits) < 3 {
		t.Fatalf("expected at least 3 calls due to retries, got %d", hits)
	}
}

func TestClient_GetLocation_Unauthorized(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	cl := google.New(endpoints(ts.URL), 100)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := cl.GetLocation(ctx, "expired", "1")
	if !errors.Is(err, google.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestClient_GetVerificationStatus(t *testing.T) {
	cases := []struct {
		body string
		want domain.VerificationStatus
	}{
		{`{"verify":{"hasPendingVerification":true},"hasVoiceOfMerchant":true,"hasBusinessAuthority":true}`, domain.StatusPending},
		{`{"hasVoiceOfMerchant":false,"hasBusinessAuthority":false}`, domain.StatusHardSuspended},
		{`{"hasVoiceOfMerchant":false,"hasBusinessAuthority":true}`, domain.StatusSoftSuspended},
		{`{"hasVoiceOfMerchant":true,"hasBusinessAuthority":true}`, domain.StatusVerified},
		{`{"hasVoiceOfMerchant":true,"hasBusinessAuthority":false}`, domain.StatusUnknown},
		{`{}`, domain.StatusUnknown},
	}
	for _, tc := range cases {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/v1/locations/9/VoiceOfMerchantState" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			_, _ = w.Write([]byte(tc.body))
		}))
		got, err := google.New(endpoints(ts.URL), 100).GetVerificationStatus(context.Background(), "tok", "9")
		ts.Close()
		if err != nil {
			t.Fatalf("%s: unexpected err: %v", tc.body, err)
		}
		if got != tc.want {
			t.Errorf("%s: got %s, want %s", tc.body, got, tc.want)
		}
	}
}

func TestClient_Reviews_FollowsPageToken(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v4/accounts/acc/locations/9/reviews" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch r.URL.Query().Get("pageToken") {
		case "":
			_, _ = w.Write([]byte(`{"reviews":[{"reviewId":"a"},{"reviewId":"b"}],"nextPageToken":"p2"}`))
		case "p2":
			_, _ = w.Write([]byte(`{"reviews":[{"reviewId":"c"}]}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer ts.Close()

	var ids []string
	for r, err := range google.New(endpoints(ts.URL), 100).Reviews(context.Background(), "tok", "acc", "9") {
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		ids = append(ids, r["reviewId"].(string))
	}
	if strings.Join(ids, ",") != "a,b,c" {
		t.Fatalf("unexpected ids: %v", ids)
	}
}

func TestClient_Reviews_StopsEarlyAndSurfacesErrors(t *testing.T) {
	var pages int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&pages, 1) > 1 {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(`{"reviews":[{"reviewId":"a"},{"reviewId":"b"}],"nextPageToken":"p2"}`))
	}))
	defer ts.Close()
	cl := google.New(endpoints(ts.URL), 100)

	for range cl.Reviews(context.Background(), "tok", "acc", "9") {
		break
	}
	if atomic.LoadInt32(&pages) != 1 {
		t.Fatalf("breaking out must not fetch more pages, fetched %d", pages)
	}

	var got error
	n := 0
	for _, err := range cl.Reviews(context.Background(), "tok", "acc", "9") {
		if err != nil {
			got = err
			break
		}
		n++
	}
	if !errors.Is(got, google.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v after %d reviews", got, n)
	}
}
