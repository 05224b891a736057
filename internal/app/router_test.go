package app_test

import (
	"context"
	"encoding/json"
	"testing"

	"gmb_sync/internal/app"
	"gmb_sync/internal/domain"
)

func newRouter(st *fakeStore) *app.Router {
	return app.NewRouter(st, app.NewNotificationTypes(st, nil, 0))
}

func TestRoute_VerificationStatusChange(t *testing.T) {
	st := newFakeStore()
	st.users[7] = []int64{101, 102}
	r := newRouter(st)

	plan, err := r.Route(context.Background(), app.RouteInput{
		GMBID:          "locations/1",
		OrganizationID: 7,
		DisplayName:    ptr("Cafe"),
		Changes: []domain.ChangeEntry{
			{Field: domain.FieldVerificationStatus, Old: "SOFT_SUSPENDED", New: "VERIFIED"},
		},
	})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(plan.Notifications) != 2 {
		t.Fatalf("want 2 notifications, got %d", len(plan.Notifications))
	}
	if len(plan.History) != 1 || plan.History[0].Type != domain.HistoryVerificationStatus {
		t.Fatalf("want 1 type-1 history, got %+v", plan.History)
	}
	if len(plan.KeywordChecks) != 0 {
		t.Fatalf("status change must not request keyword checks: %+v", plan.KeywordChecks)
	}

	var hist map[string]string
	if err := json.Unmarshal([]byte(plan.History[0].Data), &hist); err != nil {
		t.Fatalf("history data: %v", err)
	}
	if hist["old_status"] != `"SOFT_SUSPENDED"` || hist["new_status"] != `"VERIFIED"` {
		t.Fatalf("unexpected history data: %s", plan.History[0].Data)
	}

	for i, n := range plan.Notifications {
		if n.UserID != int64(101+i) || n.OrganizationID != 7 || n.NotificationTypeID != 11 {
			t.Fatalf("unexpected notification %d: %+v", i, n)
		}
		var payload map[string]any
		if err := json.Unmarshal([]byte(n.Data), &payload); err != nil {
			t.Fatalf("notification data: %v", err)
		}
		if payload["gmb_id"] != "locations/1" || payload["gmb_name"] != "Cafe" ||
			payload["old_status"] != "SOFT_SUSPENDED" || payload["new_status"] != "VERIFIED" {
			t.Fatalf("unexpected payload: %s", n.Data)
		}
	}
}

func TestRoute_StatusChangeWithoutUsers(t *testing.T) {
	st := newFakeStore()
	r := newRouter(st)

	plan, err := r.Route(context.Background(), app.RouteInput{
		GMBID:          "locations/1",
		OrganizationID: 7,
		Changes: []domain.ChangeEntry{
			{Field: domain.FieldVerificationStatus, Old: nil, New: "VERIFIED"},
		},
	})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(plan.Notifications) != 0 || len(plan.History) != 1 {
		t.Fatalf("want history only, got %+v", plan)
	}
	if st.typeLookups != 0 {
		t.Fatalf("type id must not be resolved without recipients")
	}
}

func TestRoute_BusinessNameChange(t *testing.T) {
	st := newFakeStore()
	st.users[7] = []int64{101}
	r := newRouter(st)

	msg := domain.KeywordStuffingMessage{GMBID: "locations/1", GMBName: ptr("New")}
	plan, err := r.Route(context.Background(), app.RouteInput{
		GMBID:          "locations/1",
		OrganizationID: 7,
		Changes: []domain.ChangeEntry{
			{Field: domain.FieldBusinessName, Old: "Old", New: "New"},
		},
		KeywordMessage: msg,
	})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(plan.Notifications) != 0 {
		t.Fatalf("want no notifications, got %d", len(plan.Notifications))
	}
	if len(plan.History) != 1 || plan.History[0].Type != domain.HistoryFieldChanged {
		t.Fatalf("want 1 type-2 history, got %+v", plan.History)
	}
	var data map[string]string
	_ = json.Unmarshal([]byte(plan.History[0].Data), &data)
	if data["field_that_changed"] != "Business Name" || data["old_data"] != `"Old"` || data["new_data"] != `"New"` {
		t.Fatalf("unexpected history data: %s", plan.History[0].Data)
	}
	if len(plan.KeywordChecks) != 1 || plan.KeywordChecks[0] != msg {
		t.Fatalf("want one keyword check, got %+v", plan.KeywordChecks)
	}
}

func TestRoute_KeywordChecksAccumulate(t *testing.T) {
	st := newFakeStore()
	r := newRouter(st)

	plan, err := r.Route(context.Background(), app.RouteInput{
		GMBID:               "locations/1",
		KeywordCheckPending: true,
		Changes: []domain.ChangeEntry{
			{Field: domain.FieldBusinessName, Old: "a", New: "b"},
			{Field: domain.FieldDescription, Old: nil, New: "desc"},
			{Field: "website_uri", Old: nil, New: "https://x"},
		},
	})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(plan.KeywordChecks) != 3 {
		t.Fatalf("want 3 keyword checks, got %d", len(plan.KeywordChecks))
	}
	if len(plan.History) != 3 {
		t.Fatalf("want 3 history rows, got %d", len(plan.History))
	}
}

func TestRoute_ReviewAmountSnapshot(t *testing.T) {
	st := newFakeStore()
	st.reviews["r1"] = domain.Row{"id": "r1", "gmb_id": "locations/1", domain.FieldLive: true}
	st.reviews["r2"] = domain.Row{"id": "r2", "gmb_id": "locations/1", domain.FieldLive: true}
	st.reviews["r3"] = domain.Row{"id": "r3", "gmb_id": "locations/1", domain.FieldLive: false}
	r := newRouter(st)

	plan, err := r.Route(context.Background(), app.RouteInput{
		GMBID:   "locations/1",
		Changes: []domain.ChangeEntry{{Field: "locality", Old: "A", New: "B"}},
	})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if plan.History[0].ReviewAmount != 2 {
		t.Fatalf("want review amount 2, got %d", plan.History[0].ReviewAmount)
	}
}

func TestRoute_NoChanges(t *testing.T) {
	plan, err := newRouter(newFakeStore()).Route(context.Background(), app.RouteInput{GMBID: "locations/1"})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(plan.History)+len(plan.Notifications)+len(plan.KeywordChecks) != 0 {
		t.Fatalf("want empty plan, got %+v", plan)
	}
}

func TestHumanize(t *testing.T) {
	cases := map[string]string{
		"custom_field_x":        "Custom Field X",
		"business_name":         "Business Name",
		"place_id":              "Place ID",
		"website_uri":           "Website URI",
		"additional_categories": "Additional Categories",
		"locality":              "Locality",
	}
	for in, want := range cases {
		if got := app.Humanize(in); got != want {
			t.Errorf("Humanize(%q) = %q, want %q", in, got, want)
		}
	}
}
