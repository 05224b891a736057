package app_test

import (
	"context"
	"errors"
	"testing"

	"gmb_sync/internal/app"
)

func review(id, comment string) map[string]any {
	return map[string]any{
		"reviewId":   id,
		"name":       "accounts/1/locations/1/reviews/" + id,
		"starRating": "FIVE",
		"comment":    comment,
		"reviewer": map[string]any{
			"displayName":     "Ana",
			"profilePhotoUrl": "https://photos.example/ana",
		},
		"createTime": "2024-03-01T10:00:00.123789Z",
		"updateTime": "2024-03-01T10:00:00Z",
	}
}

func TestReviewSync_InsertThenUnchanged(t *testing.T) {
	st, pv := newFakeStore(), newFakeProvider()
	pv.reviews["locations/1"] = []map[string]any{review("r1", "Great"), review("r2", "Fine")}
	s := app.NewReviewSync(st, pv)
	ctx := context.Background()

	out, err := s.Sync(ctx, "tok", "1", "locations/1")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if out.Inserted != 2 || st.reviewInserts != 2 {
		t.Fatalf("want 2 inserts, got %+v", out)
	}

	out, err = s.Sync(ctx, "tok", "1", "locations/1")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if out.Unchanged != 2 || st.reviewUpdates != 0 {
		t.Fatalf("second pass must not update, got %+v updates=%d", out, st.reviewUpdates)
	}
}

func TestReviewSync_ReplyAddedUpdatesRow(t *testing.T) {
	st, pv := newFakeStore(), newFakeProvider()
	pv.reviews["locations/1"] = []map[string]any{review("r1", "Great")}
	s := app.NewReviewSync(st, pv)
	ctx := context.Background()
	if _, err := s.Sync(ctx, "tok", "1", "locations/1"); err != nil {
		t.Fatalf("err: %v", err)
	}
	backedUp := st.reviews["r1"]["backed_up_date_time"]

	r := review("r1", "Great")
	r["reviewReply"] = map[string]any{"comment": "Thanks!", "updateTime": "2024-03-02T09:00:00Z"}
	pv.reviews["locations/1"] = []map[string]any{r}

	out, err := s.Sync(ctx, "tok", "1", "locations/1")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if out.Updated != 1 || st.reviewUpdates != 1 {
		t.Fatalf("want 1 update, got %+v", out)
	}
	if st.reviews["r1"]["reviewReplyComment"] != "Thanks!" {
		t.Fatalf("reply not stored: %+v", st.reviews["r1"])
	}
	if st.reviews["r1"]["backed_up_date_time"] != backedUp {
		t.Fatalf("backup timestamp must only be set on insert")
	}
}

func TestReviewSync_StaleReviewsAreKept(t *testing.T) {
	st, pv := newFakeStore(), newFakeProvider()
	pv.reviews["locations/1"] = []map[string]any{review("r1", "Great"), review("r2", "Fine")}
	s := app.NewReviewSync(st, pv)
	ctx := context.Background()
	_, _ = s.Sync(ctx, "tok", "1", "locations/1")

	pv.reviews["locations/1"] = []map[string]any{review("r1", "Great")}
	if _, err := s.Sync(ctx, "tok", "1", "locations/1"); err != nil {
		t.Fatalf("err: %v", err)
	}
	if _, ok := st.reviews["r2"]; !ok || len(st.reviews) != 2 {
		t.Fatalf("reviews missing upstream must stay stored")
	}
	if st.reviews["r2"]["is_review_live_on_google"] != true {
		t.Fatalf("live flag must not change")
	}
}

func TestReviewSync_FetchErrorWritesNothing(t *testing.T) {
	st, pv := newFakeStore(), newFakeProvider()
	pv.reviews["locations/1"] = []map[string]any{review("r1", "Great")}
	pv.reviewErr = errors.New("page 2: 503")
	s := app.NewReviewSync(st, pv)

	if _, err := s.Sync(context.Background(), "tok", "1", "locations/1"); err == nil {
		t.Fatalf("want fetch error")
	}
	if st.reviewInserts != 0 {
		t.Fatalf("partial listing must not be applied")
	}
}

func TestReviewSync_DuplicateIDsInOneListing(t *testing.T) {
	st, pv := newFakeStore(), newFakeProvider()
	pv.reviews["locations/1"] = []map[string]any{review("r1", "Great"), review("r1", "Great")}
	out, err := app.NewReviewSync(st, pv).Sync(context.Background(), "tok", "1", "locations/1")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if out.Inserted != 1 || out.Unchanged != 1 {
		t.Fatalf("want 1 insert and 1 unchanged, got %+v", out)
	}
}
