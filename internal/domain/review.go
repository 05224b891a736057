package domain

import "time"

const (
	FieldBackedUpAt = "backed_up_date_time"
	FieldLive       = "is_review_live_on_google"
)

// Review mirrors one row of gmb_reviews. Timestamps keep the provider's
// RFC 3339 text until they reach the store.
type Review struct {
	ID                      string
	GMBID                   string
	ReviewerProfilePhotoURL *string
	ReviewerDisplayName     *string
	StarRating              *string
	Comment                 *string
	CreateTime              *string
	UpdateTime              *string
	ReplyComment            *string
	ReplyUpdateTime         *string
	Name                    *string
	BackedUpAt              time.Time
	Live                    bool
}

type reviewField struct {
	Field
	get func(*Review) any
}

// Compared on every fetch. backed_up_date_time is written on insert only.
var reviewFields = []reviewField{
	{Field{"gmb_id", KindString}, func(r *Review) any { return r.GMBID }},
	{Field{"reviewerProfilePhotoUrl", KindString}, func(r *Review) any { return str(r.ReviewerProfilePhotoURL) }},
	{Field{"reviewerDisplayName", KindString}, func(r *Review) any { return str(r.ReviewerDisplayName) }},
	{Field{"starRating", KindString}, func(r *Review) any { return str(r.StarRating) }},
	{Field{"comment", KindString}, func(r *Review) any { return str(r.Comment) }},
	{Field{"createTime", KindTime}, func(r *Review) any { return str(r.CreateTime) }},
	{Field{"updateTime", KindTime}, func(r *Review) any { return str(r.UpdateTime) }},
	{Field{"reviewReplyComment", KindString}, func(r *Review) any { return str(r.ReplyComment) }},
	{Field{"reviewReplyUpdateTime", KindTime}, func(r *Review) any { return str(r.ReplyUpdateTime) }},
	{Field{"name", KindString}, func(r *Review) any { return str(r.Name) }},
	{Field{FieldLive, KindBool}, func(r *Review) any { return r.Live }},
}

func ReviewFields() []Field {
	out := make([]Field, 0, len(reviewFields))
	for _, f := range reviewFields {
		out = append(out, f.Field)
	}
	return out
}

func ReviewColumns() []Field {
	cols := []Field{{"id", KindString}}
	cols = append(cols, ReviewFields()...)
	return append(cols, Field{FieldBackedUpAt, KindTime})
}

// Row is the insert shape (every column).
func (r *Review) Row() Row {
	row := r.UpdateRow()
	row[FieldBackedUpAt] = r.BackedUpAt.UTC()
	return row
}

// UpdateRow is the whole-row update shape; it leaves backed_up_date_time alone.
func (r *Review) UpdateRow() Row {
	row := make(Row, len(reviewFields)+2)
	row["id"] = r.ID
	for _, f := range reviewFields {
		row[f.Name] = f.get(r)
	}
	return row
}
