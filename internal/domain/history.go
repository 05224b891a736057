package domain

type HistoryType int

const (
	HistoryVerificationStatus HistoryType = 1
	HistoryFieldChanged       HistoryType = 2
)

// NotificationVoiceOfMerchantUpdated is the notification_types key used for
// verification status changes.
const NotificationVoiceOfMerchantUpdated = "VOICE_OF_MERCHANT_UPDATED"

// ChangeEntry is one differing field. Old is the decoded stored value.
type ChangeEntry struct {
	Field string
	Old   any
	New   any
}

type HistoryEntry struct {
	GMBID        string      `db:"gmb_id"`
	Type         HistoryType `db:"history_type_id"`
	ReviewAmount int         `db:"review_amount"`
	Data         string      `db:"data"`
}

type NotificationEntry struct {
	OrganizationID     int64  `db:"organization_id"`
	UserID             int64  `db:"user_id"`
	NotificationTypeID int64  `db:"notification_type_id"`
	Data               string `db:"data"`
}
