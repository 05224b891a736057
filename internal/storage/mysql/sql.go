package mysql

import (
	"strings"

	"gmb_sync/internal/domain"
)

// Column lists come from the domain field tables so a new tracked field only
// needs to be declared once. Provider column names are camelCase; keep them
// quoted everywhere.

var (
	locationReadCols   = domain.LocationColumns()
	locationInsertCols = append([]domain.Field{{Name: "id", Kind: domain.KindString}}, domain.LocationFields()...)
	locationUpdateCols = domain.LocationFields()

	reviewReadCols   = domain.ReviewColumns()
	reviewInsertCols = domain.ReviewColumns()
	reviewUpdateCols = domain.ReviewFields()
)

var (
	getLocationSQL    = "SELECT " + columnList(locationReadCols) + " FROM gmb_locations WHERE id = ?"
	insertLocationSQL = insertSQL("gmb_locations", locationInsertCols)
	updateLocationSQL = updateSQL("gmb_locations", locationUpdateCols)

	listReviewsSQL  = "SELECT " + columnList(reviewReadCols) + " FROM gmb_reviews WHERE gmb_id = ?"
	insertReviewSQL = insertSQL("gmb_reviews", reviewInsertCols)
	updateReviewSQL = updateSQL("gmb_reviews", reviewUpdateCols)
)

const listBridgesSQL = `
SELECT organization_id, gmb_id, COALESCE(account_id, '') AS account_id
FROM gmb_location_organization_bridge
ORDER BY organization_id, gmb_id
`

const getCredentialSQL = `
SELECT organization_id, sub, google_refresh_token
FROM google_credentials
WHERE organization_id = ? AND sub = ?
`

const countLiveReviewsSQL = `
SELECT COUNT(*) FROM gmb_reviews
WHERE gmb_id = ? AND is_review_live_on_google = 1
`

// sqlx expands a slice argument into one multi-row VALUES list.
const insertHistorySQL = `
INSERT INTO gmb_history (gmb_id, history_type_id, review_amount, data)
VALUES (:gmb_id, :history_type_id, :review_amount, :data)
`

const insertNotificationsSQL = `
INSERT INTO notifications (organization_id, user_id, notification_type_id, data)
VALUES (:organization_id, :user_id, :notification_type_id, :data)
`

const userIDsByOrganizationSQL = `
SELECT user_id FROM user_organization_bridge
WHERE organization_id = ?
ORDER BY user_id
`

const notificationTypeIDSQL = `
SELECT id FROM notification_types WHERE type_key = ?
`

func quote(name string) string { return "`" + name + "`" }

func columnList(cols []domain.Field) string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = quote(c.Name)
	}
	return strings.Join(names, ", ")
}

func insertSQL(table string, cols []domain.Field) string {
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	return "INSERT INTO " + table + " (" + columnList(cols) + ") VALUES (" + marks + ")"
}

func updateSQL(table string, cols []domain.Field) string {
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = quote(c.Name) + " = ?"
	}
	return "UPDATE " + table + " SET " + strings.Join(sets, ", ") + " WHERE id = ?"
}
