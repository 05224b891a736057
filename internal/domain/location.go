package domain

import "time"

type VerificationStatus string

const (
	StatusPending       VerificationStatus = "PENDING"
	StatusHardSuspended VerificationStatus = "HARD_SUSPENDED"
	StatusSoftSuspended VerificationStatus = "SOFT_SUSPENDED"
	StatusVerified      VerificationStatus = "VERIFIED"
	StatusUnknown       VerificationStatus = "UNKNOWN"
)

// Column names with special routing.
const (
	FieldBusinessName       = "business_name"
	FieldDescription        = "description"
	FieldVerificationStatus = "verification_status"
	FieldKeywordCheckedAt   = "business_name_keyword_stuffed_checked_at"
)

// Location is one Google Business Profile location as stored in gmb_locations.
type Location struct {
	ID                   string
	BusinessName         *string
	BusinessType         *string
	LanguageCode         *string
	RegionCode           *string
	PostalCode           *string
	SortingCode          *string
	AdministrativeArea   *string
	Locality             *string
	Sublocality          *string
	AddressLines         []string
	Recipients           []string
	ServiceAreas         []string
	VerificationStatus   *string
	PlaceID              *string
	MapsURI              *string
	WebsiteURI           *string
	PrimaryPhone         *string
	PrimaryCategory      *string
	AdditionalCategories []string
	Description          *string
	RegularHours         map[string]any

	// Written by the keyword stuffing checker, never by the sync.
	KeywordCheckedAt *time.Time
}

type locationField struct {
	Field
	get func(*Location) any
}

// Tracked fields in diff order.
var locationFields = []locationField{
	{Field{"business_name", KindString}, func(l *Location) any { return str(l.BusinessName) }},
	{Field{"business_type", KindString}, func(l *Location) any { return str(l.BusinessType) }},
	{Field{"language_code", KindString}, func(l *Location) any { return str(l.LanguageCode) }},
	{Field{"region_code", KindString}, func(l *Location) any { return str(l.RegionCode) }},
	{Field{"postal_code", KindString}, func(l *Location) any { return str(l.PostalCode) }},
	{Field{"sorting_code", KindString}, func(l *Location) any { return str(l.SortingCode) }},
	{Field{"administrative_area", KindString}, func(l *Location) any { return str(l.AdministrativeArea) }},
	{Field{"locality", KindString}, func(l *Location) any { return str(l.Locality) }},
	{Field{"sublocality", KindString}, func(l *Location) any { return str(l.Sublocality) }},
	{Field{"address_lines", KindJSON}, func(l *Location) any { return strs(l.AddressLines) }},
	{Field{"recipients", KindJSON}, func(l *Location) any { return strs(l.Recipients) }},
	{Field{"service_areas", KindJSON}, func(l *Location) any { return strs(l.ServiceAreas) }},
	{Field{"verification_status", KindString}, func(l *Location) any { return str(l.VerificationStatus) }},
	{Field{"place_id", KindString}, func(l *Location) any { return str(l.PlaceID) }},
	{Field{"maps_uri", KindString}, func(l *Location) any { return str(l.MapsURI) }},
	{Field{"website_uri", KindString}, func(l *Location) any { return str(l.WebsiteURI) }},
	{Field{"primary_phone", KindString}, func(l *Location) any { return str(l.PrimaryPhone) }},
	{Field{"primary_category", KindString}, func(l *Location) any { return str(l.PrimaryCategory) }},
	{Field{"additional_categories", KindJSON}, func(l *Location) any { return strs(l.AdditionalCategories) }},
	{Field{"description", KindString}, func(l *Location) any { return str(l.Description) }},
	{Field{"regular_hours", KindJSON}, func(l *Location) any { return obj(l.RegularHours) }},
}

// LocationFields lists the tracked columns in diff order.
func LocationFields() []Field {
	out := make([]Field, 0, len(locationFields))
	for _, f := range locationFields {
		out = append(out, f.Field)
	}
	return out
}

// LocationColumns is every column the store reads back, tracked or not.
func LocationColumns() []Field {
	cols := []Field{{"id", KindString}}
	cols = append(cols, LocationFields()...)
	return append(cols, Field{FieldKeywordCheckedAt, KindTime})
}

// Row is the whole-row write shape: id plus every tracked field.
func (l *Location) Row() Row {
	r := make(Row, len(locationFields)+1)
	r["id"] = l.ID
	for _, f := range locationFields {
		r[f.Name] = f.get(l)
	}
	return r
}

// KeywordCheckedAt reads the checker timestamp from a stored location row.
func KeywordCheckedAt(r Row) *time.Time {
	if t, ok := r[FieldKeywordCheckedAt].(time.Time); ok && !t.IsZero() {
		return &t
	}
	return nil
}

// LocationBridge links a location to its owning organization and Google account.
type LocationBridge struct {
	OrganizationID int64  `db:"organization_id"`
	GMBID          string `db:"gmb_id"`
	AccountID      string `db:"account_id"`
}

// Credential is the stored Google OAuth grant of an organization account.
type Credential struct {
	OrganizationID int64  `db:"organization_id"`
	Sub            string `db:"sub"`
	RefreshToken   string `db:"google_refresh_token"`
}
