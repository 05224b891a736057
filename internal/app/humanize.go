package app

import "strings"

var displayNames = map[string]string{
	"business_name":         "Business Name",
	"business_type":         "Business Type",
	"language_code":         "Language Code",
	"region_code":           "Region Code",
	"postal_code":           "Postal Code",
	"sorting_code":          "Sorting Code",
	"administrative_area":   "Administrative Area",
	"locality":              "Locality",
	"sublocality":           "Sublocality",
	"address_lines":         "Address Lines",
	"recipients":            "Recipients",
	"service_areas":         "Service Areas",
	"verification_status":   "Verification Status",
	"place_id":              "Place ID",
	"website_uri":           "Website URI",
	"primary_phone":         "Primary Phone",
	"primary_category":      "Primary Category",
	"additional_categories": "Additional Categories",
	"description":           "Description",
	"regular_hours":         "Regular Hours",
}

// Humanize returns the display name of a column: the table entry when there is
// one, else each underscore-separated word capitalized.
func Humanize(field string) string {
	if name, ok := displayNames[field]; ok {
		return name
	}
	words := strings.Split(field, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
