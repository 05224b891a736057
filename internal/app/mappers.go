package app

import (
	"strings"
	"time"

	"gmb_sync/internal/domain"
)

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns the string at path, nil when absent or not a string.
func lookupStr(m map[string]any, path string) *string {
	if s, ok := lookupAny(m, path).(string); ok {
		return &s
	}
	return nil
}

// lookupStrings returns a string list at path. A present but empty list stays
// empty (not nil) so it round-trips as [] rather than null.
func lookupStrings(m map[string]any, path string) []string {
	raw, ok := lookupAny(m, path).([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, it := range raw {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// pluck maps a list of objects at path to one string field of each.
func pluck(m map[string]any, path, field string) []string {
	raw, ok := lookupAny(m, path).([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, it := range raw {
		if obj, ok := it.(map[string]any); ok {
			if s, ok := obj[field].(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

func lookupObject(m map[string]any, path string) map[string]any {
	if obj, ok := lookupAny(m, path).(map[string]any); ok {
		return obj
	}
	return nil
}

/********** location mapper **********/

// mapLocation projects a Business Information payload (with verificationStatus
// already merged in) onto the stored location shape.
func mapLocation(id string, p map[string]any) domain.Location {
	return domain.Location{
		ID:                   id,
		BusinessName:         lookupStr(p, "title"),
		BusinessType:         lookupStr(p, "serviceArea.businessType"),
		LanguageCode:         lookupStr(p, "languageCode"),
		RegionCode:           lookupStr(p, "storefrontAddress.regionCode"),
		PostalCode:           lookupStr(p, "storefrontAddress.postalCode"),
		SortingCode:          lookupStr(p, "storefrontAddress.sortingCode"),
		AdministrativeArea:   lookupStr(p, "storefrontAddress.administrativeArea"),
		Locality:             lookupStr(p, "storefrontAddress.locality"),
		Sublocality:          lookupStr(p, "storefrontAddress.sublocality"),
		AddressLines:         lookupStrings(p, "storefrontAddress.addressLines"),
		Recipients:           lookupStrings(p, "storefrontAddress.recipients"),
		ServiceAreas:         pluck(p, "serviceArea.places.placeInfos", "placeName"),
		VerificationStatus:   lookupStr(p, "verificationStatus"),
		PlaceID:              lookupStr(p, "metadata.placeId"),
		MapsURI:              lookupStr(p, "metadata.mapsUri"),
		WebsiteURI:           lookupStr(p, "websiteUri"),
		PrimaryPhone:         lookupStr(p, "phoneNumbers.primaryPhone"),
		PrimaryCategory:      lookupStr(p, "categories.primaryCategory.displayName"),
		AdditionalCategories: pluck(p, "categories.additionalCategories", "displayName"),
		Description:          lookupStr(p, "profile.description"),
		RegularHours:         lookupObject(p, "regularHours"),
	}
}

/********** reviews mapper **********/

func mapReview(gmbID string, r map[string]any, now time.Time) domain.Review {
	id := ""
	if s := lookupStr(r, "reviewId"); s != nil {
		id = *s
	}
	return domain.Review{
		ID:                      id,
		GMBID:                   gmbID,
		ReviewerProfilePhotoURL: lookupStr(r, "reviewer.profilePhotoUrl"),
		ReviewerDisplayName:     lookupStr(r, "reviewer.displayName"),
		StarRating:              lookupStr(r, "starRating"),
		Comment:                 lookupStr(r, "comment"),
		CreateTime:              lookupStr(r, "createTime"),
		UpdateTime:              lookupStr(r, "updateTime"),
		ReplyComment:            lookupStr(r, "reviewReply.comment"),
		ReplyUpdateTime:         lookupStr(r, "reviewReply.updateTime"),
		Name:                    lookupStr(r, "name"),
		BackedUpAt:              now.UTC(),
		Live:                    true,
	}
}

func keywordMessage(l domain.Location) domain.KeywordStuffingMessage {
	return domain.KeywordStuffingMessage{
		GMBID:       l.ID,
		GMBName:     l.BusinessName,
		Description: l.Description,
	}
}
