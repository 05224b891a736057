package domain

// Outbound queue payloads.

type KeywordStuffingMessage struct {
	GMBID       string  `json:"gmb_id"`
	GMBName     *string `json:"gmb_name"`
	Description *string `json:"description"`
}

// LocationMessage is sent to the reviews and media queues.
type LocationMessage struct {
	OrganizationID int64  `json:"organization_id"`
	GMBID          string `json:"gmb_id"`
	AccountID      string `json:"account_id"`
}
