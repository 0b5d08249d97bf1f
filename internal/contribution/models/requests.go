package models

// SubmitRequest is the wire body of a contribution submission.
type SubmitRequest struct {
	ProductName     string  `json:"productName"`
	StoreName       string  `json:"storeName"`
	Price           float64 `json:"price"`
	Quantity        *int    `json:"quantity,omitempty"`
	Unit            string  `json:"unit,omitempty"`
	Category        string  `json:"category,omitempty"`
	City            string  `json:"city"`
	State           string  `json:"state"`
	Precheck        bool    `json:"precheck,omitempty"`
	ConfirmConflict bool    `json:"confirmConflict,omitempty"`
}

// OfferResponse is the public shape of a daily offer.
type OfferResponse struct {
	ID              string  `json:"id"`
	ProductName     string  `json:"productName"`
	Price           float64 `json:"price"`
	StoreName       string  `json:"storeName"`
	City            string  `json:"city"`
	State           string  `json:"state"`
	ContributorName string  `json:"contributorName"`
	UserID          string  `json:"userId"`
	Timestamp       string  `json:"timestamp"`
	Verified        bool    `json:"verified"`
}

// ContributionResponse is returned for submissions to the cumulative table.
type ContributionResponse struct {
	ID       string   `json:"id"`
	Status   string   `json:"status"`
	Cascaded []string `json:"cascaded,omitempty"`
}

// ConflictResponse is the advisory returned by the conflict check endpoint
// and by a rejected precheck submission.
type ConflictResponse struct {
	Conflict               bool    `json:"conflict"`
	Error                  string  `json:"error,omitempty"`
	ConflictingPrice       float64 `json:"conflictingPrice,omitempty"`
	ConflictingContributor string  `json:"conflictingContributor,omitempty"`
	PriceDifferencePercent float64 `json:"priceDifferencePercent,omitempty"`
}
