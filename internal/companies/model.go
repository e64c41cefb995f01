package companies

import "time"

// Company is a saved analysis target whose prompts are re-executed on a
// schedule, independent of any single run.
type Company struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	BrandName string    `json:"brandName"`
	SiteURL   string    `json:"siteUrl"`
	Country   string    `json:"country,omitempty"`
	Language  string    `json:"language"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
