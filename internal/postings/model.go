package postings

import "time"

// Posting is a scraped job offer. Immutable once written except for the
// active flag, which the scraping collaborator toggles when an offer closes.
type Posting struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Company      string    `json:"company"`
	Embedding    []float64 `json:"embedding"`
	Sector       string    `json:"sector"`
	City         string    `json:"city"`
	Salary       int       `json:"salary"`
	Requirements []string  `json:"requirements"`
	Remote       bool      `json:"remote"`
	ContactEmail string    `json:"contactEmail"`
	SourceURL    string    `json:"sourceUrl"`
	Active       bool      `json:"active"`
	ScrapedAt    time.Time `json:"scrapedAt"`
}
