package models

import "time"

// MaxPairs is the number of image pairs in one daily puzzle.
const MaxPairs = 5

// Puzzle day lifecycle. Transitions are driven by admins only.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusLive     = "live"
)

// ValidStatus reports whether s is a known puzzle day status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusApproved, StatusLive:
		return true
	}
	return false
}

// PuzzleDay is the bucket of pairs played on one civil day.
type PuzzleDay struct {
	ID            int64       `json:"id"`
	DayKey        string      `json:"date"`
	ScheduledDate time.Time   `json:"scheduled_date"` // local midnight of DayKey, in UTC
	Status        string      `json:"status"`
	Pairs         []ImagePair `json:"pairs"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// HasSpareCapacity reports whether another pair fits.
func (d *PuzzleDay) HasSpareCapacity() bool {
	return len(d.Pairs) < MaxPairs
}

// PairMetadata is provenance recorded by the creative pipeline. Game logic never reads it.
type PairMetadata struct {
	Description      string     `json:"description,omitempty"`
	StyleAnalysis    string     `json:"style_analysis,omitempty"`
	GenerationPrompt string     `json:"generation_prompt,omitempty"`
	Model            string     `json:"model,omitempty"`
	GeneratedAt      *time.Time `json:"generated_at,omitempty"`
}

// ImagePair is one round: a human image and its AI counterpart.
type ImagePair struct {
	ID            string       `json:"id"`
	HumanImageURL string       `json:"human_image_url"`
	AIImageURL    string       `json:"ai_image_url"`
	Metadata      PairMetadata `json:"metadata"`
	CreatedAt     time.Time    `json:"created_at"`
}

// Playable reports whether both images are present.
func (p ImagePair) Playable() bool {
	return p.HumanImageURL != "" && p.AIImageURL != ""
}

// DisplayPair is the player-facing projection of an ImagePair.
type DisplayPair struct {
	HumanImageURL string `json:"humanImageUrl"`
	AIImageURL    string `json:"aiImageUrl"`
}

// PendingHumanImage is an uploaded human image staged on a day, waiting for its AI half.
type PendingHumanImage struct {
	ID            string    `json:"id"`
	DayKey        string    `json:"date"`
	HumanImageURL string    `json:"human_image_url"`
	CreatedAt     time.Time `json:"created_at"`
}

// DaySummary is a row of the admin day listing.
type DaySummary struct {
	DayKey        string    `json:"date"`
	ScheduledDate time.Time `json:"scheduled_date"`
	Status        string    `json:"status"`
	PairCount     int       `json:"pair_count"`
}

// DayFilter narrows the admin day listing. Empty fields are ignored.
type DayFilter struct {
	From   string
	To     string
	Status string
	Limit  int
}

// DailyPuzzle is what a player receives for today.
type DailyPuzzle struct {
	Date  string        `json:"date"`
	Pairs []DisplayPair `json:"pairs"`
}
