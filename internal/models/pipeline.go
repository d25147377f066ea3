package models

// Dimensions of a generated image.
type Dimensions struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Caption is what the captioning step says about a human image.
type Caption struct {
	Description   string `json:"description"`
	StyleAnalysis string `json:"style_analysis"`
}

// GenerationItem is one human image submitted to the creative pipeline.
// An empty Date means "next available day".
type GenerationItem struct {
	HumanImageURL string      `json:"humanImageUrl" yaml:"human_image_url"`
	Date          string      `json:"date,omitempty" yaml:"date,omitempty"`
	Dimensions    *Dimensions `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
	Notes         string      `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// Outcome of a pipeline item.
const (
	ItemScheduled = "scheduled"
	ItemSkipped   = "skipped"
	ItemFailed    = "failed"
)

// GenerationResult reports what happened to one GenerationItem.
type GenerationResult struct {
	HumanImageURL string     `json:"humanImageUrl"`
	Status        string     `json:"status"`
	Date          string     `json:"date,omitempty"`
	Pair          *ImagePair `json:"pair,omitempty"`
	Error         string     `json:"error,omitempty"`
	ErrorCode     string     `json:"errorCode,omitempty"`
}

// BatchReport summarises a pipeline batch.
type BatchReport struct {
	BatchID   string             `json:"batchId"`
	Results   []GenerationResult `json:"results"`
	Scheduled int                `json:"scheduled"`
	Skipped   int                `json:"skipped"`
	Failed    int                `json:"failed"`
}

// Add records r and updates the counters.
func (b *BatchReport) Add(r GenerationResult) {
	b.Results = append(b.Results, r)
	switch r.Status {
	case ItemScheduled:
		b.Scheduled++
	case ItemSkipped:
		b.Skipped++
	case ItemFailed:
		b.Failed++
	}
}

// PlacementResult is the per-item outcome of a bulk admin placement.
type PlacementResult struct {
	Index     int        `json:"index"`
	Date      string     `json:"date,omitempty"`
	Pair      *ImagePair `json:"pair,omitempty"`
	Error     string     `json:"error,omitempty"`
	ErrorCode string     `json:"errorCode,omitempty"`
}
