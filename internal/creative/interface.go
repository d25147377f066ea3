package creative

import (
	"context"

	"github.com/vytor/realorai/internal/models"
)

// ClientInterface is the creative gateway contract consumed by the pipeline.
type ClientInterface interface {
	Caption(ctx context.Context, humanImageURL string) (*models.Caption, error)
	Remix(ctx context.Context, caption models.Caption, notes string) (*Remix, error)
	// GenerateImage returns "" with a nil error when the gateway is out of quota.
	GenerateImage(ctx context.Context, prompt string, dims models.Dimensions) (string, error)
}

// Ensure Client implements the interface
var _ ClientInterface = (*Client)(nil)
