package typesense

import (
	"context"
	"fmt"
	"time"

	"github.com/typesense/typesense-go/v2/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/careatlas/queryengine/internal/infrastructure/observability"
	"github.com/careatlas/queryengine/pkg/config"
	"github.com/careatlas/queryengine/pkg/retry"
)

// CollectionFor returns the Typesense collection name backing a named
// vector; one collection per named vector keeps the payload schema and the
// vector field's num_dim declaration independent per representation.
func CollectionFor(vector string) string {
	return "facilities_" + vector
}

// Client wraps the Typesense SDK client with the connection retry the rest
// of this module's infrastructure clients apply.
type Client struct {
	client *typesense.Client
}

// NewClient creates a new Typesense client, retrying the initial health
// check with exponential backoff.
func NewClient(cfg *config.VectorIndexConfig) (*Client, error) {
	client := typesense.NewClient(
		typesense.WithServer(cfg.URL),
		typesense.WithAPIKey(cfg.APIKey),
		typesense.WithConnectionTimeout(5*time.Second),
	)

	retryConfig := retry.DefaultConfig()
	log := observability.GetLogger()
	err := retry.DoWithLog(
		context.Background(),
		retryConfig,
		"Typesense",
		func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_, err := client.Health(ctx, 2*time.Second)
			return err
		},
		func(attempt int, err error, nextDelay time.Duration) {
			log.Warn().Err(err).Int("attempt", attempt).Dur("next_delay", nextDelay).Msg("typesense connection attempt failed")
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Typesense after retries: %w", err)
	}

	return &Client{client: client}, nil
}

// Client returns the underlying Typesense client.
func (c *Client) Client() *typesense.Client {
	return c.client
}

// EnsureVectorCollection creates the named-vector collection if it does not
// already exist, with a float[] embedding field of the given
// dimensionality plus the payload fields the semantic searcher filters on.
func (c *Client) EnsureVectorCollection(ctx context.Context, collection string, dim int) error {
	collections, err := c.client.Collections().Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("failed to retrieve collections: %w", err)
	}
	for _, col := range collections {
		if col.Name == collection {
			return nil
		}
	}

	schema := &api.CollectionSchema{
		Name: collection,
		Fields: []api.Field{
			{Name: "id", Type: "string"},
			{Name: "embedding", Type: "float[]", NumDim: pointer.Int(dim)},
			{Name: "address_city", Type: "string", Facet: pointer.True(), Optional: pointer.True()},
			{Name: "address_stateOrRegion", Type: "string", Facet: pointer.True(), Optional: pointer.True()},
			{Name: "facilityTypeId", Type: "string", Facet: pointer.True(), Optional: pointer.True()},
			{Name: "organization_type", Type: "string", Facet: pointer.True(), Optional: pointer.True()},
			{Name: "specialties", Type: "string[]", Facet: pointer.True(), Optional: pointer.True()},
		},
	}

	if _, err := c.client.Collections().Create(ctx, schema); err != nil {
		return fmt.Errorf("failed to create typesense collection %s: %w", collection, err)
	}
	return nil
}
