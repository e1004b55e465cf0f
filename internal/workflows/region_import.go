package workflows

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/placequest/internal/core/domain"
	"github.com/samirrijal/placequest/internal/core/explore"
)

// ImportInput is the input of ImportRegionWorkflow.
type ImportInput struct {
	Name string
	Lat  float64
	Lng  float64
	// Rings is the number of tile rings around the centre tile; 1 imports
	// the same 3×3 block the explorer preloads.
	Rings    int
	TileSize float64
	Limit    int
}

// ImportResult summarises a finished import.
type ImportResult struct {
	Tiles  int
	Places int
	Failed []string
}

// WorkflowID is the workflow id used for a named region, so that starting the
// same import twice attaches to the running one.
func WorkflowID(name string) string {
	return "import-region-" + name
}

// ImportTiles returns the fetch boxes of the (2·rings+1)² block of tiles
// around (lat, lng), using the explorer's grid.
func ImportTiles(lat, lng float64, rings int, tileSize float64) ([]domain.Bounds, error) {
	pos := domain.Position{Lat: lat, Lng: lng}
	if !pos.Valid() {
		return nil, fmt.Errorf("%w: coordinates are not finite", domain.ErrInvalidInput)
	}
	if rings < 0 || tileSize <= 0 {
		return nil, fmt.Errorf("%w: rings must be >= 0 and tile size positive", domain.ErrInvalidInput)
	}
	g := explore.Grid{Size: tileSize}
	center := g.KeyFor(pos)

	boxes := make([]domain.Bounds, 0, (2*rings+1)*(2*rings+1))
	for dx := -rings; dx <= rings; dx++ {
		for dy := -rings; dy <= rings; dy++ {
			boxes = append(boxes, g.Bounds(domain.TileKey{X: center.X + dx, Y: center.Y + dy}))
		}
	}
	return boxes, nil
}

// ImportRegionWorkflow pulls every tile around a city from the upstream
// provider into the place store and drops the stale cached tiles. A tile that
// still fails after its retries is reported in the result and skipped.
func ImportRegionWorkflow(ctx workflow.Context, in ImportInput) (ImportResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting region import", "region", in.Name, "rings", in.Rings)

	if in.TileSize == 0 {
		in.TileSize = explore.DefaultConfig().TileSize
	}
	tiles, err := ImportTiles(in.Lat, in.Lng, in.Rings, in.TileSize)
	if err != nil {
		return ImportResult{}, temporal.NewNonRetryableApplicationError(err.Error(), "InvalidInput", err)
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	})

	var a *ImportActivities
	result := ImportResult{Tiles: len(tiles)}
	for _, b := range tiles {
		var places []domain.Place
		if err := workflow.ExecuteActivity(ctx, a.FetchUpstreamTile, b, in.Limit).Get(ctx, &places); err != nil {
			logger.Warn("tile fetch failed", "bbox", b.String(), "error", err)
			result.Failed = append(result.Failed, b.String())
			continue
		}

		var stored int
		if err := workflow.ExecuteActivity(ctx, a.UpsertPlaces, places).Get(ctx, &stored); err != nil {
			// The store is shared by every tile; give up rather than skip.
			return result, err
		}
		result.Places += stored

		if err := workflow.ExecuteActivity(ctx, a.InvalidateTileCache, b).Get(ctx, nil); err != nil {
			logger.Warn("tile cache invalidation failed", "bbox", b.String(), "error", err)
		}
	}

	logger.Info("Region import finished", "region", in.Name, "places", result.Places, "failed", len(result.Failed))
	return result, nil
}
