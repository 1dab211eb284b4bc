package engine

import (
	"engagement-controlplane/services/catalog"
)

// LevelFor derives the level for a lifetime point total under the
// current catalog's threshold table.
func (s *Service) LevelFor(lifetimePoints int64) int {
	return s.catalog.Snapshot().LevelFor(lifetimePoints)
}

// PointsToNextLevel reports how many lifetime points remain until the
// next level, or 0 at the top level.
func PointsToNextLevel(c *catalog.Catalog, lifetimePoints int64) int64 {
	level := c.LevelFor(lifetimePoints)
	if level >= c.MaxLevel() {
		return 0
	}
	return c.LevelThresholds[level] - lifetimePoints
}
