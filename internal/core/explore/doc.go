// Package explore implements the tile-based spatial loading and
// proximity-discovery engine used by placequest clients.
//
// A Session ties four parts together:
//
//	PositionTracker    owns the player position and turns input into moves
//	TileLoader         fetches one grid tile at a time and merges the result
//	FeatureStore       the identity-keyed features plus the loaded tile set
//	ProximityDetector  marks features as discovered when the player is near
//
// Fetches run off the caller's goroutine and can finish in any order. Every
// reset (teleport to a new city) bumps the store generation so late results
// from the previous area are dropped instead of merged.
package explore
