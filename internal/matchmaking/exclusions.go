package matchmaking

import (
	"context"
	"log"
)

// ExclusionSource is one named contributor to a user's exclusion set. Keeping
// the sources as a flat list means a new source (say, blocked users) is one
// append at construction time, not another inline query union.
type ExclusionSource struct {
	Name  string
	Fetch func(ctx context.Context, userID int64) ([]int64, error)
}

// RelationGraphView builds the set of user ids that must never be offered as
// candidates. It is recomputed fresh on every call — relations change between
// requests and a stale exclusion set could re-surface someone.
type RelationGraphView struct {
	sources []ExclusionSource
}

func NewRelationGraphView(sources ...ExclusionSource) *RelationGraphView {
	return &RelationGraphView{sources: sources}
}

// ExcludedIDs unions all sources. A failing source contributes the empty set
// instead of failing the call: serving slightly-too-broad recommendations
// beats serving none when one store is down. Failures are logged and counted.
func (v *RelationGraphView) ExcludedIDs(ctx context.Context, userID int64) map[int64]struct{} {
	excluded := make(map[int64]struct{})

	for _, source := range v.sources {
		ids, err := source.Fetch(ctx, userID)
		if err != nil {
			log.Printf("matchmaking: exclusion source %q failed for user %d: %v", source.Name, userID, err)
			recordExclusionFailure(source.Name)
			continue
		}
		for _, id := range ids {
			excluded[id] = struct{}{}
		}
	}

	return excluded
}
