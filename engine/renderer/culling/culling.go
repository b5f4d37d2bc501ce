package culling

import (
	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/scene"
	"golang.org/x/exp/slices"
)

/**
 * @brief The objects that survived culling, keyed by id, plus the number of
 * objects rejected for each reason.
 */
type CullResult struct {
	Objects       map[int32]*scene.Object
	Accepted      int
	Culled        int
	NonRenderable int
	Invisible     int
	FrustumCulled int
}

// SortedIDs returns the accepted ids in ascending order.
func (r *CullResult) SortedIDs() []int32 {
	ids := make([]int32, 0, len(r.Objects))
	for id := range r.Objects {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

/**
 * @brief Filters objects against the frustum of viewProj. An object is
 * rejected when it has no mesh, when it is hidden, or when its world bounds
 * lie outside the frustum, checked in that order.
 */
func Cull(objects map[int32]*scene.Object, viewProj math.Mat4) *CullResult {
	frustum := math.NewFrustumFromMatrix(viewProj)
	result := &CullResult{
		Objects: make(map[int32]*scene.Object, len(objects)),
	}

	for id, obj := range objects {
		if obj.Mesh == nil {
			result.Culled++
			result.NonRenderable++
			continue
		}
		if !obj.Visible {
			result.Culled++
			result.Invisible++
			continue
		}
		if !frustum.IntersectsAABB(obj.WorldBounds()) {
			result.Culled++
			result.FrustumCulled++
			continue
		}
		result.Objects[id] = obj
		result.Accepted++
	}
	return result
}
