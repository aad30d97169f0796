package geo

// Cluster groups points that lie within radiusMeters of a cluster's first member.
// Clusters and the indices inside them follow input order, so the output is stable
// for a stable input. Each returned slice holds indices into points.
func Cluster(points []Coordinate, radiusMeters float64) [][]int {
	var clusters [][]int
	var seeds []Coordinate

	for i, p := range points {
		placed := false
		for c, seed := range seeds {
			if Within(seed, p, radiusMeters) {
				clusters[c] = append(clusters[c], i)
				placed = true
				break
			}
		}
		if !placed {
			seeds = append(seeds, p)
			clusters = append(clusters, []int{i})
		}
	}
	return clusters
}

// ClusterCenters returns the centroid and radius (distance to the farthest member)
// of every cluster produced by Cluster.
func ClusterCenters(points []Coordinate, clusters [][]int) []Circle {
	circles := make([]Circle, 0, len(clusters))
	for _, idx := range clusters {
		members := make([]Coordinate, 0, len(idx))
		for _, i := range idx {
			members = append(members, points[i])
		}
		center, err := Centroid(members)
		if err != nil {
			continue
		}
		circle := Circle{Center: center, Count: len(members)}
		if far, ok := FarthestFrom(center, members); ok {
			circle.RadiusMeters = far.Distance
		}
		circles = append(circles, circle)
	}
	return circles
}

type Circle struct {
	Center       Coordinate
	RadiusMeters float64
	Count        int
}
