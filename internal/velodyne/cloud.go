package velodyne

// Point is a single converted return: Cartesian position plus intensity.
// Coordinate system: X right, Y forward, Z up, sensor at the origin.
type Point struct {
	X, Y, Z   float64
	Intensity float64
}

// PointCloud is an unordered collection of converted points. A spin's worth
// of packets is accumulated into one cloud before publishing.
type PointCloud struct {
	Points []Point
}

// Reserve grows the point slice capacity so repeated Append calls across a
// spin's packets do not reallocate.
func (c *PointCloud) Reserve(n int) {
	if cap(c.Points)-len(c.Points) >= n {
		return
	}
	points := make([]Point, len(c.Points), len(c.Points)+n)
	copy(points, c.Points)
	c.Points = points
}

// Append adds a point to the cloud.
func (c *PointCloud) Append(p Point) {
	c.Points = append(c.Points, p)
}

// Size returns the number of points in the cloud.
func (c *PointCloud) Size() int {
	return len(c.Points)
}
