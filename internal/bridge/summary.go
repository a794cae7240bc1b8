package bridge

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/velodyne.bridge/internal/velodyne"
)

// SpinSummary is a compact per-spin record of what was published, kept
// for diagnostics and offline inspection.
type SpinSummary struct {
	StampNs       int64
	FrameID       string
	Packets       int
	Points        int
	MeanRange     float64
	StdRange      float64
	MinRange      float64
	MaxRange      float64
	MeanIntensity float64
}

// SummarizeSpin computes range and intensity statistics over a converted
// cloud.
func SummarizeSpin(stampNs int64, frameID string, packets int, cloud *velodyne.PointCloud) SpinSummary {
	s := SpinSummary{
		StampNs: stampNs,
		FrameID: frameID,
		Packets: packets,
		Points:  cloud.Size(),
	}
	if s.Points == 0 {
		return s
	}

	ranges := make([]float64, 0, s.Points)
	intensities := make([]float64, 0, s.Points)
	s.MinRange = math.Inf(1)
	for _, p := range cloud.Points {
		r := math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
		ranges = append(ranges, r)
		intensities = append(intensities, p.Intensity)
		if r < s.MinRange {
			s.MinRange = r
		}
		if r > s.MaxRange {
			s.MaxRange = r
		}
	}
	s.MeanRange = stat.Mean(ranges, nil)
	s.MeanIntensity = stat.Mean(intensities, nil)
	if len(ranges) > 1 {
		s.StdRange = stat.StdDev(ranges, nil)
	}
	return s
}
