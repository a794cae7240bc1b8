package velodyne

import "math"

// Converter projects raw packets into Cartesian points using a calibration
// model and distance bounds. Bounds apply to the corrected distance, in
// meters.
type Converter struct {
	calibration *Calibration
	minDistance float64
	maxDistance float64
}

// NewConverter creates a converter for the given calibration and bounds.
func NewConverter(cal *Calibration, minDistance, maxDistance float64) *Converter {
	return &Converter{
		calibration: cal,
		minDistance: minDistance,
		maxDistance: maxDistance,
	}
}

// AppendToCloud converts every valid laser sample in the packet and appends
// the resulting points to the cloud. Zero-distance samples (no return),
// samples outside the distance bounds, chunks with an unknown bank header,
// and lasers without a calibration entry are skipped.
func (c *Converter) AppendToCloud(p *DataPacket, cloud *PointCloud) {
	cloud.Reserve(ChunksPerPacket * LasersPerChunk)

	for i := range p.Chunks {
		chunk := &p.Chunks[i]

		var bank int
		switch chunk.HeaderInfo {
		case UpperBankHeader:
			bank = 0
		case LowerBankHeader:
			bank = LasersPerChunk
		default:
			continue
		}

		// Chunk azimuth trig is shared by all 32 lasers in the chunk.
		rotation := float64(chunk.RotationalInfo) * RotationResolution * math.Pi / 180.0
		cosRotation := math.Cos(rotation)
		sinRotation := math.Sin(rotation)

		for j := 0; j < LasersPerChunk; j++ {
			raw := chunk.Lasers[j]
			if raw.Distance == 0 {
				continue
			}
			laser := bank + j
			if laser >= len(c.calibration.Lasers) {
				continue
			}
			corr := &c.calibration.Lasers[laser]

			distance := float64(raw.Distance)*DistanceResolution + corr.DistCorrection
			if distance < c.minDistance || distance > c.maxDistance {
				continue
			}

			// cos/sin of (azimuth - rotCorrection) via the angle
			// difference identities, using the precomputed laser trig.
			cosAzimuth := cosRotation*corr.cosRot + sinRotation*corr.sinRot
			sinAzimuth := sinRotation*corr.cosRot - cosRotation*corr.sinRot

			xyDistance := distance*corr.cosVert - corr.VertOffsetCorrection*corr.sinVert

			cloud.Append(Point{
				X:         xyDistance*sinAzimuth - corr.HorizOffsetCorrection*cosAzimuth,
				Y:         xyDistance*cosAzimuth + corr.HorizOffsetCorrection*sinAzimuth,
				Z:         distance*corr.sinVert + corr.VertOffsetCorrection*corr.cosVert,
				Intensity: float64(raw.Intensity),
			})
		}
	}
}
