package velodyne

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// LaserCorrection holds the per-laser calibration parameters. Angles are in
// degrees in the calibration file; offsets and the distance correction are in
// meters. Trigonometric terms are precomputed when the calibration is loaded
// so conversion never calls into math per sample for the fixed angles.
type LaserCorrection struct {
	RotCorrection         float64 // horizontal angle correction (degrees)
	VertCorrection        float64 // vertical angle (degrees)
	DistCorrection        float64 // distance correction (meters)
	VertOffsetCorrection  float64 // vertical offset of the laser origin (meters)
	HorizOffsetCorrection float64 // horizontal offset of the laser origin (meters)

	cosRot, sinRot   float64
	cosVert, sinVert float64
}

func (c *LaserCorrection) precompute() {
	rotRad := c.RotCorrection * math.Pi / 180.0
	vertRad := c.VertCorrection * math.Pi / 180.0
	c.cosRot = math.Cos(rotRad)
	c.sinRot = math.Sin(rotRad)
	c.cosVert = math.Cos(vertRad)
	c.sinVert = math.Sin(vertRad)
}

// Calibration is the in-memory calibration model for one device.
type Calibration struct {
	Lasers []LaserCorrection
}

// NewCalibration returns a calibration with zero corrections for laserCount
// lasers. Conversion against it projects samples without any correction;
// with laserCount 0 every sample is skipped. This is the state the node runs
// in after a swallowed calibration parse failure.
func NewCalibration(laserCount int) *Calibration {
	cal := &Calibration{Lasers: make([]LaserCorrection, laserCount)}
	for i := range cal.Lasers {
		cal.Lasers[i].precompute()
	}
	return cal
}

// LoadCalibration opens and parses a calibration file.
func LoadCalibration(path string) (*Calibration, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open calibration file: %w", err)
	}
	defer f.Close()

	cal, err := ParseCalibration(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse calibration file %s: %w", path, err)
	}
	return cal, nil
}

// ParseCalibration parses the keyed text calibration format:
//
//	lasers <count>
//	laser <id> rot <deg> vert <deg> dist <m> vertOffset <m> horizOffset <m>
//
// Blank lines and #-comments are ignored. Every laser id in [0,count) must
// appear exactly once.
func ParseCalibration(r io.Reader) (*Calibration, error) {
	scanner := bufio.NewScanner(r)

	var cal *Calibration
	seen := []bool(nil)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)

		switch fields[0] {
		case "lasers":
			if cal != nil {
				return nil, fmt.Errorf("line %d: duplicate lasers header", line)
			}
			if len(fields) != 2 {
				return nil, fmt.Errorf("line %d: expected 'lasers <count>'", line)
			}
			count, err := strconv.Atoi(fields[1])
			if err != nil || count <= 0 {
				return nil, fmt.Errorf("line %d: invalid laser count %q", line, fields[1])
			}
			cal = &Calibration{Lasers: make([]LaserCorrection, count)}
			seen = make([]bool, count)

		case "laser":
			if cal == nil {
				return nil, fmt.Errorf("line %d: laser entry before lasers header", line)
			}
			if err := parseLaserLine(fields, cal, seen); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}

		default:
			return nil, fmt.Errorf("line %d: unknown directive %q", line, fields[0])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read calibration: %w", err)
	}
	if cal == nil {
		return nil, fmt.Errorf("missing lasers header")
	}
	for i, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("missing calibration for laser %d", i)
		}
	}
	return cal, nil
}

// parseLaserLine parses a single laser entry. The keyed fields may appear in
// any order; all five corrections are required.
func parseLaserLine(fields []string, cal *Calibration, seen []bool) error {
	if len(fields) < 2 {
		return fmt.Errorf("expected 'laser <id> ...'")
	}
	id, err := strconv.Atoi(fields[1])
	if err != nil {
		return fmt.Errorf("invalid laser id %q", fields[1])
	}
	if id < 0 || id >= len(cal.Lasers) {
		return fmt.Errorf("laser id %d out of range (0-%d)", id, len(cal.Lasers)-1)
	}
	if seen[id] {
		return fmt.Errorf("duplicate entry for laser %d", id)
	}

	kv := fields[2:]
	if len(kv)%2 != 0 {
		return fmt.Errorf("laser %d: dangling field %q", id, kv[len(kv)-1])
	}

	corr := &cal.Lasers[id]
	have := map[string]bool{}
	for i := 0; i < len(kv); i += 2 {
		key := kv[i]
		val, err := strconv.ParseFloat(kv[i+1], 64)
		if err != nil {
			return fmt.Errorf("laser %d: invalid value for %s: %q", id, key, kv[i+1])
		}
		switch key {
		case "rot":
			corr.RotCorrection = val
		case "vert":
			corr.VertCorrection = val
		case "dist":
			corr.DistCorrection = val
		case "vertOffset":
			corr.VertOffsetCorrection = val
		case "horizOffset":
			corr.HorizOffsetCorrection = val
		default:
			return fmt.Errorf("laser %d: unknown field %q", id, key)
		}
		have[key] = true
	}
	for _, key := range []string{"rot", "vert", "dist", "vertOffset", "horizOffset"} {
		if !have[key] {
			return fmt.Errorf("laser %d: missing field %q", id, key)
		}
	}

	corr.precompute()
	seen[id] = true
	return nil
}
