// internal/geometry/parse.go
package geometry

import (
	"math"
	"strconv"
	"strings"
)

// ParseResult is the matrix composed from a CSS transform list together
// with bookkeeping about what could not be represented exactly.
type ParseResult struct {
	Matrix Matrix
	// Degraded lists functions whose 3D terms were discarded when
	// flattening to a 2D affine matrix (z translation, z scale,
	// perspective, out-of-plane rotation).
	Degraded []string
	// Unrecognized lists functions that were skipped entirely and
	// contributed the identity.
	Unrecognized []string
}

// ParseTransform parses a CSS transform property value into a single 2D
// affine matrix. "none" and the empty string yield the identity.
//
// 3D functions are degraded rather than rejected: the top-left 2x2 block
// and the x/y translation survive, everything else is dropped and the
// function name is recorded in Degraded. Unknown functions contribute the
// identity and are recorded in Unrecognized; one unsupported entry never
// aborts the rest of the chain.
func ParseTransform(value string) ParseResult {
	res := ParseResult{Matrix: Identity()}
	value = strings.TrimSpace(value)
	if value == "" || value == "none" {
		return res
	}

	for _, segment := range strings.Split(value, ")") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		name, rawArgs, found := strings.Cut(segment, "(")
		if !found {
			continue
		}
		name = strings.TrimSpace(name)
		args := strings.Fields(strings.ReplaceAll(rawArgs, ",", " "))

		step, verdict := functionMatrix(name, args)
		switch verdict {
		case verdictDegraded:
			res.Degraded = append(res.Degraded, name)
		case verdictUnrecognized:
			res.Unrecognized = append(res.Unrecognized, name)
		}
		// Right-multiply so the source order stays outer-to-inner, which
		// is how the browser applies the list to a point.
		res.Matrix = res.Matrix.Multiply(step)
	}
	return res
}

type parseVerdict int

const (
	verdictExact parseVerdict = iota
	verdictDegraded
	verdictUnrecognized
)

// functionMatrix evaluates a single transform function. Malformed argument
// lists for known functions fall back to the identity, matching browser
// behaviour of ignoring invalid components.
func functionMatrix(name string, args []string) (Matrix, parseVerdict) {
	switch name {
	case "matrix":
		if len(args) == 6 {
			return Matrix{
				A: parseLength(args[0]), B: parseLength(args[1]),
				C: parseLength(args[2]), D: parseLength(args[3]),
				E: parseLength(args[4]), F: parseLength(args[5]),
			}, verdictExact
		}
	case "matrix3d":
		// Column-major 4x4: keep the in-plane block and x/y translation.
		if len(args) == 16 {
			return Matrix{
				A: parseLength(args[0]), B: parseLength(args[1]),
				C: parseLength(args[4]), D: parseLength(args[5]),
				E: parseLength(args[12]), F: parseLength(args[13]),
			}, verdictDegraded
		}
	case "translate":
		if len(args) >= 1 {
			tx := parseLength(args[0])
			ty := 0.0
			if len(args) > 1 {
				ty = parseLength(args[1])
			}
			return Translation(tx, ty), verdictExact
		}
	case "translateX":
		if len(args) == 1 {
			return Translation(parseLength(args[0]), 0), verdictExact
		}
	case "translateY":
		if len(args) == 1 {
			return Translation(0, parseLength(args[0])), verdictExact
		}
	case "translate3d":
		if len(args) == 3 {
			return Translation(parseLength(args[0]), parseLength(args[1])), verdictDegraded
		}
	case "translateZ":
		return Identity(), verdictDegraded
	case "scale":
		if len(args) >= 1 {
			sx := parseLength(args[0])
			sy := sx
			if len(args) > 1 {
				sy = parseLength(args[1])
			}
			return Scaling(sx, sy), verdictExact
		}
	case "scaleX":
		if len(args) == 1 {
			return Scaling(parseLength(args[0]), 1), verdictExact
		}
	case "scaleY":
		if len(args) == 1 {
			return Scaling(1, parseLength(args[0])), verdictExact
		}
	case "scale3d":
		if len(args) == 3 {
			return Scaling(parseLength(args[0]), parseLength(args[1])), verdictDegraded
		}
	case "scaleZ":
		return Identity(), verdictDegraded
	case "rotate", "rotateZ":
		// Rotation about the z axis is exactly expressible in 2D.
		if len(args) == 1 {
			return Rotation(parseAngle(args[0])), verdictExact
		}
	case "rotateX":
		// The z=0 plane under a 3D x-rotation projects to a y scale.
		if len(args) == 1 {
			return Scaling(1, math.Cos(parseAngle(args[0]))), verdictDegraded
		}
	case "rotateY":
		if len(args) == 1 {
			return Scaling(math.Cos(parseAngle(args[0])), 1), verdictDegraded
		}
	case "perspective":
		return Identity(), verdictDegraded
	case "skew":
		if len(args) >= 1 {
			ax := parseAngle(args[0])
			ay := 0.0
			if len(args) > 1 {
				ay = parseAngle(args[1])
			}
			return Skewing(ax, ay), verdictExact
		}
	case "skewX":
		if len(args) == 1 {
			return Skewing(parseAngle(args[0]), 0), verdictExact
		}
	case "skewY":
		if len(args) == 1 {
			return Skewing(0, parseAngle(args[0])), verdictExact
		}
	default:
		return Identity(), verdictUnrecognized
	}
	return Identity(), verdictExact
}

// parseLength reads a numeric transform argument. Computed styles carry
// lengths in px, so the px suffix is stripped and anything unparsable
// becomes zero.
func parseLength(s string) float64 {
	s = strings.TrimSuffix(strings.TrimSpace(s), "px")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// parseAngle reads an angle argument and normalizes it to radians. Bare
// numbers are treated as degrees, which is what browsers serialize.
func parseAngle(s string) float64 {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasSuffix(s, "deg"):
		return parseLength(strings.TrimSuffix(s, "deg")) * math.Pi / 180
	case strings.HasSuffix(s, "grad"):
		return parseLength(strings.TrimSuffix(s, "grad")) * math.Pi / 200
	case strings.HasSuffix(s, "rad"):
		return parseLength(strings.TrimSuffix(s, "rad"))
	case strings.HasSuffix(s, "turn"):
		return parseLength(strings.TrimSuffix(s, "turn")) * 2 * math.Pi
	default:
		return parseLength(s) * math.Pi / 180
	}
}
