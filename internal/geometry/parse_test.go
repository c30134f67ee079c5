// internal/geometry/parse_test.go
package geometry_test

import (
	"math"
	"testing"

	fuzz "github.com/AdaLogics/go-fuzz-headers"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stickerverse/figmaconvert/internal/geometry"
)

func TestParseTransform_Empty(t *testing.T) {
	for _, value := range []string{"", "none", "  none  ", "   "} {
		res := geometry.ParseTransform(value)
		assert.True(t, res.Matrix.IsIdentity(), "value %q should parse to identity", value)
		assert.Empty(t, res.Degraded)
		assert.Empty(t, res.Unrecognized)
	}
}

func TestParseTransform_SingleFunctions(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  geometry.Matrix
	}{
		{"matrix literal", "matrix(1, 2, 3, 4, 5, 6)", geometry.Matrix{A: 1, B: 2, C: 3, D: 4, E: 5, F: 6}},
		{"translate both axes", "translate(10px, 20px)", geometry.Translation(10, 20)},
		{"translate defaults y to zero", "translate(10px)", geometry.Translation(10, 0)},
		{"translateX", "translateX(-4.5px)", geometry.Translation(-4.5, 0)},
		{"translateY", "translateY(12px)", geometry.Translation(0, 12)},
		{"scale uniform", "scale(2)", geometry.Scaling(2, 2)},
		{"scale per axis", "scale(2, 0.5)", geometry.Scaling(2, 0.5)},
		{"scaleX", "scaleX(3)", geometry.Scaling(3, 1)},
		{"scaleY", "scaleY(0.25)", geometry.Scaling(1, 0.25)},
		{"rotate degrees", "rotate(90deg)", geometry.Rotation(math.Pi / 2)},
		{"rotate radians", "rotate(1.5708rad)", geometry.Rotation(1.5708)},
		{"rotate gradians", "rotate(100grad)", geometry.Rotation(math.Pi / 2)},
		{"rotate turns", "rotate(0.25turn)", geometry.Rotation(math.Pi / 2)},
		{"rotate bare number is degrees", "rotate(180)", geometry.Rotation(math.Pi)},
		{"skewX", "skewX(45deg)", geometry.Skewing(math.Pi/4, 0)},
		{"skewY", "skewY(30deg)", geometry.Skewing(0, math.Pi/6)},
		{"skew both", "skew(45deg, 30deg)", geometry.Skewing(math.Pi/4, math.Pi/6)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := geometry.ParseTransform(tc.value)
			assertMatrixInDelta(t, tc.want, res.Matrix, 1e-9, tc.value)
			assert.Empty(t, res.Degraded, "nothing should be degraded for %q", tc.value)
			assert.Empty(t, res.Unrecognized, "nothing should be unrecognized for %q", tc.value)
		})
	}
}

func TestParseTransform_ChainOrder(t *testing.T) {
	// CSS applies the right-most function first. translate(100px) scale(2)
	// therefore scales (10, 10) to (20, 20) and then shifts it to (120, 20);
	// the reversed list shifts first, (110, 10), then scales to (220, 20).
	res := geometry.ParseTransform("translate(100px) scale(2)")
	x, y := res.Matrix.Apply(10, 10)
	assert.InDelta(t, 120.0, x, 1e-9)
	assert.InDelta(t, 20.0, y, 1e-9)

	res = geometry.ParseTransform("scale(2) translate(100px)")
	x, y = res.Matrix.Apply(10, 10)
	assert.InDelta(t, 220.0, x, 1e-9)
	assert.InDelta(t, 20.0, y, 1e-9)
}

func TestParseTransform_ChainMatchesManualProduct(t *testing.T) {
	res := geometry.ParseTransform("translate(50px, 50px) rotate(90deg) scale(2, 0.5)")
	want := geometry.Translation(50, 50).
		Multiply(geometry.Rotation(math.Pi / 2)).
		Multiply(geometry.Scaling(2, 0.5))
	assertMatrixInDelta(t, want, res.Matrix, 1e-9, "composed chain")
}

func TestParseTransform_3DDegradation(t *testing.T) {
	t.Run("matrix3d keeps the in-plane block and xy translation", func(t *testing.T) {
		// Column-major 4x4 for translate(7, 11) scale(2, 3) with a z scale
		// of 5 that must be dropped.
		res := geometry.ParseTransform("matrix3d(2, 0, 0, 0, 0, 3, 0, 0, 0, 0, 5, 0, 7, 11, 13, 1)")
		assertMatrixInDelta(t, geometry.Matrix{A: 2, B: 0, C: 0, D: 3, E: 7, F: 11}, res.Matrix, 1e-12, "flattened matrix3d")
		assert.Equal(t, []string{"matrix3d"}, res.Degraded)
	})

	t.Run("translate3d drops z", func(t *testing.T) {
		res := geometry.ParseTransform("translate3d(10px, 20px, 30px)")
		assertMatrixInDelta(t, geometry.Translation(10, 20), res.Matrix, 1e-12, "translate3d")
		assert.Equal(t, []string{"translate3d"}, res.Degraded)
	})

	t.Run("translateZ contributes nothing", func(t *testing.T) {
		res := geometry.ParseTransform("translateZ(99px)")
		assert.True(t, res.Matrix.IsIdentity())
		assert.Equal(t, []string{"translateZ"}, res.Degraded)
	})

	t.Run("scale3d drops z", func(t *testing.T) {
		res := geometry.ParseTransform("scale3d(2, 3, 4)")
		assertMatrixInDelta(t, geometry.Scaling(2, 3), res.Matrix, 1e-12, "scale3d")
		assert.Equal(t, []string{"scale3d"}, res.Degraded)
	})

	t.Run("scaleZ contributes nothing", func(t *testing.T) {
		res := geometry.ParseTransform("scaleZ(4)")
		assert.True(t, res.Matrix.IsIdentity())
		assert.Equal(t, []string{"scaleZ"}, res.Degraded)
	})

	t.Run("rotateZ is exact, not degraded", func(t *testing.T) {
		res := geometry.ParseTransform("rotateZ(45deg)")
		assertMatrixInDelta(t, geometry.Rotation(math.Pi/4), res.Matrix, 1e-12, "rotateZ")
		assert.Empty(t, res.Degraded)
	})

	t.Run("rotateX flattens to a y scale", func(t *testing.T) {
		// The z=0 plane under rotateX(60deg) compresses y by cos(60deg) = 0.5.
		res := geometry.ParseTransform("rotateX(60deg)")
		assertMatrixInDelta(t, geometry.Scaling(1, 0.5), res.Matrix, 1e-9, "rotateX")
		assert.Equal(t, []string{"rotateX"}, res.Degraded)
	})

	t.Run("perspective is dropped", func(t *testing.T) {
		res := geometry.ParseTransform("perspective(500px)")
		assert.True(t, res.Matrix.IsIdentity())
		assert.Equal(t, []string{"perspective"}, res.Degraded)
	})

	t.Run("degradations accumulate in source order", func(t *testing.T) {
		res := geometry.ParseTransform("translate3d(1px, 2px, 3px) scale(2) perspective(800px)")
		assert.Equal(t, []string{"translate3d", "perspective"}, res.Degraded)
		assert.Empty(t, res.Unrecognized)
	})
}

func TestParseTransform_Unrecognized(t *testing.T) {
	// The unknown function is skipped; the chain around it still applies.
	res := geometry.ParseTransform("translate(10px) frobnicate(3) scale(2)")
	assert.Equal(t, []string{"frobnicate"}, res.Unrecognized)

	x, y := res.Matrix.Apply(1, 1)
	// scale(2) first: (2, 2), then translate: (12, 2).
	assert.InDelta(t, 12.0, x, 1e-12)
	assert.InDelta(t, 2.0, y, 1e-12)
}

func TestParseTransform_MalformedArguments(t *testing.T) {
	// A known function with a broken argument list degrades to identity
	// without poisoning the rest of the chain.
	res := geometry.ParseTransform("matrix(1, 2) translate(5px)")
	assertMatrixInDelta(t, geometry.Translation(5, 0), res.Matrix, 1e-12, "broken matrix skipped")

	res = geometry.ParseTransform("rotate(bogus)")
	// Unparsable angle text reads as zero degrees.
	assert.True(t, res.Matrix.IsIdentity())
}

func FuzzParseTransform(f *testing.F) {
	f.Add([]byte("translate(10px, 20px) rotate(45deg)"))
	f.Add([]byte("matrix(1,0,0,1,0,0)"))
	f.Add([]byte("matrix3d(1,0,0,0,0,1,0,0,0,0,1,0,0,0,0,1)"))
	f.Add([]byte("scale(((("))
	f.Add([]byte(")))) none"))

	f.Fuzz(func(t *testing.T, data []byte) {
		consumer := fuzz.NewConsumer(data)
		value, err := consumer.GetString()
		if err != nil {
			return
		}

		// Must never panic, and as a pure function it must be
		// deterministic for the same input. NaN coefficients are legal
		// output for garbage like scale(NaN), so compare them as equal.
		first := geometry.ParseTransform(value)
		second := geometry.ParseTransform(value)
		if diff := cmp.Diff(first, second, cmpopts.EquateNaNs()); diff != "" {
			t.Fatalf("ParseTransform is not deterministic for %q:\n%s", value, diff)
		}

		// Every degraded or unrecognized entry must name a function that
		// appears in the input.
		for _, name := range append(first.Degraded, first.Unrecognized...) {
			require.Contains(t, value, name)
		}
	})
}
