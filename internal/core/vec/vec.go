package vec

import (
	"fmt"
	"strconv"
	"strings"
)

// Vec3 is a 3-component world-space vector.
type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Add(o Vec3) Vec3      { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3      { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }
func (v Vec3) Dot(o Vec3) float64   { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }
func (v Vec3) LengthSqr() float64   { return v.Dot(v) }
func (v Vec3) IsZero() bool         { return v.X == 0 && v.Y == 0 && v.Z == 0 }
func (v Vec3) String() string       { return Format(v) }
func Splat(s float64) Vec3          { return Vec3{s, s, s} }
func DistSqr(a, b Vec3) float64     { return a.Sub(b).LengthSqr() }

// Format renders v the way level data writes vectors: "x y z".
func Format(v Vec3) string {
	return strconv.FormatFloat(v.X, 'g', -1, 64) + " " +
		strconv.FormatFloat(v.Y, 'g', -1, 64) + " " +
		strconv.FormatFloat(v.Z, 'g', -1, 64)
}

// Parse reads a "x y z" vector. Missing trailing components are zero.
func Parse(s string) (Vec3, error) {
	var out [3]float64
	parts := strings.Fields(s)
	if len(parts) > 3 {
		return Vec3{}, fmt.Errorf("vector %q: too many components", s)
	}
	for i, p := range parts {
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return Vec3{}, fmt.Errorf("vector %q: %w", s, err)
		}
		out[i] = f
	}
	return Vec3{out[0], out[1], out[2]}, nil
}
