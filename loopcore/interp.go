package loopcore

// Interpolation kernels for a fractional phase f in [0,1) between
// neighboring samples w,x,y,z (w and z being the outer neighbors of the
// x..y span). Table-driven, type-switched, same style as the
// table-driven DSP math elsewhere in this package; these are pure
// functions of floats, no state.

func interpLinear(f float64, x, y float32) float32 {
	return x + float32(f)*(y-x)
}

func interpCubic(f float64, w, x, y, z float32) float32 {
	ff := float32(f)
	a := 0.5*(z-w) + 1.5*(x-y)
	b := w - 2.5*x + 2*y - 0.5*z
	c := 0.5 * (y - w)
	return ((a*ff+b)*ff+c)*ff + x
}

func interpSpline(f float64, w, x, y, z float32) float32 {
	ff := float32(f)
	a := -0.5*w + 1.5*x - 1.5*y + 0.5*z
	b := w - 2.5*x + 2*y - 0.5*z
	c := -0.5*w + 0.5*y
	return a*ff*ff*ff + b*ff*ff + c*ff + x
}

// interpolate dispatches to the selected kernel. Linear only needs the
// (x,y) pair; cubic and spline need all four neighbors.
func interpolate(kind Interp, f float64, w, x, y, z float32) float32 {
	switch kind {
	case InterpCubic:
		return interpCubic(f, w, x, y, z)
	case InterpSpline:
		return interpSpline(f, w, x, y, z)
	default:
		return interpLinear(f, x, y)
	}
}

// wrapIndex maps a neighbor offset from i to a valid buffer index honoring
// the forward or reverse loop coordinate system.
//
// Forward loops wrap modulo (maxLoop+1) within [0, maxLoop].
// Reverse loops reflect into [frames-1-maxLoop, frames-1].
func wrapIndex(i int64, dir direction, maxLoop int64, frames int64) int64 {
	span := maxLoop + 1
	if span <= 0 {
		span = 1
	}
	if dir >= 0 {
		m := i % span
		if m < 0 {
			m += span
		}
		return m
	}
	lo := frames - 1 - maxLoop
	off := i - lo
	off %= span
	if off < 0 {
		off += span
	}
	return lo + off
}

// neighborSet is the four sample indices (i-d, i, i+d, i+2d) needed by
// cubic/spline interpolation, each wrapped into the valid loop range.
type neighborSet struct {
	w, x, y, z int64
}

func neighbors(playIndex int64, dir direction, maxLoop int64, frames int64) neighborSet {
	d := int64(dir)
	if d == 0 {
		d = 1
	}
	return neighborSet{
		w: wrapIndex(playIndex-d, dir, maxLoop, frames),
		x: wrapIndex(playIndex, dir, maxLoop, frames),
		y: wrapIndex(playIndex+d, dir, maxLoop, frames),
		z: wrapIndex(playIndex+2*d, dir, maxLoop, frames),
	}
}
