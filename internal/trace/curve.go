package trace

import (
	"math"
	"slices"
	"strconv"
	"strings"
)

const (
	// simplifyEpsilon is the distance in pixels a simplified outline may
	// stray from the pixel staircase.
	simplifyEpsilon = 1.0
	fitTolerance    = 1.5
)

type vec struct{ X, Y float64 }

func (a vec) add(b vec) vec { return vec{a.X + b.X, a.Y + b.Y} }
func (a vec) sub(b vec) vec { return vec{a.X - b.X, a.Y - b.Y} }
func (a vec) scale(k float64) vec { return vec{a.X * k, a.Y * k} }
func (a vec) dot(b vec) float64 { return a.X*b.X + a.Y*b.Y }
func (a vec) length() float64 { return math.Hypot(a.X, a.Y) }
func (a vec) dist(b vec) float64 { return a.sub(b).length() }
func (a vec) unit() vec {
	l := a.length()
	if l == 0 {
		return vec{}
	}
	return a.scale(1 / l)
}

func toVecs(pts []point) []vec {
	out := make([]vec, len(pts))
	for i, p := range pts {
		out[i] = vec{float64(p.x), float64(p.y)}
	}
	return out
}

// simplifyClosed runs Douglas-Peucker on a closed outline, anchored at the
// first vertex and the vertex farthest from it.
func simplifyClosed(pts []vec, eps float64) []vec {
	n := len(pts)
	if n <= 4 {
		return pts
	}
	far, best := 0, -1.0
	for i := 1; i < n; i++ {
		if d := pts[0].dist(pts[i]); d > best {
			far, best = i, d
		}
	}

	first := douglasPeucker(pts[:far+1], eps)
	tail := append(slices.Clone(pts[far:]), pts[0])
	second := douglasPeucker(tail, eps)

	out := append(first[:len(first)-1], second[:len(second)-1]...)
	if len(out) < 3 {
		return pts
	}
	return out
}

func douglasPeucker(pts []vec, eps float64) []vec {
	if len(pts) < 3 {
		return slices.Clone(pts)
	}
	a, b := pts[0], pts[len(pts)-1]
	idx, worst := 0, 0.0
	for i := 1; i < len(pts)-1; i++ {
		if d := segmentDistance(pts[i], a, b); d > worst {
			idx, worst = i, d
		}
	}
	if worst <= eps {
		return []vec{a, b}
	}
	left := douglasPeucker(pts[:idx+1], eps)
	right := douglasPeucker(pts[idx:], eps)
	return append(left[:len(left)-1], right...)
}

func segmentDistance(p, a, b vec) float64 {
	ab := b.sub(a)
	l2 := ab.dot(ab)
	if l2 == 0 {
		return p.dist(a)
	}
	t := math.Max(0, math.Min(1, p.sub(a).dot(ab)/l2))
	return p.dist(a.add(ab.scale(t)))
}

// turning is the change of heading at cur, in degrees.
func turning(prev, cur, next vec) float64 {
	d1, d2 := cur.sub(prev), next.sub(cur)
	l := d1.length() * d2.length()
	if l == 0 {
		return 0
	}
	c := math.Max(-1, math.Min(1, d1.dot(d2)/l))
	return math.Acos(c) * 180 / math.Pi
}

// pruneShort removes smooth vertices whose neighboring segments are both
// shorter than minLen.
func pruneShort(pts []vec, cornerDeg, minLen float64) []vec {
	pts = slices.Clone(pts)
	for changed := true; changed && len(pts) > 3; {
		changed = false
		for i := 0; i < len(pts) && len(pts) > 3; i++ {
			n := len(pts)
			prev, cur, next := pts[(i+n-1)%n], pts[i], pts[(i+1)%n]
			if turning(prev, cur, next) > cornerDeg {
				continue
			}
			if cur.dist(prev) < minLen && next.dist(cur) < minLen {
				pts = slices.Delete(pts, i, i+1)
				i--
				changed = true
			}
		}
	}
	return pts
}

type cubic struct {
	line   bool
	c1, c2 vec
	to     vec
}

// outline is one closed subpath.
type outline struct {
	start    vec
	segments []cubic
}

func polygonOutline(pts []vec) outline {
	o := outline{start: pts[0]}
	for _, p := range pts[1:] {
		o.segments = append(o.segments, cubic{line: true, to: p})
	}
	return o
}

// splineOutline splits the outline at corners and wherever accumulated
// turning passes the splice threshold, then fits one cubic per run,
// refitting at the worst vertex while the fit is poor.
func splineOutline(pts []vec, p Params) outline {
	n := len(pts)
	corner := make([]bool, n)
	start := -1
	for i := range pts {
		corner[i] = turning(pts[(i+n-1)%n], pts[i], pts[(i+1)%n]) > p.CornerThreshold
		if corner[i] && start < 0 {
			start = i
		}
	}
	if start < 0 {
		start = 0
	}
	v := append(slices.Clone(pts[start:]), pts[:start]...)
	c := append(slices.Clone(corner[start:]), corner[:start]...)

	f := fitter{v: v, corner: c, maxDepth: p.MaxIterations}
	bounds := []int{0}
	acc := 0.0
	for i := 1; i < n; i++ {
		if c[i] {
			bounds = append(bounds, i)
			acc = 0
			continue
		}
		acc += turning(f.at(i-1), f.at(i), f.at(i+1))
		if acc > p.SpliceThreshold {
			bounds = append(bounds, i)
			acc = 0
		}
	}
	bounds = append(bounds, n)

	o := outline{start: v[0]}
	for k := 1; k < len(bounds); k++ {
		o.segments = f.fit(o.segments, bounds[k-1], bounds[k], 0)
	}
	return o
}

type fitter struct {
	v        []vec
	corner   []bool
	maxDepth int
}

func (f *fitter) at(i int) vec {
	n := len(f.v)
	return f.v[((i%n)+n)%n]
}

func (f *fitter) isCorner(i int) bool {
	n := len(f.corner)
	return f.corner[((i%n)+n)%n]
}

func (f *fitter) fit(out []cubic, a, b, depth int) []cubic {
	A, B := f.at(a), f.at(b)
	if b == a+1 && f.isCorner(a) && f.isCorner(b) {
		return append(out, cubic{line: true, to: B})
	}

	var ta, tb vec
	if f.isCorner(a) {
		ta = f.at(a + 1).sub(A).unit()
	} else {
		ta = f.at(a + 1).sub(f.at(a - 1)).unit()
	}
	if f.isCorner(b) {
		tb = B.sub(f.at(b - 1)).unit()
	} else {
		tb = f.at(b + 1).sub(f.at(b - 1)).unit()
	}
	handle := A.dist(B) / 3
	seg := cubic{c1: A.add(ta.scale(handle)), c2: B.sub(tb.scale(handle)), to: B}

	if b-a >= 2 && depth < f.maxDepth {
		if worst, err := f.worstVertex(A, seg, a, b); err > fitTolerance {
			out = f.fit(out, a, worst, depth+1)
			return f.fit(out, worst, b, depth+1)
		}
	}
	return append(out, seg)
}

// worstVertex measures the cubic against the run's interior vertices using
// chord-length parameters.
func (f *fitter) worstVertex(A vec, seg cubic, a, b int) (int, float64) {
	total := 0.0
	for i := a; i < b; i++ {
		total += f.at(i).dist(f.at(i + 1))
	}
	if total == 0 {
		return a, 0
	}
	worst, worstErr := a+1, 0.0
	walked := 0.0
	for i := a + 1; i < b; i++ {
		walked += f.at(i - 1).dist(f.at(i))
		if e := bezier(A, seg.c1, seg.c2, seg.to, walked/total).dist(f.at(i)); e > worstErr {
			worst, worstErr = i, e
		}
	}
	return worst, worstErr
}

func bezier(p0, p1, p2, p3 vec, t float64) vec {
	u := 1 - t
	return p0.scale(u * u * u).
		add(p1.scale(3 * u * u * t)).
		add(p2.scale(3 * u * t * t)).
		add(p3.scale(t * t * t))
}

type formatter struct{ precision int }

func (f formatter) num(v float64) string {
	s := strconv.FormatFloat(v, 'f', f.precision, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	}
	if s == "-0" {
		return "0"
	}
	return s
}

func (f formatter) pair(b *strings.Builder, p vec) {
	b.WriteString(f.num(p.X))
	b.WriteByte(' ')
	b.WriteString(f.num(p.Y))
}

func (f formatter) write(b *strings.Builder, o outline) {
	b.WriteByte('M')
	f.pair(b, o.start)
	for _, s := range o.segments {
		if s.line {
			b.WriteByte('L')
			f.pair(b, s.to)
			continue
		}
		b.WriteByte('C')
		f.pair(b, s.c1)
		b.WriteByte(' ')
		f.pair(b, s.c2)
		b.WriteByte(' ')
		f.pair(b, s.to)
	}
	b.WriteByte('Z')
}
