package trace

type point struct{ x, y int }

// Directions on the pixel-corner lattice, clockwise in screen space.
const (
	dirRight = iota
	dirDown
	dirLeft
	dirUp
)

type crack struct {
	from, to point
	dir      int
}

// loops walks the crack edges separating region id from everything else.
// Outer boundaries run clockwise and holes counter-clockwise, so both fill
// correctly under the even-odd rule.
func (s *segmentation) loops(id int32) [][]point {
	inside := func(x, y int) bool {
		return x >= 0 && y >= 0 && x < s.w && y < s.h && s.labels[y*s.w+x] == id
	}

	var cracks []crack
	for _, px := range s.regions[id].pixels {
		x, y := int(px)%s.w, int(px)/s.w
		if !inside(x, y-1) {
			cracks = append(cracks, crack{point{x, y}, point{x + 1, y}, dirRight})
		}
		if !inside(x+1, y) {
			cracks = append(cracks, crack{point{x + 1, y}, point{x + 1, y + 1}, dirDown})
		}
		if !inside(x, y+1) {
			cracks = append(cracks, crack{point{x + 1, y + 1}, point{x, y + 1}, dirLeft})
		}
		if !inside(x-1, y) {
			cracks = append(cracks, crack{point{x, y + 1}, point{x, y}, dirUp})
		}
	}

	vertex := func(p point) int { return p.y*(s.w+1) + p.x }
	outgoing := make(map[int][]int, len(cracks))
	for i, c := range cracks {
		k := vertex(c.from)
		outgoing[k] = append(outgoing[k], i)
	}

	used := make([]bool, len(cracks))
	var out [][]point
	for start := range cracks {
		if used[start] {
			continue
		}
		origin := cracks[start].from
		var loop []point
		for cur := start; cur >= 0; {
			used[cur] = true
			c := cracks[cur]
			loop = append(loop, c.from)
			if c.to == origin {
				break
			}
			cur = nextCrack(cracks, outgoing[vertex(c.to)], c.dir, used)
		}
		if corners := collapse(loop); len(corners) >= 3 {
			out = append(out, corners)
		}
	}
	return out
}

// nextCrack prefers turning right, then straight, then left. At a pinch
// vertex that keeps diagonal pixels in separate, touching loops.
func nextCrack(cracks []crack, candidates []int, dir int, used []bool) int {
	for _, want := range [3]int{(dir + 1) % 4, dir, (dir + 3) % 4} {
		for _, i := range candidates {
			if !used[i] && cracks[i].dir == want {
				return i
			}
		}
	}
	return -1
}

// collapse drops vertices lying on a straight run.
func collapse(loop []point) []point {
	n := len(loop)
	if n < 3 {
		return loop
	}
	out := make([]point, 0, n)
	for i := range loop {
		prev, cur, next := loop[(i+n-1)%n], loop[i], loop[(i+1)%n]
		if sign(cur.x-prev.x) == sign(next.x-cur.x) && sign(cur.y-prev.y) == sign(next.y-cur.y) {
			continue
		}
		out = append(out, cur)
	}
	return out
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
