package trace

import (
	"sort"
)

const alphaCutoff = 128

type region struct {
	area   int
	sum    [3]int64
	pixels []int32
}

func (r *region) mean() [3]uint8 {
	if r.area == 0 {
		return [3]uint8{}
	}
	n := int64(r.area)
	return [3]uint8{
		uint8((r.sum[0] + n/2) / n),
		uint8((r.sum[1] + n/2) / n),
		uint8((r.sum[2] + n/2) / n),
	}
}

// segmentation labels every opaque pixel with a region; transparent pixels
// carry -1.
type segmentation struct {
	w, h    int
	pix     []uint8
	labels  []int32
	parent  []int32
	regions []region
}

func segment(pix []uint8, w, h int, p Params) *segmentation {
	s := &segmentation{
		w:      w,
		h:      h,
		pix:    pix,
		labels: make([]int32, w*h),
	}
	s.label(p.quantShift())
	if p.LayerDifference > 0 {
		s.mergeSimilar(p.LayerDifference)
	}
	if p.FilterSpeckle > 1 {
		s.filterSpeckles(p.FilterSpeckle * p.FilterSpeckle)
	}
	s.flatten()
	return s
}

func (s *segmentation) opaque(i int) bool {
	return s.pix[i*4+3] >= alphaCutoff
}

func (s *segmentation) key(i int, shift uint) uint32 {
	o := i * 4
	return uint32(s.pix[o]>>shift)<<16 | uint32(s.pix[o+1]>>shift)<<8 | uint32(s.pix[o+2]>>shift)
}

// label flood-fills 4-connected pixels sharing a quantized color.
func (s *segmentation) label(shift uint) {
	for i := range s.labels {
		s.labels[i] = -1
	}

	stack := make([]int32, 0, 256)
	for start := range s.labels {
		if s.labels[start] != -1 || !s.opaque(start) {
			continue
		}
		id := int32(len(s.regions))
		want := s.key(start, shift)
		r := region{}

		s.labels[start] = id
		stack = append(stack[:0], int32(start))
		for len(stack) > 0 {
			i := int(stack[len(stack)-1])
			stack = stack[:len(stack)-1]

			o := i * 4
			r.area++
			r.sum[0] += int64(s.pix[o])
			r.sum[1] += int64(s.pix[o+1])
			r.sum[2] += int64(s.pix[o+2])
			r.pixels = append(r.pixels, int32(i))

			x, y := i%s.w, i/s.w
			for _, n := range s.neighbors(x, y) {
				if n < 0 || s.labels[n] != -1 || !s.opaque(n) || s.key(n, shift) != want {
					continue
				}
				s.labels[n] = id
				stack = append(stack, int32(n))
			}
		}
		s.regions = append(s.regions, r)
		s.parent = append(s.parent, id)
	}
}

// neighbors returns the 4-neighborhood of (x, y); out-of-bounds slots are -1.
func (s *segmentation) neighbors(x, y int) [4]int {
	n := [4]int{-1, -1, -1, -1}
	i := y*s.w + x
	if y > 0 {
		n[0] = i - s.w
	}
	if x < s.w-1 {
		n[1] = i + 1
	}
	if y < s.h-1 {
		n[2] = i + s.w
	}
	if x > 0 {
		n[3] = i - 1
	}
	return n
}

func (s *segmentation) find(id int32) int32 {
	for s.parent[id] != id {
		s.parent[id] = s.parent[s.parent[id]]
		id = s.parent[id]
	}
	return id
}

// union folds src into dst.
func (s *segmentation) union(src, dst int32) {
	from, to := &s.regions[src], &s.regions[dst]
	s.parent[src] = dst
	to.area += from.area
	for c := range to.sum {
		to.sum[c] += from.sum[c]
	}
	to.pixels = append(to.pixels, from.pixels...)
	from.pixels = nil
	from.area = 0
}

// mergeSimilar joins adjacent regions whose mean colors are within diff on
// every channel, smaller region into larger.
func (s *segmentation) mergeSimilar(diff int) {
	for y := 0; y < s.h; y++ {
		for x := 0; x < s.w; x++ {
			i := y*s.w + x
			if s.labels[i] < 0 {
				continue
			}
			n := s.neighbors(x, y)
			for _, j := range [2]int{n[1], n[2]} {
				if j < 0 || s.labels[j] < 0 {
					continue
				}
				a, b := s.find(s.labels[i]), s.find(s.labels[j])
				if a == b || !similar(s.regions[a].mean(), s.regions[b].mean(), diff) {
					continue
				}
				if s.regions[a].area < s.regions[b].area || (s.regions[a].area == s.regions[b].area && a > b) {
					s.union(a, b)
				} else {
					s.union(b, a)
				}
			}
		}
	}
}

func similar(a, b [3]uint8, diff int) bool {
	for c := range a {
		d := int(a[c]) - int(b[c])
		if d < 0 {
			d = -d
		}
		if d >= diff {
			return false
		}
	}
	return true
}

// filterSpeckles folds every region under minArea into the neighbor it
// shares the longest border with. Isolated speckles are dropped, except the
// largest region which always survives.
func (s *segmentation) filterSpeckles(minArea int) {
	roots := s.roots()
	if len(roots) == 0 {
		return
	}
	largest := roots[0]
	sort.SliceStable(roots, func(i, j int) bool {
		return s.regions[roots[i]].area < s.regions[roots[j]].area
	})

	for _, id := range roots {
		if s.find(id) != id || id == largest || s.regions[id].area >= minArea {
			continue
		}
		target := s.dominantNeighbor(id)
		if target < 0 {
			for _, px := range s.regions[id].pixels {
				s.labels[px] = -1
			}
			s.regions[id].pixels = nil
			s.regions[id].area = 0
			continue
		}
		s.union(id, target)
	}
}

func (s *segmentation) dominantNeighbor(id int32) int32 {
	border := make(map[int32]int)
	for _, px := range s.regions[id].pixels {
		i := int(px)
		for _, n := range s.neighbors(i%s.w, i/s.w) {
			if n < 0 || s.labels[n] < 0 {
				continue
			}
			if root := s.find(s.labels[n]); root != id {
				border[root]++
			}
		}
	}

	best, bestCount := int32(-1), 0
	for root, count := range border {
		if count > bestCount || (count == bestCount && root < best) {
			best, bestCount = root, count
		}
	}
	return best
}

// roots lists live regions, largest first, ties by id.
func (s *segmentation) roots() []int32 {
	out := make([]int32, 0, len(s.regions))
	for id := range s.regions {
		if s.find(int32(id)) == int32(id) && s.regions[id].area > 0 {
			out = append(out, int32(id))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return s.regions[out[i]].area > s.regions[out[j]].area
	})
	return out
}

// flatten points every label at its root region.
func (s *segmentation) flatten() {
	for i, l := range s.labels {
		if l >= 0 {
			s.labels[i] = s.find(l)
		}
	}
}
