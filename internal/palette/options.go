package palette

// Options are the clustering tuning knobs. Zero fields fall back to the
// defaults from DefaultOptions.
type Options struct {
	// BaseClusters is k for the smallest rasters.
	BaseClusters int
	// PixelsPerCluster adds one cluster for every this many sampled pixels.
	PixelsPerCluster int
	// MaxClusters caps the adaptive k.
	MaxClusters int
	MaxIterations int
	// Delta is the Lab distance under which centroids are considered converged.
	Delta float64
	Seed  uint64
	// MaxDimension bounds the longer side of the raster before clustering.
	// Negative disables downsampling.
	MaxDimension int
}

func DefaultOptions() Options {
	return Options{
		BaseClusters:     4,
		PixelsPerCluster: 6000,
		MaxClusters:      8,
		MaxIterations:    100,
		Delta:            1.0,
		Seed:             0,
		MaxDimension:     300,
	}
}

func (o Options) normalized() Options {
	def := DefaultOptions()
	if o.BaseClusters <= 0 {
		o.BaseClusters = def.BaseClusters
	}
	if o.PixelsPerCluster <= 0 {
		o.PixelsPerCluster = def.PixelsPerCluster
	}
	if o.MaxClusters <= 0 {
		o.MaxClusters = def.MaxClusters
	}
	if o.MaxClusters < o.BaseClusters {
		o.MaxClusters = o.BaseClusters
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = def.MaxIterations
	}
	if o.Delta <= 0 {
		o.Delta = def.Delta
	}
	if o.MaxDimension == 0 {
		o.MaxDimension = def.MaxDimension
	}
	return o
}

// ClusterCount returns the adaptive k for a raster with the given number of
// sampled pixels.
func (o Options) ClusterCount(pixels int) int {
	o = o.normalized()
	k := o.BaseClusters
	if pixels > 0 {
		k += pixels / o.PixelsPerCluster
	}
	if k > o.MaxClusters {
		k = o.MaxClusters
	}
	return k
}
