package extract

// SourceKind selects how an input is interpreted.
type SourceKind int

const (
	// SourceAuto sniffs the input bytes.
	SourceAuto SourceKind = iota
	// SourceOperatorStream forces page-description parsing.
	SourceOperatorStream
	// SourceParsedArchive forces parsed-scene archive loading.
	SourceParsedArchive
)

// Options configure a scene extraction.
type Options struct {
	// SegmentMerge enables collinear segment merging.
	// Default: true
	SegmentMerge bool

	// InvisibleCull enables the visibility culler.
	// Default: true
	InvisibleCull bool

	// MaxPages limits extraction; 0 extracts every page.
	MaxPages int

	// PagesPerRow is the composition grid width (1..100);
	// 0 picks ceil(√pageCount).
	PagesPerRow int

	// CurveFlatness is the flattening deviation bound in world units.
	// Default: 0.35
	CurveFlatness float64

	// MaxCurveSplitDepth bounds curve subdivision.
	// Default: 9
	MaxCurveSplitDepth int

	// SourceKind selects input interpretation.
	// Default: SourceAuto
	SourceKind SourceKind

	// MaxTextureSide bounds packed texture sides.
	// Default: 16384
	MaxTextureSide int
}

// DefaultOptions returns extraction options with the standard defaults.
func DefaultOptions() Options {
	return Options{
		SegmentMerge:       true,
		InvisibleCull:      true,
		CurveFlatness:      DefaultFlatness,
		MaxCurveSplitDepth: DefaultMaxSplitDepth,
		MaxTextureSide:     16384,
	}
}

// Option is a functional option for configuring Options.
type Option func(*Options)

// NoSegmentMerge disables collinear segment merging.
func NoSegmentMerge() Option {
	return func(o *Options) { o.SegmentMerge = false }
}

// NoInvisibleCull disables the visibility culler.
func NoInvisibleCull() Option {
	return func(o *Options) { o.InvisibleCull = false }
}

// MaxPages limits the number of extracted pages.
func MaxPages(n int) Option {
	return func(o *Options) { o.MaxPages = n }
}

// PagesPerRow sets the composition grid width.
func PagesPerRow(n int) Option {
	return func(o *Options) { o.PagesPerRow = n }
}

// CurveFlatness sets the flattening deviation bound.
func CurveFlatness(f float64) Option {
	return func(o *Options) { o.CurveFlatness = f }
}

// MaxCurveSplitDepth sets the curve subdivision bound.
func MaxCurveSplitDepth(d int) Option {
	return func(o *Options) { o.MaxCurveSplitDepth = d }
}

// WithSourceKind forces the input interpretation.
func WithSourceKind(k SourceKind) Option {
	return func(o *Options) { o.SourceKind = k }
}

// MaxTextureSide bounds packed texture sides.
func MaxTextureSide(n int) Option {
	return func(o *Options) { o.MaxTextureSide = n }
}

// NewOptions creates options from functional options.
func NewOptions(opts ...Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Apply applies functional options to existing options.
func (o *Options) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(o)
	}
}
