package imaging

import (
	"context"
	"image"
	"image/color"
	"math/rand/v2"
	"sync"

	"golang.org/x/image/draw"
)

// FakeAnalyzer draws a random confidence for every picture.
type FakeAnalyzer struct {
	// rnd is the random source; guarded by mu.
	rnd *rand.Rand
	// mu protects rnd.
	mu sync.Mutex
}

// NewFakeAnalyzer creates a fake analyzer with a fixed seed so runs are reproducible.
func NewFakeAnalyzer(seed uint64) *FakeAnalyzer {
	return &FakeAnalyzer{
		rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), //nolint:gosec // Not used for security.
	}
}

// DetectCat ignores the picture and reports a cat when the random confidence exceeds the threshold.
func (f *FakeAnalyzer) DetectCat(_ context.Context, _ image.Image, confidenceThreshold float32) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.rnd.Float32()*100 > confidenceThreshold, nil
}

const (
	// defaultSampleSize is the longest side of the downscaled picture.
	defaultSampleSize = 64
	// defaultGain maps the share of fur pixels to a confidence in percent.
	defaultGain = 4
)

// ColorAnalyzer scores a picture by the share of fur-coloured pixels.
type ColorAnalyzer struct {
	// SampleSize is the longest side of the downscaled copy.
	SampleSize int
	// Gain multiplies the fur pixel share (0..100) into a confidence.
	Gain float32
}

// NewColorAnalyzer creates a color analyzer with default tuning.
func NewColorAnalyzer() *ColorAnalyzer {
	return &ColorAnalyzer{
		SampleSize: defaultSampleSize,
		Gain:       defaultGain,
	}
}

// DetectCat reports a cat when the confidence reaches the threshold.
func (a *ColorAnalyzer) DetectCat(ctx context.Context, img image.Image, confidenceThreshold float32) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	return a.Confidence(img) >= confidenceThreshold, nil
}

// Confidence returns a score between 0 and 100.
func (a *ColorAnalyzer) Confidence(img image.Image) float32 {
	sample := downscale(img, a.SampleSize)
	bounds := sample.Bounds()

	total := bounds.Dx() * bounds.Dy()
	if total == 0 {
		return 0
	}

	var fur int

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if isFur(sample.RGBAAt(x, y)) {
				fur++
			}
		}
	}

	confidence := float32(fur) * 100 / float32(total) * a.Gain

	return min(confidence, 100)
}

// downscale draws img into an RGBA picture whose longest side is at most size.
func downscale(img image.Image, size int) *image.RGBA {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	if size <= 0 {
		size = defaultSampleSize
	}

	if width > size || height > size {
		if width >= height {
			height = max(1, height*size/width)
			width = size
		} else {
			width = max(1, width*size/height)
			height = size
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)

	return dst
}

// isFur reports whether the pixel has a ginger, brown or tabby hue.
func isFur(c color.RGBA) bool {
	r, g, b := float32(c.R)/255, float32(c.G)/255, float32(c.B)/255

	high := max(r, g, b)
	low := min(r, g, b)
	delta := high - low

	if high < 0.25 || delta < 0.15 || high != r {
		return false
	}

	saturation := delta / high
	hue := 60 * (g - b) / delta

	return hue >= 15 && hue <= 45 && saturation >= 0.3
}
