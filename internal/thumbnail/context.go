// Package thumbnail owns the reusable rescale pipeline that turns a raw
// captured RGBA frame into the notification image. A Context is either
// fully inactive or fully built; there is no partially-initialized state.
package thumbnail

import (
	"image"
	"time"

	"golang.org/x/image/draw"

	"mpvnotify/internal/opts"
)

// MaxImageBytes caps the scaled buffer allocation. The D-Bus spec maximum
// message length is 128 MiB; anything close to it cannot be delivered as an
// image-data hint anyway.
const MaxImageBytes = 127 * 1024 * 1024

// Params keys the pipeline alongside the source shape. Any change destroys
// and rebuilds the context.
type Params struct {
	TargetSize     int64
	Algo           opts.ScaleAlgo
	DisableScaling bool
}

// Context is the active scaling pipeline: source shape, destination shape,
// the owned destination buffer and its image wrapper, and the scaling
// kernel. Exclusively owned by the event-loop goroutine.
type Context struct {
	active bool

	srcW, srcH, srcStride int
	dstW, dstH, dstStride int

	params Params

	buf    []byte
	img    *image.RGBA
	scaler draw.Scaler
}

func kernelFor(algo opts.ScaleAlgo) draw.Scaler {
	switch algo {
	case opts.ScaleFastBilinear:
		return draw.ApproxBiLinear
	case opts.ScaleBilinear:
		return draw.BiLinear
	case opts.ScaleBicubic:
		return draw.CatmullRom
	case opts.ScaleLanczos:
		// x/image has no Lanczos kernel; Catmull-Rom is its highest-quality
		// resampler and the closest match.
		return draw.CatmullRom
	default:
		return draw.CatmullRom
	}
}

// Ensure makes the context match the given source shape and parameters,
// reusing the existing pipeline when possible:
//
//   - identical shape and params: reused as-is
//   - stride-only source change while scaling is enabled: absorbed by
//     updating the stored stride, no reallocation (the scaler reads the
//     stride per call)
//
// Anything else destroys and rebuilds. Returns false when the pipeline
// cannot be built (destination too large); the context is then inactive and
// the caller degrades to "no image".
func (c *Context) Ensure(srcW, srcH, srcStride int, p Params) bool {
	if c.active && srcW == c.srcW && srcH == c.srcH && p == c.params &&
		(!p.DisableScaling || srcStride == c.srcStride) {
		c.srcStride = srcStride
		return true
	}

	c.Destroy()

	c.srcW = srcW
	c.srcH = srcH
	c.srcStride = srcStride
	c.params = p

	if p.DisableScaling {
		c.dstW = srcW
		c.dstH = srcH
		c.dstStride = srcStride
	} else {
		size := float64(p.TargetSize)
		ratio := min(size/float64(srcW), size/float64(srcH))
		c.dstW = max(1, int(float64(srcW)*ratio))
		c.dstH = max(1, int(float64(srcH)*ratio))
		c.dstStride = c.dstW * 4
		c.scaler = kernelFor(p.Algo)
	}

	allocSize := c.dstStride * c.dstH
	if allocSize <= 0 || allocSize > MaxImageBytes {
		c.Destroy()
		return false
	}

	c.buf = make([]byte, allocSize)
	c.img = &image.RGBA{
		Pix:    c.buf,
		Stride: c.dstStride,
		Rect:   image.Rect(0, 0, c.dstW, c.dstH),
	}
	c.active = true
	return true
}

// Process scales (or copies, when scaling is disabled) one raw frame into
// the destination buffer. Returns the elapsed wall-clock time when timing
// is requested, for the perf diagnostics body line.
func (c *Context) Process(src []byte, timed bool) time.Duration {
	if !c.active {
		return 0
	}

	var start time.Time
	if timed {
		start = time.Now()
	}

	if c.scaler != nil {
		srcImg := &image.RGBA{
			Pix:    src,
			Stride: c.srcStride,
			Rect:   image.Rect(0, 0, c.srcW, c.srcH),
		}
		c.scaler.Scale(c.img, c.img.Rect, srcImg, srcImg.Rect, draw.Src, nil)
	} else {
		copy(c.buf, src)
	}

	if timed {
		return time.Since(start)
	}
	return 0
}

// Active reports whether a pipeline is currently built.
func (c *Context) Active() bool { return c.active }

// Image returns the destination image, nil while inactive. The returned
// image stays valid until the next Ensure rebuild or Destroy.
func (c *Context) Image() *image.RGBA {
	if !c.active {
		return nil
	}
	return c.img
}

// Shape returns the destination width, height and stride.
func (c *Context) Shape() (w, h, stride int) { return c.dstW, c.dstH, c.dstStride }

// Destroy releases everything and returns the context to the inactive
// state. Safe to call on an already-empty context.
func (c *Context) Destroy() {
	*c = Context{}
}
