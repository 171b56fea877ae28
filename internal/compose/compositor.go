package compose

import (
	"image"
	"image/draw"
	"sync"

	"github.com/peerwaya/watermark-kit/internal/geometry"

	xdraw "golang.org/x/image/draw"
)

// PositionedOverlay is the once-per-job result of overlay resolution and
// geometry remapping: the overlay pixels already rotated into natural space
// (opacity baked in) and the natural-space top-left they blend at. Immutable
// after job start, reused for every frame.
type PositionedOverlay struct {
	Pixels *image.RGBA
	At     geometry.Point
}

// Position resolves the full overlay geometry for a job: the overlay is
// anchored in display space on the output canvas, then remapped into the
// natural pixel layout. Anchors are always evaluated in display space so
// "top-left on screen" stays top-left regardless of how the file stores
// pixels.
func Position(overlayImg *image.RGBA, plan Plan, rot geometry.Rotation, anchor geometry.Anchor, marginPx, offsetX, offsetY int) *PositionedOverlay {
	if overlayImg == nil {
		return nil
	}
	ob := overlayImg.Bounds()
	displayPos := geometry.Place(
		plan.Output,
		geometry.Size{Width: ob.Dx(), Height: ob.Dy()},
		anchor, marginPx, offsetX, offsetY,
	)
	naturalCanvas := rot.Inverse().Apply(plan.Output)
	pixels, at := geometry.RemapToNaturalSpace(displayPos, overlayImg, rot, naturalCanvas)
	return &PositionedOverlay{Pixels: pixels, At: at}
}

// Compositor produces one output buffer per decoded frame. It owns pooled
// RGBA scratch buffers sized for the job so the frame loop allocates nothing
// in steady state. Not safe for concurrent use; each job runs its own.
type Compositor struct {
	plan     Plan
	rotation geometry.Rotation
	overlay  *PositionedOverlay

	natural   geometry.Size // canvas size in natural orientation
	frameRect image.Rectangle

	canvasPool sync.Pool
	outPool    sync.Pool
}

// NewCompositor creates a per-job compositor. overlay may be nil for the
// pass-through case.
func NewCompositor(plan Plan, rot geometry.Rotation, overlay *PositionedOverlay) *Compositor {
	natural := rot.Inverse().Apply(plan.Output)
	c := &Compositor{
		plan:      plan,
		rotation:  rot,
		overlay:   overlay,
		natural:   natural,
		frameRect: geometry.RemapRect(plan.FrameRect(), rot, natural),
	}
	c.canvasPool.New = func() any {
		return image.NewRGBA(image.Rect(0, 0, natural.Width, natural.Height))
	}
	c.outPool.New = func() any {
		return image.NewRGBA(image.Rect(0, 0, plan.Output.Width, plan.Output.Height))
	}
	return c
}

// CompositeFrame blends one natural-space frame into a display-oriented
// output buffer: background fill, letterbox fit, overlay source-over blend,
// then a single rotation into display orientation. The returned buffer must
// be handed back via Release once encoded.
func (c *Compositor) CompositeFrame(frame *image.RGBA) *image.RGBA {
	canvas := c.canvasPool.Get().(*image.RGBA)
	defer c.canvasPool.Put(canvas)

	fastPath := c.plan.Identity() && c.overlay == nil && c.rotation == geometry.Rotate0

	if !fastPath {
		if c.frameRect != canvas.Bounds() {
			draw.Draw(canvas, canvas.Bounds(), image.NewUniform(c.plan.Background), image.Point{}, draw.Src)
		}
		if c.frameRect == frame.Bounds() {
			copy(canvas.Pix, frame.Pix)
		} else {
			xdraw.BiLinear.Scale(canvas, c.frameRect, frame, frame.Bounds(), xdraw.Src, nil)
		}
		if c.overlay != nil {
			ob := c.overlay.Pixels.Bounds()
			target := image.Rect(
				c.overlay.At.X,
				c.overlay.At.Y,
				c.overlay.At.X+ob.Dx(),
				c.overlay.At.Y+ob.Dy(),
			)
			draw.Draw(canvas, target, c.overlay.Pixels, ob.Min, draw.Over)
		}
	} else {
		canvas = frame
	}

	out := c.outPool.Get().(*image.RGBA)
	geometry.RotateInto(out, canvas, c.rotation)
	return out
}

// Release returns an output buffer obtained from CompositeFrame to the pool.
func (c *Compositor) Release(out *image.RGBA) {
	c.outPool.Put(out)
}
