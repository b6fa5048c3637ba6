package main

import (
	"math"

	"github.com/jakecoffman/cp"
)

// Camera follows a world point. The world is unbounded, so unlike a level
// camera there is nothing to clamp against.
type Camera struct {
	Pos cp.Vector

	screenW int
	screenH int
	// pixels per world unit
	zoom float64
	// smoothing factor (0..1). higher -> faster follow
	smooth float64
}

func NewCamera(screenW, screenH int, zoom float64) *Camera {
	return &Camera{screenW: screenW, screenH: screenH, zoom: zoom, smooth: 0.15}
}

func (c *Camera) SetZoom(z float64) {
	if z <= 0 {
		return
	}
	c.zoom = z
}

func (c *Camera) Zoom() float64 {
	return c.zoom
}

// Update moves the camera toward target. Call from the fixed-rate Update loop
// to get consistent smoothing.
func (c *Camera) Update(target cp.Vector) {
	if c.smooth <= 0 {
		c.Pos = target
	} else {
		c.Pos = c.Pos.Lerp(target, c.smooth)
	}
	c.snap()
}

// SnapTo places the camera without smoothing, e.g. after a restart.
func (c *Camera) SnapTo(target cp.Vector) {
	c.Pos = target
	c.snap()
}

// snap aligns the center to whole screen pixels.
func (c *Camera) snap() {
	if c.zoom == 0 {
		return
	}
	c.Pos.X = math.Round(c.Pos.X*c.zoom) / c.zoom
	c.Pos.Y = math.Round(c.Pos.Y*c.zoom) / c.zoom
}

// WorldToScreen maps a world point to screen pixels.
func (c *Camera) WorldToScreen(p cp.Vector) (float32, float32) {
	x := (p.X-c.Pos.X)*c.zoom + float64(c.screenW)/2
	y := (p.Y-c.Pos.Y)*c.zoom + float64(c.screenH)/2
	return float32(x), float32(y)
}

// Visible reports whether a circle at p with radius r overlaps the screen.
func (c *Camera) Visible(p cp.Vector, r float64) bool {
	x, y := c.WorldToScreen(p)
	pr := float32(r * c.zoom)
	return x+pr >= 0 && y+pr >= 0 && x-pr <= float32(c.screenW) && y-pr <= float32(c.screenH)
}
