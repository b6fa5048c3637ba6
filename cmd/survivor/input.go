package main

import (
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/jakecoffman/cp"
)

// stickDeadZone ignores small stick drift.
const stickDeadZone = 0.3

// Input polls keyboard and the first gamepad once per frame.
type Input struct {
	dir cp.Vector

	// RestartPressed is true on the frame R or the gamepad start button was
	// pressed.
	RestartPressed bool
}

// Direction implements obj.Input. Screen y grows downward and so does the
// world.
func (i *Input) Direction() cp.Vector {
	return i.dir
}

// Update polls the devices.
func (i *Input) Update() {
	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		os.Exit(0)
	}

	var dir cp.Vector
	if ebiten.IsKeyPressed(ebiten.KeyA) || ebiten.IsKeyPressed(ebiten.KeyLeft) {
		dir.X -= 1
	}
	if ebiten.IsKeyPressed(ebiten.KeyD) || ebiten.IsKeyPressed(ebiten.KeyRight) {
		dir.X += 1
	}
	if ebiten.IsKeyPressed(ebiten.KeyW) || ebiten.IsKeyPressed(ebiten.KeyUp) {
		dir.Y -= 1
	}
	if ebiten.IsKeyPressed(ebiten.KeyS) || ebiten.IsKeyPressed(ebiten.KeyDown) {
		dir.Y += 1
	}

	var gpRestart bool
	if ids := ebiten.AppendGamepadIDs(nil); len(ids) > 0 {
		gid := ids[0]
		stick := cp.Vector{
			X: ebiten.StandardGamepadAxisValue(gid, ebiten.StandardGamepadAxisLeftStickHorizontal),
			Y: ebiten.StandardGamepadAxisValue(gid, ebiten.StandardGamepadAxisLeftStickVertical),
		}
		if stick.Length() > stickDeadZone {
			dir = stick
		}
		gpRestart = inpututil.IsStandardGamepadButtonJustPressed(gid, ebiten.StandardGamepadButtonCenterRight)
	}

	i.dir = dir
	i.RestartPressed = inpututil.IsKeyJustPressed(ebiten.KeyR) || gpRestart
}
