package main

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/milk9111/survivor/ai"
	"github.com/milk9111/survivor/obj"
	"github.com/milk9111/survivor/prefabs"
	"golang.org/x/image/colornames"
)

const (
	baseWidth  = 1280
	baseHeight = 720
	// pixels per world unit
	baseZoom = 16
)

type Game struct {
	arena    *obj.Arena
	input    *Input
	camera   *Camera
	watcher  *prefabs.Watcher
	specName string
	stats    obj.Stats
	debug    bool
}

func NewGame(arena *obj.Arena, input *Input, watcher *prefabs.Watcher, specName string, debug bool) *Game {
	g := &Game{
		arena:    arena,
		input:    input,
		camera:   NewCamera(baseWidth, baseHeight, baseZoom),
		watcher:  watcher,
		specName: specName,
		debug:    debug,
	}
	g.camera.SnapTo(arena.Player().Position())
	return g
}

func (g *Game) Update() error {
	g.arena.DrainChanges(g.specName, g.watcher)

	g.input.Update()
	if g.input.RestartPressed && g.arena.Player().IsDead() {
		g.arena.Reset()
		g.stats = obj.Stats{}
		g.camera.SnapTo(g.arena.Player().Position())
	}

	g.arena.Update()
	g.stats.Record(g.arena.World().Events().Drain(), g.arena.Player().Entity())
	g.camera.Update(g.arena.Player().Position())
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(colornames.Darkslategray)

	spec := g.arena.Spec()
	for _, u := range g.arena.ActiveUnits() {
		pos := u.Position()
		r := u.Radius()
		if !g.camera.Visible(pos, r) {
			continue
		}
		x, y := g.camera.WorldToScreen(pos)
		pr := float32(r * g.camera.Zoom())
		vector.FillCircle(screen, x, y, pr, unitColor(spec.Units[u.TypeIndex()]), true)
		if u.Agent().State() == ai.StateKnockback {
			vector.StrokeCircle(screen, x, y, pr, 2, colornames.White, true)
		}
		if g.debug && u.Agent().Err() == nil {
			g.drawDebugTarget(screen, u)
		}
	}

	player := g.arena.Player()
	px, py := g.camera.WorldToScreen(player.Position())
	pr := float32(spec.Player.Radius * g.camera.Zoom())
	playerColor := spec.Player.Color.Or(colornames.Dodgerblue)
	if player.IsDead() {
		playerColor = colornames.Dimgray
	}
	vector.FillCircle(screen, px, py, pr, playerColor, true)
	g.drawHealthBar(screen, px, py-pr-6, player.Health(), player.MaxHealth())

	hud := fmt.Sprintf("FPS: %.2f  HP: %d/%d  units: %d  %s",
		ebiten.ActualFPS(), player.Health(), player.MaxHealth(), len(g.arena.ActiveUnits()), g.stats)
	if player.IsDead() {
		hud += "\nyou died - press R to restart"
	}
	ebitenutil.DebugPrint(screen, hud)
}

func (g *Game) drawDebugTarget(screen *ebiten.Image, u *obj.Unit) {
	target := u.Agent().Target()
	if target == nil {
		return
	}
	x0, y0 := g.camera.WorldToScreen(u.Position())
	x1, y1 := g.camera.WorldToScreen(target.Position())
	vector.StrokeLine(screen, x0, y0, x1, y1, 1, colornames.Yellow, true)
}

func (g *Game) drawHealthBar(screen *ebiten.Image, cx, top float32, health, maxHealth int) {
	if maxHealth <= 0 {
		return
	}
	const w, h = 32, 4
	frac := float32(health) / float32(maxHealth)
	vector.FillRect(screen, cx-w/2, top, w, h, colornames.Black, false)
	vector.FillRect(screen, cx-w/2, top, w*frac, h, colornames.Limegreen, false)
}

func unitColor(spec prefabs.UnitSpec) color.Color {
	fallback := colornames.Crimson
	if spec.Role == prefabs.RoleAlly {
		fallback = colornames.Limegreen
	}
	return spec.Color.Or(fallback)
}

func (g *Game) LayoutF(outsideWidth, outsideHeight float64) (float64, float64) {
	return baseWidth, baseHeight
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	panic("shouldn't use Layout")
}
