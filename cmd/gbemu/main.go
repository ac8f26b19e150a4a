// Command gbemu is the thin windowed front-end: open an ebiten window,
// drive the Machine one frame per Update, and blit its framebuffer once
// per Draw. It deliberately does not reimplement a full menu/audio/
// settings UI (that is out of this repo's scope) — just enough ebiten
// wiring to watch the core run.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/horizon-arcade/dmgcore/internal/cart"
	"github.com/horizon-arcade/dmgcore/internal/emu"
)

type game struct {
	m   *emu.Machine
	tex *ebiten.Image
}

func (g *game) Update() error {
	var btn emu.Buttons
	btn.Right = ebiten.IsKeyPressed(ebiten.KeyRight)
	btn.Left = ebiten.IsKeyPressed(ebiten.KeyLeft)
	btn.Up = ebiten.IsKeyPressed(ebiten.KeyUp)
	btn.Down = ebiten.IsKeyPressed(ebiten.KeyDown)
	btn.A = ebiten.IsKeyPressed(ebiten.KeyZ)
	btn.B = ebiten.IsKeyPressed(ebiten.KeyX)
	btn.Start = ebiten.IsKeyPressed(ebiten.KeyEnter)
	btn.Select = ebiten.IsKeyPressed(ebiten.KeyShiftRight)
	g.m.SetButtons(btn)

	if err := g.m.StepFrame(); err != nil {
		log.Printf("fatal: %v", err)
		return err
	}
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	if g.tex == nil {
		g.tex = ebiten.NewImage(160, 144)
	}
	g.tex.WritePixels(g.m.Framebuffer())
	screen.DrawImage(g.tex, nil)
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) { return 160, 144 }

func main() {
	romPath := flag.String("rom", "", "path to ROM (.gb)")
	bootPath := flag.String("bootrom", "", "optional DMG boot ROM")
	scale := flag.Int("scale", 3, "window scale")
	title := flag.String("title", "gbemu", "window title")
	bg := flag.Bool("bg", true, "rasterize the BG/window layers (off shows a test gradient)")
	flag.Parse()

	if *romPath == "" {
		log.Fatal("-rom is required")
	}

	m := emu.New(emu.Config{UseFetcherBG: *bg})

	if *bootPath != "" {
		boot, err := os.ReadFile(*bootPath)
		if err != nil {
			log.Fatalf("read bootrom: %v", err)
		}
		m.SetBootROM(boot)
	}

	if err := m.LoadCartridge(*romPath); err != nil {
		log.Fatalf("load cart: %v", err)
	}

	if rom, err := os.ReadFile(*romPath); err == nil {
		if h, err := cart.ParseHeader(rom); err == nil {
			log.Printf("ROM: %q type=%s banks=%d ram=%dB", h.Title, h.TypeName(), h.ROMBanks, h.RAMSize)
		}
	}

	ebiten.SetWindowTitle(*title)
	ebiten.SetWindowSize(160**scale, 144**scale)

	if err := ebiten.RunGame(&game{m: m}); err != nil {
		log.Fatal(err)
	}
}
