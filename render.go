package main

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"

	"CSF/internal/session"
)

var fixationColor = color.Gray{Y: 0}

// Draw renders the current page: the fixation cross and stimulus while
// presentations run, text otherwise.
func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(g.background)
	if g.runner.Phase() == session.Running {
		g.renderer.Draw(screen, g.apertures)
	} else {
		g.drawPage(screen, pageText(g.runner))
	}
	if g.runner.Fixation() {
		g.drawFixation(screen)
	}

	if g.debug {
		t := g.runner.Timer()
		debugMsg := fmt.Sprintf("FPS: %.1f TPS: %.1f\nPhase: %s\nTimer: %s at %v\nPresentations: %d\nRasterizer: %s",
			ebiten.ActualFPS(), ebiten.ActualTPS(), g.runner.Phase(), t.State(), t.Now(),
			t.Presentations(), g.renderer.rast.Name())
		ebitenutil.DebugPrint(screen, debugMsg)
	}
}

// Layout reports the configured display resolution so that one logical pixel
// is one screen pixel of the calibrated geometry.
func (g *Game) Layout(_, _ int) (int, int) { return g.width, g.height }

// drawFixation draws the central cross.
func (g *Game) drawFixation(screen *ebiten.Image) {
	cx, cy := g.width/2, g.height/2
	for t := 0; t < fixationThickness; t++ {
		drawLine(screen, cx-fixationArm, cy+t, cx+fixationArm, cy+t, fixationColor)
		drawLine(screen, cx+t, cy-fixationArm, cx+t, cy+fixationArm, fixationColor)
	}
}

// drawPage prints text centred on the screen.
func (g *Game) drawPage(screen *ebiten.Image, text string) {
	if text == "" {
		return
	}
	lines := strings.Split(text, "\n")
	y := g.height/2 - len(lines)*pageLineHeight/2
	longest := 0
	for _, l := range lines {
		longest = max(longest, len(l))
	}
	// The debug font is 6 px wide.
	x := max(pageMargin, g.width/2-longest*3)
	ebitenutil.DebugPrintAt(screen, text, x, y)
}

// pageText is the message shown for the runner's current phase.
func pageText(r session.Runner) string {
	switch r := r.(type) {
	case *session.Session:
		switch r.Phase() {
		case session.Instructions:
			return "Keep your eyes on the cross in the centre of the screen.\n" +
				"A faint striped patch will appear above, below, left or right of it.\n" +
				"When it has gone, press the arrow key pointing to where it was,\n" +
				"or Z if you did not see it. Guess if you are unsure.\n\n" +
				"Press Space to start. Escape stops the test."
		case session.Break:
			n, of := r.Progress()
			return fmt.Sprintf("Part %d of %d done. Rest your eyes for a moment.\n\nPress Space to continue.", n-1, of)
		case session.Finished:
			return "The test is complete. Thank you.\n\nPress Space to close."
		}
	case *session.Demo:
		switch r.Phase() {
		case session.Instructions:
			return "Practice: a striped patch will appear around the cross.\n" +
				"Press the arrow key pointing to where it was, or Z if you did not see it.\n\n" +
				"Press Space to start."
		case session.Feedback:
			last := r.Last()
			verdict := "Correct."
			if !last.Correct {
				verdict = fmt.Sprintf("Wrong, the patch was %s.", last.Displayed)
			}
			return verdict + fmt.Sprintf("\n(%.3g c/deg, contrast %.2f)\n\nAnother one? (Y/N)",
				last.Params.Frequency, last.Params.Contrast)
		case session.Finished:
			total, correct := r.Rounds()
			return fmt.Sprintf("Practice over: %d of %d correct.\n\nPress Space to close.", correct, total)
		}
	}
	return ""
}

// drawLine plots a line segment using Bresenham's integer algorithm.
func drawLine(screen *ebiten.Image, x0, y0, x1, y1 int, clr color.Color) {
	b := screen.Bounds()
	dx := int(math.Abs(float64(x1 - x0)))
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -int(math.Abs(float64(y1 - y0)))
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		if x0 >= b.Min.X && x0 < b.Max.X && y0 >= b.Min.Y && y0 < b.Max.Y {
			screen.Set(x0, y0, clr)
		}
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}
