// Package canvas draws gesture paths on a fixed character grid.
package canvas

import (
	"math"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/tuipass/internal/gesture"
)

// Runes used when drawing paths.
const (
	PathRune  = '·'
	PointRune = '•'
	ClickRune = '◉'
	StartRune = '○'
)

// continuation marks the right half of a wide rune.
const continuation rune = 0

// Canvas is a width x height grid of runes. The zero value is an empty grid.
type Canvas struct {
	width  int
	height int
	cells  [][]rune
}

// New returns a blank canvas. Negative sizes are treated as zero.
func New(width, height int) *Canvas {
	width = max(width, 0)
	height = max(height, 0)
	cells := make([][]rune, height)
	for y := range cells {
		cells[y] = []rune(strings.Repeat(" ", width))
	}
	return &Canvas{width: width, height: height, cells: cells}
}

// Width returns the number of columns.
func (c *Canvas) Width() int { return c.width }

// Height returns the number of rows.
func (c *Canvas) Height() int { return c.height }

// At returns the rune at (x, y), or a space outside the grid.
func (c *Canvas) At(x, y int) rune {
	if !c.inside(x, y) {
		return ' '
	}
	if r := c.cells[y][x]; r != continuation {
		return r
	}
	return ' '
}

// Set writes r at (x, y). Writes outside the grid are ignored. A wide rune
// also claims the cell to its right and is dropped if that cell is missing.
func (c *Canvas) Set(x, y int, r rune) {
	if !c.inside(x, y) {
		return
	}
	wide := runewidth.RuneWidth(r) == 2
	if wide && x+1 >= c.width {
		return
	}
	c.clear(x, y)
	if wide {
		c.clear(x+1, y)
		c.cells[y][x+1] = continuation
	}
	c.cells[y][x] = r
}

// clear removes a wide rune that overlaps (x, y).
func (c *Canvas) clear(x, y int) {
	switch {
	case c.cells[y][x] == continuation && x > 0:
		c.cells[y][x-1] = ' '
	case x+1 < c.width && c.cells[y][x+1] == continuation:
		c.cells[y][x+1] = ' '
	}
	c.cells[y][x] = ' '
}

// Line draws a straight segment of r between two cells, inclusive.
func (c *Canvas) Line(x0, y0, x1, y1 int, r rune) {
	Bresenham(x0, y0, x1, y1, func(x, y int) {
		c.Set(x, y, r)
	})
}

// Text writes s starting at (x, y), truncated to the grid width.
func (c *Canvas) Text(x, y int, s string) {
	if y < 0 || y >= c.height {
		return
	}
	s = runewidth.Truncate(s, c.width-max(x, 0), "")
	for _, r := range s {
		c.Set(x, y, r)
		x += max(runewidth.RuneWidth(r), 1)
	}
}

// Lines returns the grid rows.
func (c *Canvas) Lines() []string {
	lines := make([]string, c.height)
	for y, row := range c.cells {
		var b strings.Builder
		for _, r := range row {
			if r == continuation {
				continue
			}
			b.WriteRune(r)
		}
		lines[y] = b.String()
	}
	return lines
}

// String returns the grid rows joined by newlines.
func (c *Canvas) String() string {
	return strings.Join(c.Lines(), "\n")
}

func (c *Canvas) inside(x, y int) bool {
	return x >= 0 && y >= 0 && x < c.width && y < c.height
}

// Bresenham calls plot for every cell on the segment from (x0, y0) to
// (x1, y1), both ends included.
func Bresenham(x0, y0, x1, y1 int, plot func(x, y int)) {
	dx := abs(x1 - x0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -abs(y1 - y0)
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		plot(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
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

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Fit projects a normalized buffer into a width x height canvas. aspect is
// the height of a terminal cell relative to its width, the same factor used
// when the samples were captured, so the preview keeps the drawn proportions.
func Fit(buf gesture.Buffer, width, height int, aspect float64) *Canvas {
	c := New(width, height)
	if len(buf) == 0 || c.width == 0 || c.height == 0 {
		return c
	}
	if aspect <= 0 {
		aspect = 1
	}
	var maxX, maxY float64
	for _, s := range buf {
		maxX = math.Max(maxX, s.Pos.X)
		maxY = math.Max(maxY, s.Pos.Y)
	}
	scale := math.Inf(1)
	if maxX > 0 {
		scale = float64(c.width-1) / maxX
	}
	if maxY > 0 {
		scale = math.Min(scale, float64(c.height-1)*aspect/maxY)
	}
	if math.IsInf(scale, 1) {
		scale = 0
	}

	project := func(p gesture.Point) (int, int) {
		return int(math.Round(p.X * scale)), int(math.Round(p.Y * scale / aspect))
	}

	px, py := project(buf[0].Pos)
	for _, s := range buf[1:] {
		x, y := project(s.Pos)
		c.Line(px, py, x, y, PathRune)
		px, py = x, y
	}
	for _, s := range buf {
		x, y := project(s.Pos)
		if c.At(x, y) == PathRune {
			c.Set(x, y, PointRune)
		}
	}
	for _, s := range buf {
		if s.Kind == gesture.Click {
			x, y := project(s.Pos)
			c.Set(x, y, ClickRune)
		}
	}
	x, y := project(buf[0].Pos)
	if buf[0].Kind != gesture.Click {
		c.Set(x, y, StartRune)
	}
	return c
}
