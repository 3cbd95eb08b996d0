package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"golang.org/x/term"
)

// Series is a named line on a chart.
type Series struct {
	Name   string
	Values []float64
}

const (
	defaultChartHeight = 8
	minChartWidth      = 10
	axisWidth          = 8
	axisSeparator      = " ┤"
	colorReset         = "\x1b[0m"
	fallbackTermWidth  = 80
)

var chartColors = []string{
	"\x1b[36m", // cyan
	"\x1b[33m", // yellow
	"\x1b[35m", // magenta
	"\x1b[32m", // green
	"\x1b[34m", // blue
	"\x1b[31m", // red
	"\x1b[37m", // white
	"\x1b[96m", // bright cyan
}

// ChartWidthFor returns the plot area width that fits a total line width.
func ChartWidthFor(totalWidth int) int {
	if totalWidth <= 0 {
		totalWidth = terminalWidth()
	}
	w := totalWidth - axisWidth - runeLen(axisSeparator)
	if w < minChartWidth {
		return minChartWidth
	}
	return w
}

// PlotChart draws series on a shared vertical scale starting at zero using
// braille cells (2x4 dots per cell). Each series gets its own color when
// color output is enabled.
func PlotChart(w io.Writer, title string, series []Series, width, height int, forceColor bool) error {
	series = nonEmptySeries(series)
	if len(series) == 0 {
		return nil
	}
	if height <= 0 {
		height = defaultChartHeight
	}
	if width <= 0 {
		width = ChartWidthFor(0)
	}

	top := 0.0
	for _, s := range series {
		if _, hi := minMax(s.Values); hi > top {
			top = hi
		}
	}
	if top <= 0 {
		top = 1
	}

	dotsX, dotsY := width*2, height*4
	layers := make([][][]uint8, len(series))
	for i, s := range series {
		cells := newCells(width, height)
		points := resample(s.Values, dotsX)
		prevX, prevY := -1, -1
		for x, v := range points {
			y := dotsY - 1 - int(math.Round(v/top*float64(dotsY-1)))
			y = clamp(y, 0, dotsY-1)
			if prevX < 0 {
				setDot(cells, x, y)
			} else {
				line(prevX, prevY, x, y, func(px, py int) { setDot(cells, px, py) })
			}
			prevX, prevY = x, y
		}
		layers[i] = cells
	}

	useColor := colorEnabled(w, forceColor)
	if title != "" {
		if _, err := fmt.Fprintln(w, title); err != nil {
			return err
		}
	}
	for row := 0; row < height; row++ {
		var b strings.Builder
		b.WriteString(fmt.Sprintf("%*s%s", axisWidth, axisLabel(row, height, top), axisSeparator))
		for col := 0; col < width; col++ {
			mask, owner := mergeCell(layers, col, row)
			ch := rune(0x2800 + int(mask))
			if useColor && owner >= 0 {
				b.WriteString(chartColors[owner%len(chartColors)])
				b.WriteRune(ch)
				b.WriteString(colorReset)
				continue
			}
			b.WriteRune(ch)
		}
		if _, err := fmt.Fprintln(w, b.String()); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, legend(series, useColor)); err != nil {
		return err
	}
	return nil
}

func nonEmptySeries(series []Series) []Series {
	out := make([]Series, 0, len(series))
	for _, s := range series {
		if len(s.Values) > 0 {
			out = append(out, s)
		}
	}
	return out
}

func axisLabel(row, height int, top float64) string {
	switch {
	case row == 0:
		return Abbreviate(top)
	case height > 2 && row == height/2:
		return Abbreviate(top / 2)
	case row == height-1:
		return "0"
	}
	return ""
}

func legend(series []Series, useColor bool) string {
	parts := make([]string, 0, len(series))
	for i, s := range series {
		label := "⣿ " + s.Name
		if useColor {
			label = chartColors[i%len(chartColors)] + label + colorReset
		}
		parts = append(parts, label)
	}
	return strings.Repeat(" ", axisWidth+runeLen(axisSeparator)) + strings.Join(parts, "  ")
}

func newCells(width, height int) [][]uint8 {
	cells := make([][]uint8, height)
	for i := range cells {
		cells[i] = make([]uint8, width)
	}
	return cells
}

// mergeCell ORs the dots of all layers; the first layer with dots owns the color.
func mergeCell(layers [][][]uint8, col, row int) (uint8, int) {
	var mask uint8
	owner := -1
	for i, cells := range layers {
		m := cells[row][col]
		if m == 0 {
			continue
		}
		if owner < 0 {
			owner = i
		}
		mask |= m
	}
	return mask, owner
}

var dotBits = [2][4]uint8{
	{0x01, 0x02, 0x04, 0x40},
	{0x08, 0x10, 0x20, 0x80},
}

func setDot(cells [][]uint8, x, y int) {
	row, col := y/4, x/2
	if x < 0 || y < 0 || row >= len(cells) || col >= len(cells[row]) {
		return
	}
	cells[row][col] |= dotBits[x%2][y%4]
}

// resample stretches or averages values to exactly n points.
func resample(values []float64, n int) []float64 {
	out := make([]float64, n)
	if n == 0 || len(values) == 0 {
		return out
	}
	if len(values) == 1 || n == 1 {
		for i := range out {
			out[i] = values[0]
		}
		return out
	}
	if len(values) > n {
		for i := range out {
			start := i * len(values) / n
			end := (i + 1) * len(values) / n
			if end <= start {
				end = start + 1
			}
			var sum float64
			for _, v := range values[start:end] {
				sum += v
			}
			out[i] = sum / float64(end-start)
		}
		return out
	}
	for i := range out {
		pos := float64(i) * float64(len(values)-1) / float64(n-1)
		lo := int(pos)
		if lo >= len(values)-1 {
			out[i] = values[len(values)-1]
			continue
		}
		frac := pos - float64(lo)
		out[i] = values[lo]*(1-frac) + values[lo+1]*frac
	}
	return out
}

// line walks the cells between two points (Bresenham).
func line(x0, y0, x1, y1 int, plot func(x, y int)) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
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

func runeLen(s string) int {
	return len([]rune(s))
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return fallbackTermWidth
	}
	return width
}

func colorEnabled(w io.Writer, force bool) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if force {
		return true
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
