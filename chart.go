package benchcmp

import (
	"image/color"
	"math"

	"golang.org/x/perf/benchunit"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

const (
	ChartWidth  = 14 * vg.Inch
	ChartHeight = 7 * vg.Inch
)

var barWidth = vg.Points(16)

var (
	suiteAColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	suiteBColor = color.RGBA{R: 44, G: 160, B: 44, A: 255}
)

// Chart builds a grouped bar chart of the matched benchmarks, one bar
// pair per name on a log-scaled Y axis. The caller owns the returned
// plot and decides where to save it. Every matched name must resolve,
// re-prefixed, in both mean mappings; Match guarantees that.
func Chart(matched []string, a Suite, meansA map[string]float64, b Suite, meansB map[string]float64, title string) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "Average ns/op (log scale)"
	grid := plotter.NewGrid()
	dashes := []vg.Length{vg.Points(4), vg.Points(4)}
	grid.Horizontal.Dashes = dashes
	grid.Vertical.Dashes = dashes
	p.Add(grid)
	if len(matched) == 0 {
		return p, nil
	}

	valuesA := make(plotter.Values, len(matched))
	valuesB := make(plotter.Values, len(matched))
	for i, name := range matched {
		valuesA[i] = meansA[a.Prefix+name]
		valuesB[i] = meansB[b.Prefix+name]
	}
	barsA := newMeanBars(valuesA, suiteAColor, -barWidth/2)
	barsB := newMeanBars(valuesB, suiteBColor, barWidth/2)
	p.Add(barsA, barsB)
	p.Legend.Add(a.Name, barsA)
	p.Legend.Add(b.Name, barsB)
	p.Legend.Top = true

	p.NominalX(matched...)
	p.X.Tick.Label.Rotation = -math.Pi / 4
	p.X.Tick.Label.YAlign = draw.YTop
	p.X.Tick.Label.XAlign = draw.XLeft

	p.Y.Scale = plot.LogScale{}
	p.Y.Tick.Marker = nsTicks{}
	// Leave headroom below the smallest mean so its bar stays visible.
	p.Y.Min /= 2
	return p, nil
}

// meanBars draws one bar per value, anchored to the bottom of the
// plotting area rather than at zero, which a log scale cannot represent.
// gonum's plotter.BarChart anchors at zero and would panic under
// plot.LogScale.
type meanBars struct {
	values plotter.Values
	color  color.Color
	offset vg.Length
}

func newMeanBars(values plotter.Values, c color.Color, offset vg.Length) *meanBars {
	return &meanBars{values: values, color: c, offset: offset}
}

// Plot implements plot.Plotter.
func (b *meanBars) Plot(c draw.Canvas, plt *plot.Plot) {
	trX, trY := plt.Transforms(&c)
	for i, v := range b.values {
		x := trX(float64(i)) + b.offset
		if !c.ContainsX(x) {
			continue
		}
		top := trY(v)
		pts := []vg.Point{
			{X: x - barWidth/2, Y: c.Min.Y},
			{X: x - barWidth/2, Y: top},
			{X: x + barWidth/2, Y: top},
			{X: x + barWidth/2, Y: c.Min.Y},
		}
		c.FillPolygon(b.color, c.ClipPolygonY(pts))
	}
}

// DataRange implements plot.DataRanger. Half a slot of margin on each
// side keeps the outermost bar pairs inside the plotting area.
func (b *meanBars) DataRange() (xmin, xmax, ymin, ymax float64) {
	xmin, xmax = -0.5, float64(len(b.values))-0.5
	ymin, ymax = math.Inf(1), math.Inf(-1)
	for _, v := range b.values {
		ymin = math.Min(ymin, v)
		ymax = math.Max(ymax, v)
	}
	return xmin, xmax, ymin, ymax
}

// Thumbnail implements plot.Thumbnailer for the legend.
func (b *meanBars) Thumbnail(c *draw.Canvas) {
	pts := []vg.Point{
		{X: c.Min.X, Y: c.Min.Y},
		{X: c.Min.X, Y: c.Max.Y},
		{X: c.Max.X, Y: c.Max.Y},
		{X: c.Max.X, Y: c.Min.Y},
	}
	c.FillPolygon(b.color, pts)
}

// nsTicks relabels log-decade ticks as scaled durations, 1.500k instead
// of 1.5e+03.
type nsTicks struct{}

func (nsTicks) Ticks(min, max float64) []plot.Tick {
	ticks := plot.LogTicks{Prec: -1}.Ticks(min, max)
	for i, t := range ticks {
		if t.Label == "" {
			continue
		}
		ticks[i].Label = benchunit.Scale(t.Value, benchunit.Decimal)
	}
	return ticks
}
