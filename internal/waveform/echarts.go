package waveform

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// AssetsHost serves the echarts script. Override it for offline use.
var AssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// RenderHTML writes an interactive floor chart with reset markers.
func RenderHTML(w io.Writer, t Trace) error {
	steps := t.Steps()
	data := make([]opts.LineData, 0, len(steps))
	maxFloor := 0
	for _, p := range steps {
		data = append(data, opts.LineData{Value: []interface{}{p.Seconds, int(p.Floor)}})
		if int(p.Floor) > maxFloor {
			maxFloor = int(p.Floor)
		}
	}

	marks := t.Resets()
	resets := make([]opts.ScatterData, 0, len(marks))
	for _, m := range marks {
		resets = append(resets, opts.ScatterData{Name: m.Domain, Value: []interface{}{m.Seconds, 0}})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Lift " + t.Name, Width: "100%", Height: "480px", AssetsHost: AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Floor", Subtitle: fmt.Sprintf("run=%s changes=%d resets=%d", t.Name, (len(steps)-2)/2, len(marks))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "seconds", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "floor", Min: 0, Max: maxFloor + 1}),
	)
	line.AddSeries("floor", data)

	scatter := charts.NewScatter()
	scatter.AddSeries("reset", resets, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 10}))
	line.Overlap(scatter)

	if err := line.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}
