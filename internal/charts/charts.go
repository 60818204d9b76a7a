// Package charts renders PNG charts of a dataset summary.
package charts

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/rpggio/chemviz/internal/domain/dataset"
	"github.com/wcharczuk/go-chart/v2"
)

// ErrNoData indicates a chart with nothing to plot.
var ErrNoData = errors.New("nothing to chart")

// Metric selects one per-type average.
type Metric string

const (
	MetricFlowrate    Metric = "flowrate"
	MetricPressure    Metric = "pressure"
	MetricTemperature Metric = "temperature"
)

var metricTitles = map[Metric]string{
	MetricFlowrate:    "Average Flowrate by Type",
	MetricPressure:    "Average Pressure by Type",
	MetricTemperature: "Average Temperature by Type",
}

func (m Metric) of(tm dataset.TypeMetrics) float64 {
	switch m {
	case MetricPressure:
		return tm.AvgPressure
	case MetricTemperature:
		return tm.AvgTemperature
	default:
		return tm.AvgFlowrate
	}
}

// TypeDistribution renders equipment counts per type as a bar chart.
func TypeDistribution(w io.Writer, s dataset.Summary) error {
	types := sortedKeys(s.TypeDistribution)
	bars := make([]chart.Value, 0, len(types))
	for _, t := range types {
		bars = append(bars, chart.Value{Label: t, Value: float64(s.TypeDistribution[t])})
	}
	return renderBars(w, "Equipment Type Distribution", bars)
}

// EquipmentShare renders each type's share of the fleet as a donut chart.
func EquipmentShare(w io.Writer, s dataset.Summary) error {
	types := sortedKeys(s.TypeDistribution)
	values := make([]chart.Value, 0, len(types))
	for _, t := range types {
		if n := s.TypeDistribution[t]; n > 0 {
			values = append(values, chart.Value{Label: fmt.Sprintf("%s (%d)", t, n), Value: float64(n)})
		}
	}
	if len(values) == 0 {
		return ErrNoData
	}

	donut := chart.DonutChart{
		Title:  "Equipment Share",
		Width:  640,
		Height: 640,
		Values: values,
	}
	return donut.Render(chart.PNG, w)
}

// MetricByType renders one per-type average as a bar chart.
func MetricByType(w io.Writer, s dataset.Summary, metric Metric) error {
	title, ok := metricTitles[metric]
	if !ok {
		return fmt.Errorf("unknown metric %q", metric)
	}

	types := sortedKeys(s.AvgMetricsPerType)
	bars := make([]chart.Value, 0, len(types))
	for _, t := range types {
		bars = append(bars, chart.Value{Label: t, Value: metric.of(s.AvgMetricsPerType[t])})
	}
	return renderBars(w, title, bars)
}

// Render writes every chart of s into dir and returns the written paths.
// Charts with nothing to plot are skipped.
func Render(s dataset.Summary, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating chart dir: %w", err)
	}

	jobs := []struct {
		name   string
		render func(io.Writer) error
	}{
		{"type_distribution.png", func(w io.Writer) error { return TypeDistribution(w, s) }},
		{"equipment_share.png", func(w io.Writer) error { return EquipmentShare(w, s) }},
		{"avg_flowrate_by_type.png", func(w io.Writer) error { return MetricByType(w, s, MetricFlowrate) }},
		{"avg_pressure_by_type.png", func(w io.Writer) error { return MetricByType(w, s, MetricPressure) }},
		{"avg_temperature_by_type.png", func(w io.Writer) error { return MetricByType(w, s, MetricTemperature) }},
	}

	var paths []string
	for _, job := range jobs {
		var buf bytes.Buffer
		if err := job.render(&buf); err != nil {
			if errors.Is(err, ErrNoData) {
				continue
			}
			return paths, fmt.Errorf("rendering %s: %w", job.name, err)
		}
		path := filepath.Join(dir, job.name)
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return paths, fmt.Errorf("writing %s: %w", job.name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func renderBars(w io.Writer, title string, bars []chart.Value) error {
	if len(bars) == 0 {
		return ErrNoData
	}

	lo, hi := 0.0, 0.0
	for _, b := range bars {
		lo = math.Min(lo, b.Value)
		hi = math.Max(hi, b.Value)
	}
	if lo == 0 && hi == 0 {
		hi = 1
	}

	bc := chart.BarChart{
		Title:      title,
		Width:      max(640, 120*len(bars)+160),
		Height:     480,
		BarWidth:   60,
		Background: chart.Style{Padding: chart.Box{Top: 40}},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: lo * 1.1, Max: hi * 1.1},
		},
		Bars: bars,
	}
	return bc.Render(chart.PNG, w)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
