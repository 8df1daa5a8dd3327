package render

import (
	"bytes"
	"fmt"
	"math"
	"strconv"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"learnstyle/internal/features"
	"learnstyle/internal/votes"
)

const (
	chartHeight = 420
	barWidth    = 48
	barSpacing  = 16
	minWidth    = 480
)

var palette = []drawing.Color{
	drawing.ColorFromHex("36a2eb"),
	drawing.ColorFromHex("ff6384"),
	drawing.ColorFromHex("4bc0c0"),
	drawing.ColorFromHex("ff9f40"),
	drawing.ColorFromHex("9966ff"),
	drawing.ColorFromHex("ffcd56"),
}

func barStyle(i int) chart.Style {
	c := palette[i%len(palette)]
	return chart.Style{FillColor: c, StrokeColor: c, StrokeWidth: 1}
}

// VoteChart draws the per-tree vote histogram. Bars keep histogram order and the
// value axis counts whole votes from zero.
func VoteChart(h votes.Histogram) (Artifact, error) {
	if len(h) == 0 {
		return Artifact{}, fmt.Errorf("vote chart: %w", ErrNoData)
	}
	bars := make([]chart.Value, len(h))
	maxCount := 0
	for i, b := range h {
		bars[i] = chart.Value{Label: b.Label, Value: float64(b.Count), Style: barStyle(i)}
		maxCount = max(maxCount, b.Count)
	}
	axis := chart.YAxis{
		Name:  "Number of Votes",
		Range: &chart.ContinuousRange{Min: 0, Max: float64(maxCount)},
		Ticks: integerTicks(maxCount),
	}
	return renderBars(SlotVotes, "How Each Tree Voted", bars, axis)
}

// StyleDistributionChart draws the class balance as a pie.
func StyleDistributionChart(labels []string, values []float64) (Artifact, error) {
	if len(labels) == 0 || len(labels) != len(values) {
		return Artifact{}, fmt.Errorf("style distribution: %w", ErrNoData)
	}
	var total float64
	slices := make([]chart.Value, len(labels))
	for i, l := range labels {
		slices[i] = chart.Value{Label: l, Value: values[i], Style: barStyle(i)}
		total += values[i]
	}
	if total <= 0 {
		return Artifact{}, fmt.Errorf("style distribution: %w", ErrNoData)
	}

	pie := chart.PieChart{
		Title:  "Learning Style Distribution",
		Width:  chartHeight,
		Height: chartHeight,
		Values: slices,
	}
	var buf bytes.Buffer
	if err := pie.Render(chart.PNG, &buf); err != nil {
		return Artifact{}, fmt.Errorf("render style distribution: %w", err)
	}
	return Artifact{Slot: SlotStyleDistribution, Kind: KindPNG, Title: pie.Title, Data: buf.Bytes()}, nil
}

// FeatureImportanceChart ranks features in the order given.
func FeatureImportanceChart(names []string, importance []float64) (Artifact, error) {
	if len(names) == 0 || len(names) != len(importance) {
		return Artifact{}, fmt.Errorf("feature importance: %w", ErrNoData)
	}
	bars := make([]chart.Value, len(names))
	top := 0.0
	for i, n := range names {
		bars[i] = chart.Value{Label: n, Value: importance[i], Style: barStyle(0)}
		top = math.Max(top, importance[i])
	}
	if top <= 0 {
		top = 1
	}
	axis := chart.YAxis{Name: "Importance", Range: &chart.ContinuousRange{Min: 0, Max: top}}
	return renderBars(SlotFeatureImportance, "Feature Importance", bars, axis)
}

// PerformanceChart shows accuracy, precision and recall as percentages.
func PerformanceChart(accuracy, precision, recall float64) (Artifact, error) {
	scores := []struct {
		label string
		value float64
	}{
		{"Accuracy", accuracy},
		{"Precision", precision},
		{"Recall", recall},
	}
	bars := make([]chart.Value, len(scores))
	for i, s := range scores {
		bars[i] = chart.Value{Label: s.label, Value: clamp(s.value*100, 0, 100), Style: barStyle(i)}
	}
	return renderBars(SlotModelPerformance, "Model Performance", bars, percentAxis("Score (%)"))
}

// CategoryChart draws the raw values of one feature category.
func CategoryChart(c features.Category, v features.Vector) (Artifact, error) {
	pairs := v.ByCategory(c)
	if len(pairs) == 0 {
		return Artifact{}, fmt.Errorf("category %q: %w", c, ErrNoData)
	}
	bars := make([]chart.Value, len(pairs))
	top := 0.0
	for i, p := range pairs {
		bars[i] = chart.Value{Label: p.Feature.Label, Value: p.Value, Style: barStyle(i)}
		top = math.Max(top, math.Max(p.Value, p.Feature.Range.Max))
	}
	axis := chart.YAxis{Name: "Value", Range: &chart.ContinuousRange{Min: 0, Max: top}}
	return renderBars(CategorySlot(c), string(c), bars, axis)
}

// ProfileChart draws every feature on the normalized 0-100 scale.
func ProfileChart(v features.Vector) (Artifact, error) {
	n := v.Normalized()
	bars := make([]chart.Value, features.Count)
	for i, f := range features.Schema() {
		bars[i] = chart.Value{Label: f.Name, Value: n[i], Style: barStyle(categoryIndex(f.Category))}
	}
	return renderBars(SlotProfile, "Current Features (normalized)", bars, percentAxis("Relative level"))
}

// TreeGraph wraps a compiled Mermaid description.
func TreeGraph(index int, graph string) Artifact {
	return Artifact{
		Slot:  SlotTree,
		Kind:  KindMermaid,
		Title: "Tree #" + strconv.Itoa(index+1),
		Data:  []byte(graph),
	}
}

// CategorySlot returns the slot holding the chart of c.
func CategorySlot(c features.Category) Slot {
	switch c {
	case features.MaterialUsage:
		return SlotMaterialUsage
	case features.PerformanceActivity:
		return SlotPerformance
	default:
		return SlotLearningFocus
	}
}

func categoryIndex(c features.Category) int {
	for i, cat := range features.Categories() {
		if cat == c {
			return i
		}
	}
	return 0
}

func renderBars(slot Slot, title string, bars []chart.Value, axis chart.YAxis) (Artifact, error) {
	if r, ok := axis.Range.(*chart.ContinuousRange); ok && r.Max <= r.Min {
		r.Max = r.Min + 1
	}
	bc := chart.BarChart{
		Title:      title,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		Width:      max(minWidth, len(bars)*(barWidth+barSpacing)+120),
		Height:     chartHeight,
		BarWidth:   barWidth,
		BarSpacing: barSpacing,
		YAxis:      axis,
		Bars:       bars,
	}
	var buf bytes.Buffer
	if err := bc.Render(chart.PNG, &buf); err != nil {
		return Artifact{}, fmt.Errorf("render %s: %w", slot, err)
	}
	return Artifact{Slot: slot, Kind: KindPNG, Title: title, Data: buf.Bytes()}, nil
}

func percentAxis(name string) chart.YAxis {
	ticks := make([]chart.Tick, 0, 5)
	for v := 0; v <= 100; v += 25 {
		ticks = append(ticks, chart.Tick{Value: float64(v), Label: strconv.Itoa(v)})
	}
	return chart.YAxis{Name: name, Range: &chart.ContinuousRange{Min: 0, Max: 100}, Ticks: ticks}
}

// integerTicks labels whole numbers only, at most about ten of them.
func integerTicks(top int) []chart.Tick {
	if top < 1 {
		top = 1
	}
	step := max(1, (top+9)/10)
	var ticks []chart.Tick
	for v := 0; v <= top; v += step {
		ticks = append(ticks, chart.Tick{Value: float64(v), Label: strconv.Itoa(v)})
	}
	if last := ticks[len(ticks)-1].Value; int(last) != top {
		ticks = append(ticks, chart.Tick{Value: float64(top), Label: strconv.Itoa(top)})
	}
	return ticks
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Min(math.Max(v, lo), hi)
}
