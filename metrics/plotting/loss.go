package plotting

import (
	"fmt"
	"sort"

	"github.com/relab/fedwalk/metrics"
	"go-hep.org/x/hep/hplot"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"google.golang.org/protobuf/types/known/structpb"
)

type seriesKey struct {
	experiment  string
	participant string
}

// LossPlot plots the training loss of each participant against the position
// of the step in the walk.
type LossPlot struct {
	labels map[string]string
	series map[seriesKey]xyer
}

// NewLossPlot returns an empty loss plot.
func NewLossPlot() *LossPlot {
	return &LossPlot{
		labels: make(map[string]string),
		series: make(map[seriesKey]xyer),
	}
}

// Add adds a step measurement. Measurements lacking a loss are ignored.
func (p *LossPlot) Add(m *structpb.Struct) {
	f := m.GetFields()
	loss, ok := f[metrics.FieldLoss]
	if !ok {
		return
	}
	key := seriesKey{
		experiment:  f[metrics.FieldExperiment].GetStringValue(),
		participant: f[metrics.FieldParticipant].GetStringValue(),
	}
	if _, ok := p.labels[key.experiment]; !ok {
		p.labels[key.experiment] = fmt.Sprintf("eps=%v delta=%v",
			f[metrics.FieldEpsilon].GetNumberValue(), f[metrics.FieldDelta].GetNumberValue())
	}
	p.series[key] = append(p.series[key], point{
		x: WalkPosition(key.participant, int(f[metrics.FieldStep].GetNumberValue())),
		y: loss.GetNumberValue(),
	})
}

// WalkPosition returns the 1-based index of the parameter update produced by
// a participant's local step: the server produces the odd updates and the
// client the even ones.
func WalkPosition(participant string, step int) float64 {
	if participant == "client" {
		return float64(2*step + 2)
	}
	return float64(2*step + 1)
}

// Len returns the number of series in the plot.
func (p *LossPlot) Len() int {
	return len(p.series)
}

// Plot saves the plot to filename. The format follows the file extension.
func (p *LossPlot) Plot(filename string) error {
	plt := plot.New()
	addGrid(plt)

	plt.Title.Text = "Training loss"
	plt.X.Label.Text = "Walk update"
	plt.X.Tick.Marker = hplot.Ticks{N: 10}
	plt.Y.Label.Text = "Loss (binary cross-entropy)"
	plt.Y.Tick.Marker = hplot.Ticks{N: 10}

	keys := make([]seriesKey, 0, len(p.series))
	for k := range p.series {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].experiment != keys[j].experiment {
			return p.labels[keys[i].experiment] < p.labels[keys[j].experiment]
		}
		return keys[i].participant < keys[j].participant
	})

	var lines []any
	for _, k := range keys {
		pts := p.series[k]
		sort.Slice(pts, func(i, j int) bool { return pts[i].x < pts[j].x })
		lines = append(lines, fmt.Sprintf("%s %s", k.participant, p.labels[k.experiment]), pts)
	}
	if err := plotutil.AddLinePoints(plt, lines...); err != nil {
		return fmt.Errorf("failed to add line plot: %w", err)
	}
	if err := plt.Save(6*vg.Inch, 6*vg.Inch, filename); err != nil {
		return fmt.Errorf("failed to save plot: %w", err)
	}
	return nil
}
