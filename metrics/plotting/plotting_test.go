package plotting

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/relab/fedwalk/logging"
	"github.com/relab/fedwalk/metrics"
	"github.com/relab/fedwalk/walk"
)

func writeMeasurements(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	out, err := metrics.NewJSONLogger(&buf, logging.Nop())
	if err != nil {
		t.Fatal(err)
	}
	r := metrics.NewRecorder(out, logging.Nop())
	for _, exp := range []metrics.Experiment{{ID: "a", Epsilon: 1, Delta: 1e-5}, {ID: "b", Epsilon: 3, Delta: 1e-5}} {
		server := r.Observer(exp)
		client := r.Observer(exp)
		for step := 0; step < 3; step++ {
			server(walk.StepInfo{Role: walk.Server, Step: step, Loss: 1 / float64(2*step+1), Duration: time.Millisecond})
			client(walk.StepInfo{Role: walk.Client, Step: step, Loss: 1 / float64(2*step+2), Duration: time.Millisecond})
		}
	}
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestReadAndPlotLoss(t *testing.T) {
	p := NewLossPlot()
	if err := NewReader(bytes.NewReader(writeMeasurements(t)), p).ReadAll(); err != nil {
		t.Fatal(err)
	}
	if p.Len() != 4 {
		t.Fatalf("series: got: %d, want: 4", p.Len())
	}
	client := p.series[seriesKey{experiment: "a", participant: "client"}]
	if len(client) != 3 {
		t.Fatalf("client points: got: %d, want: 3", len(client))
	}
	for i, pt := range client {
		if want := float64(2*i + 2); pt.x != want || pt.y != 1/want {
			t.Errorf("point %d: got: (%v, %v), want: (%v, %v)", i, pt.x, pt.y, want, 1/want)
		}
	}

	filename := filepath.Join(t.TempDir(), "loss.png")
	if err := p.Plot(filename); err != nil {
		t.Fatal(err)
	}
	if fi, err := os.Stat(filename); err != nil || fi.Size() == 0 {
		t.Errorf("plot not written: %v", err)
	}
}

func TestReaderErrors(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{name: "NotArray", json: `{}`},
		{name: "Unterminated", json: `[`},
		{name: "NotAny", json: `[{"foo": 1}]`},
		{name: "WrongType", json: `[{"@type": "type.googleapis.com/google.protobuf.Duration", "value": "1s"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := NewReader(strings.NewReader(tt.json), NewLossPlot()).ReadAll(); err == nil {
				t.Error("ReadAll() succeeded, want error")
			}
		})
	}
}

func TestWalkPosition(t *testing.T) {
	// updates alternate server, client, server, ...
	want := []float64{1, 2, 3, 4, 5, 6}
	var got []float64
	for step := 0; step < 3; step++ {
		got = append(got, WalkPosition("server", step), WalkPosition("client", step))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: got: %v, want: %v", i, got[i], want[i])
		}
	}
}
