package sweep_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/relab/fedwalk/logging"
	"github.com/relab/fedwalk/profile"
	"github.com/relab/fedwalk/sweep"
	"github.com/relab/fedwalk/walk"
	"github.com/relab/fedwalk/wire"
	"golang.org/x/sync/errgroup"
)

type counterModel struct{ params []float32 }

func (m *counterModel) Parameters() []float32 { return append([]float32(nil), m.params...) }

func (m *counterModel) SetParameters(p []float32) error {
	copy(m.params, p)
	return nil
}

func (m *counterModel) Step([]int) (float64, error) {
	for i := range m.params {
		m.params[i]++
	}
	return 1, nil
}

func counterFactory(features int) sweep.Factory {
	return sweep.FactoryFunc(func(profile.TrainingParams, uint64) (sweep.Run, error) {
		m := &counterModel{params: make([]float32, features+1)}
		return sweep.Run{Model: m, Optimizer: m, DatasetSize: 4, Features: features}, nil
	})
}

func testCatalog(t *testing.T) *profile.Catalog {
	t.Helper()
	c, err := profile.NewCatalog(profile.Profile{
		Epsilon: 1,
		Delta:   1e-5,
		Hyperparameters: profile.Hyperparameters{
			"learning_rate": "0.1", "noise_multiplier": "1.0", "max_grad_norm": "1.0", "sample_rate": "1.0",
			"batches_per_round": "1", "fl_rounds": "2", "genes_selection": "None",
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func runBoth(t *testing.T, server, client sweep.Config) (serverResults, clientResults []sweep.Result, serverErr, clientErr error) {
	t.Helper()
	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	s, err := sweep.New(server)
	if err != nil {
		t.Fatal(err)
	}
	c, err := sweep.New(client)
	if err != nil {
		t.Fatal(err)
	}
	var g errgroup.Group
	g.Go(func() error {
		serverResults, serverErr = s.Run(context.Background(), serverConn)
		return nil
	})
	g.Go(func() error {
		clientResults, clientErr = c.Run(context.Background(), clientConn)
		return nil
	})
	_ = g.Wait()
	return
}

func configs(t *testing.T, factory sweep.Factory, budgets []sweep.Budget) (server, client sweep.Config) {
	server = sweep.Config{
		Role:      walk.Server,
		Budgets:   budgets,
		Catalog:   testCatalog(t),
		Factory:   factory,
		Seed:      141,
		OutputDir: t.TempDir(),
		Logger:    logging.Nop(),
	}
	client = server
	client.Role = walk.Client
	client.Seed = 42
	client.OutputDir = t.TempDir()
	return server, client
}

func TestSweepSkipsExceededBudgets(t *testing.T) {
	budgets := sweep.Budgets([]float64{0.5, 2}, []float64{0, 1e-5})
	server, client := configs(t, counterFactory(3), budgets)

	serverResults, clientResults, serverErr, clientErr := runBoth(t, server, client)
	if serverErr != nil || clientErr != nil {
		t.Fatalf("server: %v, client: %v", serverErr, clientErr)
	}
	if len(serverResults) != 4 || len(clientResults) != 4 {
		t.Fatalf("results: got: %d and %d, want: 4", len(serverResults), len(clientResults))
	}
	for i, res := range serverResults {
		trained := res.Epsilon == 2 && res.Delta == 1e-5
		if (res.Skipped == "") != trained || (clientResults[i].Skipped == "") != trained {
			t.Errorf("budget %v/%v: server skipped %q, client skipped %q", res.Epsilon, res.Delta, res.Skipped, clientResults[i].Skipped)
		}
	}

	name := sweep.ArtifactName(sweep.Budget{Epsilon: 2, Delta: 1e-5}, 3)
	if name != "model-eps2-delta1e-05-sizemodel3.bin" {
		t.Errorf("artifact name: got: %q", name)
	}
	got, err := wire.ReadFile(filepath.Join(server.OutputDir, name))
	if err != nil {
		t.Fatal(err)
	}
	// fl_rounds=2, batches_per_round=1: four updates in total
	if diff := cmp.Diff([]float32{4, 4, 4, 4}, got); diff != "" {
		t.Errorf("artifact mismatch (-want +got):\n%s", diff)
	}
	if _, err := os.Stat(filepath.Join(server.OutputDir, sweep.DefaultArtifactName)); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("unrenamed artifact left behind: %v", err)
	}
	if entries, _ := os.ReadDir(client.OutputDir); len(entries) != 0 {
		t.Errorf("client wrote %d files", len(entries))
	}

	m, err := sweep.ReadManifest(server.OutputDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Results) != 4 || m.Role != "server" {
		t.Fatalf("manifest: got: %+v", m)
	}
	last := m.Results[3]
	if last.Params == nil || last.Params.FLRounds != 2 || last.Steps != 2 || last.Artifact == "" {
		t.Errorf("manifest entry: got: %+v", last)
	}
}

func TestSweepAbortsOnOtherErrors(t *testing.T) {
	errData := errors.New("no data")
	factory := sweep.FactoryFunc(func(profile.TrainingParams, uint64) (sweep.Run, error) {
		return sweep.Run{}, errData
	})
	budgets := sweep.Budgets([]float64{2, 3}, []float64{1e-5})
	server, client := configs(t, factory, budgets)

	serverResults, clientResults, serverErr, clientErr := runBoth(t, server, client)
	if !errors.Is(serverErr, errData) || !errors.Is(clientErr, errData) {
		t.Fatalf("got: server %v, client %v, want: %v", serverErr, clientErr, errData)
	}
	if len(serverResults) != 1 || len(clientResults) != 1 {
		t.Errorf("results: got: %d and %d, want: 1", len(serverResults), len(clientResults))
	}
}

func TestSweepCanceled(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()
	server, _ := configs(t, counterFactory(1), sweep.Budgets([]float64{2}, []float64{1e-5}))
	s, err := sweep.New(server)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := s.Run(ctx, serverConn)
		done <- err
	}()
	// the server blocks waiting for the client's first vector
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("got: %v, want: %v", err, context.Canceled)
	}
}

func TestNewRejects(t *testing.T) {
	server, _ := configs(t, counterFactory(1), nil)
	tests := []struct {
		name   string
		modify func(*sweep.Config)
		want   error
	}{
		{name: "Strategy", modify: func(c *sweep.Config) { c.Strategy = "fedavg" }, want: walk.ErrUnknownStrategy},
		{name: "Role", modify: func(c *sweep.Config) { c.Role = "observer" }},
		{name: "Catalog", modify: func(c *sweep.Config) { c.Catalog = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := server
			tt.modify(&cfg)
			_, err := sweep.New(cfg)
			if err == nil {
				t.Fatal("New() succeeded, want error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("got: %v, want: %v", err, tt.want)
			}
		})
	}
}

func TestBudgetsOrder(t *testing.T) {
	got := sweep.Budgets([]float64{1, 2}, []float64{0, 1e-5})
	want := []sweep.Budget{{1, 0}, {1, 1e-5}, {2, 0}, {2, 1e-5}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Budgets() mismatch (-want +got):\n%s", diff)
	}
}

func writeTSV(t *testing.T, dir, name string, samples int, offset float64) string {
	t.Helper()
	var sb strings.Builder
	sb.WriteString("Hybridization REF")
	for s := 0; s < samples; s++ {
		fmt.Fprintf(&sb, "\t%s%d", name, s)
	}
	sb.WriteString("\n")
	for _, gene := range []string{"BRCA1", "ESR1", "TP53"} {
		sb.WriteString(gene)
		for s := 0; s < samples; s++ {
			fmt.Fprintf(&sb, "\t%v", offset+float64(s%3)/10)
		}
		sb.WriteString("\n")
	}
	path := filepath.Join(dir, name+".tsv")
	if err := os.WriteFile(path, []byte(sb.String()), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSweepLogisticRegression(t *testing.T) {
	factory := func() sweep.Factory {
		dir := t.TempDir()
		return sweep.NewLogisticFactory(sweep.DataSource{
			TumorPath:   writeTSV(t, dir, "tumor", 8, 1),
			NormalPath:  writeTSV(t, dir, "normal", 8, -1),
			ShuffleSeed: 42,
		})
	}
	budgets := sweep.Budgets([]float64{1}, []float64{1e-5})
	server, client := configs(t, factory(), budgets)
	client.Factory = factory()

	serverResults, _, serverErr, clientErr := runBoth(t, server, client)
	if serverErr != nil || clientErr != nil {
		t.Fatalf("server: %v, client: %v", serverErr, clientErr)
	}
	if len(serverResults) != 1 || serverResults[0].Features != 3 {
		t.Fatalf("results: got: %+v", serverResults)
	}
	params, err := wire.ReadFile(serverResults[0].Artifact)
	if err != nil {
		t.Fatal(err)
	}
	if len(params) != 4 {
		t.Errorf("artifact parameters: got: %d, want: 4", len(params))
	}
}
