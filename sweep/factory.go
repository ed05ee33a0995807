package sweep

import (
	"fmt"
	"sync"

	"github.com/relab/fedwalk/dataset"
	"github.com/relab/fedwalk/dpsgd"
	"github.com/relab/fedwalk/model"
	"github.com/relab/fedwalk/profile"
	"golang.org/x/exp/rand"
)

// DataSource locates a participant's local training data.
type DataSource struct {
	TumorPath  string
	NormalPath string
	// GenesDir holds the gene signature lists named by genes_selection.
	GenesDir    string
	ShuffleSeed uint64
}

// LogisticFactory prepares logistic regression runs trained with DP-SGD on
// the local dataset. Datasets are loaded once per gene selection.
type LogisticFactory struct {
	src DataSource

	mut      sync.Mutex
	tumor    *dataset.Matrix
	normal   *dataset.Matrix
	datasets map[string]*dataset.Dataset
}

// NewLogisticFactory returns a factory reading from src.
func NewLogisticFactory(src DataSource) *LogisticFactory {
	return &LogisticFactory{src: src, datasets: make(map[string]*dataset.Dataset)}
}

// Dataset returns the training set for a gene selection.
func (f *LogisticFactory) Dataset(genesSelection string) (*dataset.Dataset, error) {
	f.mut.Lock()
	defer f.mut.Unlock()

	if d, ok := f.datasets[genesSelection]; ok {
		return d, nil
	}
	if f.tumor == nil {
		var err error
		if f.tumor, err = dataset.ReadMatrixFile(f.src.TumorPath); err != nil {
			return nil, err
		}
		if f.normal, err = dataset.ReadMatrixFile(f.src.NormalPath); err != nil {
			f.tumor = nil
			return nil, err
		}
	}
	genes, err := dataset.Signature(f.src.GenesDir, genesSelection)
	if err != nil {
		return nil, err
	}
	d := dataset.Training(f.tumor, f.normal, dataset.Options{Genes: genes, Seed: f.src.ShuffleSeed})
	if d.Len() == 0 || len(d.Genes) == 0 {
		return nil, fmt.Errorf("sweep: empty training set for gene selection %q", genesSelection)
	}
	f.datasets[genesSelection] = d
	return d, nil
}

// NewRun implements Factory.
func (f *LogisticFactory) NewRun(params profile.TrainingParams, seed uint64) (Run, error) {
	d, err := f.Dataset(params.GenesSelection)
	if err != nil {
		return Run{}, err
	}
	m := model.NewLogistic(len(d.Genes), rand.NewSource(seed+2))
	opt, err := dpsgd.New(dpsgd.Config{
		LearningRate:    params.LearningRate,
		NoiseMultiplier: params.NoiseMultiplier,
		MaxGradNorm:     params.MaxGradNorm,
		SampleRate:      params.SampleRate,
		Seed:            seed + 1,
	}, m, d)
	if err != nil {
		return Run{}, err
	}
	return Run{Model: m, Optimizer: opt, DatasetSize: d.Len(), Features: len(d.Genes)}, nil
}
