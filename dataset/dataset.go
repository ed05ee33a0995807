// Package dataset loads gene expression matrices into labeled training sets.
//
// Input files are tab-separated with one row per gene and one column per
// sample. The first column, GeneColumn, holds the gene names.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// GeneColumn is the header of the column holding the gene names.
const GeneColumn = "Hybridization REF"

// DefaultSeed is the seed used to shuffle training sets.
const DefaultSeed = 42

// Labels of the two sample classes.
const (
	Normal = 0
	Tumor  = 1
)

// Matrix is a gene expression matrix with one row per sample. Missing
// values are NaN.
type Matrix struct {
	Samples []string
	Genes   []string
	values  [][]float64 // samples x genes
	index   map[string]int
}

// Value returns the expression of gene in sample i, or 0 if the gene is
// absent or the value is missing.
func (m *Matrix) Value(i int, gene string) float64 {
	j, ok := m.index[gene]
	if !ok {
		return 0
	}
	v := m.values[i][j]
	if math.IsNaN(v) {
		return 0
	}
	return v
}

// ReadMatrixFile reads a gene expression file.
func ReadMatrixFile(path string) (*Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}
	defer f.Close()
	m, err := ReadMatrix(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// ReadMatrix reads a tab-separated gene expression matrix and transposes it
// to samples x genes.
func ReadMatrix(r io.Reader) (*Matrix, error) {
	rd := csv.NewReader(r)
	rd.Comma = '\t'
	rd.LazyQuotes = true

	header, err := rd.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("dataset: empty matrix")
		}
		return nil, fmt.Errorf("dataset: failed to read header: %w", err)
	}
	geneCol := -1
	var samples []string
	var sampleCols []int
	for i, col := range header {
		if col == GeneColumn {
			geneCol = i
			continue
		}
		samples = append(samples, col)
		sampleCols = append(sampleCols, i)
	}
	if geneCol < 0 {
		return nil, fmt.Errorf("dataset: header lacks %q", GeneColumn)
	}

	m := &Matrix{
		Samples: samples,
		values:  make([][]float64, len(samples)),
		index:   make(map[string]int),
	}
	for line := 2; ; line++ {
		record, err := rd.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("dataset: %w", err)
		}
		gene := record[geneCol]
		if _, dup := m.index[gene]; dup {
			return nil, fmt.Errorf("dataset: line %d: duplicate gene %q", line, gene)
		}
		m.index[gene] = len(m.Genes)
		m.Genes = append(m.Genes, gene)
		for s, col := range sampleCols {
			v, err := parseValue(record[col])
			if err != nil {
				return nil, fmt.Errorf("dataset: line %d, sample %q: %w", line, samples[s], err)
			}
			m.values[s] = append(m.values[s], v)
		}
	}
	return m, nil
}

func parseValue(s string) (float64, error) {
	switch s = strings.TrimSpace(s); strings.ToLower(s) {
	case "", "na", "nan", "null":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

// Dataset is a labeled training or test set with one row per sample.
type Dataset struct {
	Samples []string
	Genes   []string
	X       *mat.Dense
	Y       []float64
}

// Len returns the number of samples.
func (d *Dataset) Len() int {
	return len(d.Samples)
}

// Sample returns the features and the label of sample i. The features alias
// the dataset.
func (d *Dataset) Sample(i int) ([]float64, float64) {
	return d.X.RawRowView(i), d.Y[i]
}

// Options control how training sets are built.
type Options struct {
	// Genes restricts the features to the given genes, if not empty.
	Genes []string
	Seed  uint64
}

// Training labels the tumor samples 1 and the normal samples 0 and shuffles
// them. The features are the union of the genes of both matrices in sorted
// order, intersected with opts.Genes if given. Missing values become 0.
func Training(tumor, normal *Matrix, opts Options) *Dataset {
	genes := union(tumor.Genes, normal.Genes)
	if len(opts.Genes) > 0 {
		genes = intersect(genes, opts.Genes)
	}

	type row struct {
		matrix *Matrix
		index  int
		label  float64
	}
	rows := make([]row, 0, len(tumor.Samples)+len(normal.Samples))
	for i := range tumor.Samples {
		rows = append(rows, row{tumor, i, Tumor})
	}
	for i := range normal.Samples {
		rows = append(rows, row{normal, i, Normal})
	}
	rnd := rand.New(rand.NewSource(opts.Seed))
	rnd.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })

	d := &Dataset{
		Samples: make([]string, len(rows)),
		Genes:   genes,
		Y:       make([]float64, len(rows)),
	}
	data := make([]float64, len(rows)*len(genes))
	for i, r := range rows {
		d.Samples[i] = r.matrix.Samples[r.index]
		d.Y[i] = r.label
		for j, g := range genes {
			data[i*len(genes)+j] = r.matrix.Value(r.index, g)
		}
	}
	if len(rows) > 0 && len(genes) > 0 {
		d.X = mat.NewDense(len(rows), len(genes), data)
	} else {
		d.X = &mat.Dense{}
	}
	return d
}

// Test returns the samples of m in file order over the given genes, without
// labels. Missing genes and values become 0.
func Test(m *Matrix, genes []string) *Dataset {
	d := &Dataset{
		Samples: append([]string(nil), m.Samples...),
		Genes:   genes,
		X:       &mat.Dense{},
	}
	if len(m.Samples) == 0 || len(genes) == 0 {
		return d
	}
	d.X = mat.NewDense(len(m.Samples), len(genes), nil)
	for i := range m.Samples {
		for j, g := range genes {
			d.X.Set(i, j, m.Value(i, g))
		}
	}
	return d
}

// LoadTraining reads the tumor and normal files and builds a training set.
func LoadTraining(tumorPath, normalPath string, opts Options) (*Dataset, error) {
	tumor, err := ReadMatrixFile(tumorPath)
	if err != nil {
		return nil, err
	}
	normal, err := ReadMatrixFile(normalPath)
	if err != nil {
		return nil, err
	}
	d := Training(tumor, normal, opts)
	if d.Len() == 0 {
		return nil, fmt.Errorf("dataset: no samples in %s and %s", tumorPath, normalPath)
	}
	if len(d.Genes) == 0 {
		return nil, fmt.Errorf("dataset: no genes selected from %s and %s", tumorPath, normalPath)
	}
	return d, nil
}

func union(a, b []string) []string {
	set := make(map[string]bool, len(a)+len(b))
	for _, g := range a {
		set[g] = true
	}
	for _, g := range b {
		set[g] = true
	}
	out := make([]string, 0, len(set))
	for g := range set {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// intersect keeps the elements of sorted that are in keep.
func intersect(sorted, keep []string) []string {
	set := make(map[string]bool, len(keep))
	for _, g := range keep {
		set[g] = true
	}
	var out []string
	for _, g := range sorted {
		if set[g] {
			out = append(out, g)
		}
	}
	return out
}

// Features returns the genes of m in sorted order, restricted to signature
// if it is not empty. It selects test features the same way Training does.
func Features(m *Matrix, signature []string) []string {
	genes := append([]string(nil), m.Genes...)
	sort.Strings(genes)
	if len(signature) > 0 {
		genes = intersect(genes, signature)
	}
	return genes
}
