package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/mat"
)

const tumorTSV = "Hybridization REF\tT1\tT2\n" +
	"BRCA1\t1.5\t2.5\n" +
	"TP53\tNA\t3\n"

const normalTSV = "Hybridization REF\tN1\n" +
	"TP53\t-1\n" +
	"ESR1\t4\n"

func mustMatrix(t *testing.T, s string) *Matrix {
	t.Helper()
	m, err := ReadMatrix(strings.NewReader(s))
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestReadMatrix(t *testing.T) {
	m := mustMatrix(t, tumorTSV)
	if diff := cmp.Diff([]string{"T1", "T2"}, m.Samples); diff != "" {
		t.Errorf("samples mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"BRCA1", "TP53"}, m.Genes); diff != "" {
		t.Errorf("genes mismatch (-want +got):\n%s", diff)
	}
	tests := []struct {
		sample int
		gene   string
		want   float64
	}{
		{0, "BRCA1", 1.5},
		{1, "BRCA1", 2.5},
		{0, "TP53", 0}, // missing
		{1, "TP53", 3},
		{0, "ESR1", 0}, // absent
	}
	for _, tt := range tests {
		if got := m.Value(tt.sample, tt.gene); got != tt.want {
			t.Errorf("Value(%d, %s): got: %v, want: %v", tt.sample, tt.gene, got, tt.want)
		}
	}
}

func TestReadMatrixErrors(t *testing.T) {
	tests := []struct {
		name string
		tsv  string
	}{
		{name: "Empty", tsv: ""},
		{name: "NoGeneColumn", tsv: "gene\tS1\nA\t1\n"},
		{name: "BadValue", tsv: "Hybridization REF\tS1\nA\tx\n"},
		{name: "DuplicateGene", tsv: "Hybridization REF\tS1\nA\t1\nA\t2\n"},
		{name: "Ragged", tsv: "Hybridization REF\tS1\tS2\nA\t1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadMatrix(strings.NewReader(tt.tsv)); err == nil {
				t.Error("ReadMatrix() succeeded, want error")
			}
		})
	}
}

func TestTraining(t *testing.T) {
	d := Training(mustMatrix(t, tumorTSV), mustMatrix(t, normalTSV), Options{Seed: DefaultSeed})
	if diff := cmp.Diff([]string{"BRCA1", "ESR1", "TP53"}, d.Genes); diff != "" {
		t.Errorf("genes mismatch (-want +got):\n%s", diff)
	}
	if d.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", d.Len())
	}
	want := map[string]struct {
		x []float64
		y float64
	}{
		"T1": {[]float64{1.5, 0, 0}, Tumor},
		"T2": {[]float64{2.5, 0, 3}, Tumor},
		"N1": {[]float64{0, 4, -1}, Normal},
	}
	for i, s := range d.Samples {
		x, y := d.Sample(i)
		w, ok := want[s]
		if !ok {
			t.Fatalf("unexpected sample %q", s)
		}
		if diff := cmp.Diff(w.x, x); diff != "" || y != w.y {
			t.Errorf("sample %s: x diff (-want +got):\n%s y: got: %v, want: %v", s, diff, y, w.y)
		}
		delete(want, s)
	}

	again := Training(mustMatrix(t, tumorTSV), mustMatrix(t, normalTSV), Options{Seed: DefaultSeed})
	if diff := cmp.Diff(d.Samples, again.Samples); diff != "" {
		t.Errorf("shuffle is not reproducible (-first +second):\n%s", diff)
	}
	if !mat.Equal(d.X, again.X) {
		t.Error("features differ between equal seeds")
	}
}

func TestTrainingGeneFilter(t *testing.T) {
	d := Training(mustMatrix(t, tumorTSV), mustMatrix(t, normalTSV), Options{Genes: []string{"TP53", "BRCA1", "MYC"}})
	if diff := cmp.Diff([]string{"BRCA1", "TP53"}, d.Genes); diff != "" {
		t.Errorf("genes mismatch (-want +got):\n%s", diff)
	}
	if _, c := d.X.Dims(); c != 2 {
		t.Errorf("columns: got: %d, want: 2", c)
	}
}

func TestTest(t *testing.T) {
	d := Test(mustMatrix(t, normalTSV), []string{"BRCA1", "TP53"})
	if diff := cmp.Diff([]string{"N1"}, d.Samples); diff != "" {
		t.Errorf("samples mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{0, -1}, d.X.RawRowView(0)); diff != "" {
		t.Errorf("row mismatch (-want +got):\n%s", diff)
	}
}

func TestFeatures(t *testing.T) {
	m := mustMatrix(t, normalTSV)
	tests := []struct {
		name      string
		signature []string
		want      []string
	}{
		{name: "All", want: []string{"ESR1", "TP53"}},
		{name: "Signature", signature: []string{"TP53", "BRCA1"}, want: []string{"TP53"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Features(m, tt.signature)); diff != "" {
				t.Errorf("Features() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReadGeneList(t *testing.T) {
	genes, err := ReadGeneList(strings.NewReader("BRCA1\n\nHLA-DRB1 /// TP53\n ESR1 \n"))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"BRCA1", "HLA", "DRB1", "TP53", "ESR1"}
	if diff := cmp.Diff(want, genes); diff != "" {
		t.Errorf("ReadGeneList() mismatch (-want +got):\n%s", diff)
	}
}

func TestSignature(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		if err := os.WriteFile(SignaturePath(dir, name), []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	write(Rotterdam, "B\nA\n")
	write(Citbcmst, "C\nA\n")

	tests := []struct {
		name string
		want []string
	}{
		{name: "", want: nil},
		{name: Rotterdam, want: []string{"B", "A"}},
		{name: Union, want: []string{"A", "B", "C"}},
	}
	for _, tt := range tests {
		got, err := Signature(dir, tt.name)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("Signature(%q) mismatch (-want +got):\n%s", tt.name, diff)
		}
	}
	if _, err := Signature(dir, "pam50"); err == nil {
		t.Error("Signature accepted an unknown name")
	}
	if _, err := Signature(filepath.Join(dir, "missing"), Rotterdam); err == nil {
		t.Error("Signature succeeded without a gene list file")
	}
}
