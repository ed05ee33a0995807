// Package evaluate runs trained models on test samples and scores the
// predictions against known labels.
package evaluate

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/relab/fedwalk/dataset"
	"github.com/relab/fedwalk/model"
	"gonum.org/v1/gonum/stat"
)

// PatientColumn is the header of the first column of a predictions file.
const PatientColumn = "patient_id"

// PredColumn is the column written by Predict.
const PredColumn = "pred"

// Predictions holds one or more columns of binary predictions per patient.
type Predictions struct {
	Patients []string
	Columns  []string
	// Values[i][j] is the prediction for patient i in column j.
	Values [][]int
}

// Predict classifies the samples of d with m.
func Predict(m *model.Logistic, d *dataset.Dataset) (*Predictions, error) {
	pred, err := m.Predict(d.X)
	if err != nil {
		return nil, err
	}
	p := &Predictions{
		Patients: append([]string(nil), d.Samples...),
		Columns:  []string{PredColumn},
		Values:   make([][]int, len(pred)),
	}
	for i, v := range pred {
		p.Values[i] = []int{v}
	}
	return p, nil
}

// WriteCSV writes p as comma separated values with a header row.
func (p *Predictions) WriteCSV(w io.Writer) error {
	wr := csv.NewWriter(w)
	if err := wr.Write(append([]string{PatientColumn}, p.Columns...)); err != nil {
		return err
	}
	record := make([]string, len(p.Columns)+1)
	for i, patient := range p.Patients {
		record[0] = patient
		for j, v := range p.Values[i] {
			record[j+1] = strconv.Itoa(v)
		}
		if err := wr.Write(record); err != nil {
			return err
		}
	}
	wr.Flush()
	return wr.Error()
}

// ReadPredictions reads a file written by WriteCSV.
func ReadPredictions(r io.Reader) (*Predictions, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	if len(records) == 0 || len(records[0]) < 2 || records[0][0] != PatientColumn {
		return nil, fmt.Errorf("evaluate: predictions need a %s column and at least one prediction column", PatientColumn)
	}
	p := &Predictions{Columns: records[0][1:]}
	for n, rec := range records[1:] {
		row := make([]int, len(rec)-1)
		for j, s := range rec[1:] {
			v, err := parseLabel(s)
			if err != nil {
				return nil, fmt.Errorf("evaluate: line %d: %w", n+2, err)
			}
			row[j] = v
		}
		p.Patients = append(p.Patients, rec[0])
		p.Values = append(p.Values, row)
	}
	return p, nil
}

// ReadLabels reads tab-separated labels laid out with one column per patient:
// the first row names the patients and the second holds their labels.
func ReadLabels(r io.Reader) (map[string]int, error) {
	rd := csv.NewReader(r)
	rd.Comma = '\t'
	records, err := rd.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	if len(records) < 2 {
		return nil, errors.New("evaluate: labels need a header row and a label row")
	}
	labels := make(map[string]int, len(records[0]))
	for j, patient := range records[0] {
		v, err := parseLabel(records[1][j])
		if err != nil {
			return nil, fmt.Errorf("evaluate: label of %s: %w", patient, err)
		}
		labels[patient] = v
	}
	return labels, nil
}

func parseLabel(s string) (int, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if f != 0 && f != 1 {
		return 0, fmt.Errorf("%v is not a binary label", s)
	}
	return int(f), nil
}

// Accuracy returns the fraction of correct predictions of every column of p.
// Every patient of p must have a label.
func Accuracy(labels map[string]int, p *Predictions) ([]float64, error) {
	if len(p.Patients) == 0 {
		return nil, errors.New("evaluate: no predictions")
	}
	correct := make([]int, len(p.Columns))
	for i, patient := range p.Patients {
		want, ok := labels[patient]
		if !ok {
			return nil, fmt.Errorf("evaluate: no label for patient %s", patient)
		}
		for j, v := range p.Values[i] {
			if v == want {
				correct[j]++
			}
		}
	}
	scores := make([]float64, len(correct))
	for j, c := range correct {
		scores[j] = float64(c) / float64(len(p.Patients))
	}
	return scores, nil
}

// Summary returns the mean and population standard deviation of scores.
func Summary(scores []float64) (mean, std float64) {
	if len(scores) == 1 {
		return scores[0], 0
	}
	return stat.PopMeanStdDev(scores, nil)
}

// ResultsName returns the name of the predictions file of a model artifact,
// e.g. results-eps10-delta1e-05.csv for model-eps10-delta1e-05-sizemodel69.bin.
func ResultsName(artifact string) string {
	name := filepath.Base(artifact)
	if i := strings.Index(name, "-sizemodel"); i >= 0 {
		name = name[:i]
	} else {
		name = strings.TrimSuffix(name, filepath.Ext(name))
	}
	return strings.ReplaceAll(name, "model", "results") + ".csv"
}
