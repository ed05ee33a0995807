package dataset

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Gene signatures that can be selected by name.
const (
	Rotterdam = "rotterdam"
	Citbcmst  = "citbcmst"
	Union     = "union"
)

// ReadGeneList reads one gene symbol per line. Lines listing alternatives
// separated by " /// " or "-" contribute every alternative.
func ReadGeneList(r io.Reader) ([]string, error) {
	var genes []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		for _, alt := range strings.Split(line, " /// ") {
			for _, g := range strings.Split(alt, "-") {
				if g = strings.TrimSpace(g); g != "" {
					genes = append(genes, g)
				}
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("dataset: failed to read gene list: %w", err)
	}
	return genes, nil
}

// SignaturePath returns the gene list file of a named signature in dir.
func SignaturePath(dir, name string) string {
	return filepath.Join(dir, fmt.Sprintf("genelist_%s_GeneSymbolsForTCGA.txt", name))
}

// Signature returns the genes of a named signature whose lists are stored in
// dir. An empty name selects no signature and returns nil.
func Signature(dir, name string) ([]string, error) {
	switch name {
	case "":
		return nil, nil
	case Rotterdam, Citbcmst:
		f, err := os.Open(SignaturePath(dir, name))
		if err != nil {
			return nil, fmt.Errorf("dataset: %w", err)
		}
		defer f.Close()
		return ReadGeneList(f)
	case Union:
		a, err := Signature(dir, Rotterdam)
		if err != nil {
			return nil, err
		}
		b, err := Signature(dir, Citbcmst)
		if err != nil {
			return nil, err
		}
		return union(a, b), nil
	default:
		return nil, fmt.Errorf("dataset: unknown gene signature %q", name)
	}
}
