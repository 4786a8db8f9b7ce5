package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/pneustab/internal/dynamo"
)

type ExportData struct {
	RunMetadata
	Times    []float64   `json:"times"`
	States   [][]float64 `json:"states"`
	Controls [][]float64 `json:"controls"`
}

func newExportData(meta RunMetadata, result *dynamo.Result) ExportData {
	data := ExportData{
		RunMetadata: meta,
		Times:       result.Times,
		States:      make([][]float64, len(result.States)),
		Controls:    make([][]float64, len(result.Controls)),
	}
	for i, s := range result.States {
		data.States[i] = s
	}
	for i, c := range result.Controls {
		data.Controls[i] = c
	}
	return data
}

// ExportJSON writes the run and its full trajectory as indented JSON.
func ExportJSON(w io.Writer, meta RunMetadata, result *dynamo.Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(newExportData(meta, result))
}

func ExportJSONFile(path string, meta RunMetadata, result *dynamo.Result) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return ExportJSON(file, meta, result)
}

// ResultFromStates rebuilds a result from rows read by LoadStates. The
// first len(meta.Columns) values of each row are the state.
func ResultFromStates(meta RunMetadata, states [][]float64, times []float64) *dynamo.Result {
	n := len(meta.Columns)
	res := &dynamo.Result{
		Columns:     meta.Columns,
		Times:       times,
		States:      make([]dynamo.State, len(states)),
		Controls:    make([]dynamo.Control, 0, len(states)),
		Metrics:     meta.Metrics,
		EnergyDrift: meta.EnergyDrift,
		StepsTaken:  meta.Steps,
	}
	for i, row := range states {
		if n == 0 || n > len(row) {
			res.States[i] = dynamo.State(row)
			continue
		}
		res.States[i] = dynamo.State(row[:n])
		if i < len(states)-1 && len(row) > n {
			res.Controls = append(res.Controls, dynamo.Control(row[n:]))
		}
	}
	return res
}
