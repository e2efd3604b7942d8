package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/javajack/xlform"
)

// mappingFile is the YAML layout of a mapping set:
//
//	cells:
//	  - sheet_name: Sheet1
//	    cell_ref: B2
//	    label: Total
//	    data_type: number
type mappingFile struct {
	Cells []xlform.MappedCell `yaml:"cells"`
}

// valuesFile is the YAML layout of values to fill.
type valuesFile struct {
	Values xlform.ValueSet `yaml:"values"`
}

func readWorkbook(path string) (*xlform.Workbook, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "read workbook", err)
	}
	wb, err := xlform.LoadWorkbook(data)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, path, err)
	}
	return wb, data, nil
}

func readYAML(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "read "+path, err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("parse %s", path), err)
	}
	return nil
}

func readMapping(path string) ([]xlform.MappedCell, error) {
	if path == "" {
		return nil, nil
	}
	var f mappingFile
	if err := readYAML(path, &f); err != nil {
		return nil, err
	}
	return f.Cells, nil
}

func readValues(path string) (xlform.ValueSet, error) {
	var f valuesFile
	if err := readYAML(path, &f); err != nil {
		return nil, err
	}
	return f.Values, nil
}
