package schema

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bawdo/oql/pipeline"
)

// File is the on-disk schema document. JSON documents decode too, since
// JSON is valid YAML.
//
//	tables:
//	  - table: apache_logs
//	    description: Web server access logs
//	    columns: [timestamp, severity, ip, msg]
type File struct {
	Tables pipeline.Tables `yaml:"tables" json:"tables"`
}

// Parse decodes a schema document. A bare list of tables is accepted as well.
func Parse(data []byte) (pipeline.Tables, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		var list pipeline.Tables
		if listErr := yaml.Unmarshal(data, &list); listErr != nil {
			return nil, fmt.Errorf("parse schema: %w", err)
		}
		f.Tables = list
	}
	for i, t := range f.Tables {
		if t.Table == "" {
			return nil, fmt.Errorf("parse schema: table %d has no name", i+1)
		}
	}
	return f.Tables, nil
}

// LoadFile reads and decodes a schema file.
func LoadFile(path string) (pipeline.Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// FileSource serves the contents of a schema file, rereading it on every
// discovery. Wrap it in a Cache to avoid the rereads.
func FileSource(path string) Source {
	return SourceFunc(func(context.Context, string) (pipeline.Tables, error) {
		return LoadFile(path)
	})
}
