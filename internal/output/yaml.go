package output

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/prevostgo/prevostgo/internal/inventory"
)

type yamlWriter struct {
	w io.Writer
}

func (w *yamlWriter) WriteAll(records []inventory.Record) error {
	enc := yaml.NewEncoder(w.w)
	enc.SetIndent(2)
	if err := enc.Encode(records); err != nil {
		return err
	}
	return enc.Close()
}
