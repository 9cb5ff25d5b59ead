package output

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/prevostgo/prevostgo/internal/inventory"
)

type jsonWriter struct {
	w      io.Writer
	pretty bool
}

func (w *jsonWriter) WriteAll(records []inventory.Record) error {
	var (
		data []byte
		err  error
	)
	if w.pretty {
		data, err = json.MarshalIndent(records, "", "  ")
	} else {
		data, err = json.Marshal(records)
	}
	if err != nil {
		return err
	}
	if _, err := w.w.Write(data); err != nil {
		return err
	}
	_, err = io.WriteString(w.w, "\n")
	return err
}

type jsonlWriter struct {
	w io.Writer
}

func (w *jsonlWriter) WriteAll(records []inventory.Record) error {
	buf := bufio.NewWriter(w.w)
	enc := json.NewEncoder(buf)
	for i := range records {
		if err := enc.Encode(&records[i]); err != nil {
			return err
		}
	}
	return buf.Flush()
}
