package output

import (
	"bytes"
	"strings"
	"text/tabwriter"
)

// PlainFormatter formats output as an aligned table without styling.
// Summary fields come first as "label: value" lines.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, v View) error {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)

	for _, field := range v.Summary() {
		if _, err := tw.Write([]byte(field.Label + ":\t" + field.Value + "\n")); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	rows := v.Rows()
	if len(rows) == 0 {
		return nil
	}
	if len(v.Summary()) > 0 {
		w.WriteByte('\n')
	}

	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if header := v.Header(); len(header) > 0 {
		if _, err := tw.Write([]byte(strings.ToUpper(strings.Join(header, "\t")) + "\n")); err != nil {
			return err
		}
	}
	for _, row := range rows {
		if _, err := tw.Write([]byte(strings.Join(row, "\t") + "\n")); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// TSVFormatter writes the table as tab-separated values for scripting.
// Summary fields are omitted.
type TSVFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *TSVFormatter) Format(w *bytes.Buffer, v View) error {
	if header := v.Header(); len(header) > 0 {
		w.WriteString(strings.Join(header, "\t"))
		w.WriteByte('\n')
	}
	for _, row := range v.Rows() {
		w.WriteString(strings.Join(row, "\t"))
		w.WriteByte('\n')
	}
	return nil
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
	Register("tsv", func() Formatter {
		return &TSVFormatter{}
	})
}

var (
	_ Formatter = (*PlainFormatter)(nil)
	_ Formatter = (*TSVFormatter)(nil)
)
