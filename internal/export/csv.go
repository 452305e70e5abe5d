package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
)

// WriteCSV escreve o relatório em CSV separado por vírgulas
func WriteCSV(w io.Writer, tr Translator, r Report) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(Rows(tr, r)); err != nil {
		return fmt.Errorf("escrever csv: %w", err)
	}
	return nil
}

// CSV gera o relatório em memória
func CSV(tr Translator, r Report) (*bytes.Buffer, error) {
	buf := new(bytes.Buffer)
	if err := WriteCSV(buf, tr, r); err != nil {
		return nil, err
	}
	return buf, nil
}
