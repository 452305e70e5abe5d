package estimation

import (
	"strconv"
	"strings"
)

// ParseEstimate converte o texto digitado em número.
// Texto vazio, não numérico, NaN ou infinito resulta em 0.
// Aceita vírgula como separador decimal ("1,5").
func ParseEstimate(raw string) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}
	s = strings.Replace(s, ",", ".", 1)

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return finite(v)
}

// Number é um float64 que aceita número ou string no JSON.
// Valores que não podem ser convertidos viram 0 em vez de erro.
type Number float64

// UnmarshalJSON implementa json.Unmarshaler
func (n *Number) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = unquoted
	}
	*n = Number(ParseEstimate(s))
	return nil
}

// Float64 retorna o valor como float64
func (n Number) Float64() float64 {
	return float64(n)
}
