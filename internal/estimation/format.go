package estimation

import (
	"math"
	"math/big"
	"strconv"
)

// tenths devolve |v| em décimos, arredondado sobre o valor binário exato
// com empates para cima (mesma regra de toFixed(1)). ok=false para NaN/Inf.
func tenths(v float64) (n *big.Int, ok bool) {
	r := new(big.Rat).SetFloat64(math.Abs(v))
	if r == nil {
		return nil, false
	}
	r.Mul(r, big.NewRat(10, 1))
	r.Add(r, big.NewRat(1, 2))
	return new(big.Int).Quo(r.Num(), r.Denom()), true
}

// Round1 arredonda para uma casa decimal
func Round1(v float64) float64 {
	n, ok := tenths(v)
	if !ok {
		return v
	}
	f, _ := new(big.Rat).SetFrac(n, big.NewInt(10)).Float64()
	if v < 0 && f != 0 {
		return -f
	}
	return f
}

// Format1 formata com exatamente uma casa decimal, como toFixed(1).
// Valores que arredondam para zero saem como "0.0", nunca "-0.0".
func Format1(v float64) string {
	n, ok := tenths(v)
	if !ok {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	q, d := new(big.Int).QuoRem(n, big.NewInt(10), new(big.Int))
	s := q.String() + "." + d.String()
	if v < 0 && n.Sign() != 0 {
		s = "-" + s
	}
	return s
}
