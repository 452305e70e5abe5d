package model

// EstimateField identifica um dos três campos de estimativa de uma tarefa
type EstimateField string

const (
	FieldOptimistic  EstimateField = "optimistic"
	FieldMostLikely  EstimateField = "mostLikely"
	FieldPessimistic EstimateField = "pessimistic"
)

// EstimateFields lista os campos na ordem em que aparecem na tabela
var EstimateFields = []EstimateField{FieldOptimistic, FieldMostLikely, FieldPessimistic}

// RawTaskInputs contém as três estimativas informadas pelo usuário
type RawTaskInputs struct {
	Optimistic  float64 `json:"optimistic"`
	MostLikely  float64 `json:"most_likely"`
	Pessimistic float64 `json:"pessimistic"`
}

// DerivedTaskFields contém os valores calculados a partir das estimativas
type DerivedTaskFields struct {
	IsValid      bool    `json:"is_valid"`
	ExpectedTime float64 `json:"expected_time"`
	StdDev       float64 `json:"std_dev"`
	Variance     float64 `json:"variance"`
}

// TaskEstimate representa uma linha da tabela de estimativas
type TaskEstimate struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Optimistic   float64 `json:"optimistic"`
	MostLikely   float64 `json:"most_likely"`
	Pessimistic  float64 `json:"pessimistic"`
	ExpectedTime float64 `json:"expected_time"`
	StdDev       float64 `json:"std_dev"`
	Variance     float64 `json:"variance"`
	IsValid      bool    `json:"is_valid"`
}

// Raw retorna as entradas brutas da tarefa
func (t TaskEstimate) Raw() RawTaskInputs {
	return RawTaskInputs{
		Optimistic:  t.Optimistic,
		MostLikely:  t.MostLikely,
		Pessimistic: t.Pessimistic,
	}
}

// Apply copia os campos derivados para a tarefa
func (t *TaskEstimate) Apply(d DerivedTaskFields) {
	t.IsValid = d.IsValid
	t.ExpectedTime = d.ExpectedTime
	t.StdDev = d.StdDev
	t.Variance = d.Variance
}

// Set altera um dos campos de estimativa. Retorna false se o campo não existir.
func (t *TaskEstimate) Set(field EstimateField, value float64) bool {
	switch field {
	case FieldOptimistic:
		t.Optimistic = value
	case FieldMostLikely:
		t.MostLikely = value
	case FieldPessimistic:
		t.Pessimistic = value
	default:
		return false
	}
	return true
}

// PercentileTarget é um nível de confiança e o multiplicador de desvios correspondente.
// Value fica fora do JSON enquanto nenhum agregado válido foi aplicado.
type PercentileTarget struct {
	Percent         int     `json:"percent"`
	DeviationsCount float64 `json:"deviations_count"`
	Value           float64 `json:"value,omitempty"`
}

// PercentileValue é o tempo estimado de conclusão para um percentil
type PercentileValue struct {
	Percent int     `json:"percent"`
	Value   float64 `json:"value"`
}

// AggregateResult contém o resultado agregado da lista de tarefas.
// ExpectedTimeSum e Percentiles só têm significado quando IsValid é true.
type AggregateResult struct {
	IsValid         bool              `json:"is_valid"`
	ExpectedTimeSum float64           `json:"expected_time_sum,omitempty"`
	VarianceSum     float64           `json:"variance_sum,omitempty"`
	Percentiles     []PercentileValue `json:"percentiles,omitempty"`
}
