package model

import "errors"

var (
	// ErrTaskNotFound indica que a tarefa referenciada não existe na sessão
	ErrTaskNotFound = errors.New("tarefa não encontrada")

	// ErrUnknownField indica um campo de estimativa desconhecido
	ErrUnknownField = errors.New("campo de estimativa desconhecido")

	// ErrUnknownAction indica uma ação de UI sem handler registrado
	ErrUnknownAction = errors.New("ação desconhecida")

	// ErrUnsupportedLanguage indica um idioma sem tabela de tradução
	ErrUnsupportedLanguage = errors.New("idioma não suportado")

	// ErrSessionNotFound indica sessão inexistente ou expirada
	ErrSessionNotFound = errors.New("sessão não encontrada")

	// ErrInvalidPercentile indica percentil fora do intervalo (0, 100)
	ErrInvalidPercentile = errors.New("percentil inválido")
)

var (
	// ErrUnsupportedFormat indica formato de exportação desconhecido
	ErrUnsupportedFormat = errors.New("formato de exportação não suportado")
)
