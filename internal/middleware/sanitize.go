package middleware

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxTaskNameLength é o tamanho máximo do nome de uma tarefa, em caracteres
const MaxTaskNameLength = 255

var (
	validID   = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	invalidID = regexp.MustCompile(`[^a-zA-Z0-9_-]`)
)

// SanitizeTaskName limpa o nome de uma tarefa:
// - remove caracteres de controle (inclusive bytes nulos)
// - trunca para MaxTaskNameLength caracteres
// O texto não é escapado; o escape de HTML fica a cargo dos templates.
// Espaços são preservados porque o nome é editado caractere a caractere.
func SanitizeTaskName(name string) string {
	if !utf8.ValidString(name) {
		name = strings.ToValidUTF8(name, "")
	}

	name = removeControlChars(name)

	if utf8.RuneCountInString(name) > MaxTaskNameLength {
		runes := []rune(name)
		name = string(runes[:MaxTaskNameLength])
	}

	return name
}

// SanitizeID limpa um identificador (sessão, tarefa, visitante)
func SanitizeID(id string) string {
	id = strings.TrimSpace(id)
	id = strings.ReplaceAll(id, "\x00", "")

	return invalidID.ReplaceAllString(id, "")
}

// ValidateID verifica se um identificador tem formato válido
func ValidateID(id string) bool {
	if id == "" || len(id) > 64 {
		return false
	}
	return validID.MatchString(id)
}

// ValidateRateLimit valida o limite de requisições por minuto
func ValidateRateLimit(rateLimit int) bool {
	return rateLimit >= 10 && rateLimit <= 10000
}

// removeControlChars removes control characters from a string
func removeControlChars(s string) string {
	var result strings.Builder
	for _, r := range s {
		if !unicode.IsControl(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}
