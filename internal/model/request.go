package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Action identifica uma ação da interface
type Action string

const (
	ActionAddTask        Action = "add-task"
	ActionRemoveTask     Action = "remove-task"
	ActionFieldChanged   Action = "field-changed"
	ActionRenameTask     Action = "rename-task"
	ActionToggleTheme    Action = "toggle-theme"
	ActionSelectLanguage Action = "select-language"
)

// Event representa uma ação disparada pela interface (HTTP ou WebSocket).
// A tarefa é identificada por TaskID ou, na ausência dele, por Index.
type Event struct {
	Action Action        `json:"action" binding:"required"`
	TaskID string        `json:"task_id,omitempty"`
	Index  *int          `json:"index,omitempty"`
	Field  EstimateField `json:"field,omitempty"`
	Value  EventValue    `json:"value,omitempty"`
}

// EventValue é o valor bruto digitado no campo. Aceita string, número ou
// booleano no JSON; números preservam o literal recebido ("2.50" continua "2.50").
type EventValue string

// UnmarshalJSON implementa json.Unmarshaler
func (v *EventValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = ""
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = EventValue(s)
	case '{', '[':
		return fmt.Errorf("value must be a string or a number, got %s", data)
	default:
		var n json.RawMessage
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*v = EventValue(n)
	}
	return nil
}

func (v EventValue) String() string {
	return string(v)
}

// LanguageRequest representa o payload de troca de idioma
type LanguageRequest struct {
	Language string `json:"language" binding:"required"`
}

// Response representa a resposta padrão da API
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
	Errors  []string    `json:"errors,omitempty"`
}

// Meta contém metadados da resposta
type Meta struct {
	TotalTasks int `json:"total_tasks,omitempty"`
}

// ErrorResponse representa uma resposta de erro
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
