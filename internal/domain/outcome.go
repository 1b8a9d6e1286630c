package domain

import (
	"encoding/json"
	"fmt"
)

// Ключи outcome, которые нельзя перезаписать через extra.
const (
	outcomeKeyMessage             = "message"
	outcomeKeyValidationContainer = "validation_container"
)

// Outcome: структурированная причина перехода.
//
// В JSON message присутствует всегда, validation_container только когда
// есть замечания, а Extra раскладывается на верхний уровень объекта.
type Outcome struct {
	Message             string
	ValidationContainer *ValidationContainer
	Extra               map[string]any
}

// ValidationReason: код причины замечания валидации.
type ValidationReason string

const (
	ValidationReasonMissingField                    ValidationReason = "MissingField"
	ValidationReasonInvalidValue                    ValidationReason = "InvalidValue"
	ValidationReasonPaymentExceedsMaxWeeklyBenefits ValidationReason = "PaymentExceedsMaxWeeklyBenefits"
)

// ValidationIssue: одно замечание валидации.
type ValidationIssue struct {
	Reason    ValidationReason `json:"reason"`
	Details   string           `json:"details"`
	FieldName string           `json:"field_name,omitempty"`
}

// ValidationContainer собирает замечания валидации по одной записи.
type ValidationContainer struct {
	RecordKey        string            `json:"record_key"`
	ValidationIssues []ValidationIssue `json:"validation_issues"`
}

// NewValidationContainer создаёт пустой контейнер для записи.
func NewValidationContainer(recordKey string) *ValidationContainer {
	return &ValidationContainer{RecordKey: recordKey}
}

// AddIssue добавляет замечание.
func (c *ValidationContainer) AddIssue(reason ValidationReason, details, fieldName string) {
	c.ValidationIssues = append(c.ValidationIssues, ValidationIssue{
		Reason:    reason,
		Details:   details,
		FieldName: fieldName,
	})
}

// HasIssues возвращает true, если есть хотя бы одно замечание.
func (c *ValidationContainer) HasIssues() bool {
	return c != nil && len(c.ValidationIssues) > 0
}

// BuildOutcome строит outcome канонической формы.
//
// Контейнер валидации попадает в outcome только если в нём есть замечания.
// Extra копируется; ключи message и validation_container в нём игнорируются.
func BuildOutcome(message string, container *ValidationContainer, extra map[string]any) Outcome {
	o := Outcome{Message: message}
	if container.HasIssues() {
		o.ValidationContainer = container
	}
	for k, v := range extra {
		if k == outcomeKeyMessage || k == outcomeKeyValidationContainer {
			continue
		}
		if o.Extra == nil {
			o.Extra = make(map[string]any, len(extra))
		}
		o.Extra[k] = v
	}
	return o
}

// MarshalJSON реализует json.Marshaler.
func (o Outcome) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(o.Extra)+2)
	for k, v := range o.Extra {
		m[k] = v
	}
	m[outcomeKeyMessage] = o.Message
	if o.ValidationContainer.HasIssues() {
		m[outcomeKeyValidationContainer] = o.ValidationContainer
	}
	return json.Marshal(m)
}

// UnmarshalJSON реализует json.Unmarshaler.
func (o *Outcome) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unmarshal outcome: %w", err)
	}

	*o = Outcome{}
	for k, v := range raw {
		switch k {
		case outcomeKeyMessage:
			if err := json.Unmarshal(v, &o.Message); err != nil {
				return fmt.Errorf("unmarshal outcome message: %w", err)
			}
		case outcomeKeyValidationContainer:
			var c ValidationContainer
			if err := json.Unmarshal(v, &c); err != nil {
				return fmt.Errorf("unmarshal validation container: %w", err)
			}
			o.ValidationContainer = &c
		default:
			var val any
			if err := json.Unmarshal(v, &val); err != nil {
				return fmt.Errorf("unmarshal outcome %s: %w", k, err)
			}
			if o.Extra == nil {
				o.Extra = make(map[string]any)
			}
			o.Extra[k] = val
		}
	}
	return nil
}
