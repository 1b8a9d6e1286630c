package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildOutcome_MessageOnly(t *testing.T) {
	o := BuildOutcome("Success", nil, nil)

	data, err := json.Marshal(o)
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"Success"}`, string(data))
}

func TestBuildOutcome_EmptyContainerOmitted(t *testing.T) {
	container := NewValidationContainer("payment-1")

	o := BuildOutcome("Validated", container, nil)

	assert.Nil(t, o.ValidationContainer)
	data, err := json.Marshal(o)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "validation_container")
}

func TestBuildOutcome_WithIssuesAndExtra(t *testing.T) {
	container := NewValidationContainer("payment-1")
	container.AddIssue(ValidationReasonPaymentExceedsMaxWeeklyBenefits, "too much", "amount")

	o := BuildOutcome("Rejected", container, map[string]any{
		"cap":     "850.00",
		"message": "ignored",
	})

	data, err := json.Marshal(o)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"message": "Rejected",
		"cap": "850.00",
		"validation_container": {
			"record_key": "payment-1",
			"validation_issues": [
				{"reason": "PaymentExceedsMaxWeeklyBenefits", "details": "too much", "field_name": "amount"}
			]
		}
	}`, string(data))
}

func TestOutcome_UnmarshalRoundTrip(t *testing.T) {
	container := NewValidationContainer("claim-7")
	container.AddIssue(ValidationReasonMissingField, "absence id", "fineos_absence_id")
	in := BuildOutcome("Error", container, map[string]any{"attempt": float64(2)})

	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out Outcome
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestOutcome_UnmarshalInvalid(t *testing.T) {
	var o Outcome
	assert.Error(t, json.Unmarshal([]byte(`"just a string"`), &o))
}
