package validator

import (
	"strings"
	"testing"

	"github.com/pauljones0/middleman-bot/internal/models"
)

func TestValidator_ValidateStruct(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		form    models.RequestForm
		wantErr bool
	}{
		{
			name:    "Valid Form",
			form:    models.RequestForm{Counterparty: "123456789012345678", Item: "Rare Sword", Price: "$20"},
			wantErr: false,
		},
		{
			name:    "Missing Item",
			form:    models.RequestForm{Counterparty: "123", Price: "$20"},
			wantErr: true,
		},
		{
			name:    "Missing Counterparty",
			form:    models.RequestForm{Item: "Rare Sword", Price: "$20"},
			wantErr: true,
		},
		{
			name:    "Counterparty Not A Snowflake",
			form:    models.RequestForm{Counterparty: "me", Item: "Rare Sword", Price: "$20"},
			wantErr: true,
		},
		{
			name:    "Counterparty Path Traversal",
			form:    models.RequestForm{Counterparty: "../channels/42", Item: "Rare Sword", Price: "$20"},
			wantErr: true,
		},
		{
			name:    "Counterparty With Query",
			form:    models.RequestForm{Counterparty: "12345678901234567?x=y", Item: "Rare Sword", Price: "$20"},
			wantErr: true,
		},
		{
			name:    "Counterparty Overflows",
			form:    models.RequestForm{Counterparty: "99999999999999999999", Item: "Rare Sword", Price: "$20"},
			wantErr: true,
		},
		{
			name:    "Counterparty Twenty Digits",
			form:    models.RequestForm{Counterparty: "12345678901234567890", Item: "Rare Sword", Price: "$20"},
			wantErr: false,
		},
		{
			name:    "Price Too Long",
			form:    models.RequestForm{Counterparty: "123", Item: "Rare Sword", Price: strings.Repeat("9", 101)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := v.ValidateStruct(tt.form); (err != nil) != tt.wantErr {
				t.Errorf("ValidateStruct() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	v := New()
	err := v.ValidateStruct(models.RequestForm{Counterparty: "123", Price: strings.Repeat("9", 101)})
	if err == nil {
		t.Fatal("Expected validation error")
	}

	got := Describe(err)
	if !strings.Contains(got, "Item is required") {
		t.Errorf("Describe() = %q, want mention of missing Item", got)
	}
	if !strings.Contains(got, "Price must be at most 100 characters") {
		t.Errorf("Describe() = %q, want mention of Price length", got)
	}
}

func TestDescribe_Snowflake(t *testing.T) {
	v := New()
	err := v.ValidateStruct(models.RequestForm{Counterparty: "@me", Item: "Rare Sword", Price: "$20"})
	if err == nil {
		t.Fatal("Expected validation error")
	}
	if got := Describe(err); got != "Counterparty must be a Discord user ID (17-20 digits)" {
		t.Errorf("Describe() = %q", got)
	}
}
