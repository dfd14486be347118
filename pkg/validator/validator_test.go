package validator

import (
	"testing"

	"github.com/go-playground/validator/v10"
)

type registerPayload struct {
	Username string `json:"username" validate:"required,min=3"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func TestValidateStructPasses(t *testing.T) {
	payload := registerPayload{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "long-enough-pass",
	}
	if err := ValidateStruct(payload); err != nil {
		t.Fatalf("expected valid payload, got %v", err)
	}
}

func TestValidateStructReportsJSONFieldNames(t *testing.T) {
	err := ValidateStruct(registerPayload{
		Username: "ab",
		Email:    "not-an-email",
	})
	if err == nil {
		t.Fatal("expected validation error")
	}

	failures, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	if len(failures) != 3 {
		t.Fatalf("expected 3 failures, got %d: %v", len(failures), failures)
	}

	byField := map[string]ValidationError{}
	for _, f := range failures {
		byField[f.Field] = f
	}
	if byField["username"].Tag != "min" || byField["username"].Param != "3" {
		t.Fatalf("unexpected username failure: %+v", byField["username"])
	}
	if byField["email"].Tag != "email" {
		t.Fatalf("unexpected email failure: %+v", byField["email"])
	}
	if byField["password"].Tag != "required" {
		t.Fatalf("unexpected password failure: %+v", byField["password"])
	}
}

func TestValidationErrorsString(t *testing.T) {
	errs := ValidationErrors{
		{Field: "title", Tag: "required"},
		{Field: "priority", Tag: "oneof", Param: "Low Medium High"},
	}
	got := errs.Error()
	want := "title failed on required; priority failed on oneof=Low Medium High"
	if got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestRegisterValidationCustomRule(t *testing.T) {
	err := RegisterValidation("taskstatus", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "To Do", "In Progress", "Done":
			return true
		}
		return false
	})
	if err != nil {
		t.Fatalf("RegisterValidation: %v", err)
	}

	type payload struct {
		Status string `json:"status" validate:"taskstatus"`
	}
	if err := ValidateStruct(payload{Status: "Done"}); err != nil {
		t.Fatalf("expected valid status, got %v", err)
	}
	if err := ValidateStruct(payload{Status: "Archived"}); err == nil {
		t.Fatal("expected invalid status to fail")
	}
}
