// Rankmill - Advisory Recommendation Ranking and Diversification
// Copyright 2026 The Rankmill Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rankmill/rankmill

package validation

import (
	"strings"
	"testing"
)

type rankPayload struct {
	UserID string  `validate:"required"`
	TopK   int     `validate:"gte=0,lte=100"`
	Lambda float64 `validate:"gte=0,lte=1"`
}

func TestValidateStructValid(t *testing.T) {
	p := rankPayload{UserID: "u1", TopK: 10, Lambda: 0.7}
	if err := ValidateStruct(&p); err != nil {
		t.Errorf("valid payload rejected: %v", err)
	}
}

func TestValidateStructSingleError(t *testing.T) {
	p := rankPayload{TopK: 10, Lambda: 0.7}
	err := ValidateStruct(&p)
	if err == nil {
		t.Fatal("missing user id accepted")
	}
	errs := err.Errors()
	if len(errs) != 1 {
		t.Fatalf("errors = %d, want 1", len(errs))
	}
	if errs[0].Field() != "UserID" || errs[0].Tag() != "required" {
		t.Errorf("error = field %q tag %q", errs[0].Field(), errs[0].Tag())
	}
	if !strings.Contains(err.Error(), "UserID is required") {
		t.Errorf("message = %q", err.Error())
	}
}

func TestValidateStructMultipleErrors(t *testing.T) {
	p := rankPayload{TopK: 500, Lambda: 2.0}
	err := ValidateStruct(&p)
	if err == nil {
		t.Fatal("invalid payload accepted")
	}
	if len(err.Errors()) != 3 {
		t.Errorf("errors = %d, want 3", len(err.Errors()))
	}

	details := err.Details()
	fields, ok := details["fields"].([]map[string]interface{})
	if !ok || len(fields) != 3 {
		t.Errorf("details = %+v", details)
	}
}

func TestTranslateRangeMessages(t *testing.T) {
	p := rankPayload{UserID: "u1", TopK: 200, Lambda: 0.5}
	err := ValidateStruct(&p)
	if err == nil {
		t.Fatal("out-of-range top_k accepted")
	}
	if !strings.Contains(err.Error(), "less than or equal to 100") {
		t.Errorf("message = %q", err.Error())
	}
}

func TestGetValidatorSingleton(t *testing.T) {
	if GetValidator() != GetValidator() {
		t.Error("GetValidator returned different instances")
	}
}
