package validator

import (
	"strings"
	"testing"
)

func TestValidateBalancedBracesOK(t *testing.T) {
	report := Validate("foo = {\n\tx = 1\n}\n", "common/foo.txt")
	if !report.OK() {
		t.Fatalf("expected OK, got errors %v", report.Errors)
	}
}

func TestValidateUnbalancedBracesIsError(t *testing.T) {
	report := Validate("foo = {\n\tx = 1\n", "common/foo.txt")
	if report.OK() {
		t.Fatalf("expected an error for unbalanced braces")
	}
	if len(report.Errors) != 1 {
		t.Fatalf("expected exactly one error, got %v", report.Errors)
	}
}

func TestValidateDuplicateEventIsError(t *testing.T) {
	text := "europe.0001 = {\n\ttype = character_event\n}\neurope.0001 = {\n\ttype = character_event\n}\n"
	report := Validate(text, "events/europe.txt")
	if report.OK() {
		t.Fatalf("expected an error for duplicate event block")
	}
	found := false
	for _, e := range report.Errors {
		if strings.Contains(e.Error(), "europe.0001") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected error naming europe.0001, got %v", report.Errors)
	}
}

func TestValidateDistinctEventsOK(t *testing.T) {
	text := "europe.0001 = {\n\ttype = character_event\n}\neurope.0002 = {\n\ttype = character_event\n}\n"
	report := Validate(text, "events/europe.txt")
	if !report.OK() {
		t.Fatalf("expected OK, got %v", report.Errors)
	}
}

func TestValidateEventMissingOptionWarns(t *testing.T) {
	text := "europe.0001 = {\n\ttype = character_event\n}\n"
	report := Validate(text, "events/europe.txt")
	if !report.OK() {
		t.Fatalf("missing option/type is a warning, not an error, got %v", report.Errors)
	}
	if len(report.Warnings) != 1 || !strings.Contains(report.Warnings[0], "no option") {
		t.Fatalf("expected a missing-option warning, got %v", report.Warnings)
	}
}

func TestValidateEventMissingTypeWarns(t *testing.T) {
	text := "europe.0001 = {\n\toption = {\n\t\tname = a\n\t}\n}\n"
	report := Validate(text, "events/europe.txt")
	if !report.OK() {
		t.Fatalf("missing type is a warning, not an error, got %v", report.Errors)
	}
	found := false
	for _, w := range report.Warnings {
		if strings.Contains(w, "no type") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a missing-type warning, got %v", report.Warnings)
	}
}

func TestValidateWellFormednessSkippedOutsideEvents(t *testing.T) {
	text := "europe.0001 = {\n\tfoo = bar\n}\n"
	report := Validate(text, "common/scripted_triggers/misc.txt")
	if len(report.Warnings) != 0 {
		t.Fatalf("well-formedness checks only apply under events/, got %v", report.Warnings)
	}
}

func TestValidateCompleteEventNoWarnings(t *testing.T) {
	text := "europe.0001 = {\n\ttype = character_event\n\toption = {\n\t\tname = a\n\t}\n}\n"
	report := Validate(text, "events/europe.txt")
	if !report.OK() {
		t.Fatalf("expected OK, got %v", report.Errors)
	}
	if len(report.Warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", report.Warnings)
	}
}
