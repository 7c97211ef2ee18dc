package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	err := New(CodeTransition, "content.ArchiveAndRemove", "delete source id=42 reason=auto_delete", nil)
	want := "content.ArchiveAndRemove: delete source id=42 reason=auto_delete (transition)"
	if err.Error() != want {
		t.Fatalf("error string: want=%q got=%q", want, err.Error())
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := Wrap(CodeGeneration, "generator.Generate", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause to be reachable")
	}
	if CodeOf(err) != CodeGeneration {
		t.Fatalf("code: want=%q got=%q", CodeGeneration, CodeOf(err))
	}
	if Wrap(CodeInternal, "op", nil) != nil {
		t.Fatalf("wrap(nil) should be nil")
	}
}

func TestSentinelMatching(t *testing.T) {
	nf := fmt.Errorf("outer: %w", NotFound("dedup.Find", "content %s", "abc"))
	if !errors.Is(nf, ErrNotFound) {
		t.Fatalf("expected not_found to match ErrNotFound")
	}
	if errors.Is(nf, ErrInvalidArgument) {
		t.Fatalf("not_found must not match ErrInvalidArgument")
	}
	if !IsCode(InvalidArgument("dedup.Resolve", "need at least 2 ids"), CodeInvalidArgument) {
		t.Fatalf("expected invalid_argument code")
	}
	if CodeOf(fmt.Errorf("plain")) != "" {
		t.Fatalf("plain errors carry no code")
	}
}
