package cli

import "testing"

func TestExitErrorDefaults(t *testing.T) {
	e := &ExitError{code: 2}
	if e.Error() != "exit 2" {
		t.Fatalf("unexpected error string %q", e.Error())
	}
	if e.Code() != 2 || e.Message() != "" {
		t.Fatalf("unexpected code/message: %d %q", e.Code(), e.Message())
	}
}

func TestExitErrorWithMessage(t *testing.T) {
	e := &ExitError{code: 3, message: "boom"}
	if e.Error() != "boom" || e.Message() != "boom" {
		t.Fatalf("message should win: %q %q", e.Error(), e.Message())
	}
}

func TestExitErrorNilReceiver(t *testing.T) {
	var e *ExitError
	if e.Error() != "" || e.Message() != "" {
		t.Fatal("nil receiver should render empty strings")
	}
	if e.Code() != 1 {
		t.Fatalf("nil receiver should default to exit 1, got %d", e.Code())
	}
}
