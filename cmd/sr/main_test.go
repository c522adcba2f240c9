package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/insilica/srvc-go/internal/srerr"
)

func TestNewRootCommandWiresExpectedSubcommands(t *testing.T) {
	root := newRootCommand()
	want := []string{"flow", "pull", "run-embedded-step", "hash", "print-config", "version"}
	for _, name := range want {
		found := false
		for _, c := range root.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected root command to have a %q subcommand", name)
		}
	}
}

func TestRenderErrorKindsDoNotPanic(t *testing.T) {
	errs := []error{
		&srerr.HashMismatch{Expected: "a", Found: "b"},
		&srerr.StepFailed{StepIndex: 1, ExitCode: 2},
		&srerr.ConfigError{Context: "reading x", Err: errFixture{"boom"}},
		&srerr.MissingLabel{Hash: "abc"},
		errFixture{"plain error"},
	}
	for _, err := range errs {
		renderError(err) // must not panic
	}
}

type errFixture struct{ msg string }

func (e errFixture) Error() string { return e.msg }

func TestFlowCommandRequiresExactlyOneArg(t *testing.T) {
	root := newRootCommand()
	root.SetArgs([]string{"flow"})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	err := root.Execute()
	if err == nil {
		t.Fatal("expected an error when no flow name is given")
	}
	if !strings.Contains(err.Error(), "arg") {
		t.Errorf("expected an arg-count error, got %v", err)
	}
}
