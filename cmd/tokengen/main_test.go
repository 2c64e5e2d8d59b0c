package main

import (
	"bytes"
	"strings"
	"testing"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return strings.TrimSpace(out.String()), err
}

func TestIssueThenInspect(t *testing.T) {
	t.Setenv("JWT_SECRET", "tokengen-test-secret")

	token, err := run(t, "issue", "--subject", "web-widget", "--scope", "conversations")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Fatalf("expected a JWT, got %q", token)
	}

	out, err := run(t, "inspect", token)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if !strings.Contains(out, "subject: web-widget") || !strings.Contains(out, "scope:   conversations") {
		t.Errorf("unexpected inspect output:\n%s", out)
	}
}

func TestIssueRequiresSubject(t *testing.T) {
	if _, err := run(t, "issue"); err == nil {
		t.Fatal("expected error without --subject")
	}
}

func TestInspectRejectsForeignToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret-a")
	token, err := run(t, "issue", "--subject", "web")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	t.Setenv("JWT_SECRET", "secret-b")
	if _, err := run(t, "inspect", token); err == nil {
		t.Fatal("expected validation error with a different secret")
	}
}
