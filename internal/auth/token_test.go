package auth

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStaticToken(t *testing.T) {
	tok, err := Static("abc123").Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if tok != "abc123" {
		t.Fatalf("Token = %q, want abc123", tok)
	}
	if _, err := Static("   ").Token(); err == nil {
		t.Fatal("expected error for blank token")
	}
}

func TestEnvToken(t *testing.T) {
	t.Setenv("FRAMEVIEW_TEST_TOKEN", "  secret \n")
	tok, err := FromEnv("FRAMEVIEW_TEST_TOKEN").Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if tok != "secret" {
		t.Fatalf("Token = %q, want trimmed secret", tok)
	}

	t.Setenv("FRAMEVIEW_TEST_TOKEN", "")
	tok, err = FromEnv("FRAMEVIEW_TEST_TOKEN").Token()
	if err != nil {
		t.Fatalf("Token for unset variable: %v", err)
	}
	if tok != "" {
		t.Fatalf("Token = %q, want empty for unset variable", tok)
	}
}

func TestFileTokenRereadsOnRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("first\n"), 0o600); err != nil {
		t.Fatalf("write token file: %v", err)
	}
	src := FromFile(path)

	tok, err := src.Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if tok != "first" {
		t.Fatalf("Token = %q, want first", tok)
	}

	if err := os.WriteFile(path, []byte("second\n"), 0o600); err != nil {
		t.Fatalf("rotate token file: %v", err)
	}
	tok, err = src.Token()
	if err != nil {
		t.Fatalf("Token after rotation: %v", err)
	}
	if tok != "second" {
		t.Fatalf("Token = %q, want second after rotation", tok)
	}
}

func TestFileTokenErrors(t *testing.T) {
	if _, err := FromFile(filepath.Join(t.TempDir(), "missing")).Token(); err == nil {
		t.Fatal("expected error for missing file")
	}
	path := filepath.Join(t.TempDir(), "empty")
	if err := os.WriteFile(path, []byte("  \n"), 0o600); err != nil {
		t.Fatalf("write empty file: %v", err)
	}
	if _, err := FromFile(path).Token(); err == nil {
		t.Fatal("expected error for empty file")
	}
}

func TestResolvePrecedence(t *testing.T) {
	src, err := Resolve("inline", "/etc/ignored", "IGNORED")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if tok, _ := src.Token(); tok != "inline" {
		t.Fatalf("inline token wins, got %q", tok)
	}

	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("from-file"), 0o600); err != nil {
		t.Fatalf("write token file: %v", err)
	}
	src, err = Resolve("", path, "IGNORED")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if tok, _ := src.Token(); tok != "from-file" {
		t.Fatalf("file token second, got %q", tok)
	}

	t.Setenv("FRAMEVIEW_RESOLVE_TOKEN", "from-env")
	src, err = Resolve("", "", "FRAMEVIEW_RESOLVE_TOKEN")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if tok, _ := src.Token(); tok != "from-env" {
		t.Fatalf("env token last, got %q", tok)
	}

	if _, err := Resolve("", "", ""); err == nil {
		t.Fatal("expected error when nothing configured")
	}
}
