package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("FINTRACK_TEST_VALUE=from-dotenv\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FINTRACK_TEST_VALUE", "")
	os.Unsetenv("FINTRACK_TEST_VALUE")

	LoadEnvFile()

	if got := os.Getenv("FINTRACK_TEST_VALUE"); got != "from-dotenv" {
		t.Errorf("FINTRACK_TEST_VALUE = %q, want from-dotenv", got)
	}
}

func TestLoadEnvFileMissingIsIgnored(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	LoadEnvFile()
}
