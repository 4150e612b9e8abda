package report

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestCommit_WritesAtomically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "trade_analysis.csv")

	err := Commit(path, func(w io.Writer) error {
		_, err := io.WriteString(w, "first\n")
		return err
	})
	if err != nil {
		t.Fatalf("Commit() error: %v", err)
	}
	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read committed file: %v", err)
	}
	if string(body) != "first\n" {
		t.Errorf("content = %q", body)
	}
}

func TestCommit_FailureKeepsPreviousArtifact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trade_analysis.csv")

	if err := Commit(path, func(w io.Writer) error {
		_, err := io.WriteString(w, "previous run\n")
		return err
	}); err != nil {
		t.Fatal(err)
	}

	bad := errors.New("mid-write failure")
	err := Commit(path, func(w io.Writer) error {
		io.WriteString(w, "half a table")
		return bad
	})
	if !errors.Is(err, bad) {
		t.Fatalf("Commit() err = %v, want the writer error", err)
	}

	body, _ := os.ReadFile(path)
	if string(body) != "previous run\n" {
		t.Errorf("previous artifact clobbered: %q", body)
	}

	leftovers, _ := filepath.Glob(filepath.Join(dir, "*.tmp-*"))
	if len(leftovers) != 0 {
		t.Errorf("temp files left behind: %v", leftovers)
	}
}

func TestCommit_ReplacesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	for _, content := range []string{"one\n", "two\n"} {
		c := content
		if err := Commit(path, func(w io.Writer) error {
			_, err := io.WriteString(w, c)
			return err
		}); err != nil {
			t.Fatal(err)
		}
	}
	body, _ := os.ReadFile(path)
	if string(body) != "two\n" {
		t.Errorf("content = %q, want the second commit", body)
	}
}
