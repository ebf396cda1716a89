package config

import (
	"bytes"
	"io"
	"os"
	"testing"
)

func TestExitfWritesAndExitsWithCode1(t *testing.T) {
	var out bytes.Buffer
	code := -1
	stderr, exit = &out, func(c int) { code = c }
	t.Cleanup(func() {
		stderr, exit = io.Writer(os.Stderr), os.Exit
	})

	Exitf("fatal: %s", "bad config")

	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if out.String() != "fatal: bad config\n" {
		t.Fatalf("stderr = %q", out.String())
	}
}
