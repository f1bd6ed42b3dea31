package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scenarios = filepath.Join("..", "..", "internal", "replay", "testdata", "scenarios.yaml")

func TestReplay_ScenariosPass(t *testing.T) {
	var buf bytes.Buffer
	cmd := newRootCmd(&buf)
	cmd.SetArgs([]string{scenarios})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "Failed: 0")
	assert.Contains(t, buf.String(), "category_violation")
}

func TestReplay_MismatchFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wrong.yaml")
	body := "cases:\n  - name: expects_answer\n    question: wheat sowing\n    calls: [[]]\n    expected: {status: answer}\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	var buf bytes.Buffer
	cmd := newRootCmd(&buf)
	cmd.SetArgs([]string{"--json", path})

	err := cmd.Execute()
	assert.ErrorIs(t, err, errMismatch)
	assert.Contains(t, buf.String(), `"passed": false`)
}
