package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, dbPath string, args ...string) (*bytes.Buffer, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	root := NewRootCommand()
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(append([]string{"--db", dbPath, "--format", "json"}, args...))
	err := root.Execute()
	return buf, err
}

func TestCLI_WriteThenQueryBySpace(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "events.db")

	_, err := runCLI(t, dbPath, "write",
		"--space", "space-1",
		"--type", "space_created",
		"--timestamp", "2026-01-01T00:00:00Z",
		"--payload", `{"source":"x"}`,
	)
	require.NoError(t, err)

	buf, err := runCLI(t, dbPath, "query", "by-space", "space-1")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.Equal(t, "ok", resp.Status)
}

func TestCLI_VerifyEmptyDatabaseIsValid(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "events.db")

	buf, err := runCLI(t, dbPath, "verify")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.Equal(t, "ok", resp.Status)
}

func TestCLI_WriteThenSnapshotThenCompact(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "events.db")

	_, err := runCLI(t, dbPath, "write",
		"--space", "space-1",
		"--type", "space_created",
		"--timestamp", "2026-01-01T00:00:00Z",
		"--payload", `{"source":"x"}`,
	)
	require.NoError(t, err)

	_, err = runCLI(t, dbPath, "snapshot", "space-1")
	require.NoError(t, err)

	_, err = runCLI(t, dbPath, "write",
		"--space", "space-1",
		"--type", "space_evolved",
		"--timestamp", "2026-01-01T00:01:00Z",
		"--payload", `{"ast_diff":[]}`,
	)
	require.NoError(t, err)

	buf, err := runCLI(t, dbPath, "compact", "space-1")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.Equal(t, "ok", resp.Status)
}

func TestCLI_StorageReportsUsage(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "events.db")

	_, err := runCLI(t, dbPath, "write",
		"--space", "space-1",
		"--type", "space_created",
		"--timestamp", "2026-01-01T00:00:00Z",
		"--payload", `{"source":"x"}`,
	)
	require.NoError(t, err)

	buf, err := runCLI(t, dbPath, "storage")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.Equal(t, "ok", resp.Status)
}

func TestCLI_ReconstructStateAfterWrite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "events.db")

	_, err := runCLI(t, dbPath, "write",
		"--space", "space-1",
		"--type", "space_created",
		"--timestamp", "2026-01-01T00:00:00Z",
		"--payload", `{"source":"x"}`,
	)
	require.NoError(t, err)

	buf, err := runCLI(t, dbPath, "reconstruct", "state", "space-1")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.Equal(t, "ok", resp.Status)
}

func TestCLI_InvalidFormatRejected(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "events.db")

	buf := &bytes.Buffer{}
	root := NewRootCommand()
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"--db", dbPath, "--format", "xml", "verify"})

	err := root.Execute()
	require.Error(t, err)
}
