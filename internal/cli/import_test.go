package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sanitizr/internal/record"
	"github.com/roach88/sanitizr/internal/store"
	"github.com/roach88/sanitizr/internal/testutil"
)

func TestImportRecords(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "import.db")
	opts := &ImportOptions{
		RootOptions: &RootOptions{Format: "json"},
		SchemaDir:   typesDir,
		Database:    dbPath,
		Type:        "person",
		IDGenerator: testutil.NewSequenceIDGenerator("rec"),
	}
	buf := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})

	require.NoError(t, runImport(opts, "testdata/records/people.json", cmd))

	var resp struct {
		Status string       `json:"status"`
		Data   ImportResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, ImportResult{Type: "person", Collection: "people", IDs: []string{"p1", "rec-1"}}, resp.Data)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	got, err := st.Collection("people").Get(context.Background(), "rec-1")
	require.NoError(t, err)
	assert.Equal(t, record.String("Bo"), got["name"])
	assert.Equal(t, record.String("k2"), got["apiKey"], "records are stored unsanitized")
}

func TestImportSingleRecordFromStdin(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "import.db")
	cmd := NewImportCommand(&RootOptions{Format: "text"})
	cmd.SetIn(strings.NewReader(`{"id":"a1","name":"Root","level":9}`))

	output, err := executeCommand(t, cmd, "--schema", typesDir, "--db", dbPath, "--type", "admin")
	require.NoError(t, err)
	assert.Equal(t, "✓ Imported 1 record(s) into people\n", output)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	admins, err := st.Collection("people").ListType(context.Background(), "admin")
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, record.Int(9), admins[0]["level"])
}

func TestImportRejectsNonRecords(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"scalar", `42`, "expected a record or an array of records"},
		{"mixed list", `[{"id":"a"}, 1]`, "element 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewImportCommand(&RootOptions{Format: "text"})
			cmd.SetIn(strings.NewReader(tt.input))
			output, err := executeCommand(t, cmd,
				"--schema", typesDir, "--db", filepath.Join(t.TempDir(), "x.db"), "--type", "person")
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, output, "Error [E201]")
			assert.Contains(t, output, tt.want)
		})
	}
}

func TestImportUnknownType(t *testing.T) {
	cmd := NewImportCommand(&RootOptions{Format: "text"})
	cmd.SetIn(strings.NewReader(`{"id":"a"}`))
	_, err := executeCommand(t, cmd,
		"--schema", typesDir, "--db", filepath.Join(t.TempDir(), "x.db"), "--type", "ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeUnknownType)
}
