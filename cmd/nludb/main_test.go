package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nludb/nludb-go/internal/domain"
	"github.com/nludb/nludb-go/internal/fakeapi"
	"github.com/nludb/nludb-go/pkg/dquery"
)

const testAPIKey = "cli-test-key"

// resetFlags restores every flag of the command tree to its default.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	t.Cleanup(func() { resetFlags(rootCmd) })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(append([]string{"--color", "off", "--env", "test"}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

// fakeEnv starts a fake API and writes a config file pointing at it.
func fakeEnv(t *testing.T) (string, *fakeapi.Server) {
	t.Helper()
	fake := fakeapi.New(testAPIKey)
	srv := httptest.NewServer(fake.Handler())
	t.Cleanup(srv.Close)

	path := filepath.Join(t.TempDir(), "test.yaml")
	cfg := "api:\n  base_url: " + srv.URL + fakeapi.BasePath + "\n  key: " + testAPIKey +
		"\ntasks:\n  poll_interval_ms: 5\n"
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return path, fake
}

func TestTokenize_Pretty(t *testing.T) {
	out, err := run(t, "tokenize", `paragraph @person:"Ada"`)
	require.NoError(t, err)
	assert.Equal(t, "  0  NONE  -  \"paragraph\"\n  1  AT    \"person\"  \"Ada\"\n", out)
}

func TestTokenize_JoinsArgs(t *testing.T) {
	out, err := run(t, "--format", "json", "tokenize", "sentence", "#exact:engine")
	require.NoError(t, err)

	var tokens []dquery.Token
	require.NoError(t, json.Unmarshal([]byte(out), &tokens))
	require.Len(t, tokens, 2)
	assert.Equal(t, dquery.None, tokens[0].Command)
	assert.Equal(t, "sentence", *tokens[0].Content)
	assert.Equal(t, dquery.Hash, tokens[1].Command)
	assert.Equal(t, "exact", *tokens[1].Modifier)
	assert.Equal(t, "engine", *tokens[1].Content)
}

func TestTokenize_Fold(t *testing.T) {
	out, err := run(t, "tokenize", "--fold", `paragraph @person #"engine"`)
	require.NoError(t, err)

	var f dquery.Filter
	require.NoError(t, json.Unmarshal([]byte(out), &f))
	require.NotNil(t, f.BlockType)
	assert.Equal(t, "paragraph", *f.BlockType)
	require.Len(t, f.HasSpans, 1)
	assert.Equal(t, "person", *f.HasSpans[0].Label)
	require.NotNil(t, f.Text)
	assert.Equal(t, "engine", *f.Text)
}

func TestTokenize_Errors(t *testing.T) {
	_, err := run(t, "--format", "xml", "tokenize", "p")
	assert.ErrorContains(t, err, "unsupported format")

	_, err = run(t, "--color", "rainbow", "tokenize", "p")
	assert.ErrorContains(t, err, "unsupported color mode")

	_, err = run(t, "tokenize")
	assert.Error(t, err)
}

func TestFileCommands(t *testing.T) {
	cfgPath, fake := fakeEnv(t)

	doc := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(doc, []byte("first line\n\nsecond line\n"), 0o600))

	out, err := run(t, "--config", cfgPath, "--format", "json", "upload", "--convert", doc)
	require.NoError(t, err)
	var uploads []uploadView
	require.NoError(t, json.Unmarshal([]byte(out), &uploads))
	require.Len(t, uploads, 1)
	assert.Equal(t, "notes.txt", uploads[0].Name)
	assert.Empty(t, uploads[0].Error)
	id := uploads[0].ID
	require.NotEmpty(t, id)

	out, err = run(t, "--config", cfgPath, "list")
	require.NoError(t, err)
	assert.Equal(t, id+"  notes.txt\n", out)

	out, err = run(t, "--config", cfgPath, "query", id, "paragraph")
	require.NoError(t, err)
	assert.Equal(t, "[paragraph] first line\n[paragraph] second line\n", out)
	require.NotNil(t, fake.LastQuery().BlockType)
	assert.Equal(t, "paragraph", *fake.LastQuery().BlockType)

	out, err = run(t, "--config", cfgPath, "raw", id)
	require.NoError(t, err)
	assert.Equal(t, "first line\n\nsecond line\n", out)

	out, err = run(t, "--config", cfgPath, "delete", id)
	require.NoError(t, err)
	assert.Equal(t, "deleted: "+id+"\n", out)

	_, err = run(t, "--config", cfgPath, "raw", id)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpload_MissingFile(t *testing.T) {
	cfgPath, fake := fakeEnv(t)

	_, err := run(t, "--config", cfgPath, "upload", filepath.Join(t.TempDir(), "absent.txt"))
	assert.ErrorContains(t, err, "open")
	assert.Zero(t, fake.Calls("file/create"))
}

func TestQuery_SendsFoldedSpans(t *testing.T) {
	cfgPath, fake := fakeEnv(t)
	id := fake.SeedFile("bio.txt", []domain.Block{
		{ID: "b1", Type: "sentence", Value: "Ada wrote notes.", Spans: []domain.Span{{Label: "person", Text: "Ada"}}},
		{ID: "b2", Type: "sentence", Value: "The engine ran."},
	})

	out, err := run(t, "--config", cfgPath, "--format", "json", "query", id, "sentence", `@person:"Ada"`)
	require.NoError(t, err)

	var blocks []blockView
	require.NoError(t, json.Unmarshal([]byte(out), &blocks))
	require.Len(t, blocks, 1)
	assert.Equal(t, "b1", blocks[0].ID)
	assert.Equal(t, []spanView{{Label: "person", Text: "Ada"}}, blocks[0].Spans)

	q := fake.LastQuery()
	require.Len(t, q.HasSpans, 1)
	assert.Equal(t, "person", *q.HasSpans[0].Label)
	assert.Equal(t, "Ada", *q.HasSpans[0].Text)
}

func TestTaskCommands(t *testing.T) {
	cfgPath, fake := fakeEnv(t)
	id := fake.SeedFile("a.txt", []domain.Block{{ID: "b1", Type: "sentence", Value: "Hello there."}})

	out, err := run(t, "--config", cfgPath, "--format", "json", "parse", id)
	require.NoError(t, err)
	var tv taskView
	require.NoError(t, json.Unmarshal([]byte(out), &tv))
	assert.NotEmpty(t, tv.TaskID)
	assert.Equal(t, "running", tv.State)

	out, err = run(t, "--config", cfgPath, "parse", "--wait", id)
	require.NoError(t, err)
	assert.Equal(t, "[sentence] Hello there.\n", out)

	out, err = run(t, "--config", cfgPath, "convert", "--wait", id)
	require.NoError(t, err)
	assert.Equal(t, "converted: "+id+"\n", out)

	fake.FailTasks("model crashed")
	_, err = run(t, "--config", cfgPath, "tag", "--wait", "--model", "ner", id)
	assert.ErrorIs(t, err, domain.ErrTaskFailed)
}

func TestIndexAndSearch(t *testing.T) {
	cfgPath, fake := fakeEnv(t)
	id := fake.SeedFile("a.txt", []domain.Block{
		{ID: "b1", Type: "sentence", Value: "Ada wrote the first program."},
		{ID: "b2", Type: "sentence", Value: "The engine was never built."},
	})

	out, err := run(t, "--config", cfgPath, "--format", "json", "index", id)
	require.NoError(t, err)
	var res map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	indexID := res["index"]
	require.NotEmpty(t, indexID)
	assert.Len(t, fake.IndexItems(indexID), 2)

	out, err = run(t, "--config", cfgPath, "--format", "json", "search", indexID, "-k", "2", "who", "wrote", "programs")
	require.NoError(t, err)
	var hits []hitView
	require.NoError(t, json.Unmarshal([]byte(out), &hits))
	assert.NotEmpty(t, hits)
}

func TestTagsCommands(t *testing.T) {
	cfgPath, fake := fakeEnv(t)
	id := fake.SeedFile("a.txt", nil)

	_, err := run(t, "--config", cfgPath, "tags", "add", id, "draft", "legal")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"draft", "legal"}, fake.Tags(id))

	_, err = run(t, "--config", cfgPath, "tags", "remove", id, "draft")
	require.NoError(t, err)

	out, err := run(t, "--config", cfgPath, "tags", "list", id)
	require.NoError(t, err)
	assert.Equal(t, "legal\n", out)
}

func TestConfigErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nokey.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api:\n  base_url: http://localhost:1\n"), 0o600))

	_, err := run(t, "--config", path, "list")
	assert.ErrorContains(t, err, "api.key is required")

	_, err = run(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "list")
	assert.ErrorContains(t, err, "failed to read config")
}

func TestVersion(t *testing.T) {
	out, err := run(t, "--format", "json", "version")
	require.NoError(t, err)

	var p versionPayload
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	assert.Equal(t, "nludb", p.Tool)
	assert.Equal(t, "dev", p.Version)
}
