package cli

import (
	"bytes"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-metafields/metafields"
	"github.com/goliatone/go-metafields/pkg/testsupport"
)

// cliEnv runs commands against one sqlite file and the test config.
type cliEnv struct {
	t   *testing.T
	dsn string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	env := &cliEnv{t: t, dsn: filepath.Join(t.TempDir(), "meta.db")}
	out, err := env.run("migrate")
	require.NoError(t, err)
	require.Equal(t, "✓ table cli_meta_fields ready\n", out)
	return env
}

func (e *cliEnv) run(args ...string) (string, error) {
	e.t.Helper()

	cmd := NewRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(append(args,
		"--no-color",
		"--config", testsupport.FixturePath("config.yaml"),
		"--dsn", e.dsn,
	))

	err := cmd.Execute()
	return buf.String(), err
}

func TestMigrate_Idempotent(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run("migrate")
	require.NoError(t, err)
	assert.Equal(t, "✓ table cli_meta_fields ready\n", out)
}

func TestSetGetList(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run("set", "Person", "42", "favorite_color", "green")
	require.NoError(t, err)
	assert.Equal(t, "✓ set favorite_color on Person 42\n", out)

	_, err = env.run("set", "Person", "42", "address", `{"city":"Springfield","zip":"12345"}`, "--json")
	require.NoError(t, err)
	_, err = env.run("set", "Person", "42", "tags", `["a","b"]`, "--json", "--map", "tags=json")
	require.NoError(t, err)

	out, err = env.run("get", "Person", "42", "favorite_color")
	require.NoError(t, err)
	assert.Equal(t, "\"green\"\n", out)

	out, err = env.run("get", "Person", "42", "address")
	require.NoError(t, err)
	assert.JSONEq(t, `{"city":"Springfield","zip":"12345"}`, out)

	out, err = env.run("list", "Person", "42", "--map", "tags=json")
	require.NoError(t, err)
	testsupport.CompareWithGolden(t, testsupport.GoldenPath("list.txt"), []byte(out))
}

func TestGet_Missing(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run("get", "Person", "42", "nickname")
	require.NoError(t, err)
	assert.Equal(t, "null\n", out)

	out, err = env.run("get", "Person", "42", "nickname", "--default", "anonymous")
	require.NoError(t, err)
	assert.Equal(t, "\"anonymous\"\n", out)
}

func TestDeleteAndPurge(t *testing.T) {
	env := newCLIEnv(t)

	for _, key := range []string{"a", "b", "c"} {
		_, err := env.run("set", "Car", "7", key, "x")
		require.NoError(t, err)
	}

	out, err := env.run("delete", "Car", "7", "a")
	require.NoError(t, err)
	assert.Equal(t, "✓ deleted a\n", out)

	out, err = env.run("delete", "Car", "7", "a")
	require.NoError(t, err)
	assert.Equal(t, "a not found\n", out)

	out, err = env.run("purge", "Car", "7")
	require.NoError(t, err)
	assert.Equal(t, "✓ deleted 2 metafields\n", out)

	out, err = env.run("list", "Car", "7")
	require.NoError(t, err)
	assert.Equal(t, "KEY  VALUE\n---  -----\n", out)
}

func TestNoCache(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run("set", "Person", "1", "foo", "bar")
	require.NoError(t, err)

	out, err := env.run("get", "Person", "1", "foo", "--no-cache")
	require.NoError(t, err)
	assert.Equal(t, "\"bar\"\n", out)

	out, err = env.run("list", "Person", "1", "--no-cache")
	require.NoError(t, err)
	assert.Contains(t, out, "foo  \"bar\"")

	for _, args := range [][]string{
		{"set", "Person", "1", "foo", "baz"},
		{"delete", "Person", "1", "foo"},
		{"purge", "Person", "1"},
	} {
		_, err := env.run(append(args, "--no-cache")...)
		assert.ErrorIs(t, err, metafields.ErrMethodNotAllowed, args[0])
	}

	out, err = env.run("get", "Person", "1", "foo")
	require.NoError(t, err)
	assert.Equal(t, "\"bar\"\n", out)
}

func TestErrors(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run("set", "Person", "1", "password", "hunter2")
	assert.ErrorIs(t, err, metafields.ErrInvalidKey)

	_, err = env.run("get", "Person", "1", "foo", "--map", "foo=unknown")
	assert.ErrorIs(t, err, metafields.ErrInvalidSerializer)

	_, err = env.run("set", "Person", "1", "foo", "{not json", "--json")
	assert.ErrorContains(t, err, "invalid JSON value")

	_, err = env.run("get", "Person", "1")
	assert.Error(t, err)

	_, err = env.run("get", "Person", "1", "foo", "--db-driver", "oracle")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	cmd := NewRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"version", "--no-color"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "metafieldctl version: dev")
	assert.Contains(t, buf.String(), "Go version: ")
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, `"x"`, formatValue("x"))
	assert.Equal(t, `null`, formatValue(nil))
	assert.Equal(t, `{"a":1}`, formatValue(map[string]any{"a": 1}))

	// channels cannot be marshalled
	ch := make(chan int)
	assert.Equal(t, fmt.Sprint(ch), formatValue(ch))
}
