package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/davazp/iredb/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "iredb.yaml")
	raw := "store:\n  dir: " + filepath.Join(dir, "store") + "\n  backend: file\nlog:\n  level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))
	return path
}

func execute(t *testing.T, configPath string, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestPutGet_Binary(t *testing.T) {
	configPath := writeConfig(t)
	file := filepath.Join(t.TempDir(), "payload")
	require.NoError(t, os.WriteFile(file, []byte{0x00, 0xff, 'x'}, 0o644))

	out, err := execute(t, configPath, "", "put", file)
	require.NoError(t, err)
	key := strings.TrimSpace(out)
	assert.True(t, strings.HasSuffix(key, "-binary"), key)
	assert.Equal(t, store.KeyOf([]byte{0x00, 0xff, 'x'}, "binary").String(), key)

	out, err = execute(t, configPath, "", "get", key)
	require.NoError(t, err)
	assert.Equal(t, string([]byte{0x00, 0xff, 'x'}), out)
}

func TestPut_Stdin(t *testing.T) {
	configPath := writeConfig(t)

	fromStdin, err := execute(t, configPath, "hello", "put")
	require.NoError(t, err)

	file := filepath.Join(t.TempDir(), "hello")
	require.NoError(t, os.WriteFile(file, []byte("hello"), 0o644))
	fromFile, err := execute(t, configPath, "", "put", file)
	require.NoError(t, err)

	assert.Equal(t, fromFile, fromStdin)
}

func TestPutGet_JSONIsCanonical(t *testing.T) {
	configPath := writeConfig(t)

	first, err := execute(t, configPath, `{"b": 1, "a": [true, null]}`, "put", "--json")
	require.NoError(t, err)
	second, err := execute(t, configPath, `{"a":[true,null],"b":1.0}`, "put", "--json")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(first), "-json"))

	out, err := execute(t, configPath, "", "get", strings.TrimSpace(first))
	require.NoError(t, err)
	assert.Equal(t, "{\"a\":[true,null],\"b\":1}\n", out)
}

func TestPut_InvalidJSON(t *testing.T) {
	configPath := writeConfig(t)

	_, err := execute(t, configPath, `{"a":`, "put", "--json")
	require.Error(t, err)
}

func TestGet_Errors(t *testing.T) {
	configPath := writeConfig(t)

	_, err := execute(t, configPath, "", "get", "abc")
	require.ErrorIs(t, err, store.ErrMalformedKey)

	missing := store.KeyOf([]byte("never stored"), "binary").String()
	_, err = execute(t, configPath, "", "get", missing)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestDemo(t *testing.T) {
	configPath := writeConfig(t)

	out, err := execute(t, configPath, "", "demo", "--a", "10", "--b", "20", "--delay", "10ms")
	require.NoError(t, err)
	assert.Equal(t, "500\n", out)

	// second run reads every step back from the store
	out, err = execute(t, configPath, "", "demo", "--a", "10", "--b", "20", "--delay", "10ms")
	require.NoError(t, err)
	assert.Equal(t, "500\n", out)

	out, err = execute(t, configPath, "", "demo", "--a", "3", "--b", "4", "--delay", "0s")
	require.NoError(t, err)
	assert.Equal(t, "25\n", out)
}

func TestMissingConfig(t *testing.T) {
	_, err := execute(t, filepath.Join(t.TempDir(), "absent.yaml"), "", "put")
	require.Error(t, err)
}
