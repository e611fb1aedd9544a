package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Geergon/fedstat-userbot/internal/database"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := "database_path: " + filepath.Join(dir, "userbot.db") + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(cfg), 0o600))
	return dir
}

func executeCLI(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config-dir", dir}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestFedsAddListRemove(t *testing.T) {
	dir := writeConfig(t)

	out, err := executeCLI(t, dir, "feds", "add", "--", "-1001234567890", "Spam", "Fed")
	require.NoError(t, err)
	assert.Contains(t, out, "added Spam Fed (1234567890)")

	out, err = executeCLI(t, dir, "feds", "add", "1234567890", "Spam Federation")
	require.NoError(t, err)
	assert.Contains(t, out, "updated Spam Federation")

	out, err = executeCLI(t, dir, "feds", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "1234567890\tSpam Federation")

	out, err = executeCLI(t, dir, "gchats", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "none configured")

	_, err = executeCLI(t, dir, "feds", "rm", "--", "-1001234567890")
	require.NoError(t, err)

	_, err = executeCLI(t, dir, "feds", "rm", "1234567890")
	assert.ErrorIs(t, err, database.ErrPeerNotFound)
}

func TestFedsAddRejectsBadID(t *testing.T) {
	dir := writeConfig(t)

	_, err := executeCLI(t, dir, "feds", "add", "spamfed")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `chat id "spamfed"`)
}

func TestSudoRemoveUnknown(t *testing.T) {
	dir := writeConfig(t)

	_, err := executeCLI(t, dir, "sudo", "rm", "77")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "77 is not a sudo user")

	out, err := executeCLI(t, dir, "sudo", "list")
	require.NoError(t, err)
	assert.Empty(t, out)
}
