// File: cmd/cmd_test.go
package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stickerverse/figmaconvert/internal/config"
	"github.com/stickerverse/figmaconvert/internal/geometry"
	"github.com/stickerverse/figmaconvert/internal/store"
)

// executeCommandNoPreRun is for testing argument and flag validation without
// triggering config loading in PersistentPreRunE.
func executeCommandNoPreRun(t *testing.T, args ...string) (string, error) {
	t.Helper()
	testRootCmd := NewRootCommand()
	testRootCmd.PersistentPreRunE = nil

	buf := new(bytes.Buffer)
	testRootCmd.SetOut(buf)
	testRootCmd.SetErr(buf)
	testRootCmd.SetArgs(append([]string{}, args...))
	err := testRootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

// createTempConfig writes a throwaway YAML config and returns its path.
func createTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// mockHistoryStore is a hand-rolled testify mock for the historyStore
// interface consumed by the history and verify commands.
type mockHistoryStore struct {
	mock.Mock
}

func (m *mockHistoryStore) ListSessions(ctx context.Context, limit int) ([]store.Session, error) {
	args := m.Called(ctx, limit)
	sessions, _ := args.Get(0).([]store.Session)
	return sessions, args.Error(1)
}

func (m *mockHistoryStore) SaveVerification(ctx context.Context, runID string, report *geometry.DeviationReport) error {
	args := m.Called(ctx, runID, report)
	return args.Error(0)
}

// mockStoreProvider hands out a canned store and records whether the
// cleanup function ran.
type mockStoreProvider struct {
	store      historyStore
	createErr  error
	cleanupRan bool
	lastCfg    *config.Config
}

func (p *mockStoreProvider) Create(ctx context.Context, cfg *config.Config) (historyStore, func(), error) {
	p.lastCfg = cfg
	if p.createErr != nil {
		return nil, nil, p.createErr
	}
	return p.store, func() { p.cleanupRan = true }, nil
}

func TestRootCmd_VersionFlag(t *testing.T) {
	testRootCmd := NewRootCommand()
	var out bytes.Buffer
	testRootCmd.SetOut(&out)
	testRootCmd.SetErr(&out)
	testRootCmd.SetArgs([]string{"--version"})

	err := testRootCmd.ExecuteContext(context.Background())

	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out.String())
}

func TestRootCmd_NoArgs(t *testing.T) {
	output, err := executeCommandNoPreRun(t)
	require.NoError(t, err)
	assert.Contains(t, output, "Figmaconvert turns rendered web pages into design tool documents.")
}

func TestVersionCmd(t *testing.T) {
	output, err := executeCommandNoPreRun(t, "version")
	require.NoError(t, err)
	assert.Contains(t, output, "figmaconvert "+Version)
}

func TestConvertCmd_RequiredArgs(t *testing.T) {
	output, err := executeCommandNoPreRun(t, "convert")
	require.Error(t, err)
	assert.Contains(t, output, "Error: accepts 1 arg(s), received 0")
}

func TestVerifyCmd_RequiredFlags(t *testing.T) {
	output, err := executeCommandNoPreRun(t, "verify")
	require.Error(t, err)
	assert.Contains(t, output, `required flag(s) "actual", "expected" not set`)
}

func TestCompressCmd_RequiredArgs(t *testing.T) {
	output, err := executeCommandNoPreRun(t, "compress", "only-one.json")
	require.Error(t, err)
	assert.Contains(t, output, "Error: accepts 2 arg(s), received 1")
}

func TestConfigFlagOverride(t *testing.T) {
	configContent := `
logger:
  level: error
  log_file: ""
capture:
  navigation_timeout: 120s
output:
  target_size_mb: 80
`
	configFile := createTempConfig(t, configContent)

	testRootCmd := NewRootCommand()

	var convertCmd *cobra.Command
	for _, sub := range testRootCmd.Commands() {
		if sub.Name() == "convert" {
			convertCmd = sub
			break
		}
	}
	require.NotNil(t, convertCmd)

	// Intercept RunE so no browser is launched; the assertions run against
	// the config the pre-run stored in the command context.
	var captured *config.Config
	convertCmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return err
		}
		captured = cfg
		return nil
	}

	var out bytes.Buffer
	testRootCmd.SetOut(&out)
	testRootCmd.SetErr(&out)
	testRootCmd.SetArgs([]string{"--config", configFile, "convert", "--timeout", "5s", "https://example.com"})

	err := testRootCmd.ExecuteContext(context.Background())
	require.NoError(t, err)
	require.NotNil(t, captured)

	// A changed flag wins over the file; untouched file values win over
	// defaults; everything else keeps its default.
	assert.Equal(t, 5*time.Second, captured.Capture.NavigationTimeout)
	assert.Equal(t, 80.0, captured.Output.TargetSizeMB)
	assert.Equal(t, "none", captured.Output.Compression)
	assert.Equal(t, 1280, captured.Capture.ViewportWidth)
}
