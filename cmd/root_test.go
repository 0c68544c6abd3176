package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainmocks "jumpscan.dev/pkg/jumpscan/internal/domain/mocks"
	m "jumpscan.dev/pkg/jumpscan/internal/model"
)

// withMockWorkflow swaps the package workflow for a mock for the duration of the test.
func withMockWorkflow(t *testing.T) *domainmocks.MockWorkflow {
	t.Helper()

	mockWorkflow := domainmocks.NewMockWorkflow(t)

	originalWorkflow := workflow
	workflow = mockWorkflow

	t.Cleanup(func() { workflow = originalWorkflow })

	return mockWorkflow
}

// newTestCmd builds a root command with sub attached, its output captured and
// logs routed to a temporary file.
func newTestCmd(t *testing.T, sub *cobra.Command, args ...string) (*cobra.Command, *bytes.Buffer) {
	t.Helper()

	if args == nil {
		args = []string{}
	}

	out := &bytes.Buffer{}

	cmd := newRootCmd()
	cmd.AddCommand(sub)
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	require.NoError(t, cmd.PersistentFlags().Set(logFileFlagName, filepath.Join(t.TempDir(), "jumpscan.log")))

	return cmd, out
}

func TestParsePaths(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []m.Path
	}{
		{"empty", []string{}, []m.Path{}},
		{"single", []string{"rates.json"}, []m.Path{m.Path("rates.json")}},
		{
			"multiple",
			[]string{"a.json", "b.json", "c.json"},
			[]m.Path{m.Path("a.json"), m.Path("b.json"), m.Path("c.json")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parsePaths(tt.args)
			require.Len(t, got, len(tt.want))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewRootCmd(t *testing.T) {
	cmd := newRootCmd()
	assert.Equal(t, "jumpscan", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.Equal(t, rootLongDescription, cmd.Long)

	for _, name := range []string{
		cacheDirFlagName, noCacheFlagName, formatFlagName, jqFlagName,
		verboseFlagName, logFileFlagName, chunkSizeFlagName, readRateFlagName,
	} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
}

func TestRootCmd_Subcommands(t *testing.T) {
	names := map[string]bool{}
	for _, sub := range rootCmd.Commands() {
		names[sub.Name()] = true
	}

	for _, want := range []string{"find", "first", "collect", "index", "decompress", "meta", "init", "version"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestRootCmd_HelpOutput(t *testing.T) {
	withMockWorkflow(t)

	cmd, out := newTestCmd(t, newVersionCmd())

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Usage:")
	assert.Contains(t, out.String(), "without loading them into memory")
}

func TestBuildWorkflow(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	w, err := buildWorkflow(cmd)
	require.NoError(t, err)
	assert.NotNil(t, w)

	require.NoError(t, cmd.PersistentFlags().Set(formatFlagName, "csv"))

	_, err = buildWorkflow(cmd)
	require.Error(t, err)
}

func TestRootCmd_BuildsWorkflowOnDemand(t *testing.T) {
	originalWorkflow := workflow
	workflow = nil

	t.Cleanup(func() { workflow = originalWorkflow })

	cmd, _ := newTestCmd(t, newVersionCmd(), "version")
	require.NoError(t, cmd.Execute())
	assert.NotNil(t, workflow)
}

func TestExecute(t *testing.T) {
	originalRootCmd := rootCmd

	mockCmd := &cobra.Command{
		Use: "test",
		RunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
	}
	mockCmd.SetOut(&bytes.Buffer{})
	mockCmd.SetErr(&bytes.Buffer{})

	rootCmd = mockCmd

	// Execute should not panic or exit.
	Execute()

	rootCmd = originalRootCmd
}

func TestExecute_WithError(t *testing.T) {
	originalRootCmd := rootCmd
	defer func() {
		rootCmd = originalRootCmd
	}()

	mockCmd := &cobra.Command{
		Use: "test",
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("command failed")
		},
	}
	mockCmd.SetOut(&bytes.Buffer{})
	mockCmd.SetErr(&bytes.Buffer{})

	rootCmd = mockCmd

	// Execute would call os.Exit(1), so only the command itself is checked.
	err := rootCmd.Execute()
	require.Error(t, err)
}

func TestExecute_ProcessLevel_Failure(t *testing.T) {
	if os.Getenv("TEST_EXECUTE_SUBPROCESS_FAIL") == "1" {
		mockCmd := &cobra.Command{
			Use: "test",
			RunE: func(cmd *cobra.Command, args []string) error {
				return fmt.Errorf("command failed")
			},
		}
		mockCmd.SetOut(os.Stdout)
		mockCmd.SetErr(os.Stderr)
		rootCmd = mockCmd

		Execute()

		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestExecute_ProcessLevel_Failure")
	cmd.Env = append(os.Environ(), "TEST_EXECUTE_SUBPROCESS_FAIL=1")
	output, err := cmd.CombinedOutput()

	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr, "output: %s", output)
	assert.Equal(t, 1, exitErr.ExitCode())
}
