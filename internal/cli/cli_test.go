package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const extraFilesJSON = `{
    "header": {"type": "productmd.extra_files", "version": "1.0"},
    "payload": {
        "compose": {"id": "Fedora-24-20160525.n.2", "type": "nightly", "date": "20160525", "respin": 2},
        "extra_files": {
            "Server": {
                "x86_64": [
                    {
                        "file": "Server/x86_64/os/GPL",
                        "size": 18092,
                        "checksums": {"sha256": "8177f97513213526df2cf6184d8ff986c675afb514d4e68a404010521b880643"}
                    }
                ]
            }
        }
    }
}
`

// runCLI executes the root command with args and returns its stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(viper.Reset)
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(t.Context())
	return out.String(), err
}

func writeExtraFiles(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "extra_files.json")
	require.NoError(t, os.WriteFile(path, []byte(extraFilesJSON), 0o644))
	return path
}

// ---------- Command tree tests ----------

func TestRootCommandHasSubcommands(t *testing.T) {
	root := newRootCommand()
	names := make([]string, 0, len(root.Commands()))
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	expected := []string{
		"validate", "convert", "inspect", "verify",
		"publish", "compose-id", "release-id",
	}
	for _, name := range expected {
		assert.Contains(t, names, name, "missing subcommand: %s", name)
	}
}

func TestRootCommandVersion(t *testing.T) {
	root := newRootCommand()
	assert.Equal(t, "dev", root.Version)
	for _, name := range []string{"config", "log-level", "zero-copy", "http-retries", "http-timeout"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(name), "missing flag: %s", name)
	}
}

func TestCommandFlags(t *testing.T) {
	tests := []struct {
		name  string
		cmd   *cobra.Command
		flags []string
	}{
		{name: "convert", cmd: newConvertCommand(), flags: []string{"output", "version", "encoding"}},
		{name: "publish", cmd: newPublishCommand(), flags: []string{"output", "base-url"}},
		{name: "release-id", cmd: newReleaseIDCommand(), flags: []string{"short", "version", "type", "base-short", "base-version", "base-type"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, name := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(name), "missing flag: %s", name)
			}
		})
	}
	assert.NotNil(t, newConvertCommand().Flags().ShorthandLookup("o"))
}

// ---------- Command execution tests ----------

func TestValidateCommand(t *testing.T) {
	path := writeExtraFiles(t)
	out, err := runCLI(t, "validate", path)
	require.NoError(t, err)
	assert.Equal(t, path+": productmd.extra_files 1.0 (Fedora-24-20160525.n.2)\n", out)

	_, err = runCLI(t, "validate")
	require.Error(t, err)

	_, err = runCLI(t, "validate", path, filepath.Join(t.TempDir(), "rpms.json"))
	require.Error(t, err)
	assert.Equal(t, 5, exitCodeForError(err))
}

func TestConvertCommand(t *testing.T) {
	path := writeExtraFiles(t)
	output := filepath.Join(t.TempDir(), "extra_files.yaml")
	out, err := runCLI(t, "convert", path, "-o", output, "--version", "2.0")
	require.NoError(t, err)
	assert.Contains(t, out, "converted productmd.extra_files 1.0 -> 2.0 (yaml)")

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(data), "local_path: Server/x86_64/os/GPL")

	_, err = runCLI(t, "convert", path)
	require.Error(t, err)

	_, err = runCLI(t, "convert", path, "-o", output, "--version", "0.3")
	require.Error(t, err)
	assert.Equal(t, 4, exitCodeForError(err))
}

func TestInspectCommand(t *testing.T) {
	out, err := runCLI(t, "inspect", writeExtraFiles(t))
	require.NoError(t, err)
	for _, line := range []string{
		"type: productmd.extra_files\n",
		"version: 1.0\n",
		"compose: Fedora-24-20160525.n.2\n",
		"entries: 1\n",
		"- Server [x86_64]: 1\n",
	} {
		assert.Contains(t, out, line)
	}
}

func TestPublishCommand(t *testing.T) {
	path := writeExtraFiles(t)
	output := filepath.Join(t.TempDir(), "published.json")
	out, err := runCLI(t, "publish", path, "-o", output, "--base-url", "https://cdn.example.com/compose")
	require.NoError(t, err)
	assert.Equal(t, "published productmd.extra_files: 1 locations -> "+output+"\n", out)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(data), "https://cdn.example.com/compose/Server/x86_64/os/GPL")
}

func TestPublishCommandBaseURLFromConfig(t *testing.T) {
	dir := t.TempDir()
	config := filepath.Join(dir, "productmd.yaml")
	require.NoError(t, os.WriteFile(config, []byte("base_url: https://mirror.example.com\n"), 0o644))
	output := filepath.Join(dir, "published.json")

	_, err := runCLI(t, "--config", config, "publish", writeExtraFiles(t), "-o", output)
	require.NoError(t, err)
	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(data), "https://mirror.example.com/Server/x86_64/os/GPL")

	_, err = runCLI(t, "--config", filepath.Join(dir, "missing.yaml"), "inspect", writeExtraFiles(t))
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}

func TestVerifyCommandMissingMetadata(t *testing.T) {
	_, err := runCLI(t, "verify", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
}

func TestComposeIDCommand(t *testing.T) {
	out, err := runCLI(t, "compose-id", "Fedora-24-20160525.n.2")
	require.NoError(t, err)
	assert.Contains(t, out, "short: Fedora\nversion: 24\n")
	assert.Contains(t, out, "date: 20160525\ncompose_type: nightly\nrespin: 2\n")

	_, err = runCLI(t, "compose-id", "not-a-compose")
	require.Error(t, err)
}

func TestReleaseIDCommand(t *testing.T) {
	out, err := runCLI(t, "release-id", "rhel-7.2-eus")
	require.NoError(t, err)
	assert.Equal(t, "short: rhel\nversion: 7.2\ntype: eus\n", out)

	out, err = runCLI(t, "release-id", "--short", "sap", "--version", "1.0", "--base-short", "rhel", "--base-version", "7")
	require.NoError(t, err)
	assert.Equal(t, "sap-1.0@rhel-7\n", out)

	_, err = runCLI(t, "release-id", "--short", "sap")
	require.Error(t, err)
}

// ---------- Helper function tests ----------

func TestResolveString(t *testing.T) {
	t.Cleanup(viper.Reset)
	tests := []struct {
		name     string
		cmd      *cobra.Command
		value    string
		expected string
	}{
		{
			name:     "nil cmd with value returns value",
			cmd:      nil,
			value:    "explicit",
			expected: "explicit",
		},
		{
			name:     "nil cmd empty value returns empty",
			cmd:      nil,
			value:    "",
			expected: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveString(tt.cmd, tt.value, "test_key", "test-flag")
			assert.Equal(t, tt.expected, got)
		})
	}

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("test-flag", "", "test flag")
	viper.Set("test_key", "configured")
	assert.Equal(t, "configured", resolveString(cmd, "default", "test_key", "test-flag"))
	require.NoError(t, cmd.Flags().Set("test-flag", "explicit"))
	assert.Equal(t, "explicit", resolveString(cmd, "explicit", "test_key", "test-flag"))
}

func TestFlagChanged(t *testing.T) {
	assert.False(t, flagChanged(nil, "anything"), "nil cmd should return false")
	assert.False(t, flagChanged(nil, ""), "nil cmd with empty name")

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("myflag", "", "test flag")
	assert.False(t, flagChanged(cmd, "myflag"), "unchanged flag")
	assert.False(t, flagChanged(cmd, "nonexistent"), "nonexistent flag")

	require.NoError(t, cmd.Flags().Set("myflag", "val"))
	assert.True(t, flagChanged(cmd, "myflag"))
}

// ---------- Exit code tests ----------

func TestExitCodeForError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{
			name: "invalid argument",
			err: errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("bad input"),
			expected: 2,
		},
		{
			name: "already exists",
			err: errbuilder.New().
				WithCode(errbuilder.CodeAlreadyExists).
				WithMsg("dup"),
			expected: 2,
		},
		{
			name: "unsupported version",
			err: errbuilder.New().
				WithCode(errbuilder.CodeFailedPrecondition).
				WithMsg("Unsupported metadata version: 3.0"),
			expected: 4,
		},
		{
			name: "not found",
			err: errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg("file missing"),
			expected: 5,
		},
		{
			name: "internal error",
			err: errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("boom"),
			expected: 5,
		},
		{
			name:     "unknown error",
			err:      assert.AnError,
			expected: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := exitCodeForError(tt.err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name: "errbuilder with msg",
			err: errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("something broke"),
			expected: "something broke",
		},
		{
			name:     "plain error",
			err:      assert.AnError,
			expected: assert.AnError.Error(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errorMessage(tt.err)
			assert.Equal(t, tt.expected, got)
		})
	}
}
