package shell_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/adapters/shell"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func newExecutor(t *testing.T) *shell.Executor {
	t.Helper()
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Debug(gomock.Any()).AnyTimes()
	return shell.NewExecutor(log)
}

func TestExecutor_Execute_MultiLineOutput(t *testing.T) {
	var stdout bytes.Buffer
	err := newExecutor(t).Execute(t.Context(), ports.Command{
		Args:       []string{"sh", "-c", "echo line1; echo line2"},
		WorkingDir: t.TempDir(),
	}, &stdout, nil)
	require.NoError(t, err)

	assert.Contains(t, stdout.String(), "line1")
	assert.Contains(t, stdout.String(), "line2")
}

func TestExecutor_Execute_LogsLines(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	gomock.InOrder(
		log.EXPECT().Debug("first"),
		log.EXPECT().Debug("second"),
	)

	err := shell.NewExecutor(log).Execute(t.Context(), ports.Command{
		Args:       []string{"sh", "-c", "echo first; printf second"},
		WorkingDir: t.TempDir(),
	}, nil, nil)
	require.NoError(t, err)
}

func TestExecutor_Execute_WorkingDirAndEnv(t *testing.T) {
	dir := t.TempDir()

	err := newExecutor(t).Execute(t.Context(), ports.Command{
		Args:        []string{"sh", "-c", "echo $KILN_BUILD > out.txt"},
		WorkingDir:  dir,
		Environment: map[string]string{"KILN_BUILD": "app"},
	}, nil, nil)
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "app\n", string(content))
}

func TestExecutor_Execute_Failure(t *testing.T) {
	err := newExecutor(t).Execute(t.Context(), ports.Command{
		Args:       []string{"sh", "-c", "exit 3"},
		WorkingDir: t.TempDir(),
	}, nil, nil)
	require.Error(t, err)
	assert.ErrorContains(t, err, domain.ErrScriptFailed.Error())
}

func TestExecutor_Execute_MissingBinary(t *testing.T) {
	err := newExecutor(t).Execute(t.Context(), ports.Command{
		Args:       []string{"kiln-definitely-not-a-binary"},
		WorkingDir: t.TempDir(),
	}, nil, nil)
	require.Error(t, err)
}

func TestExecutor_Execute_Empty(t *testing.T) {
	require.NoError(t, newExecutor(t).Execute(t.Context(), ports.Command{}, nil, nil))
}

func TestResolveEnvironment(t *testing.T) {
	env := shell.ResolveEnvironment(
		[]string{"PATH=/usr/bin", "SECRET=x", "HOME=/home/u", "broken"},
		map[string]string{"PATH": "/opt/bin", "NODE_ENV": "production"},
	)

	assert.Equal(t, []string{"HOME=/home/u", "NODE_ENV=production", "PATH=/opt/bin"}, env)
}
