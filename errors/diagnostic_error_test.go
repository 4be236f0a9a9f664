package errors

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiagnosticErrorOutputsSourceAndDiagnostics(t *testing.T) {
	err := NewDiagnosticError("hello.sh", "/plugins/hello.sh", "source is not executable (executable bit not set?): file mode is -rw-r--r--")

	require.Contains(t, err.Error(), "Invalid plugin: hello.sh")
	require.Contains(t, err.Error(), "/plugins/hello.sh")
	require.Contains(t, err.Error(), "  - source is not executable")
}

func TestDiagnosticErrorWrapsLongDiagnostics(t *testing.T) {
	long := strings.Repeat("something has gone wrong ", 10)
	err := NewDiagnosticError("module.lua", "", long)

	for _, l := range strings.Split(err.Error(), "\n") {
		require.LessOrEqual(t, len(l), 82)
	}
}
