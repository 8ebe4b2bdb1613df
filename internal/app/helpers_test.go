package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/calcfield/internal/testutil"
	"github.com/stretchr/testify/require"
)

// SetupAppTest creates a new app instance for system testing. Results and
// logs are captured in separate buffers; set CALCFIELD_TEST_LOGS=true to
// print the logs of every test.
func SetupAppTest(t *testing.T, cfg Config) (*App, *testutil.SafeBuffer, *testutil.SafeBuffer) {
	t.Helper()

	cfg.LogLevel = "debug"
	appConfig, err := NewConfig(cfg)
	require.NoError(t, err)

	outBuffer := &testutil.SafeBuffer{}
	logBuffer := &testutil.SafeBuffer{}
	testApp := NewApp(outBuffer, logBuffer, appConfig)

	t.Cleanup(func() {
		if os.Getenv("CALCFIELD_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})

	return testApp, outBuffer, logBuffer
}

const loanHCL = `
form "loan" {
  field "loanamount" {
    label = "Loan Amount"
    type  = "number"
  }
  field "rate" {
    label = "Rate"
    type  = "number"
  }
  field "interest" {
    label   = "Interest"
    formula = "{loanamount} * {rate} / 100"
    format {
      type = "currency"
    }
  }
  field "total" {
    label   = "Total"
    formula = "{loanamount} + {interest}"
    format {
      type = "currency"
    }
  }
  field "share" {
    label   = "Share"
    formula = "{interest} / {total}"
    format {
      type      = "percentage"
      precision = 1
    }
  }
}
`

// writeFiles writes files relative to a fresh temporary directory and
// returns that directory.
func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}
