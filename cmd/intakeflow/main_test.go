package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/newcast-health/intakeflow/pkg/flows"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "intakeflow version "))
}

func TestValidate(t *testing.T) {
	out, err := execute(t, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Flow 'patient_intake' is valid")
	assert.NotContains(t, out, "warning")
}

func TestValidate_BrokenFlow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	broken := strings.Replace(string(flows.PatientIntakeSource()), "- name: collect_patient_info", "- name: no_such_function", 1)
	require.NoError(t, os.WriteFile(path, []byte(broken), 0o644))

	_, err := execute(t, "validate", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestGraph(t *testing.T) {
	out, err := execute(t, "graph")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "graph TD"))
	assert.Contains(t, out, "collect_patient_info")
}
