package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writePanel writes a two-country quarterly panel starting in 2008-Q1.
func writePanel(t *testing.T, dir string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("country,period,value\n")
	for _, c := range []struct {
		id   string
		rate float64
	}{{"AAA", 0.02}, {"BBB", 0.01}} {
		for i := 0; i < 48; i++ {
			year, q := 2008+i/4, i%4+1
			fmt.Fprintf(&b, "%s,%d-Q%d,%.6f\n", c.id, year, q, 100*math.Pow(1+c.rate, float64(i)))
		}
	}
	path := filepath.Join(dir, "panel.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	yaml := fmt.Sprintf(`search:
  seasonal_max: 0
transform:
  lambda: 1
logging:
  level: error
metrics:
  textfile: %s
`, filepath.Join(dir, "gdpforecast.prom"))
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRunCommand(t *testing.T) {
	dir := t.TempDir()
	input := writePanel(t, dir)
	cfg := writeConfig(t, dir)
	reportPath := filepath.Join(dir, "report.json")
	forecasts := filepath.Join(dir, "forecasts.csv")

	out, err := execute(t, "run", "--config", cfg, "--env-file", "",
		"--input", input, "--report", reportPath, "--forecasts", forecasts)
	require.NoError(t, err)
	assert.Contains(t, out, "AAA")
	assert.Contains(t, out, "SARIMA(")

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Len(t, doc["countries"], 2)

	csv, err := os.ReadFile(forecasts)
	require.NoError(t, err)
	assert.Contains(t, string(csv), "AAA,2020-Q1,")
	assert.Contains(t, string(csv), "BBB,2020-Q4,")

	prom, err := os.ReadFile(filepath.Join(dir, "gdpforecast.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(prom), `gdpforecast_countries_total{status="ok"} 2`)
}

func TestSelectCommand(t *testing.T) {
	dir := t.TempDir()
	input := writePanel(t, dir)
	cfg := writeConfig(t, dir)

	out, err := execute(t, "select", "--config", cfg, "--env-file", "",
		"--input", input, "--country", "BBB", "--top", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Box-Cox lambda: 1.0000")
	assert.Contains(t, out, "Candidates: 8 evaluated")
	assert.Contains(t, out, "2020-Q1")

	_, err = execute(t, "select", "--config", cfg, "--env-file", "",
		"--input", input, "--country", "ZZZ")
	assert.ErrorContains(t, err, "ZZZ")
}

func TestRunCommandErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, "run", "--env-file", "")
	assert.Error(t, err)

	_, err = execute(t, "run", "--env-file", "", "--input", filepath.Join(dir, "panel.json"))
	assert.ErrorContains(t, err, "unsupported input format")

	_, err = execute(t, "run", "--env-file", "", "--config", filepath.Join(dir, "missing.yaml"),
		"--input", filepath.Join(dir, "panel.csv"))
	assert.ErrorContains(t, err, "read config")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "gdpforecast dev\n", out)
}
