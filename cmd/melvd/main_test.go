package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/NaturesHolismMELV/AIOS/internal/config"
	"github.com/NaturesHolismMELV/AIOS/internal/environment"
	"github.com/NaturesHolismMELV/AIOS/internal/kernel"
)

// #region helpers
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	for _, k := range []string{"MELV_LOG_LEVEL", "MELV_LOG_FILE", "MELV_JOURNAL", "MELV_SIM_INTERVAL"} {
		t.Setenv(k, "")
	}
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func fixture(name string) string {
	return filepath.Join("..", "..", "internal", "replay", "testdata", name)
}

// #endregion helpers

func TestReplayCommand(t *testing.T) {
	out, err := execute(t, "replay", "--fixture", fixture("scenarios.json"), "--no-color")
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !strings.Contains(out, "PASS") {
		t.Fatalf("expected PASS, got:\n%s", out)
	}
}

func TestReplayCommandJSON(t *testing.T) {
	out, err := execute(t, "replay", "--fixture", fixture("maturity.json"), "--json")
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	var decoded struct {
		Results []json.RawMessage `json:"results"`
		Summary struct {
			Steps      int `json:"steps"`
			Mismatches int `json:"mismatches"`
		} `json:"summary"`
	}
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if decoded.Summary.Steps != 6 || len(decoded.Results) != 6 || decoded.Summary.Mismatches != 0 {
		t.Fatalf("unexpected summary %+v", decoded.Summary)
	}
}

func TestReplayCommandMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wrong.json")
	os.WriteFile(path, []byte(`{
		"nudge_noise": 0,
		"agents": [{"id": "A"}, {"id": "B"}],
		"steps": [{"id": "s1",
			"interaction": {"agent_a": "A", "agent_b": "B", "cost": 0.2, "benefit": 1, "resource": "compute"},
			"expect": {"class": "conflict"}}]
	}`), 0o644)
	_, err := execute(t, "replay", "--fixture", path, "--no-color")
	if err == nil || !strings.Contains(err.Error(), "1 mismatches") {
		t.Fatalf("expected mismatch error, got %v", err)
	}
}

func TestReplayCommandRequiresFixture(t *testing.T) {
	if _, err := execute(t, "replay"); err == nil {
		t.Fatal("expected missing flag error")
	}
}

func TestRunThenInspect(t *testing.T) {
	dir := t.TempDir()
	journalPath := filepath.Join(dir, "journal.db")
	cfgPath := filepath.Join(dir, "melv.yaml")
	cfg := fmt.Sprintf(`log:
  level: error
journal:
  path: %s
simulation:
  workers: 2
  min_interval: 1ms
  max_interval: 2ms
  seed: 5
health_interval: 10ms
environment:
  compute: 1.4
`, journalPath)
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "run", "--config", cfgPath, "--duration", "150ms", "--json")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var h kernel.Health
	if err := json.Unmarshal([]byte(out), &h); err != nil {
		t.Fatalf("decode health: %v\n%s", err, out)
	}
	if h.Agents != 8 {
		t.Fatalf("expected 8 seeded agents, got %d", h.Agents)
	}
	if h.TotalInteractions == 0 {
		t.Fatal("expected simulated interactions")
	}
	if h.Environment["compute"] != 1.4 {
		t.Fatalf("expected provisioned compute 1.4, got %v", h.Environment["compute"])
	}

	out, err = execute(t, "inspect", "--journal", journalPath, "--last", "5", "--json")
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	var ins inspectOutput
	if err := json.Unmarshal([]byte(out), &ins); err != nil {
		t.Fatalf("decode inspect: %v\n%s", err, out)
	}
	if ins.Counts.Interactions == 0 || ins.Counts.Interactions > h.TotalInteractions {
		t.Fatalf("journal has %d interactions, kernel %d", ins.Counts.Interactions, h.TotalInteractions)
	}
	if len(ins.Interactions) > 5 {
		t.Fatalf("expected at most 5 interactions, got %d", len(ins.Interactions))
	}
	for i := 1; i < len(ins.Interactions); i++ {
		if ins.Interactions[i].Seq <= ins.Interactions[i-1].Seq {
			t.Fatalf("interactions not chronological: %v", ins.Interactions)
		}
	}

	out, err = execute(t, "inspect", "--journal", journalPath, "--no-color")
	if err != nil {
		t.Fatalf("inspect text: %v", err)
	}
	if !strings.Contains(out, "Journal") || !strings.Contains(out, "Interactions") {
		t.Fatalf("unexpected inspect output:\n%s", out)
	}

	fixturePath := filepath.Join(dir, "exported.json")
	out, err = execute(t, "export", "--journal", journalPath, "--out", fixturePath, "--last", "30")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(out, "Exported") {
		t.Fatalf("unexpected export output %q", out)
	}
	if _, err := execute(t, "replay", "--fixture", fixturePath, "--no-color"); err != nil {
		t.Fatalf("replaying exported fixture: %v", err)
	}
}

func TestInspectMissingJournal(t *testing.T) {
	if _, err := execute(t, "inspect", "--journal", filepath.Join(t.TempDir(), "none.db")); err == nil {
		t.Fatal("expected error for missing journal")
	}
}

func TestBadLogLevelFlag(t *testing.T) {
	if _, err := execute(t, "replay", "--fixture", fixture("scenarios.json"), "--log-level", "loud"); err == nil {
		t.Fatal("expected log level error")
	}
}

func TestApplyProvisioning(t *testing.T) {
	k := kernel.New(kernel.Options{})
	cfg := config.Default()
	cfg.Environment = map[string]float64{"compute": 1.4, "token-budget": 9}

	applyProvisioning(k, cfg, slog.New(slog.DiscardHandler))
	if got := k.Beta(environment.Compute); got != 1.4 {
		t.Fatalf("compute beta = %v, want 1.4", got)
	}
	if got := k.Beta(environment.TokenBudget); got != 3.0 {
		t.Fatalf("token budget beta = %v, want clamp to 3.0", got)
	}

	cfg.Environment = map[string]float64{"bandwidth": 0.5}
	applyProvisioning(k, cfg, slog.New(slog.DiscardHandler))
	if got := k.Beta(environment.Compute); got != 1.4 {
		t.Fatalf("rejected config changed compute beta to %v", got)
	}
}

func TestRunMarkdownReport(t *testing.T) {
	reportPath := filepath.Join(t.TempDir(), "health.md")
	out, err := execute(t, "run", "--duration", "30ms", "--log-level", "error",
		"--no-color", "--markdown", "--report-out", reportPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, "MELV ecosystem health") {
		t.Fatalf("unexpected markdown output:\n%s", out)
	}
	data, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.HasPrefix(string(data), "# MELV ecosystem health\n") {
		t.Fatalf("unexpected report file:\n%s", data)
	}
}

func TestRunWatchReprovisions(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "melv.yaml")
	write := func(compute string) {
		body := "log:\n  level: error\nsimulation:\n  enabled: false\nwatch: true\nenvironment:\n  compute: " + compute + "\n"
		if err := os.WriteFile(cfgPath, []byte(body), 0o644); err != nil {
			t.Error(err)
		}
	}
	write("1.4")

	done := make(chan struct{})
	go func() {
		defer close(done)
		time.Sleep(200 * time.Millisecond)
		write("0.7")
	}()
	out, err := execute(t, "run", "--config", cfgPath, "--duration", "1s", "--json")
	<-done
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var h kernel.Health
	if err := json.Unmarshal([]byte(out), &h); err != nil {
		t.Fatalf("decode health: %v\n%s", err, out)
	}
	if h.Environment["compute"] != 0.7 {
		t.Fatalf("expected reloaded compute 0.7, got %v", h.Environment["compute"])
	}
}

func TestRunTwiceSameJournal(t *testing.T) {
	dir := t.TempDir()
	journalPath := filepath.Join(dir, "journal.db")
	cfgPath := filepath.Join(dir, "melv.yaml")
	cfg := fmt.Sprintf(`log:
  level: error
journal:
  path: %s
simulation:
  min_interval: 1ms
  max_interval: 2ms
  conflict_rate: 0.5
  seed: 9
`, journalPath)
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	var totals []int
	for i := 0; i < 2; i++ {
		out, err := execute(t, "run", "--config", cfgPath, "--duration", "100ms", "--json")
		if err != nil {
			t.Fatalf("run %d: %v", i+1, err)
		}
		var h kernel.Health
		if err := json.Unmarshal([]byte(out), &h); err != nil {
			t.Fatalf("decode health: %v\n%s", err, out)
		}
		if h.TotalInteractions == 0 {
			t.Fatalf("run %d recorded nothing", i+1)
		}
		totals = append(totals, h.TotalInteractions)
	}

	out, err := execute(t, "inspect", "--config", cfgPath, "--json")
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	var ins inspectOutput
	if err := json.Unmarshal([]byte(out), &ins); err != nil {
		t.Fatalf("decode inspect: %v\n%s", err, out)
	}
	if len(ins.Runs) != 2 {
		t.Fatalf("expected 2 runs, got %+v", ins.Runs)
	}
	for i, r := range ins.Runs {
		if r.Interactions != totals[i] {
			t.Fatalf("run %d journaled %d of %d interactions", i+1, r.Interactions, totals[i])
		}
	}
	if ins.Run != ins.Runs[1].ID || ins.Counts.Interactions != totals[1] {
		t.Fatalf("expected the latest run by default, got run %s with %+v", ins.Run, ins.Counts)
	}

	out, err = execute(t, "inspect", "--config", cfgPath, "--all-runs", "--json")
	if err != nil {
		t.Fatalf("inspect --all-runs: %v", err)
	}
	ins = inspectOutput{}
	if err := json.Unmarshal([]byte(out), &ins); err != nil {
		t.Fatalf("decode inspect: %v\n%s", err, out)
	}
	if ins.Run != "" || ins.Counts.Interactions != totals[0]+totals[1] {
		t.Fatalf("expected every run, got run %q with %+v", ins.Run, ins.Counts)
	}

	fixturePath := filepath.Join(dir, "first.json")
	if _, err := execute(t, "export", "--journal", journalPath, "--out", fixturePath, "--run", ins.Runs[0].ID); err != nil {
		t.Fatalf("export first run: %v", err)
	}
	if _, err := execute(t, "replay", "--fixture", fixturePath, "--no-color"); err != nil {
		t.Fatalf("replaying first run: %v", err)
	}
}
