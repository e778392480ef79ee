package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// setup writes a balanced dataset and a config pointing at it.
func setup(t *testing.T) (configPath, dir string) {
	t.Helper()
	dir = t.TempDir()
	var b strings.Builder
	b.WriteString("id,sequence,label\n")
	for i := range 20 {
		fmt.Fprintf(&b, "v%d,%s,1\n", i, strings.Repeat("GCCGGC", 6+i%2))
		fmt.Fprintf(&b, "n%d,%s,0\n", i, strings.Repeat("ATTAAT", 6+i%2))
	}
	data := writeFile(t, dir, "train.csv", b.String())
	cfg := fmt.Sprintf(`dataset:
  path: %s
classifier:
  forest:
    trees: 10
    max_depth: 5
storage:
  driver: file
  path: %s
`, data, filepath.Join(dir, "models", "model.bin"))
	return writeFile(t, dir, "test.yaml", cfg), dir
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTrainThenPredict(t *testing.T) {
	cfg, dir := setup(t)

	out, err := run(t, "", "train", "--config", cfg)
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	var training struct {
		Success bool `json:"success"`
		Model   struct {
			ID string `json:"id"`
		} `json:"model"`
	}
	if err := json.Unmarshal([]byte(out), &training); err != nil {
		t.Fatalf("decode train report: %v\n%s", err, out)
	}
	if !training.Success || training.Model.ID == "" {
		t.Errorf("unexpected train report: %s", out)
	}

	fastaPath := writeFile(t, dir, "query.fa", ">q1\n"+strings.Repeat("GCCGGC", 6)+"\n>q2\n"+strings.Repeat("ATTAAT", 6)+"\n")
	out, err = run(t, "", "predict", "--config", cfg, "--format", "csv", fastaPath)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[1], "q1") || !strings.Contains(lines[1], ",Viral,") {
		t.Errorf("row 1 = %q", lines[1])
	}
	if !strings.Contains(lines[2], "q2") || !strings.Contains(lines[2], ",Non-Viral,") {
		t.Errorf("row 2 = %q", lines[2])
	}

	out, err = run(t, "", "model", "--config", cfg)
	if err != nil {
		t.Fatalf("model: %v", err)
	}
	if !strings.Contains(out, training.Model.ID) {
		t.Errorf("model output does not carry the trained id: %s", out)
	}

	out, err = run(t, "", "model", "--stored", "--config", cfg)
	if err != nil {
		t.Fatalf("model --stored: %v", err)
	}
	var meta struct {
		ID    string `json:"id"`
		Bytes int    `json:"bytes"`
	}
	if err := json.Unmarshal([]byte(out), &meta); err != nil {
		t.Fatalf("decode stored metadata: %v\n%s", err, out)
	}
	if meta.ID != training.Model.ID || meta.Bytes == 0 {
		t.Errorf("stored metadata = %+v", meta)
	}
}

func TestModel_StoredUntrained(t *testing.T) {
	cfg, _ := setup(t)
	if _, err := run(t, "", "model", "--stored", "--config", cfg); err == nil {
		t.Fatal("expected error without a persisted model")
	}
}

func TestPredict_FromStdinJSON(t *testing.T) {
	cfg, _ := setup(t)
	if _, err := run(t, "", "train", "--config", cfg, "--classifier", "knn"); err != nil {
		t.Fatalf("train: %v", err)
	}
	out, err := run(t, strings.Repeat("GCCGGC", 6), "predict", "--config", cfg, "-")
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if !strings.Contains(out, `"User_Sequence"`) || !strings.Contains(out, `"raw_input": true`) {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestPredict_Untrained(t *testing.T) {
	cfg, dir := setup(t)
	fastaPath := writeFile(t, dir, "query.fa", ">q\nACGTACGT\n")
	if _, err := run(t, "", "predict", "--config", cfg, fastaPath); err == nil {
		t.Fatal("expected error without a persisted model")
	}
}

func TestPredict_BadFormat(t *testing.T) {
	cfg, _ := setup(t)
	if _, err := run(t, "", "predict", "--config", cfg, "--format", "xml", "-"); err == nil {
		t.Fatal("expected format error")
	}
}

func TestTrain_InvalidOverride(t *testing.T) {
	cfg, _ := setup(t)
	if _, err := run(t, "", "train", "--config", cfg, "--classifier", "svm"); err == nil {
		t.Fatal("expected validation error")
	}
}
