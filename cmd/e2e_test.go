package cmd

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/thunkc/thunkc/report"
)

// TestGoldenScenarios compiles every testdata/*.thunk file end to end
// (parse through link) and checks the resulting binary's stdout against
// its .golden file, the same shape as the teacher-adjacent
// you-not-fish-yoru/test/e2e/run_test.go pattern: build, link, run,
// diff. S5 in particular exercises an infinite self-referential list
// (ones = C 1 ones), stressing laziness and thunk update.
func TestGoldenScenarios(t *testing.T) {
	if _, err := exec.LookPath("cc"); err != nil {
		t.Skip("cc not found, skipping golden end-to-end tests")
	}

	runtimeC := findRuntimeC(t)
	os.Setenv("THUNKC_RUNTIME", runtimeC)
	defer os.Unsetenv("THUNKC_RUNTIME")

	sources, err := filepath.Glob("testdata/*.thunk")
	if err != nil {
		t.Fatal(err)
	}
	if len(sources) == 0 {
		t.Fatal("no .thunk files found in testdata/")
	}

	for _, src := range sources {
		src := src
		name := strings.TrimSuffix(filepath.Base(src), ".thunk")
		t.Run(name, func(t *testing.T) {
			runGoldenTest(t, src)
		})
	}
}

func runGoldenTest(t *testing.T, thunkFile string) {
	t.Helper()
	report.InitReporter(report.LogLevelSilent)

	goldenFile := strings.TrimSuffix(thunkFile, ".thunk") + ".golden"
	expected, err := os.ReadFile(goldenFile)
	if err != nil {
		t.Fatalf("reading golden file: %v", err)
	}

	absSrc, err := filepath.Abs(thunkFile)
	if err != nil {
		t.Fatal(err)
	}
	tmpDir := t.TempDir()
	binPath := filepath.Join(tmpDir, "out")

	c := &Compiler{
		sourcePath: absSrc,
		outputPath: binPath,
		outputMode: OutModeExecutable,
		cc:         "cc",
	}
	if !c.Run() {
		t.Fatalf("compilation of %s failed", thunkFile)
	}

	out, err := exec.Command(binPath).Output()
	if err != nil {
		t.Fatalf("running compiled binary: %v", err)
	}
	if string(out) != string(expected) {
		t.Errorf("output mismatch for %s:\ngot:  %q\nwant: %q", thunkFile, out, expected)
	}
}

func findRuntimeC(t *testing.T) string {
	t.Helper()
	candidates := []string{
		"../runtime/runtime.c",
		"../../runtime/runtime.c",
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			abs, _ := filepath.Abs(c)
			return abs
		}
	}
	t.Fatal("cannot find runtime/runtime.c")
	return ""
}
