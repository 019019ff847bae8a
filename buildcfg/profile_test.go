package buildcfg

import (
	"os"
	"path/filepath"
	"testing"
)

func writeModFile(t *testing.T, dir, contents string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "thunk-mod.toml"), []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadSelectsDefaultProfile(t *testing.T) {
	dir := t.TempDir()
	writeModFile(t, dir, `
[module]
name = "greeter"

[[module.profiles]]
name = "debug"
output = "greeter-debug"
debug = true

[[module.profiles]]
name = "release"
output = "greeter"
default = true
`)
	mod, prof, err := Load(dir, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if mod.Name != "greeter" {
		t.Fatalf("expected module name greeter, got %q", mod.Name)
	}
	if prof.Name != "release" {
		t.Fatalf("expected the profile marked default (release), got %q", prof.Name)
	}
	if prof.OutputPath != "greeter" {
		t.Fatalf("expected output path greeter, got %q", prof.OutputPath)
	}
}

func TestLoadSelectsNamedProfile(t *testing.T) {
	dir := t.TempDir()
	writeModFile(t, dir, `
[module]
name = "greeter"

[[module.profiles]]
name = "debug"
output = "greeter-debug"
debug = true

[[module.profiles]]
name = "release"
default = true
`)
	_, prof, err := Load(dir, "debug")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if prof.Name != "debug" || !prof.Debug {
		t.Fatalf("expected the debug profile, got %#v", prof)
	}
}

func TestLoadFallsBackToFirstProfileWithNoDefault(t *testing.T) {
	dir := t.TempDir()
	writeModFile(t, dir, `
[module]
name = "greeter"

[[module.profiles]]
name = "only"
`)
	_, prof, err := Load(dir, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if prof.Name != "only" {
		t.Fatalf("expected the sole profile to be selected, got %q", prof.Name)
	}
	if prof.CC != "cc" {
		t.Fatalf("expected the cc default to apply, got %q", prof.CC)
	}
}

func TestLoadUnknownNamedProfileFails(t *testing.T) {
	dir := t.TempDir()
	writeModFile(t, dir, `
[module]
name = "greeter"

[[module.profiles]]
name = "only"
`)
	if _, _, err := Load(dir, "nonexistent"); err == nil {
		t.Fatal("expected an error selecting a profile that doesn't exist")
	}
}

func TestLoadRejectsMissingModuleName(t *testing.T) {
	dir := t.TempDir()
	writeModFile(t, dir, `
[[module.profiles]]
name = "only"
`)
	if _, _, err := Load(dir, ""); err == nil {
		t.Fatal("expected an error for a thunk-mod.toml with no [module] table")
	}
}

func TestFindModuleRootWalksUpward(t *testing.T) {
	root := t.TempDir()
	writeModFile(t, root, `
[module]
name = "greeter"

[[module.profiles]]
name = "only"
`)
	nested := filepath.Join(root, "src", "inner")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	found, ok := FindModuleRoot(nested)
	if !ok {
		t.Fatal("expected to find the module root by walking upward")
	}
	if found != root {
		t.Fatalf("expected %q, got %q", root, found)
	}
}

func TestFindModuleRootReturnsFalseWhenNoneExists(t *testing.T) {
	if _, ok := FindModuleRoot(t.TempDir()); ok {
		t.Fatal("expected no module root to be found")
	}
}
