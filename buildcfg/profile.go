// Package buildcfg reads thunk-mod.toml, the per-module build-profile file,
// mirroring the shape (if not the full generality) of the teacher's
// mods.LoadModule: a TOML file naming the module and listing one or more
// build profiles, one of which is selected by name or by its "default" flag.
package buildcfg

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml"

	"github.com/thunkc/thunkc/common"
)

// tomlModuleFile is thunk-mod.toml's top-level shape.
type tomlModuleFile struct {
	Module *tomlModule `toml:"module"`
}

type tomlModule struct {
	Name     string         `toml:"name"`
	Version  string         `toml:"thunkc-version"`
	Profiles []*tomlProfile `toml:"profiles"`
}

type tomlProfile struct {
	Name       string `toml:"name"`
	Format     string `toml:"format"`
	OutputPath string `toml:"output"`
	Debug      bool   `toml:"debug"`
	KeepC      bool   `toml:"keep-c"`
	CC         string `toml:"cc"`
	Default    bool   `toml:"default"`
}

// OutputFormat is what the driver produces once cemit has run.
type OutputFormat int

const (
	FormatExecutable OutputFormat = iota
	FormatC
)

// Profile is one fully resolved, ready-to-use build configuration.
type Profile struct {
	Name       string
	Format     OutputFormat
	OutputPath string
	Debug      bool
	KeepC      bool
	CC         string
}

// Module is a loaded thunk-mod.toml.
type Module struct {
	ModuleRoot string
	Name       string
}

// Load reads dir's thunk-mod.toml and resolves profileName ("" selects
// whichever profile is marked default, falling back to the first one
// listed).
func Load(dir, profileName string) (*Module, *Profile, error) {
	path := filepath.Join(dir, common.ThunkModFileName)
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	tmf := &tomlModuleFile{}
	if err := toml.NewDecoder(f).Decode(tmf); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	if tmf.Module == nil || tmf.Module.Name == "" {
		return nil, nil, fmt.Errorf("%s: missing [module] name", path)
	}
	if tmf.Module.Version != "" && tmf.Module.Version != common.CompilerVersion {
		fmt.Fprintf(os.Stderr, "warning: module %s targets thunkc %s, running %s\n",
			tmf.Module.Name, tmf.Module.Version, common.CompilerVersion)
	}

	prof, err := selectProfile(tmf.Module, profileName)
	if err != nil {
		return nil, nil, err
	}
	return &Module{ModuleRoot: dir, Name: tmf.Module.Name}, prof, nil
}

func selectProfile(mod *tomlModule, name string) (*Profile, error) {
	if len(mod.Profiles) == 0 {
		return nil, fmt.Errorf("module %q defines no build profiles", mod.Name)
	}

	var chosen *tomlProfile
	if name != "" {
		for _, p := range mod.Profiles {
			if p.Name == name {
				chosen = p
				break
			}
		}
		if chosen == nil {
			return nil, fmt.Errorf("module %q has no profile %q", mod.Name, name)
		}
	} else {
		for _, p := range mod.Profiles {
			if p.Default {
				chosen = p
				break
			}
		}
		if chosen == nil {
			chosen = mod.Profiles[0]
		}
	}
	return convertProfile(chosen)
}

func convertProfile(p *tomlProfile) (*Profile, error) {
	var format OutputFormat
	switch p.Format {
	case "", "exe":
		format = FormatExecutable
	case "c":
		format = FormatC
	default:
		return nil, fmt.Errorf("profile %q: unknown output format %q", p.Name, p.Format)
	}

	cc := p.CC
	if cc == "" {
		cc = "cc"
	}
	out := p.OutputPath
	if out == "" {
		out = "a.out"
	}

	return &Profile{
		Name:       p.Name,
		Format:     format,
		OutputPath: out,
		Debug:      p.Debug,
		KeepC:      p.KeepC,
		CC:         cc,
	}, nil
}

// DefaultProfile is used when no thunk-mod.toml governs the file being
// compiled — a bare `thunkc foo.thunk` invocation.
func DefaultProfile(outputPath string) *Profile {
	return &Profile{Format: FormatExecutable, OutputPath: outputPath, CC: "cc"}
}

// FindModuleRoot walks upward from startDir looking for a thunk-mod.toml,
// the same enclosing-directory search mods.LoadModule's caller performs
// before ever calling LoadModule itself.
func FindModuleRoot(startDir string) (string, bool) {
	dir := startDir
	for {
		if _, err := os.Stat(filepath.Join(dir, common.ThunkModFileName)); err == nil {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
