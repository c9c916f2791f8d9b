package locator

import (
	"os"
	"os/exec"
	"runtime"

	"github.com/ZebulonRouseFrantzich/toolsmith/internal/platform"
)

// Env is the snapshot of the environment the locator needs. It is read
// once so that search paths are reproducible in tests.
type Env struct {
	OS     string // target GOOS; decides separators and path lists
	Family string // Linux distribution family

	Home              string
	UserProfile       string
	LocalAppData      string
	ChocolateyInstall string
	CondaPrefix       string
	CargoHome         string

	// LookPath resolves a program name through PATH
	LookPath func(file string) (string, error)
}

// EnvFromOS reads the process environment. info supplies the OS and
// distribution family; nil means runtime.GOOS.
func EnvFromOS(info *platform.Info) Env {
	env := Env{
		OS:                runtime.GOOS,
		Home:              os.Getenv("HOME"),
		UserProfile:       os.Getenv("USERPROFILE"),
		LocalAppData:      os.Getenv("LOCALAPPDATA"),
		ChocolateyInstall: os.Getenv("ChocolateyInstall"),
		CondaPrefix:       os.Getenv("CONDA_PREFIX"),
		CargoHome:         os.Getenv("CARGO_HOME"),
		LookPath:          exec.LookPath,
	}
	if info != nil {
		env.OS = info.OS
		env.Family = info.Family
	}
	if env.Home == "" {
		if home, err := os.UserHomeDir(); err == nil {
			env.Home = home
		}
	}
	return env
}
