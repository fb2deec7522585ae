package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// DefaultAppName names the config and data directories when no override is given.
const DefaultAppName = "trestle"

// Paths holds the per-user locations of the grid database, config and dev logs.
// AppName is the directory name the others are built from, including any -dev suffix.
type Paths struct {
	AppName    string
	ConfigPath string
	DataDir    string
	DBPath     string
	LogDir     string
}

// LogFile returns the dev log for day under LogDir.
func (p Paths) LogFile(day time.Time) string {
	return LogFile(p.LogDir, p.AppName, day)
}

// LogFile names the dev log for appName and day inside dir. Each app writes
// one file per UTC day.
func LogFile(dir, appName string, day time.Time) string {
	name := fmt.Sprintf("%s-%s.log", fileStem(appName), day.UTC().Format("20060102"))
	return filepath.Join(filepath.Clean(dir), name)
}

// fileStem turns an app name into a single path segment.
func fileStem(appName string) string {
	replacer := strings.NewReplacer("/", "-", "\\", "-", ":", "-", " ", "-")
	stem := strings.Trim(replacer.Replace(strings.TrimSpace(appName)), "-")
	if stem == "" {
		return DefaultAppName
	}
	return stem
}

// Options selects the app directory name.
type Options struct {
	AppName string
	DevMode bool
}

// dirName returns the app directory name, suffixed with -dev in dev mode.
func (o Options) dirName() string {
	name := strings.TrimSpace(o.AppName)
	if name == "" {
		name = DefaultAppName
	}
	if o.DevMode {
		name += "-dev"
	}
	return name
}

// baseEnv lists, per GOOS, the variables that relocate the config and data bases.
var baseEnv = map[string]struct{ config, data string }{
	"linux":   {config: "XDG_CONFIG_HOME", data: "XDG_DATA_HOME"},
	"windows": {config: "APPDATA", data: "LOCALAPPDATA"},
}

// DefaultPaths returns the paths for the default app outside dev mode.
func DefaultPaths() (Paths, error) {
	return DefaultPathsWithOptions(Options{})
}

// DefaultPathsWithOptions resolves paths for the running OS and user.
func DefaultPathsWithOptions(opts Options) (Paths, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return Paths{}, fmt.Errorf("user config dir: %w", err)
	}
	dataDir, err := defaultDataBase(runtime.GOOS, configDir)
	if err != nil {
		return Paths{}, err
	}

	env := map[string]string{}
	if vars, ok := baseEnv[runtime.GOOS]; ok {
		env[vars.config] = os.Getenv(vars.config)
		env[vars.data] = os.Getenv(vars.data)
	}
	return PathsFor(runtime.GOOS, env, configDir, dataDir, opts.dirName())
}

// defaultDataBase picks the data base used when no env override is set. Only
// linux separates data from config by default.
func defaultDataBase(goos, configDir string) (string, error) {
	if goos != "linux" {
		return configDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("user home dir: %w", err)
	}
	return filepath.Join(home, ".local", "share"), nil
}

// PathsFor resolves paths for goos from explicit base dirs and environment.
func PathsFor(goos string, env map[string]string, userConfigDir, userDataDir, appName string) (Paths, error) {
	appName = strings.TrimSpace(appName)
	switch {
	case userConfigDir == "" || userDataDir == "":
		return Paths{}, errors.New("empty base dirs")
	case appName == "":
		return Paths{}, errors.New("empty app name")
	}

	configBase, dataBase := userConfigDir, userDataDir
	if vars, ok := baseEnv[goos]; ok {
		if v := env[vars.config]; v != "" {
			configBase = v
		}
		if v := env[vars.data]; v != "" {
			dataBase = v
		}
	}

	dataDir := filepath.Join(dataBase, appName)
	return Paths{
		AppName:    appName,
		ConfigPath: filepath.Join(configBase, appName, "config.toml"),
		DataDir:    dataDir,
		DBPath:     filepath.Join(dataDir, appName+".db"),
		LogDir:     filepath.Join(dataDir, "log"),
	}, nil
}
