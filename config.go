package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/prometheus/common/version"
	"gopkg.in/yaml.v3"
)

const appName = "sacctview"

// LogConfig selects where and how the session logs.
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Output string `yaml:"output" toml:"output"`
	Format string `yaml:"format" toml:"format"`
	File   string `yaml:"file" toml:"file"`
}

// Config is the raw configuration as written in a config file, the
// environment or on the command line. Durations stay strings until Resolve.
type Config struct {
	Mode            string      `yaml:"mode" toml:"mode"`
	SSHHost         string      `yaml:"ssh_host" toml:"ssh_host"`
	Fixture         string      `yaml:"fixture" toml:"fixture"`
	Refresh         bool        `yaml:"refresh" toml:"refresh"`
	RefreshInterval string      `yaml:"refresh_interval" toml:"refresh_interval"`
	Window          string      `yaml:"window" toml:"window"`
	Status          string      `yaml:"status" toml:"status"`
	MaxRows         int         `yaml:"max_rows" toml:"max_rows"`
	User            string      `yaml:"user" toml:"user"`
	CommandTimeout  string      `yaml:"command_timeout" toml:"command_timeout"`
	LogArchiveDir   string      `yaml:"log_archive_dir" toml:"log_archive_dir"`
	Efficiency      bool        `yaml:"efficiency" toml:"efficiency"`
	Log             LogConfig   `yaml:"log" toml:"log"`
	Theme           ThemeConfig `yaml:"theme" toml:"theme"`
}

func defaultConfig() Config {
	return Config{
		Mode:            string(ModeLocal),
		Refresh:         true,
		RefreshInterval: "5s",
		Window:          "today",
		Status:          "all",
		MaxRows:         500,
		CommandTimeout:  "30s",
		LogArchiveDir:   "~/.sacctview/logs",
		Log: LogConfig{
			Level:  "info",
			Output: "none",
			Format: "text",
		},
		Theme: ThemeConfig{
			Mode:     string(ThemeAuto),
			Surfaces: string(SurfaceTransparent),
			Palette:  string(PaletteDraculaSoft),
		},
	}
}

// Settings is a validated Config.
type Settings struct {
	Mode            ExecMode
	SSHHost         string
	Fixture         string
	Refresh         bool
	RefreshInterval time.Duration
	Window          TimeWindow
	Filter          StatusFilter
	MaxRows         int
	User            string
	CommandTimeout  time.Duration
	LogArchiveDir   string
	Efficiency      bool
	Log             LogConfig
	Theme           ThemeChoice
}

func (c Config) Resolve() (Settings, error) {
	s := Settings{
		SSHHost:       strings.TrimSpace(c.SSHHost),
		Fixture:       expandHomePath(c.Fixture),
		Refresh:       c.Refresh,
		MaxRows:       c.MaxRows,
		User:          strings.TrimSpace(c.User),
		LogArchiveDir: c.LogArchiveDir,
		Efficiency:    c.Efficiency,
		Log:           c.Log,
	}

	switch ExecMode(strings.ToLower(c.Mode)) {
	case ModeLocal:
		s.Mode = ModeLocal
	case ModeFixture:
		if s.Fixture == "" {
			return Settings{}, errors.New("fixture mode needs a fixture file")
		}
		s.Mode = ModeFixture
	case ModeSSH:
		if s.SSHHost == "" {
			return Settings{}, errors.New("ssh mode needs an ssh host")
		}
		s.Mode = ModeSSH
	default:
		return Settings{}, fmt.Errorf("unknown mode %q (want local, fixture or ssh)", c.Mode)
	}

	var err error
	if s.RefreshInterval, err = parsePositiveDuration("refresh interval", c.RefreshInterval); err != nil {
		return Settings{}, err
	}
	if s.CommandTimeout, err = time.ParseDuration(c.CommandTimeout); err != nil {
		return Settings{}, fmt.Errorf("invalid command timeout: %w", err)
	}
	if s.Window, err = parseWindow(c.Window); err != nil {
		return Settings{}, err
	}
	if s.Filter, err = parseStatusFilter(c.Status); err != nil {
		return Settings{}, err
	}
	if s.MaxRows < 0 {
		return Settings{}, fmt.Errorf("max rows must not be negative, got %d", s.MaxRows)
	}
	if s.Theme, err = c.Theme.resolve(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func parsePositiveDuration(name, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", name, value)
	}
	return d, nil
}

// applyEnv overlays SACCTVIEW_* variables.
func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(name string, dst *string) {
		if v := strings.TrimSpace(getenv("SACCTVIEW_" + name)); v != "" {
			*dst = v
		}
	}
	var errs []error
	boolean := func(name string, dst *bool) {
		if v := strings.TrimSpace(getenv("SACCTVIEW_" + name)); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("SACCTVIEW_%s: %w", name, err))
				return
			}
			*dst = b
		}
	}

	str("MODE", &c.Mode)
	str("SSH_HOST", &c.SSHHost)
	str("FIXTURE", &c.Fixture)
	boolean("REFRESH", &c.Refresh)
	str("REFRESH_INTERVAL", &c.RefreshInterval)
	str("WINDOW", &c.Window)
	str("STATUS", &c.Status)
	if v := strings.TrimSpace(getenv("SACCTVIEW_MAX_ROWS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("SACCTVIEW_MAX_ROWS: %w", err))
		} else {
			c.MaxRows = n
		}
	}
	str("USER", &c.User)
	str("COMMAND_TIMEOUT", &c.CommandTimeout)
	str("LOG_ARCHIVE_DIR", &c.LogArchiveDir)
	boolean("EFFICIENCY", &c.Efficiency)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_OUTPUT", &c.Log.Output)
	str("LOG_FORMAT", &c.Log.Format)
	str("LOG_FILE", &c.Log.File)
	str("THEME", &c.Theme.Mode)
	str("THEME_SURFACES", &c.Theme.Surfaces)
	str("THEME_PALETTE", &c.Theme.Palette)
	return errors.Join(errs...)
}

// loadFile overlays the keys present in a YAML or TOML file.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("unable to read config file(%s): %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	case ".toml":
		err = toml.Unmarshal(data, c)
	default:
		return fmt.Errorf("unsupported config file type: %s", path)
	}
	if err != nil {
		return fmt.Errorf("unable to parse config file(%s): %w", path, err)
	}
	return nil
}

// defaultConfigPath returns the first existing config file under the XDG
// config directory, or "".
func defaultConfigPath(getenv func(string) string) string {
	dir := getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	for _, name := range []string{"config.yaml", "config.yml", "config.toml"} {
		p := filepath.Join(dir, appName, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// flagValues holds command line values and whether each was given.
type flagValues struct {
	cfg   Config
	path  string
	isSet map[string]*bool
}

func (f *flagValues) set(name string) *bool {
	b := new(bool)
	f.isSet[name] = b
	return b
}

func newApp(f *flagValues) *kingpin.Application {
	app := kingpin.New(appName, "Terminal dashboard for slurm accounting (sacct) data.")
	app.HelpFlag.Short('h')

	app.Flag("config", "Config file (YAML or TOML). Defaults to $XDG_CONFIG_HOME/sacctview/config.{yaml,yml,toml}.").PlaceHolder("PATH").StringVar(&f.path)
	app.Flag("mode", "Where commands run, one of [local, fixture, ssh].").IsSetByUser(f.set("mode")).EnumVar(&f.cfg.Mode, "local", "fixture", "ssh")
	app.Flag("ssh-host", "Host to run slurm commands on in ssh mode.").IsSetByUser(f.set("ssh-host")).StringVar(&f.cfg.SSHHost)
	app.Flag("fixture", "File with canned sacct output for fixture mode.").PlaceHolder("PATH").IsSetByUser(f.set("fixture")).StringVar(&f.cfg.Fixture)
	app.Flag("refresh", "Re-query sacct on every tick (--no-refresh to disable).").IsSetByUser(f.set("refresh")).BoolVar(&f.cfg.Refresh)
	app.Flag("refresh-interval", "Time between refresh ticks (Go duration, e.g. 5s).").IsSetByUser(f.set("refresh-interval")).StringVar(&f.cfg.RefreshInterval)
	app.Flag("window", "Time window: today, 3days, week, or START,END (2006-01-02T15:04:05, END optional).").Short('w').IsSetByUser(f.set("window")).StringVar(&f.cfg.Window)
	app.Flag("status", "Status filter, one of [all, running, finished].").Short('s').IsSetByUser(f.set("status")).EnumVar(&f.cfg.Status, "all", "running", "finished")
	app.Flag("max-rows", "Maximum rows in the job list including the legend, 0 for no limit.").IsSetByUser(f.set("max-rows")).IntVar(&f.cfg.MaxRows)
	app.Flag("user", "Show jobs of this user (sacct -u). Defaults to sacct's own default.").Short('u').IsSetByUser(f.set("user")).StringVar(&f.cfg.User)
	app.Flag("command-timeout", "Timeout for each slurm, find or cat command (Go duration, 0 for none).").IsSetByUser(f.set("command-timeout")).StringVar(&f.cfg.CommandTimeout)
	app.Flag("log-archive-dir", "Extra directory searched for job log files.").PlaceHolder("DIR").IsSetByUser(f.set("log-archive-dir")).StringVar(&f.cfg.LogArchiveDir)
	app.Flag("efficiency", "Start with the efficiency columns shown.").Short('e').IsSetByUser(f.set("efficiency")).BoolVar(&f.cfg.Efficiency)
	// Logging related flags
	app.Flag("log.level", "Log level, one of [debug, info, warn, error].").IsSetByUser(f.set("log.level")).EnumVar(&f.cfg.Log.Level, "debug", "info", "warn", "error")
	app.Flag("log.output", "Log output, one of [none, stderr, file].").IsSetByUser(f.set("log.output")).EnumVar(&f.cfg.Log.Output, "none", "stderr", "file")
	app.Flag("log.format", "Log format, one of [json, text].").IsSetByUser(f.set("log.format")).EnumVar(&f.cfg.Log.Format, "json", "text")
	app.Flag("log.file", "Log file path when --log.output=file.").PlaceHolder("PATH").IsSetByUser(f.set("log.file")).StringVar(&f.cfg.Log.File)
	// Theme related flags
	app.Flag("theme", "Color mode, one of [auto, dark, light].").IsSetByUser(f.set("theme")).EnumVar(&f.cfg.Theme.Mode, "auto", "dark", "light")
	app.Flag("theme.surfaces", "Panel backgrounds, one of [transparent, solid].").IsSetByUser(f.set("theme.surfaces")).EnumVar(&f.cfg.Theme.Surfaces, "transparent", "solid")
	app.Flag("theme.palette", "Color palette, one of [dracula-soft, classic].").IsSetByUser(f.set("theme.palette")).EnumVar(&f.cfg.Theme.Palette, "dracula-soft", "classic")

	app.Version(version.Print(appName))
	return app
}

// LoadConfig builds the configuration from, in rising precedence, built-in
// defaults, SACCTVIEW_* environment variables, the config file and the
// command line.
func LoadConfig(args []string, getenv func(string) string) (Settings, error) {
	f := &flagValues{isSet: make(map[string]*bool)}
	app := newApp(f)
	if _, err := app.Parse(args); err != nil {
		return Settings{}, fmt.Errorf("failed to parse commandline arguments: %w", err)
	}

	cfg := defaultConfig()
	if err := cfg.applyEnv(getenv); err != nil {
		return Settings{}, err
	}

	path := f.path
	if path == "" {
		path = defaultConfigPath(getenv)
	}
	if path != "" {
		if err := cfg.loadFile(expandHomePath(path)); err != nil {
			return Settings{}, err
		}
	}

	f.overlay(&cfg)
	return cfg.Resolve()
}

func (f *flagValues) overlay(cfg *Config) {
	given := func(name string) bool {
		b, ok := f.isSet[name]
		return ok && *b
	}
	if given("mode") {
		cfg.Mode = f.cfg.Mode
	}
	if given("ssh-host") {
		cfg.SSHHost = f.cfg.SSHHost
	}
	if given("fixture") {
		cfg.Fixture = f.cfg.Fixture
	}
	if given("refresh") {
		cfg.Refresh = f.cfg.Refresh
	}
	if given("refresh-interval") {
		cfg.RefreshInterval = f.cfg.RefreshInterval
	}
	if given("window") {
		cfg.Window = f.cfg.Window
	}
	if given("status") {
		cfg.Status = f.cfg.Status
	}
	if given("max-rows") {
		cfg.MaxRows = f.cfg.MaxRows
	}
	if given("user") {
		cfg.User = f.cfg.User
	}
	if given("command-timeout") {
		cfg.CommandTimeout = f.cfg.CommandTimeout
	}
	if given("log-archive-dir") {
		cfg.LogArchiveDir = f.cfg.LogArchiveDir
	}
	if given("efficiency") {
		cfg.Efficiency = f.cfg.Efficiency
	}
	if given("log.level") {
		cfg.Log.Level = f.cfg.Log.Level
	}
	if given("log.output") {
		cfg.Log.Output = f.cfg.Log.Output
	}
	if given("log.format") {
		cfg.Log.Format = f.cfg.Log.Format
	}
	if given("log.file") {
		cfg.Log.File = f.cfg.Log.File
	}
	if given("theme") {
		cfg.Theme.Mode = f.cfg.Theme.Mode
	}
	if given("theme.surfaces") {
		cfg.Theme.Surfaces = f.cfg.Theme.Surfaces
	}
	if given("theme.palette") {
		cfg.Theme.Palette = f.cfg.Theme.Palette
	}
}
