// CLAUDE:SUMMARY Collector configuration: YAML file, defaults, environment overrides, path resolution.
package collector

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultURL is the UpSeller "sales by store" analytics page.
const DefaultURL = "https://app.upseller.com/pt/analytics/store-sales"

// Config holds all vendas configuration. Relative file paths are resolved
// against DataDir.
type Config struct {
	Addr     string `yaml:"addr"`
	Token    string `yaml:"token"`
	LogLevel string `yaml:"log_level"`
	URL      string `yaml:"url"`
	Timezone string `yaml:"timezone"`

	DataDir      string `yaml:"data_dir"`
	SessionFile  string `yaml:"session_file"`
	HistoryFile  string `yaml:"history_file"`
	HistoryLimit int    `yaml:"history_limit"`
	SnapshotDir  string `yaml:"snapshot_dir"`
	OutputDir    string `yaml:"output_dir"`
	RunLogDB     string `yaml:"runlog_db"`

	Browser   BrowserConfig  `yaml:"browser"`
	Timeouts  TimeoutConfig  `yaml:"timeouts"`
	Delays    DelayConfig    `yaml:"delays"`
	Selectors SelectorConfig `yaml:"selectors"`
	Schedule  ScheduleConfig `yaml:"schedule"`
}

// BrowserConfig controls Chrome.
type BrowserConfig struct {
	Remote           string        `yaml:"remote"`
	Headful          bool          `yaml:"headful"`
	DisableStealth   bool          `yaml:"disable_stealth"`
	RecycleInterval  time.Duration `yaml:"recycle_interval"`
	ResourceBlocking []string      `yaml:"resource_blocking"`
	ViewportWidth    int           `yaml:"viewport_width"`
	ViewportHeight   int           `yaml:"viewport_height"`
	Locale           string        `yaml:"locale"`
}

// TimeoutConfig bounds every wait of a run.
type TimeoutConfig struct {
	Navigation time.Duration `yaml:"navigation"`
	Picker     time.Duration `yaml:"picker"`
	Popup      time.Duration `yaml:"popup"`
	Spinner    time.Duration `yaml:"spinner"`
	Action     time.Duration `yaml:"action"`
}

// DelayConfig holds the fixed settle delays.
type DelayConfig struct {
	AfterNavigate time.Duration `yaml:"after_navigate"`
	AfterPreset   time.Duration `yaml:"after_preset"`
	BeforeScan    time.Duration `yaml:"before_scan"`
	BetweenClicks time.Duration `yaml:"between_clicks"`
	AfterPeriod   time.Duration `yaml:"after_period"`
	AfterGroup    time.Duration `yaml:"after_group"`
	Settle        time.Duration `yaml:"settle"`
}

// SelectorConfig holds the dashboard's selectors and labels.
type SelectorConfig struct {
	Picker         string `yaml:"picker"`
	Popup          string `yaml:"popup"`
	LeftPanel      string `yaml:"left_panel"`
	DayCell        string `yaml:"day_cell"`
	LastMonthClass string `yaml:"last_month_class"`
	NextMonthClass string `yaml:"next_month_class"`
	PeriodInputs   string `yaml:"period_inputs"`
	Table          string `yaml:"table"`
	Spinner        string `yaml:"spinner"`
	ThisMonth      string `yaml:"this_month"`
	Last30Days     string `yaml:"last_30_days"`
	GroupByStore   string `yaml:"group_by_store"`
	LoginMarker    string `yaml:"login_marker"`
}

// ScheduleConfig enables the built-in daily trigger.
type ScheduleConfig struct {
	DailyAt string `yaml:"daily_at"` // "HH:MM" in Timezone, empty = off
}

func (c *Config) applyDefaults() {
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.URL == "" {
		c.URL = DefaultURL
	}
	if c.Timezone == "" {
		c.Timezone = "America/Sao_Paulo"
	}
	if c.DataDir == "" {
		c.DataDir = "."
	}
	if c.SessionFile == "" {
		c.SessionFile = "cookies.json"
	}
	if c.HistoryFile == "" {
		c.HistoryFile = "historico_vendas.json"
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = 30
	}
	if c.SnapshotDir == "" {
		c.SnapshotDir = "screenshots"
	}
	if c.OutputDir == "" {
		c.OutputDir = "dados_vendas"
	}
	if c.RunLogDB == "" {
		c.RunLogDB = "vendas.db"
	}

	b := &c.Browser
	if b.RecycleInterval <= 0 {
		b.RecycleInterval = 4 * time.Hour
	}
	if b.ViewportWidth <= 0 {
		b.ViewportWidth = 1920
	}
	if b.ViewportHeight <= 0 {
		b.ViewportHeight = 1080
	}
	if b.Locale == "" {
		b.Locale = "pt-BR"
	}

	t := &c.Timeouts
	if t.Navigation <= 0 {
		t.Navigation = 60 * time.Second
	}
	if t.Picker <= 0 {
		t.Picker = 30 * time.Second
	}
	if t.Popup <= 0 {
		t.Popup = 5 * time.Second
	}
	if t.Spinner <= 0 {
		t.Spinner = 10 * time.Second
	}
	if t.Action <= 0 {
		t.Action = 30 * time.Second
	}

	// Zero is a valid delay, so only fully unset blocks get defaults.
	if c.Delays == (DelayConfig{}) {
		c.Delays = DelayConfig{
			AfterNavigate: 3 * time.Second,
			AfterPreset:   2 * time.Second,
			BeforeScan:    800 * time.Millisecond,
			BetweenClicks: 300 * time.Millisecond,
			AfterPeriod:   1 * time.Second,
			AfterGroup:    2 * time.Second,
			Settle:        3 * time.Second,
		}
	}

	s := &c.Selectors
	setDefault(&s.Picker, ".ant-calendar-picker")
	setDefault(&s.Popup, ".ant-calendar-range")
	setDefault(&s.LeftPanel, ".ant-calendar-range-left")
	setDefault(&s.DayCell, "td.ant-calendar-cell")
	setDefault(&s.LastMonthClass, "ant-calendar-last-month-cell")
	setDefault(&s.NextMonthClass, "ant-calendar-next-month-cell")
	setDefault(&s.PeriodInputs, ".ant-calendar-range-picker-input")
	setDefault(&s.Table, "table")
	setDefault(&s.Spinner, ".ant-spin")
	setDefault(&s.ThisMonth, "Este mês")
	setDefault(&s.Last30Days, "Últimos 30 dias")
	setDefault(&s.GroupByStore, "Por Loja")
	setDefault(&s.LoginMarker, "login")
}

func setDefault(p *string, v string) {
	if *p == "" {
		*p = v
	}
}

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadConfigFile reads a YAML config file and applies defaults. An empty
// path yields DefaultConfig.
func LoadConfigFile(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("collector: read config: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("collector: parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables: PORT, AUTH_TOKEN,
// LOG_LEVEL, VENDAS_URL, DATA_DIR, CHROME_REMOTE, VENDAS_DAILY_AT.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("PORT"); ok && v != "" {
		c.Addr = ":" + v
	}
	if v, ok := lookup("AUTH_TOKEN"); ok && v != "" {
		c.Token = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := lookup("VENDAS_URL"); ok && v != "" {
		c.URL = v
	}
	if v, ok := lookup("DATA_DIR"); ok && v != "" {
		c.DataDir = v
	}
	if v, ok := lookup("CHROME_REMOTE"); ok && v != "" {
		c.Browser.Remote = v
	}
	if v, ok := lookup("VENDAS_DAILY_AT"); ok {
		c.Schedule.DailyAt = v
	}
}

// Validate checks the fields that cannot be defaulted.
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("collector: timezone %q: %w", c.Timezone, err)
	}
	if c.Schedule.DailyAt != "" {
		if _, _, err := parseDailyAt(c.Schedule.DailyAt); err != nil {
			return err
		}
	}
	return nil
}

// Path resolves a configured file path against DataDir.
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.DataDir, p)
}
