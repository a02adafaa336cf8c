package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Mode selects how reports are sourced. It is inferred once at startup from
// the positional argument: an http(s) URL polls live, anything else replays
// a record file.
type Mode int

const (
	ModeLive Mode = iota
	ModeReplay
)

func (m Mode) String() string {
	if m == ModeReplay {
		return "replay"
	}
	return "live"
}

type LoggingConfig struct {
	Level  string
	Format string // json or console
	File   string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Config is the fully resolved configuration. Regexes are compiled here so
// a bad pattern fails at startup, never at tick time.
type Config struct {
	Source           string
	Mode             Mode
	PollingInterval  time.Duration
	ChartTimePeriod  time.Duration
	ConnectionFilter *regexp.Regexp
	StatsKeyFilter   *regexp.Regexp
	RecordPath       string
	Global           bool
	HealthAddr       string
	Logging          LoggingConfig
	Kafka            KafkaConfig
}

// Load parses flags and environment (SORATOP_* overrides, flags win) into a
// validated Config. args is os.Args[1:].
func Load(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("soratop", pflag.ContinueOnError)
	fs.Float64("polling-interval", 1, "seconds between stats fetches")
	fs.Float64("chart-time-period", 60, "seconds of delta history kept for the chart")
	fs.String("connection-filter", "", "regex selecting connections by any key:value pair")
	fs.String("stats-key-filter", "", "regex selecting stats keys")
	fs.String("record", "", "append fetched reports to this file for later replay")
	fs.Bool("global", false, "query the cluster-wide stats instead of the local node")
	fs.String("health-addr", "", "listen address for /health and /metrics (disabled if empty)")
	fs.String("logfile", "", "write logs to this file (logging is off without it)")
	fs.String("loglevel", "info", "log level: debug, info, warn or error")
	fs.String("logformat", "json", "log format: json or console")
	fs.StringSlice("kafka-brokers", nil, "publish aggregated snapshots to these Kafka brokers")
	fs.String("kafka-topic", "soratop.stats", "Kafka topic for snapshot export")
	fs.Usage = func() {
		fmt.Println("Usage: soratop [flags] <stats API URL or record file>")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println(fs.FlagUsages())
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}
	v.SetEnvPrefix("SORATOP")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if fs.NArg() != 1 {
		fs.Usage()
		return nil, fmt.Errorf("exactly one stats API URL or record file is required")
	}
	src := fs.Arg(0)

	interval := v.GetFloat64("polling-interval")
	if interval <= 0 {
		return nil, fmt.Errorf("polling interval must be positive, got %v", interval)
	}
	period := v.GetFloat64("chart-time-period")
	if period <= 0 {
		return nil, fmt.Errorf("chart time period must be positive, got %v", period)
	}

	connFilter, err := compileFilter(v.GetString("connection-filter"))
	if err != nil {
		return nil, fmt.Errorf("connection filter: %w", err)
	}
	keyFilter, err := compileFilter(v.GetString("stats-key-filter"))
	if err != nil {
		return nil, fmt.Errorf("stats key filter: %w", err)
	}

	cfg := &Config{
		Source:           src,
		Mode:             inferMode(src),
		PollingInterval:  time.Duration(interval * float64(time.Second)),
		ChartTimePeriod:  time.Duration(period * float64(time.Second)),
		ConnectionFilter: connFilter,
		StatsKeyFilter:   keyFilter,
		RecordPath:       v.GetString("record"),
		Global:           v.GetBool("global"),
		HealthAddr:       v.GetString("health-addr"),
		Logging: LoggingConfig{
			Level:  v.GetString("loglevel"),
			Format: v.GetString("logformat"),
			File:   v.GetString("logfile"),
		},
		Kafka: KafkaConfig{
			Brokers: v.GetStringSlice("kafka-brokers"),
			Topic:   v.GetString("kafka-topic"),
		},
	}
	return cfg, nil
}

// compileFilter turns an empty pattern into match-all semantics.
func compileFilter(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	return regexp.Compile(pattern)
}

func inferMode(src string) Mode {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return ModeLive
	}
	return ModeReplay
}
