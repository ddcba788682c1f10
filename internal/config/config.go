// Package config loads the machine configuration: kernel sizing, the
// host loop pacing and the processes init starts.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"minikern/kernel"
	"minikern/tasks"
)

// DefaultYAML is the configuration used when no file is given.
const DefaultYAML = `# minikern machine configuration
hz: 100
nr_tasks: 64
time_requests: 64
max_pid: 0          # 0 means the largest int32
wake_policy: fifo   # fifo or legacy
memory_pages: 4096

# Task steps executed between two ticks.
steps_per_tick: 4
# Ticks between two process table dumps on the console (0 disables).
status_every: 100
log_level: info

pulse_period: 10

# priority 0 or omitted inherits init's priority (15).
tasks:
  - name: hog
    program: spin
    priority: 15
    count: 2
  - name: batch
    program: spin
    priority: 5
  - name: tty
    program: sleeper
    priority: 10
    count: 2
  - name: cron
    program: alarm
    priority: 8
    arg: 2
  - name: sh
    program: forker
    priority: 6
    arg: 3
`

// TaskSpec declares a group of identical processes. A zero Priority keeps
// the priority inherited from init.
type TaskSpec struct {
	Name     string `yaml:"name"`
	Program  string `yaml:"program"`
	Priority int    `yaml:"priority,omitempty"`
	Count    int    `yaml:"count,omitempty"`
	Arg      int    `yaml:"arg,omitempty"`
}

// Config models the machine configuration file.
type Config struct {
	HZ           int    `yaml:"hz"`
	NrTasks      int    `yaml:"nr_tasks"`
	TimeRequests int    `yaml:"time_requests"`
	MaxPID       int    `yaml:"max_pid"`
	WakePolicy   string `yaml:"wake_policy"`
	MemoryPages  int    `yaml:"memory_pages"`

	StepsPerTick int    `yaml:"steps_per_tick"`
	StatusEvery  int    `yaml:"status_every"`
	LogLevel     string `yaml:"log_level"`
	PulsePeriod  int    `yaml:"pulse_period"`

	Tasks []TaskSpec `yaml:"tasks"`
}

// Default returns the parsed DefaultYAML.
func Default() Config {
	cfg, err := Parse([]byte(DefaultYAML))
	if err != nil {
		panic(fmt.Sprintf("config: default document: %v", err))
	}
	return cfg
}

// Load reads path. A missing file yields the defaults.
func Load(path string) (Config, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a YAML document, fills unset fields and validates it.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse: %w", err)
	}
	cfg.applyDefaults()
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.HZ == 0 {
		c.HZ = kernel.DefaultHZ
	}
	if c.NrTasks == 0 {
		c.NrTasks = kernel.DefaultNrTasks
	}
	if c.TimeRequests == 0 {
		c.TimeRequests = kernel.DefaultTimeRequests
	}
	if c.MemoryPages == 0 {
		c.MemoryPages = 4096
	}
	if c.StepsPerTick == 0 {
		c.StepsPerTick = 4
	}
	if c.PulsePeriod == 0 {
		c.PulsePeriod = 10
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *Config) normalize() {
	c.WakePolicy = strings.ToLower(strings.TrimSpace(c.WakePolicy))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	for i := range c.Tasks {
		t := &c.Tasks[i]
		t.Name = strings.TrimSpace(t.Name)
		t.Program = strings.ToLower(strings.TrimSpace(t.Program))
		if t.Name == "" {
			t.Name = t.Program
		}
		if t.Count == 0 {
			t.Count = 1
		}
	}
}

// Validate checks ranges and names.
func (c Config) Validate() error {
	if c.HZ < 1 {
		return fmt.Errorf("hz must be >= 1")
	}
	if c.NrTasks < 2 {
		return fmt.Errorf("nr_tasks must be >= 2")
	}
	if c.NrTasks > kernel.MaxNrTasks {
		return fmt.Errorf("nr_tasks must be <= %d", kernel.MaxNrTasks)
	}
	if c.TimeRequests < 1 {
		return fmt.Errorf("time_requests must be >= 1")
	}
	if c.MaxPID < 0 {
		return fmt.Errorf("max_pid must be >= 0")
	}
	if _, err := kernel.ParseWakePolicy(c.WakePolicy); err != nil {
		return fmt.Errorf("wake_policy: %w", err)
	}
	if c.MemoryPages < 1 {
		return fmt.Errorf("memory_pages must be >= 1")
	}
	if c.StepsPerTick < 1 {
		return fmt.Errorf("steps_per_tick must be >= 1")
	}
	if c.StatusEvery < 0 {
		return fmt.Errorf("status_every must be >= 0")
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	procs := 2 // idle and init
	for i, t := range c.Tasks {
		if _, ok := tasks.Lookup(t.Program); !ok {
			return fmt.Errorf("tasks[%d]: unknown program %q (have %s)", i, t.Program, strings.Join(tasks.Programs(), ", "))
		}
		if t.Priority < 0 {
			return fmt.Errorf("tasks[%d]: priority must be >= 0", i)
		}
		if t.Count < 0 {
			return fmt.Errorf("tasks[%d]: count must be >= 0", i)
		}
		procs += t.Count
	}
	if procs > c.NrTasks {
		return fmt.Errorf("tasks need %d slots, nr_tasks is %d", procs, c.NrTasks)
	}
	return nil
}

// Level returns the configured log level.
func (c Config) Level() zapcore.Level {
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// KernelConfig maps the file onto kernel sizing. Logger, Memory and Idle
// are left for the caller.
func (c Config) KernelConfig() kernel.Config {
	policy, _ := kernel.ParseWakePolicy(c.WakePolicy)
	return kernel.Config{
		NrTasks:      c.NrTasks,
		TimeRequests: c.TimeRequests,
		HZ:           c.HZ,
		MaxPID:       c.MaxPID,
		WakePolicy:   policy,
	}
}

// TaskSpecs converts the task list for init.
func (c Config) TaskSpecs() []tasks.Spec {
	out := make([]tasks.Spec, 0, len(c.Tasks))
	for _, t := range c.Tasks {
		out = append(out, tasks.Spec{
			Name:     t.Name,
			Program:  t.Program,
			Priority: t.Priority,
			Count:    t.Count,
			Arg:      t.Arg,
		})
	}
	return out
}
