package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
	if cfg.TempShowDuration() != 15*time.Second {
		t.Fatalf("expected 15s temp show interval, got %v", cfg.TempShowDuration())
	}
	if cfg.MoveTimeout() != 25*time.Millisecond || cfg.ClickTimeout() != 250*time.Millisecond {
		t.Fatalf("unexpected event timeouts %v/%v", cfg.MoveTimeout(), cfg.ClickTimeout())
	}
}

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	res, err := LoadFromPath(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.PollInterval != DefaultPollInterval {
		t.Fatalf("expected poll_interval %d, got %d", DefaultPollInterval, res.Config.PollInterval)
	}
	if len(res.Files) != 0 {
		t.Fatalf("expected no loaded files, got %v", res.Files)
	}
}

func TestLoadFromPath_OverridesAndExplain(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, strings.Join([]string{
		"temp_show_interval: 30",
		"control_items:",
		"  hidden: \"fold\"",
		"pinned_items:",
		"  - \"nm-applet:Network\"",
		"",
	}, "\n"))

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := res.Config
	if cfg.TempShowInterval != 30 {
		t.Fatalf("expected temp_show_interval 30, got %d", cfg.TempShowInterval)
	}
	if cfg.ControlItems.Hidden != "fold" || cfg.ControlItems.Visible != "visible" {
		t.Fatalf("unexpected control items %+v", cfg.ControlItems)
	}
	if len(cfg.PinnedItems) != 1 || cfg.PinnedItems[0] != "nm-applet:Network" {
		t.Fatalf("unexpected pinned items %v", cfg.PinnedItems)
	}

	val, src, err := Explain(res, "control_items.hidden")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if val != "fold" || src.Kind != SourceFile || src.Line != 3 {
		t.Fatalf("unexpected explain result %#v %#v", val, src)
	}

	val, src, err = Explain(res, "poll_interval")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if val != DefaultPollInterval || src.Kind != SourceDefault {
		t.Fatalf("unexpected explain result %#v %#v", val, src)
	}

	if _, _, err := Explain(res, "control_items.hidden.extra"); err == nil {
		t.Fatalf("expected unknown path error")
	}
}

func TestLoadFromPath_StrictUnknownKeyErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "unknown_key: 1\n")

	_, err := LoadFromPath(path)
	if err == nil {
		t.Fatalf("expected error for unknown key")
	}
	if !strings.Contains(err.Error(), "unknown_key") {
		t.Fatalf("expected unknown field error, got %v", err)
	}
	if !strings.Contains(err.Error(), path) {
		t.Fatalf("expected error to include file path, got %v", err)
	}
}

func TestLoadFromPath_ValidationErrorHasSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "log_level: info\nmax_move_attempts: 0\n")

	_, err := LoadFromPath(path)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Path != "max_move_attempts" || verr.Source.Line != 2 {
		t.Fatalf("unexpected validation error %+v", verr)
	}
	if !strings.HasPrefix(err.Error(), path+":2:") {
		t.Fatalf("expected file:line prefix, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"zero temp show", func(c *Config) { c.TempShowInterval = 0 }, "temp_show_interval"},
		{"zero poll", func(c *Config) { c.PollInterval = 0 }, "poll_interval"},
		{"empty namespace", func(c *Config) { c.ControlItems.Namespace = " " }, "control_items.namespace"},
		{"duplicate titles", func(c *Config) { c.ControlItems.Visible = "hidden" }, "control_items.visible"},
		{"bad pinned tag", func(c *Config) { c.PinnedItems = []string{"no-colon"} }, "pinned_items.0"},
		{"always hidden title ignored when not docked", func(c *Config) {
			c.ControlItems.DockAlwaysHidden = false
			c.ControlItems.AlwaysHidden = ""
		}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.path == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Path != tt.path {
				t.Fatalf("Validate() error = %v, want path %s", err, tt.path)
			}
		})
	}
}

func TestLoadFromPath_IncludeDirectoryOrderAndMainOverrides(t *testing.T) {
	dir := t.TempDir()

	// config.d loaded first, in sorted order.
	configD := filepath.Join(dir, "config.d")
	if err := os.MkdirAll(configD, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, filepath.Join(configD, "10-base.yaml"), "poll_interval: 5\nclick_timeout_ms: 400\n")
	writeFile(t, filepath.Join(configD, "20-override.yaml"), "poll_interval: 6\n")

	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "include:\n  - config.d\npoll_interval: 7\n")

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.PollInterval != 7 {
		t.Fatalf("expected poll_interval to be 7, got %d", res.Config.PollInterval)
	}
	if res.Config.ClickTimeoutMS != 400 {
		t.Fatalf("expected click_timeout_ms from include, got %d", res.Config.ClickTimeoutMS)
	}
	if len(res.Files) != 3 {
		t.Fatalf("expected 3 loaded files, got %v", res.Files)
	}
}

func TestLoadFromPath_IncludeCycleDetection(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.yaml")
	b := filepath.Join(dir, "b.yaml")
	writeFile(t, a, "include: b.yaml\n")
	writeFile(t, b, "include: a.yaml\n")

	_, err := LoadFromPath(a)
	if err == nil || !strings.Contains(err.Error(), "include cycle") {
		t.Fatalf("expected cycle error, got %v", err)
	}
}

func TestIncludedFiles(t *testing.T) {
	dir := t.TempDir()
	home := filepath.Join(dir, "home")
	t.Setenv("HOME", home)

	confD := filepath.Join(dir, "conf.d")
	if err := os.MkdirAll(filepath.Join(confD, "nested.yaml"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.MkdirAll(home, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, filepath.Join(confD, "b.yml"), "")
	writeFile(t, filepath.Join(confD, "a.YAML"), "")
	writeFile(t, filepath.Join(confD, "notes.txt"), "")
	writeFile(t, filepath.Join(dir, "extra.yaml"), "")
	writeFile(t, filepath.Join(home, "tray.yaml"), "")

	from := filepath.Join(dir, "config.yaml")
	tests := []struct {
		name    string
		include string
		want    []string
		wantErr bool
	}{
		{name: "relative file", include: "extra.yaml", want: []string{filepath.Join(dir, "extra.yaml")}},
		{name: "home", include: "~/tray.yaml", want: []string{filepath.Join(home, "tray.yaml")}},
		{
			name:    "directory",
			include: "conf.d",
			want:    []string{filepath.Join(confD, "a.YAML"), filepath.Join(confD, "b.yml")},
		},
		{name: "empty", include: "", wantErr: true},
		{name: "missing", include: "nope.yaml", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := includedFiles(from, tt.include)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("includedFiles: %v", err)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Fatalf("includedFiles = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadFromPath_SharedIncludeMergedOnce(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "shared.yaml"), "poll_interval: 4\n")
	writeFile(t, filepath.Join(dir, "a.yaml"), "include: shared.yaml\n")
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "include:\n  - a.yaml\n  - shared.yaml\n")

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.PollInterval != 4 {
		t.Fatalf("poll_interval = %d, want 4", res.Config.PollInterval)
	}
	if len(res.Files) != 3 {
		t.Fatalf("expected 3 loaded files, got %v", res.Files)
	}
	if src := res.Sources["poll_interval"]; filepath.Base(src.File) != "shared.yaml" || src.Line != 1 {
		t.Fatalf("poll_interval source = %+v", src)
	}
}

func TestSaveToPathRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.PinnedItems = []string{"app:Clock"}
	cfg.TempShowInterval = 9
	if err := cfg.SaveToPath(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.TempShowInterval != 9 || len(res.Config.PinnedItems) != 1 {
		t.Fatalf("saved config not reloaded: %+v", res.Config)
	}
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "poll_interval: 5\n")

	w := NewWatcher(path, nil)
	w.debounce = 10 * time.Millisecond
	got := make(chan int, 4)
	w.OnConfigChange(func(res *LoadResult) { got <- res.Config.PollInterval })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	// Give the watcher time to register before writing.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for n := 9; ; n++ {
		select {
		case v := <-got:
			if v < 9 {
				t.Fatalf("reloaded poll_interval = %d", v)
			}
			return
		case <-tick.C:
			writeFile(t, path, "poll_interval: "+strconv.Itoa(n)+"\n")
		case <-deadline:
			t.Fatalf("watcher never reloaded")
		}
	}
}

func TestWatcherSkipsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "poll_interval: 5\n")

	w := NewWatcher(path, nil)
	w.debounce = 10 * time.Millisecond
	called := make(chan struct{}, 1)
	w.OnConfigChange(func(*LoadResult) { called <- struct{}{} })

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	writeFile(t, path, "poll_interval: 0\n")
	<-done

	select {
	case <-called:
		t.Fatalf("callback ran for an invalid config")
	default:
	}
}
