package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Bus.Servers[0] != "nats://localhost:4222" {
		t.Fatalf("expected default server, got %v", cfg.Bus.Servers)
	}
	if cfg.Synth.SampleRate != 22050 {
		t.Fatalf("expected default sample rate 22050, got %d", cfg.Synth.SampleRate)
	}
	if cfg.Packs.Directory != "./packs" {
		t.Fatalf("expected default packs dir, got %q", cfg.Packs.Directory)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("NVSP_BUS_SERVERS", "nats://one:4222, nats://two:4222")
	t.Setenv("NVSP_BUS_USERNAME", "alice")
	t.Setenv("NVSP_BUS_PASSWORD", "secret")
	t.Setenv("NVSP_SYNTH_SAMPLE_RATE", "24000")
	t.Setenv("NVSP_SYNTH_MAX_QUEUED_FRAMES", "512")
	t.Setenv("NVSP_PACKS_DIRECTORY", "/opt/packs")
	t.Setenv("NVSP_PACKS_DEFAULT_LANGUAGE", "en-us")
	t.Setenv("NVSP_EVENT_STORE_PATH", "./tmp.db")
	t.Setenv("NVSP_EVENT_STORE_RETENTION_MODE", "persistent")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cfg.Bus.Servers) != 2 {
		t.Fatalf("expected 2 servers, got %v", cfg.Bus.Servers)
	}
	if cfg.Bus.Username != "alice" || cfg.Bus.Password != "secret" {
		t.Fatalf("expected credentials override")
	}
	if cfg.Synth.SampleRate != 24000 {
		t.Fatalf("expected sample rate override, got %d", cfg.Synth.SampleRate)
	}
	if cfg.Synth.MaxQueuedFrames != 512 {
		t.Fatalf("expected queue size override, got %d", cfg.Synth.MaxQueuedFrames)
	}
	if cfg.Packs.Directory != "/opt/packs" {
		t.Fatalf("expected packs dir override, got %q", cfg.Packs.Directory)
	}
	if cfg.Packs.DefaultLanguage != "en-us" {
		t.Fatalf("expected default language override, got %q", cfg.Packs.DefaultLanguage)
	}
	if cfg.EventStore.Path != "./tmp.db" {
		t.Fatalf("expected event store path override")
	}
	if cfg.EventStore.RetentionMode != "persistent" {
		t.Fatalf("expected event store retention mode override")
	}
}

func TestValidateRejectsBadSynth(t *testing.T) {
	t.Setenv("NVSP_SYNTH_SAMPLE_RATE", "-1")
	if _, err := Load(""); err == nil {
		t.Fatal("expected validation error for negative sample rate")
	}
}
