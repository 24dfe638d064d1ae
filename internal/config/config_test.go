package config

import (
	"testing"
	"time"
)

func TestGetDefaults(t *testing.T) {
	cfg := GetDefaults()

	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Detection.ConfidenceFloor != 0.5 {
		t.Errorf("ConfidenceFloor = %v, want 0.5", cfg.Detection.ConfidenceFloor)
	}
	if !cfg.Detection.Pattern.Enabled || !cfg.Detection.Keyword.Enabled {
		t.Error("pattern and keyword sources should be enabled by default")
	}
	if cfg.Detection.NER.Enabled {
		t.Error("NER should be disabled by default")
	}
	if cfg.Anonymize.DefaultMode != "replace" {
		t.Errorf("DefaultMode = %s, want replace", cfg.Anonymize.DefaultMode)
	}
	if cfg.Cache.Enabled {
		t.Error("cache should be disabled by default")
	}

	if err := validateConfig(cfg); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config { return GetDefaults() }

	t.Run("bad port", func(t *testing.T) {
		cfg := valid()
		cfg.Server.Port = 0
		if err := validateConfig(cfg); err == nil {
			t.Error("validateConfig accepted port 0")
		}
	})

	t.Run("confidence floor out of range", func(t *testing.T) {
		for _, floor := range []float64{-0.1, 1.1} {
			cfg := valid()
			cfg.Detection.ConfidenceFloor = floor
			if err := validateConfig(cfg); err == nil {
				t.Errorf("validateConfig accepted floor %v", floor)
			}
		}
	})

	t.Run("unknown anonymization mode", func(t *testing.T) {
		cfg := valid()
		cfg.Anonymize.DefaultMode = "shred"
		if err := validateConfig(cfg); err == nil {
			t.Error("validateConfig accepted unknown mode")
		}
	})

	t.Run("multi-byte mask character", func(t *testing.T) {
		cfg := valid()
		cfg.Anonymize.MaskCharacter = "**"
		if err := validateConfig(cfg); err == nil {
			t.Error("validateConfig accepted multi-byte mask character")
		}
	})

	t.Run("enabled NER requires a timeout", func(t *testing.T) {
		cfg := valid()
		cfg.Detection.NER.Enabled = true
		cfg.Detection.NER.Timeout = 0
		if err := validateConfig(cfg); err == nil {
			t.Error("validateConfig accepted NER without timeout")
		}
		cfg.Detection.NER.Timeout = 5 * time.Second
		if err := validateConfig(cfg); err != nil {
			t.Errorf("validateConfig rejected valid NER config: %v", err)
		}
	})

	t.Run("bad log level", func(t *testing.T) {
		cfg := valid()
		cfg.Logging.Level = "verbose"
		if err := validateConfig(cfg); err == nil {
			t.Error("validateConfig accepted unknown log level")
		}
	})
}
