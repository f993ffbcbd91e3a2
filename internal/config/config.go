// Package config loads the daemon's persisted configuration file. It is
// deliberately narrow: it maps explicit YAML values onto dictation.Config
// and does not perform the original daemon's executable/model/device
// auto-discovery, which remains a collaborator contract handled outside
// this module.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vtype-dev/vtyped/pkg/dictation"
)

// fileConfig mirrors the on-disk YAML shape. Field names match the
// original daemon's config.ini keys (snake_case) so an operator migrating
// from it recognizes every setting.
type fileConfig struct {
	// Mode is the original daemon's single legacy key ("hotkey-batch",
	// "hotkey-stream", "listen-batch", "listen-stream"). When present and
	// InputMode/OutputMode are both absent, Mode wins — new keys always take
	// precedence when they're explicitly set.
	Mode string `yaml:"mode"`

	InputMode  string `yaml:"input_mode"`
	OutputMode string `yaml:"output_mode"`

	Language         string   `yaml:"language"`
	Threads          int      `yaml:"threads"`
	GPUDevice        *int     `yaml:"gpu_device"`
	TranscriberCLI   string   `yaml:"transcriber_cli"`
	Model            string   `yaml:"model"`
	ListenModel      string   `yaml:"listen_model"`
	DisplayServer    string   `yaml:"display_server"`
	PasteKeys        string   `yaml:"paste_keys"`
	WakeWord         string   `yaml:"wake_word"`
	WakeWordSuffixes []string `yaml:"wake_word_suffixes"`
	SilenceTimeoutS  float64  `yaml:"silence_timeout"`
	VADThreshold     float64  `yaml:"vad_threshold"`
	MinSpeechMS      int      `yaml:"min_speech_ms"`
	MaxSpeechS       float64  `yaml:"max_speech_s"`
	EndSignal        *bool    `yaml:"end_signal"`
	VoiceCommands    *bool    `yaml:"voice_commands"`
	AudioDevice      string   `yaml:"audio_device"`
}

// Load reads path, overlays it onto dictation.DefaultConfig(), and resolves
// the legacy mode key, returning the merged Config ready to hand to
// dictation.NewCoordinator. A missing file is not an error: it simply
// yields the defaults.
func Load(path string) (dictation.Config, error) {
	cfg := dictation.DefaultConfig()

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	applyOverrides(&cfg, fc)
	return cfg, nil
}

func applyOverrides(cfg *dictation.Config, fc fileConfig) {
	if fc.Language != "" {
		cfg.Language = fc.Language
	}
	if fc.Threads != 0 {
		cfg.Threads = fc.Threads
	}
	if fc.GPUDevice != nil {
		cfg.GPUDevice = *fc.GPUDevice
	}
	if fc.TranscriberCLI != "" {
		cfg.TranscriberCLI = fc.TranscriberCLI
	}
	if fc.Model != "" {
		cfg.Model = fc.Model
	}
	if fc.ListenModel != "" {
		cfg.ListenModel = fc.ListenModel
	}
	if fc.DisplayServer != "" {
		cfg.DisplayServer = fc.DisplayServer
	}
	if fc.PasteKeys != "" {
		cfg.PasteKeys = fc.PasteKeys
	}
	if fc.WakeWord != "" {
		cfg.WakeWord = fc.WakeWord
	}
	if len(fc.WakeWordSuffixes) > 0 {
		cfg.WakeWordSuffixes = fc.WakeWordSuffixes
	}
	if fc.SilenceTimeoutS != 0 {
		cfg.SilenceTimeoutS = fc.SilenceTimeoutS
	}
	if fc.VADThreshold != 0 {
		cfg.VADThreshold = fc.VADThreshold
	}
	if fc.MinSpeechMS != 0 {
		cfg.MinSpeechMS = fc.MinSpeechMS
	}
	if fc.MaxSpeechS != 0 {
		cfg.MaxSpeechS = fc.MaxSpeechS
	}
	if fc.EndSignal != nil {
		cfg.EndSignal = *fc.EndSignal
	}
	if fc.VoiceCommands != nil {
		cfg.VoiceCommands = *fc.VoiceCommands
	}
	if fc.AudioDevice != "" {
		cfg.AudioDevice = fc.AudioDevice
	}

	resolveMode(cfg, fc)
}

// resolveMode implements the original config.py precedence: the new
// input_mode/output_mode keys win whenever either is set explicitly; the
// legacy single "mode" key is only consulted when both new keys are absent,
// so an old config.ini migrates without surprising a user who has already
// moved to the new keys.
func resolveMode(cfg *dictation.Config, fc fileConfig) {
	if fc.InputMode != "" {
		cfg.InputMode = dictation.InputMode(fc.InputMode)
	}
	if fc.OutputMode != "" {
		cfg.OutputMode = dictation.OutputMode(fc.OutputMode)
	}
	if fc.InputMode != "" || fc.OutputMode != "" || fc.Mode == "" {
		return
	}

	parts := strings.SplitN(fc.Mode, "-", 2)
	if len(parts) != 2 {
		return
	}
	cfg.InputMode = dictation.InputMode(parts[0])
	cfg.OutputMode = dictation.OutputMode(parts[1])
}
