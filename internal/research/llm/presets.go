package llm

import (
	"fmt"
	"sort"

	"research-workers/internal/common/config"
	"research-workers/internal/common/logger"
)

const DefaultSystemMessage = "You are a helpful assistant."

const (
	PresetChatGPT    = "chatgpt"
	PresetChatGPT16k = "chatgpt-16k"
	PresetGPT4       = "gpt-4"
)

var presetModels = map[string]string{
	PresetChatGPT:    "gpt-3.5-turbo",
	PresetChatGPT16k: "gpt-3.5-turbo-16k",
	PresetGPT4:       "gpt-4",
}

// Preset returns a fresh copy of a named preset.
func Preset(name string) (Settings, error) {
	model, ok := presetModels[name]
	if !ok {
		return Settings{}, fmt.Errorf("unknown model preset %q (known: %v)", name, PresetNames())
	}
	return Settings{
		Model:            model,
		Messages:         []Message{{Role: RoleSystem, Content: DefaultSystemMessage}},
		FrequencyPenalty: 0,
		PresencePenalty:  0,
		MaxTokens:        1000,
		N:                1,
		Temperature:      1,
		TopP:             1,
	}, nil
}

func PresetNames() []string {
	names := make([]string, 0, len(presetModels))
	for name := range presetModels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FromModelConfig resolves a preset and applies the configured overrides.
func FromModelConfig(mc config.ModelConfig) (Settings, error) {
	name := mc.Preset
	if name == "" {
		name = PresetChatGPT
	}
	s, err := Preset(name)
	if err != nil {
		return Settings{}, err
	}
	if mc.Model != "" {
		s.Model = mc.Model
	}
	if mc.MaxTokens > 0 {
		s.MaxTokens = mc.MaxTokens
	}
	if mc.N > 0 {
		s.N = mc.N
	}
	if mc.Temperature != nil {
		s.Temperature = *mc.Temperature
	}
	if mc.TopP != nil {
		s.TopP = *mc.TopP
	}
	if mc.FrequencyPenalty != nil {
		s.FrequencyPenalty = *mc.FrequencyPenalty
	}
	if mc.PresencePenalty != nil {
		s.PresencePenalty = *mc.PresencePenalty
	}
	return s, nil
}

// Apply updates known settings from a loosely typed map, such as job
// variables. Unknown keys are logged and ignored. Messages cannot be
// overridden.
func (s *Settings) Apply(overrides map[string]interface{}, log logger.Logger) error {
	for key, value := range overrides {
		var err error
		switch key {
		case "model":
			str, ok := value.(string)
			if !ok || str == "" {
				err = fmt.Errorf("model must be a non-empty string")
			} else {
				s.Model = str
			}
		case "max_tokens":
			s.MaxTokens, err = toInt(key, value)
		case "n":
			s.N, err = toInt(key, value)
		case "temperature":
			s.Temperature, err = toFloat(key, value)
		case "top_p":
			s.TopP, err = toFloat(key, value)
		case "frequency_penalty":
			s.FrequencyPenalty, err = toFloat(key, value)
		case "presence_penalty":
			s.PresencePenalty, err = toFloat(key, value)
		default:
			log.Warn("ignoring unknown model setting", map[string]interface{}{"key": key})
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func toFloat(key string, v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	}
	return 0, fmt.Errorf("%s must be a number, got %T", key, v)
}

func toInt(key string, v interface{}) (int, error) {
	f, err := toFloat(key, v)
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) {
		return 0, fmt.Errorf("%s must be a whole number, got %v", key, f)
	}
	return int(f), nil
}
