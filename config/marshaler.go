package config

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v2"
)

func MarshalJSON(config Config) ([]byte, error) {
	return json.MarshalIndent(config, "", "  ")
}

func UnmarshalJSON(bz []byte, config *Config) error {
	return json.Unmarshal(bz, config)
}

// yamlConfig is Config with chain definitions as generic YAML values.
type yamlConfig struct {
	Global    GlobalConfig  `yaml:"global"`
	Chains    []interface{} `yaml:"chains"`
	Pipelines Pipelines     `yaml:"pipelines"`
}

func MarshalYAML(config Config) ([]byte, error) {
	yc := yamlConfig{Global: config.Global, Pipelines: config.Pipelines}
	for _, c := range config.Chains {
		var v interface{}
		if err := json.Unmarshal(c, &v); err != nil {
			return nil, errors.Wrap(err, "invalid chain definition")
		}
		yc.Chains = append(yc.Chains, v)
	}
	return yaml.Marshal(yc)
}

func UnmarshalYAML(bz []byte, config *Config) error {
	var yc yamlConfig
	if err := yaml.Unmarshal(bz, &yc); err != nil {
		return err
	}
	config.Global = yc.Global
	config.Pipelines = yc.Pipelines
	config.Chains = nil
	for i, c := range yc.Chains {
		bz, err := json.Marshal(jsonCompatible(c))
		if err != nil {
			return errors.Wrapf(err, "chain definition %d", i)
		}
		config.Chains = append(config.Chains, bz)
	}
	return nil
}

// ChainDefinitionFromYAML converts a chain definition written in YAML to JSON.
func ChainDefinitionFromYAML(bz []byte) (json.RawMessage, error) {
	var v interface{}
	if err := yaml.Unmarshal(bz, &v); err != nil {
		return nil, err
	}
	return json.Marshal(jsonCompatible(v))
}

// Unmarshal decodes bz as JSON if path has a .json extension and as YAML otherwise.
func Unmarshal(path string, bz []byte, config *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return UnmarshalJSON(bz, config)
	}
	return UnmarshalYAML(bz, config)
}

// jsonCompatible converts the maps yaml.v2 decodes into maps encoding/json accepts.
func jsonCompatible(v interface{}) interface{} {
	switch v := v.(type) {
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(v))
		for k, e := range v {
			m[toString(k)] = jsonCompatible(e)
		}
		return m
	case []interface{}:
		for i, e := range v {
			v[i] = jsonCompatible(e)
		}
		return v
	default:
		return v
	}
}

func toString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	bz, _ := json.Marshal(v)
	return string(bz)
}
