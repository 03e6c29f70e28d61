// Property tests for configuration round-trip consistency: serializing
// any valid Config and parsing it back yields an equivalent Config.
package config

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"gopkg.in/yaml.v3"
)

func genConfig() gopter.Gen {
	return gopter.CombineGens(
		gen.RegexMatch(`https://[a-z]{3,12}\.example\.org`),
		gen.IntRange(1, 600),
		gen.OneConstOf("stdio", "http"),
		gen.Bool(),
		gen.OneConstOf("debug", "info", "warn", "error"),
	).Map(func(values []any) *Config {
		cfg := DefaultConfig()
		cfg.Terra.BaseURL = values[0].(string)
		cfg.Terra.RequestTimeout = Duration(time.Duration(values[1].(int)) * time.Second)
		cfg.Server.Transport = values[2].(string)
		cfg.Server.EnableWrites = values[3].(bool)
		cfg.Logging.Level = values[4].(string)
		return cfg
	})
}

func TestConfigRoundTripProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("config round-trip preserves data", prop.ForAll(
		func(cfg *Config) bool {
			data, err := cfg.Serialize()
			if err != nil {
				return false
			}
			parsed := DefaultConfig()
			if err := yaml.Unmarshal(data, parsed); err != nil {
				return false
			}
			return parsed.Terra == cfg.Terra &&
				parsed.Storage == cfg.Storage &&
				parsed.Jobs == cfg.Jobs &&
				parsed.Server == cfg.Server &&
				parsed.Logging == cfg.Logging
		},
		genConfig(),
	))

	properties.TestingRun(t)
}
