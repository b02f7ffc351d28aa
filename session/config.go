package session

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the ixfrgen orchestrator's configuration, decoded from YAML
// the way the teacher's tdns.Config is: a generic map unmarshalled with
// yaml.v3, then decoded into this struct with mapstructure against the
// yaml tag, with viper layering in environment overrides for a couple
// of scalar settings.
type Config struct {
	SpoolDir   string `yaml:"spooldir" validate:"required"`
	AuditDB    string `yaml:"auditdb"`
	LogFile    string `yaml:"logfile"`
	StatusAddr string `yaml:"statusaddr"`
}

// LoadConfig reads cfgfile and decodes it into a Config, grounded on
// the teacher's ParseConfig: parse YAML into a generic map, decode with
// mapstructure honoring the yaml tag, then validate required fields
// with validator/v10 exactly as ValidateBySection does for a single
// section. Viper is given the same processed YAML so SPOOLDIR/AUDITDB
// environment overrides (IXFRGEN_SPOOLDIR, IXFRGEN_AUDITDB) take effect
// without duplicating the decode logic.
func LoadConfig(cfgfile string) (*Config, error) {
	var conf Config
	if cfgfile == "" {
		return &conf, nil
	}

	data, err := os.ReadFile(cfgfile)
	if err != nil {
		return nil, fmt.Errorf("session: reading config %q: %w", cfgfile, err)
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("session: parsing YAML config %q: %w", cfgfile, err)
	}

	decoderConfig := &mapstructure.DecoderConfig{
		TagName: "yaml",
		Result:  &conf,
	}
	decoder, err := mapstructure.NewDecoder(decoderConfig)
	if err != nil {
		return nil, fmt.Errorf("session: creating config decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("session: decoding config %q: %w", cfgfile, err)
	}

	viper.SetEnvPrefix("ixfrgen")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	viper.SetConfigType("yaml")
	if err := viper.ReadConfig(strings.NewReader(string(data))); err != nil {
		return nil, fmt.Errorf("session: loading config into viper: %w", err)
	}
	if v := viper.GetString("spooldir"); v != "" {
		conf.SpoolDir = v
	}
	if v := viper.GetString("auditdb"); v != "" {
		conf.AuditDB = v
	}

	if err := validate(&conf); err != nil {
		return nil, fmt.Errorf("session: config %q is missing required attributes: %w", cfgfile, err)
	}
	return &conf, nil
}

func validate(conf *Config) error {
	v := validator.New()
	return v.Struct(conf)
}
