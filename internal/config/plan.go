package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/passbi/passbi_fleet/internal/models"
)

// EnvPrefix prefixes environment overrides, e.g. FLEET_PARAMS__GAMMA=0.15
const EnvPrefix = "FLEET_"

// Plan is a planning scenario: operating policy and service calendar
type Plan struct {
	Params   models.GlobalParams `json:"params"`
	Calendar models.CalendarData `json:"calendar"`
}

// LoadPlan reads a YAML or JSON plan file and applies environment
// overrides. Every parameter must be present; none is defaulted.
func LoadPlan(path string) (*Plan, error) {
	k := koanf.New(".")

	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = kjson.Parser()
	default:
		return nil, fmt.Errorf("unsupported plan format: %s", path)
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("failed to load plan %s: %w", path, err)
	}
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}

	var missing []string
	for _, key := range models.ParamKeys {
		if !k.Exists("params." + key) {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, &models.MissingParamsError{Keys: missing}
	}

	// round-trip through JSON so the models' decoding rules apply
	raw, err := json.Marshal(k.Raw())
	if err != nil {
		return nil, fmt.Errorf("failed to encode plan: %w", err)
	}
	var plan Plan
	if err := json.Unmarshal(raw, &plan); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}

	if err := plan.Params.Validate(); err != nil {
		return nil, err
	}
	if err := plan.Calendar.Validate(); err != nil {
		return nil, err
	}
	return &plan, nil
}

// envKey maps FLEET_PARAMS__V_HLP to params.v_hlp and parses numbers
func envKey(key, value string) (string, interface{}) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	key = strings.ReplaceAll(key, "__", ".")

	if name, ok := strings.CutPrefix(key, "params."); ok {
		for _, pk := range models.ParamKeys {
			if strings.EqualFold(pk, name) {
				key = "params." + pk
			}
		}
	}

	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return key, f
	}
	return key, value
}
