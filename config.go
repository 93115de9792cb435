package trifinger

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	cubepose "github.com/Royzon/trifinger-object-tracking/cube_pose"
)

// ConfigFromAttributes decodes a component attribute map over cubepose.DefaultConfig.
// Keys follow the json tags of cubepose.Config; unknown keys are rejected. Cost terms
// may be given as a list of names or a "|"-separated string.
func ConfigFromAttributes(attrs map[string]any) (cubepose.Config, error) {
	cfg := cubepose.DefaultConfig()
	if len(attrs) == 0 {
		return cfg, nil
	}

	// mapstructure decodes into the existing slice, so a shorter schedule would keep
	// the tail of the default one.
	if search, ok := attrs["search"].(map[string]any); ok {
		if _, ok := search["rounds"]; ok {
			cfg.Search.Rounds = nil
		}
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		ErrorUnused: true,
		Result:      &cfg,
		DecodeHook:  costTermsHook,
	})
	if err != nil {
		return cfg, err
	}
	if err := dec.Decode(attrs); err != nil {
		return cfg, fmt.Errorf("%w: %w", cubepose.ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

var costTermsType = reflect.TypeOf(cubepose.CostTerms(0))

// costTermsHook decodes term names into a cubepose.CostTerms.
func costTermsHook(from, to reflect.Type, data any) (any, error) {
	if to != costTermsType {
		return data, nil
	}
	var names []string
	switch v := data.(type) {
	case string:
		names = strings.Split(v, "|")
	case []string:
		names = v
	case []any:
		for _, n := range v {
			s, ok := n.(string)
			if !ok {
				return nil, fmt.Errorf("cost term %v is not a string", n)
			}
			names = append(names, s)
		}
	default:
		return data, nil
	}
	return cubepose.ParseCostTerms(names)
}
