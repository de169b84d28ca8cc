package config

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Profile is an optional standalone analysis profile: the exclusion list
// for known offshore/outlier units and human-readable labels for the
// indicator columns. It rides in its own YAML file so a study area can be
// swapped without touching the main config.
type Profile struct {
	ExcludeGEOIDs []string          `yaml:"exclude_geoids"`
	Labels        map[string]string `yaml:"labels"`
}

// LoadProfile reads an analysis profile from a YAML file.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "config: read profile %s", path)
	}

	// The YAML has a top-level "profile" key.
	var doc struct {
		Profile Profile `yaml:"profile"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrapf(err, "config: parse profile %s", path)
	}
	return &doc.Profile, nil
}
