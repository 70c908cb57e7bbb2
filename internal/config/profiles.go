package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/medilabel-reader/internal/labels"
)

// profilesFile is the YAML layout of PROFILES_FILE.
//
//	profiles:
//	  - name: fast
//	    angles: [0, 180]
//	    preprocess:
//	      upscale_factor: 2
//	      median_size: 3
type profilesFile struct {
	Profiles []labels.Profile `yaml:"profiles" validate:"dive"`
}

// LoadProfiles returns the built-in profiles plus any defined in path. A
// profile in the file replaces a built-in one with the same name. An empty
// path yields the built-ins only.
func LoadProfiles(path string) (labels.Profiles, error) {
	profiles := labels.BuiltinProfiles()
	if path == "" {
		return profiles, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles file: %w", err)
	}
	return parseProfiles(profiles, data)
}

func parseProfiles(profiles labels.Profiles, data []byte) (labels.Profiles, error) {
	var pf profilesFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse profiles file: %w", err)
	}
	if err := NewValidator().Struct(pf); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}

	for _, p := range pf.Profiles {
		profiles[p.Name] = p
	}
	return profiles, nil
}

// ResolveProfile loads the profiles and returns the one selected by
// OCR_PROFILE.
func (c *Config) ResolveProfile() (labels.Profile, error) {
	profiles, err := LoadProfiles(c.ProfilesFile)
	if err != nil {
		return labels.Profile{}, err
	}
	return profiles.Get(c.Profile)
}
