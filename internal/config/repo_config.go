// Package config manages the per-repository configuration file used to
// control defaults for the stack transaction engine: automatic
// check_merged, mergetool use, color output, and a default branch name.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const configFileName = ".stgit_config"

// RepoConfig is the repository-level configuration persisted under
// .git/.stgit_config.
type RepoConfig struct {
	AutoImerge    *bool   `json:"autoImerge,omitempty"`
	UseMergetool  *bool   `json:"useMergetool,omitempty"`
	UseColor      *bool   `json:"useColor,omitempty"`
	DefaultBranch *string `json:"defaultBranch,omitempty"`
}

// WantsMergetool reports the configured mergetool preference, defaulting
// to false (fall straight to conflict markers, no GUI tool invocation).
func (c *RepoConfig) WantsMergetool() bool {
	return c.UseMergetool != nil && *c.UseMergetool
}

// WantsColor reports the configured color preference, defaulting to true.
func (c *RepoConfig) WantsColor() bool {
	return c.UseColor == nil || *c.UseColor
}

// WantsAutoImerge reports whether push_patches should run check_merged by
// default, defaulting to false.
func (c *RepoConfig) WantsAutoImerge() bool {
	return c.AutoImerge != nil && *c.AutoImerge
}

func configPath(gitDir string) string {
	return filepath.Join(gitDir, configFileName)
}

// Load reads the repository configuration. A missing file is not an
// error: it yields the zero-value RepoConfig.
func Load(gitDir string) (*RepoConfig, error) {
	data, err := os.ReadFile(configPath(gitDir))
	if err != nil {
		if os.IsNotExist(err) {
			return &RepoConfig{}, nil
		}
		return nil, fmt.Errorf("reading repo config: %w", err)
	}
	var cfg RepoConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing repo config: %w", err)
	}
	return &cfg, nil
}

// Save writes cfg back to .git/.stgit_config.
func Save(gitDir string, cfg *RepoConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling repo config: %w", err)
	}
	return os.WriteFile(configPath(gitDir), data, 0600)
}
