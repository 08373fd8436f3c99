package site

import (
	"fmt"
	"path/filepath"
	"strings"
)

// SiteConfig holds the configuration for the site plugin
type SiteConfig struct {
	Title       string `json:"title" mapstructure:"title"`
	Subtitle    string `json:"subtitle" mapstructure:"subtitle"`
	Lang        string `json:"lang" mapstructure:"lang"`
	ProjectDir  string `json:"project_dir" mapstructure:"project_dir"`
	Archive     *bool  `json:"archive" mapstructure:"archive"`
	ArchiveName string `json:"archive_name" mapstructure:"archive_name"`
}

// SetDefaults sets default values for missing configuration
func (c *SiteConfig) SetDefaults() {
	if c.Title == "" {
		c.Title = "Your Event"
	}
	if c.Subtitle == "" {
		c.Subtitle = "A page themed with the colors of your video. Edit this text to match its content."
	}
	if c.Lang == "" {
		c.Lang = "en"
	}
	if c.ProjectDir == "" {
		c.ProjectDir = "site"
	}
	if c.Archive == nil {
		archive := true
		c.Archive = &archive
	}
	if c.ArchiveName == "" {
		c.ArchiveName = "site.zip"
	}
}

// Validate checks if the configuration is valid
func (c *SiteConfig) Validate() error {
	dir := filepath.Clean(c.ProjectDir)
	if filepath.IsAbs(dir) || dir == "." || dir == ".." || strings.HasPrefix(dir, ".."+string(filepath.Separator)) {
		return fmt.Errorf("project_dir must be a sub-directory of the output directory, got: %s", c.ProjectDir)
	}

	if *c.Archive {
		if c.ArchiveName != filepath.Base(c.ArchiveName) {
			return fmt.Errorf("archive_name must be a plain file name, got: %s", c.ArchiveName)
		}
		if !strings.HasSuffix(strings.ToLower(c.ArchiveName), ".zip") {
			return fmt.Errorf("archive_name must end in .zip, got: %s", c.ArchiveName)
		}
	}
	return nil
}
