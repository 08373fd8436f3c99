package plugin

import (
	"context"

	"github.com/google/uuid"
)

// Plugin defines the interface that all plugins must implement
type Plugin interface {
	// Name returns the unique plugin identifier
	Name() string

	// Execute consumes the palette and sampled frames of a run and returns
	// the files it produced
	Execute(ctx context.Context, input PluginInput) (PluginOutput, error)

	// Validate checks if the plugin configuration is valid
	Validate(config map[string]interface{}) error
}

// PluginInput contains the input parameters for plugin execution
type PluginInput struct {
	RunID      uuid.UUID              // Run ID for progress tracking
	OutputDir  string                 // Run output directory
	Frames     []string               // Sampled frame paths in ascending offset order
	PaletteHex []string               // Palette colors, dominant first
	Config     map[string]interface{} // Plugin-specific configuration
}

// PluginOutput contains the results of plugin execution
type PluginOutput struct {
	Files []string // Files written by the plugin
	Error error    // Plugin execution error
}
