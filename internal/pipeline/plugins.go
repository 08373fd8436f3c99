package pipeline

import (
	types "PaletteForge/pkg"
	"PaletteForge/pkg/plugin"
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PluginProcessor runs the enabled plugins of a run, in config order
type PluginProcessor struct {
	registry *plugin.Registry
	configs  []types.PluginConfig
	logger   *zap.Logger
}

// NewPluginProcessor creates a new plugin processor
func NewPluginProcessor(registry *plugin.Registry, configs []types.PluginConfig, logger *zap.Logger) *PluginProcessor {
	return &PluginProcessor{
		registry: registry,
		configs:  configs,
		logger:   logger,
	}
}

// PluginRequest is what every plugin of a run receives
type PluginRequest struct {
	RunID      uuid.UUID `json:"run_id"`
	OutputDir  string    `json:"output_dir"`
	Frames     []string  `json:"frames"`
	PaletteHex []string  `json:"palette_hex"`
}

// ProcessPlugins validates and executes all enabled plugins sequentially and
// returns every file they wrote. The first failure aborts the remaining plugins.
func (p *PluginProcessor) ProcessPlugins(ctx context.Context, req PluginRequest) ([]string, error) {
	bindings, err := p.registry.Resolve(p.configs)
	if err != nil {
		return nil, err
	}
	if len(bindings) == 0 {
		p.logger.Info("No enabled plugins to process")
		return nil, nil
	}

	p.logger.Info("Processing plugins", zap.Int("count", len(bindings)))

	var files []string
	for _, b := range bindings {
		name := b.Plugin.Name()
		p.logger.Info("Executing plugin", zap.String("name", name))

		out, err := b.Plugin.Execute(ctx, plugin.PluginInput{
			RunID:      req.RunID,
			OutputDir:  req.OutputDir,
			Frames:     req.Frames,
			PaletteHex: req.PaletteHex,
			Config:     b.Config,
		})
		if err != nil {
			return nil, fmt.Errorf("plugin %s execution failed: %w", name, err)
		}
		if out.Error != nil {
			return nil, fmt.Errorf("plugin %s returned error: %w", name, out.Error)
		}

		files = append(files, out.Files...)
		p.logger.Info("Plugin executed successfully", zap.String("name", name), zap.Int("files", len(out.Files)))
	}

	return files, nil
}
