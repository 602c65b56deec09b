package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/desertthunder/hyde/internal/shared"
	"github.com/desertthunder/hyde/internal/ui"
	"github.com/urfave/cli/v3"
)

// Setup writes config.toml from the embedded template when missing, then creates the cache database and runs
// its migrations.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); err == nil {
		r.logger.Info("config file found", "path", configPath)
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		r.writePlain("%s Created %s\n", ui.Success("✓"), configPath)
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)
	db, err := shared.OpenDatabase(ctx, r.config.Database)
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}
	defer db.Close()

	statuses, err := shared.MigrationStatuses(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to read migration status: %w", err)
	}

	r.writePlain("%s Database ready: %s\n", ui.Success("✓"), r.config.Database.Path)
	for _, s := range statuses {
		state := ui.Warn("pending")
		if s.Applied {
			state = ui.Success("applied")
		}
		r.writePlain("  %03d %s %s\n", s.Version, s.Name, state)
	}
	return nil
}

// SetupHeaders validates a cURL command copied from browser dev tools and saves it for the scrape provider.
func (r *Runner) SetupHeaders(ctx context.Context, cmd *cli.Command) error {
	curlCmd := cmd.String("curl")
	curlFile := cmd.String("curl-file")
	outputPath := cmd.String("output")

	if curlCmd == "" && curlFile == "" {
		return fmt.Errorf("%w: either --curl or --curl-file must be provided", shared.ErrMissingArgument)
	}
	if curlCmd != "" && curlFile != "" {
		return fmt.Errorf("%w: cannot specify both --curl and --curl-file", shared.ErrInvalidArgument)
	}

	if curlFile != "" {
		data, err := os.ReadFile(curlFile)
		if err != nil {
			return fmt.Errorf("failed to read cURL file: %w", err)
		}
		curlCmd = string(data)
	}

	headers, err := shared.ParseCurlCommand(curlCmd)
	if err != nil {
		return fmt.Errorf("failed to parse cURL command: %w", err)
	}
	r.logger.Debug("parsed cURL command", "headers", headers.Len())

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(outputPath, []byte(curlCmd), 0600); err != nil {
		return fmt.Errorf("failed to write headers file: %w", err)
	}

	r.writePlain("%s Saved %d headers to %s\n", ui.Success("✓"), headers.Len(), outputPath)
	r.writePlainln("Next steps:")
	r.writePlain("1. Update config.toml with: search.headers_path = \"%s\"\n", outputPath)
	r.writePlain("2. Run 'hyde search \"your song\"' to test the scrape provider\n")
	return nil
}
