package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/monthlify/internal/covers"
	"github.com/desertthunder/monthlify/internal/shared"
	"github.com/urfave/cli/v3"
)

// Cover renders the cover image of --month to --output.
func (r *Runner) Cover(ctx context.Context, cmd *cli.Command) error {
	month := cmd.String("month")
	if _, _, err := covers.ParseToken(month); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	output := cmd.String("output")
	if output == "" {
		output = fmt.Sprintf("cover-%s.jpg", month)
	}

	data, err := r.covers.Render(month)
	if err != nil {
		return fmt.Errorf("failed to render cover: %w", err)
	}

	if err := os.WriteFile(output, data, 0644); err != nil {
		return fmt.Errorf("failed to write cover: %w", err)
	}

	r.logger.Debug("cover rendered", "month", month, "bytes", len(data))
	return r.writePlain("✓ Cover written to %s\n", output)
}
