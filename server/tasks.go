package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"github.com/rs/zerolog"
	"io"
	"media-registry/config"
	"media-registry/service"
)

// RunMigrate creates the recordings schema and exits.
func RunMigrate(cfg *config.Config) error {
	ctx := setupLogger(cfg)
	deps, err := newDependencies(ctx, cfg)
	if err != nil {
		return err
	}
	deps.Close(ctx)
	zerolog.Ctx(ctx).Info().Str("driver", cfg.Database.Driver).Msg("schema up to date")
	return nil
}

// ErrDanglingRows is returned by RunAudit when at least one row has no blob.
var ErrDanglingRows = errors.New("audit found recordings without blobs")

// RunAudit prints the consistency report as JSON to out.
func RunAudit(cfg *config.Config, out io.Writer) error {
	ctx := setupLogger(cfg)
	deps, err := newDependencies(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close(ctx)

	report, err := service.NewRegistry(deps.blobs, deps.repo).Audit(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}
	if len(report.Dangling) > 0 {
		return fmt.Errorf("%w: %d of %d", ErrDanglingRows, len(report.Dangling), report.Checked)
	}
	return nil
}
