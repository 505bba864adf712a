package handler

import (
	"context"
	"encoding/json"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"media-registry/dto"
	"media-registry/service"
)

type ServiceDependencies struct {
	Registry service.Registry
}

// AuditHandler runs a consistency audit for each audit request message. Dangling
// rows are logged; nothing is repaired.
func AuditHandler(ctx context.Context, msg amqp.Delivery, deps ServiceDependencies) error {
	var req dto.AuditRequestMessage
	if len(msg.Body) > 0 {
		if err := json.Unmarshal(msg.Body, &req); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("failed to unmarshal audit request")
			return err
		}
	}

	zerolog.Ctx(ctx).Info().Str("requested_by", req.RequestedBy).Msg("received audit request")

	report, err := deps.Registry.Audit(ctx)
	if err != nil {
		return err
	}

	zerolog.Ctx(ctx).Info().
		Int("checked", report.Checked).
		Int("dangling", len(report.Dangling)).
		Msg("audit completed")

	return nil
}
