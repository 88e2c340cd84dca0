package server

import (
	"fmt"

	"vostcard-gateway/internal/config"
	"vostcard-gateway/internal/geocode"
	"vostcard-gateway/internal/notify"
	"vostcard-gateway/internal/script"
)

// Services is the set of handlers' collaborators built from one config
// snapshot. It is replaced as a whole on reload.
type Services struct {
	Script  *script.Service
	Geocode *geocode.Service
	Notify  *notify.Service
}

// BuildServices constructs every service against its configured upstream.
func BuildServices(cfg config.Config) (*Services, error) {
	scriptSvc, err := script.NewFromConfig(cfg.Script)
	if err != nil {
		return nil, fmt.Errorf("initialise script service: %w", err)
	}
	geocodeSvc, err := geocode.NewFromConfig(cfg.Geocode)
	if err != nil {
		return nil, fmt.Errorf("initialise geocode service: %w", err)
	}
	notifySvc, err := notify.NewFromConfig(cfg.Email)
	if err != nil {
		return nil, fmt.Errorf("initialise notify service: %w", err)
	}
	return &Services{
		Script:  scriptSvc,
		Geocode: geocodeSvc,
		Notify:  notifySvc,
	}, nil
}
