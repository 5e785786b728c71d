package actions

import (
	"gorm.io/gorm"

	"github.com/dmfranc/stripemirror/internal/hooks"
	syncpkg "github.com/dmfranc/stripemirror/internal/sync"
	"github.com/dmfranc/stripemirror/pkg/config"
	"github.com/dmfranc/stripemirror/pkg/db"
	pkgerrors "github.com/dmfranc/stripemirror/pkg/errors"
	"github.com/dmfranc/stripemirror/pkg/logger"
	"github.com/dmfranc/stripemirror/pkg/stripeclient"
)

// Service is the outward-call layer: every method talks to the processor
// first and folds the response into the mirror, so local state is only ever
// derived from what the processor confirmed.
type Service struct {
	db     *db.Client
	api    API
	client *stripeclient.Client
	hooks  hooks.HookSet
	cfg    *config.Config
	logg   *logger.Logger
}

type ServiceParams struct {
	DB           *db.Client
	API          API
	StripeClient *stripeclient.Client
	Hooks        hooks.HookSet
	Config       *config.Config
	Logger       *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "db client required")
	}
	if params.API == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "processor api required")
	}
	if params.Config == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "config required")
	}
	if params.Hooks == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "hook set required")
	}
	return &Service{
		db:     params.DB,
		api:    params.API,
		client: params.StripeClient,
		hooks:  params.Hooks,
		cfg:    params.Config,
		logg:   params.Logger,
	}, nil
}

// Syncer returns a synchronizer bound to the service DB (or the given tx).
func (s *Service) Syncer(tx *gorm.DB) *syncpkg.Syncer {
	handle := tx
	if handle == nil {
		handle = s.db.DB()
	}
	return syncpkg.NewSyncer(handle, s.api, s.logg)
}

// DB exposes the database client for collaborating layers.
func (s *Service) DB() *db.Client {
	return s.db
}

// Client exposes the configured processor client.
func (s *Service) Client() *stripeclient.Client {
	return s.client
}

// Config exposes the service configuration.
func (s *Service) Config() *config.Config {
	return s.cfg
}

// Hooks exposes the configured hook set.
func (s *Service) Hooks() hooks.HookSet {
	return s.hooks
}

// API exposes the processor surface for callers that need raw access.
func (s *Service) API() API {
	return s.api
}
