package governance

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ShareLinkSweeper periodically revokes expired share links.
type ShareLinkSweeper struct {
	Service GovernanceService
	Logger  *zap.Logger
	cron    *cron.Cron
}

func NewShareLinkSweeper(service GovernanceService, logger *zap.Logger) *ShareLinkSweeper {
	return &ShareLinkSweeper{
		Service: service,
		Logger:  logger,
		cron:    cron.New(),
	}
}

func (s *ShareLinkSweeper) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc("@hourly", func() {
		if _, err := s.Service.ExpireShareLinks(context.Background()); err != nil {
			s.Logger.Error("share link expiry sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

func (s *ShareLinkSweeper) Stop(ctx context.Context) error {
	s.cron.Stop()
	return nil
}
