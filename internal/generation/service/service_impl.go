package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mergematrix/internal/clock"
	"github.com/smallbiznis/mergematrix/internal/config"
	generationdomain "github.com/smallbiznis/mergematrix/internal/generation/domain"
	obslogger "github.com/smallbiznis/mergematrix/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/mergematrix/internal/observability/metrics"
	obstracing "github.com/smallbiznis/mergematrix/internal/observability/tracing"
	"github.com/smallbiznis/mergematrix/internal/storage"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Config  config.Config
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    generationdomain.Repository
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    generationdomain.Repository
	metrics *obsmetrics.Metrics
	timeout time.Duration
}

func New(p Params) generationdomain.Service {
	return &Service{
		log:     p.Log.Named("generation.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		metrics: p.Metrics,
		timeout: p.Config.StoreTimeout,
	}
}

// GetStatus never persists an account for an unseen identity.
func (s *Service) GetStatus(ctx context.Context, identity string) (generationdomain.Status, error) {
	identity, err := normalizeIdentity(identity)
	if err != nil {
		return generationdomain.Status{}, err
	}

	ctx, cancel := storage.WithTimeout(ctx, s.timeout)
	defer cancel()
	ctx, span := obstracing.StartStoreSpan(ctx, "generation.get_status", s.repo.Backend())
	defer span.End()

	account, err := s.repo.FindByIdentity(ctx, identity)
	if err != nil {
		return generationdomain.Status{}, s.storageError(ctx, "get_status", err)
	}
	return account.Status(), nil
}

func (s *Service) RecordConsumption(ctx context.Context, identity string) (generationdomain.Status, error) {
	identity, err := normalizeIdentity(identity)
	if err != nil {
		return generationdomain.Status{}, err
	}

	ctx, cancel := storage.WithTimeout(ctx, s.timeout)
	defer cancel()
	ctx, span := obstracing.StartStoreSpan(ctx, "generation.record_consumption", s.repo.Backend())
	defer span.End()

	now := s.now()
	if err := s.ensureAccount(ctx, identity, now); err != nil {
		return generationdomain.Status{}, err
	}

	account, admitted, err := s.repo.IncrementWithinLimit(ctx, identity, now)
	if err != nil {
		return generationdomain.Status{}, s.storageError(ctx, "record_consumption", err)
	}

	status := account.Status()
	if !admitted {
		s.metrics.RecordGenerationDenied(ctx, string(status.Tier()))
		obslogger.WithContext(ctx, s.log).Debug("generation denied",
			zap.String("tier", string(status.Tier())),
			zap.Int("generations", status.Generations),
			zap.Int("limit", status.Limit()),
		)
		return status, &generationdomain.QuotaExceededError{Status: status}
	}

	s.metrics.RecordGenerationAdmitted(ctx, string(status.Tier()))
	return status, nil
}

// SetPremium is the billing hook; the ledger itself never changes tiers.
func (s *Service) SetPremium(ctx context.Context, identity string, premium bool) (generationdomain.Status, error) {
	identity, err := normalizeIdentity(identity)
	if err != nil {
		return generationdomain.Status{}, err
	}

	ctx, cancel := storage.WithTimeout(ctx, s.timeout)
	defer cancel()
	ctx, span := obstracing.StartStoreSpan(ctx, "generation.set_premium", s.repo.Backend())
	defer span.End()

	now := s.now()
	if err := s.ensureAccount(ctx, identity, now); err != nil {
		return generationdomain.Status{}, err
	}

	account, err := s.repo.SetPremium(ctx, identity, premium, now)
	if err != nil {
		return generationdomain.Status{}, s.storageError(ctx, "set_premium", err)
	}

	s.log.Info("account tier updated", zap.String("tier", string(generationdomain.TierOf(premium))))
	return account.Status(), nil
}

func (s *Service) ensureAccount(ctx context.Context, identity string, now time.Time) error {
	account := &generationdomain.UsageAccount{
		ID:        s.genID.Generate(),
		Identity:  identity,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.EnsureAccount(ctx, account); err != nil {
		return s.storageError(ctx, "ensure_account", err)
	}
	return nil
}

func (s *Service) storageError(ctx context.Context, operation string, err error) error {
	s.metrics.RecordStorageError(ctx, s.repo.Backend(), operation)
	obstracing.FailSpan(ctx, err)
	obslogger.WithContext(ctx, s.log).Error("usage store call failed",
		zap.String("operation", operation),
		zap.String("backend", s.repo.Backend()),
		zap.Error(err),
	)
	return storage.Wrap(err)
}

func (s *Service) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Millisecond)
}

func normalizeIdentity(identity string) (string, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return "", generationdomain.ErrInvalidIdentity
	}
	return identity, nil
}

