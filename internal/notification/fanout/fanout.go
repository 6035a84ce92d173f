// Package fanout resolves notification events into per-user rows and writes
// them with bounded concurrency.
package fanout

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"siwarga/internal/notification"
	"siwarga/internal/notification/metrics"
	id "siwarga/pkg/domain"
	platformstrings "siwarga/pkg/platform/strings"
	"siwarga/pkg/requestcontext"
)

const DefaultConcurrency = 8

// Resolver turns locality and broadcast targets into user ids.
type Resolver interface {
	UsersInLocalities(ctx context.Context, rwNumber string, rtNumbers []string, roles ...id.Role) ([]id.UserID, error)
	UsersExcept(ctx context.Context, exclude *id.UserID) ([]id.UserID, error)
}

// Writer persists one notification row.
type Writer interface {
	Create(ctx context.Context, n *notification.Notification) error
}

// Service is the notification fan-out.
type Service struct {
	resolver    Resolver
	writer      Writer
	concurrency int
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithConcurrency bounds the number of concurrent row writes. Values below 1
// keep the default.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func New(resolver Resolver, writer Writer, opts ...Option) *Service {
	s := &Service{
		resolver:    resolver,
		writer:      writer,
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
		tracer:      otel.Tracer("siwarga/notification/fanout"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dispatch persists one row per resolved recipient of every event and returns
// the number of rows written with every failure encountered. A failing event
// or recipient never stops the others.
func (s *Service) Dispatch(ctx context.Context, events []notification.Event) (int, []error) {
	if len(events) == 0 {
		return 0, nil
	}
	start := time.Now()
	defer s.metrics.ObserveDispatch(start)

	ctx, span := s.tracer.Start(ctx, "notification.Dispatch",
		trace.WithAttributes(attribute.Int("events", len(events))))
	defer span.End()

	now := requestcontext.Now(ctx)
	var (
		mu        sync.Mutex
		persisted int
		errs      []error
	)
	fail := func(stage string, err error) {
		s.metrics.IncrementFailed(stage)
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for i, event := range events {
		if err := event.Validate(); err != nil {
			fail("validate", fmt.Errorf("event %d (%s): %w", i, event.Type, err))
			continue
		}
		recipients, err := s.resolve(ctx, event.Target)
		if err != nil {
			fail("resolve", fmt.Errorf("resolve %s for event %d (%s): %w", event.Target, i, event.Type, err))
			continue
		}
		for _, userID := range recipients {
			row := event.ForRecipient(userID, now)
			g.Go(func() error {
				if err := s.writer.Create(ctx, row); err != nil {
					fail("persist", fmt.Errorf("persist notification for user %s: %w", userID, err))
					return nil
				}
				mu.Lock()
				persisted++
				mu.Unlock()
				return nil
			})
		}
	}
	// Workers report through errs; Wait only joins them.
	_ = g.Wait()

	s.metrics.AddPersisted(persisted)
	span.SetAttributes(attribute.Int("persisted", persisted), attribute.Int("failed", len(errs)))
	if len(errs) > 0 {
		span.SetStatus(codes.Error, "partial fan-out failure")
		for _, err := range errs {
			s.logger.WarnContext(ctx, "notification fan-out failure",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
		}
	}
	s.logger.DebugContext(ctx, "notifications dispatched",
		"events", len(events),
		"persisted", persisted,
		"failed", len(errs),
	)
	return persisted, errs
}

func (s *Service) resolve(ctx context.Context, target notification.Target) ([]id.UserID, error) {
	switch target.Kind {
	case notification.TargetUser, notification.TargetUsers:
		return platformstrings.Dedupe(target.UserIDs), nil
	case notification.TargetLocalityRTs:
		return s.resolver.UsersInLocalities(ctx, target.RWNumber, target.RTNumbers, target.Roles...)
	case notification.TargetBroadcast:
		return s.resolver.UsersExcept(ctx, target.Exclude)
	default:
		return nil, fmt.Errorf("unknown target kind %d", target.Kind)
	}
}
