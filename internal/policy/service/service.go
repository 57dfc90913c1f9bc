// Package service implements the transfer policy evaluator. Evaluation is
// pure and read-only: it gathers identity, blacklist and reserve evidence,
// runs the rule pipeline in a fixed order and returns the first denial, or
// an allow with the applicable tier ceiling.
package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	blmodels "ledgergate/internal/blacklist/models"
	idmodels "ledgergate/internal/identity/models"
	"ledgergate/internal/ledger"
	"ledgergate/internal/policy/metrics"
	"ledgergate/internal/policy/models"
	dErrors "ledgergate/pkg/domain-errors"
)

// Limits are the per-evaluation tier ceilings in integer cents. Level 1
// gets Level1Max; levels 2 and above get Level2Max.
type Limits struct {
	Level1Max uint64
	Level2Max uint64
}

// forLevel returns the ceiling for an effective level. Level 0 is handled
// by the verification rules before any limit check, but falls back to the
// level-1 ceiling for the grandfathered both-unverified transfer case.
func (l Limits) forLevel(level uint8) uint64 {
	if level >= 2 {
		return l.Level2Max
	}
	return l.Level1Max
}

type Service struct {
	identity  IdentityPort
	blacklist BlacklistPort
	reserve   ReservePort
	limits    Limits
	logger    *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithClock overrides the time source. Tests only.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(identity IdentityPort, blacklist BlacklistPort, reserve ReservePort, limits Limits, opts ...Option) *Service {
	s := &Service{
		identity:  identity,
		blacklist: blacklist,
		reserve:   reserve,
		limits:    limits,
		logger:    slog.Default(),
		tracer:    otel.Tracer("ledgergate/policy"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// evidence is everything the rule pipeline consumes, gathered up front.
type evidence struct {
	senderID   idmodels.Snapshot
	receiverID idmodels.Snapshot
	senderBL   blmodels.Status
	receiverBL blmodels.Status
}

// Evaluate runs the rule pipeline. An error return means evaluation itself
// failed (bad request or backend fault); a policy refusal is a Deny result,
// not an error.
//
// Rule order: frozen accounts, blacklist, verification levels (with the
// reserve gate for mints), then tier limits. The first failing rule wins so
// the caller sees the most actionable reason.
func (s *Service) Evaluate(ctx context.Context, req models.Request) (*models.Result, error) {
	ctx, span := s.tracer.Start(ctx, "policy.Evaluate",
		trace.WithAttributes(
			attribute.String("policy.kind", string(req.Kind)),
			attribute.Int64("policy.amount", int64(req.Amount)),
		))
	defer span.End()

	start := time.Now()
	defer func() { metrics.EvaluationDuration.Observe(time.Since(start).Seconds()) }()

	if err := validate(req); err != nil {
		return nil, err
	}
	now := s.now()

	result, err := s.evaluate(ctx, req, now)
	if err != nil {
		metrics.EvaluationsTotal.WithLabelValues(string(req.Kind), "error", "").Inc()
		return nil, err
	}
	result.EvaluatedAt = now
	span.SetAttributes(attribute.String("policy.outcome", string(result.Status)))

	metrics.EvaluationsTotal.WithLabelValues(
		string(req.Kind), string(result.Status), string(result.Reason)).Inc()
	if result.Status == models.OutcomeDeny {
		s.logger.InfoContext(ctx, "movement denied",
			"kind", req.Kind, "reason", result.Reason,
			"sender", req.Sender, "receiver", req.Receiver, "amount", req.Amount)
	}
	return result, nil
}

func (s *Service) evaluate(ctx context.Context, req models.Request, now time.Time) (*models.Result, error) {
	// Rule 1: lock state, as reported by the ledger at submission.
	if req.SenderLock == ledger.Locked || req.ReceiverLock == ledger.Locked {
		return models.Deny(models.ReasonAccountFrozen), nil
	}

	ev, err := s.gather(ctx, req, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "gathering policy evidence")
	}

	// Rule 2: blacklist. Restrict blocks both directions since the sender
	// leg is always outgoing and the receiver leg always incoming; seize
	// entries never block movement here.
	if ev.senderBL.Active && ev.senderBL.ActionType.BlocksTransfers() {
		return models.Deny(models.ReasonAccountBlacklisted), nil
	}
	if ev.receiverBL.Active && ev.receiverBL.ActionType.BlocksTransfers() {
		return models.Deny(models.ReasonAccountBlacklisted), nil
	}

	// Rule 3: verification levels per movement kind.
	result := &models.Result{
		SenderLevel:   ev.senderID.EffectiveLevel,
		ReceiverLevel: ev.receiverID.EffectiveLevel,
	}
	tierLevel, deny, err := s.checkLevels(ctx, req, ev, now)
	if err != nil {
		return nil, err
	}
	if deny != "" {
		result.Status = models.OutcomeDeny
		result.Reason = deny
		return result, nil
	}

	// Rule 4: tier ceiling.
	limit := s.limits.forLevel(tierLevel)
	result.MaxAmount = limit
	if req.Amount > limit {
		result.Status = models.OutcomeDeny
		result.Reason = models.ReasonTransferLimitExceeded
		return result, nil
	}
	result.Status = models.OutcomeAllow
	return result, nil
}

// checkLevels applies the per-kind verification rules and returns the level
// governing the tier limit.
func (s *Service) checkLevels(ctx context.Context, req models.Request, ev evidence, now time.Time) (uint8, models.DenyReason, error) {
	switch req.Kind {
	case models.KindMint:
		if ev.receiverID.EffectiveLevel < 1 {
			return 0, levelDenyReason(ev.receiverID), nil
		}
		ok, err := s.reserve.SufficientFor(ctx, req.Amount, now)
		if err != nil {
			return 0, "", err
		}
		if !ok {
			return 0, models.ReasonInsufficientReserve, nil
		}
		return ev.receiverID.EffectiveLevel, "", nil

	case models.KindRedeem:
		if ev.senderID.EffectiveLevel < 1 {
			return 0, levelDenyReason(ev.senderID), nil
		}
		return ev.senderID.EffectiveLevel, "", nil

	default: // transfer
		sl, rl := ev.senderID.EffectiveLevel, ev.receiverID.EffectiveLevel
		// Both-unverified movement between grandfathered accounts is
		// permitted at the lowest tier; a mixed pair is not.
		if sl == 0 && rl == 0 {
			if ev.senderID.Expired || ev.receiverID.Expired {
				return 0, models.ReasonVerificationExpired, nil
			}
			return 1, "", nil
		}
		if sl < 1 {
			return 0, levelDenyReason(ev.senderID), nil
		}
		if rl < 1 {
			return 0, levelDenyReason(ev.receiverID), nil
		}
		return min(sl, rl), "", nil
	}
}

// gather fans out the four evidence lookups. All four run even when one
// fails fast; the bounded timeout keeps a slow store from hanging requests.
func (s *Service) gather(ctx context.Context, req models.Request, now time.Time) (evidence, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var ev evidence
	g, gctx := errgroup.WithContext(ctx)

	if !req.Sender.IsEmpty() {
		g.Go(func() error {
			var err error
			ev.senderID, err = s.identity.VerificationState(gctx, req.Sender, now)
			return err
		})
		g.Go(func() error {
			var err error
			ev.senderBL, err = s.blacklist.StatusOf(gctx, req.Sender, now)
			return err
		})
	}
	if !req.Receiver.IsEmpty() {
		g.Go(func() error {
			var err error
			ev.receiverID, err = s.identity.VerificationState(gctx, req.Receiver, now)
			return err
		})
		g.Go(func() error {
			var err error
			ev.receiverBL, err = s.blacklist.StatusOf(gctx, req.Receiver, now)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return evidence{}, err
	}
	return ev, nil
}

func validate(req models.Request) error {
	if req.Amount == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "amount must be positive")
	}
	switch req.Kind {
	case models.KindMint:
		if req.Receiver.IsEmpty() {
			return dErrors.New(dErrors.CodeInvalidInput, "mint requires a receiver")
		}
	case models.KindRedeem:
		if req.Sender.IsEmpty() {
			return dErrors.New(dErrors.CodeInvalidInput, "redeem requires a sender")
		}
	case models.KindTransfer:
		if req.Sender.IsEmpty() || req.Receiver.IsEmpty() {
			return dErrors.New(dErrors.CodeInvalidInput, "transfer requires sender and receiver")
		}
	default:
		return dErrors.New(dErrors.CodeInvalidInput, "unknown movement kind: "+string(req.Kind))
	}
	return nil
}

func levelDenyReason(snap idmodels.Snapshot) models.DenyReason {
	if snap.Expired {
		return models.ReasonVerificationExpired
	}
	return models.ReasonInsufficientLevel
}
