package flows

import (
	"context"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ptkach/nomulus/internal/epp"
	"github.com/ptkach/nomulus/internal/registry/store"
	audit "github.com/ptkach/nomulus/pkg/platform/audit"
	"github.com/ptkach/nomulus/pkg/requestcontext"
)

//go:generate mockgen -source=runner.go -destination=mocks/runner_mocks.go -package=mocks

// Transactor opens transactions. *store.Manager implements it.
type Transactor interface {
	Transact(ctx context.Context, fn store.TxFunc, opts ...store.TxOption) (store.Completion, error)
}

// ActivityReporter records that a command was attempted, independently of the
// history entry the flow writes.
type ActivityReporter interface {
	Emit(ctx context.Context, event audit.ActivityEvent) error
}

// Runner executes flows.
type Runner struct {
	txm      Transactor
	reporter ActivityReporter
	logger   *slog.Logger
	tracer   trace.Tracer
}

type RunnerOption func(*Runner)

func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithActivityReporter enables activity records for live commands.
func WithActivityReporter(reporter ActivityReporter) RunnerOption {
	return func(r *Runner) {
		r.reporter = reporter
	}
}

func NewRunner(txm Transactor, opts ...RunnerOption) *Runner {
	r := &Runner{
		txm:    txm,
		logger: slog.Default(),
		tracer: otel.Tracer("github.com/ptkach/nomulus/internal/flows"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes flow for in. Protocol errors come back as *epp.Error with every
// write rolled back; any other error is an infrastructure fault.
func (r *Runner) Run(ctx context.Context, flow Flow, in *Input) (*Result, error) {
	desc := flow.Descriptor()
	ctx, span := r.tracer.Start(ctx, "epp.flow",
		trace.WithAttributes(
			attribute.String("epp.flow", desc.Name),
			attribute.String("epp.server_trid", in.Trid.ServerTRID),
			attribute.Bool("epp.dry_run", in.DryRun),
		))
	defer span.End()

	r.logger.InfoContext(ctx, "EPP command",
		"server_trid", in.Trid.ServerTRID,
		"registrar_id", in.Session.RegistrarID,
		"session", in.Session.String(),
		"input", epp.Sanitize(in.Raw),
		"credentials", string(in.Session.Credentials),
		"source", string(in.Session.Source),
		"mode", mode(in.DryRun),
		"privilege", privilege(in.Superuser),
	)

	if !in.DryRun {
		r.report(ctx, desc, in)
	}

	result, err := r.execute(ctx, flow, desc, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "flow failed")
		return nil, err
	}
	span.SetAttributes(attribute.String("epp.result_kind", result.Kind.String()))
	return result, nil
}

func (r *Runner) execute(ctx context.Context, flow Flow, desc Descriptor, in *Input) (*Result, error) {
	if tx, ok := store.Current(ctx); ok {
		resp, err := flow.Run(ctx, tx, in)
		if err != nil {
			return nil, err
		}
		return &Result{Response: resp, Kind: Inline}, nil
	}
	if !desc.Transactional {
		resp, err := flow.Run(ctx, nil, in)
		if err != nil {
			return nil, err
		}
		return &Result{Response: resp, Kind: Inline}, nil
	}

	var resp *epp.Response
	completion, err := r.txm.Transact(ctx, func(ctx context.Context, tx store.Tx) (store.Completion, error) {
		out, err := flow.Run(ctx, tx, in)
		if err != nil {
			return store.Rollback, err
		}
		resp = out
		if in.DryRun {
			return store.Rollback, nil
		}
		return store.Commit, nil
	}, store.WithIsolationOverride(desc.Isolation))
	if err != nil {
		return nil, err
	}
	if completion == store.Rollback {
		return &Result{Response: resp, Kind: DryRun}, nil
	}
	return &Result{Response: resp, Kind: Committed}, nil
}

func (r *Runner) report(ctx context.Context, desc Descriptor, in *Input) {
	if r.reporter == nil {
		return
	}
	event := audit.ActivityEvent{
		ServerTRID:  in.Trid.ServerTRID,
		ClientTRID:  in.Trid.ClientTRID,
		RegistrarID: in.Session.RegistrarID,
		Flow:        desc.Name,
		Activity:    desc.Activity,
		Superuser:   in.Superuser,
		Source:      string(in.Session.Source),
		RequestID:   requestcontext.RequestID(ctx),
	}
	if target := in.Command.TargetID(); target != "" {
		event.TargetIDs = []string{target}
		if tld := tldOf(target); tld != "" {
			event.TLDs = []string{tld}
		}
	}
	if err := r.reporter.Emit(ctx, event); err != nil {
		r.logger.WarnContext(ctx, "failed to record activity",
			"server_trid", in.Trid.ServerTRID,
			"error", err,
		)
	}
}

// tldOf returns everything after the first label.
func tldOf(name string) string {
	_, tld, ok := strings.Cut(name, ".")
	if !ok {
		return ""
	}
	return tld
}

func mode(dryRun bool) string {
	if dryRun {
		return "DRY_RUN"
	}
	return "LIVE"
}

func privilege(superuser bool) string {
	if superuser {
		return "SUPERUSER"
	}
	return "NORMAL"
}
