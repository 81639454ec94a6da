package flows

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ptkach/nomulus/internal/epp"
	"github.com/ptkach/nomulus/internal/epp/session"
	"github.com/ptkach/nomulus/internal/platform/metrics"
	"github.com/ptkach/nomulus/internal/registry/models"
)

const (
	outcomeSuccess = "success"
	outcomeDryRun  = "dry_run"
	outcomeFailure = "failure"
)

// Picker maps command kinds to the flows implementing them.
type Picker map[epp.CommandKind]Flow

// Pick returns the flow for cmd, or a 2101 error.
func (p Picker) Pick(cmd *epp.Command) (Flow, error) {
	flow, ok := p[cmd.Kind]
	if !ok {
		return nil, epp.ErrUnknownCommand(string(cmd.Kind))
	}
	return flow, nil
}

// Request is one command as handed over by a transport.
type Request struct {
	Raw       []byte
	Session   session.Session
	DryRun    bool
	Superuser bool
}

// Controller turns raw commands into EPP responses.
type Controller struct {
	runner     *Runner
	flows      Picker
	tridPrefix string
	newID      func() string
	clock      func() time.Time
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

type ControllerOption func(*Controller)

// WithServerTridPrefix sets the prefix of assigned server trids.
func WithServerTridPrefix(prefix string) ControllerOption {
	return func(c *Controller) {
		c.tridPrefix = prefix
	}
}

// WithIDGenerator replaces the random suffix of server trids.
func WithIDGenerator(fn func() string) ControllerOption {
	return func(c *Controller) {
		c.newID = fn
	}
}

func WithControllerClock(clock func() time.Time) ControllerOption {
	return func(c *Controller) {
		c.clock = clock
	}
}

func WithControllerLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

func WithControllerMetrics(m *metrics.Metrics) ControllerOption {
	return func(c *Controller) {
		c.metrics = m
	}
}

func NewController(runner *Runner, flows Picker, opts ...ControllerOption) *Controller {
	c := &Controller{
		runner:     runner,
		flows:      flows,
		tridPrefix: "RGY",
		newID:      uuid.NewString,
		clock:      time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Handle executes req and always returns a response carrying both trids.
func (c *Controller) Handle(ctx context.Context, req Request) *epp.Response {
	start := c.clock()
	trid := models.Trid{ServerTRID: c.tridPrefix + "-" + c.newID()}

	command := "unknown"
	resp, outcome := c.handle(ctx, req, &trid, &command)
	resp.Trid = trid

	elapsed := c.clock().Sub(start)
	c.metrics.ObserveEppRequest(command, resp.Result.Code.String(), outcome, elapsed.Seconds())
	c.logger.InfoContext(ctx, "EPP command completed",
		"server_trid", trid.ServerTRID,
		"registrar_id", req.Session.RegistrarID,
		"command", command,
		"result", int(resp.Result.Code),
		"outcome", outcome,
		"duration", elapsed,
	)
	return resp
}

func (c *Controller) handle(ctx context.Context, req Request, trid *models.Trid, command *string) (*epp.Response, string) {
	cmd, err := epp.Parse(req.Raw)
	if err != nil {
		return c.failure(ctx, err, *trid), outcomeFailure
	}
	trid.ClientTRID = cmd.ClientTRID
	*command = string(cmd.Kind)

	flow, err := c.flows.Pick(cmd)
	if err != nil {
		return c.failure(ctx, err, *trid), outcomeFailure
	}

	result, err := c.runner.Run(ctx, flow, &Input{
		Command:   cmd,
		Session:   req.Session,
		Trid:      *trid,
		DryRun:    req.DryRun,
		Superuser: req.Superuser,
		Raw:       req.Raw,
	})
	if err != nil {
		return c.failure(ctx, err, *trid), outcomeFailure
	}
	if result.Kind == DryRun {
		return result.Response, outcomeDryRun
	}
	return result.Response, outcomeSuccess
}

func (c *Controller) failure(ctx context.Context, err error, trid models.Trid) *epp.Response {
	if e, ok := epp.AsError(err); ok {
		return epp.ErrorResponse(e, trid)
	}
	c.logger.ErrorContext(ctx, "EPP command failed",
		"server_trid", trid.ServerTRID,
		"error", err,
	)
	return epp.ErrorResponse(epp.ErrCommandFailed(), trid)
}
