package flows_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ptkach/nomulus/internal/epp"
	"github.com/ptkach/nomulus/internal/epp/session"
	"github.com/ptkach/nomulus/internal/flows"
	"github.com/ptkach/nomulus/internal/flows/mocks"
	"github.com/ptkach/nomulus/internal/platform/logger"
	"github.com/ptkach/nomulus/internal/platform/metrics"
	"github.com/ptkach/nomulus/internal/registry/store"
	"github.com/ptkach/nomulus/internal/registry/store/memory"
	dErrors "github.com/ptkach/nomulus/pkg/domain-errors"
)

const renewCommand = `<epp xmlns="urn:ietf:params:xml:ns:epp-1.0"><command><renew>
	<domain:renew xmlns:domain="urn:ietf:params:xml:ns:domain-1.0">
		<domain:name>example.tld</domain:name>
		<domain:curExpDate>2030-01-01</domain:curExpDate>
		<domain:period unit="y">2</domain:period>
	</domain:renew></renew><clTRID>ABC-12345</clTRID></command></epp>`

type controllerFixture struct {
	flow       *mocks.MockFlow
	metrics    *metrics.Metrics
	controller *flows.Controller
}

func newControllerFixture(t *testing.T) *controllerFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	flow := mocks.NewMockFlow(ctrl)
	flow.EXPECT().Descriptor().Return(flows.Descriptor{Name: "DomainRenewFlow", Transactional: true}).AnyTimes()

	m := metrics.NewWithRegisterer(prometheus.NewRegistry())
	manager := store.NewManager(memory.New(), store.WithLogger(logger.Discard()))
	runner := flows.NewRunner(manager, flows.WithRunnerLogger(logger.Discard()))
	controller := flows.NewController(runner, flows.Picker{epp.CommandDomainRenew: flow},
		flows.WithServerTridPrefix("RGY"),
		flows.WithIDGenerator(func() string { return "fixed" }),
		flows.WithControllerClock(func() time.Time { return time.Unix(0, 0) }),
		flows.WithControllerLogger(logger.Discard()),
		flows.WithControllerMetrics(m),
	)
	return &controllerFixture{flow: flow, metrics: m, controller: controller}
}

func registrarRequest(raw string) flows.Request {
	return flows.Request{
		Raw:     []byte(raw),
		Session: session.Stateless("TheRegistrar", session.CredentialCertificate, session.SourceHTTP),
	}
}

func TestControllerSuccess(t *testing.T) {
	f := newControllerFixture(t)
	f.flow.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, tx store.Tx, in *flows.Input) (*epp.Response, error) {
			require.NotNil(t, tx)
			assert.Equal(t, "RGY-fixed", in.Trid.ServerTRID)
			assert.Equal(t, "ABC-12345", in.Trid.ClientTRID)
			assert.Equal(t, "example.tld", in.Command.DomainRenew.Name)
			assert.Equal(t, renewCommand, string(in.Raw))
			return epp.SuccessResponse(nil), nil
		})

	resp := f.controller.Handle(context.Background(), registrarRequest(renewCommand))
	assert.Equal(t, epp.Success, resp.Result.Code)
	assert.Equal(t, "RGY-fixed", resp.Trid.ServerTRID)
	assert.Equal(t, "ABC-12345", resp.Trid.ClientTRID)
	assert.Equal(t, 1.0, promtest.ToFloat64(f.metrics.EppRequests.WithLabelValues("domain:renew", "1000", "success")))
}

func TestControllerDryRunOutcome(t *testing.T) {
	f := newControllerFixture(t)
	f.flow.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any()).Return(epp.SuccessResponse(nil), nil)

	req := registrarRequest(renewCommand)
	req.DryRun = true
	resp := f.controller.Handle(context.Background(), req)
	assert.Equal(t, epp.Success, resp.Result.Code)
	assert.Equal(t, 1.0, promtest.ToFloat64(f.metrics.EppRequests.WithLabelValues("domain:renew", "1000", "dry_run")))
}

func TestControllerFailures(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		flowErr  error
		wantCode epp.ResultCode
		wantCl   string
	}{
		{name: "malformed xml", raw: "<epp><command>", wantCode: epp.CommandSyntaxError},
		{
			name:     "unknown command",
			raw:      `<epp xmlns="urn:ietf:params:xml:ns:epp-1.0"><command><logout/><clTRID>LOGOUT-1</clTRID></command></epp>`,
			wantCode: epp.UnimplementedCommand,
			wantCl:   "LOGOUT-1",
		},
		{name: "protocol error", raw: renewCommand, flowErr: epp.ErrStaleExpirationDate(), wantCode: epp.ParameterValueRangeError, wantCl: "ABC-12345"},
		{name: "internal fault", raw: renewCommand, flowErr: errors.New("disk on fire"), wantCode: epp.CommandFailed, wantCl: "ABC-12345"},
		{
			name:     "coded internal error",
			raw:      renewCommand,
			flowErr:  dErrors.New(dErrors.CodeInternal, "boom"),
			wantCode: epp.CommandFailed,
			wantCl:   "ABC-12345",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newControllerFixture(t)
			if tt.flowErr != nil {
				f.flow.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, tt.flowErr)
			}

			resp := f.controller.Handle(context.Background(), registrarRequest(tt.raw))
			assert.Equal(t, tt.wantCode, resp.Result.Code)
			assert.NotEmpty(t, resp.Result.Message)
			assert.Equal(t, "RGY-fixed", resp.Trid.ServerTRID)
			assert.Equal(t, tt.wantCl, resp.Trid.ClientTRID)
			assert.Nil(t, resp.ResData)
		})
	}
}

func TestControllerHidesInternalMessages(t *testing.T) {
	f := newControllerFixture(t)
	f.flow.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("pq: password authentication failed"))

	resp := f.controller.Handle(context.Background(), registrarRequest(renewCommand))
	assert.Equal(t, epp.CommandFailed, resp.Result.Code)
	assert.NotContains(t, resp.Result.Message, "password")
}
