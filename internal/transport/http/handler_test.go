package httptransport_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/ptkach/nomulus/internal/epp"
	"github.com/ptkach/nomulus/internal/epp/session"
	"github.com/ptkach/nomulus/internal/flows"
	"github.com/ptkach/nomulus/internal/platform/logger"
	"github.com/ptkach/nomulus/internal/ratelimit"
	"github.com/ptkach/nomulus/internal/registry/models"
	httptransport "github.com/ptkach/nomulus/internal/transport/http"
	"github.com/ptkach/nomulus/internal/transport/http/mocks"
	"github.com/ptkach/nomulus/pkg/platform/middleware/admin"
	"github.com/ptkach/nomulus/pkg/requestcontext"
)

const command = `<epp xmlns="urn:ietf:params:xml:ns:epp-1.0"><command><logout/></command></epp>`

type HandlerSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	commands *mocks.MockCommandHandler
	router   http.Handler
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.commands = mocks.NewMockCommandHandler(s.ctrl)
	h := httptransport.NewHandler(s.commands,
		httptransport.WithLogger(logger.Discard()),
		httptransport.WithMaxBodyBytes(512),
		httptransport.WithHealthCheck("store", func(context.Context) error { return nil }),
	)
	s.router = httptransport.NewRouter(h, httptransport.RouterConfig{
		ToolToken: "s3cret",
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("registry_flows_total 1\n"))
		}),
		Logger: logger.Discard(),
	})
}

func (s *HandlerSuite) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func success() *epp.Response {
	resp := epp.SuccessResponse(nil)
	resp.Trid = models.Trid{ServerTRID: "RGY-1"}
	return resp
}

func (s *HandlerSuite) TestRegistrarCommand() {
	s.commands.EXPECT().Handle(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, req flows.Request) *epp.Response {
			s.Equal(command, string(req.Raw))
			s.Equal("TheRegistrar", req.Session.RegistrarID)
			s.Equal(session.CredentialCertificate, req.Session.Credentials)
			s.Equal(session.SourceHTTP, req.Session.Source)
			s.True(req.Session.Declares(epp.FeeURI))
			s.False(req.DryRun)
			s.False(req.Superuser)
			s.Equal("TheRegistrar", requestcontext.RegistrarID(ctx))
			s.Equal("req-1", requestcontext.RequestID(ctx))
			return success()
		})

	req := httptest.NewRequest(http.MethodPost, "/epp", strings.NewReader(command))
	req.Header.Set("X-SSL-Client-Registrar", " TheRegistrar ")
	req.Header.Set("X-Request-ID", "req-1")
	w := s.serve(req)

	s.Equal(http.StatusOK, w.Code)
	s.Equal("1000", w.Header().Get(httptransport.ResultCodeHeader))
	s.Equal("application/epp+xml; charset=utf-8", w.Header().Get("Content-Type"))
	s.Equal("req-1", w.Header().Get("X-Request-ID"))
	s.Contains(w.Body.String(), `<result code="1000">`)
	s.Contains(w.Body.String(), `<svTRID>RGY-1</svTRID>`)
}

func (s *HandlerSuite) TestProtocolErrorsAreRegularResponses() {
	s.commands.EXPECT().Handle(gomock.Any(), gomock.Any()).
		Return(epp.ErrorResponse(epp.ErrStaleExpirationDate(), models.Trid{ServerTRID: "RGY-2"}))

	w := s.serve(httptest.NewRequest(http.MethodPost, "/epp", strings.NewReader(command)))

	s.Equal(http.StatusOK, w.Code)
	s.Equal("2004", w.Header().Get(httptransport.ResultCodeHeader))
}

func (s *HandlerSuite) TestServerFailuresAre5xx() {
	s.commands.EXPECT().Handle(gomock.Any(), gomock.Any()).
		Return(epp.ErrorResponse(epp.ErrCommandFailed(), models.Trid{ServerTRID: "RGY-3"}))

	w := s.serve(httptest.NewRequest(http.MethodPost, "/epp", strings.NewReader(command)))

	s.Equal(http.StatusInternalServerError, w.Code)
	s.Equal("2400", w.Header().Get(httptransport.ResultCodeHeader))
	s.Contains(w.Body.String(), `<result code="2400">`)
}

func (s *HandlerSuite) TestOversizedCommand() {
	body := strings.Repeat("x", 513)
	w := s.serve(httptest.NewRequest(http.MethodPost, "/epp", strings.NewReader(body)))

	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(w.Body.String(), "command exceeds 512 bytes")
}

func (s *HandlerSuite) TestToolCommand() {
	s.commands.EXPECT().Handle(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req flows.Request) *epp.Response {
			s.Equal("NewRegistrar", req.Session.RegistrarID)
			s.Equal(session.CredentialTool, req.Session.Credentials)
			s.Equal(session.SourceTool, req.Session.Source)
			s.True(req.DryRun)
			s.True(req.Superuser)
			return success()
		})

	req := httptest.NewRequest(http.MethodPost, "/epp/tool?registrar=NewRegistrar&dryRun=true&superuser=1", strings.NewReader(command))
	req.Header.Set(admin.TokenHeader, "s3cret")
	w := s.serve(req)

	s.Equal(http.StatusOK, w.Code)
}

func (s *HandlerSuite) TestToolRejections() {
	tests := []struct {
		name   string
		target string
		token  string
		status int
		errMsg string
	}{
		{name: "missing token", target: "/epp/tool?registrar=TheRegistrar", status: http.StatusUnauthorized},
		{name: "wrong token", target: "/epp/tool?registrar=TheRegistrar", token: "guess", status: http.StatusUnauthorized},
		{name: "missing registrar", target: "/epp/tool", token: "s3cret", status: http.StatusBadRequest, errMsg: "registrar is required"},
		{name: "bad dry run", target: "/epp/tool?registrar=TheRegistrar&dryRun=maybe", token: "s3cret", status: http.StatusBadRequest, errMsg: "dryRun must be a boolean"},
		{name: "bad superuser", target: "/epp/tool?registrar=TheRegistrar&superuser=yes", token: "s3cret", status: http.StatusBadRequest, errMsg: "superuser must be a boolean"},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			req := httptest.NewRequest(http.MethodPost, tt.target, strings.NewReader(command))
			if tt.token != "" {
				req.Header.Set(admin.TokenHeader, tt.token)
			}
			w := s.serve(req)

			s.Equal(tt.status, w.Code)
			if tt.errMsg != "" {
				s.Contains(w.Body.String(), tt.errMsg)
			}
		})
	}
}

func (s *HandlerSuite) TestMetrics() {
	w := s.serve(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "registry_flows_total")
}

func (s *HandlerSuite) TestHealthy() {
	w := s.serve(httptest.NewRequest(http.MethodGet, "/healthz", nil))

	s.Equal(http.StatusOK, w.Code)
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	s.Equal("ok", body.Status)
	s.Equal(map[string]string{"store": "ok"}, body.Checks)
}

func TestHealthDegraded(t *testing.T) {
	h := httptransport.NewHandler(nil,
		httptransport.WithLogger(logger.Discard()),
		httptransport.WithHealthCheck("store", func(context.Context) error { return nil }),
		httptransport.WithHealthCheck("kafka", func(context.Context) error { return errors.New("no brokers") }),
	)
	w := httptest.NewRecorder()
	h.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "no brokers", body.Checks["kafka"])
	assert.Equal(t, "ok", body.Checks["store"])
}

func TestToolEndpointNeedsAToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	router := httptransport.NewRouter(httptransport.NewHandler(mocks.NewMockCommandHandler(ctrl)), httptransport.RouterConfig{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/epp/tool?registrar=TheRegistrar", strings.NewReader(command)))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusOK, httptransport.StatusFor(epp.Success))
	assert.Equal(t, http.StatusOK, httptransport.StatusFor(epp.ParameterValueRangeError))
	assert.Equal(t, http.StatusInternalServerError, httptransport.StatusFor(epp.CommandFailed))
}

func TestRateLimitedRegistrarEndpoint(t *testing.T) {
	ctrl := gomock.NewController(t)
	commands := mocks.NewMockCommandHandler(ctrl)
	commands.EXPECT().Handle(gomock.Any(), gomock.Any()).Return(success()).Times(1)

	router := httptransport.NewRouter(
		httptransport.NewHandler(commands, httptransport.WithLogger(logger.Discard())),
		httptransport.RouterConfig{Limiter: ratelimit.NewWindow(1, time.Minute), Logger: logger.Discard()},
	)
	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/epp", strings.NewReader(command))
		req.Header.Set("X-SSL-Client-Registrar", "TheRegistrar")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, send().Code)
	assert.Equal(t, http.StatusTooManyRequests, send().Code)
}
