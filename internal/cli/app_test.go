package cli

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	contributionmodels "ofertas/internal/contribution/models"
	"ofertas/internal/platform/config"
	statushandler "ofertas/internal/status/handler"
	"ofertas/pkg/testutil"
)

type AppSuite struct {
	suite.Suite
	app *App
}

func TestAppSuite(t *testing.T) {
	suite.Run(t, new(AppSuite))
}

func (s *AppSuite) SetupTest() {
	cfg := config.Config{
		Server: config.Server{Addr: ":0", JWTSigningKey: "app-test-key"},
		Consensus: config.Consensus{
			Location:  time.UTC,
			Retention: 24 * time.Hour,
			Locking:   config.LockingLocal,
			LockTTL:   time.Second,
		},
		ReapInterval: time.Hour,
		LogLevel:     "error",
	}
	app, err := Build(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.Require().NoError(err)
	s.app = app
}

func (s *AppSuite) TearDownTest() {
	s.Require().NoError(s.app.Close(context.Background()))
}

func (s *AppSuite) submit(userID, name string, body contributionmodels.SubmitRequest) *httptest.ResponseRecorder {
	token, err := s.app.JWT.GenerateAccessToken(userID, name, time.Hour)
	s.Require().NoError(err)
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/contributions/daily-offers", body)
	req.Header.Set("Authorization", "Bearer "+token)
	return testutil.DoRequest(s.app.Router, req)
}

func (s *AppSuite) TestCorroborationFlow() {
	first := s.submit("u1", "Maria", contributionmodels.SubmitRequest{
		ProductName: "Arroz Integral 5kg", StoreName: "Mercado Bom Preço", Price: 25.90, City: "Recife", State: "pe",
	})
	s.Require().Equal(http.StatusCreated, first.Code, first.Body.String())
	firstOffer := testutil.UnmarshalResponse[contributionmodels.OfferResponse](s.T(), first)
	s.False(firstOffer.Verified)
	s.Equal("PE", firstOffer.State)

	second := s.submit("u2", "João", contributionmodels.SubmitRequest{
		ProductName: "arroz integral 5 kg", StoreName: "mercado bom preco", Price: 26.50, City: "Recife", State: "PE",
	})
	s.Require().Equal(http.StatusCreated, second.Code, second.Body.String())
	s.True(testutil.UnmarshalResponse[contributionmodels.OfferResponse](s.T(), second).Verified)

	status := testutil.DoRequest(s.app.Router, httptest.NewRequest(http.MethodGet, "/contributions/status/"+firstOffer.ID, nil))
	s.Require().Equal(http.StatusOK, status.Code)
	s.Equal("approved", testutil.UnmarshalResponse[statushandler.StatusResponse](s.T(), status).Status)

	list := testutil.DoRequest(s.app.Router, httptest.NewRequest(http.MethodGet, "/contributions/daily-offers?city=recife", nil))
	s.Require().Equal(http.StatusOK, list.Code)
	s.Len(*testutil.UnmarshalResponse[[]contributionmodels.OfferResponse](s.T(), list), 2)

	dup := s.submit("u1", "Maria", contributionmodels.SubmitRequest{
		ProductName: "Arroz Integral 5kg", StoreName: "Mercado Bom Preço", Price: 24.00, City: "Recife", State: "PE",
	})
	testutil.AssertStatusAndCode(s.T(), dup, http.StatusBadRequest, "duplicate_submission")
}

func (s *AppSuite) TestValidationAndAuth() {
	rr := s.submit("u1", "", contributionmodels.SubmitRequest{ProductName: "A", StoreName: "Loja", Price: -1, City: "Recife", State: "PE"})
	testutil.AssertStatusAndCode(s.T(), rr, http.StatusBadRequest, "validation")

	noAuth := testutil.DoRequest(s.app.Router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/contributions", contributionmodels.SubmitRequest{}))
	testutil.AssertStatusAndCode(s.T(), noAuth, http.StatusUnauthorized, "unauthorized")
}

func (s *AppSuite) TestOperationalEndpoints() {
	health := testutil.DoRequest(s.app.Router, httptest.NewRequest(http.MethodGet, "/health", nil))
	s.Equal(http.StatusOK, health.Code)

	s.submit("u1", "Maria", contributionmodels.SubmitRequest{
		ProductName: "Feijão Carioca 1kg", StoreName: "Atacadão", Price: 8.49, City: "Recife", State: "PE",
	})
	metrics := testutil.DoRequest(s.app.Router, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	s.Require().Equal(http.StatusOK, metrics.Code)
	s.True(strings.Contains(metrics.Body.String(), "ofertas_http_request_duration_seconds"))
	s.NotEmpty(metrics.Header().Get("X-Request-ID"))
}

func (s *AppSuite) TestReaperRemovesExpiredOffers() {
	s.submit("u1", "Maria", contributionmodels.SubmitRequest{
		ProductName: "Café 500g", StoreName: "Atacadão", Price: 15.99, City: "Recife", State: "PE",
	})

	removed, err := s.app.Reaper.RunOnce(context.Background(), time.Now().Add(25*time.Hour))
	s.Require().NoError(err)
	// One daily offer and its status record.
	s.GreaterOrEqual(removed, 2)
}
