package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"ofertas/internal/contribution/consensus"
	"ofertas/internal/contribution/handler/mocks"
	"ofertas/internal/contribution/models"
	"ofertas/internal/jwttoken"
	id "ofertas/pkg/domain"
	dErrors "ofertas/pkg/domain-errors"
	"ofertas/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service
type HandlerSuite struct {
	suite.Suite
	svc     *mocks.MockService
	handler *Handler
	router  chi.Router
	jwt     *jwttoken.JWTService
	now     time.Time
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.svc = mocks.NewMockService(ctrl)
	s.jwt = jwttoken.NewJWTService("test-key", "", "")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.handler = New(s.svc, logger, jwttoken.NewJWTServiceAdapter(s.jwt))
	s.router = chi.NewRouter()
	s.handler.Register(s.router)
	s.now = time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)
}

func (s *HandlerSuite) offer(status models.Status) *models.Offer {
	return &models.Offer{
		ID:              id.ContributionID(uuid.MustParse("4f6c2a4e-57a8-4c65-9d1e-0c5c6b2b1f10")),
		UserID:          "u1",
		ContributorName: "Maria",
		ProductName:     "Arroz Integral 5kg",
		StoreName:       "Mercado Bom Preço",
		Price:           decimal.RequireFromString("25.90"),
		City:            "Recife",
		State:           "PE",
		Status:          status,
		CreatedAt:       s.now,
	}
}

func (s *HandlerSuite) submitBody() models.SubmitRequest {
	return models.SubmitRequest{
		ProductName: "Arroz Integral 5kg",
		StoreName:   "Mercado Bom Preço",
		Price:       25.90,
		City:        "Recife",
		State:       "PE",
	}
}

func (s *HandlerSuite) TestSubmitDailyOffer() {
	s.Run("created offer", func() {
		s.svc.EXPECT().SubmitDailyOffer(gomock.Any(), s.submitBody()).Return(s.offer(models.StatusApproved), nil)

		req := testutil.WithCaller(testutil.NewJSONRequest(s.T(), http.MethodPost, "/contributions/daily-offers", s.submitBody()), "u1", "Maria")
		rr := httptest.NewRecorder()
		s.handler.HandleSubmitDailyOffer(rr, req)

		s.Require().Equal(http.StatusCreated, rr.Code)
		body := testutil.UnmarshalResponse[models.OfferResponse](s.T(), rr)
		s.Equal("4f6c2a4e-57a8-4c65-9d1e-0c5c6b2b1f10", body.ID)
		s.Equal(25.90, body.Price)
		s.Equal("Maria", body.ContributorName)
		s.Equal("2024-03-10T15:00:00Z", body.Timestamp)
		s.True(body.Verified)
	})

	s.Run("duplicate is a bad request", func() {
		s.svc.EXPECT().SubmitDailyOffer(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeDuplicateSubmission, "you already contributed this price today"))

		req := testutil.WithCaller(testutil.NewJSONRequest(s.T(), http.MethodPost, "/contributions/daily-offers", s.submitBody()), "u1", "Maria")
		rr := httptest.NewRecorder()
		s.handler.HandleSubmitDailyOffer(rr, req)

		testutil.AssertStatusAndCode(s.T(), rr, http.StatusBadRequest, "duplicate_submission")
	})

	s.Run("rate limited", func() {
		s.svc.EXPECT().SubmitDailyOffer(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeRateLimited, "too many submissions"))

		req := testutil.WithCaller(testutil.NewJSONRequest(s.T(), http.MethodPost, "/contributions/daily-offers", s.submitBody()), "u1", "Maria")
		rr := httptest.NewRecorder()
		s.handler.HandleSubmitDailyOffer(rr, req)

		testutil.AssertStatusAndCode(s.T(), rr, http.StatusTooManyRequests, "rate_limited")
	})

	s.Run("price conflict returns the advisory", func() {
		s.svc.EXPECT().SubmitDailyOffer(gomock.Any(), gomock.Any()).Return(nil, &consensus.ConflictError{
			Advisory: consensus.ConflictAdvisory{
				ConflictingPrice:       decimal.RequireFromString("20.00"),
				ConflictingContributor: "João",
				PriceDifferencePercent: 35.0,
			},
		})

		req := testutil.WithCaller(testutil.NewJSONRequest(s.T(), http.MethodPost, "/contributions/daily-offers", s.submitBody()), "u1", "Maria")
		rr := httptest.NewRecorder()
		s.handler.HandleSubmitDailyOffer(rr, req)

		s.Require().Equal(http.StatusConflict, rr.Code)
		body := testutil.UnmarshalResponse[models.ConflictResponse](s.T(), rr)
		s.True(body.Conflict)
		s.Equal(20.0, body.ConflictingPrice)
		s.Equal("João", body.ConflictingContributor)
		s.Equal(35.0, body.PriceDifferencePercent)
		s.NotEmpty(body.Error)
	})

	s.Run("internal error is generic", func() {
		s.svc.EXPECT().SubmitDailyOffer(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.Wrap(errors.New("pq: connection refused"), dErrors.CodeInternal, "failed to save contribution"))

		req := testutil.WithCaller(testutil.NewJSONRequest(s.T(), http.MethodPost, "/contributions/daily-offers", s.submitBody()), "u1", "Maria")
		rr := httptest.NewRecorder()
		s.handler.HandleSubmitDailyOffer(rr, req)

		testutil.AssertStatusAndCode(s.T(), rr, http.StatusInternalServerError, "internal")
		s.NotContains(rr.Body.String(), "pq:")
	})

	s.Run("malformed body", func() {
		req := testutil.WithCaller(testutil.NewRequestWithBody(s.T(), http.MethodPost, "/contributions/daily-offers", `{"price":`), "u1", "Maria")
		rr := httptest.NewRecorder()
		s.handler.HandleSubmitDailyOffer(rr, req)

		testutil.AssertStatusAndCode(s.T(), rr, http.StatusBadRequest, "bad_request")
	})
}

func (s *HandlerSuite) TestRoutesRequireAuth() {
	for _, path := range []string{"/contributions/daily-offers", "/contributions/daily-offers/conflicts", "/contributions"} {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, path, s.submitBody()))
		testutil.AssertStatusAndCode(s.T(), rr, http.StatusUnauthorized, "unauthorized")
	}
}

func (s *HandlerSuite) TestRouterWithBearerToken() {
	token, err := s.jwt.GenerateAccessToken("u1", "Maria", time.Hour)
	s.Require().NoError(err)

	s.svc.EXPECT().SubmitDailyOffer(gomock.Any(), s.submitBody()).Return(s.offer(models.StatusPending), nil)

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/contributions/daily-offers", s.submitBody())
	req.Header.Set("Authorization", "Bearer "+token)
	rr := testutil.DoRequest(s.router, req)

	s.Require().Equal(http.StatusCreated, rr.Code)
	body := testutil.UnmarshalResponse[models.OfferResponse](s.T(), rr)
	s.False(body.Verified)
}

func (s *HandlerSuite) TestListDailyOffersIsPublic() {
	s.svc.EXPECT().ListDailyOffers(gomock.Any(), "Recife", "PE").
		Return([]*models.Offer{s.offer(models.StatusApproved)}, nil)

	rr := testutil.DoRequest(s.router, httptest.NewRequest(http.MethodGet, "/contributions/daily-offers?city=Recife&state=PE", nil))

	s.Require().Equal(http.StatusOK, rr.Code)
	body := testutil.UnmarshalResponse[[]models.OfferResponse](s.T(), rr)
	s.Require().Len(*body, 1)
	s.Equal("Arroz Integral 5kg", (*body)[0].ProductName)
}

func (s *HandlerSuite) TestCheckConflict() {
	s.Run("no conflict", func() {
		s.svc.EXPECT().CheckConflict(gomock.Any(), gomock.Any()).Return(nil, nil)

		req := testutil.WithCaller(testutil.NewJSONRequest(s.T(), http.MethodPost, "/contributions/daily-offers/conflicts", s.submitBody()), "u1", "")
		rr := httptest.NewRecorder()
		s.handler.HandleCheckConflict(rr, req)

		s.Require().Equal(http.StatusOK, rr.Code)
		body := testutil.UnmarshalResponse[models.ConflictResponse](s.T(), rr)
		s.False(body.Conflict)
	})

	s.Run("conflict", func() {
		s.svc.EXPECT().CheckConflict(gomock.Any(), gomock.Any()).Return(&consensus.ConflictAdvisory{
			ConflictingPrice:       decimal.RequireFromString("30.00"),
			ConflictingContributor: "Ana",
			PriceDifferencePercent: -33.4,
		}, nil)

		req := testutil.WithCaller(testutil.NewJSONRequest(s.T(), http.MethodPost, "/contributions/daily-offers/conflicts", s.submitBody()), "u1", "")
		rr := httptest.NewRecorder()
		s.handler.HandleCheckConflict(rr, req)

		s.Require().Equal(http.StatusOK, rr.Code)
		body := testutil.UnmarshalResponse[models.ConflictResponse](s.T(), rr)
		s.True(body.Conflict)
		s.Equal(-33.4, body.PriceDifferencePercent)
	})
}

func (s *HandlerSuite) TestSubmitContribution() {
	newID := id.NewContributionID()
	cascaded := id.NewContributionID()
	s.svc.EXPECT().SubmitContribution(gomock.Any(), gomock.Any()).Return(&consensus.Result{
		Contribution: &models.Contribution{ID: newID, Status: models.StatusApproved},
		Cascaded:     []id.ContributionID{cascaded},
	}, nil)

	req := testutil.WithCaller(testutil.NewJSONRequest(s.T(), http.MethodPost, "/contributions", s.submitBody()), "u1", "")
	rr := httptest.NewRecorder()
	s.handler.HandleSubmitContribution(rr, req)

	s.Require().Equal(http.StatusCreated, rr.Code)
	body := testutil.UnmarshalResponse[models.ContributionResponse](s.T(), rr)
	s.Equal(newID.String(), body.ID)
	s.Equal("approved", body.Status)
	s.Equal([]string{cascaded.String()}, body.Cascaded)
}
