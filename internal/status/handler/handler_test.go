package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"ofertas/internal/status/service"
	"ofertas/internal/status/store"
	"ofertas/pkg/requestcontext"
	"ofertas/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
	service *service.Service
	router  chi.Router
	now     time.Time
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	svc, err := service.New(store.NewInMemoryStore())
	s.Require().NoError(err)
	s.service = svc
	s.now = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	s.router = chi.NewRouter()
	New(svc, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(s.router)
}

func (s *HandlerSuite) TestGetKnownStatus() {
	ctx := requestcontext.WithTime(context.Background(), s.now)
	s.Require().NoError(s.service.SetStatus(ctx, "c1", "approved"))

	rr := testutil.DoRequest(s.router, httptest.NewRequest(http.MethodGet, "/contributions/status/c1", nil))
	s.Require().Equal(http.StatusOK, rr.Code)

	body := testutil.UnmarshalResponse[StatusResponse](s.T(), rr)
	s.Equal("c1", body.ID)
	s.Equal("approved", body.Status)
	s.Require().NotNil(body.UpdatedAt)
	s.True(s.now.Equal(*body.UpdatedAt))
}

func (s *HandlerSuite) TestGetUnknownStatusIsPending() {
	rr := testutil.DoRequest(s.router, httptest.NewRequest(http.MethodGet, "/contributions/status/nope", nil))
	s.Require().Equal(http.StatusOK, rr.Code)

	body := testutil.UnmarshalResponse[StatusResponse](s.T(), rr)
	s.Equal("pending", body.Status)
	s.Nil(body.UpdatedAt)
}

func (s *HandlerSuite) TestList() {
	ctx := requestcontext.WithTime(context.Background(), s.now)
	s.Require().NoError(s.service.SetStatus(ctx, "c1", "pending"))
	s.Require().NoError(s.service.SetStatus(ctx, "c2", "approved"))

	rr := testutil.DoRequest(s.router, httptest.NewRequest(http.MethodGet, "/contributions/status", nil))
	s.Require().Equal(http.StatusOK, rr.Code)

	body := testutil.UnmarshalResponse[ListResponse](s.T(), rr)
	s.Len(body.Statuses, 2)
}
