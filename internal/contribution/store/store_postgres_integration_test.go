//go:build integration

package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"ofertas/internal/contribution/models"
	"ofertas/internal/contribution/store"
	id "ofertas/pkg/domain"
	"ofertas/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	entities *store.PostgresEntities
	offers   *store.PostgresContributions
	ctx      context.Context
	t0       time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.postgres = containers.NewPostgresContainer(s.T())
	s.Require().NoError(store.Migrate(s.ctx, s.postgres.DB))
	s.entities = store.NewPostgresEntities(s.postgres.DB)
	offers, err := store.NewPostgresContributions(s.postgres.DB, models.TableDailyOffers)
	s.Require().NoError(err)
	s.offers = offers
	s.t0 = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.Truncate(s.ctx, "daily_offers", "price_contributions", "products", "stores"))
}

func (s *PostgresStoreSuite) seedPair() (*models.Product, *models.Store) {
	p := &models.Product{ID: id.NewProductID(), Name: "Arroz Integral 5kg", NormalizedName: "arroz integral",
		Quantity: decimal.NewFromInt(5), Unit: "kg", Category: "outros", CreatedAt: s.t0}
	st := &models.Store{ID: id.NewStoreID(), Name: "Mercado 100%", NormalizedName: "mercado 100%", CreatedAt: s.t0}
	s.Require().NoError(s.entities.CreateProduct(s.ctx, p))
	s.Require().NoError(s.entities.CreateStore(s.ctx, st))
	return p, st
}

func (s *PostgresStoreSuite) insert(p *models.Product, st *models.Store, user string, status models.Status, at time.Time) *models.Contribution {
	c := &models.Contribution{
		ID: id.NewContributionID(), UserID: id.UserID(user), ContributorName: user,
		ProductID: p.ID, StoreID: st.ID, Price: decimal.RequireFromString("24.90"),
		City: "Campinas", State: "SP", Status: status, CreatedAt: at, UpdatedAt: at,
	}
	s.Require().NoError(s.offers.InsertContribution(s.ctx, c))
	return c
}

func (s *PostgresStoreSuite) TestFindProductsByNormalizedName() {
	p, _ := s.seedPair()

	got, err := s.entities.FindProducts(s.ctx, "arroz integral 5 kg")
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(p.ID, got[0].ID)
	s.True(decimal.NewFromInt(5).Equal(got[0].Quantity))

	stores, err := s.entities.FindStores(s.ctx, "100%")
	s.Require().NoError(err)
	s.Len(stores, 1)

	got2, err := s.entities.FindStores(s.ctx, "0_")
	s.Require().NoError(err)
	s.Empty(got2, "LIKE wildcards are escaped")
}

func (s *PostgresStoreSuite) TestContributionQueriesAndCascade() {
	p, st := s.seedPair()
	day := models.DayWindowAt(s.t0, time.UTC)
	alice := s.insert(p, st, "alice", models.StatusPending, s.t0)
	s.insert(p, st, "bob", models.StatusRejected, s.t0.Add(time.Minute))
	s.insert(p, st, "carol", models.StatusPending, s.t0.Add(-24*time.Hour))

	got, err := s.offers.FindContributions(s.ctx, models.ContributionQuery{
		ProductID: p.ID, StoreID: st.ID, Window: &day, ExcludeUserID: "dave", Statuses: models.NonRejected(),
	})
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(alice.ID, got[0].ID)

	err = s.offers.RunInTx(s.ctx, func(ctx context.Context) error {
		changed, err := s.offers.UpdateContributionsStatus(ctx, []id.ContributionID{alice.ID}, models.StatusApproved, "approved by corroboration", s.t0.Add(time.Hour))
		s.Require().NoError(err)
		s.Equal([]id.ContributionID{alice.ID}, changed)
		return errors.New("roll back")
	})
	s.Require().Error(err)

	got, err = s.offers.FindContributions(s.ctx, models.ContributionQuery{ProductID: p.ID, StoreID: st.ID, UserID: "alice"})
	s.Require().NoError(err)
	s.Equal(models.StatusPending, got[0].Status, "rolled back")

	changed, err := s.offers.UpdateContributionsStatus(s.ctx, []id.ContributionID{alice.ID}, models.StatusApproved, "approved by corroboration", s.t0.Add(time.Hour))
	s.Require().NoError(err)
	s.Len(changed, 1)

	offers, err := s.offers.ListOffers(s.ctx, models.OfferQuery{City: "CAMPINAS", Since: s.t0.Add(-time.Hour), Statuses: []models.Status{models.StatusApproved}})
	s.Require().NoError(err)
	s.Require().Len(offers, 1)
	s.Equal("Arroz Integral 5kg", offers[0].ProductName)
	s.Equal("Mercado 100%", offers[0].StoreName)

	n, err := s.offers.DeleteContributionsBefore(s.ctx, s.t0.Add(-time.Hour))
	s.Require().NoError(err)
	s.Equal(1, n)
}
