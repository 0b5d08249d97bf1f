package resolver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"ofertas/internal/contribution/models"
	"ofertas/internal/contribution/store"
	dErrors "ofertas/pkg/domain-errors"
	"ofertas/pkg/requestcontext"
)

type ResolverSuite struct {
	suite.Suite
	entities *store.InMemoryEntities
	resolver *Resolver
	ctx      context.Context
}

func TestResolverSuite(t *testing.T) {
	suite.Run(t, new(ResolverSuite))
}

func (s *ResolverSuite) SetupTest() {
	s.entities = store.NewInMemoryEntities()
	r, err := New(s.entities)
	s.Require().NoError(err)
	s.resolver = r
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC))
}

func qty(n int64) *decimal.Decimal {
	d := decimal.NewFromInt(n)
	return &d
}

func (s *ResolverSuite) TestResolveProductMatchesNormalizedName() {
	existing, err := s.resolver.ResolveProduct(s.ctx, ProductInput{Name: "Arroz Integral 5kg", Quantity: qty(5), Unit: "kg"})
	s.Require().NoError(err)

	for _, name := range []string{"Arroz Integral 5kg", "arroz integral 5 kg", "ARROZ INTEGRAL"} {
		got, err := s.resolver.ResolveProduct(s.ctx, ProductInput{Name: name, Quantity: qty(5), Unit: "kg"})
		s.Require().NoError(err)
		s.Equal(existing.ID, got.ID, name)
		s.Equal("Arroz Integral 5kg", got.Name, "stored name is never rewritten")
	}
}

func (s *ResolverSuite) TestResolveProductCreatesOnUnitMismatch() {
	kg, err := s.resolver.ResolveProduct(s.ctx, ProductInput{Name: "Arroz Integral 5kg", Quantity: qty(5), Unit: "kg"})
	s.Require().NoError(err)

	g, err := s.resolver.ResolveProduct(s.ctx, ProductInput{Name: "arroz integral 5 kg", Quantity: qty(5), Unit: "g"})
	s.Require().NoError(err)
	s.NotEqual(kg.ID, g.ID)
	s.Equal("arroz integral 5 kg", g.Name)
}

func (s *ResolverSuite) TestResolveProductCreatesOnQuantityMismatch() {
	one, err := s.resolver.ResolveProduct(s.ctx, ProductInput{Name: "Leite Integral"})
	s.Require().NoError(err)

	twelve, err := s.resolver.ResolveProduct(s.ctx, ProductInput{Name: "Leite Integral", Quantity: qty(12)})
	s.Require().NoError(err)
	s.NotEqual(one.ID, twelve.ID)
}

func (s *ResolverSuite) TestResolveProductDefaults() {
	p, err := s.resolver.ResolveProduct(s.ctx, ProductInput{Name: "Sabonete"})
	s.Require().NoError(err)
	s.True(decimal.NewFromInt(1).Equal(p.Quantity))
	s.Equal(models.DefaultUnit, p.Unit)
	s.Equal(models.DefaultCategory, p.Category)
	s.Equal("sabonete", p.NormalizedName)
}

func (s *ResolverSuite) TestNearDuplicatesStaySeparate() {
	a, err := s.resolver.ResolveProduct(s.ctx, ProductInput{Name: "Feijão Carioca"})
	s.Require().NoError(err)
	b, err := s.resolver.ResolveProduct(s.ctx, ProductInput{Name: "Feijão Carioca Tipo 1"})
	s.Require().NoError(err)
	s.NotEqual(a.ID, b.ID)
}

func (s *ResolverSuite) TestResolveStore() {
	first, err := s.resolver.ResolveStore(s.ctx, "Supermercado Pão de Açúcar")
	s.Require().NoError(err)

	again, err := s.resolver.ResolveStore(s.ctx, "supermercado pao de acucar")
	s.Require().NoError(err)
	s.Equal(first.ID, again.ID)

	other, err := s.resolver.ResolveStore(s.ctx, "Pão de Açúcar")
	s.Require().NoError(err)
	s.NotEqual(first.ID, other.ID)
}

type failingEntities struct {
	*store.InMemoryEntities
}

func (failingEntities) FindProducts(context.Context, string) ([]*models.Product, error) {
	return nil, errors.New("connection refused")
}

func (s *ResolverSuite) TestStoreFailureIsInternal() {
	r, err := New(failingEntities{store.NewInMemoryEntities()})
	s.Require().NoError(err)

	_, err = r.ResolveProduct(s.ctx, ProductInput{Name: "Arroz"})
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func TestNewRequiresStore(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatal("expected error for nil store")
	}
}
