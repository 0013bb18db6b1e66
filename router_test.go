package sqsdispatch

import (
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/suite"
)

type TenantRouterSuite struct {
	suite.Suite
	router TenantRouter
}

func TestTenantRouterSuite(t *testing.T) {
	suite.Run(t, new(TenantRouterSuite))
}

func (s *TenantRouterSuite) SetupTest() {
	s.router = NewTenantRouter("")
}

func (s *TenantRouterSuite) delivery(id, tenant string) Delivery {
	rec, err := Parse(message(id, `{}`, tenant))
	s.Require().NoError(err)
	return Delivery{Record: rec}
}

func (s *TenantRouterSuite) TestDefaultsAttribute() {
	s.Assert().Equal(DefaultTenantAttribute, s.router.Attribute())
	s.Assert().Equal("client", NewTenantRouter("client").Attribute())
}

func (s *TenantRouterSuite) TestPreservesArrivalOrder() {
	in := []Delivery{
		s.delivery("1", "x"),
		s.delivery("2", ""),
		s.delivery("3", "y"),
		s.delivery("4", "x"),
		s.delivery("5", ""),
		s.delivery("6", "y"),
		s.delivery("7", "x"),
	}

	p := s.router.Partition(in)

	s.Assert().Equal([]string{"2", "5"}, deliveryIDs(p.Untenanted))
	s.Require().Len(p.Tenants, 2)
	s.Assert().Equal("x", p.Tenants[0].Code)
	s.Assert().Equal([]string{"1", "4", "7"}, deliveryIDs(p.Tenants[0].Deliveries))
	s.Assert().Equal("y", p.Tenants[1].Code)
	s.Assert().Equal([]string{"3", "6"}, deliveryIDs(p.Tenants[1].Deliveries))
}

func (s *TenantRouterSuite) TestAllUntenanted() {
	p := s.router.Partition([]Delivery{s.delivery("1", ""), s.delivery("2", "")})

	s.Assert().Len(p.Untenanted, 2)
	s.Assert().Empty(p.Tenants)
}

func (s *TenantRouterSuite) TestEmptyInput() {
	p := s.router.Partition(nil)

	s.Assert().Empty(p.Untenanted)
	s.Assert().Empty(p.Tenants)
}

func (s *TenantRouterSuite) TestCustomAttribute() {
	code := "acme"
	msg := message("1", `{}`, "")
	msg.MessageAttributes = map[string]events.SQSMessageAttribute{"client": {StringValue: &code}}
	rec, err := Parse(msg)
	s.Require().NoError(err)

	p := NewTenantRouter("client").Partition([]Delivery{{Record: rec}})

	s.Require().Len(p.Tenants, 1)
	s.Assert().Equal("acme", p.Tenants[0].Code)
}
