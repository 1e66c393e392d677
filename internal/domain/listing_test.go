package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConditionRank(t *testing.T) {
	assert.Equal(t, 0, ConditionNew.Rank())
	assert.Equal(t, 1, ConditionExcellent.Rank())
	assert.Equal(t, 2, ConditionGood.Rank())
	assert.Equal(t, 3, ConditionFair.Rank())
	assert.Equal(t, 4, ConditionPoor.Rank())
	assert.Equal(t, 2, Condition("mint").Rank())
	assert.Equal(t, 2, Condition("").Rank())
}

func TestConditionValid(t *testing.T) {
	assert.True(t, ConditionGood.Valid())
	assert.False(t, Condition("mint").Valid())
	assert.False(t, Condition("").Valid())
}

func TestExchangeTypeOneWay(t *testing.T) {
	assert.True(t, ExchangeFree.OneWay())
	assert.True(t, ExchangeDonation.OneWay())
	assert.False(t, ExchangeBarter.OneWay())
	assert.False(t, ExchangeService.OneWay())
	assert.False(t, ExchangeSale.OneWay())
	assert.False(t, ExchangeBoth.OneWay())
}

func TestListingIsActive(t *testing.T) {
	assert.True(t, Listing{Status: StatusActive}.IsActive())
	assert.False(t, Listing{Status: StatusDraft}.IsActive())
	assert.False(t, Listing{Status: StatusPaused}.IsActive())
	assert.False(t, Listing{Status: StatusClosed}.IsActive())
	assert.False(t, Listing{}.IsActive())
}

func TestListingHasCoordinates(t *testing.T) {
	lat, lng := 46.2, 6.1
	assert.True(t, Listing{Latitude: &lat, Longitude: &lng}.HasCoordinates())
	assert.False(t, Listing{Latitude: &lat}.HasCoordinates())
	assert.False(t, Listing{Longitude: &lng}.HasCoordinates())
	assert.False(t, Listing{}.HasCoordinates())
}
