package service

import (
	"time"
)

// ListingInput is the inbound listing payload accepted by the exchange
// service. It is kept separate from the storage model so API payload shape
// and graph schema can evolve independently.
type ListingInput struct {
	ID             string
	OwnerID        string
	Title          string
	CategoryID     string
	Condition      string
	EstimatedValue float64
	Currency       string
	Latitude       *float64
	Longitude      *float64
	DesiredItems   []string
	ExcludedItems  []string
	Tags           []string
	ExchangeType   string
	Status         string
	CreatedAt      *time.Time
}

// UserInput is the inbound user projection. Only fields the matcher consumes
// are carried; profile data beyond that lives in other services.
type UserInput struct {
	ID          string
	TrustScore  float64
	Latitude    *float64
	Longitude   *float64
	MaxTravelKm *float64
}
