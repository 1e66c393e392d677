package domain

import "time"

// Condition describes the declared state of the offered good.
type Condition string

const (
	ConditionNew       Condition = "new"
	ConditionExcellent Condition = "excellent"
	ConditionGood      Condition = "good"
	ConditionFair      Condition = "fair"
	ConditionPoor      Condition = "poor"
)

// Rank orders conditions from best (0) to worst (4). Unknown conditions rank
// in the middle so a missing value neither rewards nor punishes a pair.
func (c Condition) Rank() int {
	switch c {
	case ConditionNew:
		return 0
	case ConditionExcellent:
		return 1
	case ConditionGood:
		return 2
	case ConditionFair:
		return 3
	case ConditionPoor:
		return 4
	default:
		return 2
	}
}

// Valid reports whether c is a known condition value.
func (c Condition) Valid() bool {
	switch c {
	case ConditionNew, ConditionExcellent, ConditionGood, ConditionFair, ConditionPoor:
		return true
	}
	return false
}

// ExchangeType declares how the owner is willing to trade the listing.
type ExchangeType string

const (
	ExchangeBarter   ExchangeType = "barter"
	ExchangeService  ExchangeType = "service_exchange"
	ExchangeFree     ExchangeType = "free"
	ExchangeDonation ExchangeType = "donation"
	ExchangeSale     ExchangeType = "sale"
	ExchangeBoth     ExchangeType = "both"
)

// Valid reports whether t is a known exchange type.
func (t ExchangeType) Valid() bool {
	switch t {
	case ExchangeBarter, ExchangeService, ExchangeFree, ExchangeDonation, ExchangeSale, ExchangeBoth:
		return true
	}
	return false
}

// OneWay reports whether the listing can only occupy the donor position of an
// exchange: free and donation listings give without receiving.
func (t ExchangeType) OneWay() bool {
	return t == ExchangeFree || t == ExchangeDonation
}

// ListingStatus is the publication state of a listing. Only active listings
// participate in matching.
type ListingStatus string

const (
	StatusDraft  ListingStatus = "draft"
	StatusActive ListingStatus = "active"
	StatusPaused ListingStatus = "paused"
	StatusClosed ListingStatus = "closed"
)

// Valid reports whether s is a known listing status.
func (s ListingStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusPaused, StatusClosed:
		return true
	}
	return false
}

// Listing is an offer of a good or service owned by one user.
type Listing struct {
	ID             string
	OwnerID        string
	Title          string
	CategoryID     string
	Condition      Condition
	EstimatedValue float64
	Currency       string
	Latitude       *float64
	Longitude      *float64
	DesiredItems   []string
	ExcludedItems  []string
	Tags           []string
	ExchangeType   ExchangeType
	Status         ListingStatus
	CreatedAt      time.Time

	// Owner is the projected profile of the listing owner. It may be nil
	// when the projection has not been loaded; the scorer treats missing
	// projections as neutral.
	Owner *UserProfile
}

// IsActive reports whether the listing participates in matching.
func (l Listing) IsActive() bool {
	return l.Status == StatusActive
}

// HasCoordinates reports whether both latitude and longitude are set.
func (l Listing) HasCoordinates() bool {
	return l.Latitude != nil && l.Longitude != nil
}
