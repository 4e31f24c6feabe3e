package models

import "fmt"

// ListingStatus is the lifecycle state of a listing
type ListingStatus string

const (
	ListingAvailable ListingStatus = "available"
	ListingRequested ListingStatus = "requested"
	ListingPickedUp  ListingStatus = "picked_up"
	ListingExpired   ListingStatus = "expired"
)

var listingTransitions = map[ListingStatus][]ListingStatus{
	ListingAvailable: {ListingRequested, ListingExpired, ListingPickedUp},
	ListingRequested: {ListingPickedUp},
}

// CanTransitionTo reports whether moving from s to next is legal
func (s ListingStatus) CanTransitionTo(next ListingStatus) bool {
	for _, allowed := range listingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible
func (s ListingStatus) Terminal() bool {
	return len(listingTransitions[s]) == 0
}

// RequestStatus is the lifecycle state of a pickup request
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestAccepted RequestStatus = "accepted"
	RequestRejected RequestStatus = "rejected"
)

// Terminal reports whether the request has been resolved
func (s RequestStatus) Terminal() bool {
	return s == RequestAccepted || s == RequestRejected
}

// Decision is a donor's answer to a pending request
type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

// ParseDecision converts the wire verb into a Decision
func ParseDecision(s string) (Decision, error) {
	switch Decision(s) {
	case DecisionAccept, DecisionReject:
		return Decision(s), nil
	}
	return "", fmt.Errorf("%w: action must be accept or reject", ErrValidation)
}

// Status returns the terminal request status a decision leads to
func (d Decision) Status() RequestStatus {
	if d == DecisionAccept {
		return RequestAccepted
	}
	return RequestRejected
}

// FoodType classifies the food on offer
type FoodType string

const (
	FoodVeg    FoodType = "veg"
	FoodNonVeg FoodType = "non-veg"
	FoodBoth   FoodType = "both"
)

// Valid reports whether f is one of the known food types
func (f FoodType) Valid() bool {
	switch f {
	case FoodVeg, FoodNonVeg, FoodBoth:
		return true
	}
	return false
}
