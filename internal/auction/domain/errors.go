package domain

import "errors"

var (
	ErrAuctionNotFound     = errors.New("auction not found")
	ErrInvalidState        = errors.New("auction is not in a valid state for this operation")
	ErrBidTooLow           = errors.New("bid amount is below the minimum acceptable bid")
	ErrInvalidAmount       = errors.New("bid amount must be greater than zero")
	ErrInvalidSubject      = errors.New("auction subject must be a book or a product with an id")
	ErrInvalidSchedule     = errors.New("auction must end after it starts")
	ErrConcurrencyConflict = errors.New("bid lost the commit race, refresh current bid and retry")
	ErrPaymentDeclined     = errors.New("payment capture was declined")
)
