package service

import "errors"

var (
	// ErrUnknownRegion indicates an unrecognized region name.
	ErrUnknownRegion = errors.New("unknown region")
	// ErrInvalidPriceRange indicates min price above max price.
	ErrInvalidPriceRange = errors.New("invalid price range")
)
