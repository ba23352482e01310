package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidID     = errors.New("invalid id")
	ErrInvalidFilter = errors.New("invalid filter")
	ErrInvalidTopic  = errors.New("invalid topic")
)

const (
	AggregateGrocery = "grocery"
	AggregateStore   = "store"
)

func ValidateID(id int64) error {
	if id <= 0 {
		return ErrInvalidID
	}
	return nil
}

func ValidateAggregateType(aggregate string) error {
	switch aggregate {
	case AggregateGrocery, AggregateStore:
		return nil
	default:
		return ErrInvalidFilter
	}
}
