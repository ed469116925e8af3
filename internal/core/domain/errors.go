package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrTemporary             = errors.New("temporary failure")
	ErrIntentNotFound        = errors.New("intent not found")
	ErrMatchNotFound         = errors.New("match not found")
	ErrCampaignNotFound      = errors.New("campaign not found")
	ErrMatchAlreadyProcessed = errors.New("match already processed")
	ErrBudgetExhausted       = errors.New("campaign budget exhausted")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
