package service

import (
	"carrental/internal/errors"
	"carrental/internal/repository"
)

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}

// wrapPersistence passes domain errors through and wraps store faults.
func wrapPersistence(message string, err error) error {
	if err == nil || errors.IsDomain(err) {
		return err
	}
	return errors.Persistence(message, err)
}
