package serviceimpl

import (
	"errors"
	"fmt"

	"incident-map/domain/repositories"
	"incident-map/domain/services"
)

// storeErr turns a repository error into a service error kind.
func storeErr(err error, notFound error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return notFound
	}
	return fmt.Errorf("%w: %v", services.ErrUpstream, err)
}
