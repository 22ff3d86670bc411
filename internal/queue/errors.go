package queue

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfRange reports an index outside the current queue.
	ErrOutOfRange = errors.New("index out of range")
	// ErrParse reports a malformed queue or import file.
	ErrParse = errors.New("parse error")
	// ErrInvalidOperation reports a request that conflicts with the current state,
	// such as modifying the running item.
	ErrInvalidOperation = errors.New("invalid operation")
	// ErrExternalOperation marks a generate or upload failure. It is recorded on
	// the item and never returned from store or runner calls.
	ErrExternalOperation = errors.New("external operation failed")
	// ErrStorage reports a failure reading or writing the backing store.
	ErrStorage = errors.New("storage error")
	// ErrNotFound reports an id that is not in the queue.
	ErrNotFound = errors.New("item not found")
)

// ErrRunningItem is returned when removing or moving the running item.
var ErrRunningItem = fmt.Errorf("%w: cannot modify running job", ErrInvalidOperation)

func outOfRange(index, length int) error {
	return fmt.Errorf("%w: index %d, queue length %d", ErrOutOfRange, index, length)
}

func storageErr(op string, err error) error {
	if errors.Is(err, ErrStorage) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}
