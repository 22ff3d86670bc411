package ipc

import (
	"errors"
	"fmt"
	"net/rpc"
	"strings"

	"ytqueue/internal/queue"
)

// Wire codes for the queue error taxonomy.
var errorCodes = []struct {
	code     string
	sentinel error
}{
	{"out_of_range", queue.ErrOutOfRange},
	{"parse", queue.ErrParse},
	{"not_found", queue.ErrNotFound},
	{"running_item", queue.ErrRunningItem},
	{"invalid_operation", queue.ErrInvalidOperation},
	{"external", queue.ErrExternalOperation},
	{"storage", queue.ErrStorage},
}

// encodeError prefixes err with the code of the first matching sentinel.
func encodeError(err error) error {
	if err == nil {
		return nil
	}
	for _, entry := range errorCodes {
		if errors.Is(err, entry.sentinel) {
			return fmt.Errorf("[%s] %s", entry.code, err.Error())
		}
	}
	return err
}

// decodeError turns a server error back into a wrapped queue sentinel.
func decodeError(err error) error {
	var serverErr rpc.ServerError
	if !errors.As(err, &serverErr) {
		return err
	}
	message := string(serverErr)
	if !strings.HasPrefix(message, "[") {
		return errors.New(message)
	}
	code, rest, ok := strings.Cut(message[1:], "] ")
	if !ok {
		return errors.New(message)
	}
	for _, entry := range errorCodes {
		if entry.code == code {
			return &remoteError{sentinel: entry.sentinel, message: rest}
		}
	}
	return errors.New(rest)
}

// remoteError keeps the daemon's message and matches its sentinel.
type remoteError struct {
	sentinel error
	message  string
}

func (e *remoteError) Error() string { return e.message }

func (e *remoteError) Unwrap() error { return e.sentinel }
