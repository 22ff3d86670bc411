package ipc

import (
	"errors"
	"fmt"
	"net/rpc"
	"testing"

	"ytqueue/internal/queue"
)

func TestErrorCodesRoundTrip(t *testing.T) {
	cases := []error{
		queue.ErrOutOfRange,
		queue.ErrParse,
		queue.ErrNotFound,
		queue.ErrRunningItem,
		queue.ErrStorage,
	}
	for _, sentinel := range cases {
		wrapped := fmt.Errorf("%w: detail", sentinel)
		wire := rpc.ServerError(encodeError(wrapped).Error())
		got := decodeError(wire)
		if !errors.Is(got, sentinel) {
			t.Fatalf("%v: decoded %v does not match sentinel", sentinel, got)
		}
		if got.Error() != wrapped.Error() {
			t.Fatalf("message changed: got %q want %q", got.Error(), wrapped.Error())
		}
	}

	plain := decodeError(rpc.ServerError("something else"))
	if plain == nil || plain.Error() != "something else" {
		t.Fatalf("unexpected plain error %v", plain)
	}
	if decodeError(nil) != nil {
		t.Fatal("expected nil to stay nil")
	}
}
