package hub

import (
	"context"
	"testing"
	"time"

	"github.com/pmello/settlers-backend/internal/room"
)

func createRoom(t *testing.T, h *Hub) CreateResult {
	t.Helper()
	reply := make(chan CreateResult, 1)
	h.Inbox() <- CreateRoom{Reply: reply}
	select {
	case res := <-reply:
		if res.Room == nil {
			t.Fatalf("room creation failed")
		}
		return res
	case <-time.After(time.Second):
		t.Fatalf("timed out creating room")
		return CreateResult{} // unreachable
	}
}

func getRoom(h *Hub, code string) *room.Room {
	reply := make(chan *room.Room, 1)
	h.Inbox() <- GetRoom{Code: code, Reply: reply}
	return <-reply
}

func TestHub_CreateAndGet(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx, room.Config{})

	res := createRoom(t, h)
	if len(res.Code) != 6 {
		t.Fatalf("want 6-char code, got %q", res.Code)
	}
	if got := getRoom(h, res.Code); got != res.Room {
		t.Fatalf("lookup returned a different room")
	}
	if got := getRoom(h, "ZZZZZZ"); got != nil {
		t.Fatalf("unknown code should return nil")
	}
}

func TestHub_CodesAreUnique(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx, room.Config{})

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		res := createRoom(t, h)
		if seen[res.Code] {
			t.Fatalf("duplicate room code %q", res.Code)
		}
		seen[res.Code] = true
	}
}

func TestHub_RemoveRoom(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx, room.Config{})

	res := createRoom(t, h)
	h.Inbox() <- RemoveRoom{Code: res.Code}
	if got := getRoom(h, res.Code); got != nil {
		t.Fatalf("room should be gone after removal")
	}
}
