package queue

import (
	"context"
	"testing"
)

func TestMemoryClientBuffersAndDrains(t *testing.T) {
	c := NewMemoryClient()

	for _, id := range []string{"app-1", "app-2"} {
		if err := c.Send(context.Background(), Message{ApplicationID: id, Version: 1}); err != nil {
			t.Fatalf("send: %v", err)
		}
	}

	got := c.Drain()
	if len(got) != 2 || got[0].ApplicationID != "app-1" || got[1].ApplicationID != "app-2" {
		t.Fatalf("unexpected drained messages: %+v", got)
	}
	if rest := c.Drain(); len(rest) != 0 {
		t.Fatalf("drain must clear the buffer, got %+v", rest)
	}
}
