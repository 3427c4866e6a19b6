package dispatch

import (
	"context"
	"sync"
)

// Recorder is a Channel that records deliveries instead of sending them.
// Used in tests and for local development without SMTP or LinkedIn creds.
type Recorder struct {
	ChannelName string
	Err         error

	mu         sync.Mutex
	deliveries []Delivery
}

func (r *Recorder) Name() string {
	if r.ChannelName == "" {
		return "recorder"
	}
	return r.ChannelName
}

func (r *Recorder) Deliver(_ context.Context, d Delivery) error {
	if r.Err != nil {
		return r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries = append(r.deliveries, d)
	return nil
}

// Deliveries returns a copy of everything delivered so far.
func (r *Recorder) Deliveries() []Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Delivery, len(r.deliveries))
	copy(out, r.deliveries)
	return out
}

var (
	_ Channel = (*EmailChannel)(nil)
	_ Channel = (*LinkedInChannel)(nil)
	_ Channel = (*Recorder)(nil)
)
