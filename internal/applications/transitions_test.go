package applications

import "testing"

func TestParseStatus(t *testing.T) {
	tests := []struct {
		raw     string
		want    Status
		wantErr bool
	}{
		{"QUEUED", StatusQueued, false},
		{"sent", StatusSent, false},
		{" Viewed ", StatusViewed, false},
		{"RESPONDED", StatusResponded, false},
		{"REJECTED", StatusRejected, false},
		{"WITHDRAWN", StatusWithdrawn, false},
		{"FAILED", StatusFailed, false},
		{"", "", true},
		{"PENDING", "", true},
	}
	for _, tt := range tests {
		got, err := ParseStatus(tt.raw)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseStatus(%q): expected error, got %q", tt.raw, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseStatus(%q): %v", tt.raw, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseStatus(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestIsTransitionAllowed(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusQueued, StatusSent},
		{StatusQueued, StatusWithdrawn},
		{StatusQueued, StatusFailed},
		{StatusSent, StatusViewed},
		{StatusSent, StatusResponded},
		{StatusSent, StatusRejected},
		{StatusViewed, StatusResponded},
		{StatusViewed, StatusRejected},
	}
	for _, tt := range allowed {
		if !IsTransitionAllowed(tt.from, tt.to) {
			t.Errorf("expected %s -> %s to be allowed", tt.from, tt.to)
		}
	}

	denied := []struct{ from, to Status }{
		{StatusQueued, StatusViewed},
		{StatusQueued, StatusResponded},
		{StatusSent, StatusQueued},
		{StatusSent, StatusWithdrawn},
		{StatusResponded, StatusRejected},
		{StatusRejected, StatusResponded},
		{StatusWithdrawn, StatusSent},
		{StatusFailed, StatusSent},
	}
	for _, tt := range denied {
		if IsTransitionAllowed(tt.from, tt.to) {
			t.Errorf("expected %s -> %s to be denied", tt.from, tt.to)
		}
	}
}

func TestTerminalStatusesHaveNoOutgoingTransitions(t *testing.T) {
	for _, status := range []Status{StatusResponded, StatusRejected, StatusWithdrawn, StatusFailed} {
		if !IsTerminal(status) {
			t.Errorf("expected %s to be terminal", status)
		}
		if targets := validTransitions[status]; len(targets) != 0 {
			t.Errorf("terminal status %s has outgoing transitions %v", status, targets)
		}
	}
	for _, status := range []Status{StatusQueued, StatusSent, StatusViewed} {
		if IsTerminal(status) {
			t.Errorf("did not expect %s to be terminal", status)
		}
	}
}

func TestParseChannel(t *testing.T) {
	if ch, err := ParseChannel("EMAIL"); err != nil || ch != ChannelEmail {
		t.Fatalf("ParseChannel(EMAIL) = %q, %v", ch, err)
	}
	if ch, err := ParseChannel("linkedin"); err != nil || ch != ChannelLinkedIn {
		t.Fatalf("ParseChannel(linkedin) = %q, %v", ch, err)
	}
	if _, err := ParseChannel("fax"); err == nil {
		t.Fatal("expected error for unknown channel")
	}
}
