package core

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestHandleMessage_AccessDenied(t *testing.T) {
	svc := newTestService(t, testConfig(t))
	reply := svc.sendText("+15551234567", "get total")
	if reply != AccessDeniedReply {
		t.Errorf("expected access denied, got %q", reply)
	}
}

func TestHandleMessage_EmptyAllowListAcceptsEveryone(t *testing.T) {
	config := testConfig(t)
	config.Access.AllowList = nil
	svc := newTestService(t, config)

	reply := svc.sendText("+15551234567", "get total")
	if !strings.HasPrefix(reply, "Current month") {
		t.Errorf("expected total reply, got %q", reply)
	}
}

func TestHandleMessage_EmptyMessage(t *testing.T) {
	svc := newTestService(t, testConfig(t))
	if reply := svc.sendText(userPhone, "   "); reply != EmptyMessageReply {
		t.Errorf("expected empty message reply, got %q", reply)
	}
}

func TestHandleMessage_ImageAccepted(t *testing.T) {
	svc := newTestService(t, testConfig(t))
	svc.at(time.Date(2024, 1, 16, 8, 0, 0, 0, time.UTC))

	reply := svc.sendImage(userPhone, "https://media/1", "Total $12.95 ... 34.9 kWh ... 01/15/2024 3:45 PM")
	want := "Added: $12.95 (34.9 kWh)\nTime: 2024-01-15 15:45:00\nMonthly total: $12.95"
	if reply != want {
		t.Errorf("expected %q, got %q", want, reply)
	}
	if svc.notifier.count() != 1 {
		t.Errorf("expected one admin notification, got %d", svc.notifier.count())
	}
}

func TestHandleMessage_DuplicateImage(t *testing.T) {
	svc := newTestService(t, testConfig(t))
	text := "Total $12.95 ... 34.9 kWh"

	if reply := svc.sendImage(userPhone, "https://media/1", text); !strings.HasPrefix(reply, "Added:") {
		t.Fatalf("expected first submission to be accepted, got %q", reply)
	}
	if reply := svc.sendImage(userPhone, "https://media/2", text); reply != DuplicateImageReply {
		t.Errorf("expected duplicate image reply, got %q", reply)
	}
	if svc.notifier.count() != 1 {
		t.Errorf("expected no notification for the duplicate, got %d", svc.notifier.count())
	}
}

func TestHandleMessage_DuplicateTransaction(t *testing.T) {
	svc := newTestService(t, testConfig(t))

	if reply := svc.sendImage(userPhone, "https://media/1", "Total $12.95 for 34.9 kWh"); !strings.HasPrefix(reply, "Added:") {
		t.Fatalf("expected first submission to be accepted, got %q", reply)
	}
	reply := svc.sendImage(userPhone, "https://media/2", "Charged $12.95, 34.9 kWh delivered")
	want := "Error: Duplicate transaction detected. You already submitted $12.95 for 34.9 kWh"
	if reply != want {
		t.Errorf("expected %q, got %q", want, reply)
	}
}

func TestHandleMessage_AmbiguousAmount(t *testing.T) {
	svc := newTestService(t, testConfig(t))

	reply := svc.sendImage(userPhone, "https://media/1", "Subtotal $12.95 Total $13.00 34.9 kWh")
	if !strings.Contains(reply, "multiple different dollar amounts. Found: $12.95, $13.00") {
		t.Errorf("unexpected reply %q", reply)
	}

	history, err := svc.ledger.History(context.Background(), userPhone)
	if err != nil {
		t.Fatalf("History error: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("expected no ledger write, got %d entries", len(history))
	}
}

func TestHandleMessage_AmbiguousQuantity(t *testing.T) {
	svc := newTestService(t, testConfig(t))
	reply := svc.sendImage(userPhone, "https://media/1", "$12.95 34.9 kWh 35 kWh")
	if !strings.Contains(reply, "Found: 34.9 kWh, 35 kWh") {
		t.Errorf("unexpected reply %q", reply)
	}
}

func TestHandleMessage_FieldsMissing(t *testing.T) {
	svc := newTestService(t, testConfig(t))
	if reply := svc.sendImage(userPhone, "https://media/1", "Total $12.95"); reply != FieldsMissingReply {
		t.Errorf("expected fields missing reply, got %q", reply)
	}
}

func TestHandleMessage_FetchError(t *testing.T) {
	svc := newTestService(t, testConfig(t))
	reply := svc.HandleMessage(context.Background(), InboundMessage{From: userPhone, MediaURLs: []string{"https://media/missing"}})
	if reply != "Error: media not found" {
		t.Errorf("expected fetch error reply, got %q", reply)
	}
}

func TestHandleMessage_AdminImageAttributedToEntryIdentity(t *testing.T) {
	svc := newTestService(t, testConfig(t))

	reply := svc.sendImage(adminPhone, "https://media/1", "$5.00 10 kWh")
	if !strings.HasPrefix(reply, "Added to "+adminEntryPhone+": $5.00 (10 kWh)") {
		t.Errorf("unexpected reply %q", reply)
	}
	history, err := svc.ledger.History(context.Background(), adminEntryPhone)
	if err != nil {
		t.Fatalf("History error: %v", err)
	}
	if len(history) != 1 {
		t.Errorf("expected entry for %s, got %d", adminEntryPhone, len(history))
	}
}

func TestHandleMessage_UsageError(t *testing.T) {
	svc := newTestService(t, testConfig(t))
	reply := svc.sendText(adminPhone, "add 34.9")
	if !strings.HasPrefix(reply, "Error: Invalid format. Use: add kWh amount") {
		t.Errorf("expected usage reply, got %q", reply)
	}
}
