package dlob

import (
	"context"
	"testing"

	"fillergo/lib/drift"
)

type fixedSlotSource struct {
	slot uint64
}

func (p *fixedSlotSource) GetSlot() uint64 {
	return p.slot
}

type fixedUserProvider struct {
	users map[string]*drift.User
}

func (p *fixedUserProvider) GetUserAccounts() map[string]*drift.User {
	return p.users
}

// go test --run TestSubscribeWithDefaultUpdateFrequency
func TestSubscribeWithDefaultUpdateFrequency(t *testing.T) {
	subscriber := CreateDLOBSubscriber(DLOBSubscriberConfig{
		SlotSource:          &fixedSlotSource{slot: 42},
		UserAccountProvider: &fixedUserProvider{users: map[string]*drift.User{}},
	})
	if subscriber.updateFrequency != DEFAULT_UPDATE_FREQUENCY {
		t.Fatalf("expected default update frequency, got %v", subscriber.updateFrequency)
	}

	if err := subscriber.Subscribe(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer subscriber.Unsubscribe()

	book, err := subscriber.GetDLOB(42)
	if err != nil {
		t.Fatal(err)
	}
	if book.GetSlot() != 42 {
		t.Fatalf("view tagged with slot %d, want 42", book.GetSlot())
	}
}

// go test --run TestSubscribeRequiresSources
func TestSubscribeRequiresSources(t *testing.T) {
	subscriber := CreateDLOBSubscriber(DLOBSubscriberConfig{})
	if err := subscriber.Subscribe(context.Background()); err == nil {
		t.Fatal("expected an error without slot source and user account provider")
	}
}
