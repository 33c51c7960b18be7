package enums

import "testing"

func TestNotificationTypeIsValid(t *testing.T) {
	for _, nt := range validNotificationTypes {
		if !nt.IsValid() {
			t.Fatalf("expected %q to be valid", nt)
		}
	}
	if NotificationType("LIKE").IsValid() {
		t.Fatal("enum values are lowercase; uppercase must be rejected")
	}
	if NotificationType("").IsValid() {
		t.Fatal("empty type must be rejected")
	}
}

func TestParseNotificationType(t *testing.T) {
	nt, err := ParseNotificationType("post_rejected")
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if nt != NotificationTypePostRejected {
		t.Fatalf("unexpected type %q", nt)
	}

	if _, err := ParseNotificationType("poke"); err == nil {
		t.Fatal("expected error for unknown type")
	}
}
