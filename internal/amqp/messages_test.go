package amqp

import "testing"

func TestExportMessageRoundTrip(t *testing.T) {
	msg := NewItemSyncMessage(42, 3)
	if msg.MessageID == "" {
		t.Fatal("missing message id")
	}
	if msg.Type != TypeItemSync {
		t.Fatalf("type = %s", msg.Type)
	}

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	got, err := ExportMessageFromJSON(body)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if got.ItemID != 42 || got.Version != 3 || got.MessageID != msg.MessageID {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestDeleteMessageType(t *testing.T) {
	msg := NewItemDeleteMessage(7)
	if msg.Type != TypeItemDelete || msg.ItemID != 7 || msg.Version != 0 {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestExportMessageFromJSONRejectsGarbage(t *testing.T) {
	if _, err := ExportMessageFromJSON([]byte("{not json")); err == nil {
		t.Fatal("expected error for malformed body")
	}
}
