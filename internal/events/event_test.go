package events_test

import (
	"errors"
	"strings"
	"testing"

	"syncer/internal/events"
	"syncer/internal/testsupport"
)

func TestParseEvent(t *testing.T) {
	line := "chng_type=mailbox_create\tuser_name=a@b\tmbox_name=Inbox\tmbox_guid=1\textra=x\n"
	got, err := events.ParseEvent(line)
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	testsupport.Diff(t, "event", events.Event{
		ChangeType:  "mailbox_create",
		UserName:    "a@b",
		MailboxName: "Inbox",
		MailboxGUID: "1",
	}, got)

	again, err := events.ParseEvent(got.Line())
	if err != nil {
		t.Fatalf("ParseEvent(Line): %v", err)
	}
	testsupport.Diff(t, "reparsed event", got, again)
}

func TestParseEventKeysAreCaseInsensitive(t *testing.T) {
	got, err := events.ParseEvent(" CHNG_TYPE = mailbox_rename \tUser_Name=u@d\tmbox_name=Work/Lists\tmbox_guid=abc")
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	if got.ChangeType != "mailbox_rename" || got.UserName != "u@d" {
		t.Fatalf("unexpected event %+v", got)
	}
}

func TestParseEventMissingKeys(t *testing.T) {
	_, err := events.ParseEvent("chng_type=mailbox_create\tuser_name=a@b")
	if !errors.Is(err, events.ErrMalformedEvent) {
		t.Fatalf("expected ErrMalformedEvent, got %v", err)
	}
	if !strings.Contains(err.Error(), "mbox_name") || !strings.Contains(err.Error(), "mbox_guid") {
		t.Fatalf("error should name missing keys: %v", err)
	}
}
