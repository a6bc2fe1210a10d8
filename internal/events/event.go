package events

import (
	"errors"
	"fmt"
	"strings"

	"syncer/internal/textutil"
)

// Record keys written by the notification plugin.
const (
	KeyChangeType  = "chng_type"
	KeyUserName    = "user_name"
	KeyMailboxName = "mbox_name"
	KeyMailboxGUID = "mbox_guid"
)

// FieldSeparator splits the key=value fields of one record.
const FieldSeparator = "\t"

var requiredKeys = []string{KeyChangeType, KeyUserName, KeyMailboxName, KeyMailboxGUID}

// ErrMalformedEvent reports a record missing one or more required keys.
var ErrMalformedEvent = errors.New("malformed event record")

// Event is one parsed change notification.
type Event struct {
	ChangeType  string
	UserName    string
	MailboxName string
	MailboxGUID string
}

// ParseEvent parses a tab separated key=value record.
func ParseEvent(line string) (Event, error) {
	conf := textutil.ParseConf(strings.TrimRight(line, "\r\n"), FieldSeparator)
	var missing []string
	for _, key := range requiredKeys {
		if _, ok := conf[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return Event{}, fmt.Errorf("%w: missing %s", ErrMalformedEvent, strings.Join(missing, ", "))
	}
	return Event{
		ChangeType:  conf[KeyChangeType],
		UserName:    conf[KeyUserName],
		MailboxName: conf[KeyMailboxName],
		MailboxGUID: conf[KeyMailboxGUID],
	}, nil
}

// Line renders the event in the pipe record format, without a newline.
func (e Event) Line() string {
	return strings.Join([]string{
		KeyChangeType + "=" + e.ChangeType,
		KeyUserName + "=" + e.UserName,
		KeyMailboxName + "=" + e.MailboxName,
		KeyMailboxGUID + "=" + e.MailboxGUID,
	}, FieldSeparator)
}
