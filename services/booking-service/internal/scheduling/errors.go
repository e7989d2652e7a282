package scheduling

import "errors"

var ErrEventTypeNotFound = errors.New("event type not found")
