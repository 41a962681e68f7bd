// Package clock abstracts time for components that need a fake time source
// in tests.
package clock

import "time"

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}
