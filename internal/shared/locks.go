package shared

import (
	"fmt"
	"time"
)

// CloseLockKey builds the redis key guarding a daily close.
func CloseLockKey(date time.Time) string {
	return fmt.Sprintf("closing:%s:lock", FormatDate(date))
}
