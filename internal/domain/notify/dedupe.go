package notify

import (
	"fmt"

	"github.com/google/uuid"
)

// BuildDueSoonDedupeKeyRaw builds the idempotency key enqueued into the
// outbox for a task_due_soon email reminder. The same (profile, local
// day) pair always yields the same key, so re-scanning an already
// notified day is a harmless duplicate-insert no-op rather than a
// second email.
func BuildDueSoonDedupeKeyRaw(profileID uuid.UUID, localDay string) string {
	return fmt.Sprintf("task_due_soon|email|profile:%s|%s", profileID, localDay)
}
