package ledger

import (
	"fmt"
	"time"
)

// ConflictError reports a reservation attempt on an interval that is already
// reserved or black-listed.
type ConflictError struct {
	SpotID string
	Start  time.Time
	End    time.Time
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("spot %s is unavailable between %s and %s",
		e.SpotID, e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339))
}
