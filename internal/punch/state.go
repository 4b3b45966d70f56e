// internal/punch/state.go
package punch

import "driver-punch-api-server/internal/models"

// NextAction derives the next permitted punch from the latest ledger entry.
// Only the single latest entry is inspected: no history means in, in means out, out means in.
func NextAction(last *models.PunchLog) models.Direction {
	if last == nil || last.Type != models.PunchIn {
		return models.PunchIn
	}
	return models.PunchOut
}
