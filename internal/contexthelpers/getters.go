package contexthelpers

import (
	"context"
)

// RequestID returns the id logRequest assigned to the request, or "" outside a request.
func RequestID(ctx context.Context) string {
	requestID, ok := ctx.Value(requestIDContextKey).(string)
	if !ok {
		return ""
	}

	return requestID
}
