// Copyright (c) 2026 Rejourney
// Licensed under the Apache License, Version 2.0

package httpmw

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/rejourney/rejourney-go/internal/log"
)

// HeaderRequestID is the canonical correlation header. Inbound values are
// trusted and echoed back; absent ones are minted.
const HeaderRequestID = "X-Request-ID"

// RequestID tags every request with a correlation id, in the response
// header and in the logging context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(HeaderRequestID)
		if reqID == "" {
			reqID = uuid.New().String()
		}
		w.Header().Set(HeaderRequestID, reqID)
		ctx := log.ContextWithRequestID(r.Context(), reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
