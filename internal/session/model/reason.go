// Copyright (c) 2026 Rejourney
// Licensed under the Apache License, Version 2.0

package model

// ReasonCode classifies why a session ended. The devserver and metrics use
// these verbatim as label values.
type ReasonCode string

const (
	ReasonClientStop        ReasonCode = "client_stop"
	ReasonBackgroundTimeout ReasonCode = "background_timeout"
	ReasonShutdown          ReasonCode = "shutdown"
	ReasonRestartFailed     ReasonCode = "restart_failed"
)
