// Copyright (c) 2026 Rejourney
// Licensed under the Apache License, Version 2.0

package rejourney

import "fmt"

// LifecycleBinder abstracts a host framework's app lifecycle registration.
// Implementations call the given functions when the app enters background
// or returns to foreground.
type LifecycleBinder interface {
	OnEnterBackground(fn func())
	OnEnterForeground(fn func())
}

// BindLifecycle wires the client's hooks into the host framework. A
// panicking binder is caught and returned as an error; instrumentation
// must not break app startup.
func (c *Client) BindLifecycle(b LifecycleBinder) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("rejourney: lifecycle binder panicked: %v", rec)
			c.log.Error().
				Str("event", "sdk.lifecycle_bind_failed").
				Interface("panic_value", rec).
				Msg("lifecycle hooks not registered")
		}
	}()

	b.OnEnterBackground(c.OnBackground)
	b.OnEnterForeground(c.OnForeground)
	return nil
}
