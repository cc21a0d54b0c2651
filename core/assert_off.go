//go:build !debugchecks

package core

const debugChecks = false

func assertf(bool, string, ...any) {}
