// Package testutil holds helpers shared by package tests: log capture,
// scripted plugin modules and instrumented factories.
package testutil
