// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Services are pure Go with no CGO. Beyond the ports they only import
// uuid for run ids, the OpenTelemetry API for spans around a run and
// errgroup for bounded chunk loading.
package services
