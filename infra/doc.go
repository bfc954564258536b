// Package infra contains technical adapters: solver engines, record stores,
// metrics and telemetry exporters, monitoring and logging. These packages
// should depend only on the interfaces defined in the core packages.
package infra
