// Package export writes case timelines in JSON, JSON Lines and CSV form
// for regulators and downstream reporting.
//
// Exporters never reorder events; output follows the order returned by the
// audit store, which is the completion order of the milestones.
package export
