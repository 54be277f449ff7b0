// Package probe implements the health-check iteration: one GET per health
// endpoint, a fixed set of named checks per response, and a pause.
//
// Every endpoint group contributes exactly one sample to the run's error
// rate. A group fails when any of its checks is false or when an exception
// (transport error, unreadable body, non-JSON body) occurs; an exception
// skips the group's checks but never the remaining groups.
package probe
