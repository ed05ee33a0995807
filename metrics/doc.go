// Package metrics records per-step training measurements.
//
// Measurements are written as a JSON array of protobuf Any messages, each
// wrapping a google.protobuf.Struct, so that the plotting package can read them
// back without generated types. A Recorder also keeps running loss statistics
// for every experiment and logs them when the experiment ends.
package metrics
