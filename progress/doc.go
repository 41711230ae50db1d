// Package progress holds the OKR arithmetic: turning a key result's measured
// value into a percentage, balancing sibling weights, rolling progress up an
// objective hierarchy and deriving a lifecycle status from progress and time.
//
// Everything here is pure. Storage, transactions and logging live in the
// services and repositories packages; configuration arrives as explicit
// Thresholds and WeightConfig values.
package progress
