// Package estimation predicts how long a project migration takes from the archive size and
// the history of previous migrations.
//
// Each strategy is encapsulated in one Calculator. The Engine asks the calculators in
// registration order and the first one that applies to the given inputs produces the Estimation.
package estimation
