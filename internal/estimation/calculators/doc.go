// Package calculators provides the concrete Calculator implementations for the estimation engine.
//
// Calculators are listed here in the order the default engine consults them:
// SizeBased (no history), HistoricalMedian (enough similar-size migrations),
// Regression (enough migrations overall) and ConservativeSizeBased (anything else).
package calculators
