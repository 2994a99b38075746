package kiwi

// epsilon is the fixed near-zero tolerance used throughout the solver:
// coefficients within epsilon of zero are pruned from a Row, and a row
// whose constant falls within epsilon of zero is treated as exactly zero
// by the all-Dummy redundancy test.
const epsilon = 1.0e-8

func nearZero(v float64) bool {
	return v < epsilon && v > -epsilon
}
