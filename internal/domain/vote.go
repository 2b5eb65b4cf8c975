// Package domain contains entity without logic, just meta-data
package domain

import "strconv"

// Vote is one value from the fixed deck a participant can hold.
// Absence of a vote is modeled as a nil *Vote, never "".
type Vote string

const (
	VoteUnsure Vote = "?"
	VoteCoffee Vote = "coffee"
)

var deck = map[Vote]struct{}{
	"0": {}, "1": {}, "2": {}, "3": {}, "5": {}, "8": {}, "13": {}, "21": {},
	VoteUnsure: {}, VoteCoffee: {},
}

func (v Vote) Valid() bool {
	_, ok := deck[v]
	return ok
}

// Weight is the ordering key used after reveal: numeric votes map to their
// value, everything else (absent, "?", "coffee") to -1.
func Weight(v *Vote) int {
	if v == nil {
		return -1
	}
	n, err := strconv.Atoi(string(*v))
	if err != nil {
		return -1
	}
	return n
}

// Numeric reports the vote as a number for averaging. The second return is
// false for absent votes and the non-numeric sentinels.
func Numeric(v *Vote) (float64, bool) {
	if v == nil {
		return 0, false
	}
	n, err := strconv.Atoi(string(*v))
	if err != nil {
		return 0, false
	}
	return float64(n), true
}
