package effect

import "sort"

// Rank sorts candidates in place, strongest first.
func Rank(cs []Candidate) {
	sort.SliceStable(cs, func(i, j int) bool { return cs[i].Outranks(cs[j]) })
}

// Ranked returns a sorted copy of cs.
func Ranked(cs []Candidate) []Candidate {
	out := append([]Candidate(nil), cs...)
	Rank(out)
	return out
}
