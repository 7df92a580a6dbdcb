package compare

import (
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/unicode/norm"
)

// DefaultPairThreshold is the edit distance ratio above which two taxa are paired.
const DefaultPairThreshold = 0.75

// Pair is an original taxon and the generated taxon it was paired with. Paired is false when no
// generated taxon is close enough. Unnamed leaves pair with each other, so Generated may be empty
// on a paired taxon.
type Pair struct {
	Original  string
	Generated string
	Paired    bool
	Distance  int
	Ratio     float64
}

// Matched reports whether the original taxon was paired.
func (p Pair) Matched() bool {
	return p.Paired
}

// TaxaReport compares the leaf names of two trees.
type TaxaReport struct {
	OriginalCount  int
	GeneratedCount int
	Pairs          []Pair
	// CorrectRatio is the share of original taxa paired with an identical generated taxon.
	CorrectRatio float64
	// ExactMatches is the number of original taxa paired with an identical generated taxon.
	ExactMatches int
	// EqualLength and UnequalLength count paired taxa by whether both names have the same length.
	EqualLength   int
	UnequalLength int
	// MeanHamming and MeanHammingRatio average over paired taxa of equal length.
	MeanHamming      float64
	MeanHammingRatio float64
	// MeanEdit and MeanEditRatio average over paired taxa, the Total variants over every original
	// taxon, an unmatched taxon counting as entirely different.
	MeanEdit           float64
	MeanEditTotal      float64
	MeanEditRatio      float64
	MeanEditRatioTotal float64
	Unmatched          []string
}

// Normalize returns the NFC form of a taxon name.
func Normalize(name string) string {
	return norm.NFC.String(name)
}

// EditDistance is the Levenshtein distance between two names, counted in runes.
func EditDistance(a, b string) int {
	return levenshtein.ComputeDistance(a, b)
}

// EditRatio is 1 - EditDistance / longest length. Two empty names have a ratio of 1.
func EditRatio(a, b string) float64 {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 1
	}

	return 1 - float64(EditDistance(a, b))/float64(longest)
}

// Hamming returns the number of differing runes of two names of the same length.
// ok is false when the lengths differ.
func Hamming(a, b string) (distance int, ok bool) {
	ra, rb := []rune(a), []rune(b)
	if len(ra) != len(rb) {
		return 0, false
	}

	for i := range ra {
		if ra[i] != rb[i] {
			distance++
		}
	}

	return distance, true
}

// PairTaxa walks the original taxa in order and greedily pairs each with the most similar generated
// taxon left, provided their edit ratio is above threshold. Ties go to the first generated taxon.
func PairTaxa(original, generated []string, threshold float64) []Pair {
	left := make([]string, len(generated))
	copy(left, generated)

	pairs := make([]Pair, 0, len(original))

	for _, taxon := range original {
		best, bestRatio := -1, 0.0

		for i, candidate := range left {
			ratio := EditRatio(taxon, candidate)
			if ratio > bestRatio {
				best, bestRatio = i, ratio
			}
		}

		if best < 0 || bestRatio <= threshold {
			pairs = append(pairs, Pair{Original: taxon, Distance: utf8.RuneCountInString(taxon)})

			continue
		}

		pairs = append(pairs, Pair{
			Original:  taxon,
			Generated: left[best],
			Paired:    true,
			Distance:  EditDistance(taxon, left[best]),
			Ratio:     bestRatio,
		})

		left = append(left[:best], left[best+1:]...)
	}

	return pairs
}

// CompareTaxa pairs the taxa and computes their statistics.
func CompareTaxa(original, generated []string, threshold float64) *TaxaReport {
	rep := &TaxaReport{
		OriginalCount:  len(original),
		GeneratedCount: len(generated),
		Pairs:          PairTaxa(original, generated, threshold),
	}

	var hamming, hammingRatio, edit, editRatio float64

	matched := 0

	for _, pair := range rep.Pairs {
		editRatio += pair.Ratio
		edit += float64(pair.Distance)

		if !pair.Matched() {
			rep.Unmatched = append(rep.Unmatched, pair.Original)

			continue
		}

		matched++

		if pair.Generated == pair.Original {
			rep.ExactMatches++
		}

		distance, ok := Hamming(pair.Original, pair.Generated)
		if !ok {
			rep.UnequalLength++

			continue
		}

		rep.EqualLength++
		hamming += float64(distance)

		if length := utf8.RuneCountInString(pair.Original); length > 0 {
			hammingRatio += 1 - float64(distance)/float64(length)
		} else {
			hammingRatio++
		}
	}

	unmatchedDistance := 0.0
	for _, taxon := range rep.Unmatched {
		unmatchedDistance += float64(utf8.RuneCountInString(taxon))
	}

	rep.CorrectRatio = round4(ratio(rep.ExactMatches, len(original)))
	rep.MeanHamming = round4(mean(hamming, rep.EqualLength))
	rep.MeanHammingRatio = round4(mean(hammingRatio, rep.EqualLength))
	rep.MeanEdit = round4(mean(edit-unmatchedDistance, matched))
	rep.MeanEditTotal = round4(mean(edit, len(rep.Pairs)))
	rep.MeanEditRatio = round4(mean(editRatio, matched))
	rep.MeanEditRatioTotal = round4(mean(editRatio, len(rep.Pairs)))

	return rep
}

func mean(sum float64, count int) float64 {
	if count == 0 {
		return 0
	}

	return sum / float64(count)
}

// ratio returns part/total, or 1 when total is zero.
func ratio(part, total int) float64 {
	if total == 0 {
		return 1
	}

	return float64(part) / float64(total)
}
