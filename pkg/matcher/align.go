package matcher

import "github.com/doppelkit/doppel/pkg/entity"

// lcs computes the length of the longest common subsequence between two
// sequences of lengths la and lb, with eq reporting element equality.
// Order-aware with gap tolerance: insertions and deletions cost nothing
// beyond the unmatched element, so an added parameter in the middle of
// a copied list still aligns the rest.
func lcs(la, lb int, eq func(i, j int) bool) int {
	if la == 0 || lb == 0 {
		return 0
	}
	prev := make([]int, lb+1)
	cur := make([]int, lb+1)
	for i := 1; i <= la; i++ {
		for j := 1; j <= lb; j++ {
			switch {
			case eq(i-1, j-1):
				cur[j] = prev[j-1] + 1
			case prev[j] >= cur[j-1]:
				cur[j] = prev[j]
			default:
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
		for j := range cur {
			cur[j] = 0
		}
	}
	return prev[lb]
}

// alignAttributes aligns two attribute lists on canonical type tokens.
// Names are excluded: renaming must not defeat detection. Two
// attributes with unresolvable types count as aligned; type evidence
// that thin cannot distinguish them.
func alignAttributes(a, b []entity.Attribute) int {
	return lcs(len(a), len(b), func(i, j int) bool {
		return a[i].Type == b[j].Type
	})
}

// alignSignatures aligns two body signatures token by token. Identical
// signatures short-circuit on their digest.
func alignSignatures(a, b entity.Signature) int {
	if len(a) == len(b) && len(a) > 0 && a.Digest() == b.Digest() {
		return len(a)
	}
	return lcs(len(a), len(b), func(i, j int) bool {
		return a[i] == b[j]
	})
}
