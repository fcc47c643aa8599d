package core

// BlockLen returns the sample count shared by all channels of a planar
// block, i.e. the length of the shortest channel. Empty blocks yield 0.
func BlockLen(block [][]float64) int {
	if len(block) == 0 {
		return 0
	}
	n := len(block[0])
	for _, ch := range block[1:] {
		n = min(n, len(ch))
	}
	return n
}
