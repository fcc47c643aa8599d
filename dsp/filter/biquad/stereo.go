package biquad

// StereoSection is one biquad whose coefficients are shared by two lanes,
// each with its own Direct Form II Transposed state.
type StereoSection struct {
	Coefficients

	d0, d1 [2]float64
}

// ProcessSample filters one frame of both lanes.
func (s *StereoSection) ProcessSample(l, r float64) (float64, float64) {
	yl := s.B0*l + s.d0[0]
	yr := s.B0*r + s.d0[1]

	s.d0[0] = s.B1*l - s.A1*yl + s.d1[0]
	s.d0[1] = s.B1*r - s.A1*yr + s.d1[1]
	s.d1[0] = s.B2*l - s.A2*yl
	s.d1[1] = s.B2*r - s.A2*yr

	return yl, yr
}

// ProcessBlock filters left and right in place. Only the common prefix of
// the two slices is processed. Zero-alloc.
func (s *StereoSection) ProcessBlock(left, right []float64) {
	n := min(len(left), len(right))
	if n == 0 {
		return
	}

	selectedKernel().ProcessStereoBlock(s.Coefficients.registry(), &s.d0, &s.d1, left[:n], right[:n])
}

// Reset clears both lanes' delay lines.
func (s *StereoSection) Reset() {
	s.d0 = [2]float64{}
	s.d1 = [2]float64{}
}

// Lane returns lane ch's [d0, d1] state.
func (s *StereoSection) Lane(ch int) [2]float64 {
	return [2]float64{s.d0[ch], s.d1[ch]}
}
