// Package spectrum produces magnitude snapshots of processed audio for
// display and hands them from the audio thread to a consumer without
// blocking either side.
//
// An Analyzer downmixes output blocks to mono, windows and transforms them,
// and publishes normalized magnitudes through a Publisher. The Publisher owns
// a fixed set of preallocated frames: when the consumer falls behind, the
// oldest queued frame is recycled rather than stalling the producer.
package spectrum
