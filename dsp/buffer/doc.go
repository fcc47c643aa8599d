// Package buffer provides fixed-capacity sample arenas for real-time
// processing. Capacity is reserved once at construction; afterwards only
// the active length changes, so resizing on the audio thread never
// allocates. DSP functions accept raw slices; use Samples() to bridge.
package buffer
