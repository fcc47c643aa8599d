// Package window generates periodic analysis and synthesis windows and
// reports the gains needed to normalize windowed transforms.
package window
