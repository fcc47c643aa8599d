//go:build amd64 && !purego

package biquad

import (
	"sync"
	"testing"

	archregistry "github.com/cwbudde/algo-rtfx/dsp/filter/biquad/internal/arch/registry"
	"github.com/cwbudde/algo-vecmath/cpu"
)

func resetKernelDispatchForTest() {
	kernel = nil
	kernelInitOnce = sync.Once{}
}

func TestKernelDispatch_AMD64Modes(t *testing.T) {
	tests := []struct {
		name     string
		features cpu.Features
		wantImpl string
	}{
		{
			name: "generic-forced",
			features: cpu.Features{
				ForceGeneric: true,
				Architecture: "amd64",
			},
			wantImpl: "generic",
		},
		{
			name: "sse2-only",
			features: cpu.Features{
				HasSSE2:      true,
				Architecture: "amd64",
			},
			wantImpl: "generic",
		},
		{
			name: "avx2",
			features: cpu.Features{
				HasSSE2:      true,
				HasAVX2:      true,
				Architecture: "amd64",
			},
			wantImpl: "avx2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cpu.SetForcedFeatures(tt.features)

			defer cpu.ResetDetection()
			defer resetKernelDispatchForTest()

			resetKernelDispatchForTest()

			entry := archregistry.Global.Lookup(cpu.DetectFeatures())
			if entry == nil {
				t.Fatal("Lookup returned nil")
			}

			if entry.Name != tt.wantImpl {
				t.Fatalf("expected %q, got %q", tt.wantImpl, entry.Name)
			}

			if got := KernelName(); got != tt.wantImpl {
				t.Fatalf("KernelName() = %q, want %q", got, tt.wantImpl)
			}

			coeff := AllPass(48000, 700, 2)
			ref := StereoSection{Coefficients: coeff}
			got := StereoSection{Coefficients: coeff}
			left := []float64{1, 0.5, -0.3, 0.7, 0, -1, 0.2, 0.8, -0.1}
			right := []float64{0.2, -0.5, 0.3, 0.1, 0.9, -1, 0, 0.4, 0.6}

			refL := make([]float64, len(left))
			refR := make([]float64, len(right))
			for i := range left {
				refL[i], refR[i] = ref.ProcessSample(left[i], right[i])
			}

			got.ProcessBlock(left, right)

			for i := range left {
				if !almostEqual(left[i], refL[i], eps) || !almostEqual(right[i], refR[i], eps) {
					t.Fatalf("sample %d mismatch: got (%.15f,%.15f), want (%.15f,%.15f)",
						i, left[i], right[i], refL[i], refR[i])
				}
			}
		})
	}
}
