package engine

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// Device names accepted by --device.
const (
	DeviceAuto = "auto"
	DeviceCPU  = "cpu"
	DeviceCUDA = "cuda"
)

var (
	cudaOnce      sync.Once
	cudaAvailable bool
)

// ResolveDevice maps auto to cuda when an NVIDIA GPU answers, cpu
// otherwise. Explicit cpu and cuda pass through untouched, so a user
// can force cuda even when the probe fails.
func ResolveDevice(requested string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(requested)) {
	case "", DeviceAuto:
		if HasCUDA() {
			return DeviceCUDA, nil
		}
		return DeviceCPU, nil
	case DeviceCPU:
		return DeviceCPU, nil
	case DeviceCUDA:
		return DeviceCUDA, nil
	default:
		return "", fmt.Errorf("unknown device %q (use auto, cpu or cuda)", requested)
	}
}

// HasCUDA reports whether nvidia-smi lists at least one GPU. The probe
// runs once per process.
func HasCUDA() bool {
	cudaOnce.Do(func() {
		path, err := exec.LookPath("nvidia-smi")
		if err != nil {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		out, err := exec.CommandContext(ctx, path, "-L").Output()
		if err != nil {
			return
		}
		cudaAvailable = strings.Contains(string(out), "GPU")
	})
	return cudaAvailable
}
