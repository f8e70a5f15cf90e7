package engine

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ValidationResult is one row of an environment diagnosis.
type ValidationResult struct {
	Name      string
	Available bool
	Optional  bool
	Err       error
	Guidance  string
	Details   map[string]string
}

// Install guidance shown by doctor when a check fails.
const (
	xttsGuidance = "Install Coqui TTS with: pip install TTS\n" +
		"The first synthesis downloads the XTTS-v2 model (about 2 GB)."

	barkGuidance = "Install Bark with: pip install git+https://github.com/suno-ai/bark.git"

	gpuGuidance = "No NVIDIA GPU detected. Synthesis falls back to CPU, " +
		"which is an order of magnitude slower. Install the NVIDIA driver " +
		"and a CUDA-enabled torch build to use the GPU."
)

// InstallGuidance returns the install hint for a named engine.
func InstallGuidance(name string) string {
	switch name {
	case NameXTTS:
		return xttsGuidance
	case NameBark:
		return barkGuidance
	}
	return ""
}

// Preflight confirms the engine's executable is reachable. Unlike
// Validate it spawns nothing, so it is cheap enough to run before
// every synthesis.
func Preflight(name string, o Overrides) error {
	bin := o.TTSBin
	if name == NameBark {
		bin = o.Python
	}
	if _, err := exec.LookPath(bin); err != nil {
		return fmt.Errorf("%w: %s not found in PATH", ErrEngineUnavailable, bin)
	}
	return nil
}

// CheckXTTS diagnoses the Coqui tts CLI.
func CheckXTTS(o Overrides) ValidationResult {
	res := ValidationResult{Name: "xtts (Coqui TTS)", Details: map[string]string{}}

	eng, err := NewXTTS(Config{Device: DeviceCPU, Env: o})
	if err != nil {
		res.Err = err
		res.Guidance = xttsGuidance
		return res
	}
	if err := eng.Validate(); err != nil {
		res.Err = err
		res.Guidance = xttsGuidance
		return res
	}

	res.Available = true
	if v := pythonVersionOf(o.Python, "TTS"); v != "" {
		res.Details["version"] = v
	}
	return res
}

// CheckBark diagnoses the bark module.
func CheckBark(o Overrides) ValidationResult {
	res := ValidationResult{Name: "bark (Suno)", Details: map[string]string{}}

	eng, err := NewBark(Config{Env: o})
	if err != nil {
		res.Err = err
		res.Guidance = barkGuidance
		return res
	}
	if err := eng.Validate(); err != nil {
		res.Err = err
		res.Guidance = barkGuidance
		return res
	}

	res.Available = true
	return res
}

// CheckGPU diagnoses CUDA availability. The GPU is optional: both
// engines run on CPU, just slowly.
func CheckGPU() ValidationResult {
	res := ValidationResult{Name: "CUDA GPU", Optional: true, Details: map[string]string{}}
	if HasCUDA() {
		res.Available = true
		if name := gpuName(); name != "" {
			res.Details["gpu"] = name
		}
		return res
	}
	res.Guidance = gpuGuidance
	return res
}

// pythonVersionOf asks the interpreter for a module's version.
func pythonVersionOf(python, module string) string {
	path, err := exec.LookPath(python)
	if err != nil {
		return ""
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, path, "-c",
		"import "+module+"; print("+module+".__version__)").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

func gpuName() string {
	path, err := exec.LookPath("nvidia-smi")
	if err != nil {
		return ""
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, path,
		"--query-gpu=name", "--format=csv,noheader").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(strings.SplitN(string(out), "\n", 2)[0])
}
