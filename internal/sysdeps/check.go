// Package sysdeps probes the external tools the converters shell out to.
package sysdeps

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"time"

	"github.com/filewarp/filewarp/internal/config"
)

// Status is the probe result for one external tool.
type Status struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
	Optional  bool   `json:"optional"`
	Detail    string `json:"detail,omitempty"`
}

type probe struct {
	name     string
	path     string
	args     []string
	optional bool
}

const probeTimeout = 5 * time.Second

func probes(cfg *config.Config) []probe {
	return []probe{
		{name: "FFmpeg", path: cfg.FFmpegPath, args: []string{"-version"}},
		{name: "FFprobe", path: cfg.FFprobePath, args: []string{"-version"}},
		{name: "LibreOffice", path: cfg.SofficePath, args: []string{"--version"}},
		{name: "ImageMagick", path: cfg.MagickPath, args: []string{"-version"}, optional: true},
		{name: "unoconv", path: cfg.UnoconvPath, args: []string{"--version"}, optional: true},
	}
}

// Check probes every external tool with a short version query. The result
// is computed fresh on every call; nothing is cached.
func Check(ctx context.Context, cfg *config.Config) []Status {
	out := make([]Status, 0, 5)
	for _, p := range probes(cfg) {
		pctx, cancel := context.WithTimeout(ctx, probeTimeout)
		err := exec.CommandContext(pctx, p.path, p.args...).Run()
		cancel()
		st := Status{Name: p.name, Available: err == nil, Optional: p.optional}
		if err != nil {
			st.Detail = err.Error()
		}
		out = append(out, st)
	}
	return out
}

// Gate runs Check and fails when a mandatory tool is missing, so startup
// aborts before the service accepts requests it cannot fulfill.
func Gate(ctx context.Context, cfg *config.Config) error {
	for _, st := range Check(ctx, cfg) {
		if st.Available {
			log.Printf("dependency %s: available", st.Name)
			continue
		}
		if st.Optional {
			log.Printf("dependency %s: not available (optional): %s", st.Name, st.Detail)
			continue
		}
		return fmt.Errorf("required dependency %s is not available: %s", st.Name, st.Detail)
	}
	return nil
}
