package convert

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/filewarp/filewarp/internal/format"
)

func TestMediaAdapterRejectsNonMediaTarget(t *testing.T) {
	a := NewMediaAdapter(format.NewCatalog(), "ffmpeg", "ffprobe", nil)
	_, err := a.Convert(context.Background(), "in.mp4", "out.pdf", "pdf", format.Options{})
	if err == nil {
		t.Fatal("document target accepted by media adapter")
	}
	if KindOf(err) != KindUnsupportedFormat {
		t.Errorf("kind = %s", KindOf(err))
	}
}

func TestMediaAdapterCodecTables(t *testing.T) {
	for target, want := range map[string]string{
		"mp3": "libmp3lame", "aac": "aac", "m4a": "aac", "ogg": "libvorbis", "flac": "flac",
	} {
		if got := audioCodecs[target]; got != want {
			t.Errorf("audioCodecs[%s] = %s, want %s", target, got, want)
		}
	}
	if videoCodecs["webm"] != [2]string{"libvpx-vp9", "libvorbis"} {
		t.Errorf("videoCodecs[webm] = %v", videoCodecs["webm"])
	}
	// Unrecognized video targets fall back to the generic pair.
	if defaultVideoCodecs != [2]string{"libx264", "aac"} {
		t.Errorf("defaultVideoCodecs = %v", defaultVideoCodecs)
	}
}

func TestReadProgressEmitsPercentages(t *testing.T) {
	var events []float64
	a := NewMediaAdapter(format.NewCatalog(), "ffmpeg", "ffprobe", func(stage string, pct float64, detail string) {
		if stage == "progress" {
			events = append(events, pct)
		}
	})

	stream := strings.Join([]string{
		"frame=10",
		"out_time_us=5000000",
		"progress=continue",
		"out_time_us=10000000",
		"progress=end",
	}, "\n")
	a.readProgress(strings.NewReader(stream), 10*time.Second)

	if len(events) != 2 {
		t.Fatalf("got %d progress events, want 2", len(events))
	}
	if events[0] != 50 || events[1] != 100 {
		t.Errorf("events = %v, want [50 100]", events)
	}
}

func TestReadProgressUnknownDurationStaysSilent(t *testing.T) {
	called := false
	a := NewMediaAdapter(format.NewCatalog(), "ffmpeg", "ffprobe", func(stage string, pct float64, detail string) {
		if stage == "progress" {
			called = true
		}
	})
	a.readProgress(strings.NewReader("out_time_us=5000000\n"), 0)
	if called {
		t.Error("progress emitted without a known duration")
	}
}
