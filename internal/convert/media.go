package convert

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/filewarp/filewarp/internal/format"
)

// audioCodecs maps audio target formats to ffmpeg encoder names. Formats
// not listed keep ffmpeg's default for the container.
var audioCodecs = map[string]string{
	"mp3":  "libmp3lame",
	"aac":  "aac",
	"m4a":  "aac",
	"ogg":  "libvorbis",
	"flac": "flac",
}

// videoCodecs maps video target formats to a video/audio encoder pair.
var videoCodecs = map[string][2]string{
	"mp4":  {"libx264", "aac"},
	"webm": {"libvpx-vp9", "libvorbis"},
	"mov":  {"libx264", "aac"},
}

// defaultVideoCodecs is the pair used for video targets without an entry.
var defaultVideoCodecs = [2]string{"libx264", "aac"}

// MediaAdapter converts audio and video through the ffmpeg binary.
// Progress is parsed from ffmpeg's machine-readable progress stream and
// forwarded to an optional sink; only the process exit decides success.
type MediaAdapter struct {
	catalog     *format.Catalog
	ffmpegPath  string
	ffprobePath string
	progress    ProgressFunc
}

func NewMediaAdapter(catalog *format.Catalog, ffmpegPath, ffprobePath string, progress ProgressFunc) *MediaAdapter {
	return &MediaAdapter{catalog: catalog, ffmpegPath: ffmpegPath, ffprobePath: ffprobePath, progress: progress}
}

func (a *MediaAdapter) Name() string { return "media" }

func (a *MediaAdapter) Convert(ctx context.Context, inputPath, outputPath, target string, opts format.Options) (*Outcome, error) {
	start := time.Now()
	target = format.Normalize(target)

	cat, ok := a.catalog.CategoryOf(target)
	if !ok || (cat != format.Audio && cat != format.Video) {
		return nil, Errf(KindUnsupportedFormat, "Unsupported media format: %s", target)
	}
	merged := a.catalog.DefaultOptions(cat, target).Merge(opts)

	args := []string{"-hide_banner", "-nostdin", "-y", "-i", inputPath, "-progress", "pipe:1"}
	if cat == format.Audio {
		// Strip any video stream for audio targets.
		args = append(args, "-vn")
		if merged.AudioBitrate != "" {
			args = append(args, "-b:a", merged.AudioBitrate)
		}
		if merged.AudioChannels > 0 {
			args = append(args, "-ac", strconv.Itoa(merged.AudioChannels))
		}
		if codec, ok := audioCodecs[target]; ok {
			args = append(args, "-c:a", codec)
		}
	} else {
		if merged.VideoBitrate != "" {
			args = append(args, "-b:v", merged.VideoBitrate)
		}
		if merged.AudioBitrate != "" {
			args = append(args, "-b:a", merged.AudioBitrate)
		}
		if merged.Preset != "" {
			args = append(args, "-preset", merged.Preset)
		}
		pair, ok := videoCodecs[target]
		if !ok {
			pair = defaultVideoCodecs
		}
		args = append(args, "-c:v", pair[0], "-c:a", pair[1])
	}
	args = append(args, outputPath)

	duration := a.probeDuration(ctx, inputPath)
	a.emit("start", 0, fmt.Sprintf("%s %s", a.ffmpegPath, strings.Join(args, " ")))

	cmd := exec.CommandContext(ctx, a.ffmpegPath, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &Error{Kind: KindMediaFailed, Reason: "Media conversion failed", Detail: err.Error()}
	}
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, &Error{Kind: KindMediaFailed, Reason: "Media conversion failed", Detail: err.Error()}
	}

	go a.readProgress(stdout, duration)

	if err := cmd.Wait(); err != nil {
		_ = os.Remove(outputPath)
		if ctx.Err() != nil {
			a.emit("error", 0, ctx.Err().Error())
			return nil, ctx.Err()
		}
		a.emit("error", 0, err.Error())
		return nil, &Error{
			Kind:   KindMediaFailed,
			Reason: "Media conversion failed",
			Detail: strings.TrimSpace(stderr.String()),
		}
	}

	fi, err := os.Stat(outputPath)
	if err != nil {
		return nil, &Error{Kind: KindMediaFailed, Reason: "Media conversion produced no output", Detail: err.Error()}
	}
	a.emit("done", 100, "")

	return &Outcome{
		OutputPath: outputPath,
		OutputSize: fi.Size(),
		Elapsed:    time.Since(start),
		Options:    merged,
	}, nil
}

// readProgress consumes ffmpeg's key=value progress stream and emits
// percentage events when the input duration is known.
func (a *MediaAdapter) readProgress(r io.Reader, duration time.Duration) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		k, v, ok := strings.Cut(line, "=")
		if !ok || k != "out_time_us" {
			continue
		}
		us, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil || duration <= 0 {
			continue
		}
		pct := float64(time.Duration(us)*time.Microsecond) / float64(duration) * 100
		if pct > 100 {
			pct = 100
		}
		a.emit("progress", pct, "")
	}
}

// probeDuration asks ffprobe for the input duration in seconds. Zero means
// unknown; progress events are simply skipped then.
func (a *MediaAdapter) probeDuration(ctx context.Context, inputPath string) time.Duration {
	cmd := exec.CommandContext(ctx, a.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		inputPath,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}

func (a *MediaAdapter) emit(stage string, percent float64, detail string) {
	if a.progress != nil {
		a.progress(stage, percent, detail)
	}
}
