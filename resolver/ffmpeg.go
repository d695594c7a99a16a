package resolver

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/pion/webrtc/v3/pkg/media/oggreader"
)

// FFmpegResolver transcodes any source ffmpeg can read into Ogg/Opus
// on stdout and frames the result into Opus packets. Greeting
// identifiers resolve to files under RingtoneDir; everything else must
// be a remote URL.
type FFmpegResolver struct {
	// RingtoneDir is the root of the greeting file tree:
	// <RingtoneDir>/<guild_name>/<user_name>.mp3
	RingtoneDir string
	// FFmpegPath overrides the ffmpeg binary, for tests. Empty means
	// "ffmpeg" from PATH.
	FFmpegPath string
}

func NewFFmpegResolver(ringtoneDir string) *FFmpegResolver {
	return &FFmpegResolver{RingtoneDir: ringtoneDir}
}

func (r *FFmpegResolver) Resolve(ctx context.Context, identifier string) (StreamHandle, error) {
	input, err := r.inputFor(identifier)
	if err != nil {
		return nil, err
	}
	return r.open(ctx, input)
}

// inputFor maps an identifier onto something ffmpeg can open.
func (r *FFmpegResolver) inputFor(identifier string) (string, error) {
	if guildName, userName, ok := ParseGreetingID(identifier); ok {
		path := GreetingPath(r.RingtoneDir, guildName, userName)
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("%w: no ringtone at %s", ErrNotFound, path)
		}
		return path, nil
	}
	if IsRemoteURL(identifier) {
		return identifier, nil
	}
	return "", fmt.Errorf("%w: unrecognized identifier %q", ErrUnsupportedFormat, identifier)
}

// GreetingPath is the on-disk location of a user's ringtone.
func GreetingPath(root, guildName, userName string) string {
	return fmt.Sprintf("%s/%s/%s.mp3", strings.TrimRight(root, "/"), guildName, userName)
}

// open starts ffmpeg and reads far enough to know the stream is good.
// The page duration is pinned to 20ms so each Ogg page carries one
// Opus frame, which is what the voice connection expects.
//
// ctx bounds stream establishment only. The process itself must
// outlive ctx because playback keeps reading from it long after the
// resolve deadline, so the command is not tied to ctx.
func (r *FFmpegResolver) open(ctx context.Context, input string) (StreamHandle, error) {
	bin := r.FFmpegPath
	if bin == "" {
		bin = "ffmpeg"
	}

	cmd := exec.Command(bin,
		"-hide_banner", "-loglevel", "error",
		"-i", input,
		"-vn",
		"-c:a", "libopus",
		"-ar", "48000",
		"-ac", "2",
		"-b:a", "96k",
		"-page_duration", "20000",
		"-f", "ogg",
		"pipe:1",
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("could not open ffmpeg stdout: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: could not start ffmpeg: %v", ErrUnsupportedFormat, err)
	}

	type headerResult struct {
		ogg *oggreader.OggReader
		err error
	}
	headerCh := make(chan headerResult, 1)
	go func() {
		ogg, _, err := oggreader.NewWith(stdout)
		headerCh <- headerResult{ogg: ogg, err: err}
	}()

	select {
	case res := <-headerCh:
		if res.err != nil {
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
			return nil, classify(ctx, transcodeError(input, &stderr, res.err))
		}
		return &ffmpegStream{cmd: cmd, ogg: res.ogg, stdout: stdout}, nil
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, fmt.Errorf("%w: %v", ErrNetworkFailure, ctx.Err())
	}
}

// transcodeError decides which taxonomy bucket an ffmpeg failure
// belongs to, using its stderr output.
func transcodeError(input string, stderr *bytes.Buffer, cause error) error {
	msg := stderr.String()
	switch {
	case strings.Contains(msg, "404") || strings.Contains(msg, "Connection") ||
		strings.Contains(msg, "Network") || strings.Contains(msg, "timed out"):
		return fmt.Errorf("%w: ffmpeg: %s", ErrNetworkFailure, strings.TrimSpace(msg))
	case strings.Contains(msg, "No such file"):
		return fmt.Errorf("%w: %s", ErrNotFound, input)
	default:
		return fmt.Errorf("%w: ffmpeg: %v: %s", ErrUnsupportedFormat, cause, strings.TrimSpace(msg))
	}
}

// ffmpegStream hands out one Ogg page payload per NextFrame call. With
// the pinned page duration each payload is a single 20ms Opus packet.
type ffmpegStream struct {
	cmd         *exec.Cmd
	ogg         *oggreader.OggReader
	stdout      io.ReadCloser
	tagsSkipped bool
}

func (s *ffmpegStream) NextFrame() ([]byte, error) {
	for {
		page, _, err := s.ogg.ParseNextPage()
		if err != nil {
			return nil, err
		}
		// The OpusTags metadata page is part of the container, not of
		// the audio stream.
		if !s.tagsSkipped && bytes.HasPrefix(page, []byte("OpusTags")) {
			s.tagsSkipped = true
			continue
		}
		return page, nil
	}
}

func (s *ffmpegStream) Close() error {
	_ = s.stdout.Close()
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	return s.cmd.Wait()
}
