package trackops

import (
	"context"
	"fmt"

	"clipforge/internal/fileutil"
	"clipforge/internal/logging"
	"clipforge/internal/media"
	"clipforge/internal/services"
)

// audioEncoder maps the codec enum to the encoder implementation name.
func audioEncoder(codec media.AudioCodec) (string, []string, error) {
	switch codec {
	case media.AudioAAC:
		return "aac", []string{"-aac_coder", "twoloop"}, nil
	case media.AudioOpus:
		return "libopus", []string{"-application", "audio"}, nil
	case media.AudioMP3:
		return "libmp3lame", nil, nil
	case media.AudioFLAC:
		return "flac", nil, nil
	case media.AudioVorbis:
		return "libvorbis", nil, nil
	case media.AudioAC3:
		return "ac3", nil, nil
	}
	return "", nil, services.Wrap(services.ErrValidation, "trackops", "audio-encode", fmt.Sprintf("no encoder for codec %q", codec), nil)
}

// ExtractAudio writes the input's audio to a standalone file in the given
// codec, dropping video. It doubles as pure audio conversion when the
// input is already audio-only.
func (e *Engine) ExtractAudio(ctx context.Context, input, output string, codec media.AudioCodec, bitrateKbps int) error {
	if err := requireInput(input, "extract-audio"); err != nil {
		return err
	}
	if bitrateKbps <= 0 {
		bitrateKbps = 192
	}
	encoder, extra, err := audioEncoder(codec)
	if err != nil {
		return err
	}

	args := []string{
		"-v", "error", "-y",
		"-i", input,
		"-vn",
		"-c:a", encoder,
		"-b:a", fmt.Sprintf("%dk", bitrateKbps),
	}
	args = append(args, extra...)
	args = append(args, output)

	e.logger.Info("extracting audio",
		logging.String(logging.FieldInput, input),
		logging.String("codec", string(codec)),
		logging.Int("bitrate_kbps", bitrateKbps),
	)
	if err := e.runner.Run(ctx, args, e.encodeTimeout); err != nil {
		fileutil.RemovePartial(output)
		return err
	}
	return requireOutput(output, "extract-audio")
}

// MergeAudio replaces the audio of video with the first audio stream of
// audioFile, re-encoding the audio to AAC and cutting at the shorter of
// the two inputs.
func (e *Engine) MergeAudio(ctx context.Context, video, audioFile, output string) error {
	if err := requireInput(video, "merge-audio"); err != nil {
		return err
	}
	if !fileutil.NonEmpty(audioFile) {
		return services.Wrap(services.ErrValidation, "trackops", "merge-audio", fmt.Sprintf("audio file not readable: %s", audioFile), nil)
	}

	args := []string{
		"-v", "error", "-y",
		"-i", video,
		"-i", audioFile,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
	}
	args = append(args, faststartArgs(output)...)
	args = append(args, output)

	e.logger.Info("merging audio",
		logging.String(logging.FieldInput, video),
		logging.String("audio", audioFile),
	)
	if err := e.runner.Run(ctx, args, e.encodeTimeout); err != nil {
		fileutil.RemovePartial(output)
		return err
	}
	return requireOutput(output, "merge-audio")
}

// SelectAudio keeps the video and only the chosen audio track, copying both.
func (e *Engine) SelectAudio(ctx context.Context, input, output string, sel Selector, makeDefault bool) error {
	if err := requireInput(input, "select-audio"); err != nil {
		return err
	}
	info, err := e.prober.Describe(ctx, input)
	if err != nil {
		return err
	}
	track, err := e.findAudio(info, sel)
	if err != nil {
		return err
	}

	disposition := "0"
	if makeDefault {
		disposition = "default"
	}
	args := []string{
		"-v", "error", "-y",
		"-i", input,
		"-map", "0:v",
		"-map", fmt.Sprintf("0:%d", track.StreamIndex),
		"-c", "copy",
		"-disposition:a:0", disposition,
	}
	args = append(args, faststartArgs(output)...)
	args = append(args, output)

	e.logger.Info("selecting audio",
		logging.String(logging.FieldInput, input),
		logging.Int("stream_index", track.StreamIndex),
	)
	if err := e.runner.Run(ctx, args, e.copyTimeout); err != nil {
		fileutil.RemovePartial(output)
		return err
	}
	return requireOutput(output, "select-audio")
}

// StripAudio removes every audio stream, keeping video only.
func (e *Engine) StripAudio(ctx context.Context, input, output string) error {
	if err := requireInput(input, "strip-audio"); err != nil {
		return err
	}
	args := []string{
		"-v", "error", "-y",
		"-i", input,
		"-map", "0:v",
		"-map", "-0:a",
		"-c:v", "copy",
	}
	args = append(args, faststartArgs(output)...)
	args = append(args, output)

	if err := e.runner.Run(ctx, args, e.copyTimeout); err != nil {
		fileutil.RemovePartial(output)
		return err
	}
	return requireOutput(output, "strip-audio")
}
