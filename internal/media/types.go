package media

import (
	"path/filepath"
	"strings"
)

// Container identifies a media container by its canonical file extension.
type Container string

const (
	ContainerMP4  Container = "mp4"
	ContainerMKV  Container = "mkv"
	ContainerAVI  Container = "avi"
	ContainerMOV  Container = "mov"
	ContainerWMV  Container = "wmv"
	ContainerFLV  Container = "flv"
	ContainerWEBM Container = "webm"
	ContainerMPEG Container = "mpeg"
	ContainerTS   Container = "ts"
	ContainerM2TS Container = "m2ts"
	ContainerM4V  Container = "m4v"
	ContainerOGV  Container = "ogv"
	ContainerMP3  Container = "mp3"
	ContainerAAC  Container = "aac"
	ContainerOGG  Container = "ogg"
)

var knownContainers = map[string]Container{
	"mp4": ContainerMP4, "mkv": ContainerMKV, "avi": ContainerAVI,
	"mov": ContainerMOV, "wmv": ContainerWMV, "flv": ContainerFLV,
	"webm": ContainerWEBM, "mpeg": ContainerMPEG, "mpg": ContainerMPEG,
	"ts": ContainerTS, "m2ts": ContainerM2TS, "m4v": ContainerM4V,
	"ogv": ContainerOGV, "mp3": ContainerMP3, "aac": ContainerAAC,
	"ogg": ContainerOGG,
}

// ContainerFromPath derives the container from a file extension. Unknown
// extensions default to MKV, the container that accepts any stream.
func ContainerFromPath(path string) Container {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if c, ok := knownContainers[ext]; ok {
		return c
	}
	return ContainerMKV
}

// Extension returns the container's file extension without a dot.
func (c Container) Extension() string {
	return string(c)
}

// SupportsFaststart reports whether the container benefits from
// -movflags +faststart.
func (c Container) SupportsFaststart() bool {
	return c == ContainerMP4 || c == ContainerMOV || c == ContainerM4V
}

// AudioCodec is the closed set of audio codecs the engine recognizes.
type AudioCodec string

const (
	AudioAAC    AudioCodec = "aac"
	AudioAC3    AudioCodec = "ac3"
	AudioEAC3   AudioCodec = "eac3"
	AudioDTS    AudioCodec = "dts"
	AudioTrueHD AudioCodec = "truehd"
	AudioMP3    AudioCodec = "mp3"
	AudioFLAC   AudioCodec = "flac"
	AudioPCM    AudioCodec = "pcm"
	AudioOpus   AudioCodec = "opus"
	AudioVorbis AudioCodec = "vorbis"
)

// ClassifyAudioCodec maps an ffprobe codec_name to the closed audio codec
// set. Unrecognized names fall back to AAC; this is a documented
// approximation, not an error.
func ClassifyAudioCodec(codecName string) AudioCodec {
	switch strings.ToLower(strings.TrimSpace(codecName)) {
	case "aac":
		return AudioAAC
	case "ac3":
		return AudioAC3
	case "eac3":
		return AudioEAC3
	case "dts", "dca":
		return AudioDTS
	case "truehd":
		return AudioTrueHD
	case "mp3":
		return AudioMP3
	case "flac":
		return AudioFLAC
	case "pcm_s16le", "pcm_s24le", "pcm_s32le", "pcm_f32le":
		return AudioPCM
	case "opus":
		return AudioOpus
	case "vorbis":
		return AudioVorbis
	default:
		return AudioAAC
	}
}

// Extension returns the sidecar file extension for an extracted track.
func (c AudioCodec) Extension() string {
	return string(c)
}

// SubtitleCodec is the closed set of subtitle codecs the engine recognizes.
type SubtitleCodec string

const (
	SubtitleSRT     SubtitleCodec = "srt"
	SubtitleASS     SubtitleCodec = "ass"
	SubtitleSSA     SubtitleCodec = "ssa"
	SubtitleMovText SubtitleCodec = "mov_text"
	SubtitleVobSub  SubtitleCodec = "vobsub"
	SubtitlePGS     SubtitleCodec = "pgs"
	SubtitleWebVTT  SubtitleCodec = "webvtt"
	SubtitleSubRip  SubtitleCodec = "subrip"
)

// ClassifySubtitleCodec maps an ffprobe codec_name to the closed subtitle
// codec set. Unrecognized names fall back to SRT, treating the stream as
// text-based; this is a documented approximation, not an error.
func ClassifySubtitleCodec(codecName string) SubtitleCodec {
	switch strings.ToLower(strings.TrimSpace(codecName)) {
	case "srt":
		return SubtitleSRT
	case "ass":
		return SubtitleASS
	case "ssa":
		return SubtitleSSA
	case "mov_text", "tx3g":
		return SubtitleMovText
	case "dvd_subtitle", "vobsub":
		return SubtitleVobSub
	case "hdmv_pgs_subtitle", "pgs":
		return SubtitlePGS
	case "webvtt", "vtt":
		return SubtitleWebVTT
	case "subrip":
		return SubtitleSubRip
	default:
		return SubtitleSRT
	}
}

// ImageBased reports whether the codec carries bitmap subtitles, which can
// only be stream-copied, never transcoded to a text format.
func (c SubtitleCodec) ImageBased() bool {
	return c == SubtitleVobSub || c == SubtitlePGS
}

// Extension returns the sidecar file extension for an extracted track.
func (c SubtitleCodec) Extension() string {
	switch c {
	case SubtitleSubRip:
		return "srt"
	case SubtitleVobSub:
		return "sub"
	case SubtitlePGS:
		return "sup"
	default:
		return string(c)
	}
}

// AudioTrack describes one audio stream.
type AudioTrack struct {
	StreamIndex int // ffprobe global stream index
	Language    string
	Codec       AudioCodec
	Channels    int
	Default     bool
}

// SubtitleTrack describes one subtitle stream.
type SubtitleTrack struct {
	StreamIndex int // ffprobe global stream index
	Language    string
	Codec       SubtitleCodec
	Default     bool
	Forced      bool
	// AttachmentIndex is the global stream index of the container
	// attachment this track was extracted from, or -1 when the track
	// lives in the top-level stream list.
	AttachmentIndex int
}

// AttachmentRef describes a raw container attachment.
type AttachmentRef struct {
	StreamIndex int
	Filename    string
	MimeType    string
}

// Info is the canonical description of a media file, built fresh on every
// probe call.
type Info struct {
	Path            string
	SizeBytes       int64
	DurationSeconds float64
	Container       Container
	Width           int
	Height          int
	BitrateKbps     int
	AudioTracks     []AudioTrack
	SubtitleTracks  []SubtitleTrack
	Attachments     []AttachmentRef
}

// DefaultAudio returns the default audio track, or the first one, or nil.
func (i *Info) DefaultAudio() *AudioTrack {
	for idx := range i.AudioTracks {
		if i.AudioTracks[idx].Default {
			return &i.AudioTracks[idx]
		}
	}
	if len(i.AudioTracks) > 0 {
		return &i.AudioTracks[0]
	}
	return nil
}

// HasVideo reports whether a video stream was detected.
func (i *Info) HasVideo() bool {
	return i.Width > 0 && i.Height > 0
}
