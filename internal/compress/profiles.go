// Package compress produces a matrix of renditions from one input: every
// predefined resolution at or below the source height, crossed with the
// requested container formats, encoded concurrently.
package compress

import (
	"fmt"
	"sort"
)

// ResolutionProfile describes one rung of the resolution ladder.
type ResolutionProfile struct {
	Name            string
	Height          int
	MinBitrateKbps  int
	MaxBitrateKbps  int
	AudioBitrate    string
	MinSizeMB       int
	CRF             int
	TwoPassEligible bool
}

// AvgBitrateKbps is the target bitrate, the midpoint of the window.
func (p ResolutionProfile) AvgBitrateKbps() int {
	return (p.MinBitrateKbps + p.MaxBitrateKbps) / 2
}

// FormatProfile describes one output container and its codec family.
type FormatProfile struct {
	Name             string
	VideoCodec       string
	AudioCodec       string
	Extension        string
	Preset           string
	Tune             string
	CodecProfile     string
	Speed            int
	ContainerOptions []string
}

var resolutionProfiles = []ResolutionProfile{
	{Name: "144p", Height: 144, MinBitrateKbps: 150, MaxBitrateKbps: 300, AudioBitrate: "64k", MinSizeMB: 5, CRF: 32},
	{Name: "240p", Height: 240, MinBitrateKbps: 300, MaxBitrateKbps: 600, AudioBitrate: "64k", MinSizeMB: 10, CRF: 28},
	{Name: "360p", Height: 360, MinBitrateKbps: 600, MaxBitrateKbps: 1000, AudioBitrate: "96k", MinSizeMB: 20, CRF: 26},
	{Name: "480p", Height: 480, MinBitrateKbps: 1000, MaxBitrateKbps: 1500, AudioBitrate: "96k", MinSizeMB: 30, CRF: 24},
	{Name: "720p", Height: 720, MinBitrateKbps: 1500, MaxBitrateKbps: 3000, AudioBitrate: "128k", MinSizeMB: 50, CRF: 22, TwoPassEligible: true},
	{Name: "1080p", Height: 1080, MinBitrateKbps: 3000, MaxBitrateKbps: 6000, AudioBitrate: "128k", MinSizeMB: 80, CRF: 20, TwoPassEligible: true},
}

var formatProfiles = map[string]FormatProfile{
	"mp4": {
		Name:             "mp4",
		VideoCodec:       "libx264",
		AudioCodec:       "aac",
		Extension:        "mp4",
		Preset:           "fast",
		Tune:             "fastdecode",
		CodecProfile:     "main",
		ContainerOptions: []string{"-movflags", "+faststart"},
	},
	"hevc": {
		Name:             "hevc",
		VideoCodec:       "libx265",
		AudioCodec:       "aac",
		Extension:        "mp4",
		Preset:           "fast",
		Tune:             "fastdecode",
		CodecProfile:     "main",
		ContainerOptions: []string{"-tag:v", "hvc1"},
	},
	"webm": {
		Name:       "webm",
		VideoCodec: "libvpx-vp9",
		AudioCodec: "libopus",
		Extension:  "webm",
		Speed:      4,
	},
}

// FormatNames lists the supported format profile names, sorted.
func FormatNames() []string {
	names := make([]string, 0, len(formatProfiles))
	for name := range formatProfiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Ladder returns the resolution rungs for a source of the given height:
// every predefined profile at or below it, ascending. With keepOriginal
// set, a source height between rungs gets its own synthetic top rung so
// the original resolution survives.
func Ladder(sourceHeight int, keepOriginal bool) []ResolutionProfile {
	var ladder []ResolutionProfile
	exact := false
	for _, p := range resolutionProfiles {
		if p.Height <= sourceHeight {
			ladder = append(ladder, p)
			if p.Height == sourceHeight {
				exact = true
			}
		}
	}
	if keepOriginal && !exact && sourceHeight > 0 {
		top := resolutionProfiles[len(resolutionProfiles)-1]
		if len(ladder) > 0 {
			top = ladder[len(ladder)-1]
		}
		top.Name = fmt.Sprintf("%dp", sourceHeight)
		top.Height = sourceHeight
		top.TwoPassEligible = sourceHeight >= 720
		ladder = append(ladder, top)
	}
	return ladder
}
