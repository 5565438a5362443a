// Package mode maps the user-facing mode tokens accepted by /download to the
// yt-dlp presets that implement them.
package mode

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidMode is returned by Resolve for tokens outside the closed set.
var ErrInvalidMode = errors.New("invalid mode")

// Mode is a token selecting a target format and quality preset.
type Mode string

const (
	MP3320    Mode = "mp3_320"
	M4A       Mode = "m4a"
	BestAudio Mode = "bestaudio"
	MP4       Mode = "mp4"
	UHD       Mode = "4k"
	P360      Mode = "360p"
	P720      Mode = "720p"
	P1080     Mode = "1080p"
)

// Kind decides how a finished artifact is attached to the reply.
type Kind int

const (
	KindAudio Kind = iota
	KindVideo
)

func (k Kind) String() string {
	switch k {
	case KindAudio:
		return "audio"
	case KindVideo:
		return "video"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// DefaultOutputTemplate names files after the remote title and the negotiated
// extension.
const DefaultOutputTemplate = "%(title)s.%(ext)s"

// PostProcess is an audio re-encode directive.
type PostProcess struct {
	Codec   string // target codec and file extension, e.g. "mp3"
	Quality string // bitrate in kbps, e.g. "320"
}

// Preset is the download configuration derived from a Mode.
type Preset struct {
	Mode           Mode
	Label          string
	Format         string
	PostProcess    *PostProcess
	MergeFormat    string
	OutputTemplate string
	Kind           Kind
}

func heightCapped(h int) string {
	return fmt.Sprintf("bestvideo[height<=%d]+bestaudio/best[height<=%d]", h, h)
}

// presets is ordered the way modes are listed to users.
var presets = []Preset{
	{
		Mode:        MP3320,
		Label:       "MP3 320kbps",
		Format:      "bestaudio/best",
		PostProcess: &PostProcess{Codec: "mp3", Quality: "320"},
		Kind:        KindAudio,
	},
	{Mode: M4A, Label: "M4A", Format: "bestaudio[ext=m4a]/bestaudio", Kind: KindAudio},
	{Mode: BestAudio, Label: "Best available audio", Format: "bestaudio", Kind: KindAudio},
	{
		Mode:        MP4,
		Label:       "MP4 (best)",
		Format:      "bestvideo[ext=mp4]+bestaudio[ext=m4a]/mp4",
		MergeFormat: "mp4",
		Kind:        KindVideo,
	},
	{Mode: UHD, Label: "Up to 4K", Format: "bestvideo[height<=2160]+bestaudio/best", Kind: KindVideo},
	{Mode: P360, Label: "Up to 360p", Format: heightCapped(360), MergeFormat: "mp4", Kind: KindVideo},
	{Mode: P720, Label: "Up to 720p", Format: heightCapped(720), MergeFormat: "mp4", Kind: KindVideo},
	{Mode: P1080, Label: "Up to 1080p", Format: heightCapped(1080), MergeFormat: "mp4", Kind: KindVideo},
}

var byMode = func() map[Mode]int {
	m := make(map[Mode]int, len(presets))
	for i := range presets {
		if presets[i].OutputTemplate == "" {
			presets[i].OutputTemplate = DefaultOutputTemplate
		}
		m[presets[i].Mode] = i
	}
	return m
}()

// Resolve returns the preset for token. Unknown tokens yield an error wrapping
// ErrInvalidMode.
func Resolve(token string) (Preset, error) {
	i, ok := byMode[Mode(strings.TrimSpace(token))]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %q", ErrInvalidMode, token)
	}
	p := presets[i]
	if p.PostProcess != nil {
		pp := *p.PostProcess
		p.PostProcess = &pp
	}
	return p, nil
}

// All returns every recognized preset in display order.
func All() []Preset {
	out := make([]Preset, 0, len(presets))
	for _, m := range Modes() {
		p, _ := Resolve(string(m))
		out = append(out, p)
	}
	return out
}

// Modes returns the recognized tokens in display order.
func Modes() []Mode {
	out := make([]Mode, len(presets))
	for i, p := range presets {
		out[i] = p.Mode
	}
	return out
}

// Tokens joins the recognized tokens with sep.
func Tokens(sep string) string {
	ms := Modes()
	s := make([]string, len(ms))
	for i, m := range ms {
		s[i] = string(m)
	}
	return strings.Join(s, sep)
}
