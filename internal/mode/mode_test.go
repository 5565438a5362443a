package mode

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_AllModesHaveFormat(t *testing.T) {
	for _, m := range Modes() {
		p, err := Resolve(string(m))
		require.NoError(t, err, m)
		assert.NotEmpty(t, p.Format, m)
		assert.Equal(t, m, p.Mode)
		assert.Equal(t, DefaultOutputTemplate, p.OutputTemplate)
	}
}

func TestResolve_Table(t *testing.T) {
	tests := []struct {
		token string
		want  Preset
	}{
		{"mp3_320", Preset{
			Mode: MP3320, Label: "MP3 320kbps", Format: "bestaudio/best",
			PostProcess:    &PostProcess{Codec: "mp3", Quality: "320"},
			OutputTemplate: DefaultOutputTemplate, Kind: KindAudio,
		}},
		{"m4a", Preset{
			Mode: M4A, Label: "M4A", Format: "bestaudio[ext=m4a]/bestaudio",
			OutputTemplate: DefaultOutputTemplate, Kind: KindAudio,
		}},
		{"mp4", Preset{
			Mode: MP4, Label: "MP4 (best)", Format: "bestvideo[ext=mp4]+bestaudio[ext=m4a]/mp4",
			MergeFormat: "mp4", OutputTemplate: DefaultOutputTemplate, Kind: KindVideo,
		}},
		{"720p", Preset{
			Mode: P720, Label: "Up to 720p", Format: "bestvideo[height<=720]+bestaudio/best[height<=720]",
			MergeFormat: "mp4", OutputTemplate: DefaultOutputTemplate, Kind: KindVideo,
		}},
		{" 4k ", Preset{
			Mode: UHD, Label: "Up to 4K", Format: "bestvideo[height<=2160]+bestaudio/best",
			OutputTemplate: DefaultOutputTemplate, Kind: KindVideo,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, err := Resolve(tt.token)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Resolve(%q) mismatch (-want +got):\n%s", tt.token, diff)
			}
		})
	}
}

func TestResolve_Invalid(t *testing.T) {
	for _, token := range []string{"", "MP3_320", "flac", "480p", "mp3 320"} {
		_, err := Resolve(token)
		require.Error(t, err, token)
		require.True(t, errors.Is(err, ErrInvalidMode), token)
	}
}

func TestResolve_ReturnsCopy(t *testing.T) {
	p, err := Resolve("mp3_320")
	require.NoError(t, err)
	p.PostProcess.Codec = "flac"

	again, err := Resolve("mp3_320")
	require.NoError(t, err)
	require.Equal(t, "mp3", again.PostProcess.Codec)
}

func TestModes_Order(t *testing.T) {
	want := []Mode{MP3320, M4A, BestAudio, MP4, UHD, P360, P720, P1080}
	if diff := cmp.Diff(want, Modes()); diff != "" {
		t.Errorf("Modes() mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, "mp3_320, m4a, bestaudio, mp4, 4k, 360p, 720p, 1080p", Tokens(", "))
	require.Len(t, All(), len(want))
}

func TestKind_String(t *testing.T) {
	require.Equal(t, "audio", KindAudio.String())
	require.Equal(t, "video", KindVideo.String())
}
