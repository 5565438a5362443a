package bot

import (
	"mime"
	"strings"

	"github.com/gosimple/slug"
	tele "gopkg.in/telebot.v3"

	"media-bot/internal/download"
	"media-bot/internal/mode"
)

var mimeTypes = map[string]string{
	"mp3":  "audio/mpeg",
	"m4a":  "audio/mp4",
	"opus": "audio/ogg",
	"ogg":  "audio/ogg",
	"flac": "audio/flac",
	"wav":  "audio/wav",
	"mp4":  "video/mp4",
	"webm": "video/webm",
	"mkv":  "video/x-matroska",
}

func mimeType(ext string) string {
	ext = strings.ToLower(ext)
	if t, ok := mimeTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension("." + ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

// title is the file name without its extension, as written by the extractor.
func title(a *download.Artifact) string {
	name := a.Name()
	if ext := a.Ext(); ext != "" {
		name = strings.TrimSuffix(name, "."+ext)
	}
	return name
}

// uploadName is an ASCII-safe file name for the attachment.
func uploadName(a *download.Artifact) string {
	base := slug.Make(title(a))
	if base == "" {
		base = "media"
	}
	if ext := a.Ext(); ext != "" {
		return base + "." + strings.ToLower(ext)
	}
	return base
}

func attachment(a *download.Artifact, p mode.Preset) tele.Sendable {
	file := tele.FromDisk(a.Path)
	switch p.Kind {
	case mode.KindAudio:
		return &tele.Audio{
			File:     file,
			Title:    title(a),
			FileName: uploadName(a),
			MIME:     mimeType(a.Ext()),
		}
	default:
		return &tele.Video{
			File:      file,
			FileName:  uploadName(a),
			MIME:      mimeType(a.Ext()),
			Streaming: true,
		}
	}
}
