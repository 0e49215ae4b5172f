package domain

import (
	"path"
	"strings"
)

type FileType string

const (
	FileTypeDocument FileType = "document"
	FileTypeImage    FileType = "image"
	FileTypeText     FileType = "text"
	FileTypeAudio    FileType = "audio"
	FileTypeVideo    FileType = "video"
	FileTypeOther    FileType = "other"
)

var extensionTypes = map[string]FileType{
	"pdf":  FileTypeDocument,
	"tif":  FileTypeDocument,
	"tiff": FileTypeDocument,

	"jpg":  FileTypeImage,
	"jpeg": FileTypeImage,
	"png":  FileTypeImage,
	"gif":  FileTypeImage,
	"bmp":  FileTypeImage,
	"webp": FileTypeImage,

	"txt":  FileTypeText,
	"text": FileTypeText,
	"csv":  FileTypeText,
	"md":   FileTypeText,
	"log":  FileTypeText,
	"json": FileTypeText,
	"xml":  FileTypeText,

	"mp3":  FileTypeAudio,
	"wav":  FileTypeAudio,
	"m4a":  FileTypeAudio,
	"aac":  FileTypeAudio,
	"flac": FileTypeAudio,
	"ogg":  FileTypeAudio,
	"wma":  FileTypeAudio,

	"mp4":  FileTypeVideo,
	"mov":  FileTypeVideo,
	"avi":  FileTypeVideo,
	"mkv":  FileTypeVideo,
	"wmv":  FileTypeVideo,
	"webm": FileTypeVideo,
	"m4v":  FileTypeVideo,
}

// ClassifyFile derives the evidence file type from the extension, falling
// back to the declared content type.
func ClassifyFile(fileName, contentType string) FileType {
	if ext := Extension(fileName); ext != "" {
		if ft, ok := extensionTypes[ext]; ok {
			return ft
		}
	}
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	switch {
	case ct == "application/pdf", ct == "image/tiff":
		return FileTypeDocument
	case strings.HasPrefix(ct, "image/"):
		return FileTypeImage
	case strings.HasPrefix(ct, "text/"):
		return FileTypeText
	case strings.HasPrefix(ct, "audio/"):
		return FileTypeAudio
	case strings.HasPrefix(ct, "video/"):
		return FileTypeVideo
	}
	return FileTypeOther
}

// Extractable reports whether the type always has an extraction path. Audio
// and video have one only when their recognizers are configured.
func (t FileType) Extractable() bool {
	switch t {
	case FileTypeDocument, FileTypeImage, FileTypeText:
		return true
	}
	return false
}

// Extension returns the lowercased extension without the dot.
func Extension(fileName string) string {
	ext := strings.ToLower(path.Ext(strings.TrimSpace(fileName)))
	return strings.TrimPrefix(ext, ".")
}

// AutoTags are the tags derived at upload initiation.
func AutoTags(fileName string, ft FileType) []string {
	tags := []string{string(ft)}
	if ext := Extension(fileName); ext != "" && ext != string(ft) {
		tags = append(tags, ext)
	}
	return tags
}
