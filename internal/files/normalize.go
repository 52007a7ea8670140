package files

import (
	"fmt"
	"strings"
	"time"
)

// Normalize maps a raw attachment payload onto a FileRecord candidate,
// filling defaults for missing names, mime types and sizes. It is a
// pure transform; persistence happens in Store.Ingest.
func Normalize(att Attachment, src Source, now time.Time) (FileRecord, error) {
	if !att.Kind.Valid() {
		return FileRecord{}, fmt.Errorf("%w: %q", ErrInvalidKind, att.Kind)
	}
	ref := strings.TrimSpace(att.Ref)
	if ref == "" {
		return FileRecord{}, fmt.Errorf("attachment file reference is required")
	}
	chatID := strings.TrimSpace(src.ChatID)
	if chatID == "" {
		return FileRecord{}, fmt.Errorf("source chat id is required")
	}

	size := att.SizeBytes
	if size < 0 {
		size = 0
	}

	return FileRecord{
		FileRef:         ref,
		DisplayName:     displayName(att, now),
		Caption:         att.Caption,
		Kind:            att.Kind,
		SizeBytes:       size,
		MimeType:        mimeType(att),
		SourceChatID:    chatID,
		SourceMessageID: src.MessageID,
		SourceTitle:     sourceTitle(src),
		SourceKind:      sourceKind(src),
	}, nil
}

func displayName(att Attachment, now time.Time) string {
	if name := strings.TrimSpace(att.Name); name != "" {
		return name
	}
	switch att.Kind {
	case KindVideo:
		return fmt.Sprintf("Video_%d.mp4", now.UnixMilli())
	case KindAudio:
		if title := strings.TrimSpace(att.Title); title != "" {
			return title
		}
		return fmt.Sprintf("Audio_%d.mp3", now.UnixMilli())
	default:
		return "Unknown Document"
	}
}

func mimeType(att Attachment) string {
	if mime := strings.TrimSpace(att.MimeType); mime != "" {
		return mime
	}
	switch att.Kind {
	case KindVideo:
		return "video/mp4"
	case KindAudio:
		return "audio/mpeg"
	default:
		return ""
	}
}

func sourceTitle(src Source) string {
	if title := strings.TrimSpace(src.Title); title != "" {
		return title
	}
	return "Unknown Chat"
}

func sourceKind(src Source) string {
	if kind := strings.TrimSpace(src.Kind); kind != "" {
		return kind
	}
	return "unknown"
}
