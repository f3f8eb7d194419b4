package domain

import (
	"encoding/base64"
	"strings"
)

// AvatarKind tags the Avatar union.
type AvatarKind int

const (
	AvatarNone AvatarKind = iota
	AvatarURL
	AvatarInline
)

// Avatar is either an external URL or inline image bytes. Both stores keep it
// in a single text column/field: the URL verbatim, inline bytes as base64.
type Avatar struct {
	Kind AvatarKind
	URL  string
	Data []byte
}

// URLAvatar returns an avatar pointing at an external image.
func URLAvatar(url string) Avatar {
	return Avatar{Kind: AvatarURL, URL: url}
}

// InlineAvatar returns an avatar carrying encoded image bytes.
func InlineAvatar(data []byte) Avatar {
	return Avatar{Kind: AvatarInline, Data: data}
}

// IsZero reports whether no avatar is set.
func (a Avatar) IsZero() bool {
	return a.Kind == AvatarNone
}

// Encode returns the single-string persisted form.
func (a Avatar) Encode() string {
	switch a.Kind {
	case AvatarURL:
		return a.URL
	case AvatarInline:
		return base64.StdEncoding.EncodeToString(a.Data)
	default:
		return ""
	}
}

// DecodeAvatar parses the persisted form. Values that are neither a URL nor
// valid base64 decode as no avatar.
func DecodeAvatar(s string) Avatar {
	s = strings.TrimSpace(s)
	if s == "" {
		return Avatar{}
	}
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return URLAvatar(s)
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return Avatar{}
	}
	return InlineAvatar(data)
}
