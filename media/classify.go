// Package media turns the many shapes in which clients send listing media
// into canonical image and video references.
package media

import (
	"fmt"
	"regexp"
	"strings"

	"farmsetu/apperr"
	"farmsetu/models"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindImage
	KindVideo
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindVideo:
		return "video"
	default:
		return "unknown"
	}
}

// Dir is the storage sub-directory for files of this kind.
func (k Kind) Dir() string {
	switch k {
	case KindImage:
		return "images"
	case KindVideo:
		return "videos"
	default:
		return "others"
	}
}

const (
	CodeUnexpectedFile = "LIMIT_UNEXPECTED_FILE"
	CodeInvalidType    = "INVALID_FILE_TYPE"
	CodeFileCount      = "LIMIT_FILE_COUNT"
	CodeFileSize       = "LIMIT_FILE_SIZE"
)

type fieldRule struct {
	name  string
	kind  Kind
	match func(field string) bool
}

func exact(names ...string) func(string) bool {
	return func(field string) bool {
		for _, n := range names {
			if field == n {
				return true
			}
		}
		return false
	}
}

func prefix(p string) func(string) bool {
	return func(field string) bool { return strings.HasPrefix(field, p) }
}

func pattern(re *regexp.Regexp) func(string) bool {
	return re.MatchString
}

// fieldRules is evaluated top to bottom; the first match decides the kind.
// Mobile clients send image[0], images[], image_1 and so on.
var fieldRules = []fieldRule{
	{"image exact", KindImage, exact("image", "images", "images[]")},
	{"images[ prefix", KindImage, prefix("images[")},
	{"image_ prefix", KindImage, prefix("image_")},
	{"image[ pattern", KindImage, pattern(regexp.MustCompile(`^images?\[`))},
	{"video exact", KindVideo, exact("video", "videos")},
	{"video[ prefix", KindVideo, prefix("video[")},
	{"video_ prefix", KindVideo, prefix("video_")},
}

// KindForField returns the kind declared by a multipart field name alone.
func KindForField(field string) Kind {
	for _, r := range fieldRules {
		if r.match(field) {
			return r.kind
		}
	}
	return KindUnknown
}

func KindForMIME(mimeType string) Kind {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return KindImage
	case strings.HasPrefix(mimeType, "video/"):
		return KindVideo
	default:
		return KindUnknown
	}
}

// Classify decides whether an uploaded file is an image or a video. A
// recognized field name must carry a matching MIME type; unrecognized
// names fall back to the MIME type.
func Classify(field, mimeType string) (Kind, error) {
	byField := KindForField(field)
	byMIME := KindForMIME(mimeType)

	if byField != KindUnknown {
		if byMIME != byField {
			return KindUnknown, apperr.FieldValidation(
				fmt.Sprintf("Only %s files are allowed for field %q", byField, field),
				field, CodeInvalidType)
		}
		return byField, nil
	}
	if byMIME != KindUnknown {
		return byMIME, nil
	}
	return KindUnknown, apperr.FieldValidation(
		fmt.Sprintf("Unexpected file field %q. Only \"images\" (max %d) and \"video\" (max %d) fields are allowed.",
			field, models.MaxListingImages, models.MaxListingVideos),
		field, CodeUnexpectedFile)
}
