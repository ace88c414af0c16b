package media

import (
	"errors"
	"testing"

	"farmsetu/apperr"
)

func TestKindForField(t *testing.T) {
	cases := map[string]Kind{
		"image":     KindImage,
		"images":    KindImage,
		"images[]":  KindImage,
		"images[0]": KindImage,
		"image[2]":  KindImage,
		"image_1":   KindImage,
		"video":     KindVideo,
		"videos":    KindVideo,
		"video[0]":  KindVideo,
		"video_a":   KindVideo,
		"photo":     KindUnknown,
		"avatar":    KindUnknown,
		"Images":    KindUnknown,
		"myimages":  KindUnknown,
	}
	for field, want := range cases {
		if got := KindForField(field); got != want {
			t.Errorf("KindForField(%q) = %v, want %v", field, got, want)
		}
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		field, mime string
		want        Kind
		code        string
	}{
		{"images", "image/jpeg", KindImage, ""},
		{"video", "video/mp4", KindVideo, ""},
		{"photo", "image/png", KindImage, ""},
		{"clip", "video/quicktime", KindVideo, ""},
		{"images", "video/mp4", KindUnknown, CodeInvalidType},
		{"video", "image/png", KindUnknown, CodeInvalidType},
		{"document", "application/pdf", KindUnknown, CodeUnexpectedFile},
	}
	for _, tc := range cases {
		got, err := Classify(tc.field, tc.mime)
		if tc.code == "" {
			if err != nil || got != tc.want {
				t.Errorf("Classify(%q, %q) = %v, %v; want %v", tc.field, tc.mime, got, err, tc.want)
			}
			continue
		}
		var ve *apperr.ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("Classify(%q, %q) error = %v, want ValidationError", tc.field, tc.mime, err)
		}
		if ve.Code != tc.code || ve.Field != tc.field {
			t.Errorf("Classify(%q, %q) = code %q field %q, want code %q field %q",
				tc.field, tc.mime, ve.Code, ve.Field, tc.code, tc.field)
		}
	}
}
