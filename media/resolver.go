package media

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"farmsetu/apperr"
	"farmsetu/models"
)

// UploadedFile describes a file the upload transport already stored.
type UploadedFile struct {
	FieldName string `json:"fieldName"`
	MimeType  string `json:"mimeType"`
	Filename  string `json:"filename"`
}

// Input is everything the resolver looks at. Fields holds textual form
// values as strings, or decoded JSON values for JSON bodies.
type Input struct {
	Files       []UploadedFile
	Fields      map[string]any
	UserAddress models.UserAddress
}

type Result struct {
	Images  []string
	Video   string
	Address models.ListingAddress
}

// Resolver is safe for concurrent use; it holds only the uploads root.
type Resolver struct {
	root string
}

// NewResolver builds a resolver for the given uploads root, e.g. "/uploads".
func NewResolver(root string) *Resolver {
	root = "/" + strings.Trim(strings.TrimSpace(root), "/")
	return &Resolver{root: root}
}

func (r *Resolver) Root() string { return r.root }

// Path returns the root-relative reference of a stored file. References that
// are already rooted, or absolute URLs from remote stores, pass through.
func (r *Resolver) Path(kind Kind, name string) string {
	if r.isRooted(name) {
		return name
	}
	return r.root + "/" + kind.Dir() + "/" + name
}

func (r *Resolver) isRooted(ref string) bool {
	return strings.HasPrefix(ref, r.root+"/") ||
		strings.HasPrefix(ref, "http://") ||
		strings.HasPrefix(ref, "https://")
}

func (r *Resolver) Resolve(in Input) (*Result, error) {
	images, video, err := r.resolveUploads(in.Files)
	if err != nil {
		return nil, err
	}

	if len(images) == 0 {
		for _, name := range ParseList(in.Fields["images"]) {
			images = append(images, r.Path(KindImage, name))
		}
	}
	if len(images) > models.MaxListingImages {
		return nil, apperr.FieldValidation(
			fmt.Sprintf("Too many images. Maximum %d images allowed, but %d were provided.",
				models.MaxListingImages, len(images)),
			"images", CodeFileCount)
	}

	if video == "" {
		refs := videoRefs(in.Fields["video"])
		if len(refs) > models.MaxListingVideos {
			return nil, apperr.FieldValidation(
				fmt.Sprintf("Too many videos. Maximum %d video allowed, but %d were provided.",
					models.MaxListingVideos, len(refs)),
				"video", CodeFileCount)
		}
		if len(refs) == 1 {
			video = r.Path(KindVideo, refs[0])
		}
	}

	if images == nil {
		images = []string{}
	}
	return &Result{
		Images:  images,
		Video:   video,
		Address: ResolveAddress(in.Fields, in.UserAddress),
	}, nil
}

// resolveUploads keeps upload order for images and the first video.
func (r *Resolver) resolveUploads(files []UploadedFile) ([]string, string, error) {
	var images []string
	var video string
	for _, f := range files {
		kind, err := Classify(f.FieldName, f.MimeType)
		if err != nil {
			return nil, "", err
		}
		switch kind {
		case KindImage:
			images = append(images, r.Path(KindImage, f.Filename))
		case KindVideo:
			if video == "" {
				video = r.Path(KindVideo, f.Filename)
			}
		}
	}
	return images, video, nil
}

// videoRefs reads the textual video field. A plain string is one reference,
// commas included; only a JSON array can carry several.
func videoRefs(v any) []string {
	s, ok := v.(string)
	if !ok {
		return ParseList(v)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var decoded []any
	if strings.HasPrefix(s, "[") && json.Unmarshal([]byte(s), &decoded) == nil {
		return ParseList(decoded)
	}
	return []string{s}
}

// ParseList reads a textual list field. Strings are decoded as a JSON array
// when possible and otherwise split on commas. Blank entries are dropped.
func ParseList(v any) []string {
	var raw []string
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return nil
		}
		var decoded []any
		if err := json.Unmarshal([]byte(s), &decoded); err == nil {
			raw = stringsOf(decoded)
		} else {
			raw = strings.Split(s, ",")
		}
	case []string:
		raw = val
	case []any:
		raw = stringsOf(val)
	default:
		return nil
	}

	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func stringsOf(values []any) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// StringValue renders a scalar form value as a string. Non-scalars yield "".
func StringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}
