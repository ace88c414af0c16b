// Package upload streams request bodies into form fields and stored media
// files. File parts are classified and checked against limits before any
// byte reaches the store.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"farmsetu/apperr"
	"farmsetu/media"
	"farmsetu/models"
	"farmsetu/storage"

	"github.com/gabriel-vasile/mimetype"
)

const (
	maxFieldBytes = 1 << 20
	sniffBytes    = 3072
)

// Policy limits how many files of each kind one request may carry. A zero
// limit rejects that kind as an unexpected field.
type Policy struct {
	MaxImages int
	MaxVideos int
}

var (
	ListingPolicy     = Policy{MaxImages: models.MaxListingImages, MaxVideos: models.MaxListingVideos}
	SingleImagePolicy = Policy{MaxImages: 1}
	ImagesPolicy      = Policy{MaxImages: models.MaxListingImages}
	SingleVideoPolicy = Policy{MaxVideos: 1}
)

func (p Policy) max(k media.Kind) int {
	switch k {
	case media.KindImage:
		return p.MaxImages
	case media.KindVideo:
		return p.MaxVideos
	default:
		return 0
	}
}

// StoredFile is one file part that reached the store.
type StoredFile struct {
	Field    string
	Original string
	MimeType string
	Kind     media.Kind
	Name     string
	Ref      string
	Size     int64
}

func (f StoredFile) Uploaded() media.UploadedFile {
	return media.UploadedFile{FieldName: f.Field, MimeType: f.MimeType, Filename: f.Ref}
}

// Form is a received request body.
type Form struct {
	Fields map[string]any
	Files  []StoredFile
}

func (f *Form) Uploaded() []media.UploadedFile {
	out := make([]media.UploadedFile, 0, len(f.Files))
	for _, sf := range f.Files {
		out = append(out, sf.Uploaded())
	}
	return out
}

func (f *Form) Of(kind media.Kind) []StoredFile {
	var out []StoredFile
	for _, sf := range f.Files {
		if sf.Kind == kind {
			out = append(out, sf)
		}
	}
	return out
}

type Receiver struct {
	store        storage.Store
	maxFileBytes int64
	log          *slog.Logger
	now          func() time.Time
	random       func() int64
}

func NewReceiver(store storage.Store, maxFileBytes int64, log *slog.Logger) *Receiver {
	return &Receiver{
		store:        store,
		maxFileBytes: maxFileBytes,
		log:          log,
		now:          time.Now,
		random:       func() int64 { return rand.Int63n(1e9) },
	}
}

// Receive reads req according to its content type. Multipart bodies are
// streamed part by part; JSON and urlencoded bodies yield fields only. On
// error every file already stored for the request is removed.
func (r *Receiver) Receive(req *http.Request, p Policy) (*Form, error) {
	mediaType, _, _ := mime.ParseMediaType(req.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		return r.receiveMultipart(req, p)
	case "application/json":
		return receiveJSON(req.Body)
	case "application/x-www-form-urlencoded":
		if err := req.ParseForm(); err != nil {
			return nil, apperr.Validation("Malformed form body")
		}
		form := &Form{Fields: map[string]any{}}
		for key, values := range req.PostForm {
			for _, v := range values {
				addField(form.Fields, key, v)
			}
		}
		return form, nil
	default:
		return &Form{Fields: map[string]any{}}, nil
	}
}

func receiveJSON(body io.Reader) (*Form, error) {
	fields := map[string]any{}
	if err := json.NewDecoder(body).Decode(&fields); err != nil && !errors.Is(err, io.EOF) {
		return nil, apperr.Validation("Malformed JSON body")
	}
	return &Form{Fields: fields}, nil
}

func (r *Receiver) receiveMultipart(req *http.Request, p Policy) (form *Form, err error) {
	ctx := req.Context()
	mr, err := req.MultipartReader()
	if err != nil {
		return nil, apperr.Validation("Expecting a multipart form")
	}

	form = &Form{Fields: map[string]any{}}
	defer func() {
		if err != nil {
			r.Discard(context.WithoutCancel(ctx), form.Files)
			form = nil
		}
	}()

	counts := map[media.Kind]int{}
	for {
		part, perr := mr.NextPart()
		if errors.Is(perr, io.EOF) {
			break
		}
		if perr != nil {
			return form, apperr.Validation("Malformed multipart body")
		}

		if part.FileName() == "" {
			err = readField(form.Fields, part)
			part.Close()
			if err != nil {
				return form, err
			}
			continue
		}

		sf, ferr := r.storePart(ctx, part, p, counts)
		part.Close()
		if ferr != nil {
			return form, ferr
		}
		form.Files = append(form.Files, *sf)
	}

	r.log.Debug("multipart body received", "fields", len(form.Fields), "files", len(form.Files))
	return form, nil
}

func readField(fields map[string]any, part *multipart.Part) error {
	raw, err := io.ReadAll(io.LimitReader(part, maxFieldBytes+1))
	if err != nil {
		return apperr.Validation("Malformed multipart body")
	}
	if len(raw) > maxFieldBytes {
		return apperr.FieldValidation(fmt.Sprintf("Field %q is too large", part.FormName()), part.FormName(), "LIMIT_FIELD_VALUE")
	}
	addField(fields, part.FormName(), string(raw))
	return nil
}

// addField stores a text value. address[x] keys nest under "address",
// a trailing [] is dropped and repeated keys collect into a list.
func addField(fields map[string]any, key, value string) {
	if sub, ok := strings.CutPrefix(key, "address["); ok && strings.HasSuffix(sub, "]") {
		addressMap(fields)[strings.TrimSuffix(sub, "]")] = value
		return
	}
	if key == "address" {
		addAddressJSON(fields, value)
		return
	}
	key = strings.TrimSuffix(key, "[]")
	switch existing := fields[key].(type) {
	case nil:
		fields[key] = value
	case []any:
		fields[key] = append(existing, value)
	default:
		fields[key] = []any{existing, value}
	}
}

// addAddressJSON merges an address object sent as one JSON text part.
// Keys already set by address[x] parts are kept.
func addAddressJSON(fields map[string]any, value string) {
	var decoded map[string]any
	if err := json.Unmarshal([]byte(value), &decoded); err != nil {
		if _, set := fields["address"]; !set {
			fields["address"] = value
		}
		return
	}
	addr := addressMap(fields)
	for k, v := range decoded {
		if _, set := addr[k]; !set {
			addr[k] = v
		}
	}
}

// addressMap returns the nested address object, creating it or decoding
// an earlier JSON string as needed.
func addressMap(fields map[string]any) map[string]any {
	switch existing := fields["address"].(type) {
	case map[string]any:
		return existing
	case string:
		var decoded map[string]any
		if json.Unmarshal([]byte(existing), &decoded) == nil && decoded != nil {
			fields["address"] = decoded
			return decoded
		}
	}
	addr := map[string]any{}
	fields["address"] = addr
	return addr
}

func (r *Receiver) storePart(ctx context.Context, part *multipart.Part, p Policy, counts map[media.Kind]int) (*StoredFile, error) {
	field := part.FormName()

	head := make([]byte, sniffBytes)
	n, err := io.ReadFull(part, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, apperr.Validation("Malformed multipart body")
	}
	head = head[:n]

	mimeType := partMIME(part.Header.Get("Content-Type"), head)
	kind, err := media.Classify(field, mimeType)
	if err != nil {
		return nil, err
	}
	limit := p.max(kind)
	if limit == 0 {
		return nil, apperr.FieldValidation(
			fmt.Sprintf("Unexpected file field %q. Only %s", field, p.describe()),
			field, media.CodeUnexpectedFile)
	}
	if counts[kind] >= limit {
		return nil, apperr.FieldValidation(
			fmt.Sprintf("Too many %ss. Maximum %d %s allowed.", kind, limit, plural(kind, limit)),
			field, media.CodeFileCount)
	}
	counts[kind]++

	name := StoredName(part.FileName(), r.now(), r.random())
	body := &cappedReader{r: io.MultiReader(bytes.NewReader(head), part), remaining: r.maxFileBytes}
	ref, err := r.store.Save(ctx, kind.Dir(), name, body, mimeType)
	if body.exceeded {
		_ = r.store.Remove(context.WithoutCancel(ctx), kind.Dir(), name)
		return nil, apperr.FieldValidation(
			fmt.Sprintf("File too large. Maximum file size is %s.", formatBytes(r.maxFileBytes)),
			field, media.CodeFileSize)
	}
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", kind, err)
	}

	r.log.Info("file stored", "field", field, "kind", kind.String(), "name", name, "bytes", body.read)
	return &StoredFile{
		Field:    field,
		Original: part.FileName(),
		MimeType: mimeType,
		Kind:     kind,
		Name:     name,
		Ref:      ref,
		Size:     body.read,
	}, nil
}

func (p Policy) describe() string {
	var parts []string
	if p.MaxImages > 0 {
		parts = append(parts, fmt.Sprintf("\"images\" (max %d)", p.MaxImages))
	}
	if p.MaxVideos > 0 {
		parts = append(parts, fmt.Sprintf("\"video\" (max %d)", p.MaxVideos))
	}
	if len(parts) == 0 {
		return "text fields are allowed."
	}
	return strings.Join(parts, " and ") + " fields are allowed."
}

func plural(k media.Kind, n int) string {
	if n == 1 {
		return k.String()
	}
	return k.String() + "s"
}

// partMIME trusts a specific part Content-Type and sniffs otherwise.
func partMIME(declared string, head []byte) string {
	if mt, _, err := mime.ParseMediaType(declared); err == nil && mt != "application/octet-stream" {
		return mt
	}
	detected := mimetype.Detect(head).String()
	if mt, _, err := mime.ParseMediaType(detected); err == nil {
		return mt
	}
	return detected
}

func formatBytes(n int64) string {
	if n%(1<<20) == 0 {
		return fmt.Sprintf("%dMB", n>>20)
	}
	return fmt.Sprintf("%d bytes", n)
}

// Discard removes stored files, logging failures.
func (r *Receiver) Discard(ctx context.Context, files []StoredFile) {
	for _, f := range files {
		if err := r.store.Remove(ctx, f.Kind.Dir(), f.Name); err != nil {
			r.log.Warn("failed to remove stored upload", "name", f.Name, "error", err)
		}
	}
}

var errFileTooLarge = errors.New("file exceeds size limit")

type cappedReader struct {
	r         io.Reader
	remaining int64
	read      int64
	exceeded  bool
}

func (c *cappedReader) Read(p []byte) (int, error) {
	if c.exceeded {
		return 0, errFileTooLarge
	}
	if int64(len(p)) > c.remaining+1 {
		p = p[:c.remaining+1]
	}
	n, err := c.r.Read(p)
	if int64(n) > c.remaining {
		c.exceeded = true
		return 0, errFileTooLarge
	}
	c.remaining -= int64(n)
	c.read += int64(n)
	return n, err
}
