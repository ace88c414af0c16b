package upload

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"farmsetu/apperr"
	"farmsetu/logger"
	"farmsetu/media"
	"farmsetu/models"
	"farmsetu/storage"
)

type formPart struct {
	field       string
	filename    string
	contentType string
	body        string
}

func multipartRequest(t *testing.T, parts ...formPart) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, p := range parts {
		if p.filename == "" {
			if err := w.WriteField(p.field, p.body); err != nil {
				t.Fatal(err)
			}
			continue
		}
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="`+p.field+`"; filename="`+p.filename+`"`)
		if p.contentType != "" {
			h.Set("Content-Type", p.contentType)
		}
		pw, err := w.CreatePart(h)
		if err != nil {
			t.Fatal(err)
		}
		pw.Write([]byte(p.body))
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/listings", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func newTestReceiver(t *testing.T, maxBytes int64) (*Receiver, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewDisk(dir)
	if err != nil {
		t.Fatal(err)
	}
	r := NewReceiver(store, maxBytes, logger.Discard())
	r.now = func() time.Time { return time.UnixMilli(1700000000000) }
	var n int64
	r.random = func() int64 { n++; return n }
	return r, dir
}

func storedFiles(t *testing.T, dir string) []string {
	t.Helper()
	var names []string
	filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			rel, _ := filepath.Rel(dir, p)
			names = append(names, filepath.ToSlash(rel))
		}
		return nil
	})
	return names
}

func validationCode(t *testing.T, err error) (string, string) {
	t.Helper()
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v (%T), want *apperr.ValidationError", err, err)
	}
	return ve.Code, ve.Field
}

func TestReceiveMultipartFieldsAndFiles(t *testing.T) {
	r, dir := newTestReceiver(t, 1<<20)
	req := multipartRequest(t,
		formPart{field: "title", body: "Gir Cow"},
		formPart{field: "address[district]", body: "Pune"},
		formPart{field: "address[state]", body: "Maharashtra"},
		formPart{field: "tags[]", body: "a"},
		formPart{field: "tags[]", body: "b"},
		formPart{field: "images[0]", filename: "my cow.jpg", contentType: "image/jpeg", body: "jpeg"},
		formPart{field: "video", filename: "walk.mp4", contentType: "video/mp4", body: "mp4"},
	)

	form, err := r.Receive(req, ListingPolicy)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if form.Fields["title"] != "Gir Cow" {
		t.Errorf("title = %v", form.Fields["title"])
	}
	addr, ok := form.Fields["address"].(map[string]any)
	if !ok || addr["district"] != "Pune" || addr["state"] != "Maharashtra" {
		t.Errorf("address = %#v", form.Fields["address"])
	}
	if !reflect.DeepEqual(form.Fields["tags"], []any{"a", "b"}) {
		t.Errorf("tags = %#v", form.Fields["tags"])
	}

	if len(form.Files) != 2 {
		t.Fatalf("stored %d files, want 2", len(form.Files))
	}
	img := form.Files[0]
	if img.Kind != media.KindImage || img.Name != "my_cow-1700000000000-1.jpg" || img.Ref != img.Name || img.Size != 4 {
		t.Errorf("image = %+v", img)
	}
	if got := form.Of(media.KindVideo); len(got) != 1 || got[0].Field != "video" {
		t.Errorf("videos = %+v", got)
	}
	want := []string{"images/my_cow-1700000000000-1.jpg", "videos/walk-1700000000000-2.mp4"}
	if got := storedFiles(t, dir); !reflect.DeepEqual(got, want) {
		t.Errorf("files on disk = %v, want %v", got, want)
	}

	uploaded := form.Uploaded()
	if uploaded[0].FieldName != "images[0]" || uploaded[0].MimeType != "image/jpeg" || uploaded[0].Filename != img.Name {
		t.Errorf("uploaded = %+v", uploaded[0])
	}
}

func TestReceiveRejectsFourthImageAndCleansUp(t *testing.T) {
	r, dir := newTestReceiver(t, 1<<20)
	var parts []formPart
	for i := 0; i < 4; i++ {
		parts = append(parts, formPart{field: "images", filename: "p.png", contentType: "image/png", body: "png"})
	}

	form, err := r.Receive(multipartRequest(t, parts...), ListingPolicy)
	if form != nil {
		t.Errorf("form = %+v, want nil", form)
	}
	if code, field := validationCode(t, err); code != media.CodeFileCount || field != "images" {
		t.Errorf("code = %q field = %q", code, field)
	}
	if got := storedFiles(t, dir); len(got) != 0 {
		t.Errorf("files left behind: %v", got)
	}
}

func TestReceiveRejectsSecondVideo(t *testing.T) {
	r, _ := newTestReceiver(t, 1<<20)
	req := multipartRequest(t,
		formPart{field: "video", filename: "a.mp4", contentType: "video/mp4", body: "1"},
		formPart{field: "videos", filename: "b.mp4", contentType: "video/mp4", body: "2"},
	)
	_, err := r.Receive(req, ListingPolicy)
	if code, _ := validationCode(t, err); code != media.CodeFileCount {
		t.Errorf("code = %q", code)
	}
}

func TestReceiveRejectsOversizedFile(t *testing.T) {
	r, dir := newTestReceiver(t, 8)
	req := multipartRequest(t,
		formPart{field: "images", filename: "ok.jpg", contentType: "image/jpeg", body: "12345678"},
		formPart{field: "images", filename: "big.jpg", contentType: "image/jpeg", body: "123456789"},
	)

	_, err := r.Receive(req, ListingPolicy)
	code, field := validationCode(t, err)
	if code != media.CodeFileSize || field != "images" {
		t.Errorf("code = %q field = %q", code, field)
	}
	if got := storedFiles(t, dir); len(got) != 0 {
		t.Errorf("files left behind: %v", got)
	}
}

func TestReceiveRejectsUnexpectedField(t *testing.T) {
	r, _ := newTestReceiver(t, 1<<20)
	req := multipartRequest(t,
		formPart{field: "document", filename: "deed.pdf", contentType: "application/pdf", body: "%PDF-1.4"},
	)
	_, err := r.Receive(req, ListingPolicy)
	if code, field := validationCode(t, err); code != media.CodeUnexpectedFile || field != "document" {
		t.Errorf("code = %q field = %q", code, field)
	}
}

func TestReceiveRejectsKindOutsidePolicy(t *testing.T) {
	r, _ := newTestReceiver(t, 1<<20)
	req := multipartRequest(t,
		formPart{field: "video", filename: "a.mp4", contentType: "video/mp4", body: "1"},
	)
	_, err := r.Receive(req, SingleImagePolicy)
	if code, field := validationCode(t, err); code != media.CodeUnexpectedFile || field != "video" {
		t.Errorf("code = %q field = %q", code, field)
	}
}

func TestReceiveSniffsOctetStream(t *testing.T) {
	r, _ := newTestReceiver(t, 1<<20)
	png := "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00"
	req := multipartRequest(t,
		formPart{field: "photo", filename: "photo", contentType: "application/octet-stream", body: png},
	)
	form, err := r.Receive(req, ListingPolicy)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if f := form.Files[0]; f.Kind != media.KindImage || f.MimeType != "image/png" {
		t.Errorf("file = %+v", f)
	}
}

func TestReceiveJSONBody(t *testing.T) {
	r, _ := newTestReceiver(t, 1<<20)
	body := `{"title":"Gir Cow","images":["a.jpg","b.jpg"],"address":{"district":"Pune"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/listings", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	form, err := r.Receive(req, ListingPolicy)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if len(form.Files) != 0 || form.Fields["title"] != "Gir Cow" {
		t.Errorf("form = %+v", form)
	}
	if !reflect.DeepEqual(form.Fields["images"], []any{"a.jpg", "b.jpg"}) {
		t.Errorf("images = %#v", form.Fields["images"])
	}

	bad := httptest.NewRequest(http.MethodPost, "/api/listings", strings.NewReader("{"))
	bad.Header.Set("Content-Type", "application/json")
	if _, err := r.Receive(bad, ListingPolicy); apperr.Status(err) != http.StatusBadRequest {
		t.Errorf("malformed JSON err = %v", err)
	}
}

func TestReceiveURLEncoded(t *testing.T) {
	r, _ := newTestReceiver(t, 1<<20)
	values := url.Values{"title": {"Cow"}, "address[taluko]": {"Haveli"}}
	req := httptest.NewRequest(http.MethodPost, "/api/listings", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	form, err := r.Receive(req, ListingPolicy)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if form.Fields["title"] != "Cow" || form.Fields["address"].(map[string]any)["taluko"] != "Haveli" {
		t.Errorf("fields = %#v", form.Fields)
	}
}

func TestStoredName(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	tests := []struct {
		original string
		want     string
	}{
		{"cow.jpg", "cow-1700000000123-7.jpg"},
		{"my  gir cow.JPG", "my_gir_cow-1700000000123-7.JPG"},
		{"../../etc/passwd", "passwd-1700000000123-7"},
		{`C:\Users\me\clip.mp4`, "clip-1700000000123-7.mp4"},
		{".jpg", "file-1700000000123-7.jpg"},
		{"", "file-1700000000123-7"},
		{"farm,cow.jpg", "farm_cow-1700000000123-7.jpg"},
		{`["x"].png`, "__x__-1700000000123-7.png"},
	}
	for _, tt := range tests {
		if got := StoredName(tt.original, now, 7); got != tt.want {
			t.Errorf("StoredName(%q) = %q, want %q", tt.original, got, tt.want)
		}
	}
}

func TestStoredNameIsOneListEntry(t *testing.T) {
	for _, original := range []string{"farm,cow.jpg", `a[1],"b".jpg`, "plain cow.jpg"} {
		name := StoredName(original, time.UnixMilli(1700000000000), 7)
		if got := media.ParseList(name); len(got) != 1 || got[0] != name {
			t.Errorf("ParseList(%q) = %q, want the single name", name, got)
		}
	}
}

func TestAddFieldMergesAddressForms(t *testing.T) {
	want := map[string]any{"village": "Aundh", "district": "Pune", "state": "Maharashtra"}
	tests := []struct {
		name  string
		parts [][2]string
	}{
		{"json first", [][2]string{
			{"address", `{"village":"Baner","district":"Pune","state":"Maharashtra"}`},
			{"address[village]", "Aundh"},
		}},
		{"json last", [][2]string{
			{"address[village]", "Aundh"},
			{"address", `{"village":"Baner","district":"Pune","state":"Maharashtra"}`},
		}},
		{"brackets only", [][2]string{
			{"address[village]", "Aundh"},
			{"address[district]", "Pune"},
			{"address[state]", "Maharashtra"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := map[string]any{}
			for _, p := range tt.parts {
				addField(fields, p[0], p[1])
			}
			if !reflect.DeepEqual(fields["address"], want) {
				t.Errorf("address = %#v, want %#v", fields["address"], want)
			}
		})
	}

	fields := map[string]any{}
	addField(fields, "address", `{"village":"Baner"}`)
	if addr := media.ResolveAddress(fields, models.UserAddress{}); addr.Village != "Baner" {
		t.Errorf("single json part: village = %q", addr.Village)
	}
}
