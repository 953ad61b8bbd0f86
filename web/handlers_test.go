package web

import (
	"encoding/json"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"badc0de.net/pkg/tibia-assets/appearances"
	"badc0de.net/pkg/tibia-assets/dat"
	"badc0de.net/pkg/tibia-assets/sheet"
	"badc0de.net/pkg/tibia-assets/spr"
	"badc0de.net/pkg/tibia-assets/things"
	"badc0de.net/pkg/tibia-assets/ttesting"
)

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
}

func solid(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// testHandler serves item 100, animated over sprites 1 and 2, and object
// appearance 5 whose sprite 1 lies in a sheet.
func testHandler(t *testing.T) http.Handler {
	t.Helper()
	c := dat.NewCatalog(0x1234, false)
	thing := dat.NewThing(dat.CategoryItem, 100)
	tex, err := dat.BuildTexture(dat.FrameGroup{Width: 1, Height: 1, Layers: 1, PatternX: 1, PatternY: 1, PatternZ: 1, Frames: 2, SpriteIDs: []uint32{1, 2}}, false)
	must(t, err)
	thing.TextureBytes = tex
	must(t, c.Put(thing))

	s := &spr.SpriteSet{Signature: 0x5678}
	must(t, s.Replace(1, solid(spr.Size, spr.Size, color.NRGBA{R: 0xFF, A: 0xFF})))
	must(t, s.Replace(2, solid(spr.Size, spr.Size, color.NRGBA{G: 0xFF, A: 0xFF})))

	th, err := things.New()
	must(t, err)
	must(t, th.AddTibiaDataset(c))
	must(t, th.AddSpriteSet(s))

	dir := t.TempDir()
	b, err := sheet.Compress(solid(64, 32, color.NRGBA{B: 0xFF, A: 0xFF}))
	must(t, err)
	must(t, os.WriteFile(filepath.Join(dir, "sheet.bmp.lzma"), b, 0o644))
	sheets := sheet.NewCache(dir, sheet.Catalog{{File: "sheet.bmp.lzma", Type: sheet.TypeSprite, FirstSpriteID: 1, LastSpriteID: 2}})

	app := &appearances.Catalog{}
	app.Add(&appearances.Appearance{
		ID: 5, Category: appearances.CategoryObject, Name: "crate",
		FrameGroups: [][]uint32{{1}}, SpriteIDs: []uint32{1},
		Flags: map[string]appearances.FlagValue{"take": {Kind: appearances.FlagBool, Bool: true}},
	})

	return NewHandler(th, Options{Appearances: app, Sheets: sheets, Thumbnail: 16}).Router()
}

func get(h http.Handler, path string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSprHandler(t *testing.T) {
	h := testHandler(t)
	rec := get(h, "/spr/2.png?scale=2")
	ttesting.AssertEqualInt(t, "status", rec.Code, http.StatusOK)
	img, err := png.Decode(rec.Body)
	must(t, err)
	ttesting.AssertEqualInt(t, "scaled width", img.Bounds().Dx(), 64)

	ttesting.AssertEqualInt(t, "missing sprite", get(h, "/spr/9.png").Code, http.StatusNotFound)
}

func TestItemHandler(t *testing.T) {
	h := testHandler(t)
	rec := get(h, "/item/100.png?fr=1")
	ttesting.AssertEqualInt(t, "status", rec.Code, http.StatusOK)
	ttesting.AssertEqualString(t, "content type", rec.Header().Get("Content-Type"), "image/png")
	etag := rec.Header().Get("ETag")
	ttesting.AssertEqualBool(t, "etag set", etag != "", true)

	ttesting.AssertEqualInt(t, "not modified", get(h, "/item/100.png?fr=1", "If-None-Match", etag).Code, http.StatusNotModified)
	ttesting.AssertEqualInt(t, "other frame", get(h, "/item/100.png", "If-None-Match", etag).Code, http.StatusOK)
	ttesting.AssertEqualInt(t, "unknown item", get(h, "/item/101.png").Code, http.StatusNotFound)
	ttesting.AssertEqualInt(t, "id too large", get(h, "/item/70000.png").Code, http.StatusBadRequest)
}

func TestItemGIFHandler(t *testing.T) {
	rec := get(testHandler(t), "/item/100.gif")
	ttesting.AssertEqualInt(t, "status", rec.Code, http.StatusOK)
	g, err := gif.DecodeAll(rec.Body)
	must(t, err)
	ttesting.AssertEqualInt(t, "frames", len(g.Image), 2)
}

func TestAppearanceHandler(t *testing.T) {
	h := testHandler(t)
	rec := get(h, "/appearance/object/5.json")
	ttesting.AssertEqualInt(t, "status", rec.Code, http.StatusOK)

	var got appearanceJSON
	must(t, json.NewDecoder(rec.Body).Decode(&got))
	ttesting.AssertEqualString(t, "name", got.Name, "crate")
	ttesting.AssertEqualString(t, "flag", got.Flags["take"], "true")
	ttesting.AssertEqualBool(t, "thumbnail", strings.HasPrefix(got.Thumbnail, "data:image/png;base64,"), true)

	ttesting.AssertEqualInt(t, "unknown category", get(h, "/appearance/monster/5.json").Code, http.StatusNotFound)
	ttesting.AssertEqualInt(t, "unknown id", get(h, "/appearance/object/6.json").Code, http.StatusNotFound)
}

func TestSitemap(t *testing.T) {
	rec := get(testHandler(t), "/sitemap.xml")
	ttesting.AssertEqualInt(t, "status", rec.Code, http.StatusOK)
	body := rec.Body.String()
	ttesting.AssertEqualBool(t, "item link", strings.Contains(body, "<loc>http://example.com/item/100.png</loc>"), true)
	ttesting.AssertEqualBool(t, "change freq", strings.Contains(body, "<changefreq>monthly</changefreq>"), true)
}
