// Package web serves previews of sprites, items and appearances over HTTP.
package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"strconv"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/mux"
	"github.com/nfnt/resize"
	"github.com/vincent-petithory/dataurl"
	"golang.org/x/net/trace"

	"badc0de.net/pkg/tibia-assets/appearances"
	"badc0de.net/pkg/tibia-assets/export"
	"badc0de.net/pkg/tibia-assets/sheet"
	"badc0de.net/pkg/tibia-assets/things"
)

// generation is part of every ETag; bump it if the way images are generated
// changes.
const generation = 2

// Options are the optional data sources of a Handler.
type Options struct {
	Appearances *appearances.Catalog
	// Sheets holds the sprites appearance thumbnails are made from.
	Sheets *sheet.Cache
	// Thumbnail is the edge of appearance thumbnails, in pixels.
	Thumbnail uint
	// ModTime is sent as Last-Modified, unless zero.
	ModTime time.Time
}

type Handler struct {
	th *things.Things
	o  Options
}

// NewHandler constructs web handler for the passed things.
func NewHandler(th *things.Things, o Options) *Handler {
	if o.Thumbnail == 0 {
		o.Thumbnail = 64
	}
	return &Handler{th: th, o: o}
}

func (h *Handler) cached(w http.ResponseWriter, r *http.Request, etag string) bool {
	w.Header().Set("Cache-Control", "public; max-age=36000") // 36000 = 10h
	w.Header().Set("ETag", etag)
	if !h.o.ModTime.IsZero() {
		w.Header().Set("Last-Modified", h.o.ModTime.Format(http.TimeFormat))
	}
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return true
	}
	return false
}

func writePNG(w http.ResponseWriter, img image.Image) {
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if err := png.Encode(w, img); err != nil {
		glog.Errorf("web: writing png: %v", err)
	}
}

// queryInt returns a query parameter, or 0 if it is missing or invalid.
func queryInt(r *http.Request, name string) int {
	v, _ := strconv.Atoi(r.URL.Query().Get(name))
	return v
}

func (h *Handler) sprHandler(w http.ResponseWriter, r *http.Request) {
	s := h.th.SpriteSet()
	if s == nil {
		http.Error(w, "no sprite set loaded", http.StatusNotFound)
		return
	}
	idx, err := strconv.Atoi(mux.Vars(r)["idx"])
	if err != nil {
		http.Error(w, "idx not a number", http.StatusBadRequest)
		return
	}
	scale := max(min(queryInt(r, "scale"), 8), 1)

	etag := fmt.Sprintf(`W/"spr:%d:%08x:%d:%d"`, generation, h.th.SpriteSetSignature(), idx, scale)
	if h.cached(w, r, etag) {
		return
	}

	img, err := s.Sprite(idx)
	if err != nil {
		http.Error(w, "failed to decode spr", http.StatusInternalServerError)
		glog.Errorf("error decoding spr: %v", err)
		return
	}
	if img == nil {
		http.Error(w, "no such sprite", http.StatusNotFound)
		return
	}
	if scale > 1 {
		img = resize.Resize(uint(img.Bounds().Dx()*scale), 0, img, resize.NearestNeighbor)
	}
	writePNG(w, img)
}

func (h *Handler) item(w http.ResponseWriter, r *http.Request) (*things.Item, int, bool) {
	idx, err := strconv.Atoi(mux.Vars(r)["idx"])
	if err != nil || idx > 0xFFFF {
		http.Error(w, "idx not a client id", http.StatusBadRequest)
		return nil, 0, false
	}
	itm, err := h.th.ItemWithClientID(uint16(idx))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return nil, 0, false
	}
	return itm, idx, true
}

func (h *Handler) itemHandler(w http.ResponseWriter, r *http.Request) {
	itm, idx, ok := h.item(w, r)
	if !ok {
		return
	}
	var p struct{ x, y, z, fr int }
	p.x, p.y, p.z, p.fr = queryInt(r, "x"), queryInt(r, "y"), queryInt(r, "z"), queryInt(r, "fr")

	etag := fmt.Sprintf(`W/"item:%d:%08x:%08x:%d:%d.%d.%d.%d:image/png"`, generation, h.th.SpriteSetSignature(), h.th.TibiaDatasetSignature(), idx, p.fr, p.x, p.y, p.z)
	if h.cached(w, r, etag) {
		return
	}

	img, err := itm.ItemFrame(p.fr, p.x, p.y, p.z)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writePNG(w, img)
}

func (h *Handler) itemGIFHandler(w http.ResponseWriter, r *http.Request) {
	itm, idx, ok := h.item(w, r)
	if !ok {
		return
	}
	etag := fmt.Sprintf(`W/"item:%d:%08x:%08x:%d:image/gif"`, generation, h.th.SpriteSetSignature(), h.th.TibiaDatasetSignature(), idx)
	if h.cached(w, r, etag) {
		return
	}

	var f export.Frames
	for fr := 0; fr < itm.Frames(); fr++ {
		img, err := itm.ItemFrame(fr, 0, 0, 0)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		f.Images = append(f.Images, img)
		f.Delays = append(f.Delays, itm.FrameDuration(fr))
	}
	buf := &bytes.Buffer{}
	if err := export.EncodeAnimation(buf, f.Images, f.Delays); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/gif")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// appearanceJSON is what the appearance endpoint returns.
type appearanceJSON struct {
	ID          uint32            `json:"id"`
	Category    string            `json:"category"`
	Name        string            `json:"name,omitempty"`
	Description string            `json:"description,omitempty"`
	Flags       map[string]string `json:"flags"`
	FrameGroups [][]uint32        `json:"frame_groups"`
	Thumbnail   string            `json:"thumbnail,omitempty"`
}

func (h *Handler) appearanceHandler(w http.ResponseWriter, r *http.Request) {
	if h.o.Appearances == nil {
		http.Error(w, "no appearances loaded", http.StatusNotFound)
		return
	}
	vars := mux.Vars(r)
	cat, err := appearances.ParseCategory(vars["category"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	id, err := strconv.ParseUint(vars["id"], 10, 32)
	if err != nil {
		http.Error(w, "id not a number", http.StatusBadRequest)
		return
	}
	a, ok := h.o.Appearances.ByID(cat, uint32(id))
	if !ok {
		http.Error(w, fmt.Sprintf("no %s %d", cat, id), http.StatusNotFound)
		return
	}

	out := appearanceJSON{
		ID:          a.ID,
		Category:    a.Category.String(),
		Name:        a.Name,
		Description: a.Description,
		Flags:       make(map[string]string, len(a.Flags)),
		FrameGroups: a.FrameGroups,
	}
	for k, v := range a.Flags {
		out.Flags[k] = v.String()
	}
	if thumb, err := h.thumbnail(a); err != nil {
		glog.V(2).Infof("web: no thumbnail for %s %d: %v", cat, id, err)
	} else {
		out.Thumbnail = thumb
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		glog.Errorf("web: writing json: %v", err)
	}
}

// thumbnail returns the appearance's first sprite as a PNG data URL.
func (h *Handler) thumbnail(a *appearances.Appearance) (string, error) {
	if h.o.Sheets == nil {
		return "", fmt.Errorf("no sprite sheets loaded")
	}
	if len(a.SpriteIDs) == 0 {
		return "", fmt.Errorf("no sprites")
	}
	img, err := h.o.Sheets.Sprite(a.SpriteIDs[0])
	if err != nil {
		return "", err
	}
	thumb := resize.Thumbnail(h.o.Thumbnail, h.o.Thumbnail, img, resize.NearestNeighbor)
	buf := &bytes.Buffer{}
	if err := png.Encode(buf, thumb); err != nil {
		return "", err
	}
	byt, err := dataurl.New(buf.Bytes(), "image/png").MarshalText()
	if err != nil {
		return "", fmt.Errorf("failed to encode data url: %w", err)
	}
	return string(byt), nil
}

// traced records each request in the x/net/trace request log.
func traced(family string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tr := trace.New("web."+family, r.URL.Path)
		defer tr.Finish()
		tr.LazyPrintf("%s %s", r.Method, r.URL)
		next(w, r)
	}
}

func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/spr/{idx:[0-9]+}.png", traced("spr", h.sprHandler))
	r.HandleFunc("/item/{idx:[0-9]+}.png", traced("item", h.itemHandler))
	r.HandleFunc("/item/{idx:[0-9]+}.gif", traced("item", h.itemGIFHandler))
	r.HandleFunc("/appearance/{category:[a-z]+}/{id:[0-9]+}.json", traced("appearance", h.appearanceHandler))
	r.HandleFunc("/sitemap.xml", traced("sitemap", h.sitemapHandler))
	r.HandleFunc("/debug/requests", trace.Traces)
}

// Router returns a router with all routes registered.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	h.RegisterRoutes(r)
	return r
}
