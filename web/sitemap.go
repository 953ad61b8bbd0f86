package web

import (
	"encoding/xml"
	"fmt"
	"net/http"

	"github.com/golang/glog"

	"badc0de.net/pkg/tibia-assets/dat"
)

type SitemapChangeFreq int

const (
	SitemapChangeFreqUnspecified SitemapChangeFreq = iota
	SitemapChangeFreqDaily
	SitemapChangeFreqMonthly
	SitemapChangeFreqNever
)

func (s SitemapChangeFreq) String() string {
	switch s {
	case SitemapChangeFreqDaily:
		return "daily"
	case SitemapChangeFreqMonthly:
		return "monthly"
	case SitemapChangeFreqNever:
		return "never"
	}
	return ""
}

func (s SitemapChangeFreq) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type SitemapURLImage struct {
	Loc string `xml:"image:loc"` // image is the namespace 'http://www.google.com/schemas/sitemap-image/1.1'
}

type SitemapURL struct {
	XMLName    xml.Name          `xml:"url"`
	Loc        string            `xml:"loc"`
	ChangeFreq SitemapChangeFreq `xml:"changefreq,omitempty"`

	Image []SitemapURLImage `xml:"image:image,omitempty"`
}

// SitemapURLSet holds up to 50k urls.
type SitemapURLSet struct {
	XMLName    xml.Name     `xml:"http://www.sitemaps.org/schemas/sitemap/0.9 urlset"`
	XMLNSImage string       `xml:"xmlns:image,attr"`
	URL        []SitemapURL `xml:"url,omitempty"`
}

func (e *SitemapURLSet) Write(w http.ResponseWriter) {
	e.XMLNSImage = "http://www.google.com/schemas/sitemap-image/1.1"

	w.Header().Set("Content-Type", "application/xml")
	fmt.Fprintf(w, "%s", xml.Header)
	enc := xml.NewEncoder(w)
	enc.Indent("", " ")
	if err := enc.Encode(e); err != nil {
		glog.Errorf("web: could not encode sitemap: %v", err)
	}
}

// sitemapHandler lists the image of every dataset item. Links are absolute,
// built from the request's host.
func (h *Handler) sitemapHandler(w http.ResponseWriter, r *http.Request) {
	c := h.th.TibiaDataset()
	if c == nil {
		http.Error(w, "no dataset loaded", http.StatusNotFound)
		return
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	base := scheme + "://" + r.Host

	set := &SitemapURLSet{}
	for i, t := range c.Things(dat.CategoryItem) {
		if t.Missing() {
			continue
		}
		id := int(dat.CategoryItem.FirstID()) + i
		set.URL = append(set.URL, SitemapURL{
			Loc:        fmt.Sprintf("%s/item/%d.png", base, id),
			ChangeFreq: SitemapChangeFreqMonthly,
			Image:      []SitemapURLImage{{Loc: fmt.Sprintf("%s/item/%d.gif", base, id)}},
		})
		if len(set.URL) == 50000 {
			break
		}
	}
	set.Write(w)
}
