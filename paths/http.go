package paths

import (
	"bytes"
	"io"
	"net/http"
	"os"
	"sync"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

var (
	cache     map[string][]byte
	cacheLock sync.Mutex

	// HTTPClient fetches URLs passed to Open.
	HTTPClient = http.DefaultClient
)

// openHTTP fetches a whole file into memory so it can be seeked. Fetched files
// are kept for the life of the process.
func openHTTP(url string) (ReadSeekCloser, error) {
	cacheLock.Lock()
	defer cacheLock.Unlock()

	if cache == nil {
		cache = make(map[string][]byte)
	}
	if b, ok := cache[url]; ok {
		glog.V(3).Infof("paths: %q served from http cache", url)
		return &bytesReaderWithDummyClose{bytes.NewReader(b)}, nil
	}

	glog.V(2).Infof("paths: fetching %q", url)
	response, err := HTTPClient.Get(url)
	if err != nil {
		return nil, errors.Wrapf(err, "paths: fetching %q", url)
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		e := os.ErrInvalid
		if response.StatusCode == http.StatusNotFound {
			e = os.ErrNotExist
		}
		return nil, errors.Wrapf(e, "paths: fetching %q: http status %v, want 200", url, response.StatusCode)
	}

	// TODO(ivucica): Explore using ranged reads.
	b, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, errors.Wrap(err, "copying response to seekable buffer")
	}
	cache[url] = b
	return &bytesReaderWithDummyClose{bytes.NewReader(b)}, nil
}

type bytesReaderWithDummyClose struct {
	*bytes.Reader
}

func (bytesReaderWithDummyClose) Close() error {
	return nil
}
