// Package fetchtest serves an in-memory component registry over httptest
// for tests of code that fetches from registries.
package fetchtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/agentx-labs/compkg/internal/manifest"
)

// Server is a fake registry. The zero value is not usable; call New.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	packuments map[string]*packument
	files      map[string]map[string][]byte
	index      *manifest.RegistryIndex
	failures   map[string][]int
	hits       map[string]int
	lastHeader http.Header
}

type packument struct {
	distTags map[string]string
	versions map[string]json.RawMessage
}

// New starts a registry server that is closed when t finishes.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		packuments: make(map[string]*packument),
		files:      make(map[string]map[string][]byte),
		failures:   make(map[string][]int),
		hits:       make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// Publish adds c under version and marks it latest. Files listed in c that
// have no content yet are served as "<name>:<path>".
func (s *Server) Publish(t testing.TB, version string, c manifest.Component) {
	t.Helper()
	raw, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal %s: %v", c.Name, err)
	}
	s.PublishRaw(c.Name, version, string(raw))

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range c.Files {
		if _, ok := s.files[c.Name][f.Source]; !ok {
			s.setFileLocked(c.Name, f.Source, []byte(c.Name+":"+f.Source))
		}
	}
}

// PublishRaw adds a raw manifest document under version and marks it latest.
func (s *Server) PublishRaw(name, version, doc string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.packuments[name]
	if !ok {
		p = &packument{distTags: map[string]string{}, versions: map[string]json.RawMessage{}}
		s.packuments[name] = p
	}
	p.versions[version] = json.RawMessage(doc)
	p.distTags["latest"] = version
}

// SetDistTag points tag at version. An empty version removes the tag.
func (s *Server) SetDistTag(name, tag, version string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.packuments[name]
	if !ok {
		return
	}
	if version == "" {
		delete(p.distTags, tag)
		return
	}
	p.distTags[tag] = version
}

// SetFile sets the bytes served for one file of a component.
func (s *Server) SetFile(name, path, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setFileLocked(name, path, []byte(content))
}

func (s *Server) setFileLocked(name, path string, content []byte) {
	if s.files[name] == nil {
		s.files[name] = make(map[string][]byte)
	}
	s.files[name][path] = content
}

// SetIndex sets the document served at /index.json.
func (s *Server) SetIndex(idx manifest.RegistryIndex) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = &idx
}

// FailNext makes the next requests for urlPath answer with the given
// statuses, one per request, before normal service resumes.
func (s *Server) FailNext(urlPath string, statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[urlPath] = append(s.failures[urlPath], statuses...)
}

// Hits returns how many requests reached urlPath.
func (s *Server) Hits(urlPath string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[urlPath]
}

// TotalHits returns the number of requests served.
func (s *Server) TotalHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, h := range s.hits {
		n += h
	}
	return n
}

// LastHeader returns a header of the most recent request.
func (s *Server) LastHeader(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastHeader == nil {
		return ""
	}
	return s.lastHeader.Get(key)
}

// ComponentPath is the URL path of name's packument.
func ComponentPath(name string) string { return "/components/" + name + ".json" }

// FilePath is the URL path of one component file.
func FilePath(name, path string) string { return "/components/" + name + "/" + path }

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := r.URL.Path
	s.hits[p]++
	s.lastHeader = r.Header.Clone()

	if queued := s.failures[p]; len(queued) > 0 {
		s.failures[p] = queued[1:]
		http.Error(w, http.StatusText(queued[0]), queued[0])
		return
	}

	switch {
	case p == "/index.json":
		if s.index == nil {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, s.index)
	case strings.HasPrefix(p, "/components/") && strings.HasSuffix(p, ".json") && strings.Count(p, "/") == 2:
		name := strings.TrimSuffix(strings.TrimPrefix(p, "/components/"), ".json")
		pk, ok := s.packuments[name]
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, map[string]any{
			"name":      name,
			"dist-tags": pk.distTags,
			"versions":  pk.versions,
		})
	case strings.HasPrefix(p, "/components/"):
		rest := strings.TrimPrefix(p, "/components/")
		name, file, ok := strings.Cut(rest, "/")
		if !ok {
			http.NotFound(w, r)
			return
		}
		data, ok := s.files[name][file]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(data)
	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
