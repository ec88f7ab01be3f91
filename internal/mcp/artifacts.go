package mcp

import (
	"sync"
	"time"
)

// DefaultArtifactCapBytes bounds the total PNG bytes kept in memory across
// all stored screenshots.
const DefaultArtifactCapBytes = 32 << 20

// Artifact is one captured screenshot retained for later retrieval.
type Artifact struct {
	Token      string
	PNG        []byte
	Width      int
	Height     int
	CapturedAt time.Time
}

// ArtifactStore keeps recent screenshots in memory, newest last. When the
// byte cap is exceeded the oldest artifacts are evicted first. Nothing is
// persisted.
type ArtifactStore struct {
	mu       sync.Mutex
	items    []Artifact
	total    int
	capBytes int
}

// NewArtifactStore creates a store with the given byte cap.
func NewArtifactStore(capBytes int) *ArtifactStore {
	if capBytes <= 0 {
		capBytes = DefaultArtifactCapBytes
	}
	return &ArtifactStore{capBytes: capBytes}
}

// Put stores an artifact, evicting from the oldest end to stay under the cap.
// An artifact larger than the cap itself replaces the whole store content.
func (a *ArtifactStore) Put(art Artifact) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.items = append(a.items, art)
	a.total += len(art.PNG)

	for a.total > a.capBytes && len(a.items) > 1 {
		a.total -= len(a.items[0].PNG)
		a.items[0] = Artifact{}
		a.items = a.items[1:]
	}
}

// Latest returns the most recent artifact, or false when the store is empty.
func (a *ArtifactStore) Latest() (Artifact, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.items) == 0 {
		return Artifact{}, false
	}
	return a.items[len(a.items)-1], true
}

// Len reports the number of stored artifacts.
func (a *ArtifactStore) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.items)
}
