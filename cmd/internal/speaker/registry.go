// Package speaker maintains stable global speaker identities across audio
// chunks. The registry is the single piece of cross-chunk mutable state in
// the pipeline; it is owned exclusively by the tracker and never shared.
package speaker

import "fmt"

// GlobalSpeakerRegistry mints global speaker IDs and keeps a bounded rolling
// embedding profile per ID. IDs are never reused and never reassigned.
type GlobalSpeakerRegistry struct {
	ids         []string             // minting order, for deterministic iteration
	profiles    map[string][][]float64 // id -> last maxProfiles embeddings
	counter     int
	maxProfiles int
}

// NewGlobalSpeakerRegistry creates an empty registry keeping at most
// maxProfiles embeddings per speaker.
func NewGlobalSpeakerRegistry(maxProfiles int) *GlobalSpeakerRegistry {
	if maxProfiles < 1 {
		maxProfiles = 1
	}
	return &GlobalSpeakerRegistry{
		profiles:    make(map[string][][]float64),
		maxProfiles: maxProfiles,
	}
}

// NextID mints a fresh global speaker ID. The counter only moves forward.
func (r *GlobalSpeakerRegistry) NextID() string {
	id := fmt.Sprintf("SPK_%03d", r.counter)
	r.counter++
	r.ids = append(r.ids, id)
	r.profiles[id] = nil
	return id
}

// AddEmbedding appends an embedding to the speaker's rolling window,
// discarding the oldest entry once the window is full.
func (r *GlobalSpeakerRegistry) AddEmbedding(id string, embedding []float64) {
	window := append(r.profiles[id], embedding)
	if len(window) > r.maxProfiles {
		window = window[len(window)-r.maxProfiles:]
	}
	r.profiles[id] = window
}

// Profile returns the mean of the speaker's rolling embedding window, the
// comparison vector used when matching the next chunk. Returns nil for a
// speaker with no embeddings yet.
func (r *GlobalSpeakerRegistry) Profile(id string) []float64 {
	window := r.profiles[id]
	if len(window) == 0 {
		return nil
	}
	dim := len(window[0])
	mean := make([]float64, dim)
	for _, emb := range window {
		for i, x := range emb {
			mean[i] += x
		}
	}
	for i := range mean {
		mean[i] /= float64(len(window))
	}
	return mean
}

// IDs returns all global speaker IDs in minting order.
func (r *GlobalSpeakerRegistry) IDs() []string {
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}

// Count returns the number of distinct speakers registered so far.
func (r *GlobalSpeakerRegistry) Count() int {
	return len(r.ids)
}
