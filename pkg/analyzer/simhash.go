package analyzer

import (
	"hash/fnv"
	"math/bits"
	"sync"

	"github.com/amosWeiskopf/auditsmith/pkg/utils"
)

const shingleSize = 3

// ContentIndex remembers the content fingerprints of pages already analyzed
// in one audit. It is safe for concurrent use.
type ContentIndex struct {
	mu     sync.Mutex
	titles map[string]string // title -> first page using it
	hashes []fingerprint
}

type fingerprint struct {
	url  string
	hash uint64
}

// NewContentIndex returns an empty index
func NewContentIndex() *ContentIndex {
	return &ContentIndex{titles: make(map[string]string)}
}

// seenTitle records title for pageURL and returns the earlier page that
// already used it, if any.
func (ci *ContentIndex) seenTitle(title, pageURL string) (string, bool) {
	ci.mu.Lock()
	defer ci.mu.Unlock()
	if prev, ok := ci.titles[title]; ok && prev != pageURL {
		return prev, true
	}
	ci.titles[title] = pageURL
	return "", false
}

// nearest records the fingerprint of pageURL and returns the most similar
// page seen before it together with the similarity in [0,1].
func (ci *ContentIndex) nearest(pageURL string, hash uint64) (string, float64) {
	ci.mu.Lock()
	defer ci.mu.Unlock()
	best, bestSim := "", 0.0
	for _, fp := range ci.hashes {
		if sim := similarity(fp.hash, hash); sim > bestSim {
			best, bestSim = fp.url, sim
		}
	}
	ci.hashes = append(ci.hashes, fingerprint{url: pageURL, hash: hash})
	return best, bestSim
}

// simhash computes a 64-bit locality sensitive fingerprint of text over word
// shingles. ok is false when text has no words.
func simhash(text string) (hash uint64, ok bool) {
	shingles := utils.Shingles(text, shingleSize)
	if len(shingles) == 0 {
		return 0, false
	}
	var votes [64]int
	h := fnv.New64a()
	for _, s := range shingles {
		h.Reset()
		_, _ = h.Write([]byte(s))
		sum := h.Sum64()
		for bit := 0; bit < 64; bit++ {
			if sum&(1<<uint(bit)) != 0 {
				votes[bit]++
			} else {
				votes[bit]--
			}
		}
	}
	for bit := 0; bit < 64; bit++ {
		if votes[bit] > 0 {
			hash |= 1 << uint(bit)
		}
	}
	return hash, true
}

func similarity(a, b uint64) float64 {
	return 1 - float64(bits.OnesCount64(a^b))/64
}
