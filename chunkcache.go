package ewf

import "container/list"

// chunkCache is a bounded LRU of decoded (already unpacked) chunk bytes,
// keyed by global chunk index. Same container/list-based shape as
// package filepool's descriptor LRU, reused here for the same reason:
// avoid re-inflating a chunk that was just read (spec.md §5's "cache
// decoded chunks, not raw" guidance for sequential/random read mixes).
type chunkCache struct {
	maxEntries int
	lru        *list.List
	index      map[uint64]*list.Element
}

type chunkCacheEntry struct {
	chunkIndex uint64
	data       []byte
}

func newChunkCache(maxEntries int) *chunkCache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &chunkCache{maxEntries: maxEntries, lru: list.New(), index: make(map[uint64]*list.Element)}
}

func (c *chunkCache) get(chunkIndex uint64) ([]byte, bool) {
	elem, ok := c.index[chunkIndex]
	if !ok {
		return nil, false
	}
	c.lru.MoveToFront(elem)
	return elem.Value.(*chunkCacheEntry).data, true
}

func (c *chunkCache) put(chunkIndex uint64, data []byte) {
	if elem, ok := c.index[chunkIndex]; ok {
		elem.Value.(*chunkCacheEntry).data = data
		c.lru.MoveToFront(elem)
		return
	}
	elem := c.lru.PushFront(&chunkCacheEntry{chunkIndex: chunkIndex, data: data})
	c.index[chunkIndex] = elem
	for c.lru.Len() > c.maxEntries {
		back := c.lru.Back()
		c.lru.Remove(back)
		delete(c.index, back.Value.(*chunkCacheEntry).chunkIndex)
	}
}
