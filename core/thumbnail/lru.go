// Licensed to NASA JPL under one or more contributor
// license agreements. See the NOTICE file distributed with
// this work for additional information regarding copyright
// ownership. NASA JPL licenses this file to you under
// the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package thumbnail

import (
	"container/list"
	"sync"

	"github.com/pixlise/pixelrender/core/bitmap"
)

type lruItem struct {
	key Key
	bmp *bitmap.Bitmap
}

// lruCache - bitmaps by key, least recently used dropped once the total exceeds budgetBytes. Only
// holds its lock for map/list operations, never while rendering
type lruCache struct {
	mutex       sync.Mutex
	budgetBytes int
	usedBytes   int
	order       *list.List
	items       map[Key]*list.Element
}

func newLRUCache(budgetBytes int) *lruCache {
	return &lruCache{
		budgetBytes: budgetBytes,
		order:       list.New(),
		items:       map[Key]*list.Element{},
	}
}

func (c *lruCache) get(key Key) (*bitmap.Bitmap, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*lruItem).bmp, true
}

// add - returns how many entries were evicted to make room. A bitmap larger than the whole budget
// isn't kept
func (c *lruCache) add(key Key, bmp *bitmap.Bitmap) int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if elem, ok := c.items[key]; ok {
		c.usedBytes -= elem.Value.(*lruItem).bmp.SizeBytes()
		c.order.Remove(elem)
		delete(c.items, key)
	}

	if bmp.SizeBytes() > c.budgetBytes {
		return 0
	}

	c.items[key] = c.order.PushFront(&lruItem{key: key, bmp: bmp})
	c.usedBytes += bmp.SizeBytes()

	evicted := 0
	for c.usedBytes > c.budgetBytes {
		oldest := c.order.Back()
		item := oldest.Value.(*lruItem)
		c.order.Remove(oldest)
		delete(c.items, item.key)
		c.usedBytes -= item.bmp.SizeBytes()
		evicted++
	}
	return evicted
}

func (c *lruCache) stats() (int, int) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.items), c.usedBytes
}
