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

package fileaccess

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/pixlise/pixelrender/core/utils"
)

// MemoryAccess - FileAccess held in a map, for unit tests and single-process runs that don't need
// anything to survive a restart
type MemoryAccess struct {
	mutex   sync.RWMutex
	objects map[string][]byte
}

func NewMemoryAccess() *MemoryAccess {
	return &MemoryAccess{objects: map[string][]byte{}}
}

func memKey(bucket string, path string) string {
	return bucket + "\x00" + path
}

func notFound(bucket string, path string) error {
	return fmt.Errorf("%v/%v: %w", bucket, path, os.ErrNotExist)
}

func (m *MemoryAccess) ListObjects(bucket string, prefix string) ([]string, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	result := []string{}
	keyPrefix := memKey(bucket, prefix)
	for k := range m.objects {
		if strings.HasPrefix(k, keyPrefix) {
			result = append(result, k[len(bucket)+1:])
		}
	}
	sort.Strings(result)
	return result, nil
}

func (m *MemoryAccess) ObjectExists(bucket string, path string) (bool, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	_, ok := m.objects[memKey(bucket, path)]
	return ok, nil
}

func (m *MemoryAccess) ReadObject(bucket string, path string) ([]byte, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	data, ok := m.objects[memKey(bucket, path)]
	if !ok {
		return nil, notFound(bucket, path)
	}

	result := make([]byte, len(data))
	copy(result, data)
	return result, nil
}

func (m *MemoryAccess) WriteObject(bucket string, path string, data []byte) error {
	stored := make([]byte, len(data))
	copy(stored, data)

	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.objects[memKey(bucket, path)] = stored
	return nil
}

func (m *MemoryAccess) ReadJSON(bucket string, path string, itemsPtr interface{}, emptyIfNotFound bool) error {
	data, err := m.ReadObject(bucket, path)
	if err != nil {
		if emptyIfNotFound && m.IsNotFoundError(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, itemsPtr)
}

func (m *MemoryAccess) WriteJSON(bucket string, path string, itemsPtr interface{}) error {
	data, err := json.MarshalIndent(itemsPtr, "", utils.PrettyPrintIndentForJSON)
	if err != nil {
		return err
	}
	return m.WriteObject(bucket, path, data)
}

func (m *MemoryAccess) DeleteObject(bucket string, path string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	k := memKey(bucket, path)
	if _, ok := m.objects[k]; !ok {
		return notFound(bucket, path)
	}
	delete(m.objects, k)
	return nil
}

func (m *MemoryAccess) CopyObject(srcBucket string, srcPath string, dstBucket string, dstPath string) error {
	data, err := m.ReadObject(srcBucket, srcPath)
	if err != nil {
		return err
	}
	return m.WriteObject(dstBucket, dstPath, data)
}

func (m *MemoryAccess) IsNotFoundError(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
