/*
(c) Copyright 2021 Hewlett Packard Enterprise Development LP
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at
http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package concurrent

import (
	"sync"
)

// MapMutex provides a set of named mutexes.  The zone drivers use it to serialize the whole
// fetch-diff-apply sequence against one fabric ("zoning-" + fabric name) while leaving other
// fabrics free to proceed.
type MapMutex struct {
	mapMutex sync.Mutex
	locks    map[string]*namedLock
}

type namedLock struct {
	mutex sync.Mutex
	// waiters counts holders plus goroutines blocked on the mutex so that the entry can be
	// dropped from the map once the last one releases it
	waiters int
}

// NewMapMutex creates an empty set of named mutexes
func NewMapMutex() *MapMutex {
	return &MapMutex{locks: make(map[string]*namedLock)}
}

// Lock acquires the mutex with the given name, creating it on first use
func (m *MapMutex) Lock(name string) {
	m.mapMutex.Lock()
	l, found := m.locks[name]
	if !found {
		l = &namedLock{}
		m.locks[name] = l
	}
	l.waiters++
	m.mapMutex.Unlock()

	l.mutex.Lock()
}

// Unlock releases the mutex with the given name.  Unlocking a name that was never locked is a
// programming error and panics, matching sync.Mutex semantics.
func (m *MapMutex) Unlock(name string) {
	m.mapMutex.Lock()
	l, found := m.locks[name]
	if !found {
		m.mapMutex.Unlock()
		panic("concurrent: unlock of unlocked named mutex " + name)
	}
	l.waiters--
	if l.waiters == 0 {
		delete(m.locks, name)
	}
	m.mapMutex.Unlock()

	l.mutex.Unlock()
}
