package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// memStore is an in-memory Store used by the service tests.
type memStore struct {
	mu   sync.Mutex
	data map[string]map[string]json.RawMessage

	failSaves bool
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string]map[string]json.RawMessage)}
}

func (m *memStore) Save(_ context.Context, collection, key string, record any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSaves {
		return fmt.Errorf("save %s/%s: storage down", collection, key)
	}
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	if m.data[collection] == nil {
		m.data[collection] = make(map[string]json.RawMessage)
	}
	m.data[collection][key] = data
	return nil
}

func (m *memStore) Load(_ context.Context, collection, key string, out any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.data[collection][key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(doc, out)
}

func (m *memStore) LoadAll(_ context.Context, collection string) ([]json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.data[collection]))
	for key := range m.data[collection] {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	docs := make([]json.RawMessage, 0, len(keys))
	for _, key := range keys {
		docs = append(docs, m.data[collection][key])
	}
	return docs, nil
}

func (m *memStore) Delete(_ context.Context, collection, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data[collection], key)
	return nil
}

func (m *memStore) DeleteAll(_ context.Context, collection string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.data[collection]))
	delete(m.data, collection)
	return n, nil
}

// recordingBroadcaster captures published messages for assertions.
type recordingBroadcaster struct {
	mu       sync.Mutex
	messages map[string][]json.RawMessage
}

func newRecordingBroadcaster() *recordingBroadcaster {
	return &recordingBroadcaster{messages: make(map[string][]json.RawMessage)}
}

func (b *recordingBroadcaster) Publish(channelKey string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	b.messages[channelKey] = append(b.messages[channelKey], data)
}

func (b *recordingBroadcaster) published(channelKey string) []json.RawMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]json.RawMessage(nil), b.messages[channelKey]...)
}
