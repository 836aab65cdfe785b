package kv

// Memory is a process-local Store, grounded on kv.Memory in
// original_source/tic/state/kv.py. The Python original optionally pickles
// values to enforce immutability; here values already arrive pre-encoded
// ([]byte) from the state layer, so Memory just holds them.
type Memory struct {
	data map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(key string) ([]byte, bool) {
	v, ok := m.data[key]
	return v, ok
}

func (m *Memory) Set(key string, value []byte) {
	m.data[key] = value
}

func (m *Memory) GetMany(keys ...string) map[string][]byte {
	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if v, ok := m.data[k]; ok {
			out[k] = v
		}
	}
	return out
}

func (m *Memory) SetMany(kv map[string][]byte) {
	for k, v := range kv {
		m.data[k] = v
	}
}

func (m *Memory) Items() map[string][]byte {
	out := make(map[string][]byte, len(m.data))
	for k, v := range m.data {
		out[k] = v
	}
	return out
}

func (m *Memory) Has(key string) bool {
	_, ok := m.data[key]
	return ok
}
