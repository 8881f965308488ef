package rtdb

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// MemoryGateway is an in-process Gateway used by tests. Values round-trip
// through JSON so struct reads and writes behave like the real database.
// A single mutex held across Transaction callbacks makes the transaction
// primitive genuinely atomic against concurrent goroutines.
type MemoryGateway struct {
	mu   sync.Mutex
	root map[string]interface{}
	seq  int
}

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{root: make(map[string]interface{})}
}

func splitPath(path string) []string {
	var parts []string
	for _, p := range strings.Split(path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// toJSONValue normalizes v into the map/slice/primitive shape JSON
// round-tripping produces, the same shape the real database stores.
func toJSONValue(v interface{}) (interface{}, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// lookup walks the tree without locking; callers hold mu.
func (g *MemoryGateway) lookup(parts []string) (interface{}, bool) {
	var cur interface{} = g.root
	for _, p := range parts {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// setAt writes value at parts, creating intermediate maps; callers hold mu.
func (g *MemoryGateway) setAt(parts []string, value interface{}) {
	m := g.root
	for _, p := range parts[:len(parts)-1] {
		child, ok := m[p].(map[string]interface{})
		if !ok {
			child = make(map[string]interface{})
			m[p] = child
		}
		m = child
	}
	if value == nil {
		delete(m, parts[len(parts)-1])
		return
	}
	m[parts[len(parts)-1]] = value
}

func decodeInto(node interface{}, v interface{}) error {
	b, err := json.Marshal(node)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

func (g *MemoryGateway) Get(_ context.Context, path string, v interface{}) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	node, ok := g.lookup(splitPath(path))
	if !ok {
		return nil
	}
	return decodeInto(node, v)
}

func (g *MemoryGateway) Set(_ context.Context, path string, v interface{}) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	val, err := toJSONValue(v)
	if err != nil {
		return err
	}
	g.setAt(splitPath(path), val)
	return nil
}

func (g *MemoryGateway) Update(_ context.Context, path string, fields map[string]interface{}) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	parts := splitPath(path)
	node, ok := g.lookup(parts)
	m, isMap := node.(map[string]interface{})
	if !ok || !isMap {
		m = make(map[string]interface{})
		g.setAt(parts, m)
	}
	for k, v := range fields {
		val, err := toJSONValue(v)
		if err != nil {
			return err
		}
		m[k] = val
	}
	return nil
}

func (g *MemoryGateway) Push(_ context.Context, path string, v interface{}) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.seq++
	key := fmt.Sprintf("-K%012d", g.seq)

	val, err := toJSONValue(v)
	if err != nil {
		return "", err
	}
	g.setAt(append(splitPath(path), key), val)
	return key, nil
}

type memoryNode struct {
	data interface{}
}

func (n memoryNode) Unmarshal(v interface{}) error {
	if n.data == nil {
		return nil
	}
	return decodeInto(n.data, v)
}

func (g *MemoryGateway) Transaction(_ context.Context, path string, fn UpdateFn) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	parts := splitPath(path)
	current, _ := g.lookup(parts)

	next, err := fn(memoryNode{data: current})
	if err != nil {
		return err
	}

	val, err := toJSONValue(next)
	if err != nil {
		return err
	}
	g.setAt(parts, val)
	return nil
}
