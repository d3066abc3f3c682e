// pkg/store/memory.go
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Seed is the on-disk format accepted by NewMemoryFromFile (YAML or JSON):
//
//	config:
//	  AzureAd:TenantId: 00000000-0000-0000-0000-000000000000
//	  Auth:Audience: api://mcpx-admin
//	origins:
//	  - http://localhost:5173
type Seed struct {
	Config  map[string]string `yaml:"config"`
	Origins []string          `yaml:"origins"`
}

type memEntry struct {
	key   string // as written
	value string
}

// Memory is an in-process DAL used for local development and tests.
// Config keys are matched case-insensitively.
type Memory struct {
	mu      sync.RWMutex
	values  map[string]memEntry // lower(key) -> entry
	origins []string
	calls   map[Proc]int
	err     error
}

// NewMemory builds a Memory DAL from config pairs and origin rows.
func NewMemory(config map[string]string, origins []string) *Memory {
	m := &Memory{values: map[string]memEntry{}, calls: map[Proc]int{}}
	for k, v := range config {
		m.values[strings.ToLower(k)] = memEntry{key: k, value: v}
	}
	m.origins = append([]string(nil), origins...)
	return m
}

// NewMemoryFromFile loads a Seed file. An empty path yields an empty store.
func NewMemoryFromFile(path string, log *zap.SugaredLogger) (*Memory, error) {
	if strings.TrimSpace(path) == "" {
		log.Warnw("no STORE_SEED_FILE set; memory store starts empty")
		return NewMemory(nil, nil), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	var s Seed
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse seed %s: %w", path, err)
	}
	log.Infow("memory store seeded", "file", path, "keys", len(s.Config), "origins", len(s.Origins))
	return NewMemory(s.Config, s.Origins), nil
}

// SetValue upserts a config value.
func (m *Memory) SetValue(key, value string) {
	m.mu.Lock()
	m.values[strings.ToLower(key)] = memEntry{key: key, value: value}
	m.mu.Unlock()
}

// SetOrigins replaces the origin rows.
func (m *Memory) SetOrigins(origins ...string) {
	m.mu.Lock()
	m.origins = append([]string(nil), origins...)
	m.mu.Unlock()
}

// Fail makes every subsequent call return err (nil restores normal behaviour).
func (m *Memory) Fail(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// Calls reports how many times proc was invoked.
func (m *Memory) Calls(proc Proc) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[proc]
}

func (m *Memory) begin(proc Proc) error {
	if err := proc.Check(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[proc]++
	return m.err
}

func (m *Memory) Execute(ctx context.Context, proc Proc, params ...Param) (int64, error) {
	rows, err := m.Query(ctx, proc, params...)
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

func (m *Memory) Query(ctx context.Context, proc Proc, params ...Param) ([]Row, error) {
	if err := m.begin(proc); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	switch proc {
	case ProcConfigGetAll:
		out := make([]Row, 0, len(m.values))
		for _, e := range m.values {
			out = append(out, Row{Key: e.key, Value: strPtr(e.value)})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
		return out, nil
	case ProcConfigGetValue:
		v, err := m.value(params)
		if err != nil || v == nil {
			return nil, err
		}
		return []Row{{Value: v}}, nil
	case ProcAllowedOrigins:
		out := make([]Row, 0, len(m.origins))
		for _, o := range m.origins {
			out = append(out, Row{Origin: strPtr(o)})
		}
		return out, nil
	}
	return nil, nil
}

func (m *Memory) QueryString(ctx context.Context, proc Proc, params ...Param) (*string, error) {
	if proc != ProcConfigGetValue {
		rows, err := m.Query(ctx, proc, params...)
		if err != nil || len(rows) == 0 {
			return nil, err
		}
		if rows[0].Origin != nil {
			return rows[0].Origin, nil
		}
		return strPtr(rows[0].Key), nil
	}
	if err := m.begin(proc); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.value(params)
}

// value must be called with m.mu held.
func (m *Memory) value(params []Param) (*string, error) {
	raw, ok := paramValue(params, "key")
	if !ok {
		return nil, errors.New("store: missing key parameter")
	}
	if e, ok := m.values[strings.ToLower(fmt.Sprint(raw))]; ok {
		return strPtr(e.value), nil
	}
	return nil, nil
}
