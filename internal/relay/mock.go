package relay

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/dukaanlabs/dukaan/internal/log"
)

// builtinFixtures is the canned-response table used when no fixtures
// file is configured. Values are served verbatim as the data field of a
// mock response.
const builtinFixtures = `
search_products:
  - name: Lakme 9to5 Primer Matte Lipstick
    slug: lakme-9to5-primer-matte-lipstick
    brand: Lakme
    price:
      effective: 499
      marked: 600
    effectivePrice: 499
    markedPrice: 600
    discount: 17% OFF
    itemId: 1001
    articleId: "39_1001"
  - name: Maybelline Colossal Kajal
    slug: maybelline-colossal-kajal
    brand: Maybelline
    price:
      effective: 225
      marked: 250
    effectivePrice: 225
    markedPrice: 250
    discount: 10% OFF
    itemId: 1002
    articleId: "39_1002"

get_product_details:
  name: Lakme 9to5 Primer Matte Lipstick
  slug: lakme-9to5-primer-matte-lipstick
  brand: Lakme
  price:
    effective: 499
    marked: 600
  effectivePrice: 499
  markedPrice: 600
  availability: In Stock (24 available)
  inStock: true
  stockCount: 24
  returnable: true
  cashOnDelivery: true
  deliveryEstimate: 2-4 days

get_categories:
  - Makeup
  - Skincare
  - Haircare
  - Fragrance
`

// MockResponder serves canned responses keyed by tool name when the
// remote server is unreachable. Fixtures come from a YAML file when
// configured, with hot reload on change, or from built-in sample data.
type MockResponder struct {
	mu       sync.RWMutex
	fixtures map[string]any
	path     string
	watcher  *fsnotify.Watcher
	done     chan struct{}
}

// NewMockResponder loads fixtures from path, or the built-in table when
// path is empty. A configured file is watched and reloaded on change.
func NewMockResponder(path string) (*MockResponder, error) {
	m := &MockResponder{path: path, done: make(chan struct{})}

	if path == "" {
		fixtures, err := parseFixtures([]byte(builtinFixtures))
		if err != nil {
			return nil, fmt.Errorf("parse built-in fixtures: %w", err)
		}
		m.fixtures = fixtures
		return m, nil
	}

	if err := m.loadFile(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fixtures watcher: %w", err)
	}
	// Watch the directory rather than the file: editors that replace
	// the file on save would otherwise drop the watch.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch fixtures directory: %w", err)
	}
	m.watcher = watcher

	go m.watch()

	return m, nil
}

// Lookup returns the canned response for a tool, if one exists.
func (m *MockResponder) Lookup(tool string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.fixtures[tool]
	return data, ok
}

// Tools returns the tool names the responder has fixtures for.
func (m *MockResponder) Tools() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tools := make([]string, 0, len(m.fixtures))
	for name := range m.fixtures {
		tools = append(tools, name)
	}
	return tools
}

// Close stops the fixtures watcher.
func (m *MockResponder) Close() error {
	close(m.done)
	if m.watcher != nil {
		return m.watcher.Close()
	}
	return nil
}

func (m *MockResponder) loadFile() error {
	raw, err := os.ReadFile(m.path)
	if err != nil {
		return fmt.Errorf("read fixtures file: %w", err)
	}
	fixtures, err := parseFixtures(raw)
	if err != nil {
		return fmt.Errorf("parse fixtures file %s: %w", m.path, err)
	}

	m.mu.Lock()
	m.fixtures = fixtures
	m.mu.Unlock()

	log.Info(log.CatMock, "fixtures loaded", "path", m.path, "tools", len(fixtures))
	return nil
}

func (m *MockResponder) watch() {
	for {
		select {
		case <-m.done:
			return
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(m.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := m.loadFile(); err != nil {
				// Keep serving the previous table on a bad edit.
				log.ErrorErr(log.CatMock, "fixtures reload failed", err)
			}
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			log.ErrorErr(log.CatMock, "fixtures watcher error", err)
		}
	}
}

func parseFixtures(raw []byte) (map[string]any, error) {
	var fixtures map[string]any
	if err := yaml.Unmarshal(raw, &fixtures); err != nil {
		return nil, err
	}
	if fixtures == nil {
		fixtures = map[string]any{}
	}
	return fixtures, nil
}
