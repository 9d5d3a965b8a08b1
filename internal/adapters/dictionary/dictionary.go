// Package dictionary implements ports.Dictionary from a YAML file.
//
// File layout:
//
//	channels:
//	  - id: A-1234
//	    name: BATT_VOLTAGE
//	    type: FLOAT
//	    definition_type: FSW
//	    eu_units: V
//	events:
//	  fsw:
//	    - {id: 9001, name: FSW_BOOT, level: COMMAND, category: boot}
//	  sse:
//	    - {id: 12, name: SSE_LINK_UP, level: ACTIVITY_LO}
//
// A Watcher reloads the file when it changes.
package dictionary

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/bft-labs/ladcache/internal/domain"
)

type fileChannel struct {
	ID             string `yaml:"id"`
	Name           string `yaml:"name"`
	Type           string `yaml:"type"`
	DefinitionType string `yaml:"definition_type"`
	Units          string `yaml:"units"`
	EUUnits        string `yaml:"eu_units"`
	Subsystem      string `yaml:"subsystem"`
}

type fileEvent struct {
	ID       int64  `yaml:"id"`
	Name     string `yaml:"name"`
	Level    string `yaml:"level"`
	Category string `yaml:"category"`
}

type fileLayout struct {
	Channels []fileChannel `yaml:"channels"`
	Events   struct {
		FSW []fileEvent `yaml:"fsw"`
		SSE []fileEvent `yaml:"sse"`
	} `yaml:"events"`
}

type eventKey struct {
	id  int64
	fsw bool
}

// Dictionary holds channel and event definitions. It is safe for
// concurrent use; Reload swaps the whole content at once.
type Dictionary struct {
	mu       sync.RWMutex
	path     string
	channels map[string]domain.ChannelDefinition
	events   map[eventKey]domain.EventDefinition
}

// New creates an empty dictionary. Every lookup misses until Load or Parse.
func New() *Dictionary {
	return &Dictionary{
		channels: make(map[string]domain.ChannelDefinition),
		events:   make(map[eventKey]domain.EventDefinition),
	}
}

// Load creates a dictionary from the YAML file at path.
func Load(path string) (*Dictionary, error) {
	d := New()
	d.path = path
	if err := d.Reload(); err != nil {
		return nil, err
	}
	return d, nil
}

// Path returns the file the dictionary was loaded from.
func (d *Dictionary) Path() string {
	return d.path
}

// Reload re-reads the dictionary file. On error the current content is kept.
func (d *Dictionary) Reload() error {
	data, err := os.ReadFile(d.path)
	if err != nil {
		return fmt.Errorf("read dictionary: %w", err)
	}
	return d.Parse(data)
}

// Parse replaces the content with the YAML document in data.
func (d *Dictionary) Parse(data []byte) error {
	var f fileLayout
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse dictionary: %w", err)
	}

	channels := make(map[string]domain.ChannelDefinition, len(f.Channels))
	for i, c := range f.Channels {
		if c.ID == "" {
			return fmt.Errorf("parse dictionary: channel %d has no id", i)
		}
		if _, dup := channels[c.ID]; dup {
			return fmt.Errorf("parse dictionary: duplicate channel %q", c.ID)
		}
		def := domain.ChannelDefinition{
			ID:             c.ID,
			Name:           c.Name,
			Type:           domain.ParseChannelType(strings.ToUpper(c.Type)),
			DefinitionType: domain.DefinitionType(strings.ToUpper(c.DefinitionType)),
			Units:          c.Units,
			EUUnits:        c.EUUnits,
			Subsystem:      c.Subsystem,
		}
		if def.Name == "" {
			def.Name = c.ID
		}
		if def.DefinitionType == "" {
			def.DefinitionType = domain.DefinitionFSW
		}
		channels[c.ID] = def
	}

	events := make(map[eventKey]domain.EventDefinition, len(f.Events.FSW)+len(f.Events.SSE))
	add := func(list []fileEvent, fsw bool) error {
		for _, e := range list {
			k := eventKey{id: e.ID, fsw: fsw}
			if _, dup := events[k]; dup {
				return fmt.Errorf("parse dictionary: duplicate event %d", e.ID)
			}
			events[k] = domain.EventDefinition{
				ID:       e.ID,
				Name:     e.Name,
				Level:    e.Level,
				FSW:      fsw,
				Category: e.Category,
			}
		}
		return nil
	}
	if err := add(f.Events.FSW, true); err != nil {
		return err
	}
	if err := add(f.Events.SSE, false); err != nil {
		return err
	}

	d.mu.Lock()
	d.channels, d.events = channels, events
	d.mu.Unlock()
	return nil
}

// LookupChannel implements ports.Dictionary.
func (d *Dictionary) LookupChannel(id string) (domain.ChannelDefinition, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	def, ok := d.channels[id]
	return def, ok
}

// LookupEvent implements ports.Dictionary.
func (d *Dictionary) LookupEvent(id int64, fsw bool) (domain.EventDefinition, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	def, ok := d.events[eventKey{id: id, fsw: fsw}]
	return def, ok
}

// Size returns the number of channel and event definitions.
func (d *Dictionary) Size() (channels, events int) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.channels), len(d.events)
}
