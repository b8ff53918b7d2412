// Package registry holds the topic and slot definitions that drive the
// slot-filling dialogue: which slots a topic requires, in what order they are
// collected, and how the assistant asks for each one. Definitions are loaded
// from a JSON file (or the embedded default) and are reloadable at runtime.
package registry

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

//go:embed intent_config.json
var defaultConfig []byte

// SlotDefinition describes a single collectible piece of information.
// Immutable once loaded.
type SlotDefinition struct {
	ID               string   `mapstructure:"id"`
	Description      string   `mapstructure:"description"`
	QuestionTemplate string   `mapstructure:"question_template"`
	Examples         []string `mapstructure:"examples"`
	// DynamicQuestion enables model-generated question text for this slot.
	DynamicQuestion bool `mapstructure:"dynamic_question"`
}

// TopicDefinition describes a user goal category and the slots it needs.
// RequiredSlots ordering is the order missing slots are requested in.
type TopicDefinition struct {
	ID            string   `mapstructure:"id"`
	Description   string   `mapstructure:"description"`
	RequiredSlots []string `mapstructure:"required_slots"`
	OptionalSlots []string `mapstructure:"optional_slots"`
}

type config struct {
	DefaultTopic string            `mapstructure:"default_topic"`
	Topics       []TopicDefinition `mapstructure:"topics"`
	Slots        []SlotDefinition  `mapstructure:"slots"`
}

// snapshot is an immutable view of the loaded configuration. Reload replaces
// the whole snapshot atomically so readers never observe a partial config.
type snapshot struct {
	defaultTopic string
	topicIDs     []string
	slotIDs      []string
	topics       map[string]TopicDefinition
	slots        map[string]SlotDefinition
}

// Registry is the slot configuration registry.
type Registry struct {
	path     string // empty means embedded default
	current  atomic.Pointer[snapshot]
	question QuestionFunc
}

// Load reads the configuration at path and builds a registry. An empty path
// loads the embedded default configuration.
func Load(path string) (*Registry, error) {
	r := &Registry{path: path, question: StaticQuestion()}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// SetQuestionFunc replaces the question generation strategy.
func (r *Registry) SetQuestionFunc(fn QuestionFunc) {
	if fn != nil {
		r.question = fn
	}
}

// Reload re-reads the backing definitions and atomically replaces the
// in-memory maps. Safe to call while readers are in flight.
func (r *Registry) Reload() error {
	v := viper.New()
	v.SetConfigType("json")

	if r.path != "" {
		v.SetConfigFile(r.path)
		if err := v.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "read intent config %s", r.path)
		}
	} else {
		if err := v.ReadConfig(bytes.NewReader(defaultConfig)); err != nil {
			return errors.Wrap(err, "read embedded intent config")
		}
	}

	var cfg config
	if err := v.Unmarshal(&cfg); err != nil {
		return errors.Wrap(err, "unmarshal intent config")
	}

	snap, err := buildSnapshot(&cfg)
	if err != nil {
		return err
	}

	r.current.Store(snap)
	slog.Info("intent configuration loaded",
		"topics", len(snap.topicIDs),
		"slots", len(snap.slotIDs),
		"source", sourceName(r.path))
	return nil
}

func sourceName(path string) string {
	if path == "" {
		return "embedded"
	}
	return path
}

// buildSnapshot validates the raw config. A malformed configuration is a hard
// error, never a silent downgrade to an empty registry.
func buildSnapshot(cfg *config) (*snapshot, error) {
	if len(cfg.Topics) == 0 {
		return nil, errors.New("intent config defines no topics")
	}
	if len(cfg.Slots) == 0 {
		return nil, errors.New("intent config defines no slots")
	}

	snap := &snapshot{
		defaultTopic: cfg.DefaultTopic,
		topics:       make(map[string]TopicDefinition, len(cfg.Topics)),
		slots:        make(map[string]SlotDefinition, len(cfg.Slots)),
	}

	for _, slot := range cfg.Slots {
		if slot.ID == "" {
			return nil, errors.New("slot definition with empty id")
		}
		if _, dup := snap.slots[slot.ID]; dup {
			return nil, errors.Errorf("duplicate slot definition %q", slot.ID)
		}
		snap.slots[slot.ID] = slot
		snap.slotIDs = append(snap.slotIDs, slot.ID)
	}

	for _, topic := range cfg.Topics {
		if topic.ID == "" {
			return nil, errors.New("topic definition with empty id")
		}
		if _, dup := snap.topics[topic.ID]; dup {
			return nil, errors.Errorf("duplicate topic definition %q", topic.ID)
		}
		for _, slotID := range append(append([]string{}, topic.RequiredSlots...), topic.OptionalSlots...) {
			if _, ok := snap.slots[slotID]; !ok {
				return nil, errors.Errorf("topic %q references unknown slot %q", topic.ID, slotID)
			}
		}
		snap.topics[topic.ID] = topic
		snap.topicIDs = append(snap.topicIDs, topic.ID)
	}

	if snap.defaultTopic == "" {
		snap.defaultTopic = snap.topicIDs[0]
	}
	if _, ok := snap.topics[snap.defaultTopic]; !ok {
		return nil, errors.Errorf("default topic %q is not defined", snap.defaultTopic)
	}

	return snap, nil
}

// Topics returns all topic identifiers in configuration order.
func (r *Registry) Topics() []string {
	snap := r.current.Load()
	out := make([]string, len(snap.topicIDs))
	copy(out, snap.topicIDs)
	return out
}

// Slots returns all slot identifiers in configuration order.
func (r *Registry) Slots() []string {
	snap := r.current.Load()
	out := make([]string, len(snap.slotIDs))
	copy(out, snap.slotIDs)
	return out
}

// Topic looks up a topic definition.
func (r *Registry) Topic(id string) (TopicDefinition, bool) {
	def, ok := r.current.Load().topics[id]
	return def, ok
}

// Slot looks up a slot definition.
func (r *Registry) Slot(id string) (SlotDefinition, bool) {
	def, ok := r.current.Load().slots[id]
	return def, ok
}

// KnownTopic reports whether id is a configured topic.
func (r *Registry) KnownTopic(id string) bool {
	_, ok := r.current.Load().topics[id]
	return ok
}

// KnownSlot reports whether id is a configured slot.
func (r *Registry) KnownSlot(id string) bool {
	_, ok := r.current.Load().slots[id]
	return ok
}

// DefaultTopic returns the fallback topic used when classification fails.
func (r *Registry) DefaultTopic() string {
	return r.current.Load().defaultTopic
}

// RequiredSlots returns the ordered required slot ids for a topic. Unknown
// topics yield an empty sequence.
func (r *Registry) RequiredSlots(topic string) []string {
	def, ok := r.current.Load().topics[topic]
	if !ok {
		return nil
	}
	out := make([]string, len(def.RequiredSlots))
	copy(out, def.RequiredSlots)
	return out
}

// OptionalSlots returns the optional slot ids for a topic.
func (r *Registry) OptionalSlots(topic string) []string {
	def, ok := r.current.Load().topics[topic]
	if !ok {
		return nil
	}
	out := make([]string, len(def.OptionalSlots))
	copy(out, def.OptionalSlots)
	return out
}

// Question produces the prompt text asking the user for the given slot.
func (r *Registry) Question(ctx context.Context, slotID string, qc QuestionContext) string {
	def, ok := r.Slot(slotID)
	if !ok {
		return fmt.Sprintf("Could you please provide: %s?", slotID)
	}
	return r.question(ctx, def, qc)
}
