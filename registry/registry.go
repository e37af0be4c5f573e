package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog"

	"github.com/anirudhraja/protocodec/schema"
)

var (
	// ErrNotFound is returned when a type name resolves to nothing.
	ErrNotFound = errors.New("protocodec: type not found")

	// ErrFrozen is returned by loads after Freeze.
	ErrFrozen = errors.New("protocodec: registry is frozen")
)

// Registry allows us to store the schema of the protobuf messages. We look this
// up when we need to parse or marshal a message. It is filled once and then
// only read; lookups are safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	repo     *schema.ProtoRepo
	messages map[string]*schema.Message // fully qualified name -> message
	enums    map[string]*schema.Enum    // fully qualified name -> enum
	services map[string]*schema.Service // fully qualified name -> service

	// suffix lookups, keyed by kind prefix and requested name
	lookups *xsync.MapOf[string, string]
	frozen  atomic.Bool

	logger               zerolog.Logger
	ProtoDirectories     []string
	requireZeroFirstEnum bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for load diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// WithProtoDirectories sets the directories .proto imports are resolved against.
func WithProtoDirectories(dirs ...string) Option {
	return func(r *Registry) { r.ProtoDirectories = append(r.ProtoDirectories, dirs...) }
}

// WithRequireZeroFirstEnum makes proto3 enums whose first value is not zero
// fail validation.
func WithRequireZeroFirstEnum(require bool) Option {
	return func(r *Registry) { r.requireZeroFirstEnum = require }
}

// NewRegistry creates a registry holding the built-in well-known types.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		repo:     &schema.ProtoRepo{ProtoFiles: make(map[string]*schema.ProtoFile)},
		messages: make(map[string]*schema.Message),
		enums:    make(map[string]*schema.Enum),
		services: make(map[string]*schema.Service),
		lookups:  xsync.NewMapOf[string, string](),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.LoadRepo(wellKnownRepo()); err != nil {
		// the built-in descriptors are static; failing here is a programming error
		panic(fmt.Sprintf("registry: loading well-known types: %v", err))
	}
	return r
}

// Freeze makes the registry read-only. Later loads fail with ErrFrozen.
func (r *Registry) Freeze() {
	if r.frozen.CompareAndSwap(false, true) {
		r.logger.Debug().Int("messages", len(r.ListMessages())).Msg("registry frozen")
	}
}

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool {
	return r.frozen.Load()
}

// LoadRepo registers every file of repo. Names are qualified with the file
// package, type references are resolved and each message is validated. The
// load is all-or-nothing.
func (r *Registry) LoadRepo(repo *schema.ProtoRepo) error {
	if r.frozen.Load() {
		return ErrFrozen
	}
	if repo == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(repo.ProtoFiles))
	for name := range repo.ProtoFiles {
		if _, loaded := r.repo.ProtoFiles[name]; loaded {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	st := newSymbols(r)

	// Pass 1: register all message, enum and service names
	for _, name := range names {
		if err := st.registerNames(repo.ProtoFiles[name]); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	// Pass 2: resolve references now that every name is known
	for _, name := range names {
		pf := repo.ProtoFiles[name]
		for _, m := range pf.Messages {
			if err := st.resolveMessage(m); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
		}
		for _, s := range pf.Services {
			if err := st.resolveService(pf.Package, s); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
		}
	}

	// Pass 3: validate
	for _, name := range names {
		if err := r.validateFile(repo.ProtoFiles[name]); err != nil {
			r.logger.Warn().Err(err).Str("file", name).Msg("schema validation failed")
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	r.messages, r.enums, r.services = st.messages, st.enums, st.services
	for _, name := range names {
		pf := repo.ProtoFiles[name]
		r.repo.ProtoFiles[name] = pf
		r.logger.Debug().
			Str("file", name).
			Str("package", pf.Package).
			Int("messages", len(pf.Messages)).
			Int("enums", len(pf.Enums)).
			Msg("loaded proto file")
	}
	r.lookups = xsync.NewMapOf[string, string]()
	return nil
}

// registerNames registers all message, enum, and service names of a file
func (st *symbols) registerNames(pf *schema.ProtoFile) error {
	pkg := pf.Package
	for _, msg := range pf.Messages {
		if err := st.registerMessage(getFullName(pkg, msg.Name), msg); err != nil {
			return err
		}
	}
	for _, enum := range pf.Enums {
		if err := st.addEnum(getFullName(pkg, enum.Name), enum); err != nil {
			return err
		}
	}
	for _, service := range pf.Services {
		fullName := getFullName(pkg, service.Name)
		if _, ok := st.services[fullName]; ok {
			return fmt.Errorf("duplicate service name: %s", fullName)
		}
		st.services[fullName] = service
	}
	return nil
}

// registerMessage registers a message and, recursively, its nested types
func (st *symbols) registerMessage(fullName string, msg *schema.Message) error {
	if err := st.addMessage(fullName, msg); err != nil {
		return err
	}
	for _, nested := range msg.NestedTypes {
		if err := st.registerMessage(fullName+"."+nested.Name, nested); err != nil {
			return err
		}
	}
	for _, nestedEnum := range msg.NestedEnums {
		if err := st.addEnum(fullName+"."+nestedEnum.Name, nestedEnum); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) validateFile(pf *schema.ProtoFile) error {
	requireZero := r.requireZeroFirstEnum && pf.Syntax == schema.SyntaxProto3
	var walk func(m *schema.Message) error
	walk = func(m *schema.Message) error {
		if err := schema.ValidateMessage(m); err != nil {
			return err
		}
		for _, e := range m.NestedEnums {
			if err := schema.ValidateEnum(e, requireZero); err != nil {
				return err
			}
		}
		for _, nested := range m.NestedTypes {
			if err := walk(nested); err != nil {
				return err
			}
		}
		return nil
	}
	for _, m := range pf.Messages {
		if err := walk(m); err != nil {
			return err
		}
	}
	for _, e := range pf.Enums {
		if err := schema.ValidateEnum(e, requireZero); err != nil {
			return err
		}
	}
	return nil
}

func getFullName(pkg, name string) string {
	if pkg == "" {
		return name
	}
	return pkg + "." + name
}

// GetMessage retrieves a message definition by full name or name suffix
func (r *Registry) GetMessage(name string) (*schema.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	full, ok := lookup(r, "m:", name, r.messages)
	if !ok {
		return nil, fmt.Errorf("%w: message %s", ErrNotFound, name)
	}
	return r.messages[full], nil
}

// GetEnum retrieves an enum definition by full name or name suffix
func (r *Registry) GetEnum(name string) (*schema.Enum, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	full, ok := lookup(r, "e:", name, r.enums)
	if !ok {
		return nil, fmt.Errorf("%w: enum %s", ErrNotFound, name)
	}
	return r.enums[full], nil
}

// GetService retrieves a service definition by full name or name suffix
func (r *Registry) GetService(name string) (*schema.Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	full, ok := lookup(r, "s:", name, r.services)
	if !ok {
		return nil, fmt.Errorf("%w: service %s", ErrNotFound, name)
	}
	return r.services[full], nil
}

// lookup finds the full name for name in table: exact match first, then the
// lexically first entry that ends in "."+name. Suffix hits are memoized.
func lookup[V any](r *Registry, kind, name string, table map[string]V) (string, bool) {
	name = strings.TrimPrefix(name, ".")
	if _, ok := table[name]; ok {
		return name, true
	}
	if full, ok := r.lookups.Load(kind + name); ok {
		return full, true
	}

	var candidates []string
	for fullName := range table {
		if strings.HasSuffix(fullName, "."+name) {
			candidates = append(candidates, fullName)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	sort.Strings(candidates)
	r.lookups.Store(kind+name, candidates[0])
	return candidates[0], true
}

// ListMessages returns all registered message names, sorted
func (r *Registry) ListMessages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.messages)
}

// ListEnums returns all registered enum names, sorted
func (r *Registry) ListEnums() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.enums)
}

// ListServices returns all registered service names, sorted
func (r *Registry) ListServices() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.services)
}

// Files returns the names of the loaded files, sorted
func (r *Registry) Files() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.repo.ProtoFiles)
}

// File returns a loaded file by name.
func (r *Registry) File(name string) (*schema.ProtoFile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pf, ok := r.repo.ProtoFiles[name]
	return pf, ok
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
