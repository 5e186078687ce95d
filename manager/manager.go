// Package manager owns a collection of navigation meshes and crowd agents
// sharing one scene, creates them from the current parameter tables and
// drives their per-frame update.
package manager

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/milk9111/navmesh"
	"github.com/milk9111/navmesh/common"
	"github.com/milk9111/navmesh/config"
	"github.com/milk9111/navmesh/engine"
	"github.com/milk9111/navmesh/scene"
)

var ErrNotFound = errors.New("manager: not found")

// Manager is not safe for concurrent use apart from Params, SetParams
// and Watch, which may run on their own goroutine.
type Manager struct {
	log     *slog.Logger
	root    *scene.Node
	factory engine.Factory

	mu     sync.Mutex
	params config.Params

	meshes []*navmesh.NavMesh
	agents []*navmesh.Agent
}

type Option func(*Manager)

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithScene sets the scene root. Meshes use it as their reference frame
// and files are resolved against it by node name.
func WithScene(root *scene.Node) Option {
	return func(m *Manager) {
		if root != nil {
			m.root = root
		}
	}
}

func WithParams(p config.Params) Option {
	return func(m *Manager) {
		m.params = p
	}
}

func WithEngine(f engine.Factory) Option {
	return func(m *Manager) {
		m.factory = f
	}
}

func New(opts ...Option) *Manager {
	m := &Manager{
		log:    slog.Default(),
		root:   scene.NewNode("render"),
		params: config.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Scene() *scene.Node { return m.root }

func (m *Manager) Params() config.Params {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.params
}

// SetParams replaces the parameter tables used by later CreateNavMesh and
// CreateAgent calls.
func (m *Manager) SetParams(p config.Params) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.params = p
}

func (m *Manager) meshOptions() []navmesh.Option {
	opts := []navmesh.Option{
		navmesh.WithReference(m.root),
		navmesh.WithLogger(m.log),
	}
	if m.factory != nil {
		opts = append(opts, navmesh.WithEngine(m.factory))
	}
	return opts
}

// CreateNavMesh returns a configured mesh built from the current
// parameters. An empty name gets a generated one.
func (m *Manager) CreateNavMesh(name string) (*navmesh.NavMesh, error) {
	if name == "" {
		name = "NavMesh-" + uuid.NewString()
	}
	n := navmesh.New(append(m.meshOptions(), navmesh.WithName(name))...)
	if err := m.Params().NavMesh.Apply(n); err != nil {
		return nil, fmt.Errorf("manager: create navmesh %s: %w", name, err)
	}
	m.meshes = append(m.meshes, n)
	m.log.Debug("navmesh created", "navmesh", name)
	return n, nil
}

// DestroyNavMesh tears n down and removes it together with its agents'
// membership. The agents themselves stay with the manager.
func (m *Manager) DestroyNavMesh(n *navmesh.NavMesh) error {
	i := slices.Index(m.meshes, n)
	if i < 0 {
		return fmt.Errorf("%w: navmesh", ErrNotFound)
	}
	n.Teardown()
	for _, a := range n.Agents() {
		if err := n.RemoveAgent(a); err != nil {
			return fmt.Errorf("manager: destroy navmesh %s: %w", n.Name(), err)
		}
	}
	m.meshes = slices.Delete(m.meshes, i, i+1)
	m.log.Debug("navmesh destroyed", "navmesh", n.Name())
	return nil
}

func (m *Manager) NavMeshes() []*navmesh.NavMesh { return slices.Clone(m.meshes) }

// CreateAgent wraps node in an agent with the current agent parameters.
// A node without a name gets a generated one. A non-zero move target or
// velocity from the parameters is latched on the agent.
func (m *Manager) CreateAgent(node *scene.Node) (*navmesh.Agent, error) {
	if node == nil {
		return nil, fmt.Errorf("manager: create agent: %w", navmesh.ErrInvalidGeometry)
	}
	if node.Name() == "" {
		node.SetName("Agent-" + uuid.NewString())
	}
	p := m.Params().Agent
	a := navmesh.NewAgent(node, p.Params())
	switch {
	case p.Target() != (common.Vec3{}):
		if err := a.SetMoveTarget(p.Target()); err != nil {
			return nil, fmt.Errorf("manager: create agent %s: %w", node.Name(), err)
		}
	case p.Velocity() != (common.Vec3{}):
		if err := a.SetMoveVelocity(p.Velocity()); err != nil {
			return nil, fmt.Errorf("manager: create agent %s: %w", node.Name(), err)
		}
	}
	m.agents = append(m.agents, a)
	return a, nil
}

// DestroyAgent removes a from its mesh, if any, and from the manager.
func (m *Manager) DestroyAgent(a *navmesh.Agent) error {
	i := slices.Index(m.agents, a)
	if i < 0 {
		return fmt.Errorf("%w: agent", ErrNotFound)
	}
	if n := a.NavMesh(); n != nil {
		if err := n.RemoveAgent(a); err != nil {
			return fmt.Errorf("manager: destroy agent %s: %w", a.Name(), err)
		}
	}
	m.agents = slices.Delete(m.agents, i, i+1)
	return nil
}

func (m *Manager) Agents() []*navmesh.Agent { return slices.Clone(m.agents) }

// Update advances every mesh by dt seconds.
func (m *Manager) Update(dt float32) {
	for _, n := range m.meshes {
		n.Update(dt)
	}
}

// WriteFile stores every mesh in path: a count followed by, per mesh,
// whether it was built and its record.
func (m *Manager) WriteFile(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("manager: write %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("manager: write %s: %w", path, cerr)
		}
	}()

	w := bufio.NewWriter(f)
	enc := msgpack.NewEncoder(w)
	if err := enc.EncodeUint32(uint32(len(m.meshes))); err != nil {
		return fmt.Errorf("manager: write %s: %w", path, err)
	}
	for _, n := range m.meshes {
		if err := enc.EncodeBool(n.State() == navmesh.StateBuilt); err != nil {
			return fmt.Errorf("manager: write %s: %w", path, err)
		}
		if err := n.Encode(enc); err != nil {
			return fmt.Errorf("manager: write %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("manager: write %s: %w", path, err)
	}
	return nil
}

// ReadFile adds the meshes stored in path. Owners and obstacles are
// looked up by name under the scene root, agents among the manager's
// agents. Meshes stored as built are rebuilt; rebuild failures are
// returned joined once every mesh is read.
func (m *Manager) ReadFile(path string) ([]*navmesh.NavMesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("manager: read %s: %w", path, err)
	}
	defer f.Close()

	dec := msgpack.NewDecoder(bufio.NewReader(f))
	count, err := dec.DecodeUint32()
	if err != nil {
		return nil, fmt.Errorf("manager: read %s: %w", path, err)
	}
	res := resolver{m}
	var (
		loaded []*navmesh.NavMesh
		errs   []error
	)
	for range count {
		rebuild, err := dec.DecodeBool()
		if err != nil {
			return loaded, fmt.Errorf("manager: read %s: %w", path, err)
		}
		n, err := navmesh.DecodeNavMesh(dec, res, m.meshOptions()...)
		if err != nil {
			return loaded, fmt.Errorf("manager: read %s: %w", path, err)
		}
		m.meshes = append(m.meshes, n)
		loaded = append(loaded, n)
		if rebuild && n.Owner() != nil {
			if err := n.Build(n.Owner()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return loaded, errors.Join(errs...)
}

// CollisionHeight casts a ray straight down from origin, given in scene
// root space, against the scene geometry and returns the height of the
// first hit in space. Used to place agents and obstacles on terrain.
func (m *Manager) CollisionHeight(origin common.Vec3, space *scene.Node) (float32, bool) {
	return m.root.CollisionHeight(origin, space)
}

type resolver struct {
	m *Manager
}

func (r resolver) Node(name string) *scene.Node {
	return r.m.root.Find(name)
}

func (r resolver) Agent(name string) *navmesh.Agent {
	for _, a := range r.m.agents {
		if a.Name() == name {
			return a
		}
	}
	return nil
}

// Watch reloads the parameter tables from path whenever the file changes,
// until ctx is done. A file that fails to load is logged and ignored.
func (m *Manager) Watch(ctx context.Context, path string) error {
	w, err := config.NewWatcher(filepath.Dir(path))
	if err != nil {
		return fmt.Errorf("manager: watch %s: %w", path, err)
	}
	defer w.Close()

	want := filepath.Clean(path)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case changed, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(changed) != want {
				continue
			}
			p, err := config.Load(path)
			if err != nil {
				m.log.Warn("parameters not reloaded", "path", path, "err", err)
				continue
			}
			m.SetParams(p)
			m.log.Info("parameters reloaded", "path", path)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			m.log.Warn("parameter watch error", "path", path, "err", err)
		}
	}
}
