// Package conditions is a composable pre-flight gate: before an action that
// needs permissions or hardware state (Bluetooth powered on, local network
// permission, location for SSID sensing), the caller registers checkers and
// asks for a verdict. Unmet conditions get a chance to request their
// prerequisite; the manager re-evaluates as asynchronous results come in.
package conditions

import "sync"

// Action is one gateable prerequisite.
type Action interface {
	// Key identifies the condition in unmet reports.
	Key() string
	// IsMet reports whether the prerequisite currently holds.
	IsMet() bool
	// Request asks the environment to establish the prerequisite (prompt,
	// enable hardware). The eventual outcome arrives via
	// Manager.OnConditionResult.
	Request(m *Manager)
	// OnMet is invoked when the condition is observed met during a check.
	OnMet()
}

// Callback receives the verdict of one CheckConditions invocation.
type Callback struct {
	OnAllConditionsMet func()
	OnConditionsUnmet  func(unmetKeys []string)
}

// Checker pairs an action with its evaluation against the manager.
type Checker struct {
	manager *Manager
	action  Action
}

func NewChecker(m *Manager, a Action) *Checker {
	return &Checker{manager: m, action: a}
}

func (c *Checker) Action() Action { return c.action }

// Check evaluates the action, requesting the prerequisite when unmet.
func (c *Checker) Check() bool {
	if c.action.IsMet() {
		c.action.OnMet()
		return true
	}
	c.action.Request(c.manager)
	return false
}

// Manager walks registered checkers and reports a single verdict per
// CheckConditions call. OnAllConditionsMet fires exactly once per
// invocation, when the last outstanding condition resolves.
type Manager struct {
	mu       sync.Mutex
	checkers []*Checker

	pending  map[string]bool // keys awaiting an async result
	failed   []string
	callback *Callback
}

func NewManager() *Manager {
	return &Manager{pending: make(map[string]bool)}
}

func (m *Manager) AddChecker(c *Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers = append(m.checkers, c)
}

// AddAction registers an action with a checker built around this manager.
func (m *Manager) AddAction(a Action) {
	m.AddChecker(NewChecker(m, a))
}

// CheckConditions evaluates all checkers. Met conditions pass through;
// unmet ones request their prerequisite and the verdict waits for
// OnConditionResult. A check with no registered checkers is trivially met.
func (m *Manager) CheckConditions(cb *Callback) {
	m.mu.Lock()
	m.callback = cb
	m.pending = make(map[string]bool)
	m.failed = nil
	checkers := make([]*Checker, len(m.checkers))
	copy(checkers, m.checkers)
	for _, c := range checkers {
		if !c.action.IsMet() {
			m.pending[c.action.Key()] = true
		}
	}
	m.mu.Unlock()

	for _, c := range checkers {
		c.Check()
	}
	m.resolve()
}

// OnConditionResult feeds an asynchronous prerequisite outcome back in. The
// matching checker is re-evaluated; denial marks the key failed.
func (m *Manager) OnConditionResult(key string, granted bool) {
	m.mu.Lock()
	if !m.pending[key] {
		// The result may belong to a child of a pending composite: any
		// pending action that now evaluates met resolves with it.
		key = ""
		for k := range m.pending {
			for _, c := range m.checkers {
				if c.action.Key() == k {
					if granted && !c.action.IsMet() {
						// composite still has unmet children; ask for the next
						m.mu.Unlock()
						c.action.Request(m)
						return
					}
					key = k
				}
			}
		}
		if key == "" {
			m.mu.Unlock()
			return
		}
	}
	delete(m.pending, key)
	var action Action
	for _, c := range m.checkers {
		if c.action.Key() == key {
			action = c.action
			break
		}
	}
	met := granted && action != nil && action.IsMet()
	if !met {
		m.failed = append(m.failed, key)
	}
	m.mu.Unlock()

	if met {
		action.OnMet()
	}
	m.resolve()
}

// resolve fires the verdict once nothing is pending.
func (m *Manager) resolve() {
	m.mu.Lock()
	if m.callback == nil || len(m.pending) > 0 {
		m.mu.Unlock()
		return
	}
	cb := m.callback
	m.callback = nil
	failed := m.failed
	m.failed = nil
	m.mu.Unlock()

	if len(failed) > 0 {
		if cb.OnConditionsUnmet != nil {
			cb.OnConditionsUnmet(failed)
		}
		return
	}
	if cb.OnAllConditionsMet != nil {
		cb.OnAllConditionsMet()
	}
}

// MultiAction composes an ordered list of actions into one action that is
// met iff all children are met.
type MultiAction struct {
	name    string
	actions []Action
}

func NewMultiAction(name string, actions ...Action) *MultiAction {
	return &MultiAction{name: name, actions: actions}
}

func (a *MultiAction) Key() string { return a.name }

func (a *MultiAction) IsMet() bool {
	for _, child := range a.actions {
		if !child.IsMet() {
			return false
		}
	}
	return true
}

// Request forwards to the first unmet child; the manager re-checks after its
// result, walking the rest in order.
func (a *MultiAction) Request(m *Manager) {
	for _, child := range a.actions {
		if !child.IsMet() {
			child.Request(m)
			return
		}
	}
}

func (a *MultiAction) OnMet() {
	for _, child := range a.actions {
		child.OnMet()
	}
}
