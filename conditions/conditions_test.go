package conditions

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// fakeAction is a condition toggled by the test; Request records that it was
// asked for.
type fakeAction struct {
	key       string
	met       bool
	requested int
	metCalls  int
}

func (a *fakeAction) Key() string { return a.key }
func (a *fakeAction) IsMet() bool { return a.met }
func (a *fakeAction) Request(*Manager) { a.requested++ }
func (a *fakeAction) OnMet() { a.metCalls++ }

func collect() (*Callback, *int, *[][]string) {
	var allMet int
	var unmet [][]string
	cb := &Callback{
		OnAllConditionsMet: func() { allMet++ },
		OnConditionsUnmet:  func(keys []string) { unmet = append(unmet, keys) },
	}
	return cb, &allMet, &unmet
}

func TestManager_allMet(t *testing.T) {
	m := NewManager()
	m.AddAction(&fakeAction{key: "bluetooth", met: true})
	m.AddAction(&fakeAction{key: "network", met: true})

	cb, allMet, unmet := collect()
	m.CheckConditions(cb)

	assert.Equal(t, 1, *allMet, "onAllConditionsMet fires exactly once")
	assert.Empty(t, *unmet)
}

func TestManager_asyncGrant(t *testing.T) {
	m := NewManager()
	bt := &fakeAction{key: "bluetooth"}
	m.AddAction(bt)

	cb, allMet, unmet := collect()
	m.CheckConditions(cb)

	assert.Equal(t, 0, *allMet, "verdict waits for the async result")
	assert.Equal(t, 1, bt.requested, "unmet condition is asked to request its prerequisite")

	bt.met = true
	m.OnConditionResult("bluetooth", true)

	assert.Equal(t, 1, *allMet)
	assert.Empty(t, *unmet)
	assert.Equal(t, 1, bt.metCalls)
}

func TestManager_denied(t *testing.T) {
	m := NewManager()
	m.AddAction(&fakeAction{key: "bluetooth", met: true})
	loc := &fakeAction{key: "location"}
	m.AddAction(loc)

	cb, allMet, unmet := collect()
	m.CheckConditions(cb)
	m.OnConditionResult("location", false)

	assert.Equal(t, 0, *allMet)
	assert.Equal(t, [][]string{{"location"}}, *unmet, "failing keys are listed")
}

func TestManager_verdictOncePerCheck(t *testing.T) {
	m := NewManager()
	bt := &fakeAction{key: "bluetooth"}
	m.AddAction(bt)

	cb, allMet, _ := collect()
	m.CheckConditions(cb)
	bt.met = true
	m.OnConditionResult("bluetooth", true)
	m.OnConditionResult("bluetooth", true) // stray duplicate result

	assert.Equal(t, 1, *allMet)
}

func TestMultiAction(t *testing.T) {
	a := &fakeAction{key: "a", met: true}
	b := &fakeAction{key: "b"}
	multi := NewMultiAction("a+b", a, b)

	assert.False(t, multi.IsMet())

	m := NewManager()
	m.AddAction(multi)
	cb, allMet, _ := collect()
	m.CheckConditions(cb)

	assert.Equal(t, 1, b.requested, "request forwards to the first unmet child")

	b.met = true
	m.OnConditionResult("b", true)
	assert.True(t, multi.IsMet())
	assert.Equal(t, 1, *allMet)
}
