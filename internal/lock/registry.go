package lock

import (
	"github.com/google/uuid"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Listener receives the decoded text of one inbound event, framing
// header already stripped.
type Listener func(text string)

// Registry holds listeners in registration order. Notify fans a value
// out to every listener, synchronously, oldest registration first.
//
// Registry is not safe for concurrent use on its own; the session
// serializes access with its own lock.
type Registry struct {
	listeners *orderedmap.OrderedMap[string, Listener]
}

func NewRegistry() *Registry {
	return &Registry{listeners: orderedmap.New[string, Listener]()}
}

// Add registers a listener and returns the token used to remove it.
func (r *Registry) Add(l Listener) string {
	id := uuid.NewString()
	r.listeners.Set(id, l)
	return id
}

// Remove deregisters a listener by its token. Unknown tokens are a
// no-op.
func (r *Registry) Remove(id string) {
	r.listeners.Delete(id)
}

func (r *Registry) Len() int {
	return r.listeners.Len()
}

// Notify invokes every listener with the text, in registration order.
func (r *Registry) Notify(text string) {
	for pair := r.listeners.Oldest(); pair != nil; pair = pair.Next() {
		pair.Value(text)
	}
}
