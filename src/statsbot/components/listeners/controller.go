package listeners

import (
	"log"
	"sync"
)

// Registrar registers an event handler and returns its remove function.
// *discordgo.Session satisfies it.
type Registrar interface {
	AddHandler(handler interface{}) func()
}

// Controller flips the subsystem from backfill mode to live-event mode. The
// backfill command can be re-invoked by an operator, so activation has to be
// guarded; registering the listener set twice would double-process every
// event.
type Controller struct {
	mu      sync.Mutex
	active  bool
	removes []func()
}

func NewController() *Controller {
	return &Controller{}
}

// Activate registers the live listener set at most once per process
// lifetime. Returns the number of handlers newly registered; zero on a
// repeat call.
func (c *Controller) Activate(reg Registrar, l *Listeners) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active {
		log.Printf("stats: live listeners already active, ignoring activation")
		return 0
	}

	handlers := l.handlers()
	for _, h := range handlers {
		c.removes = append(c.removes, reg.AddHandler(h))
	}
	c.active = true
	log.Printf("stats: activated %d live listeners", len(handlers))
	return len(handlers)
}

// Deactivate removes every registered handler, for shutdown.
func (c *Controller) Deactivate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, remove := range c.removes {
		remove()
	}
	c.removes = nil
	c.active = false
}

// Active reports whether the listener set is registered.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}
