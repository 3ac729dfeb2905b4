package sim

// Middleware defines one aspect of a component's per-cycle behavior.
type Middleware interface {
	// Tick processes a tick. It returns true if progress is made.
	Tick() bool
}

// MiddlewareHolder maintains a list of middlewares.
type MiddlewareHolder struct {
	middlewares []Middleware
}

// AddMiddleware adds a middleware to the holder.
func (h *MiddlewareHolder) AddMiddleware(m Middleware) {
	h.middlewares = append(h.middlewares, m)
}

// Middlewares returns the list of middlewares.
func (h *MiddlewareHolder) Middlewares() []Middleware {
	return h.middlewares
}

// Tick runs all the middlewares. It returns true if any middleware made
// progress.
func (h *MiddlewareHolder) Tick() bool {
	progress := false

	for _, m := range h.middlewares {
		if m.Tick() {
			progress = true
		}
	}

	return progress
}
