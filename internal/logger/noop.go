package logger

// NoOp is a logger that discards all messages. It is intended for tests
// and for components that are constructed before logging is configured.
type NoOp struct{}

// NewNoOp creates a new no-op logger.
func NewNoOp() Interface {
	return &NoOp{}
}

// Debug does nothing.
func (n *NoOp) Debug(_ string, _ ...any) {}

// Info does nothing.
func (n *NoOp) Info(_ string, _ ...any) {}

// Warn does nothing.
func (n *NoOp) Warn(_ string, _ ...any) {}

// Error does nothing.
func (n *NoOp) Error(_ string, _ ...any) {}

// Fatal does nothing.
func (n *NoOp) Fatal(_ string, _ ...any) {}

// With returns the same no-op logger.
func (n *NoOp) With(_ ...any) Interface { return n }
