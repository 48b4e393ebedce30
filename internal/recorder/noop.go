package recorder

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordOpen(_ *TradeOpen) error    { return nil }
func (n *NoopRecorder) RecordClose(_ *TradeClose) error  { return nil }
func (n *NoopRecorder) RecordCycle(_ *CycleReport) error { return nil }
func (n *NoopRecorder) Close() error                     { return nil }
