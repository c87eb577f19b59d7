package cache

// ScopedKeyer wraps a Keyer with a prefix so several servers or projects can
// share one Redis instance without colliding.
//
//	k := NewScopedKeyer(NewDefaultKeyer(), "studio-a:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

func (k *ScopedKeyer) ExportKey(docHash string, opts ExportKeyOpts) string {
	return k.prefix + k.inner.ExportKey(docHash, opts)
}

func (k *ScopedKeyer) PreviewKey(exportHash string, opts PreviewKeyOpts) string {
	return k.prefix + k.inner.PreviewKey(exportHash, opts)
}

func (k *ScopedKeyer) DiagramKey(docHash string, opts DiagramKeyOpts) string {
	return k.prefix + k.inner.DiagramKey(docHash, opts)
}
