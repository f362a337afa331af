package cache

// ScopedKeyer wraps a Keyer with a prefix so several deployments can share
// one Redis database or bucket.
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "cardcrop:")
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

func (k *ScopedKeyer) CropKey(inputHash string, opts CropKeyOpts) string {
	return k.prefix + k.inner.CropKey(inputHash, opts)
}

func (k *ScopedKeyer) PreviewKey(inputHash string, opts PreviewKeyOpts) string {
	return k.prefix + k.inner.PreviewKey(inputHash, opts)
}

func (k *ScopedKeyer) JobKey(jobID, name string) string {
	return k.prefix + k.inner.JobKey(jobID, name)
}
