package app

import "sync"

// Output is where a handle writes its status and results.
type Output interface {
	SetText(text string)
}

// OutputFunc adapts a function to Output.
type OutputFunc func(text string)

// SetText calls f(text).
func (f OutputFunc) SetText(text string) { f(text) }

// Buffer is an Output that keeps every text written to it.
type Buffer struct {
	mu    sync.Mutex
	texts []string
}

// SetText records text as the current content.
func (b *Buffer) SetText(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.texts = append(b.texts, text)
}

// Text returns the current content.
func (b *Buffer) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.texts) == 0 {
		return ""
	}
	return b.texts[len(b.texts)-1]
}

// History returns every text written, oldest first.
func (b *Buffer) History() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.texts...)
}
