package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// InterruptHandler cancels a long-running command on SIGINT/SIGTERM and tells
// the user what was kept.
type InterruptHandler struct {
	writer      io.Writer
	signals     chan os.Signal
	operation   string
	keptHint    string
	interrupted bool
	mu          sync.Mutex
}

// NewInterruptHandler creates a handler for the named operation, e.g.
// "Import".
func NewInterruptHandler(writer io.Writer, operation string) *InterruptHandler {
	if writer == nil {
		writer = os.Stdout
	}
	return &InterruptHandler{
		writer:    writer,
		operation: operation,
	}
}

// HandleInterrupts returns a context canceled on the first interrupt.
// keptHint, when set, is shown to explain what survives the interruption.
func (h *InterruptHandler) HandleInterrupts(ctx context.Context, keptHint string) context.Context {
	ctx, cancel := context.WithCancel(ctx)
	h.keptHint = keptHint

	if h.signals == nil {
		h.signals = make(chan os.Signal, 1)
		signal.Notify(h.signals, os.Interrupt, syscall.SIGTERM)
	}

	go func() {
		defer signal.Stop(h.signals)
		select {
		case <-h.signals:
			h.mu.Lock()
			if !h.interrupted {
				h.interrupted = true
				h.showInterruptMessage()
			}
			h.mu.Unlock()
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx
}

func (h *InterruptHandler) showInterruptMessage() {
	msg := "\n\n" + FormatWarning(h.operation+" interrupted!")
	if h.keptHint != "" {
		msg += "\n" + FormatInfo(h.keptHint)
	}
	msg += "\n"

	if _, err := fmt.Fprint(h.writer, msg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write interrupt message: %v\n", err)
	}
}

// WasInterrupted returns true if the process was interrupted.
func (h *InterruptHandler) WasInterrupted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.interrupted
}
