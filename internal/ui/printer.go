package ui

import (
	"fmt"
	"io"
	"sync"
)

// Printer writes solve progress as plain lines, for terminals that are not
// running the interactive view. Progress is reported each time the explored
// state count doubles so long solves stay readable.
type Printer struct {
	mu   sync.Mutex
	w    io.Writer
	next int
}

func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

func (p *Printer) UpdateStatus(status string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if status == "solving" {
		p.next = 0
	}
	fmt.Fprintf(p.w, "status: %s\n", status)
}

func (p *Printer) UpdateProgress(states int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if states < p.next || states <= 0 {
		return
	}
	fmt.Fprintf(p.w, "explored %d states\n", states)
	p.next = states * 2
}

func (p *Printer) Log(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, msg)
}
