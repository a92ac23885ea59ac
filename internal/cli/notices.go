package cli

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/alexanderramin/gymsync/internal/cli/formatter"
	"github.com/alexanderramin/gymsync/internal/service"
)

// Notice is one user-facing message from the gym service.
type Notice struct {
	Level   service.NoticeLevel
	Message string
}

// Notices prints service notifications to a writer. While muted (inside
// the terminal UI) it only remembers the latest one.
type Notices struct {
	mu    sync.Mutex
	w     io.Writer
	muted bool
	last  *Notice
}

func NewNotices(w io.Writer) *Notices {
	if w == nil {
		w = os.Stderr
	}
	return &Notices{w: w}
}

func (n *Notices) SetOutput(w io.Writer) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.w = w
}

func (n *Notices) Mute(muted bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.muted = muted
}

// Notify implements service.Notifier.
func (n *Notices) Notify(level service.NoticeLevel, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.last = &Notice{Level: level, Message: message}
	if n.muted {
		return
	}
	fmt.Fprintln(n.w, renderNotice(*n.last))
}

// Take returns and clears the latest notice.
func (n *Notices) Take() (Notice, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.last == nil {
		return Notice{}, false
	}
	last := *n.last
	n.last = nil
	return last, true
}

func renderNotice(n Notice) string {
	switch n.Level {
	case service.NoticeSuccess:
		return formatter.StyleGreen.Render("✔ " + n.Message)
	case service.NoticeError:
		return formatter.StyleRed.Render("✖ " + n.Message)
	default:
		return formatter.StyleBlue.Render("• " + n.Message)
	}
}
