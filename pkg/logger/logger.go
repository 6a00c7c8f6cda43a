package logger

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// Dedup logs a message, collapsing immediate repeats into a single line with
// a count. Cache hits for a hot product would otherwise flood the log.
func Dedup(format string, args ...any) {
	suppressor.log(fmt.Sprintf(format, args...))
}

var suppressor = &repeatSuppressor{flushDelay: 2 * time.Second}

type repeatSuppressor struct {
	mu         sync.Mutex
	lastMsg    string
	count      int
	flushDelay time.Duration
	timer      *time.Timer
}

func (s *repeatSuppressor) log(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg != s.lastMsg {
		s.flush()
		s.lastMsg = msg
		s.count = 0
	}
	s.count++

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.flushDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.flush()
	})
}

func (s *repeatSuppressor) flush() {
	if s.count == 0 {
		return
	}
	if s.count == 1 {
		log.Print(s.lastMsg)
	} else {
		log.Printf("%s (%d)", s.lastMsg, s.count)
	}
	s.count = 0
	s.lastMsg = ""
}
