package definition

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/jabolina/go-groupcall/pkg/groupcall/types"
	"github.com/prometheus/common/log"
)

const (
	infoLevel  = "info"
	debugLevel = "debug"
)

// The default logger used if the user does not provide its
// own implementation. Writes structured lines tagged with
// the component name.
type DefaultLogger struct {
	log.Logger

	mutex *sync.Mutex
	debug bool
}

// Creates the default logger writing to stderr.
func NewDefaultLogger() types.Logger {
	return NewLoggerTo(os.Stderr, "groupcall")
}

// Creates a logger writing to the given writer, every line
// is tagged with the given component.
func NewLoggerTo(w io.Writer, component string) *DefaultLogger {
	l := log.NewLogger(w)
	_ = l.SetLevel(infoLevel)
	return &DefaultLogger{
		Logger: l.With("component", component),
		mutex:  &sync.Mutex{},
	}
}

func (l *DefaultLogger) Panic(v ...interface{}) {
	message := fmt.Sprint(v...)
	l.Logger.Error(message)
	panic(message)
}

func (l *DefaultLogger) Panicf(format string, v ...interface{}) {
	message := fmt.Sprintf(format, v...)
	l.Logger.Error(message)
	panic(message)
}

// Turn debug on or off, returns the new value.
func (l *DefaultLogger) ToggleDebug(value bool) bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	level := infoLevel
	if value {
		level = debugLevel
	}
	if err := l.Logger.SetLevel(level); err != nil {
		return l.debug
	}
	l.debug = value
	return l.debug
}
