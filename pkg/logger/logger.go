// Package logger prints leveled, colored log lines for the server and the CLI.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
)

var (
	cDbg  = color.New(color.FgHiBlack).SprintFunc()
	cInf  = color.New(color.FgCyan, color.Bold).SprintFunc()
	cWarn = color.New(color.FgYellow, color.Bold).SprintFunc()
	cErr  = color.New(color.FgRed, color.Bold).SprintFunc()
	cSucc = color.New(color.FgGreen, color.Bold).SprintFunc()
	cFatl = color.New(color.BgRed, color.FgWhite, color.Bold).SprintFunc()
	cTime = color.New(color.FgHiBlack).SprintFunc()
)

var (
	mu     sync.Mutex
	out    io.Writer = os.Stdout
	errOut io.Writer = os.Stderr
	debug  bool
)

func init() {
	log.SetFlags(0)
}

// SetOutput redirects both streams. Passing nil restores stdout/stderr.
func SetOutput(stdout, stderr io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	out, errOut = stdout, stderr
}

// SetDebug toggles LogDebug output.
func SetDebug(enabled bool) {
	mu.Lock()
	debug = enabled
	mu.Unlock()
}

func timeStamp() string {
	return cTime(time.Now().Format("2006-01-02 15:04:05"))
}

func write(w func() io.Writer, tag, format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(w(), "%s %s %s\n", timeStamp(), tag, msg)
}

func stdout() io.Writer { return out }
func stderr() io.Writer { return errOut }

func LogDebug(format string, v ...interface{}) {
	mu.Lock()
	enabled := debug
	mu.Unlock()
	if !enabled {
		return
	}
	write(stdout, cDbg("[DEBUG]"), format, v...)
}

func LogInfo(format string, v ...interface{}) {
	write(stdout, cInf("[INFO]"), format, v...)
}

func LogSuccess(format string, v ...interface{}) {
	write(stdout, cSucc("[OK]"), format, v...)
}

func LogWarn(format string, v ...interface{}) {
	write(stdout, cWarn("[WARN]"), format, v...)
}

func LogError(format string, v ...interface{}) {
	write(stderr, cErr("[ERR]"), format, v...)
}

// LogFatal logs and exits with status 1.
func LogFatal(format string, v ...interface{}) {
	write(stderr, cFatl("[FATAL]"), format, v...)
	os.Exit(1)
}

// LogServerStart prints the listening banner.
func LogServerStart(port int, baseURL string, sessionBackend string) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintln(out)
	fmt.Fprintf(out, "   %s  %s\n", cSucc("⚡ Travellog is up"), cTime("waiting for requests..."))
	fmt.Fprintf(out, "   %s  %s\n", cInf("➜ Local:"), fmt.Sprintf("http://localhost:%d", port))
	fmt.Fprintf(out, "   %s  %s\n", cInf("➜ Public:"), color.New(color.FgHiBlue, color.Underline).Sprint(baseURL))
	fmt.Fprintf(out, "   %s  %s\n", cInf("➜ Sessions:"), sessionBackend)
	fmt.Fprintln(out)
}
