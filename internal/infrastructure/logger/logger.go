package logger

import (
	"log"
	"os"
)

var (
	Info  *log.Logger
	Warn  *log.Logger
	Error *log.Logger
	Debug *log.Logger
)

func init() {
	flags := log.Ldate | log.Ltime | log.LUTC | log.Lshortfile

	Info = log.New(os.Stdout, "INFO: ", flags)
	Warn = log.New(os.Stdout, "WARN: ", flags)
	Error = log.New(os.Stdout, "ERROR: ", flags)
	Debug = log.New(os.Stdout, "DEBUG: ", flags)
}

// Sanitize escapes control characters in user-supplied strings (file names,
// titles, queries) before they reach a log line, so a crafted value cannot
// forge entries or emit terminal escapes.
func Sanitize(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r == '\n':
			out = append(out, '\\', 'n')
		case r == '\r':
			out = append(out, '\\', 'r')
		case r == '\t':
			out = append(out, '\\', 't')
		case r < 32 || r == 127:
			for _, esc := range escapeHex(r) {
				out = append(out, esc)
			}
		default:
			out = append(out, r)
		}
	}
	return string(out)
}

const hexDigits = "0123456789abcdef"

func escapeHex(r rune) []rune {
	return []rune{'\\', 'x', rune(hexDigits[(r>>4)&0xf]), rune(hexDigits[r&0xf])}
}
