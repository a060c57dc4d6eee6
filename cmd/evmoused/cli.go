package main

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gethiox/evmoused/internal/pkg/logger"
	"github.com/logrusorgru/aurora"
)

var log = logger.GetLogger()

type TimeNanosecond time.Time

func (j *TimeNanosecond) UnmarshalJSON(b []byte) error {
	v, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return err
	}
	*j = TimeNanosecond(time.Unix(0, v))
	return nil
}

// Entry is one decoded log message.
type Entry struct {
	Ts     TimeNanosecond `json:"ts"`
	Caller string         `json:"caller"`
	Msg    string         `json:"msg"`
	Level  int            `json:"level"`

	Device string `json:"device_name"`
	Class  string `json:"device_class"`
	Quirk  string `json:"quirk"`
}

func unpack(data []byte) (Entry, error) {
	var v Entry
	err := json.Unmarshal(data, &v)
	return v, err
}

func gray(v uint8) aurora.Color {
	if v > 23 {
		v = 23
	}
	return aurora.Color(232+v) << 16
}

func color(r, g, b uint8) aurora.Color {
	return aurora.Color(16+36*r+6*g+b) << 16
}

func terminator(r rune) bool {
	return r >= 0x40 && r <= 0x7e
}

// colorForString returns the same color for the same string.
func colorForString(au aurora.Aurora, s string) aurora.Value {
	h := fnv.New32a()
	h.Write([]byte(s))
	sum := h.Sum32()

	r, g, b := uint8(sum)&0b111, uint8(sum>>8)&0b111, uint8(sum>>16)&0b111
	r, g, b = min(r, 5), min(g, 5), min(b, 5)

	// avoid dark colors
	if r+g+b < 3 {
		r++
		g++
		b++
	}
	return au.Index(16+36*r+6*g+b, s)
}

// rawStringLen returns a len of string ignoring included escape sequences
func rawStringLen(s string) int {
	var sequence bool
	var escLen, sum int

	for i, r := range s {
		if !sequence {
			if r == '\033' && i < len(s)-1 && s[i+1] == '[' {
				sequence = true
				escLen++
			}
			continue
		}
		if r == '[' && s[i-1] == '\033' {
			escLen++
			continue
		}
		escLen++
		if terminator(r) {
			sequence = false
			sum += escLen
			escLen = 0
		}
	}
	return len(s) - sum
}

func levelColor(level int) aurora.Color {
	switch level {
	case logger.ErrorLvl:
		return color(5, 1, 1)
	case logger.WarningLvl:
		return color(5, 5, 1)
	case logger.InfoLvl:
		return gray(18)
	case logger.ActionLvl:
		return gray(15)
	case logger.MotionLvl:
		return gray(12)
	default:
		return gray(9)
	}
}

// prepareString renders msg, an empty string means the message is filtered
// out by logLevel. A negative width disables alignment of the fields.
func prepareString(msg Entry, au aurora.Aurora, width, logLevel int) string {
	if msg.Level > logLevel {
		return ""
	}
	msgColor := levelColor(msg.Level)

	timestamp := fmt.Sprintf(
		"[%s]",
		au.Reset(time.Time(msg.Ts).Format("15:04:05.000")).Colorize(color(1, 1, 5)).String(),
	)

	var fields []string
	if msg.Class != "" {
		fields = append(fields, fmt.Sprintf("[class=%s]", colorForString(au, msg.Class)))
	}
	if msg.Device != "" {
		fields = append(fields, fmt.Sprintf("[dev=%s]", colorForString(au, msg.Device)))
	}
	if msg.Quirk != "" {
		fields = append(fields, fmt.Sprintf("[quirk=%s]", colorForString(au, msg.Quirk)))
	}
	if logLevel >= logger.DebugLvl && msg.Caller != "" {
		file, line, _ := strings.Cut(msg.Caller, ":")
		fields = append(fields, fmt.Sprintf("(%s:%s)", colorForString(au, file), line))
	}
	joined := strings.Join(fields, " ")

	if width < 0 {
		m := au.Reset(msg.Msg).Colorize(msgColor).String()
		return strings.TrimRight(fmt.Sprintf("%s %s %s", timestamp, m, joined), " ")
	}

	fieldsLen := rawStringLen(joined)
	timeLen := rawStringLen(timestamp)
	text := msg.Msg

	freeSpace := width - (timeLen + 1 + len(text) + 1 + fieldsLen)
	if freeSpace < 0 {
		limit := width - (fieldsLen + 1 + timeLen + 1) - 3
		if limit < 20 {
			joined = au.Gray(12, "(fields hidden)").String()
			freeSpace = max(width-(timeLen+1+len(text)+1+rawStringLen(joined)), 0)
		} else {
			text = text[:min(limit, len(text))] + "(…)"
			freeSpace = 0
		}
	}
	m := au.Reset(text).Colorize(msgColor).String()
	return fmt.Sprintf("%s %s%s %s", timestamp, m, strings.Repeat(" ", freeSpace), joined)
}

func render(w io.Writer, au aurora.Aurora, level int, data []byte) {
	msg, err := unpack(data)
	if err != nil {
		fmt.Fprintf(w, "%s\n", data)
		return
	}
	if s := prepareString(msg, au, -1, level); s != "" {
		fmt.Fprintf(w, "%s\n", s)
	}
}

// renderLogs prints the log stream until ctx is done, messages already
// queued at that point are still printed.
func renderLogs(ctx context.Context, w io.Writer, au aurora.Aurora, level int) {
	for {
		select {
		case data := <-logger.Messages:
			render(w, au, level, data)
		case <-ctx.Done():
			for {
				select {
				case data := <-logger.Messages:
					render(w, au, level, data)
				default:
					return
				}
			}
		}
	}
}
