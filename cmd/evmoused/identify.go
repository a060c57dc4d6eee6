package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gethiox/evmoused/internal/pkg/config"
	"github.com/gethiox/evmoused/internal/pkg/input"
)

const unknown = "unknown"

func identifyModes() []string {
	return []string{"port", "type", "model", "all"}
}

func validIdentifyMode(mode string) error {
	for _, m := range identifyModes() {
		if m == mode {
			return nil
		}
	}
	return fmt.Errorf("%w: identify mode %q, expected one of: %s",
		config.ErrInvalidOption, mode, strings.Join(identifyModes(), ", "))
}

// identify prints the requested device fields. Devices that could not be
// classified are reported as unknown.
func identify(w io.Writer, mode string, caps input.Capabilities, openErr error) error {
	if openErr != nil && !errors.Is(openErr, input.ErrUnsupportedDevice) {
		return openErr
	}

	port := caps.Path
	typ, model := caps.Class.String(), caps.Name
	if openErr != nil {
		typ, model = unknown, unknown
	}
	if model == "" {
		model = unknown
	}

	var err error
	switch mode {
	case "port":
		_, err = fmt.Fprintln(w, port)
	case "type":
		_, err = fmt.Fprintln(w, typ)
	case "model":
		_, err = fmt.Fprintln(w, model)
	case "all":
		_, err = fmt.Fprintf(w, "%s %s %s\n", port, typ, model)
	default:
		err = validIdentifyMode(mode)
	}
	return err
}
