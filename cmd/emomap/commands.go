package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/emomap/engine/internal/dispatcher"
)

// maxLineSize bounds one command line; :PLACES:SET: carries the whole place set.
const maxLineSize = 8 * 1024 * 1024

// commandLine is one line of input, e.g. {"command": ":POSITION:", "args": ["37.56", "126.97"]}.
// Arguments may be JSON strings or any other JSON value, which is passed on as raw text.
type commandLine struct {
	Command string            `json:"command"`
	Args    []json.RawMessage `json:"args"`
}

// reply is written as one line of output per command.
type reply struct {
	Command string `json:"command"`
	OK      bool   `json:"ok"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

func decodeLine(line []byte) (dispatcher.Event, error) {
	var cl commandLine
	if err := json.Unmarshal(line, &cl); err != nil {
		return dispatcher.Event{}, fmt.Errorf("invalid command line: %w", err)
	}
	if cl.Command == "" {
		return dispatcher.Event{}, fmt.Errorf("invalid command line: command is empty")
	}

	args := make([]string, 0, len(cl.Args))
	for _, raw := range cl.Args {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			args = append(args, s)
			continue
		}
		args = append(args, string(bytes.TrimSpace(raw)))
	}
	return dispatcher.Event{Command: cl.Command, Args: args}, nil
}

// serve reads command lines from in until EOF or ctx is done and writes one reply per line to out.
// Commands run one at a time, in input order.
func serve(ctx context.Context, in io.Reader, out io.Writer, d *dispatcher.Dispatcher, logger *slog.Logger) error {
	lines := make(chan []byte)
	scanErr := make(chan error, 1)

	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		sc.Buffer(make([]byte, 64*1024), maxLineSize)
		for sc.Scan() {
			line := bytes.TrimSpace(sc.Bytes())
			if len(line) == 0 {
				continue
			}
			select {
			case lines <- append([]byte(nil), line...):
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	enc := json.NewEncoder(out)
	for {
		select {
		case <-ctx.Done():
			logger.Info("Stopping command loop", "reason", ctx.Err())
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil {
						return fmt.Errorf("reading commands: %w", err)
					}
				default:
				}
				return nil
			}
			if err := enc.Encode(handleLine(d, line)); err != nil {
				return fmt.Errorf("writing reply: %w", err)
			}
		}
	}
}

func handleLine(d *dispatcher.Dispatcher, line []byte) reply {
	e, err := decodeLine(line)
	if err != nil {
		return reply{OK: false, Error: err.Error()}
	}
	result, err := d.Dispatch(e)
	if err != nil {
		return reply{Command: e.Command, OK: false, Error: err.Error()}
	}
	return reply{Command: e.Command, OK: true, Result: result}
}
