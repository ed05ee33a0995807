package metrics

import (
	"fmt"
	"io"
	"sync"

	"github.com/relab/fedwalk/logging"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/anypb"
)

// Logger logs data in protobuf message format.
type Logger interface {
	Log(proto.Message)
	io.Closer
}

type jsonLogger struct {
	logger logging.Logger

	mut    sync.Mutex
	wr     io.Writer
	first  bool
	closed bool
}

// NewJSONLogger returns a logger that writes a JSON array of Any messages to wr.
// Write failures are reported to logger.
func NewJSONLogger(wr io.Writer, logger logging.Logger) (Logger, error) {
	if _, err := io.WriteString(wr, "[\n"); err != nil {
		return nil, fmt.Errorf("failed to write start of JSON array: %w", err)
	}
	if logger == nil {
		logger = logging.New("metrics")
	}
	return &jsonLogger{logger: logger, wr: wr, first: true}, nil
}

func (dl *jsonLogger) Log(msg proto.Message) {
	anyMsg, ok := msg.(*anypb.Any)
	if !ok {
		var err error
		if anyMsg, err = anypb.New(msg); err != nil {
			dl.logger.Errorf("failed to create Any message: %v", err)
			return
		}
	}
	if err := dl.write(anyMsg); err != nil {
		dl.logger.Errorf("failed to write message to log: %v", err)
	}
}

func (dl *jsonLogger) write(msg proto.Message) error {
	b, err := protojson.MarshalOptions{Indent: "\t", EmitUnpopulated: true}.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message to JSON: %w", err)
	}

	dl.mut.Lock()
	defer dl.mut.Unlock()
	if dl.closed {
		return fmt.Errorf("logger is closed")
	}
	if dl.first {
		dl.first = false
	} else if _, err := io.WriteString(dl.wr, ",\n"); err != nil {
		return err
	}
	_, err = dl.wr.Write(b)
	return err
}

// Close terminates the JSON array. It does not close the underlying writer.
func (dl *jsonLogger) Close() error {
	dl.mut.Lock()
	defer dl.mut.Unlock()
	if dl.closed {
		return nil
	}
	dl.closed = true
	_, err := io.WriteString(dl.wr, "\n]\n")
	return err
}

type nopLogger struct{}

func (nopLogger) Log(proto.Message) {}
func (nopLogger) Close() error      { return nil }

// NopLogger returns a logger that discards every message.
func NopLogger() Logger {
	return nopLogger{}
}
