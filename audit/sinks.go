package audit

import (
	"context"
	"io"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// WriterSink writes entries to an io.Writer (stdout, test buffers).
type WriterSink struct {
	mu   sync.Mutex
	w    io.Writer
	name string
}

// NewWriterSink creates a sink over w.
func NewWriterSink(name string, w io.Writer) *WriterSink {
	return &WriterSink{w: w, name: name}
}

func (s *WriterSink) Write(_ context.Context, entry []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.w.Write(entry)
	return err
}

func (s *WriterSink) Close() error {
	return nil
}

func (s *WriterSink) Name() string {
	return s.name
}

// FileSinkConfig configures the rotating audit file.
type FileSinkConfig struct {
	Path       string
	MaxSize    int // megabytes
	MaxAge     int // days
	MaxBackups int
}

// FileSink appends entries to a rotating log file.
type FileSink struct {
	mu  sync.Mutex
	out *lumberjack.Logger
}

// NewFileSink creates a file sink at the configured path.
func NewFileSink(config FileSinkConfig) *FileSink {
	maxSize := config.MaxSize
	if maxSize == 0 {
		maxSize = 100
	}
	return &FileSink{
		out: &lumberjack.Logger{
			Filename:   config.Path,
			MaxSize:    maxSize,
			MaxAge:     config.MaxAge,
			MaxBackups: config.MaxBackups,
			LocalTime:  true,
		},
	}
}

func (s *FileSink) Write(_ context.Context, entry []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.out.Write(entry)
	return err
}

func (s *FileSink) Close() error {
	return s.out.Close()
}

func (s *FileSink) Name() string {
	return "file"
}
