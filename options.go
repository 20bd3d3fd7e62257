// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package jayo

import (
	"time"

	"github.com/c2h5oh/datasize"
	"go.uber.org/zap"
)

// MaxByteSize is the default async backpressure threshold: in async mode,
// the foreground pauses once the internal buffer holds more than this many
// bytes, until the pump drains it back down.
const MaxByteSize = 128 * datasize.KB

// readerOptions configures a BufferedReader.
type readerOptions struct {
	async        bool
	pumpReadSize datasize.ByteSize
}

var defaultReaderOptions = readerOptions{
	async:        false,
	pumpReadSize: datasize.ByteSize(SegmentSize),
}

// ReaderOption configures a BufferedReader constructed by NewBufferedReader.
type ReaderOption func(*readerOptions)

// WithAsync enables the background read-ahead pump (spec §4.6). Default is
// synchronous, pull-on-demand behavior.
func WithAsync() ReaderOption {
	return func(o *readerOptions) { o.async = true }
}

// WithPumpReadSize overrides the chunk size the async read-ahead pump asks
// the RawReader for on each speculative read (SegmentSize by default). Only
// meaningful together with WithAsync.
func WithPumpReadSize(size datasize.ByteSize) ReaderOption {
	return func(o *readerOptions) { o.pumpReadSize = size }
}

// writerOptions configures a BufferedWriter.
type writerOptions struct {
	async       bool
	maxByteSize datasize.ByteSize
}

var defaultWriterOptions = writerOptions{
	async:       false,
	maxByteSize: MaxByteSize,
}

// WriterOption configures a BufferedWriter constructed by NewBufferedWriter.
type WriterOption func(*writerOptions)

// WithAsyncWrite enables the background write-behind pump (spec §4.7).
// Default is synchronous, emit-on-demand behavior.
func WithAsyncWrite() WriterOption {
	return func(o *writerOptions) { o.async = true }
}

// WithMaxBufferedSize overrides the async backpressure threshold
// (MaxByteSize by default).
func WithMaxBufferedSize(size datasize.ByteSize) WriterOption {
	return func(o *writerOptions) { o.maxByteSize = size }
}

// watchdogOptions configures a Watchdog.
type watchdogOptions struct {
	idleTimeout time.Duration
	logger      *zap.Logger
}

var defaultWatchdogOptions = watchdogOptions{
	idleTimeout: 60 * time.Second,
	logger:      zap.NewNop(),
}

// WatchdogOption configures a Watchdog constructed by NewWatchdog.
type WatchdogOption func(*watchdogOptions)

// WithWatchdogIdleTimeout overrides the 60s default idle timeout after
// which the watchdog's background goroutine exits (it is restarted lazily
// on the next Enter call).
func WithWatchdogIdleTimeout(d time.Duration) WatchdogOption {
	return func(o *watchdogOptions) { o.idleTimeout = d }
}

// WithWatchdogLogger attaches a structured logger that records
// schedule/fire/idle-exit transitions at Debug level. Nil is treated as a
// no-op logger.
func WithWatchdogLogger(logger *zap.Logger) WatchdogOption {
	return func(o *watchdogOptions) {
		if logger == nil {
			logger = zap.NewNop()
		}
		o.logger = logger
	}
}
